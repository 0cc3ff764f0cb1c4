// Package catalog records processed videos and their uploaded clips in a
// relational database.
//
// The Store runs on database/sql with either SQLite (modernc.org/sqlite, the
// default) or PostgreSQL (pgx stdlib driver). Both share one embedded schema;
// placeholders are rebound per dialect. Persist upserts a video row and its
// clip rows in a single transaction keyed by (video_id, clip_index), so a
// repeated save updates rows instead of duplicating them.
//
// The channels table is a soft-deletable registry of source channels.
//
// Schema changes bump the version in schema.go. Databases at a version the
// schema script upgrades by adding tables are bumped in place; any other
// version is rejected until the database is cleared.
package catalog
