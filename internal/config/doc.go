// Package config loads, normalizes, and validates voxclip configuration.
//
// It merges defaults with user supplied TOML, expands paths that reference
// the home directory, applies environment fallbacks for credentials and
// connection strings, and exposes helpers for creating sample configs. All
// other packages consume the Config struct provided here, so changes to
// configuration semantics should be coordinated with this package.
package config
