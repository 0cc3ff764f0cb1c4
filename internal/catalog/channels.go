package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"voxclip/internal/services"
)

// Channel is a registered source channel.
type Channel struct {
	ChannelID       string    `json:"channel_id"`
	Title           string    `json:"channel_title"`
	Domain          string    `json:"domain"`
	TopicCategories []string  `json:"topic_categories"`
	ThumbnailURL    string    `json:"thumbnail_url,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// ChannelRegistry lists, records, and soft-deletes channels.
type ChannelRegistry interface {
	ListChannels(ctx context.Context) ([]Channel, error)
	UpsertChannel(ctx context.Context, channel Channel) (Channel, error)
	DeleteChannel(ctx context.Context, channelID string) error
}

// Fixed width so created_at sorts as text.
const channelTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const upsertChannelSQL = `INSERT INTO channels (
    channel_id, channel_title, domain, topic_categories, thumbnail_url, is_deleted, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, FALSE, ?, ?)
ON CONFLICT (channel_id) DO UPDATE SET
    channel_title = excluded.channel_title,
    domain = excluded.domain,
    topic_categories = excluded.topic_categories,
    thumbnail_url = excluded.thumbnail_url,
    is_deleted = FALSE,
    updated_at = excluded.updated_at
RETURNING created_at`

// UpsertChannel records a channel, reviving it when it was soft-deleted.
func (s *Store) UpsertChannel(ctx context.Context, channel Channel) (Channel, error) {
	channel.ChannelID = strings.TrimSpace(channel.ChannelID)
	channel.Domain = strings.TrimSpace(channel.Domain)
	switch {
	case channel.ChannelID == "":
		return Channel{}, services.Wrap(services.ErrValidation, "catalog", "upsert channel", "channel_id is required", nil)
	case channel.Domain == "":
		return Channel{}, services.Wrap(services.ErrValidation, "catalog", "upsert channel", "domain is required", nil)
	}
	if channel.TopicCategories == nil {
		channel.TopicCategories = []string{}
	}
	topics, err := json.Marshal(channel.TopicCategories)
	if err != nil {
		return Channel{}, services.Wrap(services.ErrValidation, "catalog", "upsert channel", "encode topic categories", err)
	}

	now := time.Now().UTC().Format(channelTimeLayout)
	var created string
	err = retryOnBusy(ctx, func() error {
		return s.db.QueryRowContext(ctx, s.rebind(upsertChannelSQL),
			channel.ChannelID,
			channel.Title,
			channel.Domain,
			string(topics),
			channel.ThumbnailURL,
			now,
			now,
		).Scan(&created)
	})
	if err != nil {
		return Channel{}, services.Wrap(services.ErrPersistence, "catalog", "upsert channel", channel.ChannelID, err)
	}
	channel.CreatedAt = parseTime(created)
	return channel, nil
}

// ListChannels returns channels that are not soft-deleted, newest first.
func (s *Store) ListChannels(ctx context.Context) ([]Channel, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT channel_id, channel_title, domain, topic_categories, thumbnail_url, created_at
FROM channels WHERE is_deleted = FALSE ORDER BY created_at DESC, channel_id`)
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, "catalog", "list channels", "", err)
	}
	defer rows.Close()

	out := make([]Channel, 0)
	for rows.Next() {
		var (
			channel         Channel
			topics, created string
		)
		if err := rows.Scan(&channel.ChannelID, &channel.Title, &channel.Domain, &topics, &channel.ThumbnailURL, &created); err != nil {
			return nil, services.Wrap(services.ErrPersistence, "catalog", "list channels", "scan", err)
		}
		if err := json.Unmarshal([]byte(topics), &channel.TopicCategories); err != nil {
			return nil, services.Wrap(services.ErrPersistence, "catalog", "list channels", fmt.Sprintf("decode topics of %s", channel.ChannelID), err)
		}
		channel.CreatedAt = parseTime(created)
		out = append(out, channel)
	}
	if err := rows.Err(); err != nil {
		return nil, services.Wrap(services.ErrPersistence, "catalog", "list channels", "", err)
	}
	return out, nil
}

// DeleteChannel marks a channel deleted. Unknown ids return ErrNotFound;
// deleting twice succeeds.
func (s *Store) DeleteChannel(ctx context.Context, channelID string) error {
	channelID = strings.TrimSpace(channelID)
	var found string
	err := s.db.QueryRowContext(ctx, s.rebind("SELECT channel_id FROM channels WHERE channel_id = ?"), channelID).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return services.Wrap(services.ErrNotFound, "catalog", "delete channel", "channel "+channelID+" not found", nil)
	}
	if err != nil {
		return services.Wrap(services.ErrPersistence, "catalog", "delete channel", channelID, err)
	}
	err = retryOnBusy(ctx, func() error {
		_, execErr := s.db.ExecContext(ctx, s.rebind("UPDATE channels SET is_deleted = TRUE, updated_at = ? WHERE channel_id = ?"),
			time.Now().UTC().Format(channelTimeLayout), channelID)
		return execErr
	})
	if err != nil {
		return services.Wrap(services.ErrPersistence, "catalog", "delete channel", channelID, err)
	}
	return nil
}
