package pipeline

import (
	"context"

	"voxclip/internal/catalog"
	"voxclip/internal/logging"
	"voxclip/internal/services"
)

// ChannelRequest registers a source channel.
type ChannelRequest struct {
	ChannelID       string   `json:"channel_id" binding:"required"`
	Title           string   `json:"channel_title"`
	Domain          string   `json:"domain" binding:"required"`
	TopicCategories []string `json:"topic_categories"`
	ThumbnailURL    string   `json:"thumbnail_url"`
}

func (p *Pipeline) channels() (catalog.ChannelRegistry, error) {
	if p.deps.Channels == nil {
		return nil, services.Wrap(services.ErrConfiguration, "channels", "registry", "no channel registry configured", nil)
	}
	return p.deps.Channels, nil
}

// Channels lists registered channels that were not deleted.
func (p *Pipeline) Channels(ctx context.Context) ([]catalog.Channel, error) {
	registry, err := p.channels()
	if err != nil {
		return nil, err
	}
	return registry.ListChannels(ctx)
}

// AddChannel records a channel, reviving a deleted one with the same id.
func (p *Pipeline) AddChannel(ctx context.Context, req ChannelRequest) (catalog.Channel, error) {
	registry, err := p.channels()
	if err != nil {
		return catalog.Channel{}, err
	}
	channel, err := registry.UpsertChannel(ctx, catalog.Channel{
		ChannelID:       req.ChannelID,
		Title:           req.Title,
		Domain:          req.Domain,
		TopicCategories: req.TopicCategories,
		ThumbnailURL:    req.ThumbnailURL,
	})
	if err != nil {
		return catalog.Channel{}, err
	}
	logging.WithContext(ctx, p.logger).Info("channel registered",
		logging.String("channel_id", channel.ChannelID),
		logging.String("domain", channel.Domain),
		logging.String(logging.FieldEventType, "channel_registered"),
	)
	return channel, nil
}

// DeleteChannel soft-deletes a channel.
func (p *Pipeline) DeleteChannel(ctx context.Context, channelID string) error {
	registry, err := p.channels()
	if err != nil {
		return err
	}
	if err := registry.DeleteChannel(ctx, channelID); err != nil {
		return err
	}
	logging.WithContext(ctx, p.logger).Info("channel deleted",
		logging.String("channel_id", channelID),
		logging.String(logging.FieldEventType, "channel_deleted"),
	)
	return nil
}
