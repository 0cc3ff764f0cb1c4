package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"voxclip/internal/config"
)

const userAgent = "voxclip/0.1"

// Event names a pipeline milestone.
type Event string

const (
	EventSplitCompleted Event = "split_completed"
	EventVideoCompleted Event = "video_completed"
	EventSaveIncomplete Event = "save_incomplete"
	EventError          Event = "error"
	EventTest           Event = "test"
)

// Payload carries event fields. Keys used per event:
//   - split_completed: videoID, title, clips
//   - video_completed: videoID, title, uploaded
//   - save_incomplete: videoID, failed
//   - error: videoID, context, error
type Payload map[string]any

// Service publishes events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds an ntfy-backed notifier, or a no-op one when
// notifications.ntfy_topic is empty.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}
	timeout := time.Duration(cfg.Notifications.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

// NewNoop returns a notifier that drops every event.
func NewNoop() Service { return noopService{} }

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	msg, ok := format(event, payload)
	if !ok {
		return fmt.Errorf("unknown notification event %q", event)
	}
	return n.send(ctx, msg)
}

func format(event Event, payload Payload) (message, bool) {
	videoID := payload.text("videoID")
	label := videoID
	if title := payload.text("title"); title != "" {
		label = fmt.Sprintf("%s (%s)", title, videoID)
	}

	switch event {
	case EventSplitCompleted:
		return message{
			title: "voxclip - Split",
			body:  fmt.Sprintf("✂️ %d clips ready: %s", payload.number("clips"), label),
			tags:  []string{"voxclip", "split", "completed"},
		}, true
	case EventVideoCompleted:
		return message{
			title:    "voxclip - Saved",
			body:     fmt.Sprintf("✅ Archived %d clips: %s", payload.number("uploaded"), label),
			tags:     []string{"voxclip", "save", "completed"},
			priority: "high",
		}, true
	case EventSaveIncomplete:
		return message{
			title: "voxclip - Save Incomplete",
			body:  fmt.Sprintf("⚠️ %d clips failed to upload: %s\nRun save again to retry", payload.number("failed"), label),
			tags:  []string{"voxclip", "save", "retry"},
		}, true
	case EventError:
		var b strings.Builder
		b.WriteString("❌ Error")
		if during := payload.text("context"); during != "" {
			b.WriteString(" during ")
			b.WriteString(during)
		}
		if videoID != "" {
			b.WriteString(" for ")
			b.WriteString(videoID)
		}
		b.WriteString(": ")
		if text := payload.text("error"); text != "" {
			b.WriteString(text)
		} else {
			b.WriteString("unknown")
		}
		return message{
			title:    "voxclip - Error",
			body:     b.String(),
			tags:     []string{"voxclip", "error", "alert"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "voxclip - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"voxclip", "test"},
			priority: "low",
		}, true
	}
	return message{}, false
}

func (p Payload) text(key string) string {
	switch v := p[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case error:
		return strings.TrimSpace(v.Error())
	case fmt.Stringer:
		return strings.TrimSpace(v.String())
	}
	return ""
}

func (p Payload) number(key string) int {
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	}
	return 0
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" {
		req.Header.Set("Priority", msg.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
