package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"shelfmark/internal/config"
)

const userAgent = "Shelfmark-Go/0.1.0"

// Service defines the notification surface exposed to catalog components.
type Service interface {
	NotifyNewRequest(ctx context.Context, title, username string) error
	NotifyPromotionCompleted(ctx context.Context, title, canonicalID string) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:   topic,
		client:     &http.Client{Timeout: timeout},
		newRequest: cfg.Notifications.NewRequest,
		promotion:  cfg.Notifications.Promotion,
		errors:     cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint   string
	client     *http.Client
	newRequest bool
	promotion  bool
	errors     bool
}

func (n *ntfyService) NotifyNewRequest(ctx context.Context, title, username string) error {
	if !n.newRequest {
		return nil
	}
	title = strings.TrimSpace(title)
	username = strings.TrimSpace(username)
	if username == "" {
		username = "unknown"
	}
	data := payload{
		title:   "Shelfmark - New Request",
		message: fmt.Sprintf("%s requested: %s", username, title),
		tags:    []string{"shelfmark", "request", "created"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyPromotionCompleted(ctx context.Context, title, canonicalID string) error {
	if !n.promotion {
		return nil
	}
	title = strings.TrimSpace(title)
	data := payload{
		title:    "Shelfmark - Identity Confirmed",
		message:  fmt.Sprintf("Matched to catalog record %s: %s", strings.TrimSpace(canonicalID), title),
		tags:     []string{"shelfmark", "promotion", "completed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Shelfmark - Error",
		message:  builder.String(),
		tags:     []string{"shelfmark", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Shelfmark - Test",
		message:  "Notification system test",
		tags:     []string{"shelfmark", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
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

func (noopService) NotifyNewRequest(context.Context, string, string) error        { return nil }
func (noopService) NotifyPromotionCompleted(context.Context, string, string) error { return nil }
func (noopService) NotifyError(context.Context, error, string) error              { return nil }
func (noopService) TestNotification(context.Context) error                        { return nil }
