package storewatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-telegram/bot"
)

// defaultWebhookTimeout bounds a webhook request when the caller's context
// has no deadline of its own.
const defaultWebhookTimeout = 10 * time.Second

// Notifier receives state transitions of the monitored store.
//
// Each notifier has its own delivery goroutine and queue; Notify is called
// once per event, in event order, never concurrently with itself. Each call
// is bounded by the notify timeout and cancelled when the monitor stops.
// Events that arrive while the queue is full, or that are still queued at
// shutdown, are dropped and counted. Errors are logged and counted; they
// never affect monitoring. Panics are recovered and logged with a
// correlation ID.
//
// A Notifier that also implements io.Closer is closed when the monitor stops.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// NotifierFunc adapts an ordinary function to the [Notifier] interface.
//
// Example:
//
//	storewatch.WithNotifier(storewatch.NotifierFunc(func(ctx context.Context, ev storewatch.Event) error {
//	    if ev.Kind == storewatch.EventFailure {
//	        pager.Trigger(ev.Message)
//	    }
//	    return nil
//	}))
type NotifierFunc func(ctx context.Context, ev Event) error

// Notify calls f(ctx, ev).
func (f NotifierFunc) Notify(ctx context.Context, ev Event) error {
	return f(ctx, ev)
}

// LogNotifier returns a [Notifier] that writes events to logger. Failures are
// logged at WARN, recoveries at INFO. It is the default sink when no
// notifier is configured.
func LogNotifier(logger *slog.Logger) Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return NotifierFunc(func(ctx context.Context, ev Event) error {
		switch ev.Kind {
		case EventFailure:
			logger.WarnContext(ctx, ev.Message, "event", ev.Kind.String(), "error", ev.Err, "at", ev.At)
		default:
			logger.InfoContext(ctx, ev.Message, "event", ev.Kind.String(), "at", ev.At)
		}
		return nil
	})
}

// webhookPayload is the JSON body posted by [WebhookNotifier].
type webhookPayload struct {
	Event   string    `json:"event"`
	Message string    `json:"message"`
	Error   string    `json:"error,omitempty"`
	At      time.Time `json:"at"`
}

// WebhookNotifier posts each event as JSON to an HTTP endpoint.
type WebhookNotifier struct {
	url        string
	headers    map[string]string
	httpClient *http.Client
}

// NewWebhookNotifier creates a [WebhookNotifier] posting to url with the
// given extra headers (may be nil).
//
// The request body is:
//
//	{"event":"failure","message":"Data store unavailable. ...","error":"...","at":"..."}
//
// Any non-2xx response is reported as an error.
func NewWebhookNotifier(url string, headers map[string]string) *WebhookNotifier {
	return &WebhookNotifier{
		url:        url,
		headers:    copyMap(headers),
		httpClient: &http.Client{Timeout: defaultWebhookTimeout},
	}
}

// Notify posts ev to the webhook.
func (w *WebhookNotifier) Notify(ctx context.Context, ev Event) error {
	payload := webhookPayload{
		Event:   ev.Kind.String(),
		Message: ev.Message,
		At:      ev.At,
	}
	if ev.Err != nil {
		payload.Error = ev.Err.Error()
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range w.headers {
		req.Header.Set(k, v)
	}

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// Close releases idle connections held by the webhook client.
func (w *WebhookNotifier) Close() error {
	w.httpClient.CloseIdleConnections()
	return nil
}

// TelegramNotifier sends each event as a chat message through the Telegram
// Bot API.
type TelegramNotifier struct {
	bot    *bot.Bot
	chatID int64
}

// NewTelegramNotifier creates a [TelegramNotifier] for the bot token and
// target chat. No request is made until the first event; an invalid token is
// reported by Notify. Extra bot options (for example bot.WithServerURL) are
// passed through.
func NewTelegramNotifier(token string, chatID int64, opts ...bot.Option) (*TelegramNotifier, error) {
	if token == "" {
		return nil, errors.New("telegram token is required")
	}
	if chatID == 0 {
		return nil, errors.New("telegram chat id is required")
	}

	b, err := bot.New(token, append([]bot.Option{bot.WithSkipGetMe()}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return &TelegramNotifier{bot: b, chatID: chatID}, nil
}

// Notify sends ev.Message, with the probe error appended for failures.
func (t *TelegramNotifier) Notify(ctx context.Context, ev Event) error {
	text := ev.Message
	if ev.Kind == EventFailure && ev.Err != nil {
		text = fmt.Sprintf("%s\n%v", ev.Message, ev.Err)
	}

	if _, err := t.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: t.chatID,
		Text:   text,
	}); err != nil {
		return fmt.Errorf("telegram send failed: %w", err)
	}
	return nil
}

// copyMap returns a copy of m, or nil if m is empty.
func copyMap(m map[string]string) map[string]string {
	if len(m) == 0 {
		return nil
	}
	cp := make(map[string]string, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}
