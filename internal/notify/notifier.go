package notify

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const SignatureHeader = "X-Memberhub-Signature"

const (
	KindMemberSignedUp = "member.signed_up"
	KindEventReminder  = "event.reminder"
)

// Notification is the JSON document posted to the webhook.
type Notification struct {
	Kind       string         `json:"kind"`
	ProfileID  string         `json:"profile_id,omitempty"`
	Email      string         `json:"email,omitempty"`
	Subject    string         `json:"subject"`
	Data       map[string]any `json:"data,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// Noop is used when no webhook is configured.
type Noop struct{}

func (Noop) Notify(context.Context, Notification) error { return nil }

// WebhookNotifier posts notifications to an outbound URL.
type WebhookNotifier struct {
	httpClient *resty.Client
	url        string
	secret     []byte
	logger     *zap.Logger
}

func NewWebhookNotifier(url, secret string, logger *zap.Logger) *WebhookNotifier {
	client := resty.New().
		SetTimeout(10*time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(500*time.Millisecond).
		SetRetryMaxWaitTime(3*time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= 500
		}).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &WebhookNotifier{
		httpClient: client,
		url:        url,
		secret:     []byte(secret),
		logger:     logger,
	}
}

// New returns a webhook notifier, or Noop when url is empty.
func New(url, secret string, logger *zap.Logger) Notifier {
	if url == "" {
		return Noop{}
	}
	return NewWebhookNotifier(url, secret, logger)
}

// Sign returns the hex HMAC-SHA256 of body.
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func (w *WebhookNotifier) Notify(ctx context.Context, n Notification) error {
	if n.OccurredAt.IsZero() {
		n.OccurredAt = time.Now().UTC()
	}
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}

	req := w.httpClient.R().SetContext(ctx).SetBody(body)
	if len(w.secret) > 0 {
		req.SetHeader(SignatureHeader, Sign(w.secret, body))
	}

	resp, err := req.Post(w.url)
	if err != nil {
		w.logger.Error("webhook call failed", zap.String("kind", n.Kind), zap.Error(err))
		return fmt.Errorf("failed to call webhook: %w", err)
	}
	if resp.IsError() {
		w.logger.Error("webhook returned error",
			zap.String("kind", n.Kind),
			zap.Int("status_code", resp.StatusCode()),
		)
		return fmt.Errorf("webhook error: status %d", resp.StatusCode())
	}

	w.logger.Debug("webhook delivered", zap.String("kind", n.Kind), zap.Int("status_code", resp.StatusCode()))
	return nil
}
