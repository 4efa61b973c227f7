package dispatch

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go-automation/internal/config"
	"go-automation/pkg/action"
)

const SignatureHeader = "X-Automation-Signature"

type WebhookSender interface {
	Send(ctx context.Context, effect action.Effect, hook action.WebhookEffect) error
}

type HTTPWebhookSender struct {
	HttpClient *http.Client
	Secret     string
}

func NewHTTPWebhookSender(cfg *config.Config) *HTTPWebhookSender {
	return &HTTPWebhookSender{
		HttpClient: &http.Client{
			Timeout: cfg.WebhookTimeout,
		},
		Secret: cfg.WebhookSecret,
	}
}

// Sign returns the hex HMAC-SHA256 of body under secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Send delivers the webhook and treats any non-2xx answer as a failure.
func (s *HTTPWebhookSender) Send(ctx context.Context, effect action.Effect, hook action.WebhookEffect) error {
	body, err := json.Marshal(hook.Payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	method := strings.ToUpper(hook.Method)
	if method == "" {
		method = http.MethodPost
	}

	req, err := http.NewRequestWithContext(ctx, method, hook.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create webhook request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Go-Automation-Webhook")
	req.Header.Set("X-Automation-Delivery", effect.ID)
	for k, v := range hook.Headers {
		req.Header.Set(k, v)
	}
	if s.Secret != "" {
		req.Header.Set(SignatureHeader, "sha256="+Sign(s.Secret, body))
	}

	resp, err := s.HttpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send webhook to %s: %w", hook.URL, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook %s answered %d", hook.URL, resp.StatusCode)
	}
	return nil
}
