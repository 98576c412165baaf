package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	auditDomain "github.com/allisson/keycore/internal/audit/domain"
	apperrors "github.com/allisson/keycore/internal/errors"
)

// WebhookPublisher POSTs alerts as JSON to a configured endpoint.
type WebhookPublisher struct {
	url    string
	client *http.Client
}

// NewWebhookPublisher creates a webhook publisher for the given endpoint.
// A zero timeout defaults to 10 seconds.
func NewWebhookPublisher(url string, timeout time.Duration) *WebhookPublisher {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &WebhookPublisher{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

func (w *WebhookPublisher) Name() string {
	return "webhook"
}

func (w *WebhookPublisher) Publish(ctx context.Context, alert *auditDomain.SecurityAlert) error {
	body, err := json.Marshal(newAlertPayload(alert))
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal alert payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return apperrors.Wrap(err, "failed to build webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return apperrors.Wrap(err, "failed to deliver webhook")
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
