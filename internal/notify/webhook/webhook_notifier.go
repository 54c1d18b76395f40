package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"crparser/internal/domain"
	"crparser/internal/port"
)

// Payload is the JSON body posted to subscribers.
type Payload struct {
	RequestID uuid.UUID                 `json:"request_id"`
	Status    domain.NotificationStatus `json:"status"`
	Error     string                    `json:"error,omitempty"`
}

type webhookNotifier struct {
	client     *http.Client
	defaultURL string
}

// NewWebhookNotifier creates a Notifier that POSTs job results to the
// notification URL, or to defaultURL when the job has none.
func NewWebhookNotifier(defaultURL string, timeout time.Duration) port.Notifier {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &webhookNotifier{
		client:     &http.Client{Timeout: timeout},
		defaultURL: defaultURL,
	}
}

func (n *webhookNotifier) Notify(ctx context.Context, msg domain.Notification) error {
	target := msg.URL
	if target == "" {
		target = n.defaultURL
	}
	if target == "" {
		return nil
	}

	body, err := json.Marshal(Payload{RequestID: msg.JobID, Status: msg.Status, Error: msg.Error})
	if err != nil {
		return fmt.Errorf("encoding webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook %s: %w", target, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook %s: unexpected status %d", target, resp.StatusCode)
	}
	return nil
}
