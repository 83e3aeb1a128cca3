package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/enjoys-in/pinglet-sub002/metrics"
	"github.com/enjoys-in/pinglet-sub002/pkg/auth"
	"github.com/enjoys-in/pinglet-sub002/pkg/models"
	"github.com/enjoys-in/pinglet-sub002/pkg/types"
)

// Sender POSTs lifecycle events to subscriber endpoints. Each body is signed
// with the webhook's own secret so receivers can verify origin the same way
// the widget gate verifies requests.
type Sender struct {
	client *http.Client
}

func NewSender(timeout time.Duration) *Sender {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Sender{client: &http.Client{Timeout: timeout}}
}

func (s *Sender) Deliver(ctx context.Context, hook *models.Webhook, ev types.LifecycleEvent) (*types.SendResponse, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("webhook: marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, hook.URL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Pinglet-Event", string(ev.Kind))
	req.Header.Set("X-Pinglet-Signature", auth.Sign([]byte(hook.Secret), string(body)))

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		metrics.WebhookAttemptsTotal.WithLabelValues("error").Inc()
		metrics.WebhookSendDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		return nil, fmt.Errorf("webhook: %s: %w", hook.URL, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	status := fmt.Sprintf("%d", resp.StatusCode)
	metrics.WebhookSendDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())

	if resp.StatusCode >= 400 {
		metrics.WebhookAttemptsTotal.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("webhook: %s answered %d", hook.URL, resp.StatusCode)
	}
	metrics.WebhookAttemptsTotal.WithLabelValues("delivered").Inc()

	return &types.SendResponse{
		Provider:    "webhook",
		Status:      "delivered",
		RawResponse: raw,
		Timestamp:   time.Now(),
	}, nil
}

// Wants reports whether the hook subscribes to kind. An empty filter means
// every kind.
func Wants(hook *models.Webhook, kind types.EventKind) bool {
	if len(hook.Events) == 0 {
		return true
	}
	var kinds []string
	if err := json.Unmarshal(hook.Events, &kinds); err != nil {
		return true
	}
	if len(kinds) == 0 {
		return true
	}
	for _, k := range kinds {
		if k == string(kind) {
			return true
		}
	}
	return false
}
