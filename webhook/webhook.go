// Package webhook notifies caller-provided endpoints when a batch
// reaches a terminal state. Events carry the batch rollup and are
// signed with HMAC-SHA256 when a secret is configured.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/2501Pr0ject/Scrapinium-sub000/models"
)

// Event is the notification body. Type is "batch.<terminal status>",
// e.g. "batch.completed" or "batch.completed_with_errors".
type Event struct {
	Type      string  `json:"type"`
	BatchID   string  `json:"batch_id"`
	BatchName string  `json:"batch_name,omitempty"`
	Timestamp int64   `json:"timestamp"`
	Summary   Summary `json:"summary"`
}

// Summary is the batch rollup included in every event, so receivers can
// act on the outcome without a follow-up API call.
type Summary struct {
	TotalURLs  int               `json:"total_urls"`
	Completed  int               `json:"completed"`
	Failed     int               `json:"failed"`
	Progress   int               `json:"progress"`
	DurationMs int64             `json:"duration_ms"`
	Errors     map[string]string `json:"errors,omitempty"`
}

// EventFromBatch builds the notification for a terminal batch snapshot.
func EventFromBatch(job *models.BatchJob) *Event {
	sum := Summary{
		TotalURLs: len(job.URLs),
		Completed: job.Completed,
		Failed:    job.Failed,
		Progress:  job.Progress,
	}
	if len(job.Errors) > 0 {
		sum.Errors = job.Errors
	}
	if job.StartedAt != nil && job.FinishedAt != nil {
		sum.DurationMs = job.FinishedAt.Sub(*job.StartedAt).Milliseconds()
	}
	return &Event{
		Type:      "batch." + string(job.Status),
		BatchID:   job.ID,
		BatchName: job.Name,
		Timestamp: time.Now().Unix(),
		Summary:   sum,
	}
}

// Notifier delivers events over a shared HTTP client with a fixed retry
// schedule.
type Notifier struct {
	client  *http.Client
	backoff []time.Duration
}

func NewNotifier() *Notifier {
	return &Notifier{
		client:  &http.Client{Timeout: 10 * time.Second},
		backoff: []time.Duration{0, 1 * time.Second, 5 * time.Second, 30 * time.Second},
	}
}

// Send delivers one event synchronously. When secret is non-empty the
// body is signed: X-Scrapinium-Signature: sha256=<hex(hmac-sha256)>.
func (n *Notifier) Send(ctx context.Context, url, secret string, event *Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("webhook: marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Scrapinium-Webhook/1.0")

	if secret != "" {
		mac := hmac.New(sha256.New, []byte(secret))
		mac.Write(body)
		req.Header.Set("X-Scrapinium-Signature", "sha256="+hex.EncodeToString(mac.Sum(nil)))
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: deliver: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook: endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// Notify delivers the event in the background, walking the backoff
// schedule until one attempt lands.
func (n *Notifier) Notify(url, secret string, event *Event) {
	go func() {
		for attempt, delay := range n.backoff {
			if delay > 0 {
				time.Sleep(delay)
			}
			ctx, cancel := context.WithTimeout(context.Background(), n.client.Timeout)
			err := n.Send(ctx, url, secret, event)
			cancel()
			if err == nil {
				slog.Info("webhook delivered", "url", url,
					"event", event.Type, "batch_id", event.BatchID, "attempt", attempt+1)
				return
			}
			slog.Warn("webhook delivery failed", "url", url,
				"event", event.Type, "batch_id", event.BatchID,
				"attempt", attempt+1, "error", err)
		}
		slog.Error("webhook retries exhausted", "url", url,
			"event", event.Type, "batch_id", event.BatchID)
	}()
}
