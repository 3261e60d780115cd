// Package report delivers window-activity heartbeats to an
// ActivityWatch-compatible server. Reporting is best effort: failures are
// retried a few times and then dropped, never stalling the capture path.
package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/screenwatch/screenwatch/internal/event"
	"github.com/screenwatch/screenwatch/internal/resilience"
	"github.com/screenwatch/screenwatch/internal/trace"
)

const (
	clientName = "screenwatch"
	bucketType = "currentwindow"
)

// statusError marks an HTTP response code as an error so the retry policy
// can distinguish server hiccups from rejections.
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("server returned %d", e.code)
}

func isRetryableHTTP(err error) bool {
	if err == nil {
		return false
	}
	if se, ok := err.(*statusError); ok {
		return se.code >= 500
	}
	// Transport-level failures (refused connection, timeouts) are retryable.
	return true
}

// Reporter posts heartbeats for the focused window into a dedicated bucket.
type Reporter struct {
	baseURL   string
	bucket    string
	hostname  string
	pulsetime float64
	client    *http.Client
	retry     resilience.RetryConfig
}

// New builds a Reporter against the given server base URL, e.g.
// "http://localhost:5600". The pulsetime controls how far apart two
// heartbeats may be and still merge into one event on the server.
func New(baseURL string, pulsetime time.Duration) *Reporter {
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		hostname = "unknown"
	}
	retry := resilience.DefaultRetryConfig()
	retry.IsRetryable = isRetryableHTTP
	return &Reporter{
		baseURL:   baseURL,
		bucket:    fmt.Sprintf("%s_%s", clientName, hostname),
		hostname:  hostname,
		pulsetime: pulsetime.Seconds(),
		client:    &http.Client{Timeout: 10 * time.Second},
		retry:     retry,
	}
}

// Bucket returns the bucket id heartbeats are posted to.
func (r *Reporter) Bucket() string { return r.bucket }

// EnsureBucket creates the heartbeat bucket if it does not exist yet.
func (r *Reporter) EnsureBucket(ctx context.Context) error {
	body := map[string]string{
		"client":   clientName,
		"type":     bucketType,
		"hostname": r.hostname,
	}
	url := fmt.Sprintf("%s/api/0/buckets/%s", r.baseURL, r.bucket)
	return resilience.Retry(ctx, r.retry, func() error {
		return r.post(ctx, url, body)
	})
}

// Heartbeat reports one focused-window observation. Results without window
// metadata are ignored.
func (r *Reporter) Heartbeat(ctx context.Context, res *event.CaptureResult) error {
	if res.Window == nil {
		return nil
	}
	ctx, span := trace.StartSpan(ctx, "heartbeat")
	defer span.End()
	span.SetAttr("app", res.Window.AppName)

	body := map[string]any{
		"timestamp": res.Timestamp.UTC().Format(time.RFC3339Nano),
		"duration":  0,
		"data": map[string]string{
			"app":   res.Window.AppName,
			"title": res.Window.Title,
		},
	}
	url := fmt.Sprintf("%s/api/0/buckets/%s/heartbeat?pulsetime=%g", r.baseURL, r.bucket, r.pulsetime)
	return resilience.Retry(ctx, r.retry, func() error {
		return r.post(ctx, url, body)
	})
}

func (r *Reporter) post(ctx context.Context, url string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	// 304 means the bucket already exists.
	if resp.StatusCode >= 200 && resp.StatusCode < 400 {
		return nil
	}
	return &statusError{code: resp.StatusCode}
}
