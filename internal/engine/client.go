// Package engine notifies the external workflow engine that a project is
// ready for analysis. Only the response status is consumed; results arrive
// later through the signed ingest callback.
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Sentinel errors for engine notification failures.
var (
	ErrEngineUnreachable = errors.New("workflow engine unreachable")
	ErrEngineTimeout     = errors.New("workflow engine timeout")
	ErrEngineRejected    = errors.New("workflow engine rejected notification")
)

// Notifier delivers analysis requests to the workflow engine.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// Notification is the outbound payload. CallbackURL carries the signed
// capability the engine must use to report back.
type Notification struct {
	ProjectID       uuid.UUID `json:"projectId"`
	OwnerID         uuid.UUID `json:"ownerId"`
	ProjectName     string    `json:"projectName"`
	Inputs          []string  `json:"inputs"`
	AnalysisOptions []string  `json:"analysisOptions"`
	Timestamp       time.Time `json:"timestamp"`
	CallbackURL     string    `json:"callbackUrl"`
}

// HTTPClient implements Notifier with a single JSON POST to a webhook URL.
type HTTPClient struct {
	webhookURL string
	client     *http.Client
}

// NewHTTPClient creates a new engine webhook client. The trace context of the
// triggering request is propagated in the webhook headers.
func NewHTTPClient(webhookURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		webhookURL: webhookURL,
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

func (c *HTTPClient) Notify(ctx context.Context, n Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encoding notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return classifyError(err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: status %d", ErrEngineRejected, resp.StatusCode)
	}
	return nil
}

// classifyError maps transport-level errors to sentinel errors.
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrEngineTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrEngineTimeout, err)
	}

	return fmt.Errorf("%w: %v", ErrEngineUnreachable, err)
}

// Compile-time check that HTTPClient implements Notifier.
var _ Notifier = (*HTTPClient)(nil)
