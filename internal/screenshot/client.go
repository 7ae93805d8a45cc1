// Package screenshot captures listing pages through an external headless
// browser service.
package screenshot

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var (
	ErrNotConfigured = errors.New("screenshot service not configured")
	ErrUnavailable   = errors.New("screenshot service unavailable")
	ErrTimeout       = errors.New("screenshot timeout")
	ErrFailed        = errors.New("screenshot failed")
)

const (
	viewportWidth  = 1920
	viewportHeight = 1080
	jpegQuality    = 80
	// maxImageBytes bounds a full-page capture.
	maxImageBytes = 20 << 20
)

// Capture is a rendered page encoded as a data URL.
type Capture struct {
	Screenshot string `json:"screenshot"`
	URL        string `json:"url"`
}

// Client calls POST {baseURL}/screenshot. It makes a single attempt per call.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a screenshot client. An empty baseURL yields a client
// whose Capture always returns ErrNotConfigured.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// Configured reports whether a screenshot service is set.
func (c *Client) Configured() bool {
	return c.baseURL != ""
}

type captureRequest struct {
	URL      string         `json:"url"`
	Options  captureOptions `json:"options"`
	Viewport viewport       `json:"viewport"`
}

type captureOptions struct {
	Type     string `json:"type"`
	Quality  int    `json:"quality"`
	FullPage bool   `json:"fullPage"`
}

type viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Capture renders pageURL full-page as a JPEG.
func (c *Client) Capture(ctx context.Context, pageURL string) (*Capture, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	body, err := json.Marshal(captureRequest{
		URL:      pageURL,
		Options:  captureOptions{Type: "jpeg", Quality: jpegQuality, FullPage: true},
		Viewport: viewport{Width: viewportWidth, Height: viewportHeight},
	})
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/screenshot", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		if resp.StatusCode >= 500 {
			return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
		}
		return nil, fmt.Errorf("%w: status %d", ErrFailed, resp.StatusCode)
	}

	img, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, classifyError(err)
	}
	if len(img) == 0 {
		return nil, fmt.Errorf("%w: empty image", ErrFailed)
	}
	if len(img) > maxImageBytes {
		return nil, fmt.Errorf("%w: image exceeds %d bytes", ErrFailed, maxImageBytes)
	}

	return &Capture{
		Screenshot: "data:" + mediaType(resp.Header.Get("Content-Type")) + ";base64," + base64.StdEncoding.EncodeToString(img),
		URL:        pageURL,
	}, nil
}

func mediaType(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil || !strings.HasPrefix(mt, "image/") {
		return "image/jpeg"
	}
	return mt
}

func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
