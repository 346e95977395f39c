// Package resolver is the external collaborator boundary for resource
// payloads: remote image fetching and diagram rendering. Calls may be slow
// and may fail; the extraction layer degrades failures to warnings.
package resolver

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"
)

// maxPayloadBytes caps a single fetched payload.
const maxPayloadBytes = 32 << 20

// Client fetches image bytes over HTTP or from disk, and posts diagram
// sources to a kroki-style rendering service.
type Client struct {
	httpClient *http.Client
	diagramURL string
	log        *slog.Logger
}

// New creates a Client. diagramURL may be empty, in which case diagram
// rendering reports itself unconfigured and payloads stay pending.
func New(diagramURL string, log *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		diagramURL: strings.TrimRight(diagramURL, "/"),
		log:        log,
	}
}

// ResolveImage returns the bytes behind an image reference. Local paths are
// read directly; http(s) URLs are fetched with bounded retries.
func (c *Client) ResolveImage(ctx context.Context, src string) ([]byte, error) {
	if !strings.HasPrefix(src, "http://") && !strings.HasPrefix(src, "https://") {
		data, err := os.ReadFile(src)
		if err != nil {
			return nil, fmt.Errorf("read local image: %w", err)
		}
		return data, nil
	}
	return c.getWithRetry(ctx, src)
}

// RenderDiagram posts a diagram source to the rendering service and returns
// the rendered SVG bytes.
func (c *Client) RenderDiagram(ctx context.Context, language, source string) ([]byte, error) {
	if c.diagramURL == "" {
		return nil, fmt.Errorf("no diagram renderer configured")
	}
	url := fmt.Sprintf("%s/%s/svg", c.diagramURL, language)

	var lastErr error
	for attempt := 0; attempt < MaxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, Backoff(attempt-1)); err != nil {
				return nil, err
			}
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(source))
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "text/plain")

		data, retryable, err := c.do(req)
		if err == nil {
			return data, nil
		}
		lastErr = err
		if !retryable {
			break
		}
	}
	return nil, lastErr
}

func (c *Client) getWithRetry(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < MaxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, Backoff(attempt-1)); err != nil {
				return nil, err
			}
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}

		data, retryable, err := c.do(req)
		if err == nil {
			return data, nil
		}
		lastErr = err
		if !retryable {
			break
		}
		c.log.Debug("fetch retry", "url", url, "attempt", attempt+1, "error", err)
	}
	return nil, lastErr
}

// do executes one request. The bool reports whether the failure is worth
// retrying (network error or retryable status).
func (c *Client) do(req *http.Request) ([]byte, bool, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("fetch %s: %w", req.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
		return nil, retryableStatus(resp.StatusCode), fmt.Errorf("fetch %s: status %d", req.URL, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadBytes))
	if err != nil {
		return nil, true, fmt.Errorf("read %s: %w", req.URL, err)
	}
	return data, false, nil
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
