package dataset

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// maxDocumentSize caps a single fetched document.
const maxDocumentSize = 64 << 20

// HTTPSource fetches documents from a static web root, the same layout the
// browser build served under /data.
type HTTPSource struct {
	baseURL  string
	client   *http.Client
	limiter  *rate.Limiter
	backoffs []time.Duration
}

// NewHTTPSource creates a source for baseURL (e.g. "http://localhost:3000/data").
// Requests are limited to one every 250ms.
func NewHTTPSource(baseURL string) *HTTPSource {
	return &HTTPSource{
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: 30 * time.Second},
		limiter:  rate.NewLimiter(rate.Every(250*time.Millisecond), 1),
		backoffs: []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second},
	}
}

// SetRateLimit replaces the request limiter. Zero or negative means unlimited.
func (s *HTTPSource) SetRateLimit(perSecond float64) {
	if perSecond <= 0 {
		s.limiter = rate.NewLimiter(rate.Inf, 1)
		return
	}
	s.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
}

// BaseURL returns the web root documents are fetched from.
func (s *HTTPSource) BaseURL() string {
	return s.baseURL
}

// Index fetches <base>/index.json.
func (s *HTTPSource) Index(ctx context.Context) (Index, error) {
	body, err := s.get(ctx, "index.json")
	if err != nil {
		return nil, err
	}
	return DecodeIndex(body)
}

// Load fetches <base>/<type>/<name>.json.
func (s *HTTPSource) Load(ctx context.Context, dataType, name string) (*Graph, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	body, err := s.get(ctx, documentPath(url.PathEscape(dataType), url.PathEscape(name)))
	if err != nil {
		return nil, err
	}
	return Decode(body)
}

// get fetches one document, retrying up to 3 times on 429 or 5xx with
// exponential backoff. Retry-After is honoured on 429.
func (s *HTTPSource) get(ctx context.Context, rel string) ([]byte, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	endpoint := s.baseURL + "/" + rel
	maxRetries := len(s.backoffs)

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := s.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("request cancelled: %w", ctx.Err())
			}
			lastErr = fmt.Errorf("request failed: %w", err)
			if err := s.wait(ctx, attempt, 0); err != nil {
				return nil, err
			}
			continue
		}

		body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
		resp.Body.Close()
		if readErr != nil {
			lastErr = fmt.Errorf("read response: %w", readErr)
			if err := s.wait(ctx, attempt, 0); err != nil {
				return nil, err
			}
			continue
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			return body, nil
		case resp.StatusCode == http.StatusNotFound:
			return nil, fmt.Errorf("%s: %w", rel, ErrNotFound)
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			lastErr = fmt.Errorf("fetch %s (status %d)", rel, resp.StatusCode)
			var retryAfter time.Duration
			if resp.StatusCode == http.StatusTooManyRequests {
				retryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
			}
			if err := s.wait(ctx, attempt, retryAfter); err != nil {
				return nil, err
			}
			continue
		default:
			return nil, fmt.Errorf("fetch %s (status %d)", rel, resp.StatusCode)
		}
	}

	return nil, fmt.Errorf("fetch %s failed after %d retries: %w", rel, maxRetries, lastErr)
}

// wait sleeps before the next attempt. No-op after the last attempt.
func (s *HTTPSource) wait(ctx context.Context, attempt int, override time.Duration) error {
	if attempt >= len(s.backoffs) {
		return nil
	}
	delay := s.backoffs[attempt]
	if override > 0 {
		delay = override
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}

func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	seconds, err := strconv.Atoi(v)
	if err != nil || seconds <= 0 {
		return 0
	}
	d := time.Duration(seconds) * time.Second
	if d > 30*time.Second {
		d = 30 * time.Second
	}
	return d
}
