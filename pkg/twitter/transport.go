package twitter

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	errs "xscraper/pkg/errors"
	"xscraper/pkg/logger"
)

// maxPageBytes bounds how much of a fallback page is read.
const maxPageBytes = 2 << 20

// Transport fetches raw documents for the fallback path. Unlike the
// structured client it reports non-success statuses in the response
// rather than as errors; the caller decides what a 404 means.
type Transport interface {
	Get(ctx context.Context, url string) (*Response, error)
}

// Response is a raw transport result.
type Response struct {
	StatusCode int
	Body       []byte
}

// PageTransport implements Transport with a browser-like header set and
// a user agent drawn at random from a rotation list on every request.
type PageTransport struct {
	httpClient *http.Client
	userAgents []string
	logger     logger.Logger
}

// NewPageTransport creates a raw transport. Redirects are followed.
func NewPageTransport(timeout time.Duration, userAgents []string, log logger.Logger) *PageTransport {
	if log == nil {
		log = logger.GetLogger()
	}
	return &PageTransport{
		httpClient: &http.Client{Timeout: timeout},
		userAgents: userAgents,
		logger:     log,
	}
}

// Get fetches a document.
func (t *PageTransport) Get(ctx context.Context, url string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errs.New(errs.ErrorTypeUnknown, fmt.Sprintf("building request: %v", err), 0)
	}
	req.Header.Set("User-Agent", t.userAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	start := time.Now()
	resp, err := t.httpClient.Do(req)
	duration := time.Since(start)
	if err != nil {
		t.logger.ErrorWithFields("page fetch failed", map[string]interface{}{
			"url":      url,
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, errs.New(errs.ErrorTypeNetwork, fmt.Sprintf("network error: %v", err), 0)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, errs.New(errs.ErrorTypeNetwork, fmt.Sprintf("reading page body: %v", err), 0)
	}

	t.logger.DebugWithFields("page fetched", map[string]interface{}{
		"url":      url,
		"status":   resp.StatusCode,
		"bytes":    len(body),
		"duration": duration,
	})

	return &Response{StatusCode: resp.StatusCode, Body: body}, nil
}

func (t *PageTransport) userAgent() string {
	if len(t.userAgents) == 0 {
		return "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/118 Safari/537.36"
	}
	return t.userAgents[rand.Intn(len(t.userAgents))]
}
