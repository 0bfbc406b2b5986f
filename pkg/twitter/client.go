package twitter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	errs "xscraper/pkg/errors"
	"xscraper/pkg/identity"
	"xscraper/pkg/logger"
)

// Client is the structured platform client. Every call authenticates as
// the given identity. Implementations return typed errors from
// xscraper/pkg/errors so callers can classify failures.
type Client interface {
	Search(ctx context.Context, as *identity.Identity, query, tab string, count int) ([]Item, error)
	ResolveUser(ctx context.Context, as *identity.Identity, handle string) (*UserProfile, error)
	UserTimeline(ctx context.Context, as *identity.Identity, userID string, count int) ([]Item, error)
	ItemByID(ctx context.Context, as *identity.Identity, id string) (*Item, error)
}

// APIClient implements Client over the platform's REST endpoints using
// cookie authentication from the acting identity.
type APIClient struct {
	baseURL string
	timeout time.Duration
	logger  logger.Logger

	mu      sync.Mutex
	clients map[string]*http.Client // keyed by proxy URL, "" for direct
}

// NewAPIClient creates a structured client with the given per-request
// timeout.
func NewAPIClient(timeout time.Duration, log logger.Logger) *APIClient {
	if log == nil {
		log = logger.GetLogger()
	}
	return &APIClient{
		baseURL: APIBaseURL,
		timeout: timeout,
		logger:  log,
		clients: make(map[string]*http.Client),
	}
}

// SetBaseURL overrides the API base URL, used by tests.
func (c *APIClient) SetBaseURL(base string) {
	c.baseURL = base
}

// Search runs a structured search on the given tab.
func (c *APIClient) Search(ctx context.Context, as *identity.Identity, query, tab string, count int) ([]Item, error) {
	var resp searchResponseJSON
	endpoint := SearchEndpoint(c.baseURL, query, tab, count)
	if err := c.getJSON(ctx, as, endpoint, &resp); err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(resp.Statuses))
	for i := range resp.Statuses {
		items = append(items, resp.Statuses[i].toItem())
	}
	return items, nil
}

// ResolveUser maps a handle to its platform-internal profile. A missing
// user yields a not_found error, not a nil result.
func (c *APIClient) ResolveUser(ctx context.Context, as *identity.Identity, handle string) (*UserProfile, error) {
	var user userJSON
	if err := c.getJSON(ctx, as, UserShowEndpoint(c.baseURL, handle), &user); err != nil {
		return nil, err
	}
	if user.IDStr == "" {
		return nil, errs.New(errs.ErrorTypeNotFound, fmt.Sprintf("user %q not resolvable", handle), 0)
	}
	return user.toProfile(), nil
}

// UserTimeline fetches recent posts for a numeric user id.
func (c *APIClient) UserTimeline(ctx context.Context, as *identity.Identity, userID string, count int) ([]Item, error) {
	var tweets []tweetJSON
	if err := c.getJSON(ctx, as, UserTimelineEndpoint(c.baseURL, userID, count), &tweets); err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(tweets))
	for i := range tweets {
		items = append(items, tweets[i].toItem())
	}
	return items, nil
}

// ItemByID looks up a single post.
func (c *APIClient) ItemByID(ctx context.Context, as *identity.Identity, id string) (*Item, error) {
	var tweet tweetJSON
	if err := c.getJSON(ctx, as, StatusShowEndpoint(c.baseURL, id), &tweet); err != nil {
		return nil, err
	}
	if tweet.IDStr == "" {
		return nil, errs.New(errs.ErrorTypeNotFound, fmt.Sprintf("item %q not found", id), 0)
	}
	item := tweet.toItem()
	return &item, nil
}

func (c *APIClient) getJSON(ctx context.Context, as *identity.Identity, endpoint string, target interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return errs.New(errs.ErrorTypeUnknown, fmt.Sprintf("building request: %v", err), 0)
	}
	req.Header.Set("Accept", "application/json")
	if as != nil {
		req.Header.Set("Cookie", fmt.Sprintf("auth_token=%s; ct0=%s", as.AuthToken, as.CSRFToken))
		req.Header.Set("x-csrf-token", as.CSRFToken)
	}

	start := time.Now()
	c.logger.DebugWithFields("sending API request", map[string]interface{}{
		"url":      endpoint,
		"identity": identityName(as),
	})

	httpClient, err := c.clientFor(as)
	if err != nil {
		return err
	}
	resp, err := httpClient.Do(req)
	duration := time.Since(start)
	if err != nil {
		c.logger.ErrorWithFields("API request failed", map[string]interface{}{
			"url":      endpoint,
			"error":    err.Error(),
			"duration": duration,
		})
		return errs.New(errs.ErrorTypeNetwork, fmt.Sprintf("network error: %v", err), 0)
	}
	defer resp.Body.Close()

	c.logger.DebugWithFields("API request completed", map[string]interface{}{
		"url":      endpoint,
		"status":   resp.StatusCode,
		"duration": duration,
	})

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errs.FromStatusCode(resp.StatusCode, fmt.Sprintf("unexpected status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return errs.New(errs.ErrorTypeNetwork, fmt.Sprintf("reading response: %v", err), 0)
	}
	if err := json.Unmarshal(body, target); err != nil {
		return errs.New(errs.ErrorTypeParsing, fmt.Sprintf("decoding response: %v", err), 0)
	}
	return nil
}

// clientFor returns an http.Client routed through the identity's egress
// proxy when one is configured. Clients are cached per proxy so
// connection pools are reused.
func (c *APIClient) clientFor(as *identity.Identity) (*http.Client, error) {
	proxy := ""
	if as != nil {
		proxy = as.Proxy
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if client, ok := c.clients[proxy]; ok {
		return client, nil
	}

	client := &http.Client{Timeout: c.timeout}
	if proxy != "" {
		proxyURL, err := url.Parse(proxy)
		if err != nil {
			return nil, errs.New(errs.ErrorTypeConfig, fmt.Sprintf("invalid proxy %q: %v", proxy, err), 0)
		}
		client.Transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
	}
	c.clients[proxy] = client
	return client, nil
}

func identityName(as *identity.Identity) string {
	if as == nil {
		return ""
	}
	return as.Name
}
