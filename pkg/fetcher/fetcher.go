// Package fetcher orchestrates resilient fetches. Each request walks a
// chain of sources, primary API, search recovery, then raw document
// scraping, and every source gets its own identity lease and its own
// retry budget. A request fails only when the whole chain is exhausted.
package fetcher

import (
	"context"
	"fmt"
	"strings"

	errs "xscraper/pkg/errors"
	"xscraper/pkg/htmldoc"
	"xscraper/pkg/identity"
	"xscraper/pkg/logger"
	"xscraper/pkg/normalize"
	"xscraper/pkg/ratelimit"
	"xscraper/pkg/retry"
	"xscraper/pkg/twitter"
)

// Kind selects which fetch pipeline a request runs through.
type Kind string

const (
	KindSearch     Kind = "search"
	KindTimeline   Kind = "timeline"
	KindItemDetail Kind = "item_detail"
)

// Request describes one fetch.
type Request struct {
	Kind Kind
	// Target is the query text, the user handle or id, or the item id,
	// depending on Kind.
	Target string
	// Limit caps the number of records; zero means the default.
	Limit int
}

const (
	defaultLimit = 20
	// rawTextLimit bounds degraded whole-page text extraction.
	rawTextLimit = 4000
)

// source names one stage of the fallback chain.
type source string

const (
	sourcePrimary          source = "primary"
	sourceSearchRecovery   source = "search_recovery"
	sourceDocumentFallback source = "document_fallback"
)

// ExhaustedError reports that every source in the chain failed. It is a
// value describing the outcome, carrying the last underlying failure.
type ExhaustedError struct {
	Op      Kind
	Target  string
	LastErr error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s %q: all sources exhausted: %v", e.Op, e.Target, e.LastErr)
}

func (e *ExhaustedError) Unwrap() error {
	return e.LastErr
}

// Options tunes per-source retry behavior.
type Options struct {
	// MaxAttempts is the per-source retry budget.
	MaxAttempts int
	// Backoff overrides the exponential default.
	Backoff retry.BackoffStrategy
	// SearchTab selects the search ordering, TabLatest by default.
	SearchTab string
	// PageBaseURL overrides the public page host, used by tests.
	PageBaseURL string
}

// Fetcher runs requests through the source chain.
type Fetcher struct {
	client    twitter.Client
	transport twitter.Transport
	pool      *identity.Pool
	governor  *ratelimit.Governor
	opts      Options
	logger    logger.Logger
}

// New creates a Fetcher. client may be nil, in which case the
// structured sources are skipped and only document scraping runs.
func New(client twitter.Client, transport twitter.Transport, pool *identity.Pool, governor *ratelimit.Governor, opts Options, log logger.Logger) *Fetcher {
	if log == nil {
		log = logger.GetLogger()
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.Backoff == nil {
		opts.Backoff = retry.DefaultExponentialBackoff()
	}
	if opts.SearchTab == "" {
		opts.SearchTab = twitter.TabLatest
	}
	if opts.PageBaseURL == "" {
		opts.PageBaseURL = twitter.PageBaseURL
	}
	return &Fetcher{
		client:    client,
		transport: transport,
		pool:      pool,
		governor:  governor,
		opts:      opts,
		logger:    log,
	}
}

// Fetch runs one request through the chain. An empty record list with a
// nil error is a real outcome: the sources worked and found nothing.
// Only full chain exhaustion returns an error, always an
// *ExhaustedError wrapping the last underlying failure.
func (f *Fetcher) Fetch(ctx context.Context, req Request) ([]normalize.Record, error) {
	req.Target = strings.TrimSpace(req.Target)
	if req.Target == "" {
		return nil, errs.New(errs.ErrorTypeConfig, "fetch request requires a target", 0)
	}
	if req.Limit <= 0 {
		req.Limit = defaultLimit
	}

	chain, err := f.chain(req.Kind)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for i, src := range chain {
		records, err := f.runSource(ctx, src, req)
		if err == nil {
			f.logger.InfoWithFields("fetch completed", map[string]interface{}{
				"kind":    string(req.Kind),
				"target":  req.Target,
				"source":  string(src),
				"records": len(records),
			})
			return records, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		next := "none"
		if i+1 < len(chain) {
			next = string(chain[i+1])
		}
		logger.LogFallback(string(req.Kind), req.Target, string(src), next, err)
	}

	return nil, &ExhaustedError{Op: req.Kind, Target: req.Target, LastErr: lastErr}
}

// chain returns the ordered sources for a kind. Sources needing the
// structured client are dropped when none is configured.
func (f *Fetcher) chain(kind Kind) ([]source, error) {
	var chain []source
	switch kind {
	case KindSearch, KindTimeline:
		chain = []source{sourcePrimary, sourceDocumentFallback}
	case KindItemDetail:
		chain = []source{sourcePrimary, sourceSearchRecovery, sourceDocumentFallback}
	default:
		return nil, errs.New(errs.ErrorTypeConfig, fmt.Sprintf("unknown fetch kind %q", kind), 0)
	}

	if f.client == nil {
		filtered := chain[:0]
		for _, src := range chain {
			if src == sourceDocumentFallback {
				filtered = append(filtered, src)
			}
		}
		chain = filtered
	}
	return chain, nil
}

// runSource executes one chain stage under its own identity lease and
// retry budget. The lease spans all attempts of the stage and is
// released before the chain moves on.
func (f *Fetcher) runSource(ctx context.Context, src source, req Request) ([]normalize.Record, error) {
	lease, err := f.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer lease.Release()

	id := lease.Identity()
	logger.LogIdentityUse(id.Name, fmt.Sprintf("%s/%s", req.Kind, src))

	return retry.DoWithResult(func() ([]normalize.Record, error) {
		if err := f.governor.Wait(ctx); err != nil {
			return nil, err
		}
		id.Touch()
		records, err := f.dispatch(ctx, src, id, req)
		if err != nil {
			id.RecordFailure()
		}
		return records, err
	}, &retry.Config{
		Name:        fmt.Sprintf("%s/%s", req.Kind, src),
		MaxAttempts: f.opts.MaxAttempts,
		Backoff:     f.opts.Backoff,
		RetryIf:     errs.IsRetryableError,
		Context:     ctx,
		Logger:      f.logger,
	})
}

func (f *Fetcher) dispatch(ctx context.Context, src source, id *identity.Identity, req Request) ([]normalize.Record, error) {
	switch src {
	case sourcePrimary:
		return f.primary(ctx, id, req)
	case sourceSearchRecovery:
		return f.searchRecovery(ctx, id, req)
	case sourceDocumentFallback:
		return f.documentFallback(ctx, req)
	}
	return nil, errs.New(errs.ErrorTypeUnknown, fmt.Sprintf("unknown source %q", src), 0)
}

func (f *Fetcher) primary(ctx context.Context, id *identity.Identity, req Request) ([]normalize.Record, error) {
	switch req.Kind {
	case KindSearch:
		items, err := f.client.Search(ctx, id, req.Target, f.opts.SearchTab, req.Limit)
		if err != nil {
			return nil, err
		}
		return f.collect(items, normalize.ProvenancePrimary), nil

	case KindTimeline:
		userID, err := f.resolveUserID(ctx, id, req.Target)
		if err != nil {
			return nil, err
		}
		items, err := f.client.UserTimeline(ctx, id, userID, req.Limit)
		if err != nil {
			return nil, err
		}
		return f.collect(items, normalize.ProvenancePrimary), nil

	case KindItemDetail:
		item, err := f.client.ItemByID(ctx, id, req.Target)
		if err != nil {
			return nil, err
		}
		return f.collect([]twitter.Item{*item}, normalize.ProvenancePrimary), nil
	}
	return nil, errs.New(errs.ErrorTypeUnknown, fmt.Sprintf("unknown kind %q", req.Kind), 0)
}

// searchRecovery locates a single item by searching for its
// conversation. Only the item-detail pipeline uses it.
func (f *Fetcher) searchRecovery(ctx context.Context, id *identity.Identity, req Request) ([]normalize.Record, error) {
	query := "conversation_id:" + req.Target
	items, err := f.client.Search(ctx, id, query, f.opts.SearchTab, req.Limit)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if items[i].ID == req.Target {
			rec, err := normalize.FromItem(items[i], normalize.ProvenanceSearchRecovery)
			if err != nil {
				return nil, err
			}
			return []normalize.Record{rec}, nil
		}
	}
	return nil, errs.New(errs.ErrorTypeNotFound,
		fmt.Sprintf("item %q absent from conversation search", req.Target), 0)
}

func (f *Fetcher) documentFallback(ctx context.Context, req Request) ([]normalize.Record, error) {
	var pageURL string
	switch req.Kind {
	case KindSearch:
		pageURL = twitter.SearchPageURL(f.opts.PageBaseURL, req.Target)
	case KindTimeline:
		pageURL = twitter.ProfilePageURL(f.opts.PageBaseURL, req.Target)
	case KindItemDetail:
		pageURL = twitter.StatusPageURL(f.opts.PageBaseURL, req.Target)
	}

	resp, err := f.transport.Get(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errs.FromStatusCode(resp.StatusCode,
			fmt.Sprintf("document fetch returned status %d", resp.StatusCode))
	}

	doc, err := htmldoc.Parse(resp.Body)
	if err != nil {
		return nil, err
	}

	if req.Kind == KindItemDetail {
		status := doc.ExtractStatus()
		rec, err := normalize.FromStatus(req.Target, status)
		if err == nil {
			return []normalize.Record{rec}, nil
		}
		return f.rawRecord(doc, req.Target)
	}

	articles := doc.Articles(req.Limit)
	if len(articles) == 0 {
		return f.rawRecord(doc, "")
	}
	records := make([]normalize.Record, 0, len(articles))
	for _, article := range articles {
		rec, err := normalize.FromArticle(article)
		if err != nil {
			f.logger.WarnWithFields("dropping unnormalizable article", map[string]interface{}{
				"status_id": article.StatusID,
				"error":     err.Error(),
			})
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// rawRecord degrades to a single record holding bounded page text when
// no per-post structure was recognized.
func (f *Fetcher) rawRecord(doc *htmldoc.Document, id string) ([]normalize.Record, error) {
	rec, err := normalize.RawDocument(id, doc.PlainText(rawTextLimit))
	if err != nil {
		return nil, err
	}
	return []normalize.Record{rec}, nil
}

// collect normalizes structured items, dropping the rare record that
// cannot be canonicalized instead of failing the batch.
func (f *Fetcher) collect(items []twitter.Item, provenance string) []normalize.Record {
	records := make([]normalize.Record, 0, len(items))
	for i := range items {
		rec, err := normalize.FromItem(items[i], provenance)
		if err != nil {
			f.logger.WarnWithFields("dropping unnormalizable item", map[string]interface{}{
				"item_id": items[i].ID,
				"error":   err.Error(),
			})
			continue
		}
		records = append(records, rec)
	}
	return records
}

// resolveUserID maps a timeline target to a numeric user id: numeric
// targets pass through, handles go through user lookup, and as a last
// resort the public profile page is scanned for the embedded id.
func (f *Fetcher) resolveUserID(ctx context.Context, id *identity.Identity, target string) (string, error) {
	target = strings.TrimPrefix(target, "@")
	if isDigits(target) {
		return target, nil
	}

	profile, err := f.client.ResolveUser(ctx, id, target)
	if err == nil {
		return profile.ID, nil
	}
	f.logger.DebugWithFields("user lookup failed, scanning profile page", map[string]interface{}{
		"handle": target,
		"error":  err.Error(),
	})

	if f.transport != nil {
		if err := f.governor.Wait(ctx); err != nil {
			return "", err
		}
		resp, terr := f.transport.Get(ctx, twitter.ProfilePageURL(f.opts.PageBaseURL, target))
		if terr == nil && resp.StatusCode >= 200 && resp.StatusCode < 300 {
			if doc, perr := htmldoc.Parse(resp.Body); perr == nil {
				if userID := doc.EmbeddedProfileID(); userID != "" {
					return userID, nil
				}
			}
		}
	}
	return "", errs.New(errs.ErrorTypeNotFound, fmt.Sprintf("cannot resolve user %q", target), 0)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
