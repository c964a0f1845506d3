package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"fedhost/internal/data"
	gh "fedhost/internal/github"
	"fedhost/internal/metrics"

	"go.uber.org/zap"
)

// MaxEntrySize bounds the size of a remote entry document.
const MaxEntrySize = 2 << 20

// Document is a fetched remote entry manifest.
type Document struct {
	Remote    string
	URL       string
	Source    string
	FetchedAt time.Time
}

// Fetcher retrieves remote entry manifests. Concurrent fetches of the same
// entry share one in-flight request and successful results are cached for the
// lifetime of the Fetcher.
type Fetcher struct {
	http    *http.Client
	github  *gh.Client
	budget  *RequestBudget
	group   Group
	cache   *Cache
	logger  *zap.Logger
	metrics *metrics.Collector
	now     func() time.Time
}

type Option func(*Fetcher)

// WithGitHub enables github:// entries.
func WithGitHub(c *gh.Client) Option {
	return func(f *Fetcher) { f.github = c }
}

func WithLogger(l *zap.Logger) Option {
	return func(f *Fetcher) {
		if l != nil {
			f.logger = l
		}
	}
}

func WithMetrics(m *metrics.Collector) Option {
	return func(f *Fetcher) { f.metrics = m }
}

func NewFetcher(client *http.Client, budget *RequestBudget, opts ...Option) *Fetcher {
	f := &Fetcher{
		http:   client,
		budget: budget,
		cache:  NewCache(),
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, apply := range opts {
		if apply != nil {
			apply(f)
		}
	}
	f.logger = f.logger.Named("fetcher")
	return f
}

// Reset drops every cached entry document. Fetches already in flight still
// deliver their result to the callers waiting on them.
func (f *Fetcher) Reset() {
	if f == nil || f.cache == nil {
		return
	}
	f.cache.Clear()
}

func (f *Fetcher) Budget() *RequestBudget {
	return f.budget
}

func (f *Fetcher) HTTPClient() *http.Client {
	return f.http
}

// GitHub returns the GitHub client, or nil when github:// entries are disabled.
func (f *Fetcher) GitHub() *gh.Client {
	return f.github
}

// Fetch returns the entry document for a remote. Failures to reach the entry
// are reported as *data.NetworkError.
func (f *Fetcher) Fetch(ctx context.Context, entry data.RemoteEntry) (*Document, error) {
	if ctx == nil {
		return nil, fmt.Errorf("Fetch: nil context")
	}
	if f == nil {
		return nil, fmt.Errorf("Fetch: nil Fetcher")
	}
	if f.http == nil {
		return nil, fmt.Errorf("Fetch: nil HTTP client (use NewFetcher)")
	}
	if f.budget == nil {
		return nil, fmt.Errorf("Fetch: nil request budget (use NewFetcher)")
	}
	if f.cache == nil {
		return nil, fmt.Errorf("Fetch: nil cache (use NewFetcher)")
	}
	if entry.Name == "" {
		return nil, fmt.Errorf("Fetch: empty remote name")
	}

	u, err := url.Parse(entry.EntryURL)
	if err != nil {
		return nil, fmt.Errorf("Fetch: invalid entry url for remote %q: %w", entry.Name, err)
	}
	src, ok := ResolveEntrySource(u.Scheme)
	if !ok {
		return nil, fmt.Errorf("unsupported entry url scheme %q for remote %q", u.Scheme, entry.Name)
	}

	flightKey := entry.Name + "@" + entry.EntryURL
	if doc, ok := f.cache.Get(flightKey); ok {
		return doc, nil
	}

	// Single-flight (dedupe concurrent identical requests)
	val, err, shared := f.group.Do(flightKey, func() (interface{}, error) {
		return f.doFetch(ctx, entry, u, src)
	})
	if err != nil {
		return nil, err
	}
	doc := val.(*Document)
	if shared {
		f.logger.Debug("joined in-flight entry fetch", zap.String("remote", entry.Name))
	}
	f.cache.Set(flightKey, doc)
	return doc, nil
}

func (f *Fetcher) doFetch(ctx context.Context, entry data.RemoteEntry, u *url.URL, src EntrySource) (*Document, error) {
	start := f.now()
	body, err := src.Fetch(ctx, u, f)
	elapsed := f.now().Sub(start)
	f.metrics.EntryFetched(entry.Name, err, elapsed)

	if err != nil {
		netErr := &data.NetworkError{Remote: entry.Name, URL: entry.EntryURL, Err: err}
		var sc statusCoder
		if errors.As(err, &sc) {
			netErr.StatusCode = sc.HTTPStatus()
		}
		f.logger.Warn("entry fetch failed", zap.String("remote", entry.Name), zap.Duration("took", elapsed), zap.Error(err))
		return nil, netErr
	}

	f.logger.Debug("entry fetched", zap.String("remote", entry.Name), zap.Int("bytes", len(body)), zap.Duration("took", elapsed))
	return &Document{
		Remote:    entry.Name,
		URL:       entry.EntryURL,
		Source:    string(body),
		FetchedAt: start,
	}, nil
}

type statusCoder interface {
	HTTPStatus() int
}

// StatusError reports a non-success HTTP status from an entry server.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

func (e *StatusError) HTTPStatus() int { return e.StatusCode }

// ReadEntry reads an entry body, enforcing MaxEntrySize.
func ReadEntry(r io.Reader) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r, MaxEntrySize+1))
	if err != nil {
		return nil, err
	}
	if len(body) > MaxEntrySize {
		return nil, fmt.Errorf("entry exceeds maximum size of %d bytes", MaxEntrySize)
	}
	return body, nil
}
