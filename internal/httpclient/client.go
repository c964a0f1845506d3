// Package httpclient builds the outbound HTTP client used to fetch remote entries.
package httpclient

import (
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const DefaultTimeout = 10 * time.Second

type options struct {
	verbose bool
	logger  *zap.Logger
	token   string
	timeout time.Duration
	base    http.RoundTripper
}

type Option func(*options)

// WithVerbose logs one line per request and response at debug level.
func WithVerbose(enabled bool, logger *zap.Logger) Option {
	return func(o *options) {
		o.verbose = enabled
		o.logger = logger
	}
}

// WithToken attaches a bearer token to every request.
func WithToken(token string) Option {
	return func(o *options) {
		o.token = token
	}
}

// WithTimeout bounds every request, including reading the body.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithTransport replaces the underlying transport (tests).
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) {
		o.base = rt
	}
}

// loggingRoundTripper wraps an underlying transport and emits one entry per
// request and response, including latency.
type loggingRoundTripper struct {
	base   http.RoundTripper
	logger *zap.Logger
}

func (t *loggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	t.logger.Debug("http request", zap.String("method", req.Method), zap.String("url", req.URL.String()))
	resp, err := t.base.RoundTrip(req)
	dur := time.Since(start).Truncate(time.Millisecond)
	if err != nil {
		t.logger.Debug("http error", zap.String("url", req.URL.String()), zap.Duration("after", dur), zap.Error(err))
	} else {
		t.logger.Debug("http response", zap.String("url", req.URL.String()), zap.Int("status", resp.StatusCode), zap.Duration("took", dur))
	}
	return resp, err
}

// New returns an http.Client. It never returns nil so callers can always
// issue requests, with or without a token.
func New(opts ...Option) *http.Client {
	o := &options{timeout: DefaultTimeout}
	for _, apply := range opts {
		if apply != nil {
			apply(o)
		}
	}

	transport := o.base
	if transport == nil {
		transport = http.DefaultTransport
	}
	if o.verbose {
		logger := o.logger
		if logger == nil {
			logger = zap.NewNop()
		}
		transport = &loggingRoundTripper{base: transport, logger: logger.Named("http")}
	}
	if o.token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: o.token})
		transport = &oauth2.Transport{Source: ts, Base: transport}
	}

	return &http.Client{Transport: transport, Timeout: o.timeout}
}
