// Package engine assembles a host from configuration: outbound client,
// fetcher, shared registry, loader and metrics. It also runs one-shot renders.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"fedhost/internal/compose"
	"fedhost/internal/config"
	"fedhost/internal/data"
	"fedhost/internal/fetcher"
	gh "fedhost/internal/github"
	"fedhost/internal/httpclient"
	"fedhost/internal/loader"
	"fedhost/internal/metrics"
	"fedhost/internal/output"
	"fedhost/internal/shared"

	"go.uber.org/zap"
)

// Exit codes for Render:
// 0 = every region resolved
// 2 = at least one region failed
// 3 = fatal error (nothing rendered)
const (
	ExitOK           = output.ExitOK
	ExitRegionFailed = output.ExitRegionFailed
	ExitFatal        = 3
)

func exitCodeForRun(fatal bool, failed int) int {
	if fatal {
		return ExitFatal
	}
	if failed > 0 {
		return ExitRegionFailed
	}
	return ExitOK
}

type Option func(*Engine)

func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithMetrics replaces the collector built by New.
func WithMetrics(m *metrics.Collector) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithStdout redirects --emit streams and the console sink (tests).
func WithStdout(w io.Writer) Option {
	return func(e *Engine) {
		if w != nil {
			e.stdout = w
		}
	}
}

type Engine struct {
	cfg      *config.Config
	logger   *zap.Logger
	metrics  *metrics.Collector
	stdout   io.Writer
	fetcher  *fetcher.Fetcher
	registry *shared.Registry
	loader   *loader.Loader
}

// New validates cfg and builds every host component. The caller owns the
// returned engine and must Close it.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Engine, error) {
	if cfg == nil {
		return nil, errors.New("engine: nil config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{cfg: cfg, logger: zap.NewNop(), stdout: os.Stdout}
	e.metrics = metrics.NewCollector("")
	for _, apply := range opts {
		if apply != nil {
			apply(e)
		}
	}

	httpOpts := []httpclient.Option{
		httpclient.WithTimeout(cfg.Fetch.Timeout),
		httpclient.WithVerbose(cfg.Runtime.Verbose, e.logger),
	}
	if cfg.Fetch.TokenEnv != "" {
		if tok := strings.TrimSpace(os.Getenv(cfg.Fetch.TokenEnv)); tok != "" {
			httpOpts = append(httpOpts, httpclient.WithToken(tok))
		}
	}

	fetchOpts := []fetcher.Option{fetcher.WithLogger(e.logger), fetcher.WithMetrics(e.metrics)}
	if usesScheme(cfg, "github") {
		client, err := e.githubClient(ctx)
		if err != nil {
			return nil, err
		}
		fetchOpts = append(fetchOpts, fetcher.WithGitHub(client))
	}
	e.fetcher = fetcher.NewFetcher(
		httpclient.New(httpOpts...),
		fetcher.NewRequestBudget(cfg.Fetch.Rate, cfg.Fetch.Burst),
		fetchOpts...,
	)

	reg, err := shared.NewHostRegistry(cfg.Shared, shared.WithLogger(e.logger), shared.WithMetrics(e.metrics))
	if err != nil {
		return nil, fmt.Errorf("shared registry: %w", err)
	}
	e.registry = reg

	ld, err := loader.New(cfg.RemoteEntries(), e.fetcher, reg,
		loader.WithLogger(e.logger),
		loader.WithMetrics(e.metrics),
		loader.WithScriptTimeout(cfg.Fetch.ScriptTimeout),
	)
	if err != nil {
		return nil, err
	}
	e.loader = ld
	return e, nil
}

func (e *Engine) githubClient(ctx context.Context) (*gh.Client, error) {
	token, source, err := gh.ResolveToken(ctx, gh.TokenQuery{EnvVar: e.cfg.Fetch.TokenEnv})
	if err != nil {
		return nil, fmt.Errorf("resolve github token: %w", err)
	}
	if token == "" {
		e.logger.Info("no github token found; reading github:// entries anonymously")
	} else {
		e.logger.Debug("github token resolved", zap.String("source", string(source)))
	}
	return gh.NewClient(ctx, token, e.cfg.Fetch.GitHubAPI,
		httpclient.WithTimeout(e.cfg.Fetch.Timeout),
		httpclient.WithVerbose(e.cfg.Runtime.Verbose, e.logger))
}

func usesScheme(cfg *config.Config, scheme string) bool {
	for _, raw := range cfg.Remotes {
		if u, err := url.Parse(raw); err == nil && u.Scheme == scheme {
			return true
		}
	}
	return false
}

func (e *Engine) Config() *config.Config      { return e.cfg }
func (e *Engine) Loader() *loader.Loader      { return e.loader }
func (e *Engine) Metrics() *metrics.Collector { return e.metrics }
func (e *Engine) Logger() *zap.Logger         { return e.logger }

// Registry exposes the host's shared dependencies.
func (e *Engine) Registry() *shared.Registry { return e.registry }

// Close stops the loader; in-flight fetches are cancelled.
func (e *Engine) Close() error {
	if e == nil || e.loader == nil {
		return nil
	}
	return e.loader.Close()
}

// Regions turns the configured layout into composition regions. Event
// actions become func() props that record into rec; rec may be nil.
func (e *Engine) Regions(rec *Recorder) []compose.Region {
	out := make([]compose.Region, 0, len(e.cfg.Layout))
	for _, r := range e.cfg.Layout {
		props := make(data.Props, len(r.Props)+len(r.Events))
		for k, v := range r.Props {
			props[k] = v
		}
		for prop, action := range r.Events {
			props[prop] = e.handler(rec, r.Region, prop, action)
		}
		out = append(out, compose.Region{ID: r.Region, Ref: r.Ref(), Props: props, Class: r.Class})
	}
	return out
}

func (e *Engine) handler(rec *Recorder, region, prop string, action config.EventAction) func() {
	return func() {
		e.logger.Info(action.Log, zap.String("region", region), zap.String("handler", prop))
		rec.Record(action.Log)
	}
}

// ErrUnknownRegion is returned by NewRoot for a region not in the layout.
var ErrUnknownRegion = errors.New("unknown region")

// NewRoot builds the composition root for the configured layout, or for the
// named regions only.
func (e *Engine) NewRoot(rec *Recorder, only ...string) (*compose.Root, error) {
	regions := e.Regions(rec)
	if len(only) > 0 {
		byID := make(map[string]compose.Region, len(regions))
		for _, r := range regions {
			byID[r.ID] = r
		}
		regions = regions[:0]
		for _, id := range only {
			r, ok := byID[id]
			if !ok {
				return nil, fmt.Errorf("%w: %q", ErrUnknownRegion, id)
			}
			regions = append(regions, r)
		}
	}
	return compose.NewRoot(e.loader.Resolver(), regions,
		compose.WithLogger(e.logger),
		compose.WithMetrics(e.metrics),
		compose.WithVerboseErrors(e.VerboseErrors()),
	)
}

// VerboseErrors reports whether failures are shown unscrubbed.
func (e *Engine) VerboseErrors() bool {
	return e.cfg.Server.VerboseErrors || e.cfg.Runtime.Verbose
}

func (e *Engine) setupOutputManager() (*output.Manager, error) {
	cfg := e.cfg
	outMgr := output.NewManager()

	// Console Sink
	if !cfg.Output.NoConsole {
		if err := outMgr.AddSink(output.NewConsoleSink(e.stdout, cfg.Output.ConsoleFormat, cfg.Output.ConsoleFilterStatus...)); err != nil {
			outMgr.Close()
			return nil, err
		}
	}

	// Emit Sinks (additional structured streams)
	for _, emit := range cfg.Output.Emit {
		es, err := output.NewEmitSink(e.stdout, strings.ToLower(strings.TrimSpace(emit)))
		if err != nil {
			outMgr.Close()
			return nil, err
		}
		if err := outMgr.AddSink(es); err != nil {
			outMgr.Close()
			return nil, err
		}
	}

	// File Sink
	if cfg.Output.Out != "" {
		fs, err := output.NewFileSink(cfg.Output.Out, cfg.Output.OutFormat)
		if err != nil {
			outMgr.Close()
			return nil, err
		}
		if err := outMgr.AddSink(fs); err != nil {
			outMgr.Close()
			return nil, err
		}
	}

	return outMgr, nil
}

// Render composes the configured layout once, reporting lifecycle events to
// the configured sinks, and returns the exit code.
func (e *Engine) Render(ctx context.Context) int {
	outMgr, err := e.setupOutputManager()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output sinks: %v\n", err)
		return exitCodeForRun(true, 0)
	}
	defer outMgr.Close()

	rec := &Recorder{}
	root, err := e.NewRoot(rec)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitCodeForRun(true, 0)
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.Runtime.Timeout)
	defer cancel()

	v := root.Mount(ctx)
	defer v.Unmount()

	failed, err := output.Follow(ctx, outMgr, v, root.Regions(), e.VerboseErrors())
	if err != nil {
		e.logger.Error("render did not complete", zap.Error(err))
		code := exitCodeForRun(true, failed)
		_ = outMgr.Write(output.FinishedEvent(v, len(root.Regions()), failed, code))
		return code
	}

	if e.cfg.Output.HTML != "" {
		if err := e.writeHTML(ctx, v); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing html: %v\n", err)
			return exitCodeForRun(true, failed)
		}
	}
	return exitCodeForRun(false, failed)
}

func (e *Engine) writeHTML(ctx context.Context, v *compose.View) error {
	f, err := os.Create(e.cfg.Output.HTML)
	if err != nil {
		return err
	}
	if err := compose.WriteDocument(ctx, f, e.cfg.Name, v); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
