// Package loader resolves component references against configured remotes.
// Each reference gets one LoadState for the lifetime of the Loader; entry
// fetches and container evaluation are shared by every reference to the
// same remote.
package loader

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"fedhost/internal/container"
	"fedhost/internal/data"
	"fedhost/internal/fetcher"
	"fedhost/internal/metrics"
	"fedhost/internal/shared"
	"fedhost/internal/ui"

	"go.uber.org/zap"
)

type Loader struct {
	remotes map[string]data.RemoteEntry
	fetcher *fetcher.Fetcher
	shared  *shared.Registry

	logger        *zap.Logger
	metrics       *metrics.Collector
	scriptTimeout time.Duration
	now           func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	group      fetcher.Group
	mu         sync.Mutex
	closed     bool
	states     map[data.ComponentRef]*LoadState
	containers map[string]*container.Container
}

type Option func(*Loader)

func WithLogger(l *zap.Logger) Option {
	return func(ld *Loader) {
		if l != nil {
			ld.logger = l
		}
	}
}

func WithMetrics(m *metrics.Collector) Option {
	return func(ld *Loader) { ld.metrics = m }
}

// WithScriptTimeout bounds each call into a remote's script.
func WithScriptTimeout(d time.Duration) Option {
	return func(ld *Loader) {
		if d > 0 {
			ld.scriptTimeout = d
		}
	}
}

// New builds a loader for the given remotes. Remote names must be unique.
func New(remotes []data.RemoteEntry, f *fetcher.Fetcher, reg *shared.Registry, opts ...Option) (*Loader, error) {
	if f == nil {
		return nil, errors.New("loader: nil fetcher")
	}
	if reg == nil {
		reg = shared.NewRegistry()
	}

	byName := make(map[string]data.RemoteEntry, len(remotes))
	for _, r := range remotes {
		if r.Name == "" {
			return nil, errors.New("loader: remote with empty name")
		}
		if r.EntryURL == "" {
			return nil, fmt.Errorf("loader: remote %s has no entry url", r.Name)
		}
		if _, dup := byName[r.Name]; dup {
			return nil, fmt.Errorf("loader: duplicate remote %s", r.Name)
		}
		byName[r.Name] = r
	}

	ctx, cancel := context.WithCancel(context.Background())
	l := &Loader{
		remotes:       byName,
		fetcher:       f,
		shared:        reg,
		logger:        zap.NewNop(),
		scriptTimeout: container.DefaultTimeout,
		now:           time.Now,
		ctx:           ctx,
		cancel:        cancel,
		states:        make(map[data.ComponentRef]*LoadState),
		containers:    make(map[string]*container.Container),
	}
	for _, apply := range opts {
		if apply != nil {
			apply(l)
		}
	}
	l.logger = l.logger.Named("loader")
	return l, nil
}

// Remotes lists configured remotes sorted by name.
func (l *Loader) Remotes() []data.RemoteEntry {
	out := make([]data.RemoteEntry, 0, len(l.remotes))
	for _, r := range l.remotes {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (l *Loader) Remote(name string) (data.RemoteEntry, bool) {
	r, ok := l.remotes[name]
	return r, ok
}

// Begin returns the load state for ref, starting the load if this is the
// first reference. It never blocks. Unknown remotes fail immediately without
// any network activity.
func (l *Loader) Begin(ref data.ComponentRef) *LoadState {
	l.mu.Lock()
	defer l.mu.Unlock()

	if st, ok := l.states[ref]; ok {
		l.metrics.CacheHit(ref.Remote)
		return st
	}

	st := newLoadState(ref, l.now())
	if l.closed {
		st.settle(nil, data.ErrLoaderClosed)
		return st
	}
	l.states[ref] = st

	entry, ok := l.remotes[ref.Remote]
	if !ok {
		l.finish(st, nil, &data.UnknownRemoteError{Remote: ref.Remote})
		return st
	}

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		comp, err := l.resolve(entry, ref.Export)
		l.finish(st, comp, err)
	}()
	return st
}

// Load waits for ref to resolve. A ctx deadline abandons the wait but not the
// load; a later call observes its result.
func (l *Loader) Load(ctx context.Context, ref data.ComponentRef) (ui.Component, error) {
	st := l.Begin(ref)
	select {
	case <-st.Done():
		return st.Result()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Container returns the evaluated and initialized container of a remote.
func (l *Loader) Container(ctx context.Context, name string) (*container.Container, error) {
	entry, ok := l.remotes[name]
	if !ok {
		return nil, &data.UnknownRemoteError{Remote: name}
	}

	type result struct {
		c   *container.Container
		err error
	}
	ch := make(chan result, 1)
	go func() {
		c, err := l.container(entry)
		ch <- result{c, err}
	}()
	select {
	case r := <-ch:
		return r.c, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (l *Loader) resolve(entry data.RemoteEntry, export string) (ui.Component, error) {
	c, err := l.container(entry)
	if err != nil {
		return nil, err
	}
	comp, err := c.Get(export)
	if err != nil {
		return nil, err
	}
	return comp, nil
}

// container fetches, evaluates and initializes a remote's container once.
// Concurrent callers share one attempt; only successes are kept.
func (l *Loader) container(entry data.RemoteEntry) (*container.Container, error) {
	l.mu.Lock()
	if c, ok := l.containers[entry.Name]; ok {
		l.mu.Unlock()
		return c, nil
	}
	l.mu.Unlock()

	v, err, _ := l.group.Do(entry.Name, func() (interface{}, error) {
		doc, err := l.fetcher.Fetch(l.ctx, entry)
		if err != nil {
			return nil, err
		}
		c, err := container.Evaluate(entry.Name, doc.Source,
			container.WithTimeout(l.scriptTimeout),
			container.WithLogger(l.logger))
		if err != nil {
			return nil, err
		}
		scope, err := l.shared.Negotiate(entry.Name, c.Shared())
		if err != nil {
			return nil, err
		}
		if err := c.Init(scope); err != nil {
			return nil, err
		}

		l.mu.Lock()
		if !l.closed {
			l.containers[entry.Name] = c
		}
		l.mu.Unlock()
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*container.Container), nil
}

func (l *Loader) finish(st *LoadState, comp ui.Component, err error) {
	if !st.settle(comp, err) {
		return
	}
	ref := st.Ref()
	took := l.now().Sub(st.started)
	l.metrics.LoadSettled(ref.Remote, ref.Export, err, took)
	if err != nil {
		l.logger.Warn("component load failed", zap.Stringer("ref", ref), zap.Duration("took", took), zap.Error(err))
		return
	}
	l.logger.Debug("component resolved", zap.Stringer("ref", ref), zap.Duration("took", took))
}

// Stats counts load states by state.
type Stats struct {
	Pending  int `json:"pending"`
	Resolved int `json:"resolved"`
	Failed   int `json:"failed"`
}

func (l *Loader) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	var s Stats
	for _, st := range l.states {
		switch st.State() {
		case Pending:
			s.Pending++
		case Resolved:
			s.Resolved++
		case Failed:
			s.Failed++
		}
	}
	return s
}

// Close cancels in-flight fetches, waits for pending loads to settle and
// drops every cached state, including the fetcher's entry documents. Later
// loads fail with data.ErrLoaderClosed.
func (l *Loader) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	l.mu.Unlock()

	l.cancel()
	l.wg.Wait()

	l.mu.Lock()
	l.states = make(map[data.ComponentRef]*LoadState)
	l.containers = make(map[string]*container.Container)
	l.mu.Unlock()
	l.fetcher.Reset()
	return nil
}

// Resolver adapts the loader to ui.Resolver.
func (l *Loader) Resolver() ui.Resolver {
	return resolver{l}
}

type resolver struct{ l *Loader }

func (r resolver) Begin(ref data.ComponentRef) ui.Resolution {
	return r.l.Begin(ref)
}
