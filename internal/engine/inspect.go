package engine

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"fedhost/internal/container"
	"fedhost/internal/data"
	"fedhost/internal/shared"
)

// inspectConcurrency bounds parallel entry fetches in InspectAll.
const inspectConcurrency = 4

// SharedStatus is how one shared requirement would be negotiated.
type SharedStatus struct {
	shared.Requirement
	Decision shared.Decision
}

// RemoteInfo describes a remote's entry without initializing it.
type RemoteInfo struct {
	Name    string
	URL     string
	Exposes []string
	Shared  []SharedStatus
	Bytes   int
	Took    time.Duration
	Err     error
}

// Inspect fetches and evaluates one remote's entry. The container is not
// initialized and no shared library is loaded.
func (e *Engine) Inspect(ctx context.Context, name string) RemoteInfo {
	entry, ok := e.loader.Remote(name)
	if !ok {
		return RemoteInfo{Name: name, Err: &data.UnknownRemoteError{Remote: name}}
	}
	info := RemoteInfo{Name: entry.Name, URL: entry.EntryURL}

	start := time.Now()
	doc, err := e.fetcher.Fetch(ctx, entry)
	if err != nil {
		info.Err = err
		info.Took = time.Since(start)
		return info
	}
	info.Bytes = len(doc.Source)

	c, err := container.Evaluate(entry.Name, doc.Source,
		container.WithTimeout(e.cfg.Fetch.ScriptTimeout),
		container.WithLogger(e.logger))
	if err != nil {
		info.Err = err
		info.Took = time.Since(start)
		return info
	}
	info.Exposes = c.Exposes()
	for _, req := range c.Shared() {
		info.Shared = append(info.Shared, SharedStatus{Requirement: req, Decision: e.registry.Check(req)})
	}
	info.Took = time.Since(start)
	return info
}

// InspectAll inspects every configured remote in parallel; results are in
// name order.
func (e *Engine) InspectAll(ctx context.Context) []RemoteInfo {
	remotes := e.loader.Remotes()
	out := make([]RemoteInfo, len(remotes))

	var g errgroup.Group
	g.SetLimit(inspectConcurrency)
	for i, r := range remotes {
		g.Go(func() error {
			out[i] = e.Inspect(ctx, r.Name)
			return nil
		})
	}
	_ = g.Wait()
	return out
}
