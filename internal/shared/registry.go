// Package shared negotiates shared dependencies between the host and the
// remotes it loads. Every shared library has exactly one instance per
// process: the host's own when it initialized the library eagerly, otherwise
// one loaded on first request and reused by every later remote.
package shared

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"fedhost/internal/data"
	"fedhost/internal/metrics"

	"go.uber.org/zap"
)

// Requirement is a remote's declaration of a shared dependency.
type Requirement struct {
	Name            string
	RequiredVersion string
	// Version is the copy bundled with the remote, used when the host does
	// not share the library.
	Version       string
	StrictVersion bool
}

// Library is a host-provided shared library.
type Library struct {
	Name    string
	Version string
	// Eager libraries are loaded when provided; others on first request.
	Eager bool
	Load  func() (any, error)
}

// Instance is the single runtime instance of a shared library.
type Instance struct {
	Name    string
	Version string
	// From is "host" for eagerly initialized libraries, otherwise the remote
	// whose negotiation first loaded it.
	From  string
	Value any
}

// Scope maps dependency names to the instances offered to one remote.
type Scope map[string]*Instance

type entry struct {
	lib  Library
	once sync.Once
	inst *Instance
	err  error
}

type Registry struct {
	mu      sync.RWMutex
	libs    map[string]*entry
	policy  Policy
	logger  *zap.Logger
	metrics *metrics.Collector
}

type Option func(*Registry)

func WithPolicy(p Policy) Option {
	return func(r *Registry) {
		if p != nil {
			r.policy = p
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

func WithMetrics(m *metrics.Collector) Option {
	return func(r *Registry) { r.metrics = m }
}

func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		libs:   make(map[string]*entry),
		policy: SemverPolicy{},
		logger: zap.NewNop(),
	}
	for _, apply := range opts {
		if apply != nil {
			apply(r)
		}
	}
	r.logger = r.logger.Named("shared")
	return r
}

// Provide registers a host library. Eager libraries are initialized now.
func (r *Registry) Provide(lib Library) error {
	if lib.Name == "" {
		return errors.New("shared library has no name")
	}
	if lib.Load == nil {
		return fmt.Errorf("shared library %s has no loader", lib.Name)
	}

	r.mu.Lock()
	if _, exists := r.libs[lib.Name]; exists {
		r.mu.Unlock()
		return fmt.Errorf("shared library %s already provided", lib.Name)
	}
	e := &entry{lib: lib}
	r.libs[lib.Name] = e
	r.mu.Unlock()

	if lib.Eager {
		if _, err := r.load(e, "host"); err != nil {
			return fmt.Errorf("initialize shared library %s: %w", lib.Name, err)
		}
	}
	return nil
}

// Names lists provided libraries in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.libs))
	for name := range r.libs {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Version returns the host version of a library.
func (r *Registry) Version(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.libs[name]
	if !ok {
		return "", false
	}
	return e.lib.Version, true
}

// Instance returns the process instance of a library, loading it on first use.
func (r *Registry) Instance(name string) (*Instance, error) {
	return r.instance(name, "host")
}

func (r *Registry) instance(name, requester string) (*Instance, error) {
	r.mu.RLock()
	e, ok := r.libs[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("shared library %s is not provided by the host", name)
	}
	return r.load(e, requester)
}

func (r *Registry) load(e *entry, requester string) (*Instance, error) {
	e.once.Do(func() {
		v, err := e.lib.Load()
		if err != nil {
			e.err = err
			return
		}
		e.inst = &Instance{Name: e.lib.Name, Version: e.lib.Version, From: requester, Value: v}
		r.logger.Debug("shared library initialized",
			zap.String("dependency", e.lib.Name),
			zap.String("version", e.lib.Version),
			zap.String("from", requester))
	})
	return e.inst, e.err
}

// Negotiate checks a remote's requirements against the host's libraries and
// returns the scope to offer the remote. Requirements for libraries the host
// does not share are skipped; the remote keeps its own copy. A hard version
// violation fails with *data.IncompatibleSharedDependencyError.
func (r *Registry) Negotiate(remote string, reqs []Requirement) (Scope, error) {
	sorted := append([]Requirement(nil), reqs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	scope := make(Scope, len(sorted))
	for _, req := range sorted {
		hostVersion, ok := r.Version(req.Name)
		if !ok {
			r.metrics.SharedResolved(req.Name, string(OutcomeSkipped))
			r.logger.Debug("shared dependency not provided by host",
				zap.String("remote", remote),
				zap.String("dependency", req.Name))
			continue
		}

		decision := r.policy.Check(hostVersion, req)
		r.metrics.SharedResolved(req.Name, string(decision.Outcome))
		switch decision.Outcome {
		case OutcomeIncompatible:
			return nil, &data.IncompatibleSharedDependencyError{
				Remote:      remote,
				Dependency:  req.Name,
				HostVersion: hostVersion,
				Required:    req.RequiredVersion,
				Reason:      decision.Reason,
			}
		case OutcomeMismatch:
			r.logger.Warn("shared dependency version mismatch; using host version",
				zap.String("remote", remote),
				zap.String("dependency", req.Name),
				zap.String("host_version", hostVersion),
				zap.String("required", req.RequiredVersion),
				zap.String("reason", decision.Reason))
		}

		inst, err := r.instance(req.Name, remote)
		if err != nil {
			return nil, fmt.Errorf("load shared library %s for remote %s: %w", req.Name, remote, err)
		}
		scope[req.Name] = inst
	}
	return scope, nil
}

// Check reports how req would be negotiated without loading anything or
// recording metrics.
func (r *Registry) Check(req Requirement) Decision {
	hostVersion, ok := r.Version(req.Name)
	if !ok {
		return Decision{Outcome: OutcomeSkipped, Reason: "not shared by host"}
	}
	return r.policy.Check(hostVersion, req)
}
