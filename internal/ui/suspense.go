package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"fedhost/internal/data"
)

// ErrFallbackSuspended is returned when a boundary's fallback itself suspends.
var ErrFallbackSuspended = errors.New("suspense fallback must not suspend")

// Suspension is returned by Render while part of a tree is still loading.
type Suspension struct {
	Pending []data.ComponentRef
	ready   []<-chan struct{}
}

func (s *Suspension) Error() string {
	refs := make([]string, len(s.Pending))
	for i, r := range s.Pending {
		refs[i] = r.String()
	}
	return fmt.Sprintf("suspended on %s", strings.Join(refs, ", "))
}

// Wait blocks until every pending reference has settled.
func (s *Suspension) Wait(ctx context.Context) error {
	for _, ch := range s.ready {
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (s *Suspension) merge(o *Suspension) {
	s.Pending = append(s.Pending, o.Pending...)
	s.ready = append(s.ready, o.ready...)
}

// AsSuspension reports whether err is (or wraps) a *Suspension.
func AsSuspension(err error) (*Suspension, bool) {
	var s *Suspension
	if errors.As(err, &s) {
		return s, true
	}
	return nil, false
}

// Boundary shows a fallback while any child is suspended.
type Boundary struct {
	fallback Renderable
	children []Renderable
}

func Suspense(fallback Renderable, children ...Renderable) *Boundary {
	return &Boundary{fallback: fallback, children: children}
}

// Render satisfies Renderable; the suspension is absorbed by the fallback.
func (b *Boundary) Render() (*Node, error) {
	n, _, err := b.RenderState()
	return n, err
}

// RenderState renders every child so that all contained proxies start
// loading. While any is pending it returns the fallback and the combined
// suspension. Errors other than suspension are returned as is.
func (b *Boundary) RenderState() (*Node, *Suspension, error) {
	var (
		nodes    []*Node
		pending  *Suspension
		firstErr error
	)
	for _, child := range b.children {
		n, err := child.Render()
		if err != nil {
			if s, ok := AsSuspension(err); ok {
				if pending == nil {
					pending = &Suspension{}
				}
				pending.merge(s)
				continue
			}
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		nodes = append(nodes, n)
	}
	if firstErr != nil {
		return nil, nil, firstErr
	}
	if pending == nil {
		return Fragment(nodes...), nil, nil
	}

	if b.fallback == nil {
		return Fragment(), pending, nil
	}
	fb, err := b.fallback.Render()
	if err != nil {
		if _, ok := AsSuspension(err); ok {
			return nil, nil, ErrFallbackSuspended
		}
		return nil, nil, fmt.Errorf("render fallback: %w", err)
	}
	return fb, pending, nil
}
