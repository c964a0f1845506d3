package ui

import (
	"sync"

	"fedhost/internal/data"
)

// Proxy stands in for a remote component inside a render tree before the
// component has been loaded.
type Proxy struct {
	resolver Resolver
	ref      data.ComponentRef
	props    data.Props

	once sync.Once
	res  Resolution
}

// Lazy returns a proxy for ref. Nothing is loaded until the first render.
func Lazy(r Resolver, ref data.ComponentRef, props data.Props) *Proxy {
	return &Proxy{resolver: r, ref: ref, props: props}
}

func (p *Proxy) Ref() data.ComponentRef { return p.ref }

// Begin starts resolution on first call; later calls return the same resolution.
func (p *Proxy) Begin() Resolution {
	p.once.Do(func() {
		p.res = p.resolver.Begin(p.ref)
	})
	return p.res
}

// Render returns a *Suspension while the component is pending, the load error
// if it failed, and the component's output once resolved.
func (p *Proxy) Render() (*Node, error) {
	res := p.Begin()
	select {
	case <-res.Done():
	default:
		return nil, &Suspension{Pending: []data.ComponentRef{p.ref}, ready: []<-chan struct{}{res.Done()}}
	}

	comp, err := res.Result()
	if err != nil {
		return nil, err
	}
	return comp.Render(p.props)
}
