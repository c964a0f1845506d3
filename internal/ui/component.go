package ui

import "fedhost/internal/data"

// Renderable is anything that can appear in a render tree.
type Renderable interface {
	Render() (*Node, error)
}

// Component is a resolved component: props in, node tree out.
type Component interface {
	Render(props data.Props) (*Node, error)
}

type ComponentFunc func(props data.Props) (*Node, error)

func (f ComponentFunc) Render(props data.Props) (*Node, error) {
	return f(props)
}

// Resolution is the eventual result of resolving a component reference.
// Result is valid once Done is closed.
type Resolution interface {
	Done() <-chan struct{}
	Result() (Component, error)
}

// Resolver starts resolving a reference without blocking.
type Resolver interface {
	Begin(ref data.ComponentRef) Resolution
}
