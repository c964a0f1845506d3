// Package ui is the host's render tree: nodes, their HTML form, deferred
// remote components and the suspension boundaries that wrap them.
package ui

import (
	"sort"
	"strings"
)

type Kind int

const (
	ElementNode Kind = iota
	TextNode
	FragmentNode
)

// Handler reacts to an activation event (click, submit, ...).
type Handler func()

type Node struct {
	Kind     Kind
	Tag      string
	Text     string
	Attrs    map[string]string
	Children []*Node
	Events   map[string]Handler
}

func Element(tag string, attrs map[string]string, children ...*Node) *Node {
	return &Node{Kind: ElementNode, Tag: tag, Attrs: attrs, Children: compact(children)}
}

func Text(s string) *Node {
	return &Node{Kind: TextNode, Text: s}
}

func Fragment(children ...*Node) *Node {
	return &Node{Kind: FragmentNode, Children: compact(children)}
}

func compact(in []*Node) []*Node {
	out := in[:0:0]
	for _, c := range in {
		if c != nil {
			out = append(out, c)
		}
	}
	return out
}

// On binds a handler and returns n for chaining.
func (n *Node) On(event string, h Handler) *Node {
	if n.Events == nil {
		n.Events = make(map[string]Handler)
	}
	n.Events[event] = h
	return n
}

// Render makes a plain node usable wherever a Renderable is expected.
func (n *Node) Render() (*Node, error) {
	return n, nil
}

// Walk visits n and its descendants depth-first until fn returns false.
func (n *Node) Walk(fn func(*Node) bool) bool {
	if n == nil {
		return true
	}
	if !fn(n) {
		return false
	}
	for _, c := range n.Children {
		if !c.Walk(fn) {
			return false
		}
	}
	return true
}

// Activate fires the first handler bound to event, depth-first, and reports
// whether one was found.
func (n *Node) Activate(event string) bool {
	var h Handler
	n.Walk(func(x *Node) bool {
		if fn, ok := x.Events[event]; ok && fn != nil {
			h = fn
			return false
		}
		return true
	})
	if h == nil {
		return false
	}
	h()
	return true
}

// EventNames lists every event bound anywhere in the tree, sorted.
func (n *Node) EventNames() []string {
	seen := make(map[string]struct{})
	n.Walk(func(x *Node) bool {
		for e := range x.Events {
			seen[e] = struct{}{}
		}
		return true
	})
	out := make([]string, 0, len(seen))
	for e := range seen {
		out = append(out, e)
	}
	sort.Strings(out)
	return out
}

// TextContent concatenates all text below n.
func (n *Node) TextContent() string {
	var b strings.Builder
	n.Walk(func(x *Node) bool {
		if x.Kind == TextNode {
			b.WriteString(x.Text)
		}
		return true
	})
	return b.String()
}
