package ui

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// EventsAttr lists the activation events bound on an element, so the page can
// forward them to the host.
const EventsAttr = "data-fedhost-events"

// RenderHTML writes the HTML form of n.
func RenderHTML(w io.Writer, n *Node) error {
	if n == nil {
		return nil
	}
	for _, hn := range toHTML(n) {
		if err := html.Render(w, hn); err != nil {
			return err
		}
	}
	return nil
}

// HTML returns the HTML form of n as a string.
func HTML(n *Node) (string, error) {
	var buf bytes.Buffer
	if err := RenderHTML(&buf, n); err != nil {
		return "", fmt.Errorf("render html: %w", err)
	}
	return buf.String(), nil
}

func toHTML(n *Node) []*html.Node {
	switch n.Kind {
	case TextNode:
		return []*html.Node{{Type: html.TextNode, Data: n.Text}}
	case FragmentNode:
		var out []*html.Node
		for _, c := range n.Children {
			out = append(out, toHTML(c)...)
		}
		return out
	}

	el := &html.Node{
		Type:     html.ElementNode,
		Data:     n.Tag,
		DataAtom: atom.Lookup([]byte(n.Tag)),
		Attr:     htmlAttrs(n),
	}
	for _, c := range n.Children {
		for _, hc := range toHTML(c) {
			el.AppendChild(hc)
		}
	}
	return []*html.Node{el}
}

func htmlAttrs(n *Node) []html.Attribute {
	keys := make([]string, 0, len(n.Attrs))
	for k, v := range n.Attrs {
		if allowedAttr(k) && allowedAttrValue(k, v) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	attrs := make([]html.Attribute, 0, len(keys)+1)
	for _, k := range keys {
		attrs = append(attrs, html.Attribute{Key: k, Val: n.Attrs[k]})
	}
	if len(n.Events) > 0 {
		events := make([]string, 0, len(n.Events))
		for e := range n.Events {
			events = append(events, e)
		}
		sort.Strings(events)
		attrs = append(attrs, html.Attribute{Key: EventsAttr, Val: strings.Join(events, " ")})
	}
	return attrs
}
