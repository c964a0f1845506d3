package ui

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"fedhost/internal/data"
)

const maxDepth = 256

var (
	validTag      = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9-]*$`)
	validAttrName = regexp.MustCompile(`^[a-zA-Z_:][-a-zA-Z0-9_:.]*$`)
)

// Attributes whose values a browser navigates to or loads.
var urlAttrs = map[string]bool{
	"href":       true,
	"src":        true,
	"action":     true,
	"formaction": true,
	"xlink:href": true,
	"poster":     true,
	"srcset":     true,
}

// Tags a remote component may not emit.
var forbiddenTags = map[string]bool{
	"script": true,
	"style":  true,
	"iframe": true,
	"object": true,
	"embed":  true,
}

// FromValue converts a virtual node produced by a remote component into a
// Node. A vnode is a string, a number, an array of vnodes, or an object
// {tag, attrs, on, children}. Entries of on map an event name to the name of
// a prop holding a func(); props that are absent leave the event unbound.
func FromValue(v any, props data.Props) (*Node, error) {
	return decode(v, props, 0)
}

func decode(v any, props data.Props, depth int) (*Node, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("vnode nesting exceeds %d levels", maxDepth)
	}

	switch t := v.(type) {
	case nil:
		return Fragment(), nil
	case bool:
		return Fragment(), nil
	case string:
		return Text(t), nil
	case int64:
		return Text(strconv.FormatInt(t, 10)), nil
	case int:
		return Text(strconv.Itoa(t)), nil
	case float64:
		return Text(strconv.FormatFloat(t, 'f', -1, 64)), nil
	case []any:
		children, err := decodeChildren(t, props, depth)
		if err != nil {
			return nil, err
		}
		return Fragment(children...), nil
	case map[string]any:
		return decodeElement(t, props, depth)
	case *Node:
		return t, nil
	default:
		return nil, fmt.Errorf("unsupported vnode type %T", v)
	}
}

func decodeChildren(items []any, props data.Props, depth int) ([]*Node, error) {
	out := make([]*Node, 0, len(items))
	for i, item := range items {
		n, err := decode(item, props, depth+1)
		if err != nil {
			return nil, fmt.Errorf("child %d: %w", i, err)
		}
		out = append(out, n)
	}
	return out, nil
}

func decodeElement(m map[string]any, props data.Props, depth int) (*Node, error) {
	var children []*Node
	switch c := m["children"].(type) {
	case nil:
	case []any:
		var err error
		if children, err = decodeChildren(c, props, depth); err != nil {
			return nil, err
		}
	default:
		n, err := decode(c, props, depth+1)
		if err != nil {
			return nil, err
		}
		children = []*Node{n}
	}

	rawTag, hasTag := m["tag"]
	if !hasTag || rawTag == nil {
		return Fragment(children...), nil
	}
	tag, ok := rawTag.(string)
	if !ok || !validTag.MatchString(tag) {
		return nil, fmt.Errorf("invalid tag %v", rawTag)
	}
	tag = strings.ToLower(tag)
	if forbiddenTags[tag] {
		return nil, fmt.Errorf("tag <%s> is not allowed in remote components", tag)
	}

	attrs, err := decodeAttrs(m["attrs"])
	if err != nil {
		return nil, fmt.Errorf("<%s>: %w", tag, err)
	}
	node := Element(tag, attrs, children...)

	if on, ok := m["on"].(map[string]any); ok {
		for event, ref := range on {
			propName, ok := ref.(string)
			if !ok {
				return nil, fmt.Errorf("<%s>: event %q must name a prop, got %T", tag, event, ref)
			}
			h, err := bindHandler(props, propName)
			if err != nil {
				return nil, fmt.Errorf("<%s> %s: %w", tag, event, err)
			}
			if h != nil {
				node.On(event, h)
			}
		}
	}
	return node, nil
}

func decodeAttrs(raw any) (map[string]string, error) {
	if raw == nil {
		return nil, nil
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("attrs must be an object, got %T", raw)
	}
	attrs := make(map[string]string, len(m))
	for k, v := range m {
		key := k
		if key == "className" {
			key = "class"
		}
		if !allowedAttr(key) {
			continue
		}
		switch t := v.(type) {
		case nil:
		case bool:
			if t {
				attrs[key] = ""
			}
		case string:
			attrs[key] = t
		case int64:
			attrs[key] = strconv.FormatInt(t, 10)
		case float64:
			attrs[key] = strconv.FormatFloat(t, 'f', -1, 64)
		default:
			attrs[key] = fmt.Sprint(t)
		}
	}
	for k, v := range attrs {
		if !allowedAttrValue(k, v) {
			delete(attrs, k)
		}
	}
	return attrs, nil
}

// allowedAttr rejects malformed names and inline script handlers.
func allowedAttr(key string) bool {
	return validAttrName.MatchString(key) && !strings.HasPrefix(strings.ToLower(key), "on")
}

// allowedAttrValue rejects script URLs in attributes that hold URLs.
func allowedAttrValue(key, val string) bool {
	if !urlAttrs[strings.ToLower(key)] {
		return true
	}
	scheme := strings.Map(func(r rune) rune {
		if r <= ' ' || r == 0x7f {
			return -1
		}
		return r
	}, val)
	scheme = strings.ToLower(scheme)
	return !strings.HasPrefix(scheme, "javascript:") && !strings.HasPrefix(scheme, "vbscript:")
}

func bindHandler(props data.Props, name string) (Handler, error) {
	v, ok := props[name]
	if !ok || v == nil {
		return nil, nil
	}
	switch fn := v.(type) {
	case func():
		return fn, nil
	case Handler:
		return fn, nil
	default:
		return nil, fmt.Errorf("prop %q is %T, not a function", name, v)
	}
}
