package shared

import (
	"fmt"
	"sort"
	"strings"
)

// Host library names.
const (
	VDOMName       = "vdom"
	ClassNamesName = "classnames"
)

// VDOM builds virtual nodes for remote components. Exposed to scripts as
// vdom.h(tag, attrs, ...children) and vdom.fragment(...children).
type VDOM struct{}

// H returns an element node. An "on" key in attrs is lifted into the node's
// event bindings.
func (VDOM) H(tag string, attrs map[string]any, children ...any) map[string]any {
	node := map[string]any{"tag": tag}
	if len(attrs) > 0 {
		rest := make(map[string]any, len(attrs))
		for k, v := range attrs {
			if k == "on" {
				node["on"] = v
				continue
			}
			rest[k] = v
		}
		node["attrs"] = rest
	}
	node["children"] = flatten(children)
	return node
}

// Fragment groups children without a wrapping element.
func (VDOM) Fragment(children ...any) []any {
	return flatten(children)
}

func flatten(in []any) []any {
	out := make([]any, 0, len(in))
	for _, c := range in {
		switch v := c.(type) {
		case nil:
		case []any:
			out = append(out, flatten(v)...)
		default:
			out = append(out, v)
		}
	}
	return out
}

// ClassNames joins conditional CSS class lists. Exposed as classnames.cx.
type ClassNames struct{}

// Cx accepts strings, arrays and {class: condition} maps; falsy entries drop.
func (ClassNames) Cx(args ...any) string {
	var parts []string
	var walk func(v any)
	walk = func(v any) {
		switch t := v.(type) {
		case string:
			if s := strings.TrimSpace(t); s != "" {
				parts = append(parts, s)
			}
		case []any:
			for _, x := range t {
				walk(x)
			}
		case map[string]any:
			keys := make([]string, 0, len(t))
			for k := range t {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				if truthy(t[k]) {
					walk(k)
				}
			}
		}
	}
	for _, a := range args {
		walk(a)
	}
	return strings.Join(parts, " ")
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case int64:
		return t != 0
	case float64:
		return t != 0
	default:
		return true
	}
}

// Catalog lists every library the host can share.
func Catalog() []Library {
	return []Library{
		{Name: ClassNamesName, Version: "2.3.2", Load: func() (any, error) { return &ClassNames{}, nil }},
		{Name: VDOMName, Version: "1.4.0", Eager: true, Load: func() (any, error) { return &VDOM{}, nil }},
	}
}

// KnownLibraries returns catalog names in sorted order.
func KnownLibraries() []string {
	var names []string
	for _, lib := range Catalog() {
		names = append(names, lib.Name)
	}
	sort.Strings(names)
	return names
}

// HostLibraries selects catalog libraries by name.
func HostLibraries(names []string) ([]Library, error) {
	byName := make(map[string]Library)
	for _, lib := range Catalog() {
		byName[lib.Name] = lib
	}
	var selected []Library
	for _, name := range names {
		name = strings.TrimSpace(name)
		lib, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("shared library not found: %s (known: %s)", name, strings.Join(KnownLibraries(), ", "))
		}
		selected = append(selected, lib)
	}
	return selected, nil
}

// NewHostRegistry provides the named catalog libraries.
func NewHostRegistry(names []string, opts ...Option) (*Registry, error) {
	libs, err := HostLibraries(names)
	if err != nil {
		return nil, err
	}
	r := NewRegistry(opts...)
	for _, lib := range libs {
		if err := r.Provide(lib); err != nil {
			return nil, err
		}
	}
	return r, nil
}
