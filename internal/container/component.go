package container

import (
	"fmt"

	"fedhost/internal/data"
	"fedhost/internal/ui"

	"github.com/dop251/goja"
)

// Component is an exported remote component bound to its container's runtime.
type Component struct {
	c      *Container
	export string
	render goja.Callable
}

func (comp *Component) Name() string {
	return comp.c.remote + "/" + comp.export
}

// Render calls the component with props and decodes the virtual node it
// returns. Function props are not visible to the script; the node's event
// bindings name them and the host binds them.
func (comp *Component) Render(props data.Props) (*ui.Node, error) {
	c := comp.c

	c.mu.Lock()
	jsProps := c.vm.NewObject()
	for k, v := range props {
		switch v.(type) {
		case func(), ui.Handler:
			continue
		}
		if err := jsProps.Set(k, v); err != nil {
			c.mu.Unlock()
			return nil, fmt.Errorf("render %s: prop %q: %w", comp.Name(), k, err)
		}
	}
	out, err := c.guard(func() (goja.Value, error) { return comp.render(goja.Undefined(), jsProps) })
	var vnode any
	if err == nil && out != nil {
		vnode = out.Export()
	}
	c.mu.Unlock()

	if err != nil {
		return nil, fmt.Errorf("render %s: %w", comp.Name(), err)
	}
	node, err := ui.FromValue(vnode, props)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", comp.Name(), err)
	}
	return node, nil
}
