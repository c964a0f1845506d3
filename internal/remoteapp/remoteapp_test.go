package remoteapp

import (
	"testing"

	"fedhost/internal/container"
	"fedhost/internal/data"
	"fedhost/internal/shared"
	"fedhost/internal/ui"
)

func evaluate(t *testing.T, withShared bool) *container.Container {
	t.Helper()
	c, err := container.Evaluate(Name, Entry())
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	var scope shared.Scope
	if withShared {
		reg, err := shared.NewHostRegistry(shared.KnownLibraries())
		if err != nil {
			t.Fatalf("NewHostRegistry: %v", err)
		}
		if scope, err = reg.Negotiate(Name, c.Shared()); err != nil {
			t.Fatalf("Negotiate: %v", err)
		}
	}
	if err := c.Init(scope); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return c
}

func render(t *testing.T, c *container.Container, export string, props data.Props) *ui.Node {
	t.Helper()
	comp, err := c.Get(export)
	if err != nil {
		t.Fatalf("Get(%s): %v", export, err)
	}
	n, err := comp.Render(props)
	if err != nil {
		t.Fatalf("Render(%s): %v", export, err)
	}
	return n
}

func TestEntry_Exposes(t *testing.T) {
	c := evaluate(t, true)
	got := c.Exposes()
	if len(got) != 2 || got[0] != "Button" || got[1] != "Header" {
		t.Fatalf("Exposes() = %v", got)
	}
}

func TestHeader(t *testing.T) {
	for _, withShared := range []bool{true, false} {
		c := evaluate(t, withShared)
		html, err := ui.HTML(render(t, c, "Header", nil))
		if err != nil {
			t.Fatalf("HTML: %v", err)
		}
		want := `<header class="bg-gray-800 text-white p-4"><h1 class="text-2xl">Updated Remote App Header</h1><p class="text-white">Hi, Ricardo</p></header>`
		if html != want {
			t.Fatalf("shared=%v: HTML = %q, want %q", withShared, html, want)
		}
	}
}

func TestButton(t *testing.T) {
	c := evaluate(t, true)

	var clicks int
	n := render(t, c, "Button", data.Props{"text": "Remote Button", "onClick": func() { clicks++ }})
	html, err := ui.HTML(n)
	if err != nil {
		t.Fatalf("HTML: %v", err)
	}
	want := `<button class="px-4 py-2 bg-red-500 text-white rounded" type="button" data-fedhost-events="click">Remote Button</button>`
	if html != want {
		t.Fatalf("HTML = %q, want %q", html, want)
	}
	if !n.Activate("click") || clicks != 1 {
		t.Fatalf("expected one click, got %d", clicks)
	}

	noHandler := render(t, c, "Button", data.Props{"text": "No handler"})
	if noHandler.Activate("click") {
		t.Fatalf("button without onClick must not bind a handler")
	}
}
