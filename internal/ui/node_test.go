package ui

import "testing"

func TestNode_Activate(t *testing.T) {
	var clicks int
	tree := Element("div", nil,
		Element("h1", nil, Text("Title")),
		Element("button", nil, Text("Go")).On("click", func() { clicks++ }),
	)

	if !tree.Activate("click") {
		t.Fatalf("expected click handler to be found")
	}
	if clicks != 1 {
		t.Fatalf("expected 1 click, got %d", clicks)
	}
	if tree.Activate("submit") {
		t.Fatalf("unexpected submit handler")
	}
	if clicks != 1 {
		t.Fatalf("unrelated activation must not fire click, got %d", clicks)
	}
}

func TestNode_TextContentAndEvents(t *testing.T) {
	tree := Fragment(
		Element("p", nil, Text("Hi, "), Text("Ricardo")),
		nil,
		Element("a", nil).On("click", func() {}).On("focus", func() {}),
	)
	if got := tree.TextContent(); got != "Hi, Ricardo" {
		t.Fatalf("TextContent() = %q", got)
	}
	if len(tree.Children) != 2 {
		t.Fatalf("nil children must be dropped, got %d", len(tree.Children))
	}
	events := tree.EventNames()
	if len(events) != 2 || events[0] != "click" || events[1] != "focus" {
		t.Fatalf("EventNames() = %v", events)
	}
}
