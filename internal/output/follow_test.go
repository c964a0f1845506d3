package output

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"fedhost/internal/compose"
	"fedhost/internal/data"
	"fedhost/internal/ui"
)

type stubResolution struct {
	done chan struct{}
	comp ui.Component
	err  error
}

func (r *stubResolution) Done() <-chan struct{}         { return r.done }
func (r *stubResolution) Result() (ui.Component, error) { return r.comp, r.err }

type stubResolver struct {
	mu  sync.Mutex
	res map[data.ComponentRef]*stubResolution
}

func (s *stubResolver) Begin(ref data.ComponentRef) ui.Resolution {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.res[ref]
	if !ok {
		r = &stubResolution{done: make(chan struct{})}
		s.res[ref] = r
	}
	return r
}

type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingSink) Write(v any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := v.(Event); ok {
		r.events = append(r.events, e)
	}
	return nil
}

func (r *recordingSink) Close() error { return nil }

func TestFollow(t *testing.T) {
	header := data.ComponentRef{Remote: "remote_app", Export: "Header"}
	button := data.ComponentRef{Remote: "remote_app", Export: "Button"}

	headerRes := &stubResolution{
		done: make(chan struct{}),
		comp: ui.ComponentFunc(func(data.Props) (*ui.Node, error) { return ui.Text("header"), nil }),
	}
	close(headerRes.done)
	buttonRes := &stubResolution{done: make(chan struct{})}
	resolver := &stubResolver{res: map[data.ComponentRef]*stubResolution{header: headerRes, button: buttonRes}}

	regions := []compose.Region{{ID: "header", Ref: header}, {ID: "button", Ref: button}}
	root, err := compose.NewRoot(resolver, regions)
	if err != nil {
		t.Fatalf("NewRoot: %v", err)
	}
	v := root.Mount(context.Background())
	defer v.Unmount()

	sink := &recordingSink{}
	mgr := NewManager()
	if err := mgr.AddSink(sink); err != nil {
		t.Fatalf("AddSink: %v", err)
	}

	type result struct {
		failed int
		err    error
	}
	resCh := make(chan result, 1)
	go func() {
		failed, err := Follow(context.Background(), mgr, v, regions, false)
		resCh <- result{failed, err}
	}()

	buttonRes.err = &data.NetworkError{Remote: "remote_app", URL: "http://localhost:5001/assets/remoteEntry.js", StatusCode: 502, Err: errors.New("bad gateway")}
	close(buttonRes.done)

	var res result
	select {
	case res = <-resCh:
	case <-time.After(2 * time.Second):
		t.Fatalf("Follow did not return")
	}
	if res.err != nil {
		t.Fatalf("Follow error: %v", res.err)
	}
	if res.failed != 1 {
		t.Fatalf("failed: want 1, got %d", res.failed)
	}

	events := sink.events
	if events[0].Type != EventRenderStarted || events[0].Regions != 2 || events[0].View != v.ID() {
		t.Fatalf("first event: %+v", events[0])
	}
	last := events[len(events)-1]
	if last.Type != EventRenderFinished || last.Failed != 1 || last.ExitCode != ExitRegionFailed {
		t.Fatalf("last event: %+v", last)
	}

	byType := map[string][]Event{}
	for _, e := range events {
		byType[e.Type] = append(byType[e.Type], e)
	}
	if got := byType[EventRegionResolved]; len(got) != 1 || got[0].Region != "header" || got[0].Ref != "remote_app/Header" {
		t.Fatalf("resolved events: %+v", got)
	}
	failedEvents := byType[EventRegionFailed]
	if len(failedEvents) != 1 {
		t.Fatalf("failed events: %+v", failedEvents)
	}
	if fe := failedEvents[0]; fe.Region != "button" || fe.ErrorKind != "network" || fe.Status != "failed" {
		t.Fatalf("failed event: %+v", fe)
	}
	if msg := failedEvents[0].Message; msg != `remote "remote_app" entry unavailable (502 Bad Gateway)` {
		t.Fatalf("failed message leaked detail or changed: %q", msg)
	}
	for _, e := range byType[EventRegionSuspended] {
		if e.Region != "button" {
			t.Fatalf("only button may suspend, got %+v", e)
		}
	}
}

func TestFollow_ContextCancelled(t *testing.T) {
	ref := data.ComponentRef{Remote: "remote_app", Export: "Header"}
	resolver := &stubResolver{res: map[data.ComponentRef]*stubResolution{}}
	regions := []compose.Region{{ID: "header", Ref: ref}}
	root, err := compose.NewRoot(resolver, regions)
	if err != nil {
		t.Fatalf("NewRoot: %v", err)
	}
	v := root.Mount(context.Background())
	defer v.Unmount()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	sink := &recordingSink{}
	mgr := NewManager()
	_ = mgr.AddSink(sink)

	if _, err := Follow(ctx, mgr, v, regions, false); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("want deadline exceeded, got %v", err)
	}
	if len(sink.events) != 2 || sink.events[1].Type != EventRegionSuspended {
		t.Fatalf("unexpected events: %+v", sink.events)
	}
}
