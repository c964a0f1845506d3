package compose_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"fedhost/internal/compose"
	"fedhost/internal/data"
	"fedhost/internal/fetcher"
	_ "fedhost/internal/fetcher/providers"
	"fedhost/internal/loader"
	"fedhost/internal/remoteapp"
	"fedhost/internal/shared"
)

func remoteServer(t *testing.T, gate chan struct{}) *httptest.Server {
	t.Helper()
	files := http.FileServer(http.FS(remoteapp.FS()))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if gate != nil {
			<-gate
		}
		files.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newLoader(t *testing.T, remotes ...data.RemoteEntry) *loader.Loader {
	t.Helper()
	reg, err := shared.NewHostRegistry(shared.KnownLibraries())
	if err != nil {
		t.Fatalf("NewHostRegistry: %v", err)
	}
	f := fetcher.NewFetcher(&http.Client{Timeout: 5 * time.Second}, fetcher.NewRequestBudget(0, 0))
	l, err := loader.New(remotes, f, reg)
	if err != nil {
		t.Fatalf("loader.New: %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func waitView(t *testing.T, v *compose.View) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := v.Wait(ctx); err != nil {
		t.Fatalf("view did not settle: %v", err)
	}
}

// Two regions of one remote start in fallback and resolve independently.
func TestScenario_HeaderAndButtonResolve(t *testing.T) {
	gate := make(chan struct{})
	srv := remoteServer(t, gate)
	l := newLoader(t, data.RemoteEntry{Name: remoteapp.Name, EntryURL: srv.URL + "/assets/remoteEntry.js"})

	root, err := compose.NewRoot(l.Resolver(), []compose.Region{
		{ID: "header", Ref: data.ComponentRef{Remote: remoteapp.Name, Export: "Header"}},
		{ID: "button", Ref: data.ComponentRef{Remote: remoteapp.Name, Export: "Button"}, Class: "mt-4", Props: data.Props{"text": "Remote Button"}},
	})
	if err != nil {
		t.Fatalf("NewRoot: %v", err)
	}
	v := root.Mount(context.Background())
	defer v.Unmount()

	for _, s := range v.Snapshot() {
		if s.Status != compose.StatusPending {
			t.Fatalf("region %s should start in fallback, got %s", s.ID, s.Status)
		}
		if s.Node.TextContent() != "" || len(s.Node.Children) == 0 {
			t.Fatalf("region %s should show the spinner fallback", s.ID)
		}
	}

	close(gate)
	var seen []string
	for u := range v.Updates() {
		if u.Status != compose.StatusResolved {
			t.Fatalf("region %s: %v", u.Region, u.Err)
		}
		seen = append(seen, u.Region)
	}
	if len(seen) != 2 {
		t.Fatalf("expected 2 region updates, got %v", seen)
	}

	header, _ := v.Region("header")
	if got := header.Node.TextContent(); got != "Updated Remote App HeaderHi, Ricardo" {
		t.Fatalf("unexpected header text %q", got)
	}
	button, _ := v.Region("button")
	if got := button.Node.TextContent(); got != "Remote Button" {
		t.Fatalf("unexpected button text %q", got)
	}
}

// Activating the resolved button calls the caller's handler once.
func TestScenario_ButtonActivation(t *testing.T) {
	srv := remoteServer(t, nil)
	l := newLoader(t, data.RemoteEntry{Name: remoteapp.Name, EntryURL: srv.URL + "/assets/remoteEntry.js"})

	var clicks int32
	root, err := compose.NewRoot(l.Resolver(), []compose.Region{{
		ID:  "button",
		Ref: data.ComponentRef{Remote: remoteapp.Name, Export: "Button"},
		Props: data.Props{
			"text":    "Remote Button",
			"onClick": func() { atomic.AddInt32(&clicks, 1) },
		},
	}})
	if err != nil {
		t.Fatalf("NewRoot: %v", err)
	}
	v := root.Mount(context.Background())
	defer v.Unmount()
	waitView(t, v)

	fired, err := v.Activate("button", "click")
	if err != nil || !fired {
		t.Fatalf("Activate: fired=%v err=%v", fired, err)
	}
	if got := atomic.LoadInt32(&clicks); got != 1 {
		t.Fatalf("expected onClick exactly once, got %d", got)
	}
}

// A manifest failure surfaces to the error handler while the sibling region
// served by another remote still resolves.
func TestScenario_NetworkFailureIsolated(t *testing.T) {
	healthy := remoteServer(t, nil)
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(broken.Close)

	l := newLoader(t,
		data.RemoteEntry{Name: "header_app", EntryURL: healthy.URL + "/assets/remoteEntry.js"},
		data.RemoteEntry{Name: "button_app", EntryURL: broken.URL + "/assets/remoteEntry.js"},
	)

	var mu sync.Mutex
	handled := map[string]error{}
	root, err := compose.NewRoot(l.Resolver(), []compose.Region{
		{ID: "header", Ref: data.ComponentRef{Remote: "header_app", Export: "Header"}},
		{ID: "button", Ref: data.ComponentRef{Remote: "button_app", Export: "Button"}, Props: data.Props{"text": "Remote Button"}},
	}, compose.WithErrorHandler(compose.ErrorHandlerFunc(func(region string, _ data.ComponentRef, err error) {
		mu.Lock()
		defer mu.Unlock()
		handled[region] = err
	})))
	if err != nil {
		t.Fatalf("NewRoot: %v", err)
	}
	v := root.Mount(context.Background())
	defer v.Unmount()
	waitView(t, v)

	mu.Lock()
	defer mu.Unlock()
	if len(handled) != 1 {
		t.Fatalf("expected exactly one failure, got %v", handled)
	}
	var netErr *data.NetworkError
	if !errors.As(handled["button"], &netErr) || netErr.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected NetworkError for button, got %v", handled["button"])
	}
	header, _ := v.Region("header")
	if header.Status != compose.StatusResolved {
		t.Fatalf("header must resolve, got %s (%v)", header.Status, header.Err)
	}
}

// An unknown remote fails during mount without network activity.
func TestScenario_UnknownRemote(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	t.Cleanup(srv.Close)
	l := newLoader(t, data.RemoteEntry{Name: remoteapp.Name, EntryURL: srv.URL + "/assets/remoteEntry.js"})

	root, err := compose.NewRoot(l.Resolver(), []compose.Region{
		{ID: "header", Ref: data.ComponentRef{Remote: "unknown_app", Export: "Header"}},
	})
	if err != nil {
		t.Fatalf("NewRoot: %v", err)
	}
	v := root.Mount(context.Background())
	s, _ := v.Region("header")
	if s.Status != compose.StatusFailed || !errors.Is(s.Err, data.ErrUnknownRemote) {
		t.Fatalf("expected immediate UnknownRemoteError, got %s %v", s.Status, s.Err)
	}
	if atomic.LoadInt32(&hits) != 0 {
		t.Fatalf("expected no network activity")
	}
}
