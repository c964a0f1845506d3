package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap/zaptest"

	"fedhost/internal/config"
	"fedhost/internal/engine"
	_ "fedhost/internal/fetcher/providers"
	"fedhost/internal/remoteapp"
)

const clickMessage = "Well done you've imported the MF remote component successfully"

func newHostServer(t *testing.T, remote http.Handler) *httptest.Server {
	t.Helper()
	rs := httptest.NewServer(remote)
	t.Cleanup(rs.Close)

	cfg := config.New()
	cfg.Remotes = map[string]string{"remote_app": rs.URL}
	cfg.Fetch.Rate = 0

	e, err := engine.New(context.Background(), cfg, engine.WithLogger(zaptest.NewLogger(t)))
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	t.Cleanup(func() { _ = e.Close() })

	hs := httptest.NewServer(NewHost(e).Handler())
	t.Cleanup(hs.Close)
	return hs
}

func healthyRemote() http.Handler {
	return http.FileServer(http.FS(remoteapp.FS()))
}

func brokenRemote() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
}

func do(t *testing.T, method, url string) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(method, url, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, string(b)
}

func TestHost_Page(t *testing.T) {
	hs := newHostServer(t, healthyRemote())

	resp, body := do(t, http.MethodGet, hs.URL+"/")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("content type = %q", ct)
	}
	if resp.Header.Get(RequestIDHeader) == "" {
		t.Fatalf("missing request id header")
	}
	for _, want := range []string{
		"<!DOCTYPE html>",
		"window.fedhost",
		`id="region-header"`,
		`id="region-button"`,
		"Updated Remote App Header",
		"Remote Button",
		"</body></html>",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q", want)
		}
	}
}

func TestHost_Region(t *testing.T) {
	hs := newHostServer(t, healthyRemote())

	resp, body := do(t, http.MethodGet, hs.URL+"/regions/header")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body = %s", resp.StatusCode, body)
	}
	if got := resp.Header.Get("X-Fedhost-Region-Status"); got != "resolved" {
		t.Fatalf("region status header = %q", got)
	}
	if !strings.Contains(body, "Updated Remote App Header") || !strings.Contains(body, `data-region="header"`) {
		t.Fatalf("unexpected fragment: %s", body)
	}

	resp, _ = do(t, http.MethodGet, hs.URL+"/regions/footer")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown region status = %d", resp.StatusCode)
	}

	resp, _ = do(t, http.MethodPost, hs.URL+"/regions/header")
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("POST fragment status = %d", resp.StatusCode)
	}
}

func TestHost_Event(t *testing.T) {
	hs := newHostServer(t, healthyRemote())

	tests := []struct {
		name   string
		path   string
		status int
		want   EventResponse
	}{
		{
			name:   "button click runs the configured action",
			path:   "/regions/button/events/click",
			status: http.StatusOK,
			want:   EventResponse{Region: "button", Event: "click", Fired: true, Messages: []string{clickMessage}},
		},
		{
			name:   "header has no click handler",
			path:   "/regions/header/events/click",
			status: http.StatusOK,
			want:   EventResponse{Region: "header", Event: "click", Fired: false, Messages: []string{}},
		},
		{
			name:   "unbound event",
			path:   "/regions/button/events/hover",
			status: http.StatusOK,
			want:   EventResponse{Region: "button", Event: "hover", Fired: false, Messages: []string{}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := do(t, http.MethodPost, hs.URL+tt.path)
			if resp.StatusCode != tt.status {
				t.Fatalf("status = %d, body = %s", resp.StatusCode, body)
			}
			var got EventResponse
			if err := json.Unmarshal([]byte(body), &got); err != nil {
				t.Fatalf("decode: %v (%s)", err, body)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("response mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestHost_FailedRemote(t *testing.T) {
	hs := newHostServer(t, brokenRemote())

	resp, body := do(t, http.MethodGet, hs.URL+"/regions/button")
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if got := resp.Header.Get("X-Fedhost-Region-Status"); got != "failed" {
		t.Fatalf("region status header = %q", got)
	}
	if !strings.Contains(body, `data-error-kind="network"`) || !strings.Contains(body, "Remote content unavailable") {
		t.Fatalf("unexpected error fragment: %s", body)
	}

	resp, body = do(t, http.MethodPost, hs.URL+"/regions/button/events/click")
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("event on failed region status = %d", resp.StatusCode)
	}
	var ev EventResponse
	if err := json.Unmarshal([]byte(body), &ev); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.Fired || !strings.Contains(ev.Error, "502") {
		t.Fatalf("unexpected event response: %+v", ev)
	}

	// the rest of the page still renders
	resp, body = do(t, http.MethodGet, hs.URL+"/")
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, "</body></html>") {
		t.Fatalf("page status = %d", resp.StatusCode)
	}
}

func TestHost_HealthAndMetrics(t *testing.T) {
	hs := newHostServer(t, healthyRemote())

	_, _ = do(t, http.MethodGet, hs.URL+"/regions/header")

	resp, body := do(t, http.MethodGet, hs.URL+"/healthz")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz status = %d", resp.StatusCode)
	}
	var h Health
	if err := json.Unmarshal([]byte(body), &h); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if h.Status != "ok" || h.Name != "host_app" {
		t.Fatalf("unexpected health: %+v", h)
	}
	if diff := cmp.Diff([]string{"remote_app"}, h.Remotes); diff != "" {
		t.Fatalf("remotes mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"classnames", "vdom"}, h.Shared); diff != "" {
		t.Fatalf("shared mismatch (-want +got):\n%s", diff)
	}
	if h.Loads.Resolved != 1 || h.Loads.Failed != 0 {
		t.Fatalf("load stats: %+v", h.Loads)
	}

	resp, body = do(t, http.MethodGet, hs.URL+"/metrics")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("metrics status = %d", resp.StatusCode)
	}
	for _, want := range []string{"fedhost_http_requests_total", `route="/regions/{id}"`, "fedhost_loader_loads_total"} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}
