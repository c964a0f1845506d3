package github

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewClient_NilContextReturnsError(t *testing.T) {
	var nilCtx context.Context
	_, err := NewClient(nilCtx, "", "")
	if err == nil || !strings.Contains(err.Error(), "ctx is nil") {
		t.Fatalf("expected ctx is nil error, got %v", err)
	}
}

func TestNewClient_BaseURL(t *testing.T) {
	c, err := NewClient(context.Background(), "", "https://ghe.example.com/api/v3")
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	if got := c.Client.BaseURL.String(); got != "https://ghe.example.com/api/v3/" {
		t.Fatalf("unexpected base url %q", got)
	}
}

func TestReadFile(t *testing.T) {
	const script = "var container = {get: function () {}};"
	var gotAuth, gotRef string

	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/widgets/contents/dist/assets/remoteEntry.js", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotRef = r.URL.Query().Get("ref")
		fmt.Fprintf(w, `{"type":"file","encoding":"base64","path":"dist/assets/remoteEntry.js","content":%q}`,
			base64.StdEncoding.EncodeToString([]byte(script)))
	})
	mux.HandleFunc("/repos/acme/widgets/contents/missing.js", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message":"Not Found"}`)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	c, err := NewClient(context.Background(), "test-token", server.URL)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	body, err := c.ReadFile(context.Background(), FileRequest{Owner: "acme", Repo: "widgets", Path: "dist/assets/remoteEntry.js", Ref: "v1.2.0"})
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(body) != script {
		t.Fatalf("unexpected content %q", body)
	}
	if !strings.Contains(gotAuth, "test-token") {
		t.Fatalf("expected token in Authorization header, got %q", gotAuth)
	}
	if gotRef != "v1.2.0" {
		t.Fatalf("expected ref v1.2.0, got %q", gotRef)
	}

	_, err = c.ReadFile(context.Background(), FileRequest{Owner: "acme", Repo: "widgets", Path: "missing.js"})
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %T: %v", err, err)
	}
	if se.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", se.StatusCode)
	}
	if strings.Contains(se.Error(), server.URL) {
		t.Fatalf("status error should not echo the request URL: %s", se.Error())
	}
}

func TestReadFile_ValidatesRequest(t *testing.T) {
	c, err := NewClient(context.Background(), "", "")
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	if _, err := c.ReadFile(context.Background(), FileRequest{Owner: "acme"}); err == nil {
		t.Fatalf("expected validation error")
	}
}
