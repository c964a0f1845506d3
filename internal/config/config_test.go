package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"fedhost/internal/data"
)

func TestNew_DemoValidates(t *testing.T) {
	cfg := New()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() returned error: %v", err)
	}

	want := []data.RemoteEntry{{Name: "remote_app", EntryURL: "http://localhost:5001/assets/remoteEntry.js"}}
	if diff := cmp.Diff(want, cfg.RemoteEntries()); diff != "" {
		t.Fatalf("RemoteEntries mismatch (-want +got):\n%s", diff)
	}
	if got := cfg.Layout[1].Ref(); got != (data.ComponentRef{Remote: "remote_app", Export: "Button"}) {
		t.Fatalf("button ref: %v", got)
	}
	if cfg.Layout[1].Events["onClick"].Log == "" {
		t.Fatalf("button click action missing")
	}
}

func TestNormalizeEntryURL(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "http://localhost:5001", want: "http://localhost:5001/assets/remoteEntry.js"},
		{in: "http://localhost:5001/", want: "http://localhost:5001/assets/remoteEntry.js"},
		{in: "https://cdn.example.com/team-a", want: "https://cdn.example.com/team-a/assets/remoteEntry.js"},
		{in: " HTTP://localhost:5001/custom/entry.js ", want: "http://localhost:5001/custom/entry.js"},
		{in: "file:///srv/remote/assets/remoteEntry.js", want: "file:///srv/remote/assets/remoteEntry.js"},
		{in: "github://acme/widgets/dist/remoteEntry.js?ref=v1", want: "github://acme/widgets/dist/remoteEntry.js?ref=v1"},
		{in: "", wantErr: true},
		{in: "ftp://example.com/remoteEntry.js", wantErr: true},
		{in: "http:///remoteEntry.js", wantErr: true},
		{in: "localhost:5001", wantErr: true},
	}
	for _, tt := range tests {
		got, err := NormalizeEntryURL(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("NormalizeEntryURL(%q) = %q, want error", tt.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("NormalizeEntryURL(%q) error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("NormalizeEntryURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"bad remote name", func(c *Config) { c.Remotes["a/b"] = "http://x" }, "invalid remote name"},
		{"bad scheme", func(c *Config) { c.Remotes["remote_app"] = "ftp://x/e.js" }, "unsupported entry url scheme"},
		{"unknown shared", func(c *Config) { c.Shared = append(c.Shared, "react") }, "unknown shared library"},
		{"region without id", func(c *Config) { c.Layout[0].Region = "" }, "has no region id"},
		{"region id chars", func(c *Config) { c.Layout[0].Region = "head er" }, "invalid region id"},
		{"duplicate region", func(c *Config) { c.Layout[1].Region = "header" }, "duplicate region"},
		{"unknown remote", func(c *Config) { c.Layout[0].Remote = "nope" }, "unknown remote"},
		{"missing export", func(c *Config) { c.Layout[0].Export = " " }, "has no export"},
		{"event without action", func(c *Config) { c.Layout[1].Events["onClick"] = EventAction{} }, "has no action"},
		{"event shadows prop", func(c *Config) { c.Layout[1].Props["onClick"] = "x" }, "shadows a prop"},
		{"fetch timeout", func(c *Config) { c.Fetch.Timeout = 0 }, "fetch.timeout"},
		{"fetch rate", func(c *Config) { c.Fetch.Rate = -1 }, "fetch.rate"},
		{"fetch burst", func(c *Config) { c.Fetch.Burst = -1 }, "fetch.burst"},
		{"script timeout", func(c *Config) { c.Fetch.ScriptTimeout = 0 }, "fetch.script_timeout"},
		{"server addr", func(c *Config) { c.Server.Addr = "  " }, "server.addr"},
		{"console format", func(c *Config) { c.Output.ConsoleFormat = "yaml" }, "unsupported --console-format"},
		{"console filter", func(c *Config) { c.Output.ConsoleFilterStatus = []string{"pass"} }, "--console-filter-status"},
		{"emit", func(c *Config) { c.Output.Emit = []string{"xml"} }, "unsupported --emit"},
		{"runtime timeout", func(c *Config) { c.Runtime.Timeout = 0 }, "--timeout"},
		{"out ext", func(c *Config) { c.Output.Out = "render.txt" }, "cannot infer output format"},
		{"out no ext", func(c *Config) { c.Output.Out = "render" }, "missing extension"},
		{"out format", func(c *Config) { c.Output.Out = "r.json"; c.Output.OutFormat = "csv" }, "unsupported output format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("Validate() want error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() error %q does not contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_Normalizes(t *testing.T) {
	cfg := New()
	cfg.Name = "  "
	cfg.Remotes["remote_app"] = "http://localhost:5001"
	cfg.Shared = []string{"vdom, classnames", " VDOM "}
	cfg.Output.ConsoleFormat = " NDJSON "
	cfg.Output.ConsoleFilterStatus = []string{"Failed, pending"}
	cfg.Output.Out = "out/render.jsonl"

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() returned error: %v", err)
	}
	if cfg.Name != "host_app" {
		t.Errorf("Name: got %q", cfg.Name)
	}
	if got := cfg.Remotes["remote_app"]; got != "http://localhost:5001/assets/remoteEntry.js" {
		t.Errorf("remote url: got %q", got)
	}
	if diff := cmp.Diff([]string{"vdom", "classnames"}, cfg.Shared); diff != "" {
		t.Errorf("Shared mismatch (-want +got):\n%s", diff)
	}
	if cfg.Output.ConsoleFormat != "ndjson" {
		t.Errorf("ConsoleFormat: got %q", cfg.Output.ConsoleFormat)
	}
	if diff := cmp.Diff([]string{"failed", "pending"}, cfg.Output.ConsoleFilterStatus); diff != "" {
		t.Errorf("ConsoleFilterStatus mismatch (-want +got):\n%s", diff)
	}
	if cfg.Output.OutFormat != "ndjson" {
		t.Errorf("OutFormat: got %q", cfg.Output.OutFormat)
	}
}

func TestValidate_EmptyLayoutAllowed(t *testing.T) {
	cfg := Defaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() returned error: %v", err)
	}
	if len(cfg.RemoteEntries()) != 0 {
		t.Fatalf("want no remotes")
	}
}

const demoYAML = `
name: shop
remotes:
  remote_app: http://localhost:5001
  checkout: https://cdn.example.com/checkout/remoteEntry.js
shared: [vdom]
layout:
  - region: header
    remote: remote_app
    export: Header
  - region: button
    remote: remote_app
    export: Button
    class: mt-4
    props: { text: Remote Button }
    events:
      onClick: { log: "clicked" }
fetch: { timeout: 5s, rate: 2.5, burst: 3, token_env: REMOTE_TOKEN, script_timeout: 500ms }
server: { addr: ":8080", verbose_errors: true }
`

const demoTOML = `
name = "shop"
shared = ["vdom"]

[remotes]
remote_app = "http://localhost:5001"
checkout = "https://cdn.example.com/checkout/remoteEntry.js"

[[layout]]
region = "header"
remote = "remote_app"
export = "Header"

[[layout]]
region = "button"
remote = "remote_app"
export = "Button"
class = "mt-4"
props = { text = "Remote Button" }
events = { onClick = { log = "clicked" } }

[fetch]
timeout = "5s"
rate = 2.5
burst = 3
token_env = "REMOTE_TOKEN"
script_timeout = "500ms"

[server]
addr = ":8080"
verbose_errors = true
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoad(t *testing.T) {
	for _, tc := range []struct{ name, file, content string }{
		{"yaml", "fedhost.yaml", demoYAML},
		{"toml", "fedhost.toml", demoTOML},
	} {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := Load(writeFile(t, tc.file, tc.content))
			if err != nil {
				t.Fatalf("Load error: %v", err)
			}
			if err := cfg.Validate(); err != nil {
				t.Fatalf("Validate error: %v", err)
			}

			want := []data.RemoteEntry{
				{Name: "checkout", EntryURL: "https://cdn.example.com/checkout/remoteEntry.js"},
				{Name: "remote_app", EntryURL: "http://localhost:5001/assets/remoteEntry.js"},
			}
			if diff := cmp.Diff(want, cfg.RemoteEntries()); diff != "" {
				t.Fatalf("remotes mismatch (-want +got):\n%s", diff)
			}
			wantFetch := Fetch{Timeout: 5 * time.Second, Rate: 2.5, Burst: 3, TokenEnv: "REMOTE_TOKEN", ScriptTimeout: 500 * time.Millisecond}
			if diff := cmp.Diff(wantFetch, cfg.Fetch); diff != "" {
				t.Fatalf("fetch mismatch (-want +got):\n%s", diff)
			}
			if cfg.Name != "shop" || cfg.Server.Addr != ":8080" || !cfg.Server.VerboseErrors {
				t.Fatalf("unexpected name/server: %q %+v", cfg.Name, cfg.Server)
			}
			if len(cfg.Layout) != 2 || cfg.Layout[1].Props["text"] != "Remote Button" || cfg.Layout[1].Events["onClick"].Log != "clicked" {
				t.Fatalf("unexpected layout: %+v", cfg.Layout)
			}
			if cfg.Output.ConsoleFormat != "text" {
				t.Fatalf("defaults not kept: %+v", cfg.Output)
			}
		})
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("missing file want error")
	}
	if _, err := Load(writeFile(t, "fedhost.json", "{}")); err == nil || !strings.Contains(err.Error(), "unsupported config file extension") {
		t.Fatalf("json want extension error, got %v", err)
	}
	if _, err := Load(writeFile(t, "bad.yaml", "remotes: [1, 2")); err == nil {
		t.Fatalf("malformed yaml want error")
	}
	if _, err := Load(writeFile(t, "unknown.yaml", "colour: red\n")); err == nil {
		t.Fatalf("unknown yaml key want error")
	}
	if _, err := Load(writeFile(t, "unknown.toml", "colour = \"red\"\n")); err == nil || !strings.Contains(err.Error(), "unknown keys: colour") {
		t.Fatalf("unknown toml key want error, got %v", err)
	}
}

func TestLoad_EmptyYAMLKeepsDefaults(t *testing.T) {
	cfg, err := Load(writeFile(t, "empty.yml", ""))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if diff := cmp.Diff(Defaults(), cfg); diff != "" {
		t.Fatalf("defaults mismatch (-want +got):\n%s", diff)
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := New()
	err := cfg.applyEnv([]string{
		"FEDHOST_ADDR=:9090",
		"FEDHOST_VERBOSE_ERRORS=true",
		"FEDHOST_REMOTE_REMOTE_APP=http://remote.internal:5001",
		"FEDHOST_REMOTE_=ignored",
		"PATH=/usr/bin",
	})
	if err != nil {
		t.Fatalf("applyEnv error: %v", err)
	}
	if cfg.Server.Addr != ":9090" || !cfg.Server.VerboseErrors {
		t.Fatalf("server overrides not applied: %+v", cfg.Server)
	}
	if got := cfg.Remotes["remote_app"]; got != "http://remote.internal:5001" {
		t.Fatalf("remote override: got %q", got)
	}
	if _, ok := cfg.Remotes[""]; ok {
		t.Fatalf("empty remote name must be ignored")
	}

	if err := cfg.applyEnv([]string{"FEDHOST_VERBOSE_ERRORS=maybe"}); err == nil {
		t.Fatalf("invalid bool want error")
	}
}

func TestLoadEnvFile(t *testing.T) {
	t.Run("missing default file is ignored", func(t *testing.T) {
		t.Chdir(t.TempDir())
		if err := LoadEnvFile(""); err != nil {
			t.Fatalf("LoadEnvFile error: %v", err)
		}
	})

	t.Run("missing explicit file fails", func(t *testing.T) {
		if err := LoadEnvFile(filepath.Join(t.TempDir(), "nope.env")); err == nil {
			t.Fatalf("want error")
		}
	})

	t.Run("loads without overriding", func(t *testing.T) {
		t.Setenv("FEDHOST_TEST_KEEP", "kept")
		t.Setenv("FEDHOST_TEST_NEW", "")
		os.Unsetenv("FEDHOST_TEST_NEW")
		p := writeFile(t, "test.env", "FEDHOST_TEST_KEEP=replaced\nFEDHOST_TEST_NEW=loaded\n")
		if err := LoadEnvFile(p); err != nil {
			t.Fatalf("LoadEnvFile error: %v", err)
		}
		if got := os.Getenv("FEDHOST_TEST_KEEP"); got != "kept" {
			t.Fatalf("existing var overridden: %q", got)
		}
		if got := os.Getenv("FEDHOST_TEST_NEW"); got != "loaded" {
			t.Fatalf("new var not loaded: %q", got)
		}
	})
}
