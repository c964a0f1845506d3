package config

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"fedhost/internal/data"
	"fedhost/internal/shared"
)

// DefaultEntryPath is appended to remote base URLs that do not name a script.
const DefaultEntryPath = "assets/remoteEntry.js"

type Config struct {
	// MAINTAINER NOTE: fields tagged `yaml:"-"` are CLI-only; keep them in
	// sync with the flag wiring in internal/cli.
	Name    string            `yaml:"name" toml:"name"`
	Remotes map[string]string `yaml:"remotes" toml:"remotes"`
	Shared  []string          `yaml:"shared" toml:"shared"`
	Layout  []Region          `yaml:"layout" toml:"layout"`
	Fetch   Fetch             `yaml:"fetch" toml:"fetch"`
	Server  Server            `yaml:"server" toml:"server"`

	Output  Output  `yaml:"-" toml:"-"`
	Runtime Runtime `yaml:"-" toml:"-"`
}

// Region places one remote component on the page.
type Region struct {
	Region string         `yaml:"region" toml:"region"`
	Remote string         `yaml:"remote" toml:"remote"`
	Export string         `yaml:"export" toml:"export"`
	Class  string         `yaml:"class,omitempty" toml:"class,omitempty"`
	Props  map[string]any `yaml:"props,omitempty" toml:"props,omitempty"`
	// Events binds handler props (e.g. onClick) to host actions.
	Events map[string]EventAction `yaml:"events,omitempty" toml:"events,omitempty"`
}

// EventAction is what the host does when a bound handler fires.
type EventAction struct {
	// Log is recorded as a message for the user (the browser shows it as an alert).
	Log string `yaml:"log" toml:"log"`
}

func (r Region) Ref() data.ComponentRef {
	return data.ComponentRef{Remote: r.Remote, Export: r.Export}
}

type Fetch struct {
	// Timeout bounds one entry request.
	Timeout time.Duration `yaml:"timeout" toml:"timeout"`
	// Rate is entry requests per second; 0 disables pacing.
	Rate  float64 `yaml:"rate" toml:"rate"`
	Burst int     `yaml:"burst" toml:"burst"`
	// TokenEnv names the variable holding a bearer token for entry requests.
	// Empty means anonymous HTTP; github:// entries fall back to GITHUB_TOKEN.
	TokenEnv string `yaml:"token_env" toml:"token_env"`
	// ScriptTimeout bounds each call into a remote's entry script.
	ScriptTimeout time.Duration `yaml:"script_timeout" toml:"script_timeout"`
	// GitHubAPI overrides the API base URL for github:// entries (GitHub Enterprise).
	GitHubAPI string `yaml:"github_api,omitempty" toml:"github_api,omitempty"`
}

type Server struct {
	Addr          string `yaml:"addr" toml:"addr"`
	VerboseErrors bool   `yaml:"verbose_errors" toml:"verbose_errors"`
}

type Output struct {
	// ConsoleFormat controls the human-facing console sink format (see --console-format).
	// Allowed values: text, json, ndjson.
	ConsoleFormat string

	// ConsoleFilterStatus filters console region events by status (see --console-filter-status).
	// Allowed values: pending, resolved, failed.
	ConsoleFilterStatus []string

	// Out writes structured output to this path (see --out).
	Out string

	// OutFormat selects the format for --out (see --out-format).
	// Allowed values: json, ndjson. If empty, it is inferred from the --out file extension.
	OutFormat string

	// Emit writes an additional structured event stream to stdout (see --emit).
	Emit []string

	// HTML writes the composed page to this path once every region settles (see --html).
	HTML string

	// NoConsole suppresses the console sink (see --no-console).
	NoConsole bool
}

type Runtime struct {
	// Timeout bounds a whole render run (see --timeout). Must be > 0.
	Timeout time.Duration

	// Verbose enables debug logging and unscrubbed error messages.
	Verbose bool
}

// Defaults returns a configuration with no remotes or layout.
func Defaults() *Config {
	return &Config{
		Name: "host_app",
		Fetch: Fetch{
			Timeout:       10 * time.Second,
			Rate:          20,
			Burst:         10,
			ScriptTimeout: 2 * time.Second,
		},
		Server: Server{Addr: ":5000"},
		Output: Output{ConsoleFormat: "text"},
		Runtime: Runtime{
			Timeout: 30 * time.Second,
		},
	}
}

// New returns the demo host: one remote on localhost:5001 providing a
// header and a button.
func New() *Config {
	c := Defaults()
	c.Remotes = map[string]string{"remote_app": "http://localhost:5001/" + DefaultEntryPath}
	c.Shared = []string{shared.VDOMName, shared.ClassNamesName}
	c.Layout = []Region{
		{Region: "header", Remote: "remote_app", Export: "Header"},
		{
			Region: "button",
			Remote: "remote_app",
			Export: "Button",
			Class:  "mt-4",
			Props:  map[string]any{"text": "Remote Button"},
			Events: map[string]EventAction{
				"onClick": {Log: "Well done you've imported the MF remote component successfully"},
			},
		},
	}
	return c
}

var (
	regionIDPattern   = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	remoteNamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)
)

var entrySchemes = map[string]bool{"http": true, "https": true, "file": true, "github": true}

func (c *Config) Validate() error {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		c.Name = "host_app"
	}

	normalized := make(map[string]string, len(c.Remotes))
	for name, raw := range c.Remotes {
		name = strings.TrimSpace(name)
		if !remoteNamePattern.MatchString(name) {
			return fmt.Errorf("invalid remote name %q", name)
		}
		if _, dup := normalized[name]; dup {
			return fmt.Errorf("duplicate remote %q", name)
		}
		u, err := NormalizeEntryURL(raw)
		if err != nil {
			return fmt.Errorf("remote %s: %w", name, err)
		}
		normalized[name] = u
	}
	c.Remotes = normalized

	c.Shared = splitCommaList(c.Shared)
	known := make(map[string]bool)
	for _, n := range shared.KnownLibraries() {
		known[n] = true
	}
	seenShared := make(map[string]bool, len(c.Shared))
	deduped := c.Shared[:0]
	for _, n := range c.Shared {
		n = normalizeEnumValue(n)
		if !known[n] {
			return fmt.Errorf("unknown shared library %q (known: %s)", n, strings.Join(shared.KnownLibraries(), ", "))
		}
		if seenShared[n] {
			continue
		}
		seenShared[n] = true
		deduped = append(deduped, n)
	}
	c.Shared = deduped

	seenRegions := make(map[string]bool, len(c.Layout))
	for i := range c.Layout {
		r := &c.Layout[i]
		r.Region = strings.TrimSpace(r.Region)
		r.Remote = strings.TrimSpace(r.Remote)
		r.Export = strings.TrimSpace(r.Export)
		if r.Region == "" {
			return fmt.Errorf("layout entry %d has no region id", i)
		}
		if !regionIDPattern.MatchString(r.Region) {
			return fmt.Errorf("invalid region id %q (letters, digits, '-' and '_' only)", r.Region)
		}
		if seenRegions[r.Region] {
			return fmt.Errorf("duplicate region %q", r.Region)
		}
		seenRegions[r.Region] = true
		if _, ok := c.Remotes[r.Remote]; !ok {
			return fmt.Errorf("region %s references unknown remote %q", r.Region, r.Remote)
		}
		if r.Export == "" {
			return fmt.Errorf("region %s has no export", r.Region)
		}
		for prop, action := range r.Events {
			if strings.TrimSpace(prop) == "" {
				return fmt.Errorf("region %s has an event with no prop name", r.Region)
			}
			if _, clash := r.Props[prop]; clash {
				return fmt.Errorf("region %s: event %s shadows a prop of the same name", r.Region, prop)
			}
			if strings.TrimSpace(action.Log) == "" {
				return fmt.Errorf("region %s: event %s has no action", r.Region, prop)
			}
		}
	}

	if c.Fetch.Timeout <= 0 {
		return errors.New("fetch.timeout must be > 0")
	}
	if c.Fetch.Rate < 0 {
		return errors.New("fetch.rate must be >= 0")
	}
	if c.Fetch.Burst < 0 {
		return errors.New("fetch.burst must be >= 0")
	}
	if c.Fetch.ScriptTimeout <= 0 {
		return errors.New("fetch.script_timeout must be > 0")
	}
	if c.Fetch.GitHubAPI != "" {
		if _, err := url.ParseRequestURI(c.Fetch.GitHubAPI); err != nil {
			return fmt.Errorf("invalid fetch.github_api: %w", err)
		}
	}
	c.Server.Addr = strings.TrimSpace(c.Server.Addr)
	if c.Server.Addr == "" {
		return errors.New("server.addr must not be empty")
	}

	return c.validateOutput()
}

func (c *Config) validateOutput() error {
	c.Output.ConsoleFormat = normalizeEnumValue(c.Output.ConsoleFormat)
	if c.Output.ConsoleFormat == "" {
		return errors.New("--console-format must be one of: text, json, ndjson")
	}
	if c.Output.ConsoleFormat != "text" && c.Output.ConsoleFormat != "json" && c.Output.ConsoleFormat != "ndjson" {
		return fmt.Errorf("unsupported --console-format: %s (must be one of: text, json, ndjson)", c.Output.ConsoleFormat)
	}

	c.Output.ConsoleFilterStatus = splitCommaList(c.Output.ConsoleFilterStatus)
	for i, st := range c.Output.ConsoleFilterStatus {
		st = normalizeEnumValue(st)
		if st != "pending" && st != "resolved" && st != "failed" {
			return fmt.Errorf("unsupported --console-filter-status: %s (must be one of: pending, resolved, failed)", st)
		}
		c.Output.ConsoleFilterStatus[i] = st
	}

	for _, emit := range c.Output.Emit {
		v := normalizeEnumValue(emit)
		if v != "json" && v != "ndjson" {
			return fmt.Errorf("unsupported --emit value: %q (must be one of: json, ndjson)", v)
		}
	}

	if c.Runtime.Timeout <= 0 {
		return errors.New("--timeout must be > 0")
	}

	if c.Output.Out != "" {
		c.Output.OutFormat = normalizeEnumValue(c.Output.OutFormat)
		if c.Output.OutFormat == "" {
			ext := strings.ToLower(filepath.Ext(c.Output.Out))
			switch ext {
			case ".json":
				c.Output.OutFormat = "json"
			case ".ndjson", ".jsonl":
				c.Output.OutFormat = "ndjson"
			case "":
				return errors.New("cannot infer output format from file extension (missing extension); use --out-format")
			default:
				return fmt.Errorf("cannot infer output format from file extension %q; use --out-format", ext)
			}
		} else if c.Output.OutFormat != "json" && c.Output.OutFormat != "ndjson" {
			return fmt.Errorf("unsupported output format: %s", c.Output.OutFormat)
		}
	}
	return nil
}

// RemoteEntries lists configured remotes sorted by name.
func (c *Config) RemoteEntries() []data.RemoteEntry {
	out := make([]data.RemoteEntry, 0, len(c.Remotes))
	for name, u := range c.Remotes {
		out = append(out, data.RemoteEntry{Name: name, EntryURL: u})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// NormalizeEntryURL validates an entry location. HTTP(S) URLs whose path does
// not name a .js file are treated as a remote's base URL and get
// DefaultEntryPath appended.
func NormalizeEntryURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New("empty entry url")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid entry url %q: %w", raw, err)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	if !entrySchemes[u.Scheme] {
		return "", fmt.Errorf("unsupported entry url scheme %q (must be one of: file, github, http, https)", u.Scheme)
	}
	if (u.Scheme == "http" || u.Scheme == "https") && u.Host == "" {
		return "", fmt.Errorf("entry url %q has no host", raw)
	}
	if (u.Scheme == "http" || u.Scheme == "https") && !strings.HasSuffix(strings.ToLower(u.Path), ".js") {
		u.Path = path.Join("/", u.Path, DefaultEntryPath)
	}
	return u.String(), nil
}

func normalizeEnumValue(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

func splitCommaList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			p := strings.TrimSpace(part)
			if p == "" {
				continue
			}
			out = append(out, p)
		}
	}
	return out
}
