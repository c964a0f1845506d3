package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment overrides applied by ApplyEnv.
const (
	EnvAddr          = "FEDHOST_ADDR"
	EnvVerboseErrors = "FEDHOST_VERBOSE_ERRORS"
	// EnvRemotePrefix + NAME overrides (or adds) the entry URL of remote name
	// (lowercased), e.g. FEDHOST_REMOTE_REMOTE_APP.
	EnvRemotePrefix = "FEDHOST_REMOTE_"
)

// Load reads a host configuration file on top of Defaults. The format is
// chosen by extension: .yaml/.yml or .toml. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Defaults()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(b))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	case ".toml":
		meta, err := toml.Decode(string(b), cfg)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return nil, fmt.Errorf("decode %s: unknown keys: %s", path, strings.Join(keys, ", "))
		}
	default:
		return nil, fmt.Errorf("unsupported config file extension %q (use .yaml, .yml or .toml)", ext)
	}
	return cfg, nil
}

// LoadEnvFile loads KEY=VALUE pairs into the process environment without
// overriding variables that are already set. An empty path means ".env",
// which may be absent; an explicit path must exist.
func LoadEnvFile(path string) error {
	explicit := path != ""
	if !explicit {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env (%s): %w", path, err)
	}
	return nil
}

// ApplyEnv overlays FEDHOST_* environment variables.
func (c *Config) ApplyEnv() error {
	return c.applyEnv(os.Environ())
}

func (c *Config) applyEnv(environ []string) error {
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		switch {
		case key == EnvAddr:
			c.Server.Addr = value
		case key == EnvVerboseErrors:
			v, err := strconv.ParseBool(value)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", EnvVerboseErrors, err)
			}
			c.Server.VerboseErrors = v
		case strings.HasPrefix(key, EnvRemotePrefix) && len(key) > len(EnvRemotePrefix):
			if c.Remotes == nil {
				c.Remotes = make(map[string]string)
			}
			c.Remotes[strings.ToLower(strings.TrimPrefix(key, EnvRemotePrefix))] = value
		}
	}
	return nil
}
