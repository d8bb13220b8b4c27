package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// FileName is the name of the configuration file searched for upward from
// the workspace root.
const FileName = "xpl.toml"

// Duration is a time.Duration written as a string ("150ms") in TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

type Config struct {
	Server      ServerConfig      `toml:"server"`
	Diagnostics DiagnosticsConfig `toml:"diagnostics"`
	Log         LogConfig         `toml:"log"`
	Cache       CacheConfig       `toml:"cache"`
	Metrics     MetricsConfig     `toml:"metrics"`
}

type ServerConfig struct {
	Debounce        Duration `toml:"debounce"`
	AnalysisTimeout Duration `toml:"analysis_timeout"`
	RequestWorkers  int      `toml:"request_workers"`
	MaxDiagnostics  int      `toml:"max_diagnostics"`
}

type DiagnosticsConfig struct {
	Unused bool `toml:"unused"`
}

type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
	Trace bool   `toml:"trace"`
}

type CacheConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

type MetricsConfig struct {
	Addr string `toml:"addr"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Debounce:        Duration{150 * time.Millisecond},
			AnalysisTimeout: Duration{750 * time.Millisecond},
			RequestWorkers:  8,
			MaxDiagnostics:  200,
		},
		Diagnostics: DiagnosticsConfig{Unused: true},
		Log:         LogConfig{Level: "info"},
	}
}

// Find looks for xpl.toml in startDir and its parents.
func Find(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Load reads path on top of the defaults. Keys missing from the file keep
// their default values.
func Load(path string) (Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("%s: unknown key %s", path, undecoded[0])
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Resolve loads explicitPath when set, otherwise the nearest xpl.toml above
// startDir, otherwise the defaults. The returned path is "" for defaults.
func Resolve(explicitPath, startDir string) (Config, string, error) {
	if explicitPath != "" {
		cfg, err := Load(explicitPath)
		return cfg, explicitPath, err
	}
	path, ok, err := Find(startDir)
	if err != nil {
		return Config{}, "", err
	}
	if !ok {
		return Default(), "", nil
	}
	cfg, err := Load(path)
	return cfg, path, err
}

// Validate reports the first invalid value, naming its key.
func (c Config) Validate() error {
	switch {
	case c.Server.Debounce.Duration < 0:
		return errors.New("[server].debounce must not be negative")
	case c.Server.AnalysisTimeout.Duration <= 0:
		return errors.New("[server].analysis_timeout must be positive")
	case c.Server.RequestWorkers <= 0:
		return errors.New("[server].request_workers must be positive")
	case c.Server.MaxDiagnostics < 0:
		return errors.New("[server].max_diagnostics must not be negative")
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("[log].level must be debug, info, warn or error, got %q", c.Log.Level)
	}
	return nil
}
