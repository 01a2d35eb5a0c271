// Package config loads fresh configuration from TOML files and
// FRESH_* environment variables. Environment values override file
// values; both override the built-in defaults.
package config

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/sottey/fresh/internal/engine"
)

// Config is the full application configuration.
type Config struct {
	Engine EngineConfig `toml:"engine"`
	Log    LogConfig    `toml:"log"`
}

// EngineConfig tunes the text engine.
type EngineConfig struct {
	// BoundaryChecks rejects edits that split UTF-8 sequences.
	BoundaryChecks bool `toml:"boundary_checks"`

	// MaxUndoEntries caps retained undo units.
	MaxUndoEntries int `toml:"max_undo_entries"`

	// SnapshotInterval is how many undo units apart history snapshots
	// are taken.
	SnapshotInterval int `toml:"snapshot_interval"`

	// RootSnapshots retains content roots at snapshot points, trading
	// memory for O(1) undo across them.
	RootSnapshots bool `toml:"root_snapshots"`

	// JournalRetention is how many applied edits stay translatable.
	JournalRetention int `toml:"journal_retention"`

	// CacheBudget bounds materialized read-cache bytes.
	CacheBudget int64 `toml:"cache_budget"`
}

// LogConfig tunes application logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `toml:"level"`

	// File receives log output; empty means stderr.
	File string `toml:"file"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Engine: EngineConfig{
			BoundaryChecks:   true,
			MaxUndoEntries:   engine.DefaultMaxUndoEntries,
			SnapshotInterval: engine.DefaultSnapshotInterval,
			RootSnapshots:    false,
			JournalRetention: 1024,
			CacheBudget:      16 << 20,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load builds a Config from defaults, the TOML file at path, and the
// environment, in increasing priority. A missing file is not an error;
// an empty path skips the file layer entirely.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return Config{}, fmt.Errorf("reading config file %s: %w", path, err)
			}
		} else if err := toml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("%w: %s: %v", ErrParse, path, err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFromReader builds a Config from defaults and TOML read from r.
// The environment is not consulted.
func LoadFromReader(r io.Reader) (Config, error) {
	cfg := Default()

	data, err := io.ReadAll(r)
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrParse, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// EnvPrefix is the prefix shared by all recognized environment
// variables.
const EnvPrefix = "FRESH_"

// applyEnv overlays FRESH_* environment variables onto cfg. Variables
// that fail to parse are ignored; the file or default value stands.
func applyEnv(cfg *Config) {
	if v, ok := os.LookupEnv(EnvPrefix + "LOG_LEVEL"); ok {
		cfg.Log.Level = v
	}
	if v, ok := os.LookupEnv(EnvPrefix + "LOG_FILE"); ok {
		cfg.Log.File = v
	}
	if v, ok := lookupBool(EnvPrefix + "BOUNDARY_CHECKS"); ok {
		cfg.Engine.BoundaryChecks = v
	}
	if v, ok := lookupInt(EnvPrefix + "MAX_UNDO_ENTRIES"); ok {
		cfg.Engine.MaxUndoEntries = int(v)
	}
	if v, ok := lookupInt(EnvPrefix + "SNAPSHOT_INTERVAL"); ok {
		cfg.Engine.SnapshotInterval = int(v)
	}
	if v, ok := lookupBool(EnvPrefix + "ROOT_SNAPSHOTS"); ok {
		cfg.Engine.RootSnapshots = v
	}
	if v, ok := lookupInt(EnvPrefix + "JOURNAL_RETENTION"); ok {
		cfg.Engine.JournalRetention = int(v)
	}
	if v, ok := lookupInt(EnvPrefix + "CACHE_BUDGET"); ok {
		cfg.Engine.CacheBudget = v
	}
}

func lookupInt(key string) (int64, bool) {
	s, ok := os.LookupEnv(key)
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func lookupBool(key string) (bool, bool) {
	s, ok := os.LookupEnv(key)
	if !ok {
		return false, false
	}
	switch strings.ToLower(s) {
	case "true", "yes", "on", "1":
		return true, true
	case "false", "no", "off", "0":
		return false, true
	}
	return false, false
}

// Validate checks that every setting is usable.
func (c Config) Validate() error {
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: log level %q", ErrInvalidValue, c.Log.Level)
	}
	if c.Engine.MaxUndoEntries <= 0 {
		return fmt.Errorf("%w: max_undo_entries %d", ErrInvalidValue, c.Engine.MaxUndoEntries)
	}
	if c.Engine.SnapshotInterval <= 0 {
		return fmt.Errorf("%w: snapshot_interval %d", ErrInvalidValue, c.Engine.SnapshotInterval)
	}
	if c.Engine.JournalRetention <= 0 {
		return fmt.Errorf("%w: journal_retention %d", ErrInvalidValue, c.Engine.JournalRetention)
	}
	if c.Engine.CacheBudget <= 0 {
		return fmt.Errorf("%w: cache_budget %d", ErrInvalidValue, c.Engine.CacheBudget)
	}
	return nil
}

// EngineOptions converts the engine section into engine constructor
// options.
func (c Config) EngineOptions() []engine.Option {
	return []engine.Option{
		engine.WithBoundaryChecks(c.Engine.BoundaryChecks),
		engine.WithMaxUndoEntries(c.Engine.MaxUndoEntries),
		engine.WithSnapshotInterval(c.Engine.SnapshotInterval),
		engine.WithRootSnapshots(c.Engine.RootSnapshots),
		engine.WithJournalRetention(c.Engine.JournalRetention),
		engine.WithCacheBudget(c.Engine.CacheBudget),
	}
}
