package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cyp0633/calseries/server/recurrence"
	"gopkg.in/yaml.v3"
)

const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"

	defaultListen      = "127.0.0.1:8080"
	defaultTimezone    = "UTC"
	defaultLogLevel    = "info"
	defaultRealm       = "calseries"
	defaultSQLitePath  = "data/calseries.db"
	defaultBatchLimit  = 16
	defaultDeleteLimit = 16
)

// StoreConfig selects the document store backend
type StoreConfig struct {
	// Driver is "memory" or "sqlite"
	Driver string `yaml:"driver" json:"driver"`
	// Path is the SQLite database file; ignored by the memory driver
	Path string `yaml:"path,omitempty" json:"path,omitempty"`
}

// CacheConfig controls the expansion cache
type CacheConfig struct {
	Enabled         bool          `yaml:"enabled" json:"enabled"`
	TTL             time.Duration `yaml:"ttl" json:"ttl"`
	MaxEntries      int           `yaml:"max_entries" json:"max_entries"`
	CleanupInterval time.Duration `yaml:"cleanup_interval" json:"cleanup_interval"`
}

// UserConfig is one account accepted by Basic authentication
type UserConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
	// Handle is the display name stamped on events; defaults to Username
	Handle   string `yaml:"handle,omitempty" json:"handle,omitempty"`
	ReadOnly bool   `yaml:"read_only,omitempty" json:"read_only,omitempty"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen" json:"listen"`
	// BasePath prefixes every API route, e.g. "/api".
	BasePath string `yaml:"base_path" json:"base_path"`
	// Timezone is the IANA zone used for floating times and for requests that name none.
	Timezone string `yaml:"timezone" json:"timezone"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`
	Realm    string `yaml:"realm" json:"realm"`

	// MaxOccurrences is the safety cap of a single expansion.
	MaxOccurrences int `yaml:"max_occurrences" json:"max_occurrences"`
	// BatchLimit bounds concurrent occurrence writes during creation.
	BatchLimit int `yaml:"batch_limit" json:"batch_limit"`
	// DeleteConcurrency bounds concurrent occurrence deletes.
	DeleteConcurrency int `yaml:"delete_concurrency" json:"delete_concurrency"`

	Store StoreConfig  `yaml:"store" json:"store"`
	Cache CacheConfig  `yaml:"cache" json:"cache"`
	Users []UserConfig `yaml:"users" json:"users"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:            defaultListen,
		Timezone:          defaultTimezone,
		LogLevel:          defaultLogLevel,
		Realm:             defaultRealm,
		MaxOccurrences:    recurrence.DefaultMaxOccurrences,
		BatchLimit:        defaultBatchLimit,
		DeleteConcurrency: defaultDeleteLimit,
		Store: StoreConfig{
			Driver: DriverMemory,
		},
		Cache: CacheConfig{
			Enabled:         true,
			TTL:             recurrence.DefaultCacheConfig.TTL,
			MaxEntries:      recurrence.DefaultCacheConfig.MaxEntries,
			CleanupInterval: recurrence.DefaultCacheConfig.CleanupInterval,
		},
		Users: []UserConfig{},
	}
}

// Normalize fills in missing/zero values with defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	c.BasePath = strings.TrimSuffix(c.BasePath, "/")
	if c.BasePath != "" && !strings.HasPrefix(c.BasePath, "/") {
		c.BasePath = "/" + c.BasePath
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
		c.LogLevel = strings.ToLower(c.LogLevel)
	default:
		c.LogLevel = defaultLogLevel
	}
	if c.Realm == "" {
		c.Realm = defaultRealm
	}
	if c.MaxOccurrences <= 0 {
		c.MaxOccurrences = recurrence.DefaultMaxOccurrences
	}
	if c.BatchLimit <= 0 {
		c.BatchLimit = defaultBatchLimit
	}
	if c.DeleteConcurrency <= 0 {
		c.DeleteConcurrency = defaultDeleteLimit
	}

	switch c.Store.Driver {
	case DriverMemory:
	case DriverSQLite:
		if c.Store.Path == "" {
			c.Store.Path = defaultSQLitePath
		}
	default:
		c.Store.Driver = DriverMemory
	}

	if c.Cache.TTL <= 0 {
		c.Cache.TTL = recurrence.DefaultCacheConfig.TTL
	}
	if c.Cache.MaxEntries <= 0 {
		c.Cache.MaxEntries = recurrence.DefaultCacheConfig.MaxEntries
	}
	if c.Cache.CleanupInterval <= 0 {
		c.Cache.CleanupInterval = recurrence.DefaultCacheConfig.CleanupInterval
	}
	if c.Users == nil {
		c.Users = []UserConfig{}
	}
}

// Location loads the configured time zone
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// EngineConfig translates the recurrence settings into an engine configuration
func (c *Config) EngineConfig() recurrence.EngineConfig {
	return recurrence.EngineConfig{
		MaxOccurrences: c.MaxOccurrences,
		CacheEnabled:   c.Cache.Enabled,
		CacheConfig: recurrence.CacheConfig{
			TTL:             c.Cache.TTL,
			MaxEntries:      c.Cache.MaxEntries,
			CleanupInterval: c.Cache.CleanupInterval,
		},
	}
}

// Load loads configuration from the given YAML path.
//
// If the file does not exist a default config is written there with 0600
// permissions and returned. Otherwise the YAML is read and normalized.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes cfg to path atomically via a temp file and rename, creating
// the parent directory (0700) and leaving the file with 0600 permissions.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".calseries-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save is a convenience method that delegates to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
