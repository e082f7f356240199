package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/brettbedarf/mtpview/internal/util"
	"gopkg.in/yaml.v3"
)

// CLI style log verbosity, see [util.LevelFromVerbosity]
const (
	ErrorVerbose = iota + 1
	WarnVerbose
	InfoVerbose
	DebugVerbose
	TraceVerbose
)

// Default configuration constants. See [Config] for field descriptions.
const (
	DefaultLogLvl = util.WarnLevel

	DefaultFsName = "mtpview"
	DefaultName   = "mtp"

	// DefaultListingCacheSize is the number of directory listings kept by the mount
	DefaultListingCacheSize = 256

	// DefaultListingCacheTTL is how long in seconds a mounted directory listing
	// is reused before the device is enumerated again
	DefaultListingCacheTTL = 30.0

	// DefaultAttrTimeout is the attribute cache timeout in seconds
	DefaultAttrTimeout = 1.0

	// DefaultEntryTimeout is the directory entry cache timeout in seconds
	DefaultEntryTimeout = 1.0
)

// Config contains runtime configuration values for the CLI, browser and mount.
type Config struct {
	MountOptions
	LogLvl util.LogLevel

	// Session is the session definition handed to the sessions registry.
	// Must hold a "type" key, e.g. {"type": "localdir", "root": "/data"}
	Session map[string]any

	ListingCacheSize int     // Directory listings kept by the mount (Default 256)
	ListingCacheTTL  float64 // Seconds a mounted listing is reused (Default 30)
	AttrTimeout      float64 // Attribute cache timeout in seconds (Default 1.0)
	EntryTimeout     float64 // Directory entry cache timeout in seconds (Default 1.0)

	TempDir     string // Staging dir for files written through the mount (Default os temp dir)
	MetricsAddr string // Listen address for /metrics while mounted, disabled when empty
	TUILogFile  string // Log destination while the browser owns the terminal, discarded when empty
}

// SessionDefinition returns the session definition as JSON
func (c *Config) SessionDefinition() ([]byte, error) {
	if len(c.Session) == 0 {
		return nil, fmt.Errorf("no session configured")
	}
	return json.Marshal(c.Session)
}

// ConfigOverride uses pointer fields to distinguish between unset and zero values
// when loading partial configuration. See [Config] for field descriptions.
type ConfigOverride struct {
	// LogLvl is a verbosity between 1 (errors) and 5 (trace)
	LogLvl *int    `yaml:"log_level,omitempty" json:"log_level,omitempty"`
	Debug  *bool   `yaml:"fuse_debug,omitempty" json:"fuse_debug,omitempty"`
	FsName *string `yaml:"fs_name,omitempty" json:"fs_name,omitempty"`
	Name   *string `yaml:"name,omitempty" json:"name,omitempty"`

	Session map[string]any `yaml:"session,omitempty" json:"session,omitempty"`

	ListingCacheSize *int     `yaml:"listing_cache_size,omitempty" json:"listing_cache_size,omitempty"`
	ListingCacheTTL  *float64 `yaml:"listing_cache_ttl,omitempty" json:"listing_cache_ttl,omitempty"`
	AttrTimeout      *float64 `yaml:"attr_timeout,omitempty" json:"attr_timeout,omitempty"`
	EntryTimeout     *float64 `yaml:"entry_timeout,omitempty" json:"entry_timeout,omitempty"`

	TempDir     *string `yaml:"temp_dir,omitempty" json:"temp_dir,omitempty"`
	MetricsAddr *string `yaml:"metrics_addr,omitempty" json:"metrics_addr,omitempty"`
	TUILogFile  *string `yaml:"tui_log_file,omitempty" json:"tui_log_file,omitempty"`
}

// NewDefaultConfig creates a new Config with all default values.
func NewDefaultConfig() *Config {
	return &Config{
		MountOptions: MountOptions{
			FsName: DefaultFsName,
			Name:   DefaultName,
		},
		LogLvl:           DefaultLogLvl,
		ListingCacheSize: DefaultListingCacheSize,
		ListingCacheTTL:  DefaultListingCacheTTL,
		AttrTimeout:      DefaultAttrTimeout,
		EntryTimeout:     DefaultEntryTimeout,
	}
}

// NewConfig creates a Config from defaults with override applied on top.
// A nil override yields the defaults
func NewConfig(override *ConfigOverride) *Config {
	cfg := NewDefaultConfig()
	if override != nil {
		cfg.Merge(override)
	}
	return cfg
}

// Merge applies non-nil values from override onto this Config.
// This allows partial configuration updates while preserving existing values.
func (c *Config) Merge(override *ConfigOverride) {
	if override.LogLvl != nil {
		c.LogLvl = util.LevelFromVerbosity(*override.LogLvl)
	}
	if override.Debug != nil {
		c.Debug = *override.Debug
	}
	if override.FsName != nil {
		c.FsName = *override.FsName
	}
	if override.Name != nil {
		c.Name = *override.Name
	}
	if override.Session != nil {
		c.Session = override.Session
	}
	if override.ListingCacheSize != nil {
		c.ListingCacheSize = *override.ListingCacheSize
	}
	if override.ListingCacheTTL != nil {
		c.ListingCacheTTL = *override.ListingCacheTTL
	}
	if override.AttrTimeout != nil {
		c.AttrTimeout = *override.AttrTimeout
	}
	if override.EntryTimeout != nil {
		c.EntryTimeout = *override.EntryTimeout
	}
	if override.TempDir != nil {
		c.TempDir = *override.TempDir
	}
	if override.MetricsAddr != nil {
		c.MetricsAddr = *override.MetricsAddr
	}
	if override.TUILogFile != nil {
		c.TUILogFile = *override.TUILogFile
	}
}

// LoadConfigOverrideFile loads configuration overrides from a file without merging.
// Supports both YAML (.yaml, .yml) and JSON (.json) formats.
func LoadConfigOverrideFile(path string) (*ConfigOverride, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var override ConfigOverride

	// Determine format by file extension
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &override); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config file: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &override); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config file: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown config file extension: %s", path)
	}

	return &override, nil
}

// NewConfigFromFile creates a new Config by merging file overrides with defaults.
func NewConfigFromFile(path string) (*Config, error) {
	override, err := LoadConfigOverrideFile(path)
	if err != nil {
		return nil, err
	}
	return NewConfig(override), nil
}
