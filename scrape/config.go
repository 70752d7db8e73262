package scrape

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings like
// "45s" or "3m".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(n *yaml.Node) error {
	v, err := time.ParseDuration(n.Value)
	if err != nil {
		return fmt.Errorf("scrape: duration %q: %w", n.Value, err)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// BrowserConfig controls the Chrome process and session pool.
type BrowserConfig struct {
	// Remote is the WebSocket URL of an external Chrome. Empty = launch
	// a local one.
	Remote string `yaml:"remote"`
	// MaxSessions caps concurrently open scrape sessions. Requests beyond
	// it queue until a slot frees or their context expires. Default: 4.
	MaxSessions int `yaml:"max_sessions"`
	// NavTimeout bounds a single navigation. Default: 30s.
	NavTimeout Duration `yaml:"nav_timeout"`
}

// PagingConfig controls the pagination loop.
type PagingConfig struct {
	// FirstSettle is the render wait after the initial navigation.
	// Default: 5s; negative disables the wait.
	FirstSettle Duration `yaml:"first_settle"`
	// NextSettle is the render wait after each cursor navigation.
	// Default: 3s; negative disables the wait.
	NextSettle Duration `yaml:"next_settle"`
	// Deadline bounds one whole scrape call across all its pages.
	// Default: 3m.
	Deadline Duration `yaml:"deadline"`
}

// Config configures the scrape service.
type Config struct {
	// Listen is the HTTP bind address. Default: ":8000".
	Listen string `yaml:"listen"`
	// CacheDir receives raw HTML artifacts. Default: "cache".
	CacheDir string `yaml:"cache_dir"`
	// MetadataDB is the path of the scrape-log SQLite database.
	// Default: "cache/scrape_metadata.db".
	MetadataDB string `yaml:"metadata_db"`

	Browser BrowserConfig `yaml:"browser"`
	Paging  PagingConfig  `yaml:"paging"`
}

func (c *Config) defaults() {
	if c.Listen == "" {
		c.Listen = ":8000"
	}
	if c.CacheDir == "" {
		c.CacheDir = "cache"
	}
	if c.MetadataDB == "" {
		c.MetadataDB = "cache/scrape_metadata.db"
	}
	if c.Browser.MaxSessions <= 0 {
		c.Browser.MaxSessions = 4
	}
	if c.Browser.NavTimeout <= 0 {
		c.Browser.NavTimeout = Duration(30 * time.Second)
	}
	if c.Paging.FirstSettle == 0 {
		c.Paging.FirstSettle = Duration(5 * time.Second)
	}
	if c.Paging.NextSettle == 0 {
		c.Paging.NextSettle = Duration(3 * time.Second)
	}
	if c.Paging.Deadline <= 0 {
		c.Paging.Deadline = Duration(3 * time.Minute)
	}
}

// DefaultConfig returns a Config with every default applied.
func DefaultConfig() *Config {
	c := &Config{}
	c.defaults()
	return c
}

// LoadConfigFile reads a YAML configuration file and applies defaults.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scrape: read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("scrape: parse config %s: %w", path, err)
	}
	cfg.defaults()
	return &cfg, nil
}
