// Package config loads the category table used to pick and color the
// modules shown in the rendered graph, plus environment settings.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables.
const (
	EnvConfig   = "LEANDEPS_CONFIG"
	EnvCacheDir = "LEANDEPS_CACHE_DIR"
	EnvToken    = "GITHUB_TOKEN"
)

// Palette fills in categories that do not set a color, in order.
var Palette = []string{"lightblue", "lightgreen", "lightsalmon", "lightgoldenrodyellow", "lightpink",
	"steelblue", "darkseagreen", "coral", "darkkhaki", "mediumvioletred"}

// Category groups the modules whose first name segment is Prefix.
type Category struct {
	Prefix string `yaml:"prefix"`
	Label  string `yaml:"label"` // defaults to Prefix
	Color  string `yaml:"color"` // defaults to the next Palette entry
}

// Categories is an ordered category table; order is the cluster order in
// the output.
type Categories []Category

// Lookup returns the category for a top level name segment.
func (cs Categories) Lookup(prefix string) (Category, bool) {
	for _, c := range cs {
		if c.Prefix == prefix {
			return c, true
		}
	}
	return Category{}, false
}

// Config is the on-disk configuration.
type Config struct {
	Categories Categories `yaml:"categories"`
	// Ext is the source file extension, ".lean" when empty.
	Ext string `yaml:"ext"`
	// CacheDir overrides where remote sources are cached.
	CacheDir string `yaml:"cache_dir"`
	// Token authenticates remote sources; usually comes from GITHUB_TOKEN.
	Token string `yaml:"-"`
}

// Default is the table used when no configuration file is given: the
// top level directories of the Lean 3 core library and mathlib.
func Default() *Config {
	cfg := &Config{Categories: Categories{
		{Prefix: "init"},
		{Prefix: "data"},
		{Prefix: "algebra"},
		{Prefix: "order"},
		{Prefix: "logic"},
		{Prefix: "tactic"},
		{Prefix: "topology"},
		{Prefix: "analysis"},
	}}
	if err := cfg.normalize(); err != nil {
		panic(err) // the built-in table is valid
	}
	return cfg
}

// Load reads .env (if present) and then the YAML file at path. An empty
// path falls back to $LEANDEPS_CONFIG and then to Default. Environment
// variables override file values.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	var cfg *Config
	if path == "" {
		cfg = Default()
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		cfg, err = Parse(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	if dir := os.Getenv(EnvCacheDir); dir != "" {
		cfg.CacheDir = dir
	}
	cfg.Token = os.Getenv(EnvToken)
	return cfg, nil
}

// Parse decodes and validates a YAML configuration.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() error {
	if len(c.Categories) == 0 {
		return fmt.Errorf("no categories configured")
	}
	seen := make(map[string]bool, len(c.Categories))
	next := 0
	for i := range c.Categories {
		cat := &c.Categories[i]
		if cat.Prefix == "" {
			return fmt.Errorf("category %d: empty prefix", i)
		}
		if seen[cat.Prefix] {
			return fmt.Errorf("category %q listed twice", cat.Prefix)
		}
		seen[cat.Prefix] = true
		if cat.Label == "" {
			cat.Label = cat.Prefix
		}
		if cat.Color == "" {
			cat.Color = Palette[next%len(Palette)]
			next++
		}
	}
	return nil
}
