// Package config handles thumbtint configuration from YAML files.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/thumbtint/thumbtint/internal/extract"
)

// Sampler modes.
const (
	SamplerHTTP   = "http"
	SamplerCanvas = "canvas"
)

// Config is the top-level thumbtint configuration.
type Config struct {
	Browser   BrowserConfig     `yaml:"browser"`
	Pages     []PageConfig      `yaml:"pages"`
	Debounce  DebounceConfig    `yaml:"debounce"`
	Sampler   SamplerConfig     `yaml:"sampler"`
	Selectors extract.Selectors `yaml:"selectors"`
	Store     StoreConfig       `yaml:"store"`
	Admin     AdminConfig       `yaml:"admin"`
}

// BrowserConfig controls Chrome lifecycle.
type BrowserConfig struct {
	Remote           string        `yaml:"remote"`
	MemoryLimit      int64         `yaml:"memory_limit"`
	RecycleInterval  time.Duration `yaml:"recycle_interval"`
	ResourceBlocking []string      `yaml:"resource_blocking"`
	Stealth          string        `yaml:"stealth"` // headless | headful
	XvfbDisplay      string        `yaml:"xvfb_display"`
}

// PageConfig defines a feed page to re-skin.
type PageConfig struct {
	ID  string `yaml:"id"`
	URL string `yaml:"url"`
}

// DebounceConfig controls how mutation batches are coalesced.
type DebounceConfig struct {
	// Window restarts on every batch; a run fires once the page is quiet
	// for this long. Default: 100ms.
	Window time.Duration `yaml:"window"`
	// MaxDelay caps how long a continuously mutating page can postpone a
	// run. Default: 1s. A value far above Window gives pure reset
	// behaviour, one run per burst however long the burst lasts.
	MaxDelay time.Duration `yaml:"max_delay"`
}

// SamplerConfig controls avatar color sampling.
type SamplerConfig struct {
	Mode           string        `yaml:"mode"` // http | canvas
	Timeout        time.Duration `yaml:"timeout"`
	MaxBytes       int64         `yaml:"max_bytes"`
	AlphaThreshold *uint8        `yaml:"alpha_threshold"`
	UserAgent      string        `yaml:"user_agent"`
}

// StoreConfig locates the pass report database.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// AdminConfig enables the local HTTP surface when Addr is set. The surface
// is unauthenticated: bind it to loopback (e.g. 127.0.0.1:8377).
type AdminConfig struct {
	Addr string `yaml:"addr"`
}

// LoadFile reads a YAML configuration file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML, applies defaults and validates.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var cfg Config
	cfg.ApplyDefaults()
	return &cfg
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Browser.MemoryLimit <= 0 {
		c.Browser.MemoryLimit = 1 << 30
	}
	if c.Browser.RecycleInterval <= 0 {
		c.Browser.RecycleInterval = 4 * time.Hour
	}
	if c.Browser.XvfbDisplay == "" {
		c.Browser.XvfbDisplay = ":99"
	}
	if c.Browser.Stealth == "" {
		c.Browser.Stealth = "headless"
	}
	if c.Debounce.Window <= 0 {
		c.Debounce.Window = 100 * time.Millisecond
	}
	if c.Debounce.MaxDelay <= 0 {
		c.Debounce.MaxDelay = time.Second
	}
	if c.Sampler.Mode == "" {
		c.Sampler.Mode = SamplerHTTP
	}
	if c.Sampler.Timeout <= 0 {
		c.Sampler.Timeout = 10 * time.Second
	}
	if c.Sampler.MaxBytes <= 0 {
		c.Sampler.MaxBytes = 4 << 20
	}
	if c.Sampler.AlphaThreshold == nil {
		t := uint8(128)
		c.Sampler.AlphaThreshold = &t
	}
	if c.Store.Path == "" {
		c.Store.Path = ":memory:"
	}
	c.Selectors = c.Selectors.Merge(extract.DefaultSelectors())
	for i := range c.Pages {
		if c.Pages[i].ID == "" {
			c.Pages[i].ID = fmt.Sprintf("page-%d", i+1)
		}
	}
}

// Validate checks values that have no sensible default.
func (c *Config) Validate() error {
	var errs []error
	if c.Sampler.Mode != SamplerHTTP && c.Sampler.Mode != SamplerCanvas {
		errs = append(errs, fmt.Errorf("config: sampler.mode %q: want %s or %s", c.Sampler.Mode, SamplerHTTP, SamplerCanvas))
	}
	if c.Browser.Stealth != "headless" && c.Browser.Stealth != "headful" {
		errs = append(errs, fmt.Errorf("config: browser.stealth %q: want headless or headful", c.Browser.Stealth))
	}
	seen := make(map[string]bool, len(c.Pages))
	for _, p := range c.Pages {
		if p.URL == "" {
			errs = append(errs, fmt.Errorf("config: page %q: url is required", p.ID))
		}
		if seen[p.ID] {
			errs = append(errs, fmt.Errorf("config: page id %q is duplicated", p.ID))
		}
		seen[p.ID] = true
	}
	return errors.Join(errs...)
}
