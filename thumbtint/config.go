package thumbtint

import (
	"github.com/hazyhaar/thumbtint/thumbtint/internal/config"
	"github.com/hazyhaar/thumbtint/thumbtint/internal/extract"
)

// Config is the top-level thumbtint configuration. Re-exported from internal.
type Config = config.Config

// BrowserConfig controls Chrome lifecycle.
type BrowserConfig = config.BrowserConfig

// PageConfig defines a feed page to re-skin.
type PageConfig = config.PageConfig

// DebounceConfig controls mutation batching.
type DebounceConfig = config.DebounceConfig

// SamplerConfig controls avatar color sampling.
type SamplerConfig = config.SamplerConfig

// Selectors locates the parts of a video card.
type Selectors = extract.Selectors

// DefaultSelectors returns the selector table for the home feed.
func DefaultSelectors() Selectors { return extract.DefaultSelectors() }

// LoadConfigFile reads a YAML configuration file.
func LoadConfigFile(path string) (*Config, error) {
	return config.LoadFile(path)
}

// DefaultConfig returns a configuration with no pages and every default applied.
func DefaultConfig() *Config {
	return config.Default()
}
