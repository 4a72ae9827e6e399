package config

import (
	"embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed engines.yaml
var enginesYAML embed.FS

// Registry holds the configuration for all search engines plus the shared
// exclusion-domain list. Redirect decoding rules and excluded domains are
// configuration, not code logic.
type Registry struct {
	Engines         []EngineConfig `yaml:"engines"`
	ExcludedDomains []string       `yaml:"excluded_domains"`
}

// SelectorConfig holds the CSS selectors for one engine's result list.
// FallbackResults, when set, is tried after the primary selector yields
// zero results.
type SelectorConfig struct {
	Results         string `yaml:"results"`
	Link            string `yaml:"link"`
	Title           string `yaml:"title"`
	FallbackResults string `yaml:"fallback_results,omitempty"`
}

// EngineConfig defines a single search engine: how to build its query URL,
// how to fetch its results page, how to locate result entries, and how to
// unwrap its redirect hrefs.
type EngineConfig struct {
	ID        string         `yaml:"id"`
	Name      string         `yaml:"name,omitempty"`
	Strategy  string         `yaml:"strategy"`   // "http" or "browser"
	SearchURL string         `yaml:"search_url"` // contains a {query} placeholder
	Selectors SelectorConfig `yaml:"selectors"`

	// Query syntax. Engines are not interchangeable: a time window is a URL
	// parameter for some engines and a free-text year suffix for others.
	TimeParam  string `yaml:"time_param,omitempty"`
	YearSuffix bool   `yaml:"year_suffix,omitempty"`

	// Redirect decoding.
	Decoder        string `yaml:"decoder,omitempty"` // "query_param", "base64_param", "prefix_strip", "none"
	DecodeParam    string `yaml:"decode_param,omitempty"`
	RedirectPrefix string `yaml:"redirect_prefix,omitempty"`

	// Browser strategy: selector whose presence marks the page as rendered.
	WaitSelector string `yaml:"wait_selector,omitempty"`
}

// RegistryPathFromEnv returns the optional filesystem override for the
// embedded engine registry.
func RegistryPathFromEnv() string {
	return os.Getenv("ENGINES_CONFIG")
}

// LoadRegistry reads the embedded engines.yaml. A path can be supplied to
// override the embedded copy from the filesystem.
func LoadRegistry(path string) (*Registry, error) {
	var data []byte
	var err error

	if path != "" {
		data, err = os.ReadFile(path)
	}
	if path == "" || err != nil {
		data, err = enginesYAML.ReadFile("engines.yaml")
		if err != nil {
			return nil, fmt.Errorf("failed to read engine registry: %w", err)
		}
	}

	var reg Registry
	if err := yaml.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("failed to parse engine registry: %w", err)
	}

	return &reg, nil
}

// Engine looks up an engine by id.
func (r *Registry) Engine(id string) (*EngineConfig, bool) {
	for i := range r.Engines {
		if r.Engines[i].ID == id {
			return &r.Engines[i], true
		}
	}
	return nil, false
}
