// Package config loads the optional YAML settings file holding user policies,
// accepted patterns and run tunables.
package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"

	"github.com/Akotliar/sitemap-qa-sub000/pkg/risk"
)

// File is the parsed settings file.
type File struct {
	Policies          []risk.PolicyPattern `mapstructure:"policies"`
	AcceptedPatterns  []string             `mapstructure:"accepted_patterns"`
	AllowedSubdomains []string             `mapstructure:"allowed_subdomains"`
	Normalization     Normalization        `mapstructure:"normalization"`
	Concurrency       Concurrency          `mapstructure:"concurrency"`
	Timeouts          Timeouts             `mapstructure:"timeouts"`
	Limits            Limits               `mapstructure:"limits"`
}

// Normalization mirrors dedup.NormalizeConfig in file form.
type Normalization struct {
	StripWWW        bool     `mapstructure:"strip_www"`
	UpgradeHTTP     bool     `mapstructure:"upgrade_http"`
	LowercasePath   bool     `mapstructure:"lowercase_path"`
	KeepFragment    bool     `mapstructure:"keep_fragment"`
	BlacklistParams []string `mapstructure:"blacklist_params"`
}

// Concurrency holds per-stage worker counts.
type Concurrency struct {
	Discovery      int `mapstructure:"discovery"`
	Extraction     int `mapstructure:"extraction"`
	Classification int `mapstructure:"classification"`
}

// Timeouts holds HTTP client settings in seconds.
type Timeouts struct {
	FetchSeconds int `mapstructure:"fetch_seconds"`
	MaxRetries   int `mapstructure:"max_retries"`
}

// Limits holds safety caps and report bounds.
type Limits struct {
	MaxSitemaps int `mapstructure:"max_sitemaps"`
	BatchSize   int `mapstructure:"batch_size"`
	SampleSize  int `mapstructure:"sample_size"`
}

// Load reads path into a File. An empty path or a missing file yields the
// defaults; a present but malformed file is an error.
func Load(path string) (*File, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	v.SetDefault("normalization.strip_www", true)
	v.SetDefault("normalization.blacklist_params", []string{
		"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content",
		"gclid", "fbclid", "ref",
	})
	v.SetDefault("concurrency.discovery", 50)
	v.SetDefault("concurrency.extraction", 10)
	v.SetDefault("timeouts.fetch_seconds", 10)
	v.SetDefault("timeouts.max_retries", 3)
	v.SetDefault("limits.max_sitemaps", 1000)
	v.SetDefault("limits.batch_size", 10000)
	v.SetDefault("limits.sample_size", 5)

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("stat config %s: %w", path, err)
		}
	}

	var file File
	if err := v.Unmarshal(&file); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &file, nil
}
