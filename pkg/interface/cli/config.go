// Package cli parses flags and assembles the pipeline with its dependencies.
package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
)

// Config holds all application configuration
type Config struct {
	// Input/Output
	ConfigFile string `short:"c" long:"config" description:"YAML settings file with policies and overrides"`
	OutputFile string `short:"o" long:"output" description:"JSONL findings output file (- for stdout)" default:"findings.jsonl"`
	HTMLFile   string `long:"html" description:"Write an HTML report to this file"`

	// HTTP
	HTTPTimeout int    `long:"http-timeout" description:"HTTP request timeout in seconds" default:"10"`
	MaxRetries  int    `long:"max-retries" description:"Retry attempts for retryable failures" default:"3"`
	UserAgent   string `long:"user-agent" description:"HTTP User-Agent header" default:"sitemap-qa/1.0"`

	// Pipeline
	DiscoveryBatch  int  `long:"discovery-batch" description:"Sitemap URLs fetched per discovery batch" default:"50"`
	ExtractWorkers  int  `long:"extract-workers" description:"Concurrent leaf sitemap fetches" default:"10"`
	ClassifyWorkers int  `long:"classify-workers" description:"Classifier worker count (0 = CPU count - 1)"`
	BatchSize       int  `long:"batch-size" description:"URLs per classification batch" default:"10000"`
	MaxSitemaps     int  `long:"max-sitemaps" description:"Hard cap on processed sitemap URLs" default:"1000"`
	SampleSize      int  `long:"sample-size" description:"Sample URLs shown per finding group" default:"5"`
	KeepWWW         bool `long:"keep-www" description:"Do not strip the www prefix during normalization"`
	UpgradeHTTP     bool `long:"upgrade-http" description:"Treat http URLs as https during normalization"`

	// UI
	ShowDashboard bool   `long:"dashboard" description:"Show interactive TUI dashboard"`
	MetricsAddr   string `long:"metrics-addr" description:"Serve Prometheus metrics on this address (e.g. :9090)"`
	Debug         bool   `long:"debug" description:"Verbose logging"`
	Version       bool   `short:"v" long:"version" description:"Print version and exit"`

	Args struct {
		URL string `positional-arg-name:"url" description:"Root site URL (e.g. https://example.com)"`
	} `positional-args:"yes"`

	// Real HTTP timeout duration (not parsed from flags directly)
	HTTPTimeoutDuration time.Duration
}

// ParseFlags parses command line flags
func ParseFlags(args []string) (*Config, error) {
	cfg := &Config{}

	parser := flags.NewParser(cfg, flags.Default)
	parser.Usage = "[OPTIONS] URL"

	if _, err := parser.ParseArgs(args); err != nil {
		if flags.WroteHelp(err) {
			os.Exit(0)
		}
		return nil, err
	}

	cfg.HTTPTimeoutDuration = time.Duration(cfg.HTTPTimeout) * time.Second

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Version {
		return nil
	}

	if c.Args.URL == "" {
		return fmt.Errorf("a root site URL is required")
	}

	if c.HTTPTimeoutDuration <= 0 {
		return fmt.Errorf("HTTP timeout must be > 0, got %s", c.HTTPTimeoutDuration)
	}

	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries must be >= 0, got %d", c.MaxRetries)
	}

	if c.DiscoveryBatch <= 0 {
		return fmt.Errorf("discovery batch must be > 0, got %d", c.DiscoveryBatch)
	}

	if c.ExtractWorkers <= 0 {
		return fmt.Errorf("extract workers must be > 0, got %d", c.ExtractWorkers)
	}

	if c.ClassifyWorkers < 0 {
		return fmt.Errorf("classify workers must be >= 0, got %d", c.ClassifyWorkers)
	}

	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be > 0, got %d", c.BatchSize)
	}

	if c.MaxSitemaps <= 0 {
		return fmt.Errorf("max sitemaps must be > 0, got %d", c.MaxSitemaps)
	}

	if c.SampleSize <= 0 {
		return fmt.Errorf("sample size must be > 0, got %d", c.SampleSize)
	}

	return nil
}
