package cli

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Akotliar/sitemap-qa-sub000/pkg/config"
	"github.com/Akotliar/sitemap-qa-sub000/pkg/dedup"
	"github.com/Akotliar/sitemap-qa-sub000/pkg/discovery"
	"github.com/Akotliar/sitemap-qa-sub000/pkg/extract"
	"github.com/Akotliar/sitemap-qa-sub000/pkg/httpclient"
	"github.com/Akotliar/sitemap-qa-sub000/pkg/pipeline"
	"github.com/Akotliar/sitemap-qa-sub000/pkg/risk"
)

// Assembler builds the pipeline from flags and the optional settings file.
// Flags win over file values where both exist.
type Assembler struct {
	config *Config
}

// NewAssembler creates a new assembler
func NewAssembler(cfg *Config) *Assembler {
	return &Assembler{config: cfg}
}

// AssemblePipeline loads the settings file and wires every stage. File values
// override built-in defaults; flags set away from their defaults win over the
// file.
func (a *Assembler) AssemblePipeline(logger *zap.Logger) (*pipeline.Pipeline, error) {
	file, err := config.Load(a.config.ConfigFile)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	client := httpclient.New(httpclient.Config{
		Timeout:    time.Duration(resolve(a.config.HTTPTimeout, 10, file.Timeouts.FetchSeconds)) * time.Second,
		MaxRetries: resolve(a.config.MaxRetries, 3, file.Timeouts.MaxRetries),
		UserAgent:  a.config.UserAgent,
	}, logger)

	engine := discovery.NewEngine(client, discovery.Config{
		BatchSize:   resolve(a.config.DiscoveryBatch, 50, file.Concurrency.Discovery),
		MaxSitemaps: resolve(a.config.MaxSitemaps, 1000, file.Limits.MaxSitemaps),
	}, logger)

	extractor := extract.NewPipeline(client, extract.Config{
		Concurrency: resolve(a.config.ExtractWorkers, 10, file.Concurrency.Extraction),
	}, logger)

	normalizer := dedup.NewNormalizer(dedup.NormalizeConfig{
		StripWWW:        file.Normalization.StripWWW && !a.config.KeepWWW,
		UpgradeHTTP:     file.Normalization.UpgradeHTTP || a.config.UpgradeHTTP,
		LowercasePath:   file.Normalization.LowercasePath,
		KeepFragment:    file.Normalization.KeepFragment,
		BlacklistParams: file.Normalization.BlacklistParams,
	})
	consolidator := dedup.NewConsolidator(normalizer, 0, logger)

	classifier, err := risk.NewClassifier(risk.Config{
		BatchSize:         resolve(a.config.BatchSize, 10000, file.Limits.BatchSize),
		Concurrency:       resolve(a.config.ClassifyWorkers, 0, file.Concurrency.Classification),
		Policies:          file.Policies,
		AcceptedPatterns:  file.AcceptedPatterns,
		AllowedSubdomains: file.AllowedSubdomains,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("build classifier: %w", err)
	}

	return pipeline.New(engine, extractor, consolidator, classifier, pipeline.Config{
		SampleSize: resolve(a.config.SampleSize, 5, file.Limits.SampleSize),
	}, logger), nil
}

// resolve picks the flag value when it was moved off its default, the file
// value when present, and the default otherwise.
func resolve(flagValue, flagDefault, fileValue int) int {
	if flagValue != flagDefault {
		return flagValue
	}
	if fileValue > 0 {
		return fileValue
	}
	return flagDefault
}

// BuildLogger creates the run logger. Debug mode switches to the development
// encoder with per-call sites.
func BuildLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}
