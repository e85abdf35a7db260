package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/canastalabs/canasta/internal/cli"
	"github.com/canastalabs/canasta/internal/common"
	"github.com/canastalabs/canasta/internal/metrics"
	"github.com/canastalabs/canasta/internal/recommend"
	"github.com/canastalabs/canasta/internal/report"
	"github.com/canastalabs/canasta/internal/repository"
	"github.com/canastalabs/canasta/internal/rules"
	"github.com/canastalabs/canasta/internal/segment"
	"github.com/canastalabs/canasta/internal/service"
	"github.com/canastalabs/canasta/internal/storage"
	"github.com/schollz/progressbar/v3"
)

// app wires the repository and the engines for one CLI invocation.
type app struct {
	repo        *repository.Repository
	rules       *rules.Engine
	segments    *segment.Engine
	recommender *recommend.Service
	metrics     *metrics.Service
	reports     *report.Builder
}

// newApp constructs the engine graph from configuration. A progress bar is
// attached to the dataset loader when the output is worth showing.
func newApp(showProgress bool) *app {
	datasetDir := viper.GetString("dataset.dir")

	var opts []repository.LoaderOption
	if showProgress {
		var bar *progressbar.ProgressBar
		opts = append(opts, repository.WithProgress(func(_ string, done, total int) {
			if bar == nil {
				bar = cli.NewProgressBar(total, "Loading transaction files...", os.Stderr)
			}
			_ = bar.Set(done)
		}))
	}

	repo := repository.New(repository.NewLoader(datasetDir, opts...))

	ruleEngine := rules.NewWithConfig(repo, rules.Config{
		MinSupport:    viper.GetFloat64("rules.min_support"),
		MinConfidence: viper.GetFloat64("rules.min_confidence"),
	})
	segmentEngine := segment.New(repo)
	repo.RegisterInvalidation(ruleEngine, segmentEngine)

	return &app{
		repo:        repo,
		rules:       ruleEngine,
		segments:    segmentEngine,
		recommender: recommend.New(ruleEngine, repo),
		metrics:     metrics.New(repo),
		reports:     report.NewBuilder(ruleEngine, segmentEngine, viper.GetString("results.dir")),
	}
}

// segmentOptions reads the segmentation parameters from configuration.
func segmentOptions() segment.Options {
	return segment.Options{
		K:              viper.GetInt("segmentation.clusters"),
		Seed:           viper.GetInt64("segmentation.seed"),
		RemoveOutliers: viper.GetBool("segmentation.remove_outliers"),
	}
}

// transactionsDir is where ingested batches are persisted.
func transactionsDir() string {
	return filepath.Join(viper.GetString("dataset.dir"), "Transactions")
}

// openArchive opens the report-run history store.
func openArchive() (service.Archive, error) {
	return storage.New(viper.GetString("database.path"))
}

// validateConfig rejects configuration the engines cannot run with.
func validateConfig() error {
	if viper.GetString("dataset.dir") == "" {
		return fmt.Errorf("%w: dataset.dir must be set", common.ErrMissingConfig)
	}
	if viper.GetString("results.dir") == "" {
		return fmt.Errorf("%w: results.dir must be set", common.ErrMissingConfig)
	}
	if viper.GetString("database.path") == "" {
		return fmt.Errorf("%w: database.path must be set", common.ErrMissingConfig)
	}
	if s := viper.GetFloat64("rules.min_support"); s <= 0 || s > 1 {
		return fmt.Errorf("%w: rules.min_support must be in (0, 1], got %v", common.ErrInvalidConfig, s)
	}
	if c := viper.GetFloat64("rules.min_confidence"); c <= 0 || c > 1 {
		return fmt.Errorf("%w: rules.min_confidence must be in (0, 1], got %v", common.ErrInvalidConfig, c)
	}
	if k := viper.GetInt("segmentation.clusters"); k < 1 {
		return fmt.Errorf("%w: segmentation.clusters must be at least 1, got %d", common.ErrInvalidConfig, k)
	}
	return nil
}
