// Package etl holds the three batch pipelines that turn the raw storefront
// dumps into query-ready columnar projections. Each pipeline owns its own
// table lineage and runs to completion in memory; projections are declared
// as a small artifact graph so derivations stay explicit.
package etl

import (
	"context"

	"go.uber.org/zap"

	"github.com/steamops/vapor/pkg/config"
	"github.com/steamops/vapor/pkg/errors"
	"github.com/steamops/vapor/pkg/logger"
)

// Pipeline is one dataset's load-clean-project run.
type Pipeline interface {
	Run(ctx context.Context) error
}

// RunAll executes the configured pipelines sequentially. When datasets names
// are given, only those run; otherwise every dataset with a configured
// source runs. Unknown dataset names fail before any pipeline starts.
func RunAll(ctx context.Context, cfg *config.Config, datasets ...string) error {
	opts := Options{
		ArtifactsDir: cfg.Artifacts.Dir,
		Compression:  cfg.Artifacts.Compression,
	}

	available := map[string]func() (Pipeline, bool){
		"games": func() (Pipeline, bool) {
			return NewGamesPipeline(cfg.Sources.Games, opts), cfg.Sources.Games != ""
		},
		"reviews": func() (Pipeline, bool) {
			return NewReviewsPipeline(cfg.Sources.Reviews, opts), cfg.Sources.Reviews != ""
		},
		"items": func() (Pipeline, bool) {
			return NewItemsPipeline(cfg.Sources.Items, opts), cfg.Sources.Items != ""
		},
	}
	order := []string{"games", "reviews", "items"}

	selected := datasets
	if len(selected) == 0 {
		selected = order
	}
	for _, name := range selected {
		if _, ok := available[name]; !ok {
			return errors.New(errors.ErrorTypeConfig, "unknown dataset "+name)
		}
	}

	for _, name := range order {
		if !contains(selected, name) {
			continue
		}
		p, configured := available[name]()
		if !configured {
			if len(datasets) > 0 {
				return errors.New(errors.ErrorTypeConfig, "no source configured for dataset "+name)
			}
			logger.Info("skipping dataset with no configured source", zap.String("dataset", name))
			continue
		}
		if err := p.Run(ctx); err != nil {
			return err
		}
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, e := range list {
		if e == v {
			return true
		}
	}
	return false
}
