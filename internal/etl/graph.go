package etl

import (
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/steamops/vapor/pkg/artifact"
	"github.com/steamops/vapor/pkg/errors"
	"github.com/steamops/vapor/pkg/logger"
	"github.com/steamops/vapor/pkg/table"
)

// Options control where finished projections land.
type Options struct {
	ArtifactsDir string
	Compression  string
}

// Deps holds the already-built upstream artifacts a build step may read.
type Deps map[string]*table.Table

// BuildFunc produces one projection, reading only its declared dependencies.
type BuildFunc func(deps Deps) (*table.Table, error)

// Artifact is one named projection in a pipeline graph. Projections derived
// from another projection's filtered state declare that dependency explicitly
// so the lineage cannot silently diverge from the declared order.
type Artifact struct {
	Name      string
	DependsOn []string
	Build     BuildFunc
}

// Graph is a small DAG of named projections, executed in declaration order.
type Graph struct {
	dataset   string
	artifacts []Artifact
	log       *zap.Logger
}

func NewGraph(dataset string) *Graph {
	return &Graph{
		dataset: dataset,
		log:     logger.Get().Named("etl").With(zap.String("dataset", dataset)),
	}
}

func (g *Graph) Add(a Artifact) {
	g.artifacts = append(g.artifacts, a)
}

// Run builds every declared projection in order and persists each one as a
// Parquet file named after the projection. A dependency on an artifact not
// yet built is a wiring bug and fails the run.
func (g *Graph) Run(opts Options) (map[string]*table.Table, error) {
	built := make(map[string]*table.Table, len(g.artifacts))
	for _, a := range g.artifacts {
		deps := make(Deps, len(a.DependsOn))
		for _, dep := range a.DependsOn {
			t, ok := built[dep]
			if !ok {
				return nil, errors.New(errors.ErrorTypeInternal,
					fmt.Sprintf("artifact %s depends on %s, which is not built yet", a.Name, dep))
			}
			deps[dep] = t
		}

		t, err := a.Build(deps)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeInternal,
				fmt.Sprintf("failed to build artifact %s", a.Name))
		}
		built[a.Name] = t

		path := filepath.Join(opts.ArtifactsDir, a.Name+".parquet")
		if err := artifact.Write(path, t, opts.Compression); err != nil {
			return nil, err
		}
		g.log.Info("artifact written",
			zap.String("artifact", a.Name),
			zap.String("path", path),
			zap.Int("rows", t.NumRows()),
			zap.Int("columns", t.NumColumns()))
	}
	return built, nil
}
