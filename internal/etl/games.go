package etl

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/steamops/vapor/internal/source"
	"github.com/steamops/vapor/pkg/logger"
	stringpool "github.com/steamops/vapor/pkg/strings"
	"github.com/steamops/vapor/pkg/table"
)

// Artifact names for the games dataset. The release catalog is the filtered
// base the price, developer release, and developer projections derive from.
const (
	GamesReleaseCatalog    = "games_release_catalog"
	GamesPrices            = "games_prices"
	GamesGenreMatrix       = "games_genre_matrix"
	GamesDeveloperReleases = "games_developer_releases"
	GamesDevelopers        = "games_developers"
	GamesFeatureMatrix     = "games_feature_matrix"
)

// Sentinel for dates that cannot be resolved to a calendar year.
const unknownYear = "Unknown"

// Indicator thresholds. The genre matrix keeps indicators with at least 20
// positive rows; the feature matrix requires strictly more than 500 because
// it feeds similarity computation, which tolerates less sparsity. The two
// differ in both value and inclusivity on purpose.
const (
	genreMatrixMinPositives   = 20
	featureMatrixMinPositives = 500
)

// Columns never needed downstream of the catalog load.
var gamesPrunedColumns = []string{"publisher", "title", "url", "early_access", "reviews_url", "tags"}

// GamesPipeline cleans the catalog feed and emits its six projections.
type GamesPipeline struct {
	path   string
	opts   Options
	reader *source.Reader
	log    *zap.Logger
}

func NewGamesPipeline(path string, opts Options) *GamesPipeline {
	return &GamesPipeline{
		path:   path,
		opts:   opts,
		reader: source.NewReader(),
		log:    logger.Get().Named("etl").With(zap.String("dataset", "games")),
	}
}

func (p *GamesPipeline) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	records, _, err := p.reader.ReadJSON(p.path)
	if err != nil {
		return err
	}

	base, err := cleanGames(table.FromRows(records))
	if err != nil {
		return err
	}
	p.log.Info("catalog cleaned",
		zap.Int("rows", base.NumRows()),
		zap.Int("columns", base.NumColumns()))

	g := NewGraph("games")
	g.Add(Artifact{
		Name:  GamesReleaseCatalog,
		Build: func(Deps) (*table.Table, error) { return buildReleaseCatalog(base) },
	})
	g.Add(Artifact{
		Name:      GamesPrices,
		DependsOn: []string{GamesReleaseCatalog},
		Build: func(d Deps) (*table.Table, error) {
			return d[GamesReleaseCatalog].Select("price", "id")
		},
	})
	g.Add(Artifact{
		Name:  GamesGenreMatrix,
		Build: func(Deps) (*table.Table, error) { return buildGenreMatrix(base) },
	})
	g.Add(Artifact{
		Name:      GamesDeveloperReleases,
		DependsOn: []string{GamesReleaseCatalog},
		Build: func(d Deps) (*table.Table, error) {
			return d[GamesReleaseCatalog].Select("developer", "id", "release_date")
		},
	})
	g.Add(Artifact{
		Name:      GamesDevelopers,
		DependsOn: []string{GamesReleaseCatalog},
		Build: func(d Deps) (*table.Table, error) {
			return d[GamesReleaseCatalog].Select("developer", "id")
		},
	})
	g.Add(Artifact{
		Name:  GamesFeatureMatrix,
		Build: func(Deps) (*table.Table, error) { return buildFeatureMatrix(base) },
	})

	_, err = g.Run(p.opts)
	return err
}

// cleanGames runs the catalog through its cleaning steps in order: drop fully
// empty rows, prune unused columns, normalize prices, resolve release years,
// expand genre and spec indicators, then optimize physical types.
func cleanGames(t *table.Table) (*table.Table, error) {
	t = t.DropEmptyRows()
	t = t.Drop(gamesPrunedColumns...)

	t, err := mapColumn(t, "price", normalizePrice)
	if err != nil {
		return nil, err
	}
	t, err = mapColumn(t, "release_date", resolveYear)
	if err != nil {
		return nil, err
	}
	t, err = expandIndicators(t, "genres", "genre_")
	if err != nil {
		return nil, err
	}
	t, err = expandIndicators(t, "specs", "spec_")
	if err != nil {
		return nil, err
	}
	return table.OptimizeTypes(t), nil
}

// normalizePrice applies the pricing policy. Numbers pass through. Strings
// that spell a number coerce to it; the missing tokens become null; any other
// string means a free tier ("Free to Play", "Free Demo") and collapses to 0.
// The function is idempotent over its own output.
func normalizePrice(v interface{}) interface{} {
	switch price := v.(type) {
	case nil:
		return nil
	case int64:
		return float64(price)
	case float64:
		return price
	case string:
		switch strings.TrimSpace(price) {
		case "", "NaN", "None", "null":
			return nil
		}
		if f, err := strconv.ParseFloat(price, 64); err == nil {
			return f
		}
		return float64(0)
	default:
		return nil
	}
}

// Date layouts seen in the catalog dump, most common first.
var releaseDateLayouts = []string{
	"2006-01-02",
	"Jan 2, 2006",
	"January 2, 2006",
	"Jan 2006",
	"January 2006",
	"2006",
}

// resolveYear reduces a release date to its 4-digit year. Missing values,
// the "Soon.." placeholder, and anything unparseable resolve to the Unknown
// sentinel, so the column holds either an integer year or that string.
func resolveYear(v interface{}) interface{} {
	s, ok := v.(string)
	if !ok {
		return unknownYear
	}
	s = strings.TrimSpace(s)
	if s == "" || s == "Soon.." {
		return unknownYear
	}
	for _, layout := range releaseDateLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return int64(d.Year())
		}
	}
	return unknownYear
}

// expandIndicators replaces a list-valued column with one 0/1 column per
// distinct value observed across the whole corpus. The category set is
// collected in a first pass and sorted, so the resulting schema does not
// depend on row order. Malformed cells count as empty lists.
func expandIndicators(t *table.Table, listCol, prefix string) (*table.Table, error) {
	col, ok := t.Column(listCol)
	if !ok {
		return t, nil
	}

	n := col.Len()
	lists := make([][]string, n)
	seen := make(map[string]struct{})
	for i := 0; i < n; i++ {
		raw, ok := col.Get(i).([]interface{})
		if !ok {
			continue
		}
		for _, e := range raw {
			s, ok := e.(string)
			if !ok {
				continue
			}
			lists[i] = append(lists[i], s)
			seen[s] = struct{}{}
		}
	}

	categories := make([]string, 0, len(seen))
	for c := range seen {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	out := t
	for _, category := range categories {
		ind := table.NewAnyColumn(n)
		for i := 0; i < n; i++ {
			ind.Append(indicatorValue(lists[i], category))
		}
		var err error
		out, err = out.WithColumn(prefix+category, ind)
		if err != nil {
			return nil, err
		}
	}
	return out.Drop(listCol), nil
}

func indicatorValue(list []string, category string) int64 {
	for _, v := range list {
		if v == category {
			return 1
		}
	}
	return 0
}

// buildReleaseCatalog keeps rows with a known developer and a resolved
// release year. The year column is rendered as a string here so the catalog
// carries one uniform type into its artifact.
func buildReleaseCatalog(base *table.Table) (*table.Table, error) {
	t := base.Filter(func(r table.Row) bool { return r.Get("developer") != nil })
	t, err := mapColumn(t, "release_date", func(v interface{}) interface{} {
		if v == nil {
			return unknownYear
		}
		return stringpool.ValueToString(v)
	})
	if err != nil {
		return nil, err
	}
	t = t.Filter(func(r table.Row) bool { return r.Get("release_date") != unknownYear })
	return t.Select("app_name", "release_date", "price", "id", "developer")
}

// buildGenreMatrix keeps the id plus every genre indicator with at least
// genreMatrixMinPositives positive rows among titles with a known developer.
func buildGenreMatrix(base *table.Table) (*table.Table, error) {
	t := base.Filter(func(r table.Row) bool { return r.Get("developer") != nil })
	keep := []string{"id"}
	for _, name := range columnsWithPrefix(t, "genre_") {
		if positiveCount(t, name) >= genreMatrixMinPositives {
			keep = append(keep, name)
		}
	}
	return t.Select(keep...)
}

// buildFeatureMatrix keeps identifying columns plus every genre and spec
// indicator with strictly more than featureMatrixMinPositives positive rows.
func buildFeatureMatrix(base *table.Table) (*table.Table, error) {
	t := base.Filter(func(r table.Row) bool { return r.Get("developer") != nil })
	keep := []string{"id", "app_name", "developer"}
	for _, name := range t.Columns() {
		if !strings.HasPrefix(name, "genre_") && !strings.HasPrefix(name, "spec_") {
			continue
		}
		if positiveCount(t, name) > featureMatrixMinPositives {
			keep = append(keep, name)
		}
	}
	return t.Select(keep...)
}

func columnsWithPrefix(t *table.Table, prefix string) []string {
	var out []string
	for _, name := range t.Columns() {
		if strings.HasPrefix(name, prefix) {
			out = append(out, name)
		}
	}
	return out
}

func positiveCount(t *table.Table, name string) int {
	col, ok := t.Column(name)
	if !ok {
		return 0
	}
	count := 0
	for i := 0; i < col.Len(); i++ {
		if v, ok := col.Get(i).(int64); ok && v == 1 {
			count++
		}
	}
	return count
}

// mapColumn rewrites one column cell by cell. A missing column is left
// alone, matching the permissive handling of inferred schemas.
func mapColumn(t *table.Table, name string, fn func(interface{}) interface{}) (*table.Table, error) {
	col, ok := t.Column(name)
	if !ok {
		return t, nil
	}
	out := table.NewAnyColumn(col.Len())
	for i := 0; i < col.Len(); i++ {
		out.Append(fn(col.Get(i)))
	}
	return t.WithColumn(name, out)
}
