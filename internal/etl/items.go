package etl

import (
	"context"

	"go.uber.org/zap"

	"github.com/steamops/vapor/internal/source"
	"github.com/steamops/vapor/pkg/logger"
	"github.com/steamops/vapor/pkg/pyliteral"
	"github.com/steamops/vapor/pkg/table"
)

// Artifact name for the items dataset.
const ItemsPlaytime = "items_playtime"

// Fields lifted out of each nested item payload.
var itemPayloadFields = []string{"item_id", "item_name", "playtime_forever", "playtime_2weeks"}

// ItemsPipeline flattens the per-user owned-items feed and emits the
// playtime projection.
type ItemsPipeline struct {
	path   string
	opts   Options
	reader *source.Reader
	log    *zap.Logger
}

func NewItemsPipeline(path string, opts Options) *ItemsPipeline {
	return &ItemsPipeline{
		path:   path,
		opts:   opts,
		reader: source.NewReader(),
		log:    logger.Get().Named("etl").With(zap.String("dataset", "items")),
	}
}

func (p *ItemsPipeline) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	records, _, err := p.reader.ReadLiterals(p.path)
	if err != nil {
		return err
	}

	t := table.FromRows(records).Drop("user_url")
	t = t.Filter(func(r table.Row) bool { return !isZero(r.Get("items_count")) })
	t, err = mapColumn(t, "items", reparseItems)
	if err != nil {
		return err
	}
	t = flattenItems(t)
	t = t.DropDuplicates()
	t = t.Filter(func(r table.Row) bool { return r.Get("user_id") != nil })
	t = t.Filter(func(r table.Row) bool { return !isZero(r.Get("playtime_forever")) })
	p.log.Info("items flattened",
		zap.Int("rows", t.NumRows()),
		zap.Int("columns", t.NumColumns()))

	g := NewGraph("items")
	g.Add(Artifact{
		Name: ItemsPlaytime,
		Build: func(Deps) (*table.Table, error) {
			sub, err := t.Select("user_id", "item_id", "playtime_forever")
			if err != nil {
				return nil, err
			}
			return table.OptimizeTypes(sub), nil
		},
	})

	_, err = g.Run(p.opts)
	return err
}

// reparseItems handles feeds where the item list arrives as a string-encoded
// literal needing a second parse pass. Unparseable strings become missing.
func reparseItems(v interface{}) interface{} {
	s, ok := v.(string)
	if !ok {
		return v
	}
	parsed, err := pyliteral.Parse(s)
	if err != nil {
		return nil
	}
	return parsed
}

// flattenItems expands each user's item list to one row per item. Unlike the
// review flatten, a missing or malformed payload still produces a row, with
// the extracted fields missing; those rows fall to the later filters.
func flattenItems(t *table.Table) *table.Table {
	scalars := make([]string, 0, t.NumColumns())
	for _, name := range t.Columns() {
		if name != "items" {
			scalars = append(scalars, name)
		}
	}

	b := table.NewBuilder(append(append([]string{}, scalars...), itemPayloadFields...)...)
	for i := 0; i < t.NumRows(); i++ {
		payloads := explode(t.Cell(i, "items"))
		if len(payloads) == 0 {
			payloads = []interface{}{nil}
		}
		for _, payload := range payloads {
			row := make(map[string]interface{}, len(scalars)+len(itemPayloadFields))
			for _, name := range scalars {
				row[name] = t.Cell(i, name)
			}
			if obj, ok := payload.(map[string]interface{}); ok {
				for _, field := range itemPayloadFields {
					row[field] = obj[field]
				}
			}
			b.Append(row)
		}
	}
	return b.Table()
}

// isZero reports whether a cell holds the number 0. Missing cells are not
// zero; they pass the zero filters and fall to the null filters instead.
func isZero(v interface{}) bool {
	switch n := v.(type) {
	case int64:
		return n == 0
	case float64:
		return n == 0
	default:
		return false
	}
}
