package etl

import (
	"context"

	"go.uber.org/zap"

	"github.com/steamops/vapor/internal/source"
	"github.com/steamops/vapor/pkg/logger"
	"github.com/steamops/vapor/pkg/sentiment"
	"github.com/steamops/vapor/pkg/table"
	"github.com/steamops/vapor/pkg/text"
)

// Artifact names for the reviews dataset.
const (
	ReviewsRecommendations = "reviews_recommendations"
	ReviewsSentiment       = "reviews_sentiment"
	ReviewsItemSentiment   = "reviews_item_sentiment"
)

// Fields lifted out of each nested review payload, in column order.
var reviewPayloadFields = []string{"funny", "posted", "last_edited", "item_id", "helpful", "recommend", "review_text"}

// ReviewsPipeline flattens the per-user review feed, scores sentiment, and
// emits its three projections. The normalizer and analyzer are constructed
// once and read-only afterwards.
type ReviewsPipeline struct {
	path       string
	opts       Options
	reader     *source.Reader
	normalizer *text.Normalizer
	analyzer   *sentiment.Analyzer
	log        *zap.Logger
}

func NewReviewsPipeline(path string, opts Options) *ReviewsPipeline {
	return &ReviewsPipeline{
		path:       path,
		opts:       opts,
		reader:     source.NewReader(),
		normalizer: text.NewNormalizer(),
		analyzer:   sentiment.NewAnalyzer(),
		log:        logger.Get().Named("etl").With(zap.String("dataset", "reviews")),
	}
}

func (p *ReviewsPipeline) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	records, _, err := p.reader.ReadLiterals(p.path)
	if err != nil {
		return err
	}

	t := table.FromRows(records).Drop("user_url").DropEmptyRows()
	t = flattenReviews(t)
	t = t.DropDuplicates()
	t = t.Drop("funny", "last_edited", "helpful")

	t, err = p.scoreReviews(t)
	if err != nil {
		return err
	}
	p.log.Info("reviews scored",
		zap.Int("rows", t.NumRows()),
		zap.Int("columns", t.NumColumns()))

	g := NewGraph("reviews")
	g.Add(Artifact{
		Name: ReviewsRecommendations,
		Build: func(Deps) (*table.Table, error) {
			sub := t.Filter(func(r table.Row) bool { return r.Get("recommend") != nil })
			sub, err := sub.Select("user_id", "item_id", "recommend")
			if err != nil {
				return nil, err
			}
			return table.OptimizeTypes(sub), nil
		},
	})
	g.Add(Artifact{
		Name: ReviewsSentiment,
		Build: func(Deps) (*table.Table, error) {
			sub := t.Filter(func(r table.Row) bool { return r.Get("recommend") != nil })
			return sub.Select("item_id", "recommend", "sentiment_analysis")
		},
	})
	g.Add(Artifact{
		Name:      ReviewsItemSentiment,
		DependsOn: []string{ReviewsSentiment},
		Build: func(d Deps) (*table.Table, error) {
			return d[ReviewsSentiment].Select("item_id", "sentiment_analysis")
		},
	})

	_, err = g.Run(p.opts)
	return err
}

// flattenReviews expands each user's review list to one row per review,
// keeping only payloads that are well-formed objects carrying a review-text
// key. Scalar user fields are replicated onto every produced row.
func flattenReviews(t *table.Table) *table.Table {
	scalars := make([]string, 0, t.NumColumns())
	for _, name := range t.Columns() {
		if name != "reviews" {
			scalars = append(scalars, name)
		}
	}

	b := table.NewBuilder(append(append([]string{}, scalars...), reviewPayloadFields...)...)
	for i := 0; i < t.NumRows(); i++ {
		for _, payload := range explode(t.Cell(i, "reviews")) {
			obj, ok := payload.(map[string]interface{})
			if !ok {
				continue
			}
			if _, has := obj["review"]; !has {
				continue
			}
			row := make(map[string]interface{}, len(scalars)+len(reviewPayloadFields))
			for _, name := range scalars {
				row[name] = t.Cell(i, name)
			}
			row["funny"] = obj["funny"]
			row["posted"] = obj["posted"]
			row["last_edited"] = obj["last_edited"]
			row["item_id"] = obj["item_id"]
			row["helpful"] = obj["helpful"]
			row["recommend"] = obj["recommend"]
			row["review_text"] = obj["review"]
			b.Append(row)
		}
	}
	return b.Table()
}

// explode turns a one-to-many cell into its elements. A scalar cell is a
// single element; a missing cell has none.
func explode(v interface{}) []interface{} {
	switch list := v.(type) {
	case nil:
		return nil
	case []interface{}:
		return list
	default:
		return []interface{}{list}
	}
}

// scoreReviews derives cleaned_review from review_text and sentiment_analysis
// from cleaned_review. A non-string review text yields a missing cleaned
// value, which scores Neutral.
func (p *ReviewsPipeline) scoreReviews(t *table.Table) (*table.Table, error) {
	n := t.NumRows()
	cleaned := table.NewAnyColumn(n)
	labels := table.NewAnyColumn(n)
	for i := 0; i < n; i++ {
		raw, ok := t.Cell(i, "review_text").(string)
		if !ok {
			cleaned.Append(nil)
			labels.Append(int64(sentiment.Neutral))
			continue
		}
		body := p.normalizer.Clean(raw)
		cleaned.Append(body)
		labels.Append(int64(p.analyzer.Score(body)))
	}

	t, err := t.WithColumn("cleaned_review", cleaned)
	if err != nil {
		return nil, err
	}
	return t.WithColumn("sentiment_analysis", labels)
}
