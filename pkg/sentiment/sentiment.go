// Package sentiment scores cleaned review text with a fixed lexicon
// classifier. The compound polarity comes from a VADER lexicon; the
// three-way label uses the conventional ±0.05 thresholds.
package sentiment

import (
	"github.com/grassmudhorses/vader-go/lexicon"
	"github.com/grassmudhorses/vader-go/sentitext"
)

// Label is the three-way sentiment encoding used by the projections.
type Label = int64

const (
	// Negative marks compound polarity at or below -0.05
	Negative Label = 0
	// Neutral marks text with no signal, including missing text
	Neutral Label = 1
	// Positive marks compound polarity at or above +0.05
	Positive Label = 2
)

// positiveThreshold and negativeThreshold bound the neutral band.
const (
	positiveThreshold = 0.05
	negativeThreshold = -0.05
)

// Analyzer scores text against a fixed sentiment lexicon. Scoring is pure:
// the same cleaned text always yields the same label.
type Analyzer struct {
	lexicon lexicon.Lexicon
}

// NewAnalyzer creates an Analyzer over the default VADER lexicon.
func NewAnalyzer() *Analyzer {
	return &Analyzer{lexicon: lexicon.DefaultLexicon}
}

// Compound returns the compound polarity score for a text.
func (a *Analyzer) Compound(text string) float64 {
	parsed := sentitext.Parse(text, a.lexicon)
	return sentitext.PolarityScore(parsed).Compound
}

// Score labels a cleaned text. Missing text (nil) is Neutral by definition:
// no text carries no signal and must not read as negative.
func (a *Analyzer) Score(text interface{}) Label {
	s, ok := text.(string)
	if !ok {
		return Neutral
	}
	compound := a.Compound(s)
	switch {
	case compound >= positiveThreshold:
		return Positive
	case compound <= negativeThreshold:
		return Negative
	default:
		return Neutral
	}
}
