// Package text normalizes review text ahead of sentiment scoring:
// lowercase, URL removal, stripping of everything outside lowercase letters
// and whitespace, tokenization, stopword filtering, and stemming.
package text

import (
	"regexp"
	"strings"

	"github.com/kljensen/snowball/english"

	stringpool "github.com/steamops/vapor/pkg/strings"
)

// StemFunc maps one token to its stem.
type StemFunc func(string) string

// Normalizer holds the lexicon resources for text normalization. Resources
// are loaded once at construction and read-only afterwards, so a Normalizer
// is safe for concurrent use and substitutable in tests.
type Normalizer struct {
	stopwords map[string]struct{}
	stem      StemFunc
	urls      *regexp.Regexp
	nonAlpha  *regexp.Regexp
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithStopwords replaces the default stopword set.
func WithStopwords(set map[string]struct{}) Option {
	return func(n *Normalizer) { n.stopwords = set }
}

// WithStemmer replaces the default stemmer.
func WithStemmer(stem StemFunc) Option {
	return func(n *Normalizer) { n.stem = stem }
}

// NewNormalizer creates a Normalizer with the English stopword set and the
// snowball English stemmer unless overridden.
func NewNormalizer(opts ...Option) *Normalizer {
	n := &Normalizer{
		stopwords: DefaultStopwords(),
		stem: func(w string) string {
			return english.Stem(w, false)
		},
		urls:     regexp.MustCompile(`http\S+`),
		nonAlpha: regexp.MustCompile(`[^a-z\s]`),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Clean normalizes one text. A text with no surviving tokens cleans to the
// empty string.
func (n *Normalizer) Clean(text string) string {
	text = strings.ToLower(text)
	text = n.urls.ReplaceAllString(text, "")
	text = n.nonAlpha.ReplaceAllString(text, "")

	tokens := strings.Fields(text)
	kept := tokens[:0]
	for _, tok := range tokens {
		if _, stop := n.stopwords[tok]; stop {
			continue
		}
		kept = append(kept, n.stem(tok))
	}
	return stringpool.Join(kept, " ")
}
