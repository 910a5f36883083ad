// Package analyzer implements the text-analysis stage the indexing and
// retrieval pipeline treats as a single opaque function: lowercase,
// tokenize, drop stop words, and stem with the Snowball English
// algorithm. Indexing and querying must use the identical analyzer;
// ID fixes the identity string segments persist so a reader can
// refuse a mismatched analyzer instead of degrading recall silently.
package analyzer

import (
	"github.com/kljensen/snowball/english"
)

// ID is the analyzer identity persisted in segment sidecars. Bump it
// whenever tokenization, stop words, or stemming behavior changes.
const ID = "snowball-en-v1"

// stopWords mirrors a standard short English stop-word list; removed
// before stemming so stemming never runs on function words.
var stopWords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true,
	"at": true, "be": true, "by": true, "for": true, "from": true,
	"has": true, "he": true, "in": true, "is": true, "it": true,
	"its": true, "of": true, "on": true, "that": true, "the": true,
	"to": true, "was": true, "were": true, "will": true, "with": true,
}

// Analyzer turns raw document or query text into normalized terms.
// Stateless and safe for concurrent use; kept as a type (rather than a
// bare function) so callers can hold analyzer identity alongside it.
type Analyzer struct {
	tokenizer *Tokenizer
}

// New creates the standard analyzer.
func New() *Analyzer {
	return &Analyzer{tokenizer: NewTokenizer()}
}

// Analyze lowercases, tokenizes, drops stop words, and stems text into
// a term sequence suitable for interning into the term Id Map. An
// empty or entirely-stop-word input yields an empty slice.
func (a *Analyzer) Analyze(text string) []string {
	tokens := a.tokenizer.Tokenize(text)

	terms := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if stopWords[tok] {
			continue
		}
		terms = append(terms, english.Stem(tok, false))
	}
	return terms
}
