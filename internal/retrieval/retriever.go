// Package retrieval implements Term-at-a-Time scoring over a merged
// postings segment: Okapi BM25 as the primary ranking function and
// log-TF·IDF as an auxiliary path, both accumulating per-document
// scores and returning the top-k by descending score.
package retrieval

import (
	"math"
	"sort"

	"medindex/internal/analyzer"
	"medindex/internal/idmap"
	"medindex/internal/segment"
)

// Mode selects the scoring function applied per posting.
type Mode int

const (
	// BM25 is the default, primary ranking function.
	BM25 Mode = iota
	// TFIDF is the auxiliary log-TF·IDF scoring path.
	TFIDF
)

// Params holds the tunable scoring constants. Zero-value Params is
// invalid; use DefaultParams.
type Params struct {
	K1 float64
	B  float64
}

// DefaultParams matches the reference formula's defaults.
func DefaultParams() Params {
	return Params{K1: 1.5, B: 0.75}
}

// Result is one ranked hit: a document's display name and its
// accumulated score.
type Result struct {
	DisplayName string
	Score       float64
}

// Retriever answers queries against a single merged segment. It holds
// no per-query state and is safe to share across concurrent queries,
// since the segment reader is immutable after open.
type Retriever struct {
	reader   *segment.Reader
	terms    *idmap.IdMap
	docs     *idmap.IdMap
	analyzer *analyzer.Analyzer
	params   Params
}

// New builds a Retriever over an already-open segment and its Id
// Maps. It panics if the segment's recorded analyzer identity does
// not match analyzer.ID, per the analyzer-coupling requirement:
// indexing and querying must share one analyzer.
func New(reader *segment.Reader, terms, docs *idmap.IdMap, a *analyzer.Analyzer, params Params) *Retriever {
	if reader.AnalyzerID() != analyzer.ID {
		panic("retrieval: segment analyzer " + reader.AnalyzerID() + " does not match query-time analyzer " + analyzer.ID)
	}
	return &Retriever{reader: reader, terms: terms, docs: docs, analyzer: a, params: params}
}

// Query runs Term-at-a-Time scoring over query, in the given mode, and
// returns the top-k results by descending score, ties broken by
// ascending doc-id. Query terms absent from the vocabulary are
// silently skipped. A query that analyzes to zero tokens, or whose
// tokens are all out of vocabulary, returns an empty (non-nil-safe)
// result list, never an error.
func (r *Retriever) Query(query string, mode Mode, k int) ([]Result, error) {
	tokens := r.analyzer.Analyze(query)
	if len(tokens) == 0 {
		return []Result{}, nil
	}

	n := float64(r.reader.NumDocs())
	avgLen := r.reader.AvgDocLength()
	scores := make(map[uint32]float64)

	for _, tok := range tokens {
		termID, ok := r.terms.GetID(tok)
		if !ok {
			continue
		}
		df, ok := r.reader.DF(termID)
		if !ok {
			continue
		}
		idf := math.Log(n / float64(df))

		docIDs, tfs, err := r.reader.GetPostings(termID)
		if err != nil {
			return nil, err
		}
		for i, d := range docIDs {
			tf := float64(tfs[i])
			var contribution float64
			switch mode {
			case BM25:
				length, _ := r.reader.DocLength(d)
				denom := r.params.K1*((1-r.params.B)+r.params.B*float64(length)/avgLen) + tf
				contribution = idf * tf * (r.params.K1 + 1) / denom
			case TFIDF:
				contribution = idf * (1 + math.Log(tf))
			}
			scores[d] += contribution
		}
	}

	return topK(scores, r.docs, k), nil
}

func topK(scores map[uint32]float64, docs *idmap.IdMap, k int) []Result {
	docIDs := make([]uint32, 0, len(scores))
	for d := range scores {
		docIDs = append(docIDs, d)
	}
	sort.Slice(docIDs, func(i, j int) bool {
		si, sj := scores[docIDs[i]], scores[docIDs[j]]
		if si != sj {
			return si > sj
		}
		return docIDs[i] < docIDs[j]
	})
	if k >= 0 && len(docIDs) > k {
		docIDs = docIDs[:k]
	}

	results := make([]Result, 0, len(docIDs))
	for _, d := range docIDs {
		name, _ := docs.NameOf(d)
		results = append(results, Result{DisplayName: name, Score: scores[d]})
	}
	return results
}
