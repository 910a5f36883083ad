package bsbi

import (
	"sort"

	"medindex/internal/segment"
)

// InvertBlock collapses a block's ⟨term-id, doc-id⟩ pairs into
// term_id → doc_id → tf by counting, then flushes them to w in
// ascending term-id order, each term's postings flattened in
// ascending doc-id order. The in-memory structure is discarded when
// this returns.
func InvertBlock(pairs []Pair, w *segment.Writer) error {
	counts := make(map[uint32]map[uint32]uint32)
	for _, p := range pairs {
		docCounts, ok := counts[p.TermID]
		if !ok {
			docCounts = make(map[uint32]uint32)
			counts[p.TermID] = docCounts
		}
		docCounts[p.DocID]++
	}

	termIDs := make([]uint32, 0, len(counts))
	for t := range counts {
		termIDs = append(termIDs, t)
	}
	sort.Slice(termIDs, func(i, j int) bool { return termIDs[i] < termIDs[j] })

	for _, t := range termIDs {
		docCounts := counts[t]
		docIDs := make([]uint32, 0, len(docCounts))
		for d := range docCounts {
			docIDs = append(docIDs, d)
		}
		sort.Slice(docIDs, func(i, j int) bool { return docIDs[i] < docIDs[j] })

		tfs := make([]uint32, len(docIDs))
		for i, d := range docIDs {
			tfs[i] = docCounts[d]
		}
		if err := w.Append(t, docIDs, tfs); err != nil {
			return err
		}
	}
	return nil
}
