package bsbi

import (
	"container/heap"

	"medindex/internal/segment"
)

// mergeHead is one segment's current position in the N-way merge: the
// term it's parked on, that term's postings, and the iterator to pull
// the next term from once this one is consumed.
type mergeHead struct {
	termID uint32
	docIDs []uint32
	tfs    []uint32
	it     *segment.Iterator
}

type headHeap []*mergeHead

func (h headHeap) Len() int            { return len(h) }
func (h headHeap) Less(i, j int) bool  { return h[i].termID < h[j].termID }
func (h headHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *headHeap) Push(x any)         { *h = append(*h, x.(*mergeHead)) }
func (h *headHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Merge performs an N-way merge by term-id across readers' term-
// ordered iterators, writing the result to w. When multiple readers
// share a term-id, their postings are reduced by repeated sorted
// merge: equal doc-ids have their tfs summed.
func Merge(readers []*segment.Reader, w *segment.Writer) error {
	h := &headHeap{}
	heap.Init(h)

	for _, r := range readers {
		it := r.Iterator()
		termID, docIDs, tfs, ok, err := it.Next()
		if err != nil {
			return err
		}
		if ok {
			heap.Push(h, &mergeHead{termID: termID, docIDs: docIDs, tfs: tfs, it: it})
		}
	}

	for h.Len() > 0 {
		termID := (*h)[0].termID
		var docIDs, tfs []uint32
		for h.Len() > 0 && (*h)[0].termID == termID {
			head := heap.Pop(h).(*mergeHead)
			docIDs, tfs = sortedMergeAdd(docIDs, tfs, head.docIDs, head.tfs)

			nextTerm, nextDocs, nextTfs, ok, err := head.it.Next()
			if err != nil {
				return err
			}
			if ok {
				heap.Push(h, &mergeHead{termID: nextTerm, docIDs: nextDocs, tfs: nextTfs, it: head.it})
			}
		}
		if err := w.Append(termID, docIDs, tfs); err != nil {
			return err
		}
	}
	return nil
}

// sortedMergeAdd merges two ascending (doc-id, tf) streams into one
// ascending stream, summing tfs where doc-ids collide.
func sortedMergeAdd(aDocs, aTfs, bDocs, bTfs []uint32) ([]uint32, []uint32) {
	if aDocs == nil {
		return bDocs, bTfs
	}
	docs := make([]uint32, 0, len(aDocs)+len(bDocs))
	tfs := make([]uint32, 0, len(aDocs)+len(bDocs))
	i, j := 0, 0
	for i < len(aDocs) && j < len(bDocs) {
		switch {
		case aDocs[i] < bDocs[j]:
			docs = append(docs, aDocs[i])
			tfs = append(tfs, aTfs[i])
			i++
		case aDocs[i] > bDocs[j]:
			docs = append(docs, bDocs[j])
			tfs = append(tfs, bTfs[j])
			j++
		default:
			docs = append(docs, aDocs[i])
			tfs = append(tfs, aTfs[i]+bTfs[j])
			i++
			j++
		}
	}
	docs = append(docs, aDocs[i:]...)
	tfs = append(tfs, aTfs[i:]...)
	docs = append(docs, bDocs[j:]...)
	tfs = append(tfs, bTfs[j:]...)
	return docs, tfs
}
