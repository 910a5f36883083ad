package bsbi

import (
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medindex/internal/segment"
	"medindex/internal/vbe"
)

func buildSegment(t *testing.T, name string, postings map[uint32]map[uint32]uint32) string {
	t.Helper()
	base := filepath.Join(t.TempDir(), name)
	w, err := segment.NewWriter(base, vbe.VBE{}, "test-analyzer-v1")
	require.NoError(t, err)

	termIDs := make([]uint32, 0, len(postings))
	for termID := range postings {
		termIDs = append(termIDs, termID)
	}
	sort.Slice(termIDs, func(i, j int) bool { return termIDs[i] < termIDs[j] })

	for _, termID := range termIDs {
		docCounts := postings[termID]
		docIDs := make([]uint32, 0, len(docCounts))
		for d := range docCounts {
			docIDs = append(docIDs, d)
		}
		sort.Slice(docIDs, func(i, j int) bool { return docIDs[i] < docIDs[j] })

		tfs := make([]uint32, len(docIDs))
		for i, d := range docIDs {
			tfs[i] = docCounts[d]
		}
		require.NoError(t, w.Append(termID, docIDs, tfs))
	}
	require.NoError(t, w.Close())
	return base
}

// TestMergeSumsOverlappingDocTermPair covers spec.md §3's core merge
// invariant directly: when the same (term-id, doc-id) pair appears in
// more than one source segment, the merged segment must contain it
// exactly once with tf equal to the sum across segments.
func TestMergeSumsOverlappingDocTermPair(t *testing.T) {
	segA := buildSegment(t, "segA", map[uint32]map[uint32]uint32{
		0: {0: 2},
		1: {5: 1},
	})
	segB := buildSegment(t, "segB", map[uint32]map[uint32]uint32{
		0: {0: 3, 2: 1},
		2: {1: 4},
	})

	rA, err := segment.Open(segA)
	require.NoError(t, err)
	defer rA.Close()
	rB, err := segment.Open(segB)
	require.NoError(t, err)
	defer rB.Close()

	outBase := filepath.Join(t.TempDir(), "merged")
	w, err := segment.NewWriter(outBase, vbe.VBE{}, "test-analyzer-v1")
	require.NoError(t, err)
	require.NoError(t, Merge([]*segment.Reader{rA, rB}, w))
	require.NoError(t, w.Close())

	r, err := segment.Open(outBase)
	require.NoError(t, err)
	defer r.Close()

	docs, tfs, err := r.GetPostings(0)
	require.NoError(t, err)
	assert.Equal(t, []uint32{0, 2}, docs)
	assert.Equal(t, []uint32{5, 1}, tfs) // doc 0: 2+3=5 (collided), doc 2: 1 (only in B)

	df, ok := r.DF(0)
	require.True(t, ok)
	assert.Equal(t, 2, df) // the colliding pair appears exactly once

	docs, tfs, err = r.GetPostings(1)
	require.NoError(t, err)
	assert.Equal(t, []uint32{5}, docs)
	assert.Equal(t, []uint32{1}, tfs)

	docs, tfs, err = r.GetPostings(2)
	require.NoError(t, err)
	assert.Equal(t, []uint32{1}, docs)
	assert.Equal(t, []uint32{4}, tfs)

	// doc_length must reflect the summed tf, not either source's tf
	// in isolation: doc 0 gets term0 tf=5 only.
	length, ok := r.DocLength(0)
	require.True(t, ok)
	assert.Equal(t, uint64(5), length)
}
