package bsbi

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medindex/internal/analyzer"
	"medindex/internal/idmap"
	"medindex/internal/segment"
	"medindex/internal/vbe"
)

func writeDoc(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

// S1 fixture: single block {A: "cat dog cat", B: "dog dog bird",
// C: "bird cat"}.
func setupSingleBlockCollection(t *testing.T) string {
	root := t.TempDir()
	block := filepath.Join(root, "blk1")
	require.NoError(t, os.Mkdir(block, 0o755))
	writeDoc(t, block, "A.txt", "cat dog cat")
	writeDoc(t, block, "B.txt", "dog dog bird")
	writeDoc(t, block, "C.txt", "bird cat")
	return root
}

func TestParseBlockAssignsIdsInLexicographicOrder(t *testing.T) {
	root := setupSingleBlockCollection(t)
	terms := idmap.New()
	docs := idmap.New()
	p := NewBlockParser(analyzer.New(), terms, docs, zerolog.Nop())

	pairs, err := p.ParseBlock(filepath.Join(root, "blk1"))
	require.NoError(t, err)
	assert.NotEmpty(t, pairs)

	aID, ok := docs.GetID(filepath.Join("blk1", "A.txt"))
	require.True(t, ok)
	bID, ok := docs.GetID(filepath.Join("blk1", "B.txt"))
	require.True(t, ok)
	assert.Less(t, aID, bID)
}

func TestParseBlockSkipsEmptyAnalysisDocs(t *testing.T) {
	root := t.TempDir()
	block := filepath.Join(root, "blk1")
	require.NoError(t, os.Mkdir(block, 0o755))
	writeDoc(t, block, "empty.txt", "the and of")
	writeDoc(t, block, "real.txt", "cat")

	terms := idmap.New()
	docs := idmap.New()
	p := NewBlockParser(analyzer.New(), terms, docs, zerolog.Nop())
	_, err := p.ParseBlock(block)
	require.NoError(t, err)

	assert.False(t, docs.Contains(filepath.Join("blk1", "empty.txt")))
	assert.True(t, docs.Contains(filepath.Join("blk1", "real.txt")))
}

func TestParseBlockIgnoresSubdirectories(t *testing.T) {
	root := t.TempDir()
	block := filepath.Join(root, "blk1")
	require.NoError(t, os.Mkdir(block, 0o755))
	require.NoError(t, os.Mkdir(filepath.Join(block, "nested"), 0o755))
	writeDoc(t, filepath.Join(block, "nested"), "deep.txt", "buried")
	writeDoc(t, block, "shallow.txt", "cat")

	terms := idmap.New()
	docs := idmap.New()
	p := NewBlockParser(analyzer.New(), terms, docs, zerolog.Nop())
	pairs, err := p.ParseBlock(block)
	require.NoError(t, err)

	assert.Len(t, pairs, 1)
	assert.False(t, terms.Contains("buri"))
}

func runOrchestrator(t *testing.T, root, outDir string) *Orchestrator {
	t.Helper()
	o := New(root, outDir, vbe.VBE{}, analyzer.New(), zerolog.Nop())
	require.NoError(t, o.Run(context.Background()))
	return o
}

func TestOrchestratorSingleBlockMatchesS1(t *testing.T) {
	root := setupSingleBlockCollection(t)
	outDir := t.TempDir()
	o := runOrchestrator(t, root, outDir)

	r, err := segment.Open(filepath.Join(outDir, "main_index"))
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, 3, r.NumDocs())
	assert.InDelta(t, 8.0/3.0, r.AvgDocLength(), 1e-9)

	catID, ok := o.Terms.GetID("cat")
	require.True(t, ok)
	df, ok := r.DF(catID)
	require.True(t, ok)
	assert.Equal(t, 2, df)

	docIDs, tfs, err := r.GetPostings(catID)
	require.NoError(t, err)
	aID, _ := o.Docs.GetID(filepath.Join("blk1", "A.txt"))
	cID, _ := o.Docs.GetID(filepath.Join("blk1", "C.txt"))
	for i, d := range docIDs {
		if d == aID {
			assert.Equal(t, uint32(2), tfs[i])
		}
		if d == cID {
			assert.Equal(t, uint32(1), tfs[i])
		}
	}

	_, err = os.Stat(filepath.Join(outDir, "intermediate_blk1.index"))
	assert.True(t, os.IsNotExist(err))
}

// S3: two blocks {blk1:{A,B}, blk2:{C}} indexed and merged must
// reproduce the same postings as indexing all three as one block.
func TestOrchestratorTwoBlocksMatchesOneBlockS3(t *testing.T) {
	twoBlockRoot := t.TempDir()
	blk1 := filepath.Join(twoBlockRoot, "blk1")
	blk2 := filepath.Join(twoBlockRoot, "blk2")
	require.NoError(t, os.Mkdir(blk1, 0o755))
	require.NoError(t, os.Mkdir(blk2, 0o755))
	writeDoc(t, blk1, "A.txt", "cat dog cat")
	writeDoc(t, blk1, "B.txt", "dog dog bird")
	writeDoc(t, blk2, "C.txt", "bird cat")

	outDir := t.TempDir()
	o := runOrchestrator(t, twoBlockRoot, outDir)
	r, err := segment.Open(filepath.Join(outDir, "main_index"))
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, 3, r.NumDocs())
	assert.InDelta(t, 8.0/3.0, r.AvgDocLength(), 1e-9)

	catID, ok := o.Terms.GetID("cat")
	require.True(t, ok)
	df, ok := r.DF(catID)
	require.True(t, ok)
	assert.Equal(t, 2, df)

	dogID, ok := o.Terms.GetID("dog")
	require.True(t, ok)
	df, ok = r.DF(dogID)
	require.True(t, ok)
	assert.Equal(t, 2, df)
}
