package retrieval

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medindex/internal/analyzer"
	"medindex/internal/bsbi"
	"medindex/internal/segment"
	"medindex/internal/vbe"
)

func buildS1Index(t *testing.T) (*bsbi.Orchestrator, string) {
	t.Helper()
	root := t.TempDir()
	block := filepath.Join(root, "blk1")
	require.NoError(t, os.Mkdir(block, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(block, "A.txt"), []byte("cat dog cat"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(block, "B.txt"), []byte("dog dog bird"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(block, "C.txt"), []byte("bird cat"), 0o644))

	outDir := t.TempDir()
	o := bsbi.New(root, outDir, vbe.VBE{}, analyzer.New(), zerolog.Nop())
	require.NoError(t, o.Run(context.Background()))
	return o, outDir
}

func TestQueryRanksByBM25S1(t *testing.T) {
	o, outDir := buildS1Index(t)
	r, err := segment.Open(filepath.Join(outDir, "main_index"))
	require.NoError(t, err)
	defer r.Close()

	retriever := New(r, o.Terms, o.Docs, analyzer.New(), DefaultParams())
	results, err := retriever.Query("cat", BM25, 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, filepath.Join("blk1", "A.txt"), results[0].DisplayName)
	assert.Equal(t, filepath.Join("blk1", "C.txt"), results[1].DisplayName)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestQueryAbsentTermReturnsEmptyS2(t *testing.T) {
	o, outDir := buildS1Index(t)
	r, err := segment.Open(filepath.Join(outDir, "main_index"))
	require.NoError(t, err)
	defer r.Close()

	retriever := New(r, o.Terms, o.Docs, analyzer.New(), DefaultParams())
	results, err := retriever.Query("xyzzy", BM25, 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestQueryIsDeterministic(t *testing.T) {
	o, outDir := buildS1Index(t)
	r, err := segment.Open(filepath.Join(outDir, "main_index"))
	require.NoError(t, err)
	defer r.Close()

	retriever := New(r, o.Terms, o.Docs, analyzer.New(), DefaultParams())
	first, err := retriever.Query("cat dog bird", BM25, 10)
	require.NoError(t, err)
	second, err := retriever.Query("cat dog bird", BM25, 10)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestQueryEmptyAfterAnalysis(t *testing.T) {
	o, outDir := buildS1Index(t)
	r, err := segment.Open(filepath.Join(outDir, "main_index"))
	require.NoError(t, err)
	defer r.Close()

	retriever := New(r, o.Terms, o.Docs, analyzer.New(), DefaultParams())
	results, err := retriever.Query("the and of", BM25, 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}
