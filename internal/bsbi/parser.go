// Package bsbi implements the Blocked Sort-Based Indexing pipeline:
// parsing one block directory into term/doc occurrence pairs, folding
// those pairs into a per-block segment, and merging per-block segments
// into the final index.
package bsbi

import (
	"os"
	"path/filepath"
	"sort"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"medindex/internal/analyzer"
	"medindex/internal/idmap"
	"medindex/internal/ierr"
)

// Pair is one ⟨term-id, doc-id⟩ occurrence emitted by the block
// parser. The same pair may repeat; tf counting happens downstream in
// the inverter.
type Pair struct {
	TermID uint32
	DocID  uint32
}

// BlockParser turns one block directory into a sequence of Pairs,
// interning terms and the document's display name into the shared Id
// Maps as it goes.
type BlockParser struct {
	analyzer *analyzer.Analyzer
	terms    *idmap.IdMap
	docs     *idmap.IdMap
	log      zerolog.Logger
}

// NewBlockParser builds a parser sharing the given analyzer and Id
// Maps. IdMap.Intern is internally synchronized, so the same parser
// (or one per goroutine, sharing the same maps) may be used from
// multiple blocks running concurrently.
func NewBlockParser(a *analyzer.Analyzer, terms, docs *idmap.IdMap, log zerolog.Logger) *BlockParser {
	return &BlockParser{analyzer: a, terms: terms, docs: docs, log: log}
}

// ParseBlock reads every regular file directly inside blockDir (no
// descent into sub-directories) in lexicographic order and emits one
// Pair per analyzed token. A document that analyzes to zero tokens is
// skipped: no doc-id is allocated for it.
//
// File I/O errors propagate as IoError. A file that is not valid UTF-8
// is logged and skipped rather than aborting the block — this diverges
// from the original reference, which treats any file error as fatal.
func (p *BlockParser) ParseBlock(blockDir string) ([]Pair, error) {
	entries, err := os.ReadDir(blockDir)
	if err != nil {
		return nil, ierr.NewIoError("bsbi: read block dir "+blockDir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	blockName := filepath.Base(blockDir)
	var pairs []Pair
	for _, name := range names {
		fullPath := filepath.Join(blockDir, name)
		content, err := os.ReadFile(fullPath)
		if err != nil {
			return nil, ierr.NewIoError("bsbi: read file "+fullPath, err)
		}
		if !utf8.Valid(content) {
			p.log.Warn().Str("file", fullPath).Msg("skipping non-UTF-8 file")
			continue
		}

		tokens := p.analyzer.Analyze(string(content))
		if len(tokens) == 0 {
			continue
		}

		docName := filepath.Join(blockName, name)
		docID := p.docs.Intern(docName)
		for _, tok := range tokens {
			termID := p.terms.Intern(tok)
			pairs = append(pairs, Pair{TermID: termID, DocID: docID})
		}
	}
	return pairs, nil
}
