package bsbi

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"medindex/internal/analyzer"
	"medindex/internal/idmap"
	"medindex/internal/ierr"
	"medindex/internal/segment"
	"medindex/internal/vbe"
)

// Orchestrator discovers blocks under a collection root, drives
// parse → invert → merge, and persists the Id Maps and final segment
// to an output directory.
type Orchestrator struct {
	DataDir   string
	OutputDir string
	Codec     vbe.Codec
	Analyzer  *analyzer.Analyzer
	Log       zerolog.Logger

	// Parallel runs each block's parse stage (I/O + analyze) in its
	// own goroutine under an errgroup. The shared Id Maps are safe for
	// this because IdMap.Intern is internally synchronized, but
	// cross-block doc-id assignment order is then a function of
	// goroutine scheduling, not lexicographic block order — acceptable
	// per the concurrency model's block-parallelism allowance, but it
	// forfeits the single-threaded run's doc-id determinism across
	// blocks (within one block, doc-ids still ascend in file order, but
	// their values depend on how the blocks interleave).
	Parallel bool

	Terms *idmap.IdMap
	Docs  *idmap.IdMap
}

// New builds an orchestrator with fresh, empty Id Maps.
func New(dataDir, outputDir string, codec vbe.Codec, a *analyzer.Analyzer, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		DataDir:   dataDir,
		OutputDir: outputDir,
		Codec:     codec,
		Analyzer:  a,
		Log:       log,
		Terms:     idmap.New(),
		Docs:      idmap.New(),
	}
}

// Run executes the full indexing pipeline: block discovery, per-block
// parse/invert, Id Map persistence, and the final external merge into
// main_index. Intermediate per-block segments are deleted on success.
func (o *Orchestrator) Run(ctx context.Context) error {
	blocks, err := o.discoverBlocks()
	if err != nil {
		return err
	}
	o.Log.Info().Int("blocks", len(blocks)).Msg("discovered blocks")

	intermediates, err := o.parseAndInvert(ctx, blocks)
	if err != nil {
		return err
	}

	if err := o.Terms.Save(filepath.Join(o.OutputDir, "terms.dict")); err != nil {
		return err
	}
	if err := o.Docs.Save(filepath.Join(o.OutputDir, "docs.dict")); err != nil {
		return err
	}
	o.Log.Info().Int("terms", o.Terms.Len()).Int("docs", o.Docs.Len()).Msg("persisted id maps")

	if err := o.mergeAll(intermediates); err != nil {
		return err
	}

	for _, base := range intermediates {
		_ = os.Remove(base + ".index")
		_ = os.Remove(base + ".dict")
	}
	return nil
}

func (o *Orchestrator) discoverBlocks() ([]string, error) {
	entries, err := os.ReadDir(o.DataDir)
	if err != nil {
		return nil, ierr.NewIoError("orchestrator: read data dir", err)
	}
	var blocks []string
	for _, e := range entries {
		if e.IsDir() {
			blocks = append(blocks, e.Name())
		}
	}
	sort.Strings(blocks)
	return blocks, nil
}

func (o *Orchestrator) parseAndInvert(ctx context.Context, blocks []string) ([]string, error) {
	pairsByBlock := make([][]Pair, len(blocks))

	if o.Parallel {
		g, gctx := errgroup.WithContext(ctx)
		for i, block := range blocks {
			i, block := i, block
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				parser := NewBlockParser(o.Analyzer, o.Terms, o.Docs, o.Log)
				pairs, err := parser.ParseBlock(filepath.Join(o.DataDir, block))
				if err != nil {
					return err
				}
				pairsByBlock[i] = pairs
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		parser := NewBlockParser(o.Analyzer, o.Terms, o.Docs, o.Log)
		for i, block := range blocks {
			pairs, err := parser.ParseBlock(filepath.Join(o.DataDir, block))
			if err != nil {
				return nil, err
			}
			pairsByBlock[i] = pairs
		}
	}

	intermediates := make([]string, 0, len(blocks))
	for i, block := range blocks {
		base := filepath.Join(o.OutputDir, "intermediate_"+block)
		w, err := segment.NewWriter(base, o.Codec, analyzer.ID)
		if err != nil {
			return nil, err
		}
		if err := InvertBlock(pairsByBlock[i], w); err != nil {
			w.Close()
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		o.Log.Info().Str("block", block).Int("pairs", len(pairsByBlock[i])).Msg("inverted block")
		intermediates = append(intermediates, base)
	}
	return intermediates, nil
}

func (o *Orchestrator) mergeAll(intermediates []string) (err error) {
	readers := make([]*segment.Reader, 0, len(intermediates))
	defer func() {
		for _, r := range readers {
			r.Close()
		}
	}()
	for _, base := range intermediates {
		r, err := segment.Open(base)
		if err != nil {
			return err
		}
		readers = append(readers, r)
	}

	w, err := segment.NewWriter(filepath.Join(o.OutputDir, "main_index"), o.Codec, analyzer.ID)
	if err != nil {
		return err
	}
	if err := Merge(readers, w); err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	o.Log.Info().Msg("merged main index")
	return nil
}
