package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"medindex/internal/analyzer"
	"medindex/internal/config"
	"medindex/internal/idmap"
	"medindex/internal/retrieval"
	"medindex/internal/segment"
)

func newQueryCmd() *cobra.Command {
	var (
		outputDir string
		modeFlag  string
		k         int
	)

	cmd := &cobra.Command{
		Use:   "query [text]",
		Short: "Run a ranked query against a built index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if outputDir == "" {
				outputDir = cfg.OutputDir
			}

			var mode retrieval.Mode
			var defaultK int
			switch modeFlag {
			case "", "bm25":
				mode = retrieval.BM25
				defaultK = cfg.DefaultKBM25
			case "tfidf":
				mode = retrieval.TFIDF
				defaultK = cfg.DefaultKTfidf
			default:
				logger.Fatal().Str("mode", modeFlag).Msg("unknown scoring mode")
			}
			if k <= 0 {
				k = defaultK
			}

			terms, err := idmap.Load(filepath.Join(outputDir, "terms.dict"))
			if err != nil {
				return err
			}
			docs, err := idmap.Load(filepath.Join(outputDir, "docs.dict"))
			if err != nil {
				return err
			}
			reader, err := segment.Open(filepath.Join(outputDir, "main_index"))
			if err != nil {
				return err
			}
			defer reader.Close()

			r := retrieval.New(reader, terms, docs, analyzer.New(), retrieval.Params{K1: cfg.K1, B: cfg.B})

			start := time.Now()
			results, err := r.Query(args[0], mode, k)
			if err != nil {
				return err
			}
			logger.Debug().Dur("elapsed", time.Since(start)).Int("hits", len(results)).Msg("query complete")

			for _, res := range results {
				fmt.Printf("%.6f\t%s\n", res.Score, res.DisplayName)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&outputDir, "output-dir", "", "index directory (default from config)")
	cmd.Flags().StringVar(&modeFlag, "mode", "bm25", "scoring mode: bm25 or tfidf")
	cmd.Flags().IntVar(&k, "k", 0, "number of results (default from config, mode-dependent)")
	return cmd
}
