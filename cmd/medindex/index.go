package main

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"

	"medindex/internal/analyzer"
	"medindex/internal/bsbi"
	"medindex/internal/config"
	"medindex/internal/vbe"
)

func newIndexCmd() *cobra.Command {
	var (
		dataDir   string
		outputDir string
		codecTag  string
		parallel  bool
	)

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build an index from a directory of blocks",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if dataDir == "" {
				dataDir = cfg.DataDir
			}
			if outputDir == "" {
				outputDir = cfg.OutputDir
			}
			if codecTag == "" {
				codecTag = cfg.Codec
			}

			codec, ok := vbe.ByTag(codecTag)
			if !ok {
				logger.Fatal().Str("codec", codecTag).Msg("unknown codec")
			}
			if err := os.MkdirAll(outputDir, 0o755); err != nil {
				return err
			}

			o := bsbi.New(dataDir, outputDir, codec, analyzer.New(), logger)
			o.Parallel = parallel

			start := time.Now()
			if err := o.Run(context.Background()); err != nil {
				return err
			}
			logger.Info().
				Dur("elapsed", time.Since(start)).
				Int("terms", o.Terms.Len()).
				Int("docs", o.Docs.Len()).
				Msg("indexing complete")
			return nil
		},
	}

	cmd.Flags().StringVar(&dataDir, "data-dir", "", "collection root directory (default from config)")
	cmd.Flags().StringVar(&outputDir, "output-dir", "", "index output directory (default from config)")
	cmd.Flags().StringVar(&codecTag, "codec", "", "postings codec: vbe or std (default from config)")
	cmd.Flags().BoolVar(&parallel, "parallel", false, "parse blocks concurrently")
	return cmd
}
