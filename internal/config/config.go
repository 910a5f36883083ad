// Package config loads medindex.toml: data/output directories and the
// BM25 scoring defaults, read before CLI flag overrides are applied.
package config

import (
	"os"

	"github.com/pelletier/go-toml/v2"

	"medindex/internal/ierr"
)

// Config mirrors medindex.toml's shape. Zero-value fields are filled
// in by Default before a file is parsed, so a partial TOML file only
// overrides what it names.
type Config struct {
	DataDir       string  `toml:"data_dir"`
	OutputDir     string  `toml:"output_dir"`
	Codec         string  `toml:"codec"`
	K1            float64 `toml:"k1"`
	B             float64 `toml:"b"`
	DefaultKBM25  int     `toml:"default_k_bm25"`
	DefaultKTfidf int     `toml:"default_k_tfidf"`
}

// Default returns the built-in configuration, matching spec defaults:
// k1=1.5, b=0.75, vbe codec, default k=100 for BM25 and k=10 for
// TF-IDF (per spec.md §6, "10 for TF-IDF, 100 for BM25 in current
// use").
func Default() Config {
	return Config{
		DataDir:       "data",
		OutputDir:     "index",
		Codec:         "vbe",
		K1:            1.5,
		B:             0.75,
		DefaultKBM25:  100,
		DefaultKTfidf: 10,
	}
}

// Load reads path as TOML over Default, so any field the file omits
// keeps its default value. A missing file is not an error: it returns
// Default() unchanged.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, ierr.NewIoError("config: read "+path, err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, ierr.NewDecodeError("config: parse "+path, err)
	}
	return cfg, nil
}
