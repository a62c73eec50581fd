package config

import (
	"fmt"
	"strings"

	"github.com/codesearch/hybridcore/internal/coreerr"
)

// Validate checks that the configuration is valid and complete, returning
// a typed coreerr.InvalidInput error rather than a bare error.
func Validate(cfg *Config) error {
	var msgs []string

	switch cfg.DefaultSearchMode {
	case ModeRegex, ModeSemantic, ModeLexical, ModeHybrid, ModeStructural:
	default:
		msgs = append(msgs, fmt.Sprintf("default_search_mode: unknown mode %q", cfg.DefaultSearchMode))
	}

	switch cfg.DefaultOutputFmt {
	case FormatText, FormatJSON, FormatJSONL:
	default:
		msgs = append(msgs, fmt.Sprintf("default_output_format: unknown format %q", cfg.DefaultOutputFmt))
	}

	if cfg.DefaultTopK <= 0 {
		msgs = append(msgs, fmt.Sprintf("default_topk: must be positive, got %d", cfg.DefaultTopK))
	}
	if cfg.DefaultThreshold < 0 || cfg.DefaultThreshold > 1 {
		msgs = append(msgs, fmt.Sprintf("default_threshold: must be within [0,1], got %f", cfg.DefaultThreshold))
	}
	if strings.TrimSpace(cfg.IndexModel) == "" {
		msgs = append(msgs, "index_model: must not be empty")
	}
	if strings.TrimSpace(cfg.QueryModel) == "" {
		msgs = append(msgs, "query_model: must not be empty")
	}
	if cfg.RerankEnabled && strings.TrimSpace(cfg.RerankModel) == "" {
		msgs = append(msgs, "rerank_model: required when rerank_enabled is true")
	}
	if cfg.AutoIndexFreshness < 0 {
		msgs = append(msgs, "auto_index_freshness: must not be negative")
	}
	if cfg.Chunking.MinChunkLines < 0 {
		msgs = append(msgs, "chunking.min_chunk_lines: must not be negative")
	}
	if cfg.Chunking.StrideOverlap < 0 {
		msgs = append(msgs, "chunking.stride_overlap: must not be negative")
	}

	if len(msgs) == 0 {
		return nil
	}
	return coreerr.InvalidInput("config", strings.Join(msgs, "; "))
}
