// Package config loads the user-level configuration: a fixed table of
// recognized keys, with CLI flags overriding config and config
// overriding built-in defaults.
package config

import "time"

// SearchMode selects which engine default_search_mode names.
type SearchMode string

const (
	ModeRegex      SearchMode = "regex"
	ModeSemantic   SearchMode = "semantic"
	ModeLexical    SearchMode = "lexical"
	ModeHybrid     SearchMode = "hybrid"
	ModeStructural SearchMode = "structural"
)

// OutputFormat selects default_output_format.
type OutputFormat string

const (
	FormatText  OutputFormat = "text"
	FormatJSON  OutputFormat = "json"
	FormatJSONL OutputFormat = "jsonl"
)

// Config is the complete recognized configuration surface. Every field
// corresponds to exactly one recognized option; an unknown key found
// while loading is rejected (see validate.go) rather than ignored.
type Config struct {
	IndexModel         string       `yaml:"index_model" mapstructure:"index_model"`
	QueryModel         string       `yaml:"query_model" mapstructure:"query_model"`
	DefaultTopK        int          `yaml:"default_topk" mapstructure:"default_topk"`
	DefaultThreshold   float64      `yaml:"default_threshold" mapstructure:"default_threshold"`
	DefaultSearchMode  SearchMode   `yaml:"default_search_mode" mapstructure:"default_search_mode"`
	DefaultOutputFmt   OutputFormat `yaml:"default_output_format" mapstructure:"default_output_format"`
	ShowScoresDefault  bool         `yaml:"show_scores_default" mapstructure:"show_scores_default"`
	LineNumbersDefault bool         `yaml:"line_numbers_default" mapstructure:"line_numbers_default"`
	RerankEnabled      bool         `yaml:"rerank_enabled" mapstructure:"rerank_enabled"`
	RerankModel        string       `yaml:"rerank_model" mapstructure:"rerank_model"`
	QuietMode          bool         `yaml:"quiet_mode" mapstructure:"quiet_mode"`

	// IgnoreStructuredConfigs resolves the Open Question of whether the
	// project ignore file's defaults exclude JSON/YAML by default.
	IgnoreStructuredConfigs bool `yaml:"ignore_structured_configs" mapstructure:"ignore_structured_configs"`
	// AutoIndexFreshness is the staleness window after which a query
	// triggers an incremental index before executing.
	AutoIndexFreshness time.Duration `yaml:"auto_index_freshness" mapstructure:"auto_index_freshness"`

	Paths    PathsConfig    `yaml:"paths" mapstructure:"paths"`
	Chunking ChunkingConfig `yaml:"chunking" mapstructure:"chunking"`
}

// PathsConfig defines caller-supplied exclude patterns layered on top of
// the default and VCS ignore rules.
type PathsConfig struct {
	Exclude []string `yaml:"exclude" mapstructure:"exclude"`
}

// ChunkingConfig bounds the chunker's floor on chunk size and the overlap
// used when striding an oversize chunk.
type ChunkingConfig struct {
	MinChunkLines int `yaml:"min_chunk_lines" mapstructure:"min_chunk_lines"`
	StrideOverlap int `yaml:"stride_overlap" mapstructure:"stride_overlap"`
}

// Default returns the built-in defaults, overridden first by config file
// then by environment/CLI flags.
func Default() *Config {
	return &Config{
		IndexModel:              "bge-small-en-v1.5",
		QueryModel:              "bge-small-en-v1.5",
		DefaultTopK:             20,
		DefaultThreshold:        0.3,
		DefaultSearchMode:       ModeHybrid,
		DefaultOutputFmt:        FormatText,
		ShowScoresDefault:       false,
		LineNumbersDefault:      true,
		RerankEnabled:           false,
		RerankModel:             "",
		QuietMode:               false,
		IgnoreStructuredConfigs: true,
		AutoIndexFreshness:      60 * time.Second,
		Paths: PathsConfig{
			Exclude: nil,
		},
		Chunking: ChunkingConfig{
			MinChunkLines: 2,
			StrideOverlap: 64,
		},
	}
}
