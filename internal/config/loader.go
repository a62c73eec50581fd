package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/codesearch/hybridcore/internal/coreerr"
)

// SidecarDirName is the hidden sibling directory at the repository root
// that owns the manifest, per-file sidecars, the content cache, and (by
// convention) the project config.
const SidecarDirName = ".codesearch"

// Loader provides configuration loading capabilities.
type Loader interface {
	// Load loads configuration from file and environment variables.
	// Priority: defaults → config file → environment variables (env wins).
	Load() (*Config, error)
}

type loader struct {
	rootDir string
}

// NewLoader creates a new configuration loader for the given repository root.
func NewLoader(rootDir string) Loader {
	return &loader{rootDir: rootDir}
}

// Load loads configuration with the following priority (highest to lowest):
// environment variables (SEARCH_*), config file (<sidecar>/config.yml),
// built-in defaults. CLI flags, when the outer CLI collaborator is present,
// override whatever Load returns — that merge happens above this package.
func (l *loader) Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(filepath.Join(l.rootDir, SidecarDirName))

	v.SetEnvPrefix("SEARCH")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	for _, key := range recognizedKeys {
		v.BindEnv(key)
	}
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := rejectUnknownKeys(v); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// recognizedKeys is the full table of options this loader understands.
var recognizedKeys = []string{
	"index_model",
	"query_model",
	"default_topk",
	"default_threshold",
	"default_search_mode",
	"default_output_format",
	"show_scores_default",
	"line_numbers_default",
	"rerank_enabled",
	"rerank_model",
	"quiet_mode",
	"ignore_structured_configs",
	"auto_index_freshness",
	"paths.exclude",
	"chunking.min_chunk_lines",
	"chunking.stride_overlap",
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("index_model", d.IndexModel)
	v.SetDefault("query_model", d.QueryModel)
	v.SetDefault("default_topk", d.DefaultTopK)
	v.SetDefault("default_threshold", d.DefaultThreshold)
	v.SetDefault("default_search_mode", string(d.DefaultSearchMode))
	v.SetDefault("default_output_format", string(d.DefaultOutputFmt))
	v.SetDefault("show_scores_default", d.ShowScoresDefault)
	v.SetDefault("line_numbers_default", d.LineNumbersDefault)
	v.SetDefault("rerank_enabled", d.RerankEnabled)
	v.SetDefault("rerank_model", d.RerankModel)
	v.SetDefault("quiet_mode", d.QuietMode)
	v.SetDefault("ignore_structured_configs", d.IgnoreStructuredConfigs)
	v.SetDefault("auto_index_freshness", d.AutoIndexFreshness.String())
	v.SetDefault("paths.exclude", d.Paths.Exclude)
	v.SetDefault("chunking.min_chunk_lines", d.Chunking.MinChunkLines)
	v.SetDefault("chunking.stride_overlap", d.Chunking.StrideOverlap)
}

// rejectUnknownKeys rejects any config key outside recognizedKeys with a
// typed InvalidInput error. It walks v.AllSettings(), which merges the
// defaults, bound environment keys and config-file keys; the first two
// only ever hold recognized keys, so an unrecognized one comes from the
// config file.
func rejectUnknownKeys(v *viper.Viper) error {
	known := make(map[string]bool, len(recognizedKeys))
	for _, k := range recognizedKeys {
		known[k] = true
	}

	var walk func(prefix string, m map[string]any) error
	walk = func(prefix string, m map[string]any) error {
		for k, val := range m {
			full := k
			if prefix != "" {
				full = prefix + "." + k
			}
			if nested, ok := val.(map[string]any); ok {
				if err := walk(full, nested); err != nil {
					return err
				}
				continue
			}
			if !known[full] {
				return coreerr.InvalidInput("config", fmt.Sprintf("unrecognized option %q", full))
			}
		}
		return nil
	}

	return walk("", v.AllSettings())
}

// LoadConfig loads configuration using the current working directory as root.
func LoadConfig() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	return NewLoader(wd).Load()
}

// LoadConfigFromDir loads configuration from a specific repository root.
func LoadConfigFromDir(rootDir string) (*Config, error) {
	return NewLoader(rootDir).Load()
}
