package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWhenNoConfigFile(t *testing.T) {
	dir := t.TempDir()

	cfg, err := LoadConfigFromDir(dir)
	require.NoError(t, err)
	assert.Equal(t, Default().DefaultSearchMode, cfg.DefaultSearchMode)
	assert.Equal(t, Default().DefaultTopK, cfg.DefaultTopK)
}

func TestLoadRejectsUnknownKey(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, SidecarDirName), 0o755))
	cfgPath := filepath.Join(dir, SidecarDirName, "config.yml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("totally_bogus_key: 1\n"), 0o644))

	_, err := LoadConfigFromDir(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "totally_bogus_key")
}

func TestLoadOverridesDefaultFromFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, SidecarDirName), 0o755))
	cfgPath := filepath.Join(dir, SidecarDirName, "config.yml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("default_topk: 5\ndefault_search_mode: lexical\n"), 0o644))

	cfg, err := LoadConfigFromDir(dir)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.DefaultTopK)
	assert.Equal(t, ModeLexical, cfg.DefaultSearchMode)
}

func TestValidateRejectsBadSearchMode(t *testing.T) {
	cfg := Default()
	cfg.DefaultSearchMode = "bogus"
	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "default_search_mode")
}

func TestValidateRequiresRerankModelWhenEnabled(t *testing.T) {
	cfg := Default()
	cfg.RerankEnabled = true
	cfg.RerankModel = ""
	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rerank_model")
}
