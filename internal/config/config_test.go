package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[llm]
provider = "openai"
model = "gpt-4o"

[consolidation]
equivalence = "token"
token_threshold = 0.6
self_loop_whitelist = ["SIBLING_OF"]

[evaluation]
lookup_timeout = "2s"
workers = 2
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "token", cfg.Consolidation.Equivalence)
	assert.Equal(t, 0.6, cfg.Consolidation.TokenThreshold)
	assert.Equal(t, []string{"SIBLING_OF"}, cfg.Consolidation.SelfLoopWhitelist)
	assert.Equal(t, 2*time.Second, cfg.Evaluation.LookupTimeout.Std())
	assert.Equal(t, 8, cfg.Consolidation.Workers)
	assert.Equal(t, 2, cfg.Evaluation.Workers)
	assert.Equal(t, "8080", cfg.Server.Port)
	require.NoError(t, cfg.Validate())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "claude")
	t.Setenv("MEMGRAPH_URI", "bolt://graph:7687")
	t.Setenv("ONTOGRAPH_MODEL", "gpt-4o-mini")
	t.Setenv("ONTOGRAPH_WORKERS", "3")

	cfg := Default()
	cfg.ApplyEnv()
	assert.Equal(t, "claude", cfg.LLM.Provider)
	assert.Equal(t, "bolt://graph:7687", cfg.Memgraph.URI)
	assert.True(t, cfg.Memgraph.Enabled)
	assert.Equal(t, "gpt-4o-mini", cfg.Storage.Model)
	assert.Equal(t, 3, cfg.Consolidation.Workers)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	cfg.Evaluation.PartialThreshold = 1.5
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	cfg = Default()
	cfg.Consolidation.Equivalence = "phonetic"
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	cfg = Default()
	cfg.Consolidation.Equivalence = "fuzzy"
	assert.NoError(t, cfg.Validate())

	cfg = Default()
	cfg.Evaluation.Workers = 0
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	cfg = Default()
	cfg.Consolidation.Workers = 0
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
}
