package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv("AMELIA_STORE_DSN", "postgres://localhost/amelia")
	t.Setenv("AMELIA_EMBEDDING_BASE_URL", "http://localhost:8080")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 1024, cfg.Embedding.Dimension)
	assert.Equal(t, 32, cfg.Embedding.BatchSize)
	assert.Equal(t, 60, cfg.RRFK)
	assert.InDelta(t, 0.5, cfg.HybridAlpha, 1e-9)
	assert.Equal(t, 3, cfg.Jobs.CrawlConcurrency)
	assert.Equal(t, "default", cfg.DefaultCollection)
}

func TestLoadRequiresStoreDSN(t *testing.T) {
	t.Setenv("AMELIA_STORE_DSN", "")
	t.Setenv("AMELIA_EMBEDDING_BASE_URL", "http://localhost:8080")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadRespectsExplicitHybridAlpha(t *testing.T) {
	t.Setenv("AMELIA_STORE_DSN", "postgres://localhost/amelia")
	t.Setenv("AMELIA_EMBEDDING_BASE_URL", "http://localhost:8080")
	t.Setenv("AMELIA_HYBRID_ALPHA", "0.75")

	cfg, err := Load()
	require.NoError(t, err)
	assert.InDelta(t, 0.75, cfg.HybridAlpha, 1e-9)
}
