package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rowsync/rowsync/internal/model"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "rowsync", cfg.App.Name)
	assert.Equal(t, ":8080", cfg.App.Addr())
	assert.Equal(t, model.TaxPercentage, cfg.Sync.TaxMode)
	assert.Equal(t, 16, cfg.Sync.MaxDepth)
	assert.NotEmpty(t, cfg.CORS.AllowedOrigins)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("SYNC_TAX_MODE", "absolute")
	t.Setenv("SYNC_MAX_DEPTH", "4")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.App.Addr())
	assert.Equal(t, model.TaxAbsolute, cfg.Sync.TaxMode)
	assert.Equal(t, 4, cfg.Sync.MaxDepth)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("SYNC_TAX_MODE", "flat")
	_, err := Load()
	require.Error(t, err)

	t.Setenv("SYNC_TAX_MODE", "percentage")
	t.Setenv("SYNC_MAX_DEPTH", "0")
	_, err = Load()
	require.Error(t, err)
}
