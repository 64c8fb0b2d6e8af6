package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/discount-reconciler/config"
)

func TestLoad_DefaultsAndEnv(t *testing.T) {
	t.Setenv("RECON_SUPPLIERS_PATH", "proveedores.xlsx")
	t.Setenv("RECON_LINES_PATH", "260.csv")
	t.Setenv("RECON_OUTPUT_DIR", "")
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "")

	cfg := config.Load()

	assert.Equal(t, "proveedores.xlsx", cfg.SuppliersPath)
	assert.Equal(t, "reports", cfg.OutputDir)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.NoError(t, cfg.Validate())
}

func TestValidate_ReportsEveryField(t *testing.T) {
	cfg := config.Config{OutputDir: "out", DBPath: "x.db", Port: 70000, LogLevel: "loud"}

	err := cfg.Validate()

	require.Error(t, err)
	for _, field := range []string{"SuppliersPath(required)", "LinesPath(required)", "Port(max)", "LogLevel(oneof)"} {
		assert.Contains(t, err.Error(), field)
	}
}
