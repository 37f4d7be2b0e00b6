package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ukcgt.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
full_values: true
csv_output_dir: out
tax_year: 2024/25
log_level: debug
opening_pools:
  - VOD:100:250.50
  - BP:10:40
`), 0o644))

	cfg, err := Load(path, true)
	require.NoError(t, err)
	require.True(t, cfg.FullValues)
	require.Equal(t, "out", cfg.CSVOutputDir)
	require.Equal(t, "2024/25", cfg.TaxYear)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, []string{"VOD:100:250.50", "BP:10:40"}, cfg.OpeningPools)
}

func TestLoadMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "none.yaml")
	cfg, err := Load(path, false)
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)

	_, err = Load(path, true)
	require.Error(t, err)
}

func TestLoadInvalid(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("full_values: [\n"), 0o644))
	_, err := Load(bad, true)
	require.ErrorContains(t, err, "Error parsing config")

	level := filepath.Join(dir, "level.yaml")
	require.NoError(t, os.WriteFile(level, []byte("log_level: chatty\n"), 0o644))
	_, err = Load(level, true)
	require.ErrorContains(t, err, "unknown log_level")
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("UKCGT_LOG_LEVEL=warn\nUKCGT_FULL_VALUES=true\n"), 0o644))
	t.Setenv("UKCGT_LOG_LEVEL", "")
	t.Setenv("UKCGT_FULL_VALUES", "")
	require.NoError(t, os.Unsetenv("UKCGT_LOG_LEVEL"))
	require.NoError(t, os.Unsetenv("UKCGT_FULL_VALUES"))

	cfg := Default()
	require.NoError(t, cfg.LoadEnv(envFile, filepath.Join(dir, "missing.env")))
	require.Equal(t, "warn", cfg.LogLevel)
	require.True(t, cfg.FullValues)
}
