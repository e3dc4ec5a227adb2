package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlags(t *testing.T) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Bool("preserve-types", true, "")
	fs.String("delimiter", DefaultDelimiter, "")
	fs.Int("indent", DefaultIndent, "")
	fs.Bool("overwrite", false, "")
	fs.Int("batch-size", DefaultBatchSize, "")
	fs.Bool("verbose", false, "")
	return fs
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.True(t, cfg.PreserveTypes)
	assert.Equal(t, DefaultDelimiter, cfg.CSVDelimiter)
	assert.Equal(t, DefaultIndent, cfg.JSONIndent)
	assert.False(t, cfg.Overwrite)
	assert.Equal(t, DefaultBatchSize, cfg.BatchSize)
	assert.Equal(t, DefaultSheetName, cfg.SheetName)
	assert.Equal(t, ',', cfg.Delimiter())
	assert.Empty(t, FileUsed())
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile("rowbridge.yaml", []byte("csv_delimiter: \";\"\njson_indent: 4\n"), 0o644))

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, ";", cfg.CSVDelimiter)
	assert.Equal(t, 4, cfg.JSONIndent)
	assert.Equal(t, "rowbridge.yaml", FileUsed())
}

func TestLoadExplicitConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("batch_size: 9\n"), 0o644))

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.BatchSize)
	assert.Equal(t, path, FileUsed())
}

func TestLoadMissingExplicitFile(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := Load("does-not-exist.yaml", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile("rowbridge.yaml", []byte("json_indent: 4\n"), 0o644))
	t.Setenv("ROWBRIDGE_JSON_INDENT", "8")

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.JSONIndent)
}

func TestLoadFlagsOverrideEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ROWBRIDGE_CSV_DELIMITER", "|")

	fs := newFlags(t)
	require.NoError(t, fs.Parse([]string{"--delimiter", ";", "--indent", "0"}))

	cfg, err := Load("", fs)
	require.NoError(t, err)

	// --delimiter maps to csv_delimiter, --indent to json_indent.
	assert.Equal(t, ";", cfg.CSVDelimiter)
	assert.Equal(t, 0, cfg.JSONIndent)
}

func TestLoadUnchangedFlagsDoNotOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ROWBRIDGE_BATCH_SIZE", "7")

	fs := newFlags(t)
	require.NoError(t, fs.Parse(nil))

	cfg, err := Load("", fs)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.BatchSize)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		mod  func(*Config)
		want string
	}{
		{"multi-char delimiter", func(c *Config) { c.CSVDelimiter = ",," }, "single character"},
		{"empty delimiter", func(c *Config) { c.CSVDelimiter = "" }, "single character"},
		{"negative indent", func(c *Config) { c.JSONIndent = -1 }, "json_indent must be >= 0"},
		{"zero batch size", func(c *Config) { c.BatchSize = 0 }, "batch_size must be >= 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{CSVDelimiter: ",", JSONIndent: 2, BatchSize: 5}
			tt.mod(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	valid := &Config{CSVDelimiter: "\t", JSONIndent: 0, BatchSize: 1}
	assert.NoError(t, valid.Validate())
}

func TestDelimiterRune(t *testing.T) {
	cfg := &Config{CSVDelimiter: ";"}
	assert.Equal(t, ';', cfg.Delimiter())
}
