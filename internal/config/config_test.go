package config

import (
	"image/color"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/stampkit/internal/imaging"
)

var stampKeys = []string{
	"STAMP_THRESHOLDS", "STAMP_MIN_AREA", "STAMP_MAX_AREA",
	"STAMP_TRIM_THRESHOLD", "STAMP_TRIM_PADDING", "STAMP_TARGET_SIZE",
	"STAMP_FLATTEN_COLOR", "STAMP_PREVIEW_COLOR", "STAMP_DIR", "STAMP_NAMES",
	"STAMP_BACKUP_DIR", "STAMP_WORKERS", "STAMP_LOG_LEVEL", "STAMP_LOG_FORMAT",
	"STAMP_LOG_FILE",
}

// clearEnv unsets every STAMP_* key for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range stampKeys {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

// chdir switches the working directory until the test ends.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, []int{250, 240, 230, 220, 210}, cfg.Detect.Thresholds)
	assert.Equal(t, 0.40, cfg.Detect.MinAreaRatio)
	assert.Equal(t, 0.95, cfg.Detect.MaxAreaRatio)
	assert.Equal(t, TrimConfig{Threshold: 240, Padding: 10}, cfg.Trim)
	assert.Equal(t, imaging.Size{Width: 400, Height: 500}, cfg.Output.Size())
	assert.Equal(t, color.NRGBA{245, 235, 220, 255}, cfg.Colors.Flatten)
	assert.Equal(t, color.NRGBA{0, 26, 16, 255}, cfg.Colors.Preview)
	assert.Equal(t, "stamp", cfg.Batch.Dir)
	assert.Equal(t, DefaultNames, cfg.Batch.Names)
	assert.Equal(t, filepath.Join("stamp", "backup_original"), cfg.Batch.BackupPath())
	assert.Equal(t, 4, cfg.Batch.Workers)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoad_Environment(t *testing.T) {
	clearEnv(t)
	t.Setenv("STAMP_THRESHOLDS", "245, 235")
	t.Setenv("STAMP_MIN_AREA", "0.3")
	t.Setenv("STAMP_TARGET_SIZE", "800X1000")
	t.Setenv("STAMP_PREVIEW_COLOR", "ffffff")
	t.Setenv("STAMP_NAMES", "a.png, b.png,,")
	t.Setenv("STAMP_WORKERS", " 8 ")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []int{245, 235}, cfg.Detect.Thresholds)
	assert.Equal(t, 0.3, cfg.Detect.MinAreaRatio)
	assert.Equal(t, OutputConfig{Width: 800, Height: 1000}, cfg.Output)
	assert.Equal(t, color.NRGBA{255, 255, 255, 255}, cfg.Colors.Preview)
	assert.Equal(t, []string{"a.png", "b.png"}, cfg.Batch.Names)
	assert.Equal(t, 8, cfg.Batch.Workers)
}

func TestLoad_DotEnvFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("STAMP_WORKERS", "2")

	path := filepath.Join(t.TempDir(), ".env")
	content := "STAMP_DIR=assets/stamps\nSTAMP_WORKERS=9\nSTAMP_BACKUP_DIR=/var/backups/stamps\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "assets/stamps", cfg.Batch.Dir)
	assert.Equal(t, 2, cfg.Batch.Workers, "process environment wins over the file")
	assert.Equal(t, "/var/backups/stamps", cfg.Batch.BackupPath())
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"STAMP_THRESHOLDS", "250,abc"},
		{"STAMP_THRESHOLDS", "300"},
		{"STAMP_TARGET_SIZE", "400"},
		{"STAMP_TARGET_SIZE", "0x500"},
		{"STAMP_FLATTEN_COLOR", "#nothex"},
		{"STAMP_PREVIEW_COLOR", "#12345"},
		{"STAMP_WORKERS", "abc"},
		{"STAMP_TRIM_PADDING", "1.5"},
		{"STAMP_TRIM_THRESHOLD", "high"},
		{"STAMP_MIN_AREA", "forty"},
		{"STAMP_MAX_AREA", "0.9x"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestLoad_NamedFileMissing(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.Error(t, err)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestLoad_ImplicitDotEnvOptional(t *testing.T) {
	clearEnv(t)
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "stamp", cfg.Batch.Dir)
}

func TestLoad_ImplicitDotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("STAMP_DIR=from-dotenv\n"), 0644))
	chdir(t, dir)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.Batch.Dir)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no thresholds", func(c *Config) { c.Detect.Thresholds = nil }},
		{"inverted band", func(c *Config) { c.Detect.MinAreaRatio, c.Detect.MaxAreaRatio = 0.9, 0.5 }},
		{"band above one", func(c *Config) { c.Detect.MaxAreaRatio = 1.5 }},
		{"negative padding", func(c *Config) { c.Trim.Padding = -1 }},
		{"trim threshold range", func(c *Config) { c.Trim.Threshold = 256 }},
		{"zero width", func(c *Config) { c.Output.Width = 0 }},
		{"no workers", func(c *Config) { c.Batch.Workers = 0 }},
		{"empty dir", func(c *Config) { c.Batch.Dir = "" }},
		{"log format", func(c *Config) { c.Log.Format = "xml" }},
	}

	require.NoError(t, Default().Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestDefault_Independent(t *testing.T) {
	a := Default()
	a.Detect.Thresholds[0] = 1
	a.Batch.Names[0] = "changed.png"

	b := Default()
	assert.Equal(t, 250, b.Detect.Thresholds[0])
	assert.Equal(t, "neynar.png", b.Batch.Names[0])
}

func TestParseSize(t *testing.T) {
	size, err := ParseSize(" 400x500 ")
	require.NoError(t, err)
	assert.Equal(t, imaging.Size{Width: 400, Height: 500}, size)

	for _, bad := range []string{"", "400", "x500", "400x", "-4x5", "axb"} {
		_, err := ParseSize(bad)
		assert.ErrorIs(t, err, ErrInvalidConfig, "input %q", bad)
	}
}

func TestParseThresholds(t *testing.T) {
	got, err := ParseThresholds("250,240, 230")
	require.NoError(t, err)
	assert.Equal(t, []int{250, 240, 230}, got)

	_, err = ParseThresholds(" , ")
	assert.ErrorIs(t, err, ErrInvalidConfig)
	_, err = ParseThresholds("-1")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestContentOptions_Copy(t *testing.T) {
	cfg := Default()
	opts := cfg.Detect.ContentOptions()
	opts.Thresholds[0] = 1
	assert.Equal(t, 250, cfg.Detect.Thresholds[0])
}
