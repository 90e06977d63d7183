package logrotate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAppliesDefaults(t *testing.T) {
	mgr, _ := newMemManager(t, Config{})

	cfg := mgr.Config()
	assert.Equal(t, DefaultMaxNumberActiveFiles, cfg.MaxNumberActiveFiles)
	assert.Equal(t, DefaultRetentionDays, cfg.RetentionDays)
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
	assert.Equal(t, SequenceOrderLexical, cfg.SequenceOrder)
	assert.Equal(t, filepath.Join(testLogDir, ".logrotated.lock"), cfg.LockFile)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name  string
		cfg   Config
		field string
	}{
		{name: "missing log dir", cfg: Config{}, field: "log_dir"},
		{name: "negative cap", cfg: Config{LogDir: "/tmp", MaxNumberActiveFiles: -1}, field: "max_number_active_files"},
		{name: "negative retention", cfg: Config{LogDir: "/tmp", RetentionDays: -3}, field: "retention_days"},
		{name: "bad level", cfg: Config{LogDir: "/tmp", LogLevel: "loud"}, field: "log_level"},
		{name: "bad format", cfg: Config{LogDir: "/tmp", LogFormat: "xml"}, field: "log_format"},
		{name: "bad order", cfg: Config{LogDir: "/tmp", SequenceOrder: "random"}, field: "sequence_order"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg, WithLogger(discardLogger()))

			require.ErrorIs(t, err, ErrConfig)
			var cfgErr *ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestConfigIsCopied(t *testing.T) {
	cfg := Config{LogDir: testLogDir, MaxNumberActiveFiles: 2}
	mgr, _ := newMemManager(t, cfg)

	cfg.MaxNumberActiveFiles = 9

	assert.Equal(t, 2, mgr.Config().MaxNumberActiveFiles)
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "logrotated.toml")
	content := `
log_dir = "` + dir + `"
log_level = "INFO"
max_number_active_files = 3
retention_days = 7
sequence_order = "numeric"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, dir, cfg.LogDir)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, DefaultLogFormat, cfg.LogFormat)
	assert.Equal(t, 3, cfg.MaxNumberActiveFiles)
	assert.Equal(t, 7, cfg.RetentionDays)
	assert.Equal(t, SequenceOrderNumeric, cfg.SequenceOrder)
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)

	assert.Equal(t, DefaultMaxNumberActiveFiles, cfg.MaxNumberActiveFiles)
	assert.ErrorIs(t, cfg.Validate(), ErrConfig, "log_dir is still required")
}

func TestLoadConfigRejectsMalformedToml(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("log_dir = ["), 0o644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}
