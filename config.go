package logrotate

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// SequenceOrder selects how sequences of one live pid are ranked when the
// retained-count cap is exceeded.
type SequenceOrder string

const (
	// SequenceOrderLexical ranks by the pid and sequence digits concatenated
	// as text, so "9" ranks above "10". This is the compatible default.
	SequenceOrderLexical SequenceOrder = "lexical"

	// SequenceOrderNumeric ranks by the sequence number.
	SequenceOrderNumeric SequenceOrder = "numeric"
)

// Config holds the settings of one Manager. New copies it, so later changes
// by the caller have no effect on a running manager.
type Config struct {
	// LogDir is the watched log directory (required)
	LogDir string `toml:"log_dir"`
	// LogLevel is one of debug, info, warn, error
	LogLevel string `toml:"log_level"`
	// LogFormat is console or json
	LogFormat string `toml:"log_format"`
	// MaxNumberActiveFiles is the number of active files kept per live pid
	MaxNumberActiveFiles int `toml:"max_number_active_files"`
	// RetentionDays is the archive age, in days, after which files are pruned
	RetentionDays int `toml:"retention_days"`
	// SequenceOrder ranks active files against the cap
	SequenceOrder SequenceOrder `toml:"sequence_order"`
	// PidFile is written by the daemon on startup when set
	PidFile string `toml:"pid_file"`
	// LockFile guards the log directory against a second daemon. Defaults to
	// .logrotated.lock inside LogDir.
	LockFile string `toml:"lock_file"`
}

// DefaultConfig returns a Config with every optional field set.
func DefaultConfig() Config {
	return Config{
		LogLevel:             DefaultLogLevel,
		LogFormat:            DefaultLogFormat,
		MaxNumberActiveFiles: DefaultMaxNumberActiveFiles,
		RetentionDays:        DefaultRetentionDays,
		SequenceOrder:        SequenceOrderLexical,
	}
}

// LoadConfig decodes the TOML file at path over DefaultConfig and
// normalizes the result. It does not validate: a missing file yields the
// defaults, which lack log_dir, so callers may override fields first.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if strings.TrimSpace(path) != "" {
		file, err := os.Open(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("open config: %w", err)
		default:
			defer file.Close()
			if err := toml.NewDecoder(file).Decode(&cfg); err != nil {
				return Config{}, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	if err := cfg.normalize(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate ensures the configuration is usable.
func (c Config) Validate() error {
	if strings.TrimSpace(c.LogDir) == "" {
		return &ConfigError{Field: "log_dir", Reason: "is required"}
	}
	if c.MaxNumberActiveFiles <= 0 {
		return &ConfigError{Field: "max_number_active_files", Reason: fmt.Sprintf("must be positive, got %d", c.MaxNumberActiveFiles)}
	}
	if c.RetentionDays <= 0 {
		return &ConfigError{Field: "retention_days", Reason: fmt.Sprintf("must be positive, got %d", c.RetentionDays)}
	}
	if _, ok := parseLevel(c.LogLevel); !ok {
		return &ConfigError{Field: "log_level", Reason: fmt.Sprintf("unsupported value %q", c.LogLevel)}
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		return &ConfigError{Field: "log_format", Reason: fmt.Sprintf("unsupported value %q", c.LogFormat)}
	}
	switch c.SequenceOrder {
	case SequenceOrderLexical, SequenceOrderNumeric:
	default:
		return &ConfigError{Field: "sequence_order", Reason: fmt.Sprintf("unsupported value %q", c.SequenceOrder)}
	}
	return nil
}

// normalize fills zero values with defaults, trims strings and makes paths
// absolute. Negative numbers are left alone for Validate to reject.
func (c *Config) normalize() error {
	var err error
	if c.LogDir, err = expandPath(c.LogDir); err != nil {
		return &ConfigError{Field: "log_dir", Reason: err.Error()}
	}
	if c.PidFile, err = expandPath(c.PidFile); err != nil {
		return &ConfigError{Field: "pid_file", Reason: err.Error()}
	}
	if c.LockFile, err = expandPath(c.LockFile); err != nil {
		return &ConfigError{Field: "lock_file", Reason: err.Error()}
	}
	if c.LockFile == "" && c.LogDir != "" {
		c.LockFile = filepath.Join(c.LogDir, DefaultLockFileName)
	}

	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
	if c.LogFormat == "" {
		c.LogFormat = DefaultLogFormat
	}
	c.SequenceOrder = SequenceOrder(strings.ToLower(strings.TrimSpace(string(c.SequenceOrder))))
	if c.SequenceOrder == "" {
		c.SequenceOrder = SequenceOrderLexical
	}
	if c.MaxNumberActiveFiles == 0 {
		c.MaxNumberActiveFiles = DefaultMaxNumberActiveFiles
	}
	if c.RetentionDays == 0 {
		c.RetentionDays = DefaultRetentionDays
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	pathValue = strings.TrimSpace(pathValue)
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}
