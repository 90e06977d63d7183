package logrotate

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// Event types attached to every log record under FieldEventType
const (
	FieldEventType = "event_type"

	eventWatchStarted   = "watch_started"
	eventWatchStopped   = "watch_stopped"
	eventWatchError     = "watch_error"
	eventRescanFailed   = "rescan_failed"
	eventGzipMissing    = "gzip_target_missing"
	eventGzipFailed     = "gzip_failed"
	eventCompressed     = "log_compressed"
	eventRemoveFailed   = "log_remove_failed"
	eventPruned         = "log_pruned"
	eventReadMissing    = "read_target_missing"
	eventSpawnFailed    = "stream_spawn_failed"
	eventFollowStarted  = "follow_session_started"
	eventFollowStopped  = "follow_session_stopped"
	eventFollowExited   = "follow_session_exited"
	eventFollowTeardown = "follow_sessions_torn_down"
)

// LoggerOptions describes logger construction parameters.
type LoggerOptions struct {
	// Level is one of debug, info, warn, error. Empty means warn.
	Level string
	// Format is console, json or empty. Empty picks console on a terminal
	// and json otherwise.
	Format string
	// Output defaults to os.Stderr
	Output io.Writer
}

// NewLogger constructs a slog logger using the provided options.
func NewLogger(opts LoggerOptions) *slog.Logger {
	level, ok := parseLevel(opts.Level)
	if !ok {
		level = slog.LevelWarn
	}
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	handlerOpts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level <= slog.LevelDebug,
	}

	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if format == "" {
		format = "json"
		if isTerminal(out) {
			format = "console"
		}
	}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(out, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(out, handlerOpts))
}

func parseLevel(level string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning", "":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelWarn, false
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
