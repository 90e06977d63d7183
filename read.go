package logrotate

import (
	"errors"
	"io/fs"
	"log/slog"
)

// ReadOptions configures a one-shot Tail or Head read.
type ReadOptions struct {
	// File is the path to read (required)
	File string
	// OnData receives output chunks in order (required)
	OnData func([]byte)
	// OnClose receives the exit code once the read ends
	OnClose func(exitCode int)
	// Lines is the number of lines to read, DefaultReadLines when zero and
	// none when NoLines
	Lines int
}

func (o *ReadOptions) validate() error {
	if o.File == "" {
		return &ConfigError{Field: "file", Reason: "is required"}
	}
	if o.OnData == nil {
		return &ConfigError{Field: "onData", Reason: "is required"}
	}
	switch {
	case o.Lines == NoLines:
		o.Lines = 0
	case o.Lines < 0:
		return &ConfigError{Field: "lines", Reason: "must not be negative"}
	case o.Lines == 0:
		o.Lines = DefaultReadLines
	}
	return nil
}

// Tail reads the last lines of a file without following it. Only malformed
// options are returned; the read itself runs in the background. A missing
// file is logged and neither callback is called.
func (m *Manager) Tail(opts ReadOptions) error {
	if err := opts.validate(); err != nil {
		return err
	}
	go m.read(OpTail, opts, func() (Stream, error) {
		return m.streamer.Tail(opts.File, opts.Lines, false)
	})
	return nil
}

// Head reads the first lines of a file. It behaves like Tail otherwise.
func (m *Manager) Head(opts ReadOptions) error {
	if err := opts.validate(); err != nil {
		return err
	}
	go m.read(OpHead, opts, func() (Stream, error) {
		return m.streamer.Head(opts.File, opts.Lines)
	})
	return nil
}

func (m *Manager) read(op Operation, opts ReadOptions, start func() (Stream, error)) {
	if !m.exists(op, opts.File) {
		return
	}

	stream, err := start()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			m.logReadMissing(op, opts.File)
			return
		}
		m.logSpawnFailed(op, opts.File, err)
		if opts.OnClose != nil {
			opts.OnClose(-1)
		}
		return
	}

	code := stream.Run(opts.OnData)
	if opts.OnClose != nil {
		opts.OnClose(code)
	}
}

// exists stats file and logs when it is missing or unreadable.
func (m *Manager) exists(op Operation, file string) bool {
	_, err := m.fs.Stat(file)
	if err == nil {
		return true
	}
	if errors.Is(err, fs.ErrNotExist) {
		m.logReadMissing(op, file)
	} else {
		m.log.Warn("read target stat failed",
			slog.String("op", op.String()),
			slog.String("path", file),
			slog.Any("error", err),
		)
	}
	return false
}

func (m *Manager) logReadMissing(op Operation, file string) {
	m.log.Warn("read target does not exist",
		slog.String("op", op.String()),
		slog.String("path", file),
		slog.String(FieldEventType, eventReadMissing),
	)
}

func (m *Manager) logSpawnFailed(op Operation, file string, err error) {
	m.log.Error("stream spawn failed",
		slog.String("op", op.String()),
		slog.String("path", file),
		slog.Any("error", err),
		slog.String(FieldEventType, eventSpawnFailed),
	)
}
