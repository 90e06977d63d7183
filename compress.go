package logrotate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/klauspost/compress/gzip"
)

// Gzip compresses path into path.gz and then removes path. A path that no
// longer exists is not an error.
//
// The archive is written in place, without a temporary name. If the copy
// fails the source stays intact and a partial .gz may remain next to it; the
// next Gzip of the same source truncates and rewrites it.
func (m *Manager) Gzip(ctx context.Context, path string) error {
	info, err := m.fs.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			m.logGzipMissing(path)
			return nil
		}
		return m.gzipFailed(&OpError{Op: OpStat, Path: path, Err: err})
	}

	src, err := m.fs.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			m.logGzipMissing(path)
			return nil
		}
		return m.gzipFailed(&OpError{Op: OpGzip, Path: path, Err: err})
	}
	defer src.Close()

	target := path + GzipSuffix
	written, err := m.writeGzip(ctx, src, target)
	if err != nil {
		return m.gzipFailed(&OpError{Op: OpGzip, Path: path, Err: err})
	}

	if err := m.removeTolerant(path); err != nil {
		return err
	}

	m.compressed.Add(1)
	m.log.Info("log compressed",
		slog.String("path", path),
		slog.String("archive", target),
		slog.String("size", humanize.Bytes(uint64(info.Size()))),
		slog.String("compressed_size", humanize.Bytes(uint64(written))),
		slog.String(FieldEventType, eventCompressed),
	)
	return nil
}

func (m *Manager) writeGzip(ctx context.Context, src io.Reader, target string) (int64, error) {
	dst, err := m.fs.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, FileMode)
	if err != nil {
		return 0, fmt.Errorf("create archive: %w", err)
	}
	counter := &countingWriter{w: dst}
	zw := gzip.NewWriter(counter)

	if _, err := io.Copy(zw, &contextReader{ctx: ctx, r: src}); err != nil {
		_ = zw.Close()
		_ = dst.Close()
		return 0, fmt.Errorf("compress: %w", err)
	}
	if err := zw.Close(); err != nil {
		_ = dst.Close()
		return 0, fmt.Errorf("flush archive: %w", err)
	}
	if err := dst.Close(); err != nil {
		return 0, fmt.Errorf("close archive: %w", err)
	}
	return counter.n, nil
}

// removeTolerant deletes path. A failed delete is only reported when path
// still exists afterwards; someone else removing it first is fine.
func (m *Manager) removeTolerant(path string) error {
	err := m.fs.Remove(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if _, statErr := m.fs.Stat(path); statErr != nil && errors.Is(statErr, fs.ErrNotExist) {
		return nil
	}
	opErr := &OpError{Op: OpDelete, Path: path, Err: err}
	m.log.Error("log remove failed; file remains",
		slog.String("path", path),
		slog.Any("error", err),
		slog.String(FieldEventType, eventRemoveFailed),
	)
	return opErr
}

func (m *Manager) logGzipMissing(path string) {
	m.log.Debug("gzip target no longer exists",
		slog.String("path", path),
		slog.String(FieldEventType, eventGzipMissing),
	)
}

func (m *Manager) gzipFailed(err error) error {
	m.log.Error("log compression failed",
		slog.Any("error", err),
		slog.String(FieldEventType, eventGzipFailed),
	)
	return err
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// contextReader stops a copy once ctx is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
