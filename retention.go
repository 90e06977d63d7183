package logrotate

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"sync"
	"time"
)

// RetentionHorizon returns the current time minus RetentionDays fixed
// 24-hour days. Archives modified strictly before it are pruned.
func (m *Manager) RetentionHorizon() time.Time {
	return m.now().Add(-time.Duration(m.cfg.RetentionDays) * RetentionDay)
}

// RetentionHorizonMillis returns RetentionHorizon in Unix milliseconds
func (m *Manager) RetentionHorizonMillis() int64 {
	return m.RetentionHorizon().UnixMilli()
}

// DeleteOldLogFiles removes every archive whose modification time is
// strictly before the retention horizon. The horizon is computed once per
// call; records are handled concurrently and independently. It returns the
// number of files removed.
func (m *Manager) DeleteOldLogFiles(ctx context.Context, records []ArchivedFileRecord) int {
	if len(records) == 0 {
		return 0
	}
	horizon := m.RetentionHorizon()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		removed int
	)
	for _, rec := range records {
		wg.Add(1)
		go func(path string) {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			if m.pruneIfExpired(path, horizon) {
				mu.Lock()
				removed++
				mu.Unlock()
			}
		}(rec.Path)
	}
	wg.Wait()
	return removed
}

func (m *Manager) pruneIfExpired(path string, horizon time.Time) bool {
	info, err := m.fs.Stat(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			m.log.Warn("log retention stat failed",
				slog.String("path", path),
				slog.Any("error", err),
				slog.String(FieldEventType, eventRemoveFailed),
			)
		}
		return false
	}
	if !info.ModTime().Before(horizon) {
		return false
	}
	if err := m.removeTolerant(path); err != nil {
		return false
	}

	m.pruned.Add(1)
	m.log.Info("log pruned",
		slog.String("path", path),
		slog.Time("modified", info.ModTime()),
		slog.String(FieldEventType, eventPruned),
	)
	return true
}
