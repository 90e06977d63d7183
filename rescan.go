package logrotate

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/spf13/afero"
)

// ListDirectoryFiles returns the names of the non-directory entries of the
// log directory, sorted by name.
func (m *Manager) ListDirectoryFiles(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	infos, err := afero.ReadDir(m.fs, m.cfg.LogDir)
	if err != nil {
		return nil, &OpError{Op: OpList, Path: m.cfg.LogDir, Err: err}
	}
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		if info.IsDir() {
			continue
		}
		names = append(names, info.Name())
	}
	return names, nil
}

// Classify lists and classifies the log directory once
func (m *Manager) Classify(ctx context.Context) (Classification, error) {
	names, err := m.ListDirectoryFiles(ctx)
	if err != nil {
		return Classification{}, err
	}
	return Classify(m.cfg.LogDir, names), nil
}

// Rescan runs one classification pass: it snapshots liveness and lists the
// directory concurrently, compresses the files the rotation policy selects
// and prunes expired archives, all concurrently. A failed snapshot or
// listing aborts the pass; it is logged and not retried.
//
// The watcher calls Rescan once per notification without waiting for
// earlier passes, so passes may overlap each other and any direct call.
func (m *Manager) Rescan(ctx context.Context) error {
	m.rescans.Add(1)

	var (
		wg      sync.WaitGroup
		live    LiveSet
		liveErr error
		names   []string
		listErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		live, liveErr = m.liveness.Snapshot(ctx)
	}()
	go func() {
		defer wg.Done()
		names, listErr = m.ListDirectoryFiles(ctx)
	}()
	wg.Wait()

	if liveErr != nil {
		err := liveErr
		var opErr *OpError
		if !errors.As(err, &opErr) {
			err = &OpError{Op: OpLiveness, Path: m.cfg.LogDir, Err: liveErr}
		}
		m.logRescanFailure(err)
		return err
	}
	if listErr != nil {
		m.logRescanFailure(listErr)
		return listErr
	}

	classified := Classify(m.cfg.LogDir, names)
	selected := SelectForCompression(classified.Active, live, m.cfg.MaxNumberActiveFiles, m.cfg.SequenceOrder)

	var mu sync.Mutex
	merr := &MultiError{}

	for _, rec := range selected {
		wg.Add(1)
		go func(path string) {
			defer wg.Done()
			if err := m.Gzip(ctx, path); err != nil {
				mu.Lock()
				merr.Add(err)
				mu.Unlock()
			}
		}(rec.Path)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		m.DeleteOldLogFiles(ctx, classified.Archived)
	}()

	wg.Wait()
	return merr.Err()
}

func (m *Manager) logRescanFailure(err error) {
	m.log.Warn("log directory rescan aborted",
		slog.String("dir", m.cfg.LogDir),
		slog.Any("error", err),
		slog.String(FieldEventType, eventRescanFailed),
	)
}
