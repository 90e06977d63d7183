package logrotate

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"
	"vawter.tech/stopper"
)

// Manager rotates, compresses and prunes the log files of one directory and
// multiplexes follow reads of its files. Each Manager owns its watcher and
// its config; two managers never share state.
type Manager struct {
	cfg           Config
	log           *slog.Logger
	fs            afero.Fs
	liveness      LivenessOracle
	streamer      Streamer
	now           func() time.Time
	initialRescan bool

	// mu guards the watch handle and everything started with it
	mu      sync.Mutex
	watcher *fsnotify.Watcher
	sctx    *stopper.Context
	cancel  context.CancelFunc

	watchEvents atomic.Uint64
	rescans     atomic.Uint64
	compressed  atomic.Uint64
	pruned      atomic.Uint64

	tailMu   sync.Mutex
	sessions map[string]*tailSession
	spawning map[string]chan struct{}
}

// ManagerOption configures a Manager
type ManagerOption func(*Manager)

// WithLogger sets the logger. The default is built from Config.LogLevel and
// Config.LogFormat and writes to stderr.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		m.log = logger
	}
}

// WithFs sets the filesystem used for listing, stat, compression and
// removal. Watching and streaming always use the OS filesystem.
func WithFs(fs afero.Fs) ManagerOption {
	return func(m *Manager) {
		m.fs = fs
	}
}

// WithLiveness sets the liveness oracle
func WithLiveness(oracle LivenessOracle) ManagerOption {
	return func(m *Manager) {
		m.liveness = oracle
	}
}

// WithStreamer sets the streamer used by Tail, Head and TailFollow
func WithStreamer(s Streamer) ManagerOption {
	return func(m *Manager) {
		m.streamer = s
	}
}

// WithClock sets the time source used for the retention horizon
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.now = now
	}
}

// WithInitialRescan controls whether Start rescans once before the first
// notification arrives. Enabled by default.
func WithInitialRescan(enabled bool) ManagerOption {
	return func(m *Manager) {
		m.initialRescan = enabled
	}
}

// New creates a Manager for cfg. Zero-valued optional fields take their
// defaults; invalid values are reported as a *ConfigError.
func New(cfg Config, opts ...ManagerOption) (*Manager, error) {
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	m := &Manager{
		cfg:           cfg,
		fs:            afero.NewOsFs(),
		now:           time.Now,
		initialRescan: true,
		sessions:      make(map[string]*tailSession),
		spawning:      make(map[string]chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}

	if m.log == nil {
		m.log = NewLogger(LoggerOptions{Level: cfg.LogLevel, Format: cfg.LogFormat})
	}
	if m.liveness == nil {
		m.liveness = DefaultLiveness()
	}
	if m.streamer == nil {
		m.streamer = DefaultStreamer()
	}
	return m, nil
}

// Config returns the manager's configuration
func (m *Manager) Config() Config {
	return m.cfg
}

// Start begins watching the log directory. Calling Start on a started
// manager does nothing.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.watcher != nil {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return &OpError{Op: OpWatch, Path: m.cfg.LogDir, Err: err}
	}
	if err := watcher.Add(m.cfg.LogDir); err != nil {
		_ = watcher.Close()
		return &OpError{Op: OpWatch, Path: m.cfg.LogDir, Err: err}
	}

	runCtx, cancel := context.WithCancel(ctx)
	sctx := stopper.WithContext(runCtx)

	m.watcher = watcher
	m.sctx = sctx
	m.cancel = cancel

	sctx.Go(func(sctx *stopper.Context) error {
		m.watchLoop(runCtx, sctx, watcher)
		return nil
	})
	if m.initialRescan {
		m.launch(runCtx, sctx, func(ctx context.Context) {
			_ = m.Rescan(ctx)
		})
	}

	m.log.Info("log directory watch started",
		slog.String("dir", m.cfg.LogDir),
		slog.String(FieldEventType, eventWatchStarted),
	)
	return nil
}

// Stop unsubscribes from the directory and force-kills every follow
// session. In-flight rescans are cancelled but not awaited. Calling Stop on
// a stopped manager only repeats the session teardown, which is then empty.
func (m *Manager) Stop() error {
	m.mu.Lock()
	watcher, sctx, cancel := m.watcher, m.sctx, m.cancel
	m.watcher, m.sctx, m.cancel = nil, nil, nil
	m.mu.Unlock()

	var err error
	if watcher != nil {
		cancel()
		sctx.Stop(0)
		if closeErr := watcher.Close(); closeErr != nil {
			err = &OpError{Op: OpWatch, Path: m.cfg.LogDir, Err: closeErr}
		}
		m.log.Info("log directory watch stopped",
			slog.String("dir", m.cfg.LogDir),
			slog.String(FieldEventType, eventWatchStopped),
		)
	}

	m.teardownSessions()
	return err
}

// Started reports whether the directory is being watched
func (m *Manager) Started() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.watcher != nil
}

// WatchEventCount returns the number of directory notifications received
// since the manager was created. It never decreases.
func (m *Manager) WatchEventCount() uint64 {
	return m.watchEvents.Load()
}

// Stats is a point-in-time view of the manager's counters.
type Stats struct {
	WatchEvents  uint64
	Rescans      uint64
	Compressed   uint64
	Pruned       uint64
	TailSessions int
}

// Stats returns the manager's counters
func (m *Manager) Stats() Stats {
	return Stats{
		WatchEvents:  m.watchEvents.Load(),
		Rescans:      m.rescans.Load(),
		Compressed:   m.compressed.Load(),
		Pruned:       m.pruned.Load(),
		TailSessions: m.TailSessionCount(),
	}
}

func (m *Manager) watchLoop(ctx context.Context, sctx *stopper.Context, watcher *fsnotify.Watcher) {
	for !sctx.IsStopping() {
		select {
		case <-sctx.Stopping():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			n := m.watchEvents.Add(1)
			m.log.Debug("log directory changed",
				slog.String("path", event.Name),
				slog.String("op", event.Op.String()),
				slog.Uint64("count", n),
			)
			// Rescans are not serialized; each notification gets its own.
			m.launch(ctx, sctx, func(ctx context.Context) {
				_ = m.Rescan(ctx)
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			if err != nil {
				m.log.Warn("log directory watch error",
					slog.String("dir", m.cfg.LogDir),
					slog.Any("error", err),
					slog.String(FieldEventType, eventWatchError),
				)
			}
		}
	}
}

// launch runs fn as a task of sctx. Tasks offered after Stop are dropped.
func (m *Manager) launch(ctx context.Context, sctx *stopper.Context, fn func(context.Context)) {
	sctx.Go(func(*stopper.Context) error {
		fn(ctx)
		return nil
	})
}
