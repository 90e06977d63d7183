package logrotate

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/renameio/v2"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

const testLogDir = "/var/log/app"

const (
	waitFor   = 2 * time.Second
	shortWait = 50 * time.Millisecond
	tick      = 5 * time.Millisecond
)

var zeroTime time.Time

func timeout() <-chan time.Time {
	return time.After(waitFor)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newMemManager returns a manager over an in-memory filesystem rooted at
// testLogDir.
func newMemManager(t *testing.T, cfg Config, opts ...ManagerOption) (*Manager, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll(testLogDir, DirMode))
	if cfg.LogDir == "" {
		cfg.LogDir = testLogDir
	}
	base := []ManagerOption{
		WithFs(fs),
		WithLogger(discardLogger()),
		WithLiveness(NewStaticLiveness()),
		WithStreamer(newFakeStreamer()),
	}
	mgr, err := New(cfg, append(base, opts...)...)
	require.NoError(t, err)
	return mgr, fs
}

// newDiskManager returns a manager over a fresh temporary directory.
func newDiskManager(t *testing.T, opts ...ManagerOption) (*Manager, string) {
	t.Helper()
	dir := t.TempDir()
	base := []ManagerOption{
		WithLogger(discardLogger()),
		WithLiveness(NewStaticLiveness()),
	}
	mgr, err := New(Config{LogDir: dir}, append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = mgr.Stop() })
	return mgr, dir
}

func writeDiskFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, renameio.WriteFile(path, []byte(content), FileMode))
	return path
}

func writeMemFile(t *testing.T, fs afero.Fs, name, content string, modTime time.Time) string {
	t.Helper()
	path := filepath.Join(testLogDir, name)
	require.NoError(t, afero.WriteFile(fs, path, []byte(content), FileMode))
	if !modTime.IsZero() {
		require.NoError(t, fs.Chtimes(path, modTime, modTime))
	}
	return path
}

func memExists(t *testing.T, fs afero.Fs, path string) bool {
	t.Helper()
	ok, err := afero.Exists(fs, path)
	require.NoError(t, err)
	return ok
}

func diskExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// fakeStreamer records every stream it starts. Follow streams deliver what
// is pushed with emit until killed.
type fakeStreamer struct {
	mu      sync.Mutex
	streams []*fakeStream
	failing bool

	// gate, when set before use, holds every start until it is closed.
	gate    chan struct{}
	waiting atomic.Int32
}

func newFakeStreamer() *fakeStreamer {
	return &fakeStreamer{}
}

func (f *fakeStreamer) Tail(file string, lines int, follow bool) (Stream, error) {
	return f.start(file, lines, follow)
}

func (f *fakeStreamer) Head(file string, lines int) (Stream, error) {
	return f.start(file, lines, false)
}

func (f *fakeStreamer) start(file string, lines int, follow bool) (Stream, error) {
	if f.gate != nil {
		f.waiting.Add(1)
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return nil, os.ErrPermission
	}
	s := &fakeStream{
		file:   file,
		lines:  lines,
		follow: follow,
		chunks: make(chan []byte, 64),
		killed: make(chan struct{}),
		exit:   make(chan int, 1),
	}
	if !follow {
		s.chunks <- []byte(file + "\n")
		close(s.chunks)
	}
	f.streams = append(f.streams, s)
	return s, nil
}

func (f *fakeStreamer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.streams)
}

func (f *fakeStreamer) stream(i int) *fakeStream {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.streams[i]
}

type fakeStream struct {
	file   string
	lines  int
	follow bool

	chunks   chan []byte
	killed   chan struct{}
	killOnce sync.Once
	exit     chan int
}

func (s *fakeStream) emit(data string) {
	s.chunks <- []byte(data)
}

// finish ends the stream on its own with code.
func (s *fakeStream) finish(code int) {
	s.exit <- code
}

func (s *fakeStream) isKilled() bool {
	select {
	case <-s.killed:
		return true
	default:
		return false
	}
}

func (s *fakeStream) Run(onChunk func([]byte)) int {
	for {
		select {
		case <-s.killed:
			return -1
		case code := <-s.exit:
			return code
		case chunk, ok := <-s.chunks:
			if !ok {
				return 0
			}
			onChunk(chunk)
		}
	}
}

func (s *fakeStream) Kill() error {
	s.killOnce.Do(func() { close(s.killed) })
	return nil
}
