package logrotate

import (
	"os/exec"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type readResult struct {
	mu   sync.Mutex
	data strings.Builder
	code chan int
}

func newReadResult() *readResult {
	return &readResult{code: make(chan int, 1)}
}

func (r *readResult) options(file string, lines int) ReadOptions {
	return ReadOptions{
		File:  file,
		Lines: lines,
		OnData: func(b []byte) {
			r.mu.Lock()
			r.data.Write(b)
			r.mu.Unlock()
		},
		OnClose: func(code int) { r.code <- code },
	}
}

func (r *readResult) wait(t *testing.T) (string, int) {
	t.Helper()
	select {
	case code := <-r.code:
		r.mu.Lock()
		defer r.mu.Unlock()
		return r.data.String(), code
	case <-timeout():
		t.Fatal("timeout waiting for read to close")
		return "", 0
	}
}

func TestTailUsesStreamer(t *testing.T) {
	streamer := newFakeStreamer()
	mgr, fs := newMemManager(t, Config{}, WithStreamer(streamer))
	file := writeMemFile(t, fs, "ops.1.log.1", "a\n", zeroTime)
	res := newReadResult()

	require.NoError(t, mgr.Tail(res.options(file, 0)))
	data, code := res.wait(t)

	assert.Equal(t, file+"\n", data)
	assert.Equal(t, 0, code)
	assert.Equal(t, DefaultReadLines, streamer.stream(0).lines)
	assert.False(t, streamer.stream(0).follow)
}

func TestReadNoLines(t *testing.T) {
	mgr, dir := newDiskManager(t, WithStreamer(NativeStreamer{}))
	file := writeDiskFile(t, dir, "ops.1.log.1", "1\n2\n3\n")

	for _, read := range []func(ReadOptions) error{mgr.Tail, mgr.Head} {
		res := newReadResult()
		require.NoError(t, read(res.options(file, NoLines)))
		data, code := res.wait(t)
		assert.Empty(t, data)
		assert.Equal(t, 0, code)
	}
}

func TestReadMissingFileCallsNothing(t *testing.T) {
	streamer := newFakeStreamer()
	mgr, _ := newMemManager(t, Config{}, WithStreamer(streamer))
	called := make(chan struct{}, 2)
	opts := ReadOptions{
		File:    testLogDir + "/gone.1.log.1",
		OnData:  func([]byte) { called <- struct{}{} },
		OnClose: func(int) { called <- struct{}{} },
	}

	require.NoError(t, mgr.Tail(opts))
	require.NoError(t, mgr.Head(opts))

	assert.Never(t, func() bool { return len(called) > 0 }, shortWait, tick)
	assert.Zero(t, streamer.count())
}

func TestReadRejectsMalformedOptions(t *testing.T) {
	mgr, _ := newMemManager(t, Config{})

	require.ErrorIs(t, mgr.Tail(ReadOptions{OnData: func([]byte) {}}), ErrConfig)
	require.ErrorIs(t, mgr.Head(ReadOptions{File: "x"}), ErrConfig)
	require.ErrorIs(t, mgr.Head(ReadOptions{File: "x", OnData: func([]byte) {}, Lines: -2}), ErrConfig)
}

func TestReadSpawnFailureReportsExitCode(t *testing.T) {
	streamer := newFakeStreamer()
	streamer.failing = true
	mgr, fs := newMemManager(t, Config{}, WithStreamer(streamer))
	file := writeMemFile(t, fs, "ops.1.log.1", "a\n", zeroTime)
	res := newReadResult()

	require.NoError(t, mgr.Head(res.options(file, 3)))
	data, code := res.wait(t)

	assert.Empty(t, data)
	assert.Equal(t, -1, code)
}

func TestNativeStreamerTailAndHead(t *testing.T) {
	mgr, dir := newDiskManager(t, WithStreamer(NativeStreamer{}))
	file := writeDiskFile(t, dir, "ops.1.log.1", "1\n2\n3\n4\n5")

	tail := newReadResult()
	require.NoError(t, mgr.Tail(tail.options(file, 2)))
	data, code := tail.wait(t)
	assert.Equal(t, "4\n5\n", data)
	assert.Equal(t, 0, code)

	head := newReadResult()
	require.NoError(t, mgr.Head(head.options(file, 2)))
	data, code = head.wait(t)
	assert.Equal(t, "1\n2\n", data)
	assert.Equal(t, 0, code)
}

func TestExecStreamerTailAndHead(t *testing.T) {
	if _, err := exec.LookPath(DefaultTailPath); err != nil {
		t.Skip("tail not installed")
	}
	if _, err := exec.LookPath(DefaultHeadPath); err != nil {
		t.Skip("head not installed")
	}
	mgr, dir := newDiskManager(t, WithStreamer(&ExecStreamer{}))
	file := writeDiskFile(t, dir, "ops.1.log.1", "1\n2\n3\n4\n5\n")

	tail := newReadResult()
	require.NoError(t, mgr.Tail(tail.options(file, 3)))
	data, code := tail.wait(t)
	assert.Equal(t, "3\n4\n5\n", data)
	assert.Equal(t, 0, code)

	head := newReadResult()
	require.NoError(t, mgr.Head(head.options(file, 1)))
	data, code = head.wait(t)
	assert.Equal(t, "1\n", data)
	assert.Equal(t, 0, code)
}

func TestReadLastLines(t *testing.T) {
	dir := t.TempDir()
	file := writeDiskFile(t, dir, "f", "a\nb\nc\npartial")

	lines, offset, err := readLastLines(file, 2, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, lines)
	assert.Equal(t, int64(len("a\nb\nc\n")), offset)

	lines, _, err = readLastLines(file, 2, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "partial"}, lines)

	lines, _, err = readLastLines(file, 10, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, lines)
}
