package logrotate

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/axondata/go-logrotate/internal/unix"
)

// LiveSet answers liveness questions against one snapshot. A rescan takes
// exactly one snapshot and asks it about every file.
type LiveSet interface {
	Alive(pid int) bool
}

// LivenessOracle produces LiveSet snapshots.
type LivenessOracle interface {
	Snapshot(ctx context.Context) (LiveSet, error)
}

// StaticLiveness is a fixed set of live pids. It is both an oracle and its
// own snapshot.
type StaticLiveness map[int]struct{}

// NewStaticLiveness returns a StaticLiveness holding pids.
func NewStaticLiveness(pids ...int) StaticLiveness {
	s := make(StaticLiveness, len(pids))
	for _, pid := range pids {
		s[pid] = struct{}{}
	}
	return s
}

// Alive reports whether pid is in the set
func (s StaticLiveness) Alive(pid int) bool {
	_, ok := s[pid]
	return ok
}

// Snapshot returns s
func (s StaticLiveness) Snapshot(context.Context) (LiveSet, error) {
	return s, nil
}

// SignalLiveness probes each pid with signal 0. Answers are memoized per
// snapshot so a pid is probed at most once per rescan.
type SignalLiveness struct{}

// Snapshot starts an empty memo. It fails only where the syscall is missing.
func (SignalLiveness) Snapshot(context.Context) (LiveSet, error) {
	if !unix.Supported {
		return nil, ErrUnsupported
	}
	return &signalSnapshot{seen: make(map[int]bool)}, nil
}

type signalSnapshot struct {
	mu   sync.Mutex
	seen map[int]bool
}

// Alive treats a probe error as alive so that an uncertain answer never
// causes a file to be compressed.
func (s *signalSnapshot) Alive(pid int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if alive, ok := s.seen[pid]; ok {
		return alive
	}
	alive, err := unix.ProcessAlive(pid)
	if err != nil {
		alive = true
	}
	s.seen[pid] = alive
	return alive
}

// ProcessTableLiveness lists every pid with ps and snapshots the full set.
type ProcessTableLiveness struct {
	// PsPath is the ps binary, DefaultPsPath when empty
	PsPath string
}

// Snapshot runs one process listing
func (p ProcessTableLiveness) Snapshot(ctx context.Context) (LiveSet, error) {
	psPath := p.PsPath
	if psPath == "" {
		psPath = DefaultPsPath
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, psPath, "-e", "-o", "pid=")
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, &OpError{Op: OpLiveness, Path: psPath, Err: fmt.Errorf("%w (stderr: %s)", err, strings.TrimSpace(stderr.String()))}
	}
	return parseProcessTable(stdout.Bytes()), nil
}

func parseProcessTable(out []byte) StaticLiveness {
	live := make(StaticLiveness)
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		field := strings.TrimSpace(scanner.Text())
		if field == "" {
			continue
		}
		if pid, err := strconv.Atoi(field); err == nil {
			live[pid] = struct{}{}
		}
	}
	return live
}

// DefaultLiveness returns the signal probe where the platform has one and
// falls back to a full process listing elsewhere.
func DefaultLiveness() LivenessOracle {
	if unix.Supported {
		return SignalLiveness{}
	}
	return ProcessTableLiveness{}
}
