//go:build linux || darwin

// Package unix provides platform-specific process primitives.
package unix

import (
	"errors"
	"math"

	"golang.org/x/sys/unix"
)

// Supported reports whether ProcessAlive is backed by a syscall on this platform.
const Supported = true

// ProcessAlive reports whether pid names a running process. It sends signal
// 0, which performs the permission and existence checks without delivering
// anything. EPERM means the process exists under another user.
//
// The kernel truncates pid to a 32-bit pid_t, so larger values would alias
// real processes (or -1, every process). No process has such a pid.
func ProcessAlive(pid int) (bool, error) {
	if pid <= 0 || pid > math.MaxInt32 {
		return false, nil
	}
	err := unix.Kill(pid, 0)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, unix.ESRCH):
		return false, nil
	case errors.Is(err, unix.EPERM):
		return true, nil
	default:
		return false, err
	}
}
