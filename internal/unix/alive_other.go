//go:build !linux && !darwin

// Package unix provides platform-specific process primitives.
package unix

import "errors"

// Supported reports whether ProcessAlive is backed by a syscall on this platform.
const Supported = false

// ProcessAlive is not available on this platform.
func ProcessAlive(pid int) (bool, error) {
	return false, errors.New("process liveness syscall not supported on this platform")
}
