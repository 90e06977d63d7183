package logrotate

import (
	"path/filepath"
	"regexp"
	"strconv"
)

// File name patterns. A name is tested against activePattern first, so a
// name can land in at most one set.
var (
	activePattern   = regexp.MustCompile(`^\w+\.(\d+)\.log\.(\d+)$`)
	archivedPattern = regexp.MustCompile(`^\w+\.(\d+)\.log\.(\d+)\.gz$`)
)

// ActiveFileRecord is an uncompressed log file named
// <word>.<pid>.log.<sequence>, such as ops.25559.log.001.
type ActiveFileRecord struct {
	// Path is the absolute path of the file
	Path string
	// PID is the id of the process that owns the file
	PID int
	// Sequence is the rotation sequence number
	Sequence int
	// RawPID and RawSequence keep the digits exactly as they appear in the
	// name, leading zeros included
	RawPID      string
	RawSequence string
}

// ArchivedFileRecord is a compressed log file named
// <word>.<pid>.log.<sequence>.gz.
type ArchivedFileRecord struct {
	Path        string
	PID         int
	Sequence    int
	RawPID      string
	RawSequence string
}

// Classification is the result of matching one directory listing.
type Classification struct {
	Active   []ActiveFileRecord
	Archived []ArchivedFileRecord
}

// Classify matches each name against the active and archived patterns and
// returns the records found, in listing order. Names matching neither, and
// names whose digits overflow an int, are dropped.
func Classify(dir string, names []string) Classification {
	var c Classification
	for _, name := range names {
		if m := activePattern.FindStringSubmatch(name); m != nil {
			pid, seq, ok := parseIDs(m[1], m[2])
			if !ok {
				continue
			}
			c.Active = append(c.Active, ActiveFileRecord{
				Path:        filepath.Join(dir, name),
				PID:         pid,
				Sequence:    seq,
				RawPID:      m[1],
				RawSequence: m[2],
			})
			continue
		}
		if m := archivedPattern.FindStringSubmatch(name); m != nil {
			pid, seq, ok := parseIDs(m[1], m[2])
			if !ok {
				continue
			}
			c.Archived = append(c.Archived, ArchivedFileRecord{
				Path:        filepath.Join(dir, name),
				PID:         pid,
				Sequence:    seq,
				RawPID:      m[1],
				RawSequence: m[2],
			})
		}
	}
	return c
}

func parseIDs(rawPID, rawSeq string) (int, int, bool) {
	pid, err := strconv.Atoi(rawPID)
	if err != nil {
		return 0, 0, false
	}
	seq, err := strconv.Atoi(rawSeq)
	if err != nil {
		return 0, 0, false
	}
	return pid, seq, true
}
