package logrotate

import "time"

// Defaults applied to zero-valued Config fields
const (
	// DefaultMaxNumberActiveFiles is the number of active files kept per live pid
	DefaultMaxNumberActiveFiles = 5

	// DefaultRetentionDays is the age in days after which archived files are pruned
	DefaultRetentionDays = 10

	// DefaultLogLevel is the level used when Config.LogLevel is empty
	DefaultLogLevel = "warn"

	// DefaultLogFormat is the handler used when Config.LogFormat is empty
	DefaultLogFormat = "console"

	// DefaultReadLines is the line count used by Tail, Head and TailFollow
	// when Lines is zero
	DefaultReadLines = 10

	// NoLines asks Tail, Head or TailFollow for zero lines. A follow started
	// with NoLines only delivers what is appended afterwards.
	NoLines = -1
)

// Naming and filesystem constants
const (
	// GzipSuffix is appended to an active file name once it is archived
	GzipSuffix = ".gz"

	// RetentionDay is the fixed length of one retention day
	RetentionDay = 24 * time.Hour

	// FileMode is the mode for created archive files
	FileMode = 0o644

	// DirMode is the mode for created directories
	DirMode = 0o755
)

// Binary paths used by ExecStreamer and ProcessTableLiveness
const (
	// DefaultTailPath is the default tail binary
	DefaultTailPath = "tail"

	// DefaultHeadPath is the default head binary
	DefaultHeadPath = "head"

	// DefaultPsPath is the default ps binary
	DefaultPsPath = "ps"

	// DefaultLockFileName is the daemon lock created inside the log directory
	DefaultLockFileName = ".logrotated.lock"
)

// Operation identifies the step that produced an OpError
type Operation int

const (
	// OpUnknown represents an unknown operation
	OpUnknown Operation = iota
	// OpList lists the log directory
	OpList
	// OpLiveness snapshots the live process ids
	OpLiveness
	// OpStat stats a single file
	OpStat
	// OpGzip compresses an active file
	OpGzip
	// OpDelete removes a file
	OpDelete
	// OpTail reads the last lines of a file
	OpTail
	// OpHead reads the first lines of a file
	OpHead
	// OpFollow follows a growing file
	OpFollow
	// OpWatch subscribes to directory notifications
	OpWatch
	// OpLock acquires the daemon lock
	OpLock
)

// Operation string constants
const (
	opUnknownStr  = "unknown"
	opListStr     = "list"
	opLivenessStr = "liveness"
	opStatStr     = "stat"
	opGzipStr     = "gzip"
	opDeleteStr   = "delete"
	opTailStr     = "tail"
	opHeadStr     = "head"
	opFollowStr   = "follow"
	opWatchStr    = "watch"
	opLockStr     = "lock"
)

// String returns the string representation of an Operation
func (op Operation) String() string {
	switch op {
	case OpList:
		return opListStr
	case OpLiveness:
		return opLivenessStr
	case OpStat:
		return opStatStr
	case OpGzip:
		return opGzipStr
	case OpDelete:
		return opDeleteStr
	case OpTail:
		return opTailStr
	case OpHead:
		return opHeadStr
	case OpFollow:
		return opFollowStr
	case OpWatch:
		return opWatchStr
	case OpLock:
		return opLockStr
	default:
		return opUnknownStr
	}
}
