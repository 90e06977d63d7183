package logrotate

// Version is the current version of the go-logrotate library
const Version = "1.0.0"

// VersionInfo contains detailed version information
type VersionInfo struct {
	// Version is the semantic version
	Version string
	// ActivePattern is the regular expression active file names match
	ActivePattern string
	// ArchivedPattern is the regular expression archived file names match
	ArchivedPattern string
}

// GetVersion returns the current version information
func GetVersion() VersionInfo {
	return VersionInfo{
		Version:         Version,
		ActivePattern:   activePattern.String(),
		ArchivedPattern: archivedPattern.String(),
	}
}
