package config

import "time"

// Default values shared by the config layer and the command line.
const (
	DefaultPort              = 8080
	DefaultMaxUploadSize     = 100 << 20 // 100 MiB
	DefaultMaxStreamUpload   = 0         // unbounded
	DefaultMaxTextSize       = 5 << 20
	DefaultMaxArchiveEntries = 10000
	DefaultMaxExtractBytes   = 4 << 30
	DefaultMaxBufferChars    = 100000
	DefaultFrameChars        = 16384
	DefaultIdleTimeout       = 24 * time.Hour
	DefaultReapInterval      = time.Hour
	DefaultExecTimeout       = 5 * time.Minute

	// MaxReplayFrames matches the session manager's replay frame bound.
	MaxReplayFrames = 512
)

// DefaultAllowedCommands is the one-shot runner allow-list used when none is
// configured.
var DefaultAllowedCommands = []string{
	"ls",
	"pwd",
	"whoami",
	"uname",
	"df",
	"du",
}
