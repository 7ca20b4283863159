// Package terminal spawns interactive shells on a PTY and runs allow-listed
// one-shot commands.
package terminal

import (
	"io"
	"os"
)

const (
	// DefaultCols and DefaultRows are used when a caller passes zero geometry.
	DefaultCols uint16 = 80
	DefaultRows uint16 = 24

	// TermType is exported to spawned shells.
	TermType = "xterm-256color"
)

// Process is a running interactive shell.
type Process interface {
	io.ReadWriteCloser
	// Resize changes the terminal geometry.
	Resize(cols, rows uint16) error
	// Kill terminates the process and its process group.
	Kill() error
	// Wait blocks until the process exits.
	Wait() error
	// Pid returns the OS process id.
	Pid() int
}

// SpawnOptions configures a new shell.
type SpawnOptions struct {
	Dir   string
	Shell string
	Cols  uint16
	Rows  uint16
	Env   []string
}

// Spawner starts a shell process. Tests substitute a fake.
type Spawner func(opts SpawnOptions) (Process, error)

// DefaultShell returns $SHELL, falling back to /bin/bash.
func DefaultShell() string {
	if sh := os.Getenv("SHELL"); sh != "" {
		return sh
	}
	return "/bin/bash"
}

func (o SpawnOptions) withDefaults() SpawnOptions {
	if o.Shell == "" {
		o.Shell = DefaultShell()
	}
	if o.Cols == 0 {
		o.Cols = DefaultCols
	}
	if o.Rows == 0 {
		o.Rows = DefaultRows
	}
	return o
}
