//go:build windows

package terminal

import "fmt"

// StartShell is not supported on Windows.
func StartShell(opts SpawnOptions) (Process, error) {
	return nil, fmt.Errorf("interactive shells are not supported on Windows")
}
