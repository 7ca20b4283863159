// Package main is the entry point for lanterm.
//
//	@title			lanterm API
//	@version		1.0
//	@description	Browser terminal and file manager for a machine on your LAN.
//	@description	Serves PTY sessions over WebSocket and a sandboxed filesystem, archive and git API over HTTP.
//
//	@contact.name	Brian Ly
//	@contact.url	https://github.com/brianly1003/lanterm
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host		localhost:8080
//	@BasePath	/
//	@schemes	http
//
//	@tag.name			health
//	@tag.description	Health check endpoints
//	@tag.name			files
//	@tag.description	Sandboxed file operations
//	@tag.name			archive
//	@tag.description	Archive inspection and extraction
//	@tag.name			sessions
//	@tag.description	Terminal session management
//	@tag.name			git
//	@tag.description	Git status, history and safe undo
//	@tag.name			exec
//	@tag.description	Allow-listed one-shot commands
//	@tag.name			audit
//	@tag.description	Operation journal and connect QR code
package main

import (
	"fmt"
	"os"

	"github.com/brianly1003/lanterm/cmd/lanterm/cmd"

	_ "github.com/brianly1003/lanterm/api/swagger" // swagger docs
)

// Version information (set by ldflags during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	cmd.SetVersionInfo(Version, BuildTime, GitCommit)

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
