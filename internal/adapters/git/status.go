package git

import (
	"strings"

	"github.com/brianly1003/lanterm/internal/domain/ports"
)

// parseStatus parses `git status --porcelain` output.
func parseStatus(output string) []ports.GitFileStatus {
	// Initialize to empty slice (not nil) so JSON marshals to [] not null
	files := make([]ports.GitFileStatus, 0)

	// Only trim trailing newline, NOT leading spaces (they are significant in porcelain format)
	lines := strings.Split(strings.TrimSuffix(output, "\n"), "\n")
	for _, line := range lines {
		if len(line) < 4 {
			continue
		}

		// XY PATH, X = staged status, Y = unstaged status
		staged := line[0]
		unstaged := line[1]
		path := strings.TrimLeft(line[2:], " ")

		// Renames and copies: XY old -> new
		if i := strings.LastIndex(path, " -> "); i >= 0 {
			path = path[i+len(" -> "):]
		}
		path = unquote(path)

		files = append(files, ports.GitFileStatus{
			Path:        path,
			Status:      string([]byte{staged, unstaged}),
			IsStaged:    staged != ' ' && staged != '?',
			IsUntracked: staged == '?' && unstaged == '?',
		})
	}

	return files
}

// unquote strips the double quotes git adds around unusual paths.
func unquote(path string) string {
	if len(path) >= 2 && path[0] == '"' && path[len(path)-1] == '"' {
		return strings.ReplaceAll(path[1:len(path)-1], `\"`, `"`)
	}
	return path
}
