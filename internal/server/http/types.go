package http

import (
	"github.com/brianly1003/lanterm/internal/audit"
	"github.com/brianly1003/lanterm/internal/domain/ports"
	"github.com/brianly1003/lanterm/internal/files"
	"github.com/brianly1003/lanterm/internal/session"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error" example:"path is outside the configured root"`
	Code  string `json:"code" example:"OUT_OF_ROOT"`
	// Result holds the partial outcome of a copy, move or extract that
	// stopped midway.
	Result interface{} `json:"result,omitempty" swaggertype:"object"`
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status   string `json:"status" example:"ok"`
	Time     string `json:"time" example:"2024-01-15T10:30:00Z"`
	Sessions int    `json:"sessions" example:"2"`
}

// PathResponse names the entry an operation produced or touched.
type PathResponse struct {
	Path string `json:"path" example:"src/main.go"`
}

// FileListResponse is a directory listing.
type FileListResponse struct {
	Path    string        `json:"path" example:"src"`
	Entries []files.Entry `json:"entries"`
}

// WriteFileRequest replaces a text file. ExpectedMtime, in Unix
// milliseconds, guards against overwriting a concurrent change.
type WriteFileRequest struct {
	Path          string `json:"path" example:"README.md"`
	Content       string `json:"content"`
	ExpectedMtime *int64 `json:"expectedMtime,omitempty" example:"1705314600000"`
}

// MkdirRequest creates directory Name inside Dir.
type MkdirRequest struct {
	Dir  string `json:"dir" example:"src"`
	Name string `json:"name" example:"pkg"`
}

// RenameRequest renames Path in place.
type RenameRequest struct {
	Path    string `json:"path" example:"src/old.go"`
	NewName string `json:"newName" example:"new.go"`
}

// ExtractRequest unpacks an archive. An empty DestDir extracts next to the
// archive.
type ExtractRequest struct {
	Path      string `json:"path" example:"downloads/site.tar.gz"`
	DestDir   string `json:"destDir,omitempty" example:"site"`
	Overwrite bool   `json:"overwrite"`
}

// SessionListResponse lists live terminal sessions.
type SessionListResponse struct {
	Sessions []session.Info `json:"sessions"`
}

// TerminateResponse reports how many sessions were terminated.
type TerminateResponse struct {
	Terminated int `json:"terminated" example:"1"`
}

// HistoryResponse carries a session's replay buffer.
type HistoryResponse struct {
	ID      string `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	History string `json:"history"`
}

// GitStatusResponse lists changed files.
type GitStatusResponse struct {
	Files []ports.GitFileStatus `json:"files"`
}

// GitCommitsResponse lists commits newest first.
type GitCommitsResponse struct {
	Commits []ports.GitCommit `json:"commits"`
}

// GitInitRequest initializes a repository.
type GitInitRequest struct {
	Cwd    string `json:"cwd" example:"projects/new"`
	Branch string `json:"branch,omitempty" example:"main"`
}

// GitResetRequest moves HEAD. Hard resets require Confirm.
type GitResetRequest struct {
	Cwd     string          `json:"cwd" example:"projects/app"`
	Mode    ports.ResetMode `json:"mode" example:"mixed" enums:"soft,mixed,hard"`
	Commit  string          `json:"commit" example:"a1b2c3d"`
	Confirm bool            `json:"confirm"`
}

// GitRevertRequest reverts a single commit.
type GitRevertRequest struct {
	Cwd    string `json:"cwd" example:"projects/app"`
	Commit string `json:"commit" example:"a1b2c3d"`
}

// AuditResponse lists journal records newest first.
type AuditResponse struct {
	Enabled bool           `json:"enabled"`
	Records []audit.Record `json:"records"`
}
