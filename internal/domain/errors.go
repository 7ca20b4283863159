// Package domain contains domain errors used throughout the application.
package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for common error conditions.
var (
	// Sandbox
	ErrOutOfRoot               = errors.New("path is outside the configured root")
	ErrInvalidWorkingDirectory = errors.New("invalid working directory")

	// Sessions
	ErrSessionNotFound  = errors.New("session not found")
	ErrSessionForbidden = errors.New("session belongs to another client")

	// Files
	ErrConflict             = errors.New("conflict")
	ErrExists               = errors.New("already exists")
	ErrNotFound             = errors.New("not found")
	ErrTooLarge             = errors.New("file exceeds size limit")
	ErrPayloadTooLarge      = errors.New("payload exceeds upload limit")
	ErrBinaryUnsupported    = errors.New("binary files are not supported")
	ErrUnsupportedEntryType = errors.New("unsupported entry type")
	ErrSelfContainment      = errors.New("cannot copy or move a directory into itself")
	ErrTreeTooLarge         = errors.New("directory tree exceeds traversal limits")
	ErrRootForbidden        = errors.New("operation not allowed on the root directory")
	ErrInvalidName          = errors.New("invalid name")
	ErrNotDirectory         = errors.New("not a directory")

	// Archives
	ErrUnsafeArchiveEntry = errors.New("unsafe archive entry")
	ErrUnsupportedArchive = errors.New("unsupported archive format")

	// Boundary
	ErrConfirmationRequired = errors.New("explicit confirmation required")
	ErrInvalidPayload       = errors.New("invalid payload")
	ErrCommandNotAllowed    = errors.New("command is not allowed")

	// Git
	ErrGitUnavailable            = errors.New("git is not available")
	ErrNotGitRepo                = errors.New("not a git repository")
	ErrGitCommitNotFound         = errors.New("commit not found")
	ErrGitUpstreamMissing        = errors.New("no upstream configured for the current branch")
	ErrGitCommitUnreachable      = errors.New("commit is not reachable from HEAD")
	ErrGitAlreadyPublished       = errors.New("commit is already pushed; only the upstream head may be targeted")
	ErrGitMergeCommitUnsupported = errors.New("reverting merge commits is not supported")
	ErrGitDirtyWorktree          = errors.New("working tree has uncommitted changes to tracked files")
	ErrGitRevertConflict         = errors.New("revert stopped with conflicts")
	ErrGitAlreadyRepo            = errors.New("directory is already a git repository")

	// Hub
	ErrHubNotRunning    = errors.New("event hub is not running")
	ErrSubscriberClosed = errors.New("subscriber is closed")
)

// Error codes for client responses.
const (
	ErrCodeOutOfRoot                 = "OUT_OF_ROOT"
	ErrCodeInvalidWorkingDirectory   = "INVALID_WORKING_DIRECTORY"
	ErrCodeSessionNotFound           = "SESSION_NOT_FOUND"
	ErrCodeSessionForbidden          = "SESSION_FORBIDDEN"
	ErrCodeConflict                  = "CONFLICT"
	ErrCodeExists                    = "EXISTS"
	ErrCodeNotFound                  = "NOT_FOUND"
	ErrCodeTooLarge                  = "TOO_LARGE"
	ErrCodePayloadTooLarge           = "PAYLOAD_TOO_LARGE"
	ErrCodeBinaryUnsupported         = "BINARY_UNSUPPORTED"
	ErrCodeUnsupportedEntryType      = "UNSUPPORTED_ENTRY_TYPE"
	ErrCodeSelfContainment           = "SELF_CONTAINMENT"
	ErrCodeTreeTooLarge              = "TREE_TOO_LARGE"
	ErrCodeRootForbidden             = "ROOT_FORBIDDEN"
	ErrCodeInvalidName               = "INVALID_NAME"
	ErrCodeNotDirectory              = "NOT_DIRECTORY"
	ErrCodeUnsafeArchiveEntry        = "UNSAFE_ARCHIVE_ENTRY"
	ErrCodeUnsupportedArchive        = "UNSUPPORTED_ARCHIVE"
	ErrCodeConfirmationRequired      = "CONFIRMATION_REQUIRED"
	ErrCodeInvalidPayload            = "INVALID_PAYLOAD"
	ErrCodeCommandNotAllowed         = "COMMAND_NOT_ALLOWED"
	ErrCodeGitUnavailable            = "GIT_UNAVAILABLE"
	ErrCodeNotGitRepo                = "NOT_GIT_REPO"
	ErrCodeGitCommitNotFound         = "GIT_COMMIT_NOT_FOUND"
	ErrCodeGitUpstreamMissing        = "GIT_UPSTREAM_MISSING"
	ErrCodeGitCommitUnreachable      = "GIT_COMMIT_UNREACHABLE"
	ErrCodeGitAlreadyPublished       = "GIT_ALREADY_PUBLISHED"
	ErrCodeGitMergeCommitUnsupported = "GIT_MERGE_COMMIT_UNSUPPORTED"
	ErrCodeGitDirtyWorktree          = "GIT_DIRTY_WORKTREE"
	ErrCodeGitRevertConflict         = "GIT_REVERT_CONFLICT"
	ErrCodeGitAlreadyRepo            = "GIT_ALREADY_REPO"
	ErrCodeGitError                  = "GIT_ERROR"
	ErrCodeInternalError             = "INTERNAL_ERROR"
)

type errorClass struct {
	err    error
	code   string
	status int
}

// classes is ordered; the first match wins.
var classes = []errorClass{
	{ErrOutOfRoot, ErrCodeOutOfRoot, http.StatusForbidden},
	{ErrInvalidWorkingDirectory, ErrCodeInvalidWorkingDirectory, http.StatusBadRequest},
	{ErrSessionNotFound, ErrCodeSessionNotFound, http.StatusNotFound},
	{ErrSessionForbidden, ErrCodeSessionForbidden, http.StatusForbidden},
	{ErrConflict, ErrCodeConflict, http.StatusConflict},
	{ErrExists, ErrCodeExists, http.StatusConflict},
	{ErrNotFound, ErrCodeNotFound, http.StatusNotFound},
	{ErrTooLarge, ErrCodeTooLarge, http.StatusRequestEntityTooLarge},
	{ErrPayloadTooLarge, ErrCodePayloadTooLarge, http.StatusRequestEntityTooLarge},
	{ErrBinaryUnsupported, ErrCodeBinaryUnsupported, http.StatusUnsupportedMediaType},
	{ErrUnsupportedEntryType, ErrCodeUnsupportedEntryType, http.StatusUnprocessableEntity},
	{ErrSelfContainment, ErrCodeSelfContainment, http.StatusBadRequest},
	{ErrTreeTooLarge, ErrCodeTreeTooLarge, http.StatusUnprocessableEntity},
	{ErrRootForbidden, ErrCodeRootForbidden, http.StatusForbidden},
	{ErrInvalidName, ErrCodeInvalidName, http.StatusBadRequest},
	{ErrNotDirectory, ErrCodeNotDirectory, http.StatusBadRequest},
	{ErrUnsafeArchiveEntry, ErrCodeUnsafeArchiveEntry, http.StatusUnprocessableEntity},
	{ErrUnsupportedArchive, ErrCodeUnsupportedArchive, http.StatusUnsupportedMediaType},
	{ErrConfirmationRequired, ErrCodeConfirmationRequired, http.StatusPreconditionRequired},
	{ErrInvalidPayload, ErrCodeInvalidPayload, http.StatusBadRequest},
	{ErrCommandNotAllowed, ErrCodeCommandNotAllowed, http.StatusForbidden},
	{ErrGitUnavailable, ErrCodeGitUnavailable, http.StatusServiceUnavailable},
	{ErrNotGitRepo, ErrCodeNotGitRepo, http.StatusBadRequest},
	{ErrGitCommitNotFound, ErrCodeGitCommitNotFound, http.StatusNotFound},
	{ErrGitUpstreamMissing, ErrCodeGitUpstreamMissing, http.StatusConflict},
	{ErrGitCommitUnreachable, ErrCodeGitCommitUnreachable, http.StatusConflict},
	{ErrGitAlreadyPublished, ErrCodeGitAlreadyPublished, http.StatusConflict},
	{ErrGitMergeCommitUnsupported, ErrCodeGitMergeCommitUnsupported, http.StatusConflict},
	{ErrGitDirtyWorktree, ErrCodeGitDirtyWorktree, http.StatusConflict},
	{ErrGitRevertConflict, ErrCodeGitRevertConflict, http.StatusConflict},
	{ErrGitAlreadyRepo, ErrCodeGitAlreadyRepo, http.StatusConflict},
}

// Code returns the machine-checkable code for err.
func Code(err error) string {
	if err == nil {
		return ""
	}
	for _, c := range classes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	var gitErr *GitError
	if errors.As(err, &gitErr) {
		return ErrCodeGitError
	}
	var valErr *ValidationError
	if errors.As(err, &valErr) {
		return ErrCodeInvalidPayload
	}
	return ErrCodeInternalError
}

// HTTPStatus returns the HTTP status a handler should answer with for err.
func HTTPStatus(err error) int {
	for _, c := range classes {
		if errors.Is(err, c.err) {
			return c.status
		}
	}
	var gitErr *GitError
	if errors.As(err, &gitErr) {
		return http.StatusBadGateway
	}
	var valErr *ValidationError
	if errors.As(err, &valErr) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// GitError represents an error from Git operations.
type GitError struct {
	Op     string // Operation that failed
	Output string // Combined diagnostic output, if any
	Err    error  // Underlying error
}

func (e *GitError) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("git %s: %v: %s", e.Op, e.Err, e.Output)
	}
	return fmt.Sprintf("git %s: %v", e.Op, e.Err)
}

func (e *GitError) Unwrap() error {
	return e.Err
}

// NewGitError creates a new GitError.
func NewGitError(op string, err error, output string) *GitError {
	return &GitError{
		Op:     op,
		Output: output,
		Err:    err,
	}
}

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}
