package ports

import "context"

// GitFileStatus represents the status of a file in git.
type GitFileStatus struct {
	Path        string `json:"path"`
	Status      string `json:"status"` // M, A, D, R, ??, etc.
	IsStaged    bool   `json:"is_staged"`
	IsUntracked bool   `json:"is_untracked"`
}

// GitInfo describes the repository that contains a working directory.
// Lookup failures degrade to negative booleans rather than errors.
type GitInfo struct {
	Available bool   `json:"available"`
	IsRepo    bool   `json:"is_repo"`
	Root      string `json:"root,omitempty"`
	Branch    string `json:"branch,omitempty"`
	Upstream  string `json:"upstream,omitempty"`
	Head      string `json:"head,omitempty"`
}

// GitCommit is one entry of the commit history.
type GitCommit struct {
	Hash      string   `json:"hash"`
	ShortHash string   `json:"short_hash"`
	Author    string   `json:"author"`
	Email     string   `json:"email"`
	Date      string   `json:"date"`
	Subject   string   `json:"subject"`
	Parents   []string `json:"parents"`
	// Pushed is nil when the branch has no upstream.
	Pushed *bool `json:"pushed"`
}

// ResetMode is the git reset flavour.
type ResetMode string

const (
	ResetSoft  ResetMode = "soft"
	ResetMixed ResetMode = "mixed"
	ResetHard  ResetMode = "hard"
)

// Valid reports whether m is one of the supported modes.
func (m ResetMode) Valid() bool {
	switch m {
	case ResetSoft, ResetMixed, ResetHard:
		return true
	}
	return false
}

// GitResult is returned by history-rewriting operations.
type GitResult struct {
	Head     string `json:"head"`
	Previous string `json:"previous"`
	// Conflicts lists unmerged paths when a revert stopped on conflicts.
	Conflicts []string `json:"conflicts,omitempty"`
}

// GitWorkflow defines the contract for the guarded git operations exposed
// to clients. Every cwd is a client path resolved against the sandbox.
type GitWorkflow interface {
	// Info reports availability and repository details for cwd.
	Info(ctx context.Context, cwd string) GitInfo

	// Status returns the porcelain status of the repository.
	Status(ctx context.Context, cwd string) ([]GitFileStatus, error)

	// Commits returns up to limit commits reachable from HEAD, newest first.
	Commits(ctx context.Context, cwd string, limit int) ([]GitCommit, error)

	// Init creates a repository with the given initial branch.
	Init(ctx context.Context, cwd, branch string) (GitInfo, error)

	// Reset moves HEAD to commit after the safety checks pass.
	Reset(ctx context.Context, cwd string, mode ResetMode, commit string, confirmHard bool) (GitResult, error)

	// Revert creates a commit undoing commit after the safety checks pass.
	Revert(ctx context.Context, cwd, commit string) (GitResult, error)
}
