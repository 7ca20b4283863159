package http

import (
	"errors"
	"net/http"

	"github.com/brianly1003/lanterm/internal/adapters/git"
	"github.com/brianly1003/lanterm/internal/domain"
)

// handleGitInfo handles GET /api/git/info?cwd=
//
//	@Summary		Git info
//	@Description	Reports git availability and repository details for cwd
//	@Tags			git
//	@Produce		json
//	@Param			cwd	query		string	false	"Directory relative to the root"
//	@Success		200	{object}	ports.GitInfo
//	@Router			/api/git/info [get]
func (s *Server) handleGitInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Git.Info(r.Context(), r.URL.Query().Get("cwd")))
}

// handleGitStatus handles GET /api/git/status?cwd=
//
//	@Summary		Git status
//	@Tags			git
//	@Produce		json
//	@Param			cwd	query		string	false	"Directory relative to the root"
//	@Success		200	{object}	GitStatusResponse
//	@Failure		400	{object}	ErrorResponse	"Not a repository"
//	@Failure		503	{object}	ErrorResponse	"Git unavailable"
//	@Router			/api/git/status [get]
func (s *Server) handleGitStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.deps.Git.Status(r.Context(), r.URL.Query().Get("cwd"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, GitStatusResponse{Files: status})
}

// handleGitCommits handles GET /api/git/commits?cwd=&limit=
//
//	@Summary		Git commits
//	@Description	Lists commits reachable from HEAD, newest first, each marked pushed when an upstream exists
//	@Tags			git
//	@Produce		json
//	@Param			cwd		query		string	false	"Directory relative to the root"
//	@Param			limit	query		int		false	"Max commits (default 50, max 500)"
//	@Success		200		{object}	GitCommitsResponse
//	@Router			/api/git/commits [get]
func (s *Server) handleGitCommits(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", git.DefaultCommitLimit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	commits, err := s.deps.Git.Commits(r.Context(), r.URL.Query().Get("cwd"), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, GitCommitsResponse{Commits: commits})
}

// handleGitInit handles POST /api/git/init
//
//	@Summary		Initialize repository
//	@Tags			git
//	@Accept			json
//	@Produce		json
//	@Param			request	body		GitInitRequest	true	"Directory and branch"
//	@Success		201		{object}	ports.GitInfo
//	@Failure		409		{object}	ErrorResponse	"Already a repository"
//	@Router			/api/git/init [post]
func (s *Server) handleGitInit(w http.ResponseWriter, r *http.Request) {
	var req GitInitRequest
	if err := decodeJSON(w, r, &req, maxJSONBody); err != nil {
		writeError(w, r, err)
		return
	}
	info, err := s.deps.Git.Init(r.Context(), req.Cwd, req.Branch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, info)
}

// handleGitReset handles POST /api/git/reset
//
//	@Summary		Reset to commit
//	@Description	Moves HEAD to an unpushed commit (or the upstream head). Hard resets require confirm=true.
//	@Tags			git
//	@Accept			json
//	@Produce		json
//	@Param			request	body		GitResetRequest	true	"Reset"
//	@Success		200		{object}	ports.GitResult
//	@Failure		409		{object}	ErrorResponse	"Rejected by a safety check"
//	@Failure		428		{object}	ErrorResponse	"Confirmation required"
//	@Router			/api/git/reset [post]
func (s *Server) handleGitReset(w http.ResponseWriter, r *http.Request) {
	var req GitResetRequest
	if err := decodeJSON(w, r, &req, maxJSONBody); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.deps.Git.Reset(r.Context(), req.Cwd, req.Mode, req.Commit, req.Confirm)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleGitRevert handles POST /api/git/revert
//
//	@Summary		Revert commit
//	@Description	Creates a commit undoing a single-parent commit. Tracked files must be clean. A conflicted revert is left in progress and the error carries the conflicted paths in result.
//	@Tags			git
//	@Accept			json
//	@Produce		json
//	@Param			request	body		GitRevertRequest	true	"Revert"
//	@Success		200		{object}	ports.GitResult
//	@Failure		409		{object}	ErrorResponse	"Rejected by a safety check or conflicted"
//	@Router			/api/git/revert [post]
func (s *Server) handleGitRevert(w http.ResponseWriter, r *http.Request) {
	var req GitRevertRequest
	if err := decodeJSON(w, r, &req, maxJSONBody); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.deps.Git.Revert(r.Context(), req.Cwd, req.Commit)
	if errors.Is(err, domain.ErrGitRevertConflict) {
		writeErrorResult(w, r, err, res)
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
