package git

import (
	"context"
	"fmt"
	"strings"

	"github.com/brianly1003/lanterm/internal/domain"
	"github.com/brianly1003/lanterm/internal/domain/events"
	"github.com/brianly1003/lanterm/internal/domain/ports"
	"github.com/rs/zerolog/log"
)

// revertConflictMarkers are diagnostics git prints when a revert stops on
// conflicts. Matching is best-effort.
var revertConflictMarkers = []string{
	"CONFLICT",
	"could not revert",
	"after resolving the conflicts",
}

// Reset moves HEAD to commit. Checks run in order and the first failure is
// returned: mode, hard confirmation, commit exists, upstream configured,
// commit reachable from HEAD, and a published commit may only be the
// upstream head itself.
func (w *Workflow) Reset(ctx context.Context, cwd string, mode ports.ResetMode, commit string, confirmHard bool) (ports.GitResult, error) {
	payload := events.GitOperationPayload{Operation: "reset", Cwd: cwd, Mode: string(mode), Commit: commit}

	res, err := w.reset(ctx, cwd, mode, commit, confirmHard)
	payload.Head = res.Head
	w.publish(payload, err)
	return res, err
}

func (w *Workflow) reset(ctx context.Context, cwd string, mode ports.ResetMode, commit string, confirmHard bool) (ports.GitResult, error) {
	if !mode.Valid() {
		return ports.GitResult{}, domain.NewValidationError("mode", fmt.Sprintf("unsupported reset mode %q", mode))
	}
	if mode == ports.ResetHard && !confirmHard {
		return ports.GitResult{}, domain.ErrConfirmationRequired
	}

	dir, err := w.repoDir(ctx, cwd)
	if err != nil {
		return ports.GitResult{}, err
	}

	target, ok := w.resolveCommit(ctx, dir, commit)
	if !ok {
		return ports.GitResult{}, domain.ErrGitCommitNotFound
	}

	upstream, ok := w.resolveCommit(ctx, dir, "@{u}")
	if !ok {
		return ports.GitResult{}, domain.ErrGitUpstreamMissing
	}

	reachable, err := w.isAncestor(ctx, dir, target, "HEAD")
	if err != nil {
		return ports.GitResult{}, err
	}
	if !reachable {
		return ports.GitResult{}, domain.ErrGitCommitUnreachable
	}

	published, err := w.isAncestor(ctx, dir, target, upstream)
	if err != nil {
		return ports.GitResult{}, err
	}
	if published && target != upstream {
		return ports.GitResult{}, domain.ErrGitAlreadyPublished
	}

	previous, _ := w.resolveCommit(ctx, dir, "HEAD")
	if _, err := w.output(ctx, dir, "reset", "--"+string(mode), target); err != nil {
		return ports.GitResult{}, err
	}
	head, _ := w.resolveCommit(ctx, dir, "HEAD")

	log.Info().
		Str("path", dir).
		Str("mode", string(mode)).
		Str("previous", previous).
		Str("head", head).
		Msg("git reset")
	return ports.GitResult{Head: head, Previous: previous}, nil
}

// Revert creates a new commit undoing commit. The commit must exist, be
// reachable from HEAD and have a single parent, and tracked files must be
// unmodified. A revert that stops on conflicts is left in progress and the
// result lists the conflicted paths.
func (w *Workflow) Revert(ctx context.Context, cwd, commit string) (ports.GitResult, error) {
	payload := events.GitOperationPayload{Operation: "revert", Cwd: cwd, Commit: commit}

	res, err := w.revert(ctx, cwd, commit)
	payload.Head = res.Head
	w.publish(payload, err)
	return res, err
}

func (w *Workflow) revert(ctx context.Context, cwd, commit string) (ports.GitResult, error) {
	dir, err := w.repoDir(ctx, cwd)
	if err != nil {
		return ports.GitResult{}, err
	}

	target, ok := w.resolveCommit(ctx, dir, commit)
	if !ok {
		return ports.GitResult{}, domain.ErrGitCommitNotFound
	}

	reachable, err := w.isAncestor(ctx, dir, target, "HEAD")
	if err != nil {
		return ports.GitResult{}, err
	}
	if !reachable {
		return ports.GitResult{}, domain.ErrGitCommitUnreachable
	}

	parents, err := w.output(ctx, dir, "rev-list", "--parents", "-n", "1", target)
	if err != nil {
		return ports.GitResult{}, err
	}
	// "<commit> <parent>..."
	if len(strings.Fields(parents)) > 2 {
		return ports.GitResult{}, domain.ErrGitMergeCommitUnsupported
	}

	dirty, err := w.output(ctx, dir, "status", "--porcelain", "--untracked-files=no")
	if err != nil {
		return ports.GitResult{}, err
	}
	if dirty != "" {
		return ports.GitResult{}, domain.ErrGitDirtyWorktree
	}

	previous, _ := w.resolveCommit(ctx, dir, "HEAD")
	res, err := w.run(ctx, dir, "revert", "--no-edit", target)
	if err != nil {
		return ports.GitResult{}, err
	}
	if res.exitCode != 0 {
		output := res.combined()
		if isRevertConflict(output) {
			// The revert stays in progress for the user to resolve or abort.
			conflicts := w.conflictedPaths(ctx, dir)
			log.Warn().Str("path", dir).Str("commit", target).Strs("conflicts", conflicts).Msg("revert stopped with conflicts")
			return ports.GitResult{Head: previous, Previous: previous, Conflicts: conflicts},
				domain.NewGitError("revert", domain.ErrGitRevertConflict, output)
		}
		return ports.GitResult{}, domain.NewGitError("revert", fmt.Errorf("exit status %d", res.exitCode), output)
	}
	head, _ := w.resolveCommit(ctx, dir, "HEAD")

	log.Info().
		Str("path", dir).
		Str("commit", target).
		Str("head", head).
		Msg("git revert")
	return ports.GitResult{Head: head, Previous: previous}, nil
}

// conflictedPaths lists unmerged paths, relative to the repository root.
func (w *Workflow) conflictedPaths(ctx context.Context, dir string) []string {
	out, err := w.output(ctx, dir, "diff", "--name-only", "--diff-filter=U")
	if err != nil || out == "" {
		return nil
	}
	return strings.Split(out, "\n")
}

func isRevertConflict(output string) bool {
	for _, marker := range revertConflictMarkers {
		if strings.Contains(output, marker) {
			return true
		}
	}
	return false
}
