package git

import (
	"context"
	"fmt"
	"strings"

	"github.com/brianly1003/lanterm/internal/domain"
	"github.com/brianly1003/lanterm/internal/domain/ports"
)

// Commit listing limits.
const (
	DefaultCommitLimit = 50
	MaxCommitLimit     = 500
)

// Field and record separators for the log format.
const (
	fieldSep  = "\x1f"
	recordSep = "\x1e"
)

var logFormat = strings.Join([]string{"%H", "%h", "%an", "%ae", "%aI", "%s", "%P"}, fieldSep) + recordSep

// Commits returns up to limit commits reachable from HEAD, newest first.
// Each commit is marked pushed when it is reachable from the upstream; without
// an upstream Pushed stays nil.
func (w *Workflow) Commits(ctx context.Context, cwd string, limit int) ([]ports.GitCommit, error) {
	dir, err := w.repoDir(ctx, cwd)
	if err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = DefaultCommitLimit
	}
	if limit > MaxCommitLimit {
		limit = MaxCommitLimit
	}

	commits := make([]ports.GitCommit, 0)
	if _, ok := w.resolveCommit(ctx, dir, "HEAD"); !ok {
		// unborn branch
		return commits, nil
	}

	out, err := w.output(ctx, dir, "log", fmt.Sprintf("--format=%s", logFormat), "-n", fmt.Sprint(limit), "HEAD")
	if err != nil {
		return nil, err
	}
	commits = parseLog(out)

	if w.upstreamName(ctx, dir) == "" {
		return commits, nil
	}

	unpushed, err := w.unpushed(ctx, dir)
	if err != nil {
		return nil, err
	}
	for i := range commits {
		pushed := !unpushed[commits[i].Hash]
		commits[i].Pushed = &pushed
	}
	return commits, nil
}

// unpushed returns the set of commits reachable from HEAD but not from the
// upstream.
func (w *Workflow) unpushed(ctx context.Context, dir string) (map[string]bool, error) {
	out, err := w.output(ctx, dir, "rev-list", "HEAD", "--not", "@{u}")
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool)
	for _, hash := range strings.Fields(out) {
		set[hash] = true
	}
	return set, nil
}

// parseLog parses records produced with logFormat.
func parseLog(out string) []ports.GitCommit {
	commits := make([]ports.GitCommit, 0)
	for _, record := range strings.Split(out, recordSep) {
		record = strings.TrimLeft(record, "\n")
		if record == "" {
			continue
		}
		parts := strings.Split(record, fieldSep)
		if len(parts) < 7 {
			continue
		}
		commits = append(commits, ports.GitCommit{
			Hash:      parts[0],
			ShortHash: parts[1],
			Author:    parts[2],
			Email:     parts[3],
			Date:      parts[4],
			Subject:   parts[5],
			Parents:   strings.Fields(parts[6]),
		})
	}
	return commits
}

// resolveCommit resolves rev to a full commit hash.
func (w *Workflow) resolveCommit(ctx context.Context, dir, rev string) (string, bool) {
	if rev == "" || strings.HasPrefix(rev, "-") {
		return "", false
	}
	res, err := w.run(ctx, dir, "rev-parse", "--verify", "--quiet", rev+"^{commit}")
	if err != nil || res.exitCode != 0 {
		return "", false
	}
	return strings.TrimSpace(res.stdout), true
}

// isAncestor reports whether ancestor is reachable from rev.
func (w *Workflow) isAncestor(ctx context.Context, dir, ancestor, rev string) (bool, error) {
	res, err := w.run(ctx, dir, "merge-base", "--is-ancestor", ancestor, rev)
	if err != nil {
		return false, err
	}
	switch res.exitCode {
	case 0:
		return true, nil
	case 1:
		return false, nil
	default:
		return false, domain.NewGitError("merge-base", fmt.Errorf("exit status %d", res.exitCode), res.combined())
	}
}
