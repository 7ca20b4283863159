// Package git wraps the git CLI with the guarded history operations exposed
// to remote clients.
package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/brianly1003/lanterm/internal/domain"
	"github.com/brianly1003/lanterm/internal/domain/events"
	"github.com/brianly1003/lanterm/internal/domain/ports"
	"github.com/brianly1003/lanterm/internal/sandbox"
	"github.com/rs/zerolog/log"
)

// DefaultTimeout bounds every git invocation.
const DefaultTimeout = 30 * time.Second

// DefaultBranch is used by Init when no branch is given.
const DefaultBranch = "main"

// Workflow implements the GitWorkflow port interface.
type Workflow struct {
	sb      *sandbox.Sandbox
	command string
	timeout time.Duration
	pub     ports.EventPublisher
}

var _ ports.GitWorkflow = (*Workflow)(nil)

// NewWorkflow creates a git workflow rooted at the sandbox. An empty command
// means "git"; a non-positive timeout means DefaultTimeout. pub may be nil.
func NewWorkflow(sb *sandbox.Sandbox, command string, timeout time.Duration, pub ports.EventPublisher) *Workflow {
	if command == "" {
		command = "git"
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Workflow{
		sb:      sb,
		command: command,
		timeout: timeout,
		pub:     pub,
	}
}

// result holds the outcome of a single git invocation.
type result struct {
	stdout   string
	stderr   string
	exitCode int
}

// combined returns stderr followed by stdout, trimmed.
func (r result) combined() string {
	return strings.TrimSpace(r.stderr + "\n" + r.stdout)
}

// run executes git in dir. A non-zero exit is not an error; err is set only
// when the process could not run or timed out.
func (w *Workflow) run(ctx context.Context, dir string, args ...string) (result, error) {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, w.command, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_TERMINAL_PROMPT=0",
		"GIT_PAGER=cat",
		"LC_ALL=C",
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := result{stdout: stdout.String(), stderr: stderr.String()}
	if err == nil {
		return res, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && ctx.Err() == nil {
		res.exitCode = exitErr.ExitCode()
		return res, nil
	}
	if errors.Is(err, exec.ErrNotFound) {
		return res, domain.ErrGitUnavailable
	}
	if ctx.Err() != nil {
		return res, domain.NewGitError(args[0], ctx.Err(), "")
	}
	return res, domain.NewGitError(args[0], err, res.combined())
}

// output runs git and returns trimmed stdout, failing on a non-zero exit.
func (w *Workflow) output(ctx context.Context, dir string, args ...string) (string, error) {
	res, err := w.run(ctx, dir, args...)
	if err != nil {
		return "", err
	}
	if res.exitCode != 0 {
		return "", domain.NewGitError(args[0], fmt.Errorf("exit status %d", res.exitCode), res.combined())
	}
	return strings.TrimSpace(res.stdout), nil
}

// available reports whether the configured git binary can be executed.
func (w *Workflow) available() bool {
	_, err := exec.LookPath(w.command)
	return err == nil
}

// repoDir resolves cwd and verifies it lies inside a work tree.
func (w *Workflow) repoDir(ctx context.Context, cwd string) (string, error) {
	target, err := w.sb.ResolveDir(cwd)
	if err != nil {
		return "", err
	}
	if !w.available() {
		return "", domain.ErrGitUnavailable
	}
	res, err := w.run(ctx, target.Abs, "rev-parse", "--is-inside-work-tree")
	if err != nil {
		return "", err
	}
	if res.exitCode != 0 || strings.TrimSpace(res.stdout) != "true" {
		return "", domain.ErrNotGitRepo
	}
	return target.Abs, nil
}

// Info reports availability and repository details for cwd.
func (w *Workflow) Info(ctx context.Context, cwd string) ports.GitInfo {
	info := ports.GitInfo{Available: w.available()}
	if !info.Available {
		return info
	}

	target, err := w.sb.ResolveDir(cwd)
	if err != nil {
		return info
	}

	root, err := w.output(ctx, target.Abs, "rev-parse", "--show-toplevel")
	if err != nil {
		log.Debug().Str("path", target.Abs).Err(err).Msg("not a git repository")
		return info
	}
	info.IsRepo = true
	info.Root = root

	// branch --show-current also works on an unborn branch
	if branch, err := w.output(ctx, target.Abs, "branch", "--show-current"); err == nil {
		info.Branch = branch
	}
	if head, err := w.output(ctx, target.Abs, "rev-parse", "--verify", "--quiet", "HEAD"); err == nil {
		info.Head = head
	}
	info.Upstream = w.upstreamName(ctx, target.Abs)
	return info
}

// upstreamName returns the symbolic upstream of the current branch, or "".
func (w *Workflow) upstreamName(ctx context.Context, dir string) string {
	name, err := w.output(ctx, dir, "rev-parse", "--abbrev-ref", "--symbolic-full-name", "@{u}")
	if err != nil {
		return ""
	}
	return name
}

// Status returns the porcelain status of the repository containing cwd.
func (w *Workflow) Status(ctx context.Context, cwd string) ([]ports.GitFileStatus, error) {
	dir, err := w.repoDir(ctx, cwd)
	if err != nil {
		return nil, err
	}
	res, err := w.run(ctx, dir, "status", "--porcelain", "-uall")
	if err != nil {
		return nil, err
	}
	if res.exitCode != 0 {
		return nil, domain.NewGitError("status", fmt.Errorf("exit status %d", res.exitCode), res.combined())
	}
	return parseStatus(res.stdout), nil
}

// Init creates a repository at cwd with the given initial branch.
func (w *Workflow) Init(ctx context.Context, cwd, branch string) (ports.GitInfo, error) {
	target, err := w.sb.ResolveDir(cwd)
	if err != nil {
		return ports.GitInfo{}, err
	}
	if !w.available() {
		return ports.GitInfo{}, domain.ErrGitUnavailable
	}
	if branch == "" {
		branch = DefaultBranch
	}
	if strings.HasPrefix(branch, "-") {
		return ports.GitInfo{}, domain.NewValidationError("branch", "must not start with '-'")
	}

	res, err := w.run(ctx, target.Abs, "rev-parse", "--is-inside-work-tree")
	if err != nil {
		return ports.GitInfo{}, err
	}
	if res.exitCode == 0 {
		return ports.GitInfo{}, domain.ErrGitAlreadyRepo
	}

	if _, err := w.output(ctx, target.Abs, "init", "-b", branch); err != nil {
		w.publish(events.GitOperationPayload{Operation: "init", Cwd: target.Rel}, err)
		return ports.GitInfo{}, err
	}

	log.Info().Str("path", target.Rel).Str("branch", branch).Msg("initialized git repository")
	w.publish(events.GitOperationPayload{Operation: "init", Cwd: target.Rel}, nil)
	return w.Info(ctx, target.Rel), nil
}

// publish emits a git_operation event with the outcome of err.
func (w *Workflow) publish(p events.GitOperationPayload, err error) {
	if w.pub == nil {
		return
	}
	p.Outcome = events.OutcomeOK
	if err != nil {
		p.Outcome = events.OutcomeFailed
		p.Code = domain.Code(err)
		p.Error = err.Error()
	}
	w.pub.Publish(events.NewGitOperationEvent(p))
}
