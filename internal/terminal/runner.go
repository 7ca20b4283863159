package terminal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/brianly1003/lanterm/internal/domain"
	"github.com/brianly1003/lanterm/internal/sandbox"
)

// DefaultRunTimeout bounds a one-shot command.
const DefaultRunTimeout = 5 * time.Minute

// RunRequest is a one-shot command invocation.
type RunRequest struct {
	Command string   `json:"command"`
	Args    []string `json:"args,omitempty"`
	Cwd     string   `json:"cwd,omitempty"`
}

// RunResult describes a finished command.
type RunResult struct {
	ExitCode int           `json:"exit_code"`
	Duration time.Duration `json:"duration"`
}

// Runner executes allow-listed commands inside the sandbox and streams their
// combined output. The allow-list can be replaced while running.
type Runner struct {
	sb      *sandbox.Sandbox
	allowed atomic.Pointer[map[string]struct{}]
	timeout time.Duration
}

// NewRunner creates a Runner. A zero timeout selects DefaultRunTimeout.
func NewRunner(sb *sandbox.Sandbox, allowed []string, timeout time.Duration) *Runner {
	if timeout <= 0 {
		timeout = DefaultRunTimeout
	}
	r := &Runner{sb: sb, timeout: timeout}
	r.SetAllowed(allowed)
	return r
}

// SetAllowed replaces the allow-list.
func (r *Runner) SetAllowed(names []string) {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		if n != "" {
			set[n] = struct{}{}
		}
	}
	r.allowed.Store(&set)
}

// Allowed reports whether name may be run.
func (r *Runner) Allowed(name string) bool {
	set := r.allowed.Load()
	if set == nil {
		return false
	}
	_, ok := (*set)[name]
	return ok
}

// Run executes req, writing stdout and stderr to w as they are produced.
// A non-zero exit is reported through RunResult, not as an error.
func (r *Runner) Run(ctx context.Context, req RunRequest, w io.Writer) (*RunResult, error) {
	if !r.Allowed(req.Command) {
		return nil, fmt.Errorf("%q: %w", req.Command, domain.ErrCommandNotAllowed)
	}
	dir, err := r.sb.ResolveDir(req.Cwd)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, req.Command, req.Args...)
	cmd.Dir = dir.Abs
	setupProcess(cmd)
	cmd.Cancel = func() error { return killProcessGroup(cmd) }
	cmd.WaitDelay = 2 * time.Second

	out := &syncWriter{w: w}
	cmd.Stdout = out
	cmd.Stderr = out

	start := time.Now()
	err = cmd.Run()
	res := &RunResult{Duration: time.Since(start)}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
	default:
		return nil, fmt.Errorf("run %s: %w", req.Command, err)
	}

	log.Info().
		Str("command", req.Command).
		Str("cwd", dir.Rel).
		Int("exit_code", res.ExitCode).
		Dur("duration", res.Duration).
		Msg("command executed")
	return res, nil
}

// syncWriter serializes writes from the stdout and stderr copiers.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
