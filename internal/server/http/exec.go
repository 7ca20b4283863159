package http

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/brianly1003/lanterm/internal/domain"
	"github.com/brianly1003/lanterm/internal/domain/events"
	"github.com/brianly1003/lanterm/internal/terminal"
)

// exitCodeTrailer carries the command's exit status after the streamed output.
const exitCodeTrailer = "X-Exit-Code"

// handleExec handles POST /api/exec
//
//	@Summary		Run command
//	@Description	Runs an allow-listed command without a shell and streams its combined output as chunked text.
//	@Description	The exit status is sent in the X-Exit-Code trailer.
//	@Tags			exec
//	@Accept			json
//	@Produce		plain
//	@Param			request	body		terminal.RunRequest	true	"Command"
//	@Success		200		{string}	string				"Command output"
//	@Failure		403		{object}	ErrorResponse		"Command not allowed"
//	@Failure		429		{object}	ErrorResponse		"Rate limited"
//	@Router			/api/exec [post]
func (s *Server) handleExec(w http.ResponseWriter, r *http.Request) {
	var req terminal.RunRequest
	if err := decodeJSON(w, r, &req, maxJSONBody); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Command == "" {
		writeError(w, r, domain.NewValidationError("command", "required"))
		return
	}
	if !s.deps.Runner.Allowed(req.Command) {
		err := fmt.Errorf("%q: %w", req.Command, domain.ErrCommandNotAllowed)
		s.publishExec(r, req, nil, err)
		writeError(w, r, err)
		return
	}

	w.Header().Set("Trailer", exitCodeTrailer)
	out := &streamWriter{w: w}
	res, err := s.deps.Runner.Run(r.Context(), req, out)
	s.publishExec(r, req, res, err)

	if err != nil {
		if !out.started {
			w.Header().Del("Trailer")
			writeError(w, r, err)
			return
		}
		log.Warn().Err(err).Str("command", req.Command).Msg("command failed after output started")
		_, _ = fmt.Fprintf(out, "\n%s\n", err)
		w.Header().Set(exitCodeTrailer, "-1")
		return
	}

	out.start()
	w.Header().Set(exitCodeTrailer, strconv.Itoa(res.ExitCode))
}

// publishExec emits a command_executed event.
func (s *Server) publishExec(r *http.Request, req terminal.RunRequest, res *terminal.RunResult, err error) {
	if s.deps.Publisher == nil {
		return
	}
	p := events.CommandExecutedPayload{
		Command:    req.Command,
		Args:       req.Args,
		Cwd:        req.Cwd,
		RemoteAddr: r.RemoteAddr,
		Outcome:    events.OutcomeOK,
	}
	if res != nil {
		p.ExitCode = res.ExitCode
		p.DurationMs = res.Duration.Milliseconds()
	}
	if err != nil {
		p.Outcome, p.Error = events.OutcomeFailed, err.Error()
	}
	s.deps.Publisher.Publish(events.NewCommandExecutedEvent(p))
}

// streamWriter sends the response header on first use and flushes every
// write so output reaches the client as it is produced.
type streamWriter struct {
	w       http.ResponseWriter
	started bool
}

func (sw *streamWriter) start() {
	if sw.started {
		return
	}
	sw.started = true
	sw.w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	sw.w.Header().Set("X-Content-Type-Options", "nosniff")
	sw.w.WriteHeader(http.StatusOK)
}

func (sw *streamWriter) Write(p []byte) (int, error) {
	sw.start()
	n, err := sw.w.Write(p)
	if f, ok := sw.w.(http.Flusher); ok {
		f.Flush()
	}
	return n, err
}
