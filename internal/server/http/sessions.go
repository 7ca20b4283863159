package http

import (
	"net/http"

	"github.com/gorilla/mux"
)

// handleListSessions handles GET /api/sessions?clientId=
//
//	@Summary		List terminal sessions
//	@Description	Lists live sessions, optionally only those owned by clientId
//	@Tags			sessions
//	@Produce		json
//	@Param			clientId	query		string	false	"Owning client"
//	@Success		200			{object}	SessionListResponse
//	@Router			/api/sessions [get]
func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	infos := s.deps.Sessions.List(r.URL.Query().Get("clientId"))
	writeJSON(w, http.StatusOK, SessionListResponse{Sessions: infos})
}

// handleTerminateSessions handles DELETE /api/sessions?clientId=
//
//	@Summary		Terminate sessions
//	@Description	Terminates every session, or only those owned by clientId
//	@Tags			sessions
//	@Produce		json
//	@Param			clientId	query		string	false	"Owning client"
//	@Success		200			{object}	TerminateResponse
//	@Router			/api/sessions [delete]
func (s *Server) handleTerminateSessions(w http.ResponseWriter, r *http.Request) {
	n := s.deps.Sessions.TerminateAll(r.URL.Query().Get("clientId"))
	writeJSON(w, http.StatusOK, TerminateResponse{Terminated: n})
}

// handleTerminateSession handles DELETE /api/sessions/{id}
//
//	@Summary		Terminate session
//	@Description	Kills the session's shell and closes its sockets
//	@Tags			sessions
//	@Produce		json
//	@Param			id	path		string	true	"Session ID"
//	@Success		200	{object}	TerminateResponse
//	@Failure		404	{object}	ErrorResponse	"Session not found"
//	@Router			/api/sessions/{id} [delete]
func (s *Server) handleTerminateSession(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Sessions.Terminate(mux.Vars(r)["id"]); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, TerminateResponse{Terminated: 1})
}

// handleSessionHistory handles GET /api/sessions/{id}/history
//
//	@Summary		Session history
//	@Description	Returns the session's replay buffer
//	@Tags			sessions
//	@Produce		json
//	@Param			id	path		string	true	"Session ID"
//	@Success		200	{object}	HistoryResponse
//	@Failure		404	{object}	ErrorResponse	"Session not found"
//	@Router			/api/sessions/{id}/history [get]
func (s *Server) handleSessionHistory(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	history, err := s.deps.Sessions.History(id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, HistoryResponse{ID: id, History: history})
}
