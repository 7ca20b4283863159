package http

import (
	"net/http"

	"github.com/brianly1003/lanterm/internal/domain/events"
)

// handleArchiveEntries handles GET /api/archive/entries?path=
//
//	@Summary		Inspect archive
//	@Description	Lists the members of a zip, tar, tar.gz or tar.zst archive and flags unsafe entries
//	@Tags			archive
//	@Produce		json
//	@Param			path	query		string	true	"Archive relative to the root"
//	@Success		200		{object}	archive.Listing
//	@Failure		415		{object}	ErrorResponse	"Unsupported format"
//	@Router			/api/archive/entries [get]
func (s *Server) handleArchiveEntries(w http.ResponseWriter, r *http.Request) {
	listing, err := s.deps.Archives.ListEntries(r.URL.Query().Get("path"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listing)
}

// handleArchiveExtract handles POST /api/archive/extract
//
//	@Summary		Extract archive
//	@Description	Extracts an archive after every entry passed the safety check. Existing files are skipped unless overwrite is set.
//	@Tags			archive
//	@Accept			json
//	@Produce		json
//	@Param			request	body		ExtractRequest	true	"Archive and destination"
//	@Success		200		{object}	archive.ExtractResult
//	@Failure		413		{object}	ErrorResponse	"Expands past the size ceiling"
//	@Failure		422		{object}	ErrorResponse	"Unsafe entry"
//	@Router			/api/archive/extract [post]
func (s *Server) handleArchiveExtract(w http.ResponseWriter, r *http.Request) {
	var req ExtractRequest
	if err := decodeJSON(w, r, &req, maxJSONBody); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := s.deps.Archives.Extract(req.Path, req.DestDir, req.Overwrite)

	if s.deps.Publisher != nil {
		p := events.ArchiveExtractedPayload{Archive: req.Path, Dest: req.DestDir, Outcome: events.OutcomeOK}
		if res != nil {
			p.Dest, p.Extracted, p.Skipped, p.Bytes = res.Dest, res.Extracted, res.Skipped, res.Bytes
		}
		if err != nil {
			p.Outcome, p.Error = events.OutcomeFailed, err.Error()
		}
		s.deps.Publisher.Publish(events.NewArchiveExtractedEvent(p))
	}

	if err != nil {
		if res != nil {
			writeErrorResult(w, r, err, res)
		} else {
			writeError(w, r, err)
		}
		return
	}
	writeJSON(w, http.StatusOK, res)
}
