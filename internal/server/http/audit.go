package http

import (
	"net/http"

	"github.com/brianly1003/lanterm/internal/audit"
	"github.com/brianly1003/lanterm/internal/pairing"
)

// QR code size bounds in pixels.
const (
	minQRSize = 128
	maxQRSize = 1024
)

// handleAudit handles GET /api/audit?limit=
//
//	@Summary		Audit journal
//	@Description	Lists recorded mutations and commands, newest first
//	@Tags			audit
//	@Produce		json
//	@Param			limit	query		int	false	"Max records (default 100, max 1000)"
//	@Success		200		{object}	AuditResponse
//	@Router			/api/audit [get]
func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	if s.deps.Journal == nil {
		writeJSON(w, http.StatusOK, AuditResponse{Enabled: false, Records: []audit.Record{}})
		return
	}
	limit, err := queryInt(r, "limit", audit.DefaultListLimit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	records, err := s.deps.Journal.List(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, AuditResponse{Enabled: true, Records: records})
}

// handleQR handles GET /api/qr?size=
//
//	@Summary		Connect QR code
//	@Description	Returns a PNG QR code encoding the URL a browser should open
//	@Tags			pairing
//	@Produce		png
//	@Param			size	query		int	false	"Size in pixels (default 256, 128-1024)"
//	@Success		200		{file}		binary
//	@Failure		404		{object}	ErrorResponse	"Pairing disabled"
//	@Router			/api/qr [get]
func (s *Server) handleQR(w http.ResponseWriter, r *http.Request) {
	if s.deps.QR == nil {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "pairing is not configured", Code: "NOT_FOUND"})
		return
	}
	size, err := queryInt(r, "size", pairing.DefaultPNGSize)
	if err != nil {
		writeError(w, r, err)
		return
	}
	size = min(max(size, minQRSize), maxQRSize)

	png, err := s.deps.QR.GeneratePNG(size)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}
