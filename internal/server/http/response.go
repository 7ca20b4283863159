package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/brianly1003/lanterm/internal/domain"
)

// Request body limits for JSON endpoints.
const (
	maxJSONBody    = 1 << 20
	maxContentBody = 64 << 20 // text writes; the store enforces its own limit
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)

	// Flush to ensure response is sent immediately
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

// writeError writes err as {"error", "code"} with the status its class maps to.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	writeErrorResult(w, r, err, nil)
}

// writeErrorResult is writeError for operations that may have partially
// completed; result carries the counts of what was done before err.
func writeErrorResult(w http.ResponseWriter, r *http.Request, err error, result interface{}) {
	status := domain.HTTPStatus(err)
	code := domain.Code(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", r.URL.Path).Str("code", code).Msg("request failed")
	} else {
		log.Debug().Err(err).Str("path", r.URL.Path).Str("code", code).Msg("request rejected")
	}
	writeJSON(w, status, ErrorResponse{Error: err.Error(), Code: code, Result: result})
}

// decodeJSON decodes the request body into v, reading at most limit bytes.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}, limit int64) error {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return fmt.Errorf("request body over %d bytes: %w", maxErr.Limit, domain.ErrPayloadTooLarge)
		}
		return fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
	}
	return nil
}

// queryBool parses a boolean query parameter; anything unparseable is false.
func queryBool(r *http.Request, name string) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(name))
	return err == nil && v
}

// queryInt parses an integer query parameter, returning def when absent.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.NewValidationError(name, "must be an integer")
	}
	return n, nil
}
