package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/busops/ticket-counter/internal/auth"
	"github.com/busops/ticket-counter/internal/domain"
)

// ErrorDetail is the body of every error response: {"error": {...}}.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error ErrorDetail `json:"error"`
}

// errorMapping maps a domain sentinel to its HTTP status and error code.
// Order matters: the first match wins.
var errorMapping = []struct {
	err    error
	status int
	code   string
}{
	{domain.ErrValidation, http.StatusUnprocessableEntity, "validation_error"},
	{domain.ErrNotFound, http.StatusNotFound, "not_found"},
	{domain.ErrForbidden, http.StatusForbidden, "forbidden"},
	{auth.ErrInvalidToken, http.StatusUnauthorized, "unauthorized"},
	{domain.ErrInvalidState, http.StatusConflict, "invalid_state"},
	{domain.ErrConflict, http.StatusConflict, "conflict"},
	{domain.ErrSeatLoad, http.StatusBadGateway, "backend_unavailable"},
	{domain.ErrBackend, http.StatusBadGateway, "backend_unavailable"},
}

// writeJSON encodes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: ErrorDetail{Code: code, Message: message}})
}

// respondErr maps err onto an error response. Unknown errors are logged and
// answered with a generic 500 so internals never leak.
func (s *Server) respondErr(w http.ResponseWriter, r *http.Request, err error) {
	for _, m := range errorMapping {
		if errors.Is(err, m.err) {
			if m.status >= http.StatusInternalServerError {
				s.log.WarnContext(r.Context(), "upstream failure", "path", r.URL.Path, "error", err)
			}
			writeError(w, m.status, m.code, unwrapMessage(err, m.err))
			return
		}
	}
	s.log.ErrorContext(r.Context(), "unhandled error", "path", r.URL.Path, "error", err)
	writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
}

// unwrapMessage extracts the human-readable part after a wrapped sentinel.
// e.g. "service.SearchService.Prepare: validation error: date is required"
// → "date is required". Backend errors keep only the sentinel text.
func unwrapMessage(err, sentinel error) string {
	msg := err.Error()
	if errors.Is(sentinel, domain.ErrBackend) || errors.Is(sentinel, domain.ErrSeatLoad) {
		return sentinel.Error()
	}
	prefix := sentinel.Error() + ": "
	if i := strings.LastIndex(msg, prefix); i >= 0 {
		return msg[i+len(prefix):]
	}
	return sentinel.Error()
}

// decodeJSON decodes the request body into dst, writing the error response
// itself when it fails.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "payload_too_large", "request body too large")
			return false
		}
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

// actor returns the acting user put into the context by the authn
// middleware, writing a 401 when there is none.
func actor(w http.ResponseWriter, r *http.Request) (domain.ActingUser, bool) {
	u, ok := auth.ActorFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
	}
	return u, ok
}
