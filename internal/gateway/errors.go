package gateway

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/voxhollow/switchboard/internal/domain"
)

// statusFor maps a classified error to an HTTP status code. Unresolved
// tokens map to 400, not 401: a revoked or unknown token is reported like a
// malformed field so callers can tell it apart from a missing credential.
func statusFor(err error) int {
	switch domain.KindOf(err) {
	case domain.KindValidation, domain.KindUnresolvedAgent:
		return http.StatusBadRequest
	case domain.KindAuth:
		return http.StatusUnauthorized
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindRateLimit:
		return http.StatusTooManyRequests
	case domain.KindProvider:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as the canonical {"error": "..."} body. The error
// string carries detail lines separated by newlines inside the one field.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= 500 {
		s.log.Error().Err(err).Msg("request failed")
	}
	writeJSON(w, status, map[string]any{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// decodeJSON decodes a request body into target. A missing or empty body
// decodes to the zero value: clients that have nothing to say send nothing.
func decodeJSON(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(target)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return domain.Validationf("malformed JSON body: %v", err)
}

func handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]any{
		"error": "not found",
		"path":  r.URL.Path,
	})
}
