package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"pickmate-backend/internal/apperr"
	"pickmate-backend/internal/validation"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const maxBodyBytes = 1 << 20

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int, code apperr.Code) {
	respondJSON(w, statusCode, ErrorResponse{Error: message, Code: string(code)})
}

// respondAppError maps a service error to its status. Server-side failures
// are logged on ev; client errors only at debug level.
func respondAppError(w http.ResponseWriter, ev *zerolog.Event, err error, msg string) {
	code := apperr.CodeOf(err)
	status := code.HTTPStatus()

	if status >= http.StatusInternalServerError {
		ev.Err(err).Msg(msg)
	} else {
		ev.Discard()
		log.Debug().Err(err).Str("code", string(code)).Msg(msg)
	}

	resp := ErrorResponse{Error: apperr.Message(err), Code: string(code)}
	var appErr *apperr.Error
	if errors.As(err, &appErr) && code != apperr.CodeInternal {
		resp.Details = appErr.Details
	}
	respondJSON(w, status, resp)
}

func respondJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// decodeJSON reads the request body into dst and validates it
func decodeJSON(r *http.Request, v *validation.Validator, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Validation("request body is required")
		}
		return apperr.Validation("Invalid request body")
	}
	return v.Validate(dst)
}
