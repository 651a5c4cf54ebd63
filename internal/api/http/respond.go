// Package http exposes the assessment service over REST. Every JSON
// endpoint wraps its payload in a success/error envelope so clients
// branch on one shape.
package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/operating-strengths/assessment-api/internal/assessment"
	"github.com/operating-strengths/assessment-api/internal/team"
)

type apiError struct {
	Message   string `json:"message"`
	Code      string `json:"code,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

type envelope struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *apiError `json:"error,omitempty"`
}

func writeData(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: true, Data: data})
}

func writeErrorMsg(w http.ResponseWriter, status int, msg, code string) {
	writeErrorFull(w, status, msg, code, false)
}

func writeErrorFull(w http.ResponseWriter, status int, msg, code string, retryable bool) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: false, Error: &apiError{
		Message:   msg,
		Code:      code,
		Retryable: retryable,
	}})
}

// writeError maps service errors onto HTTP statuses. Configuration
// problems are deliberately opaque to clients and, like client-input
// errors, never marked retryable: resubmitting the same request cannot
// succeed until an operator or the client fixes something. Only unknown
// internal failures are flagged as transient.
func writeError(w http.ResponseWriter, err error) {
	var inputErr *team.InputError
	var validationErr *assessment.ValidationError
	var configErr *assessment.ConfigurationError

	switch {
	case errors.As(err, &inputErr):
		writeErrorMsg(w, http.StatusBadRequest, inputErr.Msg, "invalid_input")
	case errors.As(err, &validationErr):
		writeErrorMsg(w, http.StatusBadRequest, validationErr.Msg, "invalid_responses")
	case errors.Is(err, team.ErrNotFound):
		writeErrorMsg(w, http.StatusNotFound, "Invalid assessment link", "not_found")
	case errors.Is(err, team.ErrAlreadyCompleted):
		writeErrorMsg(w, http.StatusConflict, "Assessment already completed", "already_completed")
	case errors.Is(err, team.ErrDuplicateMember):
		writeErrorMsg(w, http.StatusConflict, "That email is already on the team", "duplicate_member")
	case errors.Is(err, team.ErrNoCompletions):
		writeErrorMsg(w, http.StatusBadRequest, "No completed assessments yet", "no_completions")
	case errors.As(err, &configErr):
		writeErrorMsg(w, http.StatusInternalServerError, "Internal configuration error", "config_error")
	default:
		writeErrorFull(w, http.StatusInternalServerError, "Internal server error", "internal", true)
	}
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return &team.InputError{Msg: "invalid JSON body"}
	}
	return nil
}
