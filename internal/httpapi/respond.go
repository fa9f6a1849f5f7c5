// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SelfReg Contributors

package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/selfreg/selfreg/internal/member"
)

// errorEnvelope is the failure response shape. Field-level validation
// failures arrive under "errors"; request-level failures under "message".
type errorEnvelope struct {
	Errors  member.FieldErrors `json:"errors,omitempty"`
	Message string             `json:"message,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// respondFieldErrors writes a 422 with per-field validation messages.
func respondFieldErrors(w http.ResponseWriter, fieldErrs member.FieldErrors) {
	respondJSON(w, http.StatusUnprocessableEntity, errorEnvelope{Errors: fieldErrs})
}

func respondMessage(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorEnvelope{Message: message})
}

// respondInternal hides the cause behind a generic message; details go
// to the log, never to the client.
func respondInternal(w http.ResponseWriter) {
	respondMessage(w, http.StatusInternalServerError, "Something went wrong. Please try again later.")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondMessage(w, http.StatusBadRequest, "Request body is not valid JSON.")
		return false
	}
	return true
}
