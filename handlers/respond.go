package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"llama-io/backend/api-service/logging"
	"llama-io/backend/api-service/models"
)

// Envelope is the uniform response body: a human-readable message and the
// payload, or null when there is none.
type Envelope struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

func respondJSON(w http.ResponseWriter, status int, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(Envelope{Message: message, Data: data}); err != nil {
		logging.Logger.Errorf("Event ID: RESPONSE_ENCODE_FAILED, Description: Failed to encode response body: %v", err)
	}
}

// respondError maps a service error onto the HTTP taxonomy: validation and
// conflict are 400, not found is 404, everything else is a 500 carrying the
// generic fallback message instead of internal detail.
func respondError(w http.ResponseWriter, err error, fallback string) {
	var validationErr *models.ValidationError
	var notFoundErr *models.NotFoundError
	var conflictErr *models.ConflictError

	switch {
	case errors.As(err, &validationErr):
		respondJSON(w, http.StatusBadRequest, validationErr.Message, nil)
	case errors.As(err, &notFoundErr):
		respondJSON(w, http.StatusNotFound, notFoundErr.Message, nil)
	case errors.As(err, &conflictErr):
		respondJSON(w, http.StatusBadRequest, conflictErr.Message, nil)
	default:
		logging.Logger.Errorf("Event ID: INTERNAL_ERROR, Description: %v", err)
		respondJSON(w, http.StatusInternalServerError, fallback, nil)
	}
}
