package controller

import (
	"encoding/json"
	"errors"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/markbot/orchestrator/internal/apperrors"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// writeError maps the error taxonomy onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	var (
		validationErr *apperrors.ValidationError
		schedulingErr *apperrors.SchedulingError
		notFoundErr   *apperrors.NotFoundError
		ozzoErrs      validation.Errors
	)
	switch {
	case errors.As(err, &validationErr), errors.As(err, &schedulingErr), errors.As(err, &ozzoErrs):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.As(err, &notFoundErr):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}
