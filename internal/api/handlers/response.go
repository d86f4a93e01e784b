package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Harshitk-cp/clawguild/internal/api/middleware"
	"github.com/Harshitk-cp/clawguild/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFor maps a service error to its HTTP status. Zero means internal.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrProviderNotConfigured), errors.Is(err, domain.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrDeploymentTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, domain.ErrRemoteRejected),
		errors.Is(err, domain.ErrMalformedResponse),
		errors.Is(err, domain.ErrDeploymentFailed):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrUnsupported):
		return http.StatusNotImplemented
	}
	return 0
}

// writeServiceError writes err with the status of its class. Internal
// errors are logged in full and answered with an opaque message.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, internalMsg string) {
	if status := statusFor(err); status != 0 {
		writeError(w, status, err.Error())
		return
	}
	middleware.LoggerFromContext(r.Context()).Error(internalMsg, zap.Error(err))
	writeError(w, http.StatusInternalServerError, internalMsg)
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func pathID(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	return id, err == nil
}
