package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"rental-car-dashboard/internal/domain"
	"rental-car-dashboard/internal/logger"
)

type errorResponse struct {
	Error           string            `json:"error"`
	Code            string            `json:"code"`
	Fields          map[string]string `json:"fields,omitempty"`
	ConflictingCode string            `json:"conflicting_code,omitempty"`
}

// toErrorResponse maps a service error to a status and body. Domain error
// messages are returned verbatim.
func toErrorResponse(err error) (int, errorResponse) {
	var sc *domain.ScheduleConflictError
	if errors.As(err, &sc) {
		return http.StatusConflict, errorResponse{Error: err.Error(), Code: "schedule_conflict", ConflictingCode: sc.ConflictingCode}
	}
	if errors.Is(err, domain.ErrScheduleConflict) {
		return http.StatusConflict, errorResponse{Error: err.Error(), Code: "schedule_conflict"}
	}

	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, errorResponse{Error: ve.Error(), Code: "validation", Fields: ve.Fields}
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, errorResponse{Error: err.Error(), Code: "validation"}
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, errorResponse{Error: err.Error(), Code: "not_found"}
	case errors.Is(err, domain.ErrStateConflict):
		return http.StatusConflict, errorResponse{Error: err.Error(), Code: "state_conflict"}
	case errors.Is(err, domain.ErrPermission):
		return http.StatusForbidden, errorResponse{Error: err.Error(), Code: "permission_denied"}
	}
	return http.StatusInternalServerError, errorResponse{Error: "internal server error", Code: "internal"}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := toErrorResponse(err)
	if status == http.StatusInternalServerError {
		logger.Error("Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, body)
}

func writeMessage(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("Failed to encode response", "error", err)
	}
}
