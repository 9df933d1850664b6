package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/feedstream/internal/common"
)

// errorBody is the client-visible shape of every failed request.
type errorBody struct {
	Message string   `json:"message"`
	Data    []string `json:"data,omitempty"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error(context.Background(), "response encoding failed", "error", err)
	}
}

// mapError translates a service error into the client-visible status, message
// and optional details. Unknown errors default to 500.
func mapError(err error) (int, errorBody) {
	var ve *common.ValidationError
	switch {
	case errors.As(err, &ve):
		return http.StatusUnprocessableEntity, errorBody{Message: "Validation Error", Data: ve.Details}
	case errors.Is(err, common.ErrorUnauthorized):
		return http.StatusUnauthorized, errorBody{Message: "Not Authenticated"}
	case errors.Is(err, common.ErrorForbidden):
		return http.StatusForbidden, errorBody{Message: "Forbidden"}
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound, errorBody{Message: "Not Found"}
	case errors.Is(err, common.ErrorConflict):
		return http.StatusConflict, errorBody{Message: "Email already exists"}
	default:
		return http.StatusInternalServerError, errorBody{Message: "Internal Server Error"}
	}
}

// writeError logs the original error and responds with its mapped status and
// body. The original error text never reaches the client for 5xx failures.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := mapError(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	} else {
		s.logger.Debug(r.Context(), "request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}
	s.writeJSON(w, status, body)
}
