package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/mithrel/craftforum/internal/db"
	"github.com/mithrel/craftforum/internal/forum"
)

const (
	codeBadRequest      = "bad_request"
	codeUnauthenticated = "unauthenticated"
	codeForbidden       = "forbidden"
	codeNotFound        = "not_found"
	codeConflict        = "conflict"
	codeInternal        = "internal"
)

// apiError is the JSON error body.
type apiError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *apiError) Error() string { return e.Message }

// toAPIError maps service errors to responses. Unknown errors become 500
// without detail.
func toAPIError(err error) *apiError {
	var ae *apiError
	switch {
	case errors.As(err, &ae):
		return ae
	case errors.Is(err, forum.ErrInvalidInput):
		return &apiError{Status: http.StatusBadRequest, Code: codeBadRequest, Message: err.Error()}
	case errors.Is(err, forum.ErrUnauthenticated):
		return &apiError{Status: http.StatusUnauthorized, Code: codeUnauthenticated, Message: "authentication required"}
	case errors.Is(err, forum.ErrForbidden):
		return &apiError{Status: http.StatusForbidden, Code: codeForbidden, Message: err.Error()}
	case errors.Is(err, db.ErrNotFound):
		return &apiError{Status: http.StatusNotFound, Code: codeNotFound, Message: "not found"}
	case errors.Is(err, db.ErrConflict):
		return &apiError{Status: http.StatusConflict, Code: codeConflict, Message: "conflict"}
	default:
		return &apiError{Status: http.StatusInternalServerError, Code: codeInternal, Message: "internal error"}
	}
}

func writeError(w http.ResponseWriter, log *zap.SugaredLogger, err error) {
	ae := toAPIError(err)
	if ae.Status >= http.StatusInternalServerError {
		log.Errorw("request failed", "err", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(ae.Status)
	_ = json.NewEncoder(w).Encode(map[string]*apiError{"error": ae})
}
