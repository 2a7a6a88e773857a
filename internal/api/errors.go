package api

import (
	"errors"
	"net/http"

	"github.com/haventeam/haven/internal/api/respond"
	"github.com/haventeam/haven/internal/model"
)

// writeDomainError maps model sentinel errors to HTTP status codes. Policy
// denials arrive here already collapsed to ErrNotFound, so the 404 branch
// covers both missing and forbidden without distinguishing them.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrValidation):
		respond.WriteBadRequest(w, err.Error())
	case errors.Is(err, model.ErrNotFound):
		respond.WriteNotFound(w, "not found")
	case errors.Is(err, model.ErrConflict):
		respond.WriteConflict(w, "version conflict, reload and retry")
	case errors.Is(err, model.ErrUnauthorized):
		respond.WriteUnauthorized(w, "unauthorized")
	default:
		respond.WriteInternalError(w, http.StatusText(http.StatusInternalServerError))
	}
}
