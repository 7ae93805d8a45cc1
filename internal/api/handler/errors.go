package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	mw "github.com/kiranshivaraju/listingscope/internal/api/middleware"
	"github.com/kiranshivaraju/listingscope/internal/api/response"
	"github.com/kiranshivaraju/listingscope/internal/project"
)

const (
	maxBodyBytes       = 1 << 20
	maxIngestBodyBytes = 2 << 20
)

// writeServiceError maps project service errors onto the HTTP error envelope.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *project.ValidationError
	switch {
	case errors.As(err, &verr):
		var details any
		if verr.Field != "" {
			details = map[string]string{"field": verr.Field}
		}
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", verr.Error(), details)
	case errors.Is(err, project.ErrValidation):
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
	case errors.Is(err, project.ErrNotFound):
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Project not found", nil)
	case errors.Is(err, project.ErrForbidden):
		response.Error(w, http.StatusForbidden, "FORBIDDEN", "Project belongs to another owner", nil)
	case errors.Is(err, project.ErrUnauthorized):
		response.Error(w, http.StatusUnauthorized, "INVALID_SIGNATURE", "Callback signature is invalid", nil)
	case errors.Is(err, project.ErrConflict):
		response.Error(w, http.StatusConflict, "CONFLICT", err.Error(), nil)
	default:
		slog.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", nil)
	}
}

// decodeJSON reads a JSON body of at most limit bytes into v. An empty body
// leaves v untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return fmt.Errorf("request body exceeds %d bytes", maxErr.Limit)
		}
		return errors.New("invalid JSON body")
	}
	return nil
}

// ownerFrom returns the authenticated owner or writes a 401.
func ownerFrom(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	ownerID, ok := mw.GetOwnerID(r)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing owner", nil)
	}
	return ownerID, ok
}

// uuidParam parses a chi URL parameter or writes a 400.
func uuidParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", name+" must be a UUID", nil)
		return uuid.Nil, false
	}
	return id, true
}
