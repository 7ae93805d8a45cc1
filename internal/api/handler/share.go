package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kiranshivaraju/listingscope/internal/api/response"
	"github.com/kiranshivaraju/listingscope/pkg/models"
)

// Sharer issues share tokens for owned projects.
type Sharer interface {
	EnsureShareToken(ctx context.Context, id, ownerID uuid.UUID) (string, error)
	ShareURL(token string) string
}

// ShareResolver looks up the read-only view behind a share token.
type ShareResolver interface {
	ResolveShare(ctx context.Context, token string) (*models.ProjectView, error)
}

type shareResponse struct {
	Token string `json:"token"`
	URL   string `json:"url"`
}

// NewCreateShareHandler returns an http.HandlerFunc for
// POST /api/v1/projects/{projectID}/share. Repeated calls return the same token.
func NewCreateShareHandler(svc Sharer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, ok := ownerFrom(w, r)
		if !ok {
			return
		}
		id, ok := uuidParam(w, r, "projectID")
		if !ok {
			return
		}

		token, err := svc.EnsureShareToken(r.Context(), id, ownerID)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		response.JSON(w, shareResponse{Token: token, URL: svc.ShareURL(token)})
	}
}

// NewResolveShareHandler returns an http.HandlerFunc for GET /api/v1/share/{token}.
func NewResolveShareHandler(svc ShareResolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := svc.ResolveShare(r.Context(), chi.URLParam(r, "token"))
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		w.Header().Set("Cache-Control", "no-store")
		response.JSON(w, view)
	}
}
