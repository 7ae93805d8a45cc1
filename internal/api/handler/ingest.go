package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/listingscope/internal/api/response"
	"github.com/kiranshivaraju/listingscope/internal/project"
	"github.com/kiranshivaraju/listingscope/pkg/models"
)

// Ingestor applies workflow engine callbacks.
type Ingestor interface {
	Ingest(ctx context.Context, req project.IngestRequest) (*models.Project, error)
}

type ingestResponse struct {
	ProjectID uuid.UUID            `json:"projectId"`
	Status    models.ProjectStatus `json:"status"`
	UpdatedAt time.Time            `json:"updatedAt"`
}

// NewIngestHandler returns an http.HandlerFunc for POST /api/v1/ingest?sig=….
// The signature in the query is the capability minted at dispatch; the body is
// {"projectId", "status", "results", "errorDetail"} where "error" is accepted
// in place of "errorDetail".
func NewIngestHandler(svc Ingestor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ProjectID   string          `json:"projectId"`
			Status      string          `json:"status"`
			Results     json.RawMessage `json:"results"`
			ErrorDetail string          `json:"errorDetail"`
			Error       string          `json:"error"`
		}
		if err := decodeJSON(w, r, maxIngestBodyBytes, &req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
			return
		}
		if req.ProjectID == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "projectId is required", nil)
			return
		}
		id, err := uuid.Parse(req.ProjectID)
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "projectId must be a UUID", nil)
			return
		}

		detail := req.ErrorDetail
		if detail == "" {
			detail = req.Error
		}

		p, err := svc.Ingest(r.Context(), project.IngestRequest{
			ProjectID:   id,
			Signature:   r.URL.Query().Get("sig"),
			Status:      req.Status,
			Results:     req.Results,
			ErrorDetail: detail,
		})
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		response.JSON(w, ingestResponse{ProjectID: p.ID, Status: p.Status, UpdatedAt: p.UpdatedAt})
	}
}
