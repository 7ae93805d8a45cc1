package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/listingscope/internal/api/response"
)

// NewTriggerHandler returns an http.HandlerFunc for POST /api/v1/trigger.
// The body is {"projectId": "<uuid>"}. The project moves to processing and the
// workflow engine is notified; engine failures do not change the response.
func NewTriggerHandler(svc ProjectService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, ok := ownerFrom(w, r)
		if !ok {
			return
		}

		var req struct {
			ProjectID string `json:"projectId"`
		}
		if err := decodeJSON(w, r, maxBodyBytes, &req); err != nil {
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

		p, err := svc.Trigger(r.Context(), id, ownerID)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		response.Accepted(w, p)
	}
}

// NewAnalyzeProjectHandler returns an http.HandlerFunc for
// POST /api/v1/projects/{projectID}/analyze, the path form of the trigger.
func NewAnalyzeProjectHandler(svc ProjectService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, ok := ownerFrom(w, r)
		if !ok {
			return
		}
		id, ok := uuidParam(w, r, "projectID")
		if !ok {
			return
		}

		p, err := svc.Trigger(r.Context(), id, ownerID)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		response.Accepted(w, p)
	}
}
