package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/listingscope/internal/api/response"
	"github.com/kiranshivaraju/listingscope/internal/project"
	"github.com/kiranshivaraju/listingscope/pkg/models"
)

// ProjectService is the subset of project.Service used by the project handlers.
type ProjectService interface {
	Create(ctx context.Context, ownerID uuid.UUID, params project.CreateParams) (*models.Project, error)
	Get(ctx context.Context, id, ownerID uuid.UUID) (*models.Project, error)
	List(ctx context.Context, ownerID uuid.UUID, params project.ListParams) (*project.ListResult, error)
	Update(ctx context.Context, id, ownerID uuid.UUID, params project.UpdateParams) (*models.Project, error)
	Delete(ctx context.Context, id, ownerID uuid.UUID) error
	Trigger(ctx context.Context, id, ownerID uuid.UUID) (*models.Project, error)
}

// NewCreateProjectHandler returns an http.HandlerFunc for POST /api/v1/projects.
func NewCreateProjectHandler(svc ProjectService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, ok := ownerFrom(w, r)
		if !ok {
			return
		}

		var req struct {
			Name            string   `json:"name"`
			Description     string   `json:"description"`
			ListingURLs     []string `json:"listing_urls"`
			AnalysisOptions []string `json:"analysis_options"`
		}
		if err := decodeJSON(w, r, maxBodyBytes, &req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
			return
		}

		p, err := svc.Create(r.Context(), ownerID, project.CreateParams{
			Name:            req.Name,
			Description:     req.Description,
			ListingURLs:     req.ListingURLs,
			AnalysisOptions: req.AnalysisOptions,
		})
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		response.Created(w, p)
	}
}

// NewListProjectsHandler returns an http.HandlerFunc for GET /api/v1/projects.
// Query parameters: page, limit, status.
func NewListProjectsHandler(svc ProjectService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, ok := ownerFrom(w, r)
		if !ok {
			return
		}

		q := r.URL.Query()
		page, err := intQuery(q.Get("page"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "page must be an integer", nil)
			return
		}
		limit, err := intQuery(q.Get("limit"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "limit must be an integer", nil)
			return
		}

		res, err := svc.List(r.Context(), ownerID, project.ListParams{
			Status: models.ProjectStatus(q.Get("status")),
			Page:   page,
			Limit:  limit,
		})
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		response.Collection(w, res.Projects, response.Page(res.Page, res.Limit, res.Total))
	}
}

// NewGetProjectHandler returns an http.HandlerFunc for GET /api/v1/projects/{projectID}.
func NewGetProjectHandler(svc ProjectService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, ok := ownerFrom(w, r)
		if !ok {
			return
		}
		id, ok := uuidParam(w, r, "projectID")
		if !ok {
			return
		}

		p, err := svc.Get(r.Context(), id, ownerID)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		response.JSON(w, p)
	}
}

// NewUpdateProjectHandler returns an http.HandlerFunc for PATCH /api/v1/projects/{projectID}.
// Absent fields are left unchanged.
func NewUpdateProjectHandler(svc ProjectService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, ok := ownerFrom(w, r)
		if !ok {
			return
		}
		id, ok := uuidParam(w, r, "projectID")
		if !ok {
			return
		}

		var req struct {
			Name            *string  `json:"name"`
			Description     *string  `json:"description"`
			ListingURLs     []string `json:"listing_urls"`
			AnalysisOptions []string `json:"analysis_options"`
		}
		if err := decodeJSON(w, r, maxBodyBytes, &req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
			return
		}

		p, err := svc.Update(r.Context(), id, ownerID, project.UpdateParams{
			Name:            req.Name,
			Description:     req.Description,
			ListingURLs:     req.ListingURLs,
			AnalysisOptions: req.AnalysisOptions,
		})
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		response.JSON(w, p)
	}
}

// NewDeleteProjectHandler returns an http.HandlerFunc for DELETE /api/v1/projects/{projectID}.
func NewDeleteProjectHandler(svc ProjectService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, ok := ownerFrom(w, r)
		if !ok {
			return
		}
		id, ok := uuidParam(w, r, "projectID")
		if !ok {
			return
		}

		if err := svc.Delete(r.Context(), id, ownerID); err != nil {
			writeServiceError(w, r, err)
			return
		}
		response.NoContent(w)
	}
}

func intQuery(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}
