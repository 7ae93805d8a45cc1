package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ProjectStatus is the lifecycle state of a project's analysis job.
type ProjectStatus string

const (
	ProjectStatusPending    ProjectStatus = "pending"
	ProjectStatusProcessing ProjectStatus = "processing"
	ProjectStatusCompleted  ProjectStatus = "completed"
	ProjectStatusError      ProjectStatus = "error"
)

func (s ProjectStatus) String() string { return string(s) }

// Valid reports whether s is one of the four persisted states.
func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectStatusPending, ProjectStatusProcessing, ProjectStatusCompleted, ProjectStatusError:
		return true
	default:
		return false
	}
}

// Terminal reports whether s is completed or error.
func (s ProjectStatus) Terminal() bool {
	return s == ProjectStatusCompleted || s == ProjectStatusError
}

// Project is a set of listing URLs submitted for analysis, together with the
// state of its analysis job. Status moves pending -> processing -> completed|error.
type Project struct {
	ID              uuid.UUID       `db:"id"               json:"id"`
	OwnerID         uuid.UUID       `db:"owner_id"         json:"owner_id"`
	Name            string          `db:"name"             json:"name"`
	Description     string          `db:"description"      json:"description"`
	ListingURLs     []string        `db:"listing_urls"     json:"listing_urls"`
	AnalysisOptions []string        `db:"analysis_options" json:"analysis_options"`
	Status          ProjectStatus   `db:"status"           json:"status"`
	Results         json.RawMessage `db:"results"          json:"results"`
	ErrorDetail     *string         `db:"error_detail"     json:"error_detail,omitempty"`
	ShareToken      *string         `db:"share_token"      json:"share_token,omitempty"`
	CallbackNonce   *string         `db:"callback_nonce"   json:"-"`
	CreatedAt       time.Time       `db:"created_at"       json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at"       json:"updated_at"`
}

// Settle records the outcome that accompanies a status change. Results are kept
// only for completed projects and error detail only for errored ones.
func (p *Project) Settle(status ProjectStatus, results json.RawMessage, errorDetail string) {
	p.Status = status
	switch status {
	case ProjectStatusCompleted:
		p.Results = results
		p.ErrorDetail = nil
	case ProjectStatusError:
		p.Results = nil
		if errorDetail != "" {
			p.ErrorDetail = &errorDetail
		} else if p.ErrorDetail == nil {
			unknown := "analysis failed"
			p.ErrorDetail = &unknown
		}
	default:
		p.Results = nil
		p.ErrorDetail = nil
	}
}

// Touch advances UpdatedAt to now, or one microsecond past its previous value
// when the clock has not moved. Postgres stores microseconds, so that is the step.
func (p *Project) Touch(now time.Time) {
	now = now.UTC().Truncate(time.Microsecond)
	if !now.After(p.UpdatedAt) {
		now = p.UpdatedAt.Add(time.Microsecond)
	}
	p.UpdatedAt = now
}

// View returns the read-only projection served to share-token holders.
func (p *Project) View() *ProjectView {
	return &ProjectView{
		ID:              p.ID,
		Name:            p.Name,
		Description:     p.Description,
		ListingURLs:     p.ListingURLs,
		AnalysisOptions: p.AnalysisOptions,
		Status:          p.Status,
		Results:         p.Results,
		ErrorDetail:     p.ErrorDetail,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

// ProjectView is a Project without owner identity or capability secrets.
type ProjectView struct {
	ID              uuid.UUID       `json:"id"`
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	ListingURLs     []string        `json:"listing_urls"`
	AnalysisOptions []string        `json:"analysis_options"`
	Status          ProjectStatus   `json:"status"`
	Results         json.RawMessage `json:"results"`
	ErrorDetail     *string         `json:"error_detail,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}
