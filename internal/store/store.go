package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/listingscope/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")

// MutateFunc edits a project loaded under a row lock. Returning an error aborts
// the transaction and leaves the stored row untouched.
type MutateFunc func(p *models.Project) error

// Store is the data access interface. All database operations go through here.
type Store interface {
	Ping(ctx context.Context) error

	GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error)
	UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error
	CreateAPIKey(ctx context.Context, key *models.APIKey) error
	ListAPIKeys(ctx context.Context, ownerID uuid.UUID) ([]*models.APIKey, error)
	RevokeAPIKey(ctx context.Context, id uuid.UUID, ownerID uuid.UUID) error

	CreateProject(ctx context.Context, p *models.Project) error
	GetProject(ctx context.Context, id uuid.UUID) (*models.Project, error)
	GetProjectByShareToken(ctx context.Context, token string) (*models.Project, error)
	ListProjects(ctx context.Context, filter ProjectFilter) ([]*models.Project, int, error)
	DeleteProject(ctx context.Context, id uuid.UUID, ownerID uuid.UUID) error

	// TransitionProject loads the project, hands it to fn, and persists what fn
	// left behind, all under a single-row lock. UpdatedAt is advanced by the
	// store. It returns the stored project after the write.
	TransitionProject(ctx context.Context, id uuid.UUID, fn MutateFunc) (*models.Project, error)

	// EnsureShareToken stores candidate as the project's share token unless one
	// is already set, and returns whichever token is stored afterwards.
	EnsureShareToken(ctx context.Context, id uuid.UUID, candidate string) (string, error)

	// ListStaleProcessing returns ids of projects that have been processing
	// without an update since before cutoff, oldest first.
	ListStaleProcessing(ctx context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error)
}

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

type ProjectFilter struct {
	OwnerID uuid.UUID
	Status  models.ProjectStatus
	Page    int
	Limit   int
}

// Normalize clamps pagination to sane bounds: limit 1..100 (default 20), page >= 1.
func (f ProjectFilter) Normalize() ProjectFilter {
	if f.Limit <= 0 {
		f.Limit = DefaultPageLimit
	}
	if f.Limit > MaxPageLimit {
		f.Limit = MaxPageLimit
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	return f
}

// Offset is the row offset for the filter's page.
func (f ProjectFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}
