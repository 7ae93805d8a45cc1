// Package memory is an in-process implementation of store.Store. It keeps the
// same locking and not-found semantics as the Postgres store and is used by
// tests and local tooling.
package memory

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kiranshivaraju/listingscope/internal/store"
	"github.com/kiranshivaraju/listingscope/pkg/models"
)

var _ store.Store = (*Store)(nil)

// Store keeps projects and API keys in maps guarded by a single mutex, which
// gives every mutation the same all-or-nothing behavior as a row transaction.
type Store struct {
	mu       sync.Mutex
	projects map[uuid.UUID]*models.Project
	tokens   map[string]uuid.UUID
	keys     map[uuid.UUID]*models.APIKey
	now      func() time.Time
	pingErr  error
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		projects: make(map[uuid.UUID]*models.Project),
		tokens:   make(map[string]uuid.UUID),
		keys:     make(map[uuid.UUID]*models.APIKey),
		now:      time.Now,
	}
}

// SetClock replaces the time source used to stamp updates.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// SetPingError makes Ping return err.
func (s *Store) SetPingError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pingErr = err
}

func (s *Store) Ping(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pingErr
}

// --- API Keys ---

func (s *Store) GetAPIKeyByPrefix(_ context.Context, prefix string) ([]*models.APIKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*models.APIKey
	for _, k := range s.keys {
		if k.KeyPrefix == prefix && k.DeletedAt == nil {
			c := *k
			out = append(out, &c)
		}
	}
	return out, nil
}

func (s *Store) UpdateAPIKeyLastUsed(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if k, ok := s.keys[id]; ok {
		now := s.now().UTC()
		k.LastUsedAt = &now
		k.UpdatedAt = now
	}
	return nil
}

func (s *Store) CreateAPIKey(_ context.Context, key *models.APIKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, k := range s.keys {
		if k.ID == key.ID || (k.OwnerID == key.OwnerID && k.Name == key.Name && k.DeletedAt == nil) {
			return store.ErrDuplicateKey
		}
	}
	c := *key
	s.keys[key.ID] = &c
	return nil
}

func (s *Store) ListAPIKeys(_ context.Context, ownerID uuid.UUID) ([]*models.APIKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []*models.APIKey{}
	for _, k := range s.keys {
		if k.OwnerID == ownerID && k.DeletedAt == nil {
			c := *k
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) RevokeAPIKey(_ context.Context, id uuid.UUID, ownerID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k, ok := s.keys[id]
	if !ok || k.OwnerID != ownerID || k.DeletedAt != nil {
		return store.ErrNotFound
	}
	now := s.now().UTC()
	k.DeletedAt = &now
	k.UpdatedAt = now
	return nil
}

// --- Projects ---

func (s *Store) CreateProject(_ context.Context, p *models.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.projects[p.ID]; exists {
		return store.ErrDuplicateKey
	}
	if p.ShareToken != nil {
		if _, taken := s.tokens[*p.ShareToken]; taken {
			return store.ErrDuplicateKey
		}
		s.tokens[*p.ShareToken] = p.ID
	}
	s.projects[p.ID] = cloneProject(p)
	return nil
}

func (s *Store) GetProject(_ context.Context, id uuid.UUID) (*models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.projects[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneProject(p), nil
}

func (s *Store) GetProjectByShareToken(_ context.Context, token string) (*models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.tokens[token]
	if !ok {
		return nil, store.ErrNotFound
	}
	p, ok := s.projects[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneProject(p), nil
}

func (s *Store) ListProjects(_ context.Context, filter store.ProjectFilter) ([]*models.Project, int, error) {
	filter = filter.Normalize()

	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []*models.Project
	for _, p := range s.projects {
		if p.OwnerID != filter.OwnerID {
			continue
		}
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		matched = append(matched, p)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID.String() < matched[j].ID.String()
	})

	total := len(matched)
	out := []*models.Project{}
	for i := filter.Offset(); i < total && len(out) < filter.Limit; i++ {
		out = append(out, cloneProject(matched[i]))
	}
	return out, total, nil
}

func (s *Store) DeleteProject(_ context.Context, id uuid.UUID, ownerID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.projects[id]
	if !ok || p.OwnerID != ownerID {
		return store.ErrNotFound
	}
	if p.ShareToken != nil {
		delete(s.tokens, *p.ShareToken)
	}
	delete(s.projects, id)
	return nil
}

func (s *Store) TransitionProject(_ context.Context, id uuid.UUID, fn store.MutateFunc) (*models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.projects[id]
	if !ok {
		return nil, store.ErrNotFound
	}

	working := cloneProject(current)
	if err := fn(working); err != nil {
		return nil, err
	}
	working.Touch(s.now())

	// Identity and capability columns are not writable through a transition.
	working.ID = current.ID
	working.OwnerID = current.OwnerID
	working.ShareToken = current.ShareToken
	working.CreatedAt = current.CreatedAt

	s.projects[id] = working
	return cloneProject(working), nil
}

func (s *Store) EnsureShareToken(_ context.Context, id uuid.UUID, candidate string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.projects[id]
	if !ok {
		return "", store.ErrNotFound
	}
	if p.ShareToken != nil {
		return *p.ShareToken, nil
	}
	if _, taken := s.tokens[candidate]; taken {
		return "", store.ErrDuplicateKey
	}
	token := candidate
	p.ShareToken = &token
	p.Touch(s.now())
	s.tokens[token] = id
	return token, nil
}

func (s *Store) ListStaleProcessing(_ context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error) {
	if limit <= 0 {
		limit = 100
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var stale []*models.Project
	for _, p := range s.projects {
		if p.Status == models.ProjectStatusProcessing && p.UpdatedAt.Before(cutoff) {
			stale = append(stale, p)
		}
	}
	sort.Slice(stale, func(i, j int) bool { return stale[i].UpdatedAt.Before(stale[j].UpdatedAt) })

	ids := []uuid.UUID{}
	for i := 0; i < len(stale) && i < limit; i++ {
		ids = append(ids, stale[i].ID)
	}
	return ids, nil
}

func cloneProject(p *models.Project) *models.Project {
	c := *p
	c.ListingURLs = append([]string(nil), p.ListingURLs...)
	c.AnalysisOptions = append([]string(nil), p.AnalysisOptions...)
	if p.Results != nil {
		c.Results = append(json.RawMessage(nil), p.Results...)
	}
	c.ErrorDetail = cloneString(p.ErrorDetail)
	c.ShareToken = cloneString(p.ShareToken)
	c.CallbackNonce = cloneString(p.CallbackNonce)
	return &c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
