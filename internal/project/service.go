// Package project owns the analysis job lifecycle of a project: creating and
// editing it, dispatching it to the workflow engine, ingesting the engine's
// callback, expiring stuck jobs and sharing results through capability tokens.
//
// Every state change runs through store.Store.TransitionProject so it is a
// single locked read-modify-write, and every status decision is delegated to
// lifecycle.Apply.
package project

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kiranshivaraju/listingscope/internal/cache"
	"github.com/kiranshivaraju/listingscope/internal/engine"
	"github.com/kiranshivaraju/listingscope/internal/lifecycle"
	"github.com/kiranshivaraju/listingscope/internal/listing"
	"github.com/kiranshivaraju/listingscope/internal/store"
	"github.com/kiranshivaraju/listingscope/pkg/models"
)

const (
	// IngestPath is the single callback entry point handed to the engine.
	IngestPath = "/api/v1/ingest"
	// SharePath prefixes public share links.
	SharePath = "/api/v1/share/"

	maxErrorDetailBytes = 4000
	maxResultsBytes     = 1 << 20

	generationBytes      = 12
	shareGenerationGrace = 5 * time.Minute
)

// Config holds the settings the service needs from the process configuration.
type Config struct {
	PublicBaseURL     string
	EngineTimeout     time.Duration
	ShareCacheTTL     time.Duration
	ProcessingTimeout time.Duration
}

// Service implements project CRUD and the analysis job lifecycle.
type Service struct {
	store    store.Store
	cache    cache.Cache
	notifier engine.Notifier
	signer   *Signer
	cfg      Config
	now      func() time.Time
	tracer   trace.Tracer
}

// NewService creates a new Service.
func NewService(st store.Store, ca cache.Cache, notifier engine.Notifier, signer *Signer, cfg Config) *Service {
	cfg.PublicBaseURL = strings.TrimRight(cfg.PublicBaseURL, "/")
	return &Service{
		store:    st,
		cache:    ca,
		notifier: notifier,
		signer:   signer,
		cfg:      cfg,
		now:      time.Now,
		tracer:   otel.Tracer("github.com/kiranshivaraju/listingscope/internal/project"),
	}
}

// SetClock replaces the time source. Tests use it to age projects.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// CreateParams are the user-supplied fields of a new project.
type CreateParams struct {
	Name            string
	Description     string
	ListingURLs     []string
	AnalysisOptions []string
}

// UpdateParams changes a project's editable fields. Nil fields are left as they are.
type UpdateParams struct {
	Name            *string
	Description     *string
	ListingURLs     []string
	AnalysisOptions []string
}

// ListParams selects a page of the owner's projects.
type ListParams struct {
	Status models.ProjectStatus
	Page   int
	Limit  int
}

// ListResult is one page of projects plus the total match count.
type ListResult struct {
	Projects []*models.Project
	Total    int
	Page     int
	Limit    int
}

// IngestRequest is an engine callback. Signature comes from the callback URL.
type IngestRequest struct {
	ProjectID   uuid.UUID
	Signature   string
	Status      string
	Results     json.RawMessage
	ErrorDetail string
}

// Create validates params and stores a new pending project for ownerID.
func (s *Service) Create(ctx context.Context, ownerID uuid.UUID, params CreateParams) (*models.Project, error) {
	name, err := listing.Name(params.Name)
	if err != nil {
		return nil, fieldError(err)
	}
	desc, err := listing.Description(params.Description)
	if err != nil {
		return nil, fieldError(err)
	}
	urls, err := listing.URLs(params.ListingURLs)
	if err != nil {
		return nil, fieldError(err)
	}
	opts, err := listing.AnalysisOptions(params.AnalysisOptions)
	if err != nil {
		return nil, fieldError(err)
	}

	now := s.now().UTC().Truncate(time.Microsecond)
	p := &models.Project{
		ID:              uuid.New(),
		OwnerID:         ownerID,
		Name:            name,
		Description:     desc,
		ListingURLs:     urls,
		AnalysisOptions: opts,
		Status:          models.ProjectStatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.store.CreateProject(ctx, p); err != nil {
		return nil, fmt.Errorf("creating project: %w", err)
	}

	slog.Info("project created", "project_id", p.ID, "owner_id", ownerID, "urls", len(urls))
	return p, nil
}

// Get returns the project if ownerID owns it. Other owners see ErrNotFound.
func (s *Service) Get(ctx context.Context, id, ownerID uuid.UUID) (*models.Project, error) {
	p, err := s.store.GetProject(ctx, id)
	if err != nil {
		return nil, mapStoreError(err)
	}
	if p.OwnerID != ownerID {
		return nil, ErrNotFound
	}
	return p, nil
}

// List returns the owner's projects, newest first.
func (s *Service) List(ctx context.Context, ownerID uuid.UUID, params ListParams) (*ListResult, error) {
	if params.Status != "" && !params.Status.Valid() {
		return nil, validation("status", "must be one of pending, processing, completed, error")
	}

	filter := store.ProjectFilter{
		OwnerID: ownerID,
		Status:  params.Status,
		Page:    params.Page,
		Limit:   params.Limit,
	}.Normalize()

	projects, total, err := s.store.ListProjects(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	return &ListResult{Projects: projects, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

// Update edits a project. Name and description may change at any time;
// listing URLs and analysis options only while the project is pending.
func (s *Service) Update(ctx context.Context, id, ownerID uuid.UUID, params UpdateParams) (*models.Project, error) {
	var (
		name, desc string
		urls, opts []string
		err        error
	)
	if params.Name != nil {
		if name, err = listing.Name(*params.Name); err != nil {
			return nil, fieldError(err)
		}
	}
	if params.Description != nil {
		if desc, err = listing.Description(*params.Description); err != nil {
			return nil, fieldError(err)
		}
	}
	if params.ListingURLs != nil {
		if urls, err = listing.URLs(params.ListingURLs); err != nil {
			return nil, fieldError(err)
		}
	}
	if params.AnalysisOptions != nil {
		if opts, err = listing.AnalysisOptions(params.AnalysisOptions); err != nil {
			return nil, fieldError(err)
		}
	}

	p, err := s.store.TransitionProject(ctx, id, func(p *models.Project) error {
		if p.OwnerID != ownerID {
			return ErrNotFound
		}
		inputsChanged := params.ListingURLs != nil || params.AnalysisOptions != nil
		if inputsChanged && p.Status != models.ProjectStatusPending {
			return fmt.Errorf("%w: inputs of a %s project cannot change", ErrConflict, p.Status)
		}
		if params.Name != nil {
			p.Name = name
		}
		if params.Description != nil {
			p.Description = desc
		}
		if params.ListingURLs != nil {
			p.ListingURLs = urls
		}
		if params.AnalysisOptions != nil {
			p.AnalysisOptions = opts
		}
		return nil
	})
	if err != nil {
		return nil, mapStoreError(err)
	}

	s.invalidateShare(ctx, p)
	return p, nil
}

// Delete removes a project in any state.
func (s *Service) Delete(ctx context.Context, id, ownerID uuid.UUID) error {
	p, err := s.Get(ctx, id, ownerID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteProject(ctx, id, ownerID); err != nil {
		return mapStoreError(err)
	}

	s.invalidateShare(ctx, p)
	slog.Info("project deleted", "project_id", id, "owner_id", ownerID)
	return nil
}

// Trigger moves the project to processing and then notifies the engine. The
// status change is committed before the notification is attempted, and a
// failed notification is logged but never reverts it or fails the call.
//
// Every dispatch, including a re-trigger of a project already processing,
// mints a new callback nonce. That revokes the callback URL of every earlier
// dispatch, even when the new notification itself fails to reach the engine.
func (s *Service) Trigger(ctx context.Context, id, ownerID uuid.UUID) (*models.Project, error) {
	ctx, span := s.tracer.Start(ctx, "project.Trigger",
		trace.WithAttributes(attribute.String("project.id", id.String())))
	defer span.End()

	p, err := s.store.TransitionProject(ctx, id, func(p *models.Project) error {
		if p.OwnerID != ownerID {
			return ErrForbidden
		}
		next, err := lifecycle.Apply(p.Status, lifecycle.TriggerEvent())
		if err != nil {
			return fmt.Errorf("%w: %v", ErrConflict, err)
		}
		nonce, err := newNonce()
		if err != nil {
			return err
		}
		p.Settle(next, nil, "")
		p.CallbackNonce = &nonce
		return nil
	})
	if err != nil {
		err = mapStoreError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	s.invalidateShare(ctx, p)
	s.notify(ctx, span, p)
	return p, nil
}

func (s *Service) notify(ctx context.Context, span trace.Span, p *models.Project) {
	// The request may be cancelled by its client; the dispatch still gets its full budget.
	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.EngineTimeout)
	defer cancel()

	opts := p.AnalysisOptions
	if len(opts) == 0 {
		opts = listing.Options()
	}

	start := time.Now()
	err := s.notifier.Notify(notifyCtx, engine.Notification{
		ProjectID:       p.ID,
		OwnerID:         p.OwnerID,
		ProjectName:     p.Name,
		Inputs:          p.ListingURLs,
		AnalysisOptions: opts,
		Timestamp:       s.now().UTC(),
		CallbackURL:     s.CallbackURL(p.ID, *p.CallbackNonce),
	})
	if err != nil {
		span.RecordError(err)
		slog.Warn("engine notification failed, project stays processing",
			"project_id", p.ID, "error", err, "elapsed", time.Since(start))
		return
	}
	slog.Info("engine notified", "project_id", p.ID, "elapsed", time.Since(start))
}

// CallbackURL is the signed ingest address for one dispatch of a project.
func (s *Service) CallbackURL(id uuid.UUID, nonce string) string {
	return s.cfg.PublicBaseURL + IngestPath + "?sig=" + s.signer.Sign(id, nonce)
}

// Ingest applies an engine callback. The signature must match the project's
// current dispatch, and the status change must be legal from the stored state;
// otherwise nothing is written.
func (s *Service) Ingest(ctx context.Context, req IngestRequest) (*models.Project, error) {
	ctx, span := s.tracer.Start(ctx, "project.Ingest",
		trace.WithAttributes(attribute.String("project.id", req.ProjectID.String())))
	defer span.End()

	if req.ProjectID == uuid.Nil {
		return nil, validation("projectId", "is required")
	}

	status := models.ProjectStatus(strings.ToLower(strings.TrimSpace(req.Status)))
	if status == "" {
		status = models.ProjectStatusCompleted
	}
	if !status.Valid() || status == models.ProjectStatusPending {
		return nil, validation("status", "must be one of processing, completed, error")
	}
	span.SetAttributes(attribute.String("project.status", status.String()))

	results, err := normalizeResults(req.Results)
	if err != nil {
		return nil, err
	}
	detail := listing.Truncate(strings.TrimSpace(req.ErrorDetail), maxErrorDetailBytes)

	var prior models.ProjectStatus
	p, err := s.store.TransitionProject(ctx, req.ProjectID, func(p *models.Project) error {
		nonce := ""
		if p.CallbackNonce != nil {
			nonce = *p.CallbackNonce
		}
		if !s.signer.Verify(p.ID, nonce, req.Signature) {
			return ErrUnauthorized
		}
		prior = p.Status
		next, err := lifecycle.Apply(p.Status, lifecycle.CallbackEvent(status))
		if err != nil {
			return fmt.Errorf("%w: %v", ErrConflict, err)
		}
		p.Settle(next, results, detail)
		return nil
	})
	if err != nil {
		err = mapStoreError(err)
		span.SetStatus(codes.Error, err.Error())
		if errors.Is(err, ErrUnauthorized) {
			slog.Warn("callback rejected: bad signature", "project_id", req.ProjectID)
		}
		return nil, err
	}

	s.invalidateShare(ctx, p)
	slog.Info("callback applied", "project_id", p.ID, "from", prior, "to", p.Status)
	return p, nil
}

// normalizeResults checks that results is JSON of bounded size. A literal null
// is treated as absent.
func normalizeResults(raw json.RawMessage) (json.RawMessage, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil, nil
	}
	if len(trimmed) > maxResultsBytes {
		return nil, validation("results", "must be at most %d bytes", maxResultsBytes)
	}
	if !json.Valid([]byte(trimmed)) {
		return nil, validation("results", "must be valid JSON")
	}
	return json.RawMessage(trimmed), nil
}

// errNotStale aborts an expiry whose project moved on since it was listed.
var errNotStale = errors.New("project is not stale")

// Expire fails a project that has been processing without any update for
// longer than the processing timeout. It reports whether the project was
// expired; projects that changed or disappeared in the meantime are skipped.
func (s *Service) Expire(ctx context.Context, id uuid.UUID) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "project.Expire",
		trace.WithAttributes(attribute.String("project.id", id.String())))
	defer span.End()

	if s.cfg.ProcessingTimeout <= 0 {
		return false, nil
	}
	cutoff := s.now().Add(-s.cfg.ProcessingTimeout)
	detail := fmt.Sprintf("analysis timed out after %s", s.cfg.ProcessingTimeout)

	p, err := s.store.TransitionProject(ctx, id, func(p *models.Project) error {
		if p.Status != models.ProjectStatusProcessing || !p.UpdatedAt.Before(cutoff) {
			return errNotStale
		}
		next, err := lifecycle.Apply(p.Status, lifecycle.TimeoutEvent())
		if err != nil {
			return err
		}
		p.Settle(next, nil, detail)
		return nil
	})
	if errors.Is(err, errNotStale) || errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return false, fmt.Errorf("expiring project %s: %w", id, err)
	}

	s.invalidateShare(ctx, p)
	slog.Warn("project expired", "project_id", id, "timeout", s.cfg.ProcessingTimeout)
	return true, nil
}

// EnsureShareToken returns the project's share token, minting it on first use.
// Concurrent callers always receive the same token.
func (s *Service) EnsureShareToken(ctx context.Context, id, ownerID uuid.UUID) (string, error) {
	p, err := s.store.GetProject(ctx, id)
	if err != nil {
		return "", mapStoreError(err)
	}
	if p.OwnerID != ownerID {
		return "", ErrForbidden
	}
	if p.ShareToken != nil {
		return *p.ShareToken, nil
	}

	candidate, err := newShareToken()
	if err != nil {
		return "", err
	}
	token, err := s.store.EnsureShareToken(ctx, id, candidate)
	if err != nil {
		return "", mapStoreError(err)
	}
	if token == candidate {
		slog.Info("share token issued", "project_id", id)
	}
	return token, nil
}

// ShareURL is the public link for a share token.
func (s *Service) ShareURL(token string) string {
	return s.cfg.PublicBaseURL + SharePath + token
}

// ResolveShare returns the read-only view of the project a token grants
// access to. There is no owner check; holding the token is the permission.
func (s *Service) ResolveShare(ctx context.Context, token string) (*models.ProjectView, error) {
	if token == "" {
		return nil, ErrNotFound
	}

	generation, cacheable := s.shareGeneration(ctx, token)
	key := cache.ShareViewKey(token, generation)
	if cacheable {
		if raw, found, err := s.cache.Get(ctx, key); err != nil {
			slog.Warn("share cache read failed", "error", err)
			cacheable = false
		} else if found {
			var view models.ProjectView
			uerr := json.Unmarshal(raw, &view)
			if uerr == nil {
				return &view, nil
			}
			slog.Warn("share cache entry corrupt, refetching", "error", uerr)
		}
	}

	p, err := s.store.GetProjectByShareToken(ctx, token)
	if err != nil {
		return nil, mapStoreError(err)
	}
	view := p.View()

	// A mutation that lands after the generation read moves the generation
	// on, so this fill is written under a key no later reader looks up.
	if cacheable && s.cfg.ShareCacheTTL > 0 {
		if raw, err := json.Marshal(view); err == nil {
			if err := s.cache.Set(ctx, key, raw, s.cfg.ShareCacheTTL); err != nil {
				slog.Warn("share cache write failed", "error", err)
			}
		}
	}
	return view, nil
}

// shareGeneration reads the cache generation of token. It reports false when
// the cache cannot be read, in which case the view is neither read from nor
// written to the cache.
func (s *Service) shareGeneration(ctx context.Context, token string) (string, bool) {
	if s.cfg.ShareCacheTTL <= 0 {
		return "", false
	}
	raw, _, err := s.cache.Get(ctx, cache.ShareGenerationKey(token))
	if err != nil {
		slog.Warn("share cache generation read failed", "error", err)
		return "", false
	}
	return string(raw), true
}

// invalidateShare starts a new cache generation for the project's token. The
// generation outlives every view cached under it by shareGenerationGrace, so an
// expired generation never resurrects a fill that raced an earlier mutation.
func (s *Service) invalidateShare(ctx context.Context, p *models.Project) {
	if p == nil || p.ShareToken == nil || s.cfg.ShareCacheTTL <= 0 {
		return
	}
	generation, err := randomString(generationBytes)
	if err != nil {
		slog.Warn("share cache invalidation failed", "project_id", p.ID, "error", err)
		return
	}
	key := cache.ShareGenerationKey(*p.ShareToken)
	if err := s.cache.Set(ctx, key, []byte(generation), s.cfg.ShareCacheTTL+shareGenerationGrace); err != nil {
		slog.Warn("share cache invalidation failed", "project_id", p.ID, "error", err)
	}
}

// mapStoreError translates store sentinels into service sentinels and leaves
// service errors returned from a transition untouched.
func mapStoreError(err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, ErrValidation), errors.Is(err, ErrNotFound), errors.Is(err, ErrForbidden),
		errors.Is(err, ErrUnauthorized), errors.Is(err, ErrConflict):
		return err
	default:
		return fmt.Errorf("project store: %w", err)
	}
}

func fieldError(err error) error {
	var fe *listing.FieldError
	if errors.As(err, &fe) {
		return &ValidationError{Field: fe.Field, Message: fe.Reason}
	}
	return &ValidationError{Message: err.Error()}
}
