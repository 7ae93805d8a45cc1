// Package reaper fails analysis jobs whose engine never called back.
package reaper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Lister finds projects that have been processing since before cutoff.
type Lister interface {
	ListStaleProcessing(ctx context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error)
}

// Expirer fails one stale project. It re-checks staleness under the row lock
// and reports false when the project moved on in the meantime.
type Expirer interface {
	Expire(ctx context.Context, id uuid.UUID) (bool, error)
}

type Config struct {
	ProcessingTimeout time.Duration
	Interval          time.Duration
	BatchSize         int
}

// Reaper periodically sweeps for stuck processing projects.
type Reaper struct {
	lister  Lister
	expirer Expirer
	cfg     Config
	now     func() time.Time
	tracer  trace.Tracer
}

func New(lister Lister, expirer Expirer, cfg Config) *Reaper {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	return &Reaper{
		lister:  lister,
		expirer: expirer,
		cfg:     cfg,
		now:     time.Now,
		tracer:  otel.Tracer("github.com/kiranshivaraju/listingscope/internal/reaper"),
	}
}

// SetClock replaces the time source used to compute the staleness cutoff.
func (r *Reaper) SetClock(now func() time.Time) {
	r.now = now
}

// Enabled reports whether a processing timeout is configured.
func (r *Reaper) Enabled() bool {
	return r.cfg.ProcessingTimeout > 0 && r.cfg.Interval > 0
}

// Run sweeps once immediately and then every interval until ctx is done.
// It returns nil on cancellation so it can run under an errgroup next to the
// HTTP server.
func (r *Reaper) Run(ctx context.Context) error {
	if !r.Enabled() {
		slog.Info("reaper disabled")
		return nil
	}

	slog.Info("reaper started",
		"timeout", r.cfg.ProcessingTimeout, "interval", r.cfg.Interval, "batch", r.cfg.BatchSize)

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		if _, err := r.Sweep(ctx); err != nil && ctx.Err() == nil {
			slog.Error("reaper sweep failed", "error", err)
		}

		select {
		case <-ctx.Done():
			slog.Info("reaper stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// Sweep expires up to one batch of stale projects and returns how many it
// expired. A failure on one project does not stop the others.
func (r *Reaper) Sweep(ctx context.Context) (int, error) {
	if r.cfg.ProcessingTimeout <= 0 {
		return 0, nil
	}

	cutoff := r.now().Add(-r.cfg.ProcessingTimeout)
	ctx, span := r.tracer.Start(ctx, "reaper.Sweep",
		trace.WithAttributes(attribute.String("cutoff", cutoff.UTC().Format(time.RFC3339))))
	defer span.End()

	ids, err := r.lister.ListStaleProcessing(ctx, cutoff, r.cfg.BatchSize)
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("listing stale projects: %w", err)
	}

	var (
		expired int
		errs    []error
	)
	for _, id := range ids {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		ok, err := r.expirer.Expire(ctx, id)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ok {
			expired++
		}
	}

	span.SetAttributes(attribute.Int("candidates", len(ids)), attribute.Int("expired", expired))
	if expired > 0 {
		slog.Info("reaper sweep", "candidates", len(ids), "expired", expired)
	}
	return expired, errors.Join(errs...)
}
