// Package jobs runs the periodic housekeeping tasks of the server.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/healthbridge/healthbridge/internal/domain/pharmacy"
)

const (
	ReleaseStaleSchedule = "*/15 * * * *"
	ExpiredStockSchedule = "5 0 * * *"
	jobTimeout           = 2 * time.Minute
)

// StaleReleaser cancels unpaid bookings that were never confirmed.
type StaleReleaser interface {
	ReleaseStale(ctx context.Context, now time.Time, olderThan time.Duration) (int, error)
}

// ExpiredStock lists stock records whose expiry date has passed.
type ExpiredStock interface {
	Expired(ctx context.Context, now time.Time) ([]*pharmacy.Stock, error)
}

type Runner struct {
	cron       *cron.Cron
	bookings   StaleReleaser
	stock      ExpiredStock
	staleAfter time.Duration
	logger     zerolog.Logger
	now        func() time.Time
}

func New(bookings StaleReleaser, stock ExpiredStock, staleAfter time.Duration, logger zerolog.Logger) *Runner {
	return &Runner{
		cron:       cron.New(),
		bookings:   bookings,
		stock:      stock,
		staleAfter: staleAfter,
		logger:     logger.With().Str("component", "jobs").Logger(),
		now:        time.Now,
	}
}

// Start registers the jobs and starts the scheduler in the background.
func (r *Runner) Start() error {
	if _, err := r.cron.AddFunc(ReleaseStaleSchedule, r.run("release-stale-bookings", r.ReleaseStale)); err != nil {
		return fmt.Errorf("schedule release-stale-bookings: %w", err)
	}
	if _, err := r.cron.AddFunc(ExpiredStockSchedule, r.run("expired-stock-report", r.ReportExpiredStock)); err != nil {
		return fmt.Errorf("schedule expired-stock-report: %w", err)
	}
	r.cron.Start()
	r.logger.Info().Int("jobs", len(r.cron.Entries())).Msg("scheduler started")
	return nil
}

// Stop halts the scheduler and waits for running jobs until ctx is done.
func (r *Runner) Stop(ctx context.Context) {
	select {
	case <-r.cron.Stop().Done():
	case <-ctx.Done():
		r.logger.Warn().Msg("jobs still running at shutdown")
	}
}

func (r *Runner) run(name string, job func(context.Context) error) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		start := time.Now()
		if err := job(ctx); err != nil {
			r.logger.Error().Err(err).Str("job", name).Msg("job failed")
			return
		}
		r.logger.Debug().Str("job", name).Dur("took", time.Since(start)).Msg("job finished")
	}
}

// ReleaseStale frees the slots of bookings left pending and unpaid for
// longer than the configured age.
func (r *Runner) ReleaseStale(ctx context.Context) error {
	n, err := r.bookings.ReleaseStale(ctx, r.now(), r.staleAfter)
	if err != nil {
		return fmt.Errorf("release stale bookings: %w", err)
	}
	if n > 0 {
		r.logger.Info().Int("released", n).Msg("released stale bookings")
	}
	return nil
}

// ReportExpiredStock logs the pharmacy stock records that have expired.
func (r *Runner) ReportExpiredStock(ctx context.Context) error {
	items, err := r.stock.Expired(ctx, r.now())
	if err != nil {
		return fmt.Errorf("list expired stock: %w", err)
	}
	ids := make([]string, 0, len(items))
	for _, s := range items {
		ids = append(ids, s.ID.Hex())
	}
	r.logger.Info().Int("count", len(items)).Strs("ids", ids).Msg("expired pharmacy stock")
	return nil
}
