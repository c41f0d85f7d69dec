package remind

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/go-tick/remind/internal/metrics"
)

// ScheduleLister pages through active schedules.
type ScheduleLister interface {
	ListActive(ctx context.Context, limit, offset int) ([]*Schedule, error)
}

// TimezoneResolver supplies the timezone of a schedule owner.
type TimezoneResolver interface {
	Timezone(ctx context.Context, ownerID string) (string, error)
}

type ReconcileOptions struct {
	PageSize      int
	Concurrency   int
	RatePerSecond float64
}

func (o ReconcileOptions) withDefaults() ReconcileOptions {
	if o.PageSize <= 0 {
		o.PageSize = 100
	}

	if o.Concurrency <= 0 {
		o.Concurrency = 4
	}

	return o
}

type ReconcileReport struct {
	Visited int
	Failed  map[string]error
}

// Reconcile re-syncs every active schedule, for example after the queue was
// restored from an older snapshot. Per-schedule failures are collected in the
// report; only listing failures and context cancellation abort the run.
func (c *Coordinator) Reconcile(ctx context.Context, lister ScheduleLister, timezones TimezoneResolver, opts ReconcileOptions) (ReconcileReport, error) {
	opts = opts.withDefaults()
	report := ReconcileReport{Failed: make(map[string]error)}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), 1)
	}

	var mu sync.Mutex
	record := func(id string, err error) {
		metrics.RecordReconcile(err)

		mu.Lock()
		defer mu.Unlock()

		report.Visited++
		if err != nil {
			report.Failed[id] = err
		}
	}

	// Syncing can end schedules, which shifts later pages of the active set,
	// so the whole set is collected before any sync runs.
	var schedules []*Schedule
	for offset := 0; ; offset += opts.PageSize {
		page, err := lister.ListActive(ctx, opts.PageSize, offset)
		if err != nil {
			return report, errors.Wrap(err, "listing active schedules")
		}

		schedules = append(schedules, page...)
		if len(page) < opts.PageSize {
			break
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)

	for _, schedule := range schedules {
		if err := limiter.Wait(gctx); err != nil {
			break
		}

		g.Go(func() error {
			timezone, err := timezones.Timezone(gctx, schedule.OwnerID)
			if err == nil {
				err = c.Sync(gctx, schedule.ID, timezone)
			}

			if err != nil {
				c.cfg.logger.Error().
					Err(err).
					Str("schedule_id", schedule.ID).
					Msg("Failed to reconcile schedule")
				c.onError(err)
			}

			record(schedule.ID, err)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return report, err
	}

	if err := ctx.Err(); err != nil {
		return report, err
	}

	c.cfg.logger.Info().
		Int("visited", report.Visited).
		Int("failed", len(report.Failed)).
		Msg("Reconcile finished")

	return report, nil
}
