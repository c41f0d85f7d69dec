package remind

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	"github.com/go-tick/remind/internal/metrics"
)

const jobKeyPrefix = "schedule:"

// JobKey is the queue key under which the single pending wake-up job of a
// schedule lives.
func JobKey(scheduleID string) string {
	return jobKeyPrefix + scheduleID
}

type ScheduleStore interface {
	// Load returns ErrScheduleNotFound when no schedule has the id.
	Load(ctx context.Context, id string) (*Schedule, error)
	Save(ctx context.Context, schedule *Schedule) error
	Delete(ctx context.Context, id string) error
}

// JobScheduler is the external queue. Replace must atomically supersede any
// pending job under key; Remove drops every job whose key matches pattern.
type JobScheduler interface {
	Replace(ctx context.Context, key string, runAt time.Time, payload JobPayload) error
	Remove(ctx context.Context, keyPattern string) error
}

type Notifier interface {
	Notify(ctx context.Context, schedule *Schedule) error
}

type NotifierFunc func(ctx context.Context, schedule *Schedule) error

func (f NotifierFunc) Notify(ctx context.Context, schedule *Schedule) error {
	return f(ctx, schedule)
}

// Coordinator keeps one pending wake-up job per active schedule. Every
// mutation goes through it so the job always reflects the stored schedule.
type Coordinator struct {
	cfg   *Config
	store ScheduleStore
	queue JobScheduler
}

func NewCoordinator(store ScheduleStore, queue JobScheduler, options ...Option[Config]) *Coordinator {
	return &Coordinator{
		cfg:   DefaultConfig(options...),
		store: store,
		queue: queue,
	}
}

// Create stores a new active schedule and arms its first wake-up.
func (c *Coordinator) Create(ctx context.Context, schedule *Schedule, timezone string) (*Schedule, error) {
	if err := schedule.Validate(); err != nil {
		return nil, err
	}

	if _, err := LoadLocation(timezone); err != nil {
		return nil, err
	}

	created := *schedule
	if created.ID == "" {
		created.ID = c.cfg.newID()
	}
	created.Status = StatusActive

	now := c.cfg.clock().UTC()
	created.CreatedAt = now
	created.UpdatedAt = now

	if err := c.store.Save(ctx, &created); err != nil {
		return nil, errors.Wrapf(err, "saving schedule %s", created.ID)
	}

	if err := c.Sync(ctx, created.ID, timezone); err != nil {
		return &created, err
	}

	return c.reload(ctx, &created)
}

// Update applies patch and re-arms the schedule.
func (c *Coordinator) Update(ctx context.Context, id string, patch Patch, timezone string) (*Schedule, error) {
	schedule, err := c.store.Load(ctx, id)
	if err != nil {
		return nil, errors.Wrapf(err, "loading schedule %s", id)
	}

	if err := Apply(schedule, patch); err != nil {
		return nil, err
	}
	schedule.UpdatedAt = c.cfg.clock().UTC()

	if err := c.store.Save(ctx, schedule); err != nil {
		return nil, errors.Wrapf(err, "saving schedule %s", id)
	}

	if err := c.Sync(ctx, id, timezone); err != nil {
		return schedule, err
	}

	return c.reload(ctx, schedule)
}

// reload picks up a status written by Sync, falling back to the given copy.
func (c *Coordinator) reload(ctx context.Context, fallback *Schedule) (*Schedule, error) {
	schedule, err := c.store.Load(ctx, fallback.ID)
	if err != nil {
		return fallback, nil
	}

	return schedule, nil
}

// Sync recomputes the next occurrence of a schedule and replaces its pending
// job, or ends the schedule when nothing is left to fire.
func (c *Coordinator) Sync(ctx context.Context, id string, timezone string) error {
	return c.sync(ctx, id, timezone, c.cfg.clock())
}

// sync always starts from the stored schedule, so a status change or patch
// that landed in the meantime is what gets armed.
func (c *Coordinator) sync(ctx context.Context, id string, timezone string, now time.Time) error {
	logger := c.cfg.logger.With().Str("schedule_id", id).Str("timezone", timezone).Logger()

	schedule, err := c.store.Load(ctx, id)
	if err != nil {
		if errors.Is(err, ErrScheduleNotFound) {
			metrics.RecordSync("not_found")
		} else {
			metrics.RecordSync("error")
		}
		return errors.Wrapf(err, "loading schedule %s", id)
	}

	key := JobKey(id)

	if !schedule.IsActive() {
		err := c.queue.Remove(ctx, key)
		metrics.RecordJobOperation("remove", err)
		if err != nil {
			metrics.RecordSync("error")
			return errors.Wrapf(err, "removing jobs for inactive schedule %s", id)
		}

		metrics.RecordSync("inactive")
		logger.Debug().Str("status", string(schedule.Status)).Msg("Removed jobs for inactive schedule")
		return nil
	}

	loc, err := LoadLocation(timezone)
	if err != nil {
		metrics.RecordSync("error")
		return err
	}

	return c.arm(ctx, schedule, loc, timezone, now, logger)
}

func (c *Coordinator) arm(ctx context.Context, schedule *Schedule, loc *time.Location, timezone string, now time.Time, logger zerolog.Logger) error {
	started := time.Now()
	res := c.cfg.resolver.Resolve(now, schedule, loc)
	metrics.RecordResolve(string(res.Reason), time.Since(started))

	if !res.Found {
		if res.Reason == ReasonScanExhausted {
			logger.Warn().
				Int("max_scan_days", c.cfg.resolver.MaxScanDays).
				Msg("Recurrence scan exhausted without a match")
		}

		if err := c.end(ctx, schedule, res.Reason); err != nil {
			metrics.RecordSync("error")
			return err
		}

		metrics.RecordSync("ended")
		return nil
	}

	payload := JobPayload{
		ScheduleID: schedule.ID,
		Timezone:   timezone,
		RunAt:      res.At.UTC(),
	}

	err := c.queue.Replace(ctx, JobKey(schedule.ID), res.At, payload)
	metrics.RecordJobOperation("replace", err)
	if err != nil {
		metrics.RecordSync("error")
		return errors.Wrapf(err, "replacing job for schedule %s", schedule.ID)
	}

	metrics.RecordSync("armed")
	logger.Info().
		Time("next_run_at", res.At.UTC()).
		Msg("Scheduled reminder")

	return nil
}

// Cancel marks a schedule canceled and removes its pending job.
func (c *Coordinator) Cancel(ctx context.Context, id string) error {
	return c.terminate(ctx, id, StatusCanceled, "canceled")
}

// End marks a schedule ended and removes its pending job.
func (c *Coordinator) End(ctx context.Context, id string) error {
	return c.terminate(ctx, id, StatusEnded, "ended")
}

func (c *Coordinator) terminate(ctx context.Context, id string, to Status, reason string) error {
	schedule, err := c.store.Load(ctx, id)
	if err != nil {
		return errors.Wrapf(err, "loading schedule %s", id)
	}

	return c.transition(ctx, schedule, to, reason)
}

func (c *Coordinator) end(ctx context.Context, schedule *Schedule, reason Reason) error {
	return c.transition(ctx, schedule, StatusEnded, string(reason))
}

// transition writes the new status before touching the queue. A failed job
// removal is reported to listeners but does not undo the status: a stale job
// firing later finds a non-active schedule and does nothing.
func (c *Coordinator) transition(ctx context.Context, schedule *Schedule, to Status, reason string) error {
	changed, err := Transition(schedule, to)
	if err != nil {
		return err
	}

	if changed {
		schedule.UpdatedAt = c.cfg.clock().UTC()
		if err := c.store.Save(ctx, schedule); err != nil {
			return errors.Wrapf(err, "saving %s status for schedule %s", to, schedule.ID)
		}

		metrics.RecordTransition(string(to))
		c.cfg.logger.Info().
			Str("schedule_id", schedule.ID).
			Str("status", string(to)).
			Str("reason", reason).
			Msg("Schedule status changed")
	}

	c.removeJobs(ctx, schedule.ID)
	return nil
}

// Delete removes the pending job and then the schedule itself.
func (c *Coordinator) Delete(ctx context.Context, id string) error {
	c.removeJobs(ctx, id)

	if err := c.store.Delete(ctx, id); err != nil {
		return errors.Wrapf(err, "deleting schedule %s", id)
	}

	c.cfg.logger.Info().Str("schedule_id", id).Msg("Schedule deleted")
	return nil
}

func (c *Coordinator) removeJobs(ctx context.Context, id string) {
	err := c.queue.Remove(ctx, JobKey(id))
	metrics.RecordJobOperation("remove", err)
	if err != nil {
		c.cfg.logger.Error().
			Err(err).
			Str("schedule_id", id).
			Msg("Failed to remove pending jobs")
		c.onError(errors.Wrapf(err, "removing jobs for schedule %s", id))
	}
}

// Fire handles a wake-up delivered by the queue. Wake-ups for missing or
// non-active schedules are dropped silently. A notifier error is returned so
// the queue retries the job.
func (c *Coordinator) Fire(ctx context.Context, payload JobPayload) error {
	logger := c.cfg.logger.With().
		Str("schedule_id", payload.ScheduleID).
		Str("timezone", payload.Timezone).
		Logger()

	schedule, err := c.store.Load(ctx, payload.ScheduleID)
	if err != nil {
		if errors.Is(err, ErrScheduleNotFound) {
			metrics.RecordFire("not_found")
			logger.Warn().Msg("Schedule not found, dropping wake-up")
			return nil
		}

		metrics.RecordFire("error")
		return errors.Wrapf(err, "loading schedule %s", payload.ScheduleID)
	}

	if !schedule.IsActive() {
		metrics.RecordFire("skipped")
		logger.Info().Str("status", string(schedule.Status)).Msg("Schedule is not active, skipping")
		return nil
	}

	if _, err := LoadLocation(payload.Timezone); err != nil {
		metrics.RecordFire("error")
		return err
	}

	if c.cfg.notifier != nil {
		if err := c.cfg.notifier.Notify(ctx, schedule); err != nil {
			metrics.RecordFire("error")
			return errors.Wrapf(err, "notifying schedule %s", schedule.ID)
		}
	}

	metrics.RecordFire("delivered")
	logger.Info().Msg("Reminder delivered")

	// A wake-up that arrives early must not re-arm the slot it was meant for.
	now := c.cfg.clock()
	if payload.RunAt.After(now) {
		now = payload.RunAt
	}

	// The notifier may have taken a while; re-arm from what is stored now.
	err = c.sync(ctx, schedule.ID, payload.Timezone, now)
	if errors.Is(err, ErrScheduleNotFound) {
		logger.Info().Msg("Schedule deleted during delivery")
		return nil
	}

	return err
}

// HandleJob decodes a payload as stored by the queue and fires it. It is the
// entry point for workers that receive raw job bodies.
func (c *Coordinator) HandleJob(ctx context.Context, raw []byte) error {
	payload, err := UnmarshalPayload(raw)
	if err != nil {
		metrics.RecordFire("error")
		return err
	}

	return c.Fire(ctx, payload)
}

func (c *Coordinator) onError(err error) {
	for _, listener := range c.cfg.listeners {
		listener.OnError(err)
	}
}
