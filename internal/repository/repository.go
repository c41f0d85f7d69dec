package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/go-tick/remind/internal/model"
)

var (
	ErrNotFound = fmt.Errorf("not found")
)

//go:embed schema.sql
var schema string

type Repository interface {
	Migrate(ctx context.Context) error
	LoadSchedule(ctx context.Context, id string) (model.Schedule, error)
	SaveSchedule(ctx context.Context, sch model.Schedule) error
	DeleteSchedule(ctx context.Context, id string) error
	ListActiveSchedules(ctx context.Context, limit, offset int) ([]model.Schedule, error)
	OwnerTimezone(ctx context.Context, query, ownerID string) (string, error)
	AddJob(ctx context.Context, job JobSpec) error
	RemoveJobs(ctx context.Context, keyPattern string) (int, error)
	PendingJobs(ctx context.Context, keyPattern string) ([]model.Job, error)
}

// JobSpec is a graphile_worker.add_job call with job_key_mode 'replace'.
type JobSpec struct {
	TaskIdentifier string
	Payload        []byte
	QueueName      string
	RunAt          time.Time
	MaxAttempts    int
	Key            string
}

type Connection interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

type repository struct {
	db Connection
}

func (r *repository) Migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, schema)
	return err
}

const scheduleColumns = `id, owner_id, kind, status, message, emoji, run_at_dates, run_at_times,
	frequency, interval_step, times_of_day, days_of_week, days_of_month, months_of_year,
	start_at_date, end_at_date, created_at, updated_at`

func (r *repository) LoadSchedule(ctx context.Context, id string) (model.Schedule, error) {
	var sch model.Schedule
	err := r.db.GetContext(ctx, &sch, `SELECT `+scheduleColumns+` FROM schedules WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Schedule{}, ErrNotFound
	}

	return sch, err
}

func (r *repository) SaveSchedule(ctx context.Context, sch model.Schedule) error {
	_, err := r.db.ExecContext(
		ctx,
		`INSERT INTO schedules (`+scheduleColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			message = EXCLUDED.message,
			emoji = EXCLUDED.emoji,
			run_at_dates = EXCLUDED.run_at_dates,
			run_at_times = EXCLUDED.run_at_times,
			frequency = EXCLUDED.frequency,
			interval_step = EXCLUDED.interval_step,
			times_of_day = EXCLUDED.times_of_day,
			days_of_week = EXCLUDED.days_of_week,
			days_of_month = EXCLUDED.days_of_month,
			months_of_year = EXCLUDED.months_of_year,
			start_at_date = EXCLUDED.start_at_date,
			end_at_date = EXCLUDED.end_at_date,
			updated_at = EXCLUDED.updated_at`,
		sch.ID,
		sch.OwnerID,
		sch.Kind,
		sch.Status,
		sch.Message,
		sch.Emoji,
		sch.RunAtDates,
		sch.RunAtTimes,
		sch.Frequency,
		sch.IntervalStep,
		sch.TimesOfDay,
		sch.DaysOfWeek,
		sch.DaysOfMonth,
		sch.MonthsOfYear,
		sch.StartAtDate,
		sch.EndAtDate,
		sch.CreatedAt,
		sch.UpdatedAt,
	)

	return err
}

func (r *repository) DeleteSchedule(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM schedules WHERE id = $1`, id)
	return err
}

func (r *repository) ListActiveSchedules(ctx context.Context, limit, offset int) ([]model.Schedule, error) {
	var schedules []model.Schedule
	err := r.db.SelectContext(
		ctx,
		&schedules,
		`SELECT `+scheduleColumns+` FROM schedules WHERE status = 'active' ORDER BY created_at, id LIMIT $1 OFFSET $2`,
		limit,
		offset,
	)

	return schedules, err
}

// OwnerTimezone runs a caller-supplied single-column query keyed by owner id.
// Owners live outside this module's schema.
func (r *repository) OwnerTimezone(ctx context.Context, query, ownerID string) (string, error) {
	var tz sql.NullString
	err := r.db.GetContext(ctx, &tz, query, ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}

	return tz.String, err
}

func (r *repository) AddJob(ctx context.Context, job JobSpec) error {
	var queueName, maxAttempts any
	if job.QueueName != "" {
		queueName = job.QueueName
	}
	if job.MaxAttempts > 0 {
		maxAttempts = job.MaxAttempts
	}

	_, err := r.db.ExecContext(
		ctx,
		`SELECT graphile_worker.add_job(
			identifier => $1::text,
			payload => $2::json,
			queue_name => $3::text,
			run_at => $4::timestamptz,
			max_attempts => $5::int,
			job_key => $6::text,
			job_key_mode => 'replace'
		)`,
		job.TaskIdentifier,
		string(job.Payload),
		queueName,
		job.RunAt,
		maxAttempts,
		job.Key,
	)

	return err
}

// RemoveJobs removes every job whose key matches the glob-style pattern.
// remove_job also takes care of jobs currently locked by a worker.
func (r *repository) RemoveJobs(ctx context.Context, keyPattern string) (int, error) {
	var removed int
	err := r.db.GetContext(
		ctx,
		&removed,
		`SELECT count(graphile_worker.remove_job(key)) FROM graphile_worker.jobs WHERE key LIKE $1 ESCAPE '\'`,
		LikePattern(keyPattern),
	)

	return removed, err
}

func (r *repository) PendingJobs(ctx context.Context, keyPattern string) ([]model.Job, error) {
	var jobs []model.Job
	err := r.db.SelectContext(
		ctx,
		&jobs,
		`SELECT id, key, task_identifier, run_at, attempts, max_attempts
		FROM graphile_worker.jobs WHERE key LIKE $1 ESCAPE '\' ORDER BY run_at`,
		LikePattern(keyPattern),
	)

	return jobs, err
}

// LikePattern converts a glob (* and ?) into a LIKE pattern, escaping the
// LIKE metacharacters that appear literally.
func LikePattern(glob string) string {
	var b strings.Builder
	for _, r := range glob {
		switch r {
		case '%', '_', '\\':
			b.WriteRune('\\')
			b.WriteRune(r)
		case '*':
			b.WriteRune('%')
		case '?':
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}

	return b.String()
}

func New(db Connection) Repository {
	return &repository{db}
}

func NewRepositoryWoTx(ctx context.Context, conn string) (Repository, func() error, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", conn)
	if err != nil {
		return nil, nil, err
	}

	return &repository{db}, db.Close, nil
}

func NewRepositoryWithTx(ctx context.Context, conn string, opts *sql.TxOptions) (Repository, func() error, func() error, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", conn)
	if err != nil {
		return nil, nil, nil, err
	}

	tx, err := db.BeginTxx(ctx, opts)
	if err != nil {
		err1 := db.Close()
		return nil, nil, nil, errors.Join(err, err1)
	}

	commit := func() error {
		return tx.Commit()
	}

	close := func() error {
		err1 := tx.Rollback()
		if errors.Is(err1, sql.ErrTxDone) {
			err1 = nil
		}
		err2 := db.Close()

		return errors.Join(err1, err2)
	}

	return &repository{tx}, commit, close, nil
}
