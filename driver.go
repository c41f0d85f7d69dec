package remind

import (
	"context"
	"slices"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/go-tick/remind/internal/repository"

	_ "github.com/lib/pq"
)

type repositoryFactoryWoTx func(context.Context, string) (repository.Repository, func() error, error)

// PqDriver stores schedules in Postgres and arms wake-ups through a
// graphile-worker queue in the same database. It satisfies ScheduleStore,
// ScheduleLister, TimezoneResolver and JobScheduler.
type PqDriver struct {
	cfg               *PqConfig
	repositoryFactory repositoryFactoryWoTx
	listeners         []ErrorListener
	close             func() error
}

func (d *PqDriver) Load(ctx context.Context, id string) (*Schedule, error) {
	repo, close, err := d.repositoryFactory(ctx, d.cfg.conn)
	if err != nil {
		return nil, err
	}
	defer close()

	row, err := repo.LoadSchedule(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, errors.Wrapf(ErrScheduleNotFound, "id %s", id)
	}
	if err != nil {
		return nil, err
	}

	return deserializeSchedule(row)
}

func (d *PqDriver) Save(ctx context.Context, schedule *Schedule) error {
	repo, close, err := d.repositoryFactory(ctx, d.cfg.conn)
	if err != nil {
		return err
	}
	defer close()

	row := serializeSchedule(schedule)
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = row.CreatedAt
	}

	return repo.SaveSchedule(ctx, row)
}

func (d *PqDriver) Delete(ctx context.Context, id string) error {
	repo, close, err := d.repositoryFactory(ctx, d.cfg.conn)
	if err != nil {
		return err
	}
	defer close()

	return repo.DeleteSchedule(ctx, id)
}

func (d *PqDriver) ListActive(ctx context.Context, limit, offset int) ([]*Schedule, error) {
	repo, close, err := d.repositoryFactory(ctx, d.cfg.conn)
	if err != nil {
		return nil, err
	}
	defer close()

	rows, err := repo.ListActiveSchedules(ctx, limit, offset)
	if err != nil {
		return nil, err
	}

	schedules := make([]*Schedule, 0, len(rows))
	for _, row := range rows {
		sch, err := deserializeSchedule(row)
		if err != nil {
			// One corrupt row must not hide the rest of the page.
			d.onError(errors.Wrapf(err, "decoding schedule %s", row.ID))
			continue
		}

		schedules = append(schedules, sch)
	}

	return schedules, nil
}

func (d *PqDriver) Timezone(ctx context.Context, ownerID string) (string, error) {
	if d.cfg.timezoneQuery == "" {
		return "", errors.New("no timezone query configured")
	}

	repo, close, err := d.repositoryFactory(ctx, d.cfg.conn)
	if err != nil {
		return "", err
	}
	defer close()

	return repo.OwnerTimezone(ctx, d.cfg.timezoneQuery, ownerID)
}

func (d *PqDriver) Replace(ctx context.Context, key string, runAt time.Time, payload JobPayload) error {
	repo, close, err := d.repositoryFactory(ctx, d.cfg.conn)
	if err != nil {
		return err
	}
	defer close()

	data, err := MarshalPayload(payload)
	if err != nil {
		return err
	}

	return repo.AddJob(ctx, repository.JobSpec{
		TaskIdentifier: d.cfg.taskIdentifier,
		Payload:        data,
		QueueName:      d.cfg.queueName,
		RunAt:          runAt,
		MaxAttempts:    d.cfg.maxAttempts,
		Key:            key,
	})
}

func (d *PqDriver) Remove(ctx context.Context, keyPattern string) error {
	repo, close, err := d.repositoryFactory(ctx, d.cfg.conn)
	if err != nil {
		return err
	}
	defer close()

	_, err = repo.RemoveJobs(ctx, keyPattern)
	return err
}

// PendingRunAt reports the run time of the pending job for a schedule.
func (d *PqDriver) PendingRunAt(ctx context.Context, scheduleID string) (time.Time, bool, error) {
	repo, close, err := d.repositoryFactory(ctx, d.cfg.conn)
	if err != nil {
		return time.Time{}, false, err
	}
	defer close()

	jobs, err := repo.PendingJobs(ctx, JobKey(scheduleID))
	if err != nil || len(jobs) == 0 {
		return time.Time{}, false, err
	}

	return jobs[0].RunAt, true, nil
}

// Migrate creates the schedules table inside a single transaction.
func (d *PqDriver) Migrate(ctx context.Context) error {
	repo, commit, close, err := repository.NewRepositoryWithTx(ctx, d.cfg.conn, nil)
	if err != nil {
		return err
	}
	defer close()

	if err := repo.Migrate(ctx); err != nil {
		return errors.Wrap(err, "applying schema")
	}

	return commit()
}

func (d *PqDriver) onError(err error) {
	for _, listener := range d.listeners {
		listener.OnError(err)
	}
}

var (
	_ ScheduleStore    = &PqDriver{}
	_ ScheduleLister   = &PqDriver{}
	_ TimezoneResolver = &PqDriver{}
	_ JobScheduler     = &PqDriver{}
)

// NewPqDriver opens a connection pool shared by every call of the driver.
func NewPqDriver(ctx context.Context, cfg *PqConfig) (*PqDriver, error) {
	repo, close, err := repository.NewRepositoryWoTx(ctx, cfg.conn)
	if err != nil {
		return nil, errors.Wrap(err, "connecting to postgres")
	}

	d := newDriver(cfg, func(context.Context, string) (repository.Repository, func() error, error) {
		return repo, noopClose, nil
	})
	d.close = close

	return d, nil
}

func (d *PqDriver) Close() error {
	if d.close == nil {
		return nil
	}

	return d.close()
}

func noopClose() error {
	return nil
}

func newDriver(cfg *PqConfig, factory repositoryFactoryWoTx) *PqDriver {
	return &PqDriver{
		cfg:               cfg,
		repositoryFactory: factory,
		listeners:         slices.Clone(cfg.errorListeners),
	}
}
