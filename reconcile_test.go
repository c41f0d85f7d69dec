package remind_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-tick/remind"
)

func seed(t *testing.T, f *fixture, n int, mutate func(i int, sch *remind.Schedule)) []string {
	t.Helper()

	ids := make([]string, 0, n)
	for i := range n {
		sch := daily(fmt.Sprintf("s%d", i), "09:00")
		sch.OwnerID = fmt.Sprintf("u%d", i)
		sch.CreatedAt = time.Date(2024, 1, 1, 0, i, 0, 0, time.UTC)
		if mutate != nil {
			mutate(i, sch)
		}

		f.put(t, sch)
		ids = append(ids, sch.ID)
	}

	return ids
}

func TestReconcileArmsEveryActiveSchedule(t *testing.T) {
	f := newFixture(t, time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	ids := seed(t, f, 7, func(i int, sch *remind.Schedule) {
		if i == 3 {
			sch.Status = remind.StatusCanceled
		}
	})

	report, err := f.c.Reconcile(context.Background(), f.store, f.store, remind.ReconcileOptions{PageSize: 2, Concurrency: 3})
	require.NoError(t, err)

	assert.Equal(t, 6, report.Visited)
	assert.Empty(t, report.Failed)

	for i, id := range ids {
		_, ok := f.queue.job(remind.JobKey(id))
		assert.Equal(t, i != 3, ok, id)
	}
}

func TestReconcileCollectsFailures(t *testing.T) {
	f := newFixture(t, time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	seed(t, f, 4, nil)
	f.store.SetTimezone("u1", "Mars/Olympus_Mons")

	report, err := f.c.Reconcile(context.Background(), f.store, f.store, remind.ReconcileOptions{})
	require.NoError(t, err)

	assert.Equal(t, 4, report.Visited)
	require.Len(t, report.Failed, 1)
	assert.True(t, errors.Is(report.Failed["s1"], remind.ErrUnknownTimezone))
	assert.Len(t, f.errors, 1)

	for _, id := range []string{"s0", "s2", "s3"} {
		_, ok := f.queue.job(remind.JobKey(id))
		assert.True(t, ok, id)
	}
}

func TestReconcileEndingSchedulesDoesNotSkipPages(t *testing.T) {
	f := newFixture(t, time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	ids := seed(t, f, 5, func(i int, sch *remind.Schedule) {
		if i < 3 {
			sch.Recurrence.EndAtDate = ptr(remind.MustParseDate("2024-05-01"))
		}
	})

	report, err := f.c.Reconcile(context.Background(), f.store, f.store, remind.ReconcileOptions{PageSize: 2, Concurrency: 1})
	require.NoError(t, err)
	assert.Equal(t, 5, report.Visited)

	for i, id := range ids {
		if i < 3 {
			assert.Equal(t, remind.StatusEnded, f.status(t, id))
			continue
		}

		_, ok := f.queue.job(remind.JobKey(id))
		assert.True(t, ok, id)
	}
}

type failingLister struct{}

func (failingLister) ListActive(context.Context, int, int) ([]*remind.Schedule, error) {
	return nil, errors.New("connection reset")
}

func TestReconcileListingFailureAborts(t *testing.T) {
	f := newFixture(t, time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))

	_, err := f.c.Reconcile(context.Background(), failingLister{}, f.store, remind.ReconcileOptions{})
	assert.ErrorContains(t, err, "connection reset")
	assert.Empty(t, f.queue.replaces)
}

func TestReconcileStopsOnCanceledContext(t *testing.T) {
	f := newFixture(t, time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	seed(t, f, 3, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := f.c.Reconcile(ctx, f.store, f.store, remind.ReconcileOptions{RatePerSecond: 10})
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Zero(t, report.Visited)
	assert.Empty(t, f.queue.replaces)
}
