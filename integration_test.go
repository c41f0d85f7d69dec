package remind

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-tick/remind/internal/repository"
)

// postgresConn returns the connection string of a disposable database, e.g.
// host=localhost port=5432 user=postgres password=postgres dbname=remind sslmode=disable
func postgresConn(t *testing.T) string {
	t.Helper()

	conn := os.Getenv("REMIND_TEST_POSTGRES")
	if conn == "" {
		t.Skip("REMIND_TEST_POSTGRES is not set")
	}

	return conn
}

func TestRepositoryScheduleRoundTripShouldDoIt(t *testing.T) {
	conn := postgresConn(t)
	ctx := context.Background()

	cfg := DefaultPqConfig(WithConn(conn))
	driver := newDriver(cfg, repository.NewRepositoryWoTx)
	require.NoError(t, driver.Migrate(ctx))

	start := MustParseDate("2024-06-01")
	tests := []struct {
		name     string
		schedule *Schedule
	}{
		{
			name: "one_time",
			schedule: &Schedule{
				Kind:       KindOneTime,
				Status:     StatusActive,
				Message:    "Dentist",
				RunAtDates: []Date{MustParseDate("2030-06-03")},
				RunAtTimes: []Clock{MustParseClock("14:30")},
				Recurrence: Recurrence{IntervalStep: 1},
			},
		},
		{
			name: "recurring",
			schedule: &Schedule{
				Kind:    KindRecurring,
				Status:  StatusActive,
				Message: "Stand up",
				Emoji:   "🧍",
				Recurrence: Recurrence{
					Frequency:    FrequencyWeekly,
					IntervalStep: 2,
					TimesOfDay:   []Clock{MustParseClock("09:30")},
					DaysOfWeek:   []int{1, 3, 5},
					StartAtDate:  &start,
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now := time.Now().UTC().Truncate(time.Microsecond)

			sch := tt.schedule
			sch.ID = uuid.NewString()
			sch.OwnerID = uuid.NewString()
			sch.CreatedAt = now
			sch.UpdatedAt = now

			require.NoError(t, driver.Save(ctx, sch))
			defer func() {
				assert.NoError(t, driver.Delete(ctx, sch.ID))
			}()

			loaded, err := driver.Load(ctx, sch.ID)
			require.NoError(t, err)

			assert.Equal(t, sch.Recurrence, loaded.Recurrence)
			assert.Equal(t, sch.RunAtDates, loaded.RunAtDates)
			assert.Equal(t, sch.RunAtTimes, loaded.RunAtTimes)
			assert.Equal(t, sch.Emoji, loaded.Emoji)
			assert.True(t, sch.CreatedAt.Equal(loaded.CreatedAt))

			loaded.Status = StatusCanceled
			require.NoError(t, driver.Save(ctx, loaded))

			reloaded, err := driver.Load(ctx, sch.ID)
			require.NoError(t, err)
			assert.Equal(t, StatusCanceled, reloaded.Status)
		})
	}
}

func TestRepositoryLoadMissingShouldFail(t *testing.T) {
	conn := postgresConn(t)
	ctx := context.Background()

	driver := newDriver(DefaultPqConfig(WithConn(conn)), repository.NewRepositoryWoTx)
	require.NoError(t, driver.Migrate(ctx))

	_, err := driver.Load(ctx, uuid.NewString())
	assert.True(t, errors.Is(err, ErrScheduleNotFound))
}
