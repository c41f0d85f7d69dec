package remind

import (
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recurring(rec Recurrence) *Schedule {
	return &Schedule{Kind: KindRecurring, Status: StatusActive, Recurrence: rec}
}

func clocks(values ...string) []Clock {
	out := make([]Clock, 0, len(values))
	for _, v := range values {
		out = append(out, MustParseClock(v))
	}
	return out
}

func datePtr(s string) *Date {
	d := MustParseDate(s)
	return &d
}

func TestNextRunAtScenarios(t *testing.T) {
	tests := []struct {
		name     string
		schedule *Schedule
		timezone string
		now      time.Time
		want     time.Time
	}{
		{
			name: "one time in the future",
			schedule: &Schedule{
				Kind:       KindOneTime,
				Status:     StatusActive,
				RunAtDates: []Date{MustParseDate("2025-12-20")},
				RunAtTimes: clocks("10:00"),
			},
			timezone: "UTC",
			now:      time.Date(2025, 12, 15, 10, 0, 0, 0, time.UTC),
			want:     time.Date(2025, 12, 20, 10, 0, 0, 0, time.UTC),
		},
		{
			name: "daily after today's slot",
			schedule: recurring(Recurrence{
				Frequency:   FrequencyDaily,
				TimesOfDay:  clocks("10:00"),
				StartAtDate: datePtr("2025-12-10"),
			}),
			timezone: "UTC",
			now:      time.Date(2025, 12, 15, 11, 0, 0, 0, time.UTC),
			want:     time.Date(2025, 12, 16, 10, 0, 0, 0, time.UTC),
		},
		{
			name: "weekly on the start monday after the slot",
			schedule: recurring(Recurrence{
				Frequency:    FrequencyWeekly,
				IntervalStep: 1,
				DaysOfWeek:   []int{1},
				TimesOfDay:   clocks("10:00"),
				StartAtDate:  datePtr("2025-12-15"),
			}),
			timezone: "UTC",
			now:      time.Date(2025, 12, 15, 11, 0, 0, 0, time.UTC),
			want:     time.Date(2025, 12, 22, 10, 0, 0, 0, time.UTC),
		},
		{
			name:     "makassar at the exact slot moves to the next day",
			schedule: recurring(Recurrence{TimesOfDay: clocks("15:00")}),
			timezone: "Asia/Makassar",
			now:      time.Date(2024, 6, 1, 7, 0, 0, 0, time.UTC),
			want:     time.Date(2024, 6, 2, 7, 0, 0, 0, time.UTC),
		},
		{
			name:     "later slot on the same day",
			schedule: recurring(Recurrence{TimesOfDay: clocks("20:00", "08:00")}),
			timezone: "Europe/Berlin",
			now:      time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC),
			want:     time.Date(2024, 6, 1, 18, 0, 0, 0, time.UTC),
		},
		{
			name:     "local day differs from utc day",
			schedule: recurring(Recurrence{DaysOfWeek: []int{1}, TimesOfDay: clocks("06:00")}),
			timezone: "Pacific/Auckland",
			// Sunday 18:30 UTC is already Monday 06:30 in Auckland.
			now:  time.Date(2024, 6, 2, 18, 30, 0, 0, time.UTC),
			want: time.Date(2024, 6, 9, 18, 0, 0, 0, time.UTC),
		},
		{
			name: "before start returns first slot on start date",
			schedule: recurring(Recurrence{
				TimesOfDay:  clocks("18:00", "09:00"),
				StartAtDate: datePtr("2024-07-01"),
			}),
			timezone: "Europe/Moscow",
			now:      time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
			want:     time.Date(2024, 7, 1, 6, 0, 0, 0, time.UTC),
		},
		{
			name: "monthly on day 31 skips short months",
			schedule: recurring(Recurrence{
				Frequency:   FrequencyMonthly,
				DaysOfMonth: []int{31},
				TimesOfDay:  clocks("12:00"),
				StartAtDate: datePtr("2024-01-31"),
			}),
			timezone: "UTC",
			now:      time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
			want:     time.Date(2024, 5, 31, 12, 0, 0, 0, time.UTC),
		},
		{
			name: "yearly leap day",
			schedule: recurring(Recurrence{
				Frequency:    FrequencyYearly,
				DaysOfMonth:  []int{29},
				MonthsOfYear: []int{2},
				TimesOfDay:   clocks("09:00"),
			}),
			timezone: "UTC",
			now:      time.Date(2027, 6, 1, 0, 0, 0, 0, time.UTC),
			want:     time.Date(2028, 2, 29, 9, 0, 0, 0, time.UTC),
		},
		{
			name:     "dst change keeps local time",
			schedule: recurring(Recurrence{TimesOfDay: clocks("10:00")}),
			timezone: "America/New_York",
			now:      time.Date(2024, 3, 9, 16, 0, 0, 0, time.UTC),
			want:     time.Date(2024, 3, 10, 14, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, err := NextRunAt(tt.now, tt.schedule, tt.timezone)
			require.NoError(t, err)
			require.True(t, ok)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got.UTC())
		})
	}
}

func TestResolveNone(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		schedule *Schedule
		reason   Reason
	}{
		{
			name: "canceled",
			schedule: &Schedule{
				Kind:       KindRecurring,
				Status:     StatusCanceled,
				Recurrence: Recurrence{TimesOfDay: clocks("10:00")},
			},
			reason: ReasonInactive,
		},
		{
			name: "ended one time",
			schedule: &Schedule{
				Kind:       KindOneTime,
				Status:     StatusEnded,
				RunAtDates: []Date{MustParseDate("2030-01-01")},
				RunAtTimes: clocks("10:00"),
			},
			reason: ReasonInactive,
		},
		{
			name: "one time all past",
			schedule: &Schedule{
				Kind:       KindOneTime,
				Status:     StatusActive,
				RunAtDates: []Date{MustParseDate("2024-05-01"), MustParseDate("2024-06-01")},
				RunAtTimes: clocks("10:00", "12:00"),
			},
			reason: ReasonNoOccurrences,
		},
		{
			name:     "one time empty",
			schedule: &Schedule{Kind: KindOneTime, Status: StatusActive},
			reason:   ReasonNoOccurrences,
		},
		{
			name:     "recurring without times",
			schedule: recurring(Recurrence{DaysOfWeek: []int{1}}),
			reason:   ReasonNoTimesOfDay,
		},
		{
			name:     "past end date",
			schedule: recurring(Recurrence{TimesOfDay: clocks("10:00"), EndAtDate: datePtr("2024-05-31")}),
			reason:   ReasonPastEnd,
		},
		{
			name: "scan reaches end date",
			schedule: recurring(Recurrence{
				DaysOfWeek: []int{1},
				TimesOfDay: clocks("10:00"),
				EndAtDate:  datePtr("2024-06-02"),
			}),
			reason: ReasonPastEnd,
		},
		{
			name:     "impossible date",
			schedule: recurring(Recurrence{DaysOfMonth: []int{30}, MonthsOfYear: []int{2}, TimesOfDay: clocks("10:00")}),
			reason:   ReasonScanExhausted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := DefaultResolver.Resolve(now, tt.schedule, time.UTC)
			assert.False(t, res.Found)
			assert.True(t, res.At.IsZero())
			assert.Equal(t, tt.reason, res.Reason)
		})
	}
}

func TestResolveJustBeforeStartDate(t *testing.T) {
	sch := recurring(Recurrence{TimesOfDay: clocks("00:00"), StartAtDate: datePtr("2024-06-02")})

	now := time.Date(2024, 6, 1, 23, 59, 0, 0, time.UTC)
	res := DefaultResolver.Resolve(now, sch, time.UTC)
	require.True(t, res.Found)
	assert.True(t, time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC).Equal(res.At))
}

func TestResolveEndDateBoundary(t *testing.T) {
	sch := recurring(Recurrence{
		TimesOfDay: clocks("09:00", "21:00"),
		EndAtDate:  datePtr("2024-06-10"),
	})
	loc := time.FixedZone("UTC+3", 3*60*60)
	last := time.Date(2024, 6, 10, 18, 0, 0, 0, time.UTC)

	res := DefaultResolver.Resolve(last, sch, loc)
	assert.False(t, res.Found)
	assert.Equal(t, ReasonPastEnd, res.Reason)

	res = DefaultResolver.Resolve(last.Add(-time.Second), sch, loc)
	require.True(t, res.Found)
	assert.True(t, last.Equal(res.At))
}

func TestResolveOneTimePairsByIndex(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	sch := &Schedule{
		Kind:       KindOneTime,
		Status:     StatusActive,
		RunAtDates: []Date{MustParseDate("2024-06-05"), MustParseDate("2024-06-03"), MustParseDate("2024-05-01")},
		RunAtTimes: clocks("08:00", "20:00", "09:00"),
	}

	res := DefaultResolver.Resolve(now, sch, time.UTC)
	require.True(t, res.Found)
	assert.True(t, time.Date(2024, 6, 3, 20, 0, 0, 0, time.UTC).Equal(res.At))

	// The shorter list governs: the third date has no time and is ignored.
	sch.RunAtDates = []Date{MustParseDate("2024-06-05"), MustParseDate("2024-06-04"), MustParseDate("2024-06-02")}
	sch.RunAtTimes = clocks("08:00", "20:00")

	res = DefaultResolver.Resolve(now, sch, time.UTC)
	require.True(t, res.Found)
	assert.True(t, time.Date(2024, 6, 4, 20, 0, 0, 0, time.UTC).Equal(res.At))
}

func TestResolveOneTimeIsMinimumAfterNow(t *testing.T) {
	loc, err := LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	dates := []Date{MustParseDate("2024-06-01"), MustParseDate("2024-06-01"), MustParseDate("2024-06-02"), MustParseDate("2024-05-31")}
	times := clocks("11:00", "15:00", "07:00", "23:00")
	sch := &Schedule{Kind: KindOneTime, Status: StatusActive, RunAtDates: dates, RunAtTimes: times}

	for hour := 0; hour < 48; hour++ {
		now := time.Date(2024, 5, 31, hour, 0, 0, 0, time.UTC)

		var want time.Time
		for i := range dates {
			at := ToInstant(dates[i], times[i], loc)
			if at.After(now) && (want.IsZero() || at.Before(want)) {
				want = at
			}
		}

		res := DefaultResolver.Resolve(now, sch, loc)
		if want.IsZero() {
			assert.False(t, res.Found, "now %s", now)
			continue
		}

		require.True(t, res.Found, "now %s", now)
		assert.True(t, want.Equal(res.At), "now %s", now)
	}
}

func TestResolveDailyStepSpacing(t *testing.T) {
	loc, err := LoadLocation("America/New_York")
	require.NoError(t, err)

	for step := 1; step <= 5; step++ {
		sch := recurring(Recurrence{
			Frequency:    FrequencyDaily,
			IntervalStep: step,
			TimesOfDay:   clocks("10:00"),
			StartAtDate:  datePtr("2024-03-01"),
		})

		now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
		var prev *Date
		for range 20 {
			res := DefaultResolver.Resolve(now, sch, loc)
			require.True(t, res.Found)

			fields := ToCivilFields(res.At, loc)
			assert.Equal(t, MustParseClock("10:00"), fields.Clock)
			if prev != nil {
				assert.Equal(t, step, DaysBetween(*prev, fields.Date))
			}

			prev = &fields.Date
			now = res.At
		}
	}
}

func TestResolveStepFromDistantStartDate(t *testing.T) {
	sch := recurring(Recurrence{
		Frequency:    FrequencyDaily,
		IntervalStep: 2,
		TimesOfDay:   clocks("09:00"),
		StartAtDate:  datePtr("1700-01-01"),
	})
	now := time.Date(2025, 12, 15, 12, 0, 0, 0, time.UTC)

	res := DefaultResolver.Resolve(now, sch, time.UTC)
	require.True(t, res.Found, "reason %s", res.Reason)
	assert.True(t, time.Date(2025, 12, 17, 9, 0, 0, 0, time.UTC).Equal(res.At), "got %s", res.At)
}

func TestResolverScanBound(t *testing.T) {
	sch := recurring(Recurrence{
		Frequency:    FrequencyYearly,
		DaysOfMonth:  []int{29},
		MonthsOfYear: []int{2},
		TimesOfDay:   clocks("09:00"),
	})
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	res := Resolver{MaxScanDays: 365}.Resolve(now, sch, time.UTC)
	assert.Equal(t, ReasonScanExhausted, res.Reason)

	res = Resolver{MaxScanDays: 1500}.Resolve(now, sch, time.UTC)
	assert.True(t, res.Found)
}

func TestNextRunAtUnknownTimezone(t *testing.T) {
	_, ok, err := NextRunAt(time.Now(), recurring(Recurrence{TimesOfDay: clocks("10:00")}), "Nowhere/City")
	assert.False(t, ok)
	assert.True(t, errors.Is(err, ErrUnknownTimezone))
}
