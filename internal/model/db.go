package model

import (
	"database/sql"
	"time"

	"github.com/lib/pq"
)

// Schedule is a row of the schedules table. Civil dates and times are kept as
// their text forms (YYYY-MM-DD, HH:MM).
type Schedule struct {
	ID           string         `db:"id"`
	OwnerID      string         `db:"owner_id"`
	Kind         string         `db:"kind"`
	Status       string         `db:"status"`
	Message      string         `db:"message"`
	Emoji        sql.NullString `db:"emoji"`
	RunAtDates   pq.StringArray `db:"run_at_dates"`
	RunAtTimes   pq.StringArray `db:"run_at_times"`
	Frequency    sql.NullString `db:"frequency"`
	IntervalStep int            `db:"interval_step"`
	TimesOfDay   pq.StringArray `db:"times_of_day"`
	DaysOfWeek   pq.Int64Array  `db:"days_of_week"`
	DaysOfMonth  pq.Int64Array  `db:"days_of_month"`
	MonthsOfYear pq.Int64Array  `db:"months_of_year"`
	StartAtDate  sql.NullString `db:"start_at_date"`
	EndAtDate    sql.NullString `db:"end_at_date"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

// Job is the subset of a graphile-worker job row the driver reads back.
type Job struct {
	ID          int64     `db:"id"`
	Key         string    `db:"key"`
	TaskID      string    `db:"task_identifier"`
	RunAt       time.Time `db:"run_at"`
	Attempts    int       `db:"attempts"`
	MaxAttempts int       `db:"max_attempts"`
}
