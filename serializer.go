package remind

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lib/pq"

	"github.com/go-tick/remind/internal/model"
)

// JobPayload travels with every wake-up job.
type JobPayload struct {
	ScheduleID string    `json:"scheduleId"`
	Timezone   string    `json:"timezone"`
	RunAt      time.Time `json:"runAt"`
}

func MarshalPayload(payload JobPayload) ([]byte, error) {
	return json.Marshal(payload)
}

func UnmarshalPayload(data []byte) (JobPayload, error) {
	var payload JobPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return JobPayload{}, errors.Wrap(errors.CombineErrors(ErrCannotParsePayload, err), "decoding job payload")
	}

	if payload.ScheduleID == "" {
		return JobPayload{}, errors.Wrap(ErrCannotParsePayload, "missing scheduleId")
	}

	return payload, nil
}

func serializeSchedule(s *Schedule) model.Schedule {
	rec := s.Recurrence

	row := model.Schedule{
		ID:           s.ID,
		OwnerID:      s.OwnerID,
		Kind:         string(s.Kind),
		Status:       string(s.Status),
		Message:      s.Message,
		Emoji:        nullString(s.Emoji),
		RunAtDates:   textArray(s.RunAtDates),
		RunAtTimes:   textArray(s.RunAtTimes),
		Frequency:    nullString(string(rec.Frequency)),
		IntervalStep: rec.Step(),
		TimesOfDay:   textArray(rec.TimesOfDay),
		DaysOfWeek:   intArray(rec.DaysOfWeek),
		DaysOfMonth:  intArray(rec.DaysOfMonth),
		MonthsOfYear: intArray(rec.MonthsOfYear),
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}

	if rec.StartAtDate != nil {
		row.StartAtDate = nullString(rec.StartAtDate.String())
	}

	if rec.EndAtDate != nil {
		row.EndAtDate = nullString(rec.EndAtDate.String())
	}

	return row
}

func deserializeSchedule(row model.Schedule) (*Schedule, error) {
	s := &Schedule{
		ID:        row.ID,
		OwnerID:   row.OwnerID,
		Kind:      Kind(row.Kind),
		Status:    Status(row.Status),
		Message:   row.Message,
		Emoji:     row.Emoji.String,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}

	var err error
	if s.RunAtDates, err = parseAll(row.RunAtDates, ParseDate); err != nil {
		return nil, err
	}

	if s.RunAtTimes, err = parseAll(row.RunAtTimes, ParseClock); err != nil {
		return nil, err
	}

	rec := Recurrence{
		Frequency:    Frequency(row.Frequency.String),
		IntervalStep: row.IntervalStep,
		DaysOfWeek:   ints(row.DaysOfWeek),
		DaysOfMonth:  ints(row.DaysOfMonth),
		MonthsOfYear: ints(row.MonthsOfYear),
	}

	if rec.TimesOfDay, err = parseAll(row.TimesOfDay, ParseClock); err != nil {
		return nil, err
	}

	if rec.StartAtDate, err = parseOptionalDate(row.StartAtDate); err != nil {
		return nil, err
	}

	if rec.EndAtDate, err = parseOptionalDate(row.EndAtDate); err != nil {
		return nil, err
	}

	s.Recurrence = rec
	return s, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func textArray[T interface{ String() string }](values []T) pq.StringArray {
	out := make(pq.StringArray, 0, len(values))
	for _, v := range values {
		out = append(out, v.String())
	}

	return out
}

func intArray(values []int) pq.Int64Array {
	out := make(pq.Int64Array, 0, len(values))
	for _, v := range values {
		out = append(out, int64(v))
	}

	return out
}

func ints(values pq.Int64Array) []int {
	if len(values) == 0 {
		return nil
	}

	out := make([]int, 0, len(values))
	for _, v := range values {
		out = append(out, int(v))
	}

	return out
}

func parseAll[T any](values []string, parse func(string) (T, error)) ([]T, error) {
	if len(values) == 0 {
		return nil, nil
	}

	out := make([]T, 0, len(values))
	for _, v := range values {
		parsed, err := parse(v)
		if err != nil {
			return nil, err
		}

		out = append(out, parsed)
	}

	return out, nil
}

func parseOptionalDate(v sql.NullString) (*Date, error) {
	if !v.Valid || v.String == "" {
		return nil, nil
	}

	d, err := ParseDate(v.String)
	if err != nil {
		return nil, err
	}

	return &d, nil
}
