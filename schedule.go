package remind

import (
	"slices"
	"time"

	"github.com/cockroachdb/errors"
)

type Kind string

const (
	KindOneTime   Kind = "one_time"
	KindRecurring Kind = "recurring"
)

type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyYearly  Frequency = "yearly"
)

func (f Frequency) valid() bool {
	switch f {
	case "", FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyYearly:
		return true
	default:
		return false
	}
}

type Status string

const (
	StatusActive   Status = "active"
	StatusCanceled Status = "canceled"
	StatusEnded    Status = "ended"
)

// Recurrence holds the recurring part of a schedule. Empty filter sets are
// unconstrained.
type Recurrence struct {
	Frequency    Frequency `json:"frequency,omitempty" yaml:"frequency,omitempty"`
	IntervalStep int       `json:"intervalStep,omitempty" yaml:"intervalStep,omitempty"`
	TimesOfDay   []Clock   `json:"timesOfDay,omitempty" yaml:"timesOfDay,omitempty"`
	DaysOfWeek   []int     `json:"daysOfWeek,omitempty" yaml:"daysOfWeek,omitempty"`
	DaysOfMonth  []int     `json:"daysOfMonth,omitempty" yaml:"daysOfMonth,omitempty"`
	MonthsOfYear []int     `json:"monthsOfYear,omitempty" yaml:"monthsOfYear,omitempty"`
	StartAtDate  *Date     `json:"startAtDate,omitempty" yaml:"startAtDate,omitempty"`
	EndAtDate    *Date     `json:"endAtDate,omitempty" yaml:"endAtDate,omitempty"`
}

// Step returns the interval step, treating an unset value as 1.
func (r Recurrence) Step() int {
	if r.IntervalStep < 1 {
		return 1
	}

	return r.IntervalStep
}

// Freq returns the frequency, defaulting to daily.
func (r Recurrence) Freq() Frequency {
	if r.Frequency == "" {
		return FrequencyDaily
	}

	return r.Frequency
}

// Schedule is a reminder definition. The owner's timezone is not stored here;
// every time computation takes it as an argument.
type Schedule struct {
	ID      string `json:"id" yaml:"id"`
	OwnerID string `json:"ownerId" yaml:"ownerId"`
	Kind    Kind   `json:"kind" yaml:"kind"`
	Status  Status `json:"status" yaml:"status"`
	Message string `json:"message,omitempty" yaml:"message,omitempty"`
	Emoji   string `json:"emoji,omitempty" yaml:"emoji,omitempty"`

	// One-time occurrences, paired by index.
	RunAtDates []Date  `json:"runAtDates,omitempty" yaml:"runAtDates,omitempty"`
	RunAtTimes []Clock `json:"runAtTimes,omitempty" yaml:"runAtTimes,omitempty"`

	Recurrence Recurrence `json:"recurrence,omitempty" yaml:"recurrence,omitempty"`

	CreatedAt time.Time `json:"createdAt" yaml:"createdAt,omitempty"`
	UpdatedAt time.Time `json:"updatedAt" yaml:"updatedAt,omitempty"`
}

func (s *Schedule) IsActive() bool {
	return s.Status == StatusActive
}

// Validate rejects values no occurrence could be computed from. An empty
// TimesOfDay is accepted: it resolves to no occurrence and ends the schedule.
func (s *Schedule) Validate() error {
	switch s.Kind {
	case KindOneTime:
		return nil
	case KindRecurring:
	default:
		return errors.Wrapf(ErrInvalidSchedule, "kind %q", s.Kind)
	}

	return s.Recurrence.validate()
}

func (r Recurrence) validate() error {
	if !r.Frequency.valid() {
		return errors.Wrapf(ErrInvalidSchedule, "frequency %q", r.Frequency)
	}

	if r.IntervalStep < 0 {
		return errors.Wrapf(ErrInvalidSchedule, "interval step %d", r.IntervalStep)
	}

	if err := checkRange("daysOfWeek", r.DaysOfWeek, 1, 7); err != nil {
		return err
	}

	if err := checkRange("daysOfMonth", r.DaysOfMonth, 1, 31); err != nil {
		return err
	}

	if err := checkRange("monthsOfYear", r.MonthsOfYear, 1, 12); err != nil {
		return err
	}

	if r.StartAtDate != nil && r.EndAtDate != nil && r.EndAtDate.Before(*r.StartAtDate) {
		return errors.Wrapf(ErrInvalidSchedule, "end date %s before start date %s", r.EndAtDate, r.StartAtDate)
	}

	return nil
}

func checkRange(field string, values []int, lo, hi int) error {
	for _, v := range values {
		if v < lo || v > hi {
			return errors.Wrapf(ErrInvalidSchedule, "%s value %d outside %d..%d", field, v, lo, hi)
		}
	}

	return nil
}

// Clone returns a deep copy of the schedule.
func (s *Schedule) Clone() *Schedule {
	c := *s
	c.RunAtDates = slices.Clone(s.RunAtDates)
	c.RunAtTimes = slices.Clone(s.RunAtTimes)
	c.Recurrence.TimesOfDay = slices.Clone(s.Recurrence.TimesOfDay)
	c.Recurrence.DaysOfWeek = slices.Clone(s.Recurrence.DaysOfWeek)
	c.Recurrence.DaysOfMonth = slices.Clone(s.Recurrence.DaysOfMonth)
	c.Recurrence.MonthsOfYear = slices.Clone(s.Recurrence.MonthsOfYear)

	if s.Recurrence.StartAtDate != nil {
		d := *s.Recurrence.StartAtDate
		c.Recurrence.StartAtDate = &d
	}
	if s.Recurrence.EndAtDate != nil {
		d := *s.Recurrence.EndAtDate
		c.Recurrence.EndAtDate = &d
	}

	return &c
}
