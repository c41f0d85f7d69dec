package remind

import (
	"bytes"
	"encoding/json"
	"slices"

	"github.com/cockroachdb/errors"
)

// Patch is a partial update of a schedule. The only implementations are
// OneTimePatch and RecurringPatch; the variant must match the schedule kind.
type Patch interface {
	Kind() Kind
	apply(*Schedule) error
}

// Content fields shared by both patch variants. Nil means unchanged.
type ContentPatch struct {
	Message *string `json:"message,omitempty"`
	Emoji   *string `json:"emoji,omitempty"`
}

type OneTimePatch struct {
	ContentPatch
	RunAtDates []Date  `json:"runAtDates,omitempty"`
	RunAtTimes []Clock `json:"runAtTimes,omitempty"`
}

type RecurringPatch struct {
	ContentPatch
	Frequency    *Frequency `json:"frequency,omitempty"`
	IntervalStep *int       `json:"intervalStep,omitempty"`
	TimesOfDay   []Clock    `json:"timesOfDay,omitempty"`
	DaysOfWeek   []int      `json:"daysOfWeek,omitempty"`
	DaysOfMonth  []int      `json:"daysOfMonth,omitempty"`
	MonthsOfYear []int      `json:"monthsOfYear,omitempty"`
	StartAtDate  *Date      `json:"startAtDate,omitempty"`
	EndAtDate    *Date      `json:"endAtDate,omitempty"`

	// Clear flags remove a bound; combining one with its date is rejected.
	ClearStartAtDate bool `json:"clearStartAtDate,omitempty"`
	ClearEndAtDate   bool `json:"clearEndAtDate,omitempty"`
}

func (OneTimePatch) Kind() Kind   { return KindOneTime }
func (RecurringPatch) Kind() Kind { return KindRecurring }

// Apply validates patch against schedule and updates it in place. On error
// schedule is left untouched.
func Apply(schedule *Schedule, patch Patch) error {
	if patch == nil {
		return nil
	}

	if patch.Kind() != schedule.Kind {
		return errors.Wrapf(ErrPatchKindMismatch, "%s patch on %s schedule", patch.Kind(), schedule.Kind)
	}

	updated := *schedule
	if err := patch.apply(&updated); err != nil {
		return err
	}

	if err := updated.Validate(); err != nil {
		return err
	}

	*schedule = updated
	return nil
}

func (p ContentPatch) apply(s *Schedule) {
	if p.Message != nil {
		s.Message = *p.Message
	}

	if p.Emoji != nil {
		s.Emoji = *p.Emoji
	}
}

func (p OneTimePatch) apply(s *Schedule) error {
	p.ContentPatch.apply(s)

	if p.RunAtDates != nil {
		s.RunAtDates = slices.Clone(p.RunAtDates)
	}

	if p.RunAtTimes != nil {
		s.RunAtTimes = slices.Clone(p.RunAtTimes)
	}

	return nil
}

func (p RecurringPatch) apply(s *Schedule) error {
	if p.ClearStartAtDate && p.StartAtDate != nil {
		return errors.Wrap(ErrInvalidSchedule, "start date both set and cleared")
	}

	if p.ClearEndAtDate && p.EndAtDate != nil {
		return errors.Wrap(ErrInvalidSchedule, "end date both set and cleared")
	}

	if p.IntervalStep != nil && *p.IntervalStep < 1 {
		return errors.Wrapf(ErrInvalidSchedule, "interval step %d", *p.IntervalStep)
	}

	p.ContentPatch.apply(s)

	rec := &s.Recurrence
	if p.Frequency != nil {
		rec.Frequency = *p.Frequency
	}

	if p.IntervalStep != nil {
		rec.IntervalStep = *p.IntervalStep
	}

	if p.TimesOfDay != nil {
		rec.TimesOfDay = slices.Clone(p.TimesOfDay)
	}

	if p.DaysOfWeek != nil {
		rec.DaysOfWeek = slices.Clone(p.DaysOfWeek)
	}

	if p.DaysOfMonth != nil {
		rec.DaysOfMonth = slices.Clone(p.DaysOfMonth)
	}

	if p.MonthsOfYear != nil {
		rec.MonthsOfYear = slices.Clone(p.MonthsOfYear)
	}

	switch {
	case p.ClearStartAtDate:
		rec.StartAtDate = nil
	case p.StartAtDate != nil:
		d := *p.StartAtDate
		rec.StartAtDate = &d
	}

	switch {
	case p.ClearEndAtDate:
		rec.EndAtDate = nil
	case p.EndAtDate != nil:
		d := *p.EndAtDate
		rec.EndAtDate = &d
	}

	return nil
}

// DecodePatch decodes a JSON patch of the given kind. Fields that do not
// belong to the variant are rejected here rather than ignored downstream.
func DecodePatch(kind Kind, raw []byte) (Patch, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()

	switch kind {
	case KindOneTime:
		var p OneTimePatch
		if err := dec.Decode(&p); err != nil {
			return nil, errors.Wrap(errors.CombineErrors(ErrInvalidSchedule, err), "decoding one-time patch")
		}
		return p, nil
	case KindRecurring:
		var p RecurringPatch
		if err := dec.Decode(&p); err != nil {
			return nil, errors.Wrap(errors.CombineErrors(ErrInvalidSchedule, err), "decoding recurring patch")
		}
		return p, nil
	default:
		return nil, errors.Wrapf(ErrUnknownPatchKind, "%q", kind)
	}
}
