package remind

import "time"

const defaultMaxScanDays = 1000

// Reason explains a resolution outcome. Only ReasonScheduled carries an instant.
type Reason string

const (
	ReasonScheduled     Reason = "scheduled"
	ReasonInactive      Reason = "inactive"
	ReasonNoOccurrences Reason = "no_occurrences"
	ReasonNoTimesOfDay  Reason = "no_times_of_day"
	ReasonPastEnd       Reason = "past_end"
	ReasonBeforeStart   Reason = "before_start"
	ReasonScanExhausted Reason = "scan_exhausted"
)

type Resolution struct {
	At     time.Time
	Found  bool
	Reason Reason
}

func found(at time.Time) Resolution {
	return Resolution{At: at, Found: true, Reason: ReasonScheduled}
}

func none(reason Reason) Resolution {
	return Resolution{Reason: reason}
}

// Resolver computes next occurrences. The zero value uses the default bounds.
// A Resolver holds no state and is safe for concurrent use.
type Resolver struct {
	// MaxScanDays bounds the day-by-day recurrence scan.
	MaxScanDays int
	// ConvergenceIterations bounds the wall-clock to instant refinement.
	ConvergenceIterations int
}

var DefaultResolver = Resolver{
	MaxScanDays:           defaultMaxScanDays,
	ConvergenceIterations: defaultConvergenceIterations,
}

// NextRunAt returns the first instant strictly after now at which schedule
// fires in timezone. The boolean is false when there is none. An error is
// returned only when timezone cannot be resolved.
func NextRunAt(now time.Time, schedule *Schedule, timezone string) (time.Time, bool, error) {
	loc, err := LoadLocation(timezone)
	if err != nil {
		return time.Time{}, false, err
	}

	res := DefaultResolver.Resolve(now, schedule, loc)
	return res.At, res.Found, nil
}

func (r Resolver) Resolve(now time.Time, schedule *Schedule, loc *time.Location) Resolution {
	if schedule == nil || !schedule.IsActive() {
		return none(ReasonInactive)
	}

	if schedule.Kind == KindOneTime {
		return r.resolveOneTime(now, schedule, loc)
	}

	return r.resolveRecurring(now, schedule.Recurrence, loc)
}

func (r Resolver) instant(date Date, clock Clock, loc *time.Location) time.Time {
	iterations := r.ConvergenceIterations
	if iterations <= 0 {
		iterations = defaultConvergenceIterations
	}

	return toInstant(date, clock, loc, iterations)
}

// resolveOneTime pairs dates and times by index; the shorter list governs.
func (r Resolver) resolveOneTime(now time.Time, schedule *Schedule, loc *time.Location) Resolution {
	var next time.Time

	n := min(len(schedule.RunAtDates), len(schedule.RunAtTimes))
	for i := range n {
		at := r.instant(schedule.RunAtDates[i], schedule.RunAtTimes[i], loc)
		if at.After(now) && (next.IsZero() || at.Before(next)) {
			next = at
		}
	}

	if next.IsZero() {
		return none(ReasonNoOccurrences)
	}

	return found(next)
}

func (r Resolver) resolveRecurring(now time.Time, rec Recurrence, loc *time.Location) Resolution {
	if len(rec.TimesOfDay) == 0 {
		return none(ReasonNoTimesOfDay)
	}

	times := SortClocks(rec.TimesOfDay)

	if rec.EndAtDate != nil {
		last := r.instant(*rec.EndAtDate, times[len(times)-1], loc)
		if !now.Before(last) {
			return none(ReasonPastEnd)
		}
	}

	if rec.StartAtDate != nil {
		startOfDay := r.instant(*rec.StartAtDate, Clock{}, loc)
		if now.Before(startOfDay) {
			first := r.instant(*rec.StartAtDate, times[0], loc)
			if first.After(now) {
				return found(first)
			}

			return none(ReasonBeforeStart)
		}
	}

	maxDays := r.MaxScanDays
	if maxDays <= 0 {
		maxDays = defaultMaxScanDays
	}

	candidate := ToCivilFields(now, loc).Date
	for range maxDays {
		if rec.EndAtDate != nil && candidate.After(*rec.EndAtDate) {
			return none(ReasonPastEnd)
		}

		if Matches(candidate, rec, rec.StartAtDate) {
			for _, clock := range times {
				if at := r.instant(candidate, clock, loc); at.After(now) {
					return found(at)
				}
			}
		}

		candidate = candidate.AddDays(1)
	}

	return none(ReasonScanExhausted)
}
