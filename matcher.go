package remind

import "slices"

// Matches reports whether candidate is an occurrence date of rec. Filters are
// checked in order and the first failure wins. Interval alignment is anchored
// on start; without a start date every date is aligned.
func Matches(candidate Date, rec Recurrence, start *Date) bool {
	if len(rec.DaysOfWeek) > 0 && !slices.Contains(rec.DaysOfWeek, candidate.Weekday()) {
		return false
	}

	if len(rec.DaysOfMonth) > 0 && !slices.Contains(rec.DaysOfMonth, candidate.Day) {
		return false
	}

	if len(rec.MonthsOfYear) > 0 && !slices.Contains(rec.MonthsOfYear, int(candidate.Month)) {
		return false
	}

	if start == nil {
		return true
	}

	if candidate.Before(*start) {
		return false
	}

	return aligned(stepsSince(*start, candidate, rec.Freq()), rec.Step())
}

// stepsSince counts frequency units between start and candidate.
func stepsSince(start, candidate Date, freq Frequency) int {
	switch freq {
	case FrequencyWeekly:
		return floorDiv(DaysBetween(start, candidate), 7)
	case FrequencyMonthly:
		return MonthsBetween(start, candidate)
	case FrequencyYearly:
		return candidate.Year - start.Year
	default:
		return DaysBetween(start, candidate)
	}
}

func aligned(steps, step int) bool {
	return steps >= 0 && steps%step == 0
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}

	return q
}
