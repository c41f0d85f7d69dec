package remind

import "github.com/cockroachdb/errors"

// CanTransition reports whether a schedule may move from one status to
// another. Only active schedules move; canceled and ended are terminal.
func CanTransition(from, to Status) bool {
	if from != StatusActive {
		return false
	}

	return to == StatusCanceled || to == StatusEnded
}

// Transition moves schedule to the given status. Repeating the current
// status is a no-op so redelivered jobs and retried requests stay harmless.
func Transition(schedule *Schedule, to Status) (changed bool, err error) {
	if schedule.Status == to {
		return false, nil
	}

	if !CanTransition(schedule.Status, to) {
		return false, errors.Wrapf(ErrInvalidTransition, "%s -> %s", schedule.Status, to)
	}

	schedule.Status = to
	return true, nil
}
