package remind

import "github.com/cockroachdb/errors"

var (
	ErrInvalidDate        = errors.New("invalid civil date")
	ErrInvalidClock       = errors.New("invalid time of day")
	ErrInvalidSchedule    = errors.New("invalid schedule")
	ErrUnknownTimezone    = errors.New("unknown timezone")
	ErrScheduleNotFound   = errors.New("schedule not found")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrPatchKindMismatch  = errors.New("patch does not match schedule kind")
	ErrUnknownPatchKind   = errors.New("unknown patch kind")
	ErrCannotParsePayload = errors.New("cannot parse job payload")
)

// ErrorListener receives failures the coordinator tolerates instead of
// returning, such as job cleanup after a status change.
type ErrorListener interface {
	OnError(err error)
}

type ErrorListenerFunc func(err error)

func (f ErrorListenerFunc) OnError(err error) {
	f(err)
}
