package remind

import (
	"fmt"
	"slices"
	"time"

	"github.com/cockroachdb/errors"
)

const (
	dateLayout = "2006-01-02"

	clockLayout        = "15:04"
	clockSecondsLayout = "15:04:05"

	defaultConvergenceIterations = 20
)

// Date is a calendar date with no timezone attached.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// Clock is a wall-clock time of day with minute precision.
type Clock struct {
	Hour   int
	Minute int
}

// CivilFields is the projection of an instant onto the wall clock of a timezone.
type CivilFields struct {
	Date       Date
	Weekday    int // ISO weekday, Monday=1 .. Sunday=7
	DayOfMonth int
	Month      int
	Year       int
	Clock      Clock
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{Year: year, Month: month, Day: day}
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, errors.Wrapf(ErrInvalidDate, "%q", s)
	}

	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}, nil
}

func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}

	return d
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

func (d Date) IsZero() bool {
	return d == Date{}
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}

	*d = parsed
	return nil
}

// utcMidnight anchors the date on the UTC timeline. UTC has no DST, so day
// arithmetic on the result is exact.
func (d Date) utcMidnight() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d Date) AddDays(n int) Date {
	t := d.utcMidnight().AddDate(0, 0, n)
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// Weekday returns the ISO weekday: Monday=1 .. Sunday=7.
func (d Date) Weekday() int {
	return isoWeekday(d.utcMidnight().Weekday())
}

func (d Date) Compare(other Date) int {
	switch {
	case d.Year != other.Year:
		return cmpInt(d.Year, other.Year)
	case d.Month != other.Month:
		return cmpInt(int(d.Month), int(other.Month))
	default:
		return cmpInt(d.Day, other.Day)
	}
}

func (d Date) Before(other Date) bool {
	return d.Compare(other) < 0
}

func (d Date) After(other Date) bool {
	return d.Compare(other) > 0
}

// DaysBetween counts whole civil days from a to b (negative when b precedes a).
func DaysBetween(a, b Date) int {
	return int((b.utcMidnight().Unix() - a.utcMidnight().Unix()) / 86400)
}

// MonthsBetween counts calendar months from a to b, ignoring the day of month.
func MonthsBetween(a, b Date) int {
	return (b.Year*12 + int(b.Month)) - (a.Year*12 + int(a.Month))
}

// ParseClock accepts HH:MM and HH:MM:SS. Seconds are dropped.
func ParseClock(s string) (Clock, error) {
	t, err := time.Parse(clockLayout, s)
	if err != nil {
		if t, err = time.Parse(clockSecondsLayout, s); err != nil {
			return Clock{}, errors.Wrapf(ErrInvalidClock, "%q", s)
		}
	}

	return Clock{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func MustParseClock(s string) Clock {
	c, err := ParseClock(s)
	if err != nil {
		panic(err)
	}

	return c
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

func (c Clock) minutes() int {
	return c.Hour*60 + c.Minute
}

func (c Clock) Compare(other Clock) int {
	return cmpInt(c.minutes(), other.minutes())
}

func (c Clock) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Clock) UnmarshalText(b []byte) error {
	parsed, err := ParseClock(string(b))
	if err != nil {
		return err
	}

	*c = parsed
	return nil
}

// SortClocks returns an ascending copy of clocks.
func SortClocks(clocks []Clock) []Clock {
	sorted := slices.Clone(clocks)
	slices.SortFunc(sorted, Clock.Compare)
	return sorted
}

// LoadLocation resolves an IANA identifier. The error is distinguishable from
// a "no occurrence" outcome via errors.Is(err, ErrUnknownTimezone).
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		return nil, errors.WithHint(
			errors.Wrap(ErrUnknownTimezone, "empty timezone"),
			"set the owner's timezone before scheduling reminders",
		)
	}

	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, errors.WithHint(
			errors.Wrapf(errors.CombineErrors(ErrUnknownTimezone, err), "timezone %q", name),
			"use an IANA identifier such as Europe/Moscow",
		)
	}

	return loc, nil
}

// ToInstant returns the instant at which the wall clock in loc shows date at clock.
func ToInstant(date Date, clock Clock, loc *time.Location) time.Time {
	return toInstant(date, clock, loc, defaultConvergenceIterations)
}

// toInstant refines a candidate until its rendering in loc equals the target
// wall clock. Offsets depend on the instant itself, so the candidate is moved
// by the residual each round. When the target falls in a DST gap the loop
// never settles and the last candidate is returned.
func toInstant(date Date, clock Clock, loc *time.Location, maxIterations int) time.Time {
	target := time.Date(date.Year, date.Month, date.Day, clock.Hour, clock.Minute, 0, 0, time.UTC)
	candidate := target

	for range maxIterations {
		rendered := candidate.In(loc)
		wall := time.Date(rendered.Year(), rendered.Month(), rendered.Day(), rendered.Hour(), rendered.Minute(), 0, 0, time.UTC)

		residual := target.Sub(wall)
		if residual == 0 {
			return candidate
		}

		candidate = candidate.Add(residual)
	}

	return candidate
}

// ToCivilFields projects instant onto the wall clock of loc.
func ToCivilFields(instant time.Time, loc *time.Location) CivilFields {
	local := instant.In(loc)
	date := Date{Year: local.Year(), Month: local.Month(), Day: local.Day()}

	return CivilFields{
		Date:       date,
		Weekday:    isoWeekday(local.Weekday()),
		DayOfMonth: local.Day(),
		Month:      int(local.Month()),
		Year:       local.Year(),
		Clock:      Clock{Hour: local.Hour(), Minute: local.Minute()},
	}
}

func isoWeekday(w time.Weekday) int {
	if w == time.Sunday {
		return 7
	}

	return int(w)
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
