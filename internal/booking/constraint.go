package booking

import (
	"fmt"
	"strings"
	"time"
)

// Unit is the granularity at which a piece of equipment can be booked.
type Unit string

const (
	UnitMinute  Unit = "minute"
	UnitHour    Unit = "hour"
	UnitHalfDay Unit = "half-day"
	UnitDay     Unit = "day"
	UnitWeek    Unit = "week"
)

// ParseUnit returns the Unit named by s.
func ParseUnit(s string) (Unit, error) {
	switch Unit(s) {
	case UnitMinute, UnitHour, UnitHalfDay, UnitDay, UnitWeek:
		return Unit(s), nil
	}
	return "", fmt.Errorf("unknown booking unit %q", s)
}

// Description returns the user-facing phrase for the unit.
func (u Unit) Description() string {
	switch u {
	case UnitMinute:
		return "booked by the minute"
	case UnitHour:
		return "booked by the hour"
	case UnitHalfDay:
		return "booked for a morning or an afternoon"
	case UnitDay:
		return "booked by the day"
	case UnitWeek:
		return "booked by the week"
	}
	return string(u)
}

// TimeOfDay is a wall-clock time used for allowed booking ranges.
type TimeOfDay struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

// ParseTimeOfDay parses "15:04" formatted strings.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("parsing time of day %q: %w", s, err)
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
}

// String formats the time of day as "15:04".
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Clock12 formats the time of day as "09:00AM" for user-facing messages.
func (t TimeOfDay) Clock12() string {
	return t.on(time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)).Format("03:04PM")
}

// Before reports whether t is earlier in the day than other.
func (t TimeOfDay) Before(other TimeOfDay) bool {
	return t.Hour < other.Hour || (t.Hour == other.Hour && t.Minute < other.Minute)
}

// on places the time of day on the calendar day of ref, in UTC.
func (t TimeOfDay) on(ref time.Time) time.Time {
	return time.Date(ref.Year(), ref.Month(), ref.Day(), t.Hour, t.Minute, 0, 0, time.UTC)
}

// Half-day slots and the day/week working window, in whole hours UTC.
const (
	morningStartHour   = 9
	morningEndHour     = 13
	afternoonStartHour = 14
	afternoonEndHour   = 18
)

// Constraint is the set of per-equipment scheduling rules applied to every
// reservation request. Which fields are meaningful depends on Unit: the
// allowed range only applies to minute and hour bookings, the other units
// carry fixed windows of their own.
type Constraint struct {
	Unit        Unit       `json:"unit"`
	AllowedDays [7]bool    `json:"allowed_days"` // Monday..Sunday
	RangeStart  *TimeOfDay `json:"range_start,omitempty"`
	RangeEnd    *TimeOfDay `json:"range_end,omitempty"`
	MinMinutes  int        `json:"min_minutes,omitempty"` // 0 means no minimum
	MaxMinutes  int        `json:"max_minutes,omitempty"` // 0 means no maximum
	Info        string     `json:"info,omitempty"`
}

// DefaultConstraint allows minute-level booking on any day.
func DefaultConstraint() *Constraint {
	return &Constraint{
		Unit:        UnitMinute,
		AllowedDays: [7]bool{true, true, true, true, true, true, true},
	}
}

// HasRange reports whether an allowed time-of-day range is configured.
func (c *Constraint) HasRange() bool {
	return c.RangeStart != nil && c.RangeEnd != nil
}

// weekdayIndex maps a time to the Monday=0..Sunday=6 convention used by
// AllowedDays.
func weekdayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

var dayNames = [7]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// AvailableDaysString returns a human-readable list of the days on which
// booking is allowed.
func (c *Constraint) AvailableDaysString() string {
	fullWeek := true
	workingWeek := true
	for i := 0; i < 7; i++ {
		if !c.AllowedDays[i] {
			fullWeek = false
			if i < 5 {
				workingWeek = false
			}
		}
	}

	switch {
	case fullWeek:
		return "any day"
	case workingWeek:
		return "Monday-Friday"
	default:
		var days []string
		for i, allowed := range c.AllowedDays {
			if allowed {
				days = append(days, dayNames[i])
			}
		}
		return strings.Join(days, ", ")
	}
}

// DescriptionLines returns the human-readable summary of the rules that
// apply to any booking of this equipment.
func (c *Constraint) DescriptionLines() []string {
	out := []string{fmt.Sprintf("This equipment is available to be %s.", c.Unit.Description())}

	switch c.Unit {
	case UnitHalfDay:
		out = append(out, "Half-day bookings allow access between either 9am-1pm, or 2pm-6pm.")
	case UnitDay:
		out = append(out, "Day bookings allow access between 9am-6pm.")
	case UnitWeek:
		out = append(out, "Week bookings allow access between Monday-Friday, 9am-6pm.")
	}

	if c.HasRange() && (c.Unit == UnitMinute || c.Unit == UnitHour) {
		out = append(out, fmt.Sprintf("Bookings allow access between %s-%s.",
			c.RangeStart.Clock12(), c.RangeEnd.Clock12()))
	}

	out = append(out, fmt.Sprintf("Bookings can be made on %s.", c.AvailableDaysString()))

	if c.MinMinutes > 0 {
		out = append(out, fmt.Sprintf("The minimum amount of time you can book is %s.", minutesToString(c.MinMinutes)))
	}
	if c.MaxMinutes > 0 {
		out = append(out, fmt.Sprintf("The maximum amount of time you can book is %s.", minutesToString(c.MaxMinutes)))
	}

	return out
}

// Validate checks the raw (start, end) pair against every rule and returns
// the canonical, unit-aligned pair. Allowed-day membership is checked on
// the pre-alignment weekdays; the min/max duration bounds are checked on
// the post-alignment duration, inclusive. Validating an already-canonical
// pair returns it unchanged.
func (c *Constraint) Validate(start, end time.Time) (time.Time, time.Time, error) {
	start = start.UTC().Truncate(time.Minute)
	end = end.UTC().Truncate(time.Minute)

	// Allowed days are enforced before any unit snapping so that a request
	// placed on a forbidden day cannot be rescued by alignment.
	if !c.AllowedDays[weekdayIndex(start)] {
		return start, end, constraintViolationf("you cannot start your booking on a %s; allowable days are %s",
			dayNames[weekdayIndex(start)], c.AvailableDaysString())
	}
	if !c.AllowedDays[weekdayIndex(end)] {
		return start, end, constraintViolationf("you cannot end your booking on a %s; allowable days are %s",
			dayNames[weekdayIndex(end)], c.AvailableDaysString())
	}

	if c.Unit != UnitMinute {
		// Everything coarser than a minute starts and stops on the hour.
		start = hourOn(start, start.Hour())
		end = hourOn(end, end.Hour())
	}

	var err error
	switch c.Unit {
	case UnitHalfDay:
		if start, err = snapHalfDayStart(start); err != nil {
			return start, end, err
		}
		if end, err = snapHalfDayEnd(end); err != nil {
			return start, end, err
		}
	case UnitDay:
		start = hourOn(start, morningStartHour)
		end = hourOn(end, afternoonEndHour)
	case UnitWeek:
		start = hourOn(start, morningStartHour)
		end = hourOn(end, afternoonEndHour)

		// Weeks run Monday 9am to Friday 6pm. The start always rolls back
		// to the preceding Monday. The end rolls forward to the Friday of
		// its own week for Mon-Thu, but a Sat/Sun end rolls on to the
		// *next* Friday; the asymmetry is kept for compatibility with
		// existing bookings.
		if iso := isoWeekday(start); iso != 1 {
			start = start.AddDate(0, 0, -(iso - 1))
		}
		if iso := isoWeekday(end); iso < 5 {
			end = end.AddDate(0, 0, 5-iso)
		} else if iso > 5 {
			end = end.AddDate(0, 0, 12-iso)
		}
	}

	if c.HasRange() && (c.Unit == UnitMinute || c.Unit == UnitHour) {
		if err := c.checkRange(start, end); err != nil {
			return start, end, err
		}
	}

	// Defensive: callers should already pass an ordered pair.
	if start.After(end) {
		start, end = end, start
	}

	if c.MinMinutes > 0 || c.MaxMinutes > 0 {
		mins := int(end.Sub(start) / time.Minute)
		if c.MinMinutes > 0 && mins < c.MinMinutes {
			return start, end, constraintViolationf("your booking is too short (%s); it needs to be at least %s",
				minutesToString(mins), minutesToString(c.MinMinutes))
		}
		if c.MaxMinutes > 0 && mins > c.MaxMinutes {
			return start, end, constraintViolationf("your booking is too long (%s); it needs to be less than %s",
				minutesToString(mins), minutesToString(c.MaxMinutes))
		}
	}

	return start, end, nil
}

// checkRange verifies that start and end each fall within the allowed
// range on their own calendar day. The four violations carry distinct
// messages so the user knows which edge to move.
func (c *Constraint) checkRange(start, end time.Time) error {
	dayStart := c.RangeStart.on(start)
	dayEnd := c.RangeEnd.on(start)

	if start.Before(dayStart) {
		return constraintViolationf("you cannot arrange a booking that starts before %s", c.RangeStart.Clock12())
	}
	if !start.Before(dayEnd) {
		return constraintViolationf("you cannot arrange a booking that starts after %s", c.RangeEnd.Clock12())
	}

	dayStart = c.RangeStart.on(end)
	dayEnd = c.RangeEnd.on(end)

	if !end.After(dayStart) {
		return constraintViolationf("you cannot arrange a booking that ends before %s", c.RangeStart.Clock12())
	}
	if end.After(dayEnd) {
		return constraintViolationf("you cannot arrange a booking that ends after %s", c.RangeEnd.Clock12())
	}

	return nil
}

// snapHalfDayStart snaps a start instant to the beginning of its half-day
// slot: [09:00,13:00) becomes 09:00, [14:00,18:00) becomes 14:00. The
// lunch gap and out-of-hours starts are rejected, not corrected.
func snapHalfDayStart(t time.Time) (time.Time, error) {
	morningStart := hourOn(t, morningStartHour)
	morningEnd := hourOn(t, morningEndHour)
	afternoonStart := hourOn(t, afternoonStartHour)
	afternoonEnd := hourOn(t, afternoonEndHour)

	switch {
	case !t.Before(morningStart) && t.Before(morningEnd):
		return morningStart, nil
	case !t.Before(afternoonStart) && t.Before(afternoonEnd):
		return afternoonStart, nil
	case t.Before(morningStart):
		return t, constraintViolationf("cannot book a half-day start time that is before 9am")
	case !t.Before(afternoonEnd):
		return t, constraintViolationf("cannot book a half-day start time that is after 6pm")
	default:
		return t, constraintViolationf("cannot book a half-day start time that is during the lunch break (1pm-2pm)")
	}
}

// snapHalfDayEnd snaps an end instant to the end of its half-day slot:
// (09:00,13:00] becomes 13:00, (14:00,18:00] becomes 18:00.
func snapHalfDayEnd(t time.Time) (time.Time, error) {
	morningStart := hourOn(t, morningStartHour)
	morningEnd := hourOn(t, morningEndHour)
	afternoonStart := hourOn(t, afternoonStartHour)
	afternoonEnd := hourOn(t, afternoonEndHour)

	switch {
	case t.After(morningStart) && !t.After(morningEnd):
		return morningEnd, nil
	case t.After(afternoonStart) && !t.After(afternoonEnd):
		return afternoonEnd, nil
	case !t.After(morningStart):
		return t, constraintViolationf("cannot book a half-day end time that is before 9am")
	case t.After(afternoonEnd):
		return t, constraintViolationf("cannot book a half-day end time that is after 6pm")
	default:
		return t, constraintViolationf("cannot book a half-day end time that is during the lunch break (1pm-2pm)")
	}
}

// hourOn returns t's calendar day at the given whole hour, UTC.
func hourOn(t time.Time, hour int) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), hour, 0, 0, 0, time.UTC)
}

// isoWeekday returns the ISO weekday: Monday=1..Sunday=7.
func isoWeekday(t time.Time) int {
	return weekdayIndex(t) + 1
}

// minutesToString renders a duration in minutes as a human-readable
// phrase, e.g. "1 day 2 hours 30 minutes".
func minutesToString(mins int) string {
	if mins <= 0 {
		return "0 minutes"
	}

	days := mins / (24 * 60)
	hours := (mins % (24 * 60)) / 60
	minutes := mins % 60

	var parts []string
	if days > 0 {
		parts = append(parts, plural(days, "day"))
	}
	if hours > 0 {
		parts = append(parts, plural(hours, "hour"))
	}
	if minutes > 0 {
		parts = append(parts, plural(minutes, "minute"))
	}

	return strings.Join(parts, " ")
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
