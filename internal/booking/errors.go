package booking

import (
	"fmt"
	"strings"
	"time"
)

// ConstraintViolation reports a reservation request that breaks the
// equipment's booking rules. The message is user-correctable and is
// surfaced to the caller verbatim.
type ConstraintViolation struct {
	Message string
}

func (e *ConstraintViolation) Error() string {
	return e.Message
}

func constraintViolationf(format string, args ...any) error {
	return &ConstraintViolation{Message: fmt.Sprintf(format, args...)}
}

// BookingConflict reports that a reservation lost the race for a time
// window. Blockers lists every reservation that beat it.
type BookingConflict struct {
	Blockers []Reservation
}

func (e *BookingConflict) Error() string {
	parts := make([]string, 0, len(e.Blockers))
	for _, b := range e.Blockers {
		window := fmt.Sprintf("%s until %s",
			b.StartTime.Format(timeDisplayFormat),
			b.EndTime.Format(timeDisplayFormat))
		if b.Status == StatusConfirmed {
			parts = append(parts, fmt.Sprintf("%s [%s]", b.User, window))
		} else {
			parts = append(parts, fmt.Sprintf("%s [%s - NOT CONFIRMED YET]", b.User, window))
		}
	}
	return fmt.Sprintf("cannot create a reservation for this time as someone else has already created a booking: %s",
		strings.Join(parts, ", "))
}

const timeDisplayFormat = "02/01/06 15:04"

// InvalidStateTransition reports an operation attempted on a reservation
// that is not in a state the operation accepts.
type InvalidStateTransition struct {
	Op   string
	From Status
}

func (e *InvalidStateTransition) Error() string {
	return fmt.Sprintf("cannot %s a reservation in the %q state", e.Op, e.From)
}

// TemporalGuardError reports a mutation attempted on a booking whose
// relevant time boundary has already passed.
type TemporalGuardError struct {
	Op      string
	Message string
}

func (e *TemporalGuardError) Error() string {
	return e.Message
}

func temporalGuardf(op, format string, args ...any) error {
	return &TemporalGuardError{Op: op, Message: fmt.Sprintf(format, args...)}
}

// PermissionError reports an access-control gate rejection.
type PermissionError struct {
	User        string
	EquipmentID string
	Admin       bool
}

func (e *PermissionError) Error() string {
	if e.Admin {
		return fmt.Sprintf("user %q is not an administrator of equipment %q", e.User, e.EquipmentID)
	}
	return fmt.Sprintf("user %q is not authorized to use equipment %q", e.User, e.EquipmentID)
}

// RequirementValidationError aggregates the per-field failures from
// validating user-supplied requirement answers at confirm time.
type RequirementValidationError struct {
	Problems []string
}

func (e *RequirementValidationError) Error() string {
	return fmt.Sprintf("there were problems processing the supplied requirements: %s",
		strings.Join(e.Problems, "; "))
}

// NotFoundError reports a missing equipment or reservation.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("there is no %s with ID %q", e.Kind, e.ID)
}

// pastStartError is the shared wording for attempts to reserve backwards
// in time.
func pastStartError(start, now time.Time) error {
	return constraintViolationf("could not create a reservation as the start time (%s) is in the past (now is %s)",
		start.Format(time.RFC3339), now.Format(time.RFC3339))
}
