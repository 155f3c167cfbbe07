// Package booking implements the reservation engine for shared lab
// equipment: time-unit normalization, constraint validation, optimistic
// conflict resolution and the booking status lifecycle.
package booking

import (
	"context"
	"time"
)

// Status is the lifecycle state of a reservation.
type Status string

const (
	StatusReserved             Status = "reserved"
	StatusConfirmed            Status = "confirmed"
	StatusPendingAuthorization Status = "pending_authorization"
	StatusDenied               Status = "denied"
	StatusCancelled            Status = "cancelled"
)

// Terminal reports whether no further transitions are allowed from s.
func (s Status) Terminal() bool {
	return s == StatusDenied || s == StatusCancelled
}

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusReserved, StatusConfirmed, StatusPendingAuthorization, StatusDenied, StatusCancelled:
		return true
	}
	return false
}

// Reservation is a user's claim on a piece of equipment for a half-open
// time interval [StartTime, EndTime). It is exclusively owned by its
// equipment; User is a back-reference only.
type Reservation struct {
	ID                 string             `json:"id"`
	EquipmentID        string             `json:"equipment_id"`
	User               string             `json:"user"`
	Project            string             `json:"project,omitempty"`
	StartTime          time.Time          `json:"start_time"`
	EndTime            time.Time          `json:"end_time"`
	CreatedAt          time.Time          `json:"created_at"`
	Status             Status             `json:"status"`
	ExternalCalendarID string             `json:"external_calendar_id,omitempty"`
	DeniedReason       string             `json:"denied_reason,omitempty"`
	RequirementValues  []RequirementValue `json:"requirement_values,omitempty"`
}

// Overlaps reports whether the reservation's interval intersects
// [start, end) with half-open semantics: touching endpoints do not
// overlap.
func (r *Reservation) Overlaps(start, end time.Time) bool {
	return r.EndTime.After(start) && r.StartTime.Before(end)
}

// IsPast reports whether the reservation ended at or before now.
func (r *Reservation) IsPast(now time.Time) bool {
	return !r.EndTime.After(now)
}

// HasStarted reports whether the reservation began at or before now.
func (r *Reservation) HasStarted(now time.Time) bool {
	return !r.StartTime.After(now)
}

// IsActive reports whether a confirmed reservation is running at now.
func (r *Reservation) IsActive(now time.Time) bool {
	return r.Status == StatusConfirmed && r.HasStarted(now) && !r.IsPast(now)
}

// Clock supplies the current UTC time. Injected so that the resolver's
// tie-break and the state machine's temporal guards are testable.
type Clock interface {
	Now() time.Time
}

// UTCClock is the production Clock.
type UTCClock struct{}

func (UTCClock) Now() time.Time {
	return time.Now().UTC()
}

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time {
	return f()
}

// Equipment is the bookable resource as the engine sees it: identity plus
// the scheduling rules and the confirm-time requirements.
type Equipment struct {
	ID            string
	Name          string
	Laboratory    string
	EquipmentType string
	Constraint    *Constraint
	Requirements  *RequirementSet
}

// Directory resolves equipment by id. Implemented by the storage layer.
type Directory interface {
	GetEquipment(ctx context.Context, id string) (*Equipment, error)
}

// AccessGate supplies the authorization decisions consumed before any
// mutating call. Implemented by the access package.
type AccessGate interface {
	IsAuthorized(ctx context.Context, user, equipmentID string) (bool, error)
	IsAdministrator(ctx context.Context, user, equipmentID string) (bool, error)
}

// Event is the booking projected onto the external calendar.
type Event struct {
	ID          string
	Summary     string
	Location    string
	Description string
	Start       time.Time
	End         time.Time
}

// CalendarSink is the external calendar collaborator. Failures after a
// state transition are secondary bookkeeping: they are logged by the
// caller, never propagated.
type CalendarSink interface {
	AddEvent(ctx context.Context, ev Event) (string, error)
	UpdateEvent(ctx context.Context, eventID string, ev Event) error
	RemoveEvent(ctx context.Context, eventID string) error
}

// Notifier receives booking lifecycle events for fan-out to connected
// clients. Implemented by the websocket package.
type Notifier interface {
	ReservationCreated(r Reservation)
	ReservationStatusChanged(r Reservation, previous Status)
}
