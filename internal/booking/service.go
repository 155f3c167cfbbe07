package booking

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Service is the booking engine: it owns reservation creation, the status
// lifecycle and the coordination with the access gate, the external
// calendar and the notification fan-out.
type Service struct {
	ledger    Ledger
	directory Directory
	gate      AccessGate
	resolver  *Resolver
	calendar  CalendarSink
	notifier  Notifier
	clock     Clock
	log       *zap.Logger
}

func NewService(ledger Ledger, directory Directory, gate AccessGate, calendar CalendarSink, notifier Notifier, clock Clock, log *zap.Logger) *Service {
	return &Service{
		ledger:    ledger,
		directory: directory,
		gate:      gate,
		resolver:  NewResolver(ledger, clock, log),
		calendar:  calendar,
		notifier:  notifier,
		clock:     clock,
		log:       log,
	}
}

// MakeReservationRequest carries the raw user input for a new booking.
type MakeReservationRequest struct {
	EquipmentID string
	User        string
	Project     string
	StartTime   time.Time
	EndTime     time.Time
}

// MakeReservation validates, normalizes and reserves a time window on a
// piece of equipment. The returned reservation is in the reserved state
// and must still be confirmed by the user.
func (s *Service) MakeReservation(ctx context.Context, req MakeReservationRequest) (*Reservation, error) {
	eq, err := s.directory.GetEquipment(ctx, req.EquipmentID)
	if err != nil {
		return nil, err
	}

	if err := s.requireAuthorized(ctx, req.User, eq.ID); err != nil {
		return nil, err
	}

	constraint := eq.Constraint
	if constraint == nil {
		constraint = DefaultConstraint()
	}

	start, end, err := constraint.Validate(req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}

	if start.Equal(end) {
		return nil, constraintViolationf("could not create a reservation as the start and end times are the same (%s)",
			start.Format(timeDisplayFormat))
	}

	now := s.clock.Now()
	if start.Before(now) {
		return nil, pastStartError(start, now)
	}

	r := &Reservation{
		EquipmentID: eq.ID,
		User:        req.User,
		Project:     req.Project,
		StartTime:   start,
		EndTime:     end,
	}

	evicted, err := s.resolver.Reserve(ctx, r)
	if err != nil {
		return nil, err
	}

	s.log.Info("reservation created",
		zap.String("reservation_id", r.ID),
		zap.String("equipment_id", eq.ID),
		zap.String("user", r.User),
		zap.Time("start", r.StartTime),
		zap.Time("end", r.EndTime))

	s.notify(func(n Notifier) {
		n.ReservationCreated(*r)
		for _, loser := range evicted {
			n.ReservationStatusChanged(loser, StatusReserved)
		}
	})

	return r, nil
}

// ConfirmReservation moves a reserved booking forward: to confirmed, or
// to pending-authorization when the equipment demands sign-off. The
// user's requirement answers are validated and stored, the project is
// recorded, and the booking is pushed to the external calendar
// best-effort.
func (s *Service) ConfirmReservation(ctx context.Context, id, user, project string, answers map[string]string) (*Reservation, error) {
	r, err := s.ledger.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.requireOwnerOrAdmin(ctx, user, r); err != nil {
		return nil, err
	}

	if r.Status != StatusReserved {
		return nil, &InvalidStateTransition{Op: "confirm", From: r.Status}
	}

	eq, err := s.directory.GetEquipment(ctx, r.EquipmentID)
	if err != nil {
		return nil, err
	}

	values, err := eq.Requirements.Process(answers)
	if err != nil {
		return nil, err
	}
	r.RequirementValues = values

	// The project can be supplied or corrected at confirm time; an empty
	// value keeps whatever was given at creation.
	if project != "" {
		r.Project = project
	}

	previous := r.Status
	if eq.Requirements != nil && eq.Requirements.NeedsAuthorization {
		r.Status = StatusPendingAuthorization
	} else {
		r.Status = StatusConfirmed
	}

	// The calendar is secondary bookkeeping: a push failure never blocks
	// the confirmation. The reconciler retries unsynced bookings later.
	if s.calendar != nil {
		eventID, err := s.calendar.AddEvent(ctx, s.eventFor(eq, r))
		if err != nil {
			s.log.Warn("failed to push booking to external calendar",
				zap.String("reservation_id", r.ID), zap.Error(err))
		} else {
			r.ExternalCalendarID = eventID
		}
	}

	if err := s.ledger.Update(ctx, r); err != nil {
		return nil, fmt.Errorf("updating confirmed reservation: %w", err)
	}

	s.log.Info("reservation confirmed",
		zap.String("reservation_id", r.ID),
		zap.String("status", string(r.Status)))

	s.notify(func(n Notifier) { n.ReservationStatusChanged(*r, previous) })

	return r, nil
}

// CancelReservation withdraws a booking. A booking that has already
// started but not finished is truncated to now instead of removed, so the
// usage that already happened stays on the record.
func (s *Service) CancelReservation(ctx context.Context, id, user string) (*Reservation, error) {
	r, err := s.ledger.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.requireOwnerOrAdmin(ctx, user, r); err != nil {
		return nil, err
	}

	if r.Status.Terminal() {
		return nil, &InvalidStateTransition{Op: "cancel", From: r.Status}
	}

	now := s.clock.Now()
	previous := r.Status

	switch r.Status {
	case StatusConfirmed, StatusPendingAuthorization:
		if r.IsPast(now) {
			return nil, temporalGuardf("cancel", "cannot cancel a booking that has already finished")
		}

		if r.HasStarted(now) {
			// Partial cancellation: release the remainder of the window
			// and leave the status alone.
			r.EndTime = now
			s.updateCalendarEvent(ctx, r)

			if err := s.ledger.Update(ctx, r); err != nil {
				return nil, fmt.Errorf("truncating running reservation: %w", err)
			}

			s.log.Info("reservation truncated",
				zap.String("reservation_id", r.ID),
				zap.Time("new_end", r.EndTime))

			s.notify(func(n Notifier) { n.ReservationStatusChanged(*r, previous) })
			return r, nil
		}

		s.removeCalendarEvent(ctx, r)
		r.Status = StatusCancelled

	case StatusReserved:
		r.Status = StatusCancelled
	}

	if err := s.ledger.Update(ctx, r); err != nil {
		return nil, fmt.Errorf("cancelling reservation: %w", err)
	}

	s.log.Info("reservation cancelled",
		zap.String("reservation_id", r.ID),
		zap.String("user", user))

	s.notify(func(n Notifier) { n.ReservationStatusChanged(*r, previous) })

	return r, nil
}

// DenyReservation is the administrator's rejection of a booking awaiting
// authorization. The reason is recorded on the reservation.
func (s *Service) DenyReservation(ctx context.Context, id, admin, reason string) (*Reservation, error) {
	r, err := s.ledger.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.requireAdministrator(ctx, admin, r.EquipmentID); err != nil {
		return nil, err
	}

	if r.Status != StatusPendingAuthorization {
		return nil, &InvalidStateTransition{Op: "deny", From: r.Status}
	}

	now := s.clock.Now()
	if r.IsPast(now) {
		return nil, temporalGuardf("deny", "cannot deny a booking that has already finished")
	}

	s.removeCalendarEvent(ctx, r)

	previous := r.Status
	r.Status = StatusDenied
	r.DeniedReason = reason

	if err := s.ledger.Update(ctx, r); err != nil {
		return nil, fmt.Errorf("denying reservation: %w", err)
	}

	s.log.Info("reservation denied",
		zap.String("reservation_id", r.ID),
		zap.String("admin", admin),
		zap.String("reason", reason))

	s.notify(func(n Notifier) { n.ReservationStatusChanged(*r, previous) })

	return r, nil
}

// AuthorizeReservation is the administrator's approval of a booking
// awaiting authorization.
func (s *Service) AuthorizeReservation(ctx context.Context, id, admin string) (*Reservation, error) {
	r, err := s.ledger.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.requireAdministrator(ctx, admin, r.EquipmentID); err != nil {
		return nil, err
	}

	if r.Status != StatusPendingAuthorization {
		return nil, &InvalidStateTransition{Op: "authorize", From: r.Status}
	}

	now := s.clock.Now()
	if r.IsPast(now) {
		return nil, temporalGuardf("authorize", "cannot authorize a booking that has already finished")
	}
	if r.HasStarted(now) {
		return nil, temporalGuardf("authorize", "cannot authorize a booking that has already started")
	}

	previous := r.Status
	r.Status = StatusConfirmed

	if err := s.ledger.Update(ctx, r); err != nil {
		return nil, fmt.Errorf("authorizing reservation: %w", err)
	}

	s.log.Info("reservation authorized",
		zap.String("reservation_id", r.ID),
		zap.String("admin", admin))

	s.notify(func(n Notifier) { n.ReservationStatusChanged(*r, previous) })

	return r, nil
}

// GetReservation returns a single reservation by id.
func (s *Service) GetReservation(ctx context.Context, id string) (*Reservation, error) {
	return s.ledger.Get(ctx, id)
}

// ListBookings queries the ledger across equipment, users, statuses and
// time ranges.
func (s *Service) ListBookings(ctx context.Context, f ListFilter) ([]Reservation, error) {
	return s.ledger.List(ctx, f)
}

func (s *Service) requireAuthorized(ctx context.Context, user, equipmentID string) error {
	ok, err := s.gate.IsAuthorized(ctx, user, equipmentID)
	if err != nil {
		return fmt.Errorf("checking authorization: %w", err)
	}
	if !ok {
		return &PermissionError{User: user, EquipmentID: equipmentID}
	}
	return nil
}

func (s *Service) requireAdministrator(ctx context.Context, user, equipmentID string) error {
	ok, err := s.gate.IsAdministrator(ctx, user, equipmentID)
	if err != nil {
		return fmt.Errorf("checking administrator rights: %w", err)
	}
	if !ok {
		return &PermissionError{User: user, EquipmentID: equipmentID, Admin: true}
	}
	return nil
}

// requireOwnerOrAdmin allows the booking's owner through directly and
// anyone else only with administrator rights on the equipment.
func (s *Service) requireOwnerOrAdmin(ctx context.Context, user string, r *Reservation) error {
	if user == r.User {
		return s.requireAuthorized(ctx, user, r.EquipmentID)
	}
	return s.requireAdministrator(ctx, user, r.EquipmentID)
}

// eventFor projects a reservation onto the external calendar.
func (s *Service) eventFor(eq *Equipment, r *Reservation) Event {
	var desc strings.Builder
	if r.Project != "" {
		fmt.Fprintf(&desc, "Project: %s\n", r.Project)
	}
	for _, v := range r.RequirementValues {
		fmt.Fprintf(&desc, "%s: %s\n", v.Name, v.Value)
	}

	return Event{
		Summary:     fmt.Sprintf("%s booked by %s", eq.Name, r.User),
		Location:    eq.Laboratory,
		Description: desc.String(),
		Start:       r.StartTime,
		End:         r.EndTime,
	}
}

func (s *Service) updateCalendarEvent(ctx context.Context, r *Reservation) {
	if s.calendar == nil || r.ExternalCalendarID == "" {
		return
	}

	eq, err := s.directory.GetEquipment(ctx, r.EquipmentID)
	if err != nil {
		s.log.Warn("failed to load equipment for calendar update",
			zap.String("reservation_id", r.ID), zap.Error(err))
		return
	}

	if err := s.calendar.UpdateEvent(ctx, r.ExternalCalendarID, s.eventFor(eq, r)); err != nil {
		s.log.Warn("failed to update external calendar event",
			zap.String("reservation_id", r.ID),
			zap.String("event_id", r.ExternalCalendarID),
			zap.Error(err))
	}
}

func (s *Service) removeCalendarEvent(ctx context.Context, r *Reservation) {
	if s.calendar == nil || r.ExternalCalendarID == "" {
		return
	}

	if err := s.calendar.RemoveEvent(ctx, r.ExternalCalendarID); err != nil {
		s.log.Warn("failed to remove external calendar event",
			zap.String("reservation_id", r.ID),
			zap.String("event_id", r.ExternalCalendarID),
			zap.Error(err))
		return
	}
	r.ExternalCalendarID = ""
}

func (s *Service) notify(fn func(Notifier)) {
	if s.notifier != nil {
		fn(s.notifier)
	}
}
