package calendar

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/lab-scheduler/backend/internal/booking"
)

// Reconciler re-pushes bookings that confirmed while the calendar was
// unreachable. Confirm never waits on the calendar, so a confirmed or
// pending booking with no external event id is simply one the calendar
// hasn't heard about yet.
type Reconciler struct {
	ledger    booking.Ledger
	directory booking.Directory
	sink      booking.CalendarSink
	log       *zap.Logger
}

func NewReconciler(ledger booking.Ledger, directory booking.Directory, sink booking.CalendarSink, log *zap.Logger) *Reconciler {
	return &Reconciler{ledger: ledger, directory: directory, sink: sink, log: log}
}

// Result summarizes one reconciliation pass.
type Result struct {
	Unsynced int
	Pushed   int
	Failed   int
}

// Run pushes every unsynced live booking to the calendar. Individual
// push failures are logged and retried on the next pass.
func (r *Reconciler) Run(ctx context.Context) (*Result, error) {
	result := &Result{}

	for _, status := range []booking.Status{booking.StatusConfirmed, booking.StatusPendingAuthorization} {
		unsynced, err := r.ledger.List(ctx, booking.ListFilter{
			Status:            status,
			MissingCalendarID: true,
		})
		if err != nil {
			return nil, fmt.Errorf("listing unsynced bookings: %w", err)
		}

		result.Unsynced += len(unsynced)

		for i := range unsynced {
			res := unsynced[i]
			if err := r.push(ctx, &res); err != nil {
				result.Failed++
				r.log.Warn("failed to push booking to calendar",
					zap.String("reservation_id", res.ID), zap.Error(err))
				continue
			}
			result.Pushed++
		}
	}

	return result, nil
}

func (r *Reconciler) push(ctx context.Context, res *booking.Reservation) error {
	eq, err := r.directory.GetEquipment(ctx, res.EquipmentID)
	if err != nil {
		return fmt.Errorf("loading equipment: %w", err)
	}

	var desc string
	for _, v := range res.RequirementValues {
		desc += fmt.Sprintf("%s: %s\n", v.Name, v.Value)
	}

	eventID, err := r.sink.AddEvent(ctx, booking.Event{
		Summary:     fmt.Sprintf("%s booked by %s", eq.Name, res.User),
		Location:    eq.Laboratory,
		Description: desc,
		Start:       res.StartTime,
		End:         res.EndTime,
	})
	if err != nil {
		return err
	}

	res.ExternalCalendarID = eventID
	if err := r.ledger.Update(ctx, res); err != nil {
		return fmt.Errorf("recording calendar event id: %w", err)
	}

	r.log.Info("booking pushed to calendar",
		zap.String("reservation_id", res.ID),
		zap.String("event_id", eventID))
	return nil
}
