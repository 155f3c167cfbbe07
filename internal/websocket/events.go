package websocket

import (
	"go.uber.org/zap"

	"github.com/lab-scheduler/backend/internal/booking"
)

// EventBroadcaster projects booking lifecycle events onto the hub. It
// implements booking.Notifier.
type EventBroadcaster struct {
	hub *Hub
	log *zap.Logger
}

// NewEventBroadcaster creates a new event broadcaster.
func NewEventBroadcaster(hub *Hub, log *zap.Logger) *EventBroadcaster {
	return &EventBroadcaster{hub: hub, log: log}
}

// ReservationCreated broadcasts a newly reserved booking.
func (b *EventBroadcaster) ReservationCreated(r booking.Reservation) {
	b.broadcast(NewMessage(TypeReservationCreated, ReservationPayload{
		ReservationID: r.ID,
		EquipmentID:   r.EquipmentID,
		User:          r.User,
		StartTime:     r.StartTime,
		EndTime:       r.EndTime,
		Status:        string(r.Status),
	}))
}

// ReservationStatusChanged broadcasts a booking lifecycle transition,
// including the end-time truncation of a partial cancellation.
func (b *EventBroadcaster) ReservationStatusChanged(r booking.Reservation, previous booking.Status) {
	b.broadcast(NewMessage(TypeReservationStatusChanged, ReservationStatusPayload{
		ReservationID:  r.ID,
		EquipmentID:    r.EquipmentID,
		User:           r.User,
		StartTime:      r.StartTime,
		EndTime:        r.EndTime,
		PreviousStatus: string(previous),
		NewStatus:      string(r.Status),
		DeniedReason:   r.DeniedReason,
	}))
}

// BroadcastNotification sends a free-form notification to all connected
// clients.
func (b *EventBroadcaster) BroadcastNotification(level, title, message string) {
	b.broadcast(NewMessage(TypeNotification, NotificationPayload{
		Level:       level,
		Title:       title,
		Message:     message,
		Dismissible: true,
	}))
}

func (b *EventBroadcaster) broadcast(msg Message) {
	data, err := msg.JSON()
	if err != nil {
		b.log.Warn("failed to encode websocket message", zap.Error(err))
		return
	}

	b.hub.Broadcast(data)
}
