package websocket

import (
	"encoding/json"
	"time"
)

// MessageType identifies the type of WebSocket message.
type MessageType string

const (
	// Server -> Client event types
	TypeReservationCreated       MessageType = "reservation.created"
	TypeReservationStatusChanged MessageType = "reservation.status_changed"
	TypeNotification             MessageType = "notification"

	// Client -> Server command types
	TypePing MessageType = "ping"

	// Server -> Client response types
	TypePong  MessageType = "pong"
	TypeError MessageType = "error"
)

// Message represents a WebSocket message envelope.
type Message struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   any         `json:"payload"`
}

// NewMessage creates a new message with the current timestamp.
func NewMessage(msgType MessageType, payload any) Message {
	return Message{
		Type:      msgType,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// JSON serializes the message to JSON bytes.
func (m Message) JSON() ([]byte, error) {
	return json.Marshal(m)
}

// ReservationPayload is the payload for reservation.created events.
type ReservationPayload struct {
	ReservationID string    `json:"reservation_id"`
	EquipmentID   string    `json:"equipment_id"`
	User          string    `json:"user"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	Status        string    `json:"status"`
}

// ReservationStatusPayload is the payload for reservation.status_changed
// events.
type ReservationStatusPayload struct {
	ReservationID  string    `json:"reservation_id"`
	EquipmentID    string    `json:"equipment_id"`
	User           string    `json:"user"`
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
	PreviousStatus string    `json:"previous_status"`
	NewStatus      string    `json:"new_status"`
	DeniedReason   string    `json:"denied_reason,omitempty"`
}

// NotificationPayload is the payload for notification events.
type NotificationPayload struct {
	Level       string `json:"level"` // info, warning, error, success
	Title       string `json:"title"`
	Message     string `json:"message"`
	Dismissible bool   `json:"dismissible"`
}

// ErrorPayload is the payload for error messages.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
