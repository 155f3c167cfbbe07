package calendar

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lab-scheduler/backend/internal/booking"
)

type staticDirectory struct{}

func (staticDirectory) GetEquipment(_ context.Context, id string) (*booking.Equipment, error) {
	return &booking.Equipment{ID: id, Name: "Centrifuge", Laboratory: "Lab 1"}, nil
}

type scriptedSink struct {
	fail  map[int]bool // by call index
	calls int
	added []booking.Event
}

func (s *scriptedSink) AddEvent(_ context.Context, ev booking.Event) (string, error) {
	defer func() { s.calls++ }()
	if s.fail[s.calls] {
		return "", errors.New("calendar unreachable")
	}
	s.added = append(s.added, ev)
	return "evt-1", nil
}

func (s *scriptedSink) UpdateEvent(context.Context, string, booking.Event) error { return nil }
func (s *scriptedSink) RemoveEvent(context.Context, string) error                { return nil }

func seed(t *testing.T, ledger *booking.MemoryLedger, status booking.Status, calendarID string) booking.Reservation {
	t.Helper()

	r := booking.Reservation{
		EquipmentID:        "centrifuge",
		User:               "alice@lab.example",
		StartTime:          time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC),
		EndTime:            time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC),
		Status:             status,
		ExternalCalendarID: calendarID,
	}
	require.NoError(t, ledger.Create(context.Background(), &r))
	return r
}

func TestReconcilerPushesUnsyncedBookings(t *testing.T) {
	ledger := booking.NewMemoryLedger()
	sink := &scriptedSink{}
	rec := NewReconciler(ledger, staticDirectory{}, sink, zap.NewNop())

	unsynced := seed(t, ledger, booking.StatusConfirmed, "")
	seed(t, ledger, booking.StatusConfirmed, "already-synced")
	seed(t, ledger, booking.StatusCancelled, "")

	result, err := rec.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Unsynced)
	assert.Equal(t, 1, result.Pushed)
	assert.Equal(t, 0, result.Failed)

	require.Len(t, sink.added, 1)
	assert.Equal(t, "Centrifuge booked by alice@lab.example", sink.added[0].Summary)

	stored, err := ledger.Get(context.Background(), unsynced.ID)
	require.NoError(t, err)
	assert.Equal(t, "evt-1", stored.ExternalCalendarID)
}

func TestReconcilerKeepsGoingAfterPushFailure(t *testing.T) {
	ledger := booking.NewMemoryLedger()
	sink := &scriptedSink{fail: map[int]bool{0: true}}
	rec := NewReconciler(ledger, staticDirectory{}, sink, zap.NewNop())

	seed(t, ledger, booking.StatusConfirmed, "")
	seed(t, ledger, booking.StatusPendingAuthorization, "")

	result, err := rec.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Unsynced)
	assert.Equal(t, 1, result.Pushed)
	assert.Equal(t, 1, result.Failed)
}
