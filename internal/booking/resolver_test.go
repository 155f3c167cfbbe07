package booking

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func fixedClock(t time.Time) Clock {
	return ClockFunc(func() time.Time { return t })
}

func seedReservation(t *testing.T, ledger *MemoryLedger, r Reservation) Reservation {
	t.Helper()
	require.NoError(t, ledger.Create(context.Background(), &r))
	return r
}

func TestReserveNoOverlapSucceeds(t *testing.T) {
	ledger := NewMemoryLedger()
	rv := NewResolver(ledger, fixedClock(ts(1, 8, 0)), zap.NewNop())

	seedReservation(t, ledger, Reservation{
		EquipmentID: "eq1", User: "alice",
		StartTime: ts(5, 10, 0), EndTime: ts(5, 12, 0),
		CreatedAt: ts(1, 0, 0), Status: StatusConfirmed,
	})

	// Touching endpoints do not overlap.
	r := &Reservation{EquipmentID: "eq1", User: "bob", StartTime: ts(5, 12, 0), EndTime: ts(5, 14, 0)}
	evicted, err := rv.Reserve(context.Background(), r)
	require.NoError(t, err)
	assert.Empty(t, evicted)
	assert.Equal(t, StatusReserved, r.Status)
	assert.NotEmpty(t, r.ID)
}

func TestReserveConfirmedBlockerWins(t *testing.T) {
	ledger := NewMemoryLedger()
	rv := NewResolver(ledger, fixedClock(ts(1, 8, 0)), zap.NewNop())

	seedReservation(t, ledger, Reservation{
		EquipmentID: "eq1", User: "alice",
		StartTime: ts(5, 10, 0), EndTime: ts(5, 12, 0),
		CreatedAt: ts(2, 0, 0), Status: StatusConfirmed,
	})

	r := &Reservation{EquipmentID: "eq1", User: "bob", StartTime: ts(5, 11, 0), EndTime: ts(5, 13, 0)}
	_, err := rv.Reserve(context.Background(), r)

	var conflict *BookingConflict
	require.ErrorAs(t, err, &conflict)
	require.Len(t, conflict.Blockers, 1)
	assert.Equal(t, "alice", conflict.Blockers[0].User)
	assert.NotContains(t, conflict.Error(), "NOT CONFIRMED YET")

	// The losing candidate must not linger in the ledger.
	all, err := ledger.List(context.Background(), ListFilter{EquipmentID: "eq1"})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestReserveEarlierReservedClaimBlocks(t *testing.T) {
	ledger := NewMemoryLedger()
	rv := NewResolver(ledger, fixedClock(ts(2, 0, 0)), zap.NewNop())

	seedReservation(t, ledger, Reservation{
		EquipmentID: "eq1", User: "alice",
		StartTime: ts(5, 10, 0), EndTime: ts(5, 12, 0),
		CreatedAt: ts(1, 0, 0), Status: StatusReserved,
	})

	r := &Reservation{EquipmentID: "eq1", User: "bob", StartTime: ts(5, 11, 0), EndTime: ts(5, 13, 0)}
	_, err := rv.Reserve(context.Background(), r)

	var conflict *BookingConflict
	require.ErrorAs(t, err, &conflict)
	assert.Contains(t, conflict.Error(), "NOT CONFIRMED YET")

	// The earlier claim stays reserved, untouched by the losing attempt.
	all, err := ledger.List(context.Background(), ListFilter{EquipmentID: "eq1", Status: StatusReserved})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "alice", all[0].User)
}

func TestReserveLaterReservedClaimIsEvicted(t *testing.T) {
	ledger := NewMemoryLedger()
	rv := NewResolver(ledger, fixedClock(ts(1, 0, 0)), zap.NewNop())

	existing := seedReservation(t, ledger, Reservation{
		EquipmentID: "eq1", User: "alice",
		StartTime: ts(5, 10, 0), EndTime: ts(5, 12, 0),
		CreatedAt: ts(2, 0, 0), Status: StatusReserved,
	})

	r := &Reservation{EquipmentID: "eq1", User: "bob", StartTime: ts(5, 11, 0), EndTime: ts(5, 13, 0)}
	evicted, err := rv.Reserve(context.Background(), r)
	require.NoError(t, err)
	require.Len(t, evicted, 1)
	assert.Equal(t, existing.ID, evicted[0].ID)

	loser, err := ledger.Get(context.Background(), existing.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, loser.Status)

	winner, err := ledger.Get(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusReserved, winner.Status)
}

func TestReserveEqualCreatedAtTieBreak(t *testing.T) {
	now := ts(1, 0, 0)

	t.Run("later user beats earlier user", func(t *testing.T) {
		ledger := NewMemoryLedger()
		rv := NewResolver(ledger, fixedClock(now), zap.NewNop())

		existing := seedReservation(t, ledger, Reservation{
			EquipmentID: "eq1", User: "alice",
			StartTime: ts(5, 10, 0), EndTime: ts(5, 12, 0),
			CreatedAt: now, Status: StatusReserved,
		})

		r := &Reservation{EquipmentID: "eq1", User: "zoe", StartTime: ts(5, 10, 0), EndTime: ts(5, 12, 0)}
		evicted, err := rv.Reserve(context.Background(), r)
		require.NoError(t, err)
		require.Len(t, evicted, 1)
		assert.Equal(t, existing.ID, evicted[0].ID)
	})

	t.Run("earlier user loses to later user", func(t *testing.T) {
		ledger := NewMemoryLedger()
		rv := NewResolver(ledger, fixedClock(now), zap.NewNop())

		seedReservation(t, ledger, Reservation{
			EquipmentID: "eq1", User: "zoe",
			StartTime: ts(5, 10, 0), EndTime: ts(5, 12, 0),
			CreatedAt: now, Status: StatusReserved,
		})

		r := &Reservation{EquipmentID: "eq1", User: "alice", StartTime: ts(5, 10, 0), EndTime: ts(5, 12, 0)}
		_, err := rv.Reserve(context.Background(), r)

		var conflict *BookingConflict
		require.ErrorAs(t, err, &conflict)
		require.Len(t, conflict.Blockers, 1)
		assert.Equal(t, "zoe", conflict.Blockers[0].User)
	})
}

func TestReserveEqualCreatedAtTieBreakUnderInterleaving(t *testing.T) {
	// With a fixed clock every candidate carries the same created_at, so
	// the user tie-break alone must decide the race. Whatever order the
	// goroutines run in, the alphabetically last user ends up the sole
	// reserved holder.
	users := []string{"alice", "bob", "carol", "dave", "erin", "zoe"}

	for round := 0; round < 20; round++ {
		ledger := NewMemoryLedger()
		rv := NewResolver(ledger, fixedClock(ts(1, 0, 0)), zap.NewNop())

		shuffled := append([]string(nil), users...)
		rand.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})

		var (
			mu   sync.Mutex
			errs = make(map[string]error, len(shuffled))
			wg   sync.WaitGroup
		)
		for _, user := range shuffled {
			wg.Add(1)
			go func(user string) {
				defer wg.Done()
				r := &Reservation{
					EquipmentID: "eq1", User: user,
					StartTime: ts(5, 10, 0), EndTime: ts(5, 12, 0),
				}
				_, err := rv.Reserve(context.Background(), r)
				mu.Lock()
				errs[user] = err
				mu.Unlock()
			}(user)
		}
		wg.Wait()

		require.NoError(t, errs["zoe"], "round %d: the last user in the order can never be blocked", round)

		reserved, err := ledger.List(context.Background(), ListFilter{EquipmentID: "eq1", Status: StatusReserved})
		require.NoError(t, err)
		require.Len(t, reserved, 1, "round %d: exactly one claim may survive", round)
		assert.Equal(t, "zoe", reserved[0].User, "round %d", round)
	}
}

func TestReservePendingAuthorizationDoesNotBlock(t *testing.T) {
	ledger := NewMemoryLedger()
	rv := NewResolver(ledger, fixedClock(ts(2, 0, 0)), zap.NewNop())

	seedReservation(t, ledger, Reservation{
		EquipmentID: "eq1", User: "alice",
		StartTime: ts(5, 10, 0), EndTime: ts(5, 12, 0),
		CreatedAt: ts(1, 0, 0), Status: StatusPendingAuthorization,
	})

	r := &Reservation{EquipmentID: "eq1", User: "bob", StartTime: ts(5, 10, 0), EndTime: ts(5, 12, 0)}
	evicted, err := rv.Reserve(context.Background(), r)
	require.NoError(t, err)
	assert.Empty(t, evicted, "pending claims hold no exclusivity and are not evicted")
}

func TestReserveIgnoresOtherEquipment(t *testing.T) {
	ledger := NewMemoryLedger()
	rv := NewResolver(ledger, fixedClock(ts(2, 0, 0)), zap.NewNop())

	seedReservation(t, ledger, Reservation{
		EquipmentID: "eq2", User: "alice",
		StartTime: ts(5, 10, 0), EndTime: ts(5, 12, 0),
		CreatedAt: ts(1, 0, 0), Status: StatusConfirmed,
	})

	r := &Reservation{EquipmentID: "eq1", User: "bob", StartTime: ts(5, 10, 0), EndTime: ts(5, 12, 0)}
	_, err := rv.Reserve(context.Background(), r)
	assert.NoError(t, err)
}
