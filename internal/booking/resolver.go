package booking

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Resolver implements optimistic insert-then-scan conflict resolution.
// The candidate reservation is written to the ledger first, then the
// equipment's forward-looking window is scanned; the deterministic total
// order (created_at ascending, then user descending) decides every race,
// so concurrent resolvers always agree on the same winner.
type Resolver struct {
	ledger Ledger
	clock  Clock
	log    *zap.Logger
}

func NewResolver(ledger Ledger, clock Clock, log *zap.Logger) *Resolver {
	return &Resolver{ledger: ledger, clock: clock, log: log}
}

// Reserve inserts r and resolves it against every overlapping claim. On
// success r holds its assigned ID and is in the reserved state, and any
// evicted losers are returned. On conflict the candidate row is removed
// and a BookingConflict enumerating the blockers is returned.
func (rv *Resolver) Reserve(ctx context.Context, r *Reservation) ([]Reservation, error) {
	r.Status = StatusReserved
	r.CreatedAt = rv.clock.Now()

	if err := rv.ledger.Create(ctx, r); err != nil {
		return nil, fmt.Errorf("inserting candidate reservation: %w", err)
	}

	others, err := rv.ledger.EndingAfter(ctx, r.EquipmentID, r.StartTime)
	if err != nil {
		// The scan failed, so exclusivity cannot be established. Withdraw
		// the candidate rather than leave an unresolved claim behind.
		rv.withdraw(ctx, r.ID)
		return nil, fmt.Errorf("scanning for overlapping reservations: %w", err)
	}

	var blockers, losers []Reservation

	for _, other := range others {
		if other.ID == r.ID || !other.StartTime.Before(r.EndTime) {
			continue
		}

		switch other.Status {
		case StatusConfirmed:
			blockers = append(blockers, other)

		case StatusReserved:
			switch {
			case other.CreatedAt.Before(r.CreatedAt):
				blockers = append(blockers, other)
			case other.CreatedAt.Equal(r.CreatedAt):
				// Same instant: the alphabetically later user wins, so
				// both sides of a symmetric race reach the same verdict.
				if other.User < r.User {
					losers = append(losers, other)
				} else {
					blockers = append(blockers, other)
				}
			default:
				losers = append(losers, other)
			}

		case StatusPendingAuthorization, StatusCancelled, StatusDenied:
			// Pending claims hold no exclusivity until authorized.
		}
	}

	if len(blockers) > 0 {
		rv.withdraw(ctx, r.ID)
		return nil, &BookingConflict{Blockers: blockers}
	}

	// Evictions are best-effort: a failed cancellation is logged and
	// skipped, and the loser is left behind without a notification.
	evicted := make([]Reservation, 0, len(losers))
	for _, loser := range losers {
		loser.Status = StatusCancelled
		if err := rv.ledger.Update(ctx, &loser); err != nil {
			rv.log.Warn("failed to cancel losing reservation",
				zap.String("reservation_id", loser.ID),
				zap.String("equipment_id", loser.EquipmentID),
				zap.Error(err))
			continue
		}
		rv.log.Info("cancelled losing reservation",
			zap.String("reservation_id", loser.ID),
			zap.String("user", loser.User),
			zap.String("winner_id", r.ID))
		evicted = append(evicted, loser)
	}

	return evicted, nil
}

func (rv *Resolver) withdraw(ctx context.Context, id string) {
	if err := rv.ledger.Delete(ctx, id); err != nil {
		rv.log.Warn("failed to withdraw candidate reservation",
			zap.String("reservation_id", id), zap.Error(err))
	}
}
