package booking

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ListFilter narrows a ledger listing. Zero fields are ignored.
type ListFilter struct {
	EquipmentID       string
	User              string
	Status            Status
	From              time.Time
	To                time.Time
	MissingCalendarID bool
}

// Ledger is the append-and-mutate store of reservations. It enforces no
// uniqueness of its own; exclusivity is the resolver's job.
type Ledger interface {
	// Create persists r, assigning a fresh ID. CreatedAt is stored as
	// given; callers stamp it from their Clock.
	Create(ctx context.Context, r *Reservation) error

	Get(ctx context.Context, id string) (*Reservation, error)

	Update(ctx context.Context, r *Reservation) error

	Delete(ctx context.Context, id string) error

	// EndingAfter returns every reservation on the equipment whose end
	// time is strictly after t, regardless of status.
	EndingAfter(ctx context.Context, equipmentID string, t time.Time) ([]Reservation, error)

	List(ctx context.Context, f ListFilter) ([]Reservation, error)
}

// MemoryLedger is a map-backed Ledger used by the engine tests and demo
// mode. Safe for concurrent use.
type MemoryLedger struct {
	mu           sync.Mutex
	reservations map[string]Reservation
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{reservations: make(map[string]Reservation)}
}

func (l *MemoryLedger) Create(_ context.Context, r *Reservation) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	r.ID = uuid.NewString()
	l.reservations[r.ID] = *r
	return nil
}

func (l *MemoryLedger) Get(_ context.Context, id string) (*Reservation, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	r, ok := l.reservations[id]
	if !ok {
		return nil, &NotFoundError{Kind: "reservation", ID: id}
	}
	return &r, nil
}

func (l *MemoryLedger) Update(_ context.Context, r *Reservation) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.reservations[r.ID]; !ok {
		return &NotFoundError{Kind: "reservation", ID: r.ID}
	}
	l.reservations[r.ID] = *r
	return nil
}

func (l *MemoryLedger) Delete(_ context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.reservations[id]; !ok {
		return &NotFoundError{Kind: "reservation", ID: id}
	}
	delete(l.reservations, id)
	return nil
}

func (l *MemoryLedger) EndingAfter(_ context.Context, equipmentID string, t time.Time) ([]Reservation, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []Reservation
	for _, r := range l.reservations {
		if r.EquipmentID == equipmentID && r.EndTime.After(t) {
			out = append(out, r)
		}
	}
	sortByStart(out)
	return out, nil
}

func (l *MemoryLedger) List(_ context.Context, f ListFilter) ([]Reservation, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []Reservation
	for _, r := range l.reservations {
		if f.EquipmentID != "" && r.EquipmentID != f.EquipmentID {
			continue
		}
		if f.User != "" && r.User != f.User {
			continue
		}
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		if !f.From.IsZero() && !r.EndTime.After(f.From) {
			continue
		}
		if !f.To.IsZero() && !r.StartTime.Before(f.To) {
			continue
		}
		if f.MissingCalendarID && r.ExternalCalendarID != "" {
			continue
		}
		out = append(out, r)
	}
	sortByStart(out)
	return out, nil
}

func sortByStart(rs []Reservation) {
	sort.Slice(rs, func(i, j int) bool {
		if rs[i].StartTime.Equal(rs[j].StartTime) {
			return rs[i].CreatedAt.Before(rs[j].CreatedAt)
		}
		return rs[i].StartTime.Before(rs[j].StartTime)
	})
}
