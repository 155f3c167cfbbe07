package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lab-scheduler/backend/internal/booking"
)

// EquipmentDirectory is the booking.Directory adapter: it projects
// catalog rows into the flat equipment view the engine consumes.
type EquipmentDirectory struct {
	BaseRepository
}

func NewEquipmentDirectory(db *DB) *EquipmentDirectory {
	return &EquipmentDirectory{
		BaseRepository: NewBaseRepository(db),
	}
}

func (d *EquipmentDirectory) GetEquipment(ctx context.Context, id string) (*booking.Equipment, error) {
	var (
		eq         booking.Equipment
		constraint sql.NullString
		reqs       sql.NullString
	)

	err := d.DB().QueryRowContext(ctx, `
		SELECT e.id, e.name, l.name, t.name, e.booking_constraint, e.requirements
		FROM equipment e
		JOIN laboratories l ON l.id = e.laboratory_id
		JOIN equipment_types t ON t.id = e.equipment_type_id
		WHERE e.id = ?
	`, id).Scan(&eq.ID, &eq.Name, &eq.Laboratory, &eq.EquipmentType, &constraint, &reqs)

	if err == sql.ErrNoRows {
		return nil, &booking.NotFoundError{Kind: "equipment", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("querying equipment for booking: %w", err)
	}

	if err := unmarshalJSON(constraint, &eq.Constraint); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(reqs, &eq.Requirements); err != nil {
		return nil, err
	}
	return &eq, nil
}
