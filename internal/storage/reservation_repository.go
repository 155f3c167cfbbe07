package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lab-scheduler/backend/internal/booking"
)

// ReservationRepository is the SQLite-backed booking.Ledger.
type ReservationRepository struct {
	BaseRepository
}

func NewReservationRepository(db *DB) *ReservationRepository {
	return &ReservationRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

const reservationColumns = `id, equipment_id, user_email, project, start_time, end_time,
       created_at, status, external_calendar_id, denied_reason, requirement_values`

// Create inserts a new reservation, assigning a fresh ID. CreatedAt is
// stored exactly as given; the resolver stamps it from its clock.
func (r *ReservationRepository) Create(ctx context.Context, res *booking.Reservation) error {
	res.ID = GenerateID()

	values, err := marshalRequirementValues(res.RequirementValues)
	if err != nil {
		return err
	}

	_, err = r.DB().ExecContext(ctx, `
		INSERT INTO reservations (`+reservationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		res.ID, res.EquipmentID, res.User, res.Project, res.StartTime, res.EndTime,
		res.CreatedAt, string(res.Status), res.ExternalCalendarID, res.DeniedReason, values,
	)
	if err != nil {
		return fmt.Errorf("inserting reservation: %w", err)
	}

	return nil
}

// Get retrieves a reservation by its ID.
func (r *ReservationRepository) Get(ctx context.Context, id string) (*booking.Reservation, error) {
	row := r.DB().QueryRowContext(ctx, `
		SELECT `+reservationColumns+` FROM reservations WHERE id = ?
	`, id)

	res, err := scanReservation(row)
	if err == sql.ErrNoRows {
		return nil, &booking.NotFoundError{Kind: "reservation", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("querying reservation: %w", err)
	}

	return res, nil
}

// Update rewrites every mutable column of the reservation.
func (r *ReservationRepository) Update(ctx context.Context, res *booking.Reservation) error {
	values, err := marshalRequirementValues(res.RequirementValues)
	if err != nil {
		return err
	}

	result, err := r.DB().ExecContext(ctx, `
		UPDATE reservations
		SET project = ?, start_time = ?, end_time = ?, status = ?,
		    external_calendar_id = ?, denied_reason = ?, requirement_values = ?
		WHERE id = ?
	`,
		res.Project, res.StartTime, res.EndTime, string(res.Status),
		res.ExternalCalendarID, res.DeniedReason, values, res.ID,
	)
	if err != nil {
		return fmt.Errorf("updating reservation: %w", err)
	}

	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return &booking.NotFoundError{Kind: "reservation", ID: res.ID}
	}

	return nil
}

// Delete removes a reservation row. Used by the conflict resolver to
// withdraw a losing candidate.
func (r *ReservationRepository) Delete(ctx context.Context, id string) error {
	result, err := r.DB().ExecContext(ctx, `DELETE FROM reservations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting reservation: %w", err)
	}

	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return &booking.NotFoundError{Kind: "reservation", ID: id}
	}

	return nil
}

// EndingAfter returns every reservation on the equipment whose end time
// is strictly after t, regardless of status.
func (r *ReservationRepository) EndingAfter(ctx context.Context, equipmentID string, t time.Time) ([]booking.Reservation, error) {
	rows, err := r.DB().QueryContext(ctx, `
		SELECT `+reservationColumns+`
		FROM reservations
		WHERE equipment_id = ? AND end_time > ?
		ORDER BY start_time ASC, created_at ASC
	`, equipmentID, t)
	if err != nil {
		return nil, fmt.Errorf("querying reservations ending after %s: %w", t.Format(time.RFC3339), err)
	}
	defer rows.Close()

	return scanReservations(rows)
}

// List queries reservations with the given filter; zero fields are
// ignored.
func (r *ReservationRepository) List(ctx context.Context, f booking.ListFilter) ([]booking.Reservation, error) {
	var (
		conds []string
		args  []any
	)

	if f.EquipmentID != "" {
		conds = append(conds, "equipment_id = ?")
		args = append(args, f.EquipmentID)
	}
	if f.User != "" {
		conds = append(conds, "user_email = ?")
		args = append(args, f.User)
	}
	if f.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, string(f.Status))
	}
	if !f.From.IsZero() {
		conds = append(conds, "end_time > ?")
		args = append(args, f.From)
	}
	if !f.To.IsZero() {
		conds = append(conds, "start_time < ?")
		args = append(args, f.To)
	}
	if f.MissingCalendarID {
		conds = append(conds, "external_calendar_id = ''")
	}

	query := `SELECT ` + reservationColumns + ` FROM reservations`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY start_time ASC, created_at ASC"

	rows, err := r.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying reservations: %w", err)
	}
	defer rows.Close()

	return scanReservations(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReservation(row rowScanner) (*booking.Reservation, error) {
	var (
		res    booking.Reservation
		status string
		values sql.NullString
	)

	err := row.Scan(
		&res.ID, &res.EquipmentID, &res.User, &res.Project, &res.StartTime, &res.EndTime,
		&res.CreatedAt, &status, &res.ExternalCalendarID, &res.DeniedReason, &values,
	)
	if err != nil {
		return nil, err
	}

	res.Status = booking.Status(status)
	res.StartTime = res.StartTime.UTC()
	res.EndTime = res.EndTime.UTC()
	res.CreatedAt = res.CreatedAt.UTC()

	if values.Valid && values.String != "" {
		if err := json.Unmarshal([]byte(values.String), &res.RequirementValues); err != nil {
			return nil, fmt.Errorf("decoding requirement values: %w", err)
		}
	}

	return &res, nil
}

func scanReservations(rows *sql.Rows) ([]booking.Reservation, error) {
	var out []booking.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning reservation: %w", err)
		}
		out = append(out, *res)
	}
	return out, rows.Err()
}

func marshalRequirementValues(values []booking.RequirementValue) (any, error) {
	if len(values) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(values)
	if err != nil {
		return nil, fmt.Errorf("encoding requirement values: %w", err)
	}
	return string(data), nil
}
