package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lab-scheduler/backend/internal/booking"
	"github.com/lab-scheduler/backend/internal/catalog"
)

// CatalogRepository is the SQLite-backed catalog.Store.
type CatalogRepository struct {
	BaseRepository
}

func NewCatalogRepository(db *DB) *CatalogRepository {
	return &CatalogRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

func (r *CatalogRepository) CreateLaboratory(ctx context.Context, lab *catalog.Laboratory) error {
	lab.CreatedAt = r.Now()
	lab.UpdatedAt = lab.CreatedAt

	_, err := r.DB().ExecContext(ctx, `
		INSERT INTO laboratories (id, name, information, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, lab.ID, lab.Name, lab.Information, lab.CreatedAt, lab.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return &catalog.DuplicateNameError{Kind: "laboratory", Name: lab.Name}
		}
		return fmt.Errorf("inserting laboratory: %w", err)
	}

	return nil
}

func (r *CatalogRepository) GetLaboratory(ctx context.Context, id string) (*catalog.Laboratory, error) {
	lab := &catalog.Laboratory{}

	err := r.DB().QueryRowContext(ctx, `
		SELECT id, name, information, created_at, updated_at
		FROM laboratories WHERE id = ?
	`, id).Scan(&lab.ID, &lab.Name, &lab.Information, &lab.CreatedAt, &lab.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, &booking.NotFoundError{Kind: "laboratory", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("querying laboratory: %w", err)
	}

	return lab, nil
}

func (r *CatalogRepository) ListLaboratories(ctx context.Context) ([]catalog.Laboratory, error) {
	rows, err := r.DB().QueryContext(ctx, `
		SELECT id, name, information, created_at, updated_at
		FROM laboratories ORDER BY name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("querying laboratories: %w", err)
	}
	defer rows.Close()

	var out []catalog.Laboratory
	for rows.Next() {
		var lab catalog.Laboratory
		if err := rows.Scan(&lab.ID, &lab.Name, &lab.Information, &lab.CreatedAt, &lab.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning laboratory: %w", err)
		}
		out = append(out, lab)
	}
	return out, rows.Err()
}

func (r *CatalogRepository) UpdateLaboratory(ctx context.Context, lab *catalog.Laboratory) error {
	lab.UpdatedAt = r.Now()

	result, err := r.DB().ExecContext(ctx, `
		UPDATE laboratories SET information = ?, updated_at = ? WHERE id = ?
	`, lab.Information, lab.UpdatedAt, lab.ID)
	if err != nil {
		return fmt.Errorf("updating laboratory: %w", err)
	}

	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return &booking.NotFoundError{Kind: "laboratory", ID: lab.ID}
	}
	return nil
}

func (r *CatalogRepository) CreateEquipmentType(ctx context.Context, et *catalog.EquipmentType) error {
	et.CreatedAt = r.Now()
	et.UpdatedAt = et.CreatedAt

	reqs, err := marshalJSON(et.Requirements)
	if err != nil {
		return err
	}

	_, err = r.DB().ExecContext(ctx, `
		INSERT INTO equipment_types (id, name, information, requirements, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, et.ID, et.Name, et.Information, reqs, et.CreatedAt, et.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return &catalog.DuplicateNameError{Kind: "equipment type", Name: et.Name}
		}
		return fmt.Errorf("inserting equipment type: %w", err)
	}

	return nil
}

func (r *CatalogRepository) GetEquipmentType(ctx context.Context, id string) (*catalog.EquipmentType, error) {
	et := &catalog.EquipmentType{}
	var reqs sql.NullString

	err := r.DB().QueryRowContext(ctx, `
		SELECT id, name, information, requirements, created_at, updated_at
		FROM equipment_types WHERE id = ?
	`, id).Scan(&et.ID, &et.Name, &et.Information, &reqs, &et.CreatedAt, &et.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, &booking.NotFoundError{Kind: "equipment type", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("querying equipment type: %w", err)
	}

	if err := unmarshalJSON(reqs, &et.Requirements); err != nil {
		return nil, err
	}
	return et, nil
}

func (r *CatalogRepository) ListEquipmentTypes(ctx context.Context) ([]catalog.EquipmentType, error) {
	rows, err := r.DB().QueryContext(ctx, `
		SELECT id, name, information, requirements, created_at, updated_at
		FROM equipment_types ORDER BY name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("querying equipment types: %w", err)
	}
	defer rows.Close()

	var out []catalog.EquipmentType
	for rows.Next() {
		var (
			et   catalog.EquipmentType
			reqs sql.NullString
		)
		if err := rows.Scan(&et.ID, &et.Name, &et.Information, &reqs, &et.CreatedAt, &et.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning equipment type: %w", err)
		}
		if err := unmarshalJSON(reqs, &et.Requirements); err != nil {
			return nil, err
		}
		out = append(out, et)
	}
	return out, rows.Err()
}

func (r *CatalogRepository) UpdateEquipmentType(ctx context.Context, et *catalog.EquipmentType) error {
	et.UpdatedAt = r.Now()

	reqs, err := marshalJSON(et.Requirements)
	if err != nil {
		return err
	}

	result, err := r.DB().ExecContext(ctx, `
		UPDATE equipment_types SET information = ?, requirements = ?, updated_at = ? WHERE id = ?
	`, et.Information, reqs, et.UpdatedAt, et.ID)
	if err != nil {
		return fmt.Errorf("updating equipment type: %w", err)
	}

	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return &booking.NotFoundError{Kind: "equipment type", ID: et.ID}
	}
	return nil
}

const equipmentColumns = `id, name, laboratory_id, equipment_type_id, information,
       booking_constraint, requirements, created_at, updated_at`

func (r *CatalogRepository) CreateEquipment(ctx context.Context, eq *catalog.Equipment) error {
	eq.CreatedAt = r.Now()
	eq.UpdatedAt = eq.CreatedAt

	constraint, err := marshalJSON(eq.Constraint)
	if err != nil {
		return err
	}
	reqs, err := marshalJSON(eq.Requirements)
	if err != nil {
		return err
	}

	_, err = r.DB().ExecContext(ctx, `
		INSERT INTO equipment (`+equipmentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, eq.ID, eq.Name, eq.LaboratoryID, eq.EquipmentTypeID, eq.Information,
		constraint, reqs, eq.CreatedAt, eq.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return &catalog.DuplicateNameError{Kind: "equipment", Name: eq.Name}
		}
		return fmt.Errorf("inserting equipment: %w", err)
	}

	return nil
}

func (r *CatalogRepository) GetEquipment(ctx context.Context, id string) (*catalog.Equipment, error) {
	row := r.DB().QueryRowContext(ctx, `
		SELECT `+equipmentColumns+` FROM equipment WHERE id = ?
	`, id)

	eq, err := scanEquipment(row)
	if err == sql.ErrNoRows {
		return nil, &booking.NotFoundError{Kind: "equipment", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("querying equipment: %w", err)
	}
	return eq, nil
}

func (r *CatalogRepository) ListEquipment(ctx context.Context, laboratoryID, equipmentTypeID string) ([]catalog.Equipment, error) {
	var (
		conds []string
		args  []any
	)
	if laboratoryID != "" {
		conds = append(conds, "laboratory_id = ?")
		args = append(args, laboratoryID)
	}
	if equipmentTypeID != "" {
		conds = append(conds, "equipment_type_id = ?")
		args = append(args, equipmentTypeID)
	}

	query := `SELECT ` + equipmentColumns + ` FROM equipment`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY name ASC"

	rows, err := r.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying equipment: %w", err)
	}
	defer rows.Close()

	var out []catalog.Equipment
	for rows.Next() {
		eq, err := scanEquipment(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning equipment: %w", err)
		}
		out = append(out, *eq)
	}
	return out, rows.Err()
}

func (r *CatalogRepository) UpdateEquipment(ctx context.Context, eq *catalog.Equipment) error {
	eq.UpdatedAt = r.Now()

	constraint, err := marshalJSON(eq.Constraint)
	if err != nil {
		return err
	}
	reqs, err := marshalJSON(eq.Requirements)
	if err != nil {
		return err
	}

	result, err := r.DB().ExecContext(ctx, `
		UPDATE equipment
		SET information = ?, booking_constraint = ?, requirements = ?, updated_at = ?
		WHERE id = ?
	`, eq.Information, constraint, reqs, eq.UpdatedAt, eq.ID)
	if err != nil {
		return fmt.Errorf("updating equipment: %w", err)
	}

	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return &booking.NotFoundError{Kind: "equipment", ID: eq.ID}
	}
	return nil
}

func scanEquipment(row rowScanner) (*catalog.Equipment, error) {
	var (
		eq         catalog.Equipment
		constraint sql.NullString
		reqs       sql.NullString
	)

	err := row.Scan(&eq.ID, &eq.Name, &eq.LaboratoryID, &eq.EquipmentTypeID, &eq.Information,
		&constraint, &reqs, &eq.CreatedAt, &eq.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := unmarshalJSON(constraint, &eq.Constraint); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(reqs, &eq.Requirements); err != nil {
		return nil, err
	}
	return &eq, nil
}

func marshalJSON(v any) (any, error) {
	if isNilPointer(v) {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding JSON column: %w", err)
	}
	return string(data), nil
}

func unmarshalJSON(col sql.NullString, dest any) error {
	if !col.Valid || col.String == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(col.String), dest); err != nil {
		return fmt.Errorf("decoding JSON column: %w", err)
	}
	return nil
}

func isNilPointer(v any) bool {
	switch t := v.(type) {
	case *booking.Constraint:
		return t == nil
	case *booking.RequirementSet:
		return t == nil
	default:
		return v == nil
	}
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
