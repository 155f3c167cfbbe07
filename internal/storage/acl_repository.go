package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lab-scheduler/backend/internal/access"
)

// ACLRepository is the SQLite-backed access.Store.
type ACLRepository struct {
	BaseRepository
}

func NewACLRepository(db *DB) *ACLRepository {
	return &ACLRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

func (r *ACLRepository) GetRule(ctx context.Context, equipmentID, user string) (access.Rule, bool, error) {
	var rule string

	err := r.DB().QueryRowContext(ctx, `
		SELECT rule FROM equipment_acls WHERE equipment_id = ? AND user_email = ?
	`, equipmentID, user).Scan(&rule)

	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("querying access rule: %w", err)
	}

	return access.Rule(rule), true, nil
}

func (r *ACLRepository) SetRule(ctx context.Context, equipmentID, user string, rule access.Rule) error {
	now := r.Now()

	_, err := r.DB().ExecContext(ctx, `
		INSERT INTO equipment_acls (equipment_id, user_email, rule, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (equipment_id, user_email)
		DO UPDATE SET rule = excluded.rule, updated_at = excluded.updated_at
	`, equipmentID, user, string(rule), now, now)
	if err != nil {
		return fmt.Errorf("upserting access rule: %w", err)
	}

	return nil
}

func (r *ACLRepository) ListForEquipment(ctx context.Context, equipmentID string) ([]access.Entry, error) {
	rows, err := r.DB().QueryContext(ctx, `
		SELECT equipment_id, user_email, rule, created_at, updated_at
		FROM equipment_acls
		WHERE equipment_id = ?
		ORDER BY user_email ASC
	`, equipmentID)
	if err != nil {
		return nil, fmt.Errorf("querying equipment access rules: %w", err)
	}
	defer rows.Close()

	return scanACLEntries(rows)
}

func (r *ACLRepository) ListForUser(ctx context.Context, user string) ([]access.Entry, error) {
	rows, err := r.DB().QueryContext(ctx, `
		SELECT equipment_id, user_email, rule, created_at, updated_at
		FROM equipment_acls
		WHERE user_email = ?
		ORDER BY equipment_id ASC
	`, user)
	if err != nil {
		return nil, fmt.Errorf("querying user access rules: %w", err)
	}
	defer rows.Close()

	return scanACLEntries(rows)
}

func scanACLEntries(rows *sql.Rows) ([]access.Entry, error) {
	var out []access.Entry
	for rows.Next() {
		var (
			e    access.Entry
			rule string
		)
		if err := rows.Scan(&e.EquipmentID, &e.User, &rule, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning access rule: %w", err)
		}
		e.Rule = access.Rule(rule)
		out = append(out, e)
	}
	return out, rows.Err()
}
