// Package catalog manages the bookable inventory: laboratories, equipment
// types and the equipment itself.
package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/lab-scheduler/backend/internal/booking"
)

// Laboratory groups equipment by physical location.
type Laboratory struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Information string    `json:"information,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// EquipmentType classifies equipment and carries the requirement template
// copied to new equipment of the type.
type EquipmentType struct {
	ID           string                  `json:"id"`
	Name         string                  `json:"name"`
	Information  string                  `json:"information,omitempty"`
	Requirements *booking.RequirementSet `json:"requirements,omitempty"`
	CreatedAt    time.Time               `json:"created_at"`
	UpdatedAt    time.Time               `json:"updated_at"`
}

// Equipment is a bookable item in the catalog.
type Equipment struct {
	ID              string                  `json:"id"`
	Name            string                  `json:"name"`
	LaboratoryID    string                  `json:"laboratory_id"`
	EquipmentTypeID string                  `json:"equipment_type_id"`
	Information     string                  `json:"information,omitempty"`
	Constraint      *booking.Constraint     `json:"constraint,omitempty"`
	Requirements    *booking.RequirementSet `json:"requirements,omitempty"`
	CreatedAt       time.Time               `json:"created_at"`
	UpdatedAt       time.Time               `json:"updated_at"`
}

// DuplicateNameError reports an attempt to create a catalog entry whose
// name (and therefore derived id) is already taken.
type DuplicateNameError struct {
	Kind string
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("a %s called %q already exists", e.Kind, e.Name)
}

// Store is the persistence port for the catalog. Implemented by the
// storage package.
type Store interface {
	CreateLaboratory(ctx context.Context, lab *Laboratory) error
	GetLaboratory(ctx context.Context, id string) (*Laboratory, error)
	ListLaboratories(ctx context.Context) ([]Laboratory, error)
	UpdateLaboratory(ctx context.Context, lab *Laboratory) error

	CreateEquipmentType(ctx context.Context, et *EquipmentType) error
	GetEquipmentType(ctx context.Context, id string) (*EquipmentType, error)
	ListEquipmentTypes(ctx context.Context) ([]EquipmentType, error)
	UpdateEquipmentType(ctx context.Context, et *EquipmentType) error

	CreateEquipment(ctx context.Context, eq *Equipment) error
	GetEquipment(ctx context.Context, id string) (*Equipment, error)
	ListEquipment(ctx context.Context, laboratoryID, equipmentTypeID string) ([]Equipment, error)
	UpdateEquipment(ctx context.Context, eq *Equipment) error
}

// Invalidator drops derived indexes after a catalog write. Implemented by
// the cache package.
type Invalidator interface {
	Invalidate(ctx context.Context)
}
