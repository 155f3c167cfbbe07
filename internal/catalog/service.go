package catalog

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/lab-scheduler/backend/internal/booking"
)

// Service applies the catalog's business rules on top of the Store: ids
// derived from names, duplicate rejection, requirement templates and
// derived-index invalidation after every write.
type Service struct {
	store Store
	cache Invalidator
	log   *zap.Logger
}

func NewService(store Store, cache Invalidator, log *zap.Logger) *Service {
	return &Service{store: store, cache: cache, log: log}
}

// CreateLaboratory registers a new laboratory. The id is the slug of the
// name, so two labs cannot share a name.
func (s *Service) CreateLaboratory(ctx context.Context, name, information string) (*Laboratory, error) {
	id, err := slugFor("laboratory", name)
	if err != nil {
		return nil, err
	}

	lab := &Laboratory{ID: id, Name: strings.TrimSpace(name), Information: information}
	if err := s.store.CreateLaboratory(ctx, lab); err != nil {
		return nil, err
	}

	s.log.Info("laboratory created", zap.String("laboratory_id", lab.ID))
	s.invalidate(ctx)
	return lab, nil
}

func (s *Service) GetLaboratory(ctx context.Context, id string) (*Laboratory, error) {
	return s.store.GetLaboratory(ctx, id)
}

func (s *Service) ListLaboratories(ctx context.Context) ([]Laboratory, error) {
	return s.store.ListLaboratories(ctx)
}

// UpdateLaboratory rewrites the mutable fields of a laboratory. The name
// and id are fixed at creation.
func (s *Service) UpdateLaboratory(ctx context.Context, id, information string) (*Laboratory, error) {
	lab, err := s.store.GetLaboratory(ctx, id)
	if err != nil {
		return nil, err
	}

	lab.Information = information
	if err := s.store.UpdateLaboratory(ctx, lab); err != nil {
		return nil, err
	}

	s.invalidate(ctx)
	return lab, nil
}

// CreateEquipmentType registers a new equipment type with an optional
// requirement template.
func (s *Service) CreateEquipmentType(ctx context.Context, name, information string, reqs *booking.RequirementSet) (*EquipmentType, error) {
	id, err := slugFor("equipment type", name)
	if err != nil {
		return nil, err
	}

	if err := normalizeRequirements(reqs); err != nil {
		return nil, err
	}

	et := &EquipmentType{ID: id, Name: strings.TrimSpace(name), Information: information, Requirements: reqs}
	if err := s.store.CreateEquipmentType(ctx, et); err != nil {
		return nil, err
	}

	s.log.Info("equipment type created", zap.String("equipment_type_id", et.ID))
	s.invalidate(ctx)
	return et, nil
}

func (s *Service) GetEquipmentType(ctx context.Context, id string) (*EquipmentType, error) {
	return s.store.GetEquipmentType(ctx, id)
}

func (s *Service) ListEquipmentTypes(ctx context.Context) ([]EquipmentType, error) {
	return s.store.ListEquipmentTypes(ctx)
}

// UpdateEquipmentType rewrites the information and requirement template.
func (s *Service) UpdateEquipmentType(ctx context.Context, id, information string, reqs *booking.RequirementSet) (*EquipmentType, error) {
	et, err := s.store.GetEquipmentType(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := normalizeRequirements(reqs); err != nil {
		return nil, err
	}

	et.Information = information
	et.Requirements = reqs
	if err := s.store.UpdateEquipmentType(ctx, et); err != nil {
		return nil, err
	}

	s.invalidate(ctx)
	return et, nil
}

// CreateEquipmentInput carries the fields for a new piece of equipment.
type CreateEquipmentInput struct {
	Name            string
	LaboratoryID    string
	EquipmentTypeID string
	Information     string
	Constraint      *booking.Constraint
	Requirements    *booking.RequirementSet
}

// CreateEquipment registers a new piece of equipment. When no requirement
// set is supplied the type's template is copied in.
func (s *Service) CreateEquipment(ctx context.Context, in CreateEquipmentInput) (*Equipment, error) {
	id, err := slugFor("equipment", in.Name)
	if err != nil {
		return nil, err
	}

	if _, err := s.store.GetLaboratory(ctx, in.LaboratoryID); err != nil {
		return nil, err
	}

	et, err := s.store.GetEquipmentType(ctx, in.EquipmentTypeID)
	if err != nil {
		return nil, err
	}

	reqs := in.Requirements
	if reqs == nil && et.Requirements != nil {
		copied := *et.Requirements
		copied.Requirements = append([]booking.Requirement(nil), et.Requirements.Requirements...)
		reqs = &copied
	}
	if err := normalizeRequirements(reqs); err != nil {
		return nil, err
	}

	constraint := in.Constraint
	if constraint == nil {
		constraint = booking.DefaultConstraint()
	}

	eq := &Equipment{
		ID:              id,
		Name:            strings.TrimSpace(in.Name),
		LaboratoryID:    in.LaboratoryID,
		EquipmentTypeID: in.EquipmentTypeID,
		Information:     in.Information,
		Constraint:      constraint,
		Requirements:    reqs,
	}
	if err := s.store.CreateEquipment(ctx, eq); err != nil {
		return nil, err
	}

	s.log.Info("equipment created",
		zap.String("equipment_id", eq.ID),
		zap.String("laboratory_id", eq.LaboratoryID),
		zap.String("equipment_type_id", eq.EquipmentTypeID))
	s.invalidate(ctx)
	return eq, nil
}

func (s *Service) GetEquipment(ctx context.Context, id string) (*Equipment, error) {
	return s.store.GetEquipment(ctx, id)
}

func (s *Service) ListEquipment(ctx context.Context, laboratoryID, equipmentTypeID string) ([]Equipment, error) {
	return s.store.ListEquipment(ctx, laboratoryID, equipmentTypeID)
}

// UpdateEquipmentInput carries the mutable fields of a piece of
// equipment.
type UpdateEquipmentInput struct {
	Information  *string
	Constraint   *booking.Constraint
	Requirements *booking.RequirementSet
}

func (s *Service) UpdateEquipment(ctx context.Context, id string, in UpdateEquipmentInput) (*Equipment, error) {
	eq, err := s.store.GetEquipment(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Information != nil {
		eq.Information = *in.Information
	}
	if in.Constraint != nil {
		eq.Constraint = in.Constraint
	}
	if in.Requirements != nil {
		if err := normalizeRequirements(in.Requirements); err != nil {
			return nil, err
		}
		eq.Requirements = in.Requirements
	}

	if err := s.store.UpdateEquipment(ctx, eq); err != nil {
		return nil, err
	}

	s.invalidate(ctx)
	return eq, nil
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache != nil {
		s.cache.Invalidate(ctx)
	}
}

// slugFor derives the catalog id from a display name.
func slugFor(kind, name string) (string, error) {
	id := booking.NameToID(strings.TrimSpace(name))
	if id == "" {
		return "", fmt.Errorf("a %s needs a name containing letters or digits", kind)
	}
	return id, nil
}

// normalizeRequirements fills in derived requirement ids and rejects
// unparseable allowed-value specs up front, so bad templates fail at
// catalog time rather than at confirm time.
func normalizeRequirements(reqs *booking.RequirementSet) error {
	if reqs == nil {
		return nil
	}
	for i := range reqs.Requirements {
		r := &reqs.Requirements[i]
		if r.ID == "" {
			r.ID = booking.NameToID(r.Name)
		}
		if _, err := booking.ParseAllowedValues(r.AllowedValues); err != nil {
			return err
		}
	}
	return nil
}
