package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/lab-scheduler/backend/internal/api/middleware"
	"github.com/lab-scheduler/backend/internal/booking"
	"github.com/lab-scheduler/backend/internal/cache"
	"github.com/lab-scheduler/backend/internal/catalog"
)

func requireSiteAdmin(w http.ResponseWriter, r *http.Request, gate booking.AccessGate) (string, bool) {
	user, ok := middleware.RequireUser(w, r)
	if !ok {
		return "", false
	}

	// Catalog writes are not tied to any one piece of equipment, so only
	// the configured site administrators pass.
	admin, err := gate.IsAdministrator(r.Context(), user, "")
	if err != nil {
		writeDomainError(w, err)
		return "", false
	}
	if !admin {
		middleware.WriteError(w, http.StatusForbidden, middleware.ErrForbidden, "Catalog management requires a site administrator")
		return "", false
	}

	return user, true
}

// Hierarchy serves the cached laboratory > type > equipment tree.
func Hierarchy(mappings *cache.Mappings) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h, err := mappings.Hierarchy(r.Context())
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, h)
	}
}

// CreateLaboratoryRequest is the request body for registering a lab.
type CreateLaboratoryRequest struct {
	Name        string `json:"name"`
	Information string `json:"information,omitempty"`
}

func CreateLaboratory(svc *catalog.Service, gate booking.AccessGate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := requireSiteAdmin(w, r, gate); !ok {
			return
		}

		var req CreateLaboratoryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "A laboratory name is required")
			return
		}

		lab, err := svc.CreateLaboratory(r.Context(), req.Name, req.Information)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, lab)
	}
}

func ListLaboratories(svc *catalog.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		labs, err := svc.ListLaboratories(r.Context())
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if labs == nil {
			labs = []catalog.Laboratory{}
		}
		writeJSON(w, http.StatusOK, labs)
	}
}

func GetLaboratory(svc *catalog.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lab, err := svc.GetLaboratory(r.Context(), mux.Vars(r)["id"])
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, lab)
	}
}

// UpdateLaboratoryRequest carries the mutable fields of a laboratory.
type UpdateLaboratoryRequest struct {
	Information string `json:"information"`
}

func UpdateLaboratory(svc *catalog.Service, gate booking.AccessGate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := requireSiteAdmin(w, r, gate); !ok {
			return
		}

		var req UpdateLaboratoryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}

		lab, err := svc.UpdateLaboratory(r.Context(), mux.Vars(r)["id"], req.Information)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, lab)
	}
}

// CreateEquipmentTypeRequest is the request body for registering a type.
type CreateEquipmentTypeRequest struct {
	Name         string                  `json:"name"`
	Information  string                  `json:"information,omitempty"`
	Requirements *booking.RequirementSet `json:"requirements,omitempty"`
}

func CreateEquipmentType(svc *catalog.Service, gate booking.AccessGate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := requireSiteAdmin(w, r, gate); !ok {
			return
		}

		var req CreateEquipmentTypeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "An equipment type name is required")
			return
		}

		et, err := svc.CreateEquipmentType(r.Context(), req.Name, req.Information, req.Requirements)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, et)
	}
}

func ListEquipmentTypes(svc *catalog.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		types, err := svc.ListEquipmentTypes(r.Context())
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if types == nil {
			types = []catalog.EquipmentType{}
		}
		writeJSON(w, http.StatusOK, types)
	}
}

func GetEquipmentType(svc *catalog.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		et, err := svc.GetEquipmentType(r.Context(), mux.Vars(r)["id"])
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, et)
	}
}

// UpdateEquipmentTypeRequest carries the mutable fields of a type.
type UpdateEquipmentTypeRequest struct {
	Information  string                  `json:"information"`
	Requirements *booking.RequirementSet `json:"requirements,omitempty"`
}

func UpdateEquipmentType(svc *catalog.Service, gate booking.AccessGate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := requireSiteAdmin(w, r, gate); !ok {
			return
		}

		var req UpdateEquipmentTypeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}

		et, err := svc.UpdateEquipmentType(r.Context(), mux.Vars(r)["id"], req.Information, req.Requirements)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, et)
	}
}

// CreateEquipmentRequest is the request body for registering equipment.
type CreateEquipmentRequest struct {
	Name            string                  `json:"name"`
	LaboratoryID    string                  `json:"laboratory_id"`
	EquipmentTypeID string                  `json:"equipment_type_id"`
	Information     string                  `json:"information,omitempty"`
	Constraint      *booking.Constraint     `json:"constraint,omitempty"`
	Requirements    *booking.RequirementSet `json:"requirements,omitempty"`
}

func CreateEquipment(svc *catalog.Service, gate booking.AccessGate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := requireSiteAdmin(w, r, gate); !ok {
			return
		}

		var req CreateEquipmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}
		if req.Name == "" || req.LaboratoryID == "" || req.EquipmentTypeID == "" {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "name, laboratory_id and equipment_type_id are required")
			return
		}

		eq, err := svc.CreateEquipment(r.Context(), catalog.CreateEquipmentInput{
			Name:            req.Name,
			LaboratoryID:    req.LaboratoryID,
			EquipmentTypeID: req.EquipmentTypeID,
			Information:     req.Information,
			Constraint:      req.Constraint,
			Requirements:    req.Requirements,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, eq)
	}
}

func ListEquipment(svc *catalog.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		equipment, err := svc.ListEquipment(r.Context(), q.Get("laboratory_id"), q.Get("equipment_type_id"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if equipment == nil {
			equipment = []catalog.Equipment{}
		}
		writeJSON(w, http.StatusOK, equipment)
	}
}

func GetEquipment(svc *catalog.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		eq, err := svc.GetEquipment(r.Context(), mux.Vars(r)["id"])
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, eq)
	}
}

// UpdateEquipmentRequest carries the mutable fields of equipment.
type UpdateEquipmentRequest struct {
	Information  *string                 `json:"information,omitempty"`
	Constraint   *booking.Constraint     `json:"constraint,omitempty"`
	Requirements *booking.RequirementSet `json:"requirements,omitempty"`
}

func UpdateEquipment(svc *catalog.Service, gate booking.AccessGate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := requireSiteAdmin(w, r, gate); !ok {
			return
		}

		var req UpdateEquipmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}

		eq, err := svc.UpdateEquipment(r.Context(), mux.Vars(r)["id"], catalog.UpdateEquipmentInput{
			Information:  req.Information,
			Constraint:   req.Constraint,
			Requirements: req.Requirements,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, eq)
	}
}
