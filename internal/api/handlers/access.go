package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/lab-scheduler/backend/internal/access"
	"github.com/lab-scheduler/backend/internal/api/middleware"
)

// RequestAccess records a pending access request for the caller on a
// piece of equipment.
func RequestAccess(gate *access.Gate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := middleware.RequireUser(w, r)
		if !ok {
			return
		}

		if err := gate.RequestAccess(r.Context(), user, mux.Vars(r)["id"]); err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusAccepted, map[string]string{
			"equipment_id": mux.Vars(r)["id"],
			"user":         user,
			"status":       string(access.RulePending),
		})
	}
}

// SetAccessRuleRequest names the user and the rule to apply.
type SetAccessRuleRequest struct {
	User string `json:"user"`
	Rule string `json:"rule"`
}

// SetAccessRule lets an equipment administrator grant, ban or promote a
// user on one piece of equipment.
func SetAccessRule(gate *access.Gate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		admin, ok := middleware.RequireUser(w, r)
		if !ok {
			return
		}

		var req SetAccessRuleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.User == "" {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "user and rule are required")
			return
		}

		rule, err := access.ParseRule(req.Rule)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, err.Error())
			return
		}

		equipmentID := mux.Vars(r)["id"]
		if err := gate.SetRule(r.Context(), admin, req.User, equipmentID, rule); err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, access.Entry{
			EquipmentID: equipmentID,
			User:        req.User,
			Rule:        rule,
		})
	}
}

// ListEquipmentAccess returns every access rule on a piece of equipment.
// Restricted to its administrators.
func ListEquipmentAccess(gate *access.Gate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		admin, ok := middleware.RequireUser(w, r)
		if !ok {
			return
		}

		entries, err := gate.ListForEquipment(r.Context(), admin, mux.Vars(r)["id"])
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if entries == nil {
			entries = []access.Entry{}
		}

		writeJSON(w, http.StatusOK, entries)
	}
}

// ListMyAccess returns the caller's access rules across all equipment.
func ListMyAccess(gate *access.Gate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := middleware.RequireUser(w, r)
		if !ok {
			return
		}

		entries, err := gate.ListForUser(r.Context(), user)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if entries == nil {
			entries = []access.Entry{}
		}

		writeJSON(w, http.StatusOK, entries)
	}
}
