// Package handlers provides HTTP request handlers for the API endpoints.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/lab-scheduler/backend/internal/api/middleware"
	"github.com/lab-scheduler/backend/internal/booking"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// CreateReservationRequest is the request body for creating a booking.
type CreateReservationRequest struct {
	EquipmentID string    `json:"equipment_id"`
	Project     string    `json:"project,omitempty"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
}

// CreateReservation reserves a time window on a piece of equipment.
func CreateReservation(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := middleware.RequireUser(w, r)
		if !ok {
			return
		}

		var req CreateReservationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}
		if req.EquipmentID == "" || req.StartTime.IsZero() || req.EndTime.IsZero() {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "equipment_id, start_time and end_time are required")
			return
		}

		res, err := svc.MakeReservation(r.Context(), booking.MakeReservationRequest{
			EquipmentID: req.EquipmentID,
			User:        user,
			Project:     req.Project,
			StartTime:   req.StartTime,
			EndTime:     req.EndTime,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, res)
	}
}

// GetReservation returns a single reservation by id.
func GetReservation(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := svc.GetReservation(r.Context(), mux.Vars(r)["id"])
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, res)
	}
}

// ListReservations queries bookings across equipment, users, statuses and
// time ranges.
func ListReservations(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		filter := booking.ListFilter{
			EquipmentID: q.Get("equipment_id"),
			User:        q.Get("user"),
			Status:      booking.Status(q.Get("status")),
		}
		if filter.Status != "" && !filter.Status.Valid() {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "Unknown status filter")
			return
		}

		for _, arg := range []struct {
			name string
			dest *time.Time
		}{
			{"from", &filter.From},
			{"to", &filter.To},
		} {
			if raw := q.Get(arg.name); raw != "" {
				t, err := time.Parse(time.RFC3339, raw)
				if err != nil {
					middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, arg.name+" must be RFC 3339")
					return
				}
				*arg.dest = t
			}
		}

		reservations, err := svc.ListBookings(r.Context(), filter)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if reservations == nil {
			reservations = []booking.Reservation{}
		}

		writeJSON(w, http.StatusOK, reservations)
	}
}

// ConfirmReservationRequest carries the project and the user's
// requirement answers.
type ConfirmReservationRequest struct {
	Project      string            `json:"project,omitempty"`
	Requirements map[string]string `json:"requirements,omitempty"`
}

// ConfirmReservation moves a reserved booking to confirmed or
// pending-authorization.
func ConfirmReservation(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := middleware.RequireUser(w, r)
		if !ok {
			return
		}

		var req ConfirmReservationRequest
		if r.ContentLength > 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
				return
			}
		}

		res, err := svc.ConfirmReservation(r.Context(), mux.Vars(r)["id"], user, req.Project, req.Requirements)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, res)
	}
}

// CancelReservation withdraws a booking, truncating it if already
// running.
func CancelReservation(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := middleware.RequireUser(w, r)
		if !ok {
			return
		}

		res, err := svc.CancelReservation(r.Context(), mux.Vars(r)["id"], user)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, res)
	}
}

// AuthorizeReservation approves a pending booking.
func AuthorizeReservation(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := middleware.RequireUser(w, r)
		if !ok {
			return
		}

		res, err := svc.AuthorizeReservation(r.Context(), mux.Vars(r)["id"], user)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, res)
	}
}

// DenyReservationRequest carries the administrator's reason.
type DenyReservationRequest struct {
	Reason string `json:"reason"`
}

// DenyReservation rejects a pending booking.
func DenyReservation(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := middleware.RequireUser(w, r)
		if !ok {
			return
		}

		var req DenyReservationRequest
		if r.ContentLength > 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
				return
			}
		}

		res, err := svc.DenyReservation(r.Context(), mux.Vars(r)["id"], user, req.Reason)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, res)
	}
}
