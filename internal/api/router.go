// Package api provides HTTP routing and handlers for the REST API.
package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/lab-scheduler/backend/internal/access"
	"github.com/lab-scheduler/backend/internal/api/handlers"
	"github.com/lab-scheduler/backend/internal/api/middleware"
	"github.com/lab-scheduler/backend/internal/booking"
	"github.com/lab-scheduler/backend/internal/cache"
	"github.com/lab-scheduler/backend/internal/catalog"
	"github.com/lab-scheduler/backend/internal/storage"
	"github.com/lab-scheduler/backend/internal/websocket"
)

// Deps bundles everything the router hands to the handlers.
type Deps struct {
	DB        *storage.DB
	Bookings  *booking.Service
	Catalog   *catalog.Service
	Gate      *access.Gate
	Mappings  *cache.Mappings
	Hub       *websocket.Hub
	StaticDir string
	Log       *zap.Logger
}

// NewRouter creates and configures the HTTP router with all API routes.
func NewRouter(d Deps) *mux.Router {
	r := mux.NewRouter()

	// Apply global middleware
	r.Use(middleware.Logging(d.Log))
	r.Use(middleware.ErrorRecovery(d.Log))
	r.Use(middleware.Identity)

	// API subrouter
	api := r.PathPrefix("/api").Subrouter()

	// Health and status endpoints
	api.HandleFunc("/health", handlers.HealthCheck(d.DB)).Methods("GET")
	api.HandleFunc("/status", handlers.Status(d.DB, d.Hub)).Methods("GET")

	// WebSocket endpoint
	api.HandleFunc("/ws", handlers.WebSocketUpgrade(d.Hub, d.Log)).Methods("GET")

	// Reservation endpoints
	api.HandleFunc("/reservations", handlers.ListReservations(d.Bookings)).Methods("GET")
	api.HandleFunc("/reservations", handlers.CreateReservation(d.Bookings)).Methods("POST")
	api.HandleFunc("/reservations/{id}", handlers.GetReservation(d.Bookings)).Methods("GET")
	api.HandleFunc("/reservations/{id}/confirm", handlers.ConfirmReservation(d.Bookings)).Methods("POST")
	api.HandleFunc("/reservations/{id}/cancel", handlers.CancelReservation(d.Bookings)).Methods("POST")
	api.HandleFunc("/reservations/{id}/authorize", handlers.AuthorizeReservation(d.Bookings)).Methods("POST")
	api.HandleFunc("/reservations/{id}/deny", handlers.DenyReservation(d.Bookings)).Methods("POST")

	// Catalog endpoints
	api.HandleFunc("/hierarchy", handlers.Hierarchy(d.Mappings)).Methods("GET")
	api.HandleFunc("/laboratories", handlers.ListLaboratories(d.Catalog)).Methods("GET")
	api.HandleFunc("/laboratories", handlers.CreateLaboratory(d.Catalog, d.Gate)).Methods("POST")
	api.HandleFunc("/laboratories/{id}", handlers.GetLaboratory(d.Catalog)).Methods("GET")
	api.HandleFunc("/laboratories/{id}", handlers.UpdateLaboratory(d.Catalog, d.Gate)).Methods("PUT")
	api.HandleFunc("/equipment-types", handlers.ListEquipmentTypes(d.Catalog)).Methods("GET")
	api.HandleFunc("/equipment-types", handlers.CreateEquipmentType(d.Catalog, d.Gate)).Methods("POST")
	api.HandleFunc("/equipment-types/{id}", handlers.GetEquipmentType(d.Catalog)).Methods("GET")
	api.HandleFunc("/equipment-types/{id}", handlers.UpdateEquipmentType(d.Catalog, d.Gate)).Methods("PUT")
	api.HandleFunc("/equipment", handlers.ListEquipment(d.Catalog)).Methods("GET")
	api.HandleFunc("/equipment", handlers.CreateEquipment(d.Catalog, d.Gate)).Methods("POST")
	api.HandleFunc("/equipment/{id}", handlers.GetEquipment(d.Catalog)).Methods("GET")
	api.HandleFunc("/equipment/{id}", handlers.UpdateEquipment(d.Catalog, d.Gate)).Methods("PUT")

	// Access control endpoints
	api.HandleFunc("/equipment/{id}/access", handlers.ListEquipmentAccess(d.Gate)).Methods("GET")
	api.HandleFunc("/equipment/{id}/access", handlers.SetAccessRule(d.Gate)).Methods("PUT")
	api.HandleFunc("/equipment/{id}/access/request", handlers.RequestAccess(d.Gate)).Methods("POST")
	api.HandleFunc("/access/mine", handlers.ListMyAccess(d.Gate)).Methods("GET")

	// Serve static frontend files
	if d.StaticDir != "" {
		r.PathPrefix("/").Handler(http.FileServer(http.Dir(d.StaticDir)))
	}

	return r
}
