package handlers

import (
	"net/http"

	"github.com/lab-scheduler/backend/internal/storage"
	"github.com/lab-scheduler/backend/internal/websocket"
)

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status      string `json:"status"`
	DBConnected bool   `json:"db_connected"`
}

// HealthCheck returns a handler that performs a health check.
func HealthCheck(db *storage.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dbConnected := db.Ping() == nil

		status := "healthy"
		if !dbConnected {
			status = "degraded"
		}

		code := http.StatusOK
		if status != "healthy" {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, HealthResponse{
			Status:      status,
			DBConnected: dbConnected,
		})
	}
}

// StatusResponse represents the system status response.
type StatusResponse struct {
	LaboratoriesCount   int            `json:"laboratories_count"`
	EquipmentCount      int            `json:"equipment_count"`
	ReservationsByState map[string]int `json:"reservations_by_status"`
	UnsyncedBookings    int            `json:"unsynced_bookings"`
	WebSocketClients    int            `json:"websocket_clients"`
}

// Status returns a handler that provides system status information.
func Status(db *storage.DB, hub *websocket.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var labCount, equipmentCount int
		db.QueryRowContext(ctx, "SELECT COUNT(*) FROM laboratories").Scan(&labCount)
		db.QueryRowContext(ctx, "SELECT COUNT(*) FROM equipment").Scan(&equipmentCount)

		byStatus := make(map[string]int)
		rows, err := db.QueryContext(ctx, "SELECT status, COUNT(*) FROM reservations GROUP BY status")
		if err == nil {
			defer rows.Close()
			for rows.Next() {
				var status string
				var count int
				if rows.Scan(&status, &count) == nil {
					byStatus[status] = count
				}
			}
		}

		var unsynced int
		db.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM reservations
			WHERE status IN ('confirmed', 'pending_authorization')
			  AND (external_calendar_id IS NULL OR external_calendar_id = '')
		`).Scan(&unsynced)

		writeJSON(w, http.StatusOK, StatusResponse{
			LaboratoriesCount:   labCount,
			EquipmentCount:      equipmentCount,
			ReservationsByState: byStatus,
			UnsyncedBookings:    unsynced,
			WebSocketClients:    hub.ClientCount(),
		})
	}
}
