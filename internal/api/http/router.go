package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"equipment-rental-backend/internal/security"
)

// NewRouter wires the REST API. Route names key the security table in config.
func NewRouter(equipment *EquipmentHandler, reservations *ReservationHandler, verifier security.TokenVerifier) *mux.Router {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeStatus(w, http.StatusNotFound, "not-found", "route not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeStatus(w, http.StatusMethodNotAllowed, "validation", "method not allowed")
	})
	r.Use(requestIDMiddleware, loggingMiddleware, authMiddleware(verifier))

	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/categories", equipment.ListCategories).Methods(http.MethodGet).Name("ListCategories")
	api.HandleFunc("/equipment", equipment.ListEquipment).Methods(http.MethodGet).Name("ListEquipment")
	api.HandleFunc("/equipment", equipment.CreateEquipment).Methods(http.MethodPost).Name("CreateEquipment")
	api.HandleFunc("/equipment/{id}", equipment.GetEquipment).Methods(http.MethodGet).Name("GetEquipment")
	api.HandleFunc("/equipment/{id}", equipment.UpdateEquipment).Methods(http.MethodPatch).Name("UpdateEquipment")
	api.HandleFunc("/equipment/{id}", equipment.DeactivateEquipment).Methods(http.MethodDelete).Name("DeactivateEquipment")
	api.HandleFunc("/equipment/{id}/approve", equipment.ApproveEquipment).Methods(http.MethodPost).Name("ApproveEquipment")
	api.HandleFunc("/equipment/{id}/reject", equipment.RejectEquipment).Methods(http.MethodPost).Name("RejectEquipment")
	api.HandleFunc("/equipment/{id}/availability", equipment.CheckAvailability).Methods(http.MethodGet).Name("CheckAvailability")

	api.HandleFunc("/reservations", reservations.ListReservations).Methods(http.MethodGet).Name("ListReservations")
	api.HandleFunc("/reservations", reservations.CreateReservation).Methods(http.MethodPost).Name("CreateReservation")
	api.HandleFunc("/reservations/{id}", reservations.GetReservation).Methods(http.MethodGet).Name("GetReservation")
	api.HandleFunc("/reservations/{id}", reservations.UpdateReservation).Methods(http.MethodPatch).Name("UpdateReservation")
	api.HandleFunc("/admin/reservations/sweep-overdue", reservations.SweepOverdue).Methods(http.MethodPost).Name("SweepOverdue")

	return r
}
