package http

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"equipment-rental-backend/internal/domain"
	"equipment-rental-backend/internal/security"
	"equipment-rental-backend/internal/service"
)

type ReservationHandler struct {
	reservationSvc service.ReservationService
	equipmentSvc   service.EquipmentService
	now            func() time.Time
}

func NewReservationHandler(reservationSvc service.ReservationService, equipmentSvc service.EquipmentService, now func() time.Time) *ReservationHandler {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &ReservationHandler{reservationSvc: reservationSvc, equipmentSvc: equipmentSvc, now: now}
}

// ListReservations returns the caller's reservations. Admins may list any.
func (h *ReservationHandler) ListReservations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter, err := parseReservationFilter(q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, err := parsePagination(q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	claims := ClaimsFromContext(r.Context())
	if !claims.HasRole(security.RoleAdmin) {
		filter.RequesterID = claims.UserID()
	}

	result, err := h.reservationSvc.ListReservations(r.Context(), filter, page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *ReservationHandler) CreateReservation(w http.ResponseWriter, r *http.Request) {
	var req createReservationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := validateStruct(req); err != nil {
		writeError(w, r, err)
		return
	}
	in, err := req.toDomain(ClaimsFromContext(r.Context()).UserID())
	if err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.reservationSvc.CreateReservation(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *ReservationHandler) GetReservation(w http.ResponseWriter, r *http.Request) {
	res, ok := h.authorizeParty(w, r, mux.Vars(r)["id"])
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *ReservationHandler) UpdateReservation(w http.ResponseWriter, r *http.Request) {
	var req updateReservationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	patch, err := req.toPatch()
	if err != nil {
		writeError(w, r, err)
		return
	}

	id := mux.Vars(r)["id"]
	if _, ok := h.authorizeParty(w, r, id); !ok {
		return
	}
	res, err := h.reservationSvc.UpdateReservation(r.Context(), id, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// SweepOverdue triggers the overdue sweep outside its schedule.
func (h *ReservationHandler) SweepOverdue(w http.ResponseWriter, r *http.Request) {
	n, err := h.reservationSvc.SweepOverdue(r.Context(), h.now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sweepResponse{Marked: n})
}

// authorizeParty lets the requester, the equipment owner and admins see a
// reservation.
func (h *ReservationHandler) authorizeParty(w http.ResponseWriter, r *http.Request, id string) (*domain.Reservation, bool) {
	res, err := h.reservationSvc.GetReservation(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	claims := ClaimsFromContext(r.Context())
	if res.RequesterID == claims.UserID() || claims.HasRole(security.RoleAdmin) {
		return res, true
	}
	e, err := h.equipmentSvc.GetEquipment(r.Context(), res.EquipmentID)
	if err != nil && !domain.IsKind(err, domain.ErrorKindNotFound) {
		writeError(w, r, err)
		return nil, false
	}
	if e != nil && e.OwnerID == claims.UserID() {
		return res, true
	}
	writeForbidden(w, "not a party to this reservation")
	return nil, false
}
