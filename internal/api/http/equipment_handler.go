package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"equipment-rental-backend/internal/domain"
	"equipment-rental-backend/internal/security"
	"equipment-rental-backend/internal/service"
)

type EquipmentHandler struct {
	equipmentSvc   service.EquipmentService
	reservationSvc service.ReservationService
}

func NewEquipmentHandler(equipmentSvc service.EquipmentService, reservationSvc service.ReservationService) *EquipmentHandler {
	return &EquipmentHandler{equipmentSvc: equipmentSvc, reservationSvc: reservationSvc}
}

func (h *EquipmentHandler) ListEquipment(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter, err := parseEquipmentFilter(q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, err := parsePagination(q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	result, err := h.equipmentSvc.ListEquipment(r.Context(), filter, page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *EquipmentHandler) GetEquipment(w http.ResponseWriter, r *http.Request) {
	e, err := h.equipmentSvc.GetEquipment(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *EquipmentHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.equipmentSvc.ListCategories(r.Context()))
}

// CreateEquipment submits a listing owned by the caller.
func (h *EquipmentHandler) CreateEquipment(w http.ResponseWriter, r *http.Request) {
	var req createEquipmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := validateStruct(req); err != nil {
		writeError(w, r, err)
		return
	}
	claims := ClaimsFromContext(r.Context())
	e, err := h.equipmentSvc.CreateEquipment(r.Context(), req.toDomain(claims.UserID()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (h *EquipmentHandler) UpdateEquipment(w http.ResponseWriter, r *http.Request) {
	var req updateEquipmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := validateStruct(req); err != nil {
		writeError(w, r, err)
		return
	}
	patch := req.toPatch()

	id := mux.Vars(r)["id"]
	current, ok := h.authorizeOwner(w, r, id)
	if !ok {
		return
	}
	// Moving a pending or inactive listing to active is an approval.
	claims := ClaimsFromContext(r.Context())
	if patch.Status != nil && *patch.Status == domain.EquipmentStatusActive &&
		current.Status != domain.EquipmentStatusActive && !claims.HasRole(security.RoleAdmin) {
		writeForbidden(w, "only an admin can activate a listing")
		return
	}

	e, err := h.equipmentSvc.UpdateEquipment(r.Context(), id, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// DeactivateEquipment is the DELETE verb: the listing is soft-deleted.
func (h *EquipmentHandler) DeactivateEquipment(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, ok := h.authorizeOwner(w, r, id); !ok {
		return
	}
	e, err := h.equipmentSvc.DeactivateEquipment(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *EquipmentHandler) ApproveEquipment(w http.ResponseWriter, r *http.Request) {
	e, err := h.equipmentSvc.ApproveEquipment(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *EquipmentHandler) RejectEquipment(w http.ResponseWriter, r *http.Request) {
	var req rejectEquipmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := validateStruct(req); err != nil {
		writeError(w, r, err)
		return
	}
	e, err := h.equipmentSvc.RejectEquipment(r.Context(), mux.Vars(r)["id"], req.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// CheckAvailability runs the admission checks for a prospective booking.
// A conflict is reported as available=false; other errors map as usual.
func (h *EquipmentHandler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	q, err := parseAvailabilityQuery(id, r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	e, err := h.reservationSvc.CheckAvailability(r.Context(), q)
	if err != nil {
		if domain.IsKind(err, domain.ErrorKindConflict) {
			writeJSON(w, http.StatusOK, availabilityResponse{Available: false, EquipmentID: id})
			return
		}
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, availabilityResponse{Available: true, EquipmentID: e.ID, AvailableQuantity: e.AvailableQuantity})
}

// authorizeOwner loads the listing and allows the owner or an admin through.
func (h *EquipmentHandler) authorizeOwner(w http.ResponseWriter, r *http.Request, id string) (*domain.Equipment, bool) {
	e, err := h.equipmentSvc.GetEquipment(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	claims := ClaimsFromContext(r.Context())
	if e.OwnerID != claims.UserID() && !claims.HasRole(security.RoleAdmin) {
		writeForbidden(w, "only the owner can modify this listing")
		return nil, false
	}
	return e, true
}
