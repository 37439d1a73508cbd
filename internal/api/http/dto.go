package http

import (
	"errors"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"equipment-rental-backend/internal/domain"
	"equipment-rental-backend/internal/repository"
	"equipment-rental-backend/internal/utils"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateStruct turns the first validator failure into a validation error.
func validateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return domain.NewValidationError(fe.Field(), validationMessage(fe))
	}
	return domain.NewValidationError("", err.Error())
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "uuid":
		return fe.Field() + " must be a valid id"
	case "oneof":
		return fe.Field() + " must be one of: " + fe.Param()
	case "min", "gte":
		return fe.Field() + " must be at least " + fe.Param()
	case "max", "lte":
		return fe.Field() + " must be at most " + fe.Param()
	}
	return fe.Field() + " is invalid"
}

type createEquipmentRequest struct {
	Name              string          `json:"name" validate:"required,max=200"`
	Description       string          `json:"description" validate:"max=4000"`
	Category          string          `json:"category" validate:"required"`
	DailyRate         decimal.Decimal `json:"dailyRate"`
	Photos            []string        `json:"photos" validate:"required,min=1,dive,required,max=2048"`
	AvailableQuantity int32           `json:"availableQuantity" validate:"gte=0"`
}

func (req createEquipmentRequest) toDomain(ownerID string) *domain.Equipment {
	return &domain.Equipment{
		OwnerID:           ownerID,
		Name:              strings.TrimSpace(req.Name),
		Description:       req.Description,
		Category:          domain.EquipmentCategory(req.Category),
		DailyRate:         req.DailyRate,
		Photos:            req.Photos,
		AvailableQuantity: req.AvailableQuantity,
	}
}

type updateEquipmentRequest struct {
	Name              *string          `json:"name" validate:"omitempty,min=1,max=200"`
	Description       *string          `json:"description" validate:"omitempty,max=4000"`
	Category          *string          `json:"category"`
	DailyRate         *decimal.Decimal `json:"dailyRate"`
	Photos            []string         `json:"photos" validate:"omitempty,min=1,dive,required,max=2048"`
	AvailableQuantity *int32           `json:"availableQuantity"`
	Status            *string          `json:"status"`
}

func (req updateEquipmentRequest) toPatch() domain.EquipmentPatch {
	p := domain.EquipmentPatch{
		Name:              req.Name,
		Description:       req.Description,
		DailyRate:         req.DailyRate,
		Photos:            req.Photos,
		AvailableQuantity: req.AvailableQuantity,
	}
	if req.Category != nil {
		c := domain.EquipmentCategory(*req.Category)
		p.Category = &c
	}
	if req.Status != nil {
		s := domain.EquipmentStatus(*req.Status)
		p.Status = &s
	}
	return p
}

type rejectEquipmentRequest struct {
	Reason string `json:"reason" validate:"required,max=1000"`
}

type createReservationRequest struct {
	EquipmentID     string  `json:"equipmentId" validate:"required,uuid"`
	StartDate       string  `json:"startDate" validate:"required"`
	EndDate         string  `json:"endDate" validate:"required"`
	LateEndDate     *string `json:"lateEndDate"`
	Quantity        int32   `json:"quantity" validate:"required,gte=1"`
	DeliveryAddress string  `json:"deliveryAddress" validate:"required,max=500"`
}

func (req createReservationRequest) toDomain(requesterID string) (domain.ReservationRequest, error) {
	out := domain.ReservationRequest{
		EquipmentID:     req.EquipmentID,
		RequesterID:     requesterID,
		Quantity:        req.Quantity,
		DeliveryAddress: strings.TrimSpace(req.DeliveryAddress),
	}
	var err error
	if out.StartDate, err = parseDateField("startDate", req.StartDate); err != nil {
		return out, err
	}
	if out.EndDate, err = parseDateField("endDate", req.EndDate); err != nil {
		return out, err
	}
	if out.LateEndDate, err = parseOptionalDate("lateEndDate", req.LateEndDate); err != nil {
		return out, err
	}
	return out, nil
}

type updateReservationRequest struct {
	Status      *string `json:"status"`
	LateEndDate *string `json:"lateEndDate"`
}

func (req updateReservationRequest) toPatch() (domain.ReservationPatch, error) {
	var p domain.ReservationPatch
	if req.Status != nil {
		s := domain.ReservationStatus(*req.Status)
		p.Status = &s
	}
	lateEnd, err := parseOptionalDate("lateEndDate", req.LateEndDate)
	if err != nil {
		return p, err
	}
	p.LateEndDate = lateEnd
	return p, nil
}

type sweepResponse struct {
	Marked int `json:"marked"`
}

type availabilityResponse struct {
	Available         bool   `json:"available"`
	EquipmentID       string `json:"equipmentId"`
	AvailableQuantity int32  `json:"availableQuantity"`
}

func parseDateField(field, value string) (time.Time, error) {
	t, err := utils.ParseDate(value)
	if err != nil {
		return time.Time{}, domain.NewValidationError(field, err.Error())
	}
	return t, nil
}

func parseOptionalDate(field string, value *string) (*time.Time, error) {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil, nil
	}
	t, err := parseDateField(field, *value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Query string helpers. Absent parameters leave the target untouched.

func queryInt32(q url.Values, name string) (int32, error) {
	v := q.Get(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(v, 10, 32)
	if err != nil {
		return 0, domain.NewValidationError(name, name+" must be an integer")
	}
	return int32(n), nil
}

func queryDecimal(q url.Values, name string) (*decimal.Decimal, error) {
	v := q.Get(name)
	if v == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return nil, domain.NewValidationError(name, name+" must be a number")
	}
	return &d, nil
}

func queryDate(q url.Values, name string) (*time.Time, error) {
	v := q.Get(name)
	if v == "" {
		return nil, nil
	}
	return parseOptionalDate(name, &v)
}

func parsePagination(q url.Values) (repository.Pagination, error) {
	page, err := queryInt32(q, "page")
	if err != nil {
		return repository.Pagination{}, err
	}
	limit, err := queryInt32(q, "limit")
	if err != nil {
		return repository.Pagination{}, err
	}
	return repository.Pagination{Page: page, Limit: limit, Sort: q.Get("sort")}, nil
}

// parseEquipmentFilter reads catalogue filters. Without an explicit status
// only active listings are returned.
func parseEquipmentFilter(q url.Values) (repository.EquipmentFilter, error) {
	f := repository.EquipmentFilter{
		OwnerID:      q.Get("ownerId"),
		Category:     domain.EquipmentCategory(q.Get("category")),
		Status:       domain.EquipmentStatus(q.Get("status")),
		NameContains: q.Get("q"),
	}
	if f.Status == "" {
		f.Status = domain.EquipmentStatusActive
	} else if !f.Status.Valid() {
		return f, domain.NewValidationError("status", "unknown equipment status")
	}
	if f.Category != "" && !f.Category.Valid() {
		return f, domain.NewValidationError("category", "unknown category")
	}
	var err error
	if f.MinRate, err = queryDecimal(q, "minRate"); err != nil {
		return f, err
	}
	if f.MaxRate, err = queryDecimal(q, "maxRate"); err != nil {
		return f, err
	}
	return f, nil
}

func parseReservationFilter(q url.Values) (repository.ReservationFilter, error) {
	f := repository.ReservationFilter{
		EquipmentID:     q.Get("equipmentId"),
		RequesterID:     q.Get("requesterId"),
		Status:          domain.ReservationStatus(q.Get("status")),
		AddressContains: q.Get("address"),
	}
	if f.Status != "" && !f.Status.Valid() {
		return f, domain.NewValidationError("status", "unknown reservation status")
	}
	var err error
	if f.StartFrom, err = queryDate(q, "startFrom"); err != nil {
		return f, err
	}
	if f.EndBefore, err = queryDate(q, "endBefore"); err != nil {
		return f, err
	}
	return f, nil
}

func parseAvailabilityQuery(equipmentID string, q url.Values) (domain.AvailabilityQuery, error) {
	out := domain.AvailabilityQuery{EquipmentID: equipmentID, Quantity: 1}
	qty, err := queryInt32(q, "quantity")
	if err != nil {
		return out, err
	}
	if q.Has("quantity") {
		out.Quantity = qty
	}
	if out.StartDate, err = parseDateField("startDate", q.Get("startDate")); err != nil {
		return out, err
	}
	if out.EndDate, err = parseDateField("endDate", q.Get("endDate")); err != nil {
		return out, err
	}
	if out.LateEndDate, err = queryDate(q, "lateEndDate"); err != nil {
		return out, err
	}
	return out, nil
}
