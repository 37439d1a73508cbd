package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"equipment-rental-backend/internal/domain"
	"equipment-rental-backend/internal/logger"
)

// Boundary-only error types. Services never produce these.
const (
	errorTypeUnauthorized = "unauthorized"
	errorTypeForbidden    = "forbidden"
)

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	StatusCode int    `json:"statusCode"`
	ErrorType  string `json:"errorType"`
	Field      string `json:"field,omitempty"`
	Details    string `json:"details,omitempty"`
	Message    string `json:"message"`
}

var kindStatus = map[domain.ErrorKind]int{
	domain.ErrorKindValidation: http.StatusBadRequest,
	domain.ErrorKindNotFound:   http.StatusNotFound,
	domain.ErrorKindConflict:   http.StatusConflict,
	domain.ErrorKindDatabase:   http.StatusInternalServerError,
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

// writeError maps a service error onto its HTTP status. Errors outside the
// domain taxonomy are reported as database errors.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	de, ok := domain.AsError(err)
	if !ok {
		de = domain.NewDatabaseError("internal error", err)
	}
	status, ok := kindStatus[de.Kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	if status == http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed", "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, ErrorResponse{
		StatusCode: status,
		ErrorType:  string(de.Kind),
		Field:      de.Field,
		Details:    de.Details,
		Message:    de.Message,
	})
}

func writeStatus(w http.ResponseWriter, status int, errorType, message string) {
	writeJSON(w, status, ErrorResponse{StatusCode: status, ErrorType: errorType, Message: message})
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	writeStatus(w, http.StatusUnauthorized, errorTypeUnauthorized, message)
}

func writeForbidden(w http.ResponseWriter, message string) {
	writeStatus(w, http.StatusForbidden, errorTypeForbidden, message)
}

// decodeJSON reads the request body into dst, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.As(err, &typeErr):
			return domain.NewValidationError(typeErr.Field, "invalid value for "+typeErr.Field)
		case errors.As(err, &syntaxErr):
			return domain.NewValidationError("", "malformed JSON body")
		default:
			return domain.NewValidationError("", "invalid request body: "+err.Error())
		}
	}
	return nil
}
