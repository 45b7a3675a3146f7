package api

import (
	"encoding/json"
	"net/http"
)

const (
	codeInvalidRequest      = "INVALID_REQUEST"
	codeInvalidServiceType  = "INVALID_SERVICE_TYPE"
	codeSlotUnavailable     = "SLOT_UNAVAILABLE"
	codeProviderNotFound    = "PROVIDER_NOT_FOUND"
	codeProviderExists      = "PROVIDER_EXISTS"
	codeBookingDisabled     = "BOOKING_DISABLED"
	codeTransient           = "TRANSIENT_ERROR"
	codeAppointmentNotFound = "APPOINTMENT_NOT_FOUND"
	codeInvalidTransition   = "INVALID_STATUS_TRANSITION"
	codeServiceTypeNotFound = "SERVICE_TYPE_NOT_FOUND"
	codeInvalidRange        = "INVALID_RANGE"
	codeInvalidDuration     = "INVALID_DURATION"
	codeInvalidPrice        = "INVALID_PRICE"
	codeStaleRevision       = "STALE_REVISION"
	codeRateLimited         = "RATE_LIMITED"
	codeInternal            = "INTERNAL_ERROR"
)

// Sent with INTERNAL_ERROR in place of the raw error text.
const internalErrorDetails = "internal server error"


func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}
