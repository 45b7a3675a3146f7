package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hackgods/practice-booking/internal/appointment"
	"github.com/hackgods/practice-booking/internal/schedule"
)

func availabilityHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID, ok := providerParam(w, r)
		if !ok {
			return
		}

		date, err := schedule.ParseDate(r.URL.Query().Get("date"))
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequest, "date must be YYYY-MM-DD")
			return
		}

		serviceTypeID, ok := serviceTypeParam(w, r.URL.Query().Get("service_type"))
		if !ok {
			return
		}

		slots, err := svc.Availability(r.Context(), providerID, date, serviceTypeID)
		if err != nil {
			handleAppointmentError(w, err)
			return
		}

		resp := AvailabilityResponse{Date: date, Slots: slots}
		if serviceTypeID != uuid.Nil {
			resp.ServiceTypeID = &serviceTypeID
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func createBookingHandler(svc *appointment.Service, v *requestValidator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID, ok := providerParam(w, r)
		if !ok {
			return
		}

		var req BookingRequest
		if !v.decodeAndValidate(w, r, &req) {
			return
		}

		serviceTypeID, ok := serviceTypeParam(w, req.ServiceType)
		if !ok {
			return
		}

		// Both already passed the isodate/hhmm tags.
		date, _ := schedule.ParseDate(req.Date)
		start, _ := schedule.ParseTimeOfDay(req.Time)

		appt, err := svc.Admit(r.Context(), appointment.AdmitRequest{
			ProviderID:    providerID,
			Date:          date,
			Start:         start,
			ServiceTypeID: serviceTypeID,
			ClientRef:     req.ClientRef,
		})
		if err != nil {
			handleAppointmentError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, BookingResponse{
			Reference:   appt.Reference,
			Appointment: toAppointmentResponse(appt),
		})
	}
}

func listAppointmentsHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID, ok := providerParam(w, r)
		if !ok {
			return
		}

		from, err := schedule.ParseDate(r.URL.Query().Get("from"))
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequest, "from must be YYYY-MM-DD")
			return
		}
		to, err := schedule.ParseDate(r.URL.Query().Get("to"))
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequest, "to must be YYYY-MM-DD")
			return
		}

		appts, err := svc.ListRange(r.Context(), providerID, from, to)
		if err != nil {
			handleAppointmentError(w, err)
			return
		}

		resp := AppointmentListResponse{
			From:         from,
			To:           to,
			Appointments: make([]AppointmentResponse, 0, len(appts)),
		}
		for i := range appts {
			resp.Appointments = append(resp.Appointments, toAppointmentResponse(&appts[i]))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func getAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return appointmentActionHandler(svc.Get)
}

func cancelAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return appointmentActionHandler(svc.Cancel)
}

func completeAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return appointmentActionHandler(svc.Complete)
}

type appointmentAction func(ctx context.Context, providerID, id uuid.UUID) (*appointment.Appointment, error)

func appointmentActionHandler(action appointmentAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID, ok := providerParam(w, r)
		if !ok {
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequest, "id must be a valid UUID")
			return
		}

		appt, err := action(r.Context(), providerID, id)
		if err != nil {
			handleAppointmentError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func handleAppointmentError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, appointment.ErrSlotUnavailable),
		errors.Is(err, appointment.ErrLedgerOverlap):
		writeError(w, http.StatusConflict, codeSlotUnavailable, appointment.ErrSlotUnavailable.Error())
	case errors.Is(err, schedule.ErrProviderNotFound):
		writeError(w, http.StatusNotFound, codeProviderNotFound, err.Error())
	case errors.Is(err, appointment.ErrBookingDisabled):
		writeError(w, http.StatusForbidden, codeBookingDisabled, err.Error())
	case errors.Is(err, appointment.ErrClientRefRequired):
		writeError(w, http.StatusBadRequest, codeInvalidRequest, err.Error())
	case errors.Is(err, appointment.ErrInvalidDateRange):
		writeError(w, http.StatusUnprocessableEntity, codeInvalidRange, err.Error())
	case errors.Is(err, appointment.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, codeAppointmentNotFound, err.Error())
	case errors.Is(err, appointment.ErrInvalidStatusTransition):
		writeError(w, http.StatusConflict, codeInvalidTransition, err.Error())
	case appointment.IsTransient(err):
		writeError(w, http.StatusServiceUnavailable, codeTransient, "temporarily unable to process the request, please retry")
	default:
		writeError(w, http.StatusInternalServerError, codeInternal, internalErrorDetails)
	}
}

func providerParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "providerID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "providerID must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

// serviceTypeParam parses an optional service type id. Empty means the default
// duration; a malformed id is rejected.
func serviceTypeParam(w http.ResponseWriter, raw string) (uuid.UUID, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return uuid.Nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidServiceType, "service_type must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}
