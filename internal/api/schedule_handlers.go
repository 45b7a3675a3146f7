package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	redisclient "github.com/hackgods/practice-booking/internal/redis"
	"github.com/hackgods/practice-booking/internal/schedule"
)

func createProviderHandler(store *schedule.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg, err := store.Create(r.Context(), uuid.New())
		if err != nil {
			handleScheduleError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toScheduleResponse(cfg))
	}
}

func getScheduleHandler(store *schedule.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID, ok := providerParam(w, r)
		if !ok {
			return
		}

		cfg, err := store.Get(r.Context(), providerID)
		if err != nil {
			handleScheduleError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toScheduleResponse(cfg))
	}
}

func updateWeekdayHandler(store *schedule.Store, v *requestValidator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID, opts, ok := mutationParams(w, r)
		if !ok {
			return
		}

		day, err := schedule.ParseWeekday(chi.URLParam(r, "weekday"))
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequest, err.Error())
			return
		}

		var req WeekdayRequest
		if !v.decodeAndValidate(w, r, &req) {
			return
		}
		if (req.Start == "") != (req.End == "") {
			writeError(w, http.StatusBadRequest, codeInvalidRequest, "start and end must be set together")
			return
		}
		if req.Enabled == nil && req.Start == "" {
			writeError(w, http.StatusBadRequest, codeInvalidRequest, "enabled or start/end is required")
			return
		}

		var hours *schedule.WorkingHours
		if req.Start != "" {
			start, _ := schedule.ParseTimeOfDay(req.Start)
			end, _ := schedule.ParseTimeOfDay(req.End)
			hours = &schedule.WorkingHours{Start: start, End: end}
		}

		cfg, err := store.UpdateWeekday(r.Context(), providerID, day, req.Enabled, hours, opts...)
		if err != nil {
			handleScheduleError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toScheduleResponse(cfg))
	}
}

func setDurationHandler(store *schedule.Store, v *requestValidator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID, opts, ok := mutationParams(w, r)
		if !ok {
			return
		}

		var req MinutesRequest
		if !v.decodeAndValidate(w, r, &req) {
			return
		}

		cfg, err := store.SetAppointmentDuration(r.Context(), providerID, *req.Minutes, opts...)
		if err != nil {
			handleScheduleError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toScheduleResponse(cfg))
	}
}

func setGapHandler(store *schedule.Store, v *requestValidator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID, opts, ok := mutationParams(w, r)
		if !ok {
			return
		}

		var req MinutesRequest
		if !v.decodeAndValidate(w, r, &req) {
			return
		}

		cfg, err := store.SetGapMinutes(r.Context(), providerID, *req.Minutes, opts...)
		if err != nil {
			handleScheduleError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toScheduleResponse(cfg))
	}
}

func setBookingLinkHandler(store *schedule.Store, v *requestValidator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID, opts, ok := mutationParams(w, r)
		if !ok {
			return
		}

		var req ToggleRequest
		if !v.decodeAndValidate(w, r, &req) {
			return
		}

		cfg, err := store.SetBookingLinkEnabled(r.Context(), providerID, *req.Enabled, opts...)
		if err != nil {
			handleScheduleError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toScheduleResponse(cfg))
	}
}

func addBreakHandler(store *schedule.Store, v *requestValidator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID, opts, ok := mutationParams(w, r)
		if !ok {
			return
		}

		var req BreakRequest
		if !v.decodeAndValidate(w, r, &req) {
			return
		}

		date, _ := schedule.ParseDate(req.Date)
		start, _ := schedule.ParseTimeOfDay(req.Start)
		end, _ := schedule.ParseTimeOfDay(req.End)

		cfg, id, err := store.AddBreak(r.Context(), providerID, date, start, end, req.Reason, opts...)
		if err != nil {
			handleScheduleError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, CreatedResponse{ID: id, Schedule: toScheduleResponse(cfg)})
	}
}

func removeBreakHandler(store *schedule.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID, opts, ok := mutationParams(w, r)
		if !ok {
			return
		}

		breakID, err := uuid.Parse(chi.URLParam(r, "breakID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequest, "breakID must be a valid UUID")
			return
		}

		cfg, err := store.RemoveBreak(r.Context(), providerID, breakID, opts...)
		if err != nil {
			handleScheduleError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toScheduleResponse(cfg))
	}
}

func addServiceTypeHandler(store *schedule.Store, v *requestValidator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID, opts, ok := mutationParams(w, r)
		if !ok {
			return
		}

		var req ServiceTypeRequest
		if !v.decodeAndValidate(w, r, &req) {
			return
		}

		cfg, id, err := store.AddServiceType(r.Context(), providerID, req.Name, *req.DurationMinutes, *req.Price, req.Description, opts...)
		if err != nil {
			handleScheduleError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, CreatedResponse{ID: id, Schedule: toScheduleResponse(cfg)})
	}
}

func updateServiceTypeHandler(store *schedule.Store, v *requestValidator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID, opts, ok := mutationParams(w, r)
		if !ok {
			return
		}

		serviceTypeID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidServiceType, "id must be a valid UUID")
			return
		}

		var req ServiceTypePatchRequest
		if !v.decodeAndValidate(w, r, &req) {
			return
		}

		patch := schedule.ServiceTypePatch{
			Name:            req.Name,
			DurationMinutes: req.DurationMinutes,
			Price:           req.Price,
			Description:     req.Description,
		}
		cfg, err := store.UpdateServiceType(r.Context(), providerID, serviceTypeID, patch, opts...)
		if err != nil {
			handleScheduleError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toScheduleResponse(cfg))
	}
}

func removeServiceTypeHandler(store *schedule.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID, opts, ok := mutationParams(w, r)
		if !ok {
			return
		}

		serviceTypeID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidServiceType, "id must be a valid UUID")
			return
		}

		cfg, err := store.RemoveServiceType(r.Context(), providerID, serviceTypeID, opts...)
		if err != nil {
			handleScheduleError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toScheduleResponse(cfg))
	}
}

// mutationParams reads the provider id and an optional If-Match revision.
func mutationParams(w http.ResponseWriter, r *http.Request) (uuid.UUID, []schedule.MutateOption, bool) {
	providerID, ok := providerParam(w, r)
	if !ok {
		return uuid.Nil, nil, false
	}

	raw := strings.Trim(strings.TrimSpace(r.Header.Get("If-Match")), `"`)
	if raw == "" {
		return providerID, nil, true
	}

	rev, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || rev <= 0 {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "If-Match must be a positive schedule revision")
		return uuid.Nil, nil, false
	}
	return providerID, []schedule.MutateOption{schedule.IfRevision(rev)}, true
}

func handleScheduleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, schedule.ErrProviderNotFound):
		writeError(w, http.StatusNotFound, codeProviderNotFound, err.Error())
	case errors.Is(err, schedule.ErrProviderExists):
		writeError(w, http.StatusConflict, codeProviderExists, err.Error())
	case errors.Is(err, schedule.ErrServiceTypeNotFound):
		writeError(w, http.StatusNotFound, codeServiceTypeNotFound, err.Error())
	case errors.Is(err, schedule.ErrInvalidRange):
		writeError(w, http.StatusUnprocessableEntity, codeInvalidRange, err.Error())
	case errors.Is(err, schedule.ErrInvalidDuration):
		writeError(w, http.StatusUnprocessableEntity, codeInvalidDuration, err.Error())
	case errors.Is(err, schedule.ErrInvalidPrice):
		writeError(w, http.StatusUnprocessableEntity, codeInvalidPrice, err.Error())
	case errors.Is(err, schedule.ErrNameRequired):
		writeError(w, http.StatusBadRequest, codeInvalidRequest, err.Error())
	case errors.Is(err, schedule.ErrStaleRevision):
		writeError(w, http.StatusConflict, codeStaleRevision, err.Error())
	case errors.Is(err, redisclient.ErrLockNotAcquired):
		writeError(w, http.StatusServiceUnavailable, codeTransient, "schedule is being updated, please retry shortly")
	case errors.Is(err, schedule.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, codeTransient, "temporarily unable to process the request, please retry")
	default:
		writeError(w, http.StatusInternalServerError, codeInternal, internalErrorDetails)
	}
}
