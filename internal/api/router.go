package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hackgods/practice-booking/internal/appointment"
	"github.com/hackgods/practice-booking/internal/schedule"
)

type RouterConfig struct {
	Appointments *appointment.Service
	Schedules    *schedule.Store
	Logger       *zap.Logger
	ReadyChecks  []ReadyCheck
	Env          string
	Version      string

	// Per client limit on POST .../bookings. Zero disables it.
	BookingRate  float64
	BookingBurst int
}

func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	v := newRequestValidator()

	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(logger))

	health := NewHealthHandler(cfg.ReadyChecks, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	r.Post("/providers", createProviderHandler(cfg.Schedules))

	r.Route("/providers/{providerID}", func(r chi.Router) {
		// Public booking surface
		r.Get("/availability", availabilityHandler(cfg.Appointments))
		r.With(RateLimitMiddleware(cfg.BookingRate, cfg.BookingBurst, logger)).
			Post("/bookings", createBookingHandler(cfg.Appointments, v))

		// Practitioner surface
		r.Get("/appointments", listAppointmentsHandler(cfg.Appointments))
		r.Get("/appointments/{id}", getAppointmentHandler(cfg.Appointments))
		r.Post("/appointments/{id}/cancel", cancelAppointmentHandler(cfg.Appointments))
		r.Post("/appointments/{id}/complete", completeAppointmentHandler(cfg.Appointments))

		r.Route("/schedule", func(r chi.Router) {
			r.Get("/", getScheduleHandler(cfg.Schedules))
			r.Put("/weekdays/{weekday}", updateWeekdayHandler(cfg.Schedules, v))
			r.Put("/duration", setDurationHandler(cfg.Schedules, v))
			r.Put("/gap", setGapHandler(cfg.Schedules, v))
			r.Put("/booking-link", setBookingLinkHandler(cfg.Schedules, v))
			r.Post("/breaks", addBreakHandler(cfg.Schedules, v))
			r.Delete("/breaks/{breakID}", removeBreakHandler(cfg.Schedules))
			r.Post("/service-types", addServiceTypeHandler(cfg.Schedules, v))
			r.Patch("/service-types/{id}", updateServiceTypeHandler(cfg.Schedules, v))
			r.Delete("/service-types/{id}", removeServiceTypeHandler(cfg.Schedules))
		})
	})

	return r
}
