package api

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/practice-booking/internal/appointment"
	"github.com/hackgods/practice-booking/internal/schedule"
)

// Requests

type BookingRequest struct {
	Date        string `json:"date" validate:"required,isodate"`
	Time        string `json:"time" validate:"required,hhmm"`
	ServiceType string `json:"service_type"`
	ClientRef   string `json:"client_ref" validate:"required,max=200"`
}

type WeekdayRequest struct {
	Enabled *bool  `json:"enabled"`
	Start   string `json:"start" validate:"omitempty,hhmm"`
	End     string `json:"end" validate:"omitempty,hhmm"`
}

type MinutesRequest struct {
	Minutes *int `json:"minutes" validate:"required"`
}

type ToggleRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

type BreakRequest struct {
	Date   string `json:"date" validate:"required,isodate"`
	Start  string `json:"start" validate:"required,hhmm"`
	End    string `json:"end" validate:"required,hhmm"`
	Reason string `json:"reason" validate:"max=200"`
}

type ServiceTypeRequest struct {
	Name            string  `json:"name" validate:"required,max=100"`
	DurationMinutes *int    `json:"duration_minutes" validate:"required"`
	Price           *int64  `json:"price" validate:"required"`
	Description     *string `json:"description" validate:"omitempty,max=1000"`
}

type ServiceTypePatchRequest struct {
	Name            *string `json:"name" validate:"omitempty,max=100"`
	DurationMinutes *int    `json:"duration_minutes"`
	Price           *int64  `json:"price"`
	Description     *string `json:"description" validate:"omitempty,max=1000"`
}

// Responses

type AvailabilityResponse struct {
	Date          schedule.DateOnly    `json:"date"`
	ServiceTypeID *uuid.UUID           `json:"service_type_id"`
	Slots         []schedule.TimeOfDay `json:"slots"`
}

type AppointmentResponse struct {
	ID              uuid.UUID          `json:"id"`
	Reference       string             `json:"reference"`
	ProviderID      uuid.UUID          `json:"provider_id"`
	Date            schedule.DateOnly  `json:"date"`
	Start           schedule.TimeOfDay `json:"start"`
	DurationMinutes int                `json:"duration_minutes"`
	ClientRef       string             `json:"client_ref"`
	ServiceTypeID   *uuid.UUID         `json:"service_type_id,omitempty"`
	Status          string             `json:"status"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

type BookingResponse struct {
	Reference   string              `json:"reference"`
	Appointment AppointmentResponse `json:"appointment"`
}

type AppointmentListResponse struct {
	From         schedule.DateOnly     `json:"from"`
	To           schedule.DateOnly     `json:"to"`
	Appointments []AppointmentResponse `json:"appointments"`
}

type WeekdayResponse struct {
	Weekday string             `json:"weekday"`
	Enabled bool               `json:"enabled"`
	Start   schedule.TimeOfDay `json:"start"`
	End     schedule.TimeOfDay `json:"end"`
}

type ScheduleResponse struct {
	ProviderID                 uuid.UUID              `json:"provider_id"`
	Revision                   int64                  `json:"revision"`
	Weekdays                   []WeekdayResponse      `json:"weekdays"`
	AppointmentDurationMinutes int                    `json:"appointment_duration_minutes"`
	GapMinutes                 int                    `json:"gap_minutes"`
	Breaks                     []schedule.BreakPeriod `json:"breaks"`
	ServiceTypes               []schedule.ServiceType `json:"service_types"`
	BookingLinkEnabled         bool                   `json:"booking_link_enabled"`
	UpdatedAt                  time.Time              `json:"updated_at"`
}

// CreatedResponse answers mutations that mint a new id.
type CreatedResponse struct {
	ID       uuid.UUID        `json:"id"`
	Schedule ScheduleResponse `json:"schedule"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func toAppointmentResponse(a *appointment.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:              a.ID,
		Reference:       a.Reference,
		ProviderID:      a.ProviderID,
		Date:            a.Date,
		Start:           a.Start,
		DurationMinutes: a.DurationMinutes,
		ClientRef:       a.ClientRef,
		ServiceTypeID:   a.ServiceTypeID,
		Status:          string(a.Status),
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
}

// toScheduleResponse lists weekdays Monday first and breaks in calendar order.
func toScheduleResponse(cfg *schedule.Config) ScheduleResponse {
	resp := ScheduleResponse{
		ProviderID:                 cfg.ProviderID,
		Revision:                   cfg.Revision,
		Weekdays:                   make([]WeekdayResponse, 0, len(schedule.DisplayOrder)),
		AppointmentDurationMinutes: cfg.AppointmentDurationMinutes,
		GapMinutes:                 cfg.GapMinutes,
		Breaks:                     append([]schedule.BreakPeriod{}, cfg.Breaks...),
		ServiceTypes:               append([]schedule.ServiceType{}, cfg.ServiceTypes...),
		BookingLinkEnabled:         cfg.BookingLinkEnabled,
		UpdatedAt:                  cfg.UpdatedAt,
	}

	for _, d := range schedule.DisplayOrder {
		day := cfg.Day(d)
		resp.Weekdays = append(resp.Weekdays, WeekdayResponse{
			Weekday: d.String(),
			Enabled: day.Enabled,
			Start:   day.Hours.Start,
			End:     day.Hours.End,
		})
	}

	sort.SliceStable(resp.Breaks, func(i, j int) bool {
		a, b := resp.Breaks[i], resp.Breaks[j]
		if a.Date != b.Date {
			return a.Date.Before(b.Date)
		}
		return a.Start < b.Start
	})

	return resp
}
