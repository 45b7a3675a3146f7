package appointment

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/practice-booking/internal/availability"
	"github.com/hackgods/practice-booking/internal/schedule"
)

type AppointmentStatus string

const (
	StatusScheduled AppointmentStatus = "scheduled"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
)

type Appointment struct {
	ID              uuid.UUID
	Reference       string
	ProviderID      uuid.UUID
	Date            schedule.DateOnly
	Start           schedule.TimeOfDay
	DurationMinutes int
	ClientRef       string
	ServiceTypeID   *uuid.UUID
	Status          AppointmentStatus
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (a Appointment) Interval() schedule.Interval {
	return a.Start.Span(a.DurationMinutes)
}

// End is the first minute after the appointment, which may be 24:00 or later.
func (a Appointment) End() int {
	return a.Start.Minutes() + a.DurationMinutes
}

func (a Appointment) Booking() availability.Booking {
	return availability.Booking{
		Date:            a.Date,
		Start:           a.Start,
		DurationMinutes: a.DurationMinutes,
		Active:          a.Status == StatusScheduled,
	}
}

func bookings(appts []Appointment) []availability.Booking {
	out := make([]availability.Booking, 0, len(appts))
	for _, a := range appts {
		out = append(out, a.Booking())
	}
	return out
}

// newReference derives a short, human friendly booking reference from the id.
func newReference(id uuid.UUID) string {
	hex := strings.ReplaceAll(id.String(), "-", "")
	return "BK-" + strings.ToUpper(hex[:10])
}
