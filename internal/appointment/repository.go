package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/practice-booking/internal/schedule"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	// ErrLedgerOverlap means a write would leave two scheduled appointments
	// overlapping. Admission should make this unreachable.
	ErrLedgerOverlap = errors.New("ledger already holds an overlapping scheduled appointment")
)

// Ledger is the authoritative store of a provider's appointments. Entries are
// never deleted; only their status changes.
type Ledger interface {
	ListByDate(ctx context.Context, providerID uuid.UUID, date schedule.DateOnly) ([]Appointment, error)
	// ListRange returns appointments with from <= date <= to ordered by date and start.
	ListRange(ctx context.Context, providerID uuid.UUID, from, to schedule.DateOnly) ([]Appointment, error)
	GetByID(ctx context.Context, providerID, id uuid.UUID) (*Appointment, error)

	// Append stores a new appointment and fails with ErrLedgerOverlap when a
	// scheduled appointment on the same date overlaps it.
	Append(ctx context.Context, appt Appointment) error
	UpdateStatus(ctx context.Context, providerID, id uuid.UUID, from, to AppointmentStatus, at time.Time) (*Appointment, error)

	// Completion worker
	FindScheduledBefore(ctx context.Context, date schedule.DateOnly, limit int) ([]Appointment, error)
}
