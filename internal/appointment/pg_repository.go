package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackgods/practice-booking/internal/schedule"
)

// exclusion_violation, raised by the appointments_no_overlap constraint.
const pgExclusionViolation = "23P01"

type PgLedger struct {
	pool *pgxpool.Pool
}

func NewPgLedger(pool *pgxpool.Pool) *PgLedger {
	return &PgLedger{pool: pool}
}

const appointmentColumns = `id, reference, provider_id, appt_date, start_minute, duration_minutes,
	client_ref, service_type_id, status, created_at, updated_at`

// Helpers

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var date time.Time
	var startMinute int
	var serviceTypeID *uuid.UUID

	err := row.Scan(
		&a.ID,
		&a.Reference,
		&a.ProviderID,
		&date,
		&startMinute,
		&a.DurationMinutes,
		&a.ClientRef,
		&serviceTypeID,
		&a.Status,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	a.Date = schedule.DateOf(date)
	a.Start = schedule.TimeOfDay(startMinute)
	a.ServiceTypeID = serviceTypeID
	return &a, nil
}

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// Interface methods

func (r *PgLedger) ListByDate(ctx context.Context, providerID uuid.UUID, date schedule.DateOnly) ([]Appointment, error) {
	return r.ListRange(ctx, providerID, date, date)
}

func (r *PgLedger) ListRange(ctx context.Context, providerID uuid.UUID, from, to schedule.DateOnly) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE provider_id = $1
		  AND appt_date BETWEEN $2 AND $3
		ORDER BY appt_date, start_minute
	`, providerID, from.Time(), to.Time())
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return collectAppointments(rows)
}

func (r *PgLedger) GetByID(ctx context.Context, providerID, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE provider_id = $1 AND id = $2
	`, providerID, id)
	return scanAppointment(row)
}

func (r *PgLedger) Append(ctx context.Context, appt Appointment) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO appointments (`+appointmentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		appt.ID,
		appt.Reference,
		appt.ProviderID,
		appt.Date.Time(),
		appt.Start.Minutes(),
		appt.DurationMinutes,
		appt.ClientRef,
		appt.ServiceTypeID,
		appt.Status,
		appt.CreatedAt,
		appt.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgExclusionViolation {
			return ErrLedgerOverlap
		}
		return fmt.Errorf("insert appointment: %w", err)
	}
	return nil
}

func (r *PgLedger) UpdateStatus(ctx context.Context, providerID, id uuid.UUID, from, to AppointmentStatus, at time.Time) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $3,
		    updated_at = $5
		WHERE provider_id = $1
		  AND id = $2
		  AND status = $4
		RETURNING `+appointmentColumns+`
	`, providerID, id, to, from, at)

	return scanAppointment(row)
}

func (r *PgLedger) FindScheduledBefore(ctx context.Context, date schedule.DateOnly, limit int) ([]Appointment, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE status = 'scheduled'
		  AND appt_date < $1
		ORDER BY appt_date, start_minute
		LIMIT $2
	`, date.Time(), limit)
	if err != nil {
		return nil, fmt.Errorf("find past scheduled appointments: %w", err)
	}
	return collectAppointments(rows)
}
