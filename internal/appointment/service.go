package appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackgods/practice-booking/internal/availability"
	"github.com/hackgods/practice-booking/internal/events"
	redisclient "github.com/hackgods/practice-booking/internal/redis"
	"github.com/hackgods/practice-booking/internal/schedule"
)

const maxListRangeDays = 92

var (
	ErrSlotUnavailable         = errors.New("requested slot is not available")
	ErrBookingDisabled         = errors.New("online booking is disabled for this provider")
	ErrClientRefRequired       = errors.New("client reference is required")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrInvalidDateRange        = errors.New("invalid date range")
)

// TransientError marks infrastructure failures (storage, lock backend) that
// callers may retry with the same input.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

func transient(op string, err error) error {
	return &TransientError{Op: op, Err: err}
}

func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// ScheduleSource hands out provider schedule snapshots.
type ScheduleSource interface {
	Get(ctx context.Context, providerID uuid.UUID) (*schedule.Config, error)
}

type Service struct {
	schedules ScheduleSource
	ledger    Ledger
	locker    redisclient.Locker
	publisher events.Publisher
	logger    *zap.Logger
	now       func() time.Time
}

type Option func(*Service)

// WithClock sets the source of "now", in the provider's local time.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(schedules ScheduleSource, ledger Ledger, locker redisclient.Locker, publisher events.Publisher, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		schedules: schedules,
		ledger:    ledger,
		locker:    locker,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Availability lists bookable start times for date, hiding times that are
// already in the past.
func (s *Service) Availability(ctx context.Context, providerID uuid.UUID, date schedule.DateOnly, serviceTypeID uuid.UUID) ([]schedule.TimeOfDay, error) {
	cfg, err := s.loadSchedule(ctx, providerID)
	if err != nil {
		return nil, err
	}

	existing, err := s.ledger.ListByDate(ctx, providerID, date)
	if err != nil {
		return nil, transient("load ledger", err)
	}

	slots := availability.ComputeAvailableSlots(date, *cfg, serviceTypeID, bookings(existing))
	return availability.FilterFrom(slots, date, s.now()), nil
}

type AdmitRequest struct {
	ProviderID    uuid.UUID
	Date          schedule.DateOnly
	Start         schedule.TimeOfDay
	ServiceTypeID uuid.UUID // uuid.Nil books the default duration
	ClientRef     string
}

// Admit books the requested slot. Availability is recomputed from the current
// ledger inside the provider lock, so a slot list the client saw earlier is
// never trusted.
func (s *Service) Admit(ctx context.Context, req AdmitRequest) (*Appointment, error) {
	clientRef := strings.TrimSpace(req.ClientRef)
	if clientRef == "" {
		return nil, ErrClientRefRequired
	}

	var created *Appointment

	err := s.locker.WithProviderLock(ctx, req.ProviderID, func(lockCtx context.Context) error {
		cfg, err := s.loadSchedule(lockCtx, req.ProviderID)
		if err != nil {
			return err
		}
		if !cfg.BookingLinkEnabled {
			return ErrBookingDisabled
		}

		existing, err := s.ledger.ListByDate(lockCtx, req.ProviderID, req.Date)
		if err != nil {
			return transient("load ledger", err)
		}

		slots := availability.ComputeAvailableSlots(req.Date, *cfg, req.ServiceTypeID, bookings(existing))
		slots = availability.FilterFrom(slots, req.Date, s.now())
		if !availability.Contains(slots, req.Start) {
			return ErrSlotUnavailable
		}

		now := s.now().UTC()
		id := uuid.New()
		appt := Appointment{
			ID:              id,
			Reference:       newReference(id),
			ProviderID:      req.ProviderID,
			Date:            req.Date,
			Start:           req.Start,
			DurationMinutes: cfg.DurationFor(req.ServiceTypeID),
			ClientRef:       clientRef,
			Status:          StatusScheduled,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if _, ok := cfg.ServiceType(req.ServiceTypeID); ok {
			stID := req.ServiceTypeID
			appt.ServiceTypeID = &stID
		}

		if err := s.ledger.Append(lockCtx, appt); err != nil {
			if errors.Is(err, ErrLedgerOverlap) {
				s.logger.Error("ledger rejected admitted slot",
					zap.String("provider_id", req.ProviderID.String()),
					zap.String("date", req.Date.String()),
					zap.String("start", req.Start.String()),
				)
				return err
			}
			return transient("append appointment", err)
		}

		created = &appt
		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, transient("lock provider", err)
		}
		return nil, err
	}

	s.logger.Info("appointment booked",
		zap.String("provider_id", created.ProviderID.String()),
		zap.String("appointment_id", created.ID.String()),
		zap.String("reference", created.Reference),
		zap.String("date", created.Date.String()),
		zap.String("start", created.Start.String()),
		zap.Int("duration_minutes", created.DurationMinutes),
	)
	s.publish(ctx, events.TypeAppointmentBooked, created)

	return created, nil
}

// Cancel moves a scheduled appointment to cancelled, freeing its slot.
// Cancelling twice returns the cancelled appointment.
func (s *Service) Cancel(ctx context.Context, providerID, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, providerID, id, StatusCancelled, events.TypeAppointmentCancelled)
}

func (s *Service) Complete(ctx context.Context, providerID, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, providerID, id, StatusCompleted, events.TypeAppointmentCompleted)
}

func (s *Service) transition(ctx context.Context, providerID, id uuid.UUID, to AppointmentStatus, eventType string) (*Appointment, error) {
	var updated *Appointment
	changed := false

	err := s.locker.WithProviderLock(ctx, providerID, func(lockCtx context.Context) error {
		appt, err := s.ledger.GetByID(lockCtx, providerID, id)
		if err != nil {
			if errors.Is(err, ErrAppointmentNotFound) {
				return err
			}
			return transient("load appointment", err)
		}

		if appt.Status == to {
			updated = appt
			return nil
		}
		if appt.Status != StatusScheduled {
			return ErrInvalidStatusTransition
		}

		updated, err = s.ledger.UpdateStatus(lockCtx, providerID, id, StatusScheduled, to, s.now().UTC())
		if err != nil {
			if errors.Is(err, ErrAppointmentNotFound) {
				return ErrInvalidStatusTransition
			}
			return transient("update appointment", err)
		}
		changed = true
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, transient("lock provider", err)
		}
		return nil, err
	}

	if changed {
		s.logger.Info("appointment status changed",
			zap.String("provider_id", providerID.String()),
			zap.String("appointment_id", id.String()),
			zap.String("status", string(to)),
		)
		s.publish(ctx, eventType, updated)
	}
	return updated, nil
}

// CompletePastAppointments marks scheduled appointments on earlier days as
// completed. It is intended to be called by the worker periodically.
func (s *Service) CompletePastAppointments(ctx context.Context) (int, error) {
	today := schedule.DateOf(s.now())
	candidates, err := s.ledger.FindScheduledBefore(ctx, today, 500)
	if err != nil {
		return 0, fmt.Errorf("find past scheduled appointments: %w", err)
	}

	completed := 0
	for _, appt := range candidates {
		if _, err := s.Complete(ctx, appt.ProviderID, appt.ID); err != nil {
			s.logger.Warn("failed to complete appointment",
				zap.String("appointment_id", appt.ID.String()),
				zap.Error(err),
			)
			continue
		}
		completed++
	}
	return completed, nil
}

func (s *Service) Get(ctx context.Context, providerID, id uuid.UUID) (*Appointment, error) {
	appt, err := s.ledger.GetByID(ctx, providerID, id)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, err
		}
		return nil, transient("get appointment", err)
	}
	return appt, nil
}

// ListRange returns the provider's appointments between from and to inclusive.
func (s *Service) ListRange(ctx context.Context, providerID uuid.UUID, from, to schedule.DateOnly) ([]Appointment, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("%s after %s: %w", from, to, ErrInvalidDateRange)
	}
	if to.Time().Sub(from.Time()) > maxListRangeDays*24*time.Hour {
		return nil, fmt.Errorf("range longer than %d days: %w", maxListRangeDays, ErrInvalidDateRange)
	}
	if _, err := s.loadSchedule(ctx, providerID); err != nil {
		return nil, err
	}

	appts, err := s.ledger.ListRange(ctx, providerID, from, to)
	if err != nil {
		return nil, transient("list appointments", err)
	}
	return appts, nil
}

func (s *Service) loadSchedule(ctx context.Context, providerID uuid.UUID) (*schedule.Config, error) {
	cfg, err := s.schedules.Get(ctx, providerID)
	if err != nil {
		if errors.Is(err, schedule.ErrProviderNotFound) {
			return nil, err
		}
		return nil, transient("load schedule", err)
	}
	return cfg, nil
}

func (s *Service) publish(ctx context.Context, eventType string, appt *Appointment) {
	ev := events.Event{
		ID:              uuid.NewString(),
		Type:            eventType,
		ProviderID:      appt.ProviderID.String(),
		AppointmentID:   appt.ID.String(),
		Reference:       appt.Reference,
		Date:            appt.Date.String(),
		Start:           appt.Start.String(),
		DurationMinutes: appt.DurationMinutes,
		ClientRef:       appt.ClientRef,
		OccurredAt:      s.now().UTC(),
	}
	if appt.ServiceTypeID != nil {
		ev.ServiceTypeID = appt.ServiceTypeID.String()
	}

	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.Warn("failed to publish appointment event",
			zap.String("event_type", eventType),
			zap.String("appointment_id", appt.ID.String()),
			zap.Error(err),
		)
	}
}
