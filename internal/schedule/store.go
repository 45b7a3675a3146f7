package schedule

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	redisclient "github.com/hackgods/practice-booking/internal/redis"
)

// Store is the only write path for provider schedules. Every mutation runs
// under the provider lock, is validated as a whole and bumps the revision.
type Store struct {
	repo   Repository
	locker redisclient.Locker
	logger *zap.Logger
	now    func() time.Time
}

func NewStore(repo Repository, locker redisclient.Locker, logger *zap.Logger) *Store {
	return &Store{
		repo:   repo,
		locker: locker,
		logger: logger,
		now:    time.Now,
	}
}

type mutateOptions struct {
	expectedRevision int64
}

// MutateOption tunes a single mutation.
type MutateOption func(*mutateOptions)

// IfRevision makes the mutation fail with ErrStaleRevision unless the stored
// revision equals rev. Zero disables the check.
func IfRevision(rev int64) MutateOption {
	return func(o *mutateOptions) { o.expectedRevision = rev }
}

// Create stores the default schedule for a new provider.
func (s *Store) Create(ctx context.Context, providerID uuid.UUID) (*Config, error) {
	cfg := DefaultConfig(providerID)
	cfg.Revision = 1
	cfg.UpdatedAt = s.now().UTC()

	if err := s.repo.Insert(ctx, cfg); err != nil {
		return nil, s.storageErr("insert schedule", providerID, err)
	}
	s.logger.Info("schedule created", zap.String("provider_id", providerID.String()))
	return &cfg, nil
}

// Get returns a snapshot of the provider's schedule.
func (s *Store) Get(ctx context.Context, providerID uuid.UUID) (*Config, error) {
	cfg, err := s.repo.Get(ctx, providerID)
	if err != nil {
		return nil, s.storageErr("load schedule", providerID, err)
	}
	return cfg, nil
}

func (s *Store) SetWeekdayEnabled(ctx context.Context, providerID uuid.UUID, day time.Weekday, enabled bool, opts ...MutateOption) (*Config, error) {
	return s.mutate(ctx, providerID, "set_weekday_enabled", opts, func(cfg *Config) error {
		if day < time.Sunday || day > time.Saturday {
			return fmt.Errorf("weekday %d out of range", day)
		}
		cfg.Weekdays[day].Enabled = enabled
		return nil
	})
}

func (s *Store) SetWorkingHours(ctx context.Context, providerID uuid.UUID, day time.Weekday, start, end TimeOfDay, opts ...MutateOption) (*Config, error) {
	return s.mutate(ctx, providerID, "set_working_hours", opts, func(cfg *Config) error {
		if day < time.Sunday || day > time.Saturday {
			return fmt.Errorf("weekday %d out of range", day)
		}
		hours := WorkingHours{Start: start, End: end}
		if !hours.Valid() {
			return fmt.Errorf("%s hours %s-%s: %w", day, start, end, ErrInvalidRange)
		}
		cfg.Weekdays[day].Hours = hours
		return nil
	})
}

// UpdateWeekday changes the enabled flag and hours of one weekday in a single
// revision. Nil arguments are left as they are.
func (s *Store) UpdateWeekday(ctx context.Context, providerID uuid.UUID, day time.Weekday, enabled *bool, hours *WorkingHours, opts ...MutateOption) (*Config, error) {
	return s.mutate(ctx, providerID, "update_weekday", opts, func(cfg *Config) error {
		if day < time.Sunday || day > time.Saturday {
			return fmt.Errorf("weekday %d out of range", day)
		}
		if hours != nil {
			if !hours.Valid() {
				return fmt.Errorf("%s hours %s-%s: %w", day, hours.Start, hours.End, ErrInvalidRange)
			}
			cfg.Weekdays[day].Hours = *hours
		}
		if enabled != nil {
			cfg.Weekdays[day].Enabled = *enabled
		}
		return nil
	})
}

func (s *Store) SetAppointmentDuration(ctx context.Context, providerID uuid.UUID, minutes int, opts ...MutateOption) (*Config, error) {
	return s.mutate(ctx, providerID, "set_appointment_duration", opts, func(cfg *Config) error {
		if minutes <= 0 || minutes > MaxMinutes {
			return fmt.Errorf("appointment duration %d: %w", minutes, ErrInvalidDuration)
		}
		cfg.AppointmentDurationMinutes = minutes
		return nil
	})
}

func (s *Store) SetGapMinutes(ctx context.Context, providerID uuid.UUID, minutes int, opts ...MutateOption) (*Config, error) {
	return s.mutate(ctx, providerID, "set_gap_minutes", opts, func(cfg *Config) error {
		if minutes < 0 || minutes > MaxMinutes {
			return fmt.Errorf("gap %d: %w", minutes, ErrInvalidDuration)
		}
		cfg.GapMinutes = minutes
		return nil
	})
}

func (s *Store) SetBookingLinkEnabled(ctx context.Context, providerID uuid.UUID, enabled bool, opts ...MutateOption) (*Config, error) {
	return s.mutate(ctx, providerID, "set_booking_link_enabled", opts, func(cfg *Config) error {
		cfg.BookingLinkEnabled = enabled
		return nil
	})
}

// AddBreak blocks [start,end) on date and returns the new break's id.
func (s *Store) AddBreak(ctx context.Context, providerID uuid.UUID, date DateOnly, start, end TimeOfDay, reason string, opts ...MutateOption) (*Config, uuid.UUID, error) {
	id := uuid.New()
	cfg, err := s.mutate(ctx, providerID, "add_break", opts, func(cfg *Config) error {
		if date.IsZero() {
			return fmt.Errorf("break date is required")
		}
		if !start.Valid() || !end.Valid() || start >= end {
			return fmt.Errorf("break %s-%s: %w", start, end, ErrInvalidRange)
		}
		cfg.Breaks = append(cfg.Breaks, BreakPeriod{
			ID:     id,
			Date:   date,
			Start:  start,
			End:    end,
			Reason: strings.TrimSpace(reason),
		})
		return nil
	})
	if err != nil {
		return nil, uuid.Nil, err
	}
	return cfg, id, nil
}

// RemoveBreak is idempotent: removing an unknown id still returns the snapshot.
func (s *Store) RemoveBreak(ctx context.Context, providerID, breakID uuid.UUID, opts ...MutateOption) (*Config, error) {
	return s.mutate(ctx, providerID, "remove_break", opts, func(cfg *Config) error {
		kept := cfg.Breaks[:0]
		for _, b := range cfg.Breaks {
			if b.ID != breakID {
				kept = append(kept, b)
			}
		}
		cfg.Breaks = kept
		return nil
	})
}

func (s *Store) AddServiceType(ctx context.Context, providerID uuid.UUID, name string, durationMinutes int, price int64, description *string, opts ...MutateOption) (*Config, uuid.UUID, error) {
	id := uuid.New()
	cfg, err := s.mutate(ctx, providerID, "add_service_type", opts, func(cfg *Config) error {
		name = strings.TrimSpace(name)
		if name == "" {
			return ErrNameRequired
		}
		if err := validateServiceType(durationMinutes, price); err != nil {
			return fmt.Errorf("service type %q: %w", name, err)
		}
		cfg.ServiceTypes = append(cfg.ServiceTypes, ServiceType{
			ID:              id,
			Name:            name,
			DurationMinutes: durationMinutes,
			Price:           price,
			Description:     description,
		})
		return nil
	})
	if err != nil {
		return nil, uuid.Nil, err
	}
	return cfg, id, nil
}

// ServiceTypePatch carries the fields to change; nil fields are left alone.
type ServiceTypePatch struct {
	Name            *string
	DurationMinutes *int
	Price           *int64
	Description     *string
}

func (s *Store) UpdateServiceType(ctx context.Context, providerID, serviceTypeID uuid.UUID, patch ServiceTypePatch, opts ...MutateOption) (*Config, error) {
	return s.mutate(ctx, providerID, "update_service_type", opts, func(cfg *Config) error {
		for i := range cfg.ServiceTypes {
			st := &cfg.ServiceTypes[i]
			if st.ID != serviceTypeID {
				continue
			}
			updated := *st
			if patch.Name != nil {
				name := strings.TrimSpace(*patch.Name)
				if name == "" {
					return ErrNameRequired
				}
				updated.Name = name
			}
			if patch.DurationMinutes != nil {
				updated.DurationMinutes = *patch.DurationMinutes
			}
			if patch.Price != nil {
				updated.Price = *patch.Price
			}
			if patch.Description != nil {
				desc := *patch.Description
				updated.Description = &desc
			}
			if err := validateServiceType(updated.DurationMinutes, updated.Price); err != nil {
				return fmt.Errorf("service type %s: %w", serviceTypeID, err)
			}
			*st = updated
			return nil
		}
		return ErrServiceTypeNotFound
	})
}

// RemoveServiceType is idempotent. Appointments already booked against the
// type keep their own duration and are not touched.
func (s *Store) RemoveServiceType(ctx context.Context, providerID, serviceTypeID uuid.UUID, opts ...MutateOption) (*Config, error) {
	return s.mutate(ctx, providerID, "remove_service_type", opts, func(cfg *Config) error {
		kept := cfg.ServiceTypes[:0]
		for _, st := range cfg.ServiceTypes {
			if st.ID != serviceTypeID {
				kept = append(kept, st)
			}
		}
		cfg.ServiceTypes = kept
		return nil
	})
}

func (s *Store) mutate(ctx context.Context, providerID uuid.UUID, op string, opts []MutateOption, fn func(cfg *Config) error) (*Config, error) {
	var o mutateOptions
	for _, opt := range opts {
		opt(&o)
	}

	var updated *Config
	err := s.locker.WithProviderLock(ctx, providerID, func(lockCtx context.Context) error {
		current, err := s.repo.Get(lockCtx, providerID)
		if err != nil {
			return s.storageErr("load schedule", providerID, err)
		}
		if o.expectedRevision != 0 && current.Revision != o.expectedRevision {
			return ErrStaleRevision
		}

		next := current.Clone()
		if err := fn(&next); err != nil {
			return err
		}
		if err := next.Validate(); err != nil {
			return err
		}
		next.Revision = current.Revision + 1
		next.UpdatedAt = s.now().UTC()

		if err := s.repo.Save(lockCtx, next); err != nil {
			return s.storageErr("save schedule", providerID, err)
		}
		updated = &next
		return nil
	})
	if err != nil {
		s.logger.Debug("schedule mutation rejected",
			zap.String("op", op),
			zap.String("provider_id", providerID.String()),
			zap.Error(err),
		)
		return nil, err
	}

	s.logger.Info("schedule updated",
		zap.String("op", op),
		zap.String("provider_id", providerID.String()),
		zap.Int64("revision", updated.Revision),
	)
	return updated, nil
}

// storageErr passes repository sentinels through and wraps anything else as
// ErrUnavailable.
func (s *Store) storageErr(op string, providerID uuid.UUID, err error) error {
	switch {
	case errors.Is(err, ErrProviderNotFound),
		errors.Is(err, ErrProviderExists),
		errors.Is(err, ErrStaleRevision):
		return err
	}
	s.logger.Error("schedule storage failure",
		zap.String("op", op),
		zap.String("provider_id", providerID.String()),
		zap.Error(err),
	)
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}
