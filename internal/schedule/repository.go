package schedule

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrProviderNotFound    = errors.New("provider not found")
	ErrProviderExists      = errors.New("provider already has a schedule")
	ErrServiceTypeNotFound = errors.New("service type not found")
	ErrStaleRevision       = errors.New("schedule revision is stale")

	// ErrUnavailable wraps repository faults; the same request may succeed later.
	ErrUnavailable = errors.New("schedule storage unavailable")

	ErrInvalidRange    = errors.New("start must be before end")
	ErrInvalidDuration = errors.New("invalid duration")
	ErrInvalidPrice    = errors.New("price must not be negative")
	ErrNameRequired    = errors.New("service type name is required")
)

// Repository persists one Config per provider.
type Repository interface {
	Get(ctx context.Context, providerID uuid.UUID) (*Config, error)
	Insert(ctx context.Context, cfg Config) error
	// Save replaces the stored config. Implementations must reject the write with
	// ErrStaleRevision unless the stored revision equals cfg.Revision-1.
	Save(ctx context.Context, cfg Config) error
}
