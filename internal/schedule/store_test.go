package schedule

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	redisclient "github.com/hackgods/practice-booking/internal/redis"
)

func newTestStore(t *testing.T) (*Store, uuid.UUID) {
	t.Helper()
	store := NewStore(NewMemoryRepository(), redisclient.NewLocalLocker(), zap.NewNop())
	providerID := uuid.New()
	if _, err := store.Create(context.Background(), providerID); err != nil {
		t.Fatalf("create: %v", err)
	}
	return store, providerID
}

func TestStore_CreateDefaults(t *testing.T) {
	store, providerID := newTestStore(t)

	cfg, err := store.Get(context.Background(), providerID)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Revision != 1 {
		t.Fatalf("expected revision 1, got %d", cfg.Revision)
	}
	if !cfg.Day(time.Monday).Enabled || cfg.Day(time.Sunday).Enabled {
		t.Fatal("default config should open Monday and close Sunday")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	if _, err := store.Create(context.Background(), providerID); !errors.Is(err, ErrProviderExists) {
		t.Fatalf("expected ErrProviderExists, got %v", err)
	}
}

func TestStore_ValidationErrors(t *testing.T) {
	ctx := context.Background()
	monday := DateOnly{Year: 2026, Month: time.January, Day: 5}

	tests := []struct {
		name    string
		mutate  func(s *Store, id uuid.UUID) error
		wantErr error
	}{
		{
			name: "hours start after end",
			mutate: func(s *Store, id uuid.UUID) error {
				_, err := s.SetWorkingHours(ctx, id, time.Monday, MustTimeOfDay(18, 0), MustTimeOfDay(9, 0))
				return err
			},
			wantErr: ErrInvalidRange,
		},
		{
			name: "hours start equals end",
			mutate: func(s *Store, id uuid.UUID) error {
				_, err := s.SetWorkingHours(ctx, id, time.Monday, MustTimeOfDay(9, 0), MustTimeOfDay(9, 0))
				return err
			},
			wantErr: ErrInvalidRange,
		},
		{
			name: "zero duration",
			mutate: func(s *Store, id uuid.UUID) error {
				_, err := s.SetAppointmentDuration(ctx, id, 0)
				return err
			},
			wantErr: ErrInvalidDuration,
		},
		{
			name: "negative gap",
			mutate: func(s *Store, id uuid.UUID) error {
				_, err := s.SetGapMinutes(ctx, id, -5)
				return err
			},
			wantErr: ErrInvalidDuration,
		},
		{
			name: "duration longer than a day",
			mutate: func(s *Store, id uuid.UUID) error {
				_, err := s.SetAppointmentDuration(ctx, id, MaxMinutes+1)
				return err
			},
			wantErr: ErrInvalidDuration,
		},
		{
			name: "gap near the int limit",
			mutate: func(s *Store, id uuid.UUID) error {
				_, err := s.SetGapMinutes(ctx, id, math.MaxInt-10)
				return err
			},
			wantErr: ErrInvalidDuration,
		},
		{
			name: "service type duration near the int limit",
			mutate: func(s *Store, id uuid.UUID) error {
				_, _, err := s.AddServiceType(ctx, id, "Marathon", math.MaxInt-100, 0, nil)
				return err
			},
			wantErr: ErrInvalidDuration,
		},
		{
			name: "inverted break",
			mutate: func(s *Store, id uuid.UUID) error {
				_, _, err := s.AddBreak(ctx, id, monday, MustTimeOfDay(13, 0), MustTimeOfDay(12, 0), "lunch")
				return err
			},
			wantErr: ErrInvalidRange,
		},
		{
			name: "service type without duration",
			mutate: func(s *Store, id uuid.UUID) error {
				_, _, err := s.AddServiceType(ctx, id, "Consult", 0, 1000, nil)
				return err
			},
			wantErr: ErrInvalidDuration,
		},
		{
			name: "service type with negative price",
			mutate: func(s *Store, id uuid.UUID) error {
				_, _, err := s.AddServiceType(ctx, id, "Consult", 30, -1, nil)
				return err
			},
			wantErr: ErrInvalidPrice,
		},
		{
			name: "update unknown service type",
			mutate: func(s *Store, id uuid.UUID) error {
				name := "x"
				_, err := s.UpdateServiceType(ctx, id, uuid.New(), ServiceTypePatch{Name: &name})
				return err
			},
			wantErr: ErrServiceTypeNotFound,
		},
		{
			name: "unknown provider",
			mutate: func(s *Store, _ uuid.UUID) error {
				_, err := s.SetGapMinutes(ctx, uuid.New(), 10)
				return err
			},
			wantErr: ErrProviderNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, providerID := newTestStore(t)

			err := tt.mutate(store, providerID)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}

			cfg, err := store.Get(ctx, providerID)
			if err != nil {
				t.Fatal(err)
			}
			if cfg.Revision != 1 {
				t.Fatalf("rejected mutation must not bump the revision, got %d", cfg.Revision)
			}
		})
	}
}

func TestStore_MutationsBumpRevision(t *testing.T) {
	store, providerID := newTestStore(t)
	ctx := context.Background()

	cfg, err := store.SetWorkingHours(ctx, providerID, time.Saturday, MustTimeOfDay(10, 0), MustTimeOfDay(14, 0))
	if err != nil {
		t.Fatal(err)
	}
	cfg, err = store.SetWeekdayEnabled(ctx, providerID, time.Saturday, true)
	if err != nil {
		t.Fatal(err)
	}
	cfg, err = store.SetGapMinutes(ctx, providerID, 0)
	if err != nil {
		t.Fatalf("zero gap is allowed: %v", err)
	}

	if cfg.Revision != 4 {
		t.Fatalf("expected revision 4, got %d", cfg.Revision)
	}
	sat := cfg.Day(time.Saturday)
	if !sat.Enabled || sat.Hours.Start != MustTimeOfDay(10, 0) || sat.Hours.End != MustTimeOfDay(14, 0) {
		t.Fatalf("unexpected Saturday schedule %+v", sat)
	}
}

func TestStore_Breaks(t *testing.T) {
	store, providerID := newTestStore(t)
	ctx := context.Background()
	date := DateOnly{Year: 2026, Month: time.March, Day: 2}

	cfg, breakID, err := store.AddBreak(ctx, providerID, date, MustTimeOfDay(12, 0), MustTimeOfDay(13, 0), "  lunch ")
	if err != nil {
		t.Fatal(err)
	}
	breaks := cfg.BreaksOn(date)
	if len(breaks) != 1 || breaks[0].ID != breakID || breaks[0].Reason != "lunch" {
		t.Fatalf("unexpected breaks %+v", breaks)
	}
	if len(cfg.BreaksOn(date.AddDays(1))) != 0 {
		t.Fatal("break leaked onto another date")
	}

	cfg, err = store.RemoveBreak(ctx, providerID, breakID)
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Breaks) != 0 {
		t.Fatalf("expected no breaks, got %+v", cfg.Breaks)
	}

	before := cfg.Revision
	cfg, err = store.RemoveBreak(ctx, providerID, breakID)
	if err != nil {
		t.Fatalf("removing an unknown break should be a no-op: %v", err)
	}
	if cfg.Revision != before+1 {
		t.Fatalf("expected revision %d, got %d", before+1, cfg.Revision)
	}
}

func TestStore_ServiceTypes(t *testing.T) {
	store, providerID := newTestStore(t)
	ctx := context.Background()

	desc := "First meeting"
	_, id, err := store.AddServiceType(ctx, providerID, "Intro", 30, 0, &desc)
	if err != nil {
		t.Fatal(err)
	}

	duration := 45
	price := int64(5000)
	cfg, err := store.UpdateServiceType(ctx, providerID, id, ServiceTypePatch{DurationMinutes: &duration, Price: &price})
	if err != nil {
		t.Fatal(err)
	}
	st, ok := cfg.ServiceType(id)
	if !ok {
		t.Fatal("service type missing")
	}
	if st.Name != "Intro" || st.DurationMinutes != 45 || st.Price != 5000 || st.Description == nil || *st.Description != desc {
		t.Fatalf("unexpected service type %+v", st)
	}
	if cfg.DurationFor(id) != 45 {
		t.Fatalf("DurationFor = %d", cfg.DurationFor(id))
	}

	bad := 0
	if _, err := store.UpdateServiceType(ctx, providerID, id, ServiceTypePatch{DurationMinutes: &bad}); !errors.Is(err, ErrInvalidDuration) {
		t.Fatalf("expected ErrInvalidDuration, got %v", err)
	}

	cfg, err = store.RemoveServiceType(ctx, providerID, id)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := cfg.ServiceType(id); ok {
		t.Fatal("service type still present")
	}
	if cfg.DurationFor(id) != cfg.AppointmentDurationMinutes {
		t.Fatal("removed service type should fall back to the default duration")
	}
	if _, err := store.RemoveServiceType(ctx, providerID, id); err != nil {
		t.Fatalf("remove should be idempotent: %v", err)
	}
}

func TestStore_IfRevision(t *testing.T) {
	store, providerID := newTestStore(t)
	ctx := context.Background()

	cfg, err := store.SetGapMinutes(ctx, providerID, 10, IfRevision(1))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.SetGapMinutes(ctx, providerID, 20, IfRevision(1)); !errors.Is(err, ErrStaleRevision) {
		t.Fatalf("expected ErrStaleRevision, got %v", err)
	}
	if _, err := store.SetGapMinutes(ctx, providerID, 20, IfRevision(cfg.Revision)); err != nil {
		t.Fatal(err)
	}
}

func TestStore_SnapshotsAreIsolated(t *testing.T) {
	store, providerID := newTestStore(t)
	ctx := context.Background()

	cfg, _, err := store.AddServiceType(ctx, providerID, "Intro", 30, 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	cfg.ServiceTypes[0].DurationMinutes = -10
	cfg.Weekdays[time.Monday].Enabled = false

	fresh, err := store.Get(ctx, providerID)
	if err != nil {
		t.Fatal(err)
	}
	if fresh.ServiceTypes[0].DurationMinutes != 30 || !fresh.Weekdays[time.Monday].Enabled {
		t.Fatal("mutating a snapshot leaked into the store")
	}
}

func TestStore_ConcurrentMutationsSerialize(t *testing.T) {
	store, providerID := newTestStore(t)
	ctx := context.Background()
	date := DateOnly{Year: 2026, Month: time.March, Day: 2}

	const n = 25
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			start := MustTimeOfDay(8, i)
			if _, _, err := store.AddBreak(ctx, providerID, date, start, start+1, ""); err != nil {
				t.Errorf("add break: %v", err)
			}
		}(i)
	}
	wg.Wait()

	cfg, err := store.Get(ctx, providerID)
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Breaks) != n {
		t.Fatalf("expected %d breaks, got %d", n, len(cfg.Breaks))
	}
	if cfg.Revision != n+1 {
		t.Fatalf("expected revision %d, got %d", n+1, cfg.Revision)
	}
}

func TestStore_UpdateWeekday(t *testing.T) {
	store, providerID := newTestStore(t)
	ctx := context.Background()

	enabled := true
	hours := WorkingHours{Start: MustTimeOfDay(8, 30), End: MustTimeOfDay(12, 0)}
	cfg, err := store.UpdateWeekday(ctx, providerID, time.Sunday, &enabled, &hours)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Revision != 2 {
		t.Fatalf("expected a single revision bump, got %d", cfg.Revision)
	}
	if got := cfg.Day(time.Sunday); !got.Enabled || got.Hours != hours {
		t.Fatalf("unexpected Sunday %+v", got)
	}

	cfg, err = store.UpdateWeekday(ctx, providerID, time.Sunday, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := cfg.Day(time.Sunday); !got.Enabled || got.Hours != hours {
		t.Fatalf("nil arguments should leave the day alone, got %+v", got)
	}

	bad := WorkingHours{Start: MustTimeOfDay(12, 0), End: MustTimeOfDay(8, 0)}
	if _, err := store.UpdateWeekday(ctx, providerID, time.Sunday, nil, &bad); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
}

func TestStore_ServiceTypeNameRequired(t *testing.T) {
	store, providerID := newTestStore(t)
	ctx := context.Background()

	if _, _, err := store.AddServiceType(ctx, providerID, "   ", 30, 0, nil); !errors.Is(err, ErrNameRequired) {
		t.Fatalf("expected ErrNameRequired, got %v", err)
	}

	_, id, err := store.AddServiceType(ctx, providerID, "Review", 30, 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	blank := ""
	if _, err := store.UpdateServiceType(ctx, providerID, id, ServiceTypePatch{Name: &blank}); !errors.Is(err, ErrNameRequired) {
		t.Fatalf("expected ErrNameRequired, got %v", err)
	}
}

func TestStore_UpdateServiceTypeRejectsOversizedDuration(t *testing.T) {
	store, providerID := newTestStore(t)
	ctx := context.Background()

	_, id, err := store.AddServiceType(ctx, providerID, "Review", 30, 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	huge := math.MaxInt
	if _, err := store.UpdateServiceType(ctx, providerID, id, ServiceTypePatch{DurationMinutes: &huge}); !errors.Is(err, ErrInvalidDuration) {
		t.Fatalf("expected ErrInvalidDuration, got %v", err)
	}

	day := MaxMinutes
	if _, err := store.UpdateServiceType(ctx, providerID, id, ServiceTypePatch{DurationMinutes: &day}); err != nil {
		t.Fatalf("a full day is the upper bound: %v", err)
	}
}

func TestConfig_ValidateBounds(t *testing.T) {
	tests := []struct {
		name     string
		duration int
		gap      int
		wantErr  error
	}{
		{"defaults", 60, 0, nil},
		{"full day", MaxMinutes, MaxMinutes, nil},
		{"duration over a day", MaxMinutes + 1, 0, ErrInvalidDuration},
		{"duration at int limit", math.MaxInt, 0, ErrInvalidDuration},
		{"gap at int limit", 60, math.MaxInt - 10, ErrInvalidDuration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig(uuid.New())
			cfg.AppointmentDurationMinutes = tt.duration
			cfg.GapMinutes = tt.gap

			err := cfg.Validate()
			if tt.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestConfig_CloneKeepsEmptyBreaks(t *testing.T) {
	store, providerID := newTestStore(t)
	ctx := context.Background()

	_, id, err := store.AddBreak(ctx, providerID, DateOnly{Year: 2026, Month: time.March, Day: 2}, MustTimeOfDay(12, 0), MustTimeOfDay(13, 0), "lunch")
	if err != nil {
		t.Fatal(err)
	}
	cfg, err := store.RemoveBreak(ctx, providerID, id)
	if err != nil {
		t.Fatal(err)
	}

	raw, err := json.Marshal(cfg.Clone())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(raw), `"breaks":[]`) || !strings.Contains(string(raw), `"service_types":[]`) {
		t.Fatalf("expected empty lists in the stored document, got %s", raw)
	}
}

type failingRepository struct {
	Repository
	saveErr error
}

func (r failingRepository) Save(context.Context, Config) error { return r.saveErr }

func TestStore_StorageFaultsAreUnavailable(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	providerID := uuid.New()

	store := NewStore(failingRepository{Repository: repo, saveErr: errors.New("connection reset by peer")},
		redisclient.NewLocalLocker(), zap.NewNop())
	if _, err := store.Create(ctx, providerID); err != nil {
		t.Fatal(err)
	}

	_, err := store.SetGapMinutes(ctx, providerID, 10)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}

	if _, err := store.Get(ctx, uuid.New()); !errors.Is(err, ErrProviderNotFound) || errors.Is(err, ErrUnavailable) {
		t.Fatalf("missing provider must stay ErrProviderNotFound, got %v", err)
	}
}
