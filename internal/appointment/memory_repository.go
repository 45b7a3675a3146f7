package appointment

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/practice-booking/internal/schedule"
)

// MemoryLedger keeps appointments in process.
type MemoryLedger struct {
	mu    sync.RWMutex
	appts map[uuid.UUID][]Appointment
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{appts: make(map[uuid.UUID][]Appointment)}
}

func (l *MemoryLedger) ListByDate(ctx context.Context, providerID uuid.UUID, date schedule.DateOnly) ([]Appointment, error) {
	return l.ListRange(ctx, providerID, date, date)
}

func (l *MemoryLedger) ListRange(_ context.Context, providerID uuid.UUID, from, to schedule.DateOnly) ([]Appointment, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []Appointment
	for _, a := range l.appts[providerID] {
		if a.Date.Before(from) || a.Date.After(to) {
			continue
		}
		out = append(out, a)
	}
	sortAppointments(out)
	return out, nil
}

func (l *MemoryLedger) GetByID(_ context.Context, providerID, id uuid.UUID) (*Appointment, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, a := range l.appts[providerID] {
		if a.ID == id {
			out := a
			return &out, nil
		}
	}
	return nil, ErrAppointmentNotFound
}

func (l *MemoryLedger) Append(_ context.Context, appt Appointment) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if appt.Status == StatusScheduled {
		for _, a := range l.appts[appt.ProviderID] {
			if a.Status == StatusScheduled && a.Date == appt.Date && a.Interval().Overlaps(appt.Interval()) {
				return ErrLedgerOverlap
			}
		}
	}
	l.appts[appt.ProviderID] = append(l.appts[appt.ProviderID], appt)
	return nil
}

func (l *MemoryLedger) UpdateStatus(_ context.Context, providerID, id uuid.UUID, from, to AppointmentStatus, at time.Time) (*Appointment, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	list := l.appts[providerID]
	for i := range list {
		if list[i].ID != id || list[i].Status != from {
			continue
		}
		list[i].Status = to
		list[i].UpdatedAt = at
		out := list[i]
		return &out, nil
	}
	return nil, ErrAppointmentNotFound
}

func (l *MemoryLedger) FindScheduledBefore(_ context.Context, date schedule.DateOnly, limit int) ([]Appointment, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []Appointment
	for _, list := range l.appts {
		for _, a := range list {
			if a.Status == StatusScheduled && a.Date.Before(date) {
				out = append(out, a)
			}
		}
	}
	sortAppointments(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func sortAppointments(list []Appointment) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].Date != list[j].Date {
			return list[i].Date.Before(list[j].Date)
		}
		return list[i].Start < list[j].Start
	})
}
