package schedule

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DisplayOrder lists weekdays Monday first, the order the schedule is shown in.
var DisplayOrder = [7]time.Weekday{
	time.Monday,
	time.Tuesday,
	time.Wednesday,
	time.Thursday,
	time.Friday,
	time.Saturday,
	time.Sunday,
}

// ParseWeekday accepts full English weekday names, case-insensitive.
func ParseWeekday(s string) (time.Weekday, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.ToLower(d.String()) == name {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", s)
}

type WorkingHours struct {
	Start TimeOfDay `json:"start"`
	End   TimeOfDay `json:"end"`
}

func (h WorkingHours) Valid() bool {
	return h.Start.Valid() && h.End.Valid() && h.Start < h.End
}

type WeekdaySchedule struct {
	Enabled bool         `json:"enabled"`
	Hours   WorkingHours `json:"hours"`
}

type BreakPeriod struct {
	ID     uuid.UUID `json:"id"`
	Date   DateOnly  `json:"date"`
	Start  TimeOfDay `json:"start"`
	End    TimeOfDay `json:"end"`
	Reason string    `json:"reason,omitempty"`
}

func (b BreakPeriod) Interval() Interval {
	return Interval{Start: b.Start.Minutes(), End: b.End.Minutes()}
}

type ServiceType struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	DurationMinutes int       `json:"duration_minutes"`
	// Price is in minor currency units.
	Price       int64   `json:"price"`
	Description *string `json:"description,omitempty"`
}

// Config is one provider's scheduling configuration. Values handed out by the
// Store are snapshots; mutating them has no effect on stored state.
type Config struct {
	ProviderID                 uuid.UUID          `json:"provider_id"`
	Revision                   int64              `json:"revision"`
	Weekdays                   [7]WeekdaySchedule `json:"weekdays"` // indexed by time.Weekday
	AppointmentDurationMinutes int                `json:"appointment_duration_minutes"`
	GapMinutes                 int                `json:"gap_minutes"`
	Breaks                     []BreakPeriod      `json:"breaks"`
	ServiceTypes               []ServiceType      `json:"service_types"`
	BookingLinkEnabled         bool               `json:"booking_link_enabled"`
	UpdatedAt                  time.Time          `json:"updated_at"`
}

// DefaultConfig returns Mon-Fri 09:00-17:00, 60 minute appointments, no gap.
func DefaultConfig(providerID uuid.UUID) Config {
	cfg := Config{
		ProviderID:                 providerID,
		AppointmentDurationMinutes: 60,
		Breaks:                     []BreakPeriod{},
		ServiceTypes:               []ServiceType{},
		BookingLinkEnabled:         true,
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		cfg.Weekdays[d] = WeekdaySchedule{
			Enabled: d != time.Saturday && d != time.Sunday,
			Hours:   WorkingHours{Start: MustTimeOfDay(9, 0), End: MustTimeOfDay(17, 0)},
		}
	}
	return cfg
}

func (c Config) Day(d time.Weekday) WeekdaySchedule {
	return c.Weekdays[d]
}

func (c Config) ServiceType(id uuid.UUID) (ServiceType, bool) {
	for _, st := range c.ServiceTypes {
		if st.ID == id {
			return st, true
		}
	}
	return ServiceType{}, false
}

// DurationFor resolves a service type to its duration, falling back to the
// global appointment duration when the id is unknown or nil.
func (c Config) DurationFor(serviceTypeID uuid.UUID) int {
	if st, ok := c.ServiceType(serviceTypeID); ok {
		return st.DurationMinutes
	}
	return c.AppointmentDurationMinutes
}

func (c Config) BreaksOn(date DateOnly) []BreakPeriod {
	var out []BreakPeriod
	for _, b := range c.Breaks {
		if b.Date == date {
			out = append(out, b)
		}
	}
	return out
}

// Clone returns a deep copy so mutators never alias a published snapshot.
func (c Config) Clone() Config {
	out := c
	out.Breaks = make([]BreakPeriod, len(c.Breaks))
	copy(out.Breaks, c.Breaks)
	out.ServiceTypes = make([]ServiceType, len(c.ServiceTypes))
	for i, st := range c.ServiceTypes {
		if st.Description != nil {
			desc := *st.Description
			st.Description = &desc
		}
		out.ServiceTypes[i] = st
	}
	return out
}

// Validate checks every invariant the slot generator relies on.
func (c Config) Validate() error {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if !c.Weekdays[d].Hours.Valid() {
			return fmt.Errorf("%s hours %s-%s: %w", d, c.Weekdays[d].Hours.Start, c.Weekdays[d].Hours.End, ErrInvalidRange)
		}
	}
	if c.AppointmentDurationMinutes <= 0 || c.AppointmentDurationMinutes > MaxMinutes {
		return fmt.Errorf("appointment duration %d: %w", c.AppointmentDurationMinutes, ErrInvalidDuration)
	}
	if c.GapMinutes < 0 || c.GapMinutes > MaxMinutes {
		return fmt.Errorf("gap %d: %w", c.GapMinutes, ErrInvalidDuration)
	}
	for _, b := range c.Breaks {
		if !b.Start.Valid() || !b.End.Valid() || b.Start >= b.End {
			return fmt.Errorf("break %s: %w", b.ID, ErrInvalidRange)
		}
	}
	for _, st := range c.ServiceTypes {
		if err := validateServiceType(st.DurationMinutes, st.Price); err != nil {
			return fmt.Errorf("service type %s: %w", st.ID, err)
		}
	}
	return nil
}

func validateServiceType(durationMinutes int, price int64) error {
	if durationMinutes <= 0 || durationMinutes > MaxMinutes {
		return ErrInvalidDuration
	}
	if price < 0 {
		return ErrInvalidPrice
	}
	return nil
}
