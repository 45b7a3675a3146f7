package availability

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/practice-booking/internal/schedule"
)

// Booking is the view of a ledger entry the generator needs.
type Booking struct {
	Date            schedule.DateOnly
	Start           schedule.TimeOfDay
	DurationMinutes int
	// Active is false for cancelled or otherwise released bookings.
	Active bool
}

func (b Booking) Interval() schedule.Interval {
	return b.Start.Span(b.DurationMinutes)
}

// ComputeAvailableSlots returns the start times on date at which a booking of
// the given service type fits inside working hours without touching a break or
// an active booking. Unknown service types fall back to the configured default
// duration. The result is strictly increasing and may be empty.
func ComputeAvailableSlots(date schedule.DateOnly, cfg schedule.Config, serviceTypeID uuid.UUID, bookings []Booking) []schedule.TimeOfDay {
	day := cfg.Day(date.Weekday())
	if !day.Enabled || !day.Hours.Valid() {
		return []schedule.TimeOfDay{}
	}

	opening, closing := day.Hours.Start.Minutes(), day.Hours.End.Minutes()

	// duration and gap are bounded by the day, so cursor + step cannot overflow.
	duration := cfg.DurationFor(serviceTypeID)
	if duration <= 0 || duration > closing-opening {
		return []schedule.TimeOfDay{}
	}
	gap := min(max(cfg.GapMinutes, 0), schedule.MaxMinutes)
	step := duration + gap

	busy := busyIntervals(date, cfg, bookings)

	slots := []schedule.TimeOfDay{}
	for cursor := opening; cursor+duration <= closing; cursor += step {
		start := schedule.TimeOfDay(cursor)
		if !overlapsAny(start.Span(duration), busy) {
			slots = append(slots, start)
		}
	}
	return slots
}

// Contains reports whether t is one of slots. slots must be sorted.
func Contains(slots []schedule.TimeOfDay, t schedule.TimeOfDay) bool {
	lo, hi := 0, len(slots)
	for lo < hi {
		mid := (lo + hi) / 2
		switch {
		case slots[mid] == t:
			return true
		case slots[mid] < t:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return false
}

// FilterFrom drops slots that already started relative to now. Dates before
// now's date yield nothing; later dates are returned unchanged.
func FilterFrom(slots []schedule.TimeOfDay, date schedule.DateOnly, now time.Time) []schedule.TimeOfDay {
	today := schedule.DateOf(now)
	switch {
	case date.Before(today):
		return []schedule.TimeOfDay{}
	case date.After(today):
		return slots
	}

	nowMinutes := now.Hour()*60 + now.Minute()
	out := make([]schedule.TimeOfDay, 0, len(slots))
	for _, s := range slots {
		if s.Minutes() > nowMinutes {
			out = append(out, s)
		}
	}
	return out
}

func busyIntervals(date schedule.DateOnly, cfg schedule.Config, bookings []Booking) []schedule.Interval {
	var busy []schedule.Interval
	for _, b := range cfg.BreaksOn(date) {
		busy = append(busy, b.Interval())
	}
	for _, b := range bookings {
		if b.Active && b.Date == date {
			busy = append(busy, b.Interval())
		}
	}
	return busy
}

func overlapsAny(candidate schedule.Interval, busy []schedule.Interval) bool {
	for _, b := range busy {
		if candidate.Overlaps(b) {
			return true
		}
	}
	return false
}
