package schedule

import (
	"encoding/json"
	"fmt"
	"time"
)

const DateLayout = "2006-01-02"

// DateOnly is a civil calendar date. It carries no location, so weekday and
// equality never shift with the server timezone.
type DateOnly struct {
	Year  int
	Month time.Month
	Day   int
}

func ParseDate(s string) (DateOnly, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return DateOnly{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// DateOf returns the calendar date of t in t's own location.
func DateOf(t time.Time) DateOnly {
	y, m, d := t.Date()
	return DateOnly{Year: y, Month: m, Day: d}
}

// Time returns midnight UTC of the date.
func (d DateOnly) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d DateOnly) Weekday() time.Weekday { return d.Time().Weekday() }

func (d DateOnly) IsZero() bool { return d == DateOnly{} }

func (d DateOnly) Before(o DateOnly) bool { return d.Time().Before(o.Time()) }

func (d DateOnly) After(o DateOnly) bool { return d.Time().After(o.Time()) }

func (d DateOnly) AddDays(n int) DateOnly { return DateOf(d.Time().AddDate(0, 0, n)) }

func (d DateOnly) String() string { return d.Time().Format(DateLayout) }

func (d DateOnly) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *DateOnly) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = v
	return nil
}
