package schedule

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		name      string
		in        string
		want      TimeOfDay
		wantError bool
	}{
		{name: "standard", in: "09:30", want: 9*60 + 30},
		{name: "midnight", in: "00:00", want: 0},
		{name: "last minute", in: "23:59", want: 23*60 + 59},
		{name: "single digit hour", in: "9:05", want: 9*60 + 5},
		{name: "hour out of range", in: "24:00", wantError: true},
		{name: "minute out of range", in: "10:60", wantError: true},
		{name: "missing colon", in: "0930", wantError: true},
		{name: "single digit minute", in: "09:5", wantError: true},
		{name: "dash separator", in: "09-30", wantError: true},
		{name: "empty", in: "", wantError: true},
		{name: "negative", in: "-1:30", wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTimeOfDay(tt.in)
			if (err != nil) != tt.wantError {
				t.Fatalf("ParseTimeOfDay(%q) error = %v, wantError %v", tt.in, err, tt.wantError)
			}
			if !tt.wantError && got != tt.want {
				t.Fatalf("ParseTimeOfDay(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestTimeOfDay_JSON(t *testing.T) {
	var v struct {
		At TimeOfDay `json:"at"`
	}
	if err := json.Unmarshal([]byte(`{"at":"13:05"}`), &v); err != nil {
		t.Fatal(err)
	}
	if v.At != MustTimeOfDay(13, 5) {
		t.Fatalf("got %s", v.At)
	}
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"at":"13:05"}` {
		t.Fatalf("got %s", b)
	}
	if err := json.Unmarshal([]byte(`{"at":"25:00"}`), &v); err == nil {
		t.Fatal("expected error for invalid time")
	}
}

func TestInterval_Overlaps(t *testing.T) {
	a := Interval{Start: 60, End: 120}
	tests := []struct {
		name string
		b    Interval
		want bool
	}{
		{name: "identical", b: Interval{Start: 60, End: 120}, want: true},
		{name: "contained", b: Interval{Start: 70, End: 80}, want: true},
		{name: "straddles start", b: Interval{Start: 30, End: 61}, want: true},
		{name: "touches end", b: Interval{Start: 120, End: 180}, want: false},
		{name: "touches start", b: Interval{Start: 0, End: 60}, want: false},
		{name: "disjoint", b: Interval{Start: 200, End: 260}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := a.Overlaps(tt.b); got != tt.want {
				t.Fatalf("Overlaps = %v, want %v", got, tt.want)
			}
			if got := tt.b.Overlaps(a); got != tt.want {
				t.Fatalf("Overlaps is not symmetric")
			}
		})
	}
}

func TestDateOnly(t *testing.T) {
	d, err := ParseDate("2026-01-05")
	if err != nil {
		t.Fatal(err)
	}
	if d.Weekday() != time.Monday {
		t.Fatalf("expected Monday, got %s", d.Weekday())
	}
	if d.String() != "2026-01-05" {
		t.Fatalf("got %s", d)
	}
	if got := d.AddDays(-5).String(); got != "2025-12-31" {
		t.Fatalf("AddDays across year: got %s", got)
	}
	if !d.Before(d.AddDays(1)) || d.Before(d) {
		t.Fatal("Before is wrong")
	}

	// A late evening in a zone ahead of UTC keeps its local calendar date.
	tokyo := time.FixedZone("JST", 9*3600)
	if got := DateOf(time.Date(2026, 1, 5, 23, 30, 0, 0, tokyo)); got != d {
		t.Fatalf("DateOf drifted to %s", got)
	}

	if _, err := ParseDate("2026-02-30"); err == nil {
		t.Fatal("expected error for impossible date")
	}
	if _, err := ParseDate("05/01/2026"); err == nil {
		t.Fatal("expected error for wrong layout")
	}
}

func TestParseWeekday(t *testing.T) {
	for _, in := range []string{"monday", "Monday", " MONDAY "} {
		d, err := ParseWeekday(in)
		if err != nil || d != time.Monday {
			t.Fatalf("ParseWeekday(%q) = %v, %v", in, d, err)
		}
	}
	if _, err := ParseWeekday("funday"); err == nil {
		t.Fatal("expected error")
	}
}
