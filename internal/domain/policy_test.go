package domain

import (
	"encoding/json"
	"testing"
	"time"
)

func testPolicy(t *testing.T) Policy {
	t.Helper()
	var hours WeeklyHours
	raw := `{"mon":[{"start":"08:00","end":"18:00"}],"tue":[{"start":"08:00","end":"12:00"},{"start":"13:00","end":"17:30"}]}`
	if err := json.Unmarshal([]byte(raw), &hours); err != nil {
		t.Fatalf("unmarshal hours: %v", err)
	}
	return Policy{
		Timezone:          "America/Denver",
		BusinessHours:     hours,
		BookingWindowDays: 14,
		BlackoutDates:     []string{"2026-12-28"},
	}
}

func TestParseClockTime(t *testing.T) {
	cases := []struct {
		in      string
		want    ClockTime
		wantErr bool
	}{
		{in: "08:00", want: 480},
		{in: "23:59", want: 1439},
		{in: "24:00", want: 1440},
		{in: "24:30", wantErr: true},
		{in: "7:60", wantErr: true},
		{in: "noon", wantErr: true},
	}
	for _, tc := range cases {
		got, err := ParseClockTime(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("ParseClockTime(%q) expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseClockTime(%q) error: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParseClockTime(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestPolicy_InBusinessHours(t *testing.T) {
	p := testPolicy(t)
	loc, err := p.Location()
	if err != nil {
		t.Fatalf("Location error: %v", err)
	}

	// 2026-10-19 is a Monday.
	if !p.InBusinessHours(time.Date(2026, 10, 19, 8, 0, 0, 0, loc)) {
		t.Fatalf("Monday 08:00 should be open")
	}
	if p.InBusinessHours(time.Date(2026, 10, 19, 18, 0, 0, 0, loc)) {
		t.Fatalf("Monday 18:00 should be closed (end is exclusive)")
	}
	if p.InBusinessHours(time.Date(2026, 10, 19, 19, 0, 0, 0, loc)) {
		t.Fatalf("Monday 19:00 should be closed")
	}
	if p.InBusinessHours(time.Date(2026, 10, 20, 12, 30, 0, 0, loc)) {
		t.Fatalf("Tuesday lunch break should be closed")
	}
	if !p.InBusinessHours(time.Date(2026, 10, 20, 13, 0, 0, 0, loc)) {
		t.Fatalf("Tuesday 13:00 should be open")
	}
	if !p.IsDayOff(time.Date(2026, 10, 21, 0, 0, 0, 0, loc)) {
		t.Fatalf("Wednesday has no hours and should be a day off")
	}
	// 2026-12-28 is a Monday but blacked out.
	if !p.IsDayOff(time.Date(2026, 12, 28, 0, 0, 0, 0, loc)) {
		t.Fatalf("blackout date should be a day off")
	}
}

func TestPolicy_QuietHoursWrapMidnight(t *testing.T) {
	p := Policy{QuietHours: &TimeWindow{Start: 21 * 60, End: 7 * 60}}
	if !p.InQuietHours(time.Date(2026, 1, 1, 22, 0, 0, 0, time.UTC)) {
		t.Fatalf("22:00 should be quiet")
	}
	if !p.InQuietHours(time.Date(2026, 1, 1, 6, 0, 0, 0, time.UTC)) {
		t.Fatalf("06:00 should be quiet")
	}
	if p.InQuietHours(time.Date(2026, 1, 1, 7, 0, 0, 0, time.UTC)) {
		t.Fatalf("07:00 should not be quiet")
	}
}

func TestPolicy_WithinBookingWindow(t *testing.T) {
	p := Policy{BookingWindowDays: 14}
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	if !p.WithinBookingWindow(now, now.AddDate(0, 0, 14)) {
		t.Fatalf("exactly 14 days out should be inside the window")
	}
	if p.WithinBookingWindow(now, now.AddDate(0, 0, 20)) {
		t.Fatalf("20 days out should be outside a 14 day window")
	}
}

func TestServiceArea_Allows(t *testing.T) {
	area := ServiceArea{States: []string{"CO"}, PostalPrefixes: []string{"802", "803"}}
	if !area.Allows(Address{State: "co", PostalCode: "80203"}) {
		t.Fatalf("expected Denver address to be allowed")
	}
	if area.Allows(Address{State: "CO", PostalCode: "81001"}) {
		t.Fatalf("expected Pueblo postal code to be rejected")
	}
	if area.Allows(Address{State: "WY", PostalCode: "80203"}) {
		t.Fatalf("expected other state to be rejected")
	}
	if !(ServiceArea{}).Allows(Address{}) {
		t.Fatalf("empty service area should allow everything")
	}
}

func TestAlignedToGridAndGridPoints(t *testing.T) {
	loc := time.UTC
	if !AlignedToGrid(time.Date(2026, 1, 1, 9, 0, 0, 0, loc), loc, time.Hour) {
		t.Fatalf("09:00 should be aligned")
	}
	if AlignedToGrid(time.Date(2026, 1, 1, 9, 30, 0, 0, loc), loc, time.Hour) {
		t.Fatalf("09:30 should not be aligned to an hourly grid")
	}
	if !AlignedToGrid(time.Date(2026, 1, 1, 9, 30, 0, 0, loc), loc, 30*time.Minute) {
		t.Fatalf("09:30 should be aligned to a half-hour grid")
	}

	day := time.Date(2026, 1, 1, 0, 0, 0, 0, loc)
	points := GridPoints(day, TimeWindow{Start: 8*60 + 30, End: 12 * 60}, time.Hour)
	if len(points) != 3 {
		t.Fatalf("len(points) = %d, want 3", len(points))
	}
	if points[0].Hour() != 9 || points[2].Hour() != 11 {
		t.Fatalf("points = %v, want 09:00..11:00", points)
	}
}

func TestDayKey(t *testing.T) {
	loc, err := time.LoadLocation("America/Denver")
	if err != nil {
		t.Fatalf("LoadLocation error: %v", err)
	}
	// 03:00 UTC on the 20th is still the 19th in Denver.
	got := DayKey(time.Date(2026, 10, 20, 3, 0, 0, 0, time.UTC), loc)
	if got != 20261019 {
		t.Fatalf("DayKey = %d, want 20261019", got)
	}
}

func TestDayKeysSpanned(t *testing.T) {
	loc, err := time.LoadLocation("America/Denver")
	if err != nil {
		t.Fatalf("LoadLocation error: %v", err)
	}
	at := func(day, h int) time.Time { return time.Date(2026, 10, day, h, 0, 0, 0, loc) }

	tests := []struct {
		name string
		iv   Interval
		want []int32
	}{
		{"same day", Interval{Start: at(19, 8), End: at(19, 10)}, []int32{20261019}},
		{"ends at midnight", Interval{Start: at(19, 20), End: at(20, 0)}, []int32{20261019}},
		{"crosses midnight", Interval{Start: at(19, 20), End: at(20, 1)}, []int32{20261019, 20261020}},
		{"multi-day job", Interval{Start: at(19, 8), End: at(19, 8).Add(1950 * time.Minute)}, []int32{20261019, 20261020}},
		{"three days", Interval{Start: at(19, 23), End: at(21, 2)}, []int32{20261019, 20261020, 20261021}},
		{"empty", Interval{Start: at(19, 8), End: at(19, 8)}, []int32{20261019}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DayKeysSpanned(tt.iv, loc)
			if len(got) != len(tt.want) {
				t.Fatalf("DayKeysSpanned = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("DayKeysSpanned = %v, want %v", got, tt.want)
				}
			}
		})
	}
}
