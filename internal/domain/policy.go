package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
)

// ClockTime is a wall-clock time of day in minutes after midnight. It is
// encoded as "HH:MM" in JSON; "24:00" is accepted as an end of day.
type ClockTime int

const minutesPerDay = 24 * 60

func ParseClockTime(s string) (ClockTime, error) {
	var h, m int
	if _, err := fmt.Sscanf(strings.TrimSpace(s), "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("invalid clock time %q", s)
	}
	if h < 0 || m < 0 || m > 59 || h > 24 || (h == 24 && m != 0) {
		return 0, fmt.Errorf("invalid clock time %q", s)
	}
	return ClockTime(h*60 + m), nil
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

func (c ClockTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *ClockTime) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParseClockTime(s)
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// TimeWindow is a daily window [Start, End). A window whose End is before its
// Start wraps midnight (used for quiet hours such as 21:00-07:00).
type TimeWindow struct {
	Start ClockTime `json:"start"`
	End   ClockTime `json:"end"`
}

func (w TimeWindow) Contains(c ClockTime) bool {
	if w.Start <= w.End {
		return c >= w.Start && c < w.End
	}
	return c >= w.Start || c < w.End
}

// WeeklyHours maps a lower-case weekday abbreviation ("mon".."sun") to the
// open windows for that weekday. A missing or empty entry is a day off.
type WeeklyHours map[string][]TimeWindow

var weekdayKeys = [...]string{"sun", "mon", "tue", "wed", "thu", "fri", "sat"}

func WeekdayKey(wd time.Weekday) string {
	return weekdayKeys[wd]
}

func (h WeeklyHours) For(wd time.Weekday) []TimeWindow {
	return h[WeekdayKey(wd)]
}

// ServiceArea is an allow-list; an empty list places no restriction on that field.
type ServiceArea struct {
	States         []string `json:"states,omitempty"`
	Cities         []string `json:"cities,omitempty"`
	PostalPrefixes []string `json:"postal_prefixes,omitempty"`
}

func (a ServiceArea) Allows(addr Address) bool {
	if len(a.States) > 0 && !containsFold(a.States, addr.State) {
		return false
	}
	if len(a.Cities) > 0 && !containsFold(a.Cities, addr.City) {
		return false
	}
	if len(a.PostalPrefixes) > 0 {
		postal := strings.TrimSpace(addr.PostalCode)
		if postal == "" {
			return false
		}
		for _, p := range a.PostalPrefixes {
			if p = strings.TrimSpace(p); p != "" && strings.HasPrefix(postal, p) {
				return true
			}
		}
		return false
	}
	return true
}

func containsFold(list []string, v string) bool {
	v = strings.TrimSpace(v)
	if v == "" {
		return false
	}
	for _, item := range list {
		if strings.EqualFold(strings.TrimSpace(item), v) {
			return true
		}
	}
	return false
}

// Policy is the booking policy snapshot. It is re-read on every request.
type Policy struct {
	bun.BaseModel `bun:"table:booking_policy"`

	ID                  int         `bun:"id,pk"`
	Timezone            string      `bun:"timezone,notnull"`
	BusinessHours       WeeklyHours `bun:"business_hours,type:jsonb,notnull"`
	QuietHours          *TimeWindow `bun:"quiet_hours,type:jsonb"`
	BookingWindowDays   int         `bun:"booking_window_days,notnull"`
	MaxJobsPerDay       int         `bun:"max_jobs_per_day,notnull"`
	TravelBufferMinutes int         `bun:"travel_buffer_minutes,notnull"`
	ServiceArea         ServiceArea `bun:"service_area,type:jsonb,notnull"`
	BlackoutDates       []string    `bun:"blackout_dates,type:jsonb,notnull"`
	UpdatedAt           time.Time   `bun:"updated_at,notnull"`
}

const dateLayout = "2006-01-02"

func (p Policy) Location() (*time.Location, error) {
	tz := strings.TrimSpace(p.Timezone)
	if tz == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("policy timezone %q: %w", tz, err)
	}
	return loc, nil
}

func (p Policy) TravelBuffer() time.Duration {
	return time.Duration(p.TravelBufferMinutes) * time.Minute
}

// BookingHorizon is the latest start that may be booked when asked at now.
func (p Policy) BookingHorizon(now time.Time) time.Time {
	return now.AddDate(0, 0, p.BookingWindowDays)
}

func (p Policy) WithinBookingWindow(now, t time.Time) bool {
	return !t.After(p.BookingHorizon(now))
}

// IsDayOff reports whether the local calendar day has no bookable hours.
func (p Policy) IsDayOff(day time.Time) bool {
	return len(p.WindowsOn(day)) == 0
}

// WindowsOn returns the business-hour windows of a local calendar day.
func (p Policy) WindowsOn(day time.Time) []TimeWindow {
	date := day.Format(dateLayout)
	for _, d := range p.BlackoutDates {
		if strings.TrimSpace(d) == date {
			return nil
		}
	}
	return p.BusinessHours.For(day.Weekday())
}

// InBusinessHours reports whether t falls in a business-hour window of its
// local weekday. t must already be in the policy location.
func (p Policy) InBusinessHours(t time.Time) bool {
	c := clockOf(t)
	for _, w := range p.WindowsOn(t) {
		if w.Start <= w.End && w.Contains(c) {
			return true
		}
	}
	return false
}

func (p Policy) InQuietHours(t time.Time) bool {
	if p.QuietHours == nil || p.QuietHours.Start == p.QuietHours.End {
		return false
	}
	return p.QuietHours.Contains(clockOf(t))
}

func clockOf(t time.Time) ClockTime {
	return ClockTime(t.Hour()*60 + t.Minute())
}

// StartOfDay returns local midnight of the calendar day containing t.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	l := t.In(loc)
	return time.Date(l.Year(), l.Month(), l.Day(), 0, 0, 0, 0, loc)
}

// At returns the instant at clock time c on the local calendar day of day.
func At(day time.Time, c ClockTime) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), int(c)/60, int(c)%60, 0, 0, day.Location())
}

// DayKey encodes the local calendar day of t as yyyymmdd.
func DayKey(t time.Time, loc *time.Location) int32 {
	l := t.In(loc)
	return int32(l.Year()*10000 + int(l.Month())*100 + l.Day())
}

// DayKeysSpanned returns the keys of every local calendar day that iv
// touches, in ascending order. An empty interval touches the day of its start.
func DayKeysSpanned(iv Interval, loc *time.Location) []int32 {
	last := iv.Start
	if iv.End.After(iv.Start) {
		last = iv.End.Add(-time.Nanosecond)
	}
	var keys []int32
	for day := StartOfDay(iv.Start, loc); !day.After(last); day = day.AddDate(0, 0, 1) {
		keys = append(keys, DayKey(day, loc))
	}
	return keys
}

// AlignedToGrid reports whether t sits on the slot grid measured from local midnight.
func AlignedToGrid(t time.Time, loc *time.Location, grid time.Duration) bool {
	if grid <= 0 {
		return true
	}
	l := t.In(loc)
	if l.Second() != 0 || l.Nanosecond() != 0 {
		return false
	}
	mins := l.Hour()*60 + l.Minute()
	step := int(grid / time.Minute)
	if step <= 0 {
		return true
	}
	return mins%step == 0
}

// GridPoints returns the grid-aligned starts inside w on the local day.
func GridPoints(day time.Time, w TimeWindow, grid time.Duration) []time.Time {
	step := int(grid / time.Minute)
	if step <= 0 || w.End <= w.Start {
		return nil
	}
	first := int(w.Start)
	if rem := first % step; rem != 0 {
		first += step - rem
	}
	out := make([]time.Time, 0, (int(w.End)-first)/step+1)
	for m := first; m < int(w.End) && m < minutesPerDay; m += step {
		out = append(out, At(day, ClockTime(m)))
	}
	return out
}
