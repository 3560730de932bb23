package availability

import (
	"fmt"
	"math"
	"strings"

	"fieldbook/backend/internal/domain"
)

type ReasonKind string

const (
	ReasonNearbyJobs  ReasonKind = "nearby_jobs"
	ReasonNearestJob  ReasonKind = "nearest_job"
	ReasonSameCity    ReasonKind = "same_city"
	ReasonSameState   ReasonKind = "same_state"
	ReasonNoConflicts ReasonKind = "no_conflicts"
)

// Reason explains a day's rank. Kind and Value drive ordering; Text is for display only.
type Reason struct {
	Kind  ReasonKind
	Value float64
	Text  string
}

// dayScore is the clustering signal of one calendar day relative to the target.
type dayScore struct {
	geo       bool
	nearby    int
	nearestKm float64
	sameCity  int
	sameState int
}

func scoreDay(target *domain.LatLng, addr domain.Address, items []domain.Commitment, radiusKm float64) dayScore {
	s := dayScore{geo: target != nil, nearestKm: math.Inf(1)}
	city := strings.TrimSpace(addr.City)
	state := strings.TrimSpace(addr.State)

	for _, c := range items {
		if target != nil {
			if loc := c.Location(); loc != nil {
				d := domain.DistanceKm(*target, *loc)
				if d <= radiusKm {
					s.nearby++
				}
				if d < s.nearestKm {
					s.nearestKm = d
				}
			}
		}
		if state != "" && strings.EqualFold(strings.TrimSpace(c.State), state) {
			s.sameState++
			if city != "" && strings.EqualFold(strings.TrimSpace(c.City), city) {
				s.sameCity++
			}
		}
	}
	return s
}

// compare orders scores best first: more nearby jobs, then a closer nearest
// job, then more same-city and same-state jobs.
func (s dayScore) compare(o dayScore) int {
	switch {
	case s.nearby != o.nearby:
		return o.nearby - s.nearby
	case s.nearestKm < o.nearestKm:
		return -1
	case s.nearestKm > o.nearestKm:
		return 1
	case s.sameCity != o.sameCity:
		return o.sameCity - s.sameCity
	case s.sameState != o.sameState:
		return o.sameState - s.sameState
	}
	return 0
}

func (s dayScore) reason(radiusKm float64) Reason {
	switch {
	case s.geo && s.nearby > 0:
		return Reason{
			Kind:  ReasonNearbyJobs,
			Value: float64(s.nearby),
			Text:  fmt.Sprintf("%s within %.0f km", plural(s.nearby, "job"), radiusKm),
		}
	case s.geo && !math.IsInf(s.nearestKm, 1):
		km := math.Round(s.nearestKm*10) / 10
		return Reason{
			Kind:  ReasonNearestJob,
			Value: km,
			Text:  fmt.Sprintf("nearest job %.1f km away", km),
		}
	case s.sameCity > 0:
		return Reason{
			Kind:  ReasonSameCity,
			Value: float64(s.sameCity),
			Text:  fmt.Sprintf("%s in the same city", plural(s.sameCity, "job")),
		}
	case s.sameState > 0:
		return Reason{
			Kind:  ReasonSameState,
			Value: float64(s.sameState),
			Text:  fmt.Sprintf("%s in the same state", plural(s.sameState, "job")),
		}
	}
	return Reason{Kind: ReasonNoConflicts, Text: "no conflicts"}
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
