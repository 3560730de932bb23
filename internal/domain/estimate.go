package domain

import (
	"math"
	"strings"
)

// JobSignals are the quote characteristics the duration estimate is derived from.
type JobSignals struct {
	PerceivedSize string
	AIPriceMax    *float64
}

type Estimate struct {
	Units           int
	DurationMinutes int
	Loads           int
}

const (
	unitPrice         = 200.0
	defaultUnits      = 3
	minutesPerLoad    = 240
	unitsPerLoad      = 4
	smallJobMaxUnits  = 2
	smallJobMinutes   = 120
	mediumJobMaxUnits = 4
	mediumJobMinutes  = 180
	multiLoadMinLoads = 2
)

var perceivedSizeUnits = map[string]int{
	"single_item":        1,
	"few_items":          2,
	"small_load":         3,
	"quarter_load":       3,
	"half_load":          4,
	"three_quarter_load": 6,
	"full_load":          8,
	"multiple_loads":     12,
}

// KnownPerceivedSize reports whether size is in the fallback table.
func KnownPerceivedSize(size string) bool {
	_, ok := perceivedSizeUnits[normalizeSize(size)]
	return ok
}

// EstimateDuration maps job signals to an on-site duration and a truck load count.
func EstimateDuration(sig JobSignals) Estimate {
	return EstimateFromUnits(unitsFor(sig))
}

func EstimateFromUnits(units int) Estimate {
	switch {
	case units <= smallJobMaxUnits:
		return Estimate{Units: units, DurationMinutes: smallJobMinutes, Loads: 1}
	case units <= mediumJobMaxUnits:
		return Estimate{Units: units, DurationMinutes: mediumJobMinutes, Loads: 1}
	}
	loads := int(math.Ceil(float64(units) / unitsPerLoad))
	if loads < multiLoadMinLoads {
		loads = multiLoadMinLoads
	}
	return Estimate{Units: units, DurationMinutes: loads * minutesPerLoad, Loads: loads}
}

func unitsFor(sig JobSignals) int {
	if sig.AIPriceMax != nil && *sig.AIPriceMax > 0 {
		return int(math.Round(*sig.AIPriceMax / unitPrice))
	}
	if units, ok := perceivedSizeUnits[normalizeSize(sig.PerceivedSize)]; ok {
		return units
	}
	return defaultUnits
}

func normalizeSize(size string) string {
	s := strings.ToLower(strings.TrimSpace(size))
	return strings.ReplaceAll(s, "-", "_")
}
