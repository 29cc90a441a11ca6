package domain

import (
	"math"
	"strconv"
	"strings"
)

type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// ParseLocation parses a "lat, lon" pair. Exactly one comma is accepted and
// both halves must be finite numbers; surrounding whitespace is ignored.
func ParseLocation(raw string) (Location, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 2 {
		return Location{}, Invalid("parse location", "invalid farmLocation. Use 'lat, lon'")
	}

	lat, ok := parseCoordinate(parts[0])
	if !ok {
		return Location{}, Invalid("parse location", "invalid farmLocation. Use 'lat, lon'")
	}
	lon, ok := parseCoordinate(parts[1])
	if !ok {
		return Location{}, Invalid("parse location", "invalid farmLocation. Use 'lat, lon'")
	}
	return Location{Lat: lat, Lon: lon}, nil
}

func parseCoordinate(raw string) (float64, bool) {
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, false
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, false
	}
	return value, true
}
