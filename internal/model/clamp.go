package model

import (
	"math"
	"strings"
)

const (
	MinDuration     = 0.1
	MaxDuration     = 8.0
	DefaultDuration = 1.0

	// DurationEpsilon is the smallest duration change worth sending to the server.
	DurationEpsilon = 1e-3

	MinRepetitions = 1
	MaxRepetitions = 16
)

// ClampDuration clamps d into [MinDuration, MaxDuration]. NaN maps to DefaultDuration.
func ClampDuration(d float64) float64 {
	if math.IsNaN(d) {
		return DefaultDuration
	}
	if d < MinDuration {
		return MinDuration
	}
	if d > MaxDuration {
		return MaxDuration
	}
	return d
}

func ClampRepetitions(n int) int {
	if n < MinRepetitions {
		return MinRepetitions
	}
	if n > MaxRepetitions {
		return MaxRepetitions
	}
	return n
}

func RepetitionsInRange(n int) bool {
	return n >= MinRepetitions && n <= MaxRepetitions
}

// NormalizeName trims s; empty input means "unnamed" (nil).
func NormalizeName(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// DurationChanged reports whether next differs from prev by more than DurationEpsilon.
func DurationChanged(prev, next float64) bool {
	return math.Abs(next-prev) > DurationEpsilon
}
