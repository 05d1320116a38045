// Package lease extracts the integer years remaining on a lease from
// structured and free-text listing fields.
package lease

import (
	"regexp"
	"strconv"
	"strings"
)

// yearsPattern matches a number immediately followed by a lease-term token,
// e.g. "25 years", "25yrs", "25 tahun", "25 th".
var yearsPattern = regexp.MustCompile(`(?i)(\d{1,3})\s*(?:years?|yrs?|th|tahun)`)

// Bounds for a plausible remaining lease term. Resolved values outside the
// range are clamped, not discarded.
const (
	MinYears = 1
	MaxYears = 99
)

// Input carries the fields the fallback chain reads. All fields are
// optional; CurrentYear anchors the expiry-year fallback.
type Input struct {
	LeaseDuration   *string
	LeaseExpiryYear *int
	Description     *string
	CurrentYear     int
}

// Strategy is one fallback stage: a pure function returning the resolved
// years, or nil when the stage cannot resolve.
type Strategy func(Input) *int

// Strategies returns the fallback chain in evaluation order. Exposed so each
// stage can be exercised independently.
func Strategies() []Strategy {
	return []Strategy{directNumeric, fromExpiryYear, fromText}
}

// YearsRemaining runs the fallback chain, first non-nil result wins, and
// clamps the result into [MinYears, MaxYears]. Returns nil when every stage
// fails. Callers only invoke this for leasehold listings.
func YearsRemaining(in Input) *int {
	for _, strategy := range Strategies() {
		if years := strategy(in); years != nil {
			clamped := clamp(*years)
			return &clamped
		}
	}
	return nil
}

// directNumeric resolves lease_duration that is already a plain integer,
// optionally with decoration such as "25" or " 25 ".
func directNumeric(in Input) *int {
	if in.LeaseDuration == nil {
		return nil
	}
	s := strings.TrimSpace(*in.LeaseDuration)
	if s == "" {
		return nil
	}
	if years, err := strconv.Atoi(s); err == nil {
		return &years
	}
	// Numeric-looking floats like "25.0" still count as direct parses.
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		years := int(f)
		return &years
	}
	return nil
}

// fromExpiryYear derives years from lease_expiry_year minus the current
// year. Non-positive remainders fall through to the next stage.
func fromExpiryYear(in Input) *int {
	if in.LeaseExpiryYear == nil || in.CurrentYear == 0 {
		return nil
	}
	years := *in.LeaseExpiryYear - in.CurrentYear
	if years <= 0 {
		return nil
	}
	return &years
}

// fromText pattern-matches lease_duration then description, first numeric
// match wins.
func fromText(in Input) *int {
	for _, field := range []*string{in.LeaseDuration, in.Description} {
		if field == nil {
			continue
		}
		m := yearsPattern.FindStringSubmatch(*field)
		if m == nil {
			continue
		}
		years, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		return &years
	}
	return nil
}

func clamp(years int) int {
	if years < MinYears {
		return MinYears
	}
	if years > MaxYears {
		return MaxYears
	}
	return years
}
