// Package filter evaluates a declarative FilterSpec against an enriched
// listing table. Every active dimension is an independent predicate; all
// active predicates are combined with logical AND.
package filter

import (
	"fmt"
	"time"

	"listing-lab/internal/domain"
)

// InvalidRangeError reports a caller-supplied range with lower bound greater
// than upper bound. This is the one spec error rejected at the engine
// boundary; it indicates a configuration bug upstream.
type InvalidRangeError struct {
	Field string
	Min   float64
	Max   float64
}

func (e *InvalidRangeError) Error() string {
	if e.Field == "date" {
		return "invalid date range: start after end"
	}
	return fmt.Sprintf("invalid %s range: lower bound %g greater than upper bound %g", e.Field, e.Min, e.Max)
}

// InvalidGranularityError reports a granularity outside the enumerated set.
type InvalidGranularityError struct {
	Granularity domain.Granularity
}

func (e *InvalidGranularityError) Error() string {
	return fmt.Sprintf("invalid granularity %q", e.Granularity)
}

// Validate checks the structural validity of a spec without touching data.
func Validate(spec domain.FilterSpec) error {
	ranges := []struct {
		field string
		r     domain.Range
	}{
		{"price", spec.PriceRange},
		{"rent", spec.RentRange},
		{"building_size", spec.BuildingSizeRange},
		{"land_size", spec.LandSizeRange},
	}
	for _, rr := range ranges {
		if rr.r.Inverted() {
			return &InvalidRangeError{Field: rr.field, Min: *rr.r.Min, Max: *rr.r.Max}
		}
	}
	if spec.DateStart != nil && spec.DateEnd != nil && spec.DateStart.After(*spec.DateEnd) {
		return &InvalidRangeError{Field: "date"}
	}
	if spec.Granularity != "" && !spec.Granularity.Valid() {
		return &InvalidGranularityError{Granularity: spec.Granularity}
	}
	return nil
}

// Apply evaluates the spec against the table and returns the reduced view.
// The input slice is never mutated; record order is preserved. Applying the
// same spec twice yields an identical result, and a zero-value spec returns
// the table unchanged.
func Apply(table []*domain.EnrichedRecord, spec domain.FilterSpec, now time.Time) ([]*domain.EnrichedRecord, error) {
	if err := Validate(spec); err != nil {
		return nil, err
	}

	dateStart, dateEnd := resolveDates(spec, now)
	relevant := relevantMetrics(spec)

	out := make([]*domain.EnrichedRecord, 0, len(table))
	for _, r := range table {
		if !matches(r, spec, dateStart, dateEnd, relevant) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// resolveDates picks explicit bounds for the Custom preset, otherwise the
// preset resolution against now.
func resolveDates(spec domain.FilterSpec, now time.Time) (*time.Time, *time.Time) {
	switch spec.DatePreset {
	case domain.PresetCustom:
		return spec.DateStart, spec.DateEnd
	case "", domain.PresetAll:
		// Explicit bounds without a preset still constrain.
		return spec.DateStart, spec.DateEnd
	default:
		return ResolvePreset(spec.DatePreset, now)
	}
}

// relevantMetrics returns the metric set the outlier-exclusion toggle
// consults for the active view. A sale view ignores rent-metric flags and
// vice versa; an unrestricted view considers every flag.
func relevantMetrics(spec domain.FilterSpec) []string {
	if spec.ListingType == nil {
		return nil // nil means any flag
	}
	switch *spec.ListingType {
	case domain.ListingTypeSale:
		return []string{domain.MetricPriceSale, domain.MetricPricePerSqm, domain.MetricPPSY, domain.MetricYieldProxy}
	case domain.ListingTypeRent:
		return []string{domain.MetricRentMonthNorm, domain.MetricADR, domain.MetricAnnualRentSqm}
	}
	return nil
}

func matches(r *domain.EnrichedRecord, spec domain.FilterSpec, dateStart, dateEnd *time.Time, relevant []string) bool {
	if spec.ListingType != nil && r.ListingType != *spec.ListingType {
		return false
	}
	if len(spec.PropertyTypes) > 0 && !containsString(spec.PropertyTypes, r.PropertyType) {
		return false
	}

	// Ownership applies to sale rows only: rentals labeled "Yearly Rental"
	// must not be excluded by a tenure selection.
	if len(spec.Ownership) > 0 && r.ListingType == domain.ListingTypeSale {
		found := false
		for _, o := range spec.Ownership {
			if r.Ownership == o {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if len(spec.PropertyStatus) > 0 {
		found := false
		for _, ps := range spec.PropertyStatus {
			if r.PropertyStatus == ps {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if len(spec.Regions) > 0 && !containsOptString(spec.Regions, r.Region) {
		return false
	}
	if len(spec.Areas) > 0 && !containsOptString(spec.Areas, r.Area) {
		return false
	}

	if len(spec.Bedrooms) > 0 && !matchesBedrooms(r.Bedrooms, spec.Bedrooms) {
		return false
	}

	if !spec.PriceRange.Contains(r.PriceSaleIDR) {
		return false
	}
	if !spec.RentRange.Contains(r.RentPriceMonthNorm) {
		return false
	}
	if !spec.BuildingSizeRange.Contains(r.BuildingSizeSqm) {
		return false
	}
	if !spec.LandSizeRange.Contains(r.LandSizeSqm) {
		return false
	}

	if dateStart != nil || dateEnd != nil {
		d := r.EffectiveDate()
		if d == nil {
			return false
		}
		if dateStart != nil && d.Before(*dateStart) {
			return false
		}
		// End bound is exclusive: presets resolve to [start, end).
		if dateEnd != nil && !d.Before(*dateEnd) {
			return false
		}
	}

	if spec.HideOutliers && flaggedForView(r, relevant) {
		return false
	}

	return true
}

// flaggedForView reports whether the record carries an outlier flag for any
// metric relevant to the active view. A nil metric set means any flag counts.
func flaggedForView(r *domain.EnrichedRecord, relevant []string) bool {
	if relevant == nil {
		return r.IsOutlierAny()
	}
	for _, m := range relevant {
		if r.IsOutlier(m) {
			return true
		}
	}
	return false
}

func matchesBedrooms(bedrooms *int, buckets []domain.BedroomsBucket) bool {
	if bedrooms == nil {
		return false
	}
	for _, b := range buckets {
		low, high, ok := b.Bounds()
		if !ok {
			continue
		}
		if *bedrooms < low {
			continue
		}
		if high != nil && *bedrooms > *high {
			continue
		}
		return true
	}
	return false
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

func containsOptString(haystack []string, needle *string) bool {
	if needle == nil {
		return false
	}
	return containsString(haystack, *needle)
}
