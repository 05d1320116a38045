package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Granularity is the time-bucket resolution consumed by downstream
// resampling. It is not a row filter; the filter engine only validates it.
type Granularity string

const (
	GranularityDay     Granularity = "DAY"
	GranularityWeek    Granularity = "WEEK"
	GranularityMonth   Granularity = "MONTH"
	GranularityQuarter Granularity = "QUARTER"
)

// Valid reports whether g is one of the enumerated granularities.
func (g Granularity) Valid() bool {
	switch g {
	case GranularityDay, GranularityWeek, GranularityMonth, GranularityQuarter:
		return true
	}
	return false
}

// DatePreset is a named date range resolved against a reference "now".
type DatePreset string

const (
	PresetAll    DatePreset = "ALL"
	Preset5Y     DatePreset = "5Y"
	Preset3Y     DatePreset = "3Y"
	Preset1Y     DatePreset = "1Y"
	Preset6M     DatePreset = "6M"
	PresetYTD    DatePreset = "YTD"
	PresetQTD    DatePreset = "QTD"
	PresetCustom DatePreset = "CUSTOM"
)

// PPSYBasis selects the size column PPSY comparisons are based on.
type PPSYBasis string

const (
	PPSYBasisBuilding PPSYBasis = "BUILDING"
	PPSYBasisLand     PPSYBasis = "LAND"
)

// BedroomsBucket is a discrete bedrooms-count bucket.
type BedroomsBucket string

const (
	BucketStudio BedroomsBucket = "STUDIO"
	Bucket1      BedroomsBucket = "1"
	Bucket2      BedroomsBucket = "2"
	Bucket3To4   BedroomsBucket = "3-4"
	Bucket5Plus  BedroomsBucket = "5+"
)

// Bounds returns the inclusive bedrooms-count bounds of the bucket.
// A nil high bound means unbounded above. ok is false for unknown buckets.
func (b BedroomsBucket) Bounds() (low int, high *int, ok bool) {
	one, two, four := 1, 2, 4
	switch b {
	case BucketStudio:
		zero := 0
		return 0, &zero, true
	case Bucket1:
		return 1, &one, true
	case Bucket2:
		return 2, &two, true
	case Bucket3To4:
		return 3, &four, true
	case Bucket5Plus:
		return 5, nil, true
	}
	return 0, nil, false
}

// Range is an inclusive numeric range. A nil bound means unbounded on that
// side; the zero value is fully unbounded and contributes no predicate.
type Range struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// Active reports whether the range constrains anything.
func (r Range) Active() bool {
	return r.Min != nil || r.Max != nil
}

// Inverted reports whether both bounds are set with Min > Max.
func (r Range) Inverted() bool {
	return r.Min != nil && r.Max != nil && *r.Min > *r.Max
}

// Contains reports whether v satisfies the range. An absent value never
// satisfies an active range.
func (r Range) Contains(v *float64) bool {
	if !r.Active() {
		return true
	}
	if v == nil {
		return false
	}
	if r.Min != nil && *v < *r.Min {
		return false
	}
	if r.Max != nil && *v > *r.Max {
		return false
	}
	return true
}

// FilterSpec is an immutable description of the active selection. The zero
// value leaves every dimension unbounded and matches every record.
//
// Currency contract: bounds and stored values are always IDR. Currency
// display conversion happens at the presentation boundary and never mutates
// the spec or the table.
type FilterSpec struct {
	ListingType    *ListingType     `json:"listing_type,omitempty"`
	PropertyTypes  []string         `json:"property_types,omitempty"`
	Ownership      []Ownership      `json:"ownership,omitempty"`
	PropertyStatus []PropertyStatus `json:"property_status,omitempty"`
	Regions        []string         `json:"regions,omitempty"`
	Areas          []string         `json:"areas,omitempty"`
	Bedrooms       []BedroomsBucket `json:"bedrooms,omitempty"`

	PriceRange        Range `json:"price_range,omitzero"`
	RentRange         Range `json:"rent_range,omitzero"`
	BuildingSizeRange Range `json:"building_size_range,omitzero"`
	LandSizeRange     Range `json:"land_size_range,omitzero"`

	// Date selection: a preset, or explicit bounds with PresetCustom.
	// PresetAll / empty leaves dates unbounded.
	DatePreset DatePreset `json:"date_preset,omitempty"`
	DateStart  *time.Time `json:"date_start,omitempty"`
	DateEnd    *time.Time `json:"date_end,omitempty"`

	Granularity Granularity `json:"granularity,omitempty"`

	HideOutliers bool `json:"hide_outliers,omitempty"`

	PPSYBasis              PPSYBasis `json:"ppsy_basis,omitempty"`
	FreeholdHorizonEnabled bool      `json:"freehold_horizon_enabled,omitempty"`
	FreeholdHorizonYears   int       `json:"freehold_horizon_years,omitempty"`
}

// Encode serializes the spec to a flat key→value map suitable for persisting
// UI selection state. Round-tripping through Decode is lossless.
func (s FilterSpec) Encode() (map[string]json.RawMessage, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode filter spec: %w", err)
	}
	var out map[string]json.RawMessage
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("encode filter spec: %w", err)
	}
	return out, nil
}

// Decode restores a spec previously produced by Encode.
func Decode(m map[string]json.RawMessage) (FilterSpec, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return FilterSpec{}, fmt.Errorf("decode filter spec: %w", err)
	}
	var s FilterSpec
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&s); err != nil {
		return FilterSpec{}, fmt.Errorf("decode filter spec: %w", err)
	}
	return s, nil
}
