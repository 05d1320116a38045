package domain

import (
	"strings"
	"time"
)

// ListingType distinguishes sale listings from rentals.
type ListingType string

const (
	ListingTypeSale ListingType = "SALE"
	ListingTypeRent ListingType = "RENT"
)

// Ownership is the tenure type of a listing.
type Ownership string

const (
	OwnershipLeasehold Ownership = "LEASEHOLD"
	OwnershipFreehold  Ownership = "FREEHOLD"
	OwnershipUnknown   Ownership = "UNKNOWN"
)

// PropertyStatus describes construction state.
type PropertyStatus string

const (
	PropertyStatusOffPlan PropertyStatus = "OFF_PLAN"
	PropertyStatusReady   PropertyStatus = "READY"
	PropertyStatusUnknown PropertyStatus = "UNKNOWN"
)

// RentPeriod is the billing period a rent price is quoted in.
type RentPeriod string

const (
	RentPeriodDaily   RentPeriod = "DAILY"
	RentPeriodWeekly  RentPeriod = "WEEKLY"
	RentPeriodMonthly RentPeriod = "MONTHLY"
	RentPeriodYearly  RentPeriod = "YEARLY"
)

// ParseListingType maps free-form source values to a ListingType.
// Returns false when the value matches neither type.
func ParseListingType(s string) (ListingType, bool) {
	switch normalizeEnum(s) {
	case "sale", "for sale", "forsale", "dijual":
		return ListingTypeSale, true
	case "rent", "for rent", "forrent", "rental", "yearly rental", "disewakan":
		return ListingTypeRent, true
	}
	return "", false
}

// ParseOwnership maps free-form source values to an Ownership.
// Unrecognized values map to OwnershipUnknown, never an error.
func ParseOwnership(s string) Ownership {
	switch normalizeEnum(s) {
	case "leasehold", "lease hold", "sewa":
		return OwnershipLeasehold
	case "freehold", "free hold", "hak milik":
		return OwnershipFreehold
	}
	return OwnershipUnknown
}

// ParsePropertyStatus maps free-form source values to a PropertyStatus.
// Unrecognized values map to PropertyStatusUnknown.
func ParsePropertyStatus(s string) PropertyStatus {
	switch normalizeEnum(s) {
	case "off plan", "offplan", "off-plan":
		return PropertyStatusOffPlan
	case "ready", "ready to move", "completed":
		return PropertyStatusReady
	}
	return PropertyStatusUnknown
}

// ParseRentPeriod maps free-form source values to a RentPeriod.
// Returns false for unrecognized values; the field stays absent.
func ParseRentPeriod(s string) (RentPeriod, bool) {
	switch normalizeEnum(s) {
	case "day", "daily", "harian":
		return RentPeriodDaily, true
	case "week", "weekly", "mingguan":
		return RentPeriodWeekly, true
	case "month", "monthly", "bulanan":
		return RentPeriodMonthly, true
	case "year", "yearly", "annual", "annually", "tahun", "tahunan":
		return RentPeriodYearly, true
	}
	return "", false
}

// ListingRecord is one normalized real-estate listing as produced by the
// input normalizer. Absent source values are nil, never zero or "".
type ListingRecord struct {
	ListingID string
	URL       string
	Title     string

	ListingType    ListingType
	Ownership      Ownership
	PropertyStatus PropertyStatus
	PropertyType   string // villa, land, apartment, ...

	// Prices. IDR is the canonical currency; USD columns are kept when the
	// source provides them explicitly.
	PriceIDR *float64
	PriceUSD *float64

	RentPeriod *RentPeriod

	Bedrooms  *int
	Bathrooms *int

	BuildingSizeSqm *float64
	LandSizeSqm     *float64

	// Lease tenure inputs for leasehold listings.
	LeaseDuration   *string // free text, e.g. "25 tahun"
	LeaseExpiryYear *int
	Description     *string

	Company      *string
	Region       *string
	Area         *string
	Availability *string

	ListingDate *time.Time
	ScrapedAt   *time.Time
}

// EffectiveDate returns the listing date, falling back to the scraped date.
// Nil when neither is present.
func (r *ListingRecord) EffectiveDate() *time.Time {
	if r.ListingDate != nil {
		return r.ListingDate
	}
	return r.ScrapedAt
}

func normalizeEnum(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
