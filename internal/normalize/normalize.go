// Package normalize converts raw semi-structured listing rows into
// ListingRecords. Sentinel tokens and unparseable values become explicit
// absent fields; nothing in this package ever raises for bad data.
package normalize

import (
	"strconv"
	"strings"
	"time"

	"listing-lab/internal/domain"
)

// sentinels are source tokens meaning "no value".
var sentinels = map[string]struct{}{
	"":     {},
	"none": {},
	"n/a":  {},
	"na":   {},
	"null": {},
	"-":    {},
	"—":    {},
}

// scrapedAtLayouts are the timestamp formats observed in source sheets,
// tried in order after RFC3339.
var scrapedAtLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"02-01-2006 15:04:05",
	"02/01/2006 15:04:05",
}

// Stats counts degradations seen while normalizing one batch.
type Stats struct {
	Rows                int
	SentinelsReplaced   int
	PriceParseFailures  int
	NumberParseFailures int
	DateParseFailures   int
	UnknownEnums        int
}

// Row is one raw record keyed by source column name. Unrecognized columns
// are ignored.
type Row map[string]string

// Record maps a raw row to a ListingRecord, accumulating degradations into
// stats. Absent and sentinel values become nil fields.
func Record(row Row, stats *Stats) *domain.ListingRecord {
	stats.Rows++

	r := &domain.ListingRecord{
		ListingID:    cleanRequired(row, "property_id", stats),
		URL:          cleanRequired(row, "url", stats),
		Title:        cleanRequired(row, "title", stats),
		PropertyType: cleanRequired(row, "property_type", stats),
	}

	if v := clean(row, "listing_type", stats); v != nil {
		if lt, ok := domain.ParseListingType(*v); ok {
			r.ListingType = lt
		} else {
			stats.UnknownEnums++
		}
	}

	if v := clean(row, "ownership_type", stats); v != nil {
		r.Ownership = domain.ParseOwnership(*v)
		if r.Ownership == domain.OwnershipUnknown {
			stats.UnknownEnums++
		}
	} else {
		r.Ownership = domain.OwnershipUnknown
	}

	if v := clean(row, "property_status", stats); v != nil {
		r.PropertyStatus = domain.ParsePropertyStatus(*v)
		if r.PropertyStatus == domain.PropertyStatusUnknown {
			stats.UnknownEnums++
		}
	} else {
		r.PropertyStatus = domain.PropertyStatusUnknown
	}

	if v := clean(row, "rent_period", stats); v != nil {
		if p, ok := domain.ParseRentPeriod(*v); ok {
			r.RentPeriod = &p
		} else {
			stats.UnknownEnums++
		}
	}

	r.PriceIDR = parsePrice(row, "price_idr", stats)
	r.PriceUSD = parsePrice(row, "price_usd", stats)

	r.Bedrooms = parseInt(row, "bedrooms", stats)
	r.Bathrooms = parseInt(row, "bathrooms", stats)

	r.BuildingSizeSqm = parseSize(row, "building_size_sqm", stats)
	r.LandSizeSqm = parseSize(row, "land_size_sqm", stats)

	r.LeaseDuration = clean(row, "lease_duration", stats)
	r.LeaseExpiryYear = parseInt(row, "lease_expiry_year", stats)
	r.Description = clean(row, "description", stats)

	r.Company = clean(row, "company", stats)
	r.Region = clean(row, "region", stats)
	r.Area = clean(row, "area", stats)
	if r.Area == nil {
		r.Area = clean(row, "location", stats)
	}
	r.Availability = clean(row, "availability", stats)

	r.ListingDate = parseDate(row, "listing_date", stats)
	r.ScrapedAt = parseDate(row, "scraped_at", stats)

	return r
}

// Records normalizes a batch of rows.
func Records(rows []Row) ([]*domain.ListingRecord, Stats) {
	var stats Stats
	out := make([]*domain.ListingRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, Record(row, &stats))
	}
	return out, stats
}

// clean returns the trimmed value, nil when the column is absent or holds a
// sentinel token.
func clean(row Row, key string, stats *Stats) *string {
	raw, ok := row[key]
	if !ok {
		return nil
	}
	v := strings.TrimSpace(raw)
	if _, isSentinel := sentinels[strings.ToLower(v)]; isSentinel {
		if v != "" {
			stats.SentinelsReplaced++
		}
		return nil
	}
	return &v
}

func cleanRequired(row Row, key string, stats *Stats) string {
	if v := clean(row, key, stats); v != nil {
		return *v
	}
	return ""
}

// parsePrice parses a price column. A zero price is a missing-value
// placeholder in the sources, never a real price.
func parsePrice(row Row, key string, stats *Stats) *float64 {
	v := clean(row, key, stats)
	if v == nil {
		return nil
	}
	f, err := strconv.ParseFloat(stripThousands(*v), 64)
	if err != nil {
		stats.PriceParseFailures++
		return nil
	}
	if f <= 0 {
		return nil
	}
	return &f
}

// parseSize parses a size column; zero means absent.
func parseSize(row Row, key string, stats *Stats) *float64 {
	v := clean(row, key, stats)
	if v == nil {
		return nil
	}
	f, err := strconv.ParseFloat(stripThousands(*v), 64)
	if err != nil {
		stats.NumberParseFailures++
		return nil
	}
	if f <= 0 {
		return nil
	}
	return &f
}

func parseInt(row Row, key string, stats *Stats) *int {
	v := clean(row, key, stats)
	if v == nil {
		return nil
	}
	f, err := strconv.ParseFloat(*v, 64)
	if err != nil {
		stats.NumberParseFailures++
		return nil
	}
	n := int(f)
	return &n
}

// parseDate tries RFC3339 then the observed sheet layouts. Parse failures
// are counted and yield nil.
func parseDate(row Row, key string, stats *Stats) *time.Time {
	v := clean(row, key, stats)
	if v == nil {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, *v); err == nil {
		t = t.UTC()
		return &t
	}
	if t, err := time.Parse("2006-01-02", *v); err == nil {
		return &t
	}
	for _, layout := range scrapedAtLayouts {
		if t, err := time.Parse(layout, *v); err == nil {
			return &t
		}
	}
	stats.DateParseFailures++
	return nil
}

// stripThousands drops separators so "2,500,000,000" parses.
func stripThousands(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, ",", ""), " ", "")
}
