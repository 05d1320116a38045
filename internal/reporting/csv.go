package reporting

import (
	"fmt"
	"strings"
	"time"

	"listing-lab/internal/domain"
)

// RenderCSV renders an enriched table as CSV string, one row per listing.
// Absent values render as empty cells.
func RenderCSV(records []*domain.EnrichedRecord) string {
	var sb strings.Builder

	// Header
	sb.WriteString("listing_id,listing_type,ownership,property_status,property_type,region,area,")
	sb.WriteString("bedrooms,building_size_sqm,land_size_sqm,")
	sb.WriteString("price_sale_idr,rent_price_month_norm,adr,price_per_sqm,")
	sb.WriteString("lease_years_remaining,ppsy,annual_rent_per_sqm,yield_pct_proxy,")
	sb.WriteString("days_listed,effective_date,outlier\n")

	// Rows
	for _, r := range records {
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%s,%s,%s,%s,%s,%s,%s,%s,%s,%s,%s,%s,%s,%s,%s,%s,%s,%t\n",
			r.ListingID,
			r.ListingType,
			r.Ownership,
			r.PropertyStatus,
			csvString(r.PropertyType),
			csvStringPtr(r.Region),
			csvStringPtr(r.Area),
			csvInt(r.Bedrooms),
			csvFloat(r.BuildingSizeSqm),
			csvFloat(r.LandSizeSqm),
			csvFloat(r.PriceSaleIDR),
			csvFloat(r.RentPriceMonthNorm),
			csvFloat(r.ADR),
			csvFloat(r.PricePerSqm),
			csvInt(r.LeaseYearsRemaining),
			csvFloat(r.PPSY),
			csvFloat(r.AnnualRentPerSqm),
			csvFloat(r.YieldPctProxy),
			csvInt(r.DaysListed),
			csvDate(r.EffectiveDate()),
			r.IsOutlierAny(),
		))
	}

	return sb.String()
}

func csvString(s string) string {
	if strings.ContainsAny(s, ",\"\n") {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}

func csvStringPtr(s *string) string {
	if s == nil {
		return ""
	}
	return csvString(*s)
}

func csvFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%.6f", *v)
}

func csvInt(v *int) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%d", *v)
}

func csvDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}
