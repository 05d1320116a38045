package domain

// Metric names used for outlier classification and diagnostics.
// Values match the derived column names in snapshots and reports.
const (
	MetricPriceSale     = "price_sale_idr"
	MetricRentMonthNorm = "rent_price_month_norm"
	MetricPricePerSqm   = "price_per_sqm"
	MetricPPSY          = "ppsy"
	MetricADR           = "adr"
	MetricAnnualRentSqm = "annual_rent_per_sqm"
	MetricYieldProxy    = "yield_pct_proxy"
)

// DefaultOutlierMetrics is the standard metric set classified for outliers.
var DefaultOutlierMetrics = []string{
	MetricPriceSale,
	MetricRentMonthNorm,
	MetricPricePerSqm,
	MetricPPSY,
	MetricAnnualRentSqm,
	MetricYieldProxy,
}

// EnrichedRecord is a ListingRecord plus all derived metrics.
// Every derived field is nil when any of its inputs is absent.
type EnrichedRecord struct {
	ListingRecord

	// PriceSaleIDR is the canonical sale price: the sale price column for
	// sale listings, nil for rentals.
	PriceSaleIDR *float64

	// RentPriceMonthNorm is the rent price normalized to a monthly basis.
	RentPriceMonthNorm *float64

	// ADR is the average daily rate, RentPriceMonthNorm / 30.
	ADR *float64

	// PricePerSqm is sale price per building sqm, falling back to land sqm.
	PricePerSqm *float64

	// PricePerSqmLand is sale price per land sqm (land PPSY basis).
	PricePerSqmLand *float64

	// LeaseYearsRemaining is set only for leasehold listings, in [1, 99].
	LeaseYearsRemaining *int

	// PPSY is PricePerSqm amortized over the remaining lease. Leasehold only.
	PPSY *float64

	// PPSYAssumed is the freehold variant computed over an assumed horizon.
	// Only populated when the enrichment config enables the horizon; it never
	// substitutes for the tenure-derived PPSY.
	PPSYAssumed *float64

	// AnnualRentPerSqm is annualized normalized rent per building/land sqm.
	AnnualRentPerSqm *float64

	// YieldPctProxy is AnnualRentPerSqm / PricePerSqm * 100.
	YieldPctProxy *float64

	// DaysListed is the age of the listing at scrape time, never negative.
	DaysListed *int

	// OutlierFlags holds the metric names for which this record falls
	// outside the [P1, P99] band of the current table. Empty set when clean.
	OutlierFlags map[string]bool
}

// IsOutlier reports whether the record is flagged for the given metric.
func (r *EnrichedRecord) IsOutlier(metric string) bool {
	return r.OutlierFlags[metric]
}

// IsOutlierAny reports whether the record is flagged for any metric.
func (r *EnrichedRecord) IsOutlierAny() bool {
	return len(r.OutlierFlags) > 0
}

// MetricValue returns the derived value for a metric name, nil when the
// metric is absent for this record or the name is unknown.
func (r *EnrichedRecord) MetricValue(metric string) *float64 {
	switch metric {
	case MetricPriceSale:
		return r.PriceSaleIDR
	case MetricRentMonthNorm:
		return r.RentPriceMonthNorm
	case MetricPricePerSqm:
		return r.PricePerSqm
	case MetricPPSY:
		return r.PPSY
	case MetricADR:
		return r.ADR
	case MetricAnnualRentSqm:
		return r.AnnualRentPerSqm
	case MetricYieldProxy:
		return r.YieldPctProxy
	}
	return nil
}

// Diagnostics summarizes data-quality degradations observed during one
// enrichment pass. All degradations are counted, never raised.
type Diagnostics struct {
	Rows int

	// MissingSizes counts records where both building and land size are absent.
	MissingSizes int

	// PriceParseFailures counts records whose price columns failed numeric
	// parsing upstream and reached enrichment as absent.
	PriceParseFailures int

	// UnresolvedLeaseYears counts leasehold records where every parser
	// fallback stage failed.
	UnresolvedLeaseYears int

	// OutlierCounts maps metric name to the number of flagged records.
	OutlierCounts map[string]int
}
