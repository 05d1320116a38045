package reporting

import "time"

// Report summarizes one enriched listing snapshot: volume, data quality,
// derived metric distributions, and a per-region breakdown.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	SnapshotID  string

	// Data Summary
	DataSummary DataSummary

	// Data Quality (coverage checks and degradation counters)
	DataQuality DataQualitySection

	// Metric distributions (sorted by metric name)
	MetricSummaries []MetricSummaryRow

	// Region breakdown (sorted by listing count DESC, region ASC)
	RegionBreakdown []RegionBreakdownRow
}

// DataSummary describes the shape of the snapshot.
type DataSummary struct {
	TotalListings     int
	SaleListings      int
	RentListings      int
	LeaseholdListings int
	FreeholdListings  int
	RegionCount       int

	// Effective-date range of the snapshot, nil when no record carries a date.
	DateRangeStart *time.Time
	DateRangeEnd   *time.Time
}

// DataQualitySection contains coverage checks and degradation counters.
type DataQualitySection struct {
	Checks          []QualityCheckRow
	AllChecksPassed bool

	MissingSizes         int
	PriceParseFailures   int
	UnresolvedLeaseYears int

	// Outlier flag counts per metric (sorted by metric name)
	OutlierCounts []OutlierCountRow
}

// QualityCheckRow represents one coverage criterion.
type QualityCheckRow struct {
	Name      string
	Threshold string
	Actual    string
	Pass      bool
}

// OutlierCountRow counts records flagged for one metric.
type OutlierCountRow struct {
	Metric  string
	Flagged int
	Share   float64 // flagged / total rows
}

// MetricSummaryRow describes the distribution of one derived metric.
type MetricSummaryRow struct {
	Metric string
	Count  int // records carrying the metric
	Mean   float64
	Median float64
	P10    float64
	P90    float64
	Min    float64
	Max    float64
}

// RegionBreakdownRow summarizes listings in one region.
type RegionBreakdownRow struct {
	Region            string
	Listings          int
	MedianPricePerSqm *float64 // nil when no sale listing in the region has it
}
