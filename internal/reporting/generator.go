package reporting

import (
	"context"
	"fmt"
	"sort"
	"time"

	"listing-lab/internal/domain"
	"listing-lab/internal/storage"
)

// Coverage thresholds for data quality checks.
const (
	minRows               = 1
	minPriceCoverage      = 0.50 // share of rows with any price
	minSizeCoverage       = 0.50 // share of rows with any size
	minLeaseResolvedShare = 0.80 // share of leasehold rows with resolved years
)

// Generator produces reports from stored snapshots.
type Generator struct {
	snapshots storage.SnapshotStore
	now       func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(snapshots storage.SnapshotStore) *Generator {
	return &Generator{
		snapshots: snapshots,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate loads a snapshot and produces its report.
func (g *Generator) Generate(ctx context.Context, snapshotID string) (*Report, error) {
	records, err := g.snapshots.GetBySnapshot(ctx, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", snapshotID, err)
	}

	report := g.GenerateFromRecords(records)
	report.SnapshotID = snapshotID
	return report, nil
}

// GenerateFromRecords produces a report directly from an enriched table,
// recomputing all counters from the records themselves.
func (g *Generator) GenerateFromRecords(records []*domain.EnrichedRecord) *Report {
	return &Report{
		GeneratedAt:     g.now(),
		DataSummary:     generateDataSummary(records),
		DataQuality:     generateDataQuality(records),
		MetricSummaries: generateMetricSummaries(records),
		RegionBreakdown: generateRegionBreakdown(records),
	}
}

func generateDataSummary(records []*domain.EnrichedRecord) DataSummary {
	summary := DataSummary{TotalListings: len(records)}

	regions := make(map[string]struct{})
	for _, r := range records {
		switch r.ListingType {
		case domain.ListingTypeSale:
			summary.SaleListings++
		case domain.ListingTypeRent:
			summary.RentListings++
		}

		switch r.Ownership {
		case domain.OwnershipLeasehold:
			summary.LeaseholdListings++
		case domain.OwnershipFreehold:
			summary.FreeholdListings++
		}

		if r.Region != nil && *r.Region != "" {
			regions[*r.Region] = struct{}{}
		}

		if date := r.EffectiveDate(); date != nil {
			if summary.DateRangeStart == nil || date.Before(*summary.DateRangeStart) {
				d := *date
				summary.DateRangeStart = &d
			}
			if summary.DateRangeEnd == nil || date.After(*summary.DateRangeEnd) {
				d := *date
				summary.DateRangeEnd = &d
			}
		}
	}
	summary.RegionCount = len(regions)

	return summary
}

func generateDataQuality(records []*domain.EnrichedRecord) DataQualitySection {
	section := DataQualitySection{}

	total := len(records)
	withPrice := 0
	withSize := 0
	leasehold := 0
	leaseResolved := 0
	outlierCounts := make(map[string]int)

	for _, r := range records {
		if r.PriceIDR != nil || r.PriceUSD != nil {
			withPrice++
		}
		if r.BuildingSizeSqm != nil || r.LandSizeSqm != nil {
			withSize++
		} else {
			section.MissingSizes++
		}
		if r.Ownership == domain.OwnershipLeasehold {
			leasehold++
			if r.LeaseYearsRemaining != nil {
				leaseResolved++
			} else {
				section.UnresolvedLeaseYears++
			}
		}
		for metric, flagged := range r.OutlierFlags {
			if flagged {
				outlierCounts[metric]++
			}
		}
	}
	section.PriceParseFailures = total - withPrice

	section.Checks = []QualityCheckRow{
		coverageCheck("rows present", float64(total), float64(minRows), "%.0f"),
		shareCheck("price coverage", withPrice, total, minPriceCoverage),
		shareCheck("size coverage", withSize, total, minSizeCoverage),
		shareCheck("lease years resolved", leaseResolved, leasehold, minLeaseResolvedShare),
	}

	section.AllChecksPassed = true
	for _, check := range section.Checks {
		if !check.Pass {
			section.AllChecksPassed = false
			break
		}
	}

	metrics := make([]string, 0, len(outlierCounts))
	for metric := range outlierCounts {
		metrics = append(metrics, metric)
	}
	sort.Strings(metrics)
	for _, metric := range metrics {
		row := OutlierCountRow{Metric: metric, Flagged: outlierCounts[metric]}
		if total > 0 {
			row.Share = float64(row.Flagged) / float64(total)
		}
		section.OutlierCounts = append(section.OutlierCounts, row)
	}

	return section
}

// coverageCheck builds a check comparing an absolute value against a floor.
func coverageCheck(name string, actual, threshold float64, format string) QualityCheckRow {
	return QualityCheckRow{
		Name:      name,
		Threshold: fmt.Sprintf(">= "+format, threshold),
		Actual:    fmt.Sprintf(format, actual),
		Pass:      actual >= threshold,
	}
}

// shareCheck builds a check on the share part/whole. A zero denominator
// passes: there is nothing to cover.
func shareCheck(name string, part, whole int, threshold float64) QualityCheckRow {
	if whole == 0 {
		return QualityCheckRow{
			Name:      name,
			Threshold: fmt.Sprintf(">= %.0f%%", threshold*100),
			Actual:    "n/a",
			Pass:      true,
		}
	}
	share := float64(part) / float64(whole)
	return QualityCheckRow{
		Name:      name,
		Threshold: fmt.Sprintf(">= %.0f%%", threshold*100),
		Actual:    fmt.Sprintf("%.1f%%", share*100),
		Pass:      share >= threshold,
	}
}

func generateMetricSummaries(records []*domain.EnrichedRecord) []MetricSummaryRow {
	metrics := append([]string{}, domain.DefaultOutlierMetrics...)
	metrics = append(metrics, domain.MetricADR)
	sort.Strings(metrics)

	var rows []MetricSummaryRow
	for _, metric := range metrics {
		var values []float64
		for _, r := range records {
			if v := r.MetricValue(metric); v != nil {
				values = append(values, *v)
			}
		}
		if len(values) == 0 {
			continue
		}
		sort.Float64s(values)

		rows = append(rows, MetricSummaryRow{
			Metric: metric,
			Count:  len(values),
			Mean:   computeMean(values),
			Median: computePercentile(values, 0.50),
			P10:    computePercentile(values, 0.10),
			P90:    computePercentile(values, 0.90),
			Min:    values[0],
			Max:    values[len(values)-1],
		})
	}
	return rows
}

func generateRegionBreakdown(records []*domain.EnrichedRecord) []RegionBreakdownRow {
	counts := make(map[string]int)
	ppsqm := make(map[string][]float64)

	for _, r := range records {
		if r.Region == nil || *r.Region == "" {
			continue
		}
		region := *r.Region
		counts[region]++
		if r.PricePerSqm != nil {
			ppsqm[region] = append(ppsqm[region], *r.PricePerSqm)
		}
	}

	rows := make([]RegionBreakdownRow, 0, len(counts))
	for region, count := range counts {
		row := RegionBreakdownRow{Region: region, Listings: count}
		if values := ppsqm[region]; len(values) > 0 {
			sort.Float64s(values)
			median := computePercentile(values, 0.50)
			row.MedianPricePerSqm = &median
		}
		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Listings != rows[j].Listings {
			return rows[i].Listings > rows[j].Listings
		}
		return rows[i].Region < rows[j].Region
	})

	return rows
}

// computeMean calculates arithmetic mean.
func computeMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// computePercentile uses linear interpolation.
// sorted must be pre-sorted ASC. p is a fraction (0.10 = 10th percentile).
func computePercentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}

	idx := p * float64(n-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}
