package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Listing Snapshot Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	if r.SnapshotID != "" {
		sb.WriteString(fmt.Sprintf("Snapshot: `%s`\n\n", r.SnapshotID))
	}

	// Data Summary
	sb.WriteString("## Data Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Total Listings | %d |\n", r.DataSummary.TotalListings))
	sb.WriteString(fmt.Sprintf("| Sale Listings | %d |\n", r.DataSummary.SaleListings))
	sb.WriteString(fmt.Sprintf("| Rent Listings | %d |\n", r.DataSummary.RentListings))
	sb.WriteString(fmt.Sprintf("| Leasehold Listings | %d |\n", r.DataSummary.LeaseholdListings))
	sb.WriteString(fmt.Sprintf("| Freehold Listings | %d |\n", r.DataSummary.FreeholdListings))
	sb.WriteString(fmt.Sprintf("| Regions | %d |\n", r.DataSummary.RegionCount))
	sb.WriteString(fmt.Sprintf("| Date Range Start | %s |\n", formatDate(r.DataSummary.DateRangeStart)))
	sb.WriteString(fmt.Sprintf("| Date Range End | %s |\n", formatDate(r.DataSummary.DateRangeEnd)))
	sb.WriteString("\n")

	// Data Quality
	sb.WriteString("## Data Quality\n\n")
	if len(r.DataQuality.Checks) > 0 {
		sb.WriteString("### Coverage Checks\n\n")
		sb.WriteString("| Check | Threshold | Actual | Status |\n")
		sb.WriteString("|-------|-----------|--------|--------|\n")
		for _, check := range r.DataQuality.Checks {
			status := "FAIL"
			if check.Pass {
				status = "PASS"
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n",
				check.Name, check.Threshold, check.Actual, status))
		}
		sb.WriteString("\n")

		if r.DataQuality.AllChecksPassed {
			sb.WriteString("**All checks passed.**\n\n")
		} else {
			sb.WriteString("**Some checks failed.** The snapshot is degraded.\n\n")
		}
	}

	sb.WriteString("### Degradations\n\n")
	sb.WriteString("| Counter | Value |\n")
	sb.WriteString("|---------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Missing Sizes | %d |\n", r.DataQuality.MissingSizes))
	sb.WriteString(fmt.Sprintf("| Price Parse Failures | %d |\n", r.DataQuality.PriceParseFailures))
	sb.WriteString(fmt.Sprintf("| Unresolved Lease Years | %d |\n", r.DataQuality.UnresolvedLeaseYears))
	sb.WriteString("\n")

	// Outlier counts
	sb.WriteString("### Outliers\n\n")
	if len(r.DataQuality.OutlierCounts) > 0 {
		sb.WriteString("| Metric | Flagged | Share |\n")
		sb.WriteString("|--------|---------|-------|\n")
		for _, row := range r.DataQuality.OutlierCounts {
			sb.WriteString(fmt.Sprintf("| %s | %d | %.2f%% |\n",
				row.Metric, row.Flagged, row.Share*100))
		}
	} else {
		sb.WriteString("No outliers flagged.\n")
	}
	sb.WriteString("\n")

	// Metric distributions
	sb.WriteString("## Metric Distributions\n\n")
	if len(r.MetricSummaries) > 0 {
		sb.WriteString("| Metric | Count | Mean | Median | P10 | P90 | Min | Max |\n")
		sb.WriteString("|--------|-------|------|--------|-----|-----|-----|-----|\n")
		for _, m := range r.MetricSummaries {
			sb.WriteString(fmt.Sprintf("| %s | %d | %.2f | %.2f | %.2f | %.2f | %.2f | %.2f |\n",
				m.Metric, m.Count, m.Mean, m.Median, m.P10, m.P90, m.Min, m.Max))
		}
	} else {
		sb.WriteString("No derived metrics available.\n")
	}
	sb.WriteString("\n")

	// Region breakdown
	sb.WriteString("## Region Breakdown\n\n")
	if len(r.RegionBreakdown) > 0 {
		sb.WriteString("| Region | Listings | Median Price/sqm |\n")
		sb.WriteString("|--------|----------|------------------|\n")
		for _, row := range r.RegionBreakdown {
			median := "n/a"
			if row.MedianPricePerSqm != nil {
				median = fmt.Sprintf("%.0f", *row.MedianPricePerSqm)
			}
			sb.WriteString(fmt.Sprintf("| %s | %d | %s |\n", row.Region, row.Listings, median))
		}
	} else {
		sb.WriteString("No region data available.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "n/a"
	}
	return t.Format("2006-01-02")
}
