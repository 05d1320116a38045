// Package outlier flags records whose metric values fall outside the
// [P1, P99] band of the current table's distribution.
package outlier

import (
	"sort"

	"listing-lab/internal/domain"
)

// Percentile band used for classification.
const (
	lowerQuantile = 0.01
	upperQuantile = 0.99
)

// Thresholds holds the resolved percentile band for one metric.
type Thresholds struct {
	Metric string
	Lower  float64 // P1
	Upper  float64 // P99
	Count  int     // non-null values the band was computed over
}

// Result is the outcome of one classification pass.
type Result struct {
	// Thresholds per metric, keyed by metric name. Metrics with no non-null
	// values are absent.
	Thresholds map[string]Thresholds

	// FlagCounts maps metric name to number of flagged records.
	FlagCounts map[string]int
}

// Classify computes P1/P99 per metric over the non-null values of the table
// and sets OutlierFlags on each record in place. A record is flagged for a
// metric iff its value is strictly below P1 or strictly above P99; absent
// values are never flagged. Thresholds are always recomputed from the given
// table, never carried over.
func Classify(records []*domain.EnrichedRecord, metrics []string) Result {
	res := Result{
		Thresholds: make(map[string]Thresholds, len(metrics)),
		FlagCounts: make(map[string]int, len(metrics)),
	}

	for _, r := range records {
		r.OutlierFlags = make(map[string]bool)
	}

	for _, metric := range metrics {
		values := make([]float64, 0, len(records))
		for _, r := range records {
			if v := r.MetricValue(metric); v != nil {
				values = append(values, *v)
			}
		}
		if len(values) == 0 {
			continue
		}

		sort.Float64s(values)
		th := Thresholds{
			Metric: metric,
			Lower:  percentile(values, lowerQuantile),
			Upper:  percentile(values, upperQuantile),
			Count:  len(values),
		}
		res.Thresholds[metric] = th

		for _, r := range records {
			v := r.MetricValue(metric)
			if v == nil {
				continue
			}
			if *v < th.Lower || *v > th.Upper {
				r.OutlierFlags[metric] = true
				res.FlagCounts[metric]++
			}
		}
	}

	return res
}

// percentile computes the p-quantile with linear interpolation.
// sorted must be pre-sorted ASC.
func percentile(sorted []float64, p float64) float64 {
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
