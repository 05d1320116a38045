// Package enrich derives all financial and temporal metrics for a listing
// table. The engine is a pure function over immutable inputs; repeated calls
// with the same inputs produce identical outputs.
package enrich

import (
	"sync"
	"time"

	"listing-lab/internal/domain"
	"listing-lab/internal/fx"
	"listing-lab/internal/lease"
	"listing-lab/internal/outlier"
)

// Rent-period normalization factors to a monthly basis.
const (
	daysPerMonth   = 30.0
	weeksPerMonth  = 4.3
	monthsPerYear  = 12.0
	adrDaysDivisor = 30.0
)

// Config parameterizes one enrichment pass.
type Config struct {
	// CurrentYear anchors the lease expiry-year fallback. Zero means the
	// year of Now.
	CurrentYear int

	// Now anchors days-listed computation for rows without a scraped date.
	// Zero value means time.Now().UTC() at call time.
	Now time.Time

	// FXRate is the IDR-per-USD rate used when a row has only a USD price.
	// Non-positive means fx.DefaultRate.
	FXRate float64

	// FreeholdHorizonYears, when positive, enables the assumed-horizon PPSY
	// variant for freehold rows. The tenure-derived PPSY is never replaced.
	FreeholdHorizonYears int

	// OutlierMetrics selects the metrics classified after derivation.
	// Nil means domain.DefaultOutlierMetrics.
	OutlierMetrics []string

	// Workers bounds the number of goroutines sharding the per-record pass.
	// Values below 1 mean single-threaded.
	Workers int
}

// Result is the output of one enrichment pass.
type Result struct {
	Records     []*domain.EnrichedRecord
	Diagnostics domain.Diagnostics
	Outliers    outlier.Result
}

// Run enriches every record and then classifies outliers over the whole
// table. Output order matches input order. The input slice and its records
// are never mutated.
func Run(listings []*domain.ListingRecord, cfg Config) Result {
	if cfg.Now.IsZero() {
		cfg.Now = time.Now().UTC()
	}
	if cfg.CurrentYear == 0 {
		cfg.CurrentYear = cfg.Now.Year()
	}
	metrics := cfg.OutlierMetrics
	if metrics == nil {
		metrics = domain.DefaultOutlierMetrics
	}

	records := make([]*domain.EnrichedRecord, len(listings))

	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(listings) {
		workers = len(listings)
	}

	if workers <= 1 {
		for i, l := range listings {
			records[i] = enrichOne(l, cfg)
		}
	} else {
		// Records are independent; shard by contiguous chunks so output
		// order is preserved without coordination.
		var wg sync.WaitGroup
		chunk := (len(listings) + workers - 1) / workers
		for start := 0; start < len(listings); start += chunk {
			end := start + chunk
			if end > len(listings) {
				end = len(listings)
			}
			wg.Add(1)
			go func(start, end int) {
				defer wg.Done()
				for i := start; i < end; i++ {
					records[i] = enrichOne(listings[i], cfg)
				}
			}(start, end)
		}
		wg.Wait()
	}

	// Table-wide outlier pass runs after every record is materialized.
	outliers := outlier.Classify(records, metrics)

	diags := domain.Diagnostics{
		Rows:          len(records),
		OutlierCounts: outliers.FlagCounts,
	}
	for _, r := range records {
		if r.BuildingSizeSqm == nil && r.LandSizeSqm == nil {
			diags.MissingSizes++
		}
		if r.PriceIDR == nil && r.PriceUSD == nil {
			diags.PriceParseFailures++
		}
		if r.Ownership == domain.OwnershipLeasehold && r.LeaseYearsRemaining == nil {
			diags.UnresolvedLeaseYears++
		}
	}

	return Result{Records: records, Diagnostics: diags, Outliers: outliers}
}

// enrichOne derives all per-record metrics. Absent inputs propagate as nil;
// no step ever substitutes zero for a missing value.
func enrichOne(l *domain.ListingRecord, cfg Config) *domain.EnrichedRecord {
	r := &domain.EnrichedRecord{ListingRecord: *l}

	// (a) Currency normalization: canonical price in IDR. Rows quoting only
	// USD are converted at the configured rate.
	priceIDR := l.PriceIDR
	if priceIDR == nil && l.PriceUSD != nil {
		v := fx.ToIDR(*l.PriceUSD, fx.USD, cfg.FXRate)
		priceIDR = &v
	}

	if l.ListingType == domain.ListingTypeSale {
		r.PriceSaleIDR = priceIDR
	}

	// (b) Monthly rent normalization: daily ×30, weekly ×4.3, yearly ÷12.
	if l.ListingType == domain.ListingTypeRent && priceIDR != nil && l.RentPeriod != nil {
		switch *l.RentPeriod {
		case domain.RentPeriodDaily:
			norm := *priceIDR * daysPerMonth
			r.RentPriceMonthNorm = &norm
		case domain.RentPeriodWeekly:
			norm := *priceIDR * weeksPerMonth
			r.RentPriceMonthNorm = &norm
		case domain.RentPeriodMonthly:
			norm := *priceIDR
			r.RentPriceMonthNorm = &norm
		case domain.RentPeriodYearly:
			norm := *priceIDR / monthsPerYear
			r.RentPriceMonthNorm = &norm
		}
	}

	// (c) Average daily rate.
	if r.RentPriceMonthNorm != nil {
		adr := *r.RentPriceMonthNorm / adrDaysDivisor
		r.ADR = &adr
	}

	// (d) Price per sqm, building size preferred, land size fallback.
	// A zero size is treated as absent, never as a divisor.
	buildingSize := positiveOrNil(l.BuildingSizeSqm)
	landSize := positiveOrNil(l.LandSizeSqm)
	if r.PriceSaleIDR != nil {
		if buildingSize != nil {
			v := *r.PriceSaleIDR / *buildingSize
			r.PricePerSqm = &v
		} else if landSize != nil {
			v := *r.PriceSaleIDR / *landSize
			r.PricePerSqm = &v
		}
		if landSize != nil {
			v := *r.PriceSaleIDR / *landSize
			r.PricePerSqmLand = &v
		}
	}

	// (e) Lease years and PPSY. The parser runs only for leasehold rows;
	// for all other tenures the field stays nil by invariant.
	if l.Ownership == domain.OwnershipLeasehold {
		r.LeaseYearsRemaining = lease.YearsRemaining(lease.Input{
			LeaseDuration:   l.LeaseDuration,
			LeaseExpiryYear: l.LeaseExpiryYear,
			Description:     l.Description,
			CurrentYear:     cfg.CurrentYear,
		})
		if r.PricePerSqm != nil && r.LeaseYearsRemaining != nil {
			v := *r.PricePerSqm / float64(*r.LeaseYearsRemaining)
			r.PPSY = &v
		}
	} else if l.Ownership == domain.OwnershipFreehold && cfg.FreeholdHorizonYears > 0 {
		if r.PricePerSqm != nil {
			v := *r.PricePerSqm / float64(cfg.FreeholdHorizonYears)
			r.PPSYAssumed = &v
		}
	}

	// (f) Annual rent per sqm, building size preferred, land size fallback.
	if r.RentPriceMonthNorm != nil {
		size := buildingSize
		if size == nil {
			size = landSize
		}
		if size != nil {
			v := *r.RentPriceMonthNorm * monthsPerYear / *size
			r.AnnualRentPerSqm = &v
		}
	}

	// Yield proxy relates annualized rent to capital value per sqm.
	if r.AnnualRentPerSqm != nil && r.PricePerSqm != nil && *r.PricePerSqm != 0 {
		v := *r.AnnualRentPerSqm / *r.PricePerSqm * 100
		r.YieldPctProxy = &v
	}

	return finishTimeMetrics(r, cfg)
}

// finishTimeMetrics computes days listed from the effective listing date.
func finishTimeMetrics(r *domain.EnrichedRecord, cfg Config) *domain.EnrichedRecord {
	listed := r.EffectiveDate()
	if listed == nil {
		return r
	}
	reference := cfg.Now
	if r.ScrapedAt != nil {
		reference = *r.ScrapedAt
	}
	days := int(reference.Sub(*listed).Hours() / 24)
	if days < 0 {
		days = 0
	}
	r.DaysListed = &days
	return r
}

func positiveOrNil(v *float64) *float64 {
	if v == nil || *v <= 0 {
		return nil
	}
	return v
}
