// Package orchestrator provides E2E pipeline orchestration.
// It coordinates: load → enrich → snapshot → filter → report.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"listing-lab/internal/domain"
	"listing-lab/internal/enrich"
	"listing-lab/internal/filter"
	"listing-lab/internal/fingerprint"
	"listing-lab/internal/reporting"
	"listing-lab/internal/storage"
)

// Orchestrator coordinates the E2E pipeline execution.
type Orchestrator struct {
	// Stores
	listingStore  storage.ListingStore
	snapshotStore storage.SnapshotStore

	// Configs
	enrichConfig enrich.Config
	filterSpec   *domain.FilterSpec

	// Options
	verbose bool
	now     func() time.Time
}

// Options for creating Orchestrator.
type Options struct {
	// ListingStore is required.
	ListingStore storage.ListingStore

	// SnapshotStore is optional; when nil the snapshot phase is skipped
	// and the run result carries only the in-memory table.
	SnapshotStore storage.SnapshotStore

	// EnrichConfig drives the enrichment pass.
	EnrichConfig enrich.Config

	// FilterSpec, when set, is applied to the enriched table after the
	// snapshot phase.
	FilterSpec *domain.FilterSpec

	Verbose bool

	// Now is an injectable clock for deterministic runs. Nil means UTC wall
	// clock.
	Now func() time.Time
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Orchestrator{
		listingStore:  opts.ListingStore,
		snapshotStore: opts.SnapshotStore,
		enrichConfig:  opts.EnrichConfig,
		filterSpec:    opts.FilterSpec,
		verbose:       opts.Verbose,
		now:           now,
	}
}

// RunResult contains results from orchestrator execution.
type RunResult struct {
	SnapshotID      string
	SnapshotReused  bool
	RecordsEnriched int
	RecordsFiltered int

	// Records is the enriched table after the filter phase (the full table
	// when no filter spec is set).
	Records     []*domain.EnrichedRecord
	Diagnostics domain.Diagnostics
	Report      *reporting.Report
}

// Run executes the full pipeline.
// Phases:
//  1. Load listings
//  2. Enrich (derive metrics, classify outliers)
//  3. Persist snapshot keyed by fingerprint
//  4. Apply filter spec
//  5. Generate report
func (o *Orchestrator) Run(ctx context.Context) (*RunResult, error) {
	result := &RunResult{}

	// Phase 1: Load listings
	o.log("Phase 1: Loading listings...")
	listings, err := o.listingStore.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("phase 1 (load listings) failed: %w", err)
	}
	o.log("  Found %d listings", len(listings))

	// Phase 2: Enrichment
	o.log("Phase 2: Enriching...")
	cfg := o.enrichConfig
	if cfg.Now.IsZero() {
		cfg.Now = o.now()
	}
	enriched := enrich.Run(listings, cfg)
	result.RecordsEnriched = len(enriched.Records)
	result.Diagnostics = enriched.Diagnostics
	o.log("  Enriched %d records (%d leasehold rows unresolved)",
		len(enriched.Records), enriched.Diagnostics.UnresolvedLeaseYears)

	// Phase 3: Snapshot
	result.SnapshotID = fingerprint.Snapshot(
		fingerprint.Table(listings),
		fingerprint.Config(cfg),
	)
	if o.snapshotStore != nil {
		o.log("Phase 3: Persisting snapshot %s...", result.SnapshotID)
		err := o.snapshotStore.InsertBulk(ctx, result.SnapshotID, enriched.Records)
		switch {
		case errors.Is(err, storage.ErrDuplicateKey):
			// Same table and config already persisted.
			result.SnapshotReused = true
			o.log("  Snapshot already exists, reusing")
		case err != nil:
			return nil, fmt.Errorf("phase 3 (persist snapshot) failed: %w", err)
		}
	} else {
		o.log("Phase 3: Skipping snapshot (no snapshot store)")
	}

	// Phase 4: Filter
	records := enriched.Records
	if o.filterSpec != nil {
		o.log("Phase 4: Applying filter...")
		records, err = filter.Apply(records, *o.filterSpec, o.now())
		if err != nil {
			return nil, fmt.Errorf("phase 4 (filter) failed: %w", err)
		}
		o.log("  %d of %d records match", len(records), len(enriched.Records))
	}
	result.Records = records
	result.RecordsFiltered = len(records)

	// Phase 5: Report
	o.log("Phase 5: Generating report...")
	generator := reporting.NewGenerator(o.snapshotStore).WithClock(o.now)
	result.Report = generator.GenerateFromRecords(records)
	result.Report.SnapshotID = result.SnapshotID

	o.log("Pipeline completed: %d enriched, %d after filter",
		result.RecordsEnriched, result.RecordsFiltered)

	return result, nil
}

func (o *Orchestrator) log(format string, args ...interface{}) {
	if o.verbose {
		log.Printf("[orchestrator] "+format, args...)
	}
}
