// Package main provides the batch pipeline entry point.
// Executes: CSV ingest → normalize → enrich → filter → report.
package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"listing-lab/internal/domain"
	"listing-lab/internal/enrich"
	"listing-lab/internal/normalize"
	"listing-lab/internal/orchestrator"
	"listing-lab/internal/reporting"
	"listing-lab/internal/storage/memory"
)

func main() {
	// Parse flags
	input := flag.String("input", "", "Input CSV file with raw listings (required)")
	outputDir := flag.String("output-dir", "output", "Output directory for generated files")
	filterPath := flag.String("filter", "", "Optional JSON file with a filter spec")
	fxRate := flag.Float64("fx-rate", 0, "IDR per USD rate (0 = default)")
	freeholdHorizon := flag.Int("freehold-horizon", 0, "Assumed freehold horizon in years (0 = disabled)")
	workers := flag.Int("workers", 4, "Enrichment worker count")
	verbose := flag.Bool("verbose", false, "Verbose output")
	flag.Parse()

	if *input == "" {
		fmt.Fprintln(os.Stderr, "--input is required")
		os.Exit(1)
	}

	// Create context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Printf("\nReceived signal %v, cancelling pipeline...\n", sig)
		cancel()
	}()

	// Phase 0: Ingest and normalize the raw CSV
	fmt.Println("=== Listing Pipeline ===")
	listings, stats, err := loadListings(*input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading listings: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Normalized %d rows (%d sentinels, %d price failures, %d unknown enums)\n",
		stats.Rows, stats.SentinelsReplaced, stats.PriceParseFailures, stats.UnknownEnums)

	listingStore := memory.NewListingStore()
	if err := listingStore.ReplaceAll(ctx, listings); err != nil {
		fmt.Fprintf(os.Stderr, "Error storing listings: %v\n", err)
		os.Exit(1)
	}

	// Optional filter spec
	spec, err := loadFilterSpec(*filterPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading filter spec: %v\n", err)
		os.Exit(1)
	}

	// Phases 1-5: enrich, snapshot, filter, report
	orch := orchestrator.New(orchestrator.Options{
		ListingStore:  listingStore,
		SnapshotStore: memory.NewSnapshotStore(),
		EnrichConfig: enrich.Config{
			FXRate:               *fxRate,
			FreeholdHorizonYears: *freeholdHorizon,
			Workers:              *workers,
		},
		FilterSpec: spec,
		Verbose:    *verbose,
	})

	result, err := orch.Run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Pipeline error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Pipeline completed:\n")
	fmt.Printf("  Snapshot: %s\n", result.SnapshotID)
	fmt.Printf("  Enriched: %d\n", result.RecordsEnriched)
	fmt.Printf("  After filter: %d\n", result.RecordsFiltered)
	fmt.Printf("  Missing sizes: %d\n", result.Diagnostics.MissingSizes)
	fmt.Printf("  Unresolved lease years: %d\n", result.Diagnostics.UnresolvedLeaseYears)

	// Write outputs
	if err := writeOutputs(*outputDir, result); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing outputs: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("\nPipeline outputs:")
	fmt.Printf("  - %s/REPORT.md\n", *outputDir)
	fmt.Printf("  - %s/enriched_listings.csv\n", *outputDir)
}

// loadListings reads a raw CSV and normalizes every row.
func loadListings(path string) ([]*domain.ListingRecord, normalize.Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, normalize.Stats{}, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	rawRows, err := reader.ReadAll()
	if err != nil {
		return nil, normalize.Stats{}, fmt.Errorf("read csv: %w", err)
	}
	if len(rawRows) == 0 {
		return nil, normalize.Stats{}, fmt.Errorf("input csv is empty")
	}

	header := rawRows[0]
	rows := make([]normalize.Row, 0, len(rawRows)-1)
	for _, raw := range rawRows[1:] {
		row := make(normalize.Row, len(header))
		for i, key := range header {
			if i < len(raw) {
				row[key] = raw[i]
			}
		}
		rows = append(rows, row)
	}

	listings, stats := normalize.Records(rows)
	return listings, stats, nil
}

// loadFilterSpec reads an optional filter spec JSON file.
func loadFilterSpec(path string) (*domain.FilterSpec, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read filter spec: %w", err)
	}

	var spec domain.FilterSpec
	if err := json.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parse filter spec: %w", err)
	}
	return &spec, nil
}

// writeOutputs writes the markdown report and the enriched CSV.
func writeOutputs(dir string, result *orchestrator.RunResult) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	md := reporting.RenderMarkdown(result.Report)
	if err := os.WriteFile(filepath.Join(dir, "REPORT.md"), []byte(md), 0644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	csvOut := reporting.RenderCSV(result.Records)
	if err := os.WriteFile(filepath.Join(dir, "enriched_listings.csv"), []byte(csvOut), 0644); err != nil {
		return fmt.Errorf("write enriched csv: %w", err)
	}

	return nil
}
