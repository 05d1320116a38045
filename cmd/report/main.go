// Command report renders a Markdown quality report for a persisted
// enrichment snapshot.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"listing-lab/internal/reporting"
	chstore "listing-lab/internal/storage/clickhouse"
)

func main() {
	var (
		clickhouseDSN = flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
		snapshotID    = flag.String("snapshot", "", "Snapshot ID to report on")
		list          = flag.Bool("list", false, "List persisted snapshot IDs and exit")
		outputPath    = flag.String("output", "REPORT.md", "Output file path (- for stdout)")
		csvPath       = flag.String("csv", "", "Optional path for the enriched records CSV")
	)
	flag.Parse()

	if *clickhouseDSN == "" {
		fmt.Fprintf(os.Stderr, "Error: --clickhouse-dsn is required\n")
		flag.Usage()
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "Interrupted, shutting down...")
		cancel()
	}()

	conn, err := chstore.NewConn(ctx, *clickhouseDSN)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: connect to clickhouse: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close()

	store := chstore.NewSnapshotStore(conn)

	if *list {
		ids, err := store.ListSnapshots(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: list snapshots: %v\n", err)
			os.Exit(1)
		}
		for _, id := range ids {
			fmt.Println(id)
		}
		return
	}

	if *snapshotID == "" {
		fmt.Fprintf(os.Stderr, "Error: --snapshot is required (use --list to see available IDs)\n")
		os.Exit(1)
	}

	records, err := store.GetBySnapshot(ctx, *snapshotID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: load snapshot: %v\n", err)
		os.Exit(1)
	}

	report := reporting.NewGenerator(store).GenerateFromRecords(records)
	report.SnapshotID = *snapshotID
	markdown := reporting.RenderMarkdown(report)

	if *csvPath != "" {
		if err := writeFile(*csvPath, reporting.RenderCSV(records)); err != nil {
			fmt.Fprintf(os.Stderr, "Error: write csv: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Enriched records written to %s\n", *csvPath)
	}

	if *outputPath == "-" {
		fmt.Print(markdown)
		return
	}

	if err := writeFile(*outputPath, markdown); err != nil {
		fmt.Fprintf(os.Stderr, "Error: write report: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Report for snapshot %s written to %s\n", report.SnapshotID, *outputPath)
}

func writeFile(path, content string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, []byte(content), 0o644)
}
