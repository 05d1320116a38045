// Package main provides the unified listing service:
// - Ingestion: accepts raw listing rows over HTTP
// - Enrichment (scheduled): normalize → enrich → snapshot
// - Query API: filter specs against the current enriched table
// - Push: WebSocket notifications when a new snapshot lands
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"listing-lab/internal/cache"
	"listing-lab/internal/domain"
	"listing-lab/internal/enrich"
	"listing-lab/internal/filter"
	"listing-lab/internal/fx"
	"listing-lab/internal/normalize"
	"listing-lab/internal/observability"
	"listing-lab/internal/orchestrator"
	"listing-lab/internal/reporting"
	"listing-lab/internal/storage"
	chstore "listing-lab/internal/storage/clickhouse"
	"listing-lab/internal/storage/memory"
	"listing-lab/internal/storage/migrations"
	pgstore "listing-lab/internal/storage/postgres"
)

// Server holds all components of the listing service.
type Server struct {
	// Configuration
	fxRate          float64
	freeholdHorizon int
	workers         int
	enrichInterval  time.Duration

	// Stores
	listingStore  storage.ListingStore
	snapshotStore storage.SnapshotStore

	// Snapshot cache keyed by fingerprint
	snapshotCache *cache.TTLCache[[]*domain.EnrichedRecord]

	logger *log.Logger

	// WebSocket clients
	wsMu       sync.Mutex
	wsUpgrader websocket.Upgrader
	wsClients  map[*websocket.Conn]struct{}

	// State
	mu            sync.Mutex
	started       time.Time
	lastEnrichRun time.Time
	enrichRunning bool
	enrichRuns    int
	snapshotID    string
	current       []*domain.EnrichedRecord
	diagnostics   domain.Diagnostics
}

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	listenAddr := flag.String("listen", ":8080", "HTTP listen address")
	metricsAddr := flag.String("metrics-addr", ":9090", "Prometheus metrics HTTP address")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	fxRate := flag.Float64("fx-rate", 0, "IDR per USD rate (0 = default)")
	freeholdHorizon := flag.Int("freehold-horizon", 0, "Assumed freehold horizon in years (0 = disabled)")
	workers := flag.Int("workers", 4, "Enrichment worker count")
	cacheTTL := flag.Duration("cache-ttl", 15*time.Minute, "Snapshot cache TTL")
	enrichInterval := flag.Duration("enrich-interval", 1*time.Hour, "Scheduled enrichment interval")
	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	if !*useMemory && (*postgresDSN == "" || *clickhouseDSN == "") {
		logger.Fatal("--postgres-dsn and --clickhouse-dsn are required (use --use-memory for in-memory storage)")
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())

	// Create stores
	listingStore, snapshotStore, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	server := &Server{
		fxRate:          *fxRate,
		freeholdHorizon: *freeholdHorizon,
		workers:         *workers,
		enrichInterval:  *enrichInterval,
		listingStore:    listingStore,
		snapshotStore:   snapshotStore,
		snapshotCache:   cache.New[[]*domain.EnrichedRecord](*cacheTTL),
		logger:          logger,
		wsUpgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		wsClients: make(map[*websocket.Conn]struct{}),
		started:   time.Now(),
	}

	// Channel to signal completion
	done := make(chan error, 1)

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	// Start metrics server
	go server.startMetricsServer(*metricsAddr)

	// Start API server
	go server.startAPIServer(*listenAddr)

	// Run the enrichment scheduler
	err = server.Run(ctx)
	done <- err
	cancel()

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("Server error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// createStores creates the listing and snapshot stores.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool) (storage.ListingStore, storage.SnapshotStore, func(), error) {
	if useMemory {
		return memory.NewListingStore(), memory.NewSnapshotStore(), func() {}, nil
	}

	// PostgreSQL holds the normalized listings
	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}

	// ClickHouse holds the enriched snapshots
	chConn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
	}

	cleanup := func() {
		chConn.Close()
		pool.Close()
	}

	return pgstore.NewListingStore(pool), chstore.NewSnapshotStore(chConn), cleanup, nil
}

// Run starts the enrichment scheduler. The first run happens immediately.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Printf("Starting enrichment scheduler (interval: %v)...", s.enrichInterval)

	s.runEnrichment(ctx)

	ticker := time.NewTicker(s.enrichInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runEnrichment(ctx)
		}
	}
}

// runEnrichment executes one enrichment pass over the stored listings.
func (s *Server) runEnrichment(ctx context.Context) {
	s.mu.Lock()
	if s.enrichRunning {
		s.mu.Unlock()
		s.logger.Println("Enrichment already running, skipping...")
		return
	}
	s.enrichRunning = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.enrichRunning = false
		s.lastEnrichRun = time.Now()
		s.enrichRuns++
		s.mu.Unlock()
	}()

	s.logger.Println("Running enrichment...")
	start := time.Now()

	orch := orchestrator.New(orchestrator.Options{
		ListingStore:  s.listingStore,
		SnapshotStore: s.snapshotStore,
		EnrichConfig:  s.enrichConfig(),
		Verbose:       true,
	})

	result, err := orch.Run(ctx)
	if err != nil {
		s.logger.Printf("Enrichment error: %v", err)
		observability.RecordEnrichmentRun("error")
		return
	}

	s.snapshotCache.Put(result.SnapshotID, result.Records)

	s.mu.Lock()
	previous := s.snapshotID
	s.snapshotID = result.SnapshotID
	s.current = result.Records
	s.diagnostics = result.Diagnostics
	s.mu.Unlock()

	observability.RecordEnrichmentRun("success")
	observability.DefaultMetrics.EnrichmentDuration.Observe(time.Since(start).Seconds())
	observability.DefaultMetrics.RecordsEnriched.Add(float64(result.RecordsEnriched))
	observability.DefaultMetrics.SnapshotRows.Set(float64(result.RecordsEnriched))
	observability.DefaultMetrics.LastSuccessfulEnrichment.SetToCurrentTime()
	for metric, count := range result.Diagnostics.OutlierCounts {
		observability.DefaultMetrics.OutliersFlagged.WithLabelValues(metric).Add(float64(count))
	}

	s.logger.Printf("Enrichment completed in %v: %d records, snapshot %s (reused=%t)",
		time.Since(start), result.RecordsEnriched, result.SnapshotID, result.SnapshotReused)

	if result.SnapshotID != previous {
		s.broadcastSnapshot(result.SnapshotID, result.RecordsEnriched)
	}
}

// enrichConfig builds the enrichment config for one pass. Now is anchored to
// the start of the day so unchanged tables keep a stable fingerprint between
// scheduled runs.
func (s *Server) enrichConfig() enrich.Config {
	return enrich.Config{
		Now:                  time.Now().UTC().Truncate(24 * time.Hour),
		FXRate:               s.fxRate,
		FreeholdHorizonYears: s.freeholdHorizon,
		Workers:              s.workers,
	}
}

// startMetricsServer starts the HTTP server for health and metrics.
func (s *Server) startMetricsServer(addr string) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", observability.Handler())

	s.logger.Printf("Starting metrics server on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Printf("Metrics server error: %v", err)
	}
}

// startAPIServer starts the HTTP API server.
func (s *Server) startAPIServer(addr string) {
	mux := http.NewServeMux()
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/api/listings", s.handleListings)
	mux.HandleFunc("/api/filter", s.handleFilter)
	mux.HandleFunc("/api/report", s.handleReport)
	mux.HandleFunc("/api/snapshots", s.handleSnapshots)
	mux.HandleFunc("/ws", s.handleWS)

	s.logger.Printf("Starting API server on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Printf("API server error: %v", err)
	}
}

// StatusResponse is the JSON response for the /status endpoint.
type StatusResponse struct {
	Status        string    `json:"status"`
	Uptime        string    `json:"uptime"`
	LastEnrichRun time.Time `json:"last_enrich_run,omitempty"`
	EnrichRuns    int       `json:"enrich_runs"`
	EnrichRunning bool      `json:"enrich_running"`
	SnapshotID    string    `json:"snapshot_id,omitempty"`
	SnapshotRows  int       `json:"snapshot_rows"`

	Diagnostics domain.Diagnostics `json:"diagnostics"`
}

// handleStatus returns server status as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	resp := StatusResponse{
		Status:        "running",
		Uptime:        time.Since(s.started).String(),
		LastEnrichRun: s.lastEnrichRun,
		EnrichRuns:    s.enrichRuns,
		EnrichRunning: s.enrichRunning,
		SnapshotID:    s.snapshotID,
		SnapshotRows:  len(s.current),
		Diagnostics:   s.diagnostics,
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

// handleListings replaces the listing table with normalized rows from the
// request body and triggers a fresh enrichment pass.
func (s *Server) handleListings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var rows []normalize.Row
	if err := json.NewDecoder(r.Body).Decode(&rows); err != nil {
		http.Error(w, fmt.Sprintf("decode rows: %v", err), http.StatusBadRequest)
		return
	}

	listings, stats := normalize.Records(rows)
	observability.DefaultMetrics.RowsIngested.Add(float64(stats.Rows))
	observability.DefaultMetrics.SentinelsReplaced.Add(float64(stats.SentinelsReplaced))
	observability.DefaultMetrics.ParseFailures.WithLabelValues("price").Add(float64(stats.PriceParseFailures))
	observability.DefaultMetrics.ParseFailures.WithLabelValues("number").Add(float64(stats.NumberParseFailures))
	observability.DefaultMetrics.ParseFailures.WithLabelValues("date").Add(float64(stats.DateParseFailures))

	if err := s.listingStore.ReplaceAll(r.Context(), listings); err != nil {
		http.Error(w, fmt.Sprintf("store listings: %v", err), http.StatusInternalServerError)
		return
	}

	s.snapshotCache.InvalidateAll()
	go s.runEnrichment(context.Background())

	writeJSON(w, http.StatusAccepted, map[string]any{
		"rows":               stats.Rows,
		"sentinels_replaced": stats.SentinelsReplaced,
		"unknown_enums":      stats.UnknownEnums,
	})
}

// FilterResponse is the JSON response for the /api/filter endpoint.
type FilterResponse struct {
	SnapshotID string                   `json:"snapshot_id"`
	TotalRows  int                      `json:"total_rows"`
	Matched    int                      `json:"matched"`
	Records    []*domain.EnrichedRecord `json:"records"`
}

// handleFilter applies a filter spec to the current enriched table.
func (s *Server) handleFilter(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var spec domain.FilterSpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		http.Error(w, fmt.Sprintf("decode filter spec: %v", err), http.StatusBadRequest)
		return
	}

	snapshotID, records, ok := s.currentTable(r.Context())
	if !ok {
		http.Error(w, "no snapshot available yet", http.StatusServiceUnavailable)
		return
	}

	observability.DefaultMetrics.FiltersApplied.Inc()
	observability.DefaultMetrics.FilterRowsIn.Add(float64(len(records)))

	matched, err := filter.Apply(records, spec, time.Now().UTC())
	if err != nil {
		observability.DefaultMetrics.InvalidFilterSpecs.Inc()
		http.Error(w, fmt.Sprintf("apply filter: %v", err), http.StatusBadRequest)
		return
	}
	observability.DefaultMetrics.FilterRowsOut.Add(float64(len(matched)))

	if strings.EqualFold(r.URL.Query().Get("currency"), "usd") {
		matched = withDisplayUSD(matched, s.fxRate)
	}

	writeJSON(w, http.StatusOK, FilterResponse{
		SnapshotID: snapshotID,
		TotalRows:  len(records),
		Matched:    len(matched),
		Records:    matched,
	})
}

// withDisplayUSD fills the USD price on records that only carry IDR. Stored
// values stay IDR canonical; copies are returned so cached records are not
// mutated.
func withDisplayUSD(records []*domain.EnrichedRecord, rate float64) []*domain.EnrichedRecord {
	out := make([]*domain.EnrichedRecord, len(records))
	for i, r := range records {
		if r.PriceUSD != nil || r.PriceIDR == nil {
			out[i] = r
			continue
		}
		cp := *r
		usd := fx.ToUSD(*r.PriceIDR, rate)
		cp.PriceUSD = &usd
		out[i] = &cp
	}
	return out
}

// handleReport renders the current snapshot report as Markdown.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	snapshotID, records, ok := s.currentTable(r.Context())
	if !ok {
		http.Error(w, "no snapshot available yet", http.StatusServiceUnavailable)
		return
	}

	generator := reporting.NewGenerator(s.snapshotStore)
	report := generator.GenerateFromRecords(records)
	report.SnapshotID = snapshotID

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Write([]byte(reporting.RenderMarkdown(report)))
}

// handleSnapshots lists all persisted snapshot IDs.
func (s *Server) handleSnapshots(w http.ResponseWriter, r *http.Request) {
	ids, err := s.snapshotStore.ListSnapshots(r.Context())
	if err != nil {
		http.Error(w, fmt.Sprintf("list snapshots: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"snapshots": ids})
}

// currentTable returns the latest enriched table, preferring the cache and
// falling back to the snapshot store.
func (s *Server) currentTable(ctx context.Context) (string, []*domain.EnrichedRecord, bool) {
	s.mu.Lock()
	snapshotID := s.snapshotID
	current := s.current
	s.mu.Unlock()

	if snapshotID == "" {
		return "", nil, false
	}

	if records, ok := s.snapshotCache.Get(snapshotID); ok {
		observability.DefaultMetrics.SnapshotCacheHits.Inc()
		return snapshotID, records, true
	}
	observability.DefaultMetrics.SnapshotCacheMisses.Inc()

	records, err := s.snapshotStore.GetBySnapshot(ctx, snapshotID)
	if err != nil {
		// Snapshot store may be empty in memory mode, serve the in-process
		// table.
		return snapshotID, current, current != nil
	}
	s.snapshotCache.Put(snapshotID, records)
	return snapshotID, records, true
}

// SnapshotEvent is pushed to WebSocket clients when a new snapshot lands.
type SnapshotEvent struct {
	Type       string    `json:"type"`
	SnapshotID string    `json:"snapshot_id"`
	Rows       int       `json:"rows"`
	Timestamp  time.Time `json:"timestamp"`
}

// handleWS upgrades the connection and registers the client for snapshot
// notifications.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Printf("WebSocket upgrade error: %v", err)
		return
	}

	s.wsMu.Lock()
	s.wsClients[conn] = struct{}{}
	clients := len(s.wsClients)
	s.wsMu.Unlock()
	s.logger.Printf("WebSocket client connected (%d total)", clients)

	// Reader loop: discard inbound messages, detect close.
	go func() {
		defer func() {
			s.wsMu.Lock()
			delete(s.wsClients, conn)
			s.wsMu.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// broadcastSnapshot notifies all WebSocket clients about a new snapshot.
func (s *Server) broadcastSnapshot(snapshotID string, rows int) {
	event := SnapshotEvent{
		Type:       "snapshot",
		SnapshotID: snapshotID,
		Rows:       rows,
		Timestamp:  time.Now().UTC(),
	}

	s.wsMu.Lock()
	defer s.wsMu.Unlock()
	for conn := range s.wsClients {
		if err := conn.WriteJSON(event); err != nil {
			delete(s.wsClients, conn)
			conn.Close()
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
