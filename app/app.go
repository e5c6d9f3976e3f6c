// Package app wires the reconciliation pipeline together: extraction, the
// analysis engine, exports, persistence, caching, notifications and the
// results API.
package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"od-flow-audit/analysis"
	"od-flow-audit/api"
	"od-flow-audit/cache"
	"od-flow-audit/collector"
	"od-flow-audit/config"
	"od-flow-audit/database"
	"od-flow-audit/export"
	"od-flow-audit/notifications"
	"od-flow-audit/realtime"
)

const resultCacheTTL = 24 * time.Hour

// App represents the main application
type App struct {
	config *config.Config

	db          *database.DB       // warehouse extraction (lib/pq)
	resultDB    *database.Database // result store (GORM)
	redis       *cache.RedisClient
	resultCache *cache.ResultCache

	trips   *database.TripRepository
	flows   *database.FlowRepository
	results *database.ResultRepository

	broker   *realtime.Broker
	notifier *notifications.Notifier
	exporter *export.Exporter
}

// New creates a new application instance
func New(cfg *config.Config) *App {
	return &App{
		config:   cfg,
		broker:   realtime.NewBroker(),
		notifier: notifications.NewNotifier(cfg.AlertWebhooks),
		exporter: export.NewExporter(cfg.ExportDir),
	}
}

// Start runs the application in the configured mode:
//
//	batch   — one reconciliation run, export and persist, then exit
//	serve   — one reconciliation run, then keep the results API up
//	collect — ingest the live counter feed until interrupted
func (a *App) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := a.connect(); err != nil {
		return err
	}
	defer a.closeAll()

	go a.broker.Run()

	switch a.config.Mode {
	case "collect":
		return a.runCollector(ctx, cancel)
	case "batch":
		_, err := a.runOnce(ctx)
		return err
	case "serve":
		result, err := a.runOnce(ctx)
		if err != nil {
			return err
		}
		return a.serve(ctx, cancel, result)
	default:
		return fmt.Errorf("unknown run mode %q", a.config.Mode)
	}
}

func (a *App) connect() error {
	fmt.Println("🗄️  Connecting to warehouse...")
	db, err := database.NewConnection(database.Config{
		Host:     a.config.DatabaseHost,
		Port:     a.config.DatabasePort,
		User:     a.config.DatabaseUser,
		Password: a.config.DatabasePassword,
		DBName:   a.config.DatabaseName,
	})
	if err != nil {
		return fmt.Errorf("warehouse connection failed: %w", err)
	}
	a.db = db
	a.trips = database.NewTripRepository(db)
	a.flows = database.NewFlowRepository(db)

	fmt.Println("🗄️  Connecting to result store...")
	resultDB, err := database.Connect(
		a.config.DatabaseHost,
		a.config.DatabasePort,
		a.config.DatabaseName,
		a.config.DatabaseUser,
		a.config.DatabasePassword,
	)
	if err != nil {
		return fmt.Errorf("result store connection failed: %w", err)
	}
	a.resultDB = resultDB
	a.results = database.NewResultRepository(resultDB)
	if err := a.results.InitSchema(); err != nil {
		return fmt.Errorf("schema initialization failed: %w", err)
	}

	fmt.Println("🧠 Connecting to Redis...")
	a.redis = cache.NewRedisClient(
		a.config.RedisHost,
		a.config.RedisPort,
		a.config.RedisPassword,
	)
	if a.redis == nil {
		fmt.Println("⚠️  Redis connection failed. Caching disabled.")
	}
	a.resultCache = cache.NewResultCache(a.redis, resultCacheTTL)

	return nil
}

// runOnce executes one full reconciliation over the configured window
func (a *App) runOnce(ctx context.Context) (*analysis.Result, error) {
	start, end, err := a.window()
	if err != nil {
		return nil, err
	}
	ws, we := a.config.WindowStart, a.config.WindowEnd

	a.broker.Broadcast(realtime.EventRunStarted, map[string]interface{}{
		"window_start": ws,
		"window_end":   we,
	})

	dataset, err := a.extract(ctx, start, end)
	if err != nil {
		return nil, err
	}

	engine := analysis.NewEngine(a.params())
	result, err := engine.Run(dataset)
	if err != nil {
		return nil, fmt.Errorf("reconciliation failed: %w", err)
	}

	if _, err := a.exporter.WriteResult(result); err != nil {
		return nil, err
	}
	if _, err := a.results.SaveRun(ws, we, result); err != nil {
		return nil, err
	}
	if err := a.resultCache.Store(ctx, ws, we, result); err != nil {
		log.Printf("⚠️  Result caching failed: %v", err)
	}

	a.broker.Broadcast(realtime.EventRunCompleted, map[string]interface{}{
		"window_start":    ws,
		"window_end":      we,
		"trip_count":      result.TripCount,
		"facet_errors":    result.FacetErrors,
		"transit_summary": result.TransitSummary,
	})
	a.notifier.NotifyQualityIssues(result, ws, we, a.config.Analysis.AbnormalShareAlert)

	return result, nil
}

func (a *App) extract(ctx context.Context, start, end time.Time) (*analysis.Dataset, error) {
	trips, err := a.trips.LoadTrips(ctx, start, end)
	if err != nil {
		return nil, err
	}

	dataset := &analysis.Dataset{Trips: trips}
	loads := []struct {
		role analysis.FlowRole
		dest *[]analysis.FlowRecord
	}{
		{analysis.RoleGantry, &dataset.GantryFlow},
		{analysis.RoleTollEntry, &dataset.EntryFlow},
		{analysis.RoleTollExit, &dataset.ExitFlow},
	}
	for _, l := range loads {
		records, err := a.flows.LoadFlows(ctx, l.role, start, end)
		if err != nil {
			return nil, err
		}
		*l.dest = records
	}
	return dataset, nil
}

func (a *App) serve(ctx context.Context, cancel context.CancelFunc, result *analysis.Result) error {
	server := api.NewServer(a.results, a.resultCache, a.broker)
	server.SetResult(result, a.config.WindowStart, a.config.WindowEnd)

	go func() {
		if err := server.Start(a.config.APIPort); err != nil {
			log.Printf("⚠️  API Server failed: %v", err)
			cancel()
		}
	}()

	return a.waitForShutdown(ctx, cancel)
}

func (a *App) runCollector(ctx context.Context, cancel context.CancelFunc) error {
	coll := collector.New(a.config.CounterFeedURL, os.Getenv("COUNTER_FEED_TOKEN"), a.flows, a.broker)

	errCh := make(chan error, 1)
	go func() {
		errCh <- coll.Run(ctx)
	}()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	select {
	case <-interrupt:
		fmt.Println("\n🛑 Shutdown signal received, stopping collector...")
		cancel()
		return <-errCh
	case err := <-errCh:
		return err
	}
}

func (a *App) waitForShutdown(ctx context.Context, cancel context.CancelFunc) error {
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	select {
	case <-interrupt:
		fmt.Println("\n🛑 Shutdown signal received, initiating graceful shutdown...")
	case <-ctx.Done():
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	shutdownComplete := make(chan struct{})
	go func() {
		a.closeAll()
		close(shutdownComplete)
	}()

	select {
	case <-shutdownComplete:
		fmt.Println("✅ Graceful shutdown completed")
		return nil
	case <-shutdownCtx.Done():
		fmt.Println("⚠️  Shutdown timeout exceeded, forcing exit")
		return fmt.Errorf("shutdown timeout")
	}
}

func (a *App) closeAll() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			log.Printf("Error closing warehouse connection: %v", err)
		}
		a.db = nil
	}
	if a.resultDB != nil {
		if err := a.resultDB.Close(); err != nil {
			log.Printf("Error closing result store: %v", err)
		}
		a.resultDB = nil
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			log.Printf("Error closing redis: %v", err)
		}
		a.redis = nil
	}
}

// window parses the configured analysis window. The end bound is exclusive;
// a date without a time component means midnight.
func (a *App) window() (time.Time, time.Time, error) {
	start, err := parseWindowBound(a.config.WindowStart)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid ANALYSIS_WINDOW_START: %w", err)
	}
	end, err := parseWindowBound(a.config.WindowEnd)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid ANALYSIS_WINDOW_END: %w", err)
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("window end %s is not after start %s", a.config.WindowEnd, a.config.WindowStart)
	}
	return start, end, nil
}

func parseWindowBound(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("empty window bound")
	}
	for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02 15:04", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}

func (a *App) params() analysis.Params {
	ac := a.config.Analysis
	return analysis.Params{
		QualityBand: analysis.QualityBand{Low: ac.QualityBandLow, High: ac.QualityBandHigh},
		Function: analysis.FunctionThresholds{
			ODRatio:      ac.ODRatioThreshold,
			TransitRatio: ac.TransitRatioThreshold,
		},
		Sampler: analysis.SamplerConfig{
			Seed:     ac.SamplerSeed,
			MaxCases: ac.SamplerMaxCases,
			Band:     ac.MedianBand,
		},
		Anomaly: analysis.AnomalyThresholds{
			LongTravel:  time.Duration(ac.LongTravelHours * float64(time.Hour)),
			ShortTravel: time.Duration(ac.ShortTravelMinute * float64(time.Minute)),
		},
		BalanceDeviation: ac.BalanceDeviation,
	}
}
