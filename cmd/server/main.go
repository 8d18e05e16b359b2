// Package main provides the long-running service:
// - Scheduled analysis runs (cron) writing reports and publishing results
// - HTTP: /healthz, /metrics, /status, /analyses/{asset_id}
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"tweet-price-lab/internal/bootstrap"
	"tweet-price-lab/internal/config"
	"tweet-price-lab/internal/fixtures"
	"tweet-price-lab/internal/logging"
	"tweet-price-lab/internal/observability"
	"tweet-price-lab/internal/orchestrator"
	"tweet-price-lab/internal/pipeline"
	"tweet-price-lab/internal/storage"
)

// Runner runs one analysis as of the given time.
type Runner interface {
	Run(ctx context.Context, asOfMs int64) (*orchestrator.RunResult, error)
}

// Server holds the scheduler state exposed over HTTP.
type Server struct {
	runner  Runner
	results storage.ResultReader
	logger  *logrus.Entry
	clock   func() time.Time
	started time.Time

	// State
	mu         sync.Mutex
	running    bool
	runs       int
	lastRun    time.Time
	lastRunID  string
	lastStatus string
	lastErr    string
}

func newServer(runner Runner, results storage.ResultReader, logger *logrus.Logger) *Server {
	return &Server{
		runner:  runner,
		results: results,
		logger:  logger.WithField("component", "server"),
		clock:   time.Now,
		started: time.Now(),
	}
}

func main() {
	configPath := flag.String("config", "", "Path to config.yaml")
	useFixtures := flag.Bool("fixtures", false, "Serve the deterministic demo dataset from memory stores")
	runOnStart := flag.Bool("run-on-start", true, "Run once before the first scheduled run")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *useFixtures {
		cfg.Storage.Backend = "memory"
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	stores, err := bootstrap.OpenStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to open stores: %v", err)
	}
	defer stores.Close()

	if *useFixtures {
		if _, err := fixtures.Load(ctx, stores.Assets, stores.Posts, stores.Candles); err != nil {
			logger.Fatalf("Failed to load fixtures: %v", err)
		}
	}

	orch, err := bootstrap.NewOrchestrator(cfg, stores, nil, logger, observability.DefaultMetrics)
	if err != nil {
		logger.Fatalf("Failed to build orchestrator: %v", err)
	}
	p := pipeline.New(orch, stores.Assets, cfg.Run.ReportDir).WithLogger(logger)
	if cfg.Run.Verify {
		verifier, err := bootstrap.NewReplayVerifier(cfg, stores, nil, logger)
		if err != nil {
			logger.Fatalf("Failed to build verifier: %v", err)
		}
		p.WithVerifier(verifier)
	}
	server := newServer(p, stores.Results, logger)

	// Overlapping runs are skipped, not queued
	scheduler := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	if _, err := scheduler.AddFunc(cfg.Server.Schedule, func() { server.runOnce(ctx) }); err != nil {
		logger.Fatalf("Invalid schedule %q: %v", cfg.Server.Schedule, err)
	}

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           server.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.WithField("addr", cfg.Server.Addr).Info("http server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("http server failed")
			cancel()
		}
	}()

	if *runOnStart {
		go server.runOnce(ctx)
	}
	scheduler.Start()
	logger.WithField("schedule", cfg.Server.Schedule).Info("scheduler started")

	<-ctx.Done()
	logger.Info("shutting down")

	// Wait for a running job, bounded by the shutdown timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	select {
	case <-scheduler.Stop().Done():
	case <-shutdownCtx.Done():
		logger.Warn("scheduled run did not finish before shutdown timeout")
	}
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("http shutdown")
	}
	logger.Info("shutdown complete")
}

// runOnce executes one analysis as of the current time.
func (s *Server) runOnce(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Info("run already in progress, skipping")
		return
	}
	s.running = true
	s.mu.Unlock()

	now := s.clock()
	result, err := s.runner.Run(ctx, now.UnixMilli())

	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	s.runs++
	s.lastRun = now
	if err != nil {
		s.lastStatus, s.lastRunID, s.lastErr = orchestrator.StatusFailed, "", err.Error()
		s.logger.WithError(err).Error("run failed")
		return
	}
	s.lastStatus, s.lastRunID, s.lastErr = result.Status(), result.RunID, ""
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", observability.Handler())
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /analyses/{asset_id}", s.handleAnalysis)
	return mux
}

// StatusResponse is the JSON response for /status.
type StatusResponse struct {
	Uptime     string    `json:"uptime"`
	Running    bool      `json:"running"`
	Runs       int       `json:"runs"`
	LastRun    time.Time `json:"last_run,omitempty"`
	LastRunID  string    `json:"last_run_id,omitempty"`
	LastStatus string    `json:"last_status,omitempty"`
	LastError  string    `json:"last_error,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	resp := StatusResponse{
		Uptime:     time.Since(s.started).Round(time.Second).String(),
		Running:    s.running,
		Runs:       s.runs,
		LastRun:    s.lastRun,
		LastRunID:  s.lastRunID,
		LastStatus: s.lastStatus,
		LastError:  s.lastErr,
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	a, err := s.results.Get(r.Context(), r.PathValue("asset_id"))
	switch {
	case errors.Is(err, storage.ErrNotFound):
		http.Error(w, "no analysis for asset", http.StatusNotFound)
	case err != nil:
		s.logger.WithError(err).Error("read analysis")
		http.Error(w, "internal error", http.StatusInternalServerError)
	default:
		writeJSON(w, http.StatusOK, a)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
