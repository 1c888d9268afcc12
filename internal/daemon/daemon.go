package daemon

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coverquest/coverquest/internal/api"
	"github.com/coverquest/coverquest/internal/app/challenge"
	"github.com/coverquest/coverquest/internal/app/engagement"
	"github.com/coverquest/coverquest/internal/app/insight"
	"github.com/coverquest/coverquest/internal/app/points"
	"github.com/coverquest/coverquest/internal/health"
	"github.com/coverquest/coverquest/internal/infra/ai"
	"github.com/coverquest/coverquest/internal/infra/metrics"
	"github.com/coverquest/coverquest/internal/infra/scheduler"
	"github.com/coverquest/coverquest/internal/infra/sqlite"
)

// Daemon is the engine runtime. It wires together all services.
type Daemon struct {
	Config Config
	DB     *sqlite.DB
	Server *api.Server

	Points     *points.Service
	Analytics  *insight.Service
	Engagement *engagement.Service
	Generator  *challenge.Generator
	Learner    *insight.Learner
	AI         *ai.Client
	Health     *health.Checker
	Scheduler  *scheduler.Scheduler

	cancel context.CancelFunc
}

// New creates and initializes a Daemon with all services wired.
func New() (*Daemon, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return NewWithConfig(cfg)
}

// NewWithConfig creates a Daemon with the given configuration.
func NewWithConfig(cfg Config) (*Daemon, error) {
	storeDir := cfg.Store.Dir
	if storeDir == "" {
		storeDir = engineHome()
	}
	if err := os.MkdirAll(storeDir, 0700); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}

	db, err := sqlite.Open(storeDir)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := challenge.SeedCatalog(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("seed catalog: %w", err)
	}

	aiTimeout := time.Duration(cfg.AI.TimeoutSeconds) * time.Second
	aiClient := ai.NewClient(cfg.AI.BaseURL, cfg.AI.APIKey, cfg.AI.Model, aiTimeout)

	// A disabled client must become a nil interface, or the services would
	// see a non-nil writer that always fails.
	var writer challenge.Writer
	var recommender insight.Recommender
	if aiClient.Enabled() {
		writer = aiClient
		recommender = aiClient
	}

	pts := points.NewService(db)
	analytics := insight.NewService(db)
	eng := engagement.NewService(db, pts, analytics)
	gen := challenge.NewGenerator(db, writer, analytics, aiTimeout)
	learner := insight.NewLearner(db, recommender, aiTimeout)

	srv := api.NewServer(db, eng, gen, pts, analytics, learner)
	if cfg.Telemetry.Prometheus {
		srv.EnableMetrics()
	}

	checker := health.NewChecker(db, storeDir, aiClient)
	srv.SetHealthChecker(checker)

	d := &Daemon{
		Config:     cfg,
		DB:         db,
		Server:     srv,
		Points:     pts,
		Analytics:  analytics,
		Engagement: eng,
		Generator:  gen,
		Learner:    learner,
		AI:         aiClient,
		Health:     checker,
		Scheduler:  scheduler.New(),
	}
	d.registerJobs()

	return d, nil
}

// registerJobs wires the recurring background work onto the scheduler.
func (d *Daemon) registerJobs() {
	cfg := d.Config.Jobs

	d.Scheduler.DailyAt("generate_challenges", cfg.GenerationHourUTC, cfg.GenerationMinuteUTC,
		func(ctx context.Context) error {
			done := trackJob("generate_challenges")
			generated, skipped, err := d.Generator.GenerateAll(ctx)
			done()
			metrics.JobUsersProcessed.WithLabelValues("generate_challenges").Add(float64(generated))
			metrics.JobUsersSkipped.WithLabelValues("generate_challenges").Add(float64(skipped))
			return err
		})

	d.Scheduler.Every("recompute_scores", time.Duration(cfg.RecomputeHours)*time.Hour,
		func(ctx context.Context) error {
			done := trackJob("recompute_scores")
			n, err := d.Engagement.RecomputeAll()
			done()
			metrics.JobUsersProcessed.WithLabelValues("recompute_scores").Add(float64(n))
			return err
		})

	// Runs daily; the learner's own freshness gate keeps each user on a
	// two-day cadence.
	d.Scheduler.Every("analyze_behavior", 24*time.Hour,
		func(ctx context.Context) error {
			done := trackJob("analyze_behavior")
			n, err := d.Learner.AnalyzeAll(ctx)
			done()
			metrics.JobUsersProcessed.WithLabelValues("analyze_behavior").Add(float64(n))
			return err
		})
}

func trackJob(name string) func() {
	start := time.Now()
	return func() {
		metrics.JobDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	}
}

// Serve starts the HTTP server and blocks until shutdown.
func (d *Daemon) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	go d.Health.Run(ctx)
	d.Scheduler.Start(ctx)

	addr := fmt.Sprintf("%s:%d", d.Config.API.Host, d.Config.API.Port)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      d.Server.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	// Graceful shutdown on signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-sigCh:
		case <-ctx.Done():
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		d.Scheduler.Stop()
		_ = httpServer.Shutdown(shutdownCtx)
		_ = d.DB.Close()
	}()

	log.Printf("[daemon] serving on http://%s", addr)
	if d.AI.Enabled() {
		log.Printf("[daemon] AI generation: enabled (%s)", d.Config.AI.Model)
	} else {
		log.Printf("[daemon] AI generation: disabled, catalog and rules only")
	}
	if d.Config.Telemetry.Prometheus {
		log.Printf("[daemon] metrics: http://%s/metrics", addr)
	}

	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Close shuts down all daemon resources.
func (d *Daemon) Close() {
	if d.cancel != nil {
		d.cancel()
	}
	if d.Scheduler != nil {
		d.Scheduler.Stop()
	}
	if d.DB != nil {
		_ = d.DB.Close()
	}
}
