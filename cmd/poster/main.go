package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/mikequentel/ukiyobot/internal/bluesky"
	"github.com/mikequentel/ukiyobot/internal/config"
	"github.com/mikequentel/ukiyobot/internal/logger"
	"github.com/mikequentel/ukiyobot/internal/metrics"
	"github.com/mikequentel/ukiyobot/internal/poster"
	"github.com/mikequentel/ukiyobot/internal/scheduler"
	"github.com/mikequentel/ukiyobot/internal/stability"
	"github.com/mikequentel/ukiyobot/internal/tracer"
)

func main() {
	log.SetFlags(0)
	os.Exit(run(os.Args[1:]))
}

// run returns the process exit code so deferred cleanup (tracer flush,
// signal handler) happens before the process exits.
func run(args []string) int {
	fs := flag.NewFlagSet("poster", flag.ContinueOnError)
	once := fs.Bool("once", false, "run a single posting cycle and exit (for an external cron)")
	envFile := fs.String("env", "", "dotenv file to load (default .env)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	// --- Config (env) ---
	var files []string
	if *envFile != "" {
		files = append(files, *envFile)
	}
	cfg, err := config.Load(files...)
	if err != nil {
		log.Printf("config: %v", err)
		return 1
	}

	lg := logger.Init(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Observability ---
	shutdownTracer, err := tracer.Init(ctx, tracer.Config{
		ServiceName: tracer.ServiceName,
		Endpoint:    cfg.Tracing.Endpoint,
		SampleRate:  cfg.Tracing.SampleRate,
		Enabled:     cfg.Tracing.Enabled,
	})
	if err != nil {
		lg.Error("tracer init failed", "error", err)
		return 1
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			lg.Warn("tracer shutdown", "error", err)
		}
	}()

	if cfg.Metrics.Addr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.Addr, lg); err != nil {
				lg.Error("metrics server failed", "error", err)
			}
		}()
	}

	p := newPoster(cfg, newHTTPClient(cfg), lg)

	if *once {
		if err := p.Run(ctx); err != nil {
			lg.Error("run failed", "error", err)
			return 1
		}
		return 0
	}

	// --- Schedule ---
	opts := []scheduler.Option{scheduler.WithLogger(lg)}
	if cfg.Schedule.RunOnStart {
		opts = append(opts, scheduler.WithImmediateRun())
	}
	sched, err := scheduler.New(cfg.Schedule.Expression, p.Run, opts...)
	if err != nil {
		lg.Error("bad schedule", "error", err)
		return 1
	}

	lg.Info("ukiyobot started",
		"handle", cfg.Bluesky.Username,
		"schedule", cfg.Schedule.Expression,
		"dry_run", cfg.DryRun)

	if err := sched.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		lg.Error("scheduler stopped", "error", err)
		return 1
	}
	lg.Info("Shutting down...")
	return 0
}

// newHTTPClient is shared by both API clients. Outgoing requests carry the
// run's trace context.
func newHTTPClient(cfg *config.Config) *http.Client {
	return &http.Client{
		Timeout:   cfg.HTTPTimeout,
		Transport: tracer.Transport{},
	}
}

// newPoster wires both API clients into a poster. The clients live for the
// whole process; sessions are created per run.
func newPoster(cfg *config.Config, httpClient *http.Client, lg *slog.Logger) *poster.Poster {
	bsky := bluesky.NewClient(httpClient, cfg.Bluesky.Service)
	images := stability.NewClient(httpClient, cfg.Stability.BaseURL, cfg.Stability.APIKey)

	return poster.New(bsky, images,
		poster.Credentials{
			Identifier: cfg.Bluesky.Username,
			Password:   cfg.Bluesky.Password,
		},
		poster.WithLogger(lg),
		poster.WithDryRun(cfg.DryRun),
	)
}
