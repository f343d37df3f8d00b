package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Swind/go-async-task/config"
	"github.com/Swind/go-async-task/core"
	"github.com/Swind/go-async-task/observability/prometheus"
	"github.com/Swind/go-async-task/observability/zaplog"
)

var version = "dev" // set via ldflags at build time

type options struct {
	configPath  string
	tasks       int
	producers   int
	work        time.Duration
	metricsAddr string
	hold        bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "asyncbench",
		Short: "Benchmark an asynctask worker pool",
		Long: `asyncbench enqueues --tasks tasks from --producers goroutines on a
worker pool, waits for all of them and checks every result.

Pool and log settings come from --config, ASYNCTASK_* environment variables
and the flags below, in increasing order of precedence.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cmd, v, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.configPath, "config", "", "Path to a config file (yaml, json or toml)")
	flags.IntVar(&opts.tasks, "tasks", 10000, "Number of tasks to run")
	flags.IntVar(&opts.producers, "producers", 4, "Number of goroutines enqueuing tasks")
	flags.DurationVar(&opts.work, "work", 0, "Simulated work per task")
	flags.StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")
	flags.BoolVar(&opts.hold, "hold", false, "Keep serving metrics after the run until interrupted")
	flags.Int("workers", 0, "Worker goroutines (0 = CPUs-1)")
	flags.Bool("debug", false, "Log failures discarded by workers")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")

	bindings := map[string]string{
		"pool.workers": "workers",
		"pool.debug":   "debug",
		"log.level":    "log-level",
	}
	for key, flag := range bindings {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			panic(fmt.Sprintf("binding flag %s: %v", flag, err))
		}
	}

	return cmd
}

func run(ctx context.Context, cmd *cobra.Command, v *viper.Viper, opts *options) error {
	if opts.tasks <= 0 || opts.producers <= 0 {
		return fmt.Errorf("--tasks and --producers must be positive")
	}

	cfg, err := config.LoadFrom(v, opts.configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger, err := zaplog.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	poolOpts := cfg.Pool.Options()
	poolOpts.Logger = logger.Named(cfg.Pool.Name)

	if opts.metricsAddr != "" {
		reg := prom.NewRegistry()
		exporter, err := prometheus.NewMetricsExporter("", reg, prometheus.ExporterOptions{})
		if err != nil {
			return fmt.Errorf("creating metrics exporter: %w", err)
		}
		poolOpts.Metrics = exporter

		poller, err := prometheus.NewSnapshotPoller(reg, 500*time.Millisecond)
		if err != nil {
			return fmt.Errorf("creating snapshot poller: %w", err)
		}

		stopServer, err := serveMetrics(opts.metricsAddr, reg, logger)
		if err != nil {
			return err
		}
		defer stopServer()

		pool := core.NewWorkerPool(cfg.Pool.Name, poolOpts)
		defer pool.Shutdown()

		poller.AddPool(pool.Name(), pool)
		poller.Start(ctx)
		defer poller.Stop()

		return benchAndReport(ctx, cmd, pool, opts)
	}

	pool := core.NewWorkerPool(cfg.Pool.Name, poolOpts)
	defer pool.Shutdown()
	return benchAndReport(ctx, cmd, pool, opts)
}

func benchAndReport(ctx context.Context, cmd *cobra.Command, pool *core.WorkerPool, opts *options) error {
	res, err := runBench(ctx, pool, benchOptions{
		Tasks:     opts.tasks,
		Producers: opts.producers,
		Work:      opts.work,
	})
	if err != nil {
		return err
	}
	res.Print(cmd.OutOrStdout())

	if opts.hold && opts.metricsAddr != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "serving metrics on %s, press Ctrl+C to exit\n", opts.metricsAddr)
		<-ctx.Done()
	}
	return nil
}

func serveMetrics(addr string, reg *prom.Registry, logger core.Logger) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", core.F("error", err))
		}
	}()
	logger.Info("serving metrics", core.F("addr", ln.Addr().String()))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
