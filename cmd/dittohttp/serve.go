package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/marmos91/dittohttp/internal/logger"
	"github.com/marmos91/dittohttp/pkg/config"
	"github.com/marmos91/dittohttp/pkg/counter"
	"github.com/marmos91/dittohttp/pkg/server"
	"github.com/spf13/cobra"
)

type serveFlags struct {
	configPath string
	mode       string
	host       string
	port       int
	workers    int
	delay      time.Duration
	rateLimit  int
	logLevel   string
}

func serveCmd() *cobra.Command {
	var flags serveFlags

	cmd := &cobra.Command{
		Use:   "serve [root]",
		Short: "Serve a directory",
		Long: "Serve the files under root. Flags override the configuration file, " +
			"which overrides built-in defaults. A .env file in the working directory " +
			"is loaded first, so DITTOHTTP_* variables can live there.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, args, flags)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&flags.configPath, "config", "c", "", "Config file (default $XDG_CONFIG_HOME/dittohttp/config.yaml)")
	f.StringVar(&flags.mode, "mode", "", "Serving mode: pool or single")
	f.StringVar(&flags.host, "host", "", "Address to bind")
	f.IntVarP(&flags.port, "port", "p", 0, "TCP port to listen on")
	f.IntVarP(&flags.workers, "workers", "w", 0, "Worker pool size in pool mode")
	f.DurationVar(&flags.delay, "delay", 0, "Simulated processing delay per request (0 disables)")
	f.IntVar(&flags.rateLimit, "rate-limit", 0, "Requests allowed per client per rate window")
	f.StringVar(&flags.logLevel, "log-level", "", "Log level (DEBUG, INFO, WARN, ERROR)")

	return cmd
}

func runServe(cmd *cobra.Command, args []string, flags serveFlags) error {
	// A missing .env is normal.
	_ = godotenv.Load()

	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return err
	}

	applyServeFlags(cmd, cfg, args, flags)
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	logCloser, err := logger.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	if err != nil {
		return fmt.Errorf("failed to configure logging: %w", err)
	}
	defer func() { _ = logCloser.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("dittohttp %s starting", Version)
	logger.Info("Serving %s on %s:%d (mode=%s, workers=%d, delay=%v, rate limit=%d/%v)",
		cfg.Adapters.HTTP.Root, cfg.Adapters.HTTP.Host, cfg.Adapters.HTTP.Port,
		cfg.Adapters.HTTP.Mode, cfg.Adapters.HTTP.Workers, cfg.Adapters.HTTP.SimulatedDelay,
		cfg.Adapters.HTTP.RateLimit, cfg.Adapters.HTTP.RateWindow)

	metricsResult := config.InitializeMetrics(cfg)
	if metricsResult.Server != nil {
		go func() {
			if err := metricsResult.Server.Start(ctx); err != nil {
				logger.Error("Metrics server error: %v", err)
			}
		}()
	}

	st, err := config.CreateCounterStore(ctx, &cfg.Counters)
	if err != nil {
		return fmt.Errorf("failed to create counter store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("Failed to close counter store: %v", err)
		}
	}()

	srv := server.New(counter.NewRegistry(), st, server.Config{
		FlushInterval: cfg.Counters.FlushInterval,
		StopTimeout:   cfg.Server.ShutdownTimeout,
	})

	adapters, err := config.CreateAdapters(cfg, metricsResult.HTTPMetrics)
	if err != nil {
		return err
	}
	for _, adp := range adapters {
		if err := srv.AddAdapter(adp); err != nil {
			return fmt.Errorf("failed to add %s adapter: %w", adp.Protocol(), err)
		}
	}

	logger.Info("Server is running. Press Ctrl+C to stop.")

	if err := srv.Serve(ctx); err != nil {
		logger.Error("Server error: %v", err)
		return err
	}

	logger.Info("Server stopped gracefully")
	return nil
}

// applyServeFlags copies explicitly set flags over the loaded configuration.
func applyServeFlags(cmd *cobra.Command, cfg *config.Config, args []string, flags serveFlags) {
	h := &cfg.Adapters.HTTP
	f := cmd.Flags()

	if len(args) == 1 {
		h.Root = args[0]
	}
	if f.Changed("mode") {
		h.Mode = flags.mode
	}
	if f.Changed("host") {
		h.Host = flags.host
	}
	if f.Changed("port") {
		h.Port = flags.port
	}
	if f.Changed("workers") {
		h.Workers = flags.workers
	}
	if f.Changed("delay") {
		h.SimulatedDelay = flags.delay
	}
	if f.Changed("rate-limit") {
		h.RateLimit = flags.rateLimit
	}
	if f.Changed("log-level") {
		cfg.Logging.Level = flags.logLevel
	}
}
