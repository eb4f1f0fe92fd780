package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"dispatchd/internal/config"
	"dispatchd/internal/dispatch"
	"dispatchd/internal/httpapi"
	"dispatchd/internal/registry"
)

type serveOptions struct {
	addr       string
	configPath string
	logLevel   string
}

func rootCmd() *cobra.Command {
	opts := &serveOptions{}

	root := &cobra.Command{
		Use:           "dispatchd",
		Short:         "Inference dispatch daemon: routes requests to a pool of model workers and streams results back",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts)
		},
	}

	defaultAddr := ":8001"
	if v := os.Getenv("DISPATCHD_ADDR"); v != "" {
		defaultAddr = v
	}
	defaultConfig := os.Getenv("DISPATCHD_CONFIG")

	root.Flags().StringVar(&opts.addr, "addr", defaultAddr, "HTTP listen address, e.g. :8001")
	root.Flags().StringVar(&opts.configPath, "config", defaultConfig, "Path to config file (yaml/json/toml)")
	root.Flags().StringVar(&opts.logLevel, "log-level", "info", "Log level: debug|info|warn|error")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Start the dispatch daemon (default command)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts)
		},
	}
	root.AddCommand(serve)

	return root
}

func runServe(opts *serveOptions) error {
	lvl, err := zerolog.ParseLevel(opts.logLevel)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(lvl).With().Timestamp().Logger()

	var cfg config.Config
	if opts.configPath != "" {
		cfg, err = config.Load(opts.configPath)
		if err != nil {
			log.Error().Err(err).Str("path", opts.configPath).Msg("failed to load config")
			return err
		}
	}
	addr := opts.addr
	if cfg.Addr != "" {
		addr = cfg.Addr
	}

	workers, err := registry.Build(cfg.Workers)
	if err != nil {
		log.Error().Err(err).Msg("failed to build worker list")
		return err
	}
	if len(workers) == 0 {
		workers = registry.Default()
		log.Info().Msg("no workers configured, using built-in defaults (llm, tts, echo)")
	}

	pool, err := dispatch.NewPool(dispatch.PoolConfig{
		Workers:          workers,
		QueueCapacity:    cfg.QueueCapacity,
		MaxWait:          time.Duration(cfg.MaxWaitSeconds) * time.Second,
		DefaultChunkSize: cfg.DefaultChunkSize,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to build pool")
		return err
	}

	// Base context canceled on shutdown so in-flight streams stop too.
	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()
	httpapi.SetBaseContext(baseCtx)
	httpapi.SetLogger(log)
	httpapi.SetMaxBodyBytes(cfg.MaxBodyBytes)
	httpapi.SetCORSOptions(cfg.CORS.Enabled, cfg.CORS.Origins, cfg.CORS.Methods, cfg.CORS.Headers)

	mux := httpapi.NewMux(pool)
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		log.Info().Str("addr", addr).Int("workers", len(workers)).Msg("dispatchd listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown (Ctrl+C / SIGTERM)
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info().Msg("shutting down")
	cancelBase()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown error")
	}
	pool.Close()
	return nil
}
