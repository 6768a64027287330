package main

import (
	"context"
	"embed"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/klabast/wb-services/agenda/internal/agenda"
	"github.com/klabast/wb-services/agenda/internal/app"
	"github.com/klabast/wb-services/agenda/internal/commands"
	"github.com/klabast/wb-services/agenda/internal/kv"
)

//go:embed static/*
var staticFiles embed.FS

func main() {
	// A missing .env is fine; the environment may be set some other way.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Check for subcommands
	if len(os.Args) > 1 {
		stdio := commands.IO{In: os.Stdin, Out: os.Stdout, Err: os.Stderr}
		var run func(context.Context, []string, commands.IO) error
		switch os.Args[1] {
		case "seed":
			run = commands.Seed
		case "list":
			run = commands.List
		case "delete":
			run = commands.Delete
		}
		if run != nil {
			if err := run(ctx, os.Args[2:], stdio); err != nil {
				if !errors.Is(err, flag.ErrHelp) {
					fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				}
				os.Exit(1)
			}
			return
		}
	}

	configPath := flag.String("config", app.DefaultConfigFile, "Path to the TOML configuration file")
	flag.Parse()

	if err := serve(ctx, *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func serve(ctx context.Context, configPath string) error {
	cfg, err := app.LoadConfig(configPath, configPath != app.DefaultConfigFile)
	if err != nil {
		return err
	}
	logger, err := app.NewLogger(os.Stdout, app.ServiceName, cfg.Log)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	shutdownTelemetry, err := app.SetupTelemetry(ctx, app.ServiceName, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	view, err := cfg.DefaultView()
	if err != nil {
		return err
	}
	grid, err := cfg.GridOptions()
	if err != nil {
		return err
	}

	medium, err := kv.Open(ctx, cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer medium.Close()

	store := agenda.NewStore(medium, agenda.Options{Logger: logger, Location: loc})
	if err := store.Initialize(ctx); err != nil {
		return fmt.Errorf("initialize storage: %w", err)
	}

	screens := app.NewRegistry(store, app.ScreenOptions{
		Location: loc,
		View:     view,
		Grid:     grid,
		Logger:   logger,
	})
	go screens.RunJanitor(ctx, cfg.ScreenTTL.Duration, time.Minute)

	static, err := fs.Sub(staticFiles, "static")
	if err != nil {
		return err
	}
	srv := app.NewServer(app.ServerOptions{
		Store:    store,
		Screens:  screens,
		Logger:   logger,
		Static:   static,
		Location: loc,
	})

	httpServer := &http.Server{
		Addr:              cfg.Listen,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting agenda", "addr", cfg.Listen, "storage", cfg.Storage.Backend, "timezone", cfg.Timezone)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
