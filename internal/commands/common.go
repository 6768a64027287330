// Package commands implements the maintenance subcommands of the agenda
// binary.
package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"

	"github.com/klabast/wb-services/agenda/internal/agenda"
	"github.com/klabast/wb-services/agenda/internal/app"
	"github.com/klabast/wb-services/agenda/internal/kv"
)

// IO is the process's standard streams.
type IO struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// session is an opened store with its configuration.
type session struct {
	cfg    app.Config
	store  *agenda.Store
	medium kv.Store
	logger *slog.Logger
}

func (s *session) Close() error { return s.medium.Close() }

// configFlag registers the -config flag shared by every subcommand.
func configFlag(fs *flag.FlagSet) *string {
	return fs.String("config", app.DefaultConfigFile, "Path to the TOML configuration file")
}

// openSession loads the configuration and opens (and seeds, if empty) the
// store it names.
func openSession(ctx context.Context, configPath string, stdio IO) (*session, error) {
	cfg, err := app.LoadConfig(configPath, configPath != app.DefaultConfigFile)
	if err != nil {
		return nil, err
	}
	// Commands log to stderr so their output stays clean.
	logger, err := app.NewLogger(stdio.Err, app.ServiceName, cfg.Log)
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	medium, err := kv.Open(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	store := agenda.NewStore(medium, agenda.Options{Logger: logger, Location: loc})
	if err := store.Initialize(ctx); err != nil {
		medium.Close()
		return nil, err
	}
	return &session{cfg: cfg, store: store, medium: medium, logger: logger}, nil
}
