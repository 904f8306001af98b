package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/carepilot/carepilot/internal/config"
	"github.com/carepilot/carepilot/internal/domain/directory"
	"github.com/carepilot/carepilot/internal/platform/blobstore"
	"github.com/carepilot/carepilot/internal/platform/db"
)

// app holds what every subcommand needs: config, logger and the lazily
// opened database.
type app struct {
	cfg      *config.Config
	logger   zerolog.Logger
	manager  *db.Manager
	resolver *db.Resolver
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	logger := newLogger(cfg)
	manager := db.NewManager(dbSettings(cfg), cfg.DBMaxConns, cfg.DBMinConns, logger)
	return &app{
		cfg:      cfg,
		logger:   logger,
		manager:  manager,
		resolver: db.NewResolver(manager),
	}, nil
}

func (a *app) Close() {
	a.manager.Close()
}

func newLogger(cfg *config.Config) zerolog.Logger {
	if cfg.IsDev() {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func dbSettings(cfg *config.Config) db.Settings {
	return db.Settings{
		Server:           cfg.SQLServer,
		Port:             cfg.SQLPort,
		Database:         cfg.SQLDatabase,
		User:             cfg.SQLUser,
		Password:         cfg.SQLPassword,
		ConnectionString: cfg.SQLConnectionString,
		SSLMode:          cfg.DBSSLMode,
	}
}

// openBlobStore returns nil, not an error, when no storage is configured.
func openBlobStore(ctx context.Context, cfg *config.Config) (blobstore.Store, error) {
	if cfg.StorageConnectionString == "" {
		return nil, nil
	}
	cs, err := blobstore.ParseConnectionString(cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("parse storage connection string: %w", err)
	}
	store, err := blobstore.NewS3(ctx, cs, cfg.BlobContainer)
	if err != nil {
		return nil, err
	}
	return store, nil
}

func (a *app) directoryService(blobs blobstore.Store) *directory.Service {
	store := directory.NewDirectoryStore(blobs, a.cfg.DoctorsBlobName, a.cfg.DoctorsPublicURL, a.logger)
	return directory.NewService(directory.NewDoctorRepoPG(a.manager), store, a.logger)
}
