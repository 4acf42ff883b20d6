package app

import (
	"context"
	"log/slog"

	"workrecords/internal/adapter/sqlstore"
	"workrecords/internal/config"
	"workrecords/internal/domain"
	"workrecords/internal/migrate"
	"workrecords/internal/ports"
	"workrecords/internal/usecase"
)

// App wires the object store, use cases and HTTP surface.
type App struct {
	log         *slog.Logger
	closer      func() error
	records     ports.WorkRecordProvider
	catalog     *usecase.Catalog
	contentType string
}

// New opens the configured backend, migrates it and builds the use cases.
func New(ctx context.Context, log *slog.Logger, cfg config.Config) (*App, error) {
	store, err := sqlstore.Open(ctx, sqlstore.Options{
		URL:       cfg.Backend.URL,
		Username:  cfg.Backend.Username,
		Password:  cfg.Backend.Password,
		Principal: principal(cfg.Backend),
	}, log)
	if err != nil {
		return nil, err
	}
	// Run migrations before the store is handed to use cases
	if err := migrate.Run(ctx, store.DB(), store.Dialect().Goose, log); err != nil {
		store.Close()
		return nil, err
	}
	a, err := NewWithStore(log, store, cfg)
	if err != nil {
		store.Close()
		return nil, err
	}
	a.closer = store.Close
	return a, nil
}

// NewWithStore builds the App on an already prepared store.
func NewWithStore(log *slog.Logger, store ports.ObjectStore, cfg config.Config) (*App, error) {
	root := domain.SegmentRoot(cfg.Backend.ProviderName, cfg.Backend.SegmentName)
	records, err := usecase.New(store, root, log)
	if err != nil {
		return nil, err
	}
	contentType := cfg.Backend.ContentType
	if contentType == "" {
		contentType = "application/json"
	}
	return &App{
		log:         log,
		records:     records,
		catalog:     usecase.NewCatalog(store, root, log),
		contentType: contentType,
	}, nil
}

// Records returns the work record operations.
func (a *App) Records() ports.WorkRecordProvider { return a.records }

// Catalog returns the reference data operations.
func (a *App) Catalog() *usecase.Catalog { return a.catalog }

// Close releases the backend connection, if the App owns one.
func (a *App) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer()
}

// principal mirrors the store's own convention of naming the segment admin
// when no user is configured.
func principal(b config.Backend) string {
	if b.Username != "" {
		return b.Username
	}
	return "admin-" + b.SegmentName
}
