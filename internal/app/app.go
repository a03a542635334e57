package app

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/bubelovv/team-tracker/internal/auth"
	"github.com/bubelovv/team-tracker/internal/config"
	"github.com/bubelovv/team-tracker/internal/httpserver"
	"github.com/bubelovv/team-tracker/internal/importer"
	"github.com/bubelovv/team-tracker/internal/migrations"
	"github.com/bubelovv/team-tracker/internal/repository"
	"github.com/bubelovv/team-tracker/internal/service"
	"github.com/bubelovv/team-tracker/internal/storage/file"
	"github.com/bubelovv/team-tracker/internal/storage/postgres"
	"github.com/bubelovv/team-tracker/internal/store"
	"go.uber.org/zap"
)

type App struct {
	cfg        config.Config
	logger     *zap.Logger
	httpServer *httpserver.Server
	store      *store.Store
	svc        *service.Service
	closers    []func()
}

func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	a := &App{cfg: cfg, logger: logger}

	persister, err := a.openPersister(ctx)
	if err != nil {
		a.close()
		return nil, err
	}

	hasher := auth.NewHasher(cfg.BcryptCost)
	seed := service.Seed(hasher, service.AdminAccount{
		Name:     cfg.AdminName,
		Email:    cfg.AdminEmail,
		Password: cfg.AdminPassword,
	}, logger)
	a.store = store.New(persister, logger.Named("store"), store.WithSeed(seed))
	a.store.Load(ctx)

	tracker, err := importer.New(cfg.ImportLatency, logger.Named("importer"))
	if err != nil {
		a.close()
		return nil, err
	}

	a.svc = service.New(a.store, tracker, hasher, logger.Named("service"))
	a.httpServer = httpserver.New(cfg.HTTPPort, logger, a.svc)

	return a, nil
}

// openPersister picks the snapshot backend named by STORAGE_TYPE.
func (a *App) openPersister(ctx context.Context) (store.Persister, error) {
	a.logger.Info("opening storage", zap.String("type", a.cfg.StorageType))

	switch a.cfg.StorageType {
	case config.StorageMemory:
		return store.NewMemoryPersister(), nil
	case config.StorageFile:
		p, err := file.New(a.cfg.DataDir)
		if err != nil {
			return nil, err
		}
		return p, nil
	case config.StoragePostgres:
		db, err := postgres.New(ctx, postgres.Options{
			DSN:         a.cfg.DatabaseURL,
			MaxConns:    a.cfg.DBMaxConns,
			PingTimeout: a.cfg.DBPingTimeout,
		}, a.logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)

		if err := migrations.Run(ctx, a.cfg.DatabaseURL, a.logger); err != nil {
			return nil, err
		}
		return repository.New(db), nil
	default:
		return nil, fmt.Errorf("unknown storage type %q", a.cfg.StorageType)
	}
}

func (a *App) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *App) Run(ctx context.Context) error {
	defer a.close()
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.httpServer.Start()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer cancel()

		if err := a.httpServer.Stop(shutdownCtx); err != nil {
			return err
		}
		if err := a.store.Save(shutdownCtx); err != nil {
			a.logger.Error("final state save failed", zap.Error(err))
		}

		return <-errCh
	case err := <-errCh:
		return err
	}
}
