package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yungbote/school-backend/internal/data/db"
	"github.com/yungbote/school-backend/internal/http"
	"github.com/yungbote/school-backend/internal/observability"
	"github.com/yungbote/school-backend/internal/platform/logger"
	"github.com/yungbote/school-backend/internal/realtime"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Server   *http.Server
	Cfg      Config
	Repos    Repos
	Services Services
	SSEHub   *realtime.SSEHub

	dbService    *db.Service
	shutdownOtel func(context.Context) error
}

// NewLogger builds the process logger from LOG_MODE (development by default).
func NewLogger() (*logger.Logger, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return log, nil
}

// OpenDB connects and migrates. It is shared by serve and migrate.
func OpenDB(log *logger.Logger) (*db.Service, error) {
	svc, err := db.Open(log)
	if err != nil {
		return nil, fmt.Errorf("init db: %w", err)
	}
	if err := db.AutoMigrateAll(svc.DB()); err != nil {
		_ = svc.Close()
		return nil, fmt.Errorf("db automigrate: %w", err)
	}
	return svc, nil
}

func New(ctx context.Context, log *logger.Logger) (*App, error) {
	log.Info("Loading environment variables...")
	LoadDotenv(log)
	cfg, err := LoadConfig(log)
	if err != nil {
		return nil, err
	}

	dbService, err := OpenDB(log)
	if err != nil {
		return nil, err
	}
	theDB := dbService.DB()

	shutdownOtel := observability.InitOTel(ctx, log, cfg.Otel)

	ssehub := realtime.NewSSEHub(log)
	reposet := wireRepos(theDB, log)
	serviceset, err := wireServices(ctx, theDB, log, cfg, reposet, ssehub)
	if err != nil {
		_ = dbService.Close()
		_ = shutdownOtel(ctx)
		return nil, err
	}

	handlerset := wireHandlers(log, theDB, serviceset, ssehub)
	middleware := wireMiddleware(log, cfg, reposet)
	server := wireServer(log, cfg, handlerset, middleware)

	return &App{
		Log:          log,
		DB:           theDB,
		Server:       server,
		Cfg:          cfg,
		Repos:        reposet,
		Services:     serviceset,
		SSEHub:       ssehub,
		dbService:    dbService,
		shutdownOtel: shutdownOtel,
	}, nil
}

// Run starts the background loops and the HTTP server and blocks until ctx
// is canceled or the server fails.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return errors.New("app not initialized")
	}
	g, gctx := errgroup.WithContext(ctx)

	if a.Services.Bus != nil {
		if err := a.Services.Bus.StartForwarder(gctx, a.SSEHub.Broadcast); err != nil {
			return fmt.Errorf("redis forwarder: %w", err)
		}
	}
	stopSweeper, err := a.Services.Sweeper.Start(gctx)
	if err != nil {
		return err
	}
	a.Services.JobWorker.Start(gctx)
	g.Go(func() error {
		<-gctx.Done()
		stopSweeper()
		a.Services.JobWorker.Wait()
		return nil
	})

	g.Go(func() error {
		a.Log.Info("HTTP server listening", "addr", a.Cfg.Addr)
		return a.Server.Run(gctx)
	})
	return g.Wait()
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.Services.Bus != nil {
		if err := a.Services.Bus.Close(); err != nil {
			a.Log.Warn("Redis bus close failed", "error", err)
		}
	}
	if a.shutdownOtel != nil {
		if err := a.shutdownOtel(context.Background()); err != nil {
			a.Log.Warn("Tracer shutdown failed", "error", err)
		}
	}
	if a.dbService != nil {
		if err := a.dbService.Close(); err != nil {
			a.Log.Warn("DB close failed", "error", err)
		}
	}
	a.Log.Sync()
}
