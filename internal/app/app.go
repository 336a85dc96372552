package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yungbote/recommend-backend/internal/data/db"
	apphttp "github.com/yungbote/recommend-backend/internal/http"
	"github.com/yungbote/recommend-backend/internal/jobs/worker"
	"github.com/yungbote/recommend-backend/internal/observability"
	"github.com/yungbote/recommend-backend/internal/platform/logger"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Server   *apphttp.Server
	Worker   *worker.Worker
	Cfg      Config
	Repos    Repos
	Clients  Clients
	Services Services
	Metrics  *observability.Metrics
}

// New loads the configuration from the environment and wires every layer.
// Nothing runs until Run.
func New() (*App, error) {
	LoadEnv()
	log, err := logger.New(LogMode())
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)
	gin.SetMode(ginMode(cfg.Env))

	theDB, err := OpenDB(log, cfg)
	if err != nil {
		log.Sync()
		return nil, err
	}
	if cfg.AutoMigrate {
		if err := db.AutoMigrateAll(theDB); err != nil {
			log.Sync()
			return nil, fmt.Errorf("automigrate: %w", err)
		}
	}

	metrics := observability.Init(log)

	clients, err := wireClients(log, cfg)
	if err != nil {
		log.Sync()
		return nil, err
	}

	reposet := wireRepos(theDB, log)
	serviceset := wireServices(theDB, log, cfg, reposet, clients)
	handlerset := wireHandlers(theDB, log, serviceset)
	middleware := wireMiddleware(log, serviceset)

	server := apphttp.NewServer(routerConfig(log, cfg, metrics, handlerset, middleware))
	jobWorker := worker.NewWorker(log, clients.Locker, dispatchTask(cfg, serviceset))

	return &App{
		Log:      log,
		DB:       theDB,
		Server:   server,
		Worker:   jobWorker,
		Cfg:      cfg,
		Repos:    reposet,
		Clients:  clients,
		Services: serviceset,
		Metrics:  metrics,
	}, nil
}

// OpenDB connects to the configured driver.
func OpenDB(log *logger.Logger, cfg Config) (*gorm.DB, error) {
	switch cfg.DBDriver {
	case "sqlite":
		s, err := db.NewSQLiteService(log, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("init sqlite: %w", err)
		}
		return s.DB(), nil
	case "postgres", "":
		pg, err := db.NewPostgresService(log, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("init postgres: %w", err)
		}
		return pg.DB(), nil
	default:
		return nil, fmt.Errorf("unknown DB_DRIVER %q", cfg.DBDriver)
	}
}

func dispatchTask(cfg Config, s Services) worker.Task {
	return worker.Task{
		Name:     "dispatch",
		Interval: cfg.DispatchInterval,
		Run: func(ctx context.Context) error {
			_, err := s.Dispatch.EmailScheduled(ctx)
			return err
		},
	}
}

// Run serves HTTP and runs the background worker until ctx is cancelled or
// one of them fails.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}

	shutdownOtel := observability.InitOTel(ctx, a.Log, a.Cfg.Otel)
	defer func() {
		if shutdownOtel != nil {
			_ = shutdownOtel(context.Background())
		}
	}()

	g, ctx := errgroup.WithContext(ctx)

	a.Metrics.StartServer(ctx, a.Log, a.Cfg.MetricsAddr)
	a.Metrics.StartPostgresCollector(ctx, a.Log, a.DB)
	if a.Clients.Redis != nil {
		a.Metrics.StartRedisCollector(ctx, a.Log, a.Clients.Redis)
	}

	if a.Cfg.RunServer {
		addr := ":" + a.Cfg.Port
		g.Go(func() error {
			a.Log.Info("Server listening", "addr", addr)
			return a.Server.Run(ctx, addr)
		})
	}
	if a.Cfg.RunWorker && a.Worker != nil {
		g.Go(func() error {
			return a.Worker.Run(ctx)
		})
	}
	return g.Wait()
}

func (a *App) Close() {
	if a == nil {
		return
	}
	a.Clients.Close()
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
