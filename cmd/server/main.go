package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"canteen/internal/analytics"
	"canteen/internal/config"
	"canteen/internal/infrastructure/logger"
	"canteen/internal/infrastructure/mysql"
	"canteen/internal/menu"
	menurepo "canteen/internal/menu/repository"
	menuservice "canteen/internal/menu/service"
	"canteen/internal/order"
	orderrepo "canteen/internal/order/repository"
	"canteen/internal/order/usecase"
	"canteen/internal/reconciliation"
	"canteen/internal/server"
	"canteen/internal/viewsync"
)

const shutdownTimeout = 10 * time.Second

type menuStore interface {
	menuservice.Repository
	ApplySeed(ctx context.Context, seed *menurepo.Seed) error
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("loading .env: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	zapLogger, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("creating logger: %v", err)
	}
	defer zapLogger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		orders usecase.OrderRepository
		dishes menuStore
	)
	switch cfg.Storage.Driver {
	case config.StorageMemory:
		orders = orderrepo.NewMemoryOrderRepository()
		dishes = menurepo.NewMemoryRepository()
		zapLogger.Warn("using in-memory storage; orders are lost on restart")
	default:
		db, err := mysql.NewConnection(cfg.Database)
		if err != nil {
			zapLogger.Fatal("connecting to database", zap.Error(err))
		}
		defer db.Close()
		zapLogger.Info("database connected")

		orders = orderrepo.NewMySQLOrderRepository(db)
		dishes = menurepo.NewMySQLRepository(db)
	}

	if err := seedMenu(ctx, cfg, dishes, zapLogger); err != nil {
		zapLogger.Fatal("seeding menu", zap.Error(err))
	}

	cache := newViewCache(ctx, cfg, zapLogger)

	hub := viewsync.NewHub(zapLogger)
	sinks := []viewsync.Sink{hub}
	if cfg.AMQP.URL != "" {
		publisher, err := viewsync.DialAMQP(cfg.AMQP.URL, cfg.AMQP.Exchange, zapLogger)
		if err != nil {
			// push and polling still work without the broker
			zapLogger.Error("amqp unavailable, order changes will not be published", zap.Error(err))
		} else {
			defer publisher.Close()
			sinks = append(sinks, publisher)
		}
	}

	coordinator := viewsync.NewCoordinator(cache, zapLogger, sinks...)
	loader := viewsync.NewLoader(cache, cfg.Sync.ViewCacheTTL, zapLogger)

	if err := os.MkdirAll(filepath.Dir(cfg.Ledger.Path), 0o755); err != nil {
		zapLogger.Fatal("creating ledger directory", zap.Error(err))
	}
	ledger, err := reconciliation.Open(cfg.Ledger.Path)
	if err != nil {
		zapLogger.Fatal("opening reconciliation ledger", zap.Error(err))
	}
	defer ledger.Close()

	menuModule := menu.NewModule(dishes, loader, zapLogger)
	orderModule := order.NewModule(orders, menuModule.Service, coordinator, loader, ledger, cfg, zapLogger)
	stats := analytics.NewService(orders, loader)

	if orderModule.Payments.TestMode() {
		zapLogger.Warn("payment test mode enabled; POST /orders skips payment")
	}

	router := server.NewRouter(server.Handlers{
		Orders:          orderModule.Orders,
		Checkout:        orderModule.Checkout,
		Menu:            menuModule.Controller,
		Analytics:       analytics.NewController(stats, zapLogger),
		Reconciliations: reconciliation.NewController(ledger, zapLogger),
		Hub:             hub,
	}, zapLogger)

	srv := server.New(cfg.Server.Port, router, zapLogger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error { return hub.Run(gctx) })
	g.Go(func() error { return orderModule.Payments.Run(gctx) })
	g.Go(func() error {
		<-gctx.Done()
		zapLogger.Info("received shutdown signal")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		zapLogger.Error("server stopped with error", zap.Error(err))
		return
	}

	zapLogger.Info("server stopped gracefully")
}

// seedMenu always loads the seed into memory storage. A MySQL menu is only
// seeded when a seed file is configured explicitly.
func seedMenu(ctx context.Context, cfg *config.Config, store menuStore, logger *zap.Logger) error {
	if cfg.Storage.Driver != config.StorageMemory && cfg.Menu.SeedFile == "" {
		return nil
	}

	seed, err := menurepo.LoadSeed(cfg.Menu.SeedFile)
	if err != nil {
		return err
	}
	if err := store.ApplySeed(ctx, seed); err != nil {
		return err
	}

	logger.Info("menu seeded",
		zap.Int("categories", len(seed.Categories)),
		zap.Int("items", len(seed.Items)))
	return nil
}

// newViewCache uses redis when configured so every backend replica shares
// one view version. It falls back to process memory otherwise.
func newViewCache(ctx context.Context, cfg *config.Config, logger *zap.Logger) viewsync.Cache {
	if cfg.Redis.Addr == "" {
		return viewsync.NewMemoryCache()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Error("redis unavailable, using in-memory view cache", zap.Error(err))
		_ = client.Close()
		return viewsync.NewMemoryCache()
	}

	logger.Info("redis view cache connected", zap.String("addr", cfg.Redis.Addr))
	return viewsync.NewRedisCache(client, "canteen")
}

