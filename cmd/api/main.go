package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"

	"github.com/smartdot/storefront-backend/api/routes"
	"github.com/smartdot/storefront-backend/internal/auth"
	"github.com/smartdot/storefront-backend/internal/cart"
	"github.com/smartdot/storefront-backend/internal/checkout"
	"github.com/smartdot/storefront-backend/internal/orders"
	product "github.com/smartdot/storefront-backend/internal/products"
	"github.com/smartdot/storefront-backend/internal/users"
	"github.com/smartdot/storefront-backend/pkg/config"
	"github.com/smartdot/storefront-backend/pkg/db"
	"github.com/smartdot/storefront-backend/pkg/logger"
	"github.com/smartdot/storefront-backend/pkg/metrics"
	"github.com/smartdot/storefront-backend/pkg/migrate"
	"github.com/smartdot/storefront-backend/pkg/redis"
	"github.com/smartdot/storefront-backend/pkg/security"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, dbClient.Close()) }()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return err
		}
		defer func() { err = multierr.Append(err, redisClient.Close()) }()
	} else {
		logg.Warn(ctx, "redis disabled; rate limiting and idempotency are off")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	cartMetrics := metrics.NewCartMetrics(registry)

	slot, err := cartSlot(ctx, cfg, logg, dbClient, redisClient)
	if err != nil {
		return err
	}
	manager, err := cart.NewManager(cart.ManagerParams{
		Slot:       slot,
		StorageKey: cfg.Cart.StorageKey,
		MaxAge:     cfg.Cart.MaxAge,
		IdleTTL:    cfg.Cart.IdleTTL,
		Logger:     logg,
		Metrics:    cartMetrics,
	})
	if err != nil {
		return err
	}
	defer manager.Close()

	conn := dbClient.DB()
	userRepo := users.NewRepository(conn)
	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:  userRepo,
		Hasher:    security.NewHasher(cfg.Password),
		JWTConfig: cfg.JWT,
		Admin:     cfg.Admin,
		Logger:    logg,
	})
	if err != nil {
		return err
	}

	productRepo := product.NewRepository(conn)
	productService, err := product.NewService(productRepo)
	if err != nil {
		return err
	}
	categoryService, err := product.NewCategoryService(productRepo)
	if err != nil {
		return err
	}

	ordersService, err := orders.NewService(orders.ServiceParams{
		Repo:      orders.NewRepository(conn),
		Tx:        dbClient,
		Inventory: product.NewInventory(),
	})
	if err != nil {
		return err
	}

	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		Orders:   ordersService,
		Contacts: userRepo,
		Config:   cfg.Checkout,
		Logger:   logg,
		Metrics:  cartMetrics,
	})
	if err != nil {
		return err
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":          cfg.App.Env,
		"addr":         addr,
		"instance":     id,
		"cart_storage": cfg.Cart.Storage,
	})
	logg.Info(logCtx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, routes.Services{
			DB:         dbClient,
			Redis:      redisClient,
			Metrics:    promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
			Auth:       authService,
			Products:   productService,
			Categories: categoryService,
			Orders:     ordersService,
			Checkout:   checkoutService,
			Carts:      manager,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logg.Info(logCtx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func cartSlot(ctx context.Context, cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client) (cart.Slot, error) {
	switch cfg.Cart.Storage {
	case config.CartStorageRedis:
		return cart.NewRedisSlot(redisClient)
	case config.CartStorageSQL:
		slot, err := cart.NewSQLSlot(dbClient.DB())
		if err != nil {
			return nil, err
		}
		purged, err := slot.PurgeExpired(ctx)
		if err != nil {
			logg.Error(ctx, "failed to purge expired carts", err)
		} else if purged > 0 {
			logg.Info(logg.WithField(ctx, "purged", purged), "purged expired carts")
		}
		return slot, nil
	default:
		return cart.NewMemorySlot(), nil
	}
}
