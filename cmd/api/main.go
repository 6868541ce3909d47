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

	"github.com/groenvelt/storefront-bff/api/routes"
	"github.com/groenvelt/storefront-bff/internal/accounts"
	"github.com/groenvelt/storefront-bff/internal/b2b"
	"github.com/groenvelt/storefront-bff/internal/cart"
	"github.com/groenvelt/storefront-bff/internal/catalog"
	"github.com/groenvelt/storefront-bff/internal/checkout"
	"github.com/groenvelt/storefront-bff/internal/content"
	"github.com/groenvelt/storefront-bff/internal/delivery"
	"github.com/groenvelt/storefront-bff/internal/holiday"
	"github.com/groenvelt/storefront-bff/internal/search"
	"github.com/groenvelt/storefront-bff/internal/upstream/mollie"
	"github.com/groenvelt/storefront-bff/internal/upstream/woocommerce"
	"github.com/groenvelt/storefront-bff/internal/upstream/wordpress"
	"github.com/groenvelt/storefront-bff/pkg/auth/session"
	"github.com/groenvelt/storefront-bff/pkg/config"
	"github.com/groenvelt/storefront-bff/pkg/db"
	"github.com/groenvelt/storefront-bff/pkg/logger"
	"github.com/groenvelt/storefront-bff/pkg/metrics"
	"github.com/groenvelt/storefront-bff/pkg/migrate"
	"github.com/groenvelt/storefront-bff/pkg/redis"
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
	})

	dbClient, err := db.New(context.Background(), cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	wooClient, err := woocommerce.New(cfg.WooCommerce)
	if err != nil {
		logg.Error(context.Background(), "failed to create woocommerce client", err)
		os.Exit(1)
	}
	wpClient, err := wordpress.New(cfg.WordPress)
	if err != nil {
		logg.Error(context.Background(), "failed to create wordpress client", err)
		os.Exit(1)
	}
	mollieClient, err := mollie.New(cfg.Mollie)
	if err != nil {
		logg.Error(context.Background(), "failed to create mollie client", err)
		os.Exit(1)
	}
	searcher, err := search.New(cfg.Elastic, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create search client", err)
		os.Exit(1)
	}

	holidays, err := holiday.NewProvider(context.Background(), cfg.Holiday, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to load holiday calendar", err)
		os.Exit(1)
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	estimator := delivery.New(holidays, delivery.Options{
		CutoffHour:   cfg.Delivery.CutoffHour,
		CutoffMinute: cfg.Delivery.CutoffMinute,
		CapObserver:  m,
	})

	cartStore := cart.NewStore(redisClient, cfg.Cart)
	syncer := cart.NewSyncer(wooClient, cfg.Cart, logg, m)
	syncer.Start()
	defer syncer.Close()
	cartService := cart.NewService(cartStore, syncer, logg)

	catalogService := catalog.NewService(wooClient, redisClient, estimator, cfg.Delivery, logg)
	contentService := content.NewService(wpClient, redisClient, cfg.Content, logg)
	checkoutService := checkout.NewService(cartService, wooClient, mollieClient, logg)
	accountsService := accounts.NewService(wpClient, wooClient, sessionManager, cfg.JWT, logg)
	b2bService := b2b.NewService(b2b.NewRepository(dbClient.DB()), wooClient, logg)

	router := routes.NewRouter(routes.Deps{
		Config:      cfg,
		Logger:      logg,
		Metrics:     m,
		Sessions:    sessionManager,
		DBPinger:    dbClient,
		RedisClient: redisClient,
		Search:      searcher,
		Holidays:    holidays,
		Catalog:     catalogService,
		Cart:        cartService,
		Checkout:    checkoutService,
		Content:     contentService,
		Accounts:    accountsService,
		B2B:         b2bService,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting storefront api")

	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-runCtx.Done():
		logg.Info(ctx, "shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}
}
