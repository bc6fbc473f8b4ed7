package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/southsidewear/storefront/internal/catalog"
	"github.com/southsidewear/storefront/internal/config"
	"github.com/southsidewear/storefront/internal/consumer"
	"github.com/southsidewear/storefront/internal/domain"
	h "github.com/southsidewear/storefront/internal/http"
	"github.com/southsidewear/storefront/internal/mercadopago"
	"github.com/southsidewear/storefront/internal/notify"
	"github.com/southsidewear/storefront/internal/repository"
	"github.com/southsidewear/storefront/internal/service"
	"github.com/southsidewear/storefront/internal/session"
	"github.com/southsidewear/storefront/internal/storage"
	"github.com/southsidewear/storefront/internal/webhook"
	"github.com/southsidewear/storefront/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	log := logger.New(os.Stdout, cfg.LogLevel)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("storefront stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx := context.Background()

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Warn("unknown timezone, using UTC", "timezone", cfg.Timezone, "error", err)
		loc = time.UTC
	}

	// Product catalog lives in SQLite regardless of the order store.
	if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
		return err
	}
	sqliteDB, err := repository.OpenSQLite(cfg.SQLitePath)
	if err != nil {
		return err
	}
	defer sqliteDB.Close()

	products := repository.NewProductRepository(sqliteDB)
	if err := products.RunMigrations(); err != nil {
		return err
	}
	if cfg.CatalogSeed != "" {
		seed, err := catalog.LoadSeed(cfg.CatalogSeed)
		if err != nil {
			return err
		}
		if err := products.UpsertProducts(ctx, seed); err != nil {
			return err
		}
		log.Info("catalog seeded", "file", cfg.CatalogSeed, "products", len(seed))
	}
	productCatalog := catalog.New(products)

	orders, err := openOrderStore(ctx, cfg, sqliteDB)
	if err != nil {
		return err
	}
	defer orders.Close()

	var sessionStorage storage.Storage
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return err
		}
		redisStorage := storage.NewRedisStorage(rdb, cfg.CartTTL)
		defer redisStorage.Close()
		sessionStorage = redisStorage
		log.Info("cart storage: redis", "addr", cfg.RedisAddr)
	} else {
		sessionStorage = storage.NewMemoryStorage()
		log.Info("cart storage: memory")
	}

	mp := mercadopago.NewClient(cfg.MPBaseURL, cfg.MPAccessToken, log)

	orderService := service.NewOrderService(orders, mp, service.Callbacks{
		NotificationURL: cfg.NotificationURL(),
		BackURLs: domain.BackURLs{
			Success: cfg.BackURL("/gracias"),
			Failure: cfg.BackURL("/error"),
			Pending: cfg.BackURL("/pending"),
		},
	}, log)

	sessions := session.NewManager(sessionStorage, productCatalog, orderService, log, cfg.SessionIdle)
	defer sessions.Close()

	notifiers := notify.Multi{}
	if cfg.EmailAPIKey != "" {
		notifiers = append(notifiers, notify.NewEmailNotifier(cfg.EmailAPIURL, cfg.EmailAPIKey, cfg.EmailFrom, cfg.EmailTo))
	}
	if len(cfg.KafkaBrokers) > 0 {
		k := notify.NewKafkaNotifier(cfg.KafkaTopic, cfg.KafkaBrokers...)
		defer k.Close()
		notifiers = append(notifiers, k)

		clearer := consumer.NewConsumer(sessions, log, cfg.KafkaTopic, cfg.KafkaBrokers...)
		defer clearer.Close()
		consumerCtx, stopConsumer := context.WithCancel(ctx)
		defer stopConsumer()
		go clearer.Run(consumerCtx)
	} else {
		notifiers = append(notifiers, consumer.NewNotifier(sessions))
	}
	dispatcher := notify.NewDispatcher(notifiers, cfg.NotifyTimeout, log)

	processor := webhook.NewProcessor(mp, orders, notify.NewOrderLog(cfg.OrderLogPath), dispatcher, log, func() time.Time {
		return time.Now().In(loc)
	})

	router := h.NewRouter(h.RouterConfig{
		AllowedOrigins: cfg.AllowedOrigins,
		RequestTimeout: cfg.RequestTimeout,
		SecureCookie:   strings.HasPrefix(cfg.PublicURL, "https://"),
		WebhookLimiter: h.NewRateLimiter(cfg.WebhookRateLimit, cfg.WebhookBurst),
		Logger:         log,
	}, h.Handlers{
		Cart:     h.NewCartHandler(sessions, productCatalog, log),
		Checkout: h.NewCheckoutHandler(sessions, log),
		Payment:  h.NewPaymentHandler(orderService, log),
		Webhook:  h.NewWebhookHandler(processor, cfg.MPWebhookSecret, cfg.MaxRequestBodySize, log),
		Product:  h.NewProductHandler(productCatalog, log),
	})

	srv := &http.Server{
		Addr:        ":" + cfg.HTTPPort,
		Handler:     otelhttp.NewHandler(router, "storefront"),
		ReadTimeout: 10 * time.Second,
		// no WriteTimeout: the cart event stream is long-lived and the
		// other routes are bounded by the request timeout middleware
		IdleTimeout: 60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("storefront starting", "port", cfg.HTTPPort, "store", cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serverErr:
		return err
	}

	log.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}
	if err := dispatcher.Wait(shutdownCtx); err != nil {
		log.Warn("pending notifications abandoned", "error", err)
	}

	log.Info("server exited")
	return nil
}

// openOrderStore opens the pending-order store named by STORE_DRIVER and
// applies its migrations.
func openOrderStore(ctx context.Context, cfg *config.Config, sqliteDB *sql.DB) (repository.PendingOrderRepository, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		repo, err := repository.NewPostgresRepository(&repository.Credentials{
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			DBName:   cfg.Postgres.DBName,
			SSLMode:  cfg.Postgres.SSLMode,
		})
		if err != nil {
			return nil, err
		}
		if err := repo.RunMigrations(); err != nil {
			repo.Close()
			return nil, err
		}
		return repo, nil

	case config.DriverMongo:
		db, err := repository.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, err
		}
		repo := repository.NewMongoRepository(db)
		if err := repo.CreateIndexes(ctx); err != nil {
			repo.Close()
			return nil, err
		}
		return repo, nil

	default:
		repo := repository.NewSQLiteRepository(sqliteDB)
		if err := repo.RunMigrations(); err != nil {
			return nil, err
		}
		return repo, nil
	}
}
