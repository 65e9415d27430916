package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/storefront/internal/catalog"
	"github.com/Skotchmaster/storefront/internal/config"
	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/httpserver"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/metrics"
	"github.com/Skotchmaster/storefront/internal/normalize"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/session"
	"github.com/Skotchmaster/storefront/pkg/storeclient"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	decimal.MarshalJSONWithoutQuotes = true

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	gate := session.NewGate(cfg.JWTSecret)
	client := storeclient.NewClient(cfg.StoreAPIURL, cfg.StoreTimeout, gate, m)

	deriver, err := catalog.NewDeriver(cfg.CatalogLocale)
	if err != nil {
		log.Fatalf("catalog locale: %v", err)
	}

	initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	cache, err := repo.Open(initCtx, cfg.CatalogCachePath)
	if err != nil {
		cancel()
		log.Fatalf("catalog cache init error: %v", err)
	}

	var publisher events.Publisher = events.Nop{}
	var producer *events.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer, err = events.NewProducer(cfg.KafkaBrokers)
		if err != nil {
			cancel()
			log.Fatalf("kafka producer init error: %v", err)
		}
		publisher = producer
	}
	emitter := events.NewEmitter(publisher, cfg.EventsTopic, logger)

	catalogService := &catalog.CatalogService{
		Source:  client,
		Cache:   cache,
		Deriver: deriver,
		Metrics: m,
		Log:     logger,
	}
	wishlistService := &service.WishlistService{
		Store:      client,
		Session:    gate,
		Normalizer: normalize.New(cfg.WishlistEnvelopeFields...),
		Events:     emitter,
		Metrics:    m,
		Log:        logger,
	}
	cartService := &service.CartService{
		Store:      client,
		Session:    gate,
		Normalizer: normalize.New(cfg.CartEnvelopeFields...),
		Events:     emitter,
		Metrics:    m,
		Log:        logger,
	}
	gate.Subscribe(wishlistService.OnSessionChange)
	gate.Subscribe(cartService.OnSessionChange)

	if err := catalogService.LoadCached(initCtx); err != nil {
		logger.Warn("catalog_cache_load_failed", "error", err)
	}
	if err := catalogService.Refresh(initCtx); err != nil {
		logger.Warn("catalog_initial_refresh_failed", "error", err)
	}
	cancel()

	if cfg.StorefrontToken != "" {
		if err := gate.SignIn(cfg.StorefrontToken); err != nil {
			logger.Warn("startup_sign_in_failed", "error", err)
		}
	}

	e := echo.New()
	e.HideBanner = true

	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second

	e.Use(middleware.CORS())

	httpserver.Register(e, &httpserver.Deps{
		Session:  &httpserver.SessionHTTP{Gate: gate},
		Catalog:  &httpserver.CatalogHTTP{Svc: catalogService, Wishlist: wishlistService, Cart: cartService},
		Wishlist: &httpserver.WishlistHTTP{Svc: wishlistService},
		Cart:     &httpserver.CartHTTP{Svc: cartService},
		Log:      logger,
		Metrics:  m,
		Gatherer: reg,
		Ready:    func() bool { return !catalogService.FetchedAt().IsZero() },
	})

	addr := ":" + strconv.Itoa(cfg.ServerPort)
	go func() {
		logger.Info("starting storefront", "addr", addr, "store", cfg.StoreAPIURL)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("echo start: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("echo_shutdown_failed", "error", err)
	}
	wishlistService.Wait()
	cartService.Wait()

	if producer != nil {
		if err := producer.Close(); err != nil {
			logger.Error("kafka_close_failed", "error", err)
		}
	}
	if err := cache.Close(); err != nil {
		logger.Error("cache_close_failed", "error", err)
	}

	logger.Info("server stopped")
}
