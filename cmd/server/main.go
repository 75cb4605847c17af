package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/damon-houk/fx-rate-cache/internal/application/service"
	"github.com/damon-houk/fx-rate-cache/internal/infrastructure/api"
	"github.com/damon-houk/fx-rate-cache/internal/infrastructure/cache"
	"github.com/damon-houk/fx-rate-cache/internal/infrastructure/config"
	"github.com/damon-houk/fx-rate-cache/internal/infrastructure/currency"
	"github.com/damon-houk/fx-rate-cache/internal/infrastructure/db"
	"github.com/damon-houk/fx-rate-cache/internal/infrastructure/handler"
	"github.com/damon-houk/fx-rate-cache/internal/infrastructure/logger"
	"github.com/damon-houk/fx-rate-cache/internal/infrastructure/metrics"
	"github.com/damon-houk/fx-rate-cache/internal/infrastructure/sample"
	"github.com/dgraph-io/badger/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	configPath := flag.String("config", os.Getenv("FX_CONFIG"), "path to a YAML config file")
	flag.Parse()

	log := logger.NewJSONLogger(os.Stdout, logger.InfoLevel)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("Failed to load configuration", map[string]interface{}{"error": err.Error()})
	}

	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		log.Warn("Unknown log level, using INFO", map[string]interface{}{"level": cfg.Log.Level})
	}
	log = logger.NewJSONLogger(os.Stdout, level)
	logger.SetDefaultLogger(log)

	log.Info("Starting FX rate service", map[string]interface{}{
		"addr":         cfg.HTTPServer.Addr,
		"default_base": cfg.DefaultBase,
		"cache_dir":    cfg.Cache.Dir,
	})

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Setup BadgerDB for the conversion history
	if err := os.MkdirAll(cfg.History.Path, 0755); err != nil {
		log.Fatal("Failed to create history directory", map[string]interface{}{
			"path":  cfg.History.Path,
			"error": err.Error(),
		})
	}

	badgerOpts := badger.DefaultOptions(cfg.History.Path)
	badgerOpts.Logger = nil

	badgerDB, err := badger.Open(badgerOpts)
	if err != nil {
		log.Fatal("Failed to open history database", map[string]interface{}{"error": err.Error()})
	}
	defer func() {
		if err := badgerDB.Close(); err != nil {
			log.Error("Error closing BadgerDB", map[string]interface{}{"error": err.Error()})
		}
	}()

	rateCache := cache.NewRateCache(cfg.Cache.Dir,
		cache.WithTTL(cache.KindCurrent, cfg.Cache.CurrentTTL),
		cache.WithTTL(cache.KindHistorical, cfg.Cache.HistoricalTTL),
		cache.WithLogger(log),
		cache.WithMetrics(m),
	)

	fetcher := api.NewRateAPIClient(api.Config{
		CurrentURL:    cfg.RateAPI.CurrentURL,
		HistoricalURL: cfg.RateAPI.HistoricalURL,
		ProbeURL:      cfg.RateAPI.ProbeURL,
		FetchTimeout:  cfg.RateAPI.FetchTimeout,
		ProbeTimeout:  cfg.RateAPI.ProbeTimeout,
		Retries:       cfg.RateAPI.Retries,
	}, log, m)

	registry := currency.NewRegistry(cfg.Reference.CurrenciesPath, log)
	history := db.NewBadgerConversionHistoryRepository(badgerDB, cfg.History.Limit)

	rateService := service.NewRateService(rateCache, fetcher, sample.NewGenerator(log), log,
		service.WithPause(cfg.RateAPI.PauseEvery, cfg.RateAPI.Pause),
		service.WithMetrics(m),
	)
	conversionService := service.NewConversionService(rateService, history, log, m)

	router := handler.NewRouter(log, reg,
		handler.NewRatesHandler(rateService, registry, cfg.DefaultBase, log),
		handler.NewConversionHandler(conversionService, registry, log),
	)

	server := &http.Server{
		Addr:              cfg.HTTPServer.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("Server listening", map[string]interface{}{"addr": cfg.HTTPServer.Addr})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed", map[string]interface{}{"error": err.Error()})
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Graceful shutdown failed", map[string]interface{}{"error": err.Error()})
	}
	log.Info("Server stopped", nil)
}
