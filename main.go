package main

import (
	"log"

	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/healthcheck"
	"go.uber.org/zap"

	"github.com/caarlos0/env/v11"
	"github.com/gofiber/fiber/v2"

	"media-resampler/config"
	"media-resampler/metrics"
	fiberprometheus "media-resampler/middlewares/prometheus"
	"media-resampler/routes"
	"media-resampler/storage"

	"github.com/dgraph-io/ristretto/v2"
)

var logger *zap.Logger

func main() {
	logger, _ = zap.NewProduction()
	defer func(logger *zap.Logger) {
		err := logger.Sync()
		if err != nil {
			log.Fatal(err)
		}
	}(logger)

	config, err := env.ParseAs[config.Config]()
	if err != nil {
		logger.Fatal(err.Error())
	}

	if config.Metrics == nil {
		metrics := true
		config.Metrics = &metrics
	}

	cacheConfig := &ristretto.Config[string, routes.CacheValue]{
		NumCounters: 1e7,     // number of keys to track frequency of (10M).
		MaxCost:     1 << 30, // maximum cost of cache (1GB).
		BufferItems: 64,      // number of keys per Get buffer.
	}

	if config.CacheBufferItems > 0 {
		cacheConfig.BufferItems = config.CacheBufferItems
	}

	if config.CacheMaxCost > 0 {
		cacheConfig.MaxCost = config.CacheMaxCost
	}

	if config.CacheNumCounters > 0 {
		cacheConfig.NumCounters = config.CacheNumCounters
	}

	if config.CacheTTL == 0 {
		config.CacheTTL = 1800 // 30 minutes
	}

	cache, err := ristretto.NewCache(cacheConfig)
	if err != nil {
		logger.Fatal(err.Error())
	}

	limiterStorage, err := storage.NewRistrettoStorage(0)
	if err != nil {
		logger.Fatal(err.Error())
	}

	s3cache, err := routes.NewS3Cache(&config)
	if err != nil {
		logger.Fatal("failed to initialize S3 cache", zap.Error(err))
	}
	if s3cache != nil {
		logger.Info("S3 cache enabled", zap.String("endpoint", config.S3Endpoint), zap.String("bucket", config.S3Bucket), zap.String("prefix", config.S3Prefix))
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		Prefork:               config.Prefork,
		BodyLimit:             max(config.MaxUploadSizeMB, 4) * 2 * 1024 * 1024,
	})

	prometheusModule := fiberprometheus.New("media-resampler")
	prometheusModule.RegisterAt(app, "/metrics")

	prometheusRegistry := prometheusModule.GetRegistry()
	counters := metrics.InitializeMetrics(prometheusRegistry, prometheusModule.GetConstLabels())
	perf := metrics.InitializePerformanceMetrics(prometheusRegistry, prometheusModule.GetConstLabels())

	if *config.Metrics {
		app.Use(prometheusModule.Middleware)
	}

	app.Use(healthcheck.New())
	app.Use(compress.New())

	routes.RegisterImageRoutes(logger, cache, &config, app, counters, perf, s3cache)
	routes.RegisterCompareRoutes(logger, &config, app, counters, perf, limiterStorage)

	address := config.Address
	if address == "" {
		address = ":3000"
	}

	logger.Info("server starting", zap.String("address", address), zap.String("default_interpolation", config.DefaultInterpolation), zap.Int("workers", config.Workers))

	log.Fatal(app.Listen(address))
}
