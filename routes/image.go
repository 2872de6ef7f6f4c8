package routes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"media-resampler/codec"
	"media-resampler/config"
	"media-resampler/metrics"
	"media-resampler/pool"
	"media-resampler/resample"
	"media-resampler/validation"
)

const (
	cachePlaceResponseHandler = "response-handler"
	cachePlaceS3CacheLocation = "s3cache-location"
	cachePlaceS3Cache         = "s3cache"
)

// RegisterImageRoutes sets up image resampling routes
func RegisterImageRoutes(logger *zap.Logger, cache *ristretto.Cache[string, CacheValue], config *config.Config, app fiber.Router, counters *metrics.Metrics, perf *metrics.PerformanceMetrics, s3cache *S3Cache) {
	// Path-based route: /images/q:50/w:500/h:300/i:cubic/webp/{base64-encoded-url}
	app.Get("/images/*", handleImageRequest(logger, cache, config, counters, perf, s3cache))

	// Image upload route with path parameters
	app.Post("/images/*", handleImageUpload(logger, cache, config, counters, perf, s3cache))
}

//#region handleImageRequest

// handleImageRequest processes image requests with path parameters
func handleImageRequest(logger *zap.Logger, cache *ristretto.Cache[string, CacheValue], config *config.Config, counters *metrics.Metrics, perf *metrics.PerformanceMetrics, s3cache *S3Cache) fiber.Handler {
	return func(c *fiber.Ctx) error {
		pathParams := c.Params("*")
		logger.Info("image request received", zap.String("pathParams", pathParams), zap.String("method", c.Method()), zap.String("remote_ip", c.IP()))

		ok, status, params, err := validation.ProcessImageContextFromPath(logger, pathParams, config)
		if !ok {
			logger.Error("failed to process image context from path", zap.String("pathParams", pathParams), zap.Int("status", status), zap.Error(err))
			counters.Rejected.WithLabelValues("image", "validation").Inc()
			return c.Status(status).SendString(err.Error())
		}

		logger.Debug("processed image parameters", zap.Stringer("params", params), zap.String("url", params.Url), zap.String("hostname", params.Hostname))

		return processImageResponse(c, logger, cache, config, counters, perf, params, s3cache)
	}
}

//#endregion

//#region processImageResponse

// processImageResponse serves from the caches or fetches the source
func processImageResponse(c *fiber.Ctx, logger *zap.Logger, cache *ristretto.Cache[string, CacheValue], config *config.Config, counters *metrics.Metrics, perf *metrics.PerformanceMetrics, params *validation.ImageContext, s3cache *S3Cache) error {
	key := cacheKey(params.Url, params)
	if cacheValue, ok := cache.Get(key); ok {
		counters.SuccessfullyServed.WithLabelValues("image", metrics.CleanHostname(params.Hostname), metrics.HashURL(params.Url)).Inc()
		counters.ServedCached.WithLabelValues("image", metrics.CleanHostname(params.Hostname), metrics.HashURL(params.Url)).Inc()

		c.Set("Content-Type", cacheValue.ContentType)
		c.Set("X-Cache-Place", cachePlaceResponseHandler)
		return c.Send(cacheValue.Body)
	}

	if s3cache != nil && s3cache.Enabled {
		if params.CustomObjectKey != "" {
			if s3val, err := s3cache.GetAtLocation(c.UserContext(), params.CustomObjectKey); err == nil && s3val != nil {
				counters.SuccessfullyServed.WithLabelValues("image", metrics.CleanHostname(params.Hostname), metrics.HashURL(params.Url)).Inc()
				counters.ServedCached.WithLabelValues("image", metrics.CleanHostname(params.Hostname), metrics.HashURL(params.Url)).Inc()
				c.Set("Content-Type", s3val.ContentType)
				c.Set("X-Cache-Place", cachePlaceS3CacheLocation)
				logger.Debug("image served from S3 cache location", zap.String("s3_location", params.CustomObjectKey), zap.String("content_type", s3val.ContentType), zap.String("url", params.Url))
				return c.Send(s3val.Body)
			}
		}

		if s3val, err := s3cache.Get(c.UserContext(), key); err == nil && s3val != nil {
			counters.SuccessfullyServed.WithLabelValues("image", metrics.CleanHostname(params.Hostname), metrics.HashURL(params.Url)).Inc()
			counters.ServedCached.WithLabelValues("image", metrics.CleanHostname(params.Hostname), metrics.HashURL(params.Url)).Inc()
			c.Set("Content-Type", s3val.ContentType)
			c.Set("X-Cache-Place", cachePlaceS3Cache)
			// backfill in-memory cache
			cache.SetWithTTL(key, *s3val, int64(len(s3val.Body)), time.Duration(config.CacheTTL)*time.Second)
			return c.Send(s3val.Body)
		} else if err != nil {
			logger.Warn("failed to read S3 cache", zap.Error(err), zap.String("cache_key", key))
		}
	}

	if params.Url == "" {
		return c.Status(fiber.StatusNotFound).SendString("image not found at location")
	}

	body, contentType, err := fetchSource(c, config, perf, params)
	if err != nil {
		logger.Error("failed to fetch source image", zap.Error(err), zap.String("url", params.Url), zap.String("hostname", params.Hostname))
		counters.Rejected.WithLabelValues("image", "source").Inc()
		return respondSourceError(c, err)
	}

	return processImageData(c, logger, cache, config, counters, perf, params, body, contentType, s3cache)
}

//#endregion

//#region processImageData

// processImageData resamples and encodes a source payload
func processImageData(c *fiber.Ctx, logger *zap.Logger, cache *ristretto.Cache[string, CacheValue], config *config.Config, counters *metrics.Metrics, perf *metrics.PerformanceMetrics, params *validation.ImageContext, imageData []byte, contentType string, s3cache *S3Cache) error {
	key := cacheKey(params.Url, params)
	outputType := codec.OutputType(contentType, params.Webp)

	var body []byte
	if params.Quality == 100 && !params.Resizes() && outputType == contentType {
		// Early return for unmodified images
		body = imageData
	} else {
		img, err := decodeSource(imageData, contentType, config)
		if err != nil {
			logger.Error("failed to read image", zap.Error(err), zap.String("content_type", contentType), zap.String("url", params.Url), zap.Int("image_size", len(imageData)))
			counters.Rejected.WithLabelValues("image", "decode").Inc()
			return respondSourceError(c, err)
		}

		if params.Resizes() {
			img, err = resampleImage(img, params, config, perf)
			if err != nil {
				logger.Error("failed to resample image", zap.Error(err), zap.Int("width", params.Width), zap.Int("height", params.Height), zap.Float64("scale", params.Scale), zap.Stringer("interpolation", params.Interpolation), zap.String("url", params.Url))
				if errors.Is(err, resample.ErrInvalidArgument) {
					return c.Status(fiber.StatusBadRequest).SendString(err.Error())
				}
				return c.Status(fiber.StatusInternalServerError).SendString("failed to resample image")
			}
		}

		buf := pool.GetBuffer()
		defer pool.PutBuffer(buf)

		if err := codec.Encode(buf, img, outputType, params.Quality); err != nil {
			logger.Error("failed to encode image", zap.Error(err), zap.String("content_type", outputType), zap.Int("quality", params.Quality), zap.String("url", params.Url))
			return c.Status(fiber.StatusInternalServerError).SendString("failed to encode image")
		}
		body = pool.DetachBytes(buf)
	}

	c.Set("Content-Type", outputType)
	c.Set("Cache-Control", fmt.Sprintf("public, max-age=%d", config.HTTPCacheTTL))

	value := CacheValue{Body: body, ContentType: outputType}
	cache.SetWithTTL(key, value, int64(len(body)), time.Duration(config.CacheTTL)*time.Second)

	// store in S3 asynchronously
	if s3cache != nil && s3cache.Enabled {
		go storeInS3(logger, s3cache, key, params, value)
	}

	logger.Info("image served successfully", zap.String("content_type", outputType), zap.String("origin", params.Hostname), zap.String("url", params.Url), zap.String("cache_key", key))
	counters.SuccessfullyServed.WithLabelValues("image", metrics.CleanHostname(params.Hostname), metrics.HashURL(params.Url)).Inc()

	return c.Send(body)
}

func storeInS3(logger *zap.Logger, s3cache *S3Cache, key string, params *validation.ImageContext, value CacheValue) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if params.CustomObjectKey != "" {
		if err := s3cache.PutAtLocation(ctx, params.CustomObjectKey, value.Body, value.ContentType); err != nil {
			logger.Error("failed to store image in S3 cache at location", zap.Error(err), zap.String("s3_location", params.CustomObjectKey), zap.String("url", params.Url))
		}
		return
	}

	if err := s3cache.Put(ctx, key, value.Body, value.ContentType); err != nil {
		logger.Error("failed to store image in S3 cache", zap.Error(err), zap.String("cache_key", key), zap.String("url", params.Url))
	}
}

//#endregion

//#region handleImageUpload

// handleImageUpload processes image upload requests with path parameters
// Requires: token (in path parameters), or location and signature for S3 upload
func handleImageUpload(logger *zap.Logger, cache *ristretto.Cache[string, CacheValue], config *config.Config, counters *metrics.Metrics, perf *metrics.PerformanceMetrics, s3cache *S3Cache) fiber.Handler {
	return func(c *fiber.Ctx) error {
		logger.Info("image upload request received", zap.String("remote_ip", c.IP()))

		pathParams := c.Params("*")
		ok, status, params, err := validation.ProcessImageUploadFromPath(logger, pathParams, config)
		if !ok {
			counters.Rejected.WithLabelValues("upload", "validation").Inc()
			return c.Status(status).SendString(err.Error())
		}

		// Uploads to an explicit location need the S3 cache
		if params.CustomObjectKey != "" && (s3cache == nil || !s3cache.Enabled || s3cache.Client == nil) {
			logger.Error("S3 storage is not enabled or configured")
			return c.Status(fiber.StatusServiceUnavailable).SendString("image upload service unavailable")
		}

		body, contentType, err := readFormFile(c, config, "image")
		if err != nil {
			logger.Error("failed to read uploaded image", zap.Error(err))
			counters.Rejected.WithLabelValues("upload", "source").Inc()
			return respondSourceError(c, err)
		}

		// uploads are not addressable by URL, key them by content
		params.Url = "upload:" + metrics.HashURL(string(body))

		return processImageData(c, logger, cache, config, counters, perf, params, body, contentType, s3cache)
	}
}

//#endregion
