package routes

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"go.uber.org/zap"

	"media-resampler/config"
	"media-resampler/metrics"
	"media-resampler/reference"
	"media-resampler/resample"
	"media-resampler/validation"
)

const maxReferenceIterations = 10

type CompareResponse struct {
	Width       int                        `json:"width"`
	Height      int                        `json:"height"`
	Consistency []reference.ToleranceScore `json:"consistency"`
}

// RegisterCompareRoutes sets up the consistency endpoints. Both are rate
// limited per client since they decode and score whole images.
func RegisterCompareRoutes(logger *zap.Logger, config *config.Config, app fiber.Router, counters *metrics.Metrics, perf *metrics.PerformanceMetrics, storage fiber.Storage) {
	limit := limiter.New(limiter.Config{
		Max:        max(config.CompareRateLimit, 1),
		Expiration: time.Minute,
		Storage:    storage,
		LimitReached: func(c *fiber.Ctx) error {
			counters.Rejected.WithLabelValues("compare", "rate_limit").Inc()
			return c.Status(fiber.StatusTooManyRequests).SendString("too many requests")
		},
	})

	app.Post("/compare", limit, handleCompare(logger, config, counters))
	app.Get("/reference/*", limit, handleReference(logger, config, counters, perf))
}

// queryTolerances collects every tolerance query value. Each value may
// itself be a comma separated list. No values means exact match only.
func queryTolerances(c *fiber.Ctx) ([]uint16, error) {
	var tolerances []uint16
	for _, raw := range c.Context().QueryArgs().PeekMulti("tolerance") {
		tols, err := validation.ParseTolerances(string(raw))
		if err != nil {
			return nil, err
		}
		tolerances = append(tolerances, tols...)
	}
	if len(tolerances) == 0 {
		tolerances = []uint16{0}
	}
	return tolerances, nil
}

func decodeFormImage(c *fiber.Ctx, config *config.Config, field string) (*resample.Image, error) {
	body, contentType, err := readFormFile(c, config, field)
	if err != nil {
		return nil, err
	}

	return decodeSource(body, contentType, config)
}

//#region handleCompare

// handleCompare scores two uploaded images against each other
func handleCompare(logger *zap.Logger, config *config.Config, counters *metrics.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tolerances, err := queryTolerances(c)
		if err != nil {
			counters.Rejected.WithLabelValues("compare", "validation").Inc()
			return c.Status(fiber.StatusBadRequest).SendString(err.Error())
		}

		a, err := decodeFormImage(c, config, "a")
		if err != nil {
			logger.Error("failed to read first image", zap.Error(err))
			counters.Rejected.WithLabelValues("compare", "source").Inc()
			return respondSourceError(c, err)
		}

		b, err := decodeFormImage(c, config, "b")
		if err != nil {
			logger.Error("failed to read second image", zap.Error(err))
			counters.Rejected.WithLabelValues("compare", "source").Inc()
			return respondSourceError(c, err)
		}

		scores, err := resample.ConsistencySweep(a, b, tolerances)
		if err != nil {
			if errors.Is(err, resample.ErrShapeMismatch) {
				counters.Rejected.WithLabelValues("compare", "shape").Inc()
				return c.Status(fiber.StatusUnprocessableEntity).SendString(err.Error())
			}
			logger.Error("failed to compare images", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).SendString("failed to compare images")
		}

		response := CompareResponse{Width: a.W, Height: a.H}
		for i, tol := range tolerances {
			response.Consistency = append(response.Consistency, reference.ToleranceScore{Tolerance: tol, Percent: scores[i]})
		}

		logger.Info("images compared", zap.Int("width", a.W), zap.Int("height", a.H), zap.Float64("consistency", scores[0]))
		counters.SuccessfullyServed.WithLabelValues("compare", "", "upload").Inc()

		return c.JSON(response)
	}
}

//#endregion

//#region handleReference

// handleReference resizes a fetched image with the custom engine and every
// oracle and reports how closely they agree
func handleReference(logger *zap.Logger, config *config.Config, counters *metrics.Metrics, perf *metrics.PerformanceMetrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		pathParams := c.Params("*")
		ok, status, params, err := validation.ProcessImageContextFromPath(logger, pathParams, config)
		if !ok {
			counters.Rejected.WithLabelValues("reference", "validation").Inc()
			return c.Status(status).SendString(err.Error())
		}
		if params.Url == "" {
			return c.Status(fiber.StatusBadRequest).SendString("url is required")
		}

		iterations := min(max(c.QueryInt("iterations", 1), 1), maxReferenceIterations)

		body, contentType, err := fetchSource(c, config, perf, params)
		if err != nil {
			logger.Error("failed to fetch source image", zap.Error(err), zap.String("url", params.Url))
			counters.Rejected.WithLabelValues("reference", "source").Inc()
			return respondSourceError(c, err)
		}

		src, err := decodeSource(body, contentType, config)
		if err != nil {
			logger.Error("failed to read image", zap.Error(err), zap.String("content_type", contentType), zap.String("url", params.Url))
			return respondSourceError(c, err)
		}

		size, err := targetSize(src, params, config)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).SendString(err.Error())
		}

		report, err := reference.Compare(src, size, params.Interpolation, params.Tolerances, iterations, reference.Oracles(), resampleOptions(config)...)
		if err != nil {
			logger.Error("failed to build reference report", zap.Error(err), zap.Stringer("interpolation", params.Interpolation), zap.String("url", params.Url))
			if errors.Is(err, resample.ErrInvalidArgument) {
				return c.Status(fiber.StatusBadRequest).SendString(err.Error())
			}
			return c.Status(fiber.StatusInternalServerError).SendString("failed to build reference report")
		}

		observeReport(report, perf)

		logger.Info("reference report served", zap.String("url", params.Url), zap.String("method", report.Method), zap.Int("width", report.Width), zap.Int("height", report.Height))
		counters.SuccessfullyServed.WithLabelValues("reference", metrics.CleanHostname(params.Hostname), metrics.HashURL(params.Url)).Inc()

		return c.JSON(report)
	}
}

func observeReport(report *reference.Report, perf *metrics.PerformanceMetrics) {
	if perf == nil {
		return
	}

	perf.ResampleTime.WithLabelValues(report.Method).Observe(report.CustomDuration.Seconds() / float64(report.Iterations))
	for _, oracle := range report.Oracles {
		perf.OracleTime.WithLabelValues(oracle.Name, report.Method).Observe(oracle.Duration.Seconds() / float64(report.Iterations))
		if len(oracle.Consistency) > 0 {
			perf.ConsistencyScore.WithLabelValues(oracle.Name, report.Method).Observe(oracle.Consistency[0].Percent)
		}
	}
}

//#endregion
