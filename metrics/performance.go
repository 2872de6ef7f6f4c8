package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type PerformanceMetrics struct {
	ResampleTime     *prometheus.HistogramVec
	OracleTime       *prometheus.HistogramVec
	ConsistencyScore *prometheus.HistogramVec
	HTTPRequestTime  *prometheus.HistogramVec
	ImageSizeBytes   *prometheus.HistogramVec
	OutputPixels     *prometheus.HistogramVec
}

func InitializePerformanceMetrics(registry prometheus.Registerer, constLabels prometheus.Labels) *PerformanceMetrics {
	metrics := &PerformanceMetrics{
		ResampleTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "resample_time_seconds",
			Help:        "Custom resample time in seconds",
			ConstLabels: constLabels,
			Buckets:     prometheus.DefBuckets,
		}, []string{"method"}),

		OracleTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "oracle_resample_time_seconds",
			Help:        "Reference library resample time in seconds",
			ConstLabels: constLabels,
			Buckets:     prometheus.DefBuckets,
		}, []string{"oracle", "method"}),

		ConsistencyScore: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "consistency_percent",
			Help:        "Consistency of custom output against a reference at the first reported tolerance",
			ConstLabels: constLabels,
			Buckets:     []float64{50, 75, 90, 95, 99, 99.9, 100},
		}, []string{"oracle", "method"}),

		HTTPRequestTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "http_request_time_seconds",
			Help:        "Upstream fetch time in seconds",
			ConstLabels: constLabels,
			Buckets:     prometheus.DefBuckets,
		}, []string{"hostname"}),

		ImageSizeBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "image_size_bytes",
			Help:        "Image size in bytes",
			ConstLabels: constLabels,
			Buckets:     []float64{1024, 10240, 102400, 1048576, 10485760, 104857600}, // 1KB to 100MB
		}, []string{"format"}),

		OutputPixels: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "output_pixels",
			Help:        "Number of destination pixels produced per resample",
			ConstLabels: constLabels,
			Buckets:     prometheus.ExponentialBuckets(1024, 4, 8),
		}, []string{"method"}),
	}

	registry.MustRegister(
		metrics.ResampleTime,
		metrics.OracleTime,
		metrics.ConsistencyScore,
		metrics.HTTPRequestTime,
		metrics.ImageSizeBytes,
		metrics.OutputPixels,
	)

	return metrics
}

// TimeFunction measures the execution time of a resample
func TimeFunction[T any](fn func() (T, error), method string, metrics *PerformanceMetrics) (T, error) {
	start := time.Now()
	result, err := fn()
	duration := time.Since(start).Seconds()

	if metrics != nil && err == nil {
		metrics.ResampleTime.WithLabelValues(method).Observe(duration)
	}

	return result, err
}

// TimeHTTPRequest measures upstream fetch duration
func TimeHTTPRequest(hostname string, metrics *PerformanceMetrics) func() {
	start := time.Now()
	return func() {
		if metrics != nil {
			metrics.HTTPRequestTime.WithLabelValues(CleanHostname(hostname)).Observe(time.Since(start).Seconds())
		}
	}
}
