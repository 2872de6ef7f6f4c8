package routes

import (
	"media-resampler/config"
	"media-resampler/metrics"
	"media-resampler/resample"
	"media-resampler/validation"
)

func resampleOptions(config *config.Config) []resample.Option {
	var opts []resample.Option
	if config.Workers > 1 {
		opts = append(opts, resample.WithWorkers(config.Workers))
	}
	if config.ReferenceCubicTaps {
		opts = append(opts, resample.WithReferenceCubicTaps())
	}
	return opts
}

// targetSize resolves the requested geometry against the source extent.
func targetSize(src *resample.Image, params *validation.ImageContext, config *config.Config) (resample.Size, error) {
	var size resample.Size
	if params.Scale > 0 {
		size = resample.ScaledSize(src.Size(), params.Scale)
	} else {
		size = resample.FitSize(src.Size(), params.Width, params.Height)
	}

	if err := validation.ValidateTargetSize(size, config); err != nil {
		return resample.Size{}, err
	}
	return size, nil
}

// resampleImage applies the requested geometry with the custom engine.
func resampleImage(src *resample.Image, params *validation.ImageContext, config *config.Config, perf *metrics.PerformanceMetrics) (*resample.Image, error) {
	size, err := targetSize(src, params, config)
	if err != nil {
		return nil, err
	}

	method := params.Interpolation.String()
	dst, err := metrics.TimeFunction(func() (*resample.Image, error) {
		return resample.Resize(src, size, params.Interpolation, resampleOptions(config)...)
	}, method, perf)
	if err != nil {
		return nil, err
	}

	if perf != nil {
		perf.OutputPixels.WithLabelValues(method).Observe(float64(size.Width * size.Height))
	}
	return dst, nil
}
