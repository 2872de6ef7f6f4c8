package routes

import (
	"strconv"
	"strings"

	"media-resampler/validation"
)

type CacheValue struct {
	Body        []byte
	ContentType string
}

// cacheKey identifies a resample result by source and every parameter that
// changes the produced bytes.
func cacheKey(url string, params *validation.ImageContext) string {
	var builder strings.Builder
	builder.WriteString(url)
	builder.WriteString(";quality=")
	builder.WriteString(strconv.Itoa(params.Quality))
	builder.WriteString(";width=")
	builder.WriteString(strconv.Itoa(params.Width))
	builder.WriteString(";height=")
	builder.WriteString(strconv.Itoa(params.Height))
	builder.WriteString(";scale=")
	builder.WriteString(strconv.FormatFloat(params.Scale, 'f', -1, 64))
	builder.WriteString(";interpolation=")
	builder.WriteString(params.Interpolation.String())
	builder.WriteString(";webp=")
	builder.WriteString(strconv.FormatBool(params.Webp))
	return builder.String()
}
