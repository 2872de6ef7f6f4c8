package routes

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"media-resampler/client"
	"media-resampler/codec"
	"media-resampler/config"
	"media-resampler/metrics"
	mimetypes "media-resampler/mime"
	"media-resampler/resample"
	"media-resampler/validation"
)

// sourceError carries the status a handler should answer with.
type sourceError struct {
	status int
	msg    string
	err    error
}

func (e *sourceError) Error() string {
	if e.err != nil {
		return e.msg + ": " + e.err.Error()
	}
	return e.msg
}

func (e *sourceError) Unwrap() error { return e.err }

// resolveContentType parses the declared type and sniffs the payload when
// the declaration is missing or generic.
func resolveContentType(declared string, body []byte) (string, error) {
	if declared == "" || declared == "application/octet-stream" {
		declared = http.DetectContentType(body)
	}

	parsed, _, err := mime.ParseMediaType(declared)
	if err != nil {
		return "", err
	}
	return parsed, nil
}

func maxBytes(config *config.Config) int64 {
	if config.MaxUploadSizeMB <= 0 {
		return 0
	}
	return int64(config.MaxUploadSizeMB) * 1024 * 1024
}

// fetchSource downloads the source image named by params.
func fetchSource(c *fiber.Ctx, config *config.Config, perf *metrics.PerformanceMetrics, params *validation.ImageContext) ([]byte, string, error) {
	done := metrics.TimeHTTPRequest(params.Hostname, perf)
	src, err := client.Fetch(c.UserContext(), client.GetHTTPClient(), params.Url, maxBytes(config))
	done()
	if err != nil {
		return nil, "", &sourceError{status: fiber.StatusBadGateway, msg: "failed to fetch image", err: err}
	}

	contentType, err := resolveContentType(src.ContentType, src.Body)
	if err != nil {
		return nil, "", &sourceError{status: fiber.StatusInternalServerError, msg: "failed to parse content type", err: err}
	}

	if !mimetypes.IsSourceMime(contentType) {
		return nil, "", &sourceError{status: fiber.StatusForbidden, msg: fmt.Sprintf("content type '%s' is not allowed", contentType)}
	}

	if perf != nil {
		perf.ImageSizeBytes.WithLabelValues(contentType).Observe(float64(len(src.Body)))
	}

	return src.Body, contentType, nil
}

// readFormFile reads an uploaded multipart file and resolves its type.
func readFormFile(c *fiber.Ctx, config *config.Config, field string) ([]byte, string, error) {
	header, err := c.FormFile(field)
	if err != nil {
		return nil, "", &sourceError{status: fiber.StatusBadRequest, msg: fmt.Sprintf("failed to get %s file", field), err: err}
	}

	if err := validation.ValidateFileSize(header.Size, config.MaxUploadSizeMB); err != nil {
		return nil, "", &sourceError{status: fiber.StatusRequestEntityTooLarge, msg: "file too large", err: err}
	}

	file, err := header.Open()
	if err != nil {
		return nil, "", &sourceError{status: fiber.StatusBadRequest, msg: fmt.Sprintf("failed to open %s file", field), err: err}
	}
	defer file.Close()

	body, err := io.ReadAll(file)
	if err != nil {
		return nil, "", &sourceError{status: fiber.StatusInternalServerError, msg: fmt.Sprintf("failed to read %s file", field), err: err}
	}

	contentType, err := resolveContentType(header.Header.Get("Content-Type"), body)
	if err != nil {
		return nil, "", &sourceError{status: fiber.StatusInternalServerError, msg: "failed to parse content type", err: err}
	}

	if !mimetypes.IsSourceMime(contentType) {
		return nil, "", &sourceError{status: fiber.StatusForbidden, msg: fmt.Sprintf("content type '%s' is not allowed", contentType)}
	}

	return body, contentType, nil
}

// decodeSource refuses oversized sources from their header before decoding.
func decodeSource(body []byte, contentType string, config *config.Config) (*resample.Image, error) {
	img, err := codec.DecodeBytesLimit(body, contentType, config.MaxSourceDimension)
	if errors.Is(err, codec.ErrSourceTooLarge) {
		return nil, &sourceError{status: fiber.StatusRequestEntityTooLarge, msg: "source image too large", err: err}
	}
	if err != nil {
		return nil, &sourceError{status: fiber.StatusInternalServerError, msg: "failed to read image", err: err}
	}
	return img, nil
}

// respondSourceError answers with the status carried by a sourceError.
func respondSourceError(c *fiber.Ctx, err error) error {
	if se, ok := err.(*sourceError); ok {
		return c.Status(se.status).SendString(se.msg)
	}
	return c.Status(fiber.StatusInternalServerError).SendString(err.Error())
}
