package validation

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"media-resampler/config"
	"media-resampler/pool"
	"media-resampler/resample"
)

const maxScale = 4

type ImageContext struct {
	Url string

	Quality int

	Width  int
	Height int

	Scale         float64
	Interpolation resample.Method

	Webp bool

	// Tolerances requested for consistency reports
	Tolerances []uint16

	Hostname string

	// Optional explicit S3 object key provided by request (requires signature)
	CustomObjectKey string
}

func (c *ImageContext) String() string {
	return fmt.Sprintf("quality=%d;width=%d;height=%d;scale=%g;interpolation=%s;webp=%t;tolerances=%v", c.Quality, c.Width, c.Height, c.Scale, c.Interpolation, c.Webp, c.Tolerances)
}

// Resizes reports whether the request asks for any geometry change.
func (c *ImageContext) Resizes() bool {
	return c.Width > 0 || c.Height > 0 || c.Scale > 0
}

// PathParams holds the parsed parameters from the URL path
type PathParams struct {
	Quality       int
	Width         int
	Height        int
	Scale         float64
	Interpolation resample.Method
	Webp          bool
	Tolerances    []uint16
	Signature     string
	Token         string
	EncodedURL    string
	Location      string
}

// ParsePathParams extracts parameters from the URL path
// Expected format: /images/q:50/w:500/h:300/s:0.8/i:cubic/webp/sig:abc123/{base64-url}
// Or with location: /images/loc:base64location/q:50/webp/sig:abc123
// Malformed values are ignored and keep their defaults.
func ParsePathParams(pathParams string, defaultInterpolation resample.Method) (*PathParams, error) {
	params := &PathParams{
		Quality:       100,
		Interpolation: defaultInterpolation,
	}

	trimmed := strings.Trim(pathParams, "/")
	if trimmed == "" {
		return nil, fmt.Errorf("no path parameters found")
	}
	parts := strings.Split(trimmed, "/")

	// The last part is the encoded URL if it doesn't look like a parameter
	// A parameter either contains ":" or is exactly "webp"
	processParts := parts
	if lastPart := parts[len(parts)-1]; !strings.Contains(lastPart, ":") && lastPart != "webp" {
		params.EncodedURL = lastPart
		processParts = parts[:len(parts)-1]
	}

	for _, part := range processParts {
		if part == "webp" {
			params.Webp = true
			continue
		}

		key, value, found := strings.Cut(part, ":")
		if !found {
			continue
		}

		switch key {
		case "q", "quality":
			if q, err := strconv.Atoi(value); err == nil && q >= 1 && q <= 100 {
				params.Quality = q
			}
		case "w", "width":
			if w, err := strconv.Atoi(value); err == nil && w > 0 {
				params.Width = w
			}
		case "h", "height":
			if h, err := strconv.Atoi(value); err == nil && h > 0 {
				params.Height = h
			}
		case "s", "scale":
			if s, err := strconv.ParseFloat(value, 64); err == nil && s > 0 && s <= maxScale {
				params.Scale = s
			}
		case "i", "interpolation":
			if m, err := resample.ParseMethod(value); err == nil {
				params.Interpolation = m
			}
		case "tol", "tolerance":
			if tols, err := ParseTolerances(value); err == nil {
				params.Tolerances = tols
			}
		case "sig", "signature":
			params.Signature = value
		case "t", "token":
			params.Token = value
		case "loc", "location":
			params.Location = value
		}
	}

	return params, nil
}

// ParseTolerances reads a comma separated list of tolerances in 0..255.
func ParseTolerances(value string) ([]uint16, error) {
	var tols []uint16
	for _, field := range strings.Split(value, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		tol, err := strconv.ParseUint(field, 10, 16)
		if err != nil {
			return nil, fmt.Errorf("invalid tolerance %q", field)
		}
		if tol > 255 {
			return nil, fmt.Errorf("tolerance %d exceeds 255", tol)
		}
		tols = append(tols, uint16(tol))
	}
	if len(tols) == 0 {
		return nil, fmt.Errorf("no tolerances given")
	}
	return tols, nil
}

// DecodeBase64URL decodes a base64 URL-safe encoded string
func DecodeBase64URL(encoded string) (string, error) {
	decoded, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("failed to decode base64: %w", err)
	}
	return string(decoded), nil
}

// compareHmac validates a hex HMAC-SHA256 signature of message
func compareHmac(message, providedSignature, secret string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	expectedMAC := mac.Sum(nil)

	providedMAC, err := hex.DecodeString(providedSignature)
	if err != nil {
		return false
	}

	return hmac.Equal(expectedMAC, providedMAC)
}

// sanitizeLocation ensures S3 object key is in an acceptable format
func sanitizeLocation(loc string) (string, error) {
	if len(loc) == 0 || len(loc) > 512 {
		return "", fmt.Errorf("invalid location length")
	}
	if strings.Contains(loc, "..") || strings.Contains(loc, "\\") {
		return "", fmt.Errorf("invalid location characters")
	}
	for _, r := range loc {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '/' || r == '-' || r == '_' || r == '.' {
			continue
		}
		return "", fmt.Errorf("invalid character in location")
	}
	return strings.TrimLeft(loc, "/"), nil
}

func decodeLocation(encoded string) (string, error) {
	decoded, err := DecodeBase64URL(encoded)
	if err != nil {
		return "", fmt.Errorf("invalid location encoding: %w", err)
	}
	sanitized, err := sanitizeLocation(decoded)
	if err != nil {
		return "", fmt.Errorf("invalid location: %w", err)
	}
	return sanitized, nil
}

// DefaultInterpolation resolves the configured default, falling back to bilinear.
func DefaultInterpolation(config *config.Config) resample.Method {
	if m, err := resample.ParseMethod(config.DefaultInterpolation); err == nil {
		return m
	}
	return resample.Bilinear
}

func validateGeometry(params *PathParams, config *config.Config) (int, error) {
	if params.Quality < 1 || params.Quality > 100 {
		return fiber.StatusBadRequest, fmt.Errorf("quality must be between 1 and 100")
	}

	if params.Width < 0 || params.Height < 0 {
		return fiber.StatusBadRequest, fmt.Errorf("width and height must be greater than 0")
	}

	if config.MaxDimension > 0 && (params.Width > config.MaxDimension || params.Height > config.MaxDimension) {
		return fiber.StatusBadRequest, fmt.Errorf("width and height must not exceed %d", config.MaxDimension)
	}

	if params.Scale < 0 || params.Scale > maxScale {
		return fiber.StatusBadRequest, fmt.Errorf("scale must be between 0 and %d", maxScale)
	}

	if params.Scale > 0 && (params.Width > 0 || params.Height > 0) {
		return fiber.StatusBadRequest, fmt.Errorf("scale cannot be combined with width or height")
	}

	return fiber.StatusOK, nil
}

func newImageContext(params *PathParams, config *config.Config) *ImageContext {
	// Apply default webp setting if not specified
	webp := params.Webp || config.Webp

	return &ImageContext{
		Quality:       params.Quality,
		Width:         params.Width,
		Height:        params.Height,
		Scale:         params.Scale,
		Interpolation: params.Interpolation,
		Webp:          webp,
		Tolerances:    params.Tolerances,
	}
}

// ProcessImageUploadFromPath processes image upload parameters from path
// Validation: either the token matches, or location and signature are
// provided and the signature covers the location
func ProcessImageUploadFromPath(logger *zap.Logger, pathParams string, config *config.Config) (bool, int, *ImageContext, error) {
	params, err := ParsePathParams(pathParams, DefaultInterpolation(config))
	if err != nil {
		return false, fiber.StatusBadRequest, nil, fmt.Errorf("invalid path parameters: %w", err)
	}

	var customObjectKey string
	if params.Location != "" && params.Signature != "" {
		if config.HmacKey == "" {
			return false, fiber.StatusInternalServerError, nil, fmt.Errorf("hmac key not configured")
		}

		sanitized, err := decodeLocation(params.Location)
		if err != nil {
			return false, fiber.StatusBadRequest, nil, err
		}

		if !compareHmac(sanitized, params.Signature, config.HmacKey) {
			return false, fiber.StatusForbidden, nil, fmt.Errorf("invalid signature")
		}

		customObjectKey = sanitized
	} else if config.Token == "" || params.Token != config.Token {
		logger.Debug("upload token rejected", zap.Bool("token_configured", config.Token != ""))
		return false, fiber.StatusForbidden, nil, fmt.Errorf("invalid token")
	}

	if status, err := validateGeometry(params, config); err != nil {
		return false, status, nil, err
	}

	ctx := newImageContext(params, config)
	ctx.CustomObjectKey = customObjectKey
	return true, fiber.StatusOK, ctx, nil
}

// ProcessImageContextFromPath processes image context from path parameters
func ProcessImageContextFromPath(logger *zap.Logger, pathParams string, config *config.Config) (bool, int, *ImageContext, error) {
	params, err := ParsePathParams(pathParams, DefaultInterpolation(config))
	if err != nil {
		return false, fiber.StatusBadRequest, nil, fmt.Errorf("invalid path parameters: %w", err)
	}

	urlParam := ""
	if params.EncodedURL != "" {
		urlParam, err = DecodeBase64URL(params.EncodedURL)
		if err != nil {
			return false, fiber.StatusBadRequest, nil, fmt.Errorf("failed to decode URL: %w", err)
		}
	}

	customObjectKey := ""
	if params.Location != "" {
		if config.HmacKey == "" || params.Signature == "" {
			return false, fiber.StatusForbidden, nil, fmt.Errorf("signature required for custom location")
		}
		sanitized, err := decodeLocation(params.Location)
		if err != nil {
			return false, fiber.StatusBadRequest, nil, err
		}

		// If URL is provided, sign URL|location, otherwise just sign location
		signedMsg := sanitized
		if urlParam != "" {
			signedMsg = urlParam + "|" + sanitized
		}

		if !compareHmac(signedMsg, params.Signature, config.HmacKey) {
			return false, fiber.StatusForbidden, nil, fmt.Errorf("invalid signature for location")
		}
		customObjectKey = sanitized
	} else if params.Signature != "" {
		if config.HmacKey == "" {
			return false, fiber.StatusForbidden, nil, fmt.Errorf("hmac key is not set")
		}
		if urlParam == "" {
			return false, fiber.StatusBadRequest, nil, fmt.Errorf("url is required when signature is provided without location")
		}
		if !compareHmac(urlParam, params.Signature, config.HmacKey) {
			return false, fiber.StatusForbidden, nil, fmt.Errorf("invalid signature")
		}
	} else if urlParam == "" {
		return false, fiber.StatusBadRequest, nil, fmt.Errorf("url or location is required")
	}

	hostname := ""
	if urlParam != "" {
		validOrigin, validHostname := pool.ValidateUrl(logger, urlParam, config.AllowedOrigins)
		if !validOrigin {
			return false, fiber.StatusForbidden, nil, fmt.Errorf("url is not allowed")
		}
		hostname = validHostname
	}

	if status, err := validateGeometry(params, config); err != nil {
		return false, status, nil, err
	}

	ctx := newImageContext(params, config)
	ctx.Url = urlParam
	ctx.Hostname = hostname
	ctx.CustomObjectKey = customObjectKey
	return true, fiber.StatusOK, ctx, nil
}

// ValidateFileSize checks if the file size is within acceptable limits
func ValidateFileSize(size int64, maxSizeMB int) error {
	if maxSizeMB <= 0 {
		return nil
	}

	maxSizeBytes := int64(maxSizeMB) * 1024 * 1024
	if size > maxSizeBytes {
		return fmt.Errorf("file size %d bytes exceeds maximum allowed size of %d MB", size, maxSizeMB)
	}

	return nil
}

// ValidateContentLength checks Content-Length header if present
func ValidateContentLength(contentLength string, maxSizeMB int) error {
	if contentLength == "" || maxSizeMB <= 0 {
		return nil
	}

	size, err := strconv.ParseInt(contentLength, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid content length: %s", contentLength)
	}

	return ValidateFileSize(size, maxSizeMB)
}

// ValidateTargetSize rejects derived sizes beyond the configured maximum.
func ValidateTargetSize(size resample.Size, config *config.Config) error {
	if size.Width <= 0 || size.Height <= 0 {
		return fmt.Errorf("target size %dx%d: %w", size.Width, size.Height, resample.ErrInvalidArgument)
	}
	if config.MaxDimension > 0 && (size.Width > config.MaxDimension || size.Height > config.MaxDimension) {
		return fmt.Errorf("target size %dx%d exceeds %d: %w", size.Width, size.Height, config.MaxDimension, resample.ErrInvalidArgument)
	}
	return nil
}
