package codec

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"

	"github.com/gen2brain/go-fitz"
	"github.com/kolesa-team/go-webp/decoder"
	"github.com/kolesa-team/go-webp/encoder"
	"github.com/kolesa-team/go-webp/webp"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	xwebp "golang.org/x/image/webp"

	"media-resampler/mime"
	"media-resampler/resample"
)

// Decode reads an image or the first page of a document and converts it
// into the 3-channel raster the resampler works on.
func Decode(r io.Reader, contentType string) (*resample.Image, error) {
	img, err := decode(r, contentType)
	if err != nil {
		return nil, err
	}
	return resample.FromImage(img), nil
}

// DecodeBytes is Decode over an in-memory payload.
func DecodeBytes(s []byte, contentType string) (*resample.Image, error) {
	return Decode(bytes.NewReader(s), contentType)
}

// ErrSourceTooLarge is returned when the declared dimensions of a source
// exceed the allowed maximum.
var ErrSourceTooLarge = errors.New("source image too large")

// DecodeBytesLimit reads only the header of raster formats and refuses
// sources wider or taller than maxDimension before any pixels are
// allocated. A maxDimension of 0 disables the check. Documents are
// rasterized at a fixed resolution and are not checked.
func DecodeBytesLimit(s []byte, contentType string, maxDimension int) (*resample.Image, error) {
	if maxDimension > 0 && !mime.IsDocumentMime(contentType) {
		cfg, err := decodeConfig(bytes.NewReader(s), contentType)
		if err != nil {
			return nil, err
		}
		if cfg.Width > maxDimension || cfg.Height > maxDimension {
			return nil, fmt.Errorf("%dx%d exceeds %d: %w", cfg.Width, cfg.Height, maxDimension, ErrSourceTooLarge)
		}
	}
	return DecodeBytes(s, contentType)
}

func decodeConfig(r io.Reader, contentType string) (image.Config, error) {
	switch contentType {
	case "image/jpeg":
		return jpeg.DecodeConfig(r)

	case "image/png":
		return png.DecodeConfig(r)

	case "image/gif":
		return gif.DecodeConfig(r)

	case "image/bmp":
		return bmp.DecodeConfig(r)

	case "image/tiff":
		return tiff.DecodeConfig(r)

	case "image/webp":
		return xwebp.DecodeConfig(r)
	}

	return image.Config{}, fmt.Errorf("unsupported image format: %s", contentType)
}

func decode(r io.Reader, contentType string) (image.Image, error) {
	switch contentType {
	case "image/jpeg":
		return jpeg.Decode(r)

	case "image/png":
		return png.Decode(r)

	case "image/gif":
		return gif.Decode(r)

	case "image/bmp":
		return bmp.Decode(r)

	case "image/tiff":
		return tiff.Decode(r)

	case "image/webp":
		return webp.Decode(r, &decoder.Options{})
	}

	if mime.IsDocumentMime(contentType) {
		doc, err := fitz.NewFromReader(r)
		if err != nil {
			return nil, err
		}

		defer doc.Close()

		if pageCount := doc.NumPage(); pageCount > 0 {
			return doc.Image(0)
		}

		return nil, fmt.Errorf("no pages found")
	}

	return nil, fmt.Errorf("unsupported image format: %s", contentType)
}

// Encode writes img in the requested format. Quality applies to jpeg and
// webp and is clamped to 1..100.
func Encode(w io.Writer, img image.Image, contentType string, quality int) error {
	quality = min(max(quality, 1), 100)

	switch contentType {
	case "image/jpeg":
		return jpeg.Encode(w, img, &jpeg.Options{Quality: quality})

	case "image/png":
		return png.Encode(w, img)

	case "image/gif":
		return gif.Encode(w, img, nil)

	case "image/bmp":
		return bmp.Encode(w, img)

	case "image/tiff":
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})

	case "image/webp":
		options, err := encoder.NewLossyEncoderOptions(encoder.PresetDefault, float32(quality))
		if err != nil {
			return fmt.Errorf("failed to create webp encoder options: %w", err)
		}
		return webp.Encode(w, img, options)

	default:
		return fmt.Errorf("unsupported output format: %s", contentType)
	}
}

// OutputType picks the format a result is written in: webp when requested,
// otherwise the source format when it can be encoded, otherwise png.
func OutputType(sourceType string, webpRequested bool) string {
	if webpRequested {
		return "image/webp"
	}
	if mime.IsEncodableMime(sourceType) {
		return sourceType
	}
	return "image/png"
}
