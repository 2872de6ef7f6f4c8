package mime

import "slices"

var imageMimeTypes = []string{
	"image/jpeg",
	"image/png",
	"image/webp",
	"image/gif",
	"image/bmp",
	"image/tiff",
}

// documentMimeTypes are rasterized from their first page.
var documentMimeTypes = []string{
	"application/pdf",
	"application/epub+zip",
	"application/x-mobipocket-ebook",
}

// encodableMimeTypes can be written back in the source format.
var encodableMimeTypes = []string{
	"image/jpeg",
	"image/png",
	"image/gif",
	"image/bmp",
	"image/tiff",
	"image/webp",
}

func IsImageMime(mimeType string) bool {
	return slices.Contains(imageMimeTypes, mimeType)
}

func IsDocumentMime(mimeType string) bool {
	return slices.Contains(documentMimeTypes, mimeType)
}

// IsSourceMime reports whether a payload can be decoded into a raster.
func IsSourceMime(mimeType string) bool {
	return IsImageMime(mimeType) || IsDocumentMime(mimeType)
}

func IsEncodableMime(mimeType string) bool {
	return slices.Contains(encodableMimeTypes, mimeType)
}
