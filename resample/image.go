package resample

import (
	"image"
	"image/color"
)

// Channels is the fixed number of samples per pixel.
const Channels = 3

// RGB is a single 8-bit, 3-channel pixel.
type RGB [Channels]uint8

// Size is a target extent in pixels.
type Size struct {
	Width  int
	Height int
}

// Source is a read-only raster the engine samples from.
type Source interface {
	Width() int
	Height() int
	PixelAt(row, col int) RGB
}

// Sink is a writable raster the engine fills.
type Sink interface {
	Source
	SetPixelAt(row, col int, p RGB)
}

// Image is a row-major RGB buffer with a stride of 3*W.
type Image struct {
	W, H int
	Pix  []uint8
}

var (
	_ Sink        = (*Image)(nil)
	_ image.Image = (*Image)(nil)
)

// NewImage allocates a zeroed (black) image.
func NewImage(width, height int) *Image {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Image{W: width, H: height, Pix: make([]uint8, width*height*Channels)}
}

func (m *Image) Width() int  { return m.W }
func (m *Image) Height() int { return m.H }

// Size reports the image extent.
func (m *Image) Size() Size { return Size{Width: m.W, Height: m.H} }

func (m *Image) offset(row, col int) int {
	return (row*m.W + col) * Channels
}

func (m *Image) PixelAt(row, col int) RGB {
	i := m.offset(row, col)
	return RGB{m.Pix[i], m.Pix[i+1], m.Pix[i+2]}
}

func (m *Image) SetPixelAt(row, col int, p RGB) {
	i := m.offset(row, col)
	m.Pix[i], m.Pix[i+1], m.Pix[i+2] = p[0], p[1], p[2]
}

func (m *Image) ColorModel() color.Model { return color.RGBAModel }

func (m *Image) Bounds() image.Rectangle { return image.Rect(0, 0, m.W, m.H) }

func (m *Image) At(x, y int) color.Color {
	if x < 0 || y < 0 || x >= m.W || y >= m.H {
		return color.RGBA{}
	}
	p := m.PixelAt(y, x)
	return color.RGBA{R: p[0], G: p[1], B: p[2], A: 0xff}
}

// FromImage copies any decoded image into an RGB buffer. Translucent pixels
// are composited over black and 16-bit channels keep their high byte.
func FromImage(src image.Image) *Image {
	b := src.Bounds()
	dst := NewImage(b.Dx(), b.Dy())

	switch s := src.(type) {
	case *Image:
		copy(dst.Pix, s.Pix)
		return dst
	case *image.RGBA:
		for y := 0; y < dst.H; y++ {
			row := s.Pix[s.PixOffset(b.Min.X, b.Min.Y+y):]
			for x := 0; x < dst.W; x++ {
				dst.SetPixelAt(y, x, RGB{row[x*4], row[x*4+1], row[x*4+2]})
			}
		}
		return dst
	}

	for y := 0; y < dst.H; y++ {
		for x := 0; x < dst.W; x++ {
			r, g, bl, _ := src.At(b.Min.X+x, b.Min.Y+y).RGBA()
			dst.SetPixelAt(y, x, RGB{uint8(r >> 8), uint8(g >> 8), uint8(bl >> 8)})
		}
	}
	return dst
}
