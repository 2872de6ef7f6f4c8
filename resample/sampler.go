package resample

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Method selects the reconstruction filter.
type Method int

const (
	Nearest Method = iota
	Bilinear
	Cubic
)

func (m Method) String() string {
	switch m {
	case Nearest:
		return "nearest"
	case Bilinear:
		return "bilinear"
	case Cubic:
		return "cubic"
	default:
		return "method(" + strconv.Itoa(int(m)) + ")"
	}
}

// ParseMethod accepts a method name or its numeric value.
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "nearest", "0":
		return Nearest, nil
	case "bilinear", "linear", "1":
		return Bilinear, nil
	case "cubic", "bicubic", "2":
		return Cubic, nil
	}
	return 0, fmt.Errorf("unknown interpolation %q: %w", s, ErrInvalidArgument)
}

// Sampler reconstructs a pixel at a fractional source coordinate.
// x is the column coordinate, y the row coordinate.
type Sampler interface {
	Sample(src Source, x, y float32) RGB
}

func newSampler(m Method, referenceTaps bool) (Sampler, error) {
	switch m {
	case Nearest:
		return nearest{}, nil
	case Bilinear:
		return bilinear{}, nil
	case Cubic:
		return cubic{referenceTaps: referenceTaps}, nil
	}
	return nil, fmt.Errorf("unknown interpolation %d: %w", int(m), ErrInvalidArgument)
}

type nearest struct{}

// roundIndex rounds ties down: floor(x + 0.49999).
func roundIndex(v float32) int {
	return int(math.Floor(float64(v) + 0.49999))
}

func (nearest) Sample(src Source, x, y float32) RGB {
	col := clampIndex(roundIndex(x), src.Width())
	row := clampIndex(roundIndex(y), src.Height())
	return src.PixelAt(row, col)
}

type bilinear struct{}

func (bilinear) Sample(src Source, x, y float32) RGB {
	x = max(x, 0)
	y = max(y, 0)

	w, h := src.Width(), src.Height()
	x1 := clampIndex(int(x), w)
	y1 := clampIndex(int(y), h)
	x2 := clampIndex(x1+1, w)
	y2 := clampIndex(y1+1, h)

	p11 := src.PixelAt(y1, x1)
	p21 := src.PixelAt(y1, x2)
	p12 := src.PixelAt(y2, x1)
	p22 := src.PixelAt(y2, x2)

	// a collapsed window has no second tap to blend toward
	var xa, ya float32
	if x2 != x1 {
		xa = x - float32(x1)
	}
	if y2 != y1 {
		ya = y - float32(y1)
	}
	nx := 1 - xa
	ny := 1 - ya

	// each term is rounded as p*wx*wy evaluated left to right, then summed
	// in order; folding the weights first changes which values truncate
	var out RGB
	for c := range out {
		v := float32(float32(float32(p11[c])*nx)*ny) +
			float32(float32(float32(p21[c])*xa)*ny) +
			float32(float32(float32(p12[c])*nx)*ya) +
			float32(float32(float32(p22[c])*xa)*ya)
		out[c] = quantize(v)
	}
	return out
}

type cubic struct {
	// referenceTaps reuses column x2 where x3 belongs, reproducing the
	// 3-tap horizontal pass of existing reference artifacts.
	referenceTaps bool
}

// spline evaluates the uniform cubic through p2 and p3 at alpha.
func spline(p1, p2, p3, p4, alpha float32) float32 {
	a2 := alpha * alpha
	a3 := float32(a2 * alpha)

	c1 := float32(-p1+float32(3*p2)-float32(3*p3)+p4) / 6
	c2 := float32(p1-float32(2*p2)+p3) / 2
	c3 := float32(float32(-2*p1)-float32(3*p2)+float32(6*p3)-p4) / 6

	return float32(c1*a3) + float32(c2*a2) + float32(c3*alpha) + p2
}

func (s cubic) Sample(src Source, x, y float32) RGB {
	w, h := src.Width(), src.Height()
	x1 := clampIndex(int(x), w)
	y1 := clampIndex(int(y), h)

	cols := [4]int{clampIndex(x1-1, w), x1, clampIndex(x1+1, w), clampIndex(x1+2, w)}
	rows := [4]int{clampIndex(y1-1, h), y1, clampIndex(y1+1, h), clampIndex(y1+2, h)}
	if s.referenceTaps {
		cols[3] = cols[2]
	}

	ax := x - float32(x1)
	ay := y - float32(y1)

	var window [4][4]RGB
	for r, row := range rows {
		for k, col := range cols {
			window[r][k] = src.PixelAt(row, col)
		}
	}

	var out RGB
	for c := range out {
		var column [4]float32
		for r := range window {
			column[r] = spline(
				float32(window[r][0][c]),
				float32(window[r][1][c]),
				float32(window[r][2][c]),
				float32(window[r][3][c]),
				ax,
			)
		}
		out[c] = quantize(spline(column[0], column[1], column[2], column[3], ay))
	}
	return out
}
