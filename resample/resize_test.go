package resample

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var methods = []Method{Nearest, Bilinear, Cubic}

func noiseImage(t *testing.T, w, h int, seed int64) *Image {
	t.Helper()
	r := rand.New(rand.NewSource(seed))
	img := NewImage(w, h)
	r.Read(img.Pix)
	return img
}

func solidImage(w, h int, p RGB) *Image {
	img := NewImage(w, h)
	for row := 0; row < h; row++ {
		for col := 0; col < w; col++ {
			img.SetPixelAt(row, col, p)
		}
	}
	return img
}

func TestCoordinateTable(t *testing.T) {
	table, err := coordinateTable(4, 2)
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 2.5}, table)

	table, err = coordinateTable(2, 4)
	require.NoError(t, err)
	assert.Equal(t, []float32{-0.25, 0.25, 0.75, 1.25}, table)

	_, err = coordinateTable(4, 0)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = coordinateTable(0, 4)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestRoundIndexTiesDown(t *testing.T) {
	assert.Equal(t, 0, roundIndex(0.5))
	assert.Equal(t, 2, roundIndex(2.5))
	assert.Equal(t, 1, roundIndex(0.51))
	assert.Equal(t, 0, roundIndex(-0.25))
	assert.Equal(t, -1, roundIndex(-0.75))
}

func TestResizeShape(t *testing.T) {
	src := noiseImage(t, 7, 5, 1)
	sizes := []Size{{1, 1}, {3, 2}, {7, 5}, {14, 10}, {1, 40}, {33, 1}}

	for _, m := range methods {
		for _, size := range sizes {
			dst, err := Resize(src, size, m)
			require.NoError(t, err, "%s %v", m, size)
			assert.Equal(t, size.Width, dst.Width(), "%s %v", m, size)
			assert.Equal(t, size.Height, dst.Height(), "%s %v", m, size)
			assert.Len(t, dst.Pix, size.Width*size.Height*Channels)
		}
	}
}

func TestResizeInvalidArguments(t *testing.T) {
	src := noiseImage(t, 4, 4, 2)

	for _, size := range []Size{{0, 4}, {4, 0}, {-1, 3}} {
		dst, err := Resize(src, size, Nearest)
		assert.Nil(t, dst)
		assert.True(t, errors.Is(err, ErrInvalidArgument), "size %v", size)
	}

	_, err := Resize(src, Size{2, 2}, Method(9))
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = Resize(NewImage(0, 3), Size{2, 2}, Bilinear)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestNearestIdentity(t *testing.T) {
	src := noiseImage(t, 13, 9, 3)
	dst, err := Resize(src, src.Size(), Nearest)
	require.NoError(t, err)
	assert.Equal(t, src.Pix, dst.Pix)
}

func TestDegenerateSource(t *testing.T) {
	p := RGB{12, 200, 77}
	src := solidImage(1, 1, p)

	for _, m := range methods {
		for _, size := range []Size{{1, 1}, {2, 3}, {9, 4}} {
			dst, err := Resize(src, size, m)
			require.NoError(t, err)
			for row := 0; row < size.Height; row++ {
				for col := 0; col < size.Width; col++ {
					assert.Equal(t, p, dst.PixelAt(row, col), "%s %v (%d,%d)", m, size, row, col)
				}
			}
		}
	}
}

func TestNearestHalfPixelMapping(t *testing.T) {
	white := RGB{255, 255, 255}

	// 4 -> 2 samples source indices 0 and 2 on each axis
	src := NewImage(4, 4)
	src.SetPixelAt(1, 1, white)
	dst, err := Resize(src, Size{2, 2}, Nearest)
	require.NoError(t, err)
	assert.Equal(t, make([]uint8, 12), dst.Pix, "(1,1) is never sampled")

	src = NewImage(4, 4)
	src.SetPixelAt(2, 2, white)
	dst, err = Resize(src, Size{2, 2}, Nearest)
	require.NoError(t, err)
	assert.Equal(t, white, dst.PixelAt(1, 1))
	assert.Equal(t, RGB{}, dst.PixelAt(0, 0))
	assert.Equal(t, RGB{}, dst.PixelAt(0, 1))
	assert.Equal(t, RGB{}, dst.PixelAt(1, 0))
}

func TestBilinearBlend(t *testing.T) {
	src := NewImage(2, 1)
	src.SetPixelAt(0, 0, RGB{0, 0, 0})
	src.SetPixelAt(0, 1, RGB{255, 100, 10})

	// 2 -> 4 maps columns to -0.25, 0.25, 0.75, 1.25
	dst, err := Resize(src, Size{4, 1}, Bilinear)
	require.NoError(t, err)
	assert.Equal(t, RGB{0, 0, 0}, dst.PixelAt(0, 0))
	assert.Equal(t, RGB{63, 25, 2}, dst.PixelAt(0, 1), "truncated, not rounded")
	assert.Equal(t, RGB{191, 75, 7}, dst.PixelAt(0, 2))
	assert.Equal(t, RGB{255, 100, 10}, dst.PixelAt(0, 3))
}

func TestSplineBasis(t *testing.T) {
	assert.InDelta(t, 20, spline(10, 20, 30, 40, 0), 1e-5)
	assert.InDelta(t, 25, spline(10, 20, 30, 40, 0.5), 1e-5)
	assert.InDelta(t, 30, spline(10, 20, 30, 40, 1), 1e-5)
	assert.InDelta(t, 7, spline(7, 7, 7, 7, 0.3), 1e-5)
}

func TestCubicBoundedOutput(t *testing.T) {
	src := NewImage(4, 1)
	src.SetPixelAt(0, 1, RGB{255, 0, 255})
	src.SetPixelAt(0, 2, RGB{255, 0, 255})
	src.SetPixelAt(0, 3, RGB{0, 255, 0})
	src.SetPixelAt(0, 0, RGB{0, 255, 0})

	// 4 -> 8 puts columns 3 and 4 at 1.25 and 1.75, where the spline
	// through (0,255,255,0) peaks near 279 and the inverted one dips below 0
	for _, opts := range [][]Option{nil, {WithReferenceCubicTaps()}} {
		dst, err := Resize(src, Size{8, 1}, Cubic, opts...)
		require.NoError(t, err)
		assert.Equal(t, RGB{255, 0, 255}, dst.PixelAt(0, 3))
		assert.Equal(t, RGB{255, 0, 255}, dst.PixelAt(0, 4))
	}

	noise := noiseImage(t, 9, 9, 8)
	dst, err := Resize(noise, Size{40, 40}, Cubic)
	require.NoError(t, err)
	assert.Len(t, dst.Pix, 40*40*Channels)
}

func TestCubicClampsInsteadOfWrapping(t *testing.T) {
	row := []float32{0, 255, 255, 0}
	over := spline(row[0], row[1], row[2], row[3], 0.5)
	require.Greater(t, over, float32(255))
	assert.Equal(t, uint8(255), quantize(over))

	under := spline(255, 0, 0, 255, 0.5)
	require.Less(t, under, float32(0))
	assert.Equal(t, uint8(0), quantize(under))
}

func TestCubicReferenceTaps(t *testing.T) {
	src := noiseImage(t, 16, 16, 4)
	size := Size{23, 23}

	fixed, err := Resize(src, size, Cubic)
	require.NoError(t, err)
	legacy, err := Resize(src, size, Cubic, WithReferenceCubicTaps())
	require.NoError(t, err)
	assert.NotEqual(t, fixed.Pix, legacy.Pix)

	// with a single column the fourth tap is clamped onto the third anyway
	column := noiseImage(t, 1, 16, 5)
	fixed, err = Resize(column, Size{1, 9}, Cubic)
	require.NoError(t, err)
	legacy, err = Resize(column, Size{1, 9}, Cubic, WithReferenceCubicTaps())
	require.NoError(t, err)
	assert.Equal(t, fixed.Pix, legacy.Pix)
}

// legacyTable is the per-axis mapping written out with float32 rounding at
// every step.
func legacyTable(src, dst int) []float32 {
	scale := float32(src) / float32(dst)
	table := make([]float32, dst)
	for i := range table {
		table[i] = float32(float32(float32(i)+0.5)*scale) - 0.5
	}
	return table
}

// legacyBilinear evaluates p*(1-a)*(1-b) + p*a*(1-b) + p*(1-a)*b + p*a*b
// strictly left to right in float32, without any edge special cases.
func legacyBilinear(src *Image, x, y float32) RGB {
	x = max(x, 0)
	y = max(y, 0)
	x1, y1 := int(x), int(y)
	x2, y2 := min(x1+1, src.W-1), min(y1+1, src.H-1)
	xa := x - float32(x1)
	ya := y - float32(y1)

	var out RGB
	for c := range out {
		t1 := float32(float32(float32(src.PixelAt(y1, x1)[c])*float32(1-xa)) * float32(1-ya))
		t2 := float32(float32(float32(src.PixelAt(y1, x2)[c])*xa) * float32(1-ya))
		t3 := float32(float32(float32(src.PixelAt(y2, x1)[c])*float32(1-xa)) * ya)
		t4 := float32(float32(float32(src.PixelAt(y2, x2)[c])*xa) * ya)
		v := float32(float32(float32(t1+t2)+t3) + t4)
		out[c] = uint8(max(0, min(255, v)))
	}
	return out
}

func legacySpline(i1, i2, i3, i4, alpha float32) float32 {
	alpha2 := float32(alpha * alpha)
	alpha3 := float32(alpha2 * alpha)
	c1 := float32(float32(float32(-i1+float32(3*i2))-float32(3*i3))+i4) / 6
	c2 := float32(float32(i1-float32(2*i2))+i3) / 2
	c3 := float32(float32(float32(float32(-2*i1)-float32(3*i2))+float32(6*i3))-i4) / 6
	return float32(float32(float32(c1*alpha3)+float32(c2*alpha2))+float32(c3*alpha)) + i2
}

// legacyCubic reuses column x2 as the fourth horizontal tap.
func legacyCubic(src *Image, x, y float32) RGB {
	x1, y1 := int(x), int(y)
	x0, x2 := max(x1-1, 0), min(x1+1, src.W-1)
	y0, y2, y3 := max(y1-1, 0), min(y1+1, src.H-1), min(y1+2, src.H-1)
	ax := x - float32(x1)
	ay := y - float32(y1)

	var out RGB
	for c := range out {
		row := func(r int) float32 {
			return legacySpline(
				float32(src.PixelAt(r, x0)[c]),
				float32(src.PixelAt(r, x1)[c]),
				float32(src.PixelAt(r, x2)[c]),
				float32(src.PixelAt(r, x2)[c]),
				ax,
			)
		}
		v := legacySpline(row(y0), row(y1), row(y2), row(y3), ay)
		out[c] = uint8(max(0, min(255, v)))
	}
	return out
}

type goldenCase struct {
	src  *Image
	size Size
}

func goldenCases(t *testing.T) []goldenCase {
	t.Helper()
	r := rand.New(rand.NewSource(42))
	cases := make([]goldenCase, 0, 40)
	for i := range 40 {
		src := noiseImage(t, 1+r.Intn(40), 1+r.Intn(40), int64(100+i))
		cases = append(cases, goldenCase{src: src, size: Size{1 + r.Intn(64), 1 + r.Intn(64)}})
	}
	return cases
}

func TestBilinearMatchesReferenceArithmetic(t *testing.T) {
	compared := 0
	for _, tc := range goldenCases(t) {
		dst, err := Resize(tc.src, tc.size, Bilinear)
		require.NoError(t, err)

		xs := legacyTable(tc.src.W, tc.size.Width)
		ys := legacyTable(tc.src.H, tc.size.Height)
		for row, y := range ys {
			for col, x := range xs {
				// right and bottom edge windows zero the collapsed alpha
				if int(max(x, 0)) >= tc.src.W-1 || int(max(y, 0)) >= tc.src.H-1 {
					continue
				}
				compared++
				want := legacyBilinear(tc.src, x, y)
				require.Equal(t, want, dst.PixelAt(row, col),
					"%dx%d -> %dx%d at (%d,%d)", tc.src.W, tc.src.H, tc.size.Width, tc.size.Height, row, col)
			}
		}
	}
	require.Greater(t, compared, 5000)
}

func TestCubicReferenceTapsMatchReferenceArithmetic(t *testing.T) {
	compared := 0
	for _, tc := range goldenCases(t) {
		dst, err := Resize(tc.src, tc.size, Cubic, WithReferenceCubicTaps())
		require.NoError(t, err)

		xs := legacyTable(tc.src.W, tc.size.Width)
		ys := legacyTable(tc.src.H, tc.size.Height)
		for row, y := range ys {
			for col, x := range xs {
				compared++
				want := legacyCubic(tc.src, x, y)
				require.Equal(t, want, dst.PixelAt(row, col),
					"%dx%d -> %dx%d at (%d,%d)", tc.src.W, tc.src.H, tc.size.Width, tc.size.Height, row, col)
			}
		}
	}
	require.Greater(t, compared, 5000)
}

func TestCubicConstantImage(t *testing.T) {
	p := RGB{40, 128, 250}
	src := solidImage(6, 5, p)
	dst, err := Resize(src, Size{11, 3}, Cubic)
	require.NoError(t, err)
	for row := 0; row < 3; row++ {
		for col := 0; col < 11; col++ {
			got := dst.PixelAt(row, col)
			for c := range got {
				assert.InDelta(t, p[c], got[c], 1, "(%d,%d)", row, col)
			}
		}
	}
}

func TestParallelMatchesSequential(t *testing.T) {
	src := noiseImage(t, 37, 29, 6)

	for _, m := range methods {
		for _, size := range []Size{{18, 14}, {80, 61}, {5, 3}} {
			seq, err := Resize(src, size, m)
			require.NoError(t, err)
			for _, workers := range []int{2, 3, 8, 100} {
				par, err := Resize(src, size, m, WithWorkers(workers))
				require.NoError(t, err)
				assert.Equal(t, seq.Pix, par.Pix, "%s %v workers=%d", m, size, workers)
			}
		}
	}
}

func TestScale(t *testing.T) {
	src := noiseImage(t, 10, 7, 7)

	dst, err := Scale(src, 0.5, Bilinear)
	require.NoError(t, err)
	assert.Equal(t, Size{5, 4}, dst.Size())

	_, err = Scale(src, 0, Nearest)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = Scale(src, 0.01, Nearest)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestFitSize(t *testing.T) {
	src := Size{400, 200}
	assert.Equal(t, Size{100, 50}, FitSize(src, 100, 0))
	assert.Equal(t, Size{200, 100}, FitSize(src, 0, 100))
	assert.Equal(t, Size{30, 30}, FitSize(src, 30, 30))
	assert.Equal(t, src, FitSize(src, 0, 0))
	assert.Equal(t, Size{1, 1}, FitSize(src, 1, 0))
}

func TestParseMethod(t *testing.T) {
	for in, want := range map[string]Method{
		"nearest": Nearest, "0": Nearest,
		"Bilinear": Bilinear, "1": Bilinear,
		"cubic": Cubic, "bicubic": Cubic, "2": Cubic,
	} {
		got, err := ParseMethod(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseMethod("lanczos")
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.Equal(t, "cubic", Cubic.String())
}
