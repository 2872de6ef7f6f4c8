package reference

import (
	"errors"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"media-resampler/resample"
)

func gradient(w, h int) *resample.Image {
	img := resample.NewImage(w, h)
	for row := 0; row < h; row++ {
		for col := 0; col < w; col++ {
			img.SetPixelAt(row, col, resample.RGB{uint8(col * 255 / max(w-1, 1)), uint8(row * 255 / max(h-1, 1)), 128})
		}
	}
	return img
}

func TestOraclesProduceTargetSize(t *testing.T) {
	src := gradient(32, 24)
	size := resample.Size{Width: 16, Height: 12}

	for _, oracle := range Oracles() {
		for _, m := range []resample.Method{resample.Nearest, resample.Bilinear, resample.Cubic} {
			out, err := oracle.Resize(src, size, m)
			require.NoError(t, err, "%s %s", oracle.Name(), m)
			assert.Equal(t, size, out.Size(), "%s %s", oracle.Name(), m)
		}
		_, err := oracle.Resize(src, size, resample.Method(7))
		assert.Error(t, err, oracle.Name())
	}
}

func TestCompareReport(t *testing.T) {
	src := gradient(80, 60)
	size := resample.Size{Width: 40, Height: 30}

	report, err := Compare(src, size, resample.Bilinear, nil, 2, Oracles())
	require.NoError(t, err)

	assert.Equal(t, "bilinear", report.Method)
	assert.Equal(t, 2, report.Iterations)
	require.Len(t, report.Oracles, 2)
	for _, o := range report.Oracles {
		require.Len(t, o.Consistency, 6)
		for i := 1; i < len(o.Consistency); i++ {
			assert.GreaterOrEqual(t, o.Consistency[i].Percent, o.Consistency[i-1].Percent)
		}
		// a smooth gradient resamples closely under any bilinear filter
		assert.Greater(t, o.Consistency[5].Percent, 75.0, o.Name)
	}
}

type brokenOracle struct{}

func (brokenOracle) Name() string { return "broken" }

func (brokenOracle) Resize(_ image.Image, size resample.Size, _ resample.Method) (*resample.Image, error) {
	return resample.NewImage(size.Width+1, size.Height), nil
}

func TestCompareShapeMismatch(t *testing.T) {
	_, err := Compare(gradient(8, 8), resample.Size{Width: 4, Height: 4}, resample.Nearest, []uint16{0}, 1, []Resizer{brokenOracle{}})
	assert.True(t, errors.Is(err, resample.ErrShapeMismatch))
}

func TestCompareInvalidSize(t *testing.T) {
	_, err := Compare(gradient(8, 8), resample.Size{}, resample.Nearest, nil, 1, Oracles())
	assert.ErrorIs(t, err, resample.ErrInvalidArgument)
}

func TestDefaultTolerances(t *testing.T) {
	assert.Equal(t, []uint16{0}, DefaultTolerances(resample.Nearest))
	assert.Len(t, DefaultTolerances(resample.Bilinear), 6)
	assert.Equal(t, uint16(30), DefaultTolerances(resample.Cubic)[6])
}
