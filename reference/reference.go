package reference

import (
	"fmt"
	"image"
	"time"

	"github.com/nfnt/resize"
	"golang.org/x/image/draw"

	"media-resampler/resample"
)

// Resizer is a library resize used as an oracle for the custom engine.
type Resizer interface {
	Name() string
	Resize(src image.Image, size resample.Size, method resample.Method) (*resample.Image, error)
}

// Nfnt uses "github.com/nfnt/resize"
type Nfnt struct{}

var _ Resizer = (*Nfnt)(nil)

func (Nfnt) Name() string { return "nfnt" }

func (Nfnt) Resize(src image.Image, size resample.Size, method resample.Method) (*resample.Image, error) {
	var interp resize.InterpolationFunction
	switch method {
	case resample.Nearest:
		interp = resize.NearestNeighbor
	case resample.Bilinear:
		interp = resize.Bilinear
	case resample.Cubic:
		interp = resize.Bicubic
	default:
		return nil, fmt.Errorf("nfnt: unsupported method %s", method)
	}

	m := resize.Resize(uint(size.Width), uint(size.Height), src, interp)
	return resample.FromImage(m), nil
}

// XDraw uses "golang.org/x/image/draw"
type XDraw struct{}

var _ Resizer = (*XDraw)(nil)

func (XDraw) Name() string { return "xdraw" }

func (XDraw) Resize(src image.Image, size resample.Size, method resample.Method) (*resample.Image, error) {
	var scaler draw.Scaler
	switch method {
	case resample.Nearest:
		scaler = draw.NearestNeighbor
	case resample.Bilinear:
		scaler = draw.BiLinear
	case resample.Cubic:
		scaler = draw.CatmullRom
	default:
		return nil, fmt.Errorf("xdraw: unsupported method %s", method)
	}

	dst := image.NewRGBA(image.Rect(0, 0, size.Width, size.Height))
	scaler.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return resample.FromImage(dst), nil
}

// Oracles are the library resizers reports compare against.
func Oracles() []Resizer {
	return []Resizer{Nfnt{}, XDraw{}}
}

// DefaultTolerances are the sweeps reported per method: exact match for
// nearest, 0..5 for bilinear and 0..30 in steps of 5 for cubic.
func DefaultTolerances(method resample.Method) []uint16 {
	switch method {
	case resample.Bilinear:
		return []uint16{0, 1, 2, 3, 4, 5}
	case resample.Cubic:
		return []uint16{0, 5, 10, 15, 20, 25, 30}
	default:
		return []uint16{0}
	}
}

type ToleranceScore struct {
	Tolerance uint16  `json:"tolerance"`
	Percent   float64 `json:"percent"`
}

type OracleResult struct {
	Name        string           `json:"name"`
	Duration    time.Duration    `json:"durationNs"`
	Consistency []ToleranceScore `json:"consistency"`
}

type Report struct {
	Method         string         `json:"method"`
	Width          int            `json:"width"`
	Height         int            `json:"height"`
	Iterations     int            `json:"iterations"`
	CustomDuration time.Duration  `json:"customDurationNs"`
	Oracles        []OracleResult `json:"oracles"`
}

// Compare resizes src with the custom engine and with every oracle,
// iterations times each, and scores the custom result against each oracle
// output at every tolerance.
func Compare(src *resample.Image, size resample.Size, method resample.Method, tolerances []uint16, iterations int, oracles []Resizer, opts ...resample.Option) (*Report, error) {
	if iterations < 1 {
		iterations = 1
	}
	if len(tolerances) == 0 {
		tolerances = DefaultTolerances(method)
	}

	var custom *resample.Image
	start := time.Now()
	for i := 0; i < iterations; i++ {
		var err error
		custom, err = resample.Resize(src, size, method, opts...)
		if err != nil {
			return nil, err
		}
	}

	report := &Report{
		Method:         method.String(),
		Width:          size.Width,
		Height:         size.Height,
		Iterations:     iterations,
		CustomDuration: time.Since(start),
	}

	for _, oracle := range oracles {
		var expected *resample.Image
		start := time.Now()
		for i := 0; i < iterations; i++ {
			var err error
			expected, err = oracle.Resize(src, size, method)
			if err != nil {
				return nil, err
			}
		}
		elapsed := time.Since(start)

		scores, err := resample.ConsistencySweep(expected, custom, tolerances)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", oracle.Name(), err)
		}

		result := OracleResult{Name: oracle.Name(), Duration: elapsed}
		for i, tol := range tolerances {
			result.Consistency = append(result.Consistency, ToleranceScore{Tolerance: tol, Percent: scores[i]})
		}
		report.Oracles = append(report.Oracles, result)
	}

	return report, nil
}
