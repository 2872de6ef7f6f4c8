package resample

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrShapeMismatch   = errors.New("image shapes differ")
)

// halfPixel aligns the centers of source and destination cells.
const halfPixel float32 = 0.5

// coordinateTable maps every destination index in [0, dst) to its source
// coordinate (i+0.5)*(src/dst)-0.5. The scale is computed once per axis.
func coordinateTable(src, dst int) ([]float32, error) {
	if dst <= 0 {
		return nil, fmt.Errorf("destination extent %d: %w", dst, ErrInvalidArgument)
	}
	if src <= 0 {
		return nil, fmt.Errorf("source extent %d: %w", src, ErrInvalidArgument)
	}

	scale := float32(src) / float32(dst)
	table := make([]float32, dst)
	for i := range table {
		table[i] = mapAxis(i, scale)
	}
	return table, nil
}

func mapAxis(i int, scale float32) float32 {
	// the conversion rounds the product so it is never fused with the subtraction
	return float32((float32(i)+halfPixel)*scale) - halfPixel
}

// clampIndex pins i into [0, n-1].
func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// quantize clamps a reconstructed channel value to [0,255] and truncates it.
func quantize(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v)
}
