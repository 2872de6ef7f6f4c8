package resample

import "fmt"

// Consistency reports the percentage of channel samples of a and b whose
// absolute difference does not exceed tolerance. With tolerance 0 it is the
// share of exact matches.
func Consistency(a, b Source, tolerance uint16) (float64, error) {
	scores, err := ConsistencySweep(a, b, []uint16{tolerance})
	if err != nil {
		return 0, err
	}
	return scores[0], nil
}

// ConsistencySweep evaluates several tolerances with a single pass over the
// images. Scores are returned in the order of tolerances.
func ConsistencySweep(a, b Source, tolerances []uint16) ([]float64, error) {
	hist, total, err := diffHistogram(a, b)
	if err != nil {
		return nil, err
	}

	// above[d] counts samples whose difference exceeds d
	var above [256]int
	for d := 254; d >= 0; d-- {
		above[d] = above[d+1] + hist[d+1]
	}

	scores := make([]float64, len(tolerances))
	for i, tol := range tolerances {
		if total == 0 || tol >= 255 {
			scores[i] = 100
			continue
		}
		scores[i] = 100 * (1 - float64(above[tol])/float64(total))
	}
	return scores, nil
}

func diffHistogram(a, b Source) (hist [256]int, total int, err error) {
	if a.Width() != b.Width() || a.Height() != b.Height() {
		return hist, 0, fmt.Errorf("%dx%d vs %dx%d: %w", a.Width(), a.Height(), b.Width(), b.Height(), ErrShapeMismatch)
	}

	ia, okA := a.(*Image)
	ib, okB := b.(*Image)
	if okA && okB {
		for i, v := range ia.Pix {
			hist[absDiff(v, ib.Pix[i])]++
		}
		return hist, len(ia.Pix), nil
	}

	for row := 0; row < a.Height(); row++ {
		for col := 0; col < a.Width(); col++ {
			pa, pb := a.PixelAt(row, col), b.PixelAt(row, col)
			for c := range pa {
				hist[absDiff(pa[c], pb[c])]++
			}
		}
	}
	return hist, a.Width() * a.Height() * Channels, nil
}

func absDiff(x, y uint8) uint8 {
	if x > y {
		return x - y
	}
	return y - x
}
