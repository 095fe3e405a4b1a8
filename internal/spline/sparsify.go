package spline

// SparsifyResult is the outcome of a sparsification pass over one
// activation layer.
type SparsifyResult struct {
	Grid         *Grid
	Coefficients []float32 // channels x Grid.Size(), row-major
	Dropped      int       // knots removed from the shared grid
}

// Sparsify walks the knot sequence and drops every interior knot whose
// removal leaves the piecewise-linear function unchanged within the slope
// threshold: knot i is droppable in a channel when the slope from the last
// retained knot to i differs from the slope of segment (i, i+1) by less
// than the threshold. Because all channels of a layer share one grid, a
// knot is removed only when it is droppable in every channel.
//
// Endpoints are always retained, so the function's domain and boundary
// extrapolation slopes survive the pass. Retained knots keep their
// coefficient values (linear interpolation of the original function at a
// retained knot is the original value).
//
// A non-positive threshold, or one exceeding the function's value range,
// drops nothing.
func Sparsify(grid *Grid, coeffs []float32, channels int, threshold float32) SparsifyResult {
	knots := grid.Size()
	unchanged := SparsifyResult{Grid: grid, Coefficients: coeffs, Dropped: 0}

	if threshold <= 0 || knots <= 2 || threshold > valueRange(coeffs) {
		return unchanged
	}

	locs := grid.Locations()
	keep := make([]bool, knots)
	keep[0], keep[knots-1] = true, true

	prev := 0 // last retained knot
	for i := 1; i+1 < knots; i++ {
		droppable := true
		for ch := 0; ch < channels; ch++ {
			row := coeffs[ch*knots : (ch+1)*knots]
			slopeL := (row[i] - row[prev]) / (locs[i] - locs[prev])
			slopeR := (row[i+1] - row[i]) / (locs[i+1] - locs[i])
			if abs(slopeL-slopeR) >= threshold {
				droppable = false
				break
			}
		}
		if !droppable {
			keep[i] = true
			prev = i
		}
	}

	newSize := 0
	for _, k := range keep {
		if k {
			newSize++
		}
	}
	if newSize == knots {
		return unchanged
	}

	newLocs := make([]float32, 0, newSize)
	for i, k := range keep {
		if k {
			newLocs = append(newLocs, locs[i])
		}
	}

	newCoeffs := make([]float32, channels*newSize)
	for ch := 0; ch < channels; ch++ {
		row := coeffs[ch*knots : (ch+1)*knots]
		newRow := newCoeffs[ch*newSize : (ch+1)*newSize]
		j := 0
		for i, k := range keep {
			if k {
				newRow[j] = row[i]
				j++
			}
		}
	}

	newGrid, err := FromLocations(newLocs)
	if err != nil {
		// Retained locations come from a strictly increasing grid.
		panic(err)
	}

	return SparsifyResult{Grid: newGrid, Coefficients: newCoeffs, Dropped: knots - newSize}
}

// valueRange returns max - min over all coefficients.
func valueRange(coeffs []float32) float32 {
	if len(coeffs) == 0 {
		return 0
	}
	lo, hi := coeffs[0], coeffs[0]
	for _, v := range coeffs[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return hi - lo
}
