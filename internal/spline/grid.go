package spline

import (
	"math"
	"sort"

	"github.com/pkg/errors"
)

// divisibilityTol is the relative tolerance used when checking that the
// step evenly divides the grid span.
const divisibilityTol = 1e-6

// Grid holds the ordered knot locations of one activation layer. All
// channels of the layer share the same grid. Freshly constructed grids
// are uniform and symmetric around zero; sparsification may leave a
// non-uniform grid behind.
type Grid struct {
	locs    []float32
	step    float64 // spacing, valid only while uniform
	uniform bool
}

// NewGrid builds a uniform grid spanning [-halfRange, +halfRange] with the
// given step. Construction fails when the step does not evenly divide the
// span within tolerance.
func NewGrid(halfRange, step float64) (*Grid, error) {
	if halfRange <= 0 {
		return nil, errors.Wrapf(ErrBadGrid, "half-range %v must be > 0", halfRange)
	}
	if step <= 0 {
		return nil, errors.Wrapf(ErrBadGrid, "step %v must be > 0", step)
	}

	ratio := 2 * halfRange / step
	segments := math.Round(ratio)
	if math.Abs(ratio-segments) > divisibilityTol*math.Max(1, ratio) {
		return nil, errors.Wrapf(ErrBadGrid, "step %v does not evenly divide span %v", step, 2*halfRange)
	}

	size := int(segments) + 1
	locs := make([]float32, size)
	for i := range locs {
		locs[i] = float32(-halfRange + float64(i)*step)
	}
	// Pin the endpoints so the grid is exactly symmetric.
	locs[0] = float32(-halfRange)
	locs[size-1] = float32(halfRange)

	return &Grid{locs: locs, step: step, uniform: true}, nil
}

// FromLocations builds a grid from explicit, strictly increasing knot
// locations. Used by the sparsification pass to re-anchor a layer's grid.
func FromLocations(locs []float32) (*Grid, error) {
	if len(locs) < 2 {
		return nil, errors.Wrapf(ErrBadGrid, "need at least 2 knots, got %d", len(locs))
	}
	for i := 1; i < len(locs); i++ {
		if locs[i] <= locs[i-1] {
			return nil, errors.Wrapf(ErrBadGrid, "locations not strictly increasing at index %d", i)
		}
	}
	out := make([]float32, len(locs))
	copy(out, locs)
	return &Grid{locs: out, uniform: false}, nil
}

// Size returns the number of knots.
func (g *Grid) Size() int {
	return len(g.locs)
}

// Locations returns the knot locations. The returned slice is shared;
// callers must not mutate it.
func (g *Grid) Locations() []float32 {
	return g.locs
}

// Uniform reports whether the knots are evenly spaced.
func (g *Grid) Uniform() bool {
	return g.uniform
}

// Step returns the knot spacing of a uniform grid, 0 otherwise.
func (g *Grid) Step() float64 {
	if !g.uniform {
		return 0
	}
	return g.step
}

// Width returns the length of segment i (between knots i and i+1).
func (g *Grid) Width(i int) float32 {
	return g.locs[i+1] - g.locs[i]
}

// Segment locates the knot interval for input x. It returns the segment
// index i in [0, Size()-2] and the interpolation fraction
// (x - loc[i]) / (loc[i+1] - loc[i]).
//
// Inputs outside the grid clamp to the boundary segment; the fraction then
// falls outside [0, 1], which makes interpolation along the boundary
// segment a linear extrapolation using that segment's slope.
func (g *Grid) Segment(x float32) (int, float32) {
	last := len(g.locs) - 2

	var i int
	if g.uniform {
		i = int(math.Floor((float64(x) - float64(g.locs[0])) / g.step))
	} else {
		// Largest i with locs[i] <= x.
		i = sort.Search(len(g.locs), func(j int) bool { return g.locs[j] > x }) - 1
	}
	if i < 0 {
		i = 0
	} else if i > last {
		i = last
	}

	return i, (x - g.locs[i]) / g.Width(i)
}
