// Package spline implements the numeric core of learnable piecewise-linear
// activation functions: the knot grid, coefficient initialization policies,
// total-variation regularization terms and the post-training sparsification
// pass.
//
// The package is deliberately free of autodiff and module machinery; the
// autodiff ops and nn layers build on these primitives.
package spline

import (
	"github.com/pkg/errors"
)

// Mode identifies the kind of layer an activation follows.
type Mode string

// Supported activation modes.
const (
	ModeConv Mode = "conv" // 4D inputs [N, C, H, W], one function per channel
	ModeFC   Mode = "fc"   // 2D inputs [N, F], one function per feature
)

// InitName selects a coefficient initialization policy.
type InitName string

// Supported initialization policies.
const (
	InitLeakyReLU InitName = "leaky_relu"
	InitReLU      InitName = "relu"
	InitEvenOdd   InitName = "even_odd"
)

// State tracks the lifecycle of an activation. Transitions are one-way:
// training -> evaluating -> sparsified.
type State int

// Lifecycle states.
const (
	StateTraining State = iota
	StateEvaluating
	StateSparsified
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateTraining:
		return "training"
	case StateEvaluating:
		return "evaluating"
	case StateSparsified:
		return "sparsified"
	default:
		return "unknown"
	}
}

// Sentinel errors for the taxonomy in the design: configuration errors and
// shape mismatches are fatal and surfaced to the caller; degenerate
// operations are recoverable no-ops.
var (
	ErrBadGrid       = errors.New("spline: invalid knot grid configuration")
	ErrUnknownInit   = errors.New("spline: unknown initialization")
	ErrShapeMismatch = errors.New("spline: coefficient/grid shape mismatch")
	ErrDegenerate    = errors.New("spline: degenerate operation")
)

// Options configures one activation site. It is passed explicitly at
// construction; there is no process-wide configuration state.
type Options struct {
	Mode     Mode     // layer kind the activation follows
	Channels int      // number of independent activation functions
	Range    float64  // half-range R: knots span [-R, +R]
	Step     float64  // knot spacing
	Init     InitName // coefficient initialization policy

	// ExplicitLinear adds a learnable per-channel (bias, slope) linear term
	// on top of the spline output.
	ExplicitLinear bool
	// LearnBias controls whether the linear-term bias is trainable.
	// Ignored unless ExplicitLinear is set.
	LearnBias bool
}

// Validate checks the configuration.
func (o Options) Validate() error {
	if o.Mode != ModeConv && o.Mode != ModeFC {
		return errors.Wrapf(ErrBadGrid, "mode %q", o.Mode)
	}
	if o.Channels <= 0 {
		return errors.Wrapf(ErrBadGrid, "channels %d", o.Channels)
	}
	switch o.Init {
	case InitLeakyReLU, InitReLU, InitEvenOdd:
	default:
		return errors.Wrapf(ErrUnknownInit, "%q", o.Init)
	}
	return nil
}
