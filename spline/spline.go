// Copyright 2026 The DeepSplines Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package spline exposes the numeric core of the learnable activation
// engine: knot grids, coefficient initialization policies, the TV/BV
// regularization terms and the sparsification pass.
//
// Most users only need Options to configure nn.SplineActivation layers;
// the rest of the package serves tooling that inspects or transforms
// trained activations directly.
package spline

import (
	"github.com/rohanarrancherry/DeepSplines/internal/spline"
)

// Mode identifies the kind of layer an activation follows.
type Mode = spline.Mode

// Activation modes.
const (
	ModeConv Mode = spline.ModeConv
	ModeFC   Mode = spline.ModeFC
)

// InitName selects a coefficient initialization policy.
type InitName = spline.InitName

// Initialization policies.
const (
	InitLeakyReLU InitName = spline.InitLeakyReLU
	InitReLU      InitName = spline.InitReLU
	InitEvenOdd   InitName = spline.InitEvenOdd
)

// State tracks the lifecycle of an activation layer.
type State = spline.State

// Lifecycle states, with one-way transitions.
const (
	StateTraining   State = spline.StateTraining
	StateEvaluating State = spline.StateEvaluating
	StateSparsified State = spline.StateSparsified
)

// Options configures one activation site.
type Options = spline.Options

// Grid holds the ordered knot locations of one activation layer.
type Grid = spline.Grid

// NewGrid builds a uniform grid spanning [-halfRange, +halfRange].
func NewGrid(halfRange, step float64) (*Grid, error) {
	return spline.NewGrid(halfRange, step)
}

// FromLocations builds a grid from explicit, strictly increasing knot
// locations.
func FromLocations(locs []float32) (*Grid, error) {
	return spline.FromLocations(locs)
}

// Init holds initial parameter values for one activation site.
type Init = spline.Init

// InitialValues computes initial coefficients and linear-term parameters
// for the given policy.
func InitialValues(init InitName, grid *Grid, channels int, explicitLinear bool) (Init, error) {
	return spline.InitialValues(init, grid, channels, explicitLinear)
}

// TV computes the total-variation penalty of a coefficient matrix and its
// subgradient.
func TV(coeffs []float32, channels, knots int) (float64, []float32) {
	return spline.TV(coeffs, channels, knots)
}

// BV computes the bounded-variation penalty of a coefficient matrix and its
// subgradient.
func BV(coeffs []float32, channels, knots int) (float64, []float32) {
	return spline.BV(coeffs, channels, knots)
}

// SparsifyResult is the outcome of a sparsification pass.
type SparsifyResult = spline.SparsifyResult

// Sparsify drops knots whose removal leaves every channel's function
// unchanged within the slope threshold.
func Sparsify(grid *Grid, coeffs []float32, channels int, threshold float32) SparsifyResult {
	return spline.Sparsify(grid, coeffs, channels, threshold)
}

// Sentinel errors.
var (
	ErrBadGrid       = spline.ErrBadGrid
	ErrUnknownInit   = spline.ErrUnknownInit
	ErrShapeMismatch = spline.ErrShapeMismatch
	ErrDegenerate    = spline.ErrDegenerate
)
