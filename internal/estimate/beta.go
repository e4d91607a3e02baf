package estimate

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// BetaQuantile returns the q-quantile of Beta(alpha, beta).
// Invalid shapes return NaN rather than panicking.
func BetaQuantile(q, alpha, beta float64) float64 {
	if !validShape(alpha, beta) || q < 0 || q > 1 || math.IsNaN(q) {
		return math.NaN()
	}
	return distuv.Beta{Alpha: alpha, Beta: beta}.Quantile(q)
}

// BetaCDF returns P(X <= x) for X ~ Beta(alpha, beta), with x outside [0,1] saturating
func BetaCDF(x, alpha, beta float64) float64 {
	if !validShape(alpha, beta) {
		return math.NaN()
	}
	if x <= 0 {
		return 0
	}
	if x >= 1 {
		return 1
	}
	return distuv.Beta{Alpha: alpha, Beta: beta}.CDF(x)
}

// BetaMode returns the density maximum of Beta(alpha, beta) on [0,1].
// Shapes without an interior mode resolve to the boundary with the larger density.
func BetaMode(alpha, beta float64) float64 {
	switch {
	case alpha > 1 && beta > 1:
		return (alpha - 1) / (alpha + beta - 2)
	case alpha <= 1 && beta > 1:
		return 0
	case beta <= 1 && alpha > 1:
		return 1
	case alpha == beta:
		return 0.5
	case alpha < beta:
		return 0
	default:
		return 1
	}
}

// shape converts a proportion and pseudo-count into Beta parameters
func shape(p, n, smoothing float64) (alpha, beta float64) {
	return p*n + smoothing, (1-p)*n + smoothing
}

func validShape(alpha, beta float64) bool {
	return alpha > 0 && beta > 0 && !math.IsInf(alpha, 0) && !math.IsInf(beta, 0)
}

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}
