package calib

import "math"

// The optimizer is unconstrained, so the box bounds (diattenuation in [0, 1],
// retardance in [0, 2π]) are enforced through a logistic reparameterization:
// the fit runs in an unbounded variable z while the model only ever sees
// values strictly inside the box.

type interval struct {
	lo, hi float64
}

var fitBounds = [4]interval{
	{0, 1},
	{0, 2 * math.Pi},
	{0, 1},
	{0, 2 * math.Pi},
}

func squash(z float64, b interval) float64 {
	return b.lo + (b.hi-b.lo)/(1+math.Exp(-z))
}

func unsquash(v float64, b interval) float64 {
	p := (v - b.lo) / (b.hi - b.lo)
	// Keep the logit finite for guesses on or beyond the box edge.
	if p < 1e-9 {
		p = 1e-9
	}
	if p > 1-1e-9 {
		p = 1 - 1e-9
	}
	return math.Log(p / (1 - p))
}

func toUnbounded(p Params) []float64 {
	return []float64{
		unsquash(p.DerotatorDiattenuation, fitBounds[0]),
		unsquash(p.DerotatorRetardance, fitBounds[1]),
		unsquash(p.MirrorDiattenuation, fitBounds[2]),
		unsquash(p.MirrorRetardance, fitBounds[3]),
	}
}

func fromUnbounded(z []float64) Params {
	return Params{
		DerotatorDiattenuation: squash(z[0], fitBounds[0]),
		DerotatorRetardance:    squash(z[1], fitBounds[1]),
		MirrorDiattenuation:    squash(z[2], fitBounds[2]),
		MirrorRetardance:       squash(z[3], fitBounds[3]),
	}
}
