package polarimeter

import (
	"fmt"
	"math"
)

// SweepHWP rotates the half-wave plate through a full turn in step increments
// (radians), returning the plate angles and the beam difference at each.
func (p *Polarimeter) SweepHWP(s StokesVector, step float64) (angles, diffs []float64, err error) {
	if step <= 0 {
		return nil, nil, fmt.Errorf("sweep step must be positive, got %v", step)
	}
	n := int(2*math.Pi/step) + 1
	angles = make([]float64, 0, n)
	diffs = make([]float64, 0, n)
	for a := 0.0; a < 2*math.Pi; a += step {
		if err := p.SetHWPAngle(a); err != nil {
			return nil, nil, err
		}
		angles = append(angles, a)
		diffs = append(diffs, p.BeamDifference(s))
	}
	return angles, diffs, nil
}
