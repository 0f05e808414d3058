// Package track sweeps fixed targets across hour angle, recording the
// dual-beam difference the instrument would see as the sky rotates.
package track

import (
	"errors"
	"fmt"

	"github.com/nrozek/polsim/internal/polarimeter"
	"github.com/nrozek/polsim/internal/sky"
)

var ErrBadStep = errors.New("sweep step must be positive")

// FixedTarget is a track subject: a starting hour angle and declination,
// both radians.
type FixedTarget struct {
	Name      string
	HourAngle float64
	Dec       float64
}

// Point is one sweep sample. Angles in radians, Diff in input-intensity
// units.
type Point struct {
	HourAngle   float64
	Parallactic float64
	Altitude    float64
	Diff        float64
}

// Series is the track of one target at one HWP setting.
type Series struct {
	Target FixedTarget
	HWP    float64
	Points []Point
}

// The probe state is fully Q-polarized light, so the beam difference traces
// how the instrument rotates the linear polarization frame.
var probe = polarimeter.StokesVector{Q: 1}

// Sweep marches each target's hour angle over span in step increments
// (radians) for every HWP setting, evaluating the forward model at the
// corresponding parallactic angle and third-mirror altitude.
func Sweep(p *polarimeter.Polarimeter, site sky.Site, targets []FixedTarget,
	hwpAngles []float64, span, step float64) ([]Series, error) {
	if step <= 0 {
		return nil, fmt.Errorf("%w: got %v", ErrBadStep, step)
	}
	if span < step {
		return nil, fmt.Errorf("%w: span %v smaller than step", ErrBadStep, span)
	}

	out := make([]Series, 0, len(hwpAngles)*len(targets))
	for _, hwp := range hwpAngles {
		if err := p.SetHWPAngle(hwp); err != nil {
			return nil, err
		}
		for _, t := range targets {
			n := int(span/step) + 1
			s := Series{Target: t, HWP: hwp, Points: make([]Point, 0, n)}
			for ha := t.HourAngle; ha <= t.HourAngle+span; ha += step {
				pa := site.ParallacticAngle(ha, t.Dec)
				alt := site.Altitude(ha, t.Dec)
				if err := p.SetParallacticAngle(pa); err != nil {
					return nil, err
				}
				if err := p.SetM3Altitude(alt); err != nil {
					return nil, err
				}
				s.Points = append(s.Points, Point{
					HourAngle:   ha,
					Parallactic: pa,
					Altitude:    alt,
					Diff:        p.BeamDifference(probe),
				})
			}
			out = append(out, s)
		}
	}
	return out, nil
}
