// Package polarimeter assembles the dual-channel instrument and provides its
// forward model: the two Wollaston beam intensities produced by an on-sky
// Stokes vector.
package polarimeter

import (
	"gonum.org/v1/gonum/mat"

	"github.com/nrozek/polsim/internal/mueller"
)

// StokesVector is the (I, Q, U, V) description of a light state. Values, not
// references: callers never see another caller's mutations.
type StokesVector struct {
	I, Q, U, V float64
}

func (s StokesVector) vec() *mat.VecDense {
	return mat.NewVecDense(4, []float64{s.I, s.Q, s.U, s.V})
}

// Polarimeter is the instrument train, sky to detector: parallactic
// compensator, third mirror, rotatable HWP, derotator, Wollaston prism.
// A fresh instrument is ideal: both reflecting elements have zero
// diattenuation and zero retardance, so only the rotator, HWP and Wollaston
// act on the beam.
type Polarimeter struct {
	rotator   *mueller.Rotator
	m3        *mueller.DiattenuatorRetarder
	hwp       *mueller.Retarder
	derotator *mueller.DiattenuatorRetarder
	wollaston *mueller.WollastonPrism
	train     *mueller.Train
}

func New() *Polarimeter {
	p := &Polarimeter{
		rotator:   mueller.NewRotator(),
		m3:        mueller.NewDiattenuatorRetarder("m3"),
		hwp:       mueller.NewHWP(),
		derotator: mueller.NewDiattenuatorRetarder("derotator"),
		wollaston: mueller.NewWollastonPrism(),
	}
	tr, err := mueller.NewTrain(p.rotator, p.m3, p.hwp, p.derotator, p.wollaston)
	if err != nil {
		panic(err) // five elements, cannot be empty
	}
	p.train = tr
	return p
}

// SetHWPAngle sets the half-wave plate fast axis angle, radians.
func (p *Polarimeter) SetHWPAngle(theta float64) error {
	return p.hwp.SetParam("theta", theta)
}

// SetParallacticAngle sets the compensator rotation, radians.
func (p *Polarimeter) SetParallacticAngle(pa float64) error {
	return p.rotator.SetParam("pa", pa)
}

// SetM3Altitude orients the third mirror to the telescope altitude, radians.
func (p *Polarimeter) SetM3Altitude(alt float64) error {
	return p.m3.SetParam("theta", alt)
}

// SetDerotator sets the derotator diattenuation and retardance.
func (p *Polarimeter) SetDerotator(epsilon, phi float64) error {
	if err := p.derotator.SetParam("epsilon", epsilon); err != nil {
		return err
	}
	return p.derotator.SetParam("phi", phi)
}

// SetM3 sets the third mirror diattenuation and retardance.
func (p *Polarimeter) SetM3(epsilon, phi float64) error {
	if err := p.m3.SetParam("epsilon", epsilon); err != nil {
		return err
	}
	return p.m3.SetParam("phi", phi)
}

func (p *Polarimeter) system(beam mueller.Beam) *mat.Dense {
	if err := p.wollaston.SetBeam(beam); err != nil {
		panic(err) // callers pass the package constants
	}
	return p.train.Evaluate()
}

// Simulate evaluates the train for both Wollaston beams and returns the two
// detected intensities.
func (p *Polarimeter) Simulate(s StokesVector) (ipos, ineg float64) {
	var out mat.VecDense
	out.MulVec(p.system(mueller.BeamOrdinary), s.vec())
	ipos = out.AtVec(0)
	out.MulVec(p.system(mueller.BeamExtraordinary), s.vec())
	ineg = out.AtVec(0)
	return ipos, ineg
}

// BeamDifference is the dual-channel observable I+ - I-.
func (p *Polarimeter) BeamDifference(s StokesVector) float64 {
	ipos, ineg := p.Simulate(s)
	return ipos - ineg
}

// ResponseRow sets the HWP and parallactic angles, then returns the first row
// of the evaluated system matrix: the linear map from a Stokes vector to the
// intensity seen in the given beam. The inverse solver stacks these rows into
// its design matrix.
func (p *Polarimeter) ResponseRow(beam mueller.Beam, hwp, pa float64) ([]float64, error) {
	if err := p.SetHWPAngle(hwp); err != nil {
		return nil, err
	}
	if err := p.SetParallacticAngle(pa); err != nil {
		return nil, err
	}
	m := p.system(beam)
	row := make([]float64, 4)
	mat.Row(row, 0, m)
	return row, nil
}
