// Package solver recovers an on-sky Stokes vector from dual-beam intensity
// measurements by least squares.
package solver

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/nrozek/polsim/internal/mueller"
	"github.com/nrozek/polsim/internal/polarimeter"
)

var (
	// ErrTooFewSamples: the 2n x 4 design matrix needs at least 4 rows.
	ErrTooFewSamples = errors.New("need at least 2 measurement samples")

	// ErrDegenerateSystem: the sampled geometry does not determine I, Q, U.
	ErrDegenerateSystem = errors.New("design matrix is degenerate")
)

// Sample is one dual-beam measurement: the two Wollaston intensities and the
// HWP and parallactic angles (radians) they were taken at.
type Sample struct {
	IPos        float64
	INeg        float64
	HWP         float64
	Parallactic float64
}

// Singular values below rcond times the largest are treated as zero when
// ranking the design matrix.
const rcond = 1e-10

// minRank is the number of Stokes components the ideal instrument can
// constrain. The HWP + rotator train is structurally blind to V (the fourth
// design column is identically zero), so demanding full column rank would
// reject every valid geometry; rank 3 determines I, Q, U and the minimum-norm
// solution pins the unconstrained V at zero.
const minRank = 3

// Solve builds the stacked response-row system for the given instrument and
// measurements and returns the least-squares Stokes vector. The solve is a
// rank-revealing SVD rather than the normal-equation inverse: near-singular
// geometries surface as ErrDegenerateSystem instead of NaNs.
func Solve(p *polarimeter.Polarimeter, samples []Sample) (polarimeter.StokesVector, error) {
	var none polarimeter.StokesVector
	if len(samples) < 2 {
		return none, fmt.Errorf("%w: got %d", ErrTooFewSamples, len(samples))
	}

	rows := 2 * len(samples)
	a := mat.NewDense(rows, 4, nil)
	b := make([]float64, rows)
	for i, s := range samples {
		ro, err := p.ResponseRow(mueller.BeamOrdinary, s.HWP, s.Parallactic)
		if err != nil {
			return none, err
		}
		re, err := p.ResponseRow(mueller.BeamExtraordinary, s.HWP, s.Parallactic)
		if err != nil {
			return none, err
		}
		a.SetRow(2*i, ro)
		a.SetRow(2*i+1, re)
		b[2*i] = s.IPos
		b[2*i+1] = s.INeg
	}

	x, err := lstsq(a, b)
	if err != nil {
		return none, err
	}
	return polarimeter.StokesVector{I: x[0], Q: x[1], U: x[2], V: x[3]}, nil
}

// lstsq solves min ||a x - b|| via thin SVD, zeroing singular values below
// the rank threshold and back-substituting the minimum-norm solution.
func lstsq(a *mat.Dense, b []float64) ([]float64, error) {
	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDThin); !ok {
		return nil, fmt.Errorf("%w: SVD failed to converge", ErrDegenerateSystem)
	}

	vals := svd.Values(nil)
	rank := 0
	for _, s := range vals {
		if s > rcond*vals[0] {
			rank++
		}
	}
	if rank < minRank {
		return nil, fmt.Errorf("%w: rank %d < %d, vary the HWP or parallactic angle across samples",
			ErrDegenerateSystem, rank, minRank)
	}

	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	// x = V Σ⁺ Uᵀ b over the retained singular values.
	m, _ := u.Dims()
	w := make([]float64, rank)
	for j := 0; j < rank; j++ {
		dot := 0.0
		for i := 0; i < m; i++ {
			dot += u.At(i, j) * b[i]
		}
		w[j] = dot / vals[j]
	}
	x := make([]float64, 4)
	for k := 0; k < 4; k++ {
		sum := 0.0
		for j := 0; j < rank; j++ {
			sum += v.At(k, j) * w[j]
		}
		x[k] = sum
	}
	return x, nil
}
