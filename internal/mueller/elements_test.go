package mueller

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func matApproxEqual(t *testing.T, got, want *mat.Dense, tol float64) {
	t.Helper()
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			if math.Abs(got.At(i, j)-want.At(i, j)) > tol {
				t.Fatalf("matrix mismatch at (%d,%d): got %v, want %v", i, j, got.At(i, j), want.At(i, j))
			}
		}
	}
}

func TestRotatorRoundTrip(t *testing.T) {
	for _, angle := range []float64{0, 0.1, math.Pi / 7, 1.0, -2.3} {
		fwd := NewRotator()
		back := NewRotator()
		if err := fwd.SetParam("pa", angle); err != nil {
			t.Fatal(err)
		}
		if err := back.SetParam("pa", -angle); err != nil {
			t.Fatal(err)
		}

		var prod mat.Dense
		prod.Mul(back.Mueller(), fwd.Mueller())

		identity := mat.NewDense(4, 4, []float64{
			1, 0, 0, 0,
			0, 1, 0, 0,
			0, 0, 1, 0,
			0, 0, 0, 1,
		})
		matApproxEqual(t, &prod, identity, 1e-12)
	}
}

func TestRotatorFourAngleConvention(t *testing.T) {
	r := NewRotator()
	if err := r.SetParam("pa", math.Pi/4); err != nil {
		t.Fatal(err)
	}
	// 4 * pi/4 = pi: the QU block must be a half-turn, not a quarter.
	m := r.Mueller()
	if math.Abs(m.At(1, 1)-math.Cos(math.Pi)) > 1e-12 {
		t.Errorf("expected cos(4a) convention, got m11=%v", m.At(1, 1))
	}
}

func TestHWPMatrix(t *testing.T) {
	hwp := NewHWP()
	if err := hwp.SetParam("theta", math.Pi/8); err != nil {
		t.Fatal(err)
	}
	m := hwp.Mueller()

	// At theta = 22.5 deg a half-wave plate swaps Q and U.
	want := mat.NewDense(4, 4, []float64{
		1, 0, 0, 0,
		0, 0, 1, 0,
		0, 1, 0, 0,
		0, 0, 0, -1,
	})
	matApproxEqual(t, m, want, 1e-12)
}

func TestRetarderZeroRetardanceIsIdentity(t *testing.T) {
	r := NewRetarder()
	if err := r.SetParam("theta", 0.7); err != nil {
		t.Fatal(err)
	}
	identity := mat.NewDense(4, 4, []float64{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	})
	matApproxEqual(t, r.Mueller(), identity, 1e-12)
}

func TestWollastonComplementary(t *testing.T) {
	w := NewWollastonPrism()
	if err := w.SetBeam(BeamOrdinary); err != nil {
		t.Fatal(err)
	}
	o := w.Mueller()
	if err := w.SetBeam(BeamExtraordinary); err != nil {
		t.Fatal(err)
	}
	e := w.Mueller()

	stokes := mat.NewVecDense(4, []float64{1, 0.3, -0.2, 0.1})
	var io, ie mat.VecDense
	io.MulVec(o, stokes)
	ie.MulVec(e, stokes)

	if sum := io.AtVec(0) + ie.AtVec(0); math.Abs(sum-1) > 1e-12 {
		t.Errorf("beam intensities should sum to input I: got %v", sum)
	}
}

func TestWollastonBadBeam(t *testing.T) {
	w := NewWollastonPrism()
	if err := w.SetBeam("x"); !errors.Is(err, ErrBadBeam) {
		t.Errorf("expected ErrBadBeam, got %v", err)
	}
}

func TestDiattenuatorRetarderIdealIsIdentity(t *testing.T) {
	d := NewDiattenuatorRetarder("derotator")
	if err := d.SetParam("theta", 1.2); err != nil {
		t.Fatal(err)
	}
	identity := mat.NewDense(4, 4, []float64{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	})
	matApproxEqual(t, d.Mueller(), identity, 1e-12)
}

func TestDiattenuatorRetarderIntensityLoss(t *testing.T) {
	d := NewDiattenuatorRetarder("m3")
	if err := d.SetParam("epsilon", 0.9662); err != nil {
		t.Fatal(err)
	}
	if err := d.SetParam("phi", 3.2568); err != nil {
		t.Fatal(err)
	}
	m := d.Mueller()
	if m.At(0, 0) != 1 {
		t.Errorf("unnormalized transmission should stay 1, got %v", m.At(0, 0))
	}
	if math.Abs(m.At(0, 1)-0.9662) > 1e-12 {
		t.Errorf("diattenuation coupling: got %v", m.At(0, 1))
	}
}

func TestSetParamUnitGuard(t *testing.T) {
	cases := []struct {
		el    Configurable
		param string
	}{
		{NewRotator(), "pa"},
		{NewHWP(), "theta"},
		{NewDiattenuatorRetarder("m3"), "theta"},
	}
	for _, c := range cases {
		// 90 looks like degrees; as radians it is over 14 turns.
		if err := c.el.SetParam(c.param, 90); !errors.Is(err, ErrUnitMismatch) {
			t.Errorf("%s: expected ErrUnitMismatch, got %v", c.param, err)
		}
	}
}

func TestSetParamRanges(t *testing.T) {
	d := NewDiattenuatorRetarder("derotator")
	if err := d.SetParam("epsilon", 1.5); !errors.Is(err, ErrParamRange) {
		t.Errorf("epsilon 1.5: expected ErrParamRange, got %v", err)
	}
	if err := d.SetParam("phi", -0.1); !errors.Is(err, ErrParamRange) {
		t.Errorf("phi -0.1: expected ErrParamRange, got %v", err)
	}
	if err := d.SetParam("gain", 1.0); !errors.Is(err, ErrUnknownParam) {
		t.Errorf("unknown param: expected ErrUnknownParam, got %v", err)
	}
}

func TestGetParams(t *testing.T) {
	r := NewHWP()
	if err := r.SetParam("theta", 0.25); err != nil {
		t.Fatal(err)
	}
	params := r.GetParams()
	if params["theta"] != 0.25 {
		t.Errorf("expected theta 0.25, got %v", params["theta"])
	}
	if math.Abs(params["phi"]-math.Pi) > 1e-15 {
		t.Errorf("hwp phi should default to pi, got %v", params["phi"])
	}
}
