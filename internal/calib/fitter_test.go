package calib

import (
	"errors"
	"math"
	"testing"

	"github.com/nrozek/polsim/internal/sky"
)

func totalError(p Params) float64 {
	return p.DerotatorDiattenuation + p.DerotatorRetardance +
		p.MirrorDiattenuation + p.MirrorRetardance
}

func TestNoiselessRecovery(t *testing.T) {
	f := NewFitter(sky.Keck(), sky.Standards())

	res, err := f.Run()
	if err != nil {
		t.Fatal(err)
	}

	if len(res.PerAngle) != len(f.HWPAngles) {
		t.Fatalf("expected %d per-angle estimates, got %d", len(f.HWPAngles), len(res.PerAngle))
	}
	pct := res.PercentError
	for name, v := range map[string]float64{
		"derotator diattenuation": pct.DerotatorDiattenuation,
		"derotator retardance":    pct.DerotatorRetardance,
		"mirror diattenuation":    pct.MirrorDiattenuation,
		"mirror retardance":       pct.MirrorRetardance,
	} {
		if v > 0.1 {
			t.Errorf("%s: %.4f%% error on noiseless data", name, v)
		}
	}
}

func TestFittedValuesWithinBounds(t *testing.T) {
	f := NewFitter(sky.Keck(), sky.Standards())
	f.SNR = 10
	f.Seed = 3

	res, err := f.Run()
	if err != nil {
		t.Fatal(err)
	}
	for _, est := range append(res.PerAngle, res.Fitted) {
		if est.DerotatorDiattenuation < 0 || est.DerotatorDiattenuation > 1 ||
			est.MirrorDiattenuation < 0 || est.MirrorDiattenuation > 1 {
			t.Errorf("diattenuation escaped [0,1]: %+v", est)
		}
		if est.DerotatorRetardance < 0 || est.DerotatorRetardance > 2*math.Pi ||
			est.MirrorRetardance < 0 || est.MirrorRetardance > 2*math.Pi {
			t.Errorf("retardance escaped [0,2pi]: %+v", est)
		}
	}
}

func TestErrorShrinksWithSNR(t *testing.T) {
	run := func(snr float64, seed int64) float64 {
		f := NewFitter(sky.Keck(), sky.Standards())
		f.SNR = snr
		f.Seed = seed
		res, err := f.Run()
		if err != nil {
			t.Fatal(err)
		}
		return totalError(res.PercentError)
	}

	seeds := []int64{11, 23, 47}
	noisy, clean := 0.0, 0.0
	for _, seed := range seeds {
		noisy += run(20, seed)
		clean += run(1000, seed)
	}
	noisy /= float64(len(seeds))
	clean /= float64(len(seeds))

	if clean >= noisy {
		t.Errorf("mean error at SNR 1000 (%.3f%%) should beat SNR 20 (%.3f%%)", clean, noisy)
	}
}

func TestSeedReproducibility(t *testing.T) {
	run := func() Params {
		f := NewFitter(sky.Keck(), sky.Standards())
		f.SNR = 50
		f.Seed = 99
		res, err := f.Run()
		if err != nil {
			t.Fatal(err)
		}
		return res.Fitted
	}
	a, b := run(), run()
	if a != b {
		t.Errorf("same seed should reproduce the fit: %+v vs %+v", a, b)
	}
}

func TestRunValidation(t *testing.T) {
	f := NewFitter(sky.Keck(), nil)
	if _, err := f.Run(); !errors.Is(err, ErrNoTargets) {
		t.Errorf("expected ErrNoTargets, got %v", err)
	}

	f = NewFitter(sky.Keck(), sky.Standards())
	f.HWPAngles = nil
	if _, err := f.Run(); !errors.Is(err, ErrNoTargets) {
		t.Errorf("expected wrapped ErrNoTargets for empty HWP list, got %v", err)
	}
}

func TestBoundsTransformRoundTrip(t *testing.T) {
	in := Params{
		DerotatorDiattenuation: 0.9662,
		DerotatorRetardance:    sky.Radians(186.6),
		MirrorDiattenuation:    0.9761,
		MirrorRetardance:       sky.Radians(186.6),
	}
	out := fromUnbounded(toUnbounded(in))
	if math.Abs(out.DerotatorDiattenuation-in.DerotatorDiattenuation) > 1e-9 ||
		math.Abs(out.DerotatorRetardance-in.DerotatorRetardance) > 1e-9 ||
		math.Abs(out.MirrorDiattenuation-in.MirrorDiattenuation) > 1e-9 ||
		math.Abs(out.MirrorRetardance-in.MirrorRetardance) > 1e-9 {
		t.Errorf("round trip drifted: %+v -> %+v", in, out)
	}
}

func TestSquashStaysInBox(t *testing.T) {
	for _, z := range []float64{-50, -1, 0, 1, 50} {
		v := squash(z, fitBounds[0])
		if v < 0 || v > 1 {
			t.Errorf("squash(%v) = %v escaped [0,1]", z, v)
		}
	}
}
