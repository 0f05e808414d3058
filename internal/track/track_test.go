package track

import (
	"errors"
	"math"
	"testing"

	"github.com/nrozek/polsim/internal/polarimeter"
	"github.com/nrozek/polsim/internal/sky"
)

func testTargets() []FixedTarget {
	return []FixedTarget{
		{Name: "A", HourAngle: sky.Radians(-20), Dec: sky.Radians(35)},
		{Name: "B", HourAngle: sky.Radians(10), Dec: sky.Radians(60)},
	}
}

func TestSweepShape(t *testing.T) {
	p := polarimeter.New()
	hwps := []float64{0, sky.Radians(22.5)}
	span := sky.Radians(45)
	step := sky.Radians(0.5)

	series, err := Sweep(p, sky.Keck(), testTargets(), hwps, span, step)
	if err != nil {
		t.Fatal(err)
	}
	if len(series) != len(hwps)*2 {
		t.Fatalf("expected %d series, got %d", len(hwps)*2, len(series))
	}
	wantPoints := int(span/step) + 1
	for _, s := range series {
		if math.Abs(float64(len(s.Points)-wantPoints)) > 1 {
			t.Errorf("series %s hwp=%v: %d points, want about %d", s.Target.Name, s.HWP, len(s.Points), wantPoints)
		}
		for _, pt := range s.Points {
			if math.Abs(pt.Diff) > 1+1e-12 {
				t.Errorf("beam difference %v exceeds probe intensity", pt.Diff)
			}
			if pt.Altitude < -math.Pi/2 || pt.Altitude > math.Pi/2 {
				t.Errorf("altitude %v out of range", pt.Altitude)
			}
		}
	}
}

func TestSweepHWPSettingChangesTrack(t *testing.T) {
	p := polarimeter.New()
	series, err := Sweep(p, sky.Keck(), testTargets()[:1],
		[]float64{0, sky.Radians(22.5)}, sky.Radians(10), sky.Radians(1))
	if err != nil {
		t.Fatal(err)
	}
	if len(series) != 2 {
		t.Fatalf("expected 2 series, got %d", len(series))
	}
	same := true
	for i := range series[0].Points {
		if math.Abs(series[0].Points[i].Diff-series[1].Points[i].Diff) > 1e-12 {
			same = false
			break
		}
	}
	if same {
		t.Error("rotating the HWP should change the track")
	}
}

func TestSweepBadStep(t *testing.T) {
	p := polarimeter.New()
	if _, err := Sweep(p, sky.Keck(), testTargets(), []float64{0}, 1, 0); !errors.Is(err, ErrBadStep) {
		t.Errorf("expected ErrBadStep, got %v", err)
	}
	if _, err := Sweep(p, sky.Keck(), testTargets(), []float64{0}, 0.001, 0.1); !errors.Is(err, ErrBadStep) {
		t.Errorf("span < step: expected ErrBadStep, got %v", err)
	}
}
