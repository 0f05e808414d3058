// Package export renders sweep and track series to image files.
package export

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/nrozek/polsim/internal/sky"
	"github.com/nrozek/polsim/internal/track"
)

// XYSeries is one labeled point set for a scatter plot.
type XYSeries struct {
	Label string
	XYs   plotter.XYs
}

// Scatter writes a scatter plot of the given series. The output format
// follows the file extension (.png, .svg, .pdf).
func Scatter(path, title, xlabel, ylabel string, series []XYSeries) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xlabel
	p.Y.Label.Text = ylabel
	p.Legend.Top = true
	p.Legend.Left = true

	for _, s := range series {
		sc, err := plotter.NewScatter(s.XYs)
		if err != nil {
			return fmt.Errorf("scatter %q: %w", s.Label, err)
		}
		sc.GlyphStyle.Radius = vg.Points(1)
		p.Add(sc)
		if s.Label != "" {
			p.Legend.Add(s.Label, sc)
		}
	}

	return p.Save(8*vg.Inch, 6*vg.Inch, path)
}

// TrackAxis selects the x coordinate of a track plot.
type TrackAxis int

const (
	ByHourAngle TrackAxis = iota
	ByParallactic
)

// TrackPlot writes one track figure: every series at the given HWP setting,
// against the chosen x axis in degrees.
func TrackPlot(path string, series []track.Series, hwp float64, axis TrackAxis) error {
	xlabel := "Hour angle (deg)"
	if axis == ByParallactic {
		xlabel = "Parallactic angle (deg)"
	}
	title := fmt.Sprintf("Beam difference, HWP at %.1f deg", sky.Degrees(hwp))

	var labeled []XYSeries
	for _, s := range series {
		if s.HWP != hwp {
			continue
		}
		xys := make(plotter.XYs, len(s.Points))
		for i, pt := range s.Points {
			x := pt.HourAngle
			if axis == ByParallactic {
				x = pt.Parallactic
			}
			xys[i].X = sky.Degrees(x)
			xys[i].Y = pt.Diff
		}
		labeled = append(labeled, XYSeries{Label: s.Target.Name, XYs: xys})
	}
	if len(labeled) == 0 {
		return fmt.Errorf("no series at hwp %.4f rad", hwp)
	}

	return Scatter(path, title, xlabel, "I+ minus I-", labeled)
}

// SweepPlot writes the HWP sweep figure: beam difference against plate angle
// in degrees.
func SweepPlot(path string, angles, diffs []float64) error {
	xys := make(plotter.XYs, len(angles))
	for i := range angles {
		xys[i].X = sky.Degrees(angles[i])
		xys[i].Y = diffs[i]
	}
	return Scatter(path, "Beam difference over HWP angle", "HWP angle (deg)", "I+ minus I-",
		[]XYSeries{{XYs: xys}})
}
