package main

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nrozek/polsim/internal/calib"
	"github.com/nrozek/polsim/internal/config"
	"github.com/nrozek/polsim/internal/export"
	"github.com/nrozek/polsim/internal/polarimeter"
	"github.com/nrozek/polsim/internal/sky"
	"github.com/nrozek/polsim/internal/solver"
	"github.com/nrozek/polsim/internal/track"
	"github.com/nrozek/polsim/internal/tui"
)

var (
	configFile string
	preset     string
	verbose    bool

	// Pointing and input state, all degrees at the CLI.
	hwpDeg  float64
	paDeg   float64
	altDeg  float64
	polFrac float64
	aolpDeg float64

	// Sweep and track geometry.
	stepDeg float64
	spanDeg float64
	haDeg   float64
	decDeg  float64
	hwpList []float64
	axis    string

	// Calibration run.
	snr   float64
	seed  int64
	iters int

	csvFile  string
	plotFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "polsim",
		Short: "dual-beam polarimeter simulation and calibration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return tui.RunInteractive()
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&preset, "preset", "", "use preset configuration")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	beamsCmd := &cobra.Command{
		Use:   "beams",
		Short: "simulate the two Wollaston beams at one setting",
		RunE:  runBeams,
	}
	beamsCmd.Flags().Float64Var(&hwpDeg, "hwp", 0, "half-wave plate angle (deg)")
	beamsCmd.Flags().Float64Var(&paDeg, "pa", 0, "parallactic angle (deg)")
	beamsCmd.Flags().Float64Var(&altDeg, "alt", 45, "telescope altitude (deg)")
	beamsCmd.Flags().Float64Var(&polFrac, "p", 1.0, "fractional linear polarization")
	beamsCmd.Flags().Float64Var(&aolpDeg, "aolp", 0, "angle of linear polarization (deg)")

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "beam difference over a full plate turn",
		RunE:  runSweep,
	}
	sweepCmd.Flags().Float64Var(&paDeg, "pa", 0, "parallactic angle (deg)")
	sweepCmd.Flags().Float64Var(&altDeg, "alt", 45, "telescope altitude (deg)")
	sweepCmd.Flags().Float64Var(&polFrac, "p", 1.0, "fractional linear polarization")
	sweepCmd.Flags().Float64Var(&aolpDeg, "aolp", 0, "angle of linear polarization (deg)")
	sweepCmd.Flags().Float64Var(&stepDeg, "step", 1, "plate step (deg)")
	sweepCmd.Flags().StringVar(&plotFile, "plot", "", "write PNG scatter plot to this path")

	recoverCmd := &cobra.Command{
		Use:   "recover",
		Short: "recover a Stokes vector from beam pairs",
		Long: `Recover the incident Stokes vector from dual-beam intensity pairs by
least squares over the forward model.

With --csv, samples are read from a file with one row per exposure:
ipos,ineg,hwp_deg,pa_deg. Without it, a synthetic sequence at the
standard plate angles is generated from --p and --aolp.`,
		RunE: runRecover,
	}
	recoverCmd.Flags().Float64Var(&paDeg, "pa", 0, "parallactic angle (deg)")
	recoverCmd.Flags().Float64Var(&altDeg, "alt", 45, "telescope altitude (deg)")
	recoverCmd.Flags().Float64Var(&polFrac, "p", 1.0, "fractional linear polarization")
	recoverCmd.Flags().Float64Var(&aolpDeg, "aolp", 0, "angle of linear polarization (deg)")
	recoverCmd.Flags().StringVar(&csvFile, "csv", "", "sample file: ipos,ineg,hwp_deg,pa_deg per row")

	trackCmd := &cobra.Command{
		Use:   "track",
		Short: "beam difference along an hour-angle track",
		RunE:  runTrack,
	}
	trackCmd.Flags().Float64Var(&haDeg, "ha", 0, "starting hour angle (deg)")
	trackCmd.Flags().Float64Var(&decDeg, "dec", 20, "declination (deg)")
	trackCmd.Flags().Float64Var(&spanDeg, "span", 60, "hour-angle span (deg)")
	trackCmd.Flags().Float64Var(&stepDeg, "step", 1, "hour-angle step (deg)")
	trackCmd.Flags().Float64SliceVar(&hwpList, "hwp", []float64{0}, "plate angles (deg)")
	trackCmd.Flags().StringVar(&axis, "axis", "ha", "plot x axis: ha or pa")
	trackCmd.Flags().StringVar(&plotFile, "plot", "", "write PNG scatter plot to this path")

	fitCmd := &cobra.Command{
		Use:   "fit",
		Short: "fit instrument parameters from the standard stars",
		RunE:  runFit,
	}
	fitCmd.Flags().Float64Var(&snr, "snr", 0, "signal to noise of synthetic exposures (0 = noiseless)")
	fitCmd.Flags().Int64Var(&seed, "seed", config.DefaultSeed, "random seed")
	fitCmd.Flags().IntVar(&iters, "iters", 200, "optimizer iteration cap")

	targetsCmd := &cobra.Command{
		Use:   "targets",
		Short: "list the calibration catalog",
		RunE:  listTargets,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range config.ListPresets() {
				fmt.Println(name)
			}
			return nil
		},
	}

	rootCmd.AddCommand(beamsCmd, sweepCmd, recoverCmd, trackCmd, fitCmd, targetsCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig resolves the effective configuration: preset first, then a
// config file on top, with defaults when neither is given.
func loadConfig() (*config.Config, error) {
	if verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}
	cfg := config.DefaultConfig()
	if preset != "" {
		p := config.GetPreset(preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
		cfg = p
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}
	return cfg, nil
}

// instrument builds the optical train from the configured derotator/M3
// values and the pointing flags.
func instrument(cfg *config.Config) (*polarimeter.Polarimeter, error) {
	truth := cfg.TruthValue()
	p := polarimeter.New()
	if err := p.SetDerotator(truth.DerotatorDiattenuation, truth.DerotatorRetardance); err != nil {
		return nil, err
	}
	if err := p.SetM3(truth.MirrorDiattenuation, truth.MirrorRetardance); err != nil {
		return nil, err
	}
	if err := p.SetM3Altitude(sky.Radians(altDeg)); err != nil {
		return nil, err
	}
	if err := p.SetParallacticAngle(sky.Radians(paDeg)); err != nil {
		return nil, err
	}
	if err := p.SetHWPAngle(sky.Radians(hwpDeg)); err != nil {
		return nil, err
	}
	return p, nil
}

func inputStokes() polarimeter.StokesVector {
	psi := sky.Radians(aolpDeg)
	return polarimeter.StokesVector{
		I: 1,
		Q: polFrac * math.Cos(2*psi),
		U: polFrac * math.Sin(2*psi),
	}
}

func runBeams(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	p, err := instrument(cfg)
	if err != nil {
		return err
	}

	in := inputStokes()
	ipos, ineg := p.Simulate(in)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "BEAM\tINTENSITY")
	fmt.Fprintf(w, "ordinary\t%+.6f\n", ipos)
	fmt.Fprintf(w, "extraordinary\t%+.6f\n", ineg)
	fmt.Fprintf(w, "difference\t%+.6f\n", ipos-ineg)
	return w.Flush()
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	p, err := instrument(cfg)
	if err != nil {
		return err
	}

	angles, diffs, err := p.SweepHWP(inputStokes(), sky.Radians(stepDeg))
	if err != nil {
		return err
	}

	fmt.Printf("beam difference over %d plate settings (pa=%.1f°, alt=%.1f°)\n\n",
		len(angles), paDeg, altDeg)
	graph := asciigraph.Plot(diffs,
		asciigraph.Height(12),
		asciigraph.Width(80),
		asciigraph.Caption("beam difference vs plate angle"),
	)
	fmt.Println(graph)

	if plotFile != "" {
		if err := export.SweepPlot(plotFile, angles, diffs); err != nil {
			return err
		}
		fmt.Printf("\nwrote %s\n", plotFile)
	}
	return nil
}

func runRecover(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	p, err := instrument(cfg)
	if err != nil {
		return err
	}

	var samples []solver.Sample
	if csvFile != "" {
		samples, err = readSamples(csvFile)
		if err != nil {
			return err
		}
	} else {
		in := inputStokes()
		pa := sky.Radians(paDeg)
		for _, theta := range cfg.HWPValues() {
			if err := p.SetHWPAngle(theta); err != nil {
				return err
			}
			ipos, ineg := p.Simulate(in)
			samples = append(samples, solver.Sample{
				IPos: ipos, INeg: ineg, HWP: theta, Parallactic: pa,
			})
		}
	}

	got, err := solver.Solve(p, samples)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STOKES\tVALUE")
	fmt.Fprintf(w, "I\t%+.6f\n", got.I)
	fmt.Fprintf(w, "Q\t%+.6f\n", got.Q)
	fmt.Fprintf(w, "U\t%+.6f\n", got.U)
	fmt.Fprintf(w, "V\t%+.6f\n", got.V)
	return w.Flush()
}

// readSamples parses one exposure per row: ipos,ineg,hwp_deg,pa_deg.
func readSamples(path string) ([]solver.Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, err
	}

	samples := make([]solver.Sample, 0, len(rows))
	for i, row := range rows {
		if len(row) != 4 {
			return nil, fmt.Errorf("row %d: expected 4 fields, got %d", i+1, len(row))
		}
		vals := make([]float64, 4)
		for j, field := range row {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", i+1, err)
			}
			vals[j] = v
		}
		samples = append(samples, solver.Sample{
			IPos:        vals[0],
			INeg:        vals[1],
			HWP:         sky.Radians(vals[2]),
			Parallactic: sky.Radians(vals[3]),
		})
	}
	return samples, nil
}

func runTrack(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	p, err := instrument(cfg)
	if err != nil {
		return err
	}

	targets := []track.FixedTarget{{
		Name:      fmt.Sprintf("dec %+.1f°", decDeg),
		HourAngle: sky.Radians(haDeg),
		Dec:       sky.Radians(decDeg),
	}}
	hwps := make([]float64, len(hwpList))
	for i, a := range hwpList {
		hwps[i] = sky.Radians(a)
	}

	series, err := track.Sweep(p, cfg.SiteValue(), targets,
		hwps, sky.Radians(spanDeg), sky.Radians(stepDeg))
	if err != nil {
		return err
	}

	for _, s := range series {
		diffs := make([]float64, len(s.Points))
		for i, pt := range s.Points {
			diffs[i] = pt.Diff
		}
		fmt.Printf("%s, plate at %.1f°\n", s.Target.Name, sky.Degrees(s.HWP))
		graph := asciigraph.Plot(diffs,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption("beam difference vs hour angle"),
		)
		fmt.Println(graph)
		fmt.Println()
	}

	if plotFile != "" {
		ax := export.ByHourAngle
		if axis == "pa" {
			ax = export.ByParallactic
		}
		if err := export.TrackPlot(plotFile, series, hwps[0], ax); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", plotFile)
	}
	return nil
}

func runFit(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	f := calib.NewFitter(cfg.SiteValue(), cfg.TargetsValue())
	f.HWPAngles = cfg.HWPValues()
	f.Truth = cfg.TruthValue()
	f.Seed = cfg.Seed
	if cfg.SNR > 0 {
		f.SNR = cfg.SNR
	}
	if cmd.Flags().Changed("snr") && snr > 0 {
		f.SNR = snr
	}
	if cmd.Flags().Changed("seed") {
		f.Seed = seed
	}
	if iters > 0 {
		f.MaxIter = iters
	}

	logrus.WithFields(logrus.Fields{
		"targets": len(f.Targets),
		"angles":  len(f.HWPAngles),
		"snr":     f.SNR,
		"seed":    f.Seed,
	}).Info("starting calibration run")

	res, err := f.Run()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PARAMETER\tTRUE\tFITTED\tERROR%")
	fmt.Fprintf(w, "derotator diattenuation\t%.4f\t%.4f\t%+.4f\n",
		f.Truth.DerotatorDiattenuation, res.Fitted.DerotatorDiattenuation, res.PercentError.DerotatorDiattenuation)
	fmt.Fprintf(w, "derotator retardance\t%.2f°\t%.2f°\t%+.4f\n",
		sky.Degrees(f.Truth.DerotatorRetardance), sky.Degrees(res.Fitted.DerotatorRetardance), res.PercentError.DerotatorRetardance)
	fmt.Fprintf(w, "M3 diattenuation\t%.4f\t%.4f\t%+.4f\n",
		f.Truth.MirrorDiattenuation, res.Fitted.MirrorDiattenuation, res.PercentError.MirrorDiattenuation)
	fmt.Fprintf(w, "M3 retardance\t%.2f°\t%.2f°\t%+.4f\n",
		sky.Degrees(f.Truth.MirrorRetardance), sky.Degrees(res.Fitted.MirrorRetardance), res.PercentError.MirrorRetardance)
	return w.Flush()
}

func listTargets(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tRA(deg)\tDEC(deg)\tPOL")
	for _, t := range cfg.TargetsValue() {
		fmt.Fprintf(w, "%s\t%.4f\t%.4f\t%.4f\n",
			t.Name, sky.Degrees(t.RA), sky.Degrees(t.Dec), t.Polarization)
	}
	return w.Flush()
}
