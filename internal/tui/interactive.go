package tui

import (
	"fmt"
	"math"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nrozek/polsim/internal/calib"
	"github.com/nrozek/polsim/internal/polarimeter"
	"github.com/nrozek/polsim/internal/sky"
	"github.com/nrozek/polsim/internal/solver"
	"github.com/nrozek/polsim/internal/track"
)

var (
	cyan    = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	white   = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dim     = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	dimmer  = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	green   = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	red     = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	magenta = lipgloss.NewStyle().Foreground(lipgloss.Color("213"))
)

var actionInfo = map[string]string{
	"beams":   "o/e intensities at one setting",
	"sweep":   "beam difference over a plate turn",
	"recover": "invert a four-plate sequence",
	"track":   "beam difference along a track",
	"fit":     "fit instrument from standards",
}

type state int

const (
	stateMenu state = iota
	stateConfig
	stateResult
)

type model struct {
	state    state
	cursor   int
	actions  []string
	selected string

	params      map[string]float64
	paramNames  []string
	paramCursor int
	editing     bool
	editBuf     string

	output string
	series []float64
	err    error

	width  int
	height int
}

func NewInteractiveApp() *model {
	return &model{
		state:   stateMenu,
		actions: []string{"beams", "sweep", "recover", "track", "fit"},
		params: map[string]float64{
			"hwp": 0, "pa": 0, "alt": 45, "p": 1.0, "aolp": 0,
			"step": 1, "dec": 20, "span": 60,
			"snr": 50, "seed": 1, "iters": 200,
		},
		paramNames: []string{"hwp", "pa", "p", "aolp"},
		width:      80,
		height:     24,
	}
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch m.state {
	case stateMenu:
		return m.menuKey(msg)
	case stateConfig:
		return m.configKey(msg)
	case stateResult:
		return m.resultKey(msg)
	}
	return m, nil
}

func (m model) menuKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.actions)-1 {
			m.cursor++
		}
	case "enter", " ":
		m.selected = m.actions[m.cursor]
		m.state = stateConfig
		m.paramCursor = 0
		m.setParamsForAction()
	}
	return m, nil
}

func (m model) configKey(msg tea.KeyMsg) (model, tea.Cmd) {
	if m.editing {
		switch msg.String() {
		case "enter":
			var val float64
			fmt.Sscanf(m.editBuf, "%f", &val)
			m.params[m.paramNames[m.paramCursor]] = val
			m.editing = false
			m.editBuf = ""
		case "escape":
			m.editing = false
			m.editBuf = ""
		case "backspace":
			if len(m.editBuf) > 0 {
				m.editBuf = m.editBuf[:len(m.editBuf)-1]
			}
		default:
			if len(msg.String()) == 1 {
				c := msg.String()[0]
				if (c >= '0' && c <= '9') || c == '.' || c == '-' {
					m.editBuf += string(c)
				}
			}
		}
		return m, nil
	}

	switch msg.String() {
	case "q", "escape":
		m.state = stateMenu
	case "up", "k":
		if m.paramCursor > 0 {
			m.paramCursor--
		}
	case "down", "j":
		if m.paramCursor < len(m.paramNames)-1 {
			m.paramCursor++
		}
	case "enter", " ":
		m.editing = true
		m.editBuf = fmt.Sprintf("%.2f", m.params[m.paramNames[m.paramCursor]])
	case "s":
		m.run()
		m.state = stateResult
		return m, tea.ClearScreen
	case "left", "h":
		m.params[m.paramNames[m.paramCursor]] -= 1
	case "right", "l":
		m.params[m.paramNames[m.paramCursor]] += 1
	}
	return m, nil
}

func (m model) resultKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.String() {
	case "q", "escape":
		m.state = stateMenu
		m.output = ""
		m.series = nil
		m.err = nil
		return m, tea.ClearScreen
	case "c":
		m.state = stateConfig
		return m, tea.ClearScreen
	case "r":
		m.run()
	}
	return m, nil
}

func (m *model) setParamsForAction() {
	switch m.selected {
	case "beams":
		m.paramNames = []string{"hwp", "pa", "alt", "p", "aolp"}
	case "sweep":
		m.paramNames = []string{"pa", "alt", "p", "aolp", "step"}
	case "recover":
		m.paramNames = []string{"pa", "alt", "p", "aolp"}
	case "track":
		m.paramNames = []string{"hwp", "dec", "span", "step"}
	case "fit":
		m.paramNames = []string{"snr", "seed", "iters"}
	}
}

// instrument builds the simulated optical train from the published
// derotator/M3 values and the edited pointing parameters.
func (m *model) instrument() (*polarimeter.Polarimeter, error) {
	truth := calib.VanHolsteinTruth()
	p := polarimeter.New()
	if err := p.SetDerotator(truth.DerotatorDiattenuation, truth.DerotatorRetardance); err != nil {
		return nil, err
	}
	if err := p.SetM3(truth.MirrorDiattenuation, truth.MirrorRetardance); err != nil {
		return nil, err
	}
	if err := p.SetM3Altitude(sky.Radians(m.params["alt"])); err != nil {
		return nil, err
	}
	if err := p.SetParallacticAngle(sky.Radians(m.params["pa"])); err != nil {
		return nil, err
	}
	if err := p.SetHWPAngle(sky.Radians(m.params["hwp"])); err != nil {
		return nil, err
	}
	return p, nil
}

func (m *model) input() polarimeter.StokesVector {
	psi := sky.Radians(m.params["aolp"])
	frac := m.params["p"]
	return polarimeter.StokesVector{
		I: 1,
		Q: frac * math.Cos(2*psi),
		U: frac * math.Sin(2*psi),
	}
}

func (m *model) run() {
	m.output, m.series, m.err = "", nil, nil
	switch m.selected {
	case "beams":
		m.runBeams()
	case "sweep":
		m.runSweep()
	case "recover":
		m.runRecover()
	case "track":
		m.runTrack()
	case "fit":
		m.runFit()
	}
}

func (m *model) runBeams() {
	p, err := m.instrument()
	if err != nil {
		m.err = err
		return
	}
	ipos, ineg := p.Simulate(m.input())
	m.output = fmt.Sprintf("ordinary      %s\nextraordinary %s\ndifference    %s",
		magenta.Render(fmt.Sprintf("%+.6f", ipos)),
		magenta.Render(fmt.Sprintf("%+.6f", ineg)),
		white.Render(fmt.Sprintf("%+.6f", ipos-ineg)))
}

func (m *model) runSweep() {
	p, err := m.instrument()
	if err != nil {
		m.err = err
		return
	}
	step := sky.Radians(m.params["step"])
	_, diffs, err := p.SweepHWP(m.input(), step)
	if err != nil {
		m.err = err
		return
	}
	m.series = diffs
	m.output = fmt.Sprintf("%d settings over a full plate turn", len(diffs))
}

func (m *model) runRecover() {
	p, err := m.instrument()
	if err != nil {
		m.err = err
		return
	}
	in := m.input()
	pa := sky.Radians(m.params["pa"])
	samples := make([]solver.Sample, 0, 4)
	for _, theta := range calib.DefaultHWPAngles() {
		if err := p.SetHWPAngle(theta); err != nil {
			m.err = err
			return
		}
		ipos, ineg := p.Simulate(in)
		samples = append(samples, solver.Sample{IPos: ipos, INeg: ineg, HWP: theta, Parallactic: pa})
	}
	got, err := solver.Solve(p, samples)
	if err != nil {
		m.err = err
		return
	}
	m.output = fmt.Sprintf("input     I=%+.4f Q=%+.4f U=%+.4f V=%+.4f\nrecovered I=%+.4f Q=%+.4f U=%+.4f V=%+.4f",
		in.I, in.Q, in.U, in.V, got.I, got.Q, got.U, got.V)
}

func (m *model) runTrack() {
	p, err := m.instrument()
	if err != nil {
		m.err = err
		return
	}
	targets := []track.FixedTarget{{
		Name:      "target",
		HourAngle: 0,
		Dec:       sky.Radians(m.params["dec"]),
	}}
	hwp := sky.Radians(m.params["hwp"])
	span := sky.Radians(m.params["span"])
	step := sky.Radians(m.params["step"])
	series, err := track.Sweep(p, sky.Keck(), targets, []float64{hwp}, span, step)
	if err != nil {
		m.err = err
		return
	}
	diffs := make([]float64, len(series[0].Points))
	for i, pt := range series[0].Points {
		diffs[i] = pt.Diff
	}
	m.series = diffs
	m.output = fmt.Sprintf("dec %+.1f°, plate at %.1f°, %d points",
		m.params["dec"], m.params["hwp"], len(diffs))
}

func (m *model) runFit() {
	f := calib.NewFitter(sky.Keck(), sky.Standards())
	if m.params["snr"] > 0 {
		f.SNR = m.params["snr"]
	}
	f.Seed = int64(m.params["seed"])
	if it := int(m.params["iters"]); it > 0 {
		f.MaxIter = it
	}
	res, err := f.Run()
	if err != nil {
		m.err = err
		return
	}
	m.output = fmt.Sprintf(
		"derot diattenuation  %s  (%+.3f%%)\nderot retardance     %s  (%+.3f%%)\nM3 diattenuation     %s  (%+.3f%%)\nM3 retardance        %s  (%+.3f%%)",
		magenta.Render(fmt.Sprintf("%.4f", res.Fitted.DerotatorDiattenuation)), res.PercentError.DerotatorDiattenuation,
		magenta.Render(fmt.Sprintf("%7.2f°", sky.Degrees(res.Fitted.DerotatorRetardance))), res.PercentError.DerotatorRetardance,
		magenta.Render(fmt.Sprintf("%.4f", res.Fitted.MirrorDiattenuation)), res.PercentError.MirrorDiattenuation,
		magenta.Render(fmt.Sprintf("%7.2f°", sky.Degrees(res.Fitted.MirrorRetardance))), res.PercentError.MirrorRetardance)
}

func (m model) View() string {
	switch m.state {
	case stateMenu:
		return m.viewMenu()
	case stateConfig:
		return m.viewConfig()
	case stateResult:
		return m.viewResult()
	}
	return ""
}

func (m model) viewMenu() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(dimmer.Render("    ╺━━━━━━━━━━━━━━━━━━━━━━━━╸") + "\n")
	b.WriteString("           " + cyan.Render("p o l s i m") + "\n")
	b.WriteString(dimmer.Render("    ╺━━━━━━━━━━━━━━━━━━━━━━━━╸") + "\n")
	b.WriteString("\n")

	for i, name := range m.actions {
		desc := actionInfo[name]
		if i == m.cursor {
			b.WriteString("      " + cyan.Render("▸ ") + white.Render(fmt.Sprintf("%-10s", name)) + dim.Render(desc) + "\n")
		} else {
			b.WriteString("        " + dim.Render(fmt.Sprintf("%-10s", name)) + dimmer.Render(desc) + "\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(dim.Render("      ↑↓ select   enter configure   q quit") + "\n")

	return b.String()
}

func (m model) viewConfig() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString("      " + cyan.Render(m.selected) + "  " + dim.Render(actionInfo[m.selected]) + "\n")
	b.WriteString(dimmer.Render("      "+strings.Repeat("─", 30)) + "\n\n")

	for i, name := range m.paramNames {
		val := fmt.Sprintf("%8.2f", m.params[name])
		if m.editing && i == m.paramCursor {
			val = fmt.Sprintf("%8s", m.editBuf+"▋")
		}
		if i == m.paramCursor {
			b.WriteString("      " + cyan.Render("▸ ") + white.Render(fmt.Sprintf("%-10s", name)) + magenta.Render(val) + "\n")
		} else {
			b.WriteString("        " + dim.Render(fmt.Sprintf("%-10s", name)) + dim.Render(val) + "\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(dim.Render("      ↑↓ select  ←→ adjust  enter edit  s run  esc back") + "\n")

	return b.String()
}

func (m model) viewResult() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString("      " + cyan.Render(m.selected) + "\n")
	b.WriteString(dimmer.Render("      "+strings.Repeat("─", 30)) + "\n\n")

	if m.err != nil {
		b.WriteString("      " + red.Render(m.err.Error()) + "\n")
	} else {
		for _, line := range strings.Split(m.output, "\n") {
			b.WriteString("      " + line + "\n")
		}
		if len(m.series) > 1 {
			b.WriteString("\n      " + green.Render(sparkline(m.series, 48)) + "\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(dim.Render("      r rerun  c config  esc back") + "\n")

	return b.String()
}

func sparkline(data []float64, width int) string {
	if len(data) == 0 {
		return ""
	}
	chars := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}
	minVal, maxVal := data[0], data[0]
	for _, v := range data {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}
	rang := maxVal - minVal
	if rang == 0 {
		rang = 1
	}
	step := len(data) / width
	if step < 1 {
		step = 1
	}
	var sb strings.Builder
	for i := 0; i < width && i*step < len(data); i++ {
		v := data[i*step]
		idx := int((v - minVal) / rang * 7)
		if idx > 7 {
			idx = 7
		}
		if idx < 0 {
			idx = 0
		}
		sb.WriteRune(chars[idx])
	}
	return sb.String()
}

func RunInteractive() error {
	p := tea.NewProgram(NewInteractiveApp(), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
