package viz

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/crtsim/internal/dynamo"
	"github.com/san-kum/crtsim/internal/experiment"
	"github.com/san-kum/crtsim/internal/geometry"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	width           = 80
	height          = 24
	historyCapacity = 300
	frameInterval   = time.Second / 30
)

type TickMsg time.Time

// Builder creates a fresh experiment; the live view calls it on start and
// on every restart.
type Builder func() (*experiment.Experiment, error)

type Model struct {
	build    Builder
	exp      *experiment.Experiment
	err      error
	canvas   *Canvas
	camera   *Camera
	view     Viewport
	across   geometry.Axis
	up       geometry.Axis
	view3D   bool
	running  bool
	showHelp bool
	theme    Theme

	stepsPerFrame int
	chargeStep    float64
	selected      int

	activeHistory []float64
	hits          int
}

type Option func(*Model)

// WithStepsPerFrame sets how many ticks run per redraw.
func WithStepsPerFrame(n int) Option {
	return func(m *Model) {
		if n > 0 {
			m.stepsPerFrame = n
		}
	}
}

// WithChargeStep sets the charge added or removed per key press.
func WithChargeStep(q float64) Option {
	return func(m *Model) {
		if q > 0 && dynamo.Finite(q) {
			m.chargeStep = q
		}
	}
}

func WithTheme(name string) Option {
	return func(m *Model) { m.theme = GetTheme(name) }
}

func NewModel(build Builder, opts ...Option) (Model, error) {
	m := Model{
		build:         build,
		canvas:        NewCanvas(width, height),
		running:       true,
		theme:         ThemeP1,
		stepsPerFrame: 2,
		chargeStep:    2.5e-10,
		activeHistory: make([]float64, 0, historyCapacity),
	}
	for _, opt := range opts {
		opt(&m)
	}
	if err := m.restart(); err != nil {
		return Model{}, err
	}
	return m, nil
}

// restart builds a new experiment and refits the view to its scene.
func (m *Model) restart() error {
	exp, err := m.build()
	if err != nil {
		return err
	}
	m.exp = exp
	m.err = nil
	m.hits = 0
	m.activeHistory = m.activeHistory[:0]
	if m.selected >= exp.Plates().Len() {
		m.selected = 0
	}

	cfg := exp.Config()
	m.across = exp.Manager().Options().TravelAxis
	m.up = geometry.AxisY
	if a, err := geometry.ParseAxis(cfg.Steering.Axis); err == nil && a != m.across {
		m.up = a
	} else if m.up == m.across {
		m.up, _ = m.across.InPlane()
	}
	m.fitView()
	return nil
}

func (m *Model) fitView() {
	opts := m.exp.Manager().Options()
	v := Viewport{MinX: math.Inf(1), MaxX: math.Inf(-1), MinY: math.Inf(1), MaxY: math.Inf(-1)}
	add := func(p r3.Vec) {
		x, y := geometry.Component(p, m.across), geometry.Component(p, m.up)
		v.MinX, v.MaxX = math.Min(v.MinX, x), math.Max(v.MaxX, x)
		v.MinY, v.MaxY = math.Min(v.MinY, y), math.Max(v.MaxY, y)
	}
	var center r3.Vec
	plates := m.exp.Plates().Snapshot()
	for _, p := range plates {
		for _, c := range p.Corners() {
			add(c)
		}
		center = r3.Add(center, p.Center)
	}
	add(opts.Origin)
	add(geometry.With(opts.Origin, m.across, opts.Boundary))
	m.view = v.Fit(0.05)

	if len(plates) > 0 {
		center = r3.Scale(1/float64(len(plates)), center)
	}
	m.camera = NewCamera(center, math.Max(v.MaxX-v.MinX, v.MaxY-v.MinY)/2)
}

func (m Model) Init() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "r":
			if err := m.restart(); err != nil {
				m.err = err
			}
		case "tab":
			m.selected = (m.selected + 1) % max(1, m.exp.Plates().Len())
		case "up", "k":
			m.adjustCharge(m.chargeStep)
		case "down", "j":
			m.adjustCharge(-m.chargeStep)
		case "0":
			m.setCharge(0)
		case "m":
			m.view3D = !m.view3D
		case "x":
			m.camera.RotateX(0.1)
		case "X":
			m.camera.RotateX(-0.1)
		case "y":
			m.camera.RotateY(0.1)
		case "Y":
			m.camera.RotateY(-0.1)
		case "+", "=":
			m.camera.ZoomIn()
		case "-", "_":
			m.camera.ZoomOut()
		case "t":
			m.theme = NextTheme(m.theme)
		case "?":
			m.showHelp = !m.showHelp
		}
	case TickMsg:
		if m.running && m.err == nil {
			m.step()
		}
		return m, tea.Tick(frameInterval, func(t time.Time) tea.Msg { return TickMsg(t) })
	}
	return m, nil
}

func (m *Model) adjustCharge(dq float64) {
	q, err := m.exp.Plates().Charge(m.selected)
	if err != nil {
		m.err = err
		return
	}
	m.setCharge(q + dq)
}

func (m *Model) setCharge(q float64) {
	if err := m.exp.Plates().SetCharge(m.selected, q); err != nil {
		m.err = err
	}
}

func (m *Model) step() {
	for i := 0; i < m.stepsPerFrame; i++ {
		report, err := m.exp.Step()
		if err != nil {
			m.err = err
			m.running = false
			return
		}
		m.hits += len(report.Stopped)
	}
	m.activeHistory = append(m.activeHistory, float64(m.exp.Manager().Len()))
	if len(m.activeHistory) > historyCapacity {
		m.activeHistory = m.activeHistory[1:]
	}
}

func (m *Model) draw() {
	m.canvas.Clear()
	plates := m.exp.Plates().Snapshot()
	particles := m.exp.Manager().Particles()
	if m.view3D {
		m.draw3D(plates, particles)
		return
	}

	for _, p := range plates {
		corners := p.Corners()
		for i := range corners {
			a, b := corners[i], corners[(i+1)%len(corners)]
			x0, y0 := m.view.Map(m.canvas, geometry.Component(a, m.across), geometry.Component(a, m.up))
			x1, y1 := m.view.Map(m.canvas, geometry.Component(b, m.across), geometry.Component(b, m.up))
			m.canvas.DrawLine(x0, y0, x1, y1)
		}
	}

	opts := m.exp.Manager().Options()
	sx, sy0 := m.view.Map(m.canvas, opts.Boundary, m.view.MaxY)
	_, sy1 := m.view.Map(m.canvas, opts.Boundary, m.view.MinY)
	m.canvas.DashedLine(sx, sy0, sx, sy1, 2)

	for _, p := range particles {
		x, y := m.view.Map(m.canvas, geometry.Component(p.Position, m.across), geometry.Component(p.Position, m.up))
		m.canvas.Set(x, y)
	}
}

func (m *Model) draw3D(plates []geometry.Plate, particles []dynamo.Particle) {
	edges := make([]edge, 0, 4*len(plates)+len(particles))
	for _, p := range plates {
		corners := p.Corners()
		for i := range corners {
			edges = append(edges, edge{corners[i], corners[(i+1)%len(corners)]})
		}
	}
	for _, p := range particles {
		edges = append(edges, edge{p.Position, p.Position})
	}
	render3D(m.canvas, edges, m.camera)
}

func (m Model) View() string {
	m.draw()
	beam := lipgloss.NewStyle().Foreground(m.theme.Beam)
	canvasView := canvasStyle.Render(beam.Render(m.canvas.String()))

	var s strings.Builder
	name := m.exp.Config().Name
	if name == "" {
		name = "scene"
	}
	s.WriteString(headerStyle.Render(strings.ToUpper(name)) + "\n")
	switch {
	case m.err != nil:
		s.WriteString(errorStyle.Render("ERROR: "+m.err.Error()) + "\n\n")
	case m.running:
		s.WriteString(statusRunning.Render("RUNNING") + "\n\n")
	default:
		s.WriteString(statusPaused.Render("PAUSED") + "\n\n")
	}

	if len(m.activeHistory) > 1 {
		chart := asciigraph.Plot(m.activeHistory, asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("Active particles"))
		s.WriteString(graphStyle.Render(chart) + "\n\n")
	}

	counts := m.exp.Manager().Counts()
	res := m.exp.Result()
	s.WriteString(labelStyle.Render("Time") + valueStyle.Render(fmt.Sprintf("%.3g s", m.exp.Time())) + "\n")
	s.WriteString(labelStyle.Render("Tick") + valueStyle.Render(fmt.Sprintf("%d", m.exp.Manager().Ticks())) + "\n")
	s.WriteString(labelStyle.Render("Moving") + valueStyle.Render(fmt.Sprintf("%d", counts.Moving)) + "\n")
	s.WriteString(labelStyle.Render("Stopped") + valueStyle.Render(fmt.Sprintf("%d", counts.Stopped)) + "\n")
	s.WriteString(labelStyle.Render("Hits") + valueStyle.Render(fmt.Sprintf("%d", m.hits)) + "\n")
	s.WriteString(labelStyle.Render("Deflection") + valueStyle.Render(fmt.Sprintf("%.3f", res.Metrics["mean_deflection"])) + "\n")
	s.WriteString(labelStyle.Render("Faults") + valueStyle.Render(fmt.Sprintf("%d", len(res.Faults))) + "\n")
	s.WriteString(labelStyle.Render("Steering") + valueStyle.Render(m.exp.Steering().Name()) + "\n")

	s.WriteString("\nPLATES\n")
	plates := m.exp.Plates().Snapshot()
	maxQ := 0.0
	for _, p := range plates {
		maxQ = math.Max(maxQ, math.Abs(p.Charge))
	}
	for i, p := range plates {
		swatch := lipgloss.NewStyle().Foreground(chargeColor(m.theme, p.Charge, maxQ)).Render("■")
		line := fmt.Sprintf("%-13s %+.2e C", p.Name, p.Charge)
		if i == m.selected {
			s.WriteString(swatch + " " + activePlateStyle.Render("> "+line) + "\n")
		} else {
			s.WriteString(swatch + "   " + valueStyle.Render(line) + "\n")
		}
	}

	s.WriteString(helpStyle.Render("\n─────────────────────\nSP:Pause R:Restart Q:Quit\nTab:Plate ↑↓:Charge 0:Zero\nM:3D T:Theme ?:Help"))
	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, statsStyle.Render(s.String()))
	if m.showHelp {
		return `
╔══════════════════════════════════════╗
║          KEYBOARD SHORTCUTS          ║
╠══════════════════════════════════════╣
║  Space    - Pause/Resume             ║
║  R        - Restart scene            ║
║  Q        - Quit                     ║
║  Tab      - Select next plate        ║
║  Up/K     - Raise plate charge       ║
║  Down/J   - Lower plate charge       ║
║  0        - Zero plate charge        ║
║  M        - Toggle 3D view           ║
║  X/Y      - Rotate 3D view           ║
║  +/-      - Zoom 3D view             ║
║  T        - Cycle themes             ║
║  ?        - Toggle this help         ║
╚══════════════════════════════════════╝
` + "\n\n" + mainView
	}
	return mainView
}
