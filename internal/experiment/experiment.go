package experiment

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"

	"github.com/san-kum/crtsim/internal/config"
	"github.com/san-kum/crtsim/internal/control"
	"github.com/san-kum/crtsim/internal/dynamo"
	"github.com/san-kum/crtsim/internal/geometry"
	"github.com/san-kum/crtsim/internal/metrics"
	"github.com/san-kum/crtsim/internal/sim"
	"gonum.org/v1/gonum/spatial/r3"
)

// Frame is a sampled copy of the scene after a tick.
type Frame struct {
	Tick      int               `json:"tick"`
	Time      float64           `json:"time"`
	Particles []dynamo.Particle `json:"particles"`
	Charges   []float64         `json:"charges"`
}

// Hit records a particle reaching the screen.
type Hit struct {
	Particle dynamo.ParticleID `json:"particle"`
	Tick     int               `json:"tick"`
	Position r3.Vec            `json:"position"`
	Velocity r3.Vec            `json:"velocity"`
}

type Result struct {
	Scene      string             `json:"scene"`
	Integrator string             `json:"integrator"`
	Controller string             `json:"controller"`
	Dt         float64            `json:"dt"`
	Ticks      int                `json:"ticks"`
	Plates     []string           `json:"plates"`
	Frames     []Frame            `json:"frames"`
	Hits       []Hit              `json:"hits"`
	Faults     []sim.Fault        `json:"-"`
	Metrics    map[string]float64 `json:"metrics"`
}

// Experiment drives one scene: it owns the plate set, the particle
// manager, the steering controller and the metrics. It is not safe for
// concurrent use, except for Plates, whose charges may be written from
// other goroutines between steps.
type Experiment struct {
	cfg        *config.Config
	plates     *geometry.PlateSet
	manager    *sim.Manager
	integrator dynamo.Integrator
	steering   control.Steering
	steerIdx   int
	mirrorIdx  int
	deflection *metrics.Deflection
	metrics    []sim.Metric
	logger     *slog.Logger
	result     *Result
}

type Option func(*Experiment)

func WithLogger(l *slog.Logger) Option {
	return func(e *Experiment) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithMetrics adds metrics on top of the defaults.
func WithMetrics(ms ...sim.Metric) Option {
	return func(e *Experiment) { e.metrics = append(e.metrics, ms...) }
}

func New(cfg *config.Config, opts ...Option) (*Experiment, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: nil config", dynamo.ErrConfiguration)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	reg := NewRegistry()

	integ, err := reg.GetIntegrator(cfg.Integrator)
	if err != nil {
		return nil, err
	}
	steering, err := reg.GetController(cfg.Steering)
	if err != nil {
		return nil, err
	}
	list, err := cfg.BuildPlates()
	if err != nil {
		return nil, err
	}
	plates, err := geometry.NewPlateSet(list...)
	if err != nil {
		return nil, err
	}
	mopts, err := cfg.ManagerOptions()
	if err != nil {
		return nil, err
	}
	manager, err := sim.New(mopts, integ, rand.New(rand.NewSource(cfg.Seed)))
	if err != nil {
		return nil, err
	}

	axis := geometry.AxisY
	if a, err := geometry.ParseAxis(cfg.Steering.Axis); err == nil {
		axis = a
	}

	e := &Experiment{
		cfg:        cfg,
		plates:     plates,
		manager:    manager,
		integrator: integ,
		steering:   steering,
		steerIdx:   -1,
		mirrorIdx:  -1,
		deflection: metrics.NewDeflection(axis),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	if steering.Name() != "none" {
		e.steerIdx, _ = plates.Index(cfg.Steering.Plate)
		if idx, ok := plates.Index(cfg.Steering.Mirror); ok {
			e.mirrorIdx = idx
		}
	}
	e.metrics = reg.DefaultMetrics(plates, e.deflection, cfg.Steering.Target)
	for _, opt := range opts {
		opt(e)
	}
	manager.SetLogger(e.logger)
	e.result = e.newResult()
	return e, nil
}

func (e *Experiment) newResult() *Result {
	names := make([]string, 0, e.plates.Len())
	for _, p := range e.plates.Snapshot() {
		names = append(names, p.Name)
	}
	return &Result{
		Scene:      e.cfg.Name,
		Integrator: e.integrator.Name(),
		Controller: e.steering.Name(),
		Dt:         e.cfg.Dt,
		Plates:     names,
		Frames:     make([]Frame, 0),
		Hits:       make([]Hit, 0),
		Metrics:    make(map[string]float64),
	}
}

func (e *Experiment) Config() *config.Config { return e.cfg }

// Plates is the live plate set. Charges written here are picked up by the
// next step.
func (e *Experiment) Plates() *geometry.PlateSet { return e.plates }

func (e *Experiment) Manager() *sim.Manager { return e.manager }

func (e *Experiment) Steering() control.Steering { return e.steering }

// Time is the simulated time in seconds.
func (e *Experiment) Time() float64 { return float64(e.manager.Ticks()) * e.cfg.Dt }

// Step runs one tick of the driver loop: steering, scheduled spawn, plate
// snapshot, particle tick, stopped-particle policy, metrics and sampling.
func (e *Experiment) Step() (*sim.TickReport, error) {
	tick := e.manager.Ticks()
	e.steer(tick)

	if _, _, err := e.manager.SpawnOnSchedule(tick, e.cfg.Lifecycle.SpawnPeriod); err != nil {
		return nil, err
	}

	snapshot := e.plates.Snapshot()
	report, err := e.manager.Tick(snapshot, e.cfg.Dt)
	if err != nil {
		return nil, err
	}

	if ttl := e.cfg.Lifecycle.StoppedTTL; ttl > 0 {
		n := e.manager.RetireWhere(func(p dynamo.Particle) bool {
			return p.Phase == dynamo.PhaseStopped && report.Tick-p.StoppedTick >= ttl
		})
		if n > 0 {
			report.Retired = append(report.Retired, e.manager.Prune()...)
		}
	}

	particles := e.manager.Particles()
	for _, m := range e.metrics {
		m.OnTick(report.Tick, particles, report)
	}
	e.record(report, particles, snapshot)
	return report, nil
}

func (e *Experiment) steer(tick int) {
	if e.steerIdx < 0 {
		return
	}
	v, n := e.deflection.Last()
	q, ok := e.steering.Compute(control.Measurement{Value: v, Samples: n}, tick)
	if !ok {
		return
	}
	if err := e.plates.SetCharge(e.steerIdx, q); err != nil {
		e.logger.Warn("steering charge rejected", "tick", tick, "charge", q, "error", err)
		return
	}
	if e.mirrorIdx >= 0 {
		if err := e.plates.SetCharge(e.mirrorIdx, -q); err != nil {
			e.logger.Warn("steering charge rejected", "tick", tick, "charge", -q, "error", err)
		}
	}
}

func (e *Experiment) record(report *sim.TickReport, particles []dynamo.Particle, plates []geometry.Plate) {
	r := e.result
	r.Ticks = report.Tick
	r.Faults = append(r.Faults, report.Faults...)
	for _, p := range metrics.Landed(particles, report) {
		r.Hits = append(r.Hits, Hit{Particle: p.ID, Tick: report.Tick, Position: p.Position, Velocity: p.Velocity})
	}

	every := e.cfg.SampleEvery
	if every <= 0 || report.Tick%every != 0 {
		return
	}
	charges := make([]float64, len(plates))
	for i, p := range plates {
		charges[i] = p.Charge
	}
	r.Frames = append(r.Frames, Frame{
		Tick:      report.Tick,
		Time:      float64(report.Tick) * e.cfg.Dt,
		Particles: particles,
		Charges:   charges,
	})
}

// Result returns the run so far, with metric values as of now.
func (e *Experiment) Result() *Result {
	for _, m := range e.metrics {
		e.result.Metrics[m.Name()] = m.Value()
	}
	return e.result
}

// Run steps the configured number of ticks, checking ctx between ticks.
// On cancellation the partial result is returned with ctx's error.
func (e *Experiment) Run(ctx context.Context) (*Result, error) {
	e.logger.Info("run started", "scene", e.cfg.Name, "ticks", e.cfg.Ticks,
		"integrator", e.integrator.Name(), "controller", e.steering.Name())

	for i := 0; i < e.cfg.Ticks; i++ {
		select {
		case <-ctx.Done():
			return e.Result(), ctx.Err()
		default:
		}
		if _, err := e.Step(); err != nil {
			return nil, err
		}
	}

	res := e.Result()
	e.logger.Info("run finished", "ticks", res.Ticks, "hits", len(res.Hits), "faults", len(res.Faults))
	return res, nil
}
