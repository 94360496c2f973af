package sim

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"

	"github.com/san-kum/crtsim/internal/dynamo"
	"github.com/san-kum/crtsim/internal/field"
	"github.com/san-kum/crtsim/internal/geometry"
	"gonum.org/v1/gonum/spatial/r3"
)

var ErrUnknownParticle = errors.New("unknown particle")

// tracked pairs a particle with the side of the screen plane it started on.
type tracked struct {
	dynamo.Particle
	side float64
}

// Manager owns the active particle set. Nothing else adds or removes
// particles; renderers read copies from Particles.
type Manager struct {
	opts       Options
	integrator dynamo.Integrator
	rng        RandSource
	logger     *slog.Logger
	observers  []Observer

	particles []tracked
	outcomes  []outcome
	nextID    dynamo.ParticleID
	ticks     int
	workers   int
}

// New validates opts and builds an empty manager. rng may be nil when no
// jitter is configured.
func New(opts Options, integrator dynamo.Integrator, rng RandSource) (*Manager, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if integrator == nil {
		return nil, fmt.Errorf("%w: integrator is required", dynamo.ErrConfiguration)
	}
	workers := opts.Workers
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Manager{
		opts:       opts,
		integrator: integrator,
		rng:        rng,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		observers:  make([]Observer, 0),
		particles:  make([]tracked, 0, 64),
		nextID:     1,
		workers:    workers,
	}, nil
}

func (m *Manager) SetLogger(l *slog.Logger) {
	if l != nil {
		m.logger = l
	}
}

func (m *Manager) AddObserver(o Observer) { m.observers = append(m.observers, o) }

func (m *Manager) Options() Options { return m.opts }

// Ticks returns the number of completed Tick calls.
func (m *Manager) Ticks() int { return m.ticks }

func (m *Manager) Len() int { return len(m.particles) }

// Spawn creates a moving particle at pos with the configured velocity,
// charge and mass and appends it to the active set.
func (m *Manager) Spawn(pos r3.Vec) (dynamo.ParticleID, error) {
	if !dynamo.FiniteVec(pos) {
		return 0, fmt.Errorf("%w: spawn position must be finite", dynamo.ErrConfiguration)
	}
	spec := m.opts.Particle
	p, err := dynamo.NewParticle(m.nextID, pos, spec.Velocity, spec.Charge, spec.Mass)
	if err != nil {
		return 0, err
	}
	p.BornTick = m.ticks
	p.Phase = dynamo.PhaseMoving
	m.nextID++

	m.particles = append(m.particles, tracked{Particle: p, side: m.startSide(pos)})
	m.logger.Debug("particle spawned", "particle", p.ID, "tick", m.ticks,
		"x", pos.X, "y", pos.Y, "z", pos.Z)
	return p.ID, nil
}

// SpawnOnSchedule spawns at the configured origin, jittered, whenever
// tickCounter is a multiple of period.
func (m *Manager) SpawnOnSchedule(tickCounter, period int) (dynamo.ParticleID, bool, error) {
	if period <= 0 {
		return 0, false, &dynamo.ConfigError{Field: "spawn period", Value: float64(period), Reason: "must be positive"}
	}
	if tickCounter%period != 0 {
		return 0, false, nil
	}
	id, err := m.Spawn(m.jittered(m.opts.Origin))
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

func (m *Manager) jittered(pos r3.Vec) r3.Vec {
	if m.opts.Jitter == 0 || m.rng == nil {
		return pos
	}
	u, v := m.opts.TravelAxis.InPlane()
	pos = geometry.With(pos, u, geometry.Component(pos, u)+(2*m.rng.Float64()-1)*m.opts.Jitter)
	pos = geometry.With(pos, v, geometry.Component(pos, v)+(2*m.rng.Float64()-1)*m.opts.Jitter)
	return pos
}

// startSide is the sign of the spawn offset from the screen plane. A
// particle spawned on the plane counts as behind it relative to its
// initial heading.
func (m *Manager) startSide(pos r3.Vec) float64 {
	off := geometry.Component(pos, m.opts.TravelAxis) - m.opts.Boundary
	switch {
	case off > 0:
		return 1
	case off < 0:
		return -1
	case geometry.Component(m.opts.Particle.Velocity, m.opts.TravelAxis) < 0:
		return 1
	default:
		return -1
	}
}

func (m *Manager) crossed(t *tracked) bool {
	off := geometry.Component(t.Position, m.opts.TravelAxis) - m.opts.Boundary
	return off == 0 || (off > 0) != (t.side > 0)
}

// Tick advances every moving particle by dt under the field of plates,
// which the caller must treat as an immutable snapshot for the call.
// Particles whose field or integration result is undefined keep their
// position and velocity for this tick and are reported in Faults. Retired
// particles are pruned once all updates are resolved.
func (m *Manager) Tick(plates []geometry.Plate, dt float64) (*TickReport, error) {
	if err := dynamo.RequirePositive("dt", dt); err != nil {
		return nil, err
	}

	tick := m.ticks + 1
	report := &TickReport{Tick: tick}

	m.computeOutcomes(plates, dt)

	for i := range m.particles {
		t := &m.particles[i]
		o := m.outcomes[i]
		if !o.active {
			continue
		}
		if o.err != nil {
			f := Fault{Particle: t.ID, Tick: tick, Err: o.err}
			report.Faults = append(report.Faults, f)
			m.logger.Warn("particle update skipped", "particle", t.ID, "tick", tick, "error", o.err)
		} else {
			t.Position = o.next.Position
			t.Velocity = o.next.Velocity
			report.Updated++
		}

		t.Age++
		switch {
		case t.Age >= m.opts.MaxAge:
			t.Phase = dynamo.PhaseRetired
		case o.err == nil && m.crossed(t):
			t.Phase = dynamo.PhaseStopped
			t.StoppedTick = tick
			report.Stopped = append(report.Stopped, t.ID)
			m.logger.Debug("particle stopped", "particle", t.ID, "tick", tick)
		}
	}

	report.Retired = m.Prune()
	m.ticks = tick

	if len(m.observers) > 0 {
		snap := m.Particles()
		for _, o := range m.observers {
			o.OnTick(tick, snap, report)
		}
	}
	return report, nil
}

// step is the per-particle body of Tick. It reads only p and the plate
// snapshot, so calls for distinct particles are independent.
func (m *Manager) step(p dynamo.Particle, plates []geometry.Plate, dt float64) (dynamo.Particle, error) {
	e, err := field.At(p.Position, plates)
	if err != nil {
		return p, err
	}
	next := m.integrator.Advance(p, r3.Scale(p.Charge, e), dt)
	if !dynamo.FiniteVec(next.Position) || !dynamo.FiniteVec(next.Velocity) {
		return p, &dynamo.DomainError{Point: p.Position, Plate: -1, Reason: "non-finite integration result"}
	}
	return next, nil
}

// Retire marks a particle RETIRED; it is removed by the next prune.
func (m *Manager) Retire(id dynamo.ParticleID) error {
	for i := range m.particles {
		if m.particles[i].ID == id {
			m.particles[i].Phase = dynamo.PhaseRetired
			return nil
		}
	}
	return fmt.Errorf("%w: %d", ErrUnknownParticle, id)
}

// RetireWhere marks every not yet retired particle matching fn and returns
// how many were marked. It is the hook for caller-side retirement policy,
// e.g. clearing STOPPED particles after a while.
func (m *Manager) RetireWhere(fn func(dynamo.Particle) bool) int {
	n := 0
	for i := range m.particles {
		t := &m.particles[i]
		if t.Phase != dynamo.PhaseRetired && fn(t.Particle) {
			t.Phase = dynamo.PhaseRetired
			n++
		}
	}
	return n
}

// Prune drops RETIRED particles, keeping the order of the rest, and
// returns the removed ids.
func (m *Manager) Prune() []dynamo.ParticleID {
	var removed []dynamo.ParticleID
	kept := m.particles[:0]
	for _, t := range m.particles {
		if t.Phase == dynamo.PhaseRetired {
			removed = append(removed, t.ID)
			m.logger.Debug("particle retired", "particle", t.ID, "age", t.Age)
			continue
		}
		kept = append(kept, t)
	}
	for i := len(kept); i < len(m.particles); i++ {
		m.particles[i] = tracked{}
	}
	m.particles = kept
	return removed
}

// Particles returns a copy of the active set in insertion order.
func (m *Manager) Particles() []dynamo.Particle {
	out := make([]dynamo.Particle, len(m.particles))
	for i, t := range m.particles {
		out[i] = t.Particle
	}
	return out
}

func (m *Manager) Get(id dynamo.ParticleID) (dynamo.Particle, bool) {
	for _, t := range m.particles {
		if t.ID == id {
			return t.Particle, true
		}
	}
	return dynamo.Particle{}, false
}

// Counts tallies the active set by phase.
type Counts struct {
	Moving, Stopped, Retired int
}

func (m *Manager) Counts() Counts {
	var c Counts
	for _, t := range m.particles {
		switch t.Phase {
		case dynamo.PhaseMoving:
			c.Moving++
		case dynamo.PhaseStopped:
			c.Stopped++
		case dynamo.PhaseRetired:
			c.Retired++
		}
	}
	return c
}
