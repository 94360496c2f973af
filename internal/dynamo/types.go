package dynamo

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

type ParticleID uint64

// Phase is the lifecycle state of a particle.
type Phase uint8

const (
	PhaseSpawning Phase = iota
	PhaseMoving
	PhaseStopped
	PhaseRetired
)

func (p Phase) String() string {
	switch p {
	case PhaseSpawning:
		return "spawning"
	case PhaseMoving:
		return "moving"
	case PhaseStopped:
		return "stopped"
	case PhaseRetired:
		return "retired"
	default:
		return "unknown"
	}
}

// Particle is plain simulation data. Rendering reads copies of it and never
// writes back.
type Particle struct {
	ID       ParticleID
	Position r3.Vec
	Velocity r3.Vec
	Charge   float64
	Mass     float64
	Age      int
	Phase    Phase

	// BornTick and StoppedTick are manager tick counters; StoppedTick is -1
	// until the particle stops.
	BornTick    int
	StoppedTick int
}

// NewParticle builds a particle in the SPAWNING phase.
func NewParticle(id ParticleID, pos, vel r3.Vec, charge, mass float64) (Particle, error) {
	if err := RequirePositive("mass", mass); err != nil {
		return Particle{}, err
	}
	return Particle{
		ID:          id,
		Position:    pos,
		Velocity:    vel,
		Charge:      charge,
		Mass:        mass,
		Phase:       PhaseSpawning,
		StoppedTick: -1,
	}, nil
}

// Active reports whether the particle still takes part in force updates.
func (p Particle) Active() bool { return p.Phase == PhaseMoving }

// Integrator advances one particle by one fixed step under a net force.
// Implementations must be pure: no state survives between calls.
type Integrator interface {
	Name() string
	Advance(p Particle, force r3.Vec, dt float64) Particle
}

// Finite reports whether v is neither NaN nor infinite.
func Finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// FiniteVec reports whether every component of v is finite.
func FiniteVec(v r3.Vec) bool {
	return Finite(v.X) && Finite(v.Y) && Finite(v.Z)
}
