package sim

import (
	"fmt"

	"github.com/san-kum/crtsim/internal/dynamo"
	"github.com/san-kum/crtsim/internal/geometry"
	"gonum.org/v1/gonum/spatial/r3"
)

// ParticleSpec is the fixed per-type description of spawned particles.
type ParticleSpec struct {
	Charge   float64
	Mass     float64
	Velocity r3.Vec
}

type Options struct {
	Particle ParticleSpec
	Origin   r3.Vec

	// MaxAge is the tick count at which a moving particle retires.
	MaxAge int

	// TravelAxis and Boundary place the screen plane: a moving particle
	// stops once its coordinate along TravelAxis crosses Boundary.
	TravelAxis geometry.Axis
	Boundary   float64

	// Jitter is the half-width of the square, orthogonal to TravelAxis,
	// from which scheduled spawn offsets are drawn.
	Jitter float64

	// Workers bounds the goroutines used per tick; 0 means GOMAXPROCS.
	Workers int
}

func (o Options) Validate() error {
	if err := dynamo.RequirePositive("particle mass", o.Particle.Mass); err != nil {
		return err
	}
	if o.MaxAge <= 0 {
		return &dynamo.ConfigError{Field: "max age", Value: float64(o.MaxAge), Reason: "must be positive"}
	}
	if !o.TravelAxis.Valid() {
		return fmt.Errorf("travel axis: %w: %d", dynamo.ErrInvalidOrientation, o.TravelAxis)
	}
	if o.Jitter < 0 || !dynamo.Finite(o.Jitter) {
		return &dynamo.ConfigError{Field: "jitter", Value: o.Jitter, Reason: "must be a finite value >= 0"}
	}
	if o.Workers < 0 {
		return &dynamo.ConfigError{Field: "workers", Value: float64(o.Workers), Reason: "must be >= 0"}
	}
	return nil
}

// RandSource supplies jitter in [0, 1). *math/rand.Rand satisfies it.
type RandSource interface {
	Float64() float64
}

// Fault is a particle update skipped during a tick.
type Fault struct {
	Particle dynamo.ParticleID
	Tick     int
	Err      error
}

func (f Fault) Error() string {
	return fmt.Sprintf("tick %d, particle %d: %v", f.Tick, f.Particle, f.Err)
}

func (f Fault) Unwrap() error { return f.Err }

// TickReport summarises one Tick call.
type TickReport struct {
	Tick    int
	Updated int
	Stopped []dynamo.ParticleID
	Retired []dynamo.ParticleID
	Faults  []Fault
}

// Observer is notified after every tick with a read-only copy of the
// active particles.
type Observer interface {
	OnTick(tick int, particles []dynamo.Particle, report *TickReport)
}

// Metric is an Observer that reduces a run to one number.
type Metric interface {
	Observer
	Name() string
	Value() float64
	Reset()
}
