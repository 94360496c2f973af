package integrators

import (
	"github.com/san-kum/crtsim/internal/dynamo"
	"gonum.org/v1/gonum/spatial/r3"
)

// Euler is the explicit forward Euler step: position moves with the old
// velocity. Kept for comparing drift against SemiImplicitEuler.
type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Name() string { return "euler" }

func (e *Euler) Advance(p dynamo.Particle, force r3.Vec, dt float64) dynamo.Particle {
	acc := r3.Scale(1/p.Mass, force)
	p.Position = r3.Add(p.Position, r3.Scale(dt, p.Velocity))
	p.Velocity = r3.Add(p.Velocity, r3.Scale(dt, acc))
	return p
}
