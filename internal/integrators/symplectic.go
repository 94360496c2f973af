package integrators

import (
	"github.com/san-kum/crtsim/internal/dynamo"
	"gonum.org/v1/gonum/spatial/r3"
)

// SemiImplicitEuler updates velocity first and moves the particle with the
// new velocity:
//
//	a  = F / m
//	v' = v + a*dt
//	x' = x + v'*dt
type SemiImplicitEuler struct{}

func NewSemiImplicitEuler() *SemiImplicitEuler {
	return &SemiImplicitEuler{}
}

func (s *SemiImplicitEuler) Name() string { return "symplectic" }

func (s *SemiImplicitEuler) Advance(p dynamo.Particle, force r3.Vec, dt float64) dynamo.Particle {
	acc := r3.Scale(1/p.Mass, force)
	p.Velocity = r3.Add(p.Velocity, r3.Scale(dt, acc))
	p.Position = r3.Add(p.Position, r3.Scale(dt, p.Velocity))
	return p
}
