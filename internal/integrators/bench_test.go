package integrators

import (
	"testing"

	"github.com/san-kum/crtsim/internal/dynamo"
	"gonum.org/v1/gonum/spatial/r3"
)

func benchAdvance(b *testing.B, integ dynamo.Integrator) {
	p := dynamo.Particle{Mass: 9.1e-31, Velocity: r3.Vec{X: 1e5}}
	f := r3.Vec{X: 1e-13, Y: -2e-14}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		p = integ.Advance(p, f, 1e-9)
	}
}

func BenchmarkSemiImplicitEuler(b *testing.B) {
	benchAdvance(b, NewSemiImplicitEuler())
}

func BenchmarkEuler(b *testing.B) {
	benchAdvance(b, NewEuler())
}
