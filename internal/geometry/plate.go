package geometry

import (
	"fmt"
	"math"

	"github.com/san-kum/crtsim/internal/dynamo"
	"gonum.org/v1/gonum/spatial/r3"
)

// Plate is a zero-thickness charged rectangle. HalfExtents span the face
// along the two axes returned by Normal.InPlane(), in that order.
type Plate struct {
	Name        string
	Center      r3.Vec
	Normal      Axis
	HalfExtents [2]float64
	Charge      float64 // coulombs
}

func NewPlate(name string, center r3.Vec, normal Axis, hu, hv, charge float64) (Plate, error) {
	p := Plate{
		Name:        name,
		Center:      center,
		Normal:      normal,
		HalfExtents: [2]float64{hu, hv},
		Charge:      charge,
	}
	if err := p.Validate(); err != nil {
		return Plate{}, err
	}
	return p, nil
}

func (p Plate) Validate() error {
	if !p.Normal.Valid() {
		return fmt.Errorf("plate %q: %w: %d", p.Name, dynamo.ErrInvalidOrientation, p.Normal)
	}
	for i, h := range p.HalfExtents {
		if err := dynamo.RequirePositive(fmt.Sprintf("half-extent[%d]", i), h); err != nil {
			return fmt.Errorf("plate %q: %w", p.Name, err)
		}
	}
	if !dynamo.FiniteVec(p.Center) {
		return fmt.Errorf("plate %q: %w: center must be finite", p.Name, dynamo.ErrConfiguration)
	}
	if !dynamo.Finite(p.Charge) {
		return fmt.Errorf("plate %q: %w", p.Name, &dynamo.ConfigError{Field: "charge", Value: p.Charge, Reason: "must be finite"})
	}
	return nil
}

// ClosestPoint projects point onto the plate face. In-plane coordinates are
// clamped to the face bounds; the normal coordinate is the plate's own.
func ClosestPoint(point r3.Vec, p Plate) r3.Vec {
	u, v := p.Normal.InPlane()
	out := With(point, p.Normal, Component(p.Center, p.Normal))
	out = With(out, u, clamp(Component(point, u), Component(p.Center, u), p.HalfExtents[0]))
	out = With(out, v, clamp(Component(point, v), Component(p.Center, v), p.HalfExtents[1]))
	return out
}

// Corners returns the face corners in winding order, for renderers.
func (p Plate) Corners() [4]r3.Vec {
	u, v := p.Normal.InPlane()
	hu, hv := p.HalfExtents[0], p.HalfExtents[1]
	offsets := [4][2]float64{{-hu, -hv}, {hu, -hv}, {hu, hv}, {-hu, hv}}
	var out [4]r3.Vec
	for i, o := range offsets {
		c := With(p.Center, u, Component(p.Center, u)+o[0])
		out[i] = With(c, v, Component(p.Center, v)+o[1])
	}
	return out
}

func clamp(x, center, half float64) float64 {
	return math.Max(center-half, math.Min(center+half, x))
}
