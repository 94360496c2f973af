// Package field evaluates the electrostatic field of a plate set.
//
// Each plate is approximated by a point charge sitting at the point of the
// plate face nearest to the query location ([geometry.ClosestPoint]). The
// contributions superpose in configured plate order, so results are
// reproducible bit for bit for a fixed plate list.
package field

import (
	"github.com/san-kum/crtsim/internal/dynamo"
	"github.com/san-kum/crtsim/internal/geometry"
	"gonum.org/v1/gonum/spatial/r3"
)

// CoulombK is Coulomb's constant in N·m²/C².
const CoulombK = 8.99e9

// At returns the field in N/C at point. The contribution of each plate has
// magnitude K*q/d² and points from the query toward the plate's closest
// point. A zero distance or a non-finite sum is a *dynamo.DomainError.
func At(point r3.Vec, plates []geometry.Plate) (r3.Vec, error) {
	var sum r3.Vec
	for i, p := range plates {
		c, err := contribution(point, p, i)
		if err != nil {
			return r3.Vec{}, err
		}
		sum = r3.Add(sum, c)
	}
	if !dynamo.FiniteVec(sum) {
		return r3.Vec{}, &dynamo.DomainError{Point: point, Plate: -1, Reason: "non-finite field"}
	}
	return sum, nil
}

// Contribution is the field of a single plate at point.
func Contribution(point r3.Vec, p geometry.Plate) (r3.Vec, error) {
	return contribution(point, p, -1)
}

func contribution(point r3.Vec, p geometry.Plate, idx int) (r3.Vec, error) {
	toward := r3.Sub(geometry.ClosestPoint(point, p), point)
	d := r3.Norm(toward)
	if d == 0 {
		return r3.Vec{}, &dynamo.DomainError{Point: point, Plate: idx, Reason: "zero distance to plate surface"}
	}
	m := CoulombK * p.Charge / (d * d)
	v := r3.Scale(m/d, toward)
	if !dynamo.FiniteVec(v) {
		return r3.Vec{}, &dynamo.DomainError{Point: point, Plate: idx, Reason: "non-finite contribution"}
	}
	return v, nil
}

// PotentialAt sums K*q/d over the plates, in volts, using the same
// closest-point approximation and the same domain guard as At.
func PotentialAt(point r3.Vec, plates []geometry.Plate) (float64, error) {
	var v float64
	for i, p := range plates {
		d := r3.Norm(r3.Sub(geometry.ClosestPoint(point, p), point))
		if d == 0 {
			return 0, &dynamo.DomainError{Point: point, Plate: i, Reason: "zero distance to plate surface"}
		}
		v += CoulombK * p.Charge / d
	}
	if !dynamo.Finite(v) {
		return 0, &dynamo.DomainError{Point: point, Plate: -1, Reason: "non-finite potential"}
	}
	return v, nil
}
