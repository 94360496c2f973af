package field

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/crtsim/internal/dynamo"
	"github.com/san-kum/crtsim/internal/geometry"
	"gonum.org/v1/gonum/spatial/r3"
)

func plate(t *testing.T, center r3.Vec, normal geometry.Axis, q float64) geometry.Plate {
	t.Helper()
	p, err := geometry.NewPlate("", center, normal, 1, 1, q)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func closeTo(a, b, rel float64) bool {
	if a == b {
		return true
	}
	return math.Abs(a-b) <= rel*math.Max(math.Abs(a), math.Abs(b))
}

func TestAt_CathodeAnode(t *testing.T) {
	plates := []geometry.Plate{
		plate(t, r3.Vec{}, geometry.AxisX, 0),
		plate(t, r3.Vec{X: 10}, geometry.AxisX, 1e-8),
	}

	e, err := At(r3.Vec{X: 1}, plates)
	if err != nil {
		t.Fatalf("At: %v", err)
	}

	want := CoulombK * 1e-8 / 81
	if !closeTo(e.X, want, 1e-12) {
		t.Errorf("expected Ex %g, got %g", want, e.X)
	}
	if e.Y != 0 || e.Z != 0 {
		t.Errorf("expected field along x only, got %v", e)
	}
	if math.Abs(e.X-1.11) > 0.01 {
		t.Errorf("expected ~1.11 N/C, got %g", e.X)
	}
}

func TestAt_LinearInCharge(t *testing.T) {
	point := r3.Vec{X: 2, Y: 0.3, Z: -1.7}
	base := []geometry.Plate{
		plate(t, r3.Vec{}, geometry.AxisX, 3e-9),
		plate(t, r3.Vec{Y: 4}, geometry.AxisY, -5e-9),
	}
	doubled := []geometry.Plate{base[0], base[1]}
	doubled[1].Charge *= 2

	e1, err := At(point, base)
	if err != nil {
		t.Fatal(err)
	}
	e2, err := At(point, doubled)
	if err != nil {
		t.Fatal(err)
	}
	c1, _ := Contribution(point, base[1])

	delta := r3.Sub(e2, e1)
	for _, pair := range [][2]float64{{delta.X, c1.X}, {delta.Y, c1.Y}, {delta.Z, c1.Z}} {
		if !closeTo(pair[0], pair[1], 1e-9) {
			t.Errorf("expected doubled charge to add one more contribution: delta %v, contribution %v", delta, c1)
		}
	}
}

func TestAt_OppositePlates(t *testing.T) {
	plates := []geometry.Plate{
		plate(t, r3.Vec{Y: -2}, geometry.AxisY, 1e-9),
		plate(t, r3.Vec{Y: 2}, geometry.AxisY, -1e-9),
	}

	e, err := At(r3.Vec{}, plates)
	if err != nil {
		t.Fatal(err)
	}

	// Each plate gives K*1e-9/4; the -Y plate pulls toward -Y with positive
	// charge and the +Y plate's negative charge also points toward -Y.
	each := CoulombK * 1e-9 / 4
	if !closeTo(e.Y, -2*each, 1e-12) {
		t.Errorf("expected Ey %g, got %g", -2*each, e.Y)
	}
	if e.X != 0 || e.Z != 0 {
		t.Errorf("expected field along the joining line, got %v", e)
	}
}

func TestAt_ZeroDistance(t *testing.T) {
	plates := []geometry.Plate{plate(t, r3.Vec{X: 10}, geometry.AxisX, 1e-8)}

	_, err := At(r3.Vec{X: 10, Y: 0.5}, plates)
	if !errors.Is(err, dynamo.ErrDomain) {
		t.Fatalf("expected domain error, got %v", err)
	}
	var de *dynamo.DomainError
	if !errors.As(err, &de) || de.Plate != 0 {
		t.Errorf("expected plate index 0 in %v", err)
	}
}

func TestAt_NonFinite(t *testing.T) {
	plates := []geometry.Plate{plate(t, r3.Vec{}, geometry.AxisX, 1e-8)}
	_, err := At(r3.Vec{X: 1e-180}, plates)
	if !errors.Is(err, dynamo.ErrDomain) {
		t.Errorf("expected domain error for overflowing field, got %v", err)
	}
}

func TestAt_NoPlates(t *testing.T) {
	e, err := At(r3.Vec{X: 1}, nil)
	if err != nil || e != (r3.Vec{}) {
		t.Errorf("expected zero field, got %v %v", e, err)
	}
}

func TestPotentialAt(t *testing.T) {
	plates := []geometry.Plate{
		plate(t, r3.Vec{}, geometry.AxisX, 0),
		plate(t, r3.Vec{X: 10}, geometry.AxisX, 1e-8),
	}
	v, err := PotentialAt(r3.Vec{X: 1}, plates)
	if err != nil {
		t.Fatal(err)
	}
	if !closeTo(v, CoulombK*1e-8/9, 1e-12) {
		t.Errorf("expected %g V, got %g", CoulombK*1e-8/9, v)
	}
	if _, err := PotentialAt(r3.Vec{}, plates); !errors.Is(err, dynamo.ErrDomain) {
		t.Errorf("expected domain error on plate, got %v", err)
	}
}
