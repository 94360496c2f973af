package geometry

import (
	"errors"
	"testing"

	"github.com/san-kum/crtsim/internal/dynamo"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestClosestPoint_OrientationX(t *testing.T) {
	p, err := NewPlate("screen", r3.Vec{}, AxisX, 2, 3, 0)
	if err != nil {
		t.Fatalf("NewPlate: %v", err)
	}

	tests := []struct {
		name  string
		point r3.Vec
		want  r3.Vec
	}{
		{"on normal line", r3.Vec{X: 5}, r3.Vec{}},
		{"face interior", r3.Vec{X: -4, Y: 1, Z: -2}, r3.Vec{Y: 1, Z: -2}},
		{"beyond edge", r3.Vec{X: 1, Y: 7, Z: 0.5}, r3.Vec{Y: 2, Z: 0.5}},
		{"beyond corner", r3.Vec{X: 1, Y: -9, Z: 9}, r3.Vec{Y: -2, Z: 3}},
		{"on face", r3.Vec{Y: 0.5, Z: 0.5}, r3.Vec{Y: 0.5, Z: 0.5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClosestPoint(tt.point, p)
			if got != tt.want {
				t.Errorf("ClosestPoint(%v) = %v, want %v", tt.point, got, tt.want)
			}
			if got.X != 0 {
				t.Errorf("expected x pinned to plate, got %v", got.X)
			}
		})
	}
}

func TestClosestPoint_ClampsIntoBounds(t *testing.T) {
	p, _ := NewPlate("", r3.Vec{}, AxisX, 1.5, 0.5, 0)
	for x := -3.0; x <= 3; x += 0.75 {
		for y := -3.0; y <= 3; y += 0.75 {
			for z := -3.0; z <= 3; z += 0.75 {
				got := ClosestPoint(r3.Vec{X: x, Y: y, Z: z}, p)
				if got.X != 0 || got.Y < -1.5 || got.Y > 1.5 || got.Z < -0.5 || got.Z > 0.5 {
					t.Fatalf("point (%v,%v,%v) projected out of bounds: %v", x, y, z, got)
				}
			}
		}
	}
}

func TestClosestPoint_OffsetPlates(t *testing.T) {
	tests := []struct {
		name   string
		center r3.Vec
		normal Axis
		point  r3.Vec
		want   r3.Vec
	}{
		{"Y plate", r3.Vec{X: 5, Y: 1}, AxisY, r3.Vec{X: 9, Y: -3, Z: 0.2}, r3.Vec{X: 6, Y: 1, Z: 0.2}},
		{"Z plate", r3.Vec{Z: -2}, AxisZ, r3.Vec{X: -0.5, Y: 4, Z: 8}, r3.Vec{X: -0.5, Y: 1, Z: -2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewPlate(tt.name, tt.center, tt.normal, 1, 1, 0)
			if err != nil {
				t.Fatal(err)
			}
			if got := ClosestPoint(tt.point, p); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestNewPlate_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		normal Axis
		hu, hv float64
		target error
	}{
		{"zero extent", AxisX, 0, 1, dynamo.ErrConfiguration},
		{"negative extent", AxisY, 1, -1, dynamo.ErrConfiguration},
		{"bad orientation", Axis(7), 1, 1, dynamo.ErrInvalidOrientation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPlate("p", r3.Vec{}, tt.normal, tt.hu, tt.hv, 0)
			if !errors.Is(err, tt.target) {
				t.Errorf("expected %v, got %v", tt.target, err)
			}
		})
	}
}

func TestParseAxis(t *testing.T) {
	for in, want := range map[string]Axis{"x": AxisX, "Y": AxisY, " z ": AxisZ} {
		got, err := ParseAxis(in)
		if err != nil || got != want {
			t.Errorf("ParseAxis(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseAxis("W"); !errors.Is(err, dynamo.ErrInvalidOrientation) {
		t.Errorf("expected invalid orientation, got %v", err)
	}
}

func TestCorners(t *testing.T) {
	p, _ := NewPlate("", r3.Vec{X: 10}, AxisX, 1, 2, 0)
	c := p.Corners()
	if c[0] != (r3.Vec{X: 10, Y: -1, Z: -2}) || c[2] != (r3.Vec{X: 10, Y: 1, Z: 2}) {
		t.Errorf("unexpected corners %v", c)
	}
}
