package geometry

import (
	"fmt"
	"strings"

	"github.com/san-kum/crtsim/internal/dynamo"
	"gonum.org/v1/gonum/spatial/r3"
)

// Axis is one of the three world axes. A plate's normal is an Axis.
type Axis uint8

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

func ParseAxis(s string) (Axis, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "X":
		return AxisX, nil
	case "Y":
		return AxisY, nil
	case "Z":
		return AxisZ, nil
	}
	return 0, fmt.Errorf("%w: %q", dynamo.ErrInvalidOrientation, s)
}

func (a Axis) Valid() bool { return a <= AxisZ }

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "X"
	case AxisY:
		return "Y"
	case AxisZ:
		return "Z"
	}
	return fmt.Sprintf("Axis(%d)", uint8(a))
}

// InPlane returns the two axes orthogonal to a, in X, Y, Z order.
func (a Axis) InPlane() (Axis, Axis) {
	switch a {
	case AxisX:
		return AxisY, AxisZ
	case AxisY:
		return AxisX, AxisZ
	default:
		return AxisX, AxisY
	}
}

// Unit returns the positive unit vector along a.
func (a Axis) Unit() r3.Vec {
	return With(r3.Vec{}, a, 1)
}

// Component returns the coordinate of v along a.
func Component(v r3.Vec, a Axis) float64 {
	switch a {
	case AxisX:
		return v.X
	case AxisY:
		return v.Y
	default:
		return v.Z
	}
}

// With returns v with its coordinate along a replaced by c.
func With(v r3.Vec, a Axis, c float64) r3.Vec {
	switch a {
	case AxisX:
		v.X = c
	case AxisY:
		v.Y = c
	default:
		v.Z = c
	}
	return v
}
