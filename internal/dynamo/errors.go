package dynamo

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

var (
	ErrDomain             = errors.New("domain error")
	ErrConfiguration      = errors.New("configuration error")
	ErrInvalidOrientation = errors.New("invalid orientation")
)

// DomainError reports a point where the field model has no finite value.
// Plate is the index into the evaluated plate list, or -1 when the fault
// is not tied to a single plate.
type DomainError struct {
	Point  r3.Vec
	Plate  int
	Reason string
}

func (e *DomainError) Error() string {
	if e.Plate < 0 {
		return fmt.Sprintf("domain error at (%g, %g, %g): %s", e.Point.X, e.Point.Y, e.Point.Z, e.Reason)
	}
	return fmt.Sprintf("domain error at (%g, %g, %g), plate %d: %s", e.Point.X, e.Point.Y, e.Point.Z, e.Plate, e.Reason)
}

func (e *DomainError) Unwrap() error { return ErrDomain }

// ConfigError names the offending field and value.
type ConfigError struct {
	Field  string
	Value  float64
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s %g: %s", e.Field, e.Value, e.Reason)
}

func (e *ConfigError) Unwrap() error { return ErrConfiguration }

// RequirePositive returns a *ConfigError unless v is a finite value > 0.
func RequirePositive(field string, v float64) error {
	if !(v > 0) || !Finite(v) {
		return &ConfigError{Field: field, Value: v, Reason: "must be positive"}
	}
	return nil
}
