package control

import (
	"fmt"

	"github.com/san-kum/crtsim/internal/dynamo"
)

// Measurement is the mean landing coordinate of the particles that
// reached the screen during the last tick.
type Measurement struct {
	Value   float64
	Samples int
}

type Steering interface {
	Name() string
	// Compute returns the charge to write and whether to write it.
	Compute(m Measurement, tick int) (float64, bool)
}

type Configurable interface {
	GetParams() map[string]float64
	SetParam(name string, value float64) error
}

// Params carries the tunables of every controller kind.
type Params struct {
	Amplitude float64
	Offset    float64
	Period    float64
	Kp        float64
	Ki        float64
	Kd        float64
	Target    float64
}

func New(name string, p Params) (Steering, error) {
	switch name {
	case "", "none":
		return NewNone(), nil
	case "sweep":
		return NewSweep(p.Amplitude, p.Period, p.Offset)
	case "pid":
		pid := NewPID(p.Kp, p.Ki, p.Kd, p.Target)
		pid.Bias = p.Offset
		return pid, nil
	}
	return nil, fmt.Errorf("%w: unknown controller %q", dynamo.ErrConfiguration, name)
}

func Names() []string { return []string{"none", "pid", "sweep"} }
