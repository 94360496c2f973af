package control

import (
	"math"

	"github.com/san-kum/crtsim/internal/dynamo"
)

// Sweep rasters the beam: charge = Offset + Amplitude*sin(2*pi*tick/Period).
type Sweep struct {
	Amplitude float64
	Offset    float64
	Period    float64
}

func NewSweep(amplitude, period, offset float64) (*Sweep, error) {
	if err := dynamo.RequirePositive("sweep period", period); err != nil {
		return nil, err
	}
	return &Sweep{Amplitude: amplitude, Offset: offset, Period: period}, nil
}

func (s *Sweep) Name() string { return "sweep" }

func (s *Sweep) Compute(_ Measurement, tick int) (float64, bool) {
	phase := 2 * math.Pi * float64(tick) / s.Period
	return s.Offset + s.Amplitude*math.Sin(phase), true
}

func (s *Sweep) GetParams() map[string]float64 {
	return map[string]float64{
		"Amplitude": s.Amplitude,
		"Offset":    s.Offset,
		"Period":    s.Period,
	}
}

func (s *Sweep) SetParam(name string, value float64) error {
	switch name {
	case "Amplitude":
		s.Amplitude = value
	case "Offset":
		s.Offset = value
	case "Period":
		if err := dynamo.RequirePositive("sweep period", value); err != nil {
			return err
		}
		s.Period = value
	default:
		return &dynamo.ConfigError{Field: "sweep param " + name, Value: value, Reason: "unknown parameter"}
	}
	return nil
}
