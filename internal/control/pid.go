package control

import "github.com/san-kum/crtsim/internal/dynamo"

// PID steers the mean landing coordinate toward Target. Ticks with no
// screen hits hold the previous output.
type PID struct {
	Kp     float64
	Ki     float64
	Kd     float64
	Target float64
	// Bias is added to the controller output.
	Bias float64

	integral float64
	prevErr  float64
	prevT    int
	last     float64
	first    bool
}

func NewPID(kp, ki, kd, target float64) *PID {
	return &PID{
		Kp:     kp,
		Ki:     ki,
		Kd:     kd,
		Target: target,
		first:  true,
	}
}

func (p *PID) Name() string { return "pid" }

func (p *PID) Compute(m Measurement, tick int) (float64, bool) {
	if m.Samples == 0 || !dynamo.Finite(m.Value) {
		return p.last, !p.first
	}

	err := p.Target - m.Value

	if p.first {
		p.prevErr = err
		p.prevT = tick
		p.first = false
		p.last = p.Bias + p.Kp*err
		return p.last, true
	}

	dt := float64(tick - p.prevT)
	if dt > 0 {
		p.integral += err * dt
		derivative := (err - p.prevErr) / dt
		p.last = p.Bias + p.Kp*err + p.Ki*p.integral + p.Kd*derivative
		p.prevErr = err
		p.prevT = tick
		return p.last, true
	}
	p.last = p.Bias + p.Kp*err
	return p.last, true
}

// Reset clears integral and derivative state
func (p *PID) Reset() {
	p.integral = 0
	p.prevErr = 0
	p.last = 0
	p.first = true
}

// GetParams returns tunable parameters for live adjustment
func (p *PID) GetParams() map[string]float64 {
	return map[string]float64{
		"Kp":     p.Kp,
		"Ki":     p.Ki,
		"Kd":     p.Kd,
		"Target": p.Target,
		"Bias":   p.Bias,
	}
}

// SetParam adjusts a PID parameter
func (p *PID) SetParam(name string, value float64) error {
	if !dynamo.Finite(value) {
		return &dynamo.ConfigError{Field: "pid " + name, Value: value, Reason: "must be finite"}
	}
	switch name {
	case "Kp":
		p.Kp = value
	case "Ki":
		p.Ki = value
	case "Kd":
		p.Kd = value
	case "Target":
		p.Target = value
	case "Bias":
		p.Bias = value
	default:
		return &dynamo.ConfigError{Field: "pid param " + name, Value: value, Reason: "unknown parameter"}
	}
	return nil
}
