package control

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/crtsim/internal/dynamo"
)

func TestNone(t *testing.T) {
	ctrl := NewNone()
	if _, ok := ctrl.Compute(Measurement{Value: 1, Samples: 3}, 10); ok {
		t.Error("none controller should never write a charge")
	}
}

func TestSweep(t *testing.T) {
	ctrl, err := NewSweep(2e-9, 40, 1e-9)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		tick     int
		expected float64
	}{
		{0, 1e-9},
		{10, 3e-9},
		{20, 1e-9},
		{30, -1e-9},
	}
	for _, tt := range tests {
		q, ok := ctrl.Compute(Measurement{}, tt.tick)
		if !ok {
			t.Fatalf("tick %d: sweep should always write", tt.tick)
		}
		if math.Abs(q-tt.expected) > 1e-18 {
			t.Errorf("tick %d: expected %g, got %g", tt.tick, tt.expected, q)
		}
	}
}

func TestSweep_InvalidPeriod(t *testing.T) {
	if _, err := NewSweep(1, 0, 0); !errors.Is(err, dynamo.ErrConfiguration) {
		t.Errorf("expected configuration error, got %v", err)
	}
}

func TestPID(t *testing.T) {
	ctrl := NewPID(10.0, 0.1, 5.0, 0.0)
	u, ok := ctrl.Compute(Measurement{Value: 1.0, Samples: 1}, 0)
	if !ok {
		t.Fatal("expected a charge on the first measurement")
	}
	if u >= 0 {
		t.Error("PID should output negative control for positive error")
	}
}

func TestPID_HoldsWithoutSamples(t *testing.T) {
	ctrl := NewPID(1, 0, 0, 0.5)

	if _, ok := ctrl.Compute(Measurement{}, 0); ok {
		t.Error("expected no write before any measurement")
	}

	first, _ := ctrl.Compute(Measurement{Value: 0, Samples: 2}, 1)
	held, ok := ctrl.Compute(Measurement{}, 2)
	if !ok || held != first {
		t.Errorf("expected held output %g, got %g (ok=%v)", first, held, ok)
	}
}

func TestPID_Integral(t *testing.T) {
	ctrl := NewPID(0, 1, 0, 1)
	ctrl.Compute(Measurement{Value: 0, Samples: 1}, 0)
	u, _ := ctrl.Compute(Measurement{Value: 0, Samples: 1}, 4)
	if u != 4 {
		t.Errorf("expected integral output 4, got %g", u)
	}

	ctrl.Reset()
	u, _ = ctrl.Compute(Measurement{Value: 0, Samples: 1}, 5)
	if u != 0 {
		t.Errorf("expected zero output after reset, got %g", u)
	}
}

func TestPID_SetParam(t *testing.T) {
	ctrl := NewPID(1, 0, 0, 0)
	if err := ctrl.SetParam("Target", 0.25); err != nil {
		t.Fatal(err)
	}
	if ctrl.GetParams()["Target"] != 0.25 {
		t.Errorf("expected target 0.25, got %g", ctrl.Target)
	}
	if err := ctrl.SetParam("Gain", 1); !errors.Is(err, dynamo.ErrConfiguration) {
		t.Errorf("expected configuration error, got %v", err)
	}
	if err := ctrl.SetParam("Kp", math.Inf(1)); err == nil {
		t.Error("expected error for infinite gain")
	}
}

func TestNew(t *testing.T) {
	for _, name := range Names() {
		ctrl, err := New(name, Params{Period: 10})
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if ctrl.Name() != name {
			t.Errorf("expected %s, got %s", name, ctrl.Name())
		}
	}
	if _, err := New("lqr", Params{}); !errors.Is(err, dynamo.ErrConfiguration) {
		t.Errorf("expected configuration error, got %v", err)
	}
}
