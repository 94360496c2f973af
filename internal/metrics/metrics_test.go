package metrics

import (
	"math"
	"testing"

	"github.com/san-kum/crtsim/internal/dynamo"
	"github.com/san-kum/crtsim/internal/geometry"
	"github.com/san-kum/crtsim/internal/sim"
	"gonum.org/v1/gonum/spatial/r3"
)

func stopped(id dynamo.ParticleID, y float64) dynamo.Particle {
	return dynamo.Particle{
		ID:       id,
		Position: r3.Vec{X: 9, Y: y},
		Mass:     1,
		Phase:    dynamo.PhaseStopped,
	}
}

func TestLanded(t *testing.T) {
	particles := []dynamo.Particle{stopped(1, 0.1), stopped(2, 0.2), stopped(3, 0.3)}
	report := &sim.TickReport{Stopped: []dynamo.ParticleID{3, 1, 7}}

	got := Landed(particles, report)
	if len(got) != 2 {
		t.Fatalf("expected 2 landed particles, got %d", len(got))
	}
	if got[0].ID != 3 || got[1].ID != 1 {
		t.Errorf("expected stop order [3 1], got [%d %d]", got[0].ID, got[1].ID)
	}
}

func TestScreenHits(t *testing.T) {
	m := NewScreenHits()
	m.OnTick(1, nil, &sim.TickReport{Stopped: []dynamo.ParticleID{1, 2}})
	m.OnTick(2, nil, &sim.TickReport{Stopped: []dynamo.ParticleID{3}})

	if m.Value() != 3 {
		t.Errorf("expected 3 hits, got %f", m.Value())
	}
	m.Reset()
	if m.Value() != 0 {
		t.Errorf("expected 0 after reset, got %f", m.Value())
	}
}

func TestDeflection(t *testing.T) {
	d := NewDeflection(geometry.AxisY)
	spot := NewSpotSize(d)
	target := NewTargetError(d, 1)

	particles := []dynamo.Particle{stopped(1, 1), stopped(2, 3)}
	d.OnTick(1, particles, &sim.TickReport{Stopped: []dynamo.ParticleID{1, 2}})

	if d.Value() != 2 {
		t.Errorf("expected mean 2, got %f", d.Value())
	}
	if last, n := d.Last(); last != 2 || n != 2 {
		t.Errorf("expected last 2 over 2 samples, got %f over %d", last, n)
	}
	if math.Abs(spot.Value()-math.Sqrt2) > 1e-12 {
		t.Errorf("expected spread sqrt(2), got %f", spot.Value())
	}
	if target.Value() != 1 {
		t.Errorf("expected target error 1, got %f", target.Value())
	}

	d.OnTick(2, particles, &sim.TickReport{})
	if _, n := d.Last(); n != 0 {
		t.Errorf("expected no samples on an empty tick, got %d", n)
	}
	if d.Value() != 2 {
		t.Errorf("mean should persist across empty ticks, got %f", d.Value())
	}
}

func TestKineticEnergy(t *testing.T) {
	m := NewKineticEnergy()
	p := dynamo.Particle{ID: 1, Mass: 2, Velocity: r3.Vec{X: 3}, Phase: dynamo.PhaseMoving}
	parked := stopped(2, 0)
	parked.Velocity = r3.Vec{X: 100}

	m.OnTick(1, []dynamo.Particle{p, parked}, &sim.TickReport{})

	expected := 9.0 / ElectronVolt
	if math.Abs(m.Value()-expected)/expected > 1e-12 {
		t.Errorf("expected energy %g eV, got %g", expected, m.Value())
	}

	m.Reset()
	if m.Value() != 0 {
		t.Error("expected zero after reset")
	}
}

func TestEnergyDrift(t *testing.T) {
	plate, err := geometry.NewPlate("anode", r3.Vec{X: 10}, geometry.AxisX, 1, 1, 1e-8)
	if err != nil {
		t.Fatal(err)
	}
	plates := []geometry.Plate{plate}
	m := NewEnergyDrift(func() []geometry.Plate { return plates })

	p := dynamo.Particle{ID: 1, Mass: 1, Charge: 1e-9, Velocity: r3.Vec{X: 1}, Phase: dynamo.PhaseMoving}
	m.OnTick(1, []dynamo.Particle{p}, &sim.TickReport{})
	m.OnTick(2, []dynamo.Particle{p}, &sim.TickReport{})
	if m.Value() != 0 {
		t.Errorf("expected no drift for an unchanged particle, got %g", m.Value())
	}

	p.Velocity = r3.Vec{X: 2}
	m.OnTick(3, []dynamo.Particle{p}, &sim.TickReport{Retired: []dynamo.ParticleID{1}})
	if m.Value() <= 0 {
		t.Error("expected positive drift after a velocity jump")
	}
	if len(m.initial) != 0 {
		t.Error("retired particles should be forgotten")
	}
}

func TestDomainFaults(t *testing.T) {
	m := NewDomainFaults()
	m.OnTick(1, nil, &sim.TickReport{Faults: []sim.Fault{{Particle: 1}, {Particle: 2}}})
	if m.Value() != 2 {
		t.Errorf("expected 2 faults, got %f", m.Value())
	}
}

func TestPeakActive(t *testing.T) {
	m := NewPeakActive()
	m.OnTick(1, make([]dynamo.Particle, 3), &sim.TickReport{})
	m.OnTick(2, make([]dynamo.Particle, 1), &sim.TickReport{})
	if m.Value() != 3 {
		t.Errorf("expected peak 3, got %f", m.Value())
	}
}

var _ sim.Metric = (*SpotSize)(nil)
var _ sim.Metric = (*TargetError)(nil)
var _ sim.Metric = (*EnergyDrift)(nil)
