package metrics

import (
	"math"

	"github.com/san-kum/crtsim/internal/dynamo"
	"github.com/san-kum/crtsim/internal/field"
	"github.com/san-kum/crtsim/internal/geometry"
	"github.com/san-kum/crtsim/internal/sim"
	"gonum.org/v1/gonum/spatial/r3"
)

const ElectronVolt = 1.602176634e-19

func kinetic(p dynamo.Particle) float64 {
	v := r3.Norm(p.Velocity)
	return 0.5 * p.Mass * v * v
}

// KineticEnergy is the mean kinetic energy of moving particles in eV,
// averaged over every observed particle-tick.
type KineticEnergy struct {
	name    string
	samples int
	total   float64
}

func NewKineticEnergy() *KineticEnergy { return &KineticEnergy{name: "kinetic_energy_ev"} }

func (e *KineticEnergy) Name() string { return e.name }

func (e *KineticEnergy) OnTick(_ int, particles []dynamo.Particle, _ *sim.TickReport) {
	for _, p := range particles {
		if !p.Active() {
			continue
		}
		e.total += kinetic(p) / ElectronVolt
		e.samples++
	}
}

func (e *KineticEnergy) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return e.total / float64(e.samples)
}

func (e *KineticEnergy) Reset() {
	e.total = 0
	e.samples = 0
}

// EnergyDrift is the largest relative change of kinetic plus electric
// potential energy seen for any single moving particle. Plates are read
// through a callback so steering changes are taken into account.
type EnergyDrift struct {
	name     string
	plates   func() []geometry.Plate
	initial  map[dynamo.ParticleID]float64
	maxDrift float64
}

func NewEnergyDrift(plates func() []geometry.Plate) *EnergyDrift {
	return &EnergyDrift{
		name:    "energy_drift",
		plates:  plates,
		initial: make(map[dynamo.ParticleID]float64),
	}
}

func (e *EnergyDrift) Name() string { return e.name }

func (e *EnergyDrift) OnTick(_ int, particles []dynamo.Particle, report *sim.TickReport) {
	plates := e.plates()
	for _, p := range particles {
		if !p.Active() {
			continue
		}
		v, err := field.PotentialAt(p.Position, plates)
		if err != nil {
			continue
		}
		energy := kinetic(p) + p.Charge*v
		e0, ok := e.initial[p.ID]
		if !ok {
			e.initial[p.ID] = energy
			continue
		}
		if e0 != 0 {
			e.maxDrift = math.Max(e.maxDrift, math.Abs(energy-e0)/math.Abs(e0))
		}
	}
	for _, id := range report.Retired {
		delete(e.initial, id)
	}
	for _, id := range report.Stopped {
		delete(e.initial, id)
	}
}

func (e *EnergyDrift) Value() float64 { return e.maxDrift }

func (e *EnergyDrift) Reset() {
	e.maxDrift = 0
	clear(e.initial)
}
