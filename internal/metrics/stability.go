package metrics

import (
	"github.com/san-kum/crtsim/internal/dynamo"
	"github.com/san-kum/crtsim/internal/sim"
)

// DomainFaults counts particle updates skipped because the field or the
// integration result was undefined.
type DomainFaults struct {
	name   string
	faults int
}

func NewDomainFaults() *DomainFaults { return &DomainFaults{name: "domain_faults"} }

func (d *DomainFaults) Name() string { return d.name }

func (d *DomainFaults) OnTick(_ int, _ []dynamo.Particle, report *sim.TickReport) {
	d.faults += len(report.Faults)
}

func (d *DomainFaults) Value() float64 { return float64(d.faults) }

func (d *DomainFaults) Reset() { d.faults = 0 }

// PeakActive is the largest active-set size seen after any tick.
type PeakActive struct {
	name string
	peak int
}

func NewPeakActive() *PeakActive { return &PeakActive{name: "peak_active"} }

func (p *PeakActive) Name() string { return p.name }

func (p *PeakActive) OnTick(_ int, particles []dynamo.Particle, _ *sim.TickReport) {
	p.peak = max(p.peak, len(particles))
}

func (p *PeakActive) Value() float64 { return float64(p.peak) }

func (p *PeakActive) Reset() { p.peak = 0 }
