package experiment

import (
	"github.com/san-kum/crtsim/internal/config"
	"github.com/san-kum/crtsim/internal/control"
	"github.com/san-kum/crtsim/internal/dynamo"
	"github.com/san-kum/crtsim/internal/geometry"
	"github.com/san-kum/crtsim/internal/integrators"
	"github.com/san-kum/crtsim/internal/metrics"
	"github.com/san-kum/crtsim/internal/sim"
)

// Registry resolves the names used in scene files.
type Registry struct{}

func NewRegistry() *Registry { return &Registry{} }

func (r *Registry) GetIntegrator(name string) (dynamo.Integrator, error) {
	return integrators.Get(name)
}

func (r *Registry) GetController(s config.SteeringConfig) (control.Steering, error) {
	return control.New(s.Controller, control.Params{
		Amplitude: s.Amplitude,
		Offset:    s.Offset,
		Period:    s.Period,
		Kp:        s.Kp,
		Ki:        s.Ki,
		Kd:        s.Kd,
		Target:    s.Target,
	})
}

func (r *Registry) ListIntegrators() []string { return integrators.Names() }

func (r *Registry) ListControllers() []string { return control.Names() }

// DefaultMetrics returns the metrics every run reports. d must be observed
// before the metrics derived from it, so it comes first.
func (r *Registry) DefaultMetrics(plates *geometry.PlateSet, d *metrics.Deflection, target float64) []sim.Metric {
	return []sim.Metric{
		d,
		metrics.NewSpotSize(d),
		metrics.NewTargetError(d, target),
		metrics.NewScreenHits(),
		metrics.NewKineticEnergy(),
		metrics.NewEnergyDrift(plates.Snapshot),
		metrics.NewDomainFaults(),
		metrics.NewPeakActive(),
	}
}
