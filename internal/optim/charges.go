package optim

import (
	"fmt"

	"github.com/san-kum/crtsim/internal/config"
	"github.com/san-kum/crtsim/internal/dynamo"
	"github.com/san-kum/crtsim/internal/experiment"
)

// ChargeBuilder returns a build function for GridSearch whose parameters
// are plate names mapped to charges. Setting the steering plate also sets
// its mirror, if any, to the opposite charge.
func ChargeBuilder(base *config.Config, opts ...experiment.Option) func(map[string]float64) (*experiment.Experiment, error) {
	return func(params map[string]float64) (*experiment.Experiment, error) {
		cfg := base.Clone()
		for name, q := range params {
			if !setCharge(cfg, name, q) {
				return nil, fmt.Errorf("%w: no plate named %q", dynamo.ErrConfiguration, name)
			}
			if name == cfg.Steering.Plate && cfg.Steering.Mirror != "" {
				setCharge(cfg, cfg.Steering.Mirror, -q)
			}
		}
		return experiment.New(cfg, opts...)
	}
}

func setCharge(cfg *config.Config, name string, q float64) bool {
	for i := range cfg.Plates {
		if cfg.Plates[i].Name == name {
			cfg.Plates[i].Charge = q
			return true
		}
	}
	return false
}
