package automation

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/san-kum/crtsim/internal/config"
	"github.com/san-kum/crtsim/internal/experiment"
	"github.com/san-kum/crtsim/internal/export"
	"github.com/san-kum/crtsim/internal/optim"
	"gopkg.in/yaml.v3"
)

// Scenario is a scripted sequence of scene runs.
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep starts from a preset or a scene file and overrides the
// fields that are set. Charges are keyed by plate name.
type ScenarioStep struct {
	Preset     string             `yaml:"preset"`
	Scene      string             `yaml:"scene"`
	Integrator string             `yaml:"integrator"`
	Controller string             `yaml:"controller"`
	Target     *float64           `yaml:"target"`
	Ticks      int                `yaml:"ticks"`
	Dt         float64            `yaml:"dt"`
	Seed       int64              `yaml:"seed"`
	Charges    map[string]float64 `yaml:"charges"`
	SaveAs     string             `yaml:"save_as"`
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseScenario(data)
}

func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, err
	}
	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("scenario %q has no steps", scenario.Name)
	}
	return &scenario, nil
}

// Config resolves the step into a validated scene config.
func (s ScenarioStep) Config() (*config.Config, error) {
	cfg := config.DefaultConfig()
	switch {
	case s.Preset != "" && s.Scene != "":
		return nil, fmt.Errorf("step sets both preset %q and scene %q", s.Preset, s.Scene)
	case s.Preset != "":
		cfg = config.GetPreset(s.Preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s", s.Preset)
		}
	case s.Scene != "":
		loaded, err := config.Load(s.Scene)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if s.Integrator != "" {
		cfg.Integrator = s.Integrator
	}
	if s.Controller != "" {
		cfg.Steering.Controller = s.Controller
	}
	if s.Target != nil {
		cfg.Steering.Target = *s.Target
	}
	if s.Ticks > 0 {
		cfg.Ticks = s.Ticks
	}
	if s.Dt > 0 {
		cfg.Dt = s.Dt
	}
	if s.Seed != 0 {
		cfg.Seed = s.Seed
	}
	for name, q := range s.Charges {
		found := false
		for i := range cfg.Plates {
			if cfg.Plates[i].Name == name {
				cfg.Plates[i].Charge = q
				found = true
			}
		}
		if !found {
			return nil, fmt.Errorf("no plate named %q", name)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// RunScenario executes the steps in order and stops at the first failure,
// returning the results gathered so far.
func RunScenario(ctx context.Context, scenario *Scenario, logger *slog.Logger) ([]*experiment.Result, error) {
	if logger == nil {
		logger = slog.Default()
	}
	results := make([]*experiment.Result, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		cfg, err := step.Config()
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}
		logger.Info("scenario step", "step", i+1, "of", len(scenario.Steps), "scene", cfg.Name)

		exp, err := experiment.New(cfg, experiment.WithLogger(logger))
		if err != nil {
			return results, fmt.Errorf("step %d setup: %w", i+1, err)
		}

		result, err := exp.Run(ctx)
		if err != nil {
			return results, fmt.Errorf("step %d run: %w", i+1, err)
		}
		results = append(results, result)

		if step.SaveAs != "" {
			if err := save(step.SaveAs, result); err != nil {
				return results, fmt.Errorf("step %d save: %w", i+1, err)
			}
		}
	}

	return results, nil
}

func save(path string, res *experiment.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := export.JSON(f, res); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ChargeSweep runs Base once per charge on Plate. The steering mirror, if
// Plate is the steering plate, follows with the opposite sign.
type ChargeSweep struct {
	Base     *config.Config
	Plate    string
	ChargeLo float64
	ChargeHi float64
	NumSteps int
}

type SweepResult struct {
	Charge     float64
	Hits       int
	Deflection float64
	SpotSize   float64
}

func RunSweep(ctx context.Context, sweep *ChargeSweep, logger *slog.Logger) ([]SweepResult, error) {
	if sweep.NumSteps < 2 {
		return nil, fmt.Errorf("sweep needs at least 2 steps, got %d", sweep.NumSteps)
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	base := sweep.Base.Clone()
	// The controller would overwrite the swept charge.
	base.Steering.Controller = "none"
	build := optim.ChargeBuilder(base, experiment.WithLogger(logger))

	charges := optim.Linspace(sweep.ChargeLo, sweep.ChargeHi, sweep.NumSteps)
	results := make([]SweepResult, 0, len(charges))

	for i, q := range charges {
		exp, err := build(map[string]float64{sweep.Plate: q})
		if err != nil {
			return results, err
		}
		res, err := exp.Run(ctx)
		if err != nil {
			return results, err
		}

		results = append(results, SweepResult{
			Charge:     q,
			Hits:       len(res.Hits),
			Deflection: res.Metrics["mean_deflection"],
			SpotSize:   res.Metrics["spot_size"],
		})
		logger.Debug("sweep point", "step", i+1, "of", len(charges), "plate", sweep.Plate, "charge", q)
	}

	return results, nil
}

// MonteCarloStats counts runs that landed at least one particle and runs
// that faulted.
func MonteCarloStats(results []*experiment.Result) (landed int, faulted int) {
	for _, r := range results {
		if len(r.Hits) > 0 {
			landed++
		}
		if len(r.Faults) > 0 {
			faulted++
		}
	}
	return
}
