package config

import (
	"fmt"
	"os"
	"slices"

	"github.com/san-kum/crtsim/internal/control"
	"github.com/san-kum/crtsim/internal/dynamo"
	"github.com/san-kum/crtsim/internal/geometry"
	"github.com/san-kum/crtsim/internal/integrators"
	"github.com/san-kum/crtsim/internal/sim"
	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"
)

const (
	DefaultDt          = 5e-9
	DefaultTicks       = 600
	DefaultMaxAge      = 400
	DefaultSpawnPeriod = 10
	DefaultSampleEvery = 5
	DefaultIntegrator  = "symplectic"

	ElectronCharge = -1.6e-19
	ElectronMass   = 9.1e-31
)

// Vec3 is a point written as a YAML sequence [x, y, z].
type Vec3 [3]float64

func (v Vec3) R3() r3.Vec { return r3.Vec{X: v[0], Y: v[1], Z: v[2]} }

type Config struct {
	Name        string  `yaml:"name,omitempty"`
	Dt          float64 `yaml:"dt"`
	Ticks       int     `yaml:"ticks"`
	Integrator  string  `yaml:"integrator"`
	Seed        int64   `yaml:"seed"`
	Workers     int     `yaml:"workers"`
	SampleEvery int     `yaml:"sample_every"`

	Plates    []PlateConfig   `yaml:"plates"`
	Particle  ParticleConfig  `yaml:"particle"`
	Lifecycle LifecycleConfig `yaml:"lifecycle"`
	Steering  SteeringConfig  `yaml:"steering"`
}

type PlateConfig struct {
	Name        string     `yaml:"name"`
	Position    Vec3       `yaml:"position"`
	Orientation string     `yaml:"orientation"`
	HalfExtents [2]float64 `yaml:"half_extents"`
	Charge      float64    `yaml:"charge"`
}

type ParticleConfig struct {
	Charge   float64 `yaml:"charge"`
	Mass     float64 `yaml:"mass"`
	Velocity Vec3    `yaml:"velocity"`
	Origin   Vec3    `yaml:"origin"`
}

type LifecycleConfig struct {
	MaxAge      int     `yaml:"max_age"`
	TravelAxis  string  `yaml:"travel_axis"`
	Boundary    float64 `yaml:"boundary"`
	SpawnPeriod int     `yaml:"spawn_period"`
	Jitter      float64 `yaml:"jitter"`

	// StoppedTTL retires STOPPED particles this many ticks after they
	// stop; 0 keeps them for the whole run.
	StoppedTTL int `yaml:"stopped_ttl"`
}

type SteeringConfig struct {
	Controller string `yaml:"controller"`
	Plate      string `yaml:"plate"`
	// Mirror, when set, receives the negated charge of Plate.
	Mirror string `yaml:"mirror,omitempty"`
	// Axis is the screen coordinate the controller measures.
	Axis string `yaml:"axis"`

	Amplitude float64 `yaml:"amplitude"`
	Offset    float64 `yaml:"offset"`
	Period    float64 `yaml:"period"`

	Kp     float64 `yaml:"kp"`
	Ki     float64 `yaml:"ki"`
	Kd     float64 `yaml:"kd"`
	Target float64 `yaml:"target"`
}

// DefaultConfig is a small CRT: a cathode and anode on the beam axis, a
// pair of deflection plates between them and a screen in front of the
// anode.
func DefaultConfig() *Config {
	return &Config{
		Name:        "crt",
		Dt:          DefaultDt,
		Ticks:       DefaultTicks,
		Integrator:  DefaultIntegrator,
		Seed:        1,
		SampleEvery: DefaultSampleEvery,
		Plates: []PlateConfig{
			{Name: "cathode", Position: Vec3{0, 0, 0}, Orientation: "X", HalfExtents: [2]float64{1, 1}, Charge: 0},
			{Name: "anode", Position: Vec3{10, 0, 0}, Orientation: "X", HalfExtents: [2]float64{1, 1}, Charge: 1e-12},
			{Name: "deflect-up", Position: Vec3{4.5, 1, 0}, Orientation: "Y", HalfExtents: [2]float64{1, 1}, Charge: 0},
			{Name: "deflect-down", Position: Vec3{4.5, -1, 0}, Orientation: "Y", HalfExtents: [2]float64{1, 1}, Charge: 0},
		},
		Particle: ParticleConfig{
			Charge:   ElectronCharge,
			Mass:     ElectronMass,
			Velocity: Vec3{1e7, 0, 0},
			Origin:   Vec3{0.5, 0, 0},
		},
		Lifecycle: LifecycleConfig{
			MaxAge:      DefaultMaxAge,
			TravelAxis:  "X",
			Boundary:    9,
			SpawnPeriod: DefaultSpawnPeriod,
			Jitter:      0.05,
		},
		Steering: SteeringConfig{
			Controller: "none",
			Plate:      "deflect-down",
			Mirror:     "deflect-up",
			Axis:       "Y",
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes YAML on top of DefaultConfig. A plates list in the input
// replaces the default plates.
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if err := dynamo.RequirePositive("dt", c.Dt); err != nil {
		return err
	}
	if c.Ticks <= 0 {
		return &dynamo.ConfigError{Field: "ticks", Value: float64(c.Ticks), Reason: "must be positive"}
	}
	if _, err := integrators.Get(c.Integrator); err != nil {
		return err
	}
	if c.Lifecycle.SpawnPeriod <= 0 {
		return &dynamo.ConfigError{Field: "spawn period", Value: float64(c.Lifecycle.SpawnPeriod), Reason: "must be positive"}
	}
	if c.Lifecycle.StoppedTTL < 0 {
		return &dynamo.ConfigError{Field: "stopped ttl", Value: float64(c.Lifecycle.StoppedTTL), Reason: "must be >= 0"}
	}
	if _, err := c.BuildPlates(); err != nil {
		return err
	}
	if _, err := c.ManagerOptions(); err != nil {
		return err
	}
	return c.validateSteering()
}

func (c *Config) validateSteering() error {
	s := c.Steering
	if s.Controller == "" || s.Controller == "none" {
		return nil
	}
	if !slices.Contains(control.Names(), s.Controller) {
		return fmt.Errorf("%w: unknown controller %q", dynamo.ErrConfiguration, s.Controller)
	}
	if _, err := geometry.ParseAxis(s.Axis); err != nil {
		return fmt.Errorf("steering axis: %w", err)
	}
	if c.plateIndex(s.Plate) < 0 {
		return fmt.Errorf("%w: steering references unknown plate %q", dynamo.ErrConfiguration, s.Plate)
	}
	if s.Mirror != "" && c.plateIndex(s.Mirror) < 0 {
		return fmt.Errorf("%w: steering references unknown plate %q", dynamo.ErrConfiguration, s.Mirror)
	}
	if s.Controller == "sweep" && !(s.Period > 0) {
		return &dynamo.ConfigError{Field: "sweep period", Value: s.Period, Reason: "must be positive"}
	}
	return nil
}

func (c *Config) plateIndex(name string) int {
	for i, p := range c.Plates {
		if p.Name == name {
			return i
		}
	}
	return -1
}

// BuildPlates converts the plate list, in order, into validated plates.
func (c *Config) BuildPlates() ([]geometry.Plate, error) {
	plates := make([]geometry.Plate, 0, len(c.Plates))
	for i, pc := range c.Plates {
		axis, err := geometry.ParseAxis(pc.Orientation)
		if err != nil {
			return nil, fmt.Errorf("plate %d (%s): %w", i, pc.Name, err)
		}
		p, err := geometry.NewPlate(pc.Name, pc.Position.R3(), axis, pc.HalfExtents[0], pc.HalfExtents[1], pc.Charge)
		if err != nil {
			return nil, fmt.Errorf("plate %d: %w", i, err)
		}
		plates = append(plates, p)
	}
	return plates, nil
}

func (c *Config) ManagerOptions() (sim.Options, error) {
	axis, err := geometry.ParseAxis(c.Lifecycle.TravelAxis)
	if err != nil {
		return sim.Options{}, fmt.Errorf("travel axis: %w", err)
	}
	opts := sim.Options{
		Particle: sim.ParticleSpec{
			Charge:   c.Particle.Charge,
			Mass:     c.Particle.Mass,
			Velocity: c.Particle.Velocity.R3(),
		},
		Origin:     c.Particle.Origin.R3(),
		MaxAge:     c.Lifecycle.MaxAge,
		TravelAxis: axis,
		Boundary:   c.Lifecycle.Boundary,
		Jitter:     c.Lifecycle.Jitter,
		Workers:    c.Workers,
	}
	if err := opts.Validate(); err != nil {
		return sim.Options{}, err
	}
	return opts, nil
}

// Clone returns a deep copy, so presets can be modified safely.
func (c *Config) Clone() *Config {
	out := *c
	out.Plates = append([]PlateConfig(nil), c.Plates...)
	return &out
}
