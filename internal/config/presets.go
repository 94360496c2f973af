package config

import "sort"

// Presets build named scenes on top of DefaultConfig.
var Presets = map[string]func() *Config{
	"crt":     DefaultConfig,
	"deflect": deflectPreset,
	"sweep":   sweepPreset,
	"steer":   steerPreset,
	"single":  singlePreset,
}

// GetPreset returns a fresh copy of the named scene, or nil.
func GetPreset(name string) *Config {
	build, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := build()
	cfg.Name = name
	return cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// deflectPreset charges the deflection pair so the beam lands above the
// axis. Electrons are pushed away from positive plates, so the lower
// plate carries the positive charge.
func deflectPreset() *Config {
	cfg := DefaultConfig()
	cfg.setCharge("deflect-down", 1e-9)
	cfg.setCharge("deflect-up", -1e-9)
	return cfg
}

func sweepPreset() *Config {
	cfg := DefaultConfig()
	cfg.Ticks = 1200
	cfg.Lifecycle.SpawnPeriod = 4
	cfg.Lifecycle.StoppedTTL = 200
	cfg.Steering.Controller = "sweep"
	cfg.Steering.Amplitude = 1.5e-9
	cfg.Steering.Period = 400
	return cfg
}

func steerPreset() *Config {
	cfg := DefaultConfig()
	cfg.Ticks = 2000
	cfg.Lifecycle.SpawnPeriod = 5
	cfg.Lifecycle.StoppedTTL = 100
	cfg.Steering.Controller = "pid"
	cfg.Steering.Kp = 1e-9
	cfg.Steering.Ki = 5e-12
	cfg.Steering.Target = 0.5
	return cfg
}

// singlePreset is one electron released at rest between a neutral
// cathode and a charged anode.
func singlePreset() *Config {
	cfg := DefaultConfig()
	cfg.Dt = 5e-8
	cfg.Ticks = 50
	cfg.SampleEvery = 1
	cfg.Plates = []PlateConfig{
		{Name: "cathode", Position: Vec3{0, 0, 0}, Orientation: "X", HalfExtents: [2]float64{1, 1}, Charge: 0},
		{Name: "anode", Position: Vec3{10, 0, 0}, Orientation: "X", HalfExtents: [2]float64{1, 1}, Charge: 1e-8},
	}
	cfg.Particle.Origin = Vec3{1, 0, 0}
	cfg.Particle.Velocity = Vec3{0, 0, 0}
	cfg.Lifecycle.Jitter = 0
	cfg.Lifecycle.MaxAge = 50
	// Larger than Ticks: only the first scheduled spawn happens.
	cfg.Lifecycle.SpawnPeriod = 1000
	cfg.Steering = SteeringConfig{Controller: "none", Axis: "Y"}
	return cfg
}

func (c *Config) setCharge(name string, q float64) {
	if i := c.plateIndex(name); i >= 0 {
		c.Plates[i].Charge = q
	}
}
