package config

import "math"

// Presets are named starting configurations. "classic" is the standard
// demonstration: both arms near horizontal, 20 seconds.
var Presets = map[string]*Config{
	"classic": {
		Dt: 0.02, Duration: 20.0, Integrator: "rk45",
		InitState: InitStateConfig{
			Theta1: math.Pi / 2,
			Theta2: math.Pi/2 + 0.1,
		},
	},
	"chaos": {
		Dt: 0.005, Duration: 60.0, Integrator: "rk45", Tolerance: 1e-9,
		InitState: InitStateConfig{
			Theta1: 3.0,
			Theta2: 3.0,
		},
	},
	"gentle": {
		Dt: 0.01, Duration: 30.0, Integrator: "rk45",
		InitState: InitStateConfig{
			Theta1: 0.3,
			Theta2: 0.3,
		},
	},
	"equilibrium": {
		Dt: 0.01, Duration: 10.0, Integrator: "rk45",
		InitState: InitStateConfig{},
	},
}

func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	merged := *DefaultConfig()
	merged.Dt = cfg.Dt
	merged.Duration = cfg.Duration
	merged.Integrator = cfg.Integrator
	merged.InitState = cfg.InitState
	if cfg.Tolerance > 0 {
		merged.Tolerance = cfg.Tolerance
	}
	return &merged
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	return names
}
