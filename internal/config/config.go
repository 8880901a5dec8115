package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/chaoslab/dpsim/internal/dynamo"
	"github.com/chaoslab/dpsim/internal/physics"
)

const (
	DefaultDt       = 0.01
	DefaultDuration = 20.0
)

// Config is the complete description of a simulation run, loadable from
// yaml. Zero-valued physical parameters fall back to the defaults before
// validation, so a file may specify only what it changes.
type Config struct {
	Params     ParamsConfig    `yaml:"params"`
	InitState  InitStateConfig `yaml:"init_state"`
	Dt         float64         `yaml:"dt"`
	Duration   float64         `yaml:"duration"`
	Integrator string          `yaml:"integrator"`
	Tolerance  float64         `yaml:"tolerance"`
	Deadline   time.Duration   `yaml:"deadline"`
}

type ParamsConfig struct {
	L1 float64 `yaml:"l1"`
	L2 float64 `yaml:"l2"`
	M1 float64 `yaml:"m1"`
	M2 float64 `yaml:"m2"`
	G  float64 `yaml:"g"`
}

type InitStateConfig struct {
	Theta1 float64 `yaml:"theta1"`
	Omega1 float64 `yaml:"omega1"`
	Theta2 float64 `yaml:"theta2"`
	Omega2 float64 `yaml:"omega2"`
}

func DefaultConfig() *Config {
	p := physics.DefaultParams()
	return &Config{
		Params: ParamsConfig{
			L1: p.L1, L2: p.L2,
			M1: p.M1, M2: p.M2,
			G: p.Gravity,
		},
		InitState:  InitStateConfig{Theta1: 1.5, Theta2: 1.5},
		Dt:         DefaultDt,
		Duration:   DefaultDuration,
		Integrator: "rk45",
		Tolerance:  1e-8,
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
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

// Validate checks physical parameters and time settings, naming the field
// that caused the problem. It runs before any integration work.
func (c *Config) Validate() error {
	if err := c.ToParams().Validate(); err != nil {
		return err
	}
	if c.Dt <= 0 {
		return fmt.Errorf("%w: dt must be positive, got %g", dynamo.ErrBadConfig, c.Dt)
	}
	if c.Duration <= 0 {
		return fmt.Errorf("%w: duration must be positive, got %g", dynamo.ErrBadConfig, c.Duration)
	}
	if c.Dt > c.Duration {
		return fmt.Errorf("%w: dt %g exceeds duration %g", dynamo.ErrBadConfig, c.Dt, c.Duration)
	}
	return nil
}

func (c *Config) ToParams() physics.Params {
	p := physics.Params{
		L1: c.Params.L1, L2: c.Params.L2,
		M1: c.Params.M1, M2: c.Params.M2,
		Gravity: c.Params.G,
	}
	d := physics.DefaultParams()
	if p.L1 == 0 {
		p.L1 = d.L1
	}
	if p.L2 == 0 {
		p.L2 = d.L2
	}
	if p.M1 == 0 {
		p.M1 = d.M1
	}
	if p.M2 == 0 {
		p.M2 = d.M2
	}
	if p.Gravity == 0 {
		p.Gravity = d.Gravity
	}
	return p
}

func (c *Config) ToInitState() dynamo.State {
	return dynamo.State{
		c.InitState.Theta1,
		c.InitState.Omega1,
		c.InitState.Theta2,
		c.InitState.Omega2,
	}
}

func (c *Config) ToRunConfig() dynamo.Config {
	rc := dynamo.DefaultConfig()
	rc.Dt = c.Dt
	rc.Duration = c.Duration
	rc.Deadline = c.Deadline
	if c.Tolerance > 0 {
		rc.Tolerance = c.Tolerance
	}
	if c.Integrator == "rk45" {
		rc.Adaptive = true
	}
	return rc
}
