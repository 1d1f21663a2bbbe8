package sim

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/banshee-data/sensorfusion/internal/config"
	"github.com/banshee-data/sensorfusion/internal/linalg"
)

// IMUConfig parameterises the inertial simulator.
type IMUConfig struct {
	NoiseStd  float64 // white noise σ, m/s²
	BiasStep  float64 // max bias change per sample, m/s²
	BiasLimit float64 // |bias| clamp per axis, m/s²
	Seed      uint64
}

// DefaultIMUConfig matches the defaults in config/fusion.defaults.json.
func DefaultIMUConfig() IMUConfig {
	return IMUConfig{NoiseStd: 0.1, BiasStep: 0.01, BiasLimit: 0.5, Seed: 1}
}

// IMUConfigFromTuning maps the imu_* tuning keys and the shared seed.
func IMUConfigFromTuning(cfg *config.TuningConfig) IMUConfig {
	return IMUConfig{
		NoiseStd:  cfg.GetIMUNoiseStd(),
		BiasStep:  cfg.GetIMUBiasStep(),
		BiasLimit: cfg.GetIMUBiasLimit(),
		Seed:      cfg.GetSeed(),
	}
}

// IMUSimulator produces acceleration readings from a trajectory with additive
// Gaussian noise and a slowly drifting, bounded bias. Not safe for concurrent
// use.
type IMUSimulator struct {
	traj  Trajectory
	cfg   IMUConfig
	noise distuv.Normal
	step  distuv.Uniform
	bias  linalg.Vec2
}

// NewIMUSimulator seeds a simulator for traj. The bias starts at zero.
func NewIMUSimulator(traj Trajectory, cfg IMUConfig) *IMUSimulator {
	src := rand.NewPCG(cfg.Seed, 0x1a2b)
	s := &IMUSimulator{
		traj:  traj,
		cfg:   cfg,
		noise: distuv.Normal{Mu: 0, Sigma: cfg.NoiseStd, Src: src},
	}
	if cfg.BiasStep > 0 {
		s.step = distuv.Uniform{Min: -cfg.BiasStep, Max: cfg.BiasStep, Src: src}
	}
	return s
}

// Sample advances the bias random walk once and returns the measured
// acceleration at time t.
func (s *IMUSimulator) Sample(t float64) linalg.Vec2 {
	if s.cfg.BiasStep > 0 {
		s.bias = s.bias.Add(linalg.Vec2{X: s.step.Rand(), Y: s.step.Rand()})
		s.bias = ClampVec2(s.bias, -s.cfg.BiasLimit, s.cfg.BiasLimit)
	}
	a := s.traj.Acceleration(t).Add(s.bias)
	if s.cfg.NoiseStd > 0 {
		a = a.Add(linalg.Vec2{X: s.noise.Rand(), Y: s.noise.Rand()})
	}
	return a
}

// Bias returns the current bias.
func (s *IMUSimulator) Bias() linalg.Vec2 { return s.bias }

// ClampVec2 clamps each component of v to [lo, hi].
func ClampVec2(v linalg.Vec2, lo, hi float64) linalg.Vec2 {
	return linalg.Vec2{
		X: math.Max(lo, math.Min(hi, v.X)),
		Y: math.Max(lo, math.Min(hi, v.Y)),
	}
}
