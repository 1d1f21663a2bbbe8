package sim

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/banshee-data/sensorfusion/internal/config"
	"github.com/banshee-data/sensorfusion/internal/linalg"
)

// GPSConfig parameterises the position simulator.
type GPSConfig struct {
	NoiseStd float64 // σ per axis, metres
	Seed     uint64
}

// DefaultGPSConfig returns σ = 0.5 m.
func DefaultGPSConfig() GPSConfig {
	return GPSConfig{NoiseStd: 0.5, Seed: 1}
}

// GPSConfigFromTuning maps gps_noise_std and the shared seed.
func GPSConfigFromTuning(cfg *config.TuningConfig) GPSConfig {
	return GPSConfig{NoiseStd: cfg.GetGPSNoiseStd(), Seed: cfg.GetSeed()}
}

// GPSSimulator adds independent Gaussian noise to true positions.
type GPSSimulator struct {
	noise distuv.Normal
	std   float64
}

// NewGPSSimulator seeds a simulator. The stream is independent of an
// IMUSimulator built with the same seed.
func NewGPSSimulator(cfg GPSConfig) *GPSSimulator {
	return &GPSSimulator{
		noise: distuv.Normal{Mu: 0, Sigma: cfg.NoiseStd, Src: rand.NewPCG(cfg.Seed, 0x9e37)},
		std:   cfg.NoiseStd,
	}
}

// Sample returns a noisy fix of truth.
func (g *GPSSimulator) Sample(truth linalg.Vec2) linalg.Vec2 {
	if g.std <= 0 {
		return truth
	}
	return truth.Add(linalg.Vec2{X: g.noise.Rand(), Y: g.noise.Rand()})
}
