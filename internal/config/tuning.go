package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/fusion.defaults.json"

// TuningConfig represents the root configuration for a fusion run.
// Every field is optional; the Get* methods supply the defaults for any
// field omitted from the JSON.
type TuningConfig struct {
	// Estimator params
	TimeStep           *float64 `json:"time_step,omitempty"` // seconds per inertial sample
	ProcessNoise       *float64 `json:"process_noise,omitempty"`
	MeasurementNoise   *float64 `json:"measurement_noise,omitempty"`
	InitialVariance    *float64 `json:"initial_variance,omitempty"`
	MaxConditionNumber *float64 `json:"max_condition_number,omitempty"`
	VerifyInvariants   *bool    `json:"verify_invariants,omitempty"`

	// Driver params
	Duration        *string `json:"duration,omitempty"`     // duration string like "10s"
	GPSInterval     *string `json:"gps_interval,omitempty"` // duration string like "1s"
	Realtime        *bool   `json:"realtime,omitempty"`
	RecordEveryStep *bool   `json:"record_every_step,omitempty"`

	// Simulator params
	IMUNoiseStd     *float64 `json:"imu_noise_std,omitempty"`
	IMUBiasStep     *float64 `json:"imu_bias_step,omitempty"`
	IMUBiasLimit    *float64 `json:"imu_bias_limit,omitempty"`
	GPSNoiseStd     *float64 `json:"gps_noise_std,omitempty"`
	TrajectoryScale *float64 `json:"trajectory_scale,omitempty"`
	TrajectoryOmega *float64 `json:"trajectory_omega,omitempty"`
	Seed            *uint64  `json:"seed,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrUint64(v uint64) *uint64    { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from the defaults file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// DefaultTuningConfig returns a TuningConfig with every field populated
// from the Get* defaults.
func DefaultTuningConfig() *TuningConfig {
	empty := EmptyTuningConfig()
	return &TuningConfig{
		TimeStep:           ptrFloat64(empty.GetTimeStep()),
		ProcessNoise:       ptrFloat64(empty.GetProcessNoise()),
		MeasurementNoise:   ptrFloat64(empty.GetMeasurementNoise()),
		InitialVariance:    ptrFloat64(empty.GetInitialVariance()),
		MaxConditionNumber: ptrFloat64(empty.GetMaxConditionNumber()),
		VerifyInvariants:   ptrBool(empty.GetVerifyInvariants()),
		Duration:           ptrString(empty.GetDuration().String()),
		GPSInterval:        ptrString(empty.GetGPSInterval().String()),
		Realtime:           ptrBool(empty.GetRealtime()),
		RecordEveryStep:    ptrBool(empty.GetRecordEveryStep()),
		IMUNoiseStd:        ptrFloat64(empty.GetIMUNoiseStd()),
		IMUBiasStep:        ptrFloat64(empty.GetIMUBiasStep()),
		IMUBiasLimit:       ptrFloat64(empty.GetIMUBiasLimit()),
		GPSNoiseStd:        ptrFloat64(empty.GetGPSNoiseStd()),
		TrajectoryScale:    ptrFloat64(empty.GetTrajectoryScale()),
		TrajectoryOmega:    ptrFloat64(empty.GetTrajectoryOmega()),
		Seed:               ptrUint64(empty.GetSeed()),
	}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
// Fields omitted from the JSON file retain their default values, so
// partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	// Validate the config file path.
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,       // from cmd/fusion-sim/
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.TimeStep != nil {
		if !(*c.TimeStep > 0) || math.IsInf(*c.TimeStep, 0) {
			return fmt.Errorf("time_step must be positive and finite, got %g", *c.TimeStep)
		}
	}

	for name, v := range map[string]*float64{
		"process_noise":     c.ProcessNoise,
		"measurement_noise": c.MeasurementNoise,
		"initial_variance":  c.InitialVariance,
		"imu_noise_std":     c.IMUNoiseStd,
		"imu_bias_step":     c.IMUBiasStep,
		"imu_bias_limit":    c.IMUBiasLimit,
		"gps_noise_std":     c.GPSNoiseStd,
		"trajectory_scale":  c.TrajectoryScale,
	} {
		if v != nil && (!(*v >= 0) || math.IsInf(*v, 0)) {
			return fmt.Errorf("%s must be finite and non-negative, got %g", name, *v)
		}
	}

	if c.MaxConditionNumber != nil && !(*c.MaxConditionNumber > 1) {
		return fmt.Errorf("max_condition_number must exceed 1, got %g", *c.MaxConditionNumber)
	}

	if c.TrajectoryOmega != nil && (math.IsNaN(*c.TrajectoryOmega) || math.IsInf(*c.TrajectoryOmega, 0)) {
		return fmt.Errorf("trajectory_omega must be finite, got %g", *c.TrajectoryOmega)
	}

	if c.Duration != nil && *c.Duration != "" {
		d, err := time.ParseDuration(*c.Duration)
		if err != nil {
			return fmt.Errorf("invalid duration '%s': %w", *c.Duration, err)
		}
		if d <= 0 {
			return fmt.Errorf("duration must be positive, got %s", d)
		}
	}

	if c.GPSInterval != nil && *c.GPSInterval != "" {
		d, err := time.ParseDuration(*c.GPSInterval)
		if err != nil {
			return fmt.Errorf("invalid gps_interval '%s': %w", *c.GPSInterval, err)
		}
		if d <= 0 {
			return fmt.Errorf("gps_interval must be positive, got %s", d)
		}
	}

	return nil
}

// GetTimeStep returns the time_step value or the default (100 Hz).
func (c *TuningConfig) GetTimeStep() float64 {
	if c.TimeStep == nil {
		return 0.01
	}
	return *c.TimeStep
}

// GetProcessNoise returns the process_noise value or the default.
func (c *TuningConfig) GetProcessNoise() float64 {
	if c.ProcessNoise == nil {
		return 0.1
	}
	return *c.ProcessNoise
}

// GetMeasurementNoise returns the measurement_noise value or the default.
func (c *TuningConfig) GetMeasurementNoise() float64 {
	if c.MeasurementNoise == nil {
		return 1.0
	}
	return *c.MeasurementNoise
}

// GetInitialVariance returns the initial_variance value or the default.
func (c *TuningConfig) GetInitialVariance() float64 {
	if c.InitialVariance == nil {
		return 1.0
	}
	return *c.InitialVariance
}

// GetMaxConditionNumber returns the max_condition_number value or the default.
func (c *TuningConfig) GetMaxConditionNumber() float64 {
	if c.MaxConditionNumber == nil {
		return 1e12
	}
	return *c.MaxConditionNumber
}

// GetVerifyInvariants returns the verify_invariants value or the default.
func (c *TuningConfig) GetVerifyInvariants() bool {
	if c.VerifyInvariants == nil {
		return true
	}
	return *c.VerifyInvariants
}

// GetDuration parses and returns the simulated run length.
func (c *TuningConfig) GetDuration() time.Duration {
	if c.Duration == nil || *c.Duration == "" {
		return 10 * time.Second // default
	}
	d, err := time.ParseDuration(*c.Duration)
	if err != nil {
		return 10 * time.Second // default on parse error
	}
	return d
}

// GetGPSInterval parses and returns the interval between position readings.
func (c *TuningConfig) GetGPSInterval() time.Duration {
	if c.GPSInterval == nil || *c.GPSInterval == "" {
		return time.Second // default
	}
	d, err := time.ParseDuration(*c.GPSInterval)
	if err != nil {
		return time.Second // default on parse error
	}
	return d
}

// GetRealtime returns the realtime value or the default.
func (c *TuningConfig) GetRealtime() bool {
	if c.Realtime == nil {
		return false // default: run as fast as possible
	}
	return *c.Realtime
}

// GetRecordEveryStep returns the record_every_step value or the default.
func (c *TuningConfig) GetRecordEveryStep() bool {
	if c.RecordEveryStep == nil {
		return false // default: one record per position reading
	}
	return *c.RecordEveryStep
}

// GetIMUNoiseStd returns the imu_noise_std value or the default.
func (c *TuningConfig) GetIMUNoiseStd() float64 {
	if c.IMUNoiseStd == nil {
		return 0.1
	}
	return *c.IMUNoiseStd
}

// GetIMUBiasStep returns the imu_bias_step value or the default.
func (c *TuningConfig) GetIMUBiasStep() float64 {
	if c.IMUBiasStep == nil {
		return 0.01
	}
	return *c.IMUBiasStep
}

// GetIMUBiasLimit returns the imu_bias_limit value or the default.
func (c *TuningConfig) GetIMUBiasLimit() float64 {
	if c.IMUBiasLimit == nil {
		return 0.5
	}
	return *c.IMUBiasLimit
}

// GetGPSNoiseStd returns the gps_noise_std value or the default.
func (c *TuningConfig) GetGPSNoiseStd() float64 {
	if c.GPSNoiseStd == nil {
		return 0.5
	}
	return *c.GPSNoiseStd
}

// GetTrajectoryScale returns the trajectory_scale value or the default.
func (c *TuningConfig) GetTrajectoryScale() float64 {
	if c.TrajectoryScale == nil {
		return 10.0
	}
	return *c.TrajectoryScale
}

// GetTrajectoryOmega returns the trajectory_omega value or the default.
func (c *TuningConfig) GetTrajectoryOmega() float64 {
	if c.TrajectoryOmega == nil {
		return 0.5
	}
	return *c.TrajectoryOmega
}

// GetSeed returns the seed value or the default.
func (c *TuningConfig) GetSeed() uint64 {
	if c.Seed == nil {
		return 1
	}
	return *c.Seed
}
