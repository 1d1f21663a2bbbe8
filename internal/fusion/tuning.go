package fusion

import "github.com/banshee-data/sensorfusion/internal/config"

// ConfigFromTuning builds a Config from a loaded TuningConfig.
func ConfigFromTuning(cfg *config.TuningConfig) Config {
	return Config{
		ProcessNoise:       cfg.GetProcessNoise(),
		MeasurementNoise:   cfg.GetMeasurementNoise(),
		InitialVariance:    cfg.GetInitialVariance(),
		MaxConditionNumber: cfg.GetMaxConditionNumber(),
		VerifyInvariants:   cfg.GetVerifyInvariants(),
	}
}
