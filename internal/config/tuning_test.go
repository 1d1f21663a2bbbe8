package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultTuningConfig(t *testing.T) {
	cfg := DefaultTuningConfig()

	// Test that defaults are set via pointers
	if cfg.TimeStep == nil || *cfg.TimeStep != 0.01 {
		t.Errorf("Expected TimeStep 0.01, got %v", cfg.TimeStep)
	}
	if cfg.VerifyInvariants == nil || *cfg.VerifyInvariants != true {
		t.Errorf("Expected VerifyInvariants true, got %v", cfg.VerifyInvariants)
	}
	if cfg.Duration == nil || *cfg.Duration != "10s" {
		t.Errorf("Expected Duration '10s', got %v", cfg.Duration)
	}
	if cfg.GPSInterval == nil || *cfg.GPSInterval != "1s" {
		t.Errorf("Expected GPSInterval '1s', got %v", cfg.GPSInterval)
	}
	if cfg.Seed == nil || *cfg.Seed != 1 {
		t.Errorf("Expected Seed 1, got %v", cfg.Seed)
	}

	// Test getter methods
	if cfg.GetProcessNoise() != 0.1 {
		t.Errorf("GetProcessNoise() = %f, want 0.1", cfg.GetProcessNoise())
	}
	if cfg.GetMeasurementNoise() != 1.0 {
		t.Errorf("GetMeasurementNoise() = %f, want 1.0", cfg.GetMeasurementNoise())
	}
	if cfg.GetRealtime() != false {
		t.Errorf("GetRealtime() = %v, want false", cfg.GetRealtime())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultTuningConfig should validate, got %v", err)
	}
}

func TestLoadTuningConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test_config.json")

	testJSON := `{
  "time_step": 0.005,
  "process_noise": 0.2,
  "measurement_noise": 2.5,
  "duration": "30s",
  "gps_interval": "500ms",
  "realtime": true,
  "seed": 42
}`
	if err := os.WriteFile(configPath, []byte(testJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadTuningConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.GetTimeStep() != 0.005 {
		t.Errorf("Expected TimeStep 0.005, got %v", cfg.GetTimeStep())
	}
	if cfg.GetProcessNoise() != 0.2 {
		t.Errorf("Expected ProcessNoise 0.2, got %v", cfg.GetProcessNoise())
	}
	if cfg.GetMeasurementNoise() != 2.5 {
		t.Errorf("Expected MeasurementNoise 2.5, got %v", cfg.GetMeasurementNoise())
	}
	if cfg.GetDuration() != 30*time.Second {
		t.Errorf("Expected Duration 30s, got %v", cfg.GetDuration())
	}
	if cfg.GetGPSInterval() != 500*time.Millisecond {
		t.Errorf("Expected GPSInterval 500ms, got %v", cfg.GetGPSInterval())
	}
	if !cfg.GetRealtime() {
		t.Error("Expected Realtime true")
	}
	if cfg.GetSeed() != 42 {
		t.Errorf("Expected Seed 42, got %d", cfg.GetSeed())
	}
}

func TestLoadTuningConfigPartial(t *testing.T) {
	// Partial config: only override noise; everything else should keep defaults.
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "partial.json")

	if err := os.WriteFile(configPath, []byte(`{"gps_noise_std": 2.0}`), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadTuningConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load partial config: %v", err)
	}

	if cfg.GetGPSNoiseStd() != 2.0 {
		t.Errorf("Expected overridden GPSNoiseStd 2.0, got %f", cfg.GetGPSNoiseStd())
	}
	if cfg.GetTimeStep() != 0.01 {
		t.Errorf("Expected default TimeStep 0.01, got %v", cfg.GetTimeStep())
	}
	if cfg.GetDuration() != 10*time.Second {
		t.Errorf("Expected default Duration 10s, got %v", cfg.GetDuration())
	}
	if cfg.GetIMUBiasLimit() != 0.5 {
		t.Errorf("Expected default IMUBiasLimit 0.5, got %v", cfg.GetIMUBiasLimit())
	}
}

func TestLoadTuningConfigMissing(t *testing.T) {
	_, err := LoadTuningConfig("/nonexistent/path/to/config.json")
	if err == nil {
		t.Error("Expected error when loading missing file, got nil")
	}
}

func TestLoadTuningConfigInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid_config.json")

	invalidJSON := `{
  "time_step": "invalid"
`
	if err := os.WriteFile(configPath, []byte(invalidJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	_, err := LoadTuningConfig(configPath)
	if err == nil {
		t.Error("Expected error when loading invalid JSON, got nil")
	}
}

func TestLoadTuningConfigRejectsInvalidValues(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "bad_dt.json")

	if err := os.WriteFile(configPath, []byte(`{"time_step": -0.01}`), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	if _, err := LoadTuningConfig(configPath); err == nil {
		t.Error("Expected error for negative time_step, got nil")
	}
}

func TestLoadTuningConfigRejectsNonJSON(t *testing.T) {
	_, err := LoadTuningConfig("/some/path/config.yaml")
	if err == nil {
		t.Error("Expected error for non-.json extension, got nil")
	}
}

func TestLoadTuningConfigRejectsLargeFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "large.json")

	largeData := make([]byte, 2*1024*1024) // 2MB
	if err := os.WriteFile(configPath, largeData, 0644); err != nil {
		t.Fatalf("Failed to write large file: %v", err)
	}

	_, err := LoadTuningConfig(configPath)
	if err == nil {
		t.Error("Expected error for file size > 1MB, got nil")
	}
}

func TestLoadDefaultConfigFile(t *testing.T) {
	cfg, err := LoadTuningConfig("../../" + DefaultConfigPath)
	if err != nil {
		t.Fatalf("Failed to load defaults: %v", err)
	}

	// The defaults file and the Get* fallbacks must agree.
	want := EmptyTuningConfig()
	if cfg.GetTimeStep() != want.GetTimeStep() {
		t.Errorf("time_step: file %v, getter %v", cfg.GetTimeStep(), want.GetTimeStep())
	}
	if cfg.GetProcessNoise() != want.GetProcessNoise() {
		t.Errorf("process_noise: file %v, getter %v", cfg.GetProcessNoise(), want.GetProcessNoise())
	}
	if cfg.GetMeasurementNoise() != want.GetMeasurementNoise() {
		t.Errorf("measurement_noise: file %v, getter %v", cfg.GetMeasurementNoise(), want.GetMeasurementNoise())
	}
	if cfg.GetMaxConditionNumber() != want.GetMaxConditionNumber() {
		t.Errorf("max_condition_number: file %v, getter %v", cfg.GetMaxConditionNumber(), want.GetMaxConditionNumber())
	}
	if cfg.GetGPSInterval() != want.GetGPSInterval() {
		t.Errorf("gps_interval: file %v, getter %v", cfg.GetGPSInterval(), want.GetGPSInterval())
	}
	if cfg.GetGPSNoiseStd() != want.GetGPSNoiseStd() {
		t.Errorf("gps_noise_std: file %v, getter %v", cfg.GetGPSNoiseStd(), want.GetGPSNoiseStd())
	}
}

func TestMustLoadDefaultConfig(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("MustLoadDefaultConfig panicked: %v", r)
		}
	}()
	cfg := MustLoadDefaultConfig()
	if cfg.GetSeed() != 1 {
		t.Errorf("Expected seed 1, got %d", cfg.GetSeed())
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *TuningConfig
		wantErr bool
	}{
		{name: "valid config", cfg: DefaultTuningConfig()},
		{name: "empty config is valid", cfg: &TuningConfig{}},
		{name: "zero time step", cfg: &TuningConfig{TimeStep: ptrFloat64(0)}, wantErr: true},
		{name: "negative process noise", cfg: &TuningConfig{ProcessNoise: ptrFloat64(-0.1)}, wantErr: true},
		{name: "zero measurement noise allowed", cfg: &TuningConfig{MeasurementNoise: ptrFloat64(0)}},
		{name: "condition number too small", cfg: &TuningConfig{MaxConditionNumber: ptrFloat64(0.5)}, wantErr: true},
		{name: "bad duration", cfg: &TuningConfig{Duration: ptrString("ten seconds")}, wantErr: true},
		{name: "negative duration", cfg: &TuningConfig{Duration: ptrString("-1s")}, wantErr: true},
		{name: "bad gps interval", cfg: &TuningConfig{GPSInterval: ptrString("1 hz")}, wantErr: true},
		{name: "zero gps interval", cfg: &TuningConfig{GPSInterval: ptrString("0s")}, wantErr: true},
		{name: "negative bias limit", cfg: &TuningConfig{IMUBiasLimit: ptrFloat64(-1)}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDurationGettersFallBackOnParseError(t *testing.T) {
	cfg := &TuningConfig{
		Duration:    ptrString("garbage"),
		GPSInterval: ptrString("garbage"),
	}
	if cfg.GetDuration() != 10*time.Second {
		t.Errorf("GetDuration() = %v, want 10s", cfg.GetDuration())
	}
	if cfg.GetGPSInterval() != time.Second {
		t.Errorf("GetGPSInterval() = %v, want 1s", cfg.GetGPSInterval())
	}
}
