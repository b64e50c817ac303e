package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// ---------- ValidateConfigPath ----------

func TestValidateConfigPath_Valid(t *testing.T) {
	dir := t.TempDir()
	cfgDir := filepath.Join(dir, "configs")
	if err := os.Mkdir(cfgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(cfgDir, "default.yaml")
	if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := ValidateConfigPath(path); err != nil {
		t.Errorf("expected valid path, got error: %v", err)
	}
}

func TestValidateConfigPath_PathTraversal(t *testing.T) {
	cases := []string{
		"../../etc/passwd",
		"configs/../../../etc/shadow",
	}
	for _, path := range cases {
		if err := ValidateConfigPath(path); err == nil {
			t.Errorf("expected error for traversal path %q, got nil", path)
		}
	}
}

func TestValidateConfigPath_WrongExtension(t *testing.T) {
	cases := []string{
		"configs/default.json",
		"configs/default.yml",
		"configs/default.txt",
		"configs/default",
	}
	for _, path := range cases {
		if err := ValidateConfigPath(path); err == nil {
			t.Errorf("expected error for extension in %q, got nil", path)
		}
	}
}

func TestValidateConfigPath_NotInConfigsDir(t *testing.T) {
	cases := []string{
		"other/default.yaml",
		"default.yaml",
		"/tmp/default.yaml",
	}
	for _, path := range cases {
		if err := ValidateConfigPath(path); err == nil {
			t.Errorf("expected error for path outside configs/ %q, got nil", path)
		}
	}
}

func TestValidateConfigPath_EmptyPath(t *testing.T) {
	if err := ValidateConfigPath(""); err == nil {
		t.Error("expected error for empty path, got nil")
	}
}

func TestValidateConfigPath_VeryLongPath(t *testing.T) {
	long := "configs/" + strings.Repeat("a", 1000) + ".yaml"
	// Must not panic; the result depends on the OS.
	_ = ValidateConfigPath(long)
}

// ---------- Load ----------

// writeConfig creates a temporary configs/ dir with the given YAML content and returns the path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	cfgDir := filepath.Join(dir, "configs")
	if err := os.Mkdir(cfgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(cfgDir, "test.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const validYAML = `
drivetrain:
  track_width_m: 0.5
  wheel_diameter_m: 0.1
  ticks_per_rotation: 2048
  velocity_period_ms: 100
  max_speed_mps: 4.0
  max_acceleration_mps2: 2.5
feedforward:
  ks_volts: 0.3
  kv_volt_seconds_per_meter: 2.1
  ka_volt_seconds_squared_per_meter: 0.15
  battery_voltage_budget: 10.0
ramsete:
  b: 2.5
  zeta: 0.8
vision:
  rotate_gain: 0.03
  tolerance_deg: 1.0
  min_command: 0.25
  seek_speed: 0.1
  settle_ticks: 8
  run_forever: true
  mount_height_m: 0.5
  mount_angle_deg: 20
  target_height_m: 2.0
  ring_light_pin: 21
manual:
  deadband: 0.05
  quick_turn_below: 0.2
  max_output: 0.8
defaults:
  control_period_ms: 10
  debug_level: 2
  mock_gpio: true
`

func TestLoad_ValidFullConfig(t *testing.T) {
	path := writeConfig(t, validYAML)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Drivetrain.TrackWidthM != 0.5 {
		t.Errorf("track_width_m = %v, want 0.5", cfg.Drivetrain.TrackWidthM)
	}
	if cfg.Drivetrain.TicksPerRotation != 2048 {
		t.Errorf("ticks_per_rotation = %d, want 2048", cfg.Drivetrain.TicksPerRotation)
	}
	if cfg.Feedforward.BatteryVoltageBudget != 10 {
		t.Errorf("battery_voltage_budget = %v, want 10", cfg.Feedforward.BatteryVoltageBudget)
	}
	if cfg.Ramsete.B != 2.5 || cfg.Ramsete.Zeta != 0.8 {
		t.Errorf("ramsete = %+v, want b=2.5 zeta=0.8", cfg.Ramsete)
	}
	if cfg.Vision.ToleranceDeg != 1.0 {
		t.Errorf("tolerance_deg = %v, want 1.0", cfg.Vision.ToleranceDeg)
	}
	if !cfg.Vision.RunForever {
		t.Error("run_forever should be true")
	}
	if cfg.Vision.SettleTicks != 8 {
		t.Errorf("settle_ticks = %d, want 8", cfg.Vision.SettleTicks)
	}
	if cfg.Vision.RingLightPin != 21 {
		t.Errorf("ring_light_pin = %d, want 21", cfg.Vision.RingLightPin)
	}
	if cfg.Manual.MaxOutput != 0.8 {
		t.Errorf("max_output = %v, want 0.8", cfg.Manual.MaxOutput)
	}
	if cfg.Defaults.ControlPeriodMs != 10 {
		t.Errorf("control_period_ms = %d, want 10", cfg.Defaults.ControlPeriodMs)
	}
}

func TestLoad_DefaultValues(t *testing.T) {
	path := writeConfig(t, "defaults:\n  debug_level: 0\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Drivetrain.TrackWidthM != 0.508 {
		t.Errorf("track_width_m default = %v, want 0.508", cfg.Drivetrain.TrackWidthM)
	}
	if cfg.Drivetrain.TicksPerRotation != 4096 {
		t.Errorf("ticks_per_rotation default = %d, want 4096", cfg.Drivetrain.TicksPerRotation)
	}
	if cfg.Drivetrain.VelocityPeriodMs != 100 {
		t.Errorf("velocity_period_ms default = %d, want 100", cfg.Drivetrain.VelocityPeriodMs)
	}
	if cfg.Feedforward.KsVolts != 0.22 || cfg.Feedforward.KvVoltSecondsPerMeter != 1.98 {
		t.Errorf("feedforward defaults = %+v", cfg.Feedforward)
	}
	if cfg.Ramsete.B != 2 || cfg.Ramsete.Zeta != 0.7 {
		t.Errorf("ramsete defaults = %+v, want b=2 zeta=0.7", cfg.Ramsete)
	}
	if cfg.Vision.ToleranceDeg != 2 {
		t.Errorf("tolerance_deg default = %v, want 2", cfg.Vision.ToleranceDeg)
	}
	if cfg.Vision.SettleTicks != 5 {
		t.Errorf("settle_ticks default = %d, want 5", cfg.Vision.SettleTicks)
	}
	if cfg.Vision.RunForever {
		t.Error("run_forever should default to false")
	}
	if cfg.Defaults.ControlPeriodMs != 20 {
		t.Errorf("control_period_ms default = %d, want 20", cfg.Defaults.ControlPeriodMs)
	}
}

func TestLoad_ExplicitZeroKept(t *testing.T) {
	yaml := `
vision:
  tolerance_deg: 0
  min_command: 0
  seek_speed: 0
manual:
  deadband: 0
  quick_turn_below: 0
`
	cfg, err := Load(writeConfig(t, yaml))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Vision.ToleranceDeg != 0 || cfg.Vision.MinCommand != 0 || cfg.Vision.SeekSpeed != 0 {
		t.Errorf("vision zeros overwritten: %+v", cfg.Vision)
	}
	if cfg.Manual.Deadband != 0 || cfg.Manual.QuickTurnBelow != 0 {
		t.Errorf("manual zeros overwritten: %+v", cfg.Manual)
	}
	// Keys left out of the file still get their defaults.
	if cfg.Vision.SettleTicks != 5 || cfg.Manual.MaxOutput != 1 {
		t.Errorf("settle_ticks=%d max_output=%v, want 5 and 1", cfg.Vision.SettleTicks, cfg.Manual.MaxOutput)
	}
}

func TestLoad_EmptyFileUsesDefaults(t *testing.T) {
	path := writeConfig(t, "")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("empty config should load with defaults, got: %v", err)
	}
	if cfg.Drivetrain.MaxSpeedMps != 3 {
		t.Errorf("max_speed_mps default = %v, want 3", cfg.Drivetrain.MaxSpeedMps)
	}
	if cfg.Vision.MinCommand != 0.2 || cfg.Vision.SeekSpeed != 0.15 {
		t.Errorf("vision defaults = %+v", cfg.Vision)
	}
	if cfg.Manual.Deadband != 0.02 || cfg.Manual.QuickTurnBelow != 0.15 {
		t.Errorf("manual defaults = %+v", cfg.Manual)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"negative_track_width", "drivetrain:\n  track_width_m: -0.5\n"},
		{"negative_ticks", "drivetrain:\n  ticks_per_rotation: -1\n"},
		{"negative_ks", "feedforward:\n  ks_volts: -0.1\n"},
		{"negative_b", "ramsete:\n  b: -1\n"},
		{"negative_tolerance", "vision:\n  tolerance_deg: -1\n"},
		{"min_command_over_1", "vision:\n  min_command: 1.5\n"},
		{"seek_speed_over_1", "vision:\n  seek_speed: 2\n"},
		{"mount_angle_vertical", "vision:\n  mount_angle_deg: 90\n"},
		{"deadband_1", "manual:\n  deadband: 1\n"},
		{"negative_quick_turn", "manual:\n  quick_turn_below: -0.1\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeConfig(t, tc.yaml)
			if _, err := Load(path); err == nil {
				t.Errorf("expected error for %s, got nil", tc.name)
			}
		})
	}
}

func TestLoad_FileTooLarge(t *testing.T) {
	dir := t.TempDir()
	cfgDir := filepath.Join(dir, "configs")
	if err := os.Mkdir(cfgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(cfgDir, "big.yaml")
	data := make([]byte, MaxConfigFileBytes+1)
	for i := range data {
		data[i] = '#'
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Load(path)
	if err == nil {
		t.Error("expected error for oversized config file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "{{{{invalid yaml!!!!")
	_, err := Load(path)
	if err == nil {
		t.Error("expected error for invalid YAML, got nil")
	}
}

func TestLoad_UnknownFields(t *testing.T) {
	yaml := `
drivetrain:
  track_width_m: 0.6
unknown_section:
  foo: bar
`
	path := writeConfig(t, yaml)
	_, err := Load(path)
	if err != nil {
		t.Errorf("unknown fields should be ignored, got error: %v", err)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "configs", "nonexistent.yaml")
	_, err := Load(path)
	if err == nil {
		t.Error("expected error for nonexistent file, got nil")
	}
}

func TestLoad_ShippedDefaultConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "configs", "default.yaml"))
	if err != nil {
		t.Fatalf("configs/default.yaml should load: %v", err)
	}
	if cfg.Vision.RotateGain != 0.025 {
		t.Errorf("rotate_gain = %v, want 0.025", cfg.Vision.RotateGain)
	}
}

// ---------- Helper methods ----------

func TestConfig_ControlPeriod(t *testing.T) {
	cfg := &Config{Defaults: DefaultsConfig{ControlPeriodMs: 20}}
	if got, want := cfg.ControlPeriod(), 20*time.Millisecond; got != want {
		t.Errorf("ControlPeriod() = %v, want %v", got, want)
	}
}

func TestConfig_VelocityPeriod(t *testing.T) {
	cfg := &Config{Drivetrain: DrivetrainConfig{VelocityPeriodMs: 100}}
	if got, want := cfg.VelocityPeriod(), 100*time.Millisecond; got != want {
		t.Errorf("VelocityPeriod() = %v, want %v", got, want)
	}
}

func TestConfig_WheelCircumference(t *testing.T) {
	cfg := &Config{Drivetrain: DrivetrainConfig{WheelDiameterM: 0.1524}}
	want := 0.1524 * math.Pi
	if got := cfg.WheelCircumferenceM(); math.Abs(got-want) > 1e-12 {
		t.Errorf("WheelCircumferenceM() = %v, want %v", got, want)
	}
}

func TestConfig_CameraMountAngleRad(t *testing.T) {
	cases := []struct {
		deg  float64
		want float64
	}{
		{0, 0},
		{30, math.Pi / 6},
		{-45, -math.Pi / 4},
	}
	for _, tc := range cases {
		cfg := &Config{Vision: VisionConfig{MountAngleDeg: tc.deg}}
		if got := cfg.CameraMountAngleRad(); math.Abs(got-tc.want) > 1e-12 {
			t.Errorf("CameraMountAngleRad() for %s = %v, want %v", formatFloat(tc.deg), got, tc.want)
		}
	}
}

// formatFloat is a test helper for embedding floats into messages.
func formatFloat(f float64) string {
	return fmt.Sprintf("%g°", f)
}
