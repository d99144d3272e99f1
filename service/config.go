package service

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/safing/trackguard/service/defense"
	"github.com/safing/trackguard/service/monitor"
	"github.com/safing/trackguard/service/threat"
)

// ServiceConfig holds the process configuration.
type ServiceConfig struct {
	ListenAddr string `yaml:"listen_addr"`
	LogLevel   string `yaml:"log_level"`

	ActivityLogPath string `yaml:"activity_log_path"`

	ProtectionLevel string `yaml:"protection_level"`
	DetectionMode   string `yaml:"detection_mode"`
	AutoStart       bool   `yaml:"auto_start"`

	// ReferencePosition is the position spoofing offsets are reported
	// against. It stands in for the real position, which the simulator
	// never has.
	ReferenceLat float64 `yaml:"reference_lat"`
	ReferenceLon float64 `yaml:"reference_lon"`

	// Cycle cadence per detection mode.
	PassiveInterval    Duration `yaml:"passive_interval"`
	ActiveInterval     Duration `yaml:"active_interval"`
	AggressiveInterval Duration `yaml:"aggressive_interval"`
}

// Duration adds yaml parsing of strings like "500ms" to time.Duration.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// Init applies defaults and validates the configuration.
func (sc *ServiceConfig) Init() error {
	if sc.ListenAddr == "" {
		sc.ListenAddr = "127.0.0.1:8617"
	}
	if sc.LogLevel == "" {
		sc.LogLevel = "info"
	}
	if sc.ProtectionLevel == "" {
		sc.ProtectionLevel = "medium"
	}
	if sc.DetectionMode == "" {
		sc.DetectionMode = "active"
	}

	defaults := monitor.DefaultIntervals()
	if sc.PassiveInterval <= 0 {
		sc.PassiveInterval = Duration(defaults[threat.ModePassive])
	}
	if sc.ActiveInterval <= 0 {
		sc.ActiveInterval = Duration(defaults[threat.ModeActive])
	}
	if sc.AggressiveInterval <= 0 {
		sc.AggressiveInterval = Duration(defaults[threat.ModeAggressive])
	}

	// Fail on bad values before any module sees them.
	if _, err := defense.ParseLevel(sc.ProtectionLevel); err != nil {
		return err
	}
	if _, err := threat.ParseMode(sc.DetectionMode); err != nil {
		return err
	}

	return nil
}

// monitorConfig converts the validated service config for the monitor module.
func (sc *ServiceConfig) monitorConfig() monitor.Config {
	level, _ := defense.ParseLevel(sc.ProtectionLevel)
	mode, _ := threat.ParseMode(sc.DetectionMode)

	return monitor.Config{
		Level: level,
		Mode:  mode,
		Intervals: map[threat.Mode]time.Duration{
			threat.ModePassive:    time.Duration(sc.PassiveInterval),
			threat.ModeActive:     time.Duration(sc.ActiveInterval),
			threat.ModeAggressive: time.Duration(sc.AggressiveInterval),
		},
		ReferenceLat: sc.ReferenceLat,
		ReferenceLon: sc.ReferenceLon,
		AutoStart:    sc.AutoStart,
	}
}

// LoadServiceConfig reads a yaml config file.
// An empty path returns an empty config, so that defaults apply.
func LoadServiceConfig(path string) (*ServiceConfig, error) {
	sc := &ServiceConfig{}
	if path == "" {
		return sc, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, sc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return sc, nil
}
