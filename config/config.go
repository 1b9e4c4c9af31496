// Package config loads the YAML-described tunables for an rflink node: its
// own link address, radio options, and the engine's timing parameters.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level document loaded from a node's YAML config file.
type Config struct {
	Node   NodeConfig   `yaml:"node"`
	Radio  RadioConfig  `yaml:"radio"`
	Timing TimingConfig `yaml:"timing"`
	Log    LogConfig    `yaml:"log"`
}

// NodeConfig identifies this node on the link.
type NodeConfig struct {
	Address   uint8 `yaml:"address"`
	MaxTasks  int   `yaml:"max_tasks"`
	AutoSleep bool  `yaml:"auto_sleep"`
	SnifMode  bool  `yaml:"snif_mode"`
}

// RadioConfig carries driver-level radio settings. EmissionPowerHi is
// applied via SetOpt by rflink.Open; Channel has no matching driver option
// and is not applied.
type RadioConfig struct {
	Channel         uint8 `yaml:"channel"`
	EmissionPowerHi bool  `yaml:"emission_power_high"`
}

// TimingConfig overrides the engine's default delay parameters, expressed
// in milliseconds in the YAML document (matching the original's unit) and
// converted to time.Duration for the engine's options.
type TimingConfig struct {
	DataAvailDelayMS    int `yaml:"data_avail_delay_ms"`
	ReceivePurgeDelayMS int `yaml:"receive_purge_delay_ms"`
	SendPurgeDelayMS    int `yaml:"send_purge_delay_ms"`
	MinDeviceResetMS    int `yaml:"min_device_reset_delay_ms"`
}

// LogConfig configures the engine's logrus output.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns a Config carrying the same default values the engine
// package itself falls back to when no config file is supplied.
func Default() Config {
	return Config{
		Node: NodeConfig{MaxTasks: 15},
		Timing: TimingConfig{
			DataAvailDelayMS:    900,
			ReceivePurgeDelayMS: 1000,
			SendPurgeDelayMS:    1000,
			MinDeviceResetMS:    1000,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads and parses a YAML config file at path.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Durations exposes the timing block converted to time.Duration, in the
// order the engine's WithTimings option expects them.
func (c TimingConfig) Durations() (dataAvail, receivePurge, sendPurge, minReset time.Duration) {
	return time.Duration(c.DataAvailDelayMS) * time.Millisecond,
		time.Duration(c.ReceivePurgeDelayMS) * time.Millisecond,
		time.Duration(c.SendPurgeDelayMS) * time.Millisecond,
		time.Duration(c.MinDeviceResetMS) * time.Millisecond
}
