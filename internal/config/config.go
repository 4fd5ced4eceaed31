// Package config loads the linuxheadsets YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Bluetooth BluetoothConfig `yaml:"bluetooth"`
	Logger    LoggerConfig    `yaml:"logger"`
	Tray      TrayConfig      `yaml:"tray"`
	Window    WindowConfig    `yaml:"window"`
}

// BluetoothConfig selects the adapter and what counts as a headset.
type BluetoothConfig struct {
	Adapter      string   `yaml:"adapter"`       // e.g. "hci0"
	ProfileUUIDs []string `yaml:"profile_uuids"` // 16-bit ("111e") or full 128-bit
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
	Output string `yaml:"output"` // stderr, stdout or a file path
}

// TrayConfig holds system tray settings.
type TrayConfig struct {
	Enabled    bool `yaml:"enabled"`
	MaxDevices int  `yaml:"max_devices"`
}

// WindowConfig holds main window settings.
type WindowConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// Defaults returns the configuration used when no file exists.
func Defaults() *Config {
	return &Config{
		Bluetooth: BluetoothConfig{
			Adapter: "hci0",
			// HSP headset, HFP hands-free
			ProfileUUIDs: []string{"1108", "111e"},
		},
		Logger: LoggerConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Tray: TrayConfig{
			Enabled:    true,
			MaxDevices: 4,
		},
		Window: WindowConfig{
			Width:  400,
			Height: 500,
		},
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/linuxheadsets/config.yaml.
func DefaultPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		dir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(dir, "linuxheadsets", "config.yaml")
}

// Load reads the file at path over Defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

var (
	adapterPattern = regexp.MustCompile(`^hci[0-9]+$`)
	shortUUID      = regexp.MustCompile(`^[0-9a-fA-F]{4}$`)
	fullUUID       = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
)

// Validate checks the configuration for values the app cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if !adapterPattern.MatchString(c.Bluetooth.Adapter) {
		errs = append(errs, fmt.Errorf("bluetooth.adapter %q: want hciN", c.Bluetooth.Adapter))
	}
	if len(c.Bluetooth.ProfileUUIDs) == 0 {
		errs = append(errs, errors.New("bluetooth.profile_uuids: at least one UUID required"))
	}
	for _, u := range c.Bluetooth.ProfileUUIDs {
		if !shortUUID.MatchString(u) && !fullUUID.MatchString(u) {
			errs = append(errs, fmt.Errorf("bluetooth.profile_uuids: malformed UUID %q", u))
		}
	}

	switch strings.ToLower(c.Logger.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logger.format %q: want text or json", c.Logger.Format))
	}

	if c.Tray.MaxDevices < 1 {
		errs = append(errs, fmt.Errorf("tray.max_devices must be positive, got %d", c.Tray.MaxDevices))
	}
	if c.Window.Width < 1 || c.Window.Height < 1 {
		errs = append(errs, fmt.Errorf("window size must be positive, got %dx%d", c.Window.Width, c.Window.Height))
	}

	return errors.Join(errs...)
}
