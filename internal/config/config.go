// Package config loads the daemon's optional YAML configuration file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/kepler-watch/internal/button"
	"github.com/sweeney/kepler-watch/internal/clock"
	"github.com/sweeney/kepler-watch/internal/display"
	"github.com/sweeney/kepler-watch/internal/gpio"
	"github.com/sweeney/kepler-watch/internal/mqtt"
	"github.com/sweeney/kepler-watch/internal/notify"
	"github.com/sweeney/kepler-watch/internal/power"
	"github.com/sweeney/kepler-watch/internal/router"
)

// Config holds all daemon configuration.
type Config struct {
	Buttons   ButtonsConfig  `yaml:"buttons"`
	Display   DisplayConfig  `yaml:"display"`
	BLE       BLEConfig      `yaml:"ble"`
	MQTT      MQTTConfig     `yaml:"mqtt"`
	HTTP      string         `yaml:"http"`
	Heartbeat time.Duration  `yaml:"heartbeat"`
	Timeouts  TimeoutsConfig `yaml:"timeouts"`
	Queues    QueuesConfig   `yaml:"queues"`
	Epoch     uint32         `yaml:"epoch"` // clock value at boot
}

// ButtonsConfig holds the GPIO wiring of the two buttons.
type ButtonsConfig struct {
	Chip      string        `yaml:"chip"`
	Button0   int           `yaml:"button0"`
	Button1   int           `yaml:"button1"`
	ActiveLow bool          `yaml:"active_low"` // false for the active-high watch board
	Debounce  time.Duration `yaml:"debounce"`
}

// DisplayConfig holds the panel's bus settings.
type DisplayConfig struct {
	Bus      string `yaml:"bus"` // "" selects the first I2C bus
	Address  uint16 `yaml:"address"`
	Contrast uint8  `yaml:"contrast"`
}

// BLEConfig holds the GATT peripheral settings.
type BLEConfig struct {
	Enabled bool   `yaml:"enabled"`
	Name    string `yaml:"name"`
}

// MQTTConfig holds broker settings. An empty broker disables MQTT.
type MQTTConfig struct {
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	TopicPrefix string `yaml:"topic_prefix"`
	Backlog     int    `yaml:"backlog"`
}

// TimeoutsConfig holds the display timers.
type TimeoutsConfig struct {
	Idle  time.Duration `yaml:"idle"`
	Alert time.Duration `yaml:"alert"`
}

// QueuesConfig holds the bounded queue capacities.
type QueuesConfig struct {
	Router  int `yaml:"router"`
	Clock   int `yaml:"clock"`
	Forward int `yaml:"forward"`
}

// Default returns a Config with the watch's standard values.
func Default() *Config {
	return &Config{
		Buttons: ButtonsConfig{
			Chip:      gpio.DefaultChip,
			Button0:   gpio.DefaultButton0,
			Button1:   gpio.DefaultButton1,
			ActiveLow: true,
			Debounce:  button.DefaultWindow,
		},
		Display: DisplayConfig{
			Address:  display.DefaultAddr,
			Contrast: display.DefaultContrast,
		},
		BLE: BLEConfig{
			Enabled: true,
			Name:    "Kepler",
		},
		MQTT: MQTTConfig{
			Broker:      "tcp://192.168.1.200:1883",
			ClientID:    "kepler-watch",
			TopicPrefix: mqtt.DefaultTopicPrefix,
			Backlog:     mqtt.DefaultBacklog,
		},
		HTTP:      ":80",
		Heartbeat: 15 * time.Minute,
		Timeouts: TimeoutsConfig{
			Idle:  power.DefaultIdleTimeout,
			Alert: notify.DefaultAlertTimeout,
		},
		Queues: QueuesConfig{
			Router:  router.DefaultQueueSize,
			Clock:   clock.DefaultInboxSize,
			Forward: mqtt.DefaultForwardQueue,
		},
		Epoch: clock.DefaultEpoch,
	}
}

// Load reads and parses a YAML config file. Missing fields keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}

// Validate checks the config for invalid values.
func (c *Config) Validate() error {
	if c.Buttons.Chip == "" {
		return fmt.Errorf("buttons.chip must not be empty")
	}
	if c.Buttons.Button0 < 0 || c.Buttons.Button1 < 0 {
		return fmt.Errorf("buttons lines must be >= 0")
	}
	if c.Buttons.Button0 == c.Buttons.Button1 {
		return fmt.Errorf("buttons.button0 and buttons.button1 must differ, both %d", c.Buttons.Button0)
	}
	if c.Buttons.Debounce <= 0 {
		return fmt.Errorf("buttons.debounce must be > 0")
	}

	if c.Display.Address == 0 || c.Display.Address > 0x7F {
		return fmt.Errorf("display.address must be a 7-bit I2C address, got %#x", c.Display.Address)
	}

	if c.BLE.Enabled && c.BLE.Name == "" {
		return fmt.Errorf("ble.name must not be empty when ble is enabled")
	}

	if c.MQTT.Broker != "" && c.MQTT.TopicPrefix == "" {
		return fmt.Errorf("mqtt.topic_prefix must not be empty")
	}
	if c.MQTT.Backlog < 0 {
		return fmt.Errorf("mqtt.backlog must be >= 0")
	}

	if c.Heartbeat < 0 {
		return fmt.Errorf("heartbeat must be >= 0")
	}
	if c.Timeouts.Idle <= 0 || c.Timeouts.Alert <= 0 {
		return fmt.Errorf("timeouts.idle and timeouts.alert must be > 0")
	}

	if c.Queues.Router <= 0 || c.Queues.Clock <= 0 || c.Queues.Forward <= 0 {
		return fmt.Errorf("queue sizes must be > 0")
	}

	return nil
}

// Polarity returns the button wiring.
func (b ButtonsConfig) Polarity() gpio.Polarity {
	if b.ActiveLow {
		return gpio.ActiveLow
	}
	return gpio.ActiveHigh
}

// Lines returns the line offsets indexed by button.
func (b ButtonsConfig) Lines() [gpio.NumButtons]int {
	return [gpio.NumButtons]int{gpio.Button0: b.Button0, gpio.Button1: b.Button1}
}
