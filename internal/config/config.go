// Package config loads the charger configuration from a YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/cell-charger/internal/logic"
)

// Driver names.
const (
	DriverSerial = "serial"
	DriverGPIO   = "gpio"
	DriverSim    = "sim"
)

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("invalid config")

// Config represents the daemon configuration.
type Config struct {
	Charge    ChargeConfig  `yaml:"charge"`
	ADC       ADCConfig     `yaml:"adc"`
	Outputs   OutputsConfig `yaml:"outputs"`
	Sim       SimConfig     `yaml:"sim"`
	MQTT      MQTTConfig    `yaml:"mqtt"`
	HTTP      HTTPConfig    `yaml:"http"`
	Heartbeat time.Duration `yaml:"heartbeat"` // 0 disables heartbeats
}

// ChargeConfig holds the control thresholds in raw differential counts.
type ChargeConfig struct {
	LowCharge  int32 `yaml:"low_charge"`
	HighCharge int32 `yaml:"high_charge"`
	MaxSamples int   `yaml:"max_samples"` // cycles averaged per settled estimate
}

// ADCConfig selects and configures the converter front-end.
type ADCConfig struct {
	Driver       string        `yaml:"driver"` // serial or sim
	Port         string        `yaml:"port"`
	BaudRate     int           `yaml:"baud_rate"`
	MaxRaw       int           `yaml:"max_raw"`       // largest count the converter can return
	StallTimeout time.Duration `yaml:"stall_timeout"` // re-issue a conversion after this long (0 disables)
}

// OutputsConfig selects and configures the charge-enable and indicator outputs.
type OutputsConfig struct {
	Driver string     `yaml:"driver"` // gpio or sim
	Chip   string     `yaml:"chip"`
	Pins   PinsConfig `yaml:"pins"`
}

// PinsConfig holds BCM line offsets.
type PinsConfig struct {
	ChargeEnable int `yaml:"charge_enable"`
	Low          int `yaml:"low"`
	Full         int `yaml:"full"`
	Charging     int `yaml:"charging"`
	Presence     int `yaml:"presence"`
}

// SimConfig configures the bench simulator.
type SimConfig struct {
	Interval   time.Duration `yaml:"interval"`    // conversion time
	CellStart  int           `yaml:"cell_start"`  // initial cell level in counts
	Reference  int           `yaml:"reference"`   // level of the reference channel
	ChargeStep int           `yaml:"charge_step"` // rise per cycle while charging
	DrainStep  int           `yaml:"drain_step"`  // fall per cycle otherwise
}

// MQTTConfig contains broker settings.
type MQTTConfig struct {
	Broker     string `yaml:"broker"`
	ClientID   string `yaml:"client_id"`
	BufferSize int    `yaml:"buffer_size"` // messages kept while disconnected
}

// HTTPConfig contains the status server settings.
type HTTPConfig struct {
	Addr string `yaml:"addr"` // empty disables the server
}

// Default returns a configuration with the calibrated thresholds for a
// 10-bit converter and the standard board wiring.
func Default() *Config {
	return &Config{
		Charge: ChargeConfig{
			LowCharge:  553, // ~2.7V
			HighCharge: 840, // ~4.2V
			MaxSamples: 1,
		},
		ADC: ADCConfig{
			Driver:       DriverSerial,
			Port:         "/dev/ttyUSB0",
			BaudRate:     115200,
			MaxRaw:       1023,
			StallTimeout: 2 * time.Second,
		},
		Outputs: OutputsConfig{
			Driver: DriverGPIO,
			Chip:   "gpiochip0",
			Pins: PinsConfig{
				ChargeEnable: 17,
				Low:          22,
				Full:         27,
				Charging:     23,
				Presence:     24,
			},
		},
		Sim: SimConfig{
			Interval:   10 * time.Millisecond,
			CellStart:  600,
			Reference:  120,
			ChargeStep: 2,
			DrainStep:  1,
		},
		MQTT: MQTTConfig{
			Broker:     "tcp://192.168.1.200:1883",
			ClientID:   "cell-charger",
			BufferSize: 100,
		},
		HTTP: HTTPConfig{
			Addr: ":80",
		},
		Heartbeat: 15 * time.Minute,
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist the
// defaults are returned. The result is validated.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	cfg.ensureDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Marshal returns the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// Core returns the parameters of the control core.
func (c *Config) Core() logic.Config {
	return logic.Config{
		Thresholds: logic.Thresholds{
			Low:  c.Charge.LowCharge,
			High: c.Charge.HighCharge,
		},
		MaxSamples: c.Charge.MaxSamples,
	}
}

// Validate reports every configuration error found.
func (c *Config) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	if err := c.Core().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("%w: charge: %w", ErrInvalid, err))
	}

	switch c.ADC.Driver {
	case DriverSerial:
		if c.ADC.Port == "" {
			fail("adc.port is required for the serial driver")
		}
		if c.ADC.BaudRate <= 0 {
			fail("adc.baud_rate must be positive, got %d", c.ADC.BaudRate)
		}
	case DriverSim:
	default:
		fail("adc.driver %q (want %s or %s)", c.ADC.Driver, DriverSerial, DriverSim)
	}
	if c.ADC.MaxRaw < 1 || c.ADC.MaxRaw > 65535 {
		fail("adc.max_raw must be in 1..65535, got %d", c.ADC.MaxRaw)
	}
	if c.ADC.StallTimeout < 0 {
		fail("adc.stall_timeout must not be negative")
	}

	switch c.Outputs.Driver {
	case DriverGPIO:
		if c.Outputs.Chip == "" {
			fail("outputs.chip is required for the gpio driver")
		}
		if err := c.Outputs.Pins.validate(); err != nil {
			errs = append(errs, err)
		}
	case DriverSim:
	default:
		fail("outputs.driver %q (want %s or %s)", c.Outputs.Driver, DriverGPIO, DriverSim)
	}

	if c.ADC.Driver == DriverSim || c.Outputs.Driver == DriverSim {
		if c.ADC.Driver != c.Outputs.Driver {
			fail("the sim driver must be used for both adc and outputs")
		}
		if c.Sim.Interval <= 0 {
			fail("sim.interval must be positive")
		}
		if c.ADC.StallTimeout > 0 && c.Sim.Interval >= c.ADC.StallTimeout {
			fail("sim.interval %v must be below adc.stall_timeout %v", c.Sim.Interval, c.ADC.StallTimeout)
		}
	}

	if c.MQTT.BufferSize < 1 {
		fail("mqtt.buffer_size must be positive, got %d", c.MQTT.BufferSize)
	}
	if c.Heartbeat < 0 {
		fail("heartbeat must not be negative")
	}

	return errors.Join(errs...)
}

func (p PinsConfig) validate() error {
	pins := map[string]int{
		"charge_enable": p.ChargeEnable,
		"low":           p.Low,
		"full":          p.Full,
		"charging":      p.Charging,
		"presence":      p.Presence,
	}
	seen := make(map[int]string, len(pins))
	var errs []error
	for _, name := range []string{"charge_enable", "low", "full", "charging", "presence"} {
		pin := pins[name]
		if pin < 0 {
			errs = append(errs, fmt.Errorf("%w: outputs.pins.%s must not be negative", ErrInvalid, name))
			continue
		}
		if other, dup := seen[pin]; dup {
			errs = append(errs, fmt.Errorf("%w: outputs.pins.%s reuses line %d of %s", ErrInvalid, name, pin, other))
			continue
		}
		seen[pin] = name
	}
	return errors.Join(errs...)
}

// ensureDefaults fills fields that were explicitly emptied in the file.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.ADC.Driver == "" {
		c.ADC.Driver = def.ADC.Driver
	}
	if c.ADC.BaudRate == 0 {
		c.ADC.BaudRate = def.ADC.BaudRate
	}
	if c.ADC.MaxRaw == 0 {
		c.ADC.MaxRaw = def.ADC.MaxRaw
	}

	if c.Outputs.Driver == "" {
		c.Outputs.Driver = def.Outputs.Driver
	}
	if c.Outputs.Chip == "" {
		c.Outputs.Chip = def.Outputs.Chip
	}

	if c.Sim.Interval == 0 {
		c.Sim.Interval = def.Sim.Interval
	}

	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = def.MQTT.ClientID
	}
	if c.MQTT.BufferSize == 0 {
		c.MQTT.BufferSize = def.MQTT.BufferSize
	}
}
