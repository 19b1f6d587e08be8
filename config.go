package lidarbot

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"time"

	"github.com/mdouchement/lidarbot/board"
	"github.com/mdouchement/lidarbot/lidar"
	"go.yaml.in/yaml/v4"
)

type SpeedSource string

const (
	SpeedSourceFixed  SpeedSource = "fixed"
	SpeedSourcePulses SpeedSource = "pulses"
)

const DefaultSocket = "/run/lidarbotd/lidarbotd.sock"

type Config struct {
	Debug           bool                   `yaml:"debug"`
	Socket          string                 `yaml:"socket"`
	Variant         string                 `yaml:"variant"`
	Period          Duration               `yaml:"period"`
	Speed           float64                `yaml:"speed"`
	SpeedSource     SpeedSource            `yaml:"speed_source"`
	MaxPulse        int                    `yaml:"max_pulse"`
	SquaredInputs   bool                   `yaml:"squared_inputs"`
	JoystickTimeout Duration               `yaml:"joystick_timeout"`
	HostPins        board.Config           `yaml:"host_pins"`
	Drivetrain      board.DrivetrainConfig `yaml:"drivetrain"`
	Telemetry       TelemetryConfig        `yaml:"telemetry"`
	Modbus          ModbusConfig           `yaml:"modbus"`

	Firmware lidar.Variant `yaml:"-"`
}

type TelemetryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Port    string `yaml:"port"` // Auto-detected when empty
}

type ModbusConfig struct {
	Endpoint string   `yaml:"endpoint"` // Export disabled when empty
	UnitID   uint8    `yaml:"unit_id"`
	Address  uint16   `yaml:"address"`
	Timeout  Duration `yaml:"timeout"`
}

// Default returns the configuration used for any key missing from the file.
func Default() Config {
	return Config{
		Socket:          DefaultSocket,
		Variant:         lidar.VariantSmoothPuppyDog,
		Period:          NewDuration(20 * time.Millisecond),
		Speed:           DefaultSpeed,
		SpeedSource:     SpeedSourceFixed,
		MaxPulse:        DefaultMaxPulse,
		SquaredInputs:   true,
		JoystickTimeout: NewDuration(500 * time.Millisecond),
		Drivetrain: board.DrivetrainConfig{
			Frequency: 50,
		},
		Modbus: ModbusConfig{
			UnitID:  1,
			Timeout: NewDuration(time.Second),
		},
	}
}

func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer f.Close()

	c, err := Decode(f)
	if err != nil {
		return c, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

func Decode(r io.Reader) (Config, error) {
	c := Default()

	codec := yaml.NewDecoder(r)
	err := codec.Decode(&c)
	if err != nil && !errors.Is(err, io.EOF) {
		return c, err
	}

	return c, c.Validate()
}

// Validate checks the configuration and resolves the firmware variant.
func (c *Config) Validate() error {
	var errs []error

	if c.Socket == "" {
		errs = append(errs, errors.New("socket: must be set"))
	}

	v, err := lidar.LookupVariant(c.Variant)
	if err != nil {
		errs = append(errs, fmt.Errorf("variant: %w", err))
	} else {
		c.Firmware = v
	}

	if c.Period.Duration <= 0 {
		errs = append(errs, fmt.Errorf("period: must be positive, got %s", c.Period))
	}

	if c.Speed <= 0 || c.Speed > 1 {
		errs = append(errs, fmt.Errorf("speed: must be in range ]0,1], got %v", c.Speed))
	}

	switch c.SpeedSource {
	case SpeedSourceFixed, SpeedSourcePulses:
	default:
		errs = append(errs, fmt.Errorf("speed_source: unknown %q (fixed|pulses)", c.SpeedSource))
	}

	if c.MaxPulse <= 0 {
		errs = append(errs, fmt.Errorf("max_pulse: must be positive, got %d", c.MaxPulse))
	}

	if c.JoystickTimeout.Duration < 0 {
		errs = append(errs, fmt.Errorf("joystick_timeout: must not be negative, got %s", c.JoystickTimeout))
	}

	if c.Drivetrain.Frequency <= 0 {
		errs = append(errs, fmt.Errorf("drivetrain: frequency: must be positive, got %d", c.Drivetrain.Frequency))
	}

	errs = append(errs, c.validatePins()...)

	if c.Modbus.Endpoint != "" {
		if c.Modbus.UnitID == 0 || c.Modbus.UnitID > 247 {
			errs = append(errs, fmt.Errorf("modbus: unit_id: must be in range [1,247], got %d", c.Modbus.UnitID))
		}
		if c.Modbus.Timeout.Duration <= 0 {
			errs = append(errs, fmt.Errorf("modbus: timeout: must be positive, got %s", c.Modbus.Timeout))
		}
	}

	return errors.Join(errs...)
}

// Every host pin drives one line only.
func (c *Config) validatePins() []error {
	lines := c.HostPins.Names()
	lines["drivetrain.left"] = c.Drivetrain.Left
	lines["drivetrain.right"] = c.Drivetrain.Right

	var errs []error
	used := map[string]string{}
	for _, line := range slices.Sorted(maps.Keys(lines)) {
		pin := lines[line]
		if pin == "" {
			continue
		}

		if other, ok := used[pin]; ok {
			errs = append(errs, fmt.Errorf("host_pins: pin collision: %s used by %q and %q", pin, other, line))
			continue
		}
		used[pin] = line
	}

	return errs
}
