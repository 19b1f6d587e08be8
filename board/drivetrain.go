package board

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
)

// Servo-style ESC timings.
const (
	DefaultFrequency = 50 * physic.Hertz
	NeutralPulse     = 1500 * time.Microsecond
	PulseRange       = 500 * time.Microsecond
)

type DrivetrainConfig struct {
	Left        string `yaml:"left"`
	Right       string `yaml:"right"`
	InvertLeft  bool   `yaml:"invert_left"`
	InvertRight bool   `yaml:"invert_right"`
	Frequency   int    `yaml:"frequency"` // Hz
}

// Drivetrain drives the two motor controllers of a differential base.
type Drivetrain struct {
	mu          sync.Mutex
	left        gpio.PinIO
	right       gpio.PinIO
	invertLeft  bool
	invertRight bool
	freq        physic.Frequency
}

func OpenDrivetrain(cfg DrivetrainConfig) (*Drivetrain, error) {
	d := &Drivetrain{
		left:        gpioreg.ByName(cfg.Left),
		right:       gpioreg.ByName(cfg.Right),
		invertLeft:  cfg.InvertLeft,
		invertRight: cfg.InvertRight,
		freq:        DefaultFrequency,
	}

	if d.left == nil {
		return nil, fmt.Errorf("left %q: %w", cfg.Left, ErrPinNotFound)
	}
	if d.right == nil {
		return nil, fmt.Errorf("right %q: %w", cfg.Right, ErrPinNotFound)
	}

	if cfg.Frequency > 0 {
		d.freq = physic.Frequency(cfg.Frequency) * physic.Hertz
	}

	if err := d.Stop(); err != nil {
		return nil, err
	}

	return d, nil
}

// Drive sets both sides, each in [-1, 1].
func (d *Drivetrain) Drive(left, right float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.invertLeft {
		left = -left
	}
	if d.invertRight {
		right = -right
	}

	if err := d.left.PWM(Duty(PulseWidth(left), d.freq), d.freq); err != nil {
		return fmt.Errorf("left: %w", err)
	}
	if err := d.right.PWM(Duty(PulseWidth(right), d.freq), d.freq); err != nil {
		return fmt.Errorf("right: %w", err)
	}
	return nil
}

func (d *Drivetrain) Stop() error {
	return d.Drive(0, 0)
}

func (d *Drivetrain) Close() error {
	return errors.Join(d.Stop(), d.left.Halt(), d.right.Halt())
}

// PulseWidth maps a motor output in [-1, 1] to an ESC pulse.
func PulseWidth(v float64) time.Duration {
	if math.IsNaN(v) {
		return NeutralPulse
	}
	v = max(-1, min(1, v))
	return NeutralPulse + time.Duration(v*float64(PulseRange))
}

// Duty converts a pulse width to the duty cycle at the given frequency.
func Duty(pulse time.Duration, f physic.Frequency) gpio.Duty {
	period := f.Period()
	if period <= 0 {
		return 0
	}
	return gpio.Duty(int64(gpio.DutyMax) * int64(pulse) / int64(period))
}
