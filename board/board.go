package board

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mdouchement/lidarbot/lidar"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

var ErrPinNotFound = errors.New("gpio pin not found")

const edgeTimeout = 100 * time.Millisecond

// Config maps every microcontroller line onto a host GPIO name (e.g. "GPIO17").
type Config struct {
	Enable     string `yaml:"enable"`
	Move       string `yaml:"move"`
	Turn       string `yaml:"turn"`
	Direction  string `yaml:"forward_cw"`
	Fire       string `yaml:"fire"`
	MoveRate   string `yaml:"move_rate"`
	Flashlight string `yaml:"flashlight"`
}

// Names returns the configured host pins keyed by the line they carry.
func (c Config) Names() map[string]string {
	return map[string]string{
		"enable":     c.Enable,
		"move":       c.Move,
		"turn":       c.Turn,
		"forward_cw": c.Direction,
		"fire":       c.Fire,
		"move_rate":  c.MoveRate,
		"flashlight": c.Flashlight,
	}
}

// Init loads the host drivers. It must be called once before Open.
func Init() error {
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("periph: %w", err)
	}
	return nil
}

// Board is the host side of the wiring with the microcontroller.
type Board struct {
	enable     gpio.PinIO
	move       gpio.PinIO
	turn       gpio.PinIO
	direction  gpio.PinIO
	fire       gpio.PinIO
	rate       gpio.PinIO
	flashlight gpio.PinIO // optional

	pulses atomic.Int64
	done   chan struct{}
	wg     sync.WaitGroup
}

func Open(cfg Config) (*Board, error) {
	b := &Board{
		done: make(chan struct{}),
	}

	var err error
	lookup := func(name string, optional bool) gpio.PinIO {
		if name == "" && optional {
			return nil
		}

		p := gpioreg.ByName(name)
		if p == nil {
			err = errors.Join(err, fmt.Errorf("%q: %w", name, ErrPinNotFound))
		}
		return p
	}

	b.enable = lookup(cfg.Enable, false)
	b.move = lookup(cfg.Move, false)
	b.turn = lookup(cfg.Turn, false)
	b.direction = lookup(cfg.Direction, false)
	b.fire = lookup(cfg.Fire, false)
	b.rate = lookup(cfg.MoveRate, false)
	b.flashlight = lookup(cfg.Flashlight, true)
	if err != nil {
		return nil, err
	}

	for _, p := range []gpio.PinIO{b.move, b.turn, b.direction, b.fire} {
		if err := p.In(gpio.PullDown, gpio.NoEdge); err != nil {
			return nil, fmt.Errorf("%s: input: %w", p.Name(), err)
		}
	}

	if err := b.rate.In(gpio.PullDown, gpio.RisingEdge); err != nil {
		return nil, fmt.Errorf("%s: edge detection: %w", b.rate.Name(), err)
	}

	if err := b.enable.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("%s: output: %w", b.enable.Name(), err)
	}

	if b.flashlight != nil {
		if err := b.flashlight.Out(gpio.Low); err != nil {
			return nil, fmt.Errorf("%s: output: %w", b.flashlight.Name(), err)
		}
	}

	b.wg.Add(1)
	go b.count()

	return b, nil
}

func (b *Board) count() {
	defer b.wg.Done()

	for {
		select {
		case <-b.done:
			return
		default:
		}

		if b.rate.WaitForEdge(edgeTimeout) {
			b.pulses.Add(1)
		}
	}
}

func (b *Board) Lines() lidar.Lines {
	return lidar.Lines{
		Move:      b.move.Read() == gpio.High,
		Turn:      b.turn.Read() == gpio.High,
		Direction: b.direction.Read() == gpio.High,
		Fire:      b.fire.Read() == gpio.High,
	}
}

// Pulses returns the MOVE_RATE rising edges counted since the previous call.
func (b *Board) Pulses() int {
	return int(b.pulses.Swap(0))
}

func (b *Board) SetEnable(enabled bool) error {
	return b.enable.Out(level(enabled))
}

func (b *Board) SetFlashlight(on bool) error {
	if b.flashlight == nil {
		return nil
	}
	return b.flashlight.Out(level(on))
}

func (b *Board) Close() error {
	close(b.done)
	b.wg.Wait()

	var errs []error
	errs = append(errs, b.SetEnable(false), b.SetFlashlight(false))

	for _, p := range []gpio.PinIO{b.enable, b.move, b.turn, b.direction, b.fire, b.rate, b.flashlight} {
		if p != nil {
			errs = append(errs, p.Halt())
		}
	}

	return errors.Join(errs...)
}

func level(high bool) gpio.Level {
	if high {
		return gpio.High
	}
	return gpio.Low
}
