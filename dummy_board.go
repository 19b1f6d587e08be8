package lidarbot

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/mdouchement/logger"
	"github.com/mdouchement/lidarbot/lidar"
)

// DummyScript is the move sequence played by a DummyBoard when none is given.
var DummyScript = []lidar.MoveCode{
	lidar.MoveForward,
	lidar.MoveForward,
	lidar.MoveTurnClockwise,
	lidar.MoveForward,
	lidar.MoveTurnCCW,
	lidar.MoveBackwards,
	lidar.MoveStop,
}

// A DummyBoard simulates the microcontroller and should only be used for dev & tests.
type DummyBoard struct {
	sync       sync.Mutex
	lines      lidar.Lines
	pulses     int
	enabled    bool
	flashlight bool
	log        logger.Logger
	telemetry  chan lidar.Telemetry
	closed     chan struct{}
	closeOnce  sync.Once
}

func NewDummyBoard() *DummyBoard {
	return &DummyBoard{
		telemetry: make(chan lidar.Telemetry, 16),
		closed:    make(chan struct{}),
	}
}

func (b *DummyBoard) SetLogger(l logger.Logger) {
	b.log = l
}

func (b *DummyBoard) Port() string {
	return "x-testing"
}

func (b *DummyBoard) SetMove(code lidar.MoveCode) error {
	lines, err := code.Lines()
	if err != nil {
		return err
	}

	b.sync.Lock()
	defer b.sync.Unlock()

	lines.Fire = b.lines.Fire
	b.lines = lines
	return nil
}

func (b *DummyBoard) SetFire(fire bool) {
	b.sync.Lock()
	defer b.sync.Unlock()

	b.lines.Fire = fire
}

func (b *DummyBoard) AddPulses(n int) {
	b.sync.Lock()
	defer b.sync.Unlock()

	b.pulses += n
}

func (b *DummyBoard) Lines() lidar.Lines {
	b.sync.Lock()
	defer b.sync.Unlock()

	return b.lines
}

func (b *DummyBoard) Pulses() int {
	b.sync.Lock()
	defer b.sync.Unlock()

	n := b.pulses
	b.pulses = 0
	return n
}

func (b *DummyBoard) SetEnable(enabled bool) error {
	b.sync.Lock()
	defer b.sync.Unlock()

	if b.log != nil && b.enabled != enabled {
		b.log.Debugf("[dummy] ENABLE line set to %t", enabled)
	}
	b.enabled = enabled
	return nil
}

func (b *DummyBoard) Enabled() bool {
	b.sync.Lock()
	defer b.sync.Unlock()

	return b.enabled
}

func (b *DummyBoard) SetFlashlight(on bool) error {
	b.sync.Lock()
	defer b.sync.Unlock()

	b.flashlight = on
	return nil
}

func (b *DummyBoard) Flashlight() bool {
	b.sync.Lock()
	defer b.sync.Unlock()

	return b.flashlight
}

// Report queues a telemetry record as if printed on the serial port.
// It is dropped when nobody reads them.
func (b *DummyBoard) Report(t lidar.Telemetry) {
	select {
	case b.telemetry <- t:
	default:
	}
}

// Next implements Telemetry.
func (b *DummyBoard) Next() (lidar.Telemetry, error) {
	select {
	case t := <-b.telemetry:
		if t.At.IsZero() {
			t.At = time.Now()
		}
		return t, nil
	case <-b.closed:
		return lidar.Telemetry{}, io.EOF
	}
}

// Run plays the script, one move every interval, while the board is enabled.
func (b *DummyBoard) Run(ctx context.Context, script []lidar.MoveCode, every time.Duration) {
	if len(script) == 0 {
		script = DummyScript
	}

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	var i int
	for {
		select {
		case <-ctx.Done():
			return
		case <-b.closed:
			return
		case <-ticker.C:
		}

		if !b.Enabled() {
			b.SetMove(lidar.MoveStop)
			continue
		}

		code := script[i%len(script)]
		i++

		b.SetMove(code)
		b.SetFire(code == lidar.MoveStop)
		if code != lidar.MoveStop {
			b.AddPulses(i % DefaultMaxPulse)
		}

		b.Report(lidar.Telemetry{Kind: lidar.TelemetryMove, Move: code})
		b.Report(lidar.Telemetry{Kind: lidar.TelemetryRPM, RPM: 300 + 10*(i%5)})
	}
}

func (b *DummyBoard) Close() error {
	b.closeOnce.Do(func() {
		close(b.closed)
	})
	return nil
}

// A DummyDrivetrain records the outputs and should only be used for dev & tests.
type DummyDrivetrain struct {
	sync  sync.Mutex
	left  float64
	right float64
	calls int
}

func NewDummyDrivetrain() *DummyDrivetrain {
	return &DummyDrivetrain{}
}

func (d *DummyDrivetrain) Drive(left, right float64) error {
	d.sync.Lock()
	defer d.sync.Unlock()

	d.left = left
	d.right = right
	d.calls++
	return nil
}

func (d *DummyDrivetrain) Stop() error {
	return d.Drive(0, 0)
}

func (d *DummyDrivetrain) Outputs() (left, right float64) {
	d.sync.Lock()
	defer d.sync.Unlock()

	return d.left, d.right
}

func (d *DummyDrivetrain) Calls() int {
	d.sync.Lock()
	defer d.sync.Unlock()

	return d.calls
}

func (d *DummyDrivetrain) Close() error {
	return d.Stop()
}
