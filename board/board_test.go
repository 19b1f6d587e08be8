package board_test

import (
	"math"
	"testing"
	"time"

	"github.com/mdouchement/lidarbot/board"
	"github.com/stretchr/testify/assert"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

func TestPulseWidth(t *testing.T) {
	assert.Equal(t, 1500*time.Microsecond, board.PulseWidth(0))
	assert.Equal(t, 2000*time.Microsecond, board.PulseWidth(1))
	assert.Equal(t, 1000*time.Microsecond, board.PulseWidth(-1))
	assert.Equal(t, 1750*time.Microsecond, board.PulseWidth(0.5))

	// Clamped
	assert.Equal(t, 2000*time.Microsecond, board.PulseWidth(3))
	assert.Equal(t, 1000*time.Microsecond, board.PulseWidth(-1.2))
	assert.Equal(t, board.NeutralPulse, board.PulseWidth(math.NaN()))
}

func TestDuty(t *testing.T) {
	assert.Equal(t, gpio.DutyMax*3/40, board.Duty(board.NeutralPulse, board.DefaultFrequency))
	assert.Equal(t, gpio.DutyMax/10, board.Duty(2*time.Millisecond, board.DefaultFrequency))
	assert.Equal(t, gpio.DutyMax/2, board.Duty(5*time.Millisecond, 100*physic.Hertz))
	assert.Equal(t, gpio.Duty(0), board.Duty(time.Millisecond, 0))
}

func TestOpenUnknownPins(t *testing.T) {
	_, err := board.Open(board.Config{
		Enable:   "NOPE_1",
		Move:     "NOPE_2",
		Turn:     "NOPE_3",
		Fire:     "NOPE_4",
		MoveRate: "NOPE_5",
	})
	assert.ErrorIs(t, err, board.ErrPinNotFound)
	assert.ErrorContains(t, err, `"NOPE_1"`)
	assert.ErrorContains(t, err, `""`) // forward_cw is mandatory

	_, err = board.OpenDrivetrain(board.DrivetrainConfig{Left: "NOPE_L", Right: "NOPE_R"})
	assert.ErrorIs(t, err, board.ErrPinNotFound)
}

func TestConfigNames(t *testing.T) {
	names := board.Config{Enable: "GPIO5", Flashlight: "GPIO6"}.Names()
	assert.Len(t, names, 7)
	assert.Equal(t, "GPIO5", names["enable"])
	assert.Equal(t, "GPIO6", names["flashlight"])
}
