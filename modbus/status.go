package modbus

import (
	"math"

	"github.com/mdouchement/lidarbot"
)

// Status block layout.
// These values define the protocol and MUST NOT be configurable.

const (
	RegMove      = 0 // move code decoded from the lines
	RegLastError = 1 // last LIDAR error code, 0 when none
	RegEnabled   = 2 // 1 when the microcontroller drives
	RegLeft      = 3 // left output x1000, two's complement
	RegRight     = 4 // right output x1000, two's complement
	RegSpeed     = 5 // speed x1000
	RegRPM       = 6 // LIDAR rotation speed

	RegisterCount = 7
)

// Scale applied to the outputs in [-1, 1].
const Scale = 1000

// Encode converts a status into the register block.
// No IO. No side effects.
func Encode(s lidarbot.Status) []uint16 {
	regs := make([]uint16, RegisterCount)

	regs[RegMove] = uint16(s.Move)
	regs[RegLastError] = uint16(s.LastError)
	if s.Enabled {
		regs[RegEnabled] = 1
	}
	regs[RegLeft] = fixed(s.Left)
	regs[RegRight] = fixed(s.Right)
	regs[RegSpeed] = fixed(s.Speed)
	regs[RegRPM] = uint16(min(max(s.RPM, 0), math.MaxUint16))

	return regs
}

// Decode reads back a signed fixed point register.
func Decode(reg uint16) float64 {
	return float64(int16(reg)) / Scale
}

func fixed(v float64) uint16 {
	v = max(-1, min(1, v))
	return uint16(int16(math.Round(v * Scale)))
}
