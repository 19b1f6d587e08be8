package lidarbot

import (
	"math"

	"github.com/mdouchement/lidarbot/lidar"
)

const (
	DefaultSpeed    = 0.5
	DefaultMaxPulse = 100

	MinSpeedScalar = 0.35
	MaxSpeedScalar = 0.85
)

// SpeedScalar converts the MOVE_RATE pulses counted during one cycle into a speed.
func SpeedScalar(ticks, maxPulse int) float64 {
	if maxPulse <= 0 {
		maxPulse = DefaultMaxPulse
	}

	v := float64(ticks)/float64(maxPulse) + MinSpeedScalar
	return clamp(v, MinSpeedScalar, MaxSpeedScalar)
}

// Decide returns the arcade command for the move code reported by the microcontroller.
func Decide(code lidar.MoveCode, speed float64) Axes {
	switch code {
	case lidar.MoveForward:
		return Axes{Move: speed}
	case lidar.MoveBackwards:
		return Axes{Move: -speed}
	case lidar.MoveTurnClockwise:
		return Axes{Rotate: speed}
	case lidar.MoveTurnCCW:
		return Axes{Rotate: -speed}
	default:
		return Axes{}
	}
}

// ArcadeMix computes the left and right outputs of a differential base.
// With squared inputs, small commands are softened while keeping their sign.
func ArcadeMix(a Axes, squared bool) (left, right float64) {
	move := clamp(finite(a.Move), -1, 1)
	rotate := clamp(finite(a.Rotate), -1, 1)

	if squared {
		move = math.Copysign(move*move, move)
		rotate = math.Copysign(rotate*rotate, rotate)
	}

	if move > 0 {
		if rotate > 0 {
			left = move - rotate
			right = max(move, rotate)
		} else {
			left = max(move, -rotate)
			right = move + rotate
		}
	} else {
		if rotate > 0 {
			left = -max(-move, rotate)
			right = move + rotate
		} else {
			left = move - rotate
			right = -max(-move, -rotate)
		}
	}

	return clamp(left, -1, 1), clamp(right, -1, 1)
}

// finite turns NaN into 0 since min and max propagate it.
func finite(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(hi, v))
}
