package lidar

import "fmt"

// Lines holds the levels of the output lines read by the host.
type Lines struct {
	Move      bool `json:"move"`
	Turn      bool `json:"turn"`
	Direction bool `json:"direction"` // forward or clockwise when high
	Fire      bool `json:"fire"`
}

// Lines encodes the move code onto the MOVE, TURN and FORWARD_CW lines.
func (m MoveCode) Lines() (Lines, error) {
	switch m {
	case MoveStop:
		return Lines{}, nil
	case MoveForward:
		return Lines{Move: true, Direction: true}, nil
	case MoveBackwards:
		return Lines{Move: true}, nil
	case MoveTurnClockwise:
		return Lines{Move: true, Turn: true, Direction: true}, nil
	case MoveTurnCCW:
		return Lines{Move: true, Turn: true}, nil
	default:
		return Lines{}, fmt.Errorf("encode: move code %d: %w", m, ErrUnknownMoveCode)
	}
}

// DecodeLines returns the move code signaled by the line levels.
// FIRE is ignored and TURN/FORWARD_CW are meaningless while MOVE is low.
func DecodeLines(l Lines) MoveCode {
	if !l.Move {
		return MoveStop
	}

	if l.Turn {
		if l.Direction {
			return MoveTurnClockwise
		}
		return MoveTurnCCW
	}

	if l.Direction {
		return MoveForward
	}
	return MoveBackwards
}
