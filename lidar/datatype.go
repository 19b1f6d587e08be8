package lidar

import (
	"fmt"
	"strconv"
	"strings"
)

type (
	Pin       uint8
	Role      uint8
	MoveCode  uint8
	ErrorCode uint8
)

// Direction tells how a line is driven, seen from the microcontroller.
type Direction uint8

const (
	DirectionInput Direction = iota
	DirectionOutput
	DirectionAnalogOutput
)

func (d Direction) String() string {
	switch d {
	case DirectionInput:
		return "input"
	case DirectionOutput:
		return "output"
	case DirectionAnalogOutput:
		return "analog output"
	default:
		return "unknown"
	}
}

//
// Pin
//

func (p Pin) IsAnalog() bool {
	return p >= A0
}

func (p Pin) String() string {
	if p.IsAnalog() {
		return "A" + strconv.Itoa(int(p-A0))
	}
	return strconv.Itoa(int(p))
}

func (p Pin) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Pin) UnmarshalText(text []byte) error {
	v, err := ParsePin(string(text))
	if err != nil {
		return err
	}

	*p = v
	return nil
}

// ParsePin parses Arduino pin notation: "9" for a digital pin and "A0".."A5" for analog ones.
func ParsePin(s string) (Pin, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("pin: %w", ErrInvalidPin)
	}

	if s[0] == 'A' || s[0] == 'a' {
		n, err := strconv.ParseUint(s[1:], 10, 8)
		if err != nil || n >= AnalogPins {
			return 0, fmt.Errorf("pin %q: %w", s, ErrInvalidPin)
		}
		return A0 + Pin(n), nil
	}

	n, err := strconv.ParseUint(s, 10, 8)
	if err != nil || n >= DigitalPins {
		return 0, fmt.Errorf("pin %q: %w", s, ErrInvalidPin)
	}
	return Pin(n), nil
}

//
// Role
//

var roleNames = map[Role]string{
	RoleEnable:     "enable",
	RoleMove:       "move",
	RoleTurn:       "turn",
	RoleForwardCW:  "forward_cw",
	RoleFire:       "fire",
	RoleMoveRate:   "move_rate",
	RoleLidarMotor: "lidar_motor",
}

// AllRoles returns every pin role in header order.
func AllRoles() []Role {
	return []Role{
		RoleEnable,
		RoleMove,
		RoleTurn,
		RoleForwardCW,
		RoleFire,
		RoleMoveRate,
		RoleLidarMotor,
	}
}

func (r Role) String() string {
	if v, ok := roleNames[r]; ok {
		return v
	}
	return "role(" + strconv.Itoa(int(r)) + ")"
}

// Direction returns how the microcontroller drives the line of this role.
func (r Role) Direction() Direction {
	switch r {
	case RoleEnable:
		return DirectionInput
	case RoleLidarMotor:
		return DirectionAnalogOutput
	default:
		return DirectionOutput
	}
}

func (r Role) MarshalText() ([]byte, error) {
	if _, ok := roleNames[r]; !ok {
		return nil, fmt.Errorf("role %d: %w", r, ErrUnknownRole)
	}
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(text []byte) error {
	v, err := ParseRole(string(text))
	if err != nil {
		return err
	}

	*r = v
	return nil
}

func ParseRole(s string) (Role, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for r, name := range roleNames {
		if name == s {
			return r, nil
		}
	}
	return 0, fmt.Errorf("role %q: %w", s, ErrUnknownRole)
}

//
// MoveCode
//

var moveNames = map[MoveCode]string{
	MoveStop:          "stop",
	MoveForward:       "forward",
	MoveBackwards:     "backwards",
	MoveTurnClockwise: "turn_clockwise",
	MoveTurnCCW:       "turn_ccw",
}

// AllMoveCodes returns the closed set of move codes in ascending order.
func AllMoveCodes() []MoveCode {
	return []MoveCode{
		MoveStop,
		MoveForward,
		MoveBackwards,
		MoveTurnClockwise,
		MoveTurnCCW,
	}
}

func (m MoveCode) String() string {
	if v, ok := moveNames[m]; ok {
		return v
	}
	return "move(" + strconv.Itoa(int(m)) + ")"
}

func (m MoveCode) Validate() error {
	if _, ok := moveNames[m]; !ok {
		return fmt.Errorf("move code %d: %w", m, ErrUnknownMoveCode)
	}
	return nil
}

// ParseMoveCode converts a raw value received from the wire.
func ParseMoveCode(v int) (MoveCode, error) {
	if v < 0 || v > 255 {
		return 0, fmt.Errorf("move code %d: %w", v, ErrUnknownMoveCode)
	}

	m := MoveCode(v)
	return m, m.Validate()
}
