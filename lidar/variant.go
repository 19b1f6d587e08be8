package lidar

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Variant is one named header layout of the microcontroller firmware.
// Both layouts are kept side by side and never merged.
type Variant struct {
	Name         string       `json:"name" yaml:"name"`
	Pins         map[Role]Pin `json:"pins" yaml:"pins"`
	Moves        []MoveCode   `json:"moves" yaml:"moves"`
	Errors       []ErrorCode  `json:"errors,omitempty" yaml:"errors,omitempty"`
	DegreeOffset int          `json:"degree_offset,omitempty" yaml:"degree_offset,omitempty"`
}

const (
	VariantRobotMove2     = "robot_move2"
	VariantSmoothPuppyDog = "smooth_puppy_dog"
)

func defaultPins() map[Role]Pin {
	return map[Role]Pin{
		RoleEnable:     PinEnable,
		RoleMove:       PinMove,
		RoleTurn:       PinTurn,
		RoleForwardCW:  PinForwardCW,
		RoleFire:       PinFire,
		RoleMoveRate:   PinMoveRate,
		RoleLidarMotor: PinLidarMotor,
	}
}

// RobotMove2 is the layout with the pin table and the move codes only.
func RobotMove2() Variant {
	return Variant{
		Name:  VariantRobotMove2,
		Pins:  defaultPins(),
		Moves: AllMoveCodes(),
	}
}

// SmoothPuppyDog adds the error codes and the mounting calibration.
func SmoothPuppyDog() Variant {
	return Variant{
		Name:         VariantSmoothPuppyDog,
		Pins:         defaultPins(),
		Moves:        AllMoveCodes(),
		Errors:       AllErrorCodes(),
		DegreeOffset: DegreeOffset,
	}
}

func Variants() []Variant {
	return []Variant{RobotMove2(), SmoothPuppyDog()}
}

func LookupVariant(name string) (Variant, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, v := range Variants() {
		if v.Name == name {
			return v, nil
		}
	}
	return Variant{}, fmt.Errorf("variant %q: %w", name, ErrUnknownVariant)
}

// HasErrorCodes tells whether the firmware reports LIDAR errors at all.
func (v Variant) HasErrorCodes() bool {
	return len(v.Errors) > 0
}

// RoleOf returns the role assigned to the given pin.
func (v Variant) RoleOf(p Pin) (Role, bool) {
	for r, pin := range v.Pins {
		if pin == p {
			return r, true
		}
	}
	return 0, false
}

func (v Variant) Validate() error {
	var errs []error

	//
	// Pins
	//

	owners := make(map[Pin]Role, len(v.Pins))
	for _, r := range AllRoles() {
		p, ok := v.Pins[r]
		if !ok {
			errs = append(errs, fmt.Errorf("pins: missing role %s", r))
			continue
		}

		if p >= A0+AnalogPins {
			errs = append(errs, fmt.Errorf("pins: %s: %d: %w", r, p, ErrInvalidPin))
			continue
		}

		if other, ok := owners[p]; ok {
			errs = append(errs, fmt.Errorf("pins: pin %s is assigned to both %s and %s", p, other, r))
			continue
		}
		owners[p] = r
	}

	for r := range v.Pins {
		if _, ok := roleNames[r]; !ok {
			errs = append(errs, fmt.Errorf("pins: %d: %w", r, ErrUnknownRole))
		}
	}

	//
	// Moves
	//

	moves := slices.Clone(v.Moves)
	slices.Sort(moves)
	if !slices.Equal(moves, AllMoveCodes()) {
		errs = append(errs, fmt.Errorf("moves: got %v, want exactly %v", v.Moves, AllMoveCodes()))
	}

	//
	// Errors
	//

	seen := make(map[ErrorCode]bool, len(v.Errors))
	for _, e := range v.Errors {
		if err := e.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("errors: %w", err))
		}

		if seen[e] {
			errs = append(errs, fmt.Errorf("errors: duplicate code %d", e))
		}
		seen[e] = true
	}

	//
	// Calibration
	//

	if v.DegreeOffset%ReadingsPerPacket != 0 {
		errs = append(errs, fmt.Errorf("degree_offset: %d is not a multiple of %d", v.DegreeOffset, ReadingsPerPacket))
	}

	return errors.Join(errs...)
}
