package lidar

import (
	"errors"
	"fmt"
	"strconv"
)

var (
	ErrInvalidPin       = errors.New("invalid pin")
	ErrUnknownRole      = errors.New("unknown pin role")
	ErrUnknownMoveCode  = errors.New("unknown move code")
	ErrUnknownErrorCode = errors.New("unknown error code")
	ErrUnknownVariant   = errors.New("unknown variant")
)

type Severity uint8

const (
	SeverityWarning Severity = iota
	SeverityCritical
)

func (s Severity) String() string {
	if s == SeverityCritical {
		return "critical"
	}
	return "warning"
}

var errorMessages = map[ErrorCode]string{
	ErrWayTooSlow: "lidar is rotating way too slow",
	ErrTooSlow:    "lidar is rotating too slow",
	ErrNoReading:  "unable to get a lidar reading",
	ErrTooClose:   "obstacle too close",
}

// AllErrorCodes returns the error codes from the most to the least severe.
func AllErrorCodes() []ErrorCode {
	return []ErrorCode{
		ErrWayTooSlow,
		ErrTooSlow,
		ErrNoReading,
		ErrTooClose,
	}
}

func (e ErrorCode) Error() string {
	if v, ok := errorMessages[e]; ok {
		return v
	}
	return "lidar error " + strconv.Itoa(int(e))
}

func (e ErrorCode) String() string {
	switch e {
	case ErrWayTooSlow:
		return "way_too_slow"
	case ErrTooSlow:
		return "too_slow"
	case ErrNoReading:
		return "no_reading"
	case ErrTooClose:
		return "too_close"
	default:
		return "error(" + strconv.Itoa(int(e)) + ")"
	}
}

// Severity tells whether the scan is still usable.
// Without a reading, or with the LIDAR barely spinning, nothing can be trusted.
func (e ErrorCode) Severity() Severity {
	switch e {
	case ErrWayTooSlow, ErrNoReading:
		return SeverityCritical
	default:
		return SeverityWarning
	}
}

func (e ErrorCode) Validate() error {
	if _, ok := errorMessages[e]; !ok {
		return fmt.Errorf("error code %d: %w", e, ErrUnknownErrorCode)
	}
	return nil
}

func ParseErrorCode(v int) (ErrorCode, error) {
	if v < 0 || v > 255 {
		return 0, fmt.Errorf("error code %d: %w", v, ErrUnknownErrorCode)
	}

	e := ErrorCode(v)
	return e, e.Validate()
}
