package lidarbot

import (
	"time"

	"github.com/mdouchement/lidarbot/lidar"
)

// Board is the host side of the wiring with the microcontroller.
type Board interface {
	Lines() lidar.Lines
	Pulses() int
	SetEnable(enabled bool) error
	SetFlashlight(on bool) error
}

type Drivetrain interface {
	Drive(left, right float64) error
	Stop() error
}

type Telemetry interface {
	Next() (lidar.Telemetry, error)
}

type StatusExporter interface {
	Export(s Status) error
}

// Axes is an arcade drive command, both values in [-1, 1].
type Axes struct {
	Move   float64 `json:"move"`
	Rotate float64 `json:"rotate"`
}

type Status struct {
	Variant    string          `json:"variant"`
	Enabled    bool            `json:"enabled"`
	Lines      lidar.Lines     `json:"lines"`
	Move       lidar.MoveCode  `json:"move"`
	Reported   lidar.MoveCode  `json:"reported_move"`
	Speed      float64         `json:"speed"`
	Axes       Axes            `json:"axes"`
	Left       float64         `json:"left"`
	Right      float64         `json:"right"`
	Flashlight bool            `json:"flashlight"`
	LastError  lidar.ErrorCode `json:"last_error,omitempty"`
	RPM        int             `json:"rpm"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

func (s Status) equal(o Status) bool {
	s.UpdatedAt = time.Time{}
	o.UpdatedAt = time.Time{}
	return s == o
}

func ToPtr[T any](v T) *T {
	return &v
}

const (
	eventEnable    = "enable"
	eventJoystick  = "joystick"
	eventTelemetry = "telemetry"
	eventStatus    = "status"
	eventWatch     = "watch"
	eventUnwatch   = "unwatch"
)

type event struct {
	name      string
	enabled   bool
	axes      Axes
	telemetry lidar.Telemetry
	reply     chan<- reply
	monitorID int64
	monitor   chan<- []byte
}

type reply struct {
	status Status
	err    error
}

func genID() int64 {
	time.Sleep(time.Nanosecond)
	return time.Now().UnixNano()
}
