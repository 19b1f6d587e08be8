package lidar

// Board geometry of an Arduino Uno class microcontroller.
const (
	DigitalPins = 14
	AnalogPins  = 6
)

const (
	A0 Pin = DigitalPins + iota
	A1
	A2
	A3
	A4
	A5
)

// Pin assignment on the microcontroller side.
const (
	PinEnable     Pin = 9 // input from the host
	PinMove       Pin = 8
	PinTurn       Pin = 7
	PinForwardCW  Pin = 6
	PinFire       Pin = 5
	PinMoveRate   Pin = 4
	PinLidarMotor Pin = A0 // LIDAR motor speed
)

const (
	RoleEnable Role = iota
	RoleMove
	RoleTurn
	RoleForwardCW
	RoleFire
	RoleMoveRate
	RoleLidarMotor
)

const (
	MoveStop          MoveCode = 0
	MoveForward       MoveCode = 1
	MoveBackwards     MoveCode = 2
	MoveTurnClockwise MoveCode = 3
	MoveTurnCCW       MoveCode = 4
)

const (
	ErrWayTooSlow ErrorCode = 82 // LIDAR is rotating way too slow
	ErrTooSlow    ErrorCode = 80 // LIDAR is rotating too slow
	ErrNoReading  ErrorCode = 53 // unable to get a reading
	ErrTooClose   ErrorCode = 3  // an obstacle is very close
)

const (
	// DegreeOffset compensates the LIDAR not being mounted straight.
	// It must stay a multiple of ReadingsPerPacket.
	DegreeOffset = 8

	// ReadingsPerPacket is the number of consecutive degrees carried by one LIDAR packet.
	ReadingsPerPacket = 4
)

// Fails to compile when DegreeOffset is not a multiple of ReadingsPerPacket.
var _ [0]struct{} = [DegreeOffset % ReadingsPerPacket]struct{}{}
