package lidar_test

import (
	"testing"

	"github.com/mdouchement/lidarbot/lidar"
	"github.com/stretchr/testify/assert"
)

func TestBearing(t *testing.T) {
	spd := lidar.SmoothPuppyDog()
	assert.Equal(t, 8, spd.Bearing(0))
	assert.Equal(t, 0, spd.Bearing(352))
	assert.Equal(t, 4, spd.Bearing(356))
	assert.Equal(t, 358, spd.Bearing(-10))
	assert.Equal(t, 8, spd.Bearing(720))

	// Without calibration the angle is only normalized.
	rm := lidar.RobotMove2()
	assert.Equal(t, 0, rm.Bearing(0))
	assert.Equal(t, 352, rm.Bearing(352))
	assert.Equal(t, 350, rm.Bearing(-10))
	assert.Equal(t, 0, rm.PacketShift())

	for _, v := range lidar.Variants() {
		for raw := -720; raw < 720; raw++ {
			b := v.Bearing(raw)
			assert.GreaterOrEqual(t, b, 0)
			assert.Less(t, b, 360)
		}
	}
}

func TestPacketShift(t *testing.T) {
	spd := lidar.SmoothPuppyDog()
	assert.Equal(t, 2, spd.PacketShift())

	// A whole-packet offset keeps every reading in its packet slot.
	for _, v := range lidar.Variants() {
		for raw := 0; raw < 360; raw++ {
			assert.Equal(t, raw%4, v.Bearing(raw)%4)
			assert.Equal(t, (lidar.PacketIndex(raw)+v.PacketShift())%90, lidar.PacketIndex(v.Bearing(raw)))
		}
	}
}
