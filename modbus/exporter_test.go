package modbus

import (
	"errors"
	"testing"

	"github.com/mdouchement/lidarbot"
	"github.com/mdouchement/lidarbot/lidar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	calls   int
	address uint16
	qty     uint16
	payload []byte
	err     error
}

func (w *fakeWriter) WriteMultipleRegisters(address, quantity uint16, value []byte) ([]byte, error) {
	w.calls++
	w.address = address
	w.qty = quantity
	w.payload = value
	return nil, w.err
}

func TestEncode(t *testing.T) {
	regs := Encode(lidarbot.Status{
		Enabled:   true,
		Move:      lidar.MoveTurnCCW,
		LastError: lidar.ErrWayTooSlow,
		Left:      -0.25,
		Right:     0.25,
		Speed:     0.85,
		RPM:       310,
	})

	require.Len(t, regs, RegisterCount)
	assert.EqualValues(t, 4, regs[RegMove])
	assert.EqualValues(t, 82, regs[RegLastError])
	assert.EqualValues(t, 1, regs[RegEnabled])
	assert.EqualValues(t, 0xFF06, regs[RegLeft]) // -250
	assert.EqualValues(t, 250, regs[RegRight])
	assert.EqualValues(t, 850, regs[RegSpeed])
	assert.EqualValues(t, 310, regs[RegRPM])

	assert.InDelta(t, -0.25, Decode(regs[RegLeft]), 1e-9)
	assert.InDelta(t, 0.25, Decode(regs[RegRight]), 1e-9)

	regs = Encode(lidarbot.Status{Left: -3, RPM: 1 << 20})
	assert.EqualValues(t, 0, regs[RegEnabled])
	assert.InDelta(t, -1, Decode(regs[RegLeft]), 1e-9)
	assert.EqualValues(t, 0xFFFF, regs[RegRPM])
}

func TestExporter(t *testing.T) {
	w := &fakeWriter{}
	e := NewExporter(w, 100)

	s := lidarbot.Status{Move: lidar.MoveForward, Left: 0.5, Right: 0.5}
	require.NoError(t, e.Export(s))
	assert.Equal(t, 1, w.calls)
	assert.EqualValues(t, 100, w.address)
	assert.EqualValues(t, RegisterCount, w.qty)
	require.Len(t, w.payload, 2*RegisterCount)
	assert.Equal(t, []byte{0, 1}, w.payload[2*RegMove:2*RegMove+2])
	assert.Equal(t, []byte{0x01, 0xF4}, w.payload[2*RegLeft:2*RegLeft+2]) // 500

	// Unchanged block is not written again.
	s.Axes = lidarbot.Axes{Move: 0.5}
	require.NoError(t, e.Export(s))
	assert.Equal(t, 1, w.calls)

	// A failed write is retried on next export.
	s.RPM = 300
	w.err = errors.New("broken pipe")
	assert.ErrorContains(t, e.Export(s), "write registers 100-106")
	assert.Equal(t, 2, w.calls)

	w.err = nil
	require.NoError(t, e.Export(s))
	assert.Equal(t, 3, w.calls)

	assert.NoError(t, e.Close())
}

func TestDialValidation(t *testing.T) {
	_, err := Dial(lidarbot.ModbusConfig{})
	assert.ErrorContains(t, err, "endpoint required")

	_, err = Dial(lidarbot.ModbusConfig{Endpoint: "localhost:502", Address: 65530})
	assert.ErrorIs(t, err, ErrAddressOverflow)
}
