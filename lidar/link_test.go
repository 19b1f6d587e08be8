package lidar_test

import (
	"io"
	"strings"
	"testing"

	"github.com/mdouchement/lidarbot/lidar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTelemetry(t *testing.T) {
	tests := []struct {
		line string
		ok   bool
		err  error
		want lidar.Telemetry
	}{
		{line: "MOVE:3\r\n", ok: true, want: lidar.Telemetry{Kind: lidar.TelemetryMove, Move: lidar.MoveTurnClockwise}},
		{line: "ERR:82", ok: true, want: lidar.Telemetry{Kind: lidar.TelemetryError, Err: lidar.ErrWayTooSlow}},
		{line: "rpm: 310", ok: true, want: lidar.Telemetry{Kind: lidar.TelemetryRPM, RPM: 310}},
		{line: "MOVE:9", ok: true, err: lidar.ErrUnknownMoveCode},
		{line: "ERR:4", ok: true, err: lidar.ErrUnknownErrorCode},
		{line: "RPM:fast", ok: true, err: lidar.ErrInvalidTelemetry},
		{line: "RPM:-2", ok: true, err: lidar.ErrInvalidTelemetry},
		{line: "lidar spinning up"},
		{line: "DIST:120"},
		{line: ""},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, ok, err := lidar.ParseTelemetry([]byte(tt.line))
			assert.Equal(t, tt.ok, ok)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLinkNext(t *testing.T) {
	stream := strings.Join([]string{
		"booting",
		"MOVE:1",
		"ERR:nope",
		"ERR:3",
		"RPM:300", // no trailing newline
	}, "\n")

	l := lidar.NewLink("test", io.NopCloser(strings.NewReader(stream)))
	assert.Equal(t, "test", l.Port())

	tm, err := l.Next()
	require.NoError(t, err)
	assert.Equal(t, lidar.TelemetryMove, tm.Kind)
	assert.Equal(t, lidar.MoveForward, tm.Move)
	assert.False(t, tm.At.IsZero())

	tm, err = l.Next()
	require.NoError(t, err)
	assert.Equal(t, lidar.TelemetryError, tm.Kind)
	assert.Equal(t, lidar.ErrTooClose, tm.Err)

	tm, err = l.Next()
	require.NoError(t, err)
	assert.Equal(t, 300, tm.RPM)

	_, err = l.Next()
	assert.ErrorIs(t, err, io.EOF)
	assert.NoError(t, l.Close())
}

func TestLinkNextLongLine(t *testing.T) {
	stream := strings.Join([]string{
		"MOVE:" + strings.Repeat("1", 3*lidar.LinkMaxLine),
		"MOVE:" + strings.Repeat("0", lidar.LinkMaxLine-len("MOVE:")-2) + "2", // exactly the limit with the newline
		"RPM:" + strings.Repeat(" ", lidar.LinkMaxLine),
	}, "\n")

	l := lidar.NewLink("test", io.NopCloser(strings.NewReader(stream)))

	tm, err := l.Next()
	require.NoError(t, err)
	assert.Equal(t, lidar.TelemetryMove, tm.Kind)
	assert.Equal(t, lidar.MoveBackwards, tm.Move)

	// The last line overflows without a newline.
	_, err = l.Next()
	assert.ErrorIs(t, err, io.EOF)
}
