package lidarbot_test

import (
	"bufio"
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/mdouchement/lidarbot"
	"github.com/mdouchement/lidarbot/lidar"
	"github.com/mdouchement/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

type fixture struct {
	cfg    lidarbot.Config
	board  *lidarbot.DummyBoard
	train  *lidarbot.DummyDrivetrain
	ctrl   *lidarbot.Controller
	client *http.Client
	cancel context.CancelFunc
}

func launch(t *testing.T, configure func(*lidarbot.Config), prepare ...func(*lidarbot.Controller)) *fixture {
	t.Helper()

	dir, err := os.MkdirTemp("", "lidarbot")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })

	cfg := lidarbot.Default()
	cfg.Socket = filepath.Join(dir, "lidarbotd.sock")
	cfg.Period = lidarbot.NewDuration(2 * time.Millisecond)
	if configure != nil {
		configure(&cfg)
	}
	require.NoError(t, cfg.Validate())

	f := &fixture{
		cfg:   cfg,
		board: lidarbot.NewDummyBoard(),
		train: lidarbot.NewDummyDrivetrain(),
	}

	f.ctrl, err = lidarbot.New(cfg, f.board, f.train)
	require.NoError(t, err)
	f.ctrl.SetTelemetry(f.board)
	for _, fn := range prepare {
		fn(f.ctrl)
	}

	ctx := logger.WithLogger(context.Background(), logger.WrapSlogHandler(slog.DiscardHandler))
	ctx, cancel := context.WithCancel(ctx)
	f.cancel = cancel
	f.ctrl.Launch(ctx)

	t.Cleanup(func() {
		cancel()
		<-f.ctrl.Done()
		f.board.Close()
	})

	f.client = &http.Client{
		Timeout: waitFor,
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, "unix", cfg.Socket)
			},
		},
	}

	return f
}

func (f *fixture) post(t *testing.T, path string) (int, lidarbot.Status) {
	t.Helper()

	resp, err := f.client.Post("http://lidarbotd"+path, "", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	var s lidarbot.Status
	if resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&s))
	}
	return resp.StatusCode, s
}

func (f *fixture) outputs(left, right float64) func() bool {
	return func() bool {
		l, r := f.train.Outputs()
		return l == left && r == right
	}
}

func TestControllerAutonomous(t *testing.T) {
	f := launch(t, nil)

	code, s := f.post(t, "/enable")
	require.Equal(t, http.StatusOK, code)
	assert.True(t, s.Enabled)
	assert.Equal(t, lidar.VariantSmoothPuppyDog, s.Variant)
	assert.True(t, f.board.Enabled())

	require.NoError(t, f.board.SetMove(lidar.MoveForward))
	require.Eventually(t, f.outputs(0.25, 0.25), waitFor, tick)

	require.NoError(t, f.board.SetMove(lidar.MoveTurnClockwise))
	require.Eventually(t, f.outputs(-0.25, 0.25), waitFor, tick)

	require.NoError(t, f.board.SetMove(lidar.MoveStop))
	require.Eventually(t, f.outputs(0, 0), waitFor, tick)

	// FIRE drives the flashlight.
	f.board.SetFire(true)
	require.Eventually(t, f.board.Flashlight, waitFor, tick)

	// Manual axes are refused while the microcontroller drives.
	code, _ = f.post(t, "/joystick?move=1")
	assert.Equal(t, http.StatusConflict, code)

	code, s = f.post(t, "/disable")
	require.Equal(t, http.StatusOK, code)
	assert.False(t, s.Enabled)
	assert.False(t, f.board.Enabled())
	require.Eventually(t, func() bool { return !f.board.Flashlight() }, waitFor, tick)
}

func TestControllerPulseSpeed(t *testing.T) {
	f := launch(t, func(cfg *lidarbot.Config) {
		cfg.SpeedSource = lidarbot.SpeedSourcePulses
		cfg.SquaredInputs = false
	})

	code, _ := f.post(t, "/enable")
	require.Equal(t, http.StatusOK, code)

	// Without MOVE_RATE pulses the robot crawls at the minimum speed.
	require.NoError(t, f.board.SetMove(lidar.MoveBackwards))
	require.Eventually(t, f.outputs(-lidarbot.MinSpeedScalar, -lidarbot.MinSpeedScalar), waitFor, tick)
}

func TestControllerJoystick(t *testing.T) {
	f := launch(t, func(cfg *lidarbot.Config) {
		cfg.JoystickTimeout = lidarbot.NewDuration(100 * time.Millisecond)
	})

	code, _ := f.post(t, "/joystick?move=1&rotate=0")
	require.Equal(t, http.StatusOK, code)
	require.Eventually(t, f.outputs(1, 1), waitFor, tick)

	// Deadman
	require.Eventually(t, f.outputs(0, 0), waitFor, tick)

	code, _ = f.post(t, "/joystick?move=2")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = f.post(t, "/joystick?rotate=left")
	assert.Equal(t, http.StatusBadRequest, code)

	for _, raw := range []string{"NaN", "nan", "Inf", "-Inf"} {
		code, _ = f.post(t, "/joystick?move="+raw)
		assert.Equal(t, http.StatusBadRequest, code, raw)
	}

	// Status still serializes after rejected commands.
	resp, err := f.client.Get("http://lidarbotd/status")
	require.NoError(t, err)
	var s lidarbot.Status
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&s))
	resp.Body.Close()
	assert.Equal(t, lidarbot.Axes{}, s.Axes)

	resp, err = f.client.Get("http://lidarbotd/joystick")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestControllerTelemetry(t *testing.T) {
	f := launch(t, nil)

	f.board.Report(lidar.Telemetry{Kind: lidar.TelemetryRPM, RPM: 320})
	f.board.Report(lidar.Telemetry{Kind: lidar.TelemetryError, Err: lidar.ErrTooSlow})
	f.board.Report(lidar.Telemetry{Kind: lidar.TelemetryMove, Move: lidar.MoveTurnCCW})

	require.Eventually(t, func() bool {
		resp, err := f.client.Get("http://lidarbotd/status")
		if err != nil {
			return false
		}
		defer resp.Body.Close()

		var s lidarbot.Status
		if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
			return false
		}
		return s.RPM == 320 && s.LastError == lidar.ErrTooSlow && s.Reported == lidar.MoveTurnCCW
	}, waitFor, tick)
}

func TestControllerMonitor(t *testing.T) {
	f := launch(t, nil)

	resp, err := (&http.Client{Transport: f.client.Transport}).Get("http://lidarbotd/monitor")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	r := bufio.NewReader(resp.Body)

	// Current status is sent on connection.
	payload, err := lidarbot.ReadSSE(r)
	require.NoError(t, err)

	var s lidarbot.Status
	require.NoError(t, json.Unmarshal(payload, &s))
	assert.Equal(t, lidar.VariantSmoothPuppyDog, s.Variant)

	code, _ := f.post(t, "/enable")
	require.Equal(t, http.StatusOK, code)

	for !s.Enabled {
		payload, err = lidarbot.ReadSSE(r)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(payload, &s))
	}
	assert.True(t, s.Enabled)
}

func TestControllerShutdown(t *testing.T) {
	f := launch(t, nil)

	code, _ := f.post(t, "/enable")
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, f.board.SetMove(lidar.MoveForward))
	require.Eventually(t, f.outputs(0.25, 0.25), waitFor, tick)

	f.cancel()
	select {
	case <-f.ctrl.Done():
	case <-time.After(waitFor):
		t.Fatal("controller did not stop")
	}

	l, r := f.train.Outputs()
	assert.Zero(t, l)
	assert.Zero(t, r)
	assert.False(t, f.board.Enabled())

	_, err := os.Stat(f.cfg.Socket)
	assert.True(t, os.IsNotExist(err))
}

type recorder struct {
	sync     sync.Mutex
	statuses []lidarbot.Status
}

func (r *recorder) Export(s lidarbot.Status) error {
	r.sync.Lock()
	defer r.sync.Unlock()

	r.statuses = append(r.statuses, s)
	return nil
}

func (r *recorder) last() (lidarbot.Status, bool) {
	r.sync.Lock()
	defer r.sync.Unlock()

	if len(r.statuses) == 0 {
		return lidarbot.Status{}, false
	}
	return r.statuses[len(r.statuses)-1], true
}

func TestControllerExport(t *testing.T) {
	rec := &recorder{}
	f := launch(t, func(cfg *lidarbot.Config) {
		cfg.Variant = lidar.VariantRobotMove2
	}, func(c *lidarbot.Controller) {
		c.SetExporter(rec)
	})

	require.NoError(t, f.board.SetMove(lidar.MoveBackwards))
	require.Eventually(t, func() bool {
		s, ok := rec.last()
		return ok && s.Move == lidar.MoveBackwards && s.Variant == lidar.VariantRobotMove2
	}, waitFor, tick)
}
