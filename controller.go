package lidarbot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/mdouchement/lidarbot/lidar"
	"github.com/mdouchement/logger"
)

var ErrStopped = errors.New("controller stopped")

type Controller struct {
	cfg       Config
	board     Board
	train     Drivetrain
	telemetry Telemetry
	exporter  StatusExporter
	events    chan event
	exports   chan Status
	listener  net.Listener
	server    *http.Server
	done      chan struct{}
	now       func() time.Time

	// Owned by the event loop.
	status    Status
	published Status
	manual    Axes
	axesAt    time.Time
	watchers  map[int64]chan<- []byte
}

func New(cfg Config, board Board, train Drivetrain) (*Controller, error) {
	c := &Controller{
		cfg:      cfg,
		board:    board,
		train:    train,
		events:   make(chan event, 10),
		exports:  make(chan Status, 1),
		done:     make(chan struct{}),
		now:      time.Now,
		watchers: map[int64]chan<- []byte{},
		status: Status{
			Variant: cfg.Firmware.Name,
		},
	}

	err := os.MkdirAll(filepath.Dir(cfg.Socket), 0o755)
	if err != nil {
		return nil, fmt.Errorf("socket: %w", err)
	}

	if _, err := os.Stat(cfg.Socket); err == nil {
		fmt.Printf("Removing existing %s\n", cfg.Socket)
		os.Remove(cfg.Socket)
	}
	c.listener, err = net.Listen("unix", cfg.Socket)
	if err != nil {
		return nil, fmt.Errorf("socket: %w", err)
	}

	return c, nil
}

// SetTelemetry plugs the serial link of the microcontroller. Must be called before Launch.
func (c *Controller) SetTelemetry(t Telemetry) {
	c.telemetry = t
}

// SetExporter plugs a status export. Must be called before Launch.
func (c *Controller) SetExporter(e StatusExporter) {
	c.exporter = e
}

// Done is closed once the controller has stopped the drivetrain and released its socket.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

func (c *Controller) Launch(ctx context.Context) {
	log := logger.LogWith(ctx)

	c.server = &http.Server{
		Handler:           c.routes(ctx, log),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		for {
			log.Info("[http] Starting HTTP server on", c.listener.Addr().String())
			err := c.server.Serve(c.listener)
			if errors.Is(err, http.ErrServerClosed) {
				return
			}
			log.WithError(err).Error("[http] Could not serve HTTP")
			time.Sleep(2 * time.Second)
		}
	}()

	if c.exporter != nil {
		go c.export(log)
	}

	if c.telemetry != nil {
		go c.readTelemetry(ctx, log)
	}

	go c.eventLoop(ctx, log)
}

func (c *Controller) eventLoop(ctx context.Context, log logger.Logger) {
	defer close(c.done)

	ticker := time.NewTicker(c.cfg.Period.Duration)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.shutdown(log)
			return
		case <-ticker.C:
			c.step(log)
		case e := <-c.events:
			c.handle(log, e)
		}

		if !c.status.equal(c.published) {
			c.publish(log)
		}
	}
}

// step runs one cycle of the drive loop.
func (c *Controller) step(log logger.Logger) {
	now := c.now()
	lines := c.board.Lines()
	pulses := c.board.Pulses()

	speed := c.cfg.Speed
	if c.cfg.SpeedSource == SpeedSourcePulses {
		speed = SpeedScalar(pulses, c.cfg.MaxPulse)
	}

	code := lidar.DecodeLines(lines)

	var axes Axes
	switch {
	case c.status.Enabled:
		axes = Decide(code, speed)
	case c.cfg.JoystickTimeout.Duration == 0 || now.Sub(c.axesAt) <= c.cfg.JoystickTimeout.Duration:
		axes = c.manual
	}

	left, right := ArcadeMix(axes, c.cfg.SquaredInputs)
	if err := c.train.Drive(left, right); err != nil {
		log.WithError(err).Error("[drive] Could not drive")
	}

	flashlight := c.status.Enabled && lines.Fire
	if flashlight != c.status.Flashlight {
		if err := c.board.SetFlashlight(flashlight); err != nil {
			log.WithError(err).Error("[drive] Could not switch the flashlight")
		} else {
			c.status.Flashlight = flashlight
		}
	}

	if c.status.Enabled && code != c.status.Move {
		log.Debugf("[drive] %s -> %s", c.status.Move, code)
	}

	c.status.Lines = lines
	c.status.Move = code
	c.status.Speed = speed
	c.status.Axes = axes
	c.status.Left = left
	c.status.Right = right
	c.status.UpdatedAt = now
}

func (c *Controller) handle(log logger.Logger, e event) {
	switch e.name {
	case eventEnable:
		err := c.board.SetEnable(e.enabled)
		if err == nil {
			if c.status.Enabled != e.enabled {
				log.Infof("[drive] Microcontroller enabled: %t", e.enabled)
			}
			c.status.Enabled = e.enabled
			c.manual = Axes{}
		}
		e.reply <- reply{status: c.status, err: err}

	case eventJoystick:
		if c.status.Enabled {
			e.reply <- reply{status: c.status, err: errors.New("joystick ignored while the microcontroller is enabled")}
			return
		}
		c.manual = e.axes
		c.axesAt = c.now()
		e.reply <- reply{status: c.status}

	case eventTelemetry:
		t := e.telemetry
		switch t.Kind {
		case lidar.TelemetryMove:
			c.status.Reported = t.Move
		case lidar.TelemetryRPM:
			c.status.RPM = t.RPM
		case lidar.TelemetryError:
			if t.Err != c.status.LastError {
				l := log.WithError(t.Err)
				if t.Err.Severity() == lidar.SeverityCritical {
					l.Errorf("[lidar] Error code %d", t.Err)
				} else {
					l.Warnf("[lidar] Error code %d", t.Err)
				}
			}
			c.status.LastError = t.Err
		}

	case eventStatus:
		e.reply <- reply{status: c.status}

	case eventWatch:
		c.watchers[e.monitorID] = e.monitor
		if payload, err := json.Marshal(c.status); err == nil {
			e.monitor <- payload
		}

	case eventUnwatch:
		if ch, ok := c.watchers[e.monitorID]; ok {
			close(ch)
			delete(c.watchers, e.monitorID)
		}
	}
}

func (c *Controller) publish(log logger.Logger) {
	c.published = c.status

	payload, err := json.Marshal(c.status)
	if err != nil {
		log.WithError(err).Error("[monitor] Could not serialize status") // Should never happen
		return
	}

	for id, watcher := range c.watchers {
		select {
		case watcher <- payload:
		default:
			log.Debugf("[monitor] Slow client %d, status dropped", id)
		}
	}

	if c.exporter == nil {
		return
	}

	// Only the latest status matters.
	select {
	case c.exports <- c.status:
	default:
		select {
		case <-c.exports:
		default:
		}
		c.exports <- c.status
	}
}

func (c *Controller) export(log logger.Logger) {
	for s := range c.exports {
		if err := c.exporter.Export(s); err != nil {
			log.WithError(err).Error("[modbus] Could not export status")
		}
	}
}

func (c *Controller) readTelemetry(ctx context.Context, log logger.Logger) {
	for {
		t, err := c.telemetry.Next()
		if err != nil {
			if ctx.Err() == nil {
				log.WithError(err).Error("[telemetry] Link lost")
			}
			return
		}

		select {
		case c.events <- event{name: eventTelemetry, telemetry: t}:
		case <-ctx.Done():
			return
		}
	}
}

func (c *Controller) shutdown(log logger.Logger) {
	if err := c.train.Stop(); err != nil {
		log.WithError(err).Error("[drive] Could not stop the drivetrain")
	}
	if err := c.board.SetEnable(false); err != nil {
		log.WithError(err).Error("[drive] Could not disable the microcontroller")
	}
	if err := c.board.SetFlashlight(false); err != nil {
		log.WithError(err).Error("[drive] Could not switch off the flashlight")
	}

	for id, ch := range c.watchers {
		close(ch)
		delete(c.watchers, id)
	}
	close(c.exports)

	if c.server != nil {
		if err := c.server.Close(); err != nil {
			log.WithError(err).Error("[http] Could not close socket listener")
		}
	}
	if err := os.Remove(c.cfg.Socket); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.WithError(err).Errorf("[http] Could not remove socket %s", c.cfg.Socket)
	}
}

//
// HTTP
//

func (c *Controller) routes(ctx context.Context, log logger.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /monitor", c.monitor(ctx, log))
	mux.HandleFunc("GET /status", c.statusHandler())
	mux.HandleFunc("POST /enable", c.enable(true))
	mux.HandleFunc("POST /disable", c.enable(false))
	mux.HandleFunc("POST /joystick", c.joystick())
	return mux
}

// request sends an event to the loop and waits for its reply.
func (c *Controller) request(ctx context.Context, e event) (Status, error) {
	ch := make(chan reply, 1)
	e.reply = ch

	select {
	case c.events <- e:
	case <-ctx.Done():
		return Status{}, ctx.Err()
	case <-c.done:
		return Status{}, ErrStopped
	}

	select {
	case r := <-ch:
		return r.status, r.err
	case <-ctx.Done():
		return Status{}, ctx.Err()
	case <-c.done:
		return Status{}, ErrStopped
	}
}

func (c *Controller) statusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := c.request(r.Context(), event{name: eventStatus})
		if err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}

		writeJSON(w, http.StatusOK, s)
	}
}

func (c *Controller) enable(enabled bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := c.request(r.Context(), event{name: eventEnable, enabled: enabled})
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, s)
	}
}

func (c *Controller) joystick() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var axes Axes
		var err error

		q := r.URL.Query()
		for name, v := range map[string]*float64{"move": &axes.Move, "rotate": &axes.Rotate} {
			raw := q.Get(name)
			if raw == "" {
				continue
			}

			*v, err = strconv.ParseFloat(raw, 64)
			if err != nil || math.IsNaN(*v) || *v < -1 || *v > 1 {
				http.Error(w, fmt.Sprintf("%s: must be a number in range [-1,1]", name), http.StatusBadRequest)
				return
			}
		}

		s, err := c.request(r.Context(), event{name: eventJoystick, axes: axes})
		if err != nil {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}

		writeJSON(w, http.StatusOK, s)
	}
}

func (c *Controller) monitor(ctx context.Context, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Info("[monitor] Client connected")

		// Set http headers required for SSE.
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")

		id := genID()
		ch := make(chan []byte, 20)
		select {
		case c.events <- event{name: eventWatch, monitorID: id, monitor: ch}:
		case <-c.done:
			http.Error(w, ErrStopped.Error(), http.StatusServiceUnavailable)
			return
		}

		defer func() {
			select {
			case c.events <- event{name: eventUnwatch, monitorID: id}:
			case <-c.done:
			case <-ctx.Done():
			}
		}()

		var buf bytes.Buffer
		rc := http.NewResponseController(w)
		for {
			select {
			case <-r.Context().Done():
				log.Info("[monitor] Client disconnected")
				return
			case payload, ok := <-ch:
				if !ok {
					return
				}

				buf.Reset()
				writeSSE(&buf, payload)
				if _, err := w.Write(buf.Bytes()); err != nil {
					log.WithError(err).Error("[monitor] Could not write SSE payload")
					return
				}

				if err := rc.Flush(); err != nil {
					log.WithError(err).Error("[monitor] Could not flush SSE payload")
					return
				}
			}
		}
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		http.Error(w, fmt.Sprintf("encode: %s", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(payload)
	w.Write([]byte{'\n'})
}
