package lidar

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mdouchement/logger"
	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

var (
	ErrNotFound         = errors.New("device not found/plugged")
	ErrInvalidTelemetry = errors.New("invalid telemetry line")
)

const (
	LinkBaudRate  = 115200
	LinkSeparator = ':'
	LinkMaxLine   = 256 // Including the newline
)

// USB vendor IDs of genuine and clone Arduino boards.
var arduinoVIDs = []string{"2341", "2a03"}

type TelemetryKind uint8

const (
	TelemetryMove TelemetryKind = iota + 1
	TelemetryError
	TelemetryRPM
)

func (k TelemetryKind) String() string {
	switch k {
	case TelemetryMove:
		return "MOVE"
	case TelemetryError:
		return "ERR"
	case TelemetryRPM:
		return "RPM"
	default:
		return "UNKNOWN"
	}
}

// Telemetry is one record reported by the microcontroller on its serial port.
type Telemetry struct {
	Kind TelemetryKind `json:"kind"`
	Move MoveCode      `json:"move,omitempty"`
	Err  ErrorCode     `json:"error,omitempty"`
	RPM  int           `json:"rpm,omitempty"`
	At   time.Time     `json:"at"`
}

func (t Telemetry) String() string {
	switch t.Kind {
	case TelemetryMove:
		return fmt.Sprintf("%s:%d (%s)", t.Kind, t.Move, t.Move)
	case TelemetryError:
		return fmt.Sprintf("%s:%d (%s)", t.Kind, t.Err, t.Err)
	default:
		return fmt.Sprintf("%s:%d", t.Kind, t.RPM)
	}
}

// ParseTelemetry parses a `KEY:VALUE` line.
// It returns false for any line that is not telemetry (firmware debug output).
func ParseTelemetry(line []byte) (Telemetry, bool, error) {
	line = bytes.TrimSpace(line)

	k, v, found := bytes.Cut(line, []byte{LinkSeparator})
	if !found {
		return Telemetry{}, false, nil
	}

	var t Telemetry
	switch strings.ToUpper(string(k)) {
	case "MOVE":
		t.Kind = TelemetryMove
	case "ERR":
		t.Kind = TelemetryError
	case "RPM":
		t.Kind = TelemetryRPM
	default:
		return Telemetry{}, false, nil
	}

	n, err := strconv.Atoi(string(bytes.TrimSpace(v)))
	if err != nil {
		return Telemetry{}, true, fmt.Errorf("%s: %w: %q", t.Kind, ErrInvalidTelemetry, v)
	}

	switch t.Kind {
	case TelemetryMove:
		t.Move, err = ParseMoveCode(n)
	case TelemetryError:
		t.Err, err = ParseErrorCode(n)
	case TelemetryRPM:
		if n < 0 {
			err = fmt.Errorf("%w: negative rpm %d", ErrInvalidTelemetry, n)
		}
		t.RPM = n
	}
	if err != nil {
		return Telemetry{}, true, fmt.Errorf("%s: %w", t.Kind, err)
	}

	return t, true, nil
}

// Link reads the telemetry printed by the microcontroller.
type Link struct {
	sync   sync.Mutex
	pname  string
	port   io.ReadCloser
	reader *bufio.Reader
	log    logger.Logger
	now    func() time.Time
}

func OpenAuto() (*Link, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, err
	}

	var port *enumerator.PortDetails
	for _, p := range ports {
		if !p.IsUSB {
			continue
		}

		for _, vid := range arduinoVIDs {
			if strings.EqualFold(p.VID, vid) {
				port = p
				break
			}
		}
		if port != nil {
			break
		}
	}
	if port == nil {
		return nil, ErrNotFound
	}

	fmt.Printf("Found microcontroller on %s - VID: %s - PID: %s - SN: %s\n", port.Name, port.VID, port.PID, port.SerialNumber)
	return Open(port.Name)
}

func Open(port string) (*Link, error) {
	p, err := serial.Open(port, &serial.Mode{
		BaudRate: LinkBaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, err
	}

	if err = p.ResetInputBuffer(); err != nil {
		p.Close()
		return nil, err
	}

	return NewLink(port, p), nil
}

// NewLink wraps an already opened stream.
func NewLink(name string, rc io.ReadCloser) *Link {
	return &Link{
		pname:  name,
		port:   rc,
		reader: bufio.NewReaderSize(rc, LinkMaxLine),
		now:    time.Now,
	}
}

func (l *Link) SetLogger(log logger.Logger) {
	l.log = log
}

func (l *Link) Close() error {
	return l.port.Close()
}

func (l *Link) Port() string {
	return l.pname
}

// Next blocks until the next telemetry record.
// Debug lines and malformed records are logged and skipped.
func (l *Link) Next() (Telemetry, error) {
	l.sync.Lock()
	defer l.sync.Unlock()

	for {
		line, err := l.reader.ReadSlice('\n')
		if errors.Is(err, bufio.ErrBufferFull) {
			for errors.Is(err, bufio.ErrBufferFull) {
				_, err = l.reader.ReadSlice('\n')
			}
			if l.log != nil {
				l.log.Warnf("[link] Line longer than %d bytes dropped", LinkMaxLine)
			}
			if err != nil {
				return Telemetry{}, fmt.Errorf("read: %w", err)
			}
			continue
		}
		if err != nil && (len(line) == 0 || !errors.Is(err, io.EOF)) {
			return Telemetry{}, fmt.Errorf("read: %w", err)
		}

		t, ok, perr := ParseTelemetry(line)
		switch {
		case perr != nil:
			if l.log != nil {
				l.log.Warnf("[link] %s", perr)
			}
		case ok:
			t.At = l.now()
			return t, nil
		default:
			if l.log != nil {
				if p := bytes.TrimSpace(line); len(p) > 0 {
					l.log.Debug("[link] " + string(p))
				}
			}
		}

		if err != nil {
			return Telemetry{}, fmt.Errorf("read: %w", err)
		}
	}
}
