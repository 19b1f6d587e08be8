package modbus

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/goburrow/modbus"
	"github.com/mdouchement/lidarbot"
)

var ErrAddressOverflow = errors.New("status block does not fit the register space")

// RegisterWriter is the part of a Modbus client used to publish the status block.
type RegisterWriter interface {
	WriteMultipleRegisters(address, quantity uint16, value []byte) ([]byte, error)
}

// Exporter writes the status block as holding registers.
// Only changed blocks are written.
type Exporter struct {
	mu      sync.Mutex
	handler *modbus.TCPClientHandler
	client  RegisterWriter
	address uint16
	last    []uint16
}

// Dial connects to a Modbus TCP endpoint.
func Dial(cfg lidarbot.ModbusConfig) (*Exporter, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("modbus: endpoint required")
	}

	if int(cfg.Address)+RegisterCount > 1<<16 {
		return nil, fmt.Errorf("modbus: address %d: %w", cfg.Address, ErrAddressOverflow)
	}

	h := modbus.NewTCPClientHandler(cfg.Endpoint)
	h.Timeout = cfg.Timeout.Duration
	h.SlaveId = cfg.UnitID

	if err := h.Connect(); err != nil {
		return nil, fmt.Errorf("modbus: %w", err)
	}

	e := NewExporter(modbus.NewClient(h), cfg.Address)
	e.handler = h
	return e, nil
}

func NewExporter(w RegisterWriter, address uint16) *Exporter {
	return &Exporter{
		client:  w,
		address: address,
	}
}

func (e *Exporter) Export(s lidarbot.Status) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	regs := Encode(s)
	if slices.Equal(regs, e.last) {
		return nil
	}

	_, err := e.client.WriteMultipleRegisters(e.address, uint16(len(regs)), pack(regs))
	if err != nil {
		e.last = nil // Full write on next export
		return fmt.Errorf("write registers %d-%d: %w", e.address, int(e.address)+len(regs)-1, err)
	}

	e.last = regs
	return nil
}

func (e *Exporter) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.handler == nil {
		return nil
	}
	return e.handler.Close()
}

func pack(regs []uint16) []byte {
	out := make([]byte, len(regs)*2)
	for i, r := range regs {
		out[2*i] = byte(r >> 8)
		out[2*i+1] = byte(r)
	}
	return out
}
