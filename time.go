package lidarbot

import (
	"strconv"
	"time"
)

// Duration is a time.Duration written as "20ms" in configuration files and JSON payloads.
// A bare number is read as milliseconds.
type Duration struct {
	time.Duration
}

func NewDuration(d time.Duration) Duration {
	return Duration{Duration: d}
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		return nil
	}

	if ms, err := strconv.ParseInt(string(text), 10, 64); err == nil {
		d.Duration = time.Duration(ms) * time.Millisecond
		return nil
	}

	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}

	d.Duration = v
	return nil
}
