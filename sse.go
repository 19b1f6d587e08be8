package lidarbot

import (
	"bufio"
	"bytes"
)

var ssePrefix = []byte("data:")

// ReadSSE returns the data of the next server-sent event.
func ReadSSE(r *bufio.Reader) ([]byte, error) {
	var data []byte
	for {
		line, err := r.ReadBytes('\n')
		if err != nil {
			return data, err
		}

		line = bytes.TrimRight(line, "\r\n")
		if len(line) == 0 {
			if data == nil {
				continue // Heartbeat or leading blank line
			}
			return data, nil
		}

		if !bytes.HasPrefix(line, ssePrefix) {
			continue // Comments and unused fields
		}

		if data != nil {
			data = append(data, '\n')
		}
		data = append(data, bytes.TrimPrefix(line[len(ssePrefix):], []byte{' '})...)
	}
}

func writeSSE(w *bytes.Buffer, payload []byte) {
	for line := range bytes.SplitSeq(payload, []byte{'\n'}) {
		w.Write(ssePrefix)
		w.WriteByte(' ')
		w.Write(line)
		w.WriteByte('\n')
	}
	w.WriteByte('\n')
}
