package lidarbot_test

import (
	"bufio"
	"io"
	"strings"
	"testing"

	"github.com/mdouchement/lidarbot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadSSE(t *testing.T) {
	r := bufio.NewReader(strings.NewReader(
		"\n" +
			": keep-alive\n" +
			"data: {\"a\":1}\n\n" +
			"event: status\r\n" +
			"data: line1\r\n" +
			"data:line2\r\n\r\n" +
			"data: partial",
	))

	payload, err := lidarbot.ReadSSE(r)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(payload))

	payload, err = lidarbot.ReadSSE(r)
	require.NoError(t, err)
	assert.Equal(t, "line1\nline2", string(payload))

	_, err = lidarbot.ReadSSE(r)
	assert.ErrorIs(t, err, io.EOF)
}
