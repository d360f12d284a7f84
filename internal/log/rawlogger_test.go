package log

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRawLogger(t *testing.T) {
	var buf bytes.Buffer
	r := NewRaw(&buf).(*rawLogger)
	r.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	r.Log(false, []byte{0x01, 0xab})
	r.Log(true, []byte{0xff})
	r.Log(true, nil)

	assert.Equal(t,
		"2026/01/02 03:04:05.000 TX 2 bytes: 01ab\n"+
			"2026/01/02 03:04:05.000 RX 1 bytes: ff\n",
		buf.String())
}

func TestRawLoggerNop(t *testing.T) {
	r, c, err := OpenRaw("")
	assert.NoError(t, err)
	assert.Nil(t, c)
	r.Log(true, []byte{1})
	NewRaw(nil).Log(false, []byte{1})
}
