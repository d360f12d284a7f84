package log

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// RawLogger records wire frames of the peer event stream.
type RawLogger interface {
	// Log records data; in is true for bytes received, false for bytes sent.
	Log(in bool, data []byte)
}

type rawLogger struct {
	w   io.Writer
	mu  sync.Mutex
	now func() time.Time
}

type nopRaw struct{}

func (nopRaw) Log(bool, []byte) {}

// NewRaw returns a RawLogger writing one line per frame to w. A nil w
// yields a no-op logger.
func NewRaw(w io.Writer) RawLogger {
	if w == nil {
		return nopRaw{}
	}
	return &rawLogger{w: w, now: time.Now}
}

// OpenRaw opens path for raw logging. An empty path yields a no-op logger
// and a nil closer.
func OpenRaw(path string) (RawLogger, io.Closer, error) {
	if path == "" {
		return nopRaw{}, nil, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, err
	}
	return NewRaw(f), f, nil
}

func (r *rawLogger) Log(in bool, data []byte) {
	if len(data) == 0 {
		return
	}
	dir := "TX"
	if in {
		dir = "RX"
	}
	line := fmt.Sprintf("%s %s %d bytes: %s\n",
		r.now().Format("2006/01/02 15:04:05.000"), dir, len(data), hex.EncodeToString(data))

	r.mu.Lock()
	_, _ = r.w.Write([]byte(line))
	r.mu.Unlock()
}
