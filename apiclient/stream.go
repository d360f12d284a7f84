package apiclient

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/Alia5/xrinput/action"
	"github.com/Alia5/xrinput/apitypes"
	"github.com/Alia5/xrinput/dispatch"
	"github.com/Alia5/xrinput/internal/log"
)

// EventsPath is the stream route of the peer.
const EventsPath = "events"

// Ack is the byte a peer answers an accepted batch with. Anything else
// starts a problem+json line, after which the peer closes the stream.
const Ack byte = 0x00

var ErrStreamClosed = errors.New("event stream closed")

// EventStream sends each FireEvents call as one apitypes.EventBatch and
// waits for the peer's acknowledgement. Safe for concurrent use; calls are
// serialized.
type EventStream struct {
	transport *Transport
	raw       log.RawLogger
	logger    *slog.Logger

	mu     sync.Mutex
	conn   net.Conn
	r      *bufio.Reader
	closed bool
}

var _ dispatch.Sink = (*EventStream)(nil)

func (s *EventStream) connect(ctx context.Context) error {
	conn, err := s.transport.Dial(ctx, EventsPath, nil)
	if err != nil {
		return err
	}
	s.conn = conn
	s.r = bufio.NewReader(conn)
	s.logger.Info("event stream connected", "addr", s.transport.addr)
	return nil
}

func (s *EventStream) drop() {
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
		s.r = nil
	}
}

func (s *EventStream) FireEvents(ctx context.Context, h dispatch.Handle, events []action.ActionEvent) error {
	data, err := (&apitypes.EventBatch{Handle: h, Events: events}).MarshalBinary()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStreamClosed
	}
	if s.conn == nil {
		if err := s.connect(ctx); err != nil {
			return err
		}
	}
	conn := s.conn
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
	defer stop()

	cfg := s.transport.cfg
	if cfg.WriteTimeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
	}
	if _, err := conn.Write(data); err != nil {
		s.drop()
		return fmt.Errorf("write batch: %w", err)
	}
	s.raw.Log(false, data)

	if cfg.ReadTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
	}
	b, err := s.r.ReadByte()
	if err != nil {
		s.drop()
		return fmt.Errorf("read ack: %w", err)
	}
	if b == Ack {
		s.raw.Log(true, []byte{b})
		return nil
	}
	rest, _ := s.r.ReadBytes('\n')
	line := append([]byte{b}, rest...)
	s.raw.Log(true, line)
	s.drop()
	if ae, ok := apitypes.ParseError(line); ok {
		return ae
	}
	return fmt.Errorf("unexpected ack %q", line)
}

// Close closes the connection; later FireEvents calls fail.
func (s *EventStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.drop()
	return nil
}
