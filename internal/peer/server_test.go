package peer_test

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/xrinput/action"
	"github.com/Alia5/xrinput/apitypes"
	"github.com/Alia5/xrinput/internal/peer"
)

func startServer(t *testing.T, password string, onBatch peer.BatchFunc) *peer.Server {
	t.Helper()
	s, err := peer.New(peer.Config{Addr: "127.0.0.1:0", Password: password}, nil)
	require.NoError(t, err)
	s.Router().Register("ping", peer.Ping("test"))
	s.Router().RegisterStream("events", peer.Events(onBatch, nil))
	require.NoError(t, s.Start())
	t.Cleanup(s.Close)
	return s
}

func roundTrip(t *testing.T, addr net.Addr, req string) string {
	t.Helper()
	c, err := net.Dial("tcp", addr.String())
	require.NoError(t, err)
	defer c.Close()
	_, err = c.Write([]byte(req))
	require.NoError(t, err)
	resp, err := io.ReadAll(c)
	require.NoError(t, err)
	return string(resp)
}

func TestServerPlainRequests(t *testing.T) {
	s := startServer(t, "", func(context.Context, *apitypes.EventBatch) error { return nil })

	type testCase struct {
		name     string
		req      string
		expected string
	}
	testCases := []testCase{
		{name: "ping", req: "ping\x00", expected: `{"server":"xrinput","version":"test"}` + "\n"},
		{name: "ping with payload", req: "PING ignored\x00", expected: `{"server":"xrinput","version":"test"}` + "\n"},
		{name: "unknown", req: "bus/list\x00", expected: `{"status":404,"title":"Not Found","detail":"unknown path: bus/list"}` + "\n"},
		{name: "empty", req: "\x00", expected: `{"status":400,"title":"Bad Request","detail":"empty path"}` + "\n"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, roundTrip(t, s.Addr(), tc.req))
		})
	}
}

func TestServerEventStream(t *testing.T) {
	got := make(chan *apitypes.EventBatch, 4)
	errRefused := apitypes.ErrBadRequest("no such handle")
	s := startServer(t, "", func(_ context.Context, b *apitypes.EventBatch) error {
		if b.Handle == uuid.Nil {
			return errRefused
		}
		got <- b
		return nil
	})

	c, err := net.Dial("tcp", s.Addr().String())
	require.NoError(t, err)
	defer c.Close()
	r := bufio.NewReader(c)

	batch := &apitypes.EventBatch{
		Handle: uuid.New(),
		Events: []action.ActionEvent{{ActionIndex: 1, Input: action.InputEvent{ClientIndex: 4, Value: action.BoolValue(true)}}},
	}
	data, err := batch.MarshalBinary()
	require.NoError(t, err)

	// Request line and first batch in one write.
	_, err = c.Write(append([]byte("events\x00"), data...))
	require.NoError(t, err)
	ack, err := r.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, peer.Ack, ack)
	assert.Equal(t, batch, <-got)

	// A refused batch is answered with an ApiError and ends the stream.
	refused, err := (&apitypes.EventBatch{}).MarshalBinary()
	require.NoError(t, err)
	_, err = c.Write(refused)
	require.NoError(t, err)
	line, err := r.ReadBytes('\n')
	require.NoError(t, err)
	ae, ok := apitypes.ParseError(line)
	require.True(t, ok)
	assert.Equal(t, errRefused, ae)

	_, err = r.ReadByte()
	assert.True(t, errors.Is(err, io.EOF))
}

func TestServerRequiresHandshake(t *testing.T) {
	s := startServer(t, "secret", func(context.Context, *apitypes.EventBatch) error { return nil })
	resp := roundTrip(t, s.Addr(), "ping\x00")
	ae, ok := apitypes.ParseError([]byte(resp))
	require.True(t, ok)
	assert.Equal(t, 401, ae.Status)
}
