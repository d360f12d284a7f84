// Package apiclient talks to a peer that consumes action events: a short
// request/response API plus a long-lived event stream that implements
// dispatch.Sink.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Alia5/xrinput/apitypes"
	"github.com/Alia5/xrinput/internal/log"
)

// Client is the high-level peer API.
type Client struct {
	transport *Transport
	logger    *slog.Logger
}

// New constructs a client for the peer at addr.
func New(addr string, cfg *Config, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	t, err := NewTransport(addr, cfg, logger)
	if err != nil {
		return nil, err
	}
	return &Client{transport: t, logger: logger}, nil
}

// Ping returns the identity of the peer.
func (c *Client) Ping(ctx context.Context) (*apitypes.PingResponse, error) {
	raw, err := c.transport.Do(ctx, "ping", nil)
	if err != nil {
		return nil, err
	}
	return parse[apitypes.PingResponse](raw)
}

// Events returns an event stream towards the peer. It connects on first use
// and reconnects after a failed batch. raw may be nil.
func (c *Client) Events(raw log.RawLogger) *EventStream {
	if raw == nil {
		raw = log.NewRaw(nil)
	}
	return &EventStream{transport: c.transport, raw: raw, logger: c.logger}
}

func parse[T any](data string) (*T, error) {
	if data == "" {
		return nil, errors.New("empty response")
	}
	if ae, ok := apitypes.ParseError([]byte(data)); ok {
		return nil, ae
	}
	var out T
	dec := json.NewDecoder(bytes.NewReader([]byte(data)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return &out, nil
}
