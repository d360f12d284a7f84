// Package testing holds helpers shared by tests that need a live peer.
package testing

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Alia5/xrinput/action"
	"github.com/Alia5/xrinput/apitypes"
	"github.com/Alia5/xrinput/internal/peer"
)

// Collector records the batches a peer accepted. Refuse, when set, is
// returned for the next batch instead.
type Collector struct {
	mu      sync.Mutex
	batches []*apitypes.EventBatch
	Refuse  error
}

func (c *Collector) OnBatch(_ context.Context, b *apitypes.EventBatch) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Refuse != nil {
		err := c.Refuse
		c.Refuse = nil
		return err
	}
	c.batches = append(c.batches, b)
	return nil
}

// RefuseNext makes the next batch fail with err.
func (c *Collector) RefuseNext(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Refuse = err
}

func (c *Collector) Batches() []*apitypes.EventBatch {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*apitypes.EventBatch(nil), c.batches...)
}

// Actions flattens the action indices of every accepted batch.
func (c *Collector) Actions() []uint32 {
	var out []uint32
	for _, b := range c.Batches() {
		for _, ev := range b.Events {
			out = append(out, ev.ActionIndex)
		}
	}
	return out
}

// Events flattens every accepted event.
func (c *Collector) Events() []action.ActionEvent {
	var out []action.ActionEvent
	for _, b := range c.Batches() {
		out = append(out, b.Events...)
	}
	return out
}

// StartPeer runs a peer on a loopback port with the ping and events routes.
// It is closed when the test ends.
func StartPeer(t *testing.T, password string, c *Collector) *peer.Server {
	t.Helper()
	s, err := peer.New(peer.Config{Addr: "127.0.0.1:0", Password: password}, nil)
	require.NoError(t, err)
	s.Router().Register("ping", peer.Ping("test"))
	s.Router().RegisterStream("events", peer.Events(c.OnBatch, nil))
	require.NoError(t, s.Start())
	t.Cleanup(s.Close)
	return s
}
