package apiclient_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/xrinput/action"
	"github.com/Alia5/xrinput/apiclient"
	"github.com/Alia5/xrinput/apitypes"
	"github.com/Alia5/xrinput/dispatch"
	"github.com/Alia5/xrinput/internal/log"
	htesting "github.com/Alia5/xrinput/internal/testing"
)

func startPeer(t *testing.T, password string, col *htesting.Collector) string {
	t.Helper()
	return htesting.StartPeer(t, password, col).Addr().String()
}

func TestPing(t *testing.T) {
	type testCase struct {
		name           string
		serverPassword string
		clientPassword string
		expectedStatus int
	}
	testCases := []testCase{
		{name: "open"},
		{name: "authenticated", serverPassword: "hunter2", clientPassword: "hunter2"},
		{name: "wrong password", serverPassword: "hunter2", clientPassword: "hunter3", expectedStatus: 401},
		{name: "missing password", serverPassword: "hunter2", expectedStatus: 401},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			addr := startPeer(t, tc.serverPassword, &htesting.Collector{})
			c, err := apiclient.New(addr, &apiclient.Config{
				DialTimeout:  time.Second,
				ReadTimeout:  2 * time.Second,
				WriteTimeout: 2 * time.Second,
				Password:     tc.clientPassword,
			}, nil)
			require.NoError(t, err)

			resp, err := c.Ping(context.Background())
			if tc.expectedStatus != 0 {
				var ae apitypes.ApiError
				require.ErrorAs(t, err, &ae)
				assert.Equal(t, tc.expectedStatus, ae.Status)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, &apitypes.PingResponse{Server: "xrinput", Version: "test"}, resp)
		})
	}
}

func TestEventStream(t *testing.T) {
	for _, password := range []string{"", "hunter2"} {
		t.Run("password="+password, func(t *testing.T) {
			col := &htesting.Collector{}
			addr := startPeer(t, password, col)
			c, err := apiclient.New(addr, &apiclient.Config{
				DialTimeout:  time.Second,
				ReadTimeout:  2 * time.Second,
				WriteTimeout: 2 * time.Second,
				Password:     password,
			}, nil)
			require.NoError(t, err)

			var raw bytes.Buffer
			s := c.Events(log.NewRaw(&raw))
			defer s.Close()

			h := dispatch.NewHandle()
			events := []action.ActionEvent{
				{ActionIndex: 2, Input: action.InputEvent{ClientIndex: 0, Timestamp: 10, Value: action.BoolValue(true)}},
				{ActionIndex: 1, Input: action.InputEvent{ClientIndex: 6, Timestamp: 10, Value: action.FloatValue(0.75)}},
			}
			ctx := context.Background()
			require.NoError(t, s.FireEvents(ctx, h, events))
			require.NoError(t, s.FireEvents(ctx, h, events[:1]))

			batches := col.Batches()
			require.Len(t, batches, 2)
			assert.Equal(t, h, batches[0].Handle)
			assert.Equal(t, events, batches[0].Events)
			assert.Len(t, batches[1].Events, 1)
			assert.Contains(t, raw.String(), " TX ")
			assert.Contains(t, raw.String(), " RX 1 bytes: 00")
		})
	}
}

func TestEventStreamRefusalReconnects(t *testing.T) {
	col := &htesting.Collector{Refuse: apitypes.ErrBadRequest("unknown handle")}
	addr := startPeer(t, "", col)
	c, err := apiclient.New(addr, nil, nil)
	require.NoError(t, err)
	s := c.Events(nil)
	defer s.Close()

	h := dispatch.NewHandle()
	ev := []action.ActionEvent{{ActionIndex: 1}}
	err = s.FireEvents(context.Background(), h, ev)
	var ae apitypes.ApiError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "unknown handle", ae.Detail)

	require.NoError(t, s.FireEvents(context.Background(), h, ev))
	assert.Len(t, col.Batches(), 1)
}

func TestEventStreamAsDispatchSink(t *testing.T) {
	col := &htesting.Collector{}
	addr := startPeer(t, "", col)
	c, err := apiclient.New(addr, nil, nil)
	require.NoError(t, err)
	s := c.Events(nil)

	out := dispatch.NewOutbox(4, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- out.Run(ctx, s) }()

	h := dispatch.NewHandle()
	require.NoError(t, out.FireEvents(ctx, h, []action.ActionEvent{{ActionIndex: 3}}))
	assert.Len(t, col.Batches(), 1)

	col.RefuseNext(apitypes.ErrNotFound("unknown handle"))
	err = out.FireEvents(ctx, h, []action.ActionEvent{{ActionIndex: 4}})
	var ae apitypes.ApiError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, 404, ae.Status)
	assert.Len(t, col.Batches(), 1)

	cancel()
	<-done
	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.FireEvents(context.Background(), h, nil), apiclient.ErrStreamClosed)
}

func TestDialFailure(t *testing.T) {
	c, err := apiclient.New("127.0.0.1:1", &apiclient.Config{DialTimeout: 200 * time.Millisecond}, nil)
	require.NoError(t, err)
	_, err = c.Ping(context.Background())
	assert.ErrorContains(t, err, "dial")

	err = c.Events(nil).FireEvents(context.Background(), dispatch.NewHandle(), nil)
	assert.ErrorContains(t, err, "dial")
}
