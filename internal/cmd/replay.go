package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Alia5/xrinput/apiclient"
	"github.com/Alia5/xrinput/device/remote3dof"
	"github.com/Alia5/xrinput/dispatch"
	"github.com/Alia5/xrinput/internal/log"
	"github.com/Alia5/xrinput/profile"
	"github.com/Alia5/xrinput/session"
)

// RemoteOptions configure the 3dof remote class.
type RemoteOptions struct {
	DPadRemap     bool `name:"dpad-remap" help:"Report touchpad edge clicks as system/grip presses" default:"true" negatable:"" env:"XRINPUT_REMOTE_DPAD_REMAP"`
	DPadLeftRight bool `name:"dpad-left-right" help:"Also report left/right edge clicks as B/A presses" default:"false" env:"XRINPUT_REMOTE_DPAD_LEFT_RIGHT"`
}

// PeerClient configures the event stream towards a peer.
type PeerClient struct {
	Addr         string        `help:"Stream action events to this peer instead of logging them" env:"XRINPUT_PEER_ADDR"`
	Password     string        `help:"Peer password" env:"XRINPUT_PEER_PASSWORD"`
	DialTimeout  time.Duration `help:"Peer dial timeout" default:"3s"`
	WriteTimeout time.Duration `help:"Peer write timeout" default:"5s"`
	ReadTimeout  time.Duration `help:"Peer acknowledgement timeout" default:"5s"`
	OutboxSize   int           `help:"Batches buffered towards the peer" default:"256"`
}

// Replay runs the input pipeline over a recorded trace.
type Replay struct {
	Trace        string        `arg:"" help:"Recorded device trace (YAML)" type:"existingfile"`
	Declarations string        `help:"Server declarations and binding profiles (json, yaml or toml)" short:"d" required:"" type:"existingfile" env:"XRINPUT_DECLARATIONS"`
	Interval     time.Duration `help:"Delay between frames; 0 replays as fast as possible" default:"0s"`
	Predict      time.Duration `help:"Pose prediction offset handed to the tracker" default:"0s"`
	MaxRetries   int           `help:"Consecutive failed frames before a device's pending input is dropped" default:"3"`
	MetricsAddr  string        `help:"Serve Prometheus metrics on this address" env:"XRINPUT_METRICS_ADDR"`
	Remote       RemoteOptions `embed:"" prefix:"remote3dof."`
	Peer         PeerClient    `embed:"" prefix:"peer."`
}

// Run is called by Kong when the replay command is executed.
func (c *Replay) Run(logger *slog.Logger, rawLogger log.RawLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return c.Execute(ctx, logger, rawLogger)
}

func (c *Replay) Execute(ctx context.Context, logger *slog.Logger, rawLogger log.RawLogger) error {
	remote3dof.Configure(remote3dof.Options{DPadRemap: c.Remote.DPadRemap, DPadLeftRight: c.Remote.DPadLeftRight})

	decl, err := profile.Load(c.Declarations)
	if err != nil {
		return err
	}
	replay, err := session.LoadReplay(c.Trace)
	if err != nil {
		return err
	}
	serveMetrics(ctx, c.MetricsAddr, logger)

	var s *session.Session
	var sink dispatch.Sink = dispatch.LogSink{
		Logger: logger,
		Names:  func(h dispatch.Handle, idx uint32) string { return s.ActionName(h, idx) },
	}

	var outboxDone chan error
	var outbox *dispatch.Outbox
	if c.Peer.Addr != "" {
		client, err := apiclient.New(c.Peer.Addr, &apiclient.Config{
			DialTimeout:  c.Peer.DialTimeout,
			ReadTimeout:  c.Peer.ReadTimeout,
			WriteTimeout: c.Peer.WriteTimeout,
			Password:     c.Peer.Password,
		}, logger)
		if err != nil {
			return fmt.Errorf("peer client: %w", err)
		}
		stream := client.Events(rawLogger)
		defer stream.Close()

		outbox = dispatch.NewOutbox(c.Peer.OutboxSize, logger)
		outboxDone = make(chan error, 1)
		go func() { outboxDone <- outbox.Run(ctx, stream) }()
		sink = outbox
		logger.Info("streaming actions to peer", "addr", c.Peer.Addr)
	}

	s, err = session.New(replay, sink, decl,
		session.WithLogger(logger),
		session.WithMaxRetries(c.MaxRetries),
		session.WithTracker(replay),
	)
	if err != nil {
		return err
	}

	logger.Info("replaying trace", "file", c.Trace, "frames", replay.Len())
	frames, failed := 0, 0
	for replay.Advance() {
		if err := s.Frame(ctx, c.Predict); err != nil {
			failed++
			logger.Warn("frame failed", "frame", frames, "at", replay.At(), "error", err)
		}
		frames++
		if c.Interval > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(c.Interval):
			}
		}
		if ctx.Err() != nil {
			break
		}
	}

	if outbox != nil {
		outbox.Close()
		if err := <-outboxDone; err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("outbox", "error", err)
		}
	}
	logger.Info("replay finished", "frames", frames, "failed", failed, "devices", len(s.Devices()))
	return nil
}
