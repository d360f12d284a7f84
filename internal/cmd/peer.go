package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/Alia5/xrinput/apitypes"
	"github.com/Alia5/xrinput/internal/log"
	"github.com/Alia5/xrinput/internal/peer"
	"github.com/Alia5/xrinput/internal/peer/auth"
	"github.com/Alia5/xrinput/profile"
)

// Peer runs an event stream receiver that logs every action it is sent.
type Peer struct {
	Addr             string        `help:"Listen address" default:":3243" env:"XRINPUT_PEER_ADDR"`
	Password         string        `help:"Require clients to authenticate with this password" env:"XRINPUT_PEER_PASSWORD"`
	AskPassword      bool          `help:"Prompt for the password on the terminal"`
	GeneratePassword bool          `help:"Generate a random password and print it"`
	RequestTimeout   time.Duration `help:"Time allowed for the handshake and request line" default:"5s"`
	Declarations     string        `help:"Declarations file used to name received actions" short:"d" type:"existingfile" env:"XRINPUT_DECLARATIONS"`
	MetricsAddr      string        `help:"Serve Prometheus metrics on this address" env:"XRINPUT_METRICS_ADDR"`
}

// Run is called by Kong when the peer command is executed.
func (c *Peer) Run(logger *slog.Logger, rawLogger log.RawLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return c.Execute(ctx, logger, rawLogger)
}

func (c *Peer) password(logger *slog.Logger) (string, error) {
	switch {
	case c.AskPassword:
		fd := int(os.Stdin.Fd())
		if !term.IsTerminal(fd) {
			return "", errors.New("--ask-password needs a terminal on stdin")
		}
		fmt.Fprint(os.Stderr, "Peer password: ")
		pw, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return strings.TrimSpace(string(pw)), nil
	case c.GeneratePassword:
		pw := auth.GeneratePassword()
		logger.Info("-------------------------------------")
		logger.Info("Your peer password is:")
		logger.Info(pw)
		logger.Info("-------------------------------------")
		return pw, nil
	default:
		return c.Password, nil
	}
}

func (c *Peer) Execute(ctx context.Context, logger *slog.Logger, rawLogger log.RawLogger) error {
	pw, err := c.password(logger)
	if err != nil {
		return err
	}
	var actions []string
	if c.Declarations != "" {
		decl, err := profile.Load(c.Declarations)
		if err != nil {
			return err
		}
		actions = decl.Actions
	}

	srv, err := peer.New(peer.Config{Addr: c.Addr, Password: pw, RequestTimeout: c.RequestTimeout}, logger)
	if err != nil {
		return err
	}
	srv.Router().Register("ping", peer.Ping(Version))
	srv.Router().RegisterStream("events", peer.Events(logBatch(logger, actions), rawLogger))
	if err := srv.Start(); err != nil {
		return fmt.Errorf("start peer: %w", err)
	}
	serveMetrics(ctx, c.MetricsAddr, logger)

	<-ctx.Done()
	srv.Close()
	return nil
}

func logBatch(logger *slog.Logger, actions []string) peer.BatchFunc {
	return func(_ context.Context, b *apitypes.EventBatch) error {
		for _, ev := range b.Events {
			name := fmt.Sprintf("action#%d", ev.ActionIndex)
			if int(ev.ActionIndex) < len(actions) {
				name = actions[ev.ActionIndex]
			}
			logger.Info("received action",
				"handle", b.Handle,
				"action", name,
				"input", ev.Input.ClientIndex,
				"value", ev.Input.Value.String(),
				"ts", ev.Input.Timestamp,
			)
		}
		return nil
	}
}
