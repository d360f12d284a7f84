package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/Alia5/xrinput/apitypes"
	"github.com/Alia5/xrinput/internal/peer/auth"
)

// Config controls timeouts and authentication of peer connections.
type Config struct {
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// Password enables the key handshake and sealed framing when set.
	Password string
}

func defaultConfig() Config {
	return Config{
		DialTimeout:  3 * time.Second,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
}

// Transport implements the peer request framing:
// `<path>[ SP <payload>] \x00`. Plain requests are answered with a single
// JSON line after which the server closes the connection.
type Transport struct {
	addr   string
	cfg    Config
	key    []byte
	logger *slog.Logger
}

// NewTransport creates a transport for addr. A nil cfg uses the defaults.
func NewTransport(addr string, cfg *Config, logger *slog.Logger) (*Transport, error) {
	c := defaultConfig()
	if cfg != nil {
		c = *cfg
	}
	if logger == nil {
		logger = slog.Default()
	}
	t := &Transport{addr: addr, cfg: c, logger: logger}
	if c.Password != "" {
		key, err := auth.DeriveKey(c.Password)
		if err != nil {
			return nil, err
		}
		t.key = key
	}
	return t, nil
}

// Dial connects, authenticates when a password is configured and sends the
// request line for path. The returned conn is ready for the route's payload.
func (t *Transport) Dial(ctx context.Context, path string, payload []byte) (net.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	d := &net.Dialer{Timeout: t.cfg.DialTimeout}
	conn, err := d.DialContext(ctx, "tcp", t.addr)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	if tcpConn, ok := conn.(*net.TCPConn); ok {
		if err := tcpConn.SetNoDelay(true); err != nil {
			t.logger.Warn("failed to set TCP_NODELAY", "error", err)
		}
	}
	if t.cfg.WriteTimeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(t.cfg.WriteTimeout + t.cfg.ReadTimeout))
	}

	if t.key != nil {
		sk, err := auth.ClientHandshake(conn, conn, t.key)
		if err != nil {
			conn.Close()
			if errors.Is(err, io.EOF) {
				return nil, apitypes.ErrUnauthorized("connection closed during handshake")
			}
			return nil, err
		}
		sealed, err := auth.WrapConn(conn, sk, auth.Client)
		if err != nil {
			conn.Close()
			return nil, err
		}
		conn = sealed
	}

	line := []byte(strings.ToLower(path))
	if len(payload) > 0 {
		line = append(append(line, ' '), payload...)
	}
	if _, err := conn.Write(append(line, '\x00')); err != nil {
		conn.Close()
		return nil, fmt.Errorf("write request: %w", err)
	}
	_ = conn.SetDeadline(time.Time{})
	return conn, nil
}

// Do sends a plain request and returns the response line without its
// trailing newline.
func (t *Transport) Do(ctx context.Context, path string, payload any) (string, error) {
	pb, err := toPayloadBytes(payload)
	if err != nil {
		return "", err
	}
	conn, err := t.Dial(ctx, path, pb)
	if err != nil {
		return "", err
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
	defer stop()

	if t.cfg.ReadTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(t.cfg.ReadTimeout))
	}
	resp, err := io.ReadAll(conn)
	if err != nil && len(resp) == 0 {
		return "", fmt.Errorf("read: %w", err)
	}
	return strings.TrimSuffix(string(resp), "\n"), nil
}

func toPayloadBytes(v any) ([]byte, error) {
	switch p := v.(type) {
	case nil:
		return nil, nil
	case []byte:
		return p, nil
	case string:
		return []byte(p), nil
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode payload: %w", err)
		}
		return b, nil
	}
}
