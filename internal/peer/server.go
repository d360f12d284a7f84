// Package peer implements the receiving end of the event stream: a small
// TCP server that accepts plain JSON requests and long-lived event
// streams, optionally behind the key handshake of package auth.
package peer

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/Alia5/xrinput/apitypes"
	"github.com/Alia5/xrinput/internal/peer/auth"
)

// Config tunes the server.
type Config struct {
	Addr string
	// Password requires every connection to authenticate when set.
	Password string
	// RequestTimeout bounds the handshake and the request line.
	RequestTimeout time.Duration
}

type Server struct {
	cfg    Config
	key    []byte
	router *Router
	logger *slog.Logger

	ln    net.Listener
	wg    sync.WaitGroup
	mu    sync.Mutex
	conns map[net.Conn]struct{}
}

// New creates a server. Routes are added through Router before Start.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 5 * time.Second
	}
	s := &Server{cfg: cfg, router: NewRouter(), logger: logger, conns: map[net.Conn]struct{}{}}
	if cfg.Password != "" {
		key, err := auth.DeriveKey(cfg.Password)
		if err != nil {
			return nil, err
		}
		s.key = key
	}
	return s, nil
}

func (s *Server) Router() *Router { return s.router }

// Addr returns the listening address once started.
func (s *Server) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	s.ln = ln
	s.logger.Info("peer listening", "addr", ln.Addr().String(), "auth", s.key != nil)
	s.wg.Add(1)
	go s.serve()
	return nil
}

// Close stops accepting, closes open connections and waits for handlers.
func (s *Server) Close() {
	if s.ln != nil {
		_ = s.ln.Close()
	}
	s.mu.Lock()
	for c := range s.conns {
		_ = c.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Server) serve() {
	defer s.wg.Done()
	for {
		c, err := s.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				s.logger.Info("peer server stopped")
				return
			}
			s.logger.Error("peer accept", "error", err)
			return
		}
		s.mu.Lock()
		s.conns[c] = struct{}{}
		s.mu.Unlock()
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(c)
			s.mu.Lock()
			delete(s.conns, c)
			s.mu.Unlock()
		}()
	}
}

func writeError(w io.Writer, err error) {
	data, _ := json.Marshal(apitypes.WrapError(err))
	fmt.Fprintf(w, "%s\n", data)
}

func (s *Server) handleConn(raw net.Conn) {
	defer raw.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := s.logger.With("remote", raw.RemoteAddr().String())
	_ = raw.SetReadDeadline(time.Now().Add(s.cfg.RequestTimeout))

	var conn net.Conn = raw
	r := bufio.NewReader(raw)
	if s.key != nil {
		sk, err := auth.ServerHandshake(r, raw, s.key)
		if err != nil {
			logger.Warn("peer handshake failed", "error", err)
			writeError(raw, err)
			return
		}
		sealed, err := auth.WrapConn(raw, sk, auth.Server)
		if err != nil {
			logger.Error("peer wrap conn", "error", err)
			return
		}
		conn = sealed
		r = bufio.NewReader(sealed)
	}

	line, err := r.ReadString('\x00')
	if err != nil {
		if errors.Is(err, io.EOF) {
			logger.Error("peer incomplete request (no null terminator)")
		} else {
			logger.Error("read peer request", "error", err)
		}
		return
	}
	line = strings.TrimSuffix(line, "\x00")
	path, payload, _ := strings.Cut(line, " ")
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		writeError(conn, apitypes.ErrBadRequest("empty path"))
		return
	}
	_ = raw.SetReadDeadline(time.Time{})

	h, sh, params := s.router.Match(path)
	req := &Request{Ctx: ctx, Params: params, Payload: payload}
	switch {
	case h != nil:
		logger.Debug("peer request", "path", path)
		res := &Response{}
		if err := h(req, res, logger); err != nil {
			logger.Error("peer handler error", "path", path, "error", err)
			writeError(conn, err)
			return
		}
		fmt.Fprintf(conn, "%s\n", res.JSON)
	case sh != nil:
		logger.Info("peer stream begin", "path", path)
		if err := sh(req, r, conn, logger); err != nil {
			logger.Error("peer stream error", "path", path, "error", err)
		}
		logger.Info("peer stream end", "path", path)
	default:
		logger.Error("peer unknown path", "path", path)
		writeError(conn, apitypes.ErrNotFound(fmt.Sprintf("unknown path: %s", path)))
	}
}
