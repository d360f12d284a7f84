package auth

import (
	"bytes"
	"crypto/cipher"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"golang.org/x/crypto/chacha20poly1305"
)

// MaxFrameSize bounds one sealed frame on the wire.
const MaxFrameSize = 2 * 1024 * 1024

var (
	ErrFrameTooLarge  = errors.New("sealed frame too large")
	ErrReplayedFrame  = errors.New("sealed frame out of sequence")
	ErrReflectedFrame = errors.New("sealed frame not sent by the other side")
)

// Conn seals every Write into one frame:
//
//	u32 BE length | nonce[12] | ciphertext
//
// nonce[0] is the sending Side and the last 8 bytes its frame counter. Each
// direction is sealed with its own key derived from the session key. Frames
// arriving out of sequence or carrying our own Side are rejected.
type Conn struct {
	net.Conn
	side Side

	wmu     sync.Mutex
	send    cipher.AEAD
	sendCtr uint64

	rmu     sync.Mutex
	recv    cipher.AEAD
	recvCtr uint64
	pending bytes.Buffer
}

// WrapConn seals conn with sessionKey as the given side of the connection.
func WrapConn(conn net.Conn, sessionKey []byte, side Side) (*Conn, error) {
	if len(sessionKey) != KeySize {
		return nil, ErrSessionKeySize
	}
	send, err := chacha20poly1305.New(directionKey(sessionKey, side))
	if err != nil {
		return nil, err
	}
	recv, err := chacha20poly1305.New(directionKey(sessionKey, side.peer()))
	if err != nil {
		return nil, err
	}
	return &Conn{Conn: conn, side: side, send: send, recv: recv}, nil
}

func (c *Conn) Write(p []byte) (int, error) {
	c.wmu.Lock()
	defer c.wmu.Unlock()

	ns := c.send.NonceSize()
	size := ns + len(p) + c.send.Overhead()
	if size > MaxFrameSize {
		return 0, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, size)
	}
	frame := make([]byte, 4+ns, 4+size)
	binary.BigEndian.PutUint32(frame[:4], uint32(size))
	frame[4] = byte(c.side)
	binary.BigEndian.PutUint64(frame[4+ns-8:4+ns], c.sendCtr)
	frame = c.send.Seal(frame, frame[4:4+ns], p, nil)
	c.sendCtr++

	if _, err := c.Conn.Write(frame); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (c *Conn) Read(p []byte) (int, error) {
	c.rmu.Lock()
	defer c.rmu.Unlock()

	for c.pending.Len() == 0 {
		if err := c.readFrame(); err != nil {
			return 0, err
		}
	}
	return c.pending.Read(p)
}

func (c *Conn) readFrame() error {
	var hdr [4]byte
	if _, err := io.ReadFull(c.Conn, hdr[:]); err != nil {
		return err
	}
	size := binary.BigEndian.Uint32(hdr[:])
	ns := c.recv.NonceSize()
	if size > MaxFrameSize {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, size)
	}
	if int(size) < ns+c.recv.Overhead() {
		return io.ErrUnexpectedEOF
	}
	frame := make([]byte, size)
	if _, err := io.ReadFull(c.Conn, frame); err != nil {
		return err
	}
	if from := Side(frame[0]); from != c.side.peer() {
		return fmt.Errorf("%w: %s", ErrReflectedFrame, from)
	}
	if ctr := binary.BigEndian.Uint64(frame[ns-8 : ns]); ctr != c.recvCtr {
		return fmt.Errorf("%w: got %d, want %d", ErrReplayedFrame, ctr, c.recvCtr)
	}
	pt, err := c.recv.Open(nil, frame[:ns], frame[ns:], nil)
	if err != nil {
		return err
	}
	c.recvCtr++
	c.pending.Write(pt)
	return nil
}
