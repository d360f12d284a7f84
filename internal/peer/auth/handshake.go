package auth

import (
	"bufio"
	"bytes"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"github.com/Alia5/xrinput/apitypes"
)

// Handshake wire format:
//
//	client: magic[5] | client_nonce[32] | hmac(key, context | client_nonce)[32]
//	server: "OK\x00" | server_nonce[32]
//
// On a bad password the server answers with a problem+json line instead.
const (
	HandshakeMagic = "xRI1\x00"
	NonceSize      = 32
	authContext    = "xrinput-Auth-v1"
	okReply        = "OK\x00"
)

var ErrMissingKey = errors.New("handshake: missing key")

// IsHandshake reports whether the next bytes in r are the handshake magic.
func IsHandshake(r *bufio.Reader) (bool, error) {
	b, err := r.Peek(len(HandshakeMagic))
	if err != nil {
		return false, err
	}
	return string(b) == HandshakeMagic, nil
}

func clientAuth(key, clientNonce []byte) []byte {
	return mac(key, []byte(authContext), clientNonce)
}

func nonce() ([]byte, error) {
	n := make([]byte, NonceSize)
	if _, err := rand.Read(n); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return n, nil
}

// ClientHandshake authenticates towards a server and returns the session key.
func ClientHandshake(r io.Reader, w io.Writer, key []byte) ([]byte, error) {
	if len(key) == 0 {
		return nil, ErrMissingKey
	}
	clientNonce, err := nonce()
	if err != nil {
		return nil, err
	}
	msg := make([]byte, 0, len(HandshakeMagic)+NonceSize+sha256.Size)
	msg = append(msg, HandshakeMagic...)
	msg = append(msg, clientNonce...)
	msg = append(msg, clientAuth(key, clientNonce)...)
	if _, err := w.Write(msg); err != nil {
		return nil, fmt.Errorf("write handshake: %w", err)
	}

	prefix := make([]byte, len(okReply))
	if _, err := io.ReadFull(r, prefix); err != nil {
		return nil, fmt.Errorf("read handshake response: %w", err)
	}
	if string(prefix) != okReply {
		rest, _ := io.ReadAll(io.LimitReader(r, 4096))
		line := bytes.TrimSpace(append(prefix, rest...))
		if ae, ok := apitypes.ParseError(line); ok {
			return nil, ae
		}
		return nil, fmt.Errorf("invalid handshake response: %q", line)
	}
	serverNonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(r, serverNonce); err != nil {
		return nil, fmt.Errorf("read server nonce: %w", err)
	}
	return DeriveSessionKey(key, serverNonce, clientNonce), nil
}

// ServerHandshake verifies a client handshake whose magic is next in r and
// returns the session key. A wrong password yields an Unauthorized ApiError;
// writing it back to the client is left to the caller.
func ServerHandshake(r *bufio.Reader, w io.Writer, key []byte) ([]byte, error) {
	if len(key) == 0 {
		return nil, ErrMissingKey
	}
	if ok, err := IsHandshake(r); err != nil {
		return nil, fmt.Errorf("read handshake magic: %w", err)
	} else if !ok {
		return nil, apitypes.ErrUnauthorized("authentication required")
	}
	_, _ = r.Discard(len(HandshakeMagic))

	msg := make([]byte, NonceSize+sha256.Size)
	if _, err := io.ReadFull(r, msg); err != nil {
		return nil, fmt.Errorf("read client handshake: %w", err)
	}
	clientNonce, sum := msg[:NonceSize], msg[NonceSize:]
	if !hmac.Equal(sum, clientAuth(key, clientNonce)) {
		return nil, apitypes.ErrUnauthorized("invalid password")
	}

	serverNonce, err := nonce()
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(append([]byte(okReply), serverNonce...)); err != nil {
		return nil, fmt.Errorf("write handshake response: %w", err)
	}
	return DeriveSessionKey(key, serverNonce, clientNonce), nil
}
