// Package auth implements the optional pre-shared key handshake and the
// sealed framing used on peer connections.
package auth

import (
	"crypto/hmac"
	"crypto/pbkdf2"
	"crypto/rand"
	"crypto/sha256"
	"errors"
)

const (
	KeyIterations = 100000
	KeySalt       = "xrinput-Key-v1"
	KeySize       = 32

	sessionLabel = "xrinput-Session-v1"
)

var (
	ErrEmptyPassword  = errors.New("password cannot be empty")
	ErrSessionKeySize = errors.New("session key must be 32 bytes")
)

// Side is the end of a peer connection. It picks the key a Conn seals with
// and the key it expects from the other end.
type Side byte

const (
	Client Side = iota + 1
	Server
)

func (s Side) peer() Side {
	if s == Client {
		return Server
	}
	return Client
}

func (s Side) String() string {
	switch s {
	case Client:
		return "client"
	case Server:
		return "server"
	}
	return "unknown"
}

// GeneratePassword returns a random 26 character base32 password.
func GeneratePassword() string { return rand.Text() }

// DeriveKey stretches password with PBKDF2-SHA256.
func DeriveKey(password string) ([]byte, error) {
	if password == "" {
		return nil, ErrEmptyPassword
	}
	return pbkdf2.Key(sha256.New, password, []byte(KeySalt), KeyIterations, KeySize)
}

func mac(key []byte, parts ...[]byte) []byte {
	h := hmac.New(sha256.New, key)
	for _, p := range parts {
		h.Write(p)
	}
	return h.Sum(nil)
}

// DeriveSessionKey binds the long-term key to both handshake nonces.
func DeriveSessionKey(key, serverNonce, clientNonce []byte) []byte {
	return mac(key, []byte(sessionLabel), serverNonce, clientNonce)
}

// directionKey is the key sealing frames sent by from. The two directions of
// one session never share a key.
func directionKey(sessionKey []byte, from Side) []byte {
	return mac(sessionKey, []byte(sessionLabel), []byte{byte(from)})
}
