package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Alia5/xrinput/internal/peer/auth"
)

func TestGeneratePassword(t *testing.T) {
	pw := auth.GeneratePassword()
	assert.Regexp(t, "^[A-Z2-7]{26}$", pw)
	assert.NotEqual(t, pw, auth.GeneratePassword())
}

func TestDeriveKey(t *testing.T) {
	type testCase struct {
		name        string
		password    string
		expectedKey []byte
		expectedErr error
	}

	testCases := []testCase{
		{
			name:        "normal password",
			password:    "password123",
			expectedKey: []byte{0x16, 0x4f, 0x99, 0x12, 0xec, 0xbf, 0x36, 0x17, 0x37, 0xd8, 0x7d, 0xea, 0x5b, 0x54, 0x81, 0x8e, 0x7a, 0x59, 0xae, 0x1f, 0x9b, 0x77, 0xf9, 0xce, 0xa9, 0x39, 0xaf, 0x38, 0x1b, 0xc5, 0xa6, 0x58},
		},
		{
			name:        "single char",
			password:    "1",
			expectedKey: []byte{0x62, 0x75, 0xe0, 0xea, 0x4b, 0x42, 0x8f, 0xd4, 0x0e, 0xd1, 0x46, 0xb2, 0x2a, 0x80, 0x6f, 0x95, 0x23, 0xcf, 0x68, 0xb3, 0x8c, 0x58, 0x1a, 0x1e, 0xf3, 0xc5, 0x62, 0x03, 0x74, 0x38, 0xb8, 0x12},
		},
		{
			name:        "empty password",
			password:    "",
			expectedErr: auth.ErrEmptyPassword,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			key, err := auth.DeriveKey(tc.password)
			if tc.expectedErr != nil {
				assert.ErrorIs(t, err, tc.expectedErr)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.expectedKey, key)
		})
	}
}

func TestDeriveSessionKey(t *testing.T) {
	key := make([]byte, 32)
	serverNonce := make([]byte, 32)
	clientNonce := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
		serverNonce[i] = byte(i + 10)
		clientNonce[i] = byte(i + 20)
	}

	sk := auth.DeriveSessionKey(key, serverNonce, clientNonce)
	assert.Len(t, sk, 32)
	assert.Equal(t, sk, auth.DeriveSessionKey(key, serverNonce, clientNonce))

	clientNonce[0] = 99
	assert.NotEqual(t, sk, auth.DeriveSessionKey(key, serverNonce, clientNonce))
}
