package secrets_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/imoji/pkg/secrets"
)

func newSealer(t *testing.T, secret, salt string) *secrets.Sealer {
	t.Helper()
	s, err := secrets.NewSealer([]byte(secret), []byte(salt))
	require.NoError(t, err)
	return s
}

func TestSealOpen(t *testing.T) {
	t.Parallel()
	s := newSealer(t, "api-token", "client-id")

	tests := []struct {
		name string
		data []byte
	}{
		{"empty bytes", []byte{}},
		{"single byte", []byte{42}},
		{"binary data", []byte{0x00, 0x01, 0xFF, 0xFE}},
		{"token json", []byte(`{"access_token":"abc","token_type":"Bearer"}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			sealed, err := s.Seal("user_token", tt.data)
			require.NoError(t, err)
			if len(tt.data) > 0 {
				assert.False(t, bytes.Contains(sealed, tt.data))
			}

			opened, err := s.Open("user_token", sealed)
			require.NoError(t, err)
			assert.True(t, bytes.Equal(tt.data, opened))
		})
	}
}

func TestSealIsRandomized(t *testing.T) {
	t.Parallel()
	s := newSealer(t, "api-token", "client-id")

	a, err := s.Seal("k", []byte("same"))
	require.NoError(t, err)
	b, err := s.Seal("k", []byte("same"))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestOpenFailures(t *testing.T) {
	t.Parallel()
	s := newSealer(t, "api-token", "client-id")
	sealed, err := s.Seal("user_token", []byte("secret"))
	require.NoError(t, err)

	t.Run("wrong label", func(t *testing.T) {
		_, err := s.Open("other", sealed)
		assert.ErrorIs(t, err, secrets.ErrDecryptionFailed)
	})

	t.Run("wrong salt", func(t *testing.T) {
		other := newSealer(t, "api-token", "other-client")
		_, err := other.Open("user_token", sealed)
		assert.ErrorIs(t, err, secrets.ErrDecryptionFailed)
	})

	t.Run("tampered", func(t *testing.T) {
		bad := append([]byte(nil), sealed...)
		bad[len(bad)-1] ^= 0xFF
		_, err := s.Open("user_token", bad)
		assert.ErrorIs(t, err, secrets.ErrDecryptionFailed)
	})

	t.Run("truncated", func(t *testing.T) {
		_, err := s.Open("user_token", sealed[:5])
		assert.ErrorIs(t, err, secrets.ErrInvalidCiphertext)
	})
}

func TestSealString(t *testing.T) {
	t.Parallel()
	s := newSealer(t, "api-token", "client-id")

	sealed, err := s.SealString("label", "Hello 世界")
	require.NoError(t, err)
	opened, err := s.OpenString("label", sealed)
	require.NoError(t, err)
	assert.Equal(t, "Hello 世界", opened)

	_, err = s.OpenString("label", "%%% not base64")
	assert.ErrorIs(t, err, secrets.ErrInvalidCiphertext)
}

func TestDeriveKey(t *testing.T) {
	t.Parallel()

	a, err := secrets.DeriveKey([]byte("secret"), []byte("salt-a"))
	require.NoError(t, err)
	assert.Len(t, a, secrets.KeySize)

	again, err := secrets.DeriveKey([]byte("secret"), []byte("salt-a"))
	require.NoError(t, err)
	assert.Equal(t, a, again)

	b, err := secrets.DeriveKey([]byte("secret"), []byte("salt-b"))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	_, err = secrets.DeriveKey(nil, []byte("salt"))
	assert.ErrorIs(t, err, secrets.ErrEmptySecret)

	_, err = secrets.NewSealer(nil, nil)
	assert.ErrorIs(t, err, secrets.ErrEmptySecret)
}

func TestGenerateKey(t *testing.T) {
	t.Parallel()

	k1, err := secrets.GenerateKey()
	require.NoError(t, err)
	k2, err := secrets.GenerateKey()
	require.NoError(t, err)
	assert.Len(t, k1, secrets.KeySize)
	assert.NotEqual(t, k1, k2)
}
