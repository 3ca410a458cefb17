package crypto

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskdeck/taskdeck-sync/models"
)

func testKey() []byte {
	return bytes.Repeat([]byte{0x42}, 32)
}

func TestCipherService_RoundTrip(t *testing.T) {
	svc, err := NewCipherService(testKey())
	require.NoError(t, err)

	plaintext := []byte(`{"title":"buy milk","done":false}`)

	blob, nonce, err := svc.Encrypt(plaintext)
	require.NoError(t, err)
	assert.NotEmpty(t, blob)
	assert.NotEmpty(t, nonce)
	assert.NotContains(t, string(blob), "buy milk")

	opened, err := svc.Decrypt(blob, nonce)
	require.NoError(t, err)
	assert.Equal(t, plaintext, opened)
}

func TestCipherService_FreshNoncePerSeal(t *testing.T) {
	svc, err := NewCipherService(testKey())
	require.NoError(t, err)

	blob1, nonce1, err := svc.Encrypt([]byte("same input"))
	require.NoError(t, err)
	blob2, nonce2, err := svc.Encrypt([]byte("same input"))
	require.NoError(t, err)

	assert.NotEqual(t, nonce1, nonce2)
	assert.NotEqual(t, blob1, blob2)
}

func TestCipherService_WrongKey(t *testing.T) {
	svc, err := NewCipherService(testKey())
	require.NoError(t, err)
	other, err := NewCipherService(bytes.Repeat([]byte{0x99}, 32))
	require.NoError(t, err)

	blob, nonce, err := svc.Encrypt([]byte("secret"))
	require.NoError(t, err)

	_, err = other.Decrypt(blob, nonce)
	require.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestCipherService_TamperedBlob(t *testing.T) {
	svc, err := NewCipherService(testKey())
	require.NoError(t, err)

	blob, nonce, err := svc.Encrypt([]byte("secret"))
	require.NoError(t, err)

	tampered := []byte(blob)
	tampered[0] ^= 'x'

	_, err = svc.Decrypt(models.CipheredPayload(tampered), nonce)
	require.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestCipherService_MalformedInputs(t *testing.T) {
	svc, err := NewCipherService(testKey())
	require.NoError(t, err)

	tests := []struct {
		name  string
		blob  models.CipheredPayload
		nonce models.CipherNonce
	}{
		{"blob not base64", "%%%", "AAAAAAAAAAAAAAAA"},
		{"nonce not base64", "AAAA", "%%%"},
		{"nonce wrong length", "AAAA", "AAAA"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Decrypt(tt.blob, tt.nonce)
			assert.ErrorIs(t, err, ErrDecryptionFailed)
		})
	}
}

func TestNewCipherService_BadKeyLength(t *testing.T) {
	_, err := NewCipherService([]byte("too short"))
	require.Error(t, err)
}

func TestNewCipherServiceFromPassphrase_Deterministic(t *testing.T) {
	a, err := NewCipherServiceFromPassphrase("correct horse battery staple", []byte("user-1"))
	require.NoError(t, err)
	b, err := NewCipherServiceFromPassphrase("correct horse battery staple", []byte("user-1"))
	require.NoError(t, err)

	// The same passphrase and salt must derive the same key on every
	// device, or nothing a second device pulls would ever decrypt.
	blob, nonce, err := a.Encrypt([]byte("shared"))
	require.NoError(t, err)
	opened, err := b.Decrypt(blob, nonce)
	require.NoError(t, err)
	assert.Equal(t, []byte("shared"), opened)

	c, err := NewCipherServiceFromPassphrase("different passphrase", []byte("user-1"))
	require.NoError(t, err)
	_, err = c.Decrypt(blob, nonce)
	require.ErrorIs(t, err, ErrDecryptionFailed)
}
