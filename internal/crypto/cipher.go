// SPDX-License-Identifier: Apache-2.0

package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"

	"github.com/taskdeck/taskdeck-sync/models"
)

// ErrDecryptionFailed marks a payload that cannot be decrypted: wrong key,
// corrupted blob, or failed authentication tag. Callers classify it as a
// permanent, non-retryable failure.
var ErrDecryptionFailed = errors.New("decryption failed")

// cipherService is the private implementation of [CipherService]. It seals
// payloads with AES-256-GCM, keeping the nonce detached because the remote
// wire format carries blob and nonce as separate fields.
type cipherService struct {
	aead cipher.AEAD
}

// NewCipherService constructs a [CipherService] around a raw 256-bit key.
// Returns an error if the key has the wrong length for AES-256.
func NewCipherService(key []byte) (CipherService, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}

	return &cipherService{aead: gcm}, nil
}

// NewCipherServiceFromPassphrase derives the 256-bit key from a passphrase
// and salt using Argon2id with the parameters recommended by OWASP (2024):
//   - time cost:   1 iteration
//   - memory cost: 64 MiB
//   - parallelism: 4 threads
//
// The derived key exists only in client memory and is never transmitted.
func NewCipherServiceFromPassphrase(passphrase string, salt []byte) (CipherService, error) {
	key := argon2.IDKey([]byte(passphrase), salt, 1, 64*1024, 4, 32)
	return NewCipherService(key)
}

// Encrypt implements [CipherService]. It seals plaintext under a fresh random
// nonce and returns blob and nonce as separate Base64 strings. Returns an
// error if the random nonce read fails.
func (c *cipherService) Encrypt(plaintext []byte) (models.CipheredPayload, models.CipherNonce, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", "", fmt.Errorf("generate nonce: %w", err)
	}

	sealed := c.aead.Seal(nil, nonce, plaintext, nil)

	return models.CipheredPayload(base64.StdEncoding.EncodeToString(sealed)),
		models.CipherNonce(base64.StdEncoding.EncodeToString(nonce)),
		nil
}

// Decrypt implements [CipherService]. It opens a blob previously produced by
// [cipherService.Encrypt]. Every failure mode is wrapped in
// [ErrDecryptionFailed]: a bad blob is a data problem, not a transport one,
// and must not be retried.
func (c *cipherService) Decrypt(blob models.CipheredPayload, nonce models.CipherNonce) ([]byte, error) {
	rawBlob, err := base64.StdEncoding.DecodeString(string(blob))
	if err != nil {
		return nil, fmt.Errorf("%w: decode blob: %v", ErrDecryptionFailed, err)
	}

	rawNonce, err := base64.StdEncoding.DecodeString(string(nonce))
	if err != nil {
		return nil, fmt.Errorf("%w: decode nonce: %v", ErrDecryptionFailed, err)
	}

	if len(rawNonce) != c.aead.NonceSize() {
		return nil, fmt.Errorf("%w: bad nonce length %d", ErrDecryptionFailed, len(rawNonce))
	}

	plaintext, err := c.aead.Open(nil, rawNonce, rawBlob, nil)
	if err != nil {
		// Almost always a wrong key or a corrupted ciphertext.
		return nil, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}

	return plaintext, nil
}
