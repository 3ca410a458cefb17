package crypto

//go:generate mockgen -source=interfaces.go -destination=../mock/cipher_service_mock.go -package=mock

import "github.com/taskdeck/taskdeck-sync/models"

// CipherService is the symmetric encryption collaborator of the sync engine.
// It knows nothing about the network, the database, or tasks: its only job is
// converting a plaintext payload to an opaque ciphertext blob and back, so
// that the remote store only ever holds ciphertext.
//
// Either direction may fail with [ErrDecryptionFailed] (wrapped); the engine
// treats that as a permanent, non-retryable failure of the affected item.
type CipherService interface {
	// Encrypt seals plaintext with the installation key and returns the
	// ciphertext blob together with the random nonce used to seal it. The
	// nonce travels next to the blob on the wire; it is not secret.
	Encrypt(plaintext []byte) (models.CipheredPayload, models.CipherNonce, error)

	// Decrypt opens a ciphertext blob with the installation key and the
	// nonce it was sealed with. Returns [ErrDecryptionFailed] (wrapped) if
	// the blob is malformed, the key is wrong, or the authentication tag
	// does not verify.
	Decrypt(blob models.CipheredPayload, nonce models.CipherNonce) ([]byte, error)
}
