package models

type (
	// CipheredPayload is a base64 string carrying an encrypted task payload.
	// The actual structure and meaning of the data are unknown to the server.
	CipheredPayload string
	// CipherNonce is the base64 nonce that accompanies a ciphered payload.
	CipherNonce string
)
