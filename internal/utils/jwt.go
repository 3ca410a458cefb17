package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoExpiryClaim is returned when a credential carries no exp claim.
var ErrNoExpiryClaim = errors.New("credential has no expiry claim")

// CredentialExpiry extracts the "exp" claim from a bearer credential without
// verifying its signature. Issuance and verification belong to the identity
// collaborator; the engine only needs to know when the credential runs out
// so the health monitor can warn before sync starts failing with auth errors.
func CredentialExpiry(credential string) (time.Time, error) {
	parser := jwt.NewParser()

	token, _, err := parser.ParseUnverified(credential, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, fmt.Errorf("parse credential: %w", err)
	}

	expiry, err := token.Claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, fmt.Errorf("read credential expiry: %w", err)
	}
	if expiry == nil {
		return time.Time{}, ErrNoExpiryClaim
	}

	return expiry.Time, nil
}
