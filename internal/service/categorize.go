// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/taskdeck/taskdeck-sync/internal/adapter"
	"github.com/taskdeck/taskdeck-sync/internal/crypto"
)

// Category classifies a sync failure for retry policy.
type Category string

const (
	// CategoryTransient failures are retried with bounded exponential
	// backoff: network failures, 5xx, rate limiting, timeouts.
	CategoryTransient Category = "transient"
	// CategoryAuth failures are not auto-retried; a fresh credential is
	// required before the next attempt.
	CategoryAuth Category = "auth"
	// CategoryPermanent failures are not retried: data problems such as
	// validation rejections, malformed payloads, failed decryption.
	CategoryPermanent Category = "permanent"
)

// Categorize maps an error to its retry category by signature matching on
// sentinels and message text. Auth takes priority over permanent, permanent
// over transient. Unrecognized errors default to transient, favoring retry
// over silent data loss.
func Categorize(err error) Category {
	if err == nil {
		return CategoryTransient
	}

	if isAuthError(err) {
		return CategoryAuth
	}
	if isPermanentError(err) {
		return CategoryPermanent
	}

	return CategoryTransient
}

func isAuthError(err error) bool {
	if errors.Is(err, adapter.ErrUnauthorized) || errors.Is(err, adapter.ErrForbidden) {
		return true
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unauthorized") || strings.Contains(msg, "token expired")
}

func isPermanentError(err error) bool {
	if errors.Is(err, crypto.ErrDecryptionFailed) {
		return true
	}
	if errors.Is(err, adapter.ErrBadRequest) ||
		errors.Is(err, adapter.ErrNotFound) ||
		errors.Is(err, adapter.ErrConflict) {
		return true
	}

	// Timeouts look retryable even when their message mentions validation.
	if isTimeoutError(err) {
		return false
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "validation") ||
		strings.Contains(msg, "malformed") ||
		strings.Contains(msg, "decryption")
}

func isTimeoutError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
