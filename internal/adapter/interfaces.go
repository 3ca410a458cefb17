// SPDX-License-Identifier: Apache-2.0

// Package adapter provides transport-layer abstractions for communicating
// with the remote append-only task store.
//
// The primary abstraction is [RemoteStore], which decouples the sync engine
// from the underlying protocol. The package ships an HTTP/REST
// implementation ([NewHTTPRemoteStore]).
//
// Error values defined in errors.go are mapped from HTTP status codes by
// mapHTTPError so that callers can use [errors.Is] for transport-agnostic
// error handling (e.g. [ErrUnauthorized] for 401, [ErrTooManyRequests]
// for 429).
package adapter

import (
	"context"

	"github.com/taskdeck/taskdeck-sync/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/remote_store_mock.go -package=mock

// RemoteStore defines transport-agnostic communication with the remote task
// store. Implementations are responsible for serialisation, authentication
// header management, and mapping transport-level errors to the sentinel
// values defined in this package.
//
// The store only ever sees ciphertext: payloads are encrypted before they
// reach this interface and decrypted after they leave it.
type RemoteStore interface {
	// SetCredential stores the bearer credential that will be attached to
	// all subsequent requests. Called at startup and again whenever the
	// owner obtains a fresh credential after an auth failure.
	SetCredential(credential string)

	// Credential returns the bearer credential currently held by the
	// adapter, or an empty string if none has been set.
	Credential() string

	// Push sends a batch of outbox items to the store. Acceptance may be
	// partial: the response lists accepted entry ids and per-item
	// rejections, plus the server's merged device-level clock. Returns an
	// error only for request-level failures; per-item rejections are not
	// errors.
	Push(ctx context.Context, req models.PushRequest) (models.PushResponse, error)

	// Pull requests tasks whose server update time is at or after
	// req.Since. The caller is responsible for choosing an overlap-tolerant
	// cursor and deduplicating re-delivered tasks.
	Pull(ctx context.Context, req models.PullRequest) (models.PullResponse, error)
}
