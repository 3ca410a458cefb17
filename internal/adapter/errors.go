package adapter

import "errors"

// Sentinel errors mapped from remote store HTTP status codes by mapHTTPError.
// Callers use [errors.Is] for transport-agnostic handling; the error
// categorizer builds its taxonomy on top of these.
var (
	ErrBadRequest          = errors.New("bad request")
	ErrUnauthorized        = errors.New("client unauthorized")
	ErrForbidden           = errors.New("access forbidden")
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("remote conflict")
	ErrTooManyRequests     = errors.New("rate limited")
	ErrInternalServerError = errors.New("remote internal error")
	ErrBadGateway          = errors.New("remote bad gateway")
	ErrServiceUnavailable  = errors.New("remote unavailable")
)
