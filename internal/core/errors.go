package core

import "errors"

var (
	// ErrUnauthenticated means the caller has no valid credential; never retried.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrTransport covers network failures and unexpected upstream responses.
	ErrTransport = errors.New("transport failure")

	ErrNotFound     = errors.New("not found")
	ErrDuplicate    = errors.New("duplicate")
	ErrUserNotFound = errors.New("identity provider: user not found")
)
