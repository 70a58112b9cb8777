package auth

import "errors"

var (
	// ErrNotConfigured means no OAuth client credentials were supplied and
	// no static token is available.
	ErrNotConfigured = errors.New("oauth client not configured")

	// ErrNotAuthenticated means the session has no credential record.
	ErrNotAuthenticated = errors.New("session not authenticated")

	// ErrInvalidState means the callback state is unknown or older than
	// PendingTTL.
	ErrInvalidState = errors.New("unknown or expired authorization state")

	// ErrTokenExchange means the authorization-code exchange failed. The
	// pending entry is retained so the callback may be retried while the
	// state is still valid.
	ErrTokenExchange = errors.New("token exchange failed")

	// ErrRefreshFailed means the refresh-token exchange failed. This is
	// terminal for the session; a new authorization flow is required.
	ErrRefreshFailed = errors.New("token refresh failed")
)
