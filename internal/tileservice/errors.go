package tileservice

import "errors"

// Failure taxonomy for tile resolution. Durable-store failures are absent
// on purpose: they degrade to a cache miss or a skipped write and never
// reach the caller.
var (
	// ErrInvalidParameter means z/x/y do not address a tile in the pyramid.
	ErrInvalidParameter = errors.New("invalid tile parameter")
	// ErrLoadTimeout means the origin never reached a terminal state within
	// the configured timeout.
	ErrLoadTimeout = errors.New("tile load timed out")
	// ErrLoadFailed means the origin reported an error state.
	ErrLoadFailed = errors.New("tile load failed")
	// ErrNoTileData means the origin finished without a usable payload.
	ErrNoTileData = errors.New("no tile data")
)
