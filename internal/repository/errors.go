package repository

import (
	"errors"

	"github.com/dkhoury/meetsync/internal/remote"
)

var (
	// ErrOfflineUnavailable signals that the operation needs connectivity
	// and there is none, with no usable cached fallback. Callers match it
	// to show an offline affordance instead of a generic failure.
	ErrOfflineUnavailable = errors.New("offline and remote store unavailable")

	// ErrNotFound signals that the entity exists in neither the remote
	// store nor the cache.
	ErrNotFound = errors.New("entity not found")

	// ErrNoCurrentUser signals that a cache-side read required the current
	// user identifier and none was available.
	ErrNoCurrentUser = errors.New("current user unknown")
)

// isRemoteNotFound distinguishes an authoritative remote 404 from
// transient remote failures, which trigger cache fallback instead.
func isRemoteNotFound(err error) bool {
	return remote.IsNotFound(err)
}
