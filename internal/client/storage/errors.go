package storage

import "errors"

// Common client storage errors
var (
	// ErrAuthNotFound indicates that no authentication data exists
	ErrAuthNotFound = errors.New("authentication data not found")

	// ErrViewStateNotFound indicates that no view state was saved for collection
	ErrViewStateNotFound = errors.New("view state not found")

	// ErrSnapshotNotFound indicates that no snapshot was saved for collection
	ErrSnapshotNotFound = errors.New("snapshot not found")

	// ErrIncompleteSession indicates session without token, tenant or server
	ErrIncompleteSession = errors.New("session must have access token, tenant and server")

	// ErrStorageClosed indicates that storage is closed
	ErrStorageClosed = errors.New("storage is closed")
)
