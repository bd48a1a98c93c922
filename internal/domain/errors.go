package domain

import "errors"

var (
	// ErrConfiguration marks a missing, empty or invalid registry or config. Fatal to the cycle.
	ErrConfiguration = errors.New("configuration error")
	// ErrProbe marks a transport-level failure of a single probe. It is recorded, never returned from a cycle.
	ErrProbe = errors.New("probe error")
	// ErrPersistence marks a store that could not be written. Fatal to the cycle.
	ErrPersistence = errors.New("persistence error")
	// ErrNotification marks a failed alert delivery. Logged and swallowed.
	ErrNotification = errors.New("notification error")
	// ErrCycleLocked is returned when another cycle holds the lock.
	ErrCycleLocked = errors.New("another cycle is running")
)
