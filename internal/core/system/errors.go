package system

import "errors"

var (
	ErrSystemExists   = errors.New("system already registered")
	ErrSystemNotFound = errors.New("system not found")
	ErrNotInitialized = errors.New("game manager is not initialized")
	ErrDestroyed      = errors.New("game manager is destroyed")
	ErrSystemPanic    = errors.New("system panicked")
)
