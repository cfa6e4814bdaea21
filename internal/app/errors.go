package app

import "errors"

// Sentinel errors for common application errors
var (
	ErrNotInitialized = errors.New("application not initialized")
	ErrNoListings     = errors.New("no listings")
	ErrModelNotFound  = errors.New("no trained model")
)
