package domain

import "errors"

// Domain errors - use these for consistent error handling
var (
	// Auth errors
	ErrMissingCredential  = errors.New("credential is missing")
	ErrInvalidCredential  = errors.New("credential is invalid or expired")
	ErrUnknownUser        = errors.New("user no longer exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotFound       = errors.New("user not found")

	// Registration errors
	ErrEmailTaken = errors.New("email already registered")
	ErrNameTaken  = errors.New("name already taken")

	// Routing errors
	ErrRecipientOffline = errors.New("recipient is offline")
	ErrEmptyMessage     = errors.New("message cannot be empty")

	// Busy-fallback errors
	ErrRecipientUnavailable = errors.New("recipient is unavailable")
	ErrRecipientNotBusy     = errors.New("recipient is not busy")

	// Status errors
	ErrInvalidStatus = errors.New("invalid status")
)
