package services

import "errors"

// Failure taxonomy surfaced by AuthService. The HTTP layer maps these onto
// status codes; anything else is treated as an internal failure and never
// forwards storage or driver detail to the client.
var (
	ErrEmailTaken            = errors.New("email already taken")
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrInvalidToken          = errors.New("invalid token")
	ErrUserNotFound          = errors.New("user not found")
	ErrRepositoryUnavailable = errors.New("repository unavailable")
)
