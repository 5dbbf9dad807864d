// Package domain holds the error taxonomy shared by ripple services.
package domain

import "errors"

var (
	// ErrNotFound means a referenced user, request, or record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized means the caller identity does not match the resource's expected party.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrConflict means the operation collides with existing state
	// (duplicate friend request, already friends, terminal request).
	ErrConflict = errors.New("conflict")
	// ErrInvalidInput means the request payload failed validation.
	ErrInvalidInput = errors.New("invalid input")
)
