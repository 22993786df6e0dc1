package service

import "errors"

var (
	ErrInvalidCredential   = errors.New("invalid passcode")
	ErrMalformedInput      = errors.New("malformed input")
	ErrDuplicateCredential = errors.New("passcode already exists")
	ErrLastAdminProtected  = errors.New("cannot delete the last admin passcode")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrTokenCollision      = errors.New("session token collision, retry")
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("conflict")

	// ErrValidation is reported by the board operations; it matches ErrMalformedInput.
	ErrValidation = ErrMalformedInput
)
