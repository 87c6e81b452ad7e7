package domain

import "errors"

// Error kinds. Service packages wrap one of these in their own sentinels
// (fmt.Errorf("%w: ...", domain.ErrState)) so the HTTP layer can map any
// error to a status code with errors.Is.
var (
	ErrValidation = errors.New("validation error")
	ErrAuth       = errors.New("authentication required")
	ErrState      = errors.New("invalid state")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrTransport  = errors.New("transport error")
	ErrSignature  = errors.New("signature verification failed")
	ErrToken      = errors.New("invalid token")
)
