package sentinel

import "errors"

// Sentinel dependency errors. Stores and adapters should return these
// (optionally wrapped) so services can translate them into domain errors
// exactly once.
var (
	ErrNotFound       = errors.New("not found")
	ErrAlreadyPending = errors.New("submission already pending")
	ErrAlreadyDecided = errors.New("submission already decided")
	ErrConflict       = errors.New("conflict")
	ErrInvalidInput   = errors.New("invalid input")
	ErrUnavailable    = errors.New("unavailable")
)
