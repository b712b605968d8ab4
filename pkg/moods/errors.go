package moods

import (
	"errors"
)

// Sentinel errors surfaced unchanged by every Store and by the service layer.
// Backends wrap their driver error so both match with errors.Is.
var (
	ErrConstraintViolation = errors.New("another entry already exists for this date")
	ErrNotFound            = errors.New("entry not found")
	ErrStorageUnavailable  = errors.New("storage unavailable")
	ErrInvalidMood         = errors.New("invalid mood")
	ErrInvalidDate         = errors.New("invalid date")
)
