package api

import "github.com/google/uuid"

// NewID returns a time-ordered UUIDv7 string.
func NewID() ID {
	u, err := uuid.NewV7()
	if err != nil {
		return ID(uuid.NewString())
	}
	return ID(u.String())
}
