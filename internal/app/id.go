package app

import "github.com/google/uuid"

// newID returns a v4 UUID, used for tenant and flow identifiers.
func newID() string {
	return uuid.NewString()
}
