package services

import "github.com/google/uuid"

// ResolveThreadID returns id unchanged when the caller supplied one, and a
// fresh random UUID otherwise.
func ResolveThreadID(id string) string {
	if id == "" {
		return uuid.NewString()
	}
	return id
}
