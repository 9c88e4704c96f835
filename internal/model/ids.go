package model

import "github.com/google/uuid"

func newID() string {
	return uuid.NewString()
}

// ensureID assigns a fresh identifier when none is set.
func ensureID(id *string) {
	if *id == "" {
		*id = newID()
	}
}
