package domain

import "github.com/google/uuid"

// Listener is one connected listener's routing preferences. Language and
// voice may change live; the connection identity does not.
type Listener struct {
	ConnID uuid.UUID
	Lang   string
	Voice  string
}
