package model

import "github.com/google/uuid"

// NewID returns a random identifier for executions and requests.
func NewID() string {
	return uuid.NewString()
}
