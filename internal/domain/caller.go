package domain

import "github.com/google/uuid"

// Caller is the authenticated principal an operation runs on behalf of.
type Caller struct {
	UserID uuid.UUID
	Admin  bool
}
