package domain

import (
	"time"

	"github.com/google/uuid"
)

type UserType string

const (
	UserRegistered UserType = "REGISTERED"
	UserAnonymous  UserType = "ANONYMOUS"
)

// GroupParticipant is the group-local projection of a user, created from
// user events and denormalized into entries and splits.
type GroupParticipant struct {
	UserID   uuid.UUID `json:"userId"`
	Username string    `json:"username"`
	Email    *string   `json:"email,omitempty"`
	UserType UserType  `json:"userType"`
}

// Group is a shared ledger and the unit of broadcast addressing.
type Group struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Currency  string    `json:"currency"`
	CreatedBy uuid.UUID `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
}
