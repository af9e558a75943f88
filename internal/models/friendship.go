package models

import (
	"time"

	"github.com/google/uuid"
)

type FriendshipStatus string

const (
	FriendshipStatusPending  FriendshipStatus = "pending"
	FriendshipStatusAccepted FriendshipStatus = "accepted"
	FriendshipStatusDeclined FriendshipStatus = "declined"
)

// Friendship is a directed request that becomes a mutual relationship once
// accepted. At most one row exists per pair of users; a request in the
// reverse direction is merged into the existing row by the friend service.
type Friendship struct {
	ID          uuid.UUID        `json:"id"`
	RequesterID uuid.UUID        `json:"-"`
	AddresseeID uuid.UUID        `json:"-"`
	Status      FriendshipStatus `json:"status"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"-"`
}

// Friend pairs a friendship with the other party, whoever that is.
// The original request direction is deliberately not part of the projection.
type Friend struct {
	ID        uuid.UUID  `json:"id"`
	Friend    FriendUser `json:"friend"`
	CreatedAt time.Time  `json:"created_at"`
}

// FriendRequest is an incoming pending request with its requester attached.
type FriendRequest struct {
	ID        uuid.UUID        `json:"id"`
	Requester FriendUser       `json:"requester"`
	Status    FriendshipStatus `json:"status"`
	CreatedAt time.Time        `json:"created_at"`
}
