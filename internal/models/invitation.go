package models

import (
	"time"

	"github.com/google/uuid"
)

// PendingInvitation records the intent to connect with an email address that
// has no account yet. It is converted into a pending friendship the moment a
// user registers with that email, and deleted in the same transaction.
type PendingInvitation struct {
	ID           uuid.UUID `json:"id"`
	InviterID    uuid.UUID `json:"inviter_id"`
	InvitedEmail string    `json:"invited_email"`
	CreatedAt    time.Time `json:"created_at"`
}
