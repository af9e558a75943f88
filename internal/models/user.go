package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID            uuid.UUID `json:"id"`
	GoogleID      string    `json:"-"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	PictureURL    string    `json:"picture_url"`
	BirthdayMonth *int      `json:"birthday_month"`
	BirthdayDay   *int      `json:"birthday_day"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Identity is the verified profile tuple supplied by the external
// identity provider after a successful login handshake.
type Identity struct {
	GoogleID   string
	Email      string
	Name       string
	PictureURL string
}

// FriendUser is the projection of a user shown to their friends.
type FriendUser struct {
	ID            uuid.UUID `json:"id"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	PictureURL    string    `json:"picture_url"`
	BirthdayMonth *int      `json:"birthday_month"`
	BirthdayDay   *int      `json:"birthday_day"`
}

type Session struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}
