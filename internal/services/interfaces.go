package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/thomasemurphy/circle-cal/internal/models"
)

// UserServiceInterface defines the contract for user operations.
type UserServiceInterface interface {
	UpsertFromIdentity(ctx context.Context, identity models.Identity) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateBirthday(ctx context.Context, userID uuid.UUID, month, day *int) (*models.User, error)
}

// AuthServiceInterface defines the contract for session operations.
type AuthServiceInterface interface {
	CreateSession(ctx context.Context, userID uuid.UUID) (token string, err error)
	ValidateSession(ctx context.Context, token string) (*models.User, error)
	DeleteSession(ctx context.Context, token string) error
}

// FriendServiceInterface defines the contract for friendship operations.
type FriendServiceInterface interface {
	SendRequest(ctx context.Context, from *models.User, toEmail string) (*SendRequestResult, error)
	Respond(ctx context.Context, responderID, friendshipID uuid.UUID, accept bool) (*models.FriendRequest, error)
	Remove(ctx context.Context, callerID, friendshipID uuid.UUID) error
	ListFriends(ctx context.Context, userID uuid.UUID) ([]models.Friend, error)
	ListPendingRequests(ctx context.Context, userID uuid.UUID) ([]models.FriendRequest, error)
}

// EventServiceInterface defines the contract for calendar event operations.
type EventServiceInterface interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Event, error)
	Create(ctx context.Context, userID uuid.UUID, params models.CreateEventParams) (*models.Event, error)
	Update(ctx context.Context, userID, eventID uuid.UUID, params models.UpdateEventParams) (*models.Event, error)
	Delete(ctx context.Context, userID, eventID uuid.UUID) error
}

// InvitationSender dispatches the out-of-band invitation notification for
// friend requests aimed at unregistered email addresses.
type InvitationSender interface {
	SendFriendInvitation(ctx context.Context, toEmail, fromName string) error
}
