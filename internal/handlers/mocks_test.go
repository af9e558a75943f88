package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/thomasemurphy/circle-cal/internal/models"
	"github.com/thomasemurphy/circle-cal/internal/services"
)

var errNotStubbed = errors.New("not stubbed")

type mockUserService struct {
	UpsertFromIdentityFunc func(ctx context.Context, identity models.Identity) (*models.User, error)
	GetByIDFunc            func(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateBirthdayFunc     func(ctx context.Context, userID uuid.UUID, month, day *int) (*models.User, error)
}

func (m *mockUserService) UpsertFromIdentity(ctx context.Context, identity models.Identity) (*models.User, error) {
	if m.UpsertFromIdentityFunc != nil {
		return m.UpsertFromIdentityFunc(ctx, identity)
	}
	return nil, errNotStubbed
}

func (m *mockUserService) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, errNotStubbed
}

func (m *mockUserService) UpdateBirthday(ctx context.Context, userID uuid.UUID, month, day *int) (*models.User, error) {
	if m.UpdateBirthdayFunc != nil {
		return m.UpdateBirthdayFunc(ctx, userID, month, day)
	}
	return nil, errNotStubbed
}

type mockAuthService struct {
	CreateSessionFunc   func(ctx context.Context, userID uuid.UUID) (string, error)
	ValidateSessionFunc func(ctx context.Context, token string) (*models.User, error)
	DeleteSessionFunc   func(ctx context.Context, token string) error
}

func (m *mockAuthService) CreateSession(ctx context.Context, userID uuid.UUID) (string, error) {
	if m.CreateSessionFunc != nil {
		return m.CreateSessionFunc(ctx, userID)
	}
	return "", errNotStubbed
}

func (m *mockAuthService) ValidateSession(ctx context.Context, token string) (*models.User, error) {
	if m.ValidateSessionFunc != nil {
		return m.ValidateSessionFunc(ctx, token)
	}
	return nil, errNotStubbed
}

func (m *mockAuthService) DeleteSession(ctx context.Context, token string) error {
	if m.DeleteSessionFunc != nil {
		return m.DeleteSessionFunc(ctx, token)
	}
	return errNotStubbed
}

type mockFriendService struct {
	SendRequestFunc         func(ctx context.Context, from *models.User, toEmail string) (*services.SendRequestResult, error)
	RespondFunc             func(ctx context.Context, responderID, friendshipID uuid.UUID, accept bool) (*models.FriendRequest, error)
	RemoveFunc              func(ctx context.Context, callerID, friendshipID uuid.UUID) error
	ListFriendsFunc         func(ctx context.Context, userID uuid.UUID) ([]models.Friend, error)
	ListPendingRequestsFunc func(ctx context.Context, userID uuid.UUID) ([]models.FriendRequest, error)
}

func (m *mockFriendService) SendRequest(ctx context.Context, from *models.User, toEmail string) (*services.SendRequestResult, error) {
	if m.SendRequestFunc != nil {
		return m.SendRequestFunc(ctx, from, toEmail)
	}
	return nil, errNotStubbed
}

func (m *mockFriendService) Respond(ctx context.Context, responderID, friendshipID uuid.UUID, accept bool) (*models.FriendRequest, error) {
	if m.RespondFunc != nil {
		return m.RespondFunc(ctx, responderID, friendshipID, accept)
	}
	return nil, errNotStubbed
}

func (m *mockFriendService) Remove(ctx context.Context, callerID, friendshipID uuid.UUID) error {
	if m.RemoveFunc != nil {
		return m.RemoveFunc(ctx, callerID, friendshipID)
	}
	return errNotStubbed
}

func (m *mockFriendService) ListFriends(ctx context.Context, userID uuid.UUID) ([]models.Friend, error) {
	if m.ListFriendsFunc != nil {
		return m.ListFriendsFunc(ctx, userID)
	}
	return nil, errNotStubbed
}

func (m *mockFriendService) ListPendingRequests(ctx context.Context, userID uuid.UUID) ([]models.FriendRequest, error) {
	if m.ListPendingRequestsFunc != nil {
		return m.ListPendingRequestsFunc(ctx, userID)
	}
	return nil, errNotStubbed
}

type mockEventService struct {
	ListByUserFunc func(ctx context.Context, userID uuid.UUID) ([]models.Event, error)
	CreateFunc     func(ctx context.Context, userID uuid.UUID, params models.CreateEventParams) (*models.Event, error)
	UpdateFunc     func(ctx context.Context, userID, eventID uuid.UUID, params models.UpdateEventParams) (*models.Event, error)
	DeleteFunc     func(ctx context.Context, userID, eventID uuid.UUID) error
}

func (m *mockEventService) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Event, error) {
	if m.ListByUserFunc != nil {
		return m.ListByUserFunc(ctx, userID)
	}
	return nil, errNotStubbed
}

func (m *mockEventService) Create(ctx context.Context, userID uuid.UUID, params models.CreateEventParams) (*models.Event, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, userID, params)
	}
	return nil, errNotStubbed
}

func (m *mockEventService) Update(ctx context.Context, userID, eventID uuid.UUID, params models.UpdateEventParams) (*models.Event, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, userID, eventID, params)
	}
	return nil, errNotStubbed
}

func (m *mockEventService) Delete(ctx context.Context, userID, eventID uuid.UUID) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, userID, eventID)
	}
	return errNotStubbed
}

type mockIdentityProvider struct {
	AuthURLFunc  func(state string) string
	ExchangeFunc func(ctx context.Context, code string) (*models.Identity, error)
}

func (m *mockIdentityProvider) AuthURL(state string) string {
	if m.AuthURLFunc != nil {
		return m.AuthURLFunc(state)
	}
	return "https://accounts.example.com/auth?state=" + state
}

func (m *mockIdentityProvider) Exchange(ctx context.Context, code string) (*models.Identity, error) {
	if m.ExchangeFunc != nil {
		return m.ExchangeFunc(ctx, code)
	}
	return nil, errNotStubbed
}

// authedRequest attaches a logged-in user to the request context.
func authedRequest(r *http.Request, user *models.User) *http.Request {
	return r.WithContext(SetUserInContext(r.Context(), user))
}
