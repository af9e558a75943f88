package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/thomasemurphy/circle-cal/internal/logging"
	"github.com/thomasemurphy/circle-cal/internal/models"
)

var (
	ErrCannotFriendSelf   = errors.New("cannot add yourself as a friend")
	ErrAlreadyFriends     = errors.New("already friends")
	ErrRequestPending     = errors.New("friend request already pending")
	ErrRequestNotFound    = errors.New("friend request not found")
	ErrFriendshipNotFound = errors.New("friendship not found")
)

// SendRequestResult reports which branch of the request state machine fired.
type SendRequestResult struct {
	// Invited means the email had no account; a pending invitation was
	// recorded and an invitation email dispatched instead.
	Invited bool
	// Accepted means the addressee had already sent a request the other
	// way, so the two requests collapsed into an accepted friendship.
	Accepted   bool
	Friendship *models.Friendship
}

// FriendService owns the friendship state machine. For any pair of users at
// most one friendships row exists at all times; the ordered-pair uniqueness
// constraint backstops concurrent requests.
type FriendService struct {
	db       DB
	notifier InvitationSender
}

func NewFriendService(db DB, notifier InvitationSender) *FriendService {
	return &FriendService{db: db, notifier: notifier}
}

// NormalizeEmail lowercases and trims an address for use as a lookup key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *FriendService) SendRequest(ctx context.Context, from *models.User, toEmail string) (*SendRequestResult, error) {
	email := NormalizeEmail(toEmail)

	var addresseeID uuid.UUID
	err := s.db.QueryRow(ctx,
		`SELECT id FROM users WHERE LOWER(email) = $1 LIMIT 1`,
		email,
	).Scan(&addresseeID)
	if errors.Is(err, pgx.ErrNoRows) {
		return s.invite(ctx, from, email)
	}
	if err != nil {
		return nil, fmt.Errorf("resolving addressee: %w", err)
	}

	if addresseeID == from.ID {
		return nil, ErrCannotFriendSelf
	}

	// Look for an existing row between the pair, in either direction.
	existing := &models.Friendship{}
	err = s.db.QueryRow(ctx,
		`SELECT id, requester_id, addressee_id, status, created_at, updated_at
		 FROM friendships
		 WHERE (requester_id = $1 AND addressee_id = $2)
		    OR (requester_id = $2 AND addressee_id = $1)`,
		from.ID, addresseeID,
	).Scan(&existing.ID, &existing.RequesterID, &existing.AddresseeID, &existing.Status, &existing.CreatedAt, &existing.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return s.create(ctx, from.ID, addresseeID)
	}
	if err != nil {
		return nil, fmt.Errorf("checking existing friendship: %w", err)
	}

	switch existing.Status {
	case models.FriendshipStatusAccepted:
		return nil, ErrAlreadyFriends

	case models.FriendshipStatusPending:
		if existing.RequesterID == addresseeID {
			// The other side already asked; mutual requests collapse
			// into acceptance instead of requiring an explicit accept.
			_, err := s.db.Exec(ctx,
				`UPDATE friendships SET status = 'accepted', updated_at = NOW() WHERE id = $1`,
				existing.ID,
			)
			if err != nil {
				return nil, fmt.Errorf("accepting mutual request: %w", err)
			}
			existing.Status = models.FriendshipStatusAccepted
			return &SendRequestResult{Accepted: true, Friendship: existing}, nil
		}
		return nil, ErrRequestPending

	case models.FriendshipStatusDeclined:
		// Reopen: the row flips to the new direction and goes back to
		// pending, so a declined party may retry.
		f := &models.Friendship{}
		err := s.db.QueryRow(ctx,
			`UPDATE friendships
			 SET requester_id = $1, addressee_id = $2, status = 'pending', updated_at = NOW()
			 WHERE id = $3
			 RETURNING id, requester_id, addressee_id, status, created_at, updated_at`,
			from.ID, addresseeID, existing.ID,
		).Scan(&f.ID, &f.RequesterID, &f.AddresseeID, &f.Status, &f.CreatedAt, &f.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("reopening declined friendship: %w", err)
		}
		return &SendRequestResult{Friendship: f}, nil
	}

	return nil, fmt.Errorf("friendship %s has unexpected status %q", existing.ID, existing.Status)
}

func (s *FriendService) create(ctx context.Context, requesterID, addresseeID uuid.UUID) (*SendRequestResult, error) {
	f := &models.Friendship{}
	err := s.db.QueryRow(ctx,
		`INSERT INTO friendships (requester_id, addressee_id, status)
		 VALUES ($1, $2, 'pending')
		 RETURNING id, requester_id, addressee_id, status, created_at, updated_at`,
		requesterID, addresseeID,
	).Scan(&f.ID, &f.RequesterID, &f.AddresseeID, &f.Status, &f.CreatedAt, &f.UpdatedAt)
	if isUniqueViolation(err) {
		// A concurrent request for the same pair won the insert race.
		return nil, ErrRequestPending
	}
	if err != nil {
		return nil, fmt.Errorf("creating friendship: %w", err)
	}
	return &SendRequestResult{Friendship: f}, nil
}

func (s *FriendService) invite(ctx context.Context, from *models.User, email string) (*SendRequestResult, error) {
	result, err := s.db.Exec(ctx,
		`INSERT INTO pending_invitations (inviter_id, invited_email)
		 VALUES ($1, $2)
		 ON CONFLICT (inviter_id, invited_email) DO NOTHING`,
		from.ID, email,
	)
	if err != nil {
		return nil, fmt.Errorf("creating invitation: %w", err)
	}
	if result.RowsAffected() == 0 {
		// Same inviter, same email: the invitation already exists.
		// Treated as success; the email is not sent again.
		return &SendRequestResult{Invited: true}, nil
	}

	fromName := from.Name
	if fromName == "" {
		fromName = strings.SplitN(from.Email, "@", 2)[0]
	}

	// Fire and forget: a dispatch failure never fails the request and
	// never rolls back the invitation row.
	if s.notifier != nil {
		if err := s.notifier.SendFriendInvitation(ctx, email, fromName); err != nil {
			logging.Warn("Failed to send friend invitation email", map[string]interface{}{
				"to":    email,
				"error": err.Error(),
			})
		}
	}

	return &SendRequestResult{Invited: true}, nil
}

// Respond accepts or declines a pending request. Only the current addressee
// may respond; for anyone else the request is reported as not found, whether
// or not the row exists.
func (s *FriendService) Respond(ctx context.Context, responderID, friendshipID uuid.UUID, accept bool) (*models.FriendRequest, error) {
	status := models.FriendshipStatusDeclined
	if accept {
		status = models.FriendshipStatusAccepted
	}

	f := &models.Friendship{}
	err := s.db.QueryRow(ctx,
		`UPDATE friendships
		 SET status = $1, updated_at = NOW()
		 WHERE id = $2 AND addressee_id = $3 AND status = 'pending'
		 RETURNING id, requester_id, addressee_id, status, created_at, updated_at`,
		status, friendshipID, responderID,
	).Scan(&f.ID, &f.RequesterID, &f.AddresseeID, &f.Status, &f.CreatedAt, &f.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRequestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("responding to friend request: %w", err)
	}

	var requester models.FriendUser
	err = s.db.QueryRow(ctx,
		`SELECT id, email, name, picture_url, birthday_month, birthday_day
		 FROM users WHERE id = $1`,
		f.RequesterID,
	).Scan(&requester.ID, &requester.Email, &requester.Name, &requester.PictureURL, &requester.BirthdayMonth, &requester.BirthdayDay)
	if err != nil {
		return nil, fmt.Errorf("loading requester: %w", err)
	}

	return &models.FriendRequest{
		ID:        f.ID,
		Requester: requester,
		Status:    f.Status,
		CreatedAt: f.CreatedAt,
	}, nil
}

// Remove deletes a friendship of any status. Either party may do it.
func (s *FriendService) Remove(ctx context.Context, callerID, friendshipID uuid.UUID) error {
	result, err := s.db.Exec(ctx,
		`DELETE FROM friendships
		 WHERE id = $1 AND (requester_id = $2 OR addressee_id = $2)`,
		friendshipID, callerID,
	)
	if err != nil {
		return fmt.Errorf("removing friendship: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrFriendshipNotFound
	}
	return nil
}

// ListFriends returns all accepted friendships touching the user, projected
// onto the other party. The stored request direction does not leak.
func (s *FriendService) ListFriends(ctx context.Context, userID uuid.UUID) ([]models.Friend, error) {
	rows, err := s.db.Query(ctx,
		`SELECT f.id, f.created_at,
		        u.id, u.email, u.name, u.picture_url, u.birthday_month, u.birthday_day
		 FROM friendships f
		 JOIN users u ON u.id = CASE WHEN f.requester_id = $1 THEN f.addressee_id ELSE f.requester_id END
		 WHERE (f.requester_id = $1 OR f.addressee_id = $1) AND f.status = 'accepted'
		 ORDER BY u.name, u.email`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing friends: %w", err)
	}
	defer rows.Close()

	var friends []models.Friend
	for rows.Next() {
		var f models.Friend
		if err := rows.Scan(&f.ID, &f.CreatedAt,
			&f.Friend.ID, &f.Friend.Email, &f.Friend.Name, &f.Friend.PictureURL,
			&f.Friend.BirthdayMonth, &f.Friend.BirthdayDay); err != nil {
			return nil, fmt.Errorf("scanning friend: %w", err)
		}
		friends = append(friends, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing friends: %w", err)
	}

	if friends == nil {
		friends = []models.Friend{}
	}
	return friends, nil
}

// ListPendingRequests returns incoming pending requests, newest first.
func (s *FriendService) ListPendingRequests(ctx context.Context, userID uuid.UUID) ([]models.FriendRequest, error) {
	rows, err := s.db.Query(ctx,
		`SELECT f.id, f.status, f.created_at,
		        u.id, u.email, u.name, u.picture_url, u.birthday_month, u.birthday_day
		 FROM friendships f
		 JOIN users u ON u.id = f.requester_id
		 WHERE f.addressee_id = $1 AND f.status = 'pending'
		 ORDER BY f.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing pending requests: %w", err)
	}
	defer rows.Close()

	var requests []models.FriendRequest
	for rows.Next() {
		var r models.FriendRequest
		if err := rows.Scan(&r.ID, &r.Status, &r.CreatedAt,
			&r.Requester.ID, &r.Requester.Email, &r.Requester.Name, &r.Requester.PictureURL,
			&r.Requester.BirthdayMonth, &r.Requester.BirthdayDay); err != nil {
			return nil, fmt.Errorf("scanning request: %w", err)
		}
		requests = append(requests, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing pending requests: %w", err)
	}

	if requests == nil {
		requests = []models.FriendRequest{}
	}
	return requests, nil
}
