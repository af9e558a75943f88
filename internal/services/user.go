package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/thomasemurphy/circle-cal/internal/logging"
	"github.com/thomasemurphy/circle-cal/internal/models"
)

var ErrUserNotFound = errors.New("user not found")

// ValidationError reports a rejected input along with the offending field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Reason
}

// Day caps per month. February is fixed at 29: birthdays on Feb 29 are
// always storable, with no leap-year distinction.
var daysInMonth = [12]int{31, 29, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

const userColumns = `id, google_id, email, name, picture_url, birthday_month, birthday_day, created_at, updated_at`

type UserService struct {
	db DB
}

func NewUserService(db DB) *UserService {
	return &UserService{db: db}
}

// UpsertFromIdentity resolves a verified external identity to a local user.
// A known google_id gets its mutable profile fields refreshed in place. An
// unknown one gets a new user row, and any pending invitations addressed to
// the new user's email are converted to pending friend requests inside the
// same transaction.
func (s *UserService) UpsertFromIdentity(ctx context.Context, identity models.Identity) (*models.User, error) {
	user, err := s.refresh(ctx, identity)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("refreshing user: %w", err)
	}

	user, err = s.createAndConvert(ctx, identity)
	if isUniqueViolation(err) {
		// Lost a first-login race for the same google_id; the winner's
		// row exists now, so refresh it instead.
		user, err = s.refresh(ctx, identity)
		if err != nil {
			return nil, fmt.Errorf("refreshing user after create race: %w", err)
		}
		return user, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) refresh(ctx context.Context, identity models.Identity) (*models.User, error) {
	user := &models.User{}
	err := s.db.QueryRow(ctx,
		`UPDATE users
		 SET email = $2, name = $3, picture_url = $4, updated_at = NOW()
		 WHERE google_id = $1
		 RETURNING `+userColumns,
		identity.GoogleID, identity.Email, identity.Name, identity.PictureURL,
	).Scan(&user.ID, &user.GoogleID, &user.Email, &user.Name, &user.PictureURL,
		&user.BirthdayMonth, &user.BirthdayDay, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) createAndConvert(ctx context.Context, identity models.Identity) (*models.User, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning user creation: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	user := &models.User{}
	err = tx.QueryRow(ctx,
		`INSERT INTO users (google_id, email, name, picture_url)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+userColumns,
		identity.GoogleID, identity.Email, identity.Name, identity.PictureURL,
	).Scan(&user.ID, &user.GoogleID, &user.Email, &user.Name, &user.PictureURL,
		&user.BirthdayMonth, &user.BirthdayDay, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}

	converted, err := convertInvitations(ctx, tx, user.ID, user.Email)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing user creation: %w", err)
	}
	committed = true

	if converted > 0 {
		logging.Info("Converted pending invitations to friend requests", map[string]interface{}{
			"user_id": user.ID.String(),
			"count":   converted,
		})
	}
	return user, nil
}

// convertInvitations turns every pending invitation matching the email into a
// pending friendship and deletes the invitations. ON CONFLICT DO NOTHING
// makes a retried conversion a no-op for friendships that already exist, so
// a crash between the two statements cannot produce duplicates.
func convertInvitations(ctx context.Context, tx Tx, userID uuid.UUID, email string) (int64, error) {
	normalized := NormalizeEmail(email)

	result, err := tx.Exec(ctx,
		`INSERT INTO friendships (requester_id, addressee_id, status)
		 SELECT inviter_id, $1, 'pending'
		 FROM pending_invitations
		 WHERE invited_email = $2
		 ON CONFLICT (requester_id, addressee_id) DO NOTHING`,
		userID, normalized,
	)
	if err != nil {
		return 0, fmt.Errorf("converting invitations: %w", err)
	}
	converted := result.RowsAffected()

	if _, err := tx.Exec(ctx,
		`DELETE FROM pending_invitations WHERE invited_email = $1`,
		normalized,
	); err != nil {
		return 0, fmt.Errorf("deleting converted invitations: %w", err)
	}

	return converted, nil
}

func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user := &models.User{}
	err := s.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`,
		id,
	).Scan(&user.ID, &user.GoogleID, &user.Email, &user.Name, &user.PictureURL,
		&user.BirthdayMonth, &user.BirthdayDay, &user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting user by id: %w", err)
	}
	return user, nil
}

// UpdateBirthday stores or clears the user's birthday. Passing nil for either
// part clears both.
func (s *UserService) UpdateBirthday(ctx context.Context, userID uuid.UUID, month, day *int) (*models.User, error) {
	if month != nil && day != nil {
		if *month < 1 || *month > 12 {
			return nil, &ValidationError{Field: "birthday_month", Reason: fmt.Sprintf("invalid month %d", *month)}
		}
		if *day < 1 || *day > daysInMonth[*month-1] {
			return nil, &ValidationError{Field: "birthday_day", Reason: fmt.Sprintf("invalid day %d for month %d", *day, *month)}
		}
	} else {
		month, day = nil, nil
	}

	user := &models.User{}
	err := s.db.QueryRow(ctx,
		`UPDATE users
		 SET birthday_month = $2, birthday_day = $3, updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+userColumns,
		userID, month, day,
	).Scan(&user.ID, &user.GoogleID, &user.Email, &user.Name, &user.PictureURL,
		&user.BirthdayMonth, &user.BirthdayDay, &user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("updating birthday: %w", err)
	}
	return user, nil
}
