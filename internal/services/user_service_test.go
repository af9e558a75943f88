package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/thomasemurphy/circle-cal/internal/models"
)

func userRow(id uuid.UUID, identity models.Identity, now time.Time) Row {
	return rowFromValues(id, identity.GoogleID, identity.Email, identity.Name, identity.PictureURL, nil, nil, now, now)
}

func TestUpsertFromIdentityRefreshesExisting(t *testing.T) {
	identity := models.Identity{GoogleID: "g-123", Email: "alice@example.com", Name: "Alice", PictureURL: "https://pic"}
	userID := uuid.New()
	now := time.Now()
	var begun bool
	db := &fakeDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			if !strings.Contains(sql, "UPDATE users") {
				t.Fatalf("unexpected query: %s", sql)
			}
			if args[0] != "g-123" {
				t.Errorf("google_id arg = %v, want g-123", args[0])
			}
			return userRow(userID, identity, now)
		},
		BeginFunc: func(ctx context.Context) (Tx, error) {
			begun = true
			return nil, errors.New("should not begin a transaction")
		},
	}
	svc := NewUserService(db)

	user, err := svc.UpsertFromIdentity(context.Background(), identity)
	if err != nil {
		t.Fatalf("UpsertFromIdentity: %v", err)
	}
	if user.ID != userID || user.Email != "alice@example.com" {
		t.Errorf("unexpected user: %+v", user)
	}
	if begun {
		t.Error("refresh path must not open a transaction")
	}
}

func TestUpsertFromIdentityCreatesAndConverts(t *testing.T) {
	identity := models.Identity{GoogleID: "g-new", Email: "New@Example.com", Name: "Newbie"}
	userID := uuid.New()
	now := time.Now()

	var txExecs []string
	tx := &fakeTx{fakeDB: &fakeDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			if !strings.Contains(sql, "INSERT INTO users") {
				t.Fatalf("unexpected tx query: %s", sql)
			}
			return userRow(userID, identity, now)
		},
		ExecFunc: func(ctx context.Context, sql string, args ...any) (Result, error) {
			txExecs = append(txExecs, sql)
			if strings.Contains(sql, "INSERT INTO friendships") {
				if args[1] != "new@example.com" {
					t.Errorf("conversion email arg = %v, want normalized new@example.com", args[1])
				}
				return fakeResult(2), nil
			}
			return fakeResult(2), nil
		},
	}}

	db := &fakeDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			// No existing row for the google_id.
			return errRow{pgx.ErrNoRows}
		},
		BeginFunc: func(ctx context.Context) (Tx, error) {
			return tx, nil
		},
	}
	svc := NewUserService(db)

	user, err := svc.UpsertFromIdentity(context.Background(), identity)
	if err != nil {
		t.Fatalf("UpsertFromIdentity: %v", err)
	}
	if user.ID != userID {
		t.Errorf("user ID = %s, want %s", user.ID, userID)
	}
	if !tx.committed {
		t.Error("expected the transaction to commit")
	}
	if len(txExecs) != 2 {
		t.Fatalf("tx executed %d statements, want insert + delete", len(txExecs))
	}
	if !strings.Contains(txExecs[0], "ON CONFLICT (requester_id, addressee_id) DO NOTHING") {
		t.Error("conversion insert must be idempotent")
	}
	if !strings.Contains(txExecs[1], "DELETE FROM pending_invitations") {
		t.Error("converted invitations must be deleted")
	}
}

func TestUpsertFromIdentityCreateRaceFallsBackToRefresh(t *testing.T) {
	identity := models.Identity{GoogleID: "g-race", Email: "race@example.com"}
	userID := uuid.New()
	now := time.Now()

	refreshCalls := 0
	tx := &fakeTx{fakeDB: &fakeDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			return errRow{&pgconn.PgError{Code: "23505"}}
		},
	}}
	db := &fakeDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			refreshCalls++
			if refreshCalls == 1 {
				return errRow{pgx.ErrNoRows}
			}
			return userRow(userID, identity, now)
		},
		BeginFunc: func(ctx context.Context) (Tx, error) {
			return tx, nil
		},
	}
	svc := NewUserService(db)

	user, err := svc.UpsertFromIdentity(context.Background(), identity)
	if err != nil {
		t.Fatalf("UpsertFromIdentity: %v", err)
	}
	if user.ID != userID {
		t.Errorf("user ID = %s, want %s", user.ID, userID)
	}
	if !tx.rolledBack {
		t.Error("failed creation must roll back")
	}
	if refreshCalls != 2 {
		t.Errorf("refresh called %d times, want 2", refreshCalls)
	}
}

func TestGetByIDNotFound(t *testing.T) {
	db := &fakeDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			return errRow{pgx.ErrNoRows}
		},
	}
	svc := NewUserService(db)

	_, err := svc.GetByID(context.Background(), uuid.New())
	if !errors.Is(err, ErrUserNotFound) {
		t.Errorf("err = %v, want ErrUserNotFound", err)
	}
}

func TestUpdateBirthday(t *testing.T) {
	tests := []struct {
		name      string
		month     *int
		day       *int
		wantErr   string
		wantMonth any
		wantDay   any
	}{
		{name: "valid date", month: intPtr(6), day: intPtr(15), wantMonth: 6, wantDay: 15},
		{name: "feb 29 allowed", month: intPtr(2), day: intPtr(29), wantMonth: 2, wantDay: 29},
		{name: "feb 30 rejected", month: intPtr(2), day: intPtr(30), wantErr: "birthday_day"},
		{name: "april 31 rejected", month: intPtr(4), day: intPtr(31), wantErr: "birthday_day"},
		{name: "month 13 rejected", month: intPtr(13), day: intPtr(1), wantErr: "birthday_month"},
		{name: "month 0 rejected", month: intPtr(0), day: intPtr(1), wantErr: "birthday_month"},
		{name: "nil month clears both", month: nil, day: intPtr(10), wantMonth: nil, wantDay: nil},
		{name: "nil day clears both", month: intPtr(3), day: nil, wantMonth: nil, wantDay: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			userID := uuid.New()
			now := time.Now()
			var gotMonth, gotDay any
			db := &fakeDB{
				QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
					gotMonth, gotDay = args[1], args[2]
					return rowFromValues(userID, "g-1", "a@example.com", "A", "", tt.wantMonth, tt.wantDay, now, now)
				},
			}
			svc := NewUserService(db)

			_, err := svc.UpdateBirthday(context.Background(), userID, tt.month, tt.day)
			if tt.wantErr != "" {
				var vErr *ValidationError
				if !errors.As(err, &vErr) {
					t.Fatalf("err = %v, want ValidationError", err)
				}
				if vErr.Field != tt.wantErr {
					t.Errorf("field = %s, want %s", vErr.Field, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("UpdateBirthday: %v", err)
			}
			if tt.wantMonth == nil {
				if gotMonth != (*int)(nil) || gotDay != (*int)(nil) {
					t.Errorf("stored month/day = %v/%v, want both nil", gotMonth, gotDay)
				}
			}
		})
	}
}

func intPtr(n int) *int { return &n }
