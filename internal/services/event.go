package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/thomasemurphy/circle-cal/internal/models"
)

var ErrEventNotFound = errors.New("event not found")

const eventColumns = `id, user_id, month, day, end_month, end_day, title, color, hidden, created_at, updated_at`

// EventService is ownership-scoped CRUD for calendar events. Days are range
// checked (1-31) but never validated against the month; a Feb 31 event is
// accepted as-is.
type EventService struct {
	db DB
}

func NewEventService(db DB) *EventService {
	return &EventService{db: db}
}

func validateEventFields(month, day *int, endMonth, endDay *int, title *string) error {
	if month != nil && (*month < 1 || *month > 12) {
		return &ValidationError{Field: "month", Reason: fmt.Sprintf("invalid month %d", *month)}
	}
	if day != nil && (*day < 1 || *day > 31) {
		return &ValidationError{Field: "day", Reason: fmt.Sprintf("invalid day %d", *day)}
	}
	if endMonth != nil && (*endMonth < 1 || *endMonth > 12) {
		return &ValidationError{Field: "end_month", Reason: fmt.Sprintf("invalid month %d", *endMonth)}
	}
	if endDay != nil && (*endDay < 1 || *endDay > 31) {
		return &ValidationError{Field: "end_day", Reason: fmt.Sprintf("invalid day %d", *endDay)}
	}
	if title != nil && strings.TrimSpace(*title) == "" {
		return &ValidationError{Field: "title", Reason: "title must not be empty"}
	}
	return nil
}

func (s *EventService) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Event, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+eventColumns+` FROM events WHERE user_id = $1 ORDER BY month, day`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		var e models.Event
		if err := scanEvent(rows, &e); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}

	if events == nil {
		events = []models.Event{}
	}
	return events, nil
}

func (s *EventService) Create(ctx context.Context, userID uuid.UUID, params models.CreateEventParams) (*models.Event, error) {
	if err := validateEventFields(&params.Month, &params.Day, params.EndMonth, params.EndDay, &params.Title); err != nil {
		return nil, err
	}

	e := &models.Event{}
	err := scanEvent(s.db.QueryRow(ctx,
		`INSERT INTO events (user_id, month, day, end_month, end_day, title, color)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+eventColumns,
		userID, params.Month, params.Day, params.EndMonth, params.EndDay, params.Title, params.Color,
	), e)
	if err != nil {
		return nil, fmt.Errorf("creating event: %w", err)
	}
	return e, nil
}

// Update applies only the fields present in params. Omitted fields keep their
// stored values; end_month, end_day and color may be explicitly set to null.
func (s *EventService) Update(ctx context.Context, userID, eventID uuid.UUID, params models.UpdateEventParams) (*models.Event, error) {
	if err := validateEventFields(params.Month, params.Day, params.EndMonth, params.EndDay, params.Title); err != nil {
		return nil, err
	}

	setClauses := []string{"updated_at = NOW()"}
	args := []any{eventID, userID}

	add := func(column string, value any) {
		args = append(args, value)
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if params.Month != nil {
		add("month", *params.Month)
	}
	if params.Day != nil {
		add("day", *params.Day)
	}
	if params.EndMonthSet {
		add("end_month", params.EndMonth)
	}
	if params.EndDaySet {
		add("end_day", params.EndDay)
	}
	if params.Title != nil {
		add("title", *params.Title)
	}
	if params.ColorSet {
		add("color", params.Color)
	}
	if params.Hidden != nil {
		add("hidden", *params.Hidden)
	}

	e := &models.Event{}
	err := scanEvent(s.db.QueryRow(ctx,
		`UPDATE events SET `+strings.Join(setClauses, ", ")+`
		 WHERE id = $1 AND user_id = $2
		 RETURNING `+eventColumns,
		args...,
	), e)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("updating event: %w", err)
	}
	return e, nil
}

func (s *EventService) Delete(ctx context.Context, userID, eventID uuid.UUID) error {
	result, err := s.db.Exec(ctx,
		`DELETE FROM events WHERE id = $1 AND user_id = $2`,
		eventID, userID,
	)
	if err != nil {
		return fmt.Errorf("deleting event: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrEventNotFound
	}
	return nil
}

func scanEvent(row Row, e *models.Event) error {
	return row.Scan(&e.ID, &e.UserID, &e.Month, &e.Day, &e.EndMonth, &e.EndDay,
		&e.Title, &e.Color, &e.Hidden, &e.CreatedAt, &e.UpdatedAt)
}
