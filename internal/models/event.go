package models

import (
	"time"

	"github.com/google/uuid"
)

// Event is a calendar entry pinned to a month/day rather than a full date.
// The day is intentionally not validated against the month.
type Event struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"-"`
	Month     int       `json:"month"`
	Day       int       `json:"day"`
	EndMonth  *int      `json:"end_month"`
	EndDay    *int      `json:"end_day"`
	Title     string    `json:"title"`
	Color     *string   `json:"color"`
	Hidden    bool      `json:"hidden"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CreateEventParams struct {
	Month    int
	Day      int
	EndMonth *int
	EndDay   *int
	Title    string
	Color    *string
}

// UpdateEventParams distinguishes "field omitted" from "field explicitly set
// to null": a nil pointer means untouched, while the Set flags mark fields
// that were present in the request even when their value was null.
type UpdateEventParams struct {
	Month       *int
	Day         *int
	EndMonth    *int
	EndMonthSet bool
	EndDay      *int
	EndDaySet   bool
	Title       *string
	Color       *string
	ColorSet    bool
	Hidden      *bool
}
