package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/google/uuid"

	"github.com/thomasemurphy/circle-cal/internal/models"
	"github.com/thomasemurphy/circle-cal/internal/services"
)

type EventHandler struct {
	eventService services.EventServiceInterface
}

func NewEventHandler(eventService services.EventServiceInterface) *EventHandler {
	return &EventHandler{eventService: eventService}
}

type CreateEventRequest struct {
	Month    int     `json:"month"`
	Day      int     `json:"day"`
	EndMonth *int    `json:"end_month"`
	EndDay   *int    `json:"end_day"`
	Title    string  `json:"title"`
	Color    *string `json:"color"`
}

type EventsResponse struct {
	Events []models.Event `json:"events"`
}

func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	events, err := h.eventService.ListByUser(r.Context(), user.ID)
	if err != nil {
		log.Printf("Error listing events: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, EventsResponse{Events: events})
}

func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req CreateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	event, err := h.eventService.Create(r.Context(), user.ID, models.CreateEventParams{
		Month:    req.Month,
		Day:      req.Day,
		EndMonth: req.EndMonth,
		EndDay:   req.EndDay,
		Title:    req.Title,
		Color:    req.Color,
	})
	var vErr *services.ValidationError
	if errors.As(err, &vErr) {
		writeError(w, http.StatusBadRequest, vErr.Error())
		return
	}
	if err != nil {
		log.Printf("Error creating event: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, event)
}

func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	eventID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid event ID")
		return
	}

	params, err := decodeEventUpdate(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	event, err := h.eventService.Update(r.Context(), user.ID, eventID, params)
	if errors.Is(err, services.ErrEventNotFound) {
		writeError(w, http.StatusNotFound, "Event not found")
		return
	}
	var vErr *services.ValidationError
	if errors.As(err, &vErr) {
		writeError(w, http.StatusBadRequest, vErr.Error())
		return
	}
	if err != nil {
		log.Printf("Error updating event: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, event)
}

func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	eventID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid event ID")
		return
	}

	err = h.eventService.Delete(r.Context(), user.ID, eventID)
	if errors.Is(err, services.ErrEventNotFound) {
		writeError(w, http.StatusNotFound, "Event not found")
		return
	}
	if err != nil {
		log.Printf("Error deleting event: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// decodeEventUpdate decodes a partial update, recording which fields were
// present so an explicit null can be told apart from an omitted field.
func decodeEventUpdate(body io.Reader) (models.UpdateEventParams, error) {
	var params models.UpdateEventParams

	var raw map[string]json.RawMessage
	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		return params, err
	}

	if v, ok := raw["month"]; ok {
		if err := json.Unmarshal(v, &params.Month); err != nil {
			return params, err
		}
	}
	if v, ok := raw["day"]; ok {
		if err := json.Unmarshal(v, &params.Day); err != nil {
			return params, err
		}
	}
	if v, ok := raw["end_month"]; ok {
		params.EndMonthSet = true
		if err := json.Unmarshal(v, &params.EndMonth); err != nil {
			return params, err
		}
	}
	if v, ok := raw["end_day"]; ok {
		params.EndDaySet = true
		if err := json.Unmarshal(v, &params.EndDay); err != nil {
			return params, err
		}
	}
	if v, ok := raw["title"]; ok {
		if err := json.Unmarshal(v, &params.Title); err != nil {
			return params, err
		}
	}
	if v, ok := raw["color"]; ok {
		params.ColorSet = true
		if err := json.Unmarshal(v, &params.Color); err != nil {
			return params, err
		}
	}
	if v, ok := raw["hidden"]; ok {
		if err := json.Unmarshal(v, &params.Hidden); err != nil {
			return params, err
		}
	}

	return params, nil
}
