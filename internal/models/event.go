package models

import (
	"fmt"
	"time"
)

// Event represents a single scheduled meetup.
type Event struct {
	ID              string     `json:"id"`
	Category        Category   `json:"category"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	Location        *GeoPoint  `json:"location,omitempty"`
	Start           time.Time  `json:"start"`
	DurationMinutes int        `json:"duration_minutes"`
	ParticipantIDs  []string   `json:"participant_ids"`
	Capacity        int        `json:"capacity"`
	Visibility      Visibility `json:"visibility"`
	OwnerID         string     `json:"owner_id"`
}

// CategoryTag returns the event's category.
func (e Event) CategoryTag() Category {
	return e.Category
}

// End returns the instant the event finishes.
func (e *Event) End() time.Time {
	return e.Start.Add(time.Duration(e.DurationMinutes) * time.Minute)
}

// IsExpired reports whether the event has already ended at now.
func (e *Event) IsExpired(now time.Time) bool {
	return now.After(e.End())
}

// IsActive reports whether the event is running at now.
func (e *Event) IsActive(now time.Time) bool {
	return !e.Start.After(now) && now.Before(e.End())
}

// IsUpcoming reports whether the event starts after now.
func (e *Event) IsUpcoming(now time.Time) bool {
	return e.Start.After(now)
}

// HasParticipant reports whether userID is signed up for the event.
func (e *Event) HasParticipant(userID string) bool {
	return containsID(e.ParticipantIDs, userID)
}

// EnsureOwnerParticipates adds the owner to the participant list if missing.
// The owner is implicitly a participant of their own event.
func (e *Event) EnsureOwnerParticipates() {
	if e.OwnerID != "" && !e.HasParticipant(e.OwnerID) {
		e.ParticipantIDs = append(e.ParticipantIDs, e.OwnerID)
	}
}

// Validate checks the event for structural problems before it is written.
func (e *Event) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("event id is required")
	}
	if e.Title == "" {
		return fmt.Errorf("event title is required")
	}
	if e.OwnerID == "" {
		return fmt.Errorf("event owner is required")
	}
	if e.DurationMinutes <= 0 {
		return fmt.Errorf("event duration must be positive")
	}
	if e.Capacity < 0 {
		return fmt.Errorf("event capacity must not be negative")
	}
	if e.Capacity > 0 && len(e.ParticipantIDs) > e.Capacity {
		return fmt.Errorf("event has %d participants but capacity %d", len(e.ParticipantIDs), e.Capacity)
	}
	if e.Visibility != VisibilityPublic && e.Visibility != VisibilityPrivate {
		return fmt.Errorf("invalid event visibility: %s", e.Visibility)
	}
	return nil
}
