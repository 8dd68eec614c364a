package models

import (
	"fmt"
	"time"
)

// Series represents a recurring sequence of events signed up for as a whole.
// LastEventEnd is maintained alongside the constituent event list so that
// series-level expiry can be computed without loading every event.
type Series struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Start          time.Time  `json:"start"`
	ParticipantIDs []string   `json:"participant_ids"`
	Capacity       int        `json:"capacity"`
	Visibility     Visibility `json:"visibility"`
	OwnerID        string     `json:"owner_id"`
	EventIDs       []string   `json:"event_ids"`
	LastEventEnd   time.Time  `json:"last_event_end"`
}

// IsExpired reports whether the final event of the series has ended at now.
func (s *Series) IsExpired(now time.Time) bool {
	return now.After(s.LastEventEnd)
}

// IsUpcoming reports whether the series starts after now.
func (s *Series) IsUpcoming(now time.Time) bool {
	return s.Start.After(now)
}

// IsActive reports whether the series has started but not yet ended at now.
func (s *Series) IsActive(now time.Time) bool {
	return !s.Start.After(now) && now.Before(s.LastEventEnd)
}

// HasParticipant reports whether userID is signed up for the series.
func (s *Series) HasParticipant(userID string) bool {
	return containsID(s.ParticipantIDs, userID)
}

// EnsureOwnerParticipates adds the owner to the participant list if missing.
func (s *Series) EnsureOwnerParticipates() {
	if s.OwnerID != "" && !s.HasParticipant(s.OwnerID) {
		s.ParticipantIDs = append(s.ParticipantIDs, s.OwnerID)
	}
}

// Validate checks the series for structural problems before it is written.
func (s *Series) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("series id is required")
	}
	if s.Title == "" {
		return fmt.Errorf("series title is required")
	}
	if s.OwnerID == "" {
		return fmt.Errorf("series owner is required")
	}
	if s.Capacity < 0 {
		return fmt.Errorf("series capacity must not be negative")
	}
	if s.Visibility != VisibilityPublic && s.Visibility != VisibilityPrivate {
		return fmt.Errorf("invalid series visibility: %s", s.Visibility)
	}
	if s.LastEventEnd.Before(s.Start) {
		return fmt.Errorf("series last event end precedes its start")
	}
	return nil
}
