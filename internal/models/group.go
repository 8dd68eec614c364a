package models

import "fmt"

// Group represents a community of users that organizes events and series.
type Group struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Category    Category `json:"category"`
	Description string   `json:"description"`
	OwnerID     string   `json:"owner_id"`
	MemberIDs   []string `json:"member_ids"`
	EventIDs    []string `json:"event_ids"`
	SeriesIDs   []string `json:"series_ids"`
	PhotoRef    string   `json:"photo_ref,omitempty"`
}

// CategoryTag returns the group's category.
func (g Group) CategoryTag() Category {
	return g.Category
}

// MemberCount returns the number of members. It is always derived from the
// member list, never stored independently.
func (g *Group) MemberCount() int {
	return len(g.MemberIDs)
}

// HasMember reports whether userID belongs to the group.
func (g *Group) HasMember(userID string) bool {
	return containsID(g.MemberIDs, userID)
}

// Validate checks the group for structural problems before it is written.
func (g *Group) Validate() error {
	if g.ID == "" {
		return fmt.Errorf("group id is required")
	}
	if g.Name == "" {
		return fmt.Errorf("group name is required")
	}
	if g.OwnerID == "" {
		return fmt.Errorf("group owner is required")
	}
	return nil
}
