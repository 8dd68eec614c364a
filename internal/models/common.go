// Package models defines the entities mirrored between the remote document
// store and the on-device cache.
package models

// Visibility controls who can discover an event or series.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// Category is the user-facing category tag shared by events and groups.
type Category string

const (
	CategorySports  Category = "sports"
	CategoryFood    Category = "food"
	CategoryCulture Category = "culture"
	CategoryMusic   Category = "music"
	CategoryOutdoor Category = "outdoor"
	CategoryGames   Category = "games"
	CategoryOther   Category = "other"
)

// AllCategories returns every known category in display order.
func AllCategories() []Category {
	return []Category{
		CategorySports,
		CategoryFood,
		CategoryCulture,
		CategoryMusic,
		CategoryOutdoor,
		CategoryGames,
		CategoryOther,
	}
}

// GeoPoint is a WGS84 coordinate attached to an event.
type GeoPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// containsID reports whether id occurs in ids.
func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
