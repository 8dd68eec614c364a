package repository

import (
	"sync"

	"github.com/dkhoury/meetsync/internal/models"
)

// Categorized is implemented by entities that carry a category tag.
type Categorized interface {
	CategoryTag() models.Category
}

// FilteredView tracks the user's category toggles and filters lists
// accordingly. It starts with every category selected and performs no I/O;
// it composes after a repository read and is independent of connectivity.
type FilteredView struct {
	mu       sync.RWMutex
	selected map[models.Category]bool
}

// NewFilteredView creates a view with all categories selected.
func NewFilteredView() *FilteredView {
	v := &FilteredView{selected: make(map[models.Category]bool)}
	v.SetAll(true)
	return v
}

// SetAll selects or deselects every category.
func (v *FilteredView) SetAll(selected bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, c := range models.AllCategories() {
		v.selected[c] = selected
	}
}

// Toggle flips the selection of a single category.
func (v *FilteredView) Toggle(category models.Category) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.selected[category] = !v.selected[category]
}

// IsSelected reports whether the category is currently selected.
func (v *FilteredView) IsSelected(category models.Category) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.selected[category]
}

// AllSelected reports whether every category is selected.
func (v *FilteredView) AllSelected() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	for _, c := range models.AllCategories() {
		if !v.selected[c] {
			return false
		}
	}
	return true
}

// Apply keeps the items whose category is selected. With every category
// selected the input passes through unchanged, unknown categories included.
func Apply[T Categorized](v *FilteredView, items []T) []T {
	if v.AllSelected() {
		return items
	}

	v.mu.RLock()
	defer v.mu.RUnlock()

	result := make([]T, 0, len(items))
	for _, item := range items {
		if v.selected[item.CategoryTag()] {
			result = append(result, item)
		}
	}
	return result
}
