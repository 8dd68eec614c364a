package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dkhoury/meetsync/internal/models"
)

func categorizedEvents() []models.Event {
	return []models.Event{
		{ID: "e1", Category: models.CategorySports, Start: time.Now()},
		{ID: "e2", Category: models.CategoryFood, Start: time.Now()},
		{ID: "e3", Category: models.CategorySports, Start: time.Now()},
	}
}

func TestFilteredViewDefaultsToAllSelected(t *testing.T) {
	v := NewFilteredView()

	assert.True(t, v.AllSelected())
	for _, c := range models.AllCategories() {
		assert.True(t, v.IsSelected(c))
	}

	items := categorizedEvents()
	assert.Equal(t, items, Apply(v, items))
}

func TestFilteredViewToggleFilters(t *testing.T) {
	v := NewFilteredView()
	v.Toggle(models.CategorySports)

	got := Apply(v, categorizedEvents())
	assert.Len(t, got, 1)
	assert.Equal(t, "e2", got[0].ID)
}

func TestFilteredViewToggleBackRestores(t *testing.T) {
	v := NewFilteredView()
	v.Toggle(models.CategoryFood)
	v.Toggle(models.CategoryFood)

	assert.True(t, v.AllSelected())
	assert.Len(t, Apply(v, categorizedEvents()), 3)
}

func TestFilteredViewSetAllDeselects(t *testing.T) {
	v := NewFilteredView()
	v.SetAll(false)

	assert.False(t, v.AllSelected())
	assert.Empty(t, Apply(v, categorizedEvents()))
}

func TestFilteredViewAppliesToGroups(t *testing.T) {
	v := NewFilteredView()
	v.Toggle(models.CategoryGames)

	groups := []models.Group{
		{ID: "g1", Category: models.CategoryGames},
		{ID: "g2", Category: models.CategoryMusic},
	}

	got := Apply(v, groups)
	assert.Len(t, got, 1)
	assert.Equal(t, "g2", got[0].ID)
}
