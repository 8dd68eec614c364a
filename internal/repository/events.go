package repository

import (
	"time"

	"go.uber.org/zap"

	"github.com/dkhoury/meetsync/internal/connectivity"
	"github.com/dkhoury/meetsync/internal/models"
)

// EventRepository is the offline-first repository for events.
type EventRepository struct {
	*Repository[models.Event]
}

// NewEventRepository creates the event repository.
func NewEventRepository(
	remoteStore RemoteStore[models.Event],
	localStore LocalStore[models.Event],
	monitor connectivity.Monitor,
	user UserProvider,
	timeout time.Duration,
	logger *zap.Logger,
) *EventRepository {
	return &EventRepository{
		Repository: New(eventAdapter(), remoteStore, localStore, monitor, user, timeout, logger),
	}
}

func eventAdapter() Adapter[models.Event] {
	return Adapter[models.Event]{
		Kind: "event",
		ID: func(e *models.Event) string {
			return e.ID
		},
		IsParticipant: func(e *models.Event, userID string) bool {
			return e.HasParticipant(userID)
		},
		Prepare: func(e *models.Event) {
			e.EnsureOwnerParticipates()
		},
		Validate: func(e *models.Event) error {
			return e.Validate()
		},
		Views: map[models.View]ViewSpec[models.Event]{
			models.ViewOverview: {
				FullSet: true,
				Match: func(e *models.Event, userID string, _ time.Time) bool {
					return e.HasParticipant(userID)
				},
			},
			models.ViewHistory: {
				FullSet: true,
				Match: func(e *models.Event, userID string, now time.Time) bool {
					return e.HasParticipant(userID) && e.IsExpired(now)
				},
				Less: func(a, b *models.Event) bool {
					return a.Start.After(b.Start)
				},
			},
			models.ViewSearch: {
				Match: func(e *models.Event, userID string, now time.Time) bool {
					return e.Visibility == models.VisibilityPublic &&
						e.IsUpcoming(now) &&
						!e.HasParticipant(userID) &&
						e.OwnerID != userID
				},
			},
			models.ViewMap: {
				Match: func(e *models.Event, userID string, now time.Time) bool {
					if e.Location == nil {
						return false
					}
					return e.IsUpcoming(now) || (e.IsActive(now) && e.HasParticipant(userID))
				},
			},
		},
	}
}
