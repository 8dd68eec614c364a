package repository

import (
	"time"

	"go.uber.org/zap"

	"github.com/dkhoury/meetsync/internal/connectivity"
	"github.com/dkhoury/meetsync/internal/models"
)

// SeriesRepository is the offline-first repository for event series.
type SeriesRepository struct {
	*Repository[models.Series]
}

// NewSeriesRepository creates the series repository.
func NewSeriesRepository(
	remoteStore RemoteStore[models.Series],
	localStore LocalStore[models.Series],
	monitor connectivity.Monitor,
	user UserProvider,
	timeout time.Duration,
	logger *zap.Logger,
) *SeriesRepository {
	return &SeriesRepository{
		Repository: New(seriesAdapter(), remoteStore, localStore, monitor, user, timeout, logger),
	}
}

// Series carry no location, so there is no map view for them.
func seriesAdapter() Adapter[models.Series] {
	return Adapter[models.Series]{
		Kind: "series",
		ID: func(s *models.Series) string {
			return s.ID
		},
		IsParticipant: func(s *models.Series, userID string) bool {
			return s.HasParticipant(userID)
		},
		Prepare: func(s *models.Series) {
			s.EnsureOwnerParticipates()
		},
		Validate: func(s *models.Series) error {
			return s.Validate()
		},
		Views: map[models.View]ViewSpec[models.Series]{
			models.ViewOverview: {
				FullSet: true,
				Match: func(s *models.Series, userID string, _ time.Time) bool {
					return s.HasParticipant(userID)
				},
			},
			models.ViewHistory: {
				FullSet: true,
				Match: func(s *models.Series, userID string, now time.Time) bool {
					return s.HasParticipant(userID) && s.IsExpired(now)
				},
				Less: func(a, b *models.Series) bool {
					return a.Start.After(b.Start)
				},
			},
			models.ViewSearch: {
				Match: func(s *models.Series, userID string, now time.Time) bool {
					return s.Visibility == models.VisibilityPublic &&
						s.IsUpcoming(now) &&
						!s.HasParticipant(userID) &&
						s.OwnerID != userID
				},
			},
		},
	}
}
