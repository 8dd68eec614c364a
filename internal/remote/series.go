package remote

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/dkhoury/meetsync/internal/models"
)

// SeriesStore accesses the remote series collection.
type SeriesStore struct {
	c *Client
}

// Series returns the remote series store.
func (c *Client) Series() *SeriesStore {
	return &SeriesStore{c: c}
}

// NewID returns a fresh series identifier.
func (s *SeriesStore) NewID() string {
	return s.c.NewDocumentID()
}

// GetAll fetches series for the given view.
func (s *SeriesStore) GetAll(ctx context.Context, view models.View, userID string) ([]models.Series, error) {
	path := "/v1/series" + listQuery(map[string]string{
		"view": string(view),
		"user": userID,
	})

	series, err := getJSON[[]models.Series](ctx, s.c, path)
	if err != nil {
		return nil, err
	}

	s.c.logger.Debug("fetched series from remote",
		zap.String("view", string(view)),
		zap.Int("count", len(series)),
	)

	return series, nil
}

// Get fetches a single series by id.
func (s *SeriesStore) Get(ctx context.Context, id string) (*models.Series, error) {
	series, err := getJSON[models.Series](ctx, s.c, "/v1/series/"+id)
	if err != nil {
		return nil, err
	}
	return &series, nil
}

// Add creates a new series document.
func (s *SeriesStore) Add(ctx context.Context, series *models.Series) error {
	return s.c.send(ctx, http.MethodPost, "/v1/series", series)
}

// Edit replaces the series document with the given id.
func (s *SeriesStore) Edit(ctx context.Context, id string, series *models.Series) error {
	return s.c.send(ctx, http.MethodPut, "/v1/series/"+id, series)
}

// Delete removes the series document with the given id.
func (s *SeriesStore) Delete(ctx context.Context, id string) error {
	return s.c.send(ctx, http.MethodDelete, "/v1/series/"+id, nil)
}

// GetCommon fetches all series the given user participates in.
func (s *SeriesStore) GetCommon(ctx context.Context, userID string) ([]models.Series, error) {
	path := "/v1/series" + listQuery(map[string]string{"participant": userID})
	return getJSON[[]models.Series](ctx, s.c, path)
}
