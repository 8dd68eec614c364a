package remote

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/dkhoury/meetsync/internal/models"
)

// EventStore accesses the remote events collection.
type EventStore struct {
	c *Client
}

// Events returns the remote event store.
func (c *Client) Events() *EventStore {
	return &EventStore{c: c}
}

// NewID returns a fresh event identifier.
func (s *EventStore) NewID() string {
	return s.c.NewDocumentID()
}

// GetAll fetches events for the given view. The server applies what it can
// of the view's filter; callers apply the full semantics afterwards.
func (s *EventStore) GetAll(ctx context.Context, view models.View, userID string) ([]models.Event, error) {
	path := "/v1/events" + listQuery(map[string]string{
		"view": string(view),
		"user": userID,
	})

	events, err := getJSON[[]models.Event](ctx, s.c, path)
	if err != nil {
		return nil, err
	}

	s.c.logger.Debug("fetched events from remote",
		zap.String("view", string(view)),
		zap.Int("count", len(events)),
	)

	return events, nil
}

// Get fetches a single event by id.
func (s *EventStore) Get(ctx context.Context, id string) (*models.Event, error) {
	event, err := getJSON[models.Event](ctx, s.c, "/v1/events/"+id)
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// Add creates a new event document.
func (s *EventStore) Add(ctx context.Context, event *models.Event) error {
	return s.c.send(ctx, http.MethodPost, "/v1/events", event)
}

// Edit replaces the event document with the given id.
func (s *EventStore) Edit(ctx context.Context, id string, event *models.Event) error {
	return s.c.send(ctx, http.MethodPut, "/v1/events/"+id, event)
}

// Delete removes the event document with the given id.
func (s *EventStore) Delete(ctx context.Context, id string) error {
	return s.c.send(ctx, http.MethodDelete, "/v1/events/"+id, nil)
}

// GetCommon fetches all events the given user participates in. The caller
// narrows the result to the full requested user set in memory.
func (s *EventStore) GetCommon(ctx context.Context, userID string) ([]models.Event, error) {
	path := "/v1/events" + listQuery(map[string]string{"participant": userID})
	return getJSON[[]models.Event](ctx, s.c, path)
}
