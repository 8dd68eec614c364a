package remote

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/dkhoury/meetsync/internal/models"
)

// GroupStore accesses the remote groups collection.
type GroupStore struct {
	c *Client
}

// Groups returns the remote group store.
func (c *Client) Groups() *GroupStore {
	return &GroupStore{c: c}
}

// NewID returns a fresh group identifier.
func (s *GroupStore) NewID() string {
	return s.c.NewDocumentID()
}

// GetAll fetches groups for the given view.
func (s *GroupStore) GetAll(ctx context.Context, view models.View, userID string) ([]models.Group, error) {
	path := "/v1/groups" + listQuery(map[string]string{
		"view": string(view),
		"user": userID,
	})

	groups, err := getJSON[[]models.Group](ctx, s.c, path)
	if err != nil {
		return nil, err
	}

	s.c.logger.Debug("fetched groups from remote",
		zap.String("view", string(view)),
		zap.Int("count", len(groups)),
	)

	return groups, nil
}

// Get fetches a single group by id.
func (s *GroupStore) Get(ctx context.Context, id string) (*models.Group, error) {
	group, err := getJSON[models.Group](ctx, s.c, "/v1/groups/"+id)
	if err != nil {
		return nil, err
	}
	return &group, nil
}

// Add creates a new group document.
func (s *GroupStore) Add(ctx context.Context, group *models.Group) error {
	return s.c.send(ctx, http.MethodPost, "/v1/groups", group)
}

// Edit replaces the group document with the given id.
func (s *GroupStore) Edit(ctx context.Context, id string, group *models.Group) error {
	return s.c.send(ctx, http.MethodPut, "/v1/groups/"+id, group)
}

// Delete removes the group document with the given id.
func (s *GroupStore) Delete(ctx context.Context, id string) error {
	return s.c.send(ctx, http.MethodDelete, "/v1/groups/"+id, nil)
}

// Join adds userID to the group's member list.
func (s *GroupStore) Join(ctx context.Context, groupID, userID string) (models.MembershipResult, error) {
	err := s.c.send(ctx, http.MethodPost, memberPath(groupID, userID), nil)
	switch {
	case err == nil:
		return models.MembershipOK, nil
	case IsConflict(err):
		return models.MembershipAlreadyMember, nil
	case IsNotFound(err):
		return models.MembershipNotFound, nil
	default:
		return 0, fmt.Errorf("failed to join group: %w", err)
	}
}

// Leave removes userID from the group's member list.
func (s *GroupStore) Leave(ctx context.Context, groupID, userID string) (models.MembershipResult, error) {
	err := s.c.send(ctx, http.MethodDelete, memberPath(groupID, userID), nil)
	switch {
	case err == nil:
		return models.MembershipOK, nil
	case IsConflict(err):
		return models.MembershipNotAMember, nil
	case IsNotFound(err):
		return models.MembershipNotFound, nil
	default:
		return 0, fmt.Errorf("failed to leave group: %w", err)
	}
}

// GetCommon fetches all groups the given user belongs to.
func (s *GroupStore) GetCommon(ctx context.Context, userID string) ([]models.Group, error) {
	path := "/v1/groups" + listQuery(map[string]string{"member": userID})
	return getJSON[[]models.Group](ctx, s.c, path)
}

func memberPath(groupID, userID string) string {
	return "/v1/groups/" + groupID + "/members/" + userID
}
