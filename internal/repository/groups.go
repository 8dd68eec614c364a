package repository

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/dkhoury/meetsync/internal/connectivity"
	"github.com/dkhoury/meetsync/internal/models"
)

// MembershipStore is the remote contract for group membership mutations.
type MembershipStore interface {
	Join(ctx context.Context, groupID, userID string) (models.MembershipResult, error)
	Leave(ctx context.Context, groupID, userID string) (models.MembershipResult, error)
}

// GroupRepository is the offline-first repository for groups. On top of the
// generic engine it offers join/leave membership mutations.
type GroupRepository struct {
	*Repository[models.Group]
	membership MembershipStore
}

// NewGroupRepository creates the group repository.
func NewGroupRepository(
	remoteStore RemoteStore[models.Group],
	membership MembershipStore,
	localStore LocalStore[models.Group],
	monitor connectivity.Monitor,
	user UserProvider,
	timeout time.Duration,
	logger *zap.Logger,
) *GroupRepository {
	return &GroupRepository{
		Repository: New(groupAdapter(), remoteStore, localStore, monitor, user, timeout, logger),
		membership: membership,
	}
}

// Join adds the current user to the group. After a successful remote join
// the cached row is refreshed best-effort; a failed refresh keeps the stale
// row, since the membership write itself is already durable.
func (r *GroupRepository) Join(ctx context.Context, groupID string) (models.MembershipResult, error) {
	userID, err := r.user.CurrentUserID()
	if err != nil {
		return 0, err
	}

	if !r.monitor.IsOnline() {
		return 0, ErrOfflineUnavailable
	}

	var result models.MembershipResult
	if err := r.withTimeout(ctx, func(ctx context.Context) error {
		var err error
		result, err = r.membership.Join(ctx, groupID, userID)
		return err
	}); err != nil {
		return 0, err
	}

	if result == models.MembershipOK {
		r.refreshRow(ctx, groupID, false)
	}

	r.logger.Debug("group join finished",
		zap.String("group_id", groupID),
		zap.Stringer("result", result),
	)

	return result, nil
}

// Leave removes the current user from the group. After a successful remote
// leave the cached row is refreshed; if the refresh fails the row is
// evicted, because serving the stale pre-leave copy would misreport the
// user's own membership.
func (r *GroupRepository) Leave(ctx context.Context, groupID string) (models.MembershipResult, error) {
	userID, err := r.user.CurrentUserID()
	if err != nil {
		return 0, err
	}

	if !r.monitor.IsOnline() {
		return 0, ErrOfflineUnavailable
	}

	var result models.MembershipResult
	if err := r.withTimeout(ctx, func(ctx context.Context) error {
		var err error
		result, err = r.membership.Leave(ctx, groupID, userID)
		return err
	}); err != nil {
		return 0, err
	}

	if result == models.MembershipOK {
		r.refreshRow(ctx, groupID, true)
	}

	r.logger.Debug("group leave finished",
		zap.String("group_id", groupID),
		zap.Stringer("result", result),
	)

	return result, nil
}

// Groups have no schedule, so only the overview and search views exist.
func groupAdapter() Adapter[models.Group] {
	return Adapter[models.Group]{
		Kind: "group",
		ID: func(g *models.Group) string {
			return g.ID
		},
		IsParticipant: func(g *models.Group, userID string) bool {
			return g.HasMember(userID)
		},
		Prepare: func(g *models.Group) {
			// The owner belongs to their own group, mirroring the
			// owner-participates rule for events and series.
			if g.OwnerID != "" && !g.HasMember(g.OwnerID) {
				g.MemberIDs = append(g.MemberIDs, g.OwnerID)
			}
		},
		Validate: func(g *models.Group) error {
			return g.Validate()
		},
		Views: map[models.View]ViewSpec[models.Group]{
			models.ViewOverview: {
				FullSet: true,
				Match: func(g *models.Group, userID string, _ time.Time) bool {
					return g.HasMember(userID)
				},
			},
			models.ViewSearch: {
				Match: func(g *models.Group, userID string, _ time.Time) bool {
					return !g.HasMember(userID) && g.OwnerID != userID
				},
			},
		},
	}
}
