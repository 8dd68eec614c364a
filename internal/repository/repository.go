// Package repository provides the offline-first cached repositories for
// events, groups and series. Reads go to the remote store when online and
// fall back to the local cache; writes require connectivity and mirror into
// the cache only after the remote store has accepted them.
package repository

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/dkhoury/meetsync/internal/connectivity"
	"github.com/dkhoury/meetsync/internal/models"
)

// RemoteStore is the per-entity contract of the remote document store.
type RemoteStore[T any] interface {
	NewID() string
	GetAll(ctx context.Context, view models.View, userID string) ([]T, error)
	Get(ctx context.Context, id string) (*T, error)
	Add(ctx context.Context, entity *T) error
	Edit(ctx context.Context, id string, entity *T) error
	Delete(ctx context.Context, id string) error
	GetCommon(ctx context.Context, userID string) ([]T, error)
}

// LocalStore is the per-entity contract of the on-device cache.
type LocalStore[T any] interface {
	GetAll(ctx context.Context) ([]T, error)
	Get(ctx context.Context, id string) (*T, error)
	Upsert(ctx context.Context, entity *T) error
	UpsertBatch(ctx context.Context, entities []T) error
	ReplaceAll(ctx context.Context, entities []T) error
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) error
}

// UserProvider supplies the signed-in user's identifier.
type UserProvider interface {
	CurrentUserID() (string, error)
}

// UserProviderFunc adapts a function to the UserProvider interface.
type UserProviderFunc func() (string, error)

// CurrentUserID implements UserProvider.
func (f UserProviderFunc) CurrentUserID() (string, error) {
	return f()
}

// StaticUser is a fixed-identity UserProvider.
type StaticUser string

// CurrentUserID implements UserProvider.
func (u StaticUser) CurrentUserID() (string, error) {
	if u == "" {
		return "", ErrNoCurrentUser
	}
	return string(u), nil
}

// ViewSpec describes one view's filter semantics for an entity kind.
// Match is evaluated client-side on both the online and offline paths so
// the two agree; the remote query only narrows the candidate set.
type ViewSpec[T any] struct {
	// FullSet marks views whose remote result is the complete set of the
	// user's items. Only those may replace the whole cache; all other
	// views merge without deleting unrelated rows.
	FullSet bool
	Match   func(entity *T, userID string, now time.Time) bool
	Less    func(a, b *T) bool
}

// Adapter captures the per-entity knowledge the generic engine needs.
type Adapter[T any] struct {
	Kind          string
	ID            func(entity *T) string
	IsParticipant func(entity *T, userID string) bool
	Prepare       func(entity *T)
	Validate      func(entity *T) error
	Views         map[models.View]ViewSpec[T]
}

// Repository is the generic offline-first cached repository engine.
type Repository[T any] struct {
	adapter Adapter[T]
	remote  RemoteStore[T]
	local   LocalStore[T]
	monitor connectivity.Monitor
	user    UserProvider
	timeout time.Duration
	logger  *zap.Logger
	now     func() time.Time
}

// New creates a cached repository from explicit collaborators. Timeout
// bounds every remote call; reads fall back to cache when it expires and
// writes fail.
func New[T any](
	adapter Adapter[T],
	remoteStore RemoteStore[T],
	localStore LocalStore[T],
	monitor connectivity.Monitor,
	user UserProvider,
	timeout time.Duration,
	logger *zap.Logger,
) *Repository[T] {
	return &Repository[T]{
		adapter: adapter,
		remote:  remoteStore,
		local:   localStore,
		monitor: monitor,
		user:    user,
		timeout: timeout,
		logger:  logger.With(zap.String("kind", adapter.Kind)),
		now:     time.Now,
	}
}

// SetClock overrides the time source (used for testing).
func (r *Repository[T]) SetClock(now func() time.Time) {
	r.now = now
}

// NewID returns a fresh identifier from the remote store's generator.
func (r *Repository[T]) NewID() string {
	return r.remote.NewID()
}

// GetAll returns the entities visible in the given view. Online it fetches
// from the remote store and mirrors the result into the cache; offline, or
// on remote failure or timeout, it answers from the cache. The view's
// filter is applied client-side on both paths.
func (r *Repository[T]) GetAll(ctx context.Context, view models.View) ([]T, error) {
	spec, ok := r.adapter.Views[view]
	if !ok {
		return nil, fmt.Errorf("view %q is not supported for %s", view, r.adapter.Kind)
	}

	userID, err := r.user.CurrentUserID()
	if err != nil {
		return nil, fmt.Errorf("cannot resolve %s view %q: %w", r.adapter.Kind, view, err)
	}

	if r.monitor.IsOnline() {
		fetched, err := r.remoteGetAll(ctx, view, userID)
		if err == nil {
			r.mirrorList(ctx, spec, fetched)
			return r.applyView(spec, fetched, userID), nil
		}
		r.logger.Warn("remote list fetch failed, falling back to cache",
			zap.String("view", string(view)),
			zap.Error(err),
		)
	}

	cached, err := r.local.GetAll(ctx)
	if err != nil {
		r.logger.Error("cache read failed with remote unavailable", zap.Error(err))
		return nil, ErrOfflineUnavailable
	}

	return r.applyView(spec, cached, userID), nil
}

// Get returns the entity with the given id. Online it fetches from the
// remote store and refreshes the cached row; offline, or on transient
// remote failure, it returns the cached row or ErrOfflineUnavailable.
// An authoritative remote 404 evicts the cached row and surfaces
// ErrNotFound.
func (r *Repository[T]) Get(ctx context.Context, id string) (*T, error) {
	if r.monitor.IsOnline() {
		entity, err := r.remoteGet(ctx, id)
		if err == nil {
			r.recacheRow(ctx, id, entity)
			return entity, nil
		}
		if isRemoteNotFound(err) {
			if delErr := r.local.Delete(ctx, id); delErr != nil {
				r.logger.Warn("failed to evict deleted row from cache",
					zap.String("id", id), zap.Error(delErr))
			}
			return nil, ErrNotFound
		}
		r.logger.Warn("remote get failed, falling back to cache",
			zap.String("id", id),
			zap.Error(err),
		)
	}

	cached, err := r.local.Get(ctx, id)
	if err != nil || cached == nil {
		if err != nil {
			r.logger.Debug("no cached row available", zap.String("id", id), zap.Error(err))
		}
		return nil, ErrOfflineUnavailable
	}

	return cached, nil
}

// Add creates the entity remotely, then mirrors it into the cache.
// It fails fast with ErrOfflineUnavailable when offline: the cache never
// originates data.
func (r *Repository[T]) Add(ctx context.Context, entity *T) error {
	if r.adapter.Prepare != nil {
		r.adapter.Prepare(entity)
	}
	if r.adapter.Validate != nil {
		if err := r.adapter.Validate(entity); err != nil {
			return fmt.Errorf("invalid %s: %w", r.adapter.Kind, err)
		}
	}

	if !r.monitor.IsOnline() {
		return ErrOfflineUnavailable
	}

	if err := r.withTimeout(ctx, func(ctx context.Context) error {
		return r.remote.Add(ctx, entity)
	}); err != nil {
		return err
	}

	r.mirrorRow(ctx, entity)
	return nil
}

// Edit updates the entity remotely, then mirrors it into the cache.
func (r *Repository[T]) Edit(ctx context.Context, id string, entity *T) error {
	if r.adapter.Prepare != nil {
		r.adapter.Prepare(entity)
	}
	if r.adapter.Validate != nil {
		if err := r.adapter.Validate(entity); err != nil {
			return fmt.Errorf("invalid %s: %w", r.adapter.Kind, err)
		}
	}

	if !r.monitor.IsOnline() {
		return ErrOfflineUnavailable
	}

	if err := r.withTimeout(ctx, func(ctx context.Context) error {
		return r.remote.Edit(ctx, id, entity)
	}); err != nil {
		if isRemoteNotFound(err) {
			return ErrNotFound
		}
		return err
	}

	r.mirrorRow(ctx, entity)
	return nil
}

// Delete removes the entity remotely, then purges the cached row.
func (r *Repository[T]) Delete(ctx context.Context, id string) error {
	if !r.monitor.IsOnline() {
		return ErrOfflineUnavailable
	}

	if err := r.withTimeout(ctx, func(ctx context.Context) error {
		return r.remote.Delete(ctx, id)
	}); err != nil {
		if isRemoteNotFound(err) {
			return ErrNotFound
		}
		return err
	}

	if err := r.local.Delete(ctx, id); err != nil {
		// The remote delete already succeeded; staleness here is
		// bounded by the next full-set sync.
		r.logger.Warn("failed to purge cached row after delete",
			zap.String("id", id), zap.Error(err))
	}

	return nil
}

// GetCommon returns the entities in which every listed user participates.
// An empty user list short-circuits to an empty result without touching
// either store.
func (r *Repository[T]) GetCommon(ctx context.Context, userIDs []string) ([]T, error) {
	if len(userIDs) == 0 {
		return []T{}, nil
	}

	if r.monitor.IsOnline() {
		fetched, err := r.remoteGetCommon(ctx, userIDs[0])
		if err == nil {
			r.mirrorList(ctx, ViewSpec[T]{FullSet: false}, fetched)
			return r.filterAllOf(fetched, userIDs), nil
		}
		r.logger.Warn("remote common fetch failed, falling back to cache", zap.Error(err))
	}

	cached, err := r.local.GetAll(ctx)
	if err != nil {
		r.logger.Error("cache read failed with remote unavailable", zap.Error(err))
		return nil, ErrOfflineUnavailable
	}

	return r.filterAllOf(cached, userIDs), nil
}

// remoteGetAll fetches a view's entities under the repository timeout.
func (r *Repository[T]) remoteGetAll(ctx context.Context, view models.View, userID string) ([]T, error) {
	var out []T
	err := r.withTimeout(ctx, func(ctx context.Context) error {
		var err error
		out, err = r.remote.GetAll(ctx, view, userID)
		return err
	})
	return out, err
}

func (r *Repository[T]) remoteGet(ctx context.Context, id string) (*T, error) {
	var out *T
	err := r.withTimeout(ctx, func(ctx context.Context) error {
		var err error
		out, err = r.remote.Get(ctx, id)
		return err
	})
	return out, err
}

func (r *Repository[T]) remoteGetCommon(ctx context.Context, userID string) ([]T, error) {
	var out []T
	err := r.withTimeout(ctx, func(ctx context.Context) error {
		var err error
		out, err = r.remote.GetCommon(ctx, userID)
		return err
	})
	return out, err
}

// withTimeout bounds a remote call to the fixed repository budget so the
// caller never blocks past it regardless of network condition.
func (r *Repository[T]) withTimeout(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return fn(ctx)
}

// mirrorList writes a fetched set into the cache. Full-set views replace
// the whole cache so remotely deleted rows disappear; every other view
// merges without deleting unrelated rows. Mirror failures are logged, not
// surfaced: the caller already has the fresh data.
func (r *Repository[T]) mirrorList(ctx context.Context, spec ViewSpec[T], fetched []T) {
	var err error
	if spec.FullSet {
		err = r.local.ReplaceAll(ctx, fetched)
	} else {
		err = r.local.UpsertBatch(ctx, fetched)
	}
	if err != nil {
		r.logger.Warn("failed to mirror fetched set into cache",
			zap.Bool("full_set", spec.FullSet),
			zap.Int("count", len(fetched)),
			zap.Error(err),
		)
	}
}

// mirrorRow upserts a single entity into the cache, best effort.
func (r *Repository[T]) mirrorRow(ctx context.Context, entity *T) {
	if err := r.local.Upsert(ctx, entity); err != nil {
		r.logger.Warn("failed to mirror row into cache",
			zap.String("id", r.adapter.ID(entity)),
			zap.Error(err),
		)
	}
}

// recacheRow makes the cache fresh for exactly one id: delete then insert.
func (r *Repository[T]) recacheRow(ctx context.Context, id string, entity *T) {
	if err := r.local.Delete(ctx, id); err != nil {
		r.logger.Warn("failed to drop stale cached row", zap.String("id", id), zap.Error(err))
		return
	}
	r.mirrorRow(ctx, entity)
}

// refreshRow re-fetches one entity remotely and recaches it. On failure
// the row is either evicted or left stale, per evictOnFailure.
func (r *Repository[T]) refreshRow(ctx context.Context, id string, evictOnFailure bool) {
	entity, err := r.remoteGet(ctx, id)
	if err == nil {
		r.recacheRow(ctx, id, entity)
		return
	}

	if evictOnFailure {
		r.logger.Warn("row refresh failed, evicting cached copy",
			zap.String("id", id), zap.Error(err))
		if delErr := r.local.Delete(ctx, id); delErr != nil {
			r.logger.Warn("failed to evict cached row", zap.String("id", id), zap.Error(delErr))
		}
		return
	}

	r.logger.Warn("row refresh failed, keeping stale cached copy",
		zap.String("id", id), zap.Error(err))
}

// applyView filters and orders a candidate set per the view's semantics.
func (r *Repository[T]) applyView(spec ViewSpec[T], items []T, userID string) []T {
	now := r.now()

	result := make([]T, 0, len(items))
	for i := range items {
		if spec.Match == nil || spec.Match(&items[i], userID, now) {
			result = append(result, items[i])
		}
	}

	if spec.Less != nil {
		sort.SliceStable(result, func(i, j int) bool {
			return spec.Less(&result[i], &result[j])
		})
	}

	return result
}

// filterAllOf keeps items in which every listed user participates.
func (r *Repository[T]) filterAllOf(items []T, userIDs []string) []T {
	result := make([]T, 0, len(items))
	for i := range items {
		all := true
		for _, userID := range userIDs {
			if !r.adapter.IsParticipant(&items[i], userID) {
				all = false
				break
			}
		}
		if all {
			result = append(result, items[i])
		}
	}
	return result
}
