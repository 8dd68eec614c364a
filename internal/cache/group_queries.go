package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dkhoury/meetsync/internal/models"
)

// GroupStore persists cached copies of groups.
type GroupStore struct {
	db *DB
}

// Groups returns the group cache store.
func (db *DB) Groups() *GroupStore {
	return &GroupStore{db: db}
}

const groupColumns = `id, name, category, description, owner_id, member_ids, event_ids, series_ids, photo_ref`

func scanGroup(scan func(dest ...any) error) (*models.Group, error) {
	var (
		group                     models.Group
		members, events, seriesID string
	)

	err := scan(
		&group.ID,
		&group.Name,
		&group.Category,
		&group.Description,
		&group.OwnerID,
		&members,
		&events,
		&seriesID,
		&group.PhotoRef,
	)
	if err != nil {
		return nil, err
	}

	if group.MemberIDs, err = unmarshalIDs(members); err != nil {
		return nil, err
	}
	if group.EventIDs, err = unmarshalIDs(events); err != nil {
		return nil, err
	}
	if group.SeriesIDs, err = unmarshalIDs(seriesID); err != nil {
		return nil, err
	}

	return &group, nil
}

// GetAll returns every cached group. Malformed rows are skipped and logged.
func (s *GroupStore) GetAll(ctx context.Context) ([]models.Group, error) {
	query := fmt.Sprintf("SELECT %s FROM groups_cache", groupColumns)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query cached groups: %w", err)
	}
	defer rows.Close()

	var groups []models.Group
	for rows.Next() {
		group, err := scanGroup(rows.Scan)
		if err != nil {
			s.db.logger.Warn("skipping malformed cached group row", zap.Error(err))
			continue
		}
		groups = append(groups, *group)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cached groups: %w", err)
	}

	return groups, nil
}

// Get returns the cached group with the given id, or ErrNotCached.
func (s *GroupStore) Get(ctx context.Context, id string) (*models.Group, error) {
	query := fmt.Sprintf("SELECT %s FROM groups_cache WHERE id = ?", groupColumns)

	row := s.db.QueryRowContext(ctx, query, id)
	group, err := scanGroup(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotCached
		}
		s.db.logger.Warn("cached group row unreadable", zap.String("id", id), zap.Error(err))
		return nil, ErrNotCached
	}

	return group, nil
}

// Upsert inserts or replaces the cached copy of a group.
func (s *GroupStore) Upsert(ctx context.Context, group *models.Group) error {
	return upsertGroupTx(ctx, s.db.DB, group, time.Now().UTC())
}

// UpsertBatch inserts or replaces cached copies of groups in one transaction.
func (s *GroupStore) UpsertBatch(ctx context.Context, groups []models.Group) error {
	return s.db.withTx(ctx, func(tx *sql.Tx) error {
		now := time.Now().UTC()
		for i := range groups {
			if err := upsertGroupTx(ctx, tx, &groups[i], now); err != nil {
				return err
			}
		}
		return nil
	})
}

// ReplaceAll atomically swaps the full cached group set for the given one.
func (s *GroupStore) ReplaceAll(ctx context.Context, groups []models.Group) error {
	return s.db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM groups_cache"); err != nil {
			return fmt.Errorf("failed to clear cached groups: %w", err)
		}
		now := time.Now().UTC()
		for i := range groups {
			if err := upsertGroupTx(ctx, tx, &groups[i], now); err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete removes the cached copy of a group, if present.
func (s *GroupStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM groups_cache WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete cached group: %w", err)
	}
	return nil
}

// DeleteAll removes every cached group.
func (s *GroupStore) DeleteAll(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM groups_cache")
	if err != nil {
		return fmt.Errorf("failed to clear cached groups: %w", err)
	}
	return nil
}

func upsertGroupTx(ctx context.Context, ex execer, group *models.Group, syncedAt time.Time) error {
	members, err := marshalIDs(group.MemberIDs)
	if err != nil {
		return err
	}
	events, err := marshalIDs(group.EventIDs)
	if err != nil {
		return err
	}
	series, err := marshalIDs(group.SeriesIDs)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO groups_cache (id, name, category, description, owner_id,
			member_ids, event_ids, series_ids, photo_ref, synced_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE
		SET name = excluded.name,
		    category = excluded.category,
		    description = excluded.description,
		    owner_id = excluded.owner_id,
		    member_ids = excluded.member_ids,
		    event_ids = excluded.event_ids,
		    series_ids = excluded.series_ids,
		    photo_ref = excluded.photo_ref,
		    synced_at = excluded.synced_at
	`

	_, err = ex.ExecContext(ctx, query,
		group.ID,
		group.Name,
		group.Category,
		group.Description,
		group.OwnerID,
		members,
		events,
		series,
		group.PhotoRef,
		syncedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert cached group: %w", err)
	}

	return nil
}
