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

// SeriesStore persists cached copies of event series.
type SeriesStore struct {
	db *DB
}

// Series returns the series cache store.
func (db *DB) Series() *SeriesStore {
	return &SeriesStore{db: db}
}

const seriesColumns = `id, title, description, start_time, participant_ids, capacity,
	visibility, owner_id, event_ids, last_event_end`

func scanSeries(scan func(dest ...any) error) (*models.Series, error) {
	var (
		series               models.Series
		participants, events string
	)

	err := scan(
		&series.ID,
		&series.Title,
		&series.Description,
		&series.Start,
		&participants,
		&series.Capacity,
		&series.Visibility,
		&series.OwnerID,
		&events,
		&series.LastEventEnd,
	)
	if err != nil {
		return nil, err
	}

	if series.ParticipantIDs, err = unmarshalIDs(participants); err != nil {
		return nil, err
	}
	if series.EventIDs, err = unmarshalIDs(events); err != nil {
		return nil, err
	}

	return &series, nil
}

// GetAll returns every cached series. Malformed rows are skipped and logged.
func (s *SeriesStore) GetAll(ctx context.Context) ([]models.Series, error) {
	query := fmt.Sprintf("SELECT %s FROM series_cache", seriesColumns)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query cached series: %w", err)
	}
	defer rows.Close()

	var all []models.Series
	for rows.Next() {
		series, err := scanSeries(rows.Scan)
		if err != nil {
			s.db.logger.Warn("skipping malformed cached series row", zap.Error(err))
			continue
		}
		all = append(all, *series)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cached series: %w", err)
	}

	return all, nil
}

// Get returns the cached series with the given id, or ErrNotCached.
func (s *SeriesStore) Get(ctx context.Context, id string) (*models.Series, error) {
	query := fmt.Sprintf("SELECT %s FROM series_cache WHERE id = ?", seriesColumns)

	row := s.db.QueryRowContext(ctx, query, id)
	series, err := scanSeries(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotCached
		}
		s.db.logger.Warn("cached series row unreadable", zap.String("id", id), zap.Error(err))
		return nil, ErrNotCached
	}

	return series, nil
}

// Upsert inserts or replaces the cached copy of a series.
func (s *SeriesStore) Upsert(ctx context.Context, series *models.Series) error {
	return upsertSeriesTx(ctx, s.db.DB, series, time.Now().UTC())
}

// UpsertBatch inserts or replaces cached copies of series in one transaction.
func (s *SeriesStore) UpsertBatch(ctx context.Context, all []models.Series) error {
	return s.db.withTx(ctx, func(tx *sql.Tx) error {
		now := time.Now().UTC()
		for i := range all {
			if err := upsertSeriesTx(ctx, tx, &all[i], now); err != nil {
				return err
			}
		}
		return nil
	})
}

// ReplaceAll atomically swaps the full cached series set for the given one.
func (s *SeriesStore) ReplaceAll(ctx context.Context, all []models.Series) error {
	return s.db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM series_cache"); err != nil {
			return fmt.Errorf("failed to clear cached series: %w", err)
		}
		now := time.Now().UTC()
		for i := range all {
			if err := upsertSeriesTx(ctx, tx, &all[i], now); err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete removes the cached copy of a series, if present.
func (s *SeriesStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM series_cache WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete cached series: %w", err)
	}
	return nil
}

// DeleteAll removes every cached series.
func (s *SeriesStore) DeleteAll(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM series_cache")
	if err != nil {
		return fmt.Errorf("failed to clear cached series: %w", err)
	}
	return nil
}

func upsertSeriesTx(ctx context.Context, ex execer, series *models.Series, syncedAt time.Time) error {
	participants, err := marshalIDs(series.ParticipantIDs)
	if err != nil {
		return err
	}
	events, err := marshalIDs(series.EventIDs)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO series_cache (id, title, description, start_time, participant_ids,
			capacity, visibility, owner_id, event_ids, last_event_end, synced_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE
		SET title = excluded.title,
		    description = excluded.description,
		    start_time = excluded.start_time,
		    participant_ids = excluded.participant_ids,
		    capacity = excluded.capacity,
		    visibility = excluded.visibility,
		    owner_id = excluded.owner_id,
		    event_ids = excluded.event_ids,
		    last_event_end = excluded.last_event_end,
		    synced_at = excluded.synced_at
	`

	_, err = ex.ExecContext(ctx, query,
		series.ID,
		series.Title,
		series.Description,
		series.Start.UTC(),
		participants,
		series.Capacity,
		series.Visibility,
		series.OwnerID,
		events,
		series.LastEventEnd.UTC(),
		syncedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert cached series: %w", err)
	}

	return nil
}
