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

// EventStore persists cached copies of events.
type EventStore struct {
	db *DB
}

// Events returns the event cache store.
func (db *DB) Events() *EventStore {
	return &EventStore{db: db}
}

const eventColumns = `id, category, title, description, latitude, longitude, start_time,
	duration_minutes, participant_ids, capacity, visibility, owner_id`

// scanEvent converts one cache row into an event. A conversion failure only
// affects the row it occurred on.
func scanEvent(scan func(dest ...any) error) (*models.Event, error) {
	var (
		event        models.Event
		lat, lng     sql.NullFloat64
		participants string
	)

	err := scan(
		&event.ID,
		&event.Category,
		&event.Title,
		&event.Description,
		&lat,
		&lng,
		&event.Start,
		&event.DurationMinutes,
		&participants,
		&event.Capacity,
		&event.Visibility,
		&event.OwnerID,
	)
	if err != nil {
		return nil, err
	}

	if lat.Valid && lng.Valid {
		event.Location = &models.GeoPoint{Latitude: lat.Float64, Longitude: lng.Float64}
	}

	event.ParticipantIDs, err = unmarshalIDs(participants)
	if err != nil {
		return nil, err
	}

	return &event, nil
}

// GetAll returns every cached event. Malformed rows are skipped and logged.
func (s *EventStore) GetAll(ctx context.Context) ([]models.Event, error) {
	query := fmt.Sprintf("SELECT %s FROM events_cache", eventColumns)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query cached events: %w", err)
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		event, err := scanEvent(rows.Scan)
		if err != nil {
			s.db.logger.Warn("skipping malformed cached event row", zap.Error(err))
			continue
		}
		events = append(events, *event)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cached events: %w", err)
	}

	return events, nil
}

// Get returns the cached event with the given id, or ErrNotCached.
func (s *EventStore) Get(ctx context.Context, id string) (*models.Event, error) {
	query := fmt.Sprintf("SELECT %s FROM events_cache WHERE id = ?", eventColumns)

	row := s.db.QueryRowContext(ctx, query, id)
	event, err := scanEvent(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotCached
		}
		// A malformed row is treated as absent.
		s.db.logger.Warn("cached event row unreadable", zap.String("id", id), zap.Error(err))
		return nil, ErrNotCached
	}

	return event, nil
}

// Upsert inserts or replaces the cached copy of an event.
func (s *EventStore) Upsert(ctx context.Context, event *models.Event) error {
	return upsertEventTx(ctx, s.db.DB, event, time.Now().UTC())
}

// UpsertBatch inserts or replaces cached copies of events in one transaction.
func (s *EventStore) UpsertBatch(ctx context.Context, events []models.Event) error {
	return s.db.withTx(ctx, func(tx *sql.Tx) error {
		now := time.Now().UTC()
		for i := range events {
			if err := upsertEventTx(ctx, tx, &events[i], now); err != nil {
				return err
			}
		}
		return nil
	})
}

// ReplaceAll atomically swaps the full cached event set for the given one.
// Events deleted remotely since the last sync disappear from the cache.
func (s *EventStore) ReplaceAll(ctx context.Context, events []models.Event) error {
	return s.db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM events_cache"); err != nil {
			return fmt.Errorf("failed to clear cached events: %w", err)
		}
		now := time.Now().UTC()
		for i := range events {
			if err := upsertEventTx(ctx, tx, &events[i], now); err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete removes the cached copy of an event, if present.
func (s *EventStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM events_cache WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete cached event: %w", err)
	}
	return nil
}

// DeleteAll removes every cached event.
func (s *EventStore) DeleteAll(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM events_cache")
	if err != nil {
		return fmt.Errorf("failed to clear cached events: %w", err)
	}
	return nil
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsertEventTx(ctx context.Context, ex execer, event *models.Event, syncedAt time.Time) error {
	participants, err := marshalIDs(event.ParticipantIDs)
	if err != nil {
		return err
	}

	var lat, lng sql.NullFloat64
	if event.Location != nil {
		lat = sql.NullFloat64{Float64: event.Location.Latitude, Valid: true}
		lng = sql.NullFloat64{Float64: event.Location.Longitude, Valid: true}
	}

	query := `
		INSERT INTO events_cache (id, category, title, description, latitude, longitude,
			start_time, duration_minutes, participant_ids, capacity, visibility, owner_id, synced_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE
		SET category = excluded.category,
		    title = excluded.title,
		    description = excluded.description,
		    latitude = excluded.latitude,
		    longitude = excluded.longitude,
		    start_time = excluded.start_time,
		    duration_minutes = excluded.duration_minutes,
		    participant_ids = excluded.participant_ids,
		    capacity = excluded.capacity,
		    visibility = excluded.visibility,
		    owner_id = excluded.owner_id,
		    synced_at = excluded.synced_at
	`

	_, err = ex.ExecContext(ctx, query,
		event.ID,
		event.Category,
		event.Title,
		event.Description,
		lat,
		lng,
		event.Start.UTC(),
		event.DurationMinutes,
		participants,
		event.Capacity,
		event.Visibility,
		event.OwnerID,
		syncedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert cached event: %w", err)
	}

	return nil
}
