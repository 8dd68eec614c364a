package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dkhoury/meetsync/internal/models"
	"github.com/dkhoury/meetsync/internal/remote"
)

// toggleMonitor is a connectivity monitor tests can flip mid-scenario.
type toggleMonitor struct {
	mu     sync.Mutex
	online bool
}

func (m *toggleMonitor) IsOnline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

func (m *toggleMonitor) set(online bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.online = online
}

// fakeRemote is a scripted in-memory remote store. When err is set every
// call fails with it; delay makes calls block until the context expires.
type fakeRemote[T any] struct {
	mu    sync.Mutex
	idOf  func(*T) string
	seq   int
	docs  map[string]T
	list  []T
	err   error
	delay time.Duration
	calls []string
}

func newFakeRemote[T any](idOf func(*T) string) *fakeRemote[T] {
	return &fakeRemote[T]{idOf: idOf, docs: make(map[string]T)}
}

func (f *fakeRemote[T]) record(ctx context.Context, call string) error {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	err := f.err
	delay := f.delay
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (f *fakeRemote[T]) NewID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	return string(rune('a'+f.seq-1)) + "-id"
}

func (f *fakeRemote[T]) GetAll(ctx context.Context, view models.View, userID string) ([]T, error) {
	if err := f.record(ctx, "GetAll"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]T(nil), f.list...), nil
}

func (f *fakeRemote[T]) Get(ctx context.Context, id string) (*T, error) {
	if err := f.record(ctx, "Get"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok {
		return nil, &remote.APIError{StatusCode: 404, Message: "not found"}
	}
	return &doc, nil
}

func (f *fakeRemote[T]) Add(ctx context.Context, entity *T) error {
	if err := f.record(ctx, "Add"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[f.idOf(entity)] = *entity
	return nil
}

func (f *fakeRemote[T]) Edit(ctx context.Context, id string, entity *T) error {
	if err := f.record(ctx, "Edit"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.docs[id]; !ok {
		return &remote.APIError{StatusCode: 404, Message: "not found"}
	}
	f.docs[id] = *entity
	return nil
}

func (f *fakeRemote[T]) Delete(ctx context.Context, id string) error {
	if err := f.record(ctx, "Delete"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.docs, id)
	return nil
}

func (f *fakeRemote[T]) GetCommon(ctx context.Context, userID string) ([]T, error) {
	if err := f.record(ctx, "GetCommon"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]T(nil), f.list...), nil
}

func (f *fakeRemote[T]) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// fakeLocal is an in-memory cache store.
type fakeLocal[T any] struct {
	mu    sync.Mutex
	idOf  func(*T) string
	rows  map[string]T
	err   error
	calls []string
}

func newFakeLocal[T any](idOf func(*T) string) *fakeLocal[T] {
	return &fakeLocal[T]{idOf: idOf, rows: make(map[string]T)}
}

func (f *fakeLocal[T]) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	return f.err
}

func (f *fakeLocal[T]) GetAll(ctx context.Context) ([]T, error) {
	if err := f.record("GetAll"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]T, 0, len(f.rows))
	for _, row := range f.rows {
		out = append(out, row)
	}
	return out, nil
}

func (f *fakeLocal[T]) Get(ctx context.Context, id string) (*T, error) {
	if err := f.record("Get"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok {
		return nil, errors.New("row not cached")
	}
	return &row, nil
}

func (f *fakeLocal[T]) Upsert(ctx context.Context, entity *T) error {
	if err := f.record("Upsert"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[f.idOf(entity)] = *entity
	return nil
}

func (f *fakeLocal[T]) UpsertBatch(ctx context.Context, entities []T) error {
	if err := f.record("UpsertBatch"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range entities {
		f.rows[f.idOf(&entities[i])] = entities[i]
	}
	return nil
}

func (f *fakeLocal[T]) ReplaceAll(ctx context.Context, entities []T) error {
	if err := f.record("ReplaceAll"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = make(map[string]T, len(entities))
	for i := range entities {
		f.rows[f.idOf(&entities[i])] = entities[i]
	}
	return nil
}

func (f *fakeLocal[T]) Delete(ctx context.Context, id string) error {
	if err := f.record("Delete"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rows, id)
	return nil
}

func (f *fakeLocal[T]) DeleteAll(ctx context.Context) error {
	if err := f.record("DeleteAll"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = make(map[string]T)
	return nil
}

func (f *fakeLocal[T]) has(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.rows[id]
	return ok
}

func (f *fakeLocal[T]) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func eventID(e *models.Event) string { return e.ID }
func groupID(g *models.Group) string { return g.ID }

func testEvent(id, owner string, start time.Time) models.Event {
	return models.Event{
		ID:              id,
		Category:        models.CategorySports,
		Title:           "Event " + id,
		Start:           start,
		DurationMinutes: 60,
		ParticipantIDs:  []string{owner},
		Visibility:      models.VisibilityPublic,
		OwnerID:         owner,
	}
}

type eventFixture struct {
	repo    *EventRepository
	remote  *fakeRemote[models.Event]
	local   *fakeLocal[models.Event]
	monitor *toggleMonitor
}

func newEventFixture(t *testing.T, userID string, timeout time.Duration) *eventFixture {
	t.Helper()

	remoteStore := newFakeRemote(eventID)
	localStore := newFakeLocal(eventID)
	monitor := &toggleMonitor{online: true}
	repo := NewEventRepository(remoteStore, localStore, monitor, StaticUser(userID), timeout, zap.NewNop())

	return &eventFixture{repo: repo, remote: remoteStore, local: localStore, monitor: monitor}
}

func TestAddThenGetSurvivesGoingOffline(t *testing.T) {
	ctx := context.Background()
	fx := newEventFixture(t, "u1", time.Second)

	event := testEvent("e1", "u1", time.Now().Add(time.Hour))
	require.NoError(t, fx.repo.Add(ctx, &event))

	got, err := fx.repo.Get(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, "e1", got.ID)

	fx.monitor.set(false)

	got, err = fx.repo.Get(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, "e1", got.ID)
}

func TestAddOfflineFailsWithoutTouchingStores(t *testing.T) {
	ctx := context.Background()
	fx := newEventFixture(t, "u1", time.Second)
	fx.monitor.set(false)

	event := testEvent("e1", "u1", time.Now().Add(time.Hour))
	err := fx.repo.Add(ctx, &event)
	require.ErrorIs(t, err, ErrOfflineUnavailable)
	assert.Zero(t, fx.remote.callCount())
	assert.Zero(t, fx.local.callCount())
}

func TestDeleteOfflineLeavesBothStoresUnchanged(t *testing.T) {
	ctx := context.Background()
	fx := newEventFixture(t, "u1", time.Second)

	event := testEvent("e1", "u1", time.Now().Add(time.Hour))
	require.NoError(t, fx.repo.Add(ctx, &event))
	remoteCalls := fx.remote.callCount()
	localCalls := fx.local.callCount()

	fx.monitor.set(false)

	err := fx.repo.Delete(ctx, "e1")
	require.ErrorIs(t, err, ErrOfflineUnavailable)
	assert.Equal(t, remoteCalls, fx.remote.callCount())
	assert.Equal(t, localCalls, fx.local.callCount())
	assert.True(t, fx.local.has("e1"))
}

func TestEditMapsRemoteNotFound(t *testing.T) {
	ctx := context.Background()
	fx := newEventFixture(t, "u1", time.Second)

	event := testEvent("missing", "u1", time.Now().Add(time.Hour))
	err := fx.repo.Edit(ctx, "missing", &event)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestOverviewFullSetReplacementDropsDeletedRows(t *testing.T) {
	ctx := context.Background()
	fx := newEventFixture(t, "u1", time.Second)

	e1 := testEvent("e1", "u1", time.Now().Add(time.Hour))
	e2 := testEvent("e2", "u1", time.Now().Add(2*time.Hour))
	require.NoError(t, fx.local.UpsertBatch(ctx, []models.Event{e1, e2}))

	// The remote overview no longer contains e2.
	fx.remote.list = []models.Event{e1}

	got, err := fx.repo.GetAll(ctx, models.ViewOverview)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "e1", got[0].ID)

	assert.True(t, fx.local.has("e1"))
	assert.False(t, fx.local.has("e2"), "full-set sync must drop remotely deleted rows")
}

func TestSearchMergePreservesUnrelatedRows(t *testing.T) {
	ctx := context.Background()
	fx := newEventFixture(t, "u1", time.Second)

	mine := testEvent("mine", "u1", time.Now().Add(time.Hour))
	require.NoError(t, fx.local.Upsert(ctx, &mine))

	other := testEvent("other", "u2", time.Now().Add(time.Hour))
	fx.remote.list = []models.Event{other}

	got, err := fx.repo.GetAll(ctx, models.ViewSearch)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "other", got[0].ID)

	assert.True(t, fx.local.has("mine"), "search results merge without deleting unrelated rows")
	assert.True(t, fx.local.has("other"))
}

func TestGetOfflineMissReportsOfflineUnavailable(t *testing.T) {
	ctx := context.Background()
	fx := newEventFixture(t, "u1", time.Second)
	fx.monitor.set(false)

	_, err := fx.repo.Get(ctx, "nope")
	require.ErrorIs(t, err, ErrOfflineUnavailable)
}

func TestGetOnlineNotFoundEvictsCachedRow(t *testing.T) {
	ctx := context.Background()
	fx := newEventFixture(t, "u1", time.Second)

	stale := testEvent("gone", "u1", time.Now().Add(time.Hour))
	require.NoError(t, fx.local.Upsert(ctx, &stale))

	_, err := fx.repo.Get(ctx, "gone")
	require.ErrorIs(t, err, ErrNotFound)
	assert.False(t, fx.local.has("gone"), "authoritative 404 evicts the cached row")
}

func TestGetCommonEmptyInputTouchesNoStore(t *testing.T) {
	ctx := context.Background()
	fx := newEventFixture(t, "u1", time.Second)

	got, err := fx.repo.GetCommon(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Zero(t, fx.remote.callCount())
	assert.Zero(t, fx.local.callCount())
}

func TestGetAllTimeoutFallsBackToCacheWithinBudget(t *testing.T) {
	ctx := context.Background()
	fx := newEventFixture(t, "u1", 50*time.Millisecond)

	cached := testEvent("cached", "u1", time.Now().Add(time.Hour))
	require.NoError(t, fx.local.Upsert(ctx, &cached))

	fx.remote.delay = 2 * time.Second

	start := time.Now()
	got, err := fx.repo.GetAll(ctx, models.ViewOverview)
	elapsed := time.Since(start)

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "cached", got[0].ID)
	assert.Less(t, elapsed, time.Second, "timeout must bound the remote wait")
}

func TestHistoryOfflineFiltersAndExcludesUpcoming(t *testing.T) {
	ctx := context.Background()
	fx := newEventFixture(t, "u1", time.Second)

	now := time.Now()
	expired := testEvent("e1", "u1", now.Add(-2*time.Hour))
	upcoming := testEvent("u1-event", "u1", now.Add(time.Hour))
	require.NoError(t, fx.local.UpsertBatch(ctx, []models.Event{expired, upcoming}))

	fx.monitor.set(false)

	got, err := fx.repo.GetAll(ctx, models.ViewHistory)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "e1", got[0].ID)
}

func TestHistorySortsMostRecentFirst(t *testing.T) {
	ctx := context.Background()
	fx := newEventFixture(t, "u1", time.Second)

	now := time.Now()
	older := testEvent("older", "u1", now.Add(-48*time.Hour))
	newer := testEvent("newer", "u1", now.Add(-2*time.Hour))
	fx.remote.list = []models.Event{older, newer}

	got, err := fx.repo.GetAll(ctx, models.ViewHistory)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "newer", got[0].ID)
	assert.Equal(t, "older", got[1].ID)
}

func TestMapViewRequiresLocation(t *testing.T) {
	ctx := context.Background()
	fx := newEventFixture(t, "u1", time.Second)

	now := time.Now()
	located := testEvent("located", "u2", now.Add(time.Hour))
	located.Location = &models.GeoPoint{Latitude: 52.5, Longitude: 13.4}
	bare := testEvent("bare", "u2", now.Add(time.Hour))
	fx.remote.list = []models.Event{located, bare}

	got, err := fx.repo.GetAll(ctx, models.ViewMap)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "located", got[0].ID)
}

func TestSearchExcludesOwnAndJoined(t *testing.T) {
	ctx := context.Background()
	fx := newEventFixture(t, "u1", time.Second)

	now := time.Now()
	joined := testEvent("joined", "u2", now.Add(time.Hour))
	joined.ParticipantIDs = append(joined.ParticipantIDs, "u1")
	owned := testEvent("owned", "u1", now.Add(time.Hour))
	owned.ParticipantIDs = nil
	private := testEvent("private", "u2", now.Add(time.Hour))
	private.Visibility = models.VisibilityPrivate
	open := testEvent("open", "u2", now.Add(time.Hour))
	fx.remote.list = []models.Event{joined, owned, private, open}

	got, err := fx.repo.GetAll(ctx, models.ViewSearch)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "open", got[0].ID)
}

func TestGetAllRemoteFailureFallsBackToCache(t *testing.T) {
	ctx := context.Background()
	fx := newEventFixture(t, "u1", time.Second)

	cached := testEvent("cached", "u1", time.Now().Add(time.Hour))
	require.NoError(t, fx.local.Upsert(ctx, &cached))

	fx.remote.err = errors.New("backend exploded")

	got, err := fx.repo.GetAll(ctx, models.ViewOverview)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "cached", got[0].ID)
}

func TestGetAllOfflineWithBrokenCacheReportsOfflineUnavailable(t *testing.T) {
	ctx := context.Background()
	fx := newEventFixture(t, "u1", time.Second)
	fx.monitor.set(false)
	fx.local.err = errors.New("disk gone")

	_, err := fx.repo.GetAll(ctx, models.ViewOverview)
	require.ErrorIs(t, err, ErrOfflineUnavailable)
}

func TestGetAllUnknownViewFails(t *testing.T) {
	ctx := context.Background()
	fx := newEventFixture(t, "u1", time.Second)

	_, err := fx.repo.GetAll(ctx, models.View("sideways"))
	require.Error(t, err)
	assert.Zero(t, fx.remote.callCount())
}

func TestGetAllWithoutCurrentUserFails(t *testing.T) {
	ctx := context.Background()
	fx := newEventFixture(t, "", time.Second)

	_, err := fx.repo.GetAll(ctx, models.ViewOverview)
	require.ErrorIs(t, err, ErrNoCurrentUser)
}
