package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dkhoury/meetsync/internal/config"
	"github.com/dkhoury/meetsync/internal/models"
)

// newTestClient points a client at the given handler.
func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := &config.RemoteConfig{
		BaseURL:   server.URL,
		APIToken:  "test-token",
		Timeout:   3 * time.Second,
		HealthURL: server.URL + "/healthz",
	}

	return NewClient(cfg, zap.NewNop())
}

func TestClient_NewDocumentID(t *testing.T) {
	client := newTestClient(t, http.NotFoundHandler())

	first := client.NewDocumentID()
	second := client.NewDocumentID()

	assert.NotEmpty(t, first)
	assert.NotEqual(t, first, second)
}

func TestClient_AuthorizationHeader(t *testing.T) {
	var gotAuth string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte("[]"))
	}))

	_, err := client.Events().GetAll(context.Background(), models.ViewOverview, "u1")

	require.NoError(t, err)
	assert.Equal(t, "Bearer test-token", gotAuth)
}

func TestClient_Health(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/healthz", r.URL.Path)
			w.WriteHeader(http.StatusOK)
		}))

		assert.NoError(t, client.Health(context.Background()))
	})

	t.Run("unhealthy", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))

		err := client.Health(context.Background())
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "status 503")
	})
}

func TestEventStore_GetAll(t *testing.T) {
	events := []models.Event{
		{ID: "e1", Title: "Run", OwnerID: "u1", Visibility: models.VisibilityPublic, DurationMinutes: 60},
	}

	var gotQuery map[string]string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/events", r.URL.Path)
		gotQuery = map[string]string{
			"view": r.URL.Query().Get("view"),
			"user": r.URL.Query().Get("user"),
		}
		require.NoError(t, json.NewEncoder(w).Encode(events))
	}))

	got, err := client.Events().GetAll(context.Background(), models.ViewOverview, "u1")

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "e1", got[0].ID)
	assert.Equal(t, map[string]string{"view": "overview", "user": "u1"}, gotQuery)
}

func TestEventStore_GetNotFound(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such event", http.StatusNotFound)
	}))

	got, err := client.Events().Get(context.Background(), "missing")

	assert.Nil(t, got)
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestEventStore_Add(t *testing.T) {
	var (
		gotMethod string
		gotPath   string
		gotBody   models.Event
	)
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusCreated)
	}))

	event := &models.Event{ID: "e1", Title: "Run", OwnerID: "u1"}
	err := client.Events().Add(context.Background(), event)

	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/v1/events", gotPath)
	assert.Equal(t, "e1", gotBody.ID)
	assert.Equal(t, "Run", gotBody.Title)
}

func TestEventStore_EditAndDelete(t *testing.T) {
	var calls []string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	ctx := context.Background()

	require.NoError(t, client.Events().Edit(ctx, "e1", &models.Event{ID: "e1"}))
	require.NoError(t, client.Events().Delete(ctx, "e1"))

	assert.Equal(t, []string{"PUT /v1/events/e1", "DELETE /v1/events/e1"}, calls)
}

func TestEventStore_GetCommon(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "u1", r.URL.Query().Get("participant"))
		_, _ = w.Write([]byte(`[{"id":"e1"},{"id":"e2"}]`))
	}))

	got, err := client.Events().GetCommon(context.Background(), "u1")

	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestGroupStore_JoinResults(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		want    models.MembershipResult
		wantErr bool
	}{
		{"ok", http.StatusOK, models.MembershipOK, false},
		{"already member", http.StatusConflict, models.MembershipAlreadyMember, false},
		{"group missing", http.StatusNotFound, models.MembershipNotFound, false},
		{"server error", http.StatusInternalServerError, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/v1/groups/g1/members/u1", r.URL.Path)
				w.WriteHeader(tt.status)
			}))

			result, err := client.Groups().Join(context.Background(), "g1", "u1")

			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, result)
		})
	}
}

func TestGroupStore_LeaveResults(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   models.MembershipResult
	}{
		{"ok", http.StatusOK, models.MembershipOK},
		{"not a member", http.StatusConflict, models.MembershipNotAMember},
		{"group missing", http.StatusNotFound, models.MembershipNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodDelete, r.Method)
				w.WriteHeader(tt.status)
			}))

			result, err := client.Groups().Leave(context.Background(), "g1", "u1")

			require.NoError(t, err)
			assert.Equal(t, tt.want, result)
		})
	}
}

func TestSeriesStore_GetAll(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/series", r.URL.Path)
		assert.Equal(t, "history", r.URL.Query().Get("view"))
		_, _ = w.Write([]byte(`[{"id":"s1"}]`))
	}))

	got, err := client.Series().GetAll(context.Background(), models.ViewHistory, "u1")

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "s1", got[0].ID)
}

func TestClient_ContextCancellation(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Events().Get(ctx, "e1")
	assert.Error(t, err)
}

func TestBucketKey(t *testing.T) {
	tests := []struct {
		method string
		path   string
		want   string
	}{
		{"GET", "/v1/events", "GET /v1/events"},
		{"GET", "/v1/events?view=overview", "GET /v1/events"},
		{"DELETE", "/v1/groups/g1/members/u1", "DELETE /v1/groups"},
		{"PUT", "/v1/series/s1", "PUT /v1/series"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, bucketKey(tt.method, tt.path))
	}
}
