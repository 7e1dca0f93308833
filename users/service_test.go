package users_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-auth-client/gateway"
	"github.com/jrsteele09/go-auth-client/session"
	"github.com/jrsteele09/go-auth-client/users"
)

type testConfig struct {
	baseURL string
}

func (c testConfig) GetAPIBaseURL() string         { return c.baseURL }
func (c testConfig) GetHTTPTimeout() time.Duration { return 5 * time.Second }
func (c testConfig) GetRefreshPath() string        { return "/auth/refresh" }

func setup(t *testing.T, handler http.Handler) *users.Service {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	store := session.NewStore()
	store.SetAccessToken("T1")

	gw, err := gateway.New(store, testConfig{baseURL: srv.URL})
	require.NoError(t, err)

	service, err := users.New(gw)
	require.NoError(t, err)
	return service
}

func TestCurrent(t *testing.T) {
	service := setup(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/users/me", r.URL.Path)
		require.Equal(t, "Bearer T1", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"message": "ok",
			"data": map[string]any{
				"user": map[string]any{
					"id":        "user-1",
					"email":     "john.doe@example.com",
					"firstName": "John",
					"lastName":  "Doe",
					"isActive":  true,
				},
			},
		})
	}))

	me, err := service.Current(context.Background())
	require.NoError(t, err)
	require.Equal(t, "user-1", me.ID)
	require.Equal(t, "john.doe@example.com", me.Email)
	require.True(t, me.IsActive)
}

func TestCurrentRejectsEmptyResponse(t *testing.T) {
	service := setup(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "message": "ok", "data": map[string]any{}})
	}))

	_, err := service.Current(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "no user")
}

func TestListWithPagination(t *testing.T) {
	service := setup(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/users", r.URL.Path)
		require.Equal(t, "2", r.URL.Query().Get("page"))
		require.Equal(t, "25", r.URL.Query().Get("limit"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"message": "ok",
			"data": map[string]any{
				"users": []map[string]any{
					{"id": "user-1", "email": "john.doe@example.com"},
					{"id": "user-2", "email": "jane.doe@example.com"},
				},
			},
			"meta": map[string]any{
				"pagination": map[string]any{"page": 2, "limit": 25, "total": 51, "totalPages": 3},
			},
		})
	}))

	list, pagination, err := service.List(context.Background(), 2, 25)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "user-2", list[1].ID)
	require.NotNil(t, pagination)
	require.Equal(t, 51, pagination.Total)
	require.Equal(t, 3, pagination.TotalPages)
}
