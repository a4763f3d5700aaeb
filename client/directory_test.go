// AngelaMos | 2026
// directory_test.go

package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaychat/admin-api/internal/user"
)

func listPage(users ...user.UserResponse) *user.ListUsersResponse {
	return &user.ListUsersResponse{
		Users:      users,
		TotalUsers: len(users),
		TotalPages: 1,
	}
}

func TestPatchUser_RewritesOnlyTheTarget(t *testing.T) {
	page := listPage(
		user.UserResponse{ID: "a", Enabled: true},
		user.UserResponse{ID: "b", Enabled: true},
	)

	patch := patchUser("b", func(u *user.UserResponse) {
		u.Banned = true
		u.Enabled = false
	})

	patched, ok := patch(QueryKey{Family: FamilyUserList}, page)
	require.True(t, ok)

	next, isPage := patched.(*user.ListUsersResponse)
	require.True(t, isPage)
	assert.True(t, next.Users[1].Banned)
	assert.True(t, next.Users[0].Enabled)

	// The prior value is a snapshot; the patch must not mutate it.
	assert.False(t, page.Users[1].Banned)
}

func TestPatchUser_MissReportsUntouched(t *testing.T) {
	page := listPage(user.UserResponse{ID: "a"})

	patch := patchUser("ghost", func(u *user.UserResponse) {
		u.Banned = true
	})

	_, ok := patch(QueryKey{Family: FamilyUserList}, page)
	assert.False(t, ok)
}

func TestDropUser(t *testing.T) {
	page := listPage(
		user.UserResponse{ID: "a"},
		user.UserResponse{ID: "b"},
	)

	patched, ok := dropUser(page, "a")
	require.True(t, ok)
	next := patched.(*user.ListUsersResponse)
	require.Len(t, next.Users, 1)
	assert.Equal(t, "b", next.Users[0].ID)
	assert.Len(t, page.Users, 2)

	_, ok = dropUser(page, "ghost")
	assert.False(t, ok)
}

func TestDirectory_SetBanStatusOptimisticRoundTrip(t *testing.T) {
	var listCalls int

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/admin/users", func(
		w http.ResponseWriter, r *http.Request,
	) {
		listCalls++
		banned := listCalls > 1
		writeEnvelope(t, w, listPage(user.UserResponse{
			ID:      "u-1",
			Banned:  banned,
			Enabled: !banned,
		}))
	})
	mux.HandleFunc("PUT /v1/admin/users/u-1/status", func(
		w http.ResponseWriter, r *http.Request,
	) {
		var req user.SetBanStatusRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotNil(t, req.Banned)
		writeEnvelope(t, w, user.UserResponse{ID: "u-1", Banned: *req.Banned})
	})
	mux.HandleFunc("GET /v1/admin/stats/directory", func(
		w http.ResponseWriter, r *http.Request,
	) {
		writeEnvelope(t, w, map[string]int{"totalUsers": 1})
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	dir, err := NewDirectory(NewAPIClient(server.URL), testLogger())
	require.NoError(t, err)
	ctx := context.Background()

	page, err := dir.ListUsers(ctx, ListQuery{Page: 1, Limit: 20})
	require.NoError(t, err)
	require.Len(t, page.Users, 1)
	assert.False(t, page.Users[0].Banned)

	require.NoError(t, dir.SetBanStatus(ctx, "u-1", true))

	// The reconciling refetch already landed with server truth.
	page, err = dir.ListUsers(ctx, ListQuery{Page: 1, Limit: 20})
	require.NoError(t, err)
	assert.True(t, page.Users[0].Banned)
	assert.GreaterOrEqual(t, listCalls, 2)
}

func writeEnvelope(t *testing.T, w http.ResponseWriter, data any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"data":    data,
	})
	require.NoError(t, err)
}
