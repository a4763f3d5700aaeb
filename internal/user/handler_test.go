// AngelaMos | 2026
// handler_test.go

package user

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaychat/admin-api/internal/middleware"
)

type stubMembership struct{}

func (stubMembership) Assign(
	context.Context, string, string,
) (*UserResponse, error) {
	return nil, nil
}

func (stubMembership) Remove(
	context.Context, Actor, string,
) (*UserResponse, error) {
	return nil, nil
}

func (stubMembership) AddByEmail(
	context.Context, Actor, string,
) (*UserResponse, error) {
	return nil, nil
}

func identifyAs(actor Actor) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), middleware.UserIDKey, actor.ID)
			ctx = context.WithValue(ctx, middleware.RoleKey, actor.Role)
			ctx = context.WithValue(ctx, middleware.OrgIDKey, actor.OrgID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func newTestRouter(repo *fakeRepo, actor Actor) chi.Router {
	svc, _, _ := newTestService(repo)
	h := NewHandler(svc, stubMembership{})

	router := chi.NewRouter()
	h.RegisterRoutes(router, identifyAs(actor))
	return router
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestDeleteUser_RespondsOKWithEnvelope(t *testing.T) {
	repo := newFakeRepo(
		&User{ID: "admin-1", Role: RoleAdmin},
		orgUser("target", "org-1"),
	)
	router := newTestRouter(repo, globalAdmin)

	req := httptest.NewRequest(http.MethodDelete, "/users/target", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeEnvelope(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Contains(t, repo.deleted, "target")
}

func TestResetPassword_RespondsOKWithEnvelope(t *testing.T) {
	repo := newFakeRepo(
		&User{ID: "admin-1", Role: RoleAdmin},
		orgUser("target", "org-1"),
	)
	router := newTestRouter(repo, globalAdmin)

	req := httptest.NewRequest(
		http.MethodPut,
		"/users/target/password",
		strings.NewReader(`{"password":"correct horse battery"}`),
	)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeEnvelope(t, rec)
	assert.Equal(t, true, body["success"])
	assert.NotEmpty(t, repo.passwords["target"])
}

func TestGetUser_CrossOrgReadsRespondNotFound(t *testing.T) {
	repo := newFakeRepo(
		&User{ID: "orgadmin-1", Role: RoleOrgAdmin, OrganizationID: ptr("org-1")},
		orgUser("outside", "org-2"),
	)
	router := newTestRouter(repo, orgAdmin)

	req := httptest.NewRequest(http.MethodGet, "/users/outside", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}
