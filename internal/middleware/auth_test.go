// AngelaMos | 2026
// auth_test.go

package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaychat/admin-api/internal/core"
)

type verifierFunc func(
	ctx context.Context,
	token string,
) (*AccessTokenClaims, error)

func (f verifierFunc) VerifyAccessToken(
	ctx context.Context,
	token string,
) (*AccessTokenClaims, error) {
	return f(ctx, token)
}

func TestExtractToken(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, ExtractToken(r))

	r.Header.Set("Authorization", "Bearer abc123")
	assert.Equal(t, "abc123", ExtractToken(r))

	r.Header.Set("Authorization", "bearer abc123")
	assert.Equal(t, "abc123", ExtractToken(r))

	r.Header.Set("Authorization", "Basic abc123")
	assert.Empty(t, ExtractToken(r))
}

func TestAuthenticator_PopulatesContext(t *testing.T) {
	verifier := verifierFunc(func(
		_ context.Context,
		token string,
	) (*AccessTokenClaims, error) {
		require.Equal(t, "good-token", token)
		return &AccessTokenClaims{
			UserID: "u-1",
			Role:   RoleOrgAdmin,
			OrgID:  "org-1",
		}, nil
	})

	var gotID, gotRole, gotOrg string
	handler := Authenticator(verifier)(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			gotID = GetUserID(r.Context())
			gotRole = GetUserRole(r.Context())
			gotOrg = GetUserOrgID(r.Context())
		},
	))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer good-token")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u-1", gotID)
	assert.Equal(t, RoleOrgAdmin, gotRole)
	assert.Equal(t, "org-1", gotOrg)
}

func TestAuthenticator_MissingAndInvalidTokens(t *testing.T) {
	verifier := verifierFunc(func(
		_ context.Context,
		_ string,
	) (*AccessTokenClaims, error) {
		return nil, core.ErrTokenExpired
	})

	handler := Authenticator(verifier)(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler must not run")
		},
	))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer expired")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "TOKEN_EXPIRED")
}

func TestRequireAnyAdmin(t *testing.T) {
	handler := RequireAnyAdmin(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		},
	))

	for role, want := range map[string]int{
		RoleAdmin:    http.StatusOK,
		RoleOrgAdmin: http.StatusOK,
		RoleUser:     http.StatusForbidden,
	} {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		ctx := context.WithValue(r.Context(), RoleKey, role)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r.WithContext(ctx))
		assert.Equal(t, want, w.Code, "role %q", role)
	}

	// No role in context at all reads as unauthenticated.
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
