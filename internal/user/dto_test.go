// AngelaMos | 2026
// dto_test.go

package user

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListUsersParams_NormalizeClampsPagination(t *testing.T) {
	p := ListUsersParams{Page: 0, PageSize: 0}
	p.Normalize()
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 1, p.PageSize)

	p = ListUsersParams{Page: -3, PageSize: 1000}
	p.Normalize()
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 100, p.PageSize)

	p = ListUsersParams{Page: 7, PageSize: 50}
	p.Normalize()
	assert.Equal(t, 7, p.Page)
	assert.Equal(t, 50, p.PageSize)
	assert.Equal(t, 300, p.Offset())
}

func TestListUsersParams_NormalizeDiscardsUnknownFilters(t *testing.T) {
	p := ListUsersParams{
		Page:     1,
		PageSize: 20,
		Role:     "superuser",
		SortBy:   "passwordHash",
		SortOrder: "sideways",
	}
	p.Normalize()

	assert.Empty(t, p.Role)
	assert.Equal(t, "createdAt", p.SortBy)
	assert.Equal(t, "desc", p.SortOrder)
	assert.Equal(t, "created_at DESC", p.OrderBy())
}

func TestListUsersParams_SortWhitelist(t *testing.T) {
	p := ListUsersParams{
		Page:      1,
		PageSize:  20,
		SortBy:    "membershipExpiresAt",
		SortOrder: "asc",
	}
	p.Normalize()

	assert.Equal(t, "membership_expires_at ASC", p.OrderBy())
}

func TestToUserResponse_StripsCredentials(t *testing.T) {
	lastLogin := time.Now().Add(-time.Hour)
	orgID := "org-1"
	u := User{
		ID:              "u-1",
		Email:           "ann@example.com",
		Username:        "ann",
		Name:            "Ann",
		PasswordHash:    "$argon2id$...",
		Role:            RoleUser,
		Banned:          true,
		OrganizationID:  &orgID,
		TwoFactorSecret: ptr("secret"),
		LastLoginAt:     &lastLogin,
	}

	resp := ToUserResponse(&u)

	assert.False(t, resp.Enabled)
	assert.True(t, resp.Banned)
	require.NotNil(t, resp.LastActivity)
	assert.Equal(t, lastLogin, *resp.LastActivity)
	assert.Equal(t, "u-1", resp.ID)
}

func TestToUserResponseList_EnrichesOrgNames(t *testing.T) {
	org1, org2 := "org-1", "org-2"
	users := []User{
		{ID: "a", OrganizationID: &org1},
		{ID: "b", OrganizationID: &org2},
		{ID: "c"},
	}
	names := map[string]string{"org-1": "Acme", "org-2": "Globex"}

	responses := ToUserResponseList(users, names)

	require.Len(t, responses, 3)
	assert.Equal(t, "Acme", responses[0].OrganizationName)
	assert.Equal(t, "Globex", responses[1].OrganizationName)
	assert.Empty(t, responses[2].OrganizationName)
}

func ptr[T any](v T) *T { return &v }
