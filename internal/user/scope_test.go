// AngelaMos | 2026
// scope_test.go

package user

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaychat/admin-api/internal/core"
)

func TestScopeFor(t *testing.T) {
	scope, err := ScopeFor(Actor{ID: "a", Role: RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, "global", scope.Name())

	scope, err = ScopeFor(Actor{ID: "a", Role: RoleOrgAdmin, OrgID: "org-1"})
	require.NoError(t, err)
	assert.Equal(t, "organization", scope.Name())

	_, err = ScopeFor(Actor{ID: "a", Role: RoleOrgAdmin})
	require.Error(t, err)

	_, err = ScopeFor(Actor{ID: "a", Role: RoleUser})
	require.ErrorIs(t, err, core.ErrForbidden)
}

func TestBuildListQuery_GlobalScope(t *testing.T) {
	now := time.Now()
	params := ListUsersParams{Page: 1, PageSize: 20}
	params.Normalize()

	qb := buildListQuery(GlobalScope{}, params, now)

	assert.Equal(t, "TRUE", qb.whereClause())
	assert.Empty(t, qb.args)
	assert.Equal(t, "created_at DESC", qb.orderBy)
}

func TestBuildListQuery_OrgScopePinsTenant(t *testing.T) {
	now := time.Now()
	params := ListUsersParams{Page: 1, PageSize: 20}
	params.Normalize()

	qb := buildListQuery(OrgScope{OrgID: "org-1"}, params, now)

	assert.Equal(
		t,
		"organization_id = $1 AND role <> $2",
		qb.whereClause(),
	)
	assert.Equal(t, []any{"org-1", RoleAdmin}, qb.args)
}

func TestBuildListQuery_SearchRenumbersPlaceholders(t *testing.T) {
	now := time.Now()
	params := ListUsersParams{Page: 1, PageSize: 20, Search: "ann"}
	params.Normalize()

	qb := buildListQuery(OrgScope{OrgID: "org-1"}, params, now)

	assert.Equal(
		t,
		"organization_id = $1 AND role <> $2 AND "+
			"(email ILIKE $3 OR username ILIKE $4 OR name ILIKE $5)",
		qb.whereClause(),
	)
	require.Len(t, qb.args, 5)
	assert.Equal(t, "%ann%", qb.args[2])
}

func TestBuildListQuery_SearchEscapesLikeMetacharacters(t *testing.T) {
	now := time.Now()
	params := ListUsersParams{Page: 1, PageSize: 20, Search: "50%_a\\b"}
	params.Normalize()

	qb := buildListQuery(GlobalScope{}, params, now)

	require.Len(t, qb.args, 3)
	assert.Equal(t, `%50\%\_a\\b%`, qb.args[0])
}

func TestBuildListQuery_GlobalStatusFilters(t *testing.T) {
	now := time.Now()

	for status, want := range map[string]string{
		StatusBanned: "banned = TRUE",
		StatusActive: "banned = FALSE",
	} {
		params := ListUsersParams{Page: 1, PageSize: 20, Status: status}
		params.Normalize()

		qb := buildListQuery(GlobalScope{}, params, now)
		assert.Equal(t, want, qb.whereClause(), "status %q", status)
	}

	params := ListUsersParams{Page: 1, PageSize: 20, Status: StatusExpiringSoon}
	params.Normalize()
	qb := buildListQuery(GlobalScope{}, params, now)
	assert.Equal(
		t,
		"membership_expires_at >= $1 AND membership_expires_at <= $2",
		qb.whereClause(),
	)
	assert.Equal(t, []any{now, now.Add(ExpiringSoonWindow)}, qb.args)
}

func TestBuildListQuery_OrgStatusSemantics(t *testing.T) {
	now := time.Now()

	// Active in org scope means membership not expired, not "not banned".
	params := ListUsersParams{Page: 1, PageSize: 20, Status: StatusActive}
	params.Normalize()
	qb := buildListQuery(OrgScope{OrgID: "org-1"}, params, now)
	assert.Contains(
		t,
		qb.whereClause(),
		"(membership_expires_at IS NULL OR membership_expires_at > $3)",
	)

	// Banned is not a filter the org scope exposes; it is ignored.
	params = ListUsersParams{Page: 1, PageSize: 20, Status: StatusBanned}
	params.Normalize()
	qb = buildListQuery(OrgScope{OrgID: "org-1"}, params, now)
	assert.Equal(t, "organization_id = $1 AND role <> $2", qb.whereClause())
}

func TestBuildListQuery_OrgFilterGlobalOnly(t *testing.T) {
	now := time.Now()

	params := ListUsersParams{Page: 1, PageSize: 20, Organization: "org-9"}
	params.Normalize()
	qb := buildListQuery(GlobalScope{}, params, now)
	assert.Equal(t, "organization_id = $1", qb.whereClause())

	params = ListUsersParams{
		Page: 1, PageSize: 20, Organization: OrgFilterNone,
	}
	params.Normalize()
	qb = buildListQuery(GlobalScope{}, params, now)
	assert.Equal(t, "organization_id IS NULL", qb.whereClause())
	assert.Empty(t, qb.args)

	// Org-scoped callers cannot narrow by organization at all.
	params = ListUsersParams{Page: 1, PageSize: 20, Organization: "org-9"}
	params.Normalize()
	qb = buildListQuery(OrgScope{OrgID: "org-1"}, params, now)
	assert.Equal(t, "organization_id = $1 AND role <> $2", qb.whereClause())
}

func TestOrgScope_GuardTarget(t *testing.T) {
	scope := OrgScope{OrgID: "org-1"}

	other := "org-2"
	err := scope.GuardTarget(&User{ID: "u", OrganizationID: &other})
	require.Error(t, err)
	var appErr *core.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, 403, appErr.Status)

	mine := "org-1"
	assert.NoError(t, scope.GuardTarget(&User{ID: "u", OrganizationID: &mine}))
	assert.Error(t, scope.GuardTarget(&User{ID: "u"}))
}

func TestOrgScope_GuardCommand(t *testing.T) {
	scope := OrgScope{OrgID: "org-1"}

	for _, cmd := range []Command{CommandSetBanStatus, CommandChangeRole} {
		err := scope.GuardCommand(cmd)
		require.Error(t, err, cmd.String())
		assert.Contains(t, err.Error(), "membership expiration")
	}

	for _, cmd := range []Command{
		CommandCreate, CommandResetPassword, CommandUpdate, CommandDelete,
	} {
		assert.NoError(t, scope.GuardCommand(cmd), cmd.String())
	}
}

func TestGlobalScope_GuardsAreOpen(t *testing.T) {
	scope := GlobalScope{}

	assert.NoError(t, scope.GuardTarget(&User{ID: "u"}))
	assert.NoError(t, scope.GuardCommand(CommandSetBanStatus))
	assert.NoError(t, scope.GuardCommand(CommandChangeRole))
}
