// AngelaMos | 2026
// service_test.go

package organization

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaychat/admin-api/internal/core"
	"github.com/relaychat/admin-api/internal/user"
)

type fakeUserRepo struct {
	users map[string]*user.User
	sets  map[string]*string
}

func newFakeUserRepo(users ...*user.User) *fakeUserRepo {
	r := &fakeUserRepo{
		users: make(map[string]*user.User),
		sets:  make(map[string]*string),
	}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeUserRepo) GetByID(
	_ context.Context,
	id string,
) (*user.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	clone := *u
	return &clone, nil
}

func (r *fakeUserRepo) GetByEmail(
	_ context.Context,
	email string,
) (*user.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, core.ErrNotFound
}

func (r *fakeUserRepo) SetOrganization(
	_ context.Context,
	id string,
	orgID *string,
) error {
	r.sets[id] = orgID
	r.users[id].OrganizationID = orgID
	return nil
}

func (r *fakeUserRepo) Create(_ context.Context, _ *user.User) error {
	return nil
}
func (r *fakeUserRepo) Update(_ context.Context, _ *user.User) error {
	return nil
}
func (r *fakeUserRepo) UpdatePassword(_ context.Context, _, _ string) error {
	return nil
}
func (r *fakeUserRepo) SetBanned(_ context.Context, _ string, _ bool) error {
	return nil
}
func (r *fakeUserRepo) SetRole(_ context.Context, _, _ string) error {
	return nil
}
func (r *fakeUserRepo) UpdateLastLogin(_ context.Context, _ string) error {
	return nil
}
func (r *fakeUserRepo) Delete(_ context.Context, _ string) error { return nil }
func (r *fakeUserRepo) List(
	_ context.Context,
	_ user.Scope,
	_ user.ListUsersParams,
) ([]user.User, int, error) {
	return nil, 0, nil
}

type fakeOrgRepo struct {
	orgs map[string]*Organization
}

func newFakeOrgRepo(orgs ...*Organization) *fakeOrgRepo {
	r := &fakeOrgRepo{orgs: make(map[string]*Organization)}
	for _, o := range orgs {
		r.orgs[o.ID] = o
	}
	return r
}

func (r *fakeOrgRepo) Create(_ context.Context, o *Organization) error {
	r.orgs[o.ID] = o
	return nil
}

func (r *fakeOrgRepo) GetByID(
	_ context.Context,
	id string,
) (*Organization, error) {
	o, ok := r.orgs[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return o, nil
}

func (r *fakeOrgRepo) List(_ context.Context) ([]Organization, error) {
	return nil, nil
}

func (r *fakeOrgRepo) NamesByIDs(
	_ context.Context,
	ids []string,
) (map[string]string, error) {
	names := make(map[string]string)
	for _, id := range ids {
		if o, ok := r.orgs[id]; ok {
			names[id] = o.Name
		}
	}
	return names, nil
}

func ptr[T any](v T) *T { return &v }

var orgAdmin = user.Actor{
	ID:    "orgadmin-1",
	Role:  user.RoleOrgAdmin,
	OrgID: "org-1",
}

func requireStatus(t *testing.T, err error, status int) *core.AppError {
	t.Helper()
	var appErr *core.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, status, appErr.Status)
	return appErr
}

func TestAssign(t *testing.T) {
	users := newFakeUserRepo(
		&user.User{ID: "free", Role: user.RoleUser},
		&user.User{ID: "member", Role: user.RoleUser,
			OrganizationID: ptr("org-1")},
		&user.User{ID: "root", Role: user.RoleAdmin},
	)
	orgs := newFakeOrgRepo(&Organization{ID: "org-1", Name: "Acme"})
	svc := NewService(orgs, users)
	ctx := context.Background()

	resp, err := svc.Assign(ctx, "free", "org-1")
	require.NoError(t, err)
	require.NotNil(t, resp.OrganizationID)
	assert.Equal(t, "org-1", *resp.OrganizationID)
	assert.Equal(t, "Acme", resp.OrganizationName)

	// Assignment to the org the user already has is redundant state.
	_, err = svc.Assign(ctx, "member", "org-1")
	requireStatus(t, err, 409)

	_, err = svc.Assign(ctx, "root", "org-1")
	requireStatus(t, err, 403)

	_, err = svc.Assign(ctx, "ghost", "org-1")
	require.ErrorIs(t, err, core.ErrNotFound)

	_, err = svc.Assign(ctx, "member", "org-ghost")
	require.ErrorIs(t, err, core.ErrNotFound)
}

func TestAddByEmail_DistinctConflicts(t *testing.T) {
	users := newFakeUserRepo(
		&user.User{ID: "mine", Email: "mine@example.com",
			Role: user.RoleUser, OrganizationID: ptr("org-1")},
		&user.User{ID: "theirs", Email: "theirs@example.com",
			Role: user.RoleUser, OrganizationID: ptr("org-2")},
	)
	orgs := newFakeOrgRepo(&Organization{ID: "org-1", Name: "Acme"})
	svc := NewService(orgs, users)
	ctx := context.Background()

	// Membership in the caller's own tenant and membership elsewhere are
	// two different conflicts with two different messages.
	_, err := svc.AddByEmail(ctx, orgAdmin, "mine@example.com")
	own := requireStatus(t, err, 409)
	assert.Contains(t, own.Message, "your organization")

	_, err = svc.AddByEmail(ctx, orgAdmin, "theirs@example.com")
	other := requireStatus(t, err, 409)
	assert.Contains(t, other.Message, "another organization")
	assert.NotEqual(t, own.Message, other.Message)
}

func TestAddByEmail_AttachesCallerOrg(t *testing.T) {
	users := newFakeUserRepo(
		&user.User{ID: "free", Email: "free@example.com", Role: user.RoleUser},
	)
	orgs := newFakeOrgRepo(&Organization{ID: "org-1", Name: "Acme"})
	svc := NewService(orgs, users)

	resp, err := svc.AddByEmail(
		context.Background(), orgAdmin, "Free@Example.com",
	)
	require.NoError(t, err)
	require.NotNil(t, resp.OrganizationID)
	assert.Equal(t, "org-1", *resp.OrganizationID)
	assert.Equal(t, "Acme", resp.OrganizationName)
}

func TestAddByEmail_RejectsAdminsAndUnknown(t *testing.T) {
	users := newFakeUserRepo(
		&user.User{ID: "root", Email: "root@example.com", Role: user.RoleAdmin},
	)
	orgs := newFakeOrgRepo(&Organization{ID: "org-1", Name: "Acme"})
	svc := NewService(orgs, users)
	ctx := context.Background()

	_, err := svc.AddByEmail(ctx, orgAdmin, "root@example.com")
	requireStatus(t, err, 403)

	_, err = svc.AddByEmail(ctx, orgAdmin, "nobody@example.com")
	require.ErrorIs(t, err, core.ErrNotFound)
}

func TestRemove_OrgScopeRules(t *testing.T) {
	users := newFakeUserRepo(
		&user.User{ID: "orgadmin-1", Role: user.RoleOrgAdmin,
			OrganizationID: ptr("org-1")},
		&user.User{ID: "peer", Role: user.RoleOrgAdmin,
			OrganizationID: ptr("org-1")},
		&user.User{ID: "member", Role: user.RoleUser,
			OrganizationID: ptr("org-1")},
		&user.User{ID: "outsider", Role: user.RoleUser,
			OrganizationID: ptr("org-2")},
	)
	orgs := newFakeOrgRepo(&Organization{ID: "org-1", Name: "Acme"})
	svc := NewService(orgs, users)
	ctx := context.Background()

	_, err := svc.Remove(ctx, orgAdmin, "outsider")
	requireStatus(t, err, 403)

	_, err = svc.Remove(ctx, orgAdmin, "orgadmin-1")
	requireStatus(t, err, 403)

	_, err = svc.Remove(ctx, orgAdmin, "peer")
	requireStatus(t, err, 403)

	resp, err := svc.Remove(ctx, orgAdmin, "member")
	require.NoError(t, err)
	assert.Nil(t, resp.OrganizationID)
	assert.Nil(t, users.users["member"].OrganizationID)
}

func TestRemove_GlobalScopeAndNoOrgConflict(t *testing.T) {
	users := newFakeUserRepo(
		&user.User{ID: "member", Role: user.RoleOrgAdmin,
			OrganizationID: ptr("org-2")},
		&user.User{ID: "free", Role: user.RoleUser},
	)
	orgs := newFakeOrgRepo()
	svc := NewService(orgs, users)
	ctx := context.Background()
	globalAdmin := user.Actor{ID: "admin-1", Role: user.RoleAdmin}

	// Global scope may detach any non-admin, org admins of any tenant
	// included.
	resp, err := svc.Remove(ctx, globalAdmin, "member")
	require.NoError(t, err)
	assert.Nil(t, resp.OrganizationID)

	_, err = svc.Remove(ctx, globalAdmin, "free")
	requireStatus(t, err, 409)
}
