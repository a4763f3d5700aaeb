// AngelaMos | 2026
// directory.go

package client

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/relaychat/admin-api/internal/user"
)

// Query family names form a closed set; mutations and invalidations refer
// to families by these names only.
const (
	FamilyUserList       = "user-list"
	FamilyUserDetail     = "user-detail"
	FamilyDirectoryStats = "directory-stats"
)

// Directory is the cache-backed view of the user directory. Reads go
// through the cache; state-changing calls run the optimistic protocol so a
// list view never waits for the server to reflect a toggle.
type Directory struct {
	api   *APIClient
	cache *Cache
}

func NewDirectory(api *APIClient, logger *slog.Logger) (*Directory, error) {
	cache := NewCache(logger)

	families := []Family{
		{
			Name: FamilyUserList,
			Refetch: func(ctx context.Context, key QueryKey) (any, error) {
				query, err := decodeListQuery(key.Args)
				if err != nil {
					return nil, err
				}
				return d(api.ListUsers(ctx, query))
			},
			// List pages carry counts an entry-level patch cannot keep
			// honest, and the dashboard aggregates shift with any write.
			Affects: []string{FamilyDirectoryStats},
		},
		{
			Name: FamilyUserDetail,
			Refetch: func(ctx context.Context, key QueryKey) (any, error) {
				return d(api.GetUser(ctx, key.Args))
			},
		},
		{
			Name: FamilyDirectoryStats,
			Refetch: func(ctx context.Context, key QueryKey) (any, error) {
				// Stats have a single key with no arguments.
				return d(api.DirectoryStats(ctx))
			},
		},
	}

	for _, f := range families {
		if err := cache.Register(f); err != nil {
			return nil, err
		}
	}

	return &Directory{api: api, cache: cache}, nil
}

func (dir *Directory) Cache() *Cache {
	return dir.cache
}

// ListUsers serves the page from cache when fresh, refetching otherwise.
func (dir *Directory) ListUsers(
	ctx context.Context,
	query ListQuery,
) (*user.ListUsersResponse, error) {
	key := QueryKey{Family: FamilyUserList, Args: query.Encode()}

	value, err := dir.cache.Fetch(ctx, key)
	if err != nil {
		return nil, err
	}

	resp, ok := value.(*user.ListUsersResponse)
	if !ok {
		return nil, fmt.Errorf("list users: unexpected cache value %T", value)
	}
	return resp, nil
}

// SetBanStatus toggles the ban flag optimistically: every cached list page
// and the detail entry show the predicted state before the server answers.
func (dir *Directory) SetBanStatus(
	ctx context.Context,
	userID string,
	banned bool,
) error {
	return dir.cache.Mutate(ctx, Mutation{
		Families: []string{FamilyUserList, FamilyUserDetail},
		Patch: patchUser(userID, func(u *user.UserResponse) {
			u.Banned = banned
			u.Enabled = !banned
		}),
		Call: func(ctx context.Context) error {
			_, err := dir.api.SetBanStatus(ctx, userID, banned)
			return err
		},
	})
}

func (dir *Directory) ChangeRole(
	ctx context.Context,
	userID, role string,
) error {
	return dir.cache.Mutate(ctx, Mutation{
		Families: []string{FamilyUserList, FamilyUserDetail},
		Patch: patchUser(userID, func(u *user.UserResponse) {
			u.Role = role
		}),
		Call: func(ctx context.Context) error {
			_, err := dir.api.ChangeRole(ctx, userID, role)
			return err
		},
	})
}

// DeleteUser removes the user from every cached page speculatively. The
// page counts are deliberately left to the reconciling refetch; patching
// them client-side would desynchronize totals from the server predicate.
func (dir *Directory) DeleteUser(ctx context.Context, userID string) error {
	return dir.cache.Mutate(ctx, Mutation{
		Families: []string{FamilyUserList, FamilyUserDetail},
		Patch: func(key QueryKey, value any) (any, bool) {
			switch v := value.(type) {
			case *user.ListUsersResponse:
				return dropUser(v, userID)
			case *user.UserResponse:
				if v.ID == userID {
					// The detail entry has no meaningful speculative
					// value once the user is gone; leave it for the
					// stale sweep.
					return value, false
				}
			}
			return value, false
		},
		Call: func(ctx context.Context) error {
			return dir.api.DeleteUser(ctx, userID)
		},
	})
}

func (dir *Directory) RemoveFromOrganization(
	ctx context.Context,
	userID string,
) error {
	return dir.cache.Mutate(ctx, Mutation{
		Families: []string{FamilyUserList, FamilyUserDetail},
		Patch: patchUser(userID, func(u *user.UserResponse) {
			u.OrganizationID = nil
			u.OrganizationName = ""
		}),
		Call: func(ctx context.Context) error {
			_, err := dir.api.RemoveFromOrganization(ctx, userID)
			return err
		},
	})
}

// patchUser builds a Patch that rewrites one user wherever it appears, in
// list pages or as a detail entry, without touching anything else.
func patchUser(
	userID string,
	apply func(u *user.UserResponse),
) Patch {
	return func(key QueryKey, value any) (any, bool) {
		switch v := value.(type) {
		case *user.ListUsersResponse:
			patched := false
			users := make([]user.UserResponse, len(v.Users))
			copy(users, v.Users)
			for i := range users {
				if users[i].ID == userID {
					apply(&users[i])
					patched = true
				}
			}
			if !patched {
				return value, false
			}
			next := *v
			next.Users = users
			return &next, true
		case *user.UserResponse:
			if v.ID != userID {
				return value, false
			}
			next := *v
			apply(&next)
			return &next, true
		}
		return value, false
	}
}

func dropUser(v *user.ListUsersResponse, userID string) (any, bool) {
	users := make([]user.UserResponse, 0, len(v.Users))
	found := false
	for i := range v.Users {
		if v.Users[i].ID == userID {
			found = true
			continue
		}
		users = append(users, v.Users[i])
	}
	if !found {
		return v, false
	}
	next := *v
	next.Users = users
	return &next, true
}

func decodeListQuery(args string) (ListQuery, error) {
	values, err := parseQueryArgs(args)
	if err != nil {
		return ListQuery{}, err
	}
	return values, nil
}

// d collapses a (*T, error) pair into the (any, error) shape Refetch wants.
func d[T any](value *T, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	return value, nil
}
