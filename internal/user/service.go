// AngelaMos | 2026
// service.go

package user

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/relaychat/admin-api/internal/core"
)

// OrganizationDirectory is the narrow slice of the organization store the
// directory needs: bulk display-name resolution for list enrichment.
type OrganizationDirectory interface {
	NamesByIDs(ctx context.Context, ids []string) (map[string]string, error)
}

// SessionInvalidator revokes every active session of a user. Banning calls
// it synchronously but tolerates its failure.
type SessionInvalidator interface {
	InvalidateAllSessions(ctx context.Context, userID string) error
}

// CascadeRunner fires the dependent-resource cleanup batch for a user and
// returns once every step has settled, successfully or not.
type CascadeRunner interface {
	Run(ctx context.Context, userID string)
}

type Service struct {
	repo     Repository
	orgs     OrganizationDirectory
	sessions SessionInvalidator
	cascade  CascadeRunner
	logger   *slog.Logger
}

func NewService(
	repo Repository,
	orgs OrganizationDirectory,
	sessions SessionInvalidator,
	cascade CascadeRunner,
	logger *slog.Logger,
) *Service {
	return &Service{
		repo:     repo,
		orgs:     orgs,
		sessions: sessions,
		cascade:  cascade,
		logger:   logger,
	}
}

// ListUsers plans and runs a scoped directory query. The scope is resolved
// from the actor once; the repository applies it without re-inspecting the
// role.
func (s *Service) ListUsers(
	ctx context.Context,
	actor Actor,
	params ListUsersParams,
) (*ListUsersResponse, error) {
	scope, err := ScopeFor(actor)
	if err != nil {
		return nil, err
	}

	params.Normalize()

	users, total, err := s.repo.List(ctx, scope, params)
	if err != nil {
		return nil, err
	}

	orgNames, err := s.resolveOrgNames(ctx, users)
	if err != nil {
		return nil, err
	}

	totalPages := (total + params.PageSize - 1) / params.PageSize

	return &ListUsersResponse{
		Users:      ToUserResponseList(users, orgNames),
		TotalUsers: total,
		TotalPages: totalPages,
		Pagination: core.PaginationMeta{
			Page:       params.Page,
			PageSize:   params.PageSize,
			Total:      total,
			TotalPages: totalPages,
		},
	}, nil
}

// resolveOrgNames performs the one bulk lookup over the distinct
// organization ids present on the current page, bounding enrichment cost to
// the page size.
func (s *Service) resolveOrgNames(
	ctx context.Context,
	users []User,
) (map[string]string, error) {
	seen := make(map[string]struct{})
	ids := make([]string, 0)
	for i := range users {
		if users[i].OrganizationID == nil {
			continue
		}
		id := *users[i].OrganizationID
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	if len(ids) == 0 {
		return map[string]string{}, nil
	}

	return s.orgs.NamesByIDs(ctx, ids)
}

func (s *Service) GetUser(
	ctx context.Context,
	actor Actor,
	targetID string,
) (*UserResponse, error) {
	scope, err := ScopeFor(actor)
	if err != nil {
		return nil, err
	}

	target, err := s.repo.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}

	if !actor.IsGlobalAdmin() {
		// Top-level administrators are invisible to org-scoped reads, not
		// merely protected from them.
		if target.IsAdmin() {
			return nil, fmt.Errorf("get user: %w", core.ErrNotFound)
		}
		// Reads never disclose existence across the org boundary; only
		// mutations answer with an authorization failure.
		if err := scope.GuardTarget(target); err != nil {
			return nil, fmt.Errorf("get user: %w", core.ErrNotFound)
		}
	}

	resp := ToUserResponse(target)
	return &resp, nil
}

// CreateUser provisions an account. Org-scoped callers always create plain
// users attached to their own organization; the global scope may choose the
// role and leaves the organization unset.
func (s *Service) CreateUser(
	ctx context.Context,
	actor Actor,
	req CreateUserRequest,
) (*UserResponse, error) {
	scope, err := ScopeFor(actor)
	if err != nil {
		return nil, err
	}
	if err := scope.GuardCommand(CommandCreate); err != nil {
		return nil, err
	}

	role := req.Role
	var orgID *string

	if actor.IsGlobalAdmin() {
		if role == "" {
			role = RoleUser
		}
	} else {
		role = RoleUser
		id := actor.OrgID
		orgID = &id
	}

	passwordHash, err := core.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	newUser := &User{
		ID:             uuid.New().String(),
		Email:          strings.ToLower(req.Email),
		Username:       req.Username,
		Name:           req.Name,
		PasswordHash:   passwordHash,
		Role:           role,
		OrganizationID: orgID,
	}

	if err := s.repo.Create(ctx, newUser); err != nil {
		return nil, err
	}

	resp := ToUserResponse(newUser)
	return &resp, nil
}

func (s *Service) SetBanStatus(
	ctx context.Context,
	actor Actor,
	targetID string,
	banned bool,
) (*UserResponse, error) {
	target, err := s.guardedTarget(ctx, actor, CommandSetBanStatus, targetID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.SetBanned(ctx, targetID, banned); err != nil {
		return nil, err
	}
	target.Banned = banned

	if banned {
		// Best-effort: a failed session sweep is logged, never surfaced as
		// a failure of the status change itself.
		if err := s.sessions.InvalidateAllSessions(ctx, targetID); err != nil {
			s.logger.Error("failed to invalidate sessions for banned user",
				"user_id", targetID,
				"error", err,
			)
		}
	}

	resp := ToUserResponse(target)
	return &resp, nil
}

func (s *Service) ResetPassword(
	ctx context.Context,
	actor Actor,
	targetID, password string,
) error {
	if _, err := s.guardedTarget(
		ctx, actor, CommandResetPassword, targetID,
	); err != nil {
		return err
	}

	passwordHash, err := core.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	return s.repo.UpdatePassword(ctx, targetID, passwordHash)
}

func (s *Service) ChangeRole(
	ctx context.Context,
	actor Actor,
	targetID, role string,
) (*UserResponse, error) {
	target, err := s.guardedTarget(ctx, actor, CommandChangeRole, targetID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.SetRole(ctx, targetID, role); err != nil {
		return nil, err
	}
	target.Role = role

	resp := ToUserResponse(target)
	return &resp, nil
}

func (s *Service) UpdateUser(
	ctx context.Context,
	actor Actor,
	targetID string,
	req UpdateUserRequest,
) (*UserResponse, error) {
	target, err := s.guardedTarget(ctx, actor, CommandUpdate, targetID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		target.Name = *req.Name
	}
	if req.ClearMembershipExpiry {
		target.MembershipExpiresAt = nil
	} else if req.MembershipExpiresAt != nil {
		target.MembershipExpiresAt = req.MembershipExpiresAt
	}

	if err := s.repo.Update(ctx, target); err != nil {
		return nil, err
	}

	resp := ToUserResponse(target)
	return &resp, nil
}

// DeleteUser runs the cleanup cascade to settlement and only then removes
// the record: fire all, await all, then delete.
func (s *Service) DeleteUser(
	ctx context.Context,
	actor Actor,
	targetID string,
) error {
	if _, err := s.guardedTarget(
		ctx, actor, CommandDelete, targetID,
	); err != nil {
		return err
	}

	s.cascade.Run(ctx, targetID)

	return s.repo.Delete(ctx, targetID)
}

// guardedTarget loads the target and runs the shared guard chain in its
// fixed order: self-modification, privilege immutability, org boundary,
// scope restriction. The first violation short-circuits.
func (s *Service) guardedTarget(
	ctx context.Context,
	actor Actor,
	cmd Command,
	targetID string,
) (*User, error) {
	scope, err := ScopeFor(actor)
	if err != nil {
		return nil, err
	}

	target, err := s.repo.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}

	if cmd.selfGuarded() && actor.ID == target.ID {
		return nil, core.ForbiddenError("cannot target your own account")
	}

	if target.IsAdmin() {
		return nil, core.ForbiddenError(
			"administrator accounts cannot be modified",
		)
	}

	if err := scope.GuardTarget(target); err != nil {
		return nil, err
	}

	if err := scope.GuardCommand(cmd); err != nil {
		return nil, err
	}

	return target, nil
}
