// AngelaMos | 2026
// service.go

package organization

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/relaychat/admin-api/internal/core"
	"github.com/relaychat/admin-api/internal/user"
)

// Service is the membership coordinator. Every write path below converges on
// the same invariant: a user references at most one organization at any time.
type Service struct {
	orgs  Repository
	users user.Repository
}

func NewService(orgs Repository, users user.Repository) *Service {
	return &Service{orgs: orgs, users: users}
}

// Assign attaches a user to an organization by identity. Global scope only;
// the dispatcher never routes org-scoped callers here.
func (s *Service) Assign(
	ctx context.Context,
	targetID, orgID string,
) (*user.UserResponse, error) {
	target, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}

	if target.IsAdmin() {
		return nil, core.ForbiddenError(
			"administrator accounts cannot be assigned to an organization",
		)
	}

	org, err := s.orgs.GetByID(ctx, orgID)
	if err != nil {
		return nil, err
	}

	if target.InOrganization(orgID) {
		return nil, core.ConflictError(
			"user is already a member of this organization",
		)
	}

	if err := s.users.SetOrganization(ctx, targetID, &orgID); err != nil {
		return nil, fmt.Errorf("assign organization: %w", err)
	}

	target.OrganizationID = &orgID
	resp := user.ToUserResponse(target)
	resp.OrganizationName = org.Name
	return &resp, nil
}

// Remove detaches a user from its organization by identity, under either
// authority scope. The org-scoped rules (own tenant, no self, no peer
// admins) are enforced here; the global scope skips them.
func (s *Service) Remove(
	ctx context.Context,
	actor user.Actor,
	targetID string,
) (*user.UserResponse, error) {
	target, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}

	if target.IsAdmin() {
		return nil, core.ForbiddenError(
			"administrator accounts cannot be removed from an organization",
		)
	}

	if !actor.IsGlobalAdmin() {
		if !target.InOrganization(actor.OrgID) {
			return nil, core.ForbiddenError(
				"user does not belong to your organization",
			)
		}
		if target.ID == actor.ID {
			return nil, core.ForbiddenError(
				"cannot remove your own account from the organization",
			)
		}
		if target.IsOrgAdmin() {
			return nil, core.ForbiddenError(
				"cannot remove another organization admin",
			)
		}
	}

	if target.OrganizationID == nil {
		return nil, core.ConflictError(
			"user does not belong to any organization",
		)
	}

	if err := s.users.SetOrganization(ctx, targetID, nil); err != nil {
		return nil, fmt.Errorf("remove organization: %w", err)
	}

	target.OrganizationID = nil
	resp := user.ToUserResponse(target)
	return &resp, nil
}

// AddByEmail resolves an email to a user and attaches it to the caller's own
// organization. The caller cannot name an arbitrary organization through
// this path.
func (s *Service) AddByEmail(
	ctx context.Context,
	actor user.Actor,
	email string,
) (*user.UserResponse, error) {
	if actor.OrgID == "" {
		return nil, core.ForbiddenError(
			"organization admin has no organization",
		)
	}

	target, err := s.users.GetByEmail(ctx, strings.ToLower(email))
	if err != nil {
		return nil, err
	}

	if target.IsAdmin() {
		return nil, core.ForbiddenError(
			"administrator accounts cannot be added to an organization",
		)
	}

	if target.OrganizationID != nil {
		// Two deliberately distinct outcomes: membership in the caller's
		// own tenant versus membership elsewhere.
		if *target.OrganizationID == actor.OrgID {
			return nil, core.ConflictError(
				"user is already a member of your organization",
			)
		}
		return nil, core.ConflictError(
			"user already belongs to another organization",
		)
	}

	org, err := s.orgs.GetByID(ctx, actor.OrgID)
	if err != nil {
		return nil, err
	}

	orgID := actor.OrgID
	if err := s.users.SetOrganization(ctx, target.ID, &orgID); err != nil {
		return nil, fmt.Errorf("add to organization: %w", err)
	}

	target.OrganizationID = &orgID
	resp := user.ToUserResponse(target)
	resp.OrganizationName = org.Name
	return &resp, nil
}

// Create provisions a new organization. Global scope only.
func (s *Service) Create(
	ctx context.Context,
	req CreateOrganizationRequest,
) (*OrganizationResponse, error) {
	org := &Organization{
		ID:        uuid.New().String(),
		Name:      req.Name,
		ShortCode: strings.ToLower(req.ShortCode),
	}

	if err := s.orgs.Create(ctx, org); err != nil {
		if errors.Is(err, core.ErrDuplicateKey) {
			return nil, core.ConflictError(
				"an organization with this name or code already exists",
			)
		}
		return nil, err
	}

	resp := ToOrganizationResponse(org)
	return &resp, nil
}

func (s *Service) List(ctx context.Context) ([]OrganizationResponse, error) {
	orgs, err := s.orgs.List(ctx)
	if err != nil {
		return nil, err
	}

	responses := make([]OrganizationResponse, 0, len(orgs))
	for i := range orgs {
		responses = append(responses, ToOrganizationResponse(&orgs[i]))
	}
	return responses, nil
}

func (s *Service) Get(
	ctx context.Context,
	id string,
) (*OrganizationResponse, error) {
	org, err := s.orgs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	resp := ToOrganizationResponse(org)
	return &resp, nil
}

var _ user.OrganizationDirectory = (Repository)(nil)
