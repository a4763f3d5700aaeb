// AngelaMos | 2026
// dto.go

package user

import (
	"time"

	"github.com/relaychat/admin-api/internal/core"
)

const (
	StatusBanned       = "banned"
	StatusActive       = "active"
	StatusExpired      = "expired"
	StatusExpiringSoon = "expiring_soon"

	// OrgFilterNone selects users without any organization.
	OrgFilterNone = "none"

	// ExpiringSoonWindow bounds the expiring_soon status filter.
	ExpiringSoonWindow = 7 * 24 * time.Hour

	defaultPageSize = 20
	maxPageSize     = 100
)

// sortColumns whitelists the API sort fields against their columns. Anything
// else falls back to creation time, descending.
var sortColumns = map[string]string{
	"createdAt":           "created_at",
	"name":                "name",
	"email":               "email",
	"membershipExpiresAt": "membership_expires_at",
	"lastLoginAt":         "last_login_at",
	"role":                "role",
}

type ListUsersParams struct {
	Page         int
	PageSize     int
	Search       string
	Role         string
	Status       string
	Organization string
	SortBy       string
	SortOrder    string
}

// Normalize clamps pagination instead of rejecting it and discards filter
// values the directory does not recognize.
func (p *ListUsersParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 1
	}
	if p.PageSize > maxPageSize {
		p.PageSize = maxPageSize
	}
	if !KnownRole(p.Role) {
		p.Role = ""
	}
	if p.SortOrder != "asc" && p.SortOrder != "desc" {
		p.SortOrder = "desc"
	}
	if _, ok := sortColumns[p.SortBy]; !ok {
		p.SortBy = "createdAt"
		p.SortOrder = "desc"
	}
}

func (p *ListUsersParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

func (p *ListUsersParams) OrderBy() string {
	column := sortColumns[p.SortBy]
	if column == "" {
		column = "created_at"
	}
	direction := "DESC"
	if p.SortOrder == "asc" {
		direction = "ASC"
	}
	return column + " " + direction
}

type CreateUserRequest struct {
	Email    string `json:"email"    validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=128"`
	Username string `json:"username" validate:"required,min=2,max=80"`
	Name     string `json:"name"     validate:"required,min=1,max=100"`
	Role     string `json:"role"     validate:"omitempty,oneof=user org_admin"`
}

type UpdateUserRequest struct {
	Name                *string    `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
	MembershipExpiresAt *time.Time `json:"membershipExpiresAt,omitempty"`

	// ClearMembershipExpiry distinguishes "set to unlimited" from "leave
	// untouched", which a nullable timestamp alone cannot express.
	ClearMembershipExpiry bool `json:"clearMembershipExpiry,omitempty"`
}

type ResetPasswordRequest struct {
	Password string `json:"password" validate:"required,min=8,max=128"`
}

type ChangeRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=user org_admin"`
}

type SetBanStatusRequest struct {
	Banned *bool `json:"banned" validate:"required"`
}

type AddToOrganizationRequest struct {
	UserID         string `json:"userId,omitempty"`
	OrganizationID string `json:"organizationId,omitempty"`
	Email          string `json:"email,omitempty" validate:"omitempty,email"`
}

type RemoveFromOrganizationRequest struct {
	UserID string `json:"userId" validate:"required"`
}

// UserResponse is the only projection any directory or command endpoint
// returns. Credential, two-factor secret and backup-code fields are never
// part of it, regardless of what the caller asked for.
type UserResponse struct {
	ID                  string     `json:"id"`
	Email               string     `json:"email"`
	Username            string     `json:"username"`
	Name                string     `json:"name"`
	Role                string     `json:"role"`
	Enabled             bool       `json:"enabled"`
	Banned              bool       `json:"banned"`
	MembershipExpiresAt *time.Time `json:"membershipExpiresAt,omitempty"`
	OrganizationID      *string    `json:"organizationId,omitempty"`
	OrganizationName    string     `json:"organizationName,omitempty"`
	CreatedAt           time.Time  `json:"createdAt"`
	LastActivity        *time.Time `json:"lastActivity,omitempty"`
}

type ListUsersResponse struct {
	Users      []UserResponse      `json:"users"`
	TotalUsers int                 `json:"totalUsers"`
	TotalPages int                 `json:"totalPages"`
	Pagination core.PaginationMeta `json:"pagination"`
}

func ToUserResponse(u *User) UserResponse {
	return UserResponse{
		ID:                  u.ID,
		Email:               u.Email,
		Username:            u.Username,
		Name:                u.Name,
		Role:                u.Role,
		Enabled:             !u.Banned,
		Banned:              u.Banned,
		MembershipExpiresAt: u.MembershipExpiresAt,
		OrganizationID:      u.OrganizationID,
		CreatedAt:           u.CreatedAt,
		LastActivity:        u.LastLoginAt,
	}
}

// ToUserResponseList enriches each projection with the display name of its
// organization, resolved by the caller for the current page only.
func ToUserResponseList(
	users []User,
	orgNames map[string]string,
) []UserResponse {
	responses := make([]UserResponse, 0, len(users))
	for i := range users {
		resp := ToUserResponse(&users[i])
		if users[i].OrganizationID != nil {
			resp.OrganizationName = orgNames[*users[i].OrganizationID]
		}
		responses = append(responses, resp)
	}
	return responses
}
