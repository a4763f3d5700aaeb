// AngelaMos | 2026
// entity.go

package user

import (
	"time"
)

// User is the directory record for one account. PasswordHash, TwoFactorSecret
// and BackupCodes are write-only: no projection ever returns them.
type User struct {
	ID                  string     `db:"id"`
	Email               string     `db:"email"`
	Username            string     `db:"username"`
	Name                string     `db:"name"`
	PasswordHash        string     `db:"password_hash"`
	Role                string     `db:"role"`
	Banned              bool       `db:"banned"`
	MembershipExpiresAt *time.Time `db:"membership_expires_at"`
	OrganizationID      *string    `db:"organization_id"`
	TwoFactorSecret     *string    `db:"two_factor_secret"`
	BackupCodes         *string    `db:"backup_codes"`
	CreatedAt           time.Time  `db:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at"`
	LastLoginAt         *time.Time `db:"last_login_at"`
}

const (
	RoleUser     = "user"
	RoleAdmin    = "admin"
	RoleOrgAdmin = "org_admin"
)

func KnownRole(role string) bool {
	return role == RoleUser || role == RoleAdmin || role == RoleOrgAdmin
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

func (u *User) IsOrgAdmin() bool {
	return u.Role == RoleOrgAdmin
}

func (u *User) InOrganization(orgID string) bool {
	return u.OrganizationID != nil && *u.OrganizationID == orgID
}

func (u *User) MembershipExpired() bool {
	return u.MembershipExpiresAt != nil &&
		u.MembershipExpiresAt.Before(time.Now())
}

// Actor is the authenticated operator issuing a command, resolved from the
// access token at request entry.
type Actor struct {
	ID    string
	Role  string
	OrgID string
}

func (a Actor) IsGlobalAdmin() bool {
	return a.Role == RoleAdmin
}
