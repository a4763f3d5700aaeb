// AngelaMos | 2026
// scope.go

package user

import (
	"fmt"
	"time"

	"github.com/relaychat/admin-api/internal/core"
)

type Command int

const (
	CommandCreate Command = iota
	CommandSetBanStatus
	CommandResetPassword
	CommandChangeRole
	CommandUpdate
	CommandDelete
)

func (c Command) String() string {
	switch c {
	case CommandCreate:
		return "create"
	case CommandSetBanStatus:
		return "set_ban_status"
	case CommandResetPassword:
		return "reset_password"
	case CommandChangeRole:
		return "change_role"
	case CommandUpdate:
		return "update"
	case CommandDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// selfGuarded reports whether the command refuses actor == target. Listing,
// reads and password resets are exempt.
func (c Command) selfGuarded() bool {
	switch c {
	case CommandSetBanStatus, CommandChangeRole, CommandUpdate, CommandDelete:
		return true
	default:
		return false
	}
}

// Scope is the closed capability set behind the shared admin routes. It is
// selected once at request entry from the caller's role; nothing deeper in
// the call chain inspects the role again.
type Scope interface {
	Name() string

	// Constrain pins the scope's fixed visibility predicate onto a
	// directory query.
	Constrain(qb *queryBuilder)

	// ApplyStatusFilter translates a status filter value into predicates.
	// Values the scope does not expose are ignored, not rejected.
	ApplyStatusFilter(qb *queryBuilder, status string, now time.Time)

	// ApplyOrgFilter narrows by organization. Only the global scope honors
	// it; the org scope predicate is already pinned.
	ApplyOrgFilter(qb *queryBuilder, org string)

	// GuardTarget enforces the org-boundary rule against a loaded target.
	GuardTarget(target *User) error

	// GuardCommand rejects commands the scope may not invoke at all.
	GuardCommand(cmd Command) error
}

type GlobalScope struct{}

func (GlobalScope) Name() string { return "global" }

func (GlobalScope) Constrain(qb *queryBuilder) {}

func (GlobalScope) ApplyStatusFilter(
	qb *queryBuilder,
	status string,
	now time.Time,
) {
	switch status {
	case StatusBanned:
		qb.where("banned = TRUE")
	case StatusActive:
		qb.where("banned = FALSE")
	case StatusExpired:
		qb.where("membership_expires_at < $?", now)
	case StatusExpiringSoon:
		qb.where(
			"membership_expires_at >= $? AND membership_expires_at <= $?",
			now,
			now.Add(ExpiringSoonWindow),
		)
	}
}

func (GlobalScope) ApplyOrgFilter(qb *queryBuilder, org string) {
	switch org {
	case "":
	case OrgFilterNone:
		qb.where("organization_id IS NULL")
	default:
		qb.where("organization_id = $?", org)
	}
}

func (GlobalScope) GuardTarget(target *User) error { return nil }

func (GlobalScope) GuardCommand(cmd Command) error { return nil }

// OrgScope restricts every query and command to one tenant. Top-level admins
// are invisible to it entirely.
type OrgScope struct {
	OrgID string
}

func (OrgScope) Name() string { return "organization" }

func (s OrgScope) Constrain(qb *queryBuilder) {
	qb.where("organization_id = $?", s.OrgID)
	qb.where("role <> $?", RoleAdmin)
}

func (OrgScope) ApplyStatusFilter(
	qb *queryBuilder,
	status string,
	now time.Time,
) {
	switch status {
	case StatusActive:
		qb.where(
			"(membership_expires_at IS NULL OR membership_expires_at > $?)",
			now,
		)
	case StatusExpired:
		qb.where("membership_expires_at < $?", now)
	}
}

// Org-scoped callers cannot narrow by organization; their predicate is
// already pinned by Constrain.
func (OrgScope) ApplyOrgFilter(qb *queryBuilder, org string) {}

func (s OrgScope) GuardTarget(target *User) error {
	if !target.InOrganization(s.OrgID) {
		// Deliberately 403 rather than 404: the guard's existence is
		// disclosed, the record's contents are not.
		return core.ForbiddenError("user does not belong to your organization")
	}
	return nil
}

func (OrgScope) GuardCommand(cmd Command) error {
	switch cmd {
	case CommandSetBanStatus, CommandChangeRole:
		return core.ForbiddenError(
			"organization admins cannot change ban status or roles; " +
				"use membership expiration to manage access",
		)
	default:
		return nil
	}
}

// ScopeFor resolves the caller's authority scope exactly once, at dispatch.
func ScopeFor(actor Actor) (Scope, error) {
	switch actor.Role {
	case RoleAdmin:
		return GlobalScope{}, nil
	case RoleOrgAdmin:
		if actor.OrgID == "" {
			return nil, core.ForbiddenError(
				"organization admin has no organization",
			)
		}
		return OrgScope{OrgID: actor.OrgID}, nil
	default:
		return nil, fmt.Errorf(
			"scope for role %q: %w", actor.Role, core.ErrForbidden,
		)
	}
}
