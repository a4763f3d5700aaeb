// AngelaMos | 2026
// repository.go

package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/relaychat/admin-api/internal/core"
)

type Repository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, user *User) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	SetBanned(ctx context.Context, id string, banned bool) error
	SetRole(ctx context.Context, id, role string) error
	SetOrganization(ctx context.Context, id string, orgID *string) error
	UpdateLastLogin(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	List(
		ctx context.Context,
		scope Scope,
		params ListUsersParams,
	) ([]User, int, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const userColumns = `
	id, email, username, name, password_hash, role, banned,
	membership_expires_at, organization_id, two_factor_secret, backup_codes,
	created_at, updated_at, last_login_at`

func (r *repository) Create(ctx context.Context, user *User) error {
	query := `
		INSERT INTO users (
			id, email, username, name, password_hash, role,
			membership_expires_at, organization_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`

	err := r.db.GetContext(ctx, user, query,
		user.ID,
		user.Email,
		user.Username,
		user.Name,
		user.PasswordHash,
		user.Role,
		user.MembershipExpiresAt,
		user.OrganizationID,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("create user: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create user: %w", err)
	}

	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*User, error) {
	query := `SELECT` + userColumns + ` FROM users WHERE id = $1`

	var user User
	err := r.db.GetContext(ctx, &user, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get user: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	return &user, nil
}

func (r *repository) GetByEmail(
	ctx context.Context,
	email string,
) (*User, error) {
	query := `SELECT` + userColumns + ` FROM users WHERE email = $1`

	var user User
	err := r.db.GetContext(ctx, &user, query, strings.ToLower(email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get user by email: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}

	return &user, nil
}

func (r *repository) Update(ctx context.Context, user *User) error {
	query := `
		UPDATE users
		SET name = $2, membership_expires_at = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.GetContext(ctx, &user.UpdatedAt, query,
		user.ID,
		user.Name,
		user.MembershipExpiresAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("update user: %w", core.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	return nil
}

func (r *repository) UpdatePassword(
	ctx context.Context,
	id, passwordHash string,
) error {
	query := `
		UPDATE users
		SET password_hash = $2, updated_at = NOW()
		WHERE id = $1`

	return r.execExpectingRow(ctx, "update password", query, id, passwordHash)
}

func (r *repository) SetBanned(
	ctx context.Context,
	id string,
	banned bool,
) error {
	query := `
		UPDATE users
		SET banned = $2, updated_at = NOW()
		WHERE id = $1`

	return r.execExpectingRow(ctx, "set banned", query, id, banned)
}

func (r *repository) SetRole(ctx context.Context, id, role string) error {
	query := `
		UPDATE users
		SET role = $2, updated_at = NOW()
		WHERE id = $1`

	return r.execExpectingRow(ctx, "set role", query, id, role)
}

func (r *repository) SetOrganization(
	ctx context.Context,
	id string,
	orgID *string,
) error {
	query := `
		UPDATE users
		SET organization_id = $2, updated_at = NOW()
		WHERE id = $1`

	return r.execExpectingRow(ctx, "set organization", query, id, orgID)
}

func (r *repository) UpdateLastLogin(ctx context.Context, id string) error {
	query := `
		UPDATE users
		SET last_login_at = NOW()
		WHERE id = $1`

	return r.execExpectingRow(ctx, "update last login", query, id)
}

// Delete removes the row permanently. Deletion is terminal: cascading
// resource cleanup has already settled by the time this runs.
func (r *repository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM users WHERE id = $1`

	return r.execExpectingRow(ctx, "delete user", query, id)
}

func (r *repository) List(
	ctx context.Context,
	scope Scope,
	params ListUsersParams,
) ([]User, int, error) {
	params.Normalize()

	qb := buildListQuery(scope, params, time.Now())
	whereClause := qb.whereClause()

	// The count runs the exact predicate of the page query so the total can
	// never drift from the returned rows.
	countQuery := "SELECT COUNT(*) FROM users WHERE " + whereClause

	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, qb.args...); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	query := fmt.Sprintf(
		`SELECT %s FROM users WHERE %s ORDER BY %s LIMIT %s OFFSET %s`,
		userColumns,
		whereClause,
		qb.orderBy,
		qb.placeholder(params.PageSize),
		qb.placeholder(params.Offset()),
	)

	var users []User
	if err := r.db.SelectContext(ctx, &users, query, qb.args...); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}

	return users, total, nil
}

func (r *repository) execExpectingRow(
	ctx context.Context,
	op, query string,
	args ...any,
) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if rows == 0 {
		return fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}

	return nil
}

// queryBuilder accumulates WHERE predicates with renumbered positional args.
// Conditions use $? markers, one per argument, in order.
type queryBuilder struct {
	conditions []string
	args       []any
	orderBy    string
}

func (qb *queryBuilder) where(cond string, args ...any) {
	for _, arg := range args {
		qb.args = append(qb.args, arg)
		cond = strings.Replace(
			cond,
			"$?",
			"$"+strconv.Itoa(len(qb.args)),
			1,
		)
	}
	qb.conditions = append(qb.conditions, cond)
}

func (qb *queryBuilder) placeholder(arg any) string {
	qb.args = append(qb.args, arg)
	return "$" + strconv.Itoa(len(qb.args))
}

func (qb *queryBuilder) whereClause() string {
	if len(qb.conditions) == 0 {
		return "TRUE"
	}
	return strings.Join(qb.conditions, " AND ")
}

// buildListQuery translates normalized list parameters into the scoped,
// filtered predicate shared by the count and page queries.
func buildListQuery(
	scope Scope,
	params ListUsersParams,
	now time.Time,
) *queryBuilder {
	qb := &queryBuilder{orderBy: params.OrderBy()}

	scope.Constrain(qb)

	if params.Search != "" {
		pattern := "%" + escapeLike(params.Search) + "%"
		qb.where(
			"(email ILIKE $? OR username ILIKE $? OR name ILIKE $?)",
			pattern, pattern, pattern,
		)
	}

	if params.Role != "" {
		qb.where("role = $?", params.Role)
	}

	scope.ApplyStatusFilter(qb, params.Status, now)
	scope.ApplyOrgFilter(qb, params.Organization)

	return qb
}

func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "%", "\\%")
	s = strings.ReplaceAll(s, "_", "\\_")
	return s
}
