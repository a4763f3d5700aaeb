// AngelaMos | 2026
// repository.go

package organization

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"

	"github.com/relaychat/admin-api/internal/core"
)

type Repository interface {
	Create(ctx context.Context, org *Organization) error
	GetByID(ctx context.Context, id string) (*Organization, error)
	List(ctx context.Context) ([]Organization, error)

	// NamesByIDs resolves display names for a set of organization ids in one
	// query. Unknown ids are simply absent from the result.
	NamesByIDs(ctx context.Context, ids []string) (map[string]string, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, org *Organization) error {
	query := `
		INSERT INTO organizations (id, name, short_code)
		VALUES ($1, $2, $3)
		RETURNING created_at`

	err := r.db.GetContext(ctx, &org.CreatedAt, query,
		org.ID,
		org.Name,
		org.ShortCode,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("create organization: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create organization: %w", err)
	}

	return nil
}

func (r *repository) GetByID(
	ctx context.Context,
	id string,
) (*Organization, error) {
	query := `
		SELECT id, name, short_code, created_at
		FROM organizations
		WHERE id = $1`

	var org Organization
	err := r.db.GetContext(ctx, &org, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get organization: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get organization: %w", err)
	}

	return &org, nil
}

func (r *repository) List(ctx context.Context) ([]Organization, error) {
	query := `
		SELECT id, name, short_code, created_at
		FROM organizations
		ORDER BY name ASC`

	var orgs []Organization
	if err := r.db.SelectContext(ctx, &orgs, query); err != nil {
		return nil, fmt.Errorf("list organizations: %w", err)
	}

	return orgs, nil
}

func (r *repository) NamesByIDs(
	ctx context.Context,
	ids []string,
) (map[string]string, error) {
	names := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}

	query, args, err := sqlx.In(
		`SELECT id, name FROM organizations WHERE id IN (?)`,
		ids,
	)
	if err != nil {
		return nil, fmt.Errorf("resolve organization names: %w", err)
	}

	rows, err := r.db.QueryxContext(ctx, sqlx.Rebind(sqlx.DOLLAR, query), args...)
	if err != nil {
		return nil, fmt.Errorf("resolve organization names: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("resolve organization names: %w", err)
		}
		names[id] = name
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("resolve organization names: %w", err)
	}

	return names, nil
}
