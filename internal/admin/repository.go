// AngelaMos | 2026
// repository.go

package admin

import (
	"context"
	"fmt"

	"github.com/relaychat/admin-api/internal/core"
)

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) DirectoryCounter {
	return &repository{db: db}
}

func (r *repository) Counts(ctx context.Context) (*DirectoryStats, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM users) AS total_users,
			(SELECT COUNT(*) FROM users WHERE banned = true) AS banned_users,
			(SELECT COUNT(*) FROM users WHERE role = 'org_admin') AS org_admins,
			(SELECT COUNT(*) FROM users WHERE organization_id IS NULL
				AND role <> 'admin') AS without_org,
			(SELECT COUNT(*) FROM organizations) AS organizations`

	var row struct {
		TotalUsers    int `db:"total_users"`
		BannedUsers   int `db:"banned_users"`
		OrgAdmins     int `db:"org_admins"`
		WithoutOrg    int `db:"without_org"`
		Organizations int `db:"organizations"`
	}

	if err := r.db.GetContext(ctx, &row, query); err != nil {
		return nil, fmt.Errorf("directory counts: %w", err)
	}

	return &DirectoryStats{
		TotalUsers:    row.TotalUsers,
		BannedUsers:   row.BannedUsers,
		OrgAdmins:     row.OrgAdmins,
		WithoutOrg:    row.WithoutOrg,
		Organizations: row.Organizations,
	}, nil
}
