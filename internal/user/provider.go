// AngelaMos | 2026
// provider.go

package user

import (
	"context"

	"github.com/relaychat/admin-api/internal/auth"
)

// AuthProvider adapts the user repository to what the auth flow needs
// without the auth package importing this one.
type AuthProvider struct {
	repo Repository
}

func NewAuthProvider(repo Repository) *AuthProvider {
	return &AuthProvider{repo: repo}
}

func (p *AuthProvider) GetForLogin(
	ctx context.Context,
	email string,
) (*auth.UserInfo, error) {
	u, err := p.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	return toUserInfo(u), nil
}

func (p *AuthProvider) GetInfoByID(
	ctx context.Context,
	id string,
) (*auth.UserInfo, error) {
	u, err := p.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toUserInfo(u), nil
}

func (p *AuthProvider) RecordLogin(ctx context.Context, userID string) error {
	return p.repo.UpdateLastLogin(ctx, userID)
}

func toUserInfo(u *User) *auth.UserInfo {
	return &auth.UserInfo{
		ID:             u.ID,
		Email:          u.Email,
		Username:       u.Username,
		Name:           u.Name,
		PasswordHash:   u.PasswordHash,
		Role:           u.Role,
		OrganizationID: u.OrganizationID,
		Banned:         u.Banned,
	}
}

var _ auth.UserProvider = (*AuthProvider)(nil)
