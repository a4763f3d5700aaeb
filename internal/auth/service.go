// AngelaMos | 2026
// service.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/relaychat/admin-api/internal/config"
	"github.com/relaychat/admin-api/internal/core"
	"github.com/relaychat/admin-api/internal/middleware"
)

// UserInfo is the slice of an account the auth flow needs. The user package
// provides it; auth deliberately does not import user.
type UserInfo struct {
	ID             string
	Email          string
	Username       string
	Name           string
	PasswordHash   string
	Role           string
	OrganizationID *string
	Banned         bool
}

type UserProvider interface {
	GetForLogin(ctx context.Context, email string) (*UserInfo, error)
	GetInfoByID(ctx context.Context, id string) (*UserInfo, error)
	RecordLogin(ctx context.Context, userID string) error
}

type Service struct {
	repo   Repository
	users  UserProvider
	jwt    *JWTManager
	redis  *core.Redis
	config config.JWTConfig
	logger *slog.Logger
}

func NewService(
	repo Repository,
	users UserProvider,
	jwtManager *JWTManager,
	rdb *core.Redis,
	cfg config.JWTConfig,
	logger *slog.Logger,
) *Service {
	return &Service{
		repo:   repo,
		users:  users,
		jwt:    jwtManager,
		redis:  rdb,
		config: cfg,
		logger: logger,
	}
}

func (s *Service) Login(
	ctx context.Context,
	req LoginRequest,
	userAgent, ipAddress string,
) (*AuthResponse, error) {
	info, err := s.users.GetForLogin(ctx, req.Email)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			// Burn the same time as a real verification so a missing
			// account is indistinguishable from a wrong password.
			//nolint:errcheck // result is discarded on purpose
			_, _ = core.VerifyPasswordTimingSafe(req.Password, nil)
			return nil, core.UnauthorizedError("Invalid email or password")
		}
		return nil, fmt.Errorf("login lookup: %w", err)
	}

	valid, err := core.VerifyPasswordTimingSafe(
		req.Password, &info.PasswordHash,
	)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !valid {
		return nil, core.UnauthorizedError("Invalid email or password")
	}

	if info.Banned {
		return nil, core.ForbiddenError("This account has been suspended")
	}

	tokens, err := s.issueTokens(ctx, info, "", userAgent, ipAddress)
	if err != nil {
		return nil, err
	}

	if err := s.users.RecordLogin(ctx, info.ID); err != nil {
		s.logger.Warn("failed to record login time",
			slog.String("user_id", info.ID),
			slog.String("error", err.Error()),
		)
	}

	return &AuthResponse{
		User: AuthUserResponse{
			ID:             info.ID,
			Email:          info.Email,
			Username:       info.Username,
			Name:           info.Name,
			Role:           info.Role,
			OrganizationID: info.OrganizationID,
		},
		Tokens: *tokens,
	}, nil
}

func (s *Service) Refresh(
	ctx context.Context,
	req RefreshRequest,
	userAgent, ipAddress string,
) (*TokenResponse, error) {
	hash := core.HashToken(req.RefreshToken)

	stored, err := s.repo.FindByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, core.TokenInvalidError()
		}
		return nil, fmt.Errorf("refresh lookup: %w", err)
	}

	if stored.IsUsed {
		// A replayed token means the original was stolen or leaked.
		// Kill the whole family.
		s.logger.Warn("refresh token reuse detected",
			slog.String("user_id", stored.UserID),
			slog.String("family_id", stored.FamilyID),
		)
		if revokeErr := s.repo.RevokeByFamilyID(
			ctx, stored.FamilyID,
		); revokeErr != nil {
			s.logger.Error("failed to revoke token family",
				slog.String("family_id", stored.FamilyID),
				slog.String("error", revokeErr.Error()),
			)
		}
		return nil, core.TokenInvalidError()
	}

	if !stored.IsValid() {
		return nil, core.TokenInvalidError()
	}

	info, err := s.userByID(ctx, stored.UserID)
	if err != nil {
		return nil, err
	}
	if info.Banned {
		return nil, core.ForbiddenError("This account has been suspended")
	}

	refreshData, err := s.jwt.CreateRefreshToken(info.ID, stored.FamilyID)
	if err != nil {
		return nil, fmt.Errorf("rotate refresh token: %w", err)
	}

	next := &RefreshToken{
		ID:        uuid.New().String(),
		UserID:    info.ID,
		TokenHash: refreshData.Hash,
		FamilyID:  refreshData.FamilyID,
		ExpiresAt: refreshData.ExpiresAt,
		UserAgent: userAgent,
		IPAddress: ipAddress,
	}
	if err := s.repo.Create(ctx, next); err != nil {
		return nil, fmt.Errorf("persist rotated token: %w", err)
	}

	if err := s.repo.MarkAsUsed(ctx, stored.ID, next.ID); err != nil {
		return nil, fmt.Errorf("consume refresh token: %w", err)
	}

	accessToken, err := s.jwt.CreateAccessToken(AccessTokenClaims{
		UserID: info.ID,
		Role:   info.Role,
		OrgID:  orgIDString(info.OrganizationID),
	})
	if err != nil {
		return nil, fmt.Errorf("create access token: %w", err)
	}

	return &TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshData.Token,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.config.AccessTokenExpire.Seconds()),
	}, nil
}

func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	hash := core.HashToken(refreshToken)

	stored, err := s.repo.FindByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			// Already gone; logout is idempotent.
			return nil
		}
		return fmt.Errorf("logout lookup: %w", err)
	}

	if err := s.repo.RevokeByFamilyID(ctx, stored.FamilyID); err != nil {
		return fmt.Errorf("logout revoke: %w", err)
	}

	return nil
}

// InvalidateAllSessions revokes every refresh token the user holds and
// records an invalidation watermark in Redis so already-issued access
// tokens stop verifying immediately instead of at their natural expiry.
func (s *Service) InvalidateAllSessions(
	ctx context.Context,
	userID string,
) error {
	if err := s.repo.RevokeAllForUser(ctx, userID); err != nil {
		return fmt.Errorf("invalidate sessions: %w", err)
	}

	key := sessionInvalidationKey(userID)
	value := strconv.FormatInt(time.Now().UnixNano(), 10)
	ttl := s.config.AccessTokenExpire + time.Minute

	if err := s.redis.Client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("set invalidation watermark: %w", err)
	}

	return nil
}

// VerifyAccessToken implements middleware.TokenVerifier. A token that was
// issued before the user's invalidation watermark is rejected even though
// its signature and expiry are fine.
func (s *Service) VerifyAccessToken(
	ctx context.Context,
	tokenString string,
) (*middleware.AccessTokenClaims, error) {
	claims, err := s.jwt.ParseAccessToken(tokenString)
	if err != nil {
		return nil, err
	}

	value, err := s.redis.Client.Get(
		ctx, sessionInvalidationKey(claims.UserID),
	).Result()
	if errors.Is(err, redis.Nil) {
		return claims, nil
	}
	if err != nil {
		// Redis being down must not lock every admin out.
		s.logger.Warn("session invalidation check unavailable",
			slog.String("error", err.Error()),
		)
		return claims, nil
	}

	invalidatedAt, parseErr := strconv.ParseInt(value, 10, 64)
	if parseErr == nil && claims.IssuedAt.UnixNano() < invalidatedAt {
		return nil, fmt.Errorf(
			"verify token: sessions invalidated: %w",
			core.ErrTokenInvalid,
		)
	}

	return claims, nil
}

func (s *Service) GetActiveSessions(
	ctx context.Context,
	userID string,
) ([]SessionInfo, error) {
	tokens, err := s.repo.GetActiveSessionsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return toSessionInfoList(tokens), nil
}

// DeleteSessionsForUser is the cascade hook: when an account is being
// destroyed the session rows go with it.
func (s *Service) DeleteSessionsForUser(
	ctx context.Context,
	userID string,
) (int64, error) {
	return s.repo.DeleteAllForUser(ctx, userID)
}

func (s *Service) issueTokens(
	ctx context.Context,
	info *UserInfo,
	familyID, userAgent, ipAddress string,
) (*TokenResponse, error) {
	accessToken, err := s.jwt.CreateAccessToken(AccessTokenClaims{
		UserID: info.ID,
		Role:   info.Role,
		OrgID:  orgIDString(info.OrganizationID),
	})
	if err != nil {
		return nil, fmt.Errorf("create access token: %w", err)
	}

	refreshData, err := s.jwt.CreateRefreshToken(info.ID, familyID)
	if err != nil {
		return nil, fmt.Errorf("create refresh token: %w", err)
	}

	stored := &RefreshToken{
		ID:        uuid.New().String(),
		UserID:    info.ID,
		TokenHash: refreshData.Hash,
		FamilyID:  refreshData.FamilyID,
		ExpiresAt: refreshData.ExpiresAt,
		UserAgent: userAgent,
		IPAddress: ipAddress,
	}
	if err := s.repo.Create(ctx, stored); err != nil {
		return nil, fmt.Errorf("persist refresh token: %w", err)
	}

	return &TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshData.Token,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.config.AccessTokenExpire.Seconds()),
	}, nil
}

func (s *Service) userByID(
	ctx context.Context,
	userID string,
) (*UserInfo, error) {
	info, err := s.users.GetInfoByID(ctx, userID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, core.TokenInvalidError()
		}
		return nil, fmt.Errorf("refresh user lookup: %w", err)
	}
	return info, nil
}

func orgIDString(id *string) string {
	if id == nil {
		return ""
	}
	return *id
}

func sessionInvalidationKey(userID string) string {
	return "auth:session_invalidated:" + userID
}
