package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/yungbote/recommend-backend/internal/data/repos"
	types "github.com/yungbote/recommend-backend/internal/domain"
	"github.com/yungbote/recommend-backend/internal/pkg/dbctx"
	"github.com/yungbote/recommend-backend/internal/platform/ctxutil"
	"github.com/yungbote/recommend-backend/internal/platform/logger"
)

var ErrUnauthenticated = errors.New("unauthenticated")

// JWTClaims are issued by the identity provider. The profile claims are
// optional; when email is present the local user row is synced from them.
type JWTClaims struct {
	Email      string `json:"email,omitempty"`
	GivenName  string `json:"given_name,omitempty"`
	FamilyName string `json:"family_name,omitempty"`
	jwt.RegisteredClaims
}

type AuthService interface {
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
	IssueToken(user *types.User, ttl time.Duration) (string, error)
}

type authService struct {
	log          *logger.Logger
	userRepo     repos.UserRepo
	jwtSecretKey string
}

func NewAuthService(baseLog *logger.Logger, userRepo repos.UserRepo, jwtSecretKey string) AuthService {
	return &authService{
		log:          baseLog.With("service", "AuthService"),
		userRepo:     userRepo,
		jwtSecretKey: jwtSecretKey,
	}
}

func (as *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	if tokenString == "" {
		return ctx, ErrUnauthenticated
	}
	parsedToken, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(as.jwtSecretKey), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return ctx, fmt.Errorf("%w: parse token: %v", ErrUnauthenticated, err)
	}
	claims, ok := parsedToken.Claims.(*JWTClaims)
	if !ok || !parsedToken.Valid {
		return ctx, fmt.Errorf("%w: invalid or expired token", ErrUnauthenticated)
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return ctx, fmt.Errorf("%w: invalid user id in token", ErrUnauthenticated)
	}

	dbc := dbctx.Context{Ctx: ctx}
	if email := strings.TrimSpace(claims.Email); email != "" {
		if err := as.userRepo.Upsert(dbc, &types.User{
			ID:        userID,
			Email:     email,
			FirstName: strings.TrimSpace(claims.GivenName),
			LastName:  strings.TrimSpace(claims.FamilyName),
		}); err != nil {
			as.log.Warn("Failed to sync user from token", "user_id", userID, "error", err)
			return ctx, fmt.Errorf("sync user: %w", err)
		}
	}
	user, err := as.userRepo.GetByID(dbc, userID)
	if err != nil {
		return ctx, fmt.Errorf("load user: %w", err)
	}
	if user == nil || !user.Active() {
		return ctx, fmt.Errorf("%w: unknown or inactive user", ErrUnauthenticated)
	}

	return ctxutil.WithRequestData(ctx, &ctxutil.RequestData{
		UserID:      userID,
		TokenString: tokenString,
	}), nil
}

// IssueToken signs a token the way the identity provider does. Used by the
// CLI and tests.
func (as *authService) IssueToken(user *types.User, ttl time.Duration) (string, error) {
	if user == nil || user.ID == uuid.Nil {
		return "", fmt.Errorf("user required")
	}
	now := time.Now()
	claims := JWTClaims{
		Email:      user.Email,
		GivenName:  user.FirstName,
		FamilyName: user.LastName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(as.jwtSecretKey))
}
