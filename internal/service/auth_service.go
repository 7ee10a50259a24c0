package service

import (
	"context"
	"errors"
	"time"

	"github.com/edcadet10/tikes/internal/config"
	"github.com/edcadet10/tikes/internal/dto"
	"github.com/edcadet10/tikes/internal/middleware"
	"github.com/edcadet10/tikes/internal/model"
	"github.com/edcadet10/tikes/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid phone or PIN")

type AuthService interface {
	Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*dto.LoginResponse, error)
	Revoke(ctx context.Context, tokenID string) error
}

type authService struct {
	users repository.UserRepository
	rdb   *redis.Client
	cfg   *config.Config
}

func NewAuthService(users repository.UserRepository, rdb *redis.Client, cfg *config.Config) AuthService {
	return &authService{users: users, rdb: rdb, cfg: cfg}
}

func (s *authService) Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error) {
	user, err := s.users.FindByPhone(ctx, req.Phone)
	if err != nil || !user.IsActive {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PinHash), []byte(req.PIN)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.issueTokens(user)
}

func (s *authService) Refresh(ctx context.Context, refreshToken string) (*dto.LoginResponse, error) {
	claims := &middleware.JWTClaims{}
	token, err := jwt.ParseWithClaims(refreshToken, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, errors.New("invalid or expired refresh token")
	}

	if s.rdb != nil && claims.ID != "" {
		n, err := s.rdb.Exists(ctx, middleware.RevokedKeyPrefix+claims.ID).Result()
		if err != nil || n > 0 {
			return nil, errors.New("refresh token revoked")
		}
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil || !user.IsActive {
		return nil, errors.New("user not found or inactive")
	}

	return s.issueTokens(user)
}

// Revoke denylists a token id. The key expires with the longest-lived token
// so the denylist never grows unbounded.
func (s *authService) Revoke(ctx context.Context, tokenID string) error {
	if s.rdb == nil {
		return errors.New("revocation store unavailable")
	}
	ttl := time.Duration(s.cfg.JWTRefreshHours) * time.Hour
	return s.rdb.Set(ctx, middleware.RevokedKeyPrefix+tokenID, "1", ttl).Err()
}

func (s *authService) issueTokens(user *model.User) (*dto.LoginResponse, error) {
	accessToken, err := s.signToken(user, time.Duration(s.cfg.JWTExpirationHours)*time.Hour)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.signToken(user, time.Duration(s.cfg.JWTRefreshHours)*time.Hour)
	if err != nil {
		return nil, err
	}

	return &dto.LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "bearer",
		ExpiresIn:    s.cfg.JWTExpirationHours * 3600,
		BusinessID:   user.BusinessID,
		UserID:       user.ID,
		Role:         user.Role,
	}, nil
}

func (s *authService) signToken(user *model.User, duration time.Duration) (string, error) {
	now := time.Now()
	claims := middleware.JWTClaims{
		UserID:     user.ID,
		BusinessID: user.BusinessID,
		Role:       user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(duration)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}
