package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bitfantasy/capex/internal/capex/entity"
	"github.com/bitfantasy/capex/internal/capex/repository"
	"github.com/bitfantasy/capex/internal/config"
	"github.com/bitfantasy/capex/internal/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// AuthService 认证服务
type AuthService struct {
	userRepo *repository.UserRepository
	cfg      *config.Config
}

// NewAuthService 创建认证服务
func NewAuthService(userRepo *repository.UserRepository, cfg *config.Config) *AuthService {
	return &AuthService{userRepo: userRepo, cfg: cfg}
}

// LoginResult 登录结果
type LoginResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *entity.User `json:"user"`
}

// Login 用户名+密码+角色登录
//
// The role must match the account's role: the login form asks users to pick
// the capacity they sign in as, and a mismatch is treated the same as a bad
// password.
func (s *AuthService) Login(ctx context.Context, username, password, role string) (*LoginResult, error) {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.IsActive() || user.Role != role {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	now := time.Now()
	expiresAt := now.Add(s.tokenTTL())

	claims := middleware.JWTClaims{
		UserID:       user.ID,
		Name:         user.Name,
		Email:        user.Email,
		Role:         user.Role,
		Department:   user.Department,
		Plant:        user.Plant,
		BusinessUnit: user.BusinessUnit,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    s.cfg.JWT.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.New().String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWT.Secret))
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	// 登录时间更新失败不影响登录
	_ = s.userRepo.TouchLastLogin(ctx, user.ID, now)
	user.LastLoginAt = &now

	return &LoginResult{Token: signed, ExpiresAt: expiresAt, User: user}, nil
}

// GetUser 获取用户信息
func (s *AuthService) GetUser(ctx context.Context, id string) (*entity.User, error) {
	return s.userRepo.FindByID(ctx, id)
}

// ListUsers 获取用户列表（可按角色过滤）
func (s *AuthService) ListUsers(ctx context.Context, role string) ([]entity.User, error) {
	return s.userRepo.List(ctx, role)
}

// UpdateProfile 更新当前用户资料，仅姓名与邮箱可改
func (s *AuthService) UpdateProfile(ctx context.Context, userID, name, email string) (*entity.User, error) {
	if name == "" || email == "" {
		return nil, fmt.Errorf("%w: name and email are required", ErrValidation)
	}
	if err := s.userRepo.UpdateProfile(ctx, userID, name, email); err != nil {
		return nil, err
	}
	return s.userRepo.FindByID(ctx, userID)
}

// HashPassword 生成密码哈希，供种子数据和测试使用
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (s *AuthService) tokenTTL() time.Duration {
	if s.cfg.JWT.AccessTokenExpire > 0 {
		return s.cfg.JWT.AccessTokenExpire
	}
	// 会话有效期默认8小时
	return 8 * time.Hour
}
