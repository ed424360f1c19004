package service

import (
	"errors"

	"github.com/bitfantasy/capex/internal/capex/repository"
	"github.com/bitfantasy/capex/internal/capex/workflow"
	"github.com/bitfantasy/capex/internal/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// 服务层错误定义
var (
	// ErrValidation marks malformed submissions (missing fields,
	// non-positive amounts). Surfaced to callers as a 400-class response.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidCredentials 用户名/密码/角色不匹配
	ErrInvalidCredentials = errors.New("invalid credentials or role")
)

// Services 服务集合
type Services struct {
	Auth         *AuthService
	Request      *RequestService
	Notification *NotificationService
	Registry     workflow.Registry
}

// NewServices 创建服务集合
func NewServices(repos *repository.Repositories, rdb *redis.Client, cfg *config.Config, logger *zap.Logger) *Services {
	registry := workflow.NewRegistry(cfg.Workflow.CommitteeThreshold)

	notification := NewNotificationService(repos.Notification, repos.User, rdb, logger)
	return &Services{
		Auth:         NewAuthService(repos.User, cfg),
		Request:      NewRequestService(repos.Request, repos.User, notification, registry),
		Notification: notification,
		Registry:     registry,
	}
}
