package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bitfantasy/capex/internal/capex/entity"
	"gorm.io/gorm"
)

// UserRepository 用户仓库
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository 创建用户仓库
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByID 根据ID查找用户
func (r *UserRepository) FindByID(ctx context.Context, id string) (*entity.User, error) {
	var user entity.User
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// FindByUsername 根据用户名查找用户
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*entity.User, error) {
	var user entity.User
	err := r.db.WithContext(ctx).
		Where("username = ?", username).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// Create 创建用户
func (r *UserRepository) Create(ctx context.Context, user *entity.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// List 获取用户列表
func (r *UserRepository) List(ctx context.Context, role string) ([]entity.User, error) {
	var users []entity.User
	query := r.db.WithContext(ctx)
	if role != "" {
		query = query.Where("role = ?", role)
	}
	err := query.Order("name ASC").Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

// ListEligibleApprovers 返回可以处理某请求指定审批角色的用户
//
// Mirrors the decision-time resolution policy: department and plant heads are
// scoped to the request's plant/business unit, the higher roles cover the
// whole organization through their own scope markers.
func (r *UserRepository) ListEligibleApprovers(ctx context.Context, role, plant, businessUnit string) ([]entity.User, error) {
	var users []entity.User
	query := r.db.WithContext(ctx).
		Where("role = ? AND status = ?", role, entity.UserStatusActive)

	switch role {
	case entity.RoleDepartmentHead, entity.RolePlantHead:
		query = query.
			Where("plant IN ?", []string{plant, entity.ScopeAllPlants}).
			Where("business_unit IN ?", []string{businessUnit, entity.ScopeAllBusinessUnits})
	default:
		query = query.
			Where("business_unit IN ?", []string{businessUnit, entity.ScopeAllBusinessUnits})
	}

	if err := query.Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// UpdateProfile 更新用户资料（仅姓名和邮箱）
func (r *UserRepository) UpdateProfile(ctx context.Context, id, name, email string) error {
	result := r.db.WithContext(ctx).
		Model(&entity.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"name":       name,
			"email":      email,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// TouchLastLogin 更新最近登录时间
func (r *UserRepository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&entity.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"last_login_at": at,
			"updated_at":    at,
		}).Error
}
