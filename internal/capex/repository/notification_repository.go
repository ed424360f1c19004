package repository

import (
	"context"

	"github.com/bitfantasy/capex/internal/capex/entity"
	"gorm.io/gorm"
)

// NotificationRepository 通知仓库
type NotificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository 创建通知仓库
func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create 创建单条通知
func (r *NotificationRepository) Create(ctx context.Context, n *entity.Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

// CreateBatch 批量创建通知
func (r *NotificationRepository) CreateBatch(ctx context.Context, ns []entity.Notification) error {
	if len(ns) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&ns).Error
}

// ListByUser 获取某用户的通知，按时间倒序
func (r *NotificationRepository) ListByUser(ctx context.Context, userID string) ([]entity.Notification, error) {
	var ns []entity.Notification
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&ns).Error
	if err != nil {
		return nil, err
	}
	return ns, nil
}

// CountUnread 统计某用户未读通知数
func (r *NotificationRepository) CountUnread(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.Notification{}).
		Where("user_id = ? AND read = false", userID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// MarkRead 将某用户的一条通知标记为已读
//
// Returns ErrNotFound when the notification does not exist or belongs to a
// different user; marking an already-read notification again is a no-op.
func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID string) error {
	result := r.db.WithContext(ctx).
		Model(&entity.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("read", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkAllRead 将某用户全部通知标记为已读
func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID string) error {
	return r.db.WithContext(ctx).
		Model(&entity.Notification{}).
		Where("user_id = ? AND read = false", userID).
		Update("read", true).Error
}
