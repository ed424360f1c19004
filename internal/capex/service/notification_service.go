package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/bitfantasy/capex/internal/capex/entity"
	"github.com/bitfantasy/capex/internal/capex/repository"
	"github.com/bitfantasy/capex/internal/capex/workflow"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// 未读计数缓存
const (
	unreadKeyPrefix = "capex:unread:"
	unreadCacheTTL  = 24 * time.Hour
)

// NotificationService 通知分发服务
//
// Converts workflow events into per-user notifications. Redis only caches the
// unread counters; the notifications table stays the source of truth, so a
// cold or flushed cache is rebuilt from the database on the next read.
type NotificationService struct {
	notifRepo *repository.NotificationRepository
	userRepo  *repository.UserRepository
	rdb       *redis.Client
	logger    *zap.Logger
}

// NewNotificationService 创建通知服务
func NewNotificationService(notifRepo *repository.NotificationRepository, userRepo *repository.UserRepository, rdb *redis.Client, logger *zap.Logger) *NotificationService {
	return &NotificationService{notifRepo: notifRepo, userRepo: userRepo, rdb: rdb, logger: logger}
}

// NotifySubmitted 请求提交后通知首个审批层
//
// Every department head in scope gets an info notification. High-value
// requests additionally warn the committee up front so they can start reading
// before the chain reaches them.
func (s *NotificationService) NotifySubmitted(ctx context.Context, req *entity.CapexRequest) {
	amount := formatINR(req.Amount)

	s.notifyRole(ctx, req, entity.RoleDepartmentHead, entity.Notification{
		Title:   "New CapEx Request",
		Message: fmt.Sprintf("%s submitted %s (%s) for approval", req.RequesterName, req.Code, amount),
		Type:    entity.NotificationTypeInfo,
	})

	for i := range req.Steps {
		if req.Steps[i].Level == entity.RoleCapexCommittee {
			s.notifyRole(ctx, req, entity.RoleCapexCommittee, entity.Notification{
				Title:   "High Value CapEx Request",
				Message: fmt.Sprintf("%s (%s) exceeds the committee review threshold", req.Code, amount),
				Type:    entity.NotificationTypeWarning,
			})
			break
		}
	}
}

// Dispatch 消费审批链事件并生成通知
func (s *NotificationService) Dispatch(ctx context.Context, ev *workflow.Event) {
	if ev == nil {
		return
	}
	req := ev.Request

	switch ev.Kind {
	case workflow.EventAdvanced:
		n := entity.Notification{
			Title:   "CapEx Request Approved",
			Message: fmt.Sprintf("%s was approved by %s and awaits your review", req.Code, ev.Step.AssignedUserName),
			Type:    entity.NotificationTypeSuccess,
		}
		if ev.NextRole == entity.RoleCFO {
			n.Title = "Final Approval Required"
			n.Message = fmt.Sprintf("%s (%s) needs your final approval", req.Code, formatINR(req.Amount))
			n.Type = entity.NotificationTypeInfo
		}
		s.notifyRole(ctx, req, ev.NextRole, n)

	case workflow.EventApproved:
		s.notifyUser(ctx, req, req.RequesterID, entity.Notification{
			Title:   "CapEx Request Approved",
			Message: fmt.Sprintf("%s is fully approved. WBS %s has been assigned", req.Code, req.WBSCode),
			Type:    entity.NotificationTypeSuccess,
		})

	case workflow.EventRejected:
		s.notifyUser(ctx, req, req.RequesterID, entity.Notification{
			Title:   "CapEx Request Rejected",
			Message: fmt.Sprintf("%s was rejected by %s: %s", req.Code, ev.Step.AssignedUserName, ev.Step.Comments),
			Type:    entity.NotificationTypeError,
		})
	}
}

// ListForUser 获取用户的通知列表
func (s *NotificationService) ListForUser(ctx context.Context, userID string) ([]entity.Notification, error) {
	return s.notifRepo.ListByUser(ctx, userID)
}

// UnreadCount 获取未读通知数，优先读缓存
func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	if s.rdb != nil {
		cached, err := s.rdb.Get(ctx, unreadKeyPrefix+userID).Result()
		if err == nil {
			if count, perr := strconv.ParseInt(cached, 10, 64); perr == nil {
				return count, nil
			}
		}
	}

	count, err := s.notifRepo.CountUnread(ctx, userID)
	if err != nil {
		return 0, err
	}
	if s.rdb != nil {
		if err := s.rdb.Set(ctx, unreadKeyPrefix+userID, count, unreadCacheTTL).Err(); err != nil {
			s.logger.Warn("cache unread count", zap.String("user_id", userID), zap.Error(err))
		}
	}
	return count, nil
}

// MarkRead 标记单条通知已读
func (s *NotificationService) MarkRead(ctx context.Context, id, userID string) error {
	if err := s.notifRepo.MarkRead(ctx, id, userID); err != nil {
		return err
	}
	s.invalidateUnread(ctx, userID)
	return nil
}

// MarkAllRead 标记全部通知已读
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) error {
	if err := s.notifRepo.MarkAllRead(ctx, userID); err != nil {
		return err
	}
	s.invalidateUnread(ctx, userID)
	return nil
}

// notifyRole 向可处理该请求某审批角色的全部用户发通知
func (s *NotificationService) notifyRole(ctx context.Context, req *entity.CapexRequest, role string, template entity.Notification) {
	users, err := s.userRepo.ListEligibleApprovers(ctx, role, req.Plant, req.BusinessUnit)
	if err != nil {
		s.logger.Error("resolve notification recipients",
			zap.String("request", req.Code), zap.String("role", role), zap.Error(err))
		return
	}

	now := time.Now()
	ns := make([]entity.Notification, 0, len(users))
	for i := range users {
		n := template
		n.ID = uuid.New().String()
		n.UserID = users[i].ID
		n.RelatedRequestID = req.Code
		n.CreatedAt = now
		ns = append(ns, n)
	}
	if err := s.notifRepo.CreateBatch(ctx, ns); err != nil {
		s.logger.Error("create notifications", zap.String("request", req.Code), zap.Error(err))
		return
	}
	for i := range ns {
		s.bumpUnread(ctx, ns[i].UserID)
	}
}

// notifyUser 向单个用户发通知
func (s *NotificationService) notifyUser(ctx context.Context, req *entity.CapexRequest, userID string, n entity.Notification) {
	n.ID = uuid.New().String()
	n.UserID = userID
	n.RelatedRequestID = req.Code
	n.CreatedAt = time.Now()
	if err := s.notifRepo.Create(ctx, &n); err != nil {
		s.logger.Error("create notification", zap.String("request", req.Code), zap.Error(err))
		return
	}
	s.bumpUnread(ctx, userID)
}

func (s *NotificationService) bumpUnread(ctx context.Context, userID string) {
	if s.rdb == nil {
		return
	}
	key := unreadKeyPrefix + userID
	// Only bump an existing counter; a missing key is repopulated from the
	// database on the next UnreadCount call.
	exists, err := s.rdb.Exists(ctx, key).Result()
	if err != nil || exists == 0 {
		return
	}
	if err := s.rdb.Incr(ctx, key).Err(); err != nil {
		s.logger.Warn("bump unread count", zap.String("user_id", userID), zap.Error(err))
	}
}

func (s *NotificationService) invalidateUnread(ctx context.Context, userID string) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Del(ctx, unreadKeyPrefix+userID).Err(); err != nil {
		s.logger.Warn("invalidate unread count", zap.String("user_id", userID), zap.Error(err))
	}
}

// formatINR 将最小货币单位（paise）格式化为印度分组的卢比金额，如 ₹45,00,000
func formatINR(paise int64) string {
	rupees := paise / 100
	sign := ""
	if rupees < 0 {
		sign = "-"
		rupees = -rupees
	}

	digits := strconv.FormatInt(rupees, 10)
	if len(digits) <= 3 {
		return "₹" + sign + digits
	}

	// Last three digits form one group, the rest group by twos.
	out := digits[len(digits)-3:]
	rest := digits[:len(digits)-3]
	for len(rest) > 2 {
		out = rest[len(rest)-2:] + "," + out
		rest = rest[:len(rest)-2]
	}
	return "₹" + sign + rest + "," + out
}
