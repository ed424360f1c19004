package handler

import (
	"github.com/bitfantasy/capex/internal/capex/service"
	"github.com/gin-gonic/gin"
)

// NotificationHandler 通知处理器
type NotificationHandler struct {
	svc *service.NotificationService
}

// NewNotificationHandler 创建通知处理器
func NewNotificationHandler(svc *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{svc: svc}
}

// List 获取当前用户的通知列表
func (h *NotificationHandler) List(c *gin.Context) {
	ns, err := h.svc.ListForUser(c.Request.Context(), GetUserID(c))
	if err != nil {
		InternalError(c, err.Error())
		return
	}

	Success(c, ns)
}

// UnreadCount 获取未读通知数
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	count, err := h.svc.UnreadCount(c.Request.Context(), GetUserID(c))
	if err != nil {
		InternalError(c, err.Error())
		return
	}

	Success(c, gin.H{"count": count})
}

// MarkRead 标记单条通知已读
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		BadRequest(c, "Notification ID is required")
		return
	}

	if err := h.svc.MarkRead(c.Request.Context(), id, GetUserID(c)); err != nil {
		RespondError(c, err)
		return
	}

	Success(c, nil)
}

// MarkAllRead 标记全部通知已读
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	if err := h.svc.MarkAllRead(c.Request.Context(), GetUserID(c)); err != nil {
		InternalError(c, err.Error())
		return
	}

	Success(c, nil)
}
