package handler

import (
	"github.com/bitfantasy/capex/internal/capex/service"
	"github.com/gin-gonic/gin"
)

// UserHandler 用户处理器，仅管理员路由挂载
type UserHandler struct {
	svc *service.AuthService
}

// NewUserHandler 创建用户处理器
func NewUserHandler(svc *service.AuthService) *UserHandler {
	return &UserHandler{svc: svc}
}

// List 获取用户列表，可按角色过滤
func (h *UserHandler) List(c *gin.Context) {
	users, err := h.svc.ListUsers(c.Request.Context(), c.Query("role"))
	if err != nil {
		InternalError(c, err.Error())
		return
	}

	Success(c, users)
}

// Get 获取用户详情
func (h *UserHandler) Get(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		BadRequest(c, "User ID is required")
		return
	}

	user, err := h.svc.GetUser(c.Request.Context(), id)
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, user)
}
