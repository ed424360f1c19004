package handler

import (
	"github.com/bitfantasy/capex/internal/capex/service"
	"github.com/gin-gonic/gin"
)

// AuthHandler 认证处理器
type AuthHandler struct {
	svc *service.AuthService
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(svc *service.AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

// Login 用户登录
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
		Role     string `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	result, err := h.svc.Login(c.Request.Context(), req.Username, req.Password, req.Role)
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, result)
}

// Me 获取当前登录用户
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.svc.GetUser(c.Request.Context(), GetUserID(c))
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, user)
}

// UpdateProfile 更新当前用户资料
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	var req struct {
		Name  string `json:"name" binding:"required"`
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	user, err := h.svc.UpdateProfile(c.Request.Context(), GetUserID(c), req.Name, req.Email)
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, user)
}
