package handler

import (
	"errors"
	"strconv"

	"github.com/bitfantasy/capex/internal/capex/entity"
	"github.com/bitfantasy/capex/internal/capex/repository"
	"github.com/bitfantasy/capex/internal/capex/service"
	"github.com/bitfantasy/capex/internal/capex/workflow"
	"github.com/gin-gonic/gin"
)

// Handlers 处理器集合
type Handlers struct {
	Auth         *AuthHandler
	Request      *RequestHandler
	Notification *NotificationHandler
	User         *UserHandler

	registry workflow.Registry
}

// NewHandlers 创建处理器集合
func NewHandlers(svc *service.Services) *Handlers {
	return &Handlers{
		Auth:         NewAuthHandler(svc.Auth),
		Request:      NewRequestHandler(svc.Request, svc.Auth),
		Notification: NewNotificationHandler(svc.Notification),
		User:         NewUserHandler(svc.Auth),
		registry:     svc.Registry,
	}
}

// Meta 返回前端构建表单所需的角色、类型与审批阈值
func (h *Handlers) Meta(c *gin.Context) {
	roles := make([]gin.H, 0)
	for _, role := range workflow.Roles() {
		roles = append(roles, gin.H{
			"value": role,
			"label": workflow.RoleLabel(role),
			"level": workflow.RoleLevel(role),
		})
	}

	Success(c, gin.H{
		"roles": roles,
		"capex_types": []string{
			entity.CapexTypeRevenueGrowth,
			entity.CapexTypeMaintenance,
		},
		"currency":            entity.CurrencyINR,
		"committee_threshold": h.registry.CommitteeThreshold(),
	})
}

// Response 通用响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ListResponse 列表响应结构
type ListResponse struct {
	Items      interface{} `json:"items"`
	Pagination *Pagination `json:"pagination"`
}

// Pagination 分页信息
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(200, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Created 创建成功响应
func Created(c *gin.Context, data interface{}) {
	c.JSON(201, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Error 错误响应
func Error(c *gin.Context, code int, message string) {
	statusCode := code / 100
	if statusCode < 100 || statusCode > 599 {
		statusCode = 500
	}
	c.JSON(statusCode, Response{
		Code:    code,
		Message: message,
	})
}

// BadRequest 参数错误响应
func BadRequest(c *gin.Context, message string) {
	Error(c, 40000, message)
}

// Unauthorized 未授权响应
func Unauthorized(c *gin.Context, message string) {
	Error(c, 40100, message)
}

// Forbidden 禁止访问响应
func Forbidden(c *gin.Context, message string) {
	Error(c, 40300, message)
}

// NotFound 资源不存在响应
func NotFound(c *gin.Context, message string) {
	Error(c, 40400, message)
}

// Conflict 状态冲突响应
func Conflict(c *gin.Context, message string) {
	Error(c, 40900, message)
}

// InternalError 服务器错误响应
func InternalError(c *gin.Context, message string) {
	Error(c, 50000, message)
}

// RespondError 按服务层错误类型映射HTTP响应
func RespondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		BadRequest(c, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		Unauthorized(c, err.Error())
	case errors.Is(err, workflow.ErrNotAuthorized):
		Forbidden(c, err.Error())
	case errors.Is(err, workflow.ErrInvalidState):
		Conflict(c, err.Error())
	case errors.Is(err, repository.ErrNotFound):
		NotFound(c, "resource not found")
	default:
		InternalError(c, err.Error())
	}
}

// GetUserID 从上下文获取用户ID
func GetUserID(c *gin.Context) string {
	userID, _ := c.Get("user_id")
	if id, ok := userID.(string); ok {
		return id
	}
	return ""
}

// GetPagination 从请求获取分页参数
func GetPagination(c *gin.Context) (page, pageSize int) {
	page = 1
	pageSize = 20

	if p := c.Query("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v
		}
	}

	if ps := c.Query("page_size"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
			pageSize = v
		}
	}

	return page, pageSize
}
