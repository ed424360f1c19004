package handler

import (
	"fmt"
	"net/url"
	"time"

	"github.com/bitfantasy/capex/internal/capex/entity"
	"github.com/bitfantasy/capex/internal/capex/service"
	"github.com/bitfantasy/capex/internal/capex/workflow"
	"github.com/gin-gonic/gin"
)

// RequestHandler CapEx请求处理器
type RequestHandler struct {
	svc   *service.RequestService
	users *service.AuthService
}

// NewRequestHandler 创建请求处理器
func NewRequestHandler(svc *service.RequestService, users *service.AuthService) *RequestHandler {
	return &RequestHandler{svc: svc, users: users}
}

// viewer 加载当前登录用户完整记录
//
// Authorization decisions depend on status and scope columns that are not in
// the token claims, so the handler reads the user row instead of trusting the
// claims snapshot.
func (h *RequestHandler) viewer(c *gin.Context) (*entity.User, bool) {
	user, err := h.users.GetUser(c.Request.Context(), GetUserID(c))
	if err != nil {
		Unauthorized(c, "unknown user")
		return nil, false
	}
	return user, true
}

// Create 提交新的CapEx请求
func (h *RequestHandler) Create(c *gin.Context) {
	var req service.SubmitInput
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	request, err := h.svc.Submit(c.Request.Context(), GetUserID(c), &req)
	if err != nil {
		RespondError(c, err)
		return
	}

	Created(c, request)
}

// List 获取请求列表
func (h *RequestHandler) List(c *gin.Context) {
	viewer, ok := h.viewer(c)
	if !ok {
		return
	}

	page, pageSize := GetPagination(c)
	filters := map[string]interface{}{
		"keyword": c.Query("keyword"),
		"status":  c.Query("status"),
		"type":    c.Query("type"),
		"plant":   c.Query("plant"),
	}

	requests, total, err := h.svc.List(c.Request.Context(), viewer, page, pageSize, filters)
	if err != nil {
		InternalError(c, err.Error())
		return
	}

	totalPages := (total + int64(pageSize) - 1) / int64(pageSize)
	Success(c, ListResponse{
		Items: requests,
		Pagination: &Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
		},
	})
}

// Mine 获取当前用户发起的请求
func (h *RequestHandler) Mine(c *gin.Context) {
	requests, err := h.svc.ListMine(c.Request.Context(), GetUserID(c))
	if err != nil {
		InternalError(c, err.Error())
		return
	}

	Success(c, requests)
}

// Pending 获取等待当前用户审批的请求
func (h *RequestHandler) Pending(c *gin.Context) {
	viewer, ok := h.viewer(c)
	if !ok {
		return
	}

	requests, err := h.svc.ListPending(c.Request.Context(), viewer)
	if err != nil {
		InternalError(c, err.Error())
		return
	}

	Success(c, requests)
}

// Stats 请求统计
func (h *RequestHandler) Stats(c *gin.Context) {
	viewer, ok := h.viewer(c)
	if !ok {
		return
	}

	stats, err := h.svc.Stats(c.Request.Context(), viewer)
	if err != nil {
		InternalError(c, err.Error())
		return
	}

	Success(c, stats)
}

// Get 获取请求详情，ID或编号均可
func (h *RequestHandler) Get(c *gin.Context) {
	key := c.Param("id")
	if key == "" {
		BadRequest(c, "Request ID is required")
		return
	}

	viewer, ok := h.viewer(c)
	if !ok {
		return
	}

	request, err := h.svc.Get(c.Request.Context(), key, viewer)
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, request)
}

// Approve 审批通过当前环节
func (h *RequestHandler) Approve(c *gin.Context) {
	key := c.Param("id")
	if key == "" {
		BadRequest(c, "Request ID is required")
		return
	}

	var req struct {
		Comment string `json:"comment"`
	}
	c.ShouldBindJSON(&req)

	request, err := h.svc.Decide(c.Request.Context(), key, GetUserID(c), workflow.DecisionApprove, req.Comment)
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, request)
}

// Reject 驳回当前环节
func (h *RequestHandler) Reject(c *gin.Context) {
	key := c.Param("id")
	if key == "" {
		BadRequest(c, "Request ID is required")
		return
	}

	var req struct {
		Comment string `json:"comment" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Comment is required")
		return
	}

	request, err := h.svc.Decide(c.Request.Context(), key, GetUserID(c), workflow.DecisionReject, req.Comment)
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, request)
}

// Cancel 请求人撤销请求
func (h *RequestHandler) Cancel(c *gin.Context) {
	key := c.Param("id")
	if key == "" {
		BadRequest(c, "Request ID is required")
		return
	}

	request, err := h.svc.Cancel(c.Request.Context(), key, GetUserID(c))
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, request)
}

// Export 导出请求列表为Excel
func (h *RequestHandler) Export(c *gin.Context) {
	viewer, ok := h.viewer(c)
	if !ok {
		return
	}

	filters := map[string]interface{}{
		"keyword": c.Query("keyword"),
		"status":  c.Query("status"),
		"type":    c.Query("type"),
		"plant":   c.Query("plant"),
	}

	f, err := h.svc.Export(c.Request.Context(), viewer, filters)
	if err != nil {
		InternalError(c, err.Error())
		return
	}
	defer f.Close()

	filename := fmt.Sprintf("capex-requests-%s.xlsx", time.Now().Format("20060102"))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", `attachment; filename="`+url.PathEscape(filename)+`"`)

	if err := f.Write(c.Writer); err != nil {
		InternalError(c, err.Error())
		return
	}
}
