package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bitfantasy/capex/internal/capex/entity"
	"github.com/bitfantasy/capex/internal/capex/repository"
	"github.com/bitfantasy/capex/internal/capex/workflow"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

// RequestService CapEx请求服务
type RequestService struct {
	requestRepo *repository.RequestRepository
	userRepo    *repository.UserRepository
	notifier    *NotificationService
	registry    workflow.Registry
}

// NewRequestService 创建请求服务
func NewRequestService(requestRepo *repository.RequestRepository, userRepo *repository.UserRepository, notifier *NotificationService, registry workflow.Registry) *RequestService {
	return &RequestService{
		requestRepo: requestRepo,
		userRepo:    userRepo,
		notifier:    notifier,
		registry:    registry,
	}
}

// DocumentInput 提交时附带的文件元数据
type DocumentInput struct {
	Name string `json:"name" binding:"required"`
	Type string `json:"type"`
	Size string `json:"size"`
}

// SubmitInput 提交请求的输入
type SubmitInput struct {
	Title            string          `json:"title" binding:"required"`
	Description      string          `json:"description"`
	Type             string          `json:"type" binding:"required"`
	Amount           int64           `json:"amount" binding:"required"`
	Justification    string          `json:"justification"`
	ExpectedDelivery string          `json:"expected_delivery"`
	Documents        []DocumentInput `json:"documents"`
}

// Submit 提交新的CapEx请求
//
// Snapshots the requester's org placement onto the request, builds the
// approval chain for the amount, and notifies the first approver level.
func (s *RequestService) Submit(ctx context.Context, requesterID string, input *SubmitInput) (*entity.CapexRequest, error) {
	if input.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	if input.Type != entity.CapexTypeRevenueGrowth && input.Type != entity.CapexTypeMaintenance {
		return nil, fmt.Errorf("%w: unknown capex type %q", ErrValidation, input.Type)
	}

	requester, err := s.userRepo.FindByID(ctx, requesterID)
	if err != nil {
		return nil, err
	}

	code, err := s.requestRepo.GenerateCode(ctx)
	if err != nil {
		return nil, fmt.Errorf("generate request code: %w", err)
	}

	now := time.Now()
	req := &entity.CapexRequest{
		ID:               uuid.New().String(),
		Code:             code,
		Title:            input.Title,
		Description:      input.Description,
		Type:             input.Type,
		Amount:           input.Amount,
		Currency:         entity.CurrencyINR,
		Department:       requester.Department,
		Plant:            requester.Plant,
		BusinessUnit:     requester.BusinessUnit,
		RequesterID:      requester.ID,
		RequesterName:    requester.Name,
		Status:           entity.RequestStatusPending,
		CurrentApprover:  entity.RoleDepartmentHead,
		Justification:    input.Justification,
		ExpectedDelivery: input.ExpectedDelivery,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	req.Steps = s.registry.BuildChain(requester, input.Amount, now)
	for i := range req.Steps {
		req.Steps[i].RequestID = req.ID
	}
	for _, doc := range input.Documents {
		req.Documents = append(req.Documents, entity.RequestDocument{
			ID:         uuid.New().String(),
			RequestID:  req.ID,
			Name:       doc.Name,
			Type:       doc.Type,
			Size:       doc.Size,
			UploadedAt: now,
		})
	}

	if err := s.requestRepo.Create(ctx, req); err != nil {
		return nil, err
	}

	s.notifier.NotifySubmitted(ctx, req)
	return req, nil
}

// Decide 在请求的当前审批环节上执行审批或驳回
//
// The whole decision runs inside one row-locked transaction; notifications go
// out only after the transaction commits.
func (s *RequestService) Decide(ctx context.Context, key, actorID string, decision workflow.Decision, comment string) (*entity.CapexRequest, error) {
	if decision == workflow.DecisionReject && comment == "" {
		return nil, fmt.Errorf("%w: a rejection requires a comment", ErrValidation)
	}

	actor, err := s.userRepo.FindByID(ctx, actorID)
	if err != nil {
		return nil, err
	}

	var event *workflow.Event
	req, err := s.requestRepo.Transact(ctx, key, func(req *entity.CapexRequest) error {
		ev, derr := workflow.Decide(req, actor, decision, comment, time.Now())
		if derr != nil {
			return derr
		}
		event = ev
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Dispatch(ctx, event)
	return req, nil
}

// Cancel 请求人撤销自己的未完结请求
func (s *RequestService) Cancel(ctx context.Context, key, actorID string) (*entity.CapexRequest, error) {
	return s.requestRepo.Transact(ctx, key, func(req *entity.CapexRequest) error {
		if req.RequesterID != actorID {
			return workflow.ErrNotAuthorized
		}
		if req.IsTerminal() {
			return workflow.ErrInvalidState
		}
		req.Status = entity.RequestStatusCancelled
		req.CurrentApprover = ""
		req.UpdatedAt = time.Now()
		return nil
	})
}

// Get 获取请求详情，带可见性检查
func (s *RequestService) Get(ctx context.Context, key string, viewer *entity.User) (*entity.CapexRequest, error) {
	req, err := s.requestRepo.FindByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	if !s.canView(req, viewer) {
		return nil, workflow.ErrNotAuthorized
	}
	return req, nil
}

// ListMine 获取用户自己发起的请求
func (s *RequestService) ListMine(ctx context.Context, userID string) ([]entity.CapexRequest, error) {
	return s.requestRepo.ListByRequester(ctx, userID)
}

// ListPending 获取等待该用户审批的请求
func (s *RequestService) ListPending(ctx context.Context, user *entity.User) ([]entity.CapexRequest, error) {
	return s.requestRepo.ListPendingFor(ctx, user)
}

// List 按条件分页查询请求，非全局角色只能看到自己的
func (s *RequestService) List(ctx context.Context, viewer *entity.User, page, pageSize int, filters map[string]interface{}) ([]entity.CapexRequest, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	if !CanViewAllRequests(viewer.Role) {
		filters["requester_id"] = viewer.ID
	}
	return s.requestRepo.List(ctx, page, pageSize, filters)
}

// Stats 请求统计，按可见范围区分全局与个人，并附带本人的待审批数
func (s *RequestService) Stats(ctx context.Context, viewer *entity.User) (*repository.RequestStats, error) {
	requesterID := viewer.ID
	if CanViewAllRequests(viewer.Role) {
		requesterID = ""
	}
	stats, err := s.requestRepo.Stats(ctx, requesterID)
	if err != nil {
		return nil, err
	}

	pending, err := s.requestRepo.CountPendingFor(ctx, viewer)
	if err != nil {
		return nil, err
	}
	stats.PendingApprovals = pending
	return stats, nil
}

// exportPageSize caps the export at one worksheet's worth of rows.
const exportPageSize = 10000

// Export 导出请求列表为Excel
func (s *RequestService) Export(ctx context.Context, viewer *entity.User, filters map[string]interface{}) (*excelize.File, error) {
	requests, _, err := s.List(ctx, viewer, 1, exportPageSize, filters)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	sheet := "CapEx Requests"
	f.SetSheetName("Sheet1", sheet)

	headers := []interface{}{
		"Code", "Title", "Type", "Amount", "Plant", "Business Unit",
		"Requester", "Status", "Current Approver", "WBS Code", "Created At",
	}
	if err := f.SetSheetRow(sheet, "A1", &headers); err != nil {
		return nil, err
	}

	for i := range requests {
		req := &requests[i]
		row := []interface{}{
			req.Code,
			req.Title,
			req.Type,
			formatINR(req.Amount),
			req.Plant,
			req.BusinessUnit,
			req.RequesterName,
			req.Status,
			req.CurrentApprover,
			req.WBSCode,
			req.CreatedAt.Format("2006-01-02 15:04"),
		}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, err
		}
	}

	return f, nil
}

// CanViewAllRequests 判断角色是否有全局请求可见权限
func CanViewAllRequests(role string) bool {
	switch role {
	case entity.RoleAdmin, entity.RoleCFO, entity.RoleBusinessCEO:
		return true
	}
	return false
}

// canView: 全局角色、请求人本人，以及审批链上与该请求范围匹配的审批角色可见
func (s *RequestService) canView(req *entity.CapexRequest, viewer *entity.User) bool {
	if viewer == nil {
		return false
	}
	if CanViewAllRequests(viewer.Role) || req.RequesterID == viewer.ID {
		return true
	}
	for i := range req.Steps {
		if req.Steps[i].Level == viewer.Role {
			return workflow.CanActOn(req, &req.Steps[i], viewer) ||
				req.Steps[i].AssignedUserID == viewer.ID
		}
	}
	return false
}
