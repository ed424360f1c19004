package workflow

import (
	"errors"
	"time"

	"github.com/bitfantasy/capex/internal/capex/entity"
)

// 状态机错误定义
var (
	// ErrNotAuthorized is returned when the acting user cannot act on the
	// request's pending frontier step.
	ErrNotAuthorized = errors.New("no pending approval step for this user")
	// ErrInvalidState is returned when a decision is attempted on a request
	// that is already terminal. The request is left untouched.
	ErrInvalidState = errors.New("request is already finalized")
)

// Decision 审批动作
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// EventKind 领域事件类型
type EventKind string

const (
	// EventSubmitted 请求已提交，等待首个审批人
	EventSubmitted EventKind = "request_submitted"
	// EventAdvanced 某环节通过，链前进到下一环节
	EventAdvanced EventKind = "request_advanced"
	// EventApproved 全链通过，请求终态为 approved
	EventApproved EventKind = "request_approved"
	// EventRejected 某环节驳回，请求终态为 rejected
	EventRejected EventKind = "request_rejected"
)

// Event 审批链状态变化产生的领域事件，由通知分发器消费
type Event struct {
	Kind    EventKind
	Request *entity.CapexRequest
	// Step is the step the decision landed on (nil for EventSubmitted).
	Step *entity.ApprovalStep
	// NextRole is the role of the new pending frontier after an advance,
	// empty when the request reached a terminal status.
	NextRole string
}

// Frontier 返回链中第一个pending的步骤，即当前待审批环节
func Frontier(steps []entity.ApprovalStep) *entity.ApprovalStep {
	for i := range steps {
		if steps[i].Status == entity.StepStatusPending {
			return &steps[i]
		}
	}
	return nil
}

// DeriveStatus 从审批链推导请求聚合状态
//
// The stored request status (cancellation aside) must always equal this
// derivation; callers never set it independently.
func DeriveStatus(steps []entity.ApprovalStep) string {
	approved := 0
	for i := range steps {
		switch steps[i].Status {
		case entity.StepStatusRejected:
			return entity.RequestStatusRejected
		case entity.StepStatusApproved:
			if steps[i].Level != entity.RoleRequester {
				approved++
			}
		}
	}
	if Frontier(steps) == nil {
		return entity.RequestStatusApproved
	}
	if approved > 0 {
		return entity.RequestStatusInProgress
	}
	return entity.RequestStatusPending
}

// CanActOn 判断用户是否可以处理该待审批步骤
//
// Resolution policy: a frontier step is actionable by any active user holding
// the step's role. Department and plant heads are bound to the request's
// snapshot plant (and business unit); committee, CEO and CFO act org-wide by
// virtue of their own scope markers.
func CanActOn(req *entity.CapexRequest, step *entity.ApprovalStep, actor *entity.User) bool {
	if actor == nil || !actor.IsActive() {
		return false
	}
	if actor.Role != step.Level {
		return false
	}
	switch step.Level {
	case entity.RoleDepartmentHead, entity.RolePlantHead:
		return actor.CoversPlant(req.Plant) && actor.CoversBusinessUnit(req.BusinessUnit)
	default:
		return actor.CoversBusinessUnit(req.BusinessUnit)
	}
}

// Decide 在请求的当前待审批环节上应用一个审批决定
//
// The mutation is atomic from the caller's point of view: on any error the
// request and its chain are unchanged. On success the step, the aggregate
// status, the current-approver pointer and (on final approval) the WBS/AUC/PO
// codes are all updated, and the resulting domain event is returned.
func Decide(req *entity.CapexRequest, actor *entity.User, decision Decision, comment string, now time.Time) (*Event, error) {
	if req.IsTerminal() {
		return nil, ErrInvalidState
	}

	step := Frontier(req.Steps)
	if step == nil {
		return nil, ErrInvalidState
	}
	if !CanActOn(req, step, actor) {
		return nil, ErrNotAuthorized
	}

	step.AssignedUserID = actor.ID
	step.AssignedUserName = actor.Name
	decidedAt := now
	step.DecidedAt = &decidedAt

	if decision == DecisionReject {
		step.Status = entity.StepStatusRejected
		step.Comments = comment
		req.Status = entity.RequestStatusRejected
		req.CurrentApprover = ""
		req.UpdatedAt = now
		return &Event{Kind: EventRejected, Request: req, Step: step}, nil
	}

	step.Status = entity.StepStatusApproved
	if comment == "" {
		comment = "Approved"
	}
	step.Comments = comment
	req.UpdatedAt = now

	next := Frontier(req.Steps)
	if next == nil {
		req.Status = entity.RequestStatusApproved
		req.CurrentApprover = ""
		req.WBSCode = "WBS-" + req.Code
		req.AUCCode = "AUC-" + req.Code
		req.PONumber = "PO-" + req.Code
		return &Event{Kind: EventApproved, Request: req, Step: step}, nil
	}

	req.Status = entity.RequestStatusInProgress
	req.CurrentApprover = next.Level
	return &Event{Kind: EventAdvanced, Request: req, Step: step, NextRole: next.Level}, nil
}
