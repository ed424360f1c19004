package entity

import (
	"time"
)

// 请求状态常量
const (
	RequestStatusPending    = "pending"
	RequestStatusInProgress = "in_progress"
	RequestStatusApproved   = "approved"
	RequestStatusRejected   = "rejected"
	RequestStatusCancelled  = "cancelled"
)

// 审批步骤状态常量
const (
	StepStatusPending  = "pending"
	StepStatusApproved = "approved"
	StepStatusRejected = "rejected"
)

// CapEx 类型常量
const (
	CapexTypeRevenueGrowth = "revenue_growth"
	CapexTypeMaintenance   = "maintenance"
)

// CurrencyINR is the only currency the system books requests in.
const CurrencyINR = "INR"

// CapexRequest 资本支出请求
//
// Amount is stored in minor units (paise) so that sums and averages over the
// request book never suffer floating-point drift.
type CapexRequest struct {
	ID               string    `json:"id" gorm:"primaryKey;size:36"`
	Code             string    `json:"code" gorm:"size:20;uniqueIndex;not null"`
	Title            string    `json:"title" gorm:"size:200;not null"`
	Description      string    `json:"description" gorm:"type:text"`
	Type             string    `json:"type" gorm:"size:32;not null"`
	Amount           int64     `json:"amount" gorm:"not null"`
	Currency         string    `json:"currency" gorm:"size:8;not null;default:INR"`
	Department       string    `json:"department" gorm:"size:64"`
	Plant            string    `json:"plant" gorm:"size:64"`
	BusinessUnit     string    `json:"business_unit" gorm:"size:64"`
	RequesterID      string    `json:"requester_id" gorm:"size:36;not null;index"`
	RequesterName    string    `json:"requester_name" gorm:"size:64"`
	Status           string    `json:"status" gorm:"size:20;not null;default:pending;index"`
	CurrentApprover  string    `json:"current_approver,omitempty" gorm:"size:32;index"`
	Justification    string    `json:"justification" gorm:"type:text"`
	ExpectedDelivery string    `json:"expected_delivery" gorm:"size:10"`
	WBSCode          string    `json:"wbs_code,omitempty" gorm:"size:32"`
	AUCCode          string    `json:"auc_code,omitempty" gorm:"size:32"`
	PONumber         string    `json:"po_number,omitempty" gorm:"size:32"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`

	// 关联
	Steps     []ApprovalStep    `json:"approval_chain,omitempty" gorm:"foreignKey:RequestID"`
	Documents []RequestDocument `json:"documents,omitempty" gorm:"foreignKey:RequestID"`
	Requester *User             `json:"requester,omitempty" gorm:"foreignKey:RequesterID"`
}

func (CapexRequest) TableName() string {
	return "capex_requests"
}

// IsTerminal reports whether the request can no longer change state.
func (r *CapexRequest) IsTerminal() bool {
	switch r.Status {
	case RequestStatusApproved, RequestStatusRejected, RequestStatusCancelled:
		return true
	}
	return false
}

// ApprovalStep 审批链中的一个环节
//
// Ordering within a chain is fixed at creation time; steps are mutated in
// place and never reordered or removed.
type ApprovalStep struct {
	ID               string     `json:"id" gorm:"primaryKey;size:36"`
	RequestID        string     `json:"request_id" gorm:"size:36;not null;index"`
	Sequence         int        `json:"sequence" gorm:"not null"`
	Level            string     `json:"level" gorm:"size:32;not null"`
	AssignedUserID   string     `json:"assigned_user_id,omitempty" gorm:"size:36"`
	AssignedUserName string     `json:"assigned_user_name,omitempty" gorm:"size:64"`
	Status           string     `json:"status" gorm:"size:20;not null;default:pending"`
	DecidedAt        *time.Time `json:"decided_at"`
	Comments         string     `json:"comments" gorm:"type:text"`
}

func (ApprovalStep) TableName() string {
	return "approval_steps"
}

// RequestDocument 请求附件元数据
//
// Only metadata is recorded; the system does not store file contents.
type RequestDocument struct {
	ID         string    `json:"id" gorm:"primaryKey;size:36"`
	RequestID  string    `json:"request_id" gorm:"size:36;not null;index"`
	Name       string    `json:"name" gorm:"size:256;not null"`
	Type       string    `json:"type" gorm:"size:32"`
	Size       string    `json:"size" gorm:"size:16"`
	UploadedAt time.Time `json:"uploaded_at"`
}

func (RequestDocument) TableName() string {
	return "request_documents"
}
