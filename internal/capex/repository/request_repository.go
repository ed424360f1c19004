package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bitfantasy/capex/internal/capex/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RequestRepository CapEx请求仓库
type RequestRepository struct {
	db *gorm.DB
}

// NewRequestRepository 创建请求仓库
func NewRequestRepository(db *gorm.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

// GenerateCode 生成请求编号 CAPEX-<year>-<seq>
func (r *RequestRepository) GenerateCode(ctx context.Context) (string, error) {
	var seq int
	err := r.db.WithContext(ctx).Raw("SELECT nextval('capex_code_seq')").Scan(&seq).Error
	if err != nil {
		return "", err
	}
	year := time.Now().Year()
	return fmt.Sprintf("CAPEX-%d-%03d", year, seq), nil
}

// Create 创建请求（含审批链和附件元数据，单事务）
func (r *RequestRepository) Create(ctx context.Context, req *entity.CapexRequest) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(req).Error
	})
}

// FindByKey 根据ID或编号查找请求，审批链按顺序预加载
func (r *RequestRepository) FindByKey(ctx context.Context, key string) (*entity.CapexRequest, error) {
	var req entity.CapexRequest
	err := r.db.WithContext(ctx).
		Preload("Steps", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence ASC")
		}).
		Preload("Documents").
		Where("id = ? OR code = ?", key, key).
		First(&req).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &req, nil
}

// Transact 在行锁保护下对单个请求执行一次变更
//
// The request row is locked with SELECT ... FOR UPDATE for the duration of
// the transaction, so two approvers racing on the same pending step cannot
// both succeed: the loser re-reads the already-mutated chain and fails inside
// apply. On any error nothing is persisted.
func (r *RequestRepository) Transact(ctx context.Context, key string, apply func(*entity.CapexRequest) error) (*entity.CapexRequest, error) {
	var out *entity.CapexRequest
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var req entity.CapexRequest
		err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? OR code = ?", key, key).
			First(&req).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		if err := tx.
			Where("request_id = ?", req.ID).
			Order("sequence ASC").
			Find(&req.Steps).Error; err != nil {
			return err
		}

		if err := apply(&req); err != nil {
			return err
		}

		if err := tx.Omit("Steps", "Documents", "Requester").Save(&req).Error; err != nil {
			return fmt.Errorf("save request: %w", err)
		}
		for i := range req.Steps {
			if err := tx.Save(&req.Steps[i]).Error; err != nil {
				return fmt.Errorf("save approval step: %w", err)
			}
		}

		out = &req
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListByRequester 获取某用户发起的请求
func (r *RequestRepository) ListByRequester(ctx context.Context, userID string) ([]entity.CapexRequest, error) {
	var requests []entity.CapexRequest
	err := r.db.WithContext(ctx).
		Preload("Steps", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence ASC")
		}).
		Where("requester_id = ?", userID).
		Order("created_at DESC").
		Find(&requests).Error
	if err != nil {
		return nil, err
	}
	return requests, nil
}

// pendingFor 构造等待某用户审批的请求查询
//
// Mirrors the decision-time resolution policy: department and plant heads are
// bound to the request's plant and business unit, the higher roles only to the
// business unit. The queue must show exactly what the user may act on.
func (r *RequestRepository) pendingFor(ctx context.Context, user *entity.User) *gorm.DB {
	query := r.db.WithContext(ctx).
		Model(&entity.CapexRequest{}).
		Where("status IN ?", []string{entity.RequestStatusPending, entity.RequestStatusInProgress}).
		Where("current_approver = ?", user.Role)

	switch user.Role {
	case entity.RoleDepartmentHead, entity.RolePlantHead:
		if user.Plant != entity.ScopeAllPlants {
			query = query.Where("plant = ?", user.Plant)
		}
		if user.BusinessUnit != entity.ScopeAllBusinessUnits {
			query = query.Where("business_unit = ?", user.BusinessUnit)
		}
	default:
		if user.BusinessUnit != entity.ScopeAllBusinessUnits {
			query = query.Where("business_unit = ?", user.BusinessUnit)
		}
	}
	return query
}

// ListPendingFor 获取等待某用户审批的请求
func (r *RequestRepository) ListPendingFor(ctx context.Context, user *entity.User) ([]entity.CapexRequest, error) {
	var requests []entity.CapexRequest
	err := r.pendingFor(ctx, user).
		Preload("Steps", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence ASC")
		}).
		Order("created_at DESC").
		Find(&requests).Error
	if err != nil {
		return nil, err
	}
	return requests, nil
}

// CountPendingFor 统计等待某用户审批的请求数
func (r *RequestRepository) CountPendingFor(ctx context.Context, user *entity.User) (int64, error) {
	var count int64
	if err := r.pendingFor(ctx, user).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// List 获取请求列表（可筛选，分页）
func (r *RequestRepository) List(ctx context.Context, page, pageSize int, filters map[string]interface{}) ([]entity.CapexRequest, int64, error) {
	var requests []entity.CapexRequest
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.CapexRequest{})

	if keyword, ok := filters["keyword"].(string); ok && keyword != "" {
		query = query.Where("title ILIKE ? OR code ILIKE ?", "%"+keyword+"%", "%"+keyword+"%")
	}
	if status, ok := filters["status"].(string); ok && status != "" {
		query = query.Where("status = ?", status)
	}
	if capexType, ok := filters["type"].(string); ok && capexType != "" {
		query = query.Where("type = ?", capexType)
	}
	if plant, ok := filters["plant"].(string); ok && plant != "" {
		query = query.Where("plant = ?", plant)
	}
	if requesterID, ok := filters["requester_id"].(string); ok && requesterID != "" {
		query = query.Where("requester_id = ?", requesterID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Preload("Steps", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence ASC")
		}).
		Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&requests).Error
	if err != nil {
		return nil, 0, err
	}

	return requests, total, nil
}

// RequestStats 请求统计
//
// Amounts are integer minor units; the average is integer division over the
// same units, so repeated aggregation never drifts.
type RequestStats struct {
	Total         int64 `json:"total"`
	Pending       int64 `json:"pending"`
	Approved      int64 `json:"approved"`
	Rejected      int64 `json:"rejected"`
	Cancelled     int64 `json:"cancelled"`
	TotalAmount   int64 `json:"total_amount"`
	AverageAmount int64 `json:"average_amount"`
	// PendingApprovals counts requests currently waiting on the viewer,
	// filled in by the service from the viewer's approval queue.
	PendingApprovals int64 `json:"pending_approvals" gorm:"-"`
}

// Stats 统计请求数量与金额，requesterID为空时统计全部
func (r *RequestRepository) Stats(ctx context.Context, requesterID string) (*RequestStats, error) {
	var stats RequestStats

	query := r.db.WithContext(ctx).Model(&entity.CapexRequest{}).
		Select(`COUNT(*) AS total,
			COUNT(*) FILTER (WHERE status IN ('pending', 'in_progress')) AS pending,
			COUNT(*) FILTER (WHERE status = 'approved') AS approved,
			COUNT(*) FILTER (WHERE status = 'rejected') AS rejected,
			COUNT(*) FILTER (WHERE status = 'cancelled') AS cancelled,
			COALESCE(SUM(amount), 0) AS total_amount`)
	if requesterID != "" {
		query = query.Where("requester_id = ?", requesterID)
	}

	if err := query.Scan(&stats).Error; err != nil {
		return nil, err
	}
	if stats.Total > 0 {
		stats.AverageAmount = stats.TotalAmount / stats.Total
	}
	return &stats, nil
}
