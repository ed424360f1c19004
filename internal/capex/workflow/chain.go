package workflow

import (
	"time"

	"github.com/bitfantasy/capex/internal/capex/entity"
	"github.com/google/uuid"
)

// SubmitComment is stamped onto the seed requester step at creation time.
const SubmitComment = "Request submitted"

// BuildChain 根据请求金额构建审批链
//
// The chain always runs requester → department_head → plant_head →
// business_ceo → cfo; when the amount reaches the committee threshold one
// extra capex_committee step is inserted after plant_head and before
// business_ceo, never elsewhere. The requester step is pre-approved with the
// requester as actor; every other step starts pending and unassigned.
func (r Registry) BuildChain(requester *entity.User, amount int64, now time.Time) []entity.ApprovalStep {
	levels := []string{
		entity.RoleDepartmentHead,
		entity.RolePlantHead,
	}
	if r.NeedsCommitteeReview(amount) {
		levels = append(levels, entity.RoleCapexCommittee)
	}
	levels = append(levels, entity.RoleBusinessCEO, entity.RoleCFO)

	decidedAt := now
	steps := []entity.ApprovalStep{
		{
			ID:               uuid.New().String(),
			Sequence:         0,
			Level:            entity.RoleRequester,
			AssignedUserID:   requester.ID,
			AssignedUserName: requester.Name,
			Status:           entity.StepStatusApproved,
			DecidedAt:        &decidedAt,
			Comments:         SubmitComment,
		},
	}

	for i, level := range levels {
		steps = append(steps, entity.ApprovalStep{
			ID:       uuid.New().String(),
			Sequence: i + 1,
			Level:    level,
			Status:   entity.StepStatusPending,
		})
	}

	return steps
}
