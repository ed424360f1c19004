package workflow

import (
	"github.com/bitfantasy/capex/internal/capex/entity"
)

// DefaultCommitteeThreshold is the monetary cutoff (in paise, ₹25,00,000)
// above which a request picks up the capex_committee step.
const DefaultCommitteeThreshold int64 = 250_000_000

// 角色审批等级，仅用于展示和授权分组，链的顺序由 BuildChain 显式给出
var roleLevels = map[string]int{
	entity.RoleAdmin:          0,
	entity.RoleRequester:      1,
	entity.RoleDepartmentHead: 2,
	entity.RolePlantHead:      3,
	entity.RoleCapexCommittee: 4,
	entity.RoleBusinessCEO:    5,
	entity.RoleCFO:            6,
}

var roleLabels = map[string]string{
	entity.RoleAdmin:          "Admin",
	entity.RoleRequester:      "Requester",
	entity.RoleDepartmentHead: "Department Head",
	entity.RolePlantHead:      "Plant Head",
	entity.RoleCapexCommittee: "CapEx Committee",
	entity.RoleBusinessCEO:    "Business CEO",
	entity.RoleCFO:            "CFO",
}

// RoleLevel 返回角色的审批等级，未知角色返回0
func RoleLevel(role string) int {
	return roleLevels[role]
}

// RoleLabel 返回角色的展示名称
func RoleLabel(role string) string {
	if label, ok := roleLabels[role]; ok {
		return label
	}
	return role
}

// IsApproverRole reports whether the role can hold a non-seed approval step.
func IsApproverRole(role string) bool {
	switch role {
	case entity.RoleDepartmentHead, entity.RolePlantHead, entity.RoleCapexCommittee,
		entity.RoleBusinessCEO, entity.RoleCFO:
		return true
	}
	return false
}

// Roles returns every known role code, ordered by approval level.
func Roles() []string {
	return []string{
		entity.RoleAdmin,
		entity.RoleRequester,
		entity.RoleDepartmentHead,
		entity.RolePlantHead,
		entity.RoleCapexCommittee,
		entity.RoleBusinessCEO,
		entity.RoleCFO,
	}
}

// Registry 角色与金额阈值配置
type Registry struct {
	committeeThreshold int64
}

// NewRegistry 创建审批配置，threshold<=0 时使用默认阈值
func NewRegistry(committeeThreshold int64) Registry {
	if committeeThreshold <= 0 {
		committeeThreshold = DefaultCommitteeThreshold
	}
	return Registry{committeeThreshold: committeeThreshold}
}

// CommitteeThreshold 返回委员会评审金额阈值（paise）
func (r Registry) CommitteeThreshold() int64 {
	return r.committeeThreshold
}

// NeedsCommitteeReview 判断金额是否需要委员会评审
func (r Registry) NeedsCommitteeReview(amount int64) bool {
	return amount >= r.committeeThreshold
}
