package entity

import (
	"time"
)

// 角色常量
const (
	RoleRequester      = "requester"
	RoleDepartmentHead = "department_head"
	RolePlantHead      = "plant_head"
	RoleCapexCommittee = "capex_committee"
	RoleBusinessCEO    = "business_ceo"
	RoleCFO            = "cfo"
	RoleAdmin          = "admin"
)

// Org scope markers used by users whose authority spans the whole company.
const (
	ScopeAllPlants        = "All Plants"
	ScopeAllBusinessUnits = "All Business Units"
)

const (
	UserStatusActive   = "active"
	UserStatusInactive = "inactive"
)

// User 用户实体
type User struct {
	ID           string     `json:"id" gorm:"primaryKey;size:36"`
	Username     string     `json:"username" gorm:"size:64;not null;uniqueIndex"`
	PasswordHash string     `json:"-" gorm:"size:128;not null"`
	Name         string     `json:"name" gorm:"size:64;not null"`
	Role         string     `json:"role" gorm:"size:32;not null;index"`
	Department   string     `json:"department" gorm:"size:64"`
	Plant        string     `json:"plant" gorm:"size:64"`
	BusinessUnit string     `json:"business_unit" gorm:"size:64"`
	Email        string     `json:"email" gorm:"size:128;uniqueIndex"`
	Status       string     `json:"status" gorm:"size:16;not null;default:active"`
	LastLoginAt  *time.Time `json:"last_login_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// IsActive reports whether the user may log in and act on approvals.
func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}

// CoversPlant reports whether the user's plant scope includes the given plant.
func (u *User) CoversPlant(plant string) bool {
	return u.Plant == ScopeAllPlants || u.Plant == plant
}

// CoversBusinessUnit reports whether the user's business unit scope includes
// the given business unit.
func (u *User) CoversBusinessUnit(bu string) bool {
	return u.BusinessUnit == ScopeAllBusinessUnits || u.BusinessUnit == bu
}
