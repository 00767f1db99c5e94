package models

import "time"

type UserRole string

const (
	RoleAdmin         UserRole = "admin"
	RoleBranchManager UserRole = "branch_manager"
)

// UserProfile maps a user to a role and an optional branch. Exactly zero or
// one profile exists per user: ID is the owning user's ID and the primary key,
// so a concurrent double-insert surfaces as a unique-key violation.
type UserProfile struct {
	ID        string   `gorm:"type:uuid;primaryKey" json:"id"`
	Role      UserRole `gorm:"size:20;not null" json:"role"`
	BranchID  *string  `gorm:"size:20" json:"branch_id"` // branch code, not branch UUID
	CreatedAt time.Time `json:"created_at"`
}
