package models

import "time"

// Membership roles.
const (
	RoleAdmin     = "admin"
	RoleModerator = "moderator"
	RoleMember    = "member"
)

// Membership statuses. A pending membership grants no posting or visibility
// rights and does not count toward the group's member counter.
const (
	StatusPending = "pending"
	StatusActive  = "active"
)

// Membership relates exactly one user to exactly one group. The composite
// unique index serializes concurrent joins on the same pair: two racing
// inserts cannot both succeed.
type Membership struct {
	ID       uint      `json:"id" gorm:"primaryKey"`
	UserID   int64     `json:"user_id" gorm:"index;uniqueIndex:idx_user_group"`
	GroupID  int64     `json:"group_id" gorm:"index;uniqueIndex:idx_user_group"`
	Role     string    `json:"role" gorm:"size:10;default:'member'"`
	Status   string    `json:"status" gorm:"size:10;default:'pending'"`
	JoinedAt time.Time `json:"joined_at"`
}

// Active reports whether the membership counts toward the member counter.
func (m *Membership) Active() bool {
	return m.Status == StatusActive
}

type ChangeRoleRequest struct {
	UserID  int64  `form:"userid" json:"user_id" validate:"required"`
	GroupID int64  `form:"groupid" json:"group_id" validate:"required"`
	Role    string `form:"usertype" json:"role" validate:"required,oneof=admin moderator member"`
}
