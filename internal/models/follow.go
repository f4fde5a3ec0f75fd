package models

import "time"

// FollowEdge kinds.
const (
	FollowKindUser  = "user"
	FollowKindGroup = "group"
)

// Following is the follower-owned half of a FollowEdge. For kind=user the
// mirror row is a Followed record owned by the followee; both halves are
// written and removed together, never one without the other. For kind=group
// the edge accompanies an active membership and has no mirror.
//
// Each kind gets its own partial unique index: a single index spanning both
// nullable columns would never conflict under Postgres, where distinct NULLs
// compare unequal, and concurrent inserts of the same edge would both land.
type Following struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	UserID       int64     `json:"user_id" gorm:"index;index:idx_following_user_edge,unique,where:kind = 'user';index:idx_following_group_edge,unique,where:kind = 'group'"` // the follower
	TargetUserID *int64    `json:"target_user_id,omitempty" gorm:"index:idx_following_user_edge,unique,where:kind = 'user'"`
	GroupID      *int64    `json:"group_id,omitempty" gorm:"index:idx_following_group_edge,unique,where:kind = 'group'"`
	Kind         string    `json:"kind" gorm:"size:10;index"`
	CreatedAt    time.Time `json:"created_at"`
}

// Followed is the followee-owned mirror half of a user FollowEdge.
type Followed struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	UserID     int64     `json:"user_id" gorm:"index;uniqueIndex:idx_followed_edge"` // the one being followed
	FollowerID int64     `json:"follower_id" gorm:"uniqueIndex:idx_followed_edge"`
	CreatedAt  time.Time `json:"created_at"`
}
