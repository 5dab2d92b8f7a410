package model

import "time"

// Role is a membership role within a group.
//
// The role is fixed when the membership is created: the creator of a group is
// an owner, everyone joining through an invite code is a member.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleMember Role = "member"
)

// Group is a household sharing one menu.
//
// Role and MemberCount are read-model fields: they are filled in relative to
// the caller when groups are listed and are not stored on the group row.
type Group struct {
	ID          string    `json:"id"                     db:"id"`
	Name        string    `json:"name"                   db:"name"`
	InviteCode  string    `json:"invite_code"            db:"invite_code"`
	CreatedBy   string    `json:"created_by"             db:"created_by"`
	CreatedAt   time.Time `json:"created_at"             db:"created_at"`
	Role        Role      `json:"role,omitempty"         db:"role"`
	MemberCount int       `json:"member_count,omitempty" db:"member_count"`
}

// Membership is the join row between a user and a group.
type Membership struct {
	GroupID  string    `json:"group_id"  db:"group_id"`
	UserID   string    `json:"user_id"   db:"user_id"`
	Role     Role      `json:"role"      db:"role"`
	JoinedAt time.Time `json:"joined_at" db:"joined_at"`
}

// Member is a user as seen from a group's member list.
type Member struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	AvatarURL string    `json:"avatar_url"`
	Role      Role      `json:"role"`
	JoinedAt  time.Time `json:"joined_at"`
}
