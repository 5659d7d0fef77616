package model

import "time"

// Group member roles.
const (
	RoleAdmin     = "ADMIN"
	RoleModerator = "MODERATOR"
	RoleMember    = "MEMBER"
)

type Group struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type GroupMember struct {
	ID        int64     `json:"id"`
	GroupID   int64     `json:"group_id"`
	UserID    int64     `json:"user_id"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ValidRole reports whether role is one of the group roles.
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleModerator, RoleMember:
		return true
	}
	return false
}
