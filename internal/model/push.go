package model

import "time"

// PushSubscription is one browser or device registration for Web Push.
type PushSubscription struct {
	ID         int64      `json:"id"`
	UserID     int64      `json:"user_id"`
	Endpoint   string     `json:"endpoint"`
	P256dhKey  string     `json:"p256dh_key"`
	AuthKey    string     `json:"auth_key"`
	UserAgent  string     `json:"user_agent,omitempty"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}
