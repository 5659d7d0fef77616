package model

import "time"

// NotificationPreference holds a user's per-channel, per-category switches.
// A nil flag means the user never changed it and the channel default applies.
type NotificationPreference struct {
	ID     int64 `json:"id"`
	UserID int64 `json:"user_id"`

	InAppNewFollower *bool `json:"in_app_new_follower"`
	InAppComment     *bool `json:"in_app_comment"`
	InAppLike        *bool `json:"in_app_like"`
	InAppMention     *bool `json:"in_app_mention"`
	InAppAchievement *bool `json:"in_app_achievement"`
	InAppPartner     *bool `json:"in_app_partner"`
	InAppModeration  *bool `json:"in_app_moderation"`
	InAppGroup       *bool `json:"in_app_group"`

	PushNewFollower *bool `json:"push_new_follower"`
	PushComment     *bool `json:"push_comment"`
	PushLike        *bool `json:"push_like"`
	PushMention     *bool `json:"push_mention"`
	PushAchievement *bool `json:"push_achievement"`
	PushPartner     *bool `json:"push_partner"`
	PushGroup       *bool `json:"push_group"`

	EmailNewFollower *bool `json:"email_new_follower"`
	EmailComment     *bool `json:"email_comment"`
	EmailMention     *bool `json:"email_mention"`
	EmailAchievement *bool `json:"email_achievement"`
	EmailPartner     *bool `json:"email_partner"`
	EmailModeration  *bool `json:"email_moderation"`
	EmailGroup       *bool `json:"email_group"`

	// Hour of day, 0-23, in the server's quiet-hours location.
	QuietHoursStart *int `json:"quiet_hours_start"`
	QuietHoursEnd   *int `json:"quiet_hours_end"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Flag returns the stored switch for a channel and category, or nil when the
// record has no column for that pair or the user never set it.
func (p *NotificationPreference) Flag(ch Channel, cat Category) *bool {
	switch ch {
	case ChannelInApp:
		switch cat {
		case CategoryNewFollower:
			return p.InAppNewFollower
		case CategoryComment:
			return p.InAppComment
		case CategoryLike:
			return p.InAppLike
		case CategoryMention:
			return p.InAppMention
		case CategoryAchievement:
			return p.InAppAchievement
		case CategoryPartner:
			return p.InAppPartner
		case CategoryModeration:
			return p.InAppModeration
		case CategoryGroup:
			return p.InAppGroup
		}
	case ChannelPush:
		switch cat {
		case CategoryNewFollower:
			return p.PushNewFollower
		case CategoryComment:
			return p.PushComment
		case CategoryLike:
			return p.PushLike
		case CategoryMention:
			return p.PushMention
		case CategoryAchievement:
			return p.PushAchievement
		case CategoryPartner:
			return p.PushPartner
		case CategoryGroup:
			return p.PushGroup
		}
	case ChannelEmail:
		switch cat {
		case CategoryNewFollower:
			return p.EmailNewFollower
		case CategoryComment:
			return p.EmailComment
		case CategoryMention:
			return p.EmailMention
		case CategoryAchievement:
			return p.EmailAchievement
		case CategoryPartner:
			return p.EmailPartner
		case CategoryModeration:
			return p.EmailModeration
		case CategoryGroup:
			return p.EmailGroup
		}
	}
	return nil
}

// Bool returns a pointer to b. Handy for building preference records.
func Bool(b bool) *bool {
	return &b
}

// Int returns a pointer to i.
func Int(i int) *int {
	return &i
}
