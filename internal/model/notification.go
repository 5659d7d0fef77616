package model

import "time"

// NotificationType identifies the event that produced a notification.
type NotificationType string

const (
	NotifNewFollower        NotificationType = "NEW_FOLLOWER"
	NotifFollowRequest      NotificationType = "FOLLOW_REQUEST"
	NotifFollowAccepted     NotificationType = "FOLLOW_ACCEPTED"
	NotifComment            NotificationType = "COMMENT"
	NotifPlanComment        NotificationType = "PLAN_COMMENT"
	NotifRecipeComment      NotificationType = "RECIPE_COMMENT"
	NotifCommentReply       NotificationType = "COMMENT_REPLY"
	NotifLike               NotificationType = "LIKE"
	NotifPlanLike           NotificationType = "PLAN_LIKE"
	NotifRecipeLike         NotificationType = "RECIPE_LIKE"
	NotifCommentLike        NotificationType = "COMMENT_LIKE"
	NotifMention            NotificationType = "MENTION"
	NotifBadgeEarned        NotificationType = "BADGE_EARNED"
	NotifLevelUp            NotificationType = "LEVEL_UP"
	NotifQuestCompleted     NotificationType = "QUEST_COMPLETED"
	NotifStreakMilestone    NotificationType = "STREAK_MILESTONE"
	NotifPartnerRequest     NotificationType = "PARTNER_REQUEST"
	NotifPartnerAccepted    NotificationType = "PARTNER_ACCEPTED"
	NotifPartnerCheckin     NotificationType = "PARTNER_CHECKIN"
	NotifPlanApproved       NotificationType = "PLAN_APPROVED"
	NotifPlanRejected       NotificationType = "PLAN_REJECTED"
	NotifConfessionApproved NotificationType = "CONFESSION_APPROVED"
	NotifRewardPurchased    NotificationType = "REWARD_PURCHASED"
	NotifGroupInvite        NotificationType = "GROUP_INVITE"
	NotifGroupJoinRequest   NotificationType = "GROUP_JOIN_REQUEST"
	NotifGroupMessage       NotificationType = "GROUP_MESSAGE"
	NotifGroupAnnouncement  NotificationType = "GROUP_ANNOUNCEMENT"
	NotifSystem             NotificationType = "SYSTEM"
)

var notificationTypes = map[NotificationType]struct{}{
	NotifNewFollower: {}, NotifFollowRequest: {}, NotifFollowAccepted: {},
	NotifComment: {}, NotifPlanComment: {}, NotifRecipeComment: {}, NotifCommentReply: {},
	NotifLike: {}, NotifPlanLike: {}, NotifRecipeLike: {}, NotifCommentLike: {},
	NotifMention: {}, NotifBadgeEarned: {}, NotifLevelUp: {}, NotifQuestCompleted: {},
	NotifStreakMilestone: {}, NotifPartnerRequest: {}, NotifPartnerAccepted: {},
	NotifPartnerCheckin: {}, NotifPlanApproved: {}, NotifPlanRejected: {},
	NotifConfessionApproved: {}, NotifRewardPurchased: {}, NotifGroupInvite: {},
	NotifGroupJoinRequest: {}, NotifGroupMessage: {}, NotifGroupAnnouncement: {},
	NotifSystem: {},
}

// Valid reports whether t is a known notification type.
func (t NotificationType) Valid() bool {
	_, ok := notificationTypes[t]
	return ok
}

// NotificationTypes returns every known type. Order is unspecified.
func NotificationTypes() []NotificationType {
	types := make([]NotificationType, 0, len(notificationTypes))
	for t := range notificationTypes {
		types = append(types, t)
	}
	return types
}

// Channel is a delivery mechanism for a notification.
type Channel string

const (
	ChannelInApp Channel = "in_app"
	ChannelPush  Channel = "push"
	ChannelEmail Channel = "email"
)

// Category groups notification types that share one preference flag per channel.
type Category string

const (
	CategoryNewFollower Category = "new_follower"
	CategoryComment     Category = "comment"
	CategoryLike        Category = "like"
	CategoryMention     Category = "mention"
	CategoryAchievement Category = "achievement"
	CategoryPartner     Category = "partner"
	CategoryModeration  Category = "moderation"
	CategoryGroup       Category = "group"
)

// Notification is a single in-app alert owned by one user.
type Notification struct {
	ID        int64            `json:"id"`
	UserID    int64            `json:"user_id"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	ActionURL string           `json:"action_url,omitempty"`
	ActorID   *int64           `json:"actor_id,omitempty"`
	RelatedID string           `json:"related_id,omitempty"`
	Metadata  map[string]any   `json:"metadata,omitempty"`
	Read      bool             `json:"read"`
	ReadAt    *time.Time       `json:"read_at,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

// NotificationPage is one page of a user's notifications, newest first.
type NotificationPage struct {
	Notifications []Notification `json:"notifications"`
	Total         int            `json:"total"`
	Page          int            `json:"page"`
	TotalPages    int            `json:"total_pages"`
}
