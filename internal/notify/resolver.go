// Package notify decides which channels a notification goes out on and
// delivers it to one user or to every member of a group.
package notify

import (
	"slices"

	"github.com/dukerupert/trimquest/internal/model"
)

var baseCategories = map[model.NotificationType]model.Category{
	model.NotifNewFollower:        model.CategoryNewFollower,
	model.NotifFollowRequest:      model.CategoryNewFollower,
	model.NotifFollowAccepted:     model.CategoryNewFollower,
	model.NotifComment:            model.CategoryComment,
	model.NotifPlanComment:        model.CategoryComment,
	model.NotifRecipeComment:      model.CategoryComment,
	model.NotifCommentReply:       model.CategoryComment,
	model.NotifLike:               model.CategoryLike,
	model.NotifPlanLike:           model.CategoryLike,
	model.NotifRecipeLike:         model.CategoryLike,
	model.NotifCommentLike:        model.CategoryLike,
	model.NotifMention:            model.CategoryMention,
	model.NotifBadgeEarned:        model.CategoryAchievement,
	model.NotifLevelUp:            model.CategoryAchievement,
	model.NotifQuestCompleted:     model.CategoryAchievement,
	model.NotifStreakMilestone:    model.CategoryAchievement,
	model.NotifPartnerRequest:     model.CategoryPartner,
	model.NotifPartnerAccepted:    model.CategoryPartner,
	model.NotifPartnerCheckin:     model.CategoryPartner,
	model.NotifPlanApproved:       model.CategoryModeration,
	model.NotifPlanRejected:       model.CategoryModeration,
	model.NotifConfessionApproved: model.CategoryModeration,
	model.NotifGroupInvite:        model.CategoryGroup,
	model.NotifGroupJoinRequest:   model.CategoryGroup,
	model.NotifGroupMessage:       model.CategoryGroup,
	model.NotifGroupAnnouncement:  model.CategoryGroup,
}

// Per-channel tables. Push has no moderation switch and email has no like
// switch, so those types fall back to the channel default.
var channelCategories = map[model.Channel]map[model.NotificationType]model.Category{
	model.ChannelInApp: categoriesWithout(),
	model.ChannelPush:  categoriesWithout(model.CategoryModeration),
	model.ChannelEmail: categoriesWithout(model.CategoryLike),
}

func categoriesWithout(skip ...model.Category) map[model.NotificationType]model.Category {
	m := make(map[model.NotificationType]model.Category, len(baseCategories))
outer:
	for t, c := range baseCategories {
		for _, s := range skip {
			if c == s {
				continue outer
			}
		}
		m[t] = c
	}
	return m
}

// CategoryFor returns the preference category that gates t on ch.
func CategoryFor(ch model.Channel, t model.NotificationType) (model.Category, bool) {
	c, ok := channelCategories[ch][t]
	return c, ok
}

// channelDefault is used when there is no record, no category, or no stored flag.
// In-app and push are opt-out; email is opt-in.
func channelDefault(ch model.Channel) bool {
	switch ch {
	case model.ChannelInApp, model.ChannelPush:
		return true
	default:
		return false
	}
}

// ChannelEnabled reports whether a notification of type t should be sent on
// ch given the recipient's preferences, which may be nil.
func ChannelEnabled(ch model.Channel, t model.NotificationType, prefs *model.NotificationPreference) bool {
	def := channelDefault(ch)
	if prefs == nil {
		return def
	}
	cat, ok := CategoryFor(ch, t)
	if !ok {
		return def
	}
	return CategoryEnabled(ch, cat, prefs)
}

// CategoryEnabled resolves one (channel, category) switch, applying the
// channel default when the flag is unset.
func CategoryEnabled(ch model.Channel, cat model.Category, prefs *model.NotificationPreference) bool {
	if prefs == nil {
		return channelDefault(ch)
	}
	flag := prefs.Flag(ch, cat)
	if flag == nil {
		return channelDefault(ch)
	}
	return *flag
}

// Categories lists the categories that have a switch on ch.
func Categories(ch model.Channel) []model.Category {
	seen := make(map[model.Category]bool)
	var out []model.Category
	for _, c := range channelCategories[ch] {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	slices.Sort(out)
	return out
}

// Effective returns every switch resolved against its default, keyed by
// channel and category.
func Effective(prefs *model.NotificationPreference) map[model.Channel]map[model.Category]bool {
	out := make(map[model.Channel]map[model.Category]bool, 3)
	for _, ch := range []model.Channel{model.ChannelInApp, model.ChannelPush, model.ChannelEmail} {
		m := make(map[model.Category]bool)
		for _, cat := range Categories(ch) {
			m[cat] = CategoryEnabled(ch, cat, prefs)
		}
		out[ch] = m
	}
	return out
}

// AnyChannelEnabled reports whether at least one channel would deliver t.
func AnyChannelEnabled(t model.NotificationType, prefs *model.NotificationPreference) bool {
	return ChannelEnabled(model.ChannelInApp, t, prefs) ||
		ChannelEnabled(model.ChannelPush, t, prefs) ||
		ChannelEnabled(model.ChannelEmail, t, prefs)
}
