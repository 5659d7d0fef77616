package notify

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/dukerupert/trimquest/internal/model"
)

const defaultFanoutLimit = 8

// MemberStore lists a group's membership, optionally filtered by role.
type MemberStore interface {
	ListMembers(ctx context.Context, groupID int64, roles ...string) ([]model.GroupMember, error)
}

// GroupInput is a notification addressed to a group instead of a user.
type GroupInput struct {
	GroupID       int64                  `json:"group_id"`
	Type          model.NotificationType `json:"type"`
	Title         string                 `json:"title"`
	Message       string                 `json:"message"`
	ActionURL     string                 `json:"action_url,omitempty"`
	ActorID       *int64                 `json:"actor_id,omitempty"`
	RelatedID     string                 `json:"related_id,omitempty"`
	Metadata      map[string]any         `json:"metadata,omitempty"`
	ExcludeUserID *int64                 `json:"exclude_user_id,omitempty"`
}

func (in GroupInput) forUser(userID int64) Input {
	return Input{
		UserID:    userID,
		Type:      in.Type,
		Title:     in.Title,
		Message:   in.Message,
		ActionURL: in.ActionURL,
		ActorID:   in.ActorID,
		RelatedID: in.RelatedID,
		Metadata:  in.Metadata,
	}
}

// GroupNotifier fans a notification out to group members through a Dispatcher.
type GroupNotifier struct {
	dispatcher *Dispatcher
	members    MemberStore
	logger     *slog.Logger
	limit      int
}

func NewGroupNotifier(d *Dispatcher, members MemberStore, logger *slog.Logger) *GroupNotifier {
	return &GroupNotifier{dispatcher: d, members: members, logger: logger, limit: defaultFanoutLimit}
}

// SetLimit caps how many recipients are processed at once. n < 1 means no cap.
func (g *GroupNotifier) SetLimit(n int) {
	g.limit = n
}

// NotifyGroupMembers notifies every member of the group and returns how many
// recipients got an in-app notification.
func (g *GroupNotifier) NotifyGroupMembers(ctx context.Context, in GroupInput) (int, error) {
	return g.fanout(ctx, in)
}

// NotifyGroupAdmins is NotifyGroupMembers restricted to admins and moderators.
func (g *GroupNotifier) NotifyGroupAdmins(ctx context.Context, in GroupInput) (int, error) {
	return g.fanout(ctx, in, model.RoleAdmin, model.RoleModerator)
}

// NotifyGroupMember notifies a single recipient, skipping the dispatch
// entirely when every channel is off for them.
func (g *GroupNotifier) NotifyGroupMember(ctx context.Context, in Input) (*model.Notification, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	prefs, err := g.dispatcher.prefs.GetByUser(ctx, in.UserID)
	if err != nil {
		return nil, fmt.Errorf("load preferences: %w", err)
	}
	if !AnyChannelEnabled(in.Type, prefs) {
		return nil, nil
	}
	out, err := g.dispatcher.deliver(ctx, in, prefs)
	if err != nil {
		return nil, err
	}
	return out.Notification, nil
}

func (g *GroupNotifier) fanout(ctx context.Context, in GroupInput, roles ...string) (int, error) {
	// Validate once against a placeholder recipient so bad input fails fast.
	if err := in.forUser(1).Validate(); err != nil {
		return 0, err
	}
	if in.GroupID <= 0 {
		return 0, fmt.Errorf("%w: group_id is required", ErrInvalidInput)
	}

	members, err := g.members.ListMembers(ctx, in.GroupID, roles...)
	if err != nil {
		return 0, fmt.Errorf("list group members: %w", err)
	}

	var sent atomic.Int64
	var eg errgroup.Group
	if g.limit > 0 {
		eg.SetLimit(g.limit)
	}

	for _, m := range members {
		if in.ExcludeUserID != nil && m.UserID == *in.ExcludeUserID {
			continue
		}
		userID := m.UserID
		eg.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					g.logger.Error("group notification panicked",
						"group_id", in.GroupID, "user_id", userID, "panic", r, "stack", string(debug.Stack()))
				}
			}()

			n, err := g.NotifyGroupMember(ctx, in.forUser(userID))
			if err != nil {
				g.logger.Error("group notification failed", "group_id", in.GroupID, "user_id", userID, "error", err)
				return nil
			}
			if n != nil {
				sent.Add(1)
			}
			return nil
		})
	}

	eg.Wait()
	g.logger.Info("group notification sent",
		"group_id", in.GroupID, "type", in.Type, "recipients", len(members), "sent", sent.Load())
	return int(sent.Load()), nil
}
