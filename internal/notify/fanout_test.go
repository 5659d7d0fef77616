package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/dukerupert/trimquest/internal/model"
)

func groupHarness(members ...model.GroupMember) (*harness, *GroupNotifier) {
	h := newHarness(atHour(12))
	g := NewGroupNotifier(h.dispatcher, &fakeMembers{members: members}, discardLogger())
	return h, g
}

func member(userID int64, role string) model.GroupMember {
	return model.GroupMember{GroupID: 10, UserID: userID, Role: role}
}

func groupInput() GroupInput {
	return GroupInput{
		GroupID:   10,
		Type:      model.NotifGroupMessage,
		Title:     "New message",
		Message:   "Someone posted in Weekend Warriors",
		ActionURL: "/groups/10",
	}
}

func TestNotifyGroupMembersExcludesActor(t *testing.T) {
	h, g := groupHarness(
		member(1, model.RoleAdmin),
		member(2, model.RoleMember),
		member(3, model.RoleMember),
	)
	in := groupInput()
	in.ExcludeUserID = ptrInt64(1)

	sent, err := g.NotifyGroupMembers(context.Background(), in)
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if sent != 2 {
		t.Errorf("sent = %d, want 2", sent)
	}
	for _, n := range h.notifications.created {
		if n.UserID == 1 {
			t.Error("actor should not be notified")
		}
	}
}

func TestNotifyGroupMembersIsolatesFailures(t *testing.T) {
	h, g := groupHarness(
		member(1, model.RoleMember),
		member(2, model.RoleMember),
		member(3, model.RoleMember),
		member(4, model.RoleMember),
		member(5, model.RoleMember),
	)
	h.notifications.panicOn = map[int64]bool{2: true}
	h.notifications.failFor = map[int64]error{4: errors.New("row locked")}

	sent, err := g.NotifyGroupMembers(context.Background(), groupInput())
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if sent != 3 {
		t.Errorf("sent = %d, want 3", sent)
	}
	if h.notifications.count() != 3 {
		t.Errorf("inserts = %d, want 3", h.notifications.count())
	}
}

func TestNotifyGroupMembersCountsOnlyInApp(t *testing.T) {
	h, g := groupHarness(
		member(1, model.RoleMember),
		member(2, model.RoleMember),
		member(3, model.RoleMember),
	)
	// Member 2 keeps push but turned in-app off; member 3 turned everything off.
	h.prefs.byUser[2] = &model.NotificationPreference{InAppGroup: model.Bool(false)}
	h.prefs.byUser[3] = allFlags(model.Bool(false))

	sent, err := g.NotifyGroupMembers(context.Background(), groupInput())
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if sent != 1 {
		t.Errorf("sent = %d, want 1", sent)
	}
	if len(h.push.calls) != 2 {
		t.Errorf("push calls = %d, want 2", len(h.push.calls))
	}
	for _, c := range h.push.calls {
		if c.userID == 3 {
			t.Error("member with every channel off should be skipped")
		}
	}
}

func TestNotifyGroupAdmins(t *testing.T) {
	h, g := groupHarness(
		member(1, model.RoleAdmin),
		member(2, model.RoleModerator),
		member(3, model.RoleMember),
	)
	in := groupInput()
	in.Type = model.NotifGroupJoinRequest

	sent, err := g.NotifyGroupAdmins(context.Background(), in)
	if err != nil {
		t.Fatalf("notify admins: %v", err)
	}
	if sent != 2 {
		t.Errorf("sent = %d, want 2", sent)
	}
	for _, n := range h.notifications.created {
		if n.UserID == 3 {
			t.Error("plain member should not get an admin notification")
		}
	}
}

func TestNotifyGroupMembersListError(t *testing.T) {
	h := newHarness(atHour(12))
	g := NewGroupNotifier(h.dispatcher, &fakeMembers{err: errors.New("db down")}, discardLogger())

	if _, err := g.NotifyGroupMembers(context.Background(), groupInput()); err == nil {
		t.Fatal("expected membership load error")
	}
}

func TestNotifyGroupMembersInvalidInput(t *testing.T) {
	_, g := groupHarness(member(1, model.RoleMember))

	in := groupInput()
	in.Title = ""
	if _, err := g.NotifyGroupMembers(context.Background(), in); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}

	in = groupInput()
	in.GroupID = 0
	if _, err := g.NotifyGroupMembers(context.Background(), in); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}

func TestNotifyGroupMember(t *testing.T) {
	h, g := groupHarness()
	h.prefs.byUser[9] = allFlags(model.Bool(false))

	n, err := g.NotifyGroupMember(context.Background(), Input{
		UserID: 9, Type: model.NotifGroupInvite, Title: "Invite", Message: "You were invited",
	})
	if err != nil {
		t.Fatalf("notify member: %v", err)
	}
	if n != nil || h.notifications.count() != 0 || len(h.push.calls) != 0 {
		t.Error("recipient with every channel off should get nothing")
	}

	n, err = g.NotifyGroupMember(context.Background(), Input{
		UserID: 8, Type: model.NotifGroupInvite, Title: "Invite", Message: "You were invited",
	})
	if err != nil {
		t.Fatalf("notify member: %v", err)
	}
	if n == nil || n.UserID != 8 {
		t.Errorf("notification = %+v, want one for user 8", n)
	}
}

func TestNotifyGroupMembersUnbounded(t *testing.T) {
	members := make([]model.GroupMember, 0, 20)
	for i := int64(1); i <= 20; i++ {
		members = append(members, member(i, model.RoleMember))
	}
	_, g := groupHarness(members...)
	g.SetLimit(0)

	sent, err := g.NotifyGroupMembers(context.Background(), groupInput())
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if sent != 20 {
		t.Errorf("sent = %d, want 20", sent)
	}
}
