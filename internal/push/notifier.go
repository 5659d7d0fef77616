package push

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dukerupert/trimquest/internal/model"
)

// Sender delivers a payload to a single subscription.
type Sender interface {
	Send(ctx context.Context, sub *model.PushSubscription, payload Payload) error
}

// Subscriptions is the slice of the push store the notifier needs.
type Subscriptions interface {
	ListByUser(ctx context.Context, userID int64) ([]model.PushSubscription, error)
	Touch(ctx context.Context, endpoint string, at time.Time) error
	DeleteByEndpoint(ctx context.Context, endpoint string) error
}

// Summary reports the outcome of sending to every device of one user.
type Summary struct {
	Sent    int    `json:"sent"`
	Failed  int    `json:"failed"`
	Total   int    `json:"total"`
	Removed int    `json:"removed"`
	Message string `json:"message,omitempty"`
}

// Success reports whether at least one device accepted the payload.
func (s Summary) Success() bool {
	return s.Sent > 0
}

// Notifier fans a payload out to all of a user's subscriptions.
type Notifier struct {
	sender Sender
	subs   Subscriptions
	logger *slog.Logger
	now    func() time.Time
}

// NewNotifier returns a notifier. A nil sender makes every send a no-op,
// which is how an instance without VAPID keys behaves.
func NewNotifier(sender Sender, subs Subscriptions, logger *slog.Logger) *Notifier {
	return &Notifier{sender: sender, subs: subs, logger: logger, now: time.Now}
}

// SendToUser sends payload to every subscription of userID. Each device is
// independent: a failure is counted and logged, a gone endpoint is deleted,
// and the loop moves on.
func (n *Notifier) SendToUser(ctx context.Context, userID int64, payload Payload) Summary {
	if n.sender == nil {
		return Summary{Message: "Push not configured"}
	}

	subs, err := n.subs.ListByUser(ctx, userID)
	if err != nil {
		n.logger.Error("list push subscriptions", "user_id", userID, "error", err)
		return Summary{Message: "Failed to load subscriptions"}
	}
	if len(subs) == 0 {
		return Summary{Message: "No subscriptions found"}
	}

	summary := Summary{Total: len(subs)}
	for i := range subs {
		sub := &subs[i]
		if err := n.sender.Send(ctx, sub, payload); err != nil {
			summary.Failed++
			if errors.Is(err, ErrGone) {
				if err := n.subs.DeleteByEndpoint(ctx, sub.Endpoint); err != nil {
					n.logger.Error("delete gone subscription", "subscription_id", sub.ID, "error", err)
				} else {
					summary.Removed++
				}
				n.logger.Info("removed gone push subscription", "user_id", userID, "subscription_id", sub.ID)
				continue
			}
			n.logger.Warn("push send failed", "user_id", userID, "subscription_id", sub.ID, "error", err)
			continue
		}

		summary.Sent++
		if err := n.subs.Touch(ctx, sub.Endpoint, n.now()); err != nil {
			n.logger.Warn("touch push subscription", "subscription_id", sub.ID, "error", err)
		}
	}

	return summary
}
