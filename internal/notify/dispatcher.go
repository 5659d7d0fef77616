package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dukerupert/trimquest/internal/email"
	"github.com/dukerupert/trimquest/internal/model"
	"github.com/dukerupert/trimquest/internal/push"
)

// ErrInvalidInput is returned when the caller omits a required field.
var ErrInvalidInput = errors.New("invalid notification input")

// NotificationStore persists in-app notifications.
type NotificationStore interface {
	Create(ctx context.Context, n *model.Notification) (*model.Notification, error)
}

// PreferenceStore loads a user's preference record. A nil record with a nil
// error means the user never customized anything.
type PreferenceStore interface {
	GetByUser(ctx context.Context, userID int64) (*model.NotificationPreference, error)
}

// PushSender delivers a payload to every device of a user.
type PushSender interface {
	SendToUser(ctx context.Context, userID int64, payload push.Payload) push.Summary
}

// EmailSender resolves the user's address and sends one email.
type EmailSender interface {
	SendNotification(ctx context.Context, userID int64, n email.Notification) email.Result
}

// Publisher forwards a stored notification to the user's open sessions.
type Publisher interface {
	Publish(userID int64, n *model.Notification)
}

// Input describes one notification for one user.
type Input struct {
	UserID    int64                  `json:"user_id"`
	Type      model.NotificationType `json:"type"`
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	ActionURL string                 `json:"action_url,omitempty"`
	ActorID   *int64                 `json:"actor_id,omitempty"`
	RelatedID string                 `json:"related_id,omitempty"`
	Metadata  map[string]any         `json:"metadata,omitempty"`
}

// Validate checks the required fields.
func (in Input) Validate() error {
	switch {
	case in.UserID <= 0:
		return fmt.Errorf("%w: user_id is required", ErrInvalidInput)
	case in.Type == "":
		return fmt.Errorf("%w: type is required", ErrInvalidInput)
	case !in.Type.Valid():
		return fmt.Errorf("%w: unknown type %q", ErrInvalidInput, in.Type)
	case strings.TrimSpace(in.Title) == "":
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	case strings.TrimSpace(in.Message) == "":
		return fmt.Errorf("%w: message is required", ErrInvalidInput)
	}
	return nil
}

// Outcome records what happened on each channel. Nil Push or Email means the
// leg was not attempted.
type Outcome struct {
	Notification *model.Notification `json:"notification"`
	QuietHours   bool                `json:"quiet_hours"`
	Push         *push.Summary       `json:"push,omitempty"`
	Email        *email.Result       `json:"email,omitempty"`
}

type Dispatcher struct {
	notifications NotificationStore
	prefs         PreferenceStore
	push          PushSender
	email         EmailSender
	publisher     Publisher
	logger        *slog.Logger
	location      *time.Location
	now           func() time.Time
}

type Option func(*Dispatcher)

// WithLocation sets the zone quiet hours are evaluated in.
func WithLocation(loc *time.Location) Option {
	return func(d *Dispatcher) {
		if loc != nil {
			d.location = loc
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		d.now = now
	}
}

func WithPublisher(p Publisher) Option {
	return func(d *Dispatcher) {
		d.publisher = p
	}
}

// NewDispatcher wires the collaborators. pushSender and emailSender may be
// nil, which disables that channel.
func NewDispatcher(notifications NotificationStore, prefs PreferenceStore, pushSender PushSender, emailSender EmailSender, logger *slog.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		notifications: notifications,
		prefs:         prefs,
		push:          pushSender,
		email:         emailSender,
		logger:        logger,
		location:      time.UTC,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Create delivers in to one user and returns the in-app notification, or nil
// when the in-app channel is off for this type. Push and email failures are
// logged and never returned.
func (d *Dispatcher) Create(ctx context.Context, in Input) (*model.Notification, error) {
	out, err := d.Dispatch(ctx, in)
	if err != nil {
		return nil, err
	}
	return out.Notification, nil
}

// Dispatch is Create with the per-channel outcome exposed.
func (d *Dispatcher) Dispatch(ctx context.Context, in Input) (*Outcome, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	prefs, err := d.prefs.GetByUser(ctx, in.UserID)
	if err != nil {
		return nil, fmt.Errorf("load preferences: %w", err)
	}
	return d.deliver(ctx, in, prefs)
}

func (d *Dispatcher) deliver(ctx context.Context, in Input, prefs *model.NotificationPreference) (*Outcome, error) {
	out := &Outcome{}

	if ChannelEnabled(model.ChannelInApp, in.Type, prefs) {
		n, err := d.notifications.Create(ctx, &model.Notification{
			UserID:    in.UserID,
			Type:      in.Type,
			Title:     in.Title,
			Message:   in.Message,
			ActionURL: in.ActionURL,
			ActorID:   in.ActorID,
			RelatedID: in.RelatedID,
			Metadata:  in.Metadata,
		})
		if err != nil {
			return nil, fmt.Errorf("create notification: %w", err)
		}
		out.Notification = n
		if d.publisher != nil {
			d.publisher.Publish(in.UserID, n)
		}
	}

	// Push and email run side by side once the in-app row exists.
	var g errgroup.Group

	if d.push != nil && ChannelEnabled(model.ChannelPush, in.Type, prefs) {
		if IsQuietHours(prefs, d.now().In(d.location)) {
			out.QuietHours = true
			d.logger.Debug("push suppressed by quiet hours", "user_id", in.UserID, "type", in.Type)
		} else {
			payload := d.pushPayload(in, out.Notification)
			g.Go(func() error {
				summary := d.push.SendToUser(ctx, in.UserID, payload)
				out.Push = &summary
				return nil
			})
		}
	}

	if d.email != nil && ChannelEnabled(model.ChannelEmail, in.Type, prefs) {
		g.Go(func() error {
			res := d.email.SendNotification(ctx, in.UserID, email.Notification{
				Type:      in.Type,
				Title:     in.Title,
				Message:   in.Message,
				ActionURL: in.ActionURL,
			})
			out.Email = &res
			return nil
		})
	}

	g.Wait()
	return out, nil
}

func (d *Dispatcher) pushPayload(in Input, n *model.Notification) push.Payload {
	url := in.ActionURL
	if url == "" {
		url = "/"
	}
	payload := push.Payload{
		Title: in.Title,
		Body:  in.Message,
		Icon:  push.DefaultIcon,
		Badge: push.DefaultBadge,
		Data:  push.PayloadData{URL: url},
	}
	if n != nil {
		payload.Data.NotificationID = n.ID
	}
	return payload
}
