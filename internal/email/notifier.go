package email

import (
	"context"
	"log/slog"
	"strings"

	"github.com/dukerupert/trimquest/internal/model"
)

// Users resolves a recipient's address.
type Users interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
}

// Result reports one email attempt. Err is set only for transport failures.
type Result struct {
	Success   bool   `json:"success"`
	MessageID string `json:"message_id,omitempty"`
	Message   string `json:"message,omitempty"`
	Err       error  `json:"-"`
}

// Notifier sends notification emails to users by id.
type Notifier struct {
	client *Client
	users  Users
	logger *slog.Logger
}

func NewNotifier(client *Client, users Users, logger *slog.Logger) *Notifier {
	return &Notifier{client: client, users: users, logger: logger}
}

// SendNotification emails n to userID. It never returns an error: a missing
// address or an unconfigured client is a soft skip, and provider failures
// are logged and reported in the result.
func (s *Notifier) SendNotification(ctx context.Context, userID int64, n Notification) Result {
	if s.client == nil || !s.client.Configured() {
		return Result{Message: "Email not configured"}
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		s.logger.Error("lookup email recipient", "user_id", userID, "error", err)
		return Result{Message: "Failed to load user", Err: err}
	}
	if user == nil || strings.TrimSpace(user.Email) == "" {
		return Result{Message: "No email on file"}
	}

	subject, html, text, err := Render(s.client.BaseURL(), n)
	if err != nil {
		s.logger.Error("render notification email", "type", n.Type, "error", err)
		return Result{Message: "Failed to render email", Err: err}
	}

	id, err := s.client.Send(ctx, Message{
		To:       user.Email,
		Subject:  subject,
		HTMLBody: html,
		TextBody: text,
		Tag:      strings.ToLower(string(n.Type)),
	})
	if err != nil {
		s.logger.Warn("send notification email", "user_id", userID, "type", n.Type, "error", err)
		return Result{Message: "Failed to send email", Err: err}
	}

	return Result{Success: true, MessageID: id}
}
