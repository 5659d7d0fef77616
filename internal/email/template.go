package email

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	texttemplate "text/template"

	"github.com/dukerupert/trimquest/internal/model"
)

var htmlTmpl = template.Must(template.New("notification").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: -apple-system, Segoe UI, Helvetica, Arial, sans-serif; color: #1f2937;">
  <h2 style="margin-bottom: 8px;">{{.Title}}</h2>
  <p>{{.Message}}</p>
  {{if .ActionURL}}<p><a href="{{.ActionURL}}" style="display: inline-block; padding: 10px 16px; background: #16a34a; color: #fff; border-radius: 6px; text-decoration: none;">{{.ActionLabel}}</a></p>{{end}}
  <p style="font-size: 12px; color: #6b7280;">You are receiving this because email alerts are on for this kind of activity.
  {{if .SettingsURL}}<a href="{{.SettingsURL}}">Manage notification settings</a>.{{end}}</p>
</body>
</html>`))

var textTmpl = texttemplate.Must(texttemplate.New("notification").Parse(`{{.Title}}

{{.Message}}
{{if .ActionURL}}
{{.ActionLabel}}: {{.ActionURL}}
{{end}}{{if .SettingsURL}}
Manage notification settings: {{.SettingsURL}}
{{end}}`))

// Notification is the content handed to the email channel by the dispatcher.
type Notification struct {
	Type      model.NotificationType
	Title     string
	Message   string
	ActionURL string
}

type templateData struct {
	Title       string
	Message     string
	ActionURL   string
	ActionLabel string
	SettingsURL string
}

// AbsoluteURL joins a relative path onto baseURL. Absolute URLs and an
// empty baseURL leave path untouched.
func AbsoluteURL(baseURL, path string) string {
	if path == "" || baseURL == "" {
		return path
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

func actionLabel(t model.NotificationType) string {
	switch t {
	case model.NotifPartnerRequest:
		return "Review request"
	case model.NotifGroupInvite:
		return "View invitation"
	case model.NotifBadgeEarned, model.NotifLevelUp, model.NotifQuestCompleted, model.NotifStreakMilestone:
		return "See your progress"
	default:
		return "Open TrimQuest"
	}
}

// Render builds the subject and bodies for a notification email.
func Render(baseURL string, n Notification) (subject, html, text string, err error) {
	data := templateData{
		Title:       n.Title,
		Message:     n.Message,
		ActionURL:   AbsoluteURL(baseURL, n.ActionURL),
		ActionLabel: actionLabel(n.Type),
	}
	if baseURL != "" {
		data.SettingsURL = AbsoluteURL(baseURL, "/settings/notifications")
	}

	var hb, tb bytes.Buffer
	if err := htmlTmpl.Execute(&hb, data); err != nil {
		return "", "", "", fmt.Errorf("render html: %w", err)
	}
	if err := textTmpl.Execute(&tb, data); err != nil {
		return "", "", "", fmt.Errorf("render text: %w", err)
	}
	return n.Title, hb.String(), tb.String(), nil
}
