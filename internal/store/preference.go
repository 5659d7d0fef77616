package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dukerupert/trimquest/internal/model"
)

type PreferenceStore struct {
	db *sql.DB
}

func NewPreferenceStore(db *sql.DB) *PreferenceStore {
	return &PreferenceStore{db: db}
}

// prefFlag binds a nullable column to its field on the record.
type prefFlag struct {
	column string
	field  func(p *model.NotificationPreference) **bool
}

var prefFlags = []prefFlag{
	{"in_app_new_follower", func(p *model.NotificationPreference) **bool { return &p.InAppNewFollower }},
	{"in_app_comment", func(p *model.NotificationPreference) **bool { return &p.InAppComment }},
	{"in_app_like", func(p *model.NotificationPreference) **bool { return &p.InAppLike }},
	{"in_app_mention", func(p *model.NotificationPreference) **bool { return &p.InAppMention }},
	{"in_app_achievement", func(p *model.NotificationPreference) **bool { return &p.InAppAchievement }},
	{"in_app_partner", func(p *model.NotificationPreference) **bool { return &p.InAppPartner }},
	{"in_app_moderation", func(p *model.NotificationPreference) **bool { return &p.InAppModeration }},
	{"in_app_group", func(p *model.NotificationPreference) **bool { return &p.InAppGroup }},
	{"push_new_follower", func(p *model.NotificationPreference) **bool { return &p.PushNewFollower }},
	{"push_comment", func(p *model.NotificationPreference) **bool { return &p.PushComment }},
	{"push_like", func(p *model.NotificationPreference) **bool { return &p.PushLike }},
	{"push_mention", func(p *model.NotificationPreference) **bool { return &p.PushMention }},
	{"push_achievement", func(p *model.NotificationPreference) **bool { return &p.PushAchievement }},
	{"push_partner", func(p *model.NotificationPreference) **bool { return &p.PushPartner }},
	{"push_group", func(p *model.NotificationPreference) **bool { return &p.PushGroup }},
	{"email_new_follower", func(p *model.NotificationPreference) **bool { return &p.EmailNewFollower }},
	{"email_comment", func(p *model.NotificationPreference) **bool { return &p.EmailComment }},
	{"email_mention", func(p *model.NotificationPreference) **bool { return &p.EmailMention }},
	{"email_achievement", func(p *model.NotificationPreference) **bool { return &p.EmailAchievement }},
	{"email_partner", func(p *model.NotificationPreference) **bool { return &p.EmailPartner }},
	{"email_moderation", func(p *model.NotificationPreference) **bool { return &p.EmailModeration }},
	{"email_group", func(p *model.NotificationPreference) **bool { return &p.EmailGroup }},
}

var prefFlagCols = func() string {
	cols := make([]string, len(prefFlags))
	for i, f := range prefFlags {
		cols[i] = f.column
	}
	return strings.Join(cols, ", ")
}()

var preferenceCols = `id, user_id, ` + prefFlagCols + `, quiet_hours_start, quiet_hours_end, created_at, updated_at`

func scanPreference(scanner interface{ Scan(...any) error }) (*model.NotificationPreference, error) {
	var p model.NotificationPreference
	flags := make([]sql.NullBool, len(prefFlags))
	var quietStart, quietEnd sql.NullInt64

	dest := []any{&p.ID, &p.UserID}
	for i := range flags {
		dest = append(dest, &flags[i])
	}
	dest = append(dest, &quietStart, &quietEnd, &p.CreatedAt, &p.UpdatedAt)

	if err := scanner.Scan(dest...); err != nil {
		return nil, err
	}

	for i, f := range prefFlags {
		*f.field(&p) = boolPtr(flags[i])
	}
	p.QuietHoursStart = intPtr(quietStart)
	p.QuietHoursEnd = intPtr(quietEnd)
	return &p, nil
}

// GetByUser returns the user's preference record, or nil if they never saved one.
func (s *PreferenceStore) GetByUser(ctx context.Context, userID int64) (*model.NotificationPreference, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+preferenceCols+` FROM notification_preferences WHERE user_id = ?`, userID)
	p, err := scanPreference(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get notification preferences: %w", err)
	}
	return p, nil
}

// Upsert replaces every flag and the quiet-hours window for p.UserID,
// creating the record on first use.
func (s *PreferenceStore) Upsert(ctx context.Context, p *model.NotificationPreference) (*model.NotificationPreference, error) {
	placeholders := strings.Repeat(", ?", len(prefFlags))
	updates := make([]string, 0, len(prefFlags)+3)
	for _, f := range prefFlags {
		updates = append(updates, f.column+" = excluded."+f.column)
	}
	updates = append(updates,
		"quiet_hours_start = excluded.quiet_hours_start",
		"quiet_hours_end = excluded.quiet_hours_end",
		"updated_at = CURRENT_TIMESTAMP",
	)

	args := []any{p.UserID}
	for _, f := range prefFlags {
		args = append(args, nullBool(*f.field(p)))
	}
	args = append(args, nullInt(p.QuietHoursStart), nullInt(p.QuietHoursEnd))

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notification_preferences (user_id, `+prefFlagCols+`, quiet_hours_start, quiet_hours_end)
		 VALUES (?`+placeholders+`, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET `+strings.Join(updates, ", "),
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert notification preferences: %w", constraintError(err))
	}
	return s.GetByUser(ctx, p.UserID)
}
