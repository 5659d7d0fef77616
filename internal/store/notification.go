package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dukerupert/trimquest/internal/model"
)

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

type NotificationStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewNotificationStore(db *sql.DB) *NotificationStore {
	return &NotificationStore{db: db, now: time.Now}
}

const notificationCols = `id, user_id, type, title, message, action_url, actor_id, related_id, metadata, read, read_at, created_at`

func scanNotification(scanner interface{ Scan(...any) error }) (*model.Notification, error) {
	var n model.Notification
	var actorID sql.NullInt64
	var metadata sql.NullString
	var read int
	var readAt sql.NullTime

	err := scanner.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &n.ActionURL,
		&actorID, &n.RelatedID, &metadata, &read, &readAt, &n.CreatedAt)
	if err != nil {
		return nil, err
	}

	n.ActorID = int64Ptr(actorID)
	n.Read = read != 0
	n.ReadAt = timePtr(readAt)
	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &n.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata: %w", err)
		}
	}
	return &n, nil
}

// Create persists an unread notification and returns the stored row.
func (s *NotificationStore) Create(ctx context.Context, n *model.Notification) (*model.Notification, error) {
	var metadata sql.NullString
	if len(n.Metadata) > 0 {
		data, err := json.Marshal(n.Metadata)
		if err != nil {
			return nil, fmt.Errorf("encode metadata: %w", err)
		}
		metadata = sql.NullString{String: string(data), Valid: true}
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO notifications (user_id, type, title, message, action_url, actor_id, related_id, metadata)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		n.UserID, n.Type, n.Title, n.Message, n.ActionURL, nullInt64(n.ActorID), n.RelatedID, metadata,
	)
	if err != nil {
		return nil, fmt.Errorf("insert notification: %w", constraintError(err))
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id, n.UserID)
}

// GetByID returns the notification only if it belongs to userID.
func (s *NotificationStore) GetByID(ctx context.Context, id, userID int64) (*model.Notification, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+notificationCols+` FROM notifications WHERE id = ? AND user_id = ?`, id, userID)
	n, err := scanNotification(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get notification: %w", err)
	}
	return n, nil
}

// MarkAsRead flags one notification as read. It returns ErrNotFound when the
// notification does not exist or belongs to another user.
func (s *NotificationStore) MarkAsRead(ctx context.Context, id, userID int64) (*model.Notification, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET read = 1, read_at = ? WHERE id = ? AND user_id = ?`,
		formatTime(s.now()), id, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("mark notification read: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return s.GetByID(ctx, id, userID)
}

// MarkAllAsRead flags every unread notification of userID and returns how many changed.
func (s *NotificationStore) MarkAllAsRead(ctx context.Context, userID int64) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET read = 1, read_at = ? WHERE user_id = ? AND read = 0`,
		formatTime(s.now()), userID,
	)
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// Delete removes one notification owned by userID.
func (s *NotificationStore) Delete(ctx context.Context, id, userID int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM notifications WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *NotificationStore) UnreadCount(ctx context.Context, userID int64) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = ? AND read = 0`, userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}

// List returns one page of userID's notifications, newest first. Page is
// 1-based; non-positive values fall back to the defaults.
func (s *NotificationStore) List(ctx context.Context, userID int64, page, limit int) (*model.NotificationPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}

	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = ?`, userID,
	).Scan(&total); err != nil {
		return nil, fmt.Errorf("count notifications: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+notificationCols+` FROM notifications WHERE user_id = ?
		 ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		userID, limit, (page-1)*limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	notifications := []model.Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		notifications = append(notifications, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &model.NotificationPage{
		Notifications: notifications,
		Total:         total,
		Page:          page,
		TotalPages:    (total + limit - 1) / limit,
	}, nil
}

// DeleteOlderThan removes read notifications created before the cutoff.
func (s *NotificationStore) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM notifications WHERE read = 1 AND created_at < ?`, formatTime(before))
	if err != nil {
		return 0, fmt.Errorf("delete old notifications: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}
