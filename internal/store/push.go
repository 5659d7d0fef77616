package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/trimquest/internal/model"
)

type PushStore struct {
	db *sql.DB
}

func NewPushStore(db *sql.DB) *PushStore {
	return &PushStore{db: db}
}

const pushSubscriptionCols = `id, user_id, endpoint, p256dh_key, auth_key, user_agent, last_used_at, created_at`

func scanSubscription(scanner interface{ Scan(...any) error }) (*model.PushSubscription, error) {
	var sub model.PushSubscription
	var lastUsed sql.NullTime
	err := scanner.Scan(&sub.ID, &sub.UserID, &sub.Endpoint, &sub.P256dhKey, &sub.AuthKey,
		&sub.UserAgent, &lastUsed, &sub.CreatedAt)
	if err != nil {
		return nil, err
	}
	sub.LastUsedAt = timePtr(lastUsed)
	return &sub, nil
}

// Upsert registers an endpoint for userID. Re-subscribing an endpoint that
// already exists moves it to userID and refreshes its keys.
func (s *PushStore) Upsert(ctx context.Context, userID int64, endpoint, p256dh, auth, userAgent string) (*model.PushSubscription, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO push_subscriptions (user_id, endpoint, p256dh_key, auth_key, user_agent)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(endpoint) DO UPDATE SET
		   user_id = excluded.user_id,
		   p256dh_key = excluded.p256dh_key,
		   auth_key = excluded.auth_key,
		   user_agent = excluded.user_agent`,
		userID, endpoint, p256dh, auth, userAgent,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert push subscription: %w", constraintError(err))
	}
	// LastInsertId is unreliable on the conflict path; re-query by endpoint.
	return s.GetByEndpoint(ctx, endpoint)
}

func (s *PushStore) GetByEndpoint(ctx context.Context, endpoint string) (*model.PushSubscription, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+pushSubscriptionCols+` FROM push_subscriptions WHERE endpoint = ?`, endpoint)
	sub, err := scanSubscription(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get push subscription by endpoint: %w", err)
	}
	return sub, nil
}

func (s *PushStore) ListByUser(ctx context.Context, userID int64) ([]model.PushSubscription, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+pushSubscriptionCols+` FROM push_subscriptions WHERE user_id = ? ORDER BY created_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list push subscriptions by user: %w", err)
	}
	defer rows.Close()

	var subs []model.PushSubscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("scan push subscription: %w", err)
		}
		subs = append(subs, *sub)
	}
	return subs, rows.Err()
}

// Touch records a successful delivery to endpoint.
func (s *PushStore) Touch(ctx context.Context, endpoint string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE push_subscriptions SET last_used_at = ? WHERE endpoint = ?`, formatTime(at), endpoint)
	if err != nil {
		return fmt.Errorf("touch push subscription: %w", err)
	}
	return nil
}

// Delete removes a subscription owned by userID.
func (s *PushStore) Delete(ctx context.Context, id, userID int64) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM push_subscriptions WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete push subscription: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteByEndpoint removes a subscription the push service reported as gone.
// Deleting an endpoint that is already gone is not an error.
func (s *PushStore) DeleteByEndpoint(ctx context.Context, endpoint string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM push_subscriptions WHERE endpoint = ?`, endpoint)
	if err != nil {
		return fmt.Errorf("delete push subscription by endpoint: %w", err)
	}
	return nil
}

// DeleteStale removes subscriptions with no successful delivery since before.
// Never-used subscriptions age from their creation time.
func (s *PushStore) DeleteStale(ctx context.Context, before time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM push_subscriptions WHERE COALESCE(last_used_at, created_at) < ?`, formatTime(before))
	if err != nil {
		return 0, fmt.Errorf("delete stale push subscriptions: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}
