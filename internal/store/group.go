package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dukerupert/trimquest/internal/model"
)

type GroupStore struct {
	db *sql.DB
}

func NewGroupStore(db *sql.DB) *GroupStore {
	return &GroupStore{db: db}
}

func scanGroup(scanner interface{ Scan(...any) error }) (*model.Group, error) {
	var g model.Group
	err := scanner.Scan(&g.ID, &g.Name, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func scanGroupMember(scanner interface{ Scan(...any) error }) (*model.GroupMember, error) {
	var m model.GroupMember
	err := scanner.Scan(&m.ID, &m.GroupID, &m.UserID, &m.Role, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

const groupCols = `id, name, created_at, updated_at`
const groupMemberCols = `id, group_id, user_id, role, created_at, updated_at`

func (s *GroupStore) Create(ctx context.Context, name string) (*model.Group, error) {
	result, err := s.db.ExecContext(ctx, `INSERT INTO groups (name) VALUES (?)`, name)
	if err != nil {
		return nil, fmt.Errorf("insert group: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *GroupStore) GetByID(ctx context.Context, id int64) (*model.Group, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+groupCols+` FROM groups WHERE id = ?`, id)
	g, err := scanGroup(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get group: %w", err)
	}
	return g, nil
}

func (s *GroupStore) AddMember(ctx context.Context, groupID, userID int64, role string) (*model.GroupMember, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO group_members (group_id, user_id, role) VALUES (?, ?, ?)`,
		groupID, userID, role,
	)
	if err != nil {
		return nil, fmt.Errorf("add member: %w", constraintError(err))
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+groupMemberCols+` FROM group_members WHERE id = ?`, id)
	return scanGroupMember(row)
}

// RemoveMember returns ErrNotFound when the user is not in the group.
func (s *GroupStore) RemoveMember(ctx context.Context, groupID, userID int64) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM group_members WHERE group_id = ? AND user_id = ?`,
		groupID, userID,
	)
	if err != nil {
		return fmt.Errorf("remove member: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetMember adds the user with role, or changes the role of an existing member.
func (s *GroupStore) SetMember(ctx context.Context, groupID, userID int64, role string) (*model.GroupMember, error) {
	existing, err := s.GetMember(ctx, groupID, userID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return s.AddMember(ctx, groupID, userID, role)
	}
	if existing.Role == role {
		return existing, nil
	}
	return s.UpdateMemberRole(ctx, groupID, userID, role)
}

func (s *GroupStore) GetMember(ctx context.Context, groupID, userID int64) (*model.GroupMember, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+groupMemberCols+` FROM group_members WHERE group_id = ? AND user_id = ?`,
		groupID, userID,
	)
	m, err := scanGroupMember(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get member: %w", err)
	}
	return m, nil
}

// ListMembers returns the members of a group. When roles are given, only
// members holding one of them are returned.
func (s *GroupStore) ListMembers(ctx context.Context, groupID int64, roles ...string) ([]model.GroupMember, error) {
	query := `SELECT ` + groupMemberCols + ` FROM group_members WHERE group_id = ?`
	args := []any{groupID}
	if len(roles) > 0 {
		query += ` AND role IN (?` + strings.Repeat(`, ?`, len(roles)-1) + `)`
		for _, r := range roles {
			args = append(args, r)
		}
	}
	query += ` ORDER BY created_at ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var members []model.GroupMember
	for rows.Next() {
		m, err := scanGroupMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, *m)
	}
	return members, rows.Err()
}

func (s *GroupStore) UpdateMemberRole(ctx context.Context, groupID, userID int64, role string) (*model.GroupMember, error) {
	_, err := s.db.ExecContext(ctx,
		`UPDATE group_members SET role = ?, updated_at = CURRENT_TIMESTAMP WHERE group_id = ? AND user_id = ?`,
		role, groupID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("update member role: %w", err)
	}
	return s.GetMember(ctx, groupID, userID)
}
