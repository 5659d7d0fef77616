package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dukerupert/trimquest/internal/model"
)

type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

func scanUser(scanner interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	var email sql.NullString
	err := scanner.Scan(&u.ID, &email, &u.Name, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.Email = email.String
	return &u, nil
}

const userCols = `id, email, name, created_at, updated_at`

// Create inserts a user. An empty email is stored as NULL so that many users
// may have no address on file.
func (s *UserStore) Create(ctx context.Context, email, name string) (*model.User, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO users (email, name) VALUES (?, ?)`,
		sql.NullString{String: email, Valid: email != ""}, name,
	)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", constraintError(err))
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *UserStore) GetByID(ctx context.Context, id int64) (*model.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// Upsert stores the user under the id the auth provider assigned, replacing
// the email and name of an existing row.
func (s *UserStore) Upsert(ctx context.Context, id int64, email, name string) (*model.User, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, name) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   email = excluded.email,
		   name = excluded.name,
		   updated_at = CURRENT_TIMESTAMP`,
		id, sql.NullString{String: email, Valid: email != ""}, name,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert user: %w", constraintError(err))
	}
	return s.GetByID(ctx, id)
}

// Ensure creates a bare row for id unless one exists. Email and name are
// filled in later by Upsert.
func (s *UserStore) Ensure(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO users (id) VALUES (?) ON CONFLICT(id) DO NOTHING`, id)
	if err != nil {
		return fmt.Errorf("ensure user: %w", err)
	}
	return nil
}
