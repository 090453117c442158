package learner

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS learners (
  email TEXT PRIMARY KEY,
  document TEXT NOT NULL,
  updated_at INTEGER NOT NULL
);
`

// SQLiteRepository stores one JSON document per learner in a SQLite table.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository ensures the learners table exists.
func NewSQLiteRepository(ctx context.Context, db *sql.DB) (*SQLiteRepository, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		return nil, fmt.Errorf("create learners table: %w", err)
	}
	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, email string) (*User, error) {
	var doc string
	err := r.db.QueryRowContext(ctx,
		`SELECT document FROM learners WHERE email = ?`,
		NormalizeEmail(email),
	).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, email)
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return decodeUser([]byte(doc))
}

func (r *SQLiteRepository) Upsert(ctx context.Context, user *User) error {
	key, err := userKey(user)
	if err != nil {
		return err
	}
	doc, err := encodeUser(user)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO learners (email, document, updated_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(email) DO UPDATE SET document = excluded.document, updated_at = excluded.updated_at`,
		key,
		string(doc),
		time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) All(ctx context.Context) ([]*User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT document FROM learners ORDER BY email ASC`)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		u, err := decodeUser([]byte(doc))
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}
