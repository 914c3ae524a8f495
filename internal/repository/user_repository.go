package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type User struct {
	Email       string
	FullName    string
	DisplayName *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type UserRepository interface {
	// Upsert inserts the user or refreshes full_name. display_name is kept.
	Upsert(ctx context.Context, user *User) error
	FindByEmail(ctx context.Context, email string) (*User, error)
	UpdateDisplayName(ctx context.Context, email, displayName string) error
}

type pgUserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &pgUserRepository{pool: pool}
}

func (r *pgUserRepository) Upsert(ctx context.Context, user *User) error {
	query := `
		INSERT INTO users (email, full_name)
		VALUES ($1, $2)
		ON CONFLICT (email) DO UPDATE
			SET full_name = CASE WHEN EXCLUDED.full_name = '' THEN users.full_name ELSE EXCLUDED.full_name END,
			    updated_at = CASE WHEN EXCLUDED.full_name = '' OR EXCLUDED.full_name = users.full_name
			                      THEN users.updated_at ELSE NOW() END
		RETURNING full_name, display_name, created_at, updated_at
	`
	return r.pool.QueryRow(ctx, query, user.Email, user.FullName).
		Scan(&user.FullName, &user.DisplayName, &user.CreatedAt, &user.UpdatedAt)
}

func (r *pgUserRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	query := `
		SELECT email, full_name, display_name, created_at, updated_at
		FROM users WHERE email = $1
	`
	user := &User{}
	err := r.pool.QueryRow(ctx, query, email).Scan(
		&user.Email, &user.FullName, &user.DisplayName, &user.CreatedAt, &user.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return user, err
}

func (r *pgUserRepository) UpdateDisplayName(ctx context.Context, email, displayName string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE users SET display_name = $2, updated_at = NOW() WHERE email = $1`,
		email, displayName,
	)
	return err
}
