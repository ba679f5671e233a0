package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"veinwise/internal/domain"
)

// EmailUniqueConstraint es el nombre de la restriccion unica sobre users.email.
const EmailUniqueConstraint = "users_email_key"

var ErrUserNotFound = errors.New("user not found")

// UserRepository define el contrato de persistencia para usuarios.
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (domain.User, error)
	Insert(ctx context.Context, user domain.User) (string, error)
	Ping(ctx context.Context) error
}

// PgUserRepository implementa UserRepository usando pgxpool.
type PgUserRepository struct {
	pool *pgxpool.Pool
}

func NewPgUserRepository(pool *pgxpool.Pool) *PgUserRepository {
	return &PgUserRepository{pool: pool}
}

func (r *PgUserRepository) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	const query = `
		SELECT id::text, name, email, password, COALESCE(phone, ''), COALESCE(gender, ''), COALESCE(age, 0), created_at
		FROM users
		WHERE email = $1
	`
	var u domain.User
	err := r.pool.QueryRow(ctx, query, email).Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&u.Phone,
		&u.Gender,
		&u.Age,
		&u.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("find user by email: %w", err)
	}
	return u, nil
}

func (r *PgUserRepository) Insert(ctx context.Context, user domain.User) (string, error) {
	const query = `
		INSERT INTO users (id, name, email, password, phone, gender, age, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id::text
	`
	var id string
	err := r.pool.QueryRow(ctx, query,
		user.ID,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Phone,
		user.Gender,
		user.Age,
		user.CreatedAt,
	).Scan(&id)
	if err != nil {
		return "", classifyError("insert user", err)
	}
	return id, nil
}

func (r *PgUserRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}
