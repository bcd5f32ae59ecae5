package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pixeltask/backend/internal/models"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ Store = (*Repository)(nil)

const userColumns = `id, email, name, password_hash, role, balance_cents, skills, company, is_active, is_system, created_at, updated_at`

func (r *Repository) Create(ctx context.Context, u *models.User) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO users (id, email, name, password_hash, role, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`, u.ID, u.Email, u.Name, u.PasswordHash, u.Role, u.IsActive).Scan(&u.CreatedAt, &u.UpdatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateEmail
	}
	return err
}

func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.scanOne(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.scanOne(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (r *Repository) List(ctx context.Context, role string) ([]*models.User, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE NOT is_system AND ($1 = '' OR role = $1)
		ORDER BY created_at DESC
	`, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Role, &u.BalanceCents,
			&u.Skills, &u.Company, &u.IsActive, &u.IsSystem, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, &u)
	}
	return list, rows.Err()
}

func (r *Repository) SetActive(ctx context.Context, id uuid.UUID, active bool) (*models.User, error) {
	return r.scanOne(r.pool.QueryRow(ctx, `
		UPDATE users SET is_active = $2, updated_at = now()
		WHERE id = $1 AND NOT is_system
		RETURNING `+userColumns, id, active))
}

func (r *Repository) scanOne(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Role, &u.BalanceCents,
		&u.Skills, &u.Company, &u.IsActive, &u.IsSystem, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
