package disputes

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
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

func (r *Repository) Insert(ctx context.Context, d *models.Dispute) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO disputes (id, transaction_id, reporter_id, reason, description, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, d.ID, d.TransactionID, d.ReporterID, d.Reason, d.Description, d.Status).Scan(&d.CreatedAt)
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	var d models.Dispute
	err := r.pool.QueryRow(ctx, `
		SELECT id, transaction_id, reporter_id, reason, description, status, resolution, created_at, resolved_at
		FROM disputes WHERE id = $1
	`, id).Scan(&d.ID, &d.TransactionID, &d.ReporterID, &d.Reason, &d.Description, &d.Status, &d.Resolution, &d.CreatedAt, &d.ResolvedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *Repository) Update(ctx context.Context, d *models.Dispute) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE disputes SET status = $2, resolution = $3, resolved_at = $4
		WHERE id = $1
	`, d.ID, d.Status, d.Resolution, d.ResolvedAt)
	return err
}

func (r *Repository) ListByStatus(ctx context.Context, status string) ([]*models.Dispute, error) {
	query := `
		SELECT id, transaction_id, reporter_id, reason, description, status, resolution, created_at, resolved_at
		FROM disputes
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at ASC
	`
	rows, err := r.pool.Query(ctx, query, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Dispute
	for rows.Next() {
		var d models.Dispute
		if err := rows.Scan(&d.ID, &d.TransactionID, &d.ReporterID, &d.Reason, &d.Description, &d.Status, &d.Resolution, &d.CreatedAt, &d.ResolvedAt); err != nil {
			return nil, err
		}
		list = append(list, &d)
	}
	return list, rows.Err()
}
