package tasks

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

func (r *Repository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

func (r *Repository) InsertTask(ctx context.Context, t *models.Task) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO tasks (id, client_id, title, description, category, price_cents, estimated_time, spots_available, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`, t.ID, t.ClientID, t.Title, t.Description, t.Category, t.PriceCents, t.EstimatedTime, t.SpotsAvailable, t.Status).Scan(&t.CreatedAt)
}

func (r *Repository) GetTask(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	var t models.Task
	err := r.pool.QueryRow(ctx, `
		SELECT id, client_id, title, description, category, price_cents, estimated_time, spots_available, status, created_at
		FROM tasks WHERE id = $1
	`, id).Scan(&t.ID, &t.ClientID, &t.Title, &t.Description, &t.Category, &t.PriceCents, &t.EstimatedTime, &t.SpotsAvailable, &t.Status, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *Repository) ListTasks(ctx context.Context, status, category string) ([]*models.Task, error) {
	query := `
		SELECT id, client_id, title, description, category, price_cents, estimated_time, spots_available, status, created_at
		FROM tasks
		WHERE ($1 = '' OR status = $1) AND ($2 = '' OR category = $2)
		ORDER BY created_at DESC
	`
	rows, err := r.pool.Query(ctx, query, status, category)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Task
	for rows.Next() {
		var t models.Task
		if err := rows.Scan(&t.ID, &t.ClientID, &t.Title, &t.Description, &t.Category, &t.PriceCents, &t.EstimatedTime, &t.SpotsAvailable, &t.Status, &t.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &t)
	}
	return list, rows.Err()
}

func (r *Repository) ListTasksByClient(ctx context.Context, clientID uuid.UUID) ([]*models.Task, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, client_id, title, description, category, price_cents, estimated_time, spots_available, status, created_at
		FROM tasks WHERE client_id = $1 ORDER BY created_at DESC
	`, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Task
	for rows.Next() {
		var t models.Task
		if err := rows.Scan(&t.ID, &t.ClientID, &t.Title, &t.Description, &t.Category, &t.PriceCents, &t.EstimatedTime, &t.SpotsAvailable, &t.Status, &t.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &t)
	}
	return list, rows.Err()
}

// DecrementSpots takes a spot only while one remains; the condition inside
// the UPDATE is what makes the last-spot race safe.
func (r *Repository) DecrementSpots(ctx context.Context, tx pgx.Tx, taskID uuid.UUID) (int, error) {
	var remaining int
	err := tx.QueryRow(ctx, `
		UPDATE tasks SET spots_available = spots_available - 1
		WHERE id = $1 AND spots_available > 0 AND status = 'active'
		RETURNING spots_available
	`, taskID).Scan(&remaining)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNoSpots
	}
	if err != nil {
		return 0, err
	}
	return remaining, nil
}

func (r *Repository) SetTaskStatus(ctx context.Context, tx pgx.Tx, taskID uuid.UUID, status string) error {
	_, err := tx.Exec(ctx, `UPDATE tasks SET status = $2 WHERE id = $1`, taskID, status)
	return err
}

func (r *Repository) InsertSubmission(ctx context.Context, tx pgx.Tx, sub *models.Submission) error {
	err := tx.QueryRow(ctx, `
		INSERT INTO submissions (id, task_id, worker_id, proof_text, proof_file_url, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING submitted_at
	`, sub.ID, sub.TaskID, sub.WorkerID, sub.ProofText, sub.ProofFileURL, sub.Status).Scan(&sub.SubmittedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrAlreadySubmitted
	}
	return err
}

func (r *Repository) GetSubmissionForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Submission, error) {
	var sub models.Submission
	err := tx.QueryRow(ctx, `
		SELECT id, task_id, worker_id, proof_text, proof_file_url, status, submitted_at, reviewed_at, admin_notes
		FROM submissions WHERE id = $1 FOR UPDATE
	`, id).Scan(&sub.ID, &sub.TaskID, &sub.WorkerID, &sub.ProofText, &sub.ProofFileURL, &sub.Status, &sub.SubmittedAt, &sub.ReviewedAt, &sub.AdminNotes)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *Repository) UpdateSubmission(ctx context.Context, tx pgx.Tx, sub *models.Submission) error {
	_, err := tx.Exec(ctx, `
		UPDATE submissions SET status = $2, reviewed_at = $3, admin_notes = $4
		WHERE id = $1
	`, sub.ID, sub.Status, sub.ReviewedAt, sub.AdminNotes)
	return err
}

func (r *Repository) ListSubmissionsByWorker(ctx context.Context, workerID uuid.UUID) ([]*models.Submission, error) {
	return r.listSubmissions(ctx, `
		SELECT id, task_id, worker_id, proof_text, proof_file_url, status, submitted_at, reviewed_at, admin_notes
		FROM submissions WHERE worker_id = $1 ORDER BY submitted_at DESC
	`, workerID)
}

func (r *Repository) ListSubmissionsByStatus(ctx context.Context, status string) ([]*models.Submission, error) {
	if status == "" {
		return r.listSubmissions(ctx, `
			SELECT id, task_id, worker_id, proof_text, proof_file_url, status, submitted_at, reviewed_at, admin_notes
			FROM submissions ORDER BY submitted_at ASC
		`)
	}
	return r.listSubmissions(ctx, `
		SELECT id, task_id, worker_id, proof_text, proof_file_url, status, submitted_at, reviewed_at, admin_notes
		FROM submissions WHERE status = $1 ORDER BY submitted_at ASC
	`, status)
}

func (r *Repository) listSubmissions(ctx context.Context, query string, args ...any) ([]*models.Submission, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Submission
	for rows.Next() {
		var sub models.Submission
		if err := rows.Scan(&sub.ID, &sub.TaskID, &sub.WorkerID, &sub.ProofText, &sub.ProofFileURL, &sub.Status, &sub.SubmittedAt, &sub.ReviewedAt, &sub.AdminNotes); err != nil {
			return nil, err
		}
		list = append(list, &sub)
	}
	return list, rows.Err()
}
