package tasks

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/pixeltask/backend/internal/ledger"
	"github.com/pixeltask/backend/internal/models"
)

var (
	// ErrBelowMinPrice means the task price is under the platform minimum.
	ErrBelowMinPrice = errors.New("task price below platform minimum")
	// ErrNoSpots means every spot on the task is taken.
	ErrNoSpots = errors.New("no spots left on task")
	// ErrTaskNotOpen means the task is not accepting submissions.
	ErrTaskNotOpen = errors.New("task is not accepting submissions")
	// ErrAlreadySubmitted means the worker already has a submission for the task.
	ErrAlreadySubmitted = errors.New("worker already submitted for this task")
	// ErrAlreadyReviewed means the submission left pending; review is final.
	ErrAlreadyReviewed = errors.New("submission already reviewed")
	// ErrNotFound means the task or submission does not exist.
	ErrNotFound = errors.New("not found")
)

// Store persists tasks and submissions. DecrementSpots and InsertSubmission
// carry the concurrency guards; the service sequences them inside one
// transaction.
type Store interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	InsertTask(ctx context.Context, t *models.Task) error
	GetTask(ctx context.Context, id uuid.UUID) (*models.Task, error)
	ListTasks(ctx context.Context, status, category string) ([]*models.Task, error)
	ListTasksByClient(ctx context.Context, clientID uuid.UUID) ([]*models.Task, error)
	// DecrementSpots takes one spot if any remain, returning the count left.
	// ErrNoSpots when none remain.
	DecrementSpots(ctx context.Context, tx pgx.Tx, taskID uuid.UUID) (remaining int, err error)
	SetTaskStatus(ctx context.Context, tx pgx.Tx, taskID uuid.UUID, status string) error
	// InsertSubmission fails with ErrAlreadySubmitted on a second submission
	// by the same worker for the same task.
	InsertSubmission(ctx context.Context, tx pgx.Tx, sub *models.Submission) error
	GetSubmissionForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Submission, error)
	UpdateSubmission(ctx context.Context, tx pgx.Tx, sub *models.Submission) error
	ListSubmissionsByWorker(ctx context.Context, workerID uuid.UUID) ([]*models.Submission, error)
	ListSubmissionsByStatus(ctx context.Context, status string) ([]*models.Submission, error)
}

// SettingsSource supplies the current platform settings.
type SettingsSource interface {
	Get(ctx context.Context) (*models.PlatformSettings, error)
}

type CreateTaskParams struct {
	Title          string
	Description    string
	Category       string
	PriceCents     int64
	EstimatedTime  string
	SpotsAvailable int
}

type Service interface {
	CreateTask(ctx context.Context, clientID uuid.UUID, params CreateTaskParams) (*models.Task, error)
	GetTask(ctx context.Context, id uuid.UUID) (*models.Task, error)
	ListTasks(ctx context.Context, status, category string) ([]*models.Task, error)
	ListTasksByClient(ctx context.Context, clientID uuid.UUID) ([]*models.Task, error)
	SubmitProof(ctx context.Context, taskID, workerID uuid.UUID, proofText, proofFileURL string) (*models.Submission, error)
	// Review approves or rejects a pending submission. Approval settles the
	// worker's earning in the same transaction.
	Review(ctx context.Context, submissionID uuid.UUID, approve bool, notes *string) (*models.Submission, error)
	ListSubmissionsByWorker(ctx context.Context, workerID uuid.UUID) ([]*models.Submission, error)
	ListSubmissionsByStatus(ctx context.Context, status string) ([]*models.Submission, error)
}

type service struct {
	store    Store
	ledger   ledger.Service
	settings SettingsSource
}

func NewService(store Store, ledgerSvc ledger.Service, settings SettingsSource) Service {
	return &service{store: store, ledger: ledgerSvc, settings: settings}
}

var _ Service = (*service)(nil)

func (s *service) CreateTask(ctx context.Context, clientID uuid.UUID, params CreateTaskParams) (*models.Task, error) {
	cfg, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	if params.PriceCents < cfg.MinTaskPriceCents {
		return nil, ErrBelowMinPrice
	}
	spots := params.SpotsAvailable
	if spots <= 0 {
		spots = 1
	}
	t := &models.Task{
		ID:             uuid.New(),
		ClientID:       clientID,
		Title:          params.Title,
		Description:    params.Description,
		Category:       params.Category,
		PriceCents:     params.PriceCents,
		EstimatedTime:  params.EstimatedTime,
		SpotsAvailable: spots,
		Status:         models.TaskStatusActive,
	}
	if err := s.store.InsertTask(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *service) GetTask(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	return s.store.GetTask(ctx, id)
}

func (s *service) ListTasks(ctx context.Context, status, category string) ([]*models.Task, error) {
	return s.store.ListTasks(ctx, status, category)
}

func (s *service) ListTasksByClient(ctx context.Context, clientID uuid.UUID) ([]*models.Task, error) {
	return s.store.ListTasksByClient(ctx, clientID)
}

// SubmitProof records the proof and claims a spot in one transaction. The
// submission insert runs first so a duplicate by the same worker fails before
// a spot is consumed; the conditional spot decrement is the race guard for two
// workers grabbing the last spot, which resolve to one submission and one
// ErrNoSpots.
func (s *service) SubmitProof(ctx context.Context, taskID, workerID uuid.UUID, proofText, proofFileURL string) (*models.Submission, error) {
	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.Status != models.TaskStatusActive {
		return nil, ErrTaskNotOpen
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	sub := &models.Submission{
		ID:           uuid.New(),
		TaskID:       taskID,
		WorkerID:     workerID,
		ProofText:    proofText,
		ProofFileURL: proofFileURL,
		Status:       models.SubmissionStatusPending,
	}
	if err := s.store.InsertSubmission(ctx, tx, sub); err != nil {
		return nil, err
	}
	remaining, err := s.store.DecrementSpots(ctx, tx, taskID)
	if err != nil {
		return nil, err
	}
	if remaining == 0 {
		if err := s.store.SetTaskStatus(ctx, tx, taskID, models.TaskStatusCompleted); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return sub, nil
}

// Review locks the submission row before checking its status, so concurrent
// approvals of the same submission settle at most once. Approval and the
// ledger movement share the transaction: if the credit fails nothing about
// the submission changes.
func (s *service) Review(ctx context.Context, submissionID uuid.UUID, approve bool, notes *string) (*models.Submission, error) {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	sub, err := s.store.GetSubmissionForUpdate(ctx, tx, submissionID)
	if err != nil {
		return nil, err
	}
	if sub.Status != models.SubmissionStatusPending {
		return nil, ErrAlreadyReviewed
	}

	now := time.Now()
	sub.ReviewedAt = &now
	sub.AdminNotes = notes

	if approve {
		task, err := s.store.GetTask(ctx, sub.TaskID)
		if err != nil {
			return nil, err
		}
		cfg, err := s.settings.Get(ctx)
		if err != nil {
			return nil, err
		}
		sub.Status = models.SubmissionStatusApproved
		if _, err := s.ledger.SettleApprovedSubmission(ctx, tx, sub, task, cfg); err != nil {
			return nil, err
		}
	} else {
		sub.Status = models.SubmissionStatusRejected
	}

	if err := s.store.UpdateSubmission(ctx, tx, sub); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return sub, nil
}

func (s *service) ListSubmissionsByWorker(ctx context.Context, workerID uuid.UUID) ([]*models.Submission, error) {
	return s.store.ListSubmissionsByWorker(ctx, workerID)
}

func (s *service) ListSubmissionsByStatus(ctx context.Context, status string) ([]*models.Submission, error) {
	return s.store.ListSubmissionsByStatus(ctx, status)
}
