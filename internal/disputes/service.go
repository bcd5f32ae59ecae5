package disputes

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/pixeltask/backend/internal/ledger"
	"github.com/pixeltask/backend/internal/models"
)

var (
	// ErrDisputeClosed means the dispute already left the open state.
	ErrDisputeClosed = errors.New("dispute already resolved or closed")
	// ErrNotFound means no dispute exists for the given id.
	ErrNotFound = errors.New("dispute not found")
	// ErrBadResolution means the resolution status is not resolved or closed.
	ErrBadResolution = errors.New("resolution must be resolved or closed")
)

// Store persists dispute rows.
type Store interface {
	Insert(ctx context.Context, d *models.Dispute) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error)
	Update(ctx context.Context, d *models.Dispute) error
	ListByStatus(ctx context.Context, status string) ([]*models.Dispute, error)
}

// Reverser is the slice of the ledger a resolved dispute needs.
type Reverser interface {
	ReverseTransaction(ctx context.Context, transactionID uuid.UUID, reason string) (*models.Transaction, error)
}

type Service interface {
	Open(ctx context.Context, transactionID, reporterID uuid.UUID, reason, description string) (*models.Dispute, error)
	// Resolve finishes a dispute. Status resolved reverses the disputed
	// transaction; closed dismisses the dispute without moving money.
	Resolve(ctx context.Context, disputeID uuid.UUID, status string, resolution string) (*models.Dispute, error)
	List(ctx context.Context, status string) ([]*models.Dispute, error)
}

type service struct {
	store  Store
	ledger Reverser
}

func NewService(store Store, reverser Reverser) Service {
	return &service{store: store, ledger: reverser}
}

var _ Service = (*service)(nil)

func (s *service) Open(ctx context.Context, transactionID, reporterID uuid.UUID, reason, description string) (*models.Dispute, error) {
	d := &models.Dispute{
		ID:            uuid.New(),
		TransactionID: transactionID,
		ReporterID:    reporterID,
		Reason:        reason,
		Description:   description,
		Status:        models.DisputeStatusOpen,
	}
	if err := s.store.Insert(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// Resolve reverses the transaction before touching the dispute row, so a
// reversal blocked by the ledger (payee balance too low) leaves the dispute
// open for another attempt. ErrAlreadyReversed counts as done: the refund
// from a previous attempt may have committed even though the dispute update
// after it failed, and the retry must still be able to finish the dispute.
func (s *service) Resolve(ctx context.Context, disputeID uuid.UUID, status string, resolution string) (*models.Dispute, error) {
	if status != models.DisputeStatusResolved && status != models.DisputeStatusClosed {
		return nil, ErrBadResolution
	}

	d, err := s.store.GetByID(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	if d.Status != models.DisputeStatusOpen && d.Status != models.DisputeStatusInvestigating {
		return nil, ErrDisputeClosed
	}

	if status == models.DisputeStatusResolved {
		reason := resolution
		if reason == "" {
			reason = "Refund for disputed transaction: " + d.Reason
		}
		if _, err := s.ledger.ReverseTransaction(ctx, d.TransactionID, reason); err != nil && !errors.Is(err, ledger.ErrAlreadyReversed) {
			return nil, err
		}
	}

	now := time.Now()
	d.Status = status
	d.ResolvedAt = &now
	if resolution != "" {
		d.Resolution = &resolution
	}
	if err := s.store.Update(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *service) List(ctx context.Context, status string) ([]*models.Dispute, error) {
	return s.store.ListByStatus(ctx, status)
}
