package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	DisputeStatusOpen          = "open"
	DisputeStatusInvestigating = "investigating"
	DisputeStatusResolved      = "resolved"
	DisputeStatusClosed        = "closed"
)

type Dispute struct {
	ID            uuid.UUID  `json:"id"`
	TransactionID uuid.UUID  `json:"transaction_id"`
	ReporterID    uuid.UUID  `json:"reporter_id"`
	Reason        string     `json:"reason"`
	Description   string     `json:"description,omitempty"`
	Status        string     `json:"status"`
	Resolution    *string    `json:"resolution,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	ResolvedAt    *time.Time `json:"resolved_at,omitempty"`
}
