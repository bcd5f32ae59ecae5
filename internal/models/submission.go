package models

import (
	"time"

	"github.com/google/uuid"
)

// A submission leaves pending at most once; review is final.
const (
	SubmissionStatusPending  = "pending"
	SubmissionStatusApproved = "approved"
	SubmissionStatusRejected = "rejected"
)

type Submission struct {
	ID           uuid.UUID  `json:"id"`
	TaskID       uuid.UUID  `json:"task_id"`
	WorkerID     uuid.UUID  `json:"worker_id"`
	ProofText    string     `json:"proof_text,omitempty"`
	ProofFileURL string     `json:"proof_file_url,omitempty"`
	Status       string     `json:"status"`
	SubmittedAt  time.Time  `json:"submitted_at"`
	ReviewedAt   *time.Time `json:"reviewed_at,omitempty"`
	AdminNotes   *string    `json:"admin_notes,omitempty"`
}
