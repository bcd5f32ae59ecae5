package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	TaskStatusActive    = "active"
	TaskStatusCompleted = "completed"
	TaskStatusCancelled = "cancelled"
)

type Task struct {
	ID             uuid.UUID `json:"id"`
	ClientID       uuid.UUID `json:"client_id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Category       string    `json:"category"`
	PriceCents     int64     `json:"price_cents"`
	EstimatedTime  string    `json:"estimated_time,omitempty"`
	SpotsAvailable int       `json:"spots_available"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
}
