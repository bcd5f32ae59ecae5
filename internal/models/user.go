package models

import (
	"time"

	"github.com/google/uuid"
)

// SystemPlatformAccountID is the well-known counterparty account for platform
// money movement (earnings are paid out of it, withdrawals and commission flow
// into it). Seeded by migrations.
var SystemPlatformAccountID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

// Role is the closed set of user roles. The marketplace has exactly three.
type Role string

const (
	RoleClient Role = "client"
	RoleWorker Role = "worker"
	RoleAdmin  Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleClient, RoleWorker, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	BalanceCents int64     `json:"balance_cents"`
	Skills       []string  `json:"skills,omitempty"`
	Company      string    `json:"company,omitempty"`
	IsActive     bool      `json:"is_active"`
	IsSystem     bool      `json:"is_system"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
