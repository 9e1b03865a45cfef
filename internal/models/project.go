package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/escrow-backend/internal/domain/valueobject"
)

// Project описывает проект, размещённый клиентом.
// Инвариант: freelancer_id заполнен тогда и только тогда, когда статус не open.
type Project struct {
	ID           uuid.UUID                 `db:"id" json:"id"`
	ClientID     uuid.UUID                 `db:"client_id" json:"client_id"`
	FreelancerID *uuid.UUID                `db:"freelancer_id" json:"freelancer_id,omitempty"`
	Title        string                    `db:"title" json:"title"`
	Description  string                    `db:"description" json:"description"`
	BudgetMin    float64                   `db:"budget_min" json:"budget_min"`
	BudgetMax    float64                   `db:"budget_max" json:"budget_max"`
	Currency     string                    `db:"currency" json:"currency"`
	Status       valueobject.ProjectStatus `db:"status" json:"status"`
	CreatedAt    time.Time                 `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time                 `db:"updated_at" json:"updated_at"`

	ProposalsCount *int `db:"proposals_count" json:"proposals_count,omitempty"`
}

// Proposal представляет отклик фрилансера на проект.
type Proposal struct {
	ID           uuid.UUID                  `db:"id" json:"id"`
	ProjectID    uuid.UUID                  `db:"project_id" json:"project_id"`
	FreelancerID uuid.UUID                  `db:"freelancer_id" json:"freelancer_id"`
	CoverLetter  string                     `db:"cover_letter" json:"cover_letter"`
	Amount       float64                    `db:"amount" json:"amount"`
	Status       valueobject.ProposalStatus `db:"status" json:"status"`
	CreatedAt    time.Time                  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time                  `db:"updated_at" json:"updated_at"`
}
