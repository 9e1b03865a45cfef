package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/escrow-backend/internal/domain/valueobject"
)

// Типы транзакций
const (
	TransactionTypeDeposit       = "deposit"
	TransactionTypeWithdrawal    = "withdrawal"
	TransactionTypeEscrowLock    = "escrow_lock"
	TransactionTypeEscrowRelease = "escrow_release"
	TransactionTypeEscrowRefund  = "escrow_refund"
	TransactionTypePlatformFee   = "platform_fee"
)

// Статусы транзакций
const (
	TransactionStatusPending   = "pending"
	TransactionStatusCompleted = "completed"
	TransactionStatusFailed    = "failed"
)

// Wallet представляет кошелёк пользователя.
// Инвариант: available >= 0 после любой операции.
type Wallet struct {
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	Available float64   `db:"available" json:"available"`
	Locked    float64   `db:"locked" json:"locked"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Transaction представляет запись в журнале движения средств.
type Transaction struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	UserID      uuid.UUID  `db:"user_id" json:"user_id"`
	ProjectID   *uuid.UUID `db:"project_id" json:"project_id,omitempty"`
	Type        string     `db:"type" json:"type"`
	Amount      float64    `db:"amount" json:"amount"`
	Status      string     `db:"status" json:"status"`
	Description *string    `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`
}

// Escrow представляет средства, заблокированные под конкретный проект.
// Сумма неизменна после создания; терминальный escrow не меняет статус.
type Escrow struct {
	ID           uuid.UUID                `db:"id" json:"id"`
	ProjectID    uuid.UUID                `db:"project_id" json:"project_id"`
	ProposalID   uuid.UUID                `db:"proposal_id" json:"proposal_id"`
	ClientID     uuid.UUID                `db:"client_id" json:"client_id"`
	FreelancerID uuid.UUID                `db:"freelancer_id" json:"freelancer_id"`
	Amount       float64                  `db:"amount" json:"amount"`
	Currency     string                   `db:"currency" json:"currency"`
	Status       valueobject.EscrowStatus `db:"status" json:"status"`
	CreatedAt    time.Time                `db:"created_at" json:"created_at"`
	ClosedAt     *time.Time               `db:"closed_at" json:"closed_at,omitempty"`
}
