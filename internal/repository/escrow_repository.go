package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/escrow-backend/internal/domain/valueobject"
	"github.com/ignatzorin/escrow-backend/internal/models"
)

// Ошибки escrow.
var (
	ErrEscrowNotFound      = errors.New("escrow not found")
	ErrEscrowAlreadyExists = errors.New("locked escrow already exists for project")
	ErrEscrowNotLocked     = errors.New("escrow is not locked")
)

// EscrowRepository отвечает за escrow-записи и связанные движения средств.
type EscrowRepository struct {
	db *sqlx.DB
}

func NewEscrowRepository(db *sqlx.DB) *EscrowRepository {
	return &EscrowRepository{db: db}
}

// CreateEscrowParams описывает параметры создания escrow.
// ProposalID служит ключом идемпотентности: повтор вызова с тем же предложением
// возвращает уже созданный escrow без повторной блокировки средств.
type CreateEscrowParams struct {
	ProjectID    uuid.UUID
	ProposalID   uuid.UUID
	ClientID     uuid.UUID
	FreelancerID uuid.UUID
	Amount       float64
	Currency     string
}

// CreateAndLock атомарно замораживает средства клиента и создаёт escrow.
// Либо появляются и заморозка, и escrow-запись, либо ни то ни другое.
func (r *EscrowRepository) CreateAndLock(ctx context.Context, params CreateEscrowParams) (*models.Escrow, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// Идемпотентность: escrow по этому предложению уже создан
	var existing models.Escrow
	err = tx.GetContext(ctx, &existing,
		`SELECT * FROM escrow WHERE proposal_id = $1`, params.ProposalID)
	if err == nil {
		return &existing, tx.Commit()
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("escrow repository: check idempotency %w", err)
	}

	// Не более одного незавершённого escrow на проект
	var lockedCount int
	err = tx.GetContext(ctx, &lockedCount,
		`SELECT COUNT(*) FROM escrow WHERE project_id = $1 AND status = 'locked'`, params.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("escrow repository: check existing %w", err)
	}
	if lockedCount > 0 {
		return nil, ErrEscrowAlreadyExists
	}

	// Замораживаем средства клиента
	if err := lockFundsTx(ctx, tx, params.ClientID, params.Amount); err != nil {
		return nil, err
	}

	// Создаём escrow
	var escrow models.Escrow
	err = tx.GetContext(ctx, &escrow, `
		INSERT INTO escrow (project_id, proposal_id, client_id, freelancer_id, amount, currency, status)
		VALUES ($1, $2, $3, $4, $5, $6, 'locked')
		RETURNING id, project_id, proposal_id, client_id, freelancer_id, amount, currency, status, created_at, closed_at
	`, params.ProjectID, params.ProposalID, params.ClientID, params.FreelancerID, params.Amount, params.Currency)
	if err != nil {
		return nil, fmt.Errorf("escrow repository: create %w", err)
	}

	// Журналируем заморозку
	_, err = insertTransactionTx(ctx, tx, params.ClientID, &params.ProjectID,
		models.TransactionTypeEscrowLock, params.Amount, "Заморозка средств по проекту")
	if err != nil {
		return nil, fmt.Errorf("escrow repository: lock transaction %w", err)
	}

	return &escrow, tx.Commit()
}

// Release переводит escrow в released и выплачивает фрилансеру сумму за
// вычетом комиссии. Повторный вызов на терминальном escrow возвращает
// ErrEscrowNotLocked означает, что двойная выплата невозможна.
func (r *EscrowRepository) Release(ctx context.Context, escrowID uuid.UUID, fee float64) (*models.Escrow, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	escrow, err := escrowForUpdateTx(ctx, tx, escrowID)
	if err != nil {
		return nil, err
	}
	if escrow.Status != valueobject.EscrowStatusLocked {
		return nil, ErrEscrowNotLocked
	}
	if fee < 0 || fee >= escrow.Amount {
		return nil, fmt.Errorf("escrow repository: некорректная комиссия %.2f", fee)
	}

	payout := escrow.Amount - fee

	if err := unlockAndCreditTx(ctx, tx, escrow.ClientID, escrow.FreelancerID, escrow.Amount, payout); err != nil {
		return nil, fmt.Errorf("escrow repository: release funds %w", err)
	}

	now := time.Now()
	if err := closeEscrowTx(ctx, tx, escrow, valueobject.EscrowStatusReleased, now); err != nil {
		return nil, err
	}

	// Журналируем выплату и комиссию
	_, err = insertTransactionTx(ctx, tx, escrow.FreelancerID, &escrow.ProjectID,
		models.TransactionTypeEscrowRelease, payout, "Получение оплаты по проекту")
	if err != nil {
		return nil, fmt.Errorf("escrow repository: release transaction %w", err)
	}
	if fee > 0 {
		_, err = insertTransactionTx(ctx, tx, escrow.FreelancerID, &escrow.ProjectID,
			models.TransactionTypePlatformFee, fee, "Комиссия платформы")
		if err != nil {
			return nil, fmt.Errorf("escrow repository: fee transaction %w", err)
		}
	}

	return escrow, tx.Commit()
}

// Refund переводит escrow в refunded и возвращает средства клиенту.
// Повторный вызов на терминальном escrow возвращает ErrEscrowNotLocked.
func (r *EscrowRepository) Refund(ctx context.Context, escrowID uuid.UUID) (*models.Escrow, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	escrow, err := escrowForUpdateTx(ctx, tx, escrowID)
	if err != nil {
		return nil, err
	}
	if escrow.Status != valueobject.EscrowStatusLocked {
		return nil, ErrEscrowNotLocked
	}

	if err := refundLockedTx(ctx, tx, escrow.ClientID, escrow.Amount); err != nil {
		return nil, fmt.Errorf("escrow repository: refund funds %w", err)
	}

	now := time.Now()
	if err := closeEscrowTx(ctx, tx, escrow, valueobject.EscrowStatusRefunded, now); err != nil {
		return nil, err
	}

	_, err = insertTransactionTx(ctx, tx, escrow.ClientID, &escrow.ProjectID,
		models.TransactionTypeEscrowRefund, escrow.Amount, "Возврат средств по отменённому проекту")
	if err != nil {
		return nil, fmt.Errorf("escrow repository: refund transaction %w", err)
	}

	return escrow, tx.Commit()
}

// RefundAndCancel отменяет проект и возвращает замороженные средства клиенту
// одной транзакцией. Для проекта без escrow просто меняет статус.
// Возвращает escrow после возврата или nil, если escrow не было.
func (r *EscrowRepository) RefundAndCancel(ctx context.Context, projectID uuid.UUID) (*models.Escrow, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	project, err := projectForUpdateTx(ctx, tx, projectID)
	if err != nil {
		return nil, err
	}
	if project.Status.IsTerminal() {
		return nil, ErrProjectStatusConflict
	}

	var escrow models.Escrow
	haveEscrow := true
	err = tx.GetContext(ctx, &escrow,
		`SELECT * FROM escrow WHERE project_id = $1 AND status = 'locked' FOR UPDATE`, projectID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("escrow repository: get locked for cancel %w", err)
		}
		haveEscrow = false
	}

	if haveEscrow {
		if err := refundLockedTx(ctx, tx, escrow.ClientID, escrow.Amount); err != nil {
			return nil, fmt.Errorf("escrow repository: cancel refund %w", err)
		}
		if err := closeEscrowTx(ctx, tx, &escrow, valueobject.EscrowStatusRefunded, time.Now()); err != nil {
			return nil, err
		}
		_, err = insertTransactionTx(ctx, tx, escrow.ClientID, &escrow.ProjectID,
			models.TransactionTypeEscrowRefund, escrow.Amount, "Возврат средств по отменённому проекту")
		if err != nil {
			return nil, fmt.Errorf("escrow repository: cancel refund transaction %w", err)
		}
	}

	if err := transitionProjectStatusTx(ctx, tx, projectID, project.Status, valueobject.ProjectStatusCancelled); err != nil {
		return nil, err
	}

	if !haveEscrow {
		return nil, tx.Commit()
	}
	return &escrow, tx.Commit()
}

// GetByID возвращает escrow по идентификатору.
func (r *EscrowRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Escrow, error) {
	var escrow models.Escrow
	if err := r.db.GetContext(ctx, &escrow, `SELECT * FROM escrow WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEscrowNotFound
		}
		return nil, fmt.Errorf("escrow repository: get by id %w", err)
	}
	return &escrow, nil
}

// GetByProjectID возвращает последний escrow проекта.
func (r *EscrowRepository) GetByProjectID(ctx context.Context, projectID uuid.UUID) (*models.Escrow, error) {
	var escrow models.Escrow
	err := r.db.GetContext(ctx, &escrow,
		`SELECT * FROM escrow WHERE project_id = $1 ORDER BY created_at DESC LIMIT 1`, projectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEscrowNotFound
		}
		return nil, fmt.Errorf("escrow repository: get by project id %w", err)
	}
	return &escrow, nil
}

// escrowForUpdateTx читает escrow с блокировкой строки.
func escrowForUpdateTx(ctx context.Context, tx *sqlx.Tx, escrowID uuid.UUID) (*models.Escrow, error) {
	var escrow models.Escrow
	err := tx.GetContext(ctx, &escrow, `SELECT * FROM escrow WHERE id = $1 FOR UPDATE`, escrowID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEscrowNotFound
		}
		return nil, err
	}
	return &escrow, nil
}

// closeEscrowTx фиксирует терминальный статус escrow.
func closeEscrowTx(ctx context.Context, tx *sqlx.Tx, escrow *models.Escrow, status valueobject.EscrowStatus, closedAt time.Time) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE escrow SET status = $2, closed_at = $3 WHERE id = $1`, escrow.ID, status, closedAt)
	if err != nil {
		return fmt.Errorf("escrow repository: close %w", err)
	}
	escrow.Status = status
	escrow.ClosedAt = &closedAt
	return nil
}
