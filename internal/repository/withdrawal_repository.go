package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/escrow-backend/internal/models"
)

// ErrWithdrawalNotFound возвращается, когда заявка на вывод не найдена.
var ErrWithdrawalNotFound = errors.New("withdrawal not found")

// WithdrawalRepository отвечает за заявки на вывод средств.
type WithdrawalRepository struct {
	db *sqlx.DB
}

func NewWithdrawalRepository(db *sqlx.DB) *WithdrawalRepository {
	return &WithdrawalRepository{db: db}
}

// Create атомарно списывает сумму с доступного баланса и создаёт заявку.
func (r *WithdrawalRepository) Create(ctx context.Context, userID uuid.UUID, amount float64, cardLast4, bankName string) (*models.Withdrawal, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := debitTx(ctx, tx, userID, amount); err != nil {
		return nil, err
	}

	var withdrawal models.Withdrawal
	err = tx.GetContext(ctx, &withdrawal, `
		INSERT INTO withdrawals (user_id, amount, status, card_last4, bank_name)
		VALUES ($1, $2, 'pending', $3, $4)
		RETURNING id, user_id, amount, status, card_last4, bank_name, rejection_reason, created_at, processed_at
	`, userID, amount, cardLast4, bankName)
	if err != nil {
		return nil, fmt.Errorf("withdrawal repository: create %w", err)
	}

	_, err = insertTransactionTx(ctx, tx, userID, nil,
		models.TransactionTypeWithdrawal, amount, "Вывод средств")
	if err != nil {
		return nil, fmt.Errorf("withdrawal repository: transaction %w", err)
	}

	return &withdrawal, tx.Commit()
}

// GetByID возвращает заявку по идентификатору.
func (r *WithdrawalRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Withdrawal, error) {
	var withdrawal models.Withdrawal
	if err := r.db.GetContext(ctx, &withdrawal, `SELECT * FROM withdrawals WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrWithdrawalNotFound
		}
		return nil, fmt.Errorf("withdrawal repository: get by id %w", err)
	}
	return &withdrawal, nil
}

// ListByUser возвращает заявки пользователя с пагинацией.
func (r *WithdrawalRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Withdrawal, error) {
	var withdrawals []models.Withdrawal
	err := r.db.SelectContext(ctx, &withdrawals, `
		SELECT * FROM withdrawals WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("withdrawal repository: list by user %w", err)
	}
	return withdrawals, nil
}
