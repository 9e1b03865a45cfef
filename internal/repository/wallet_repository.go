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

// Ошибки кошелька.
var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrWalletNotFound    = errors.New("wallet not found")
)

// WalletRepository отвечает за балансы пользователей и журнал транзакций.
// Все изменения баланса сериализуются по аккаунту через SELECT ... FOR UPDATE
// и выполняются атомарными инкрементами внутри транзакции.
type WalletRepository struct {
	db *sqlx.DB
}

func NewWalletRepository(db *sqlx.DB) *WalletRepository {
	return &WalletRepository{db: db}
}

// GetWallet возвращает кошелёк пользователя, создаёт если не существует.
func (r *WalletRepository) GetWallet(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	var wallet models.Wallet
	query := `
		INSERT INTO wallets (user_id, available, locked)
		VALUES ($1, 0, 0)
		ON CONFLICT (user_id) DO UPDATE SET updated_at = NOW()
		RETURNING user_id, available, locked, updated_at
	`
	if err := r.db.GetContext(ctx, &wallet, query, userID); err != nil {
		return nil, fmt.Errorf("wallet repository: get wallet %w", err)
	}
	return &wallet, nil
}

// Deposit пополняет доступный баланс пользователя.
func (r *WalletRepository) Deposit(ctx context.Context, userID uuid.UUID, amount float64, description string) (*models.Transaction, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := creditTx(ctx, tx, userID, amount); err != nil {
		return nil, fmt.Errorf("wallet repository: deposit %w", err)
	}

	transaction, err := insertTransactionTx(ctx, tx, userID, nil, models.TransactionTypeDeposit, amount, description)
	if err != nil {
		return nil, fmt.Errorf("wallet repository: deposit transaction %w", err)
	}

	return transaction, tx.Commit()
}

// Debit списывает сумму с доступного баланса. Атомарно: при нехватке средств
// баланс не меняется и возвращается ErrInsufficientFunds.
func (r *WalletRepository) Debit(ctx context.Context, userID uuid.UUID, amount float64, txType, description string) (*models.Transaction, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := debitTx(ctx, tx, userID, amount); err != nil {
		return nil, err
	}

	transaction, err := insertTransactionTx(ctx, tx, userID, nil, txType, amount, description)
	if err != nil {
		return nil, fmt.Errorf("wallet repository: debit transaction %w", err)
	}

	return transaction, tx.Commit()
}

// ListTransactions возвращает историю транзакций пользователя.
func (r *WalletRepository) ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Transaction, error) {
	var transactions []models.Transaction
	err := r.db.SelectContext(ctx, &transactions, `
		SELECT id, user_id, project_id, type, amount, status, description, created_at, completed_at
		FROM transactions WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	return transactions, err
}

// walletForUpdateTx читает кошелёк с блокировкой строки.
func walletForUpdateTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID) (*models.Wallet, error) {
	var wallet models.Wallet
	err := tx.GetContext(ctx, &wallet,
		`SELECT user_id, available, locked, updated_at FROM wallets WHERE user_id = $1 FOR UPDATE`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrWalletNotFound
		}
		return nil, err
	}
	return &wallet, nil
}

// creditTx увеличивает доступный баланс, создавая кошелёк при необходимости.
func creditTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, amount float64) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO wallets (user_id, available, locked)
		VALUES ($1, $2, 0)
		ON CONFLICT (user_id) DO UPDATE SET available = wallets.available + $2, updated_at = NOW()
	`, userID, amount)
	return err
}

// debitTx списывает сумму с доступного баланса под блокировкой строки.
func debitTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, amount float64) error {
	wallet, err := walletForUpdateTx(ctx, tx, userID)
	if err != nil {
		if errors.Is(err, ErrWalletNotFound) {
			return ErrInsufficientFunds
		}
		return err
	}
	if wallet.Available < amount {
		return ErrInsufficientFunds
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE wallets SET available = available - $2, updated_at = NOW()
		WHERE user_id = $1
	`, userID, amount)
	return err
}

// lockFundsTx переносит сумму из available в locked под блокировкой строки.
func lockFundsTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, amount float64) error {
	wallet, err := walletForUpdateTx(ctx, tx, userID)
	if err != nil {
		if errors.Is(err, ErrWalletNotFound) {
			return ErrInsufficientFunds
		}
		return err
	}
	if wallet.Available < amount {
		return ErrInsufficientFunds
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE wallets SET available = available - $2, locked = locked + $2, updated_at = NOW()
		WHERE user_id = $1
	`, userID, amount)
	return err
}

// unlockAndCreditTx снимает заморозку у плательщика и начисляет получателю payout.
func unlockAndCreditTx(ctx context.Context, tx *sqlx.Tx, fromID, toID uuid.UUID, amount, payout float64) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE wallets SET locked = locked - $2, updated_at = NOW()
		WHERE user_id = $1
	`, fromID, amount)
	if err != nil {
		return err
	}

	return creditTx(ctx, tx, toID, payout)
}

// refundLockedTx возвращает замороженную сумму в доступный баланс плательщика.
func refundLockedTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, amount float64) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE wallets SET available = available + $2, locked = locked - $2, updated_at = NOW()
		WHERE user_id = $1
	`, userID, amount)
	return err
}

// insertTransactionTx добавляет запись в журнал движения средств.
func insertTransactionTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, projectID *uuid.UUID, txType string, amount float64, description string) (*models.Transaction, error) {
	var transaction models.Transaction
	err := tx.GetContext(ctx, &transaction, `
		INSERT INTO transactions (user_id, project_id, type, amount, status, description, completed_at)
		VALUES ($1, $2, $3, $4, 'completed', $5, NOW())
		RETURNING id, user_id, project_id, type, amount, status, description, created_at, completed_at
	`, userID, projectID, txType, amount, description)
	if err != nil {
		return nil, err
	}
	return &transaction, nil
}
