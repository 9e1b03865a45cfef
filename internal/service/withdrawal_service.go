package service

import (
	"context"
	"errors"
	"regexp"

	"github.com/google/uuid"

	"github.com/ignatzorin/escrow-backend/internal/models"
	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
	"github.com/ignatzorin/escrow-backend/internal/repository"
)

// Минимальная сумма вывода средств.
const minWithdrawalAmount = 100.0

var cardLast4Regexp = regexp.MustCompile(`^\d{4}$`)

// WithdrawalsRepository описывает взаимодействие сервиса с хранилищем выводов.
type WithdrawalsRepository interface {
	Create(ctx context.Context, userID uuid.UUID, amount float64, cardLast4, bankName string) (*models.Withdrawal, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Withdrawal, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Withdrawal, error)
}

// WithdrawalService содержит бизнес-логику вывода средств.
type WithdrawalService struct {
	repo WithdrawalsRepository
}

// NewWithdrawalService создаёт новый сервис выводов.
func NewWithdrawalService(repo WithdrawalsRepository) *WithdrawalService {
	return &WithdrawalService{repo: repo}
}

// CreateWithdrawal создаёт заявку на вывод и списывает сумму с баланса.
func (s *WithdrawalService) CreateWithdrawal(ctx context.Context, userID uuid.UUID, amount float64, cardLast4, bankName string) (*models.Withdrawal, error) {
	if amount < minWithdrawalAmount {
		return nil, apperror.New(apperror.ErrCodeValidation, "минимальная сумма вывода 100")
	}
	if !cardLast4Regexp.MatchString(cardLast4) {
		return nil, apperror.New(apperror.ErrCodeValidation, "укажите последние 4 цифры карты")
	}
	if bankName == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "укажите название банка")
	}

	withdrawal, err := s.repo.Create(ctx, userID, amount, cardLast4, bankName)
	if err != nil {
		if errors.Is(err, repository.ErrInsufficientFunds) {
			return nil, apperror.New(apperror.ErrCodeInsufficientFunds, "недостаточно средств для вывода")
		}
		return nil, err
	}

	return withdrawal, nil
}

// GetWithdrawal возвращает заявку пользователя.
func (s *WithdrawalService) GetWithdrawal(ctx context.Context, userID, id uuid.UUID) (*models.Withdrawal, error) {
	withdrawal, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrWithdrawalNotFound) {
			return nil, apperror.New(apperror.ErrCodeNotFound, "заявка не найдена")
		}
		return nil, err
	}
	if withdrawal.UserID != userID {
		return nil, apperror.ErrForbidden
	}
	return withdrawal, nil
}

// ListWithdrawals возвращает заявки пользователя.
func (s *WithdrawalService) ListWithdrawals(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Withdrawal, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListByUser(ctx, userID, limit, offset)
}
