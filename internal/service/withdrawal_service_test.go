package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/ignatzorin/escrow-backend/internal/models"
	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
	"github.com/ignatzorin/escrow-backend/internal/repository"
)

type mockWithdrawalsRepo struct {
	mock.Mock
}

func (m *mockWithdrawalsRepo) Create(ctx context.Context, userID uuid.UUID, amount float64, cardLast4, bankName string) (*models.Withdrawal, error) {
	args := m.Called(ctx, userID, amount, cardLast4, bankName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Withdrawal), args.Error(1)
}

func (m *mockWithdrawalsRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Withdrawal, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Withdrawal), args.Error(1)
}

func (m *mockWithdrawalsRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Withdrawal, error) {
	args := m.Called(ctx, userID, limit, offset)
	return args.Get(0).([]models.Withdrawal), args.Error(1)
}

func TestWithdrawalService_Create_Success(t *testing.T) {
	repo := new(mockWithdrawalsRepo)
	svc := NewWithdrawalService(repo)
	ctx := context.Background()
	userID := uuid.New()

	expected := &models.Withdrawal{ID: uuid.New(), UserID: userID, Amount: 500, Status: models.WithdrawalStatusPending}
	repo.On("Create", ctx, userID, float64(500), "1234", "Т-Банк").Return(expected, nil)

	withdrawal, err := svc.CreateWithdrawal(ctx, userID, 500, "1234", "Т-Банк")
	assert.NoError(t, err)
	assert.Equal(t, expected, withdrawal)
}

func TestWithdrawalService_Create_BelowMinimum(t *testing.T) {
	svc := NewWithdrawalService(new(mockWithdrawalsRepo))

	_, err := svc.CreateWithdrawal(context.Background(), uuid.New(), 50, "1234", "Т-Банк")
	assert.True(t, apperror.IsValidation(err))
}

func TestWithdrawalService_Create_InvalidCard(t *testing.T) {
	svc := NewWithdrawalService(new(mockWithdrawalsRepo))

	_, err := svc.CreateWithdrawal(context.Background(), uuid.New(), 500, "12", "Т-Банк")
	assert.True(t, apperror.IsValidation(err))

	_, err = svc.CreateWithdrawal(context.Background(), uuid.New(), 500, "abcd", "Т-Банк")
	assert.True(t, apperror.IsValidation(err))
}

func TestWithdrawalService_Create_InsufficientFunds(t *testing.T) {
	repo := new(mockWithdrawalsRepo)
	svc := NewWithdrawalService(repo)
	ctx := context.Background()
	userID := uuid.New()

	repo.On("Create", ctx, userID, float64(500), "1234", "Т-Банк").
		Return(nil, repository.ErrInsufficientFunds)

	_, err := svc.CreateWithdrawal(ctx, userID, 500, "1234", "Т-Банк")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "недостаточно средств")
}

func TestWithdrawalService_Get_OwnerOnly(t *testing.T) {
	repo := new(mockWithdrawalsRepo)
	svc := NewWithdrawalService(repo)
	ctx := context.Background()

	ownerID := uuid.New()
	withdrawalID := uuid.New()
	withdrawal := &models.Withdrawal{ID: withdrawalID, UserID: ownerID}

	repo.On("GetByID", ctx, withdrawalID).Return(withdrawal, nil)

	result, err := svc.GetWithdrawal(ctx, ownerID, withdrawalID)
	assert.NoError(t, err)
	assert.Equal(t, withdrawalID, result.ID)

	_, err = svc.GetWithdrawal(ctx, uuid.New(), withdrawalID)
	assert.True(t, apperror.IsForbidden(err))
}

func TestWithdrawalService_Get_NotFound(t *testing.T) {
	repo := new(mockWithdrawalsRepo)
	svc := NewWithdrawalService(repo)
	ctx := context.Background()
	withdrawalID := uuid.New()

	repo.On("GetByID", ctx, withdrawalID).Return(nil, repository.ErrWithdrawalNotFound)

	_, err := svc.GetWithdrawal(ctx, uuid.New(), withdrawalID)
	assert.True(t, apperror.IsNotFound(err))
}
