package valueobject

import (
	"fmt"
	"math"

	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
)

type Money struct {
	Amount   float64
	Currency string
}

func NewMoney(amount float64, currency string) (Money, error) {
	if amount < 0 {
		return Money{}, apperror.New(apperror.ErrCodeValidation, "сумма не может быть отрицательной")
	}
	if currency == "" {
		currency = "RUB"
	}
	return Money{Amount: amount, Currency: currency}, nil
}

type Budget struct {
	Min Money
	Max Money
}

func NewBudget(min, max float64, currency string) (Budget, error) {
	if min <= 0 || max <= 0 {
		return Budget{}, apperror.New(apperror.ErrCodeValidation, "бюджет должен быть положительным")
	}
	if min > max {
		return Budget{}, apperror.New(apperror.ErrCodeValidation, "минимальный бюджет не может превышать максимальный")
	}

	minMoney, _ := NewMoney(min, currency)
	maxMoney, _ := NewMoney(max, currency)

	return Budget{Min: minMoney, Max: maxMoney}, nil
}

func (b Budget) IsInRange(amount float64) bool {
	return amount >= b.Min.Amount && amount <= b.Max.Amount
}

func (b Budget) String() string {
	return fmt.Sprintf("%s %.2f - %.2f", b.Min.Currency, b.Min.Amount, b.Max.Amount)
}

// FeePolicy определяет комиссию платформы при выплате escrow.
// Процент задаётся конфигурацией: исходная система не фиксирует формулу.
type FeePolicy struct {
	Percent float64
}

func NewFeePolicy(percent float64) (FeePolicy, error) {
	if percent < 0 || percent >= 100 {
		return FeePolicy{}, apperror.New(apperror.ErrCodeValidation, "комиссия должна быть в диапазоне [0, 100)")
	}
	return FeePolicy{Percent: percent}, nil
}

// Fee возвращает размер комиссии с суммы, округлённый до копеек.
func (p FeePolicy) Fee(amount float64) float64 {
	return math.Round(amount*p.Percent) / 100
}

// Payout возвращает сумму к выплате фрилансеру за вычетом комиссии.
func (p FeePolicy) Payout(amount float64) float64 {
	return amount - p.Fee(amount)
}
