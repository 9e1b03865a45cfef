package dto

import (
	"time"

	"github.com/ignatzorin/escrow-backend/internal/models"
	"github.com/ignatzorin/escrow-backend/internal/service"
)

// ErrorResponse задаёт стандартный формат ошибки.
type ErrorResponse struct {
	Error string `json:"error"`
}

// SuccessResponse задаёт стандартный формат успешного ответа с сообщением.
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// AuthResponse возвращается на регистрацию, вход и обновление токенов.
type AuthResponse struct {
	User         *models.User  `json:"user"`
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	ExpiresIn    time.Duration `json:"expires_in"`
}

// NewAuthResponse собирает ответ из результата сервиса аутентификации.
func NewAuthResponse(result *service.AuthResult) *AuthResponse {
	return &AuthResponse{
		User:         result.User,
		AccessToken:  result.TokenPair.AccessToken,
		RefreshToken: result.TokenPair.RefreshToken,
		ExpiresIn:    result.TokenPair.ExpiresIn,
	}
}

// WalletResponse содержит баланс с историей последних транзакций.
type WalletResponse struct {
	Wallet       *models.Wallet       `json:"wallet"`
	Transactions []models.Transaction `json:"transactions,omitempty"`
}

// ProjectEscrowResponse содержит проект вместе с его escrow.
type ProjectEscrowResponse struct {
	Project *models.Project `json:"project"`
	Escrow  *models.Escrow  `json:"escrow,omitempty"`
}
