package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/escrow-backend/internal/domain/valueobject"
	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
)

// Project собирает валидный новый проект: стартовый статус open,
// бюджет проверен через valueobject.Budget. Дальнейшие смены статуса
// идут через таблицу переходов valueobject.ProjectStatus и guarded
// UPDATE в хранилище.
type Project struct {
	ID          uuid.UUID
	ClientID    uuid.UUID
	Title       string
	Description string
	Budget      valueobject.Budget
	Status      valueobject.ProjectStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func NewProject(clientID uuid.UUID, title, description string, budgetMin, budgetMax float64, currency string) (*Project, error) {
	if title == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "название проекта обязательно")
	}
	if description == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "описание проекта обязательно")
	}

	budget, err := valueobject.NewBudget(budgetMin, budgetMax, currency)
	if err != nil {
		return nil, err
	}

	return &Project{
		ID:          uuid.New(),
		ClientID:    clientID,
		Title:       title,
		Description: description,
		Budget:      budget,
		Status:      valueobject.ProjectStatusOpen,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}, nil
}
