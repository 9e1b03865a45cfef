package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/ignatzorin/escrow-backend/internal/domain/entity"
	"github.com/ignatzorin/escrow-backend/internal/domain/valueobject"
	"github.com/ignatzorin/escrow-backend/internal/logger"
	"github.com/ignatzorin/escrow-backend/internal/models"
	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
	"github.com/ignatzorin/escrow-backend/internal/repository"
	"github.com/ignatzorin/escrow-backend/internal/validation"
)

// ProjectsRepository описывает взаимодействие сервиса с хранилищем проектов.
type ProjectsRepository interface {
	Create(ctx context.Context, project *models.Project) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Project, error)
	ListOpen(ctx context.Context, limit, offset int) ([]models.Project, error)
	ListByParticipant(ctx context.Context, userID uuid.UUID) ([]models.Project, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to valueobject.ProjectStatus) error
	AcceptProposal(ctx context.Context, projectID, proposalID, freelancerID uuid.UUID) error
	CreateProposal(ctx context.Context, proposal *models.Proposal) error
	GetProposalByID(ctx context.Context, id uuid.UUID) (*models.Proposal, error)
	GetProposalByProjectAndFreelancer(ctx context.Context, projectID, freelancerID uuid.UUID) (*models.Proposal, error)
	ListProposals(ctx context.Context, projectID uuid.UUID) ([]models.Proposal, error)
}

// EscrowStore описывает взаимодействие сервисов с хранилищем escrow.
type EscrowStore interface {
	CreateAndLock(ctx context.Context, params repository.CreateEscrowParams) (*models.Escrow, error)
	Release(ctx context.Context, escrowID uuid.UUID, fee float64) (*models.Escrow, error)
	Refund(ctx context.Context, escrowID uuid.UUID) (*models.Escrow, error)
	RefundAndCancel(ctx context.Context, projectID uuid.UUID) (*models.Escrow, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Escrow, error)
	GetByProjectID(ctx context.Context, projectID uuid.UUID) (*models.Escrow, error)
}

// Notifier описывает отправку доменных уведомлений участникам.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, event string, data interface{}) (*models.Notification, error)
}

// ProjectService содержит бизнес-логику проектов и предложений.
type ProjectService struct {
	repo          ProjectsRepository
	escrow        EscrowStore
	notifications Notifier
	currency      string
}

// CreateProjectInput содержит данные нового проекта.
type CreateProjectInput struct {
	Title       string
	Description string
	BudgetMin   float64
	BudgetMax   float64
}

// SubmitProposalInput содержит данные отклика фрилансера.
type SubmitProposalInput struct {
	CoverLetter string
	Amount      float64
}

// NewProjectService создаёт новый сервис проектов.
func NewProjectService(repo ProjectsRepository, escrow EscrowStore, notifications Notifier, currency string) *ProjectService {
	if currency == "" {
		currency = "RUB"
	}
	return &ProjectService{
		repo:          repo,
		escrow:        escrow,
		notifications: notifications,
		currency:      currency,
	}
}

// CreateProject размещает новый проект от имени клиента.
func (s *ProjectService) CreateProject(ctx context.Context, clientID uuid.UUID, role string, in CreateProjectInput) (*models.Project, error) {
	if role != models.RoleClient {
		return nil, apperror.New(apperror.ErrCodeForbidden, "размещать проекты может только клиент")
	}
	if err := validation.ValidateProjectTitle(in.Title); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateProjectDescription(in.Description); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateBudget(in.BudgetMin, in.BudgetMax); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	// Агрегат гарантирует стартовый статус open и валидный бюджет
	proj, err := entity.NewProject(clientID, in.Title, in.Description, in.BudgetMin, in.BudgetMax, s.currency)
	if err != nil {
		return nil, err
	}

	project := &models.Project{
		ID:          proj.ID,
		ClientID:    proj.ClientID,
		Title:       proj.Title,
		Description: proj.Description,
		BudgetMin:   proj.Budget.Min.Amount,
		BudgetMax:   proj.Budget.Max.Amount,
		Currency:    proj.Budget.Min.Currency,
		Status:      proj.Status,
	}

	if err := s.repo.Create(ctx, project); err != nil {
		return nil, err
	}

	if logger.Log != nil {
		logger.Log.WithField("project_id", project.ID).Info("проект создан")
	}

	return project, nil
}

// GetProject возвращает проект по идентификатору.
func (s *ProjectService) GetProject(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	project, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrProjectNotFound) {
			return nil, apperror.ErrProjectNotFound
		}
		return nil, err
	}
	return project, nil
}

// ListOpenProjects возвращает открытые проекты.
func (s *ProjectService) ListOpenProjects(ctx context.Context, limit, offset int) ([]models.Project, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListOpen(ctx, limit, offset)
}

// ListMyProjects возвращает проекты, где пользователь клиент или исполнитель.
func (s *ProjectService) ListMyProjects(ctx context.Context, userID uuid.UUID) ([]models.Project, error) {
	return s.repo.ListByParticipant(ctx, userID)
}

// SubmitProposal сохраняет отклик фрилансера на открытый проект.
func (s *ProjectService) SubmitProposal(ctx context.Context, freelancerID uuid.UUID, role string, projectID uuid.UUID, in SubmitProposalInput) (*models.Proposal, error) {
	if role != models.RoleFreelancer {
		return nil, apperror.New(apperror.ErrCodeForbidden, "откликаться на проекты может только фрилансер")
	}
	if err := validation.ValidateCoverLetter(in.CoverLetter); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if in.Amount <= 0 {
		return nil, apperror.New(apperror.ErrCodeValidation, "сумма предложения должна быть положительной")
	}

	project, err := s.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.Status != valueobject.ProjectStatusOpen {
		return nil, apperror.New(apperror.ErrCodeConflict, "проект не принимает предложения")
	}
	if project.ClientID == freelancerID {
		return nil, apperror.New(apperror.ErrCodeForbidden, "нельзя откликнуться на собственный проект")
	}

	budget, err := valueobject.NewBudget(project.BudgetMin, project.BudgetMax, project.Currency)
	if err != nil {
		return nil, err
	}
	if !budget.IsInRange(in.Amount) {
		return nil, apperror.New(apperror.ErrCodeValidation, "сумма предложения вне бюджета проекта")
	}

	if _, err := s.repo.GetProposalByProjectAndFreelancer(ctx, projectID, freelancerID); err == nil {
		return nil, apperror.New(apperror.ErrCodeConflict, "вы уже откликнулись на этот проект")
	} else if !errors.Is(err, repository.ErrProposalNotFound) {
		return nil, err
	}

	proposal := &models.Proposal{
		ProjectID:    projectID,
		FreelancerID: freelancerID,
		CoverLetter:  in.CoverLetter,
		Amount:       in.Amount,
		Status:       valueobject.ProposalStatusPending,
	}

	if err := s.repo.CreateProposal(ctx, proposal); err != nil {
		return nil, err
	}

	if s.notifications != nil {
		_, _ = s.notifications.Notify(ctx, project.ClientID, "proposal.created", proposal)
	}

	return proposal, nil
}

// ListProposals возвращает предложения по проекту. Доступно только владельцу.
func (s *ProjectService) ListProposals(ctx context.Context, clientID, projectID uuid.UUID) ([]models.Proposal, error) {
	project, err := s.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.ClientID != clientID {
		return nil, apperror.ErrForbidden
	}
	return s.repo.ListProposals(ctx, projectID)
}

// GetMyProposal возвращает отклик фрилансера на проект.
func (s *ProjectService) GetMyProposal(ctx context.Context, freelancerID, projectID uuid.UUID) (*models.Proposal, error) {
	proposal, err := s.repo.GetProposalByProjectAndFreelancer(ctx, projectID, freelancerID)
	if err != nil {
		if errors.Is(err, repository.ErrProposalNotFound) {
			return nil, apperror.ErrProposalNotFound
		}
		return nil, err
	}
	return proposal, nil
}

// AcceptProposal принимает предложение: блокирует средства клиента в escrow,
// назначает фрилансера и переводит проект в работу. Escrow идемпотентен по
// предложению, поэтому повтор после сбоя безопасно доводит операцию до конца.
func (s *ProjectService) AcceptProposal(ctx context.Context, clientID, projectID, proposalID uuid.UUID) (*models.Project, error) {
	project, err := s.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.ClientID != clientID {
		return nil, apperror.ErrForbidden
	}

	proposal, err := s.repo.GetProposalByID(ctx, proposalID)
	if err != nil {
		if errors.Is(err, repository.ErrProposalNotFound) {
			return nil, apperror.ErrProposalNotFound
		}
		return nil, err
	}
	if proposal.ProjectID != projectID {
		return nil, apperror.New(apperror.ErrCodeBadRequest, "предложение относится к другому проекту")
	}
	if proposal.Status == valueobject.ProposalStatusRejected {
		return nil, apperror.New(apperror.ErrCodeConflict, "предложение уже отклонено")
	}

	switch project.Status {
	case valueobject.ProjectStatusOpen:
		// штатный путь
	case valueobject.ProjectStatusInProgress:
		// Повтор после сбоя: работа уже назначена этому фрилансеру
		if project.FreelancerID != nil && *project.FreelancerID == proposal.FreelancerID {
			return project, nil
		}
		return nil, apperror.New(apperror.ErrCodeConflict, "по проекту уже принято другое предложение")
	default:
		return nil, apperror.New(apperror.ErrCodeInvalidTransition,
			"принять предложение можно только по открытому проекту")
	}

	// Шаг 1: заморозка средств. При повторе вернётся уже созданный escrow.
	_, err = s.escrow.CreateAndLock(ctx, repository.CreateEscrowParams{
		ProjectID:    projectID,
		ProposalID:   proposalID,
		ClientID:     clientID,
		FreelancerID: proposal.FreelancerID,
		Amount:       proposal.Amount,
		Currency:     project.Currency,
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrInsufficientFunds):
			return nil, apperror.New(apperror.ErrCodeInsufficientFunds, "недостаточно средств для принятия предложения")
		case errors.Is(err, repository.ErrEscrowAlreadyExists):
			return nil, apperror.New(apperror.ErrCodeConflict, "по проекту уже есть активный escrow")
		}
		return nil, err
	}

	// Шаг 2: назначение фрилансера и перевод проекта в работу
	if err := s.repo.AcceptProposal(ctx, projectID, proposalID, proposal.FreelancerID); err != nil {
		if errors.Is(err, repository.ErrProjectStatusConflict) {
			// Либо операция уже завершена предыдущей попыткой, либо проект
			// увели конкурентно. Различаем по текущему состоянию.
			current, getErr := s.repo.GetByID(ctx, projectID)
			if getErr != nil {
				return nil, getErr
			}
			if current.Status == valueobject.ProjectStatusInProgress &&
				current.FreelancerID != nil && *current.FreelancerID == proposal.FreelancerID {
				return current, nil
			}
			return nil, apperror.New(apperror.ErrCodeConflict, "статус проекта изменился, повторите запрос")
		}
		return nil, err
	}

	if logger.Log != nil {
		logger.Log.WithField("project_id", projectID).WithField("proposal_id", proposalID).
			Info("предложение принято, средства заблокированы")
	}

	if s.notifications != nil {
		_, _ = s.notifications.Notify(ctx, proposal.FreelancerID, "proposal.accepted", proposal)
	}

	return s.GetProject(ctx, projectID)
}

// CancelProject отменяет проект и возвращает замороженные средства клиенту.
// Допустима отмена из любого нетерминального статуса.
func (s *ProjectService) CancelProject(ctx context.Context, clientID, projectID uuid.UUID) (*models.Project, error) {
	project, err := s.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.ClientID != clientID {
		return nil, apperror.ErrForbidden
	}
	if project.Status.IsTerminal() {
		return nil, apperror.New(apperror.ErrCodeInvalidTransition, "проект уже завершён")
	}

	if _, err := s.escrow.RefundAndCancel(ctx, projectID); err != nil {
		if errors.Is(err, repository.ErrProjectStatusConflict) {
			return nil, apperror.New(apperror.ErrCodeConflict, "статус проекта изменился, повторите запрос")
		}
		return nil, err
	}

	if logger.Log != nil {
		logger.Log.WithField("project_id", projectID).Info("проект отменён")
	}

	if project.FreelancerID != nil && s.notifications != nil {
		_, _ = s.notifications.Notify(ctx, *project.FreelancerID, "project.cancelled", project)
	}

	return s.GetProject(ctx, projectID)
}
