package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/ignatzorin/escrow-backend/internal/domain/valueobject"
	"github.com/ignatzorin/escrow-backend/internal/models"
	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
	"github.com/ignatzorin/escrow-backend/internal/repository"
)

type mockProjectsRepo struct {
	mock.Mock
}

func (m *mockProjectsRepo) Create(ctx context.Context, project *models.Project) error {
	args := m.Called(ctx, project)
	return args.Error(0)
}

func (m *mockProjectsRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Project), args.Error(1)
}

func (m *mockProjectsRepo) ListOpen(ctx context.Context, limit, offset int) ([]models.Project, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]models.Project), args.Error(1)
}

func (m *mockProjectsRepo) ListByParticipant(ctx context.Context, userID uuid.UUID) ([]models.Project, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]models.Project), args.Error(1)
}

func (m *mockProjectsRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to valueobject.ProjectStatus) error {
	args := m.Called(ctx, id, from, to)
	return args.Error(0)
}

func (m *mockProjectsRepo) AcceptProposal(ctx context.Context, projectID, proposalID, freelancerID uuid.UUID) error {
	args := m.Called(ctx, projectID, proposalID, freelancerID)
	return args.Error(0)
}

func (m *mockProjectsRepo) CreateProposal(ctx context.Context, proposal *models.Proposal) error {
	args := m.Called(ctx, proposal)
	return args.Error(0)
}

func (m *mockProjectsRepo) GetProposalByID(ctx context.Context, id uuid.UUID) (*models.Proposal, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Proposal), args.Error(1)
}

func (m *mockProjectsRepo) GetProposalByProjectAndFreelancer(ctx context.Context, projectID, freelancerID uuid.UUID) (*models.Proposal, error) {
	args := m.Called(ctx, projectID, freelancerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Proposal), args.Error(1)
}

func (m *mockProjectsRepo) ListProposals(ctx context.Context, projectID uuid.UUID) ([]models.Proposal, error) {
	args := m.Called(ctx, projectID)
	return args.Get(0).([]models.Proposal), args.Error(1)
}

type mockEscrowStore struct {
	mock.Mock
}

func (m *mockEscrowStore) CreateAndLock(ctx context.Context, params repository.CreateEscrowParams) (*models.Escrow, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Escrow), args.Error(1)
}

func (m *mockEscrowStore) Release(ctx context.Context, escrowID uuid.UUID, fee float64) (*models.Escrow, error) {
	args := m.Called(ctx, escrowID, fee)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Escrow), args.Error(1)
}

func (m *mockEscrowStore) Refund(ctx context.Context, escrowID uuid.UUID) (*models.Escrow, error) {
	args := m.Called(ctx, escrowID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Escrow), args.Error(1)
}

func (m *mockEscrowStore) RefundAndCancel(ctx context.Context, projectID uuid.UUID) (*models.Escrow, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Escrow), args.Error(1)
}

func (m *mockEscrowStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Escrow, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Escrow), args.Error(1)
}

func (m *mockEscrowStore) GetByProjectID(ctx context.Context, projectID uuid.UUID) (*models.Escrow, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Escrow), args.Error(1)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Notify(ctx context.Context, userID uuid.UUID, event string, data interface{}) (*models.Notification, error) {
	args := m.Called(ctx, userID, event, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Notification), args.Error(1)
}

func newProjectService(repo *mockProjectsRepo, escrow *mockEscrowStore) *ProjectService {
	return NewProjectService(repo, escrow, nil, "RUB")
}

func TestProjectService_CreateProject_Success(t *testing.T) {
	repo := new(mockProjectsRepo)
	svc := newProjectService(repo, new(mockEscrowStore))
	ctx := context.Background()
	clientID := uuid.New()

	repo.On("Create", ctx, mock.AnythingOfType("*models.Project")).Return(nil)

	project, err := svc.CreateProject(ctx, clientID, models.RoleClient, CreateProjectInput{
		Title:       "Разработка сайта",
		Description: "Нужен лендинг для продукта",
		BudgetMin:   1000,
		BudgetMax:   5000,
	})
	assert.NoError(t, err)
	assert.Equal(t, clientID, project.ClientID)
	assert.Equal(t, valueobject.ProjectStatusOpen, project.Status)
	assert.Equal(t, "RUB", project.Currency)
	repo.AssertExpectations(t)
}

func TestProjectService_CreateProject_FreelancerForbidden(t *testing.T) {
	svc := newProjectService(new(mockProjectsRepo), new(mockEscrowStore))

	_, err := svc.CreateProject(context.Background(), uuid.New(), models.RoleFreelancer, CreateProjectInput{
		Title:       "Разработка сайта",
		Description: "Нужен лендинг для продукта",
		BudgetMin:   1000,
		BudgetMax:   5000,
	})
	assert.True(t, apperror.IsForbidden(err))
}

func TestProjectService_CreateProject_InvalidBudget(t *testing.T) {
	svc := newProjectService(new(mockProjectsRepo), new(mockEscrowStore))

	_, err := svc.CreateProject(context.Background(), uuid.New(), models.RoleClient, CreateProjectInput{
		Title:       "Разработка сайта",
		Description: "Нужен лендинг для продукта",
		BudgetMin:   5000,
		BudgetMax:   1000,
	})
	assert.True(t, apperror.IsValidation(err))
}

// Нулевой минимум отклоняется на валидации, а не ограничением схемы.
func TestProjectService_CreateProject_ZeroBudgetMin(t *testing.T) {
	repo := new(mockProjectsRepo)
	svc := newProjectService(repo, new(mockEscrowStore))

	_, err := svc.CreateProject(context.Background(), uuid.New(), models.RoleClient, CreateProjectInput{
		Title:       "Разработка сайта",
		Description: "Нужен лендинг для продукта",
		BudgetMin:   0,
		BudgetMax:   5000,
	})
	assert.True(t, apperror.IsValidation(err))
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestProjectService_SubmitProposal_Success(t *testing.T) {
	repo := new(mockProjectsRepo)
	svc := newProjectService(repo, new(mockEscrowStore))
	ctx := context.Background()
	projectID := uuid.New()
	freelancerID := uuid.New()

	project := &models.Project{
		ID:        projectID,
		ClientID:  uuid.New(),
		BudgetMin: 1000,
		BudgetMax: 5000,
		Currency:  "RUB",
		Status:    valueobject.ProjectStatusOpen,
	}
	repo.On("GetByID", ctx, projectID).Return(project, nil)
	repo.On("GetProposalByProjectAndFreelancer", ctx, projectID, freelancerID).
		Return(nil, repository.ErrProposalNotFound)
	repo.On("CreateProposal", ctx, mock.AnythingOfType("*models.Proposal")).Return(nil)

	proposal, err := svc.SubmitProposal(ctx, freelancerID, models.RoleFreelancer, projectID, SubmitProposalInput{
		CoverLetter: "Готов взяться за проект",
		Amount:      3000,
	})
	assert.NoError(t, err)
	assert.Equal(t, valueobject.ProposalStatusPending, proposal.Status)
	repo.AssertExpectations(t)
}

func TestProjectService_SubmitProposal_ProjectNotOpen(t *testing.T) {
	repo := new(mockProjectsRepo)
	svc := newProjectService(repo, new(mockEscrowStore))
	ctx := context.Background()
	projectID := uuid.New()

	project := &models.Project{ID: projectID, ClientID: uuid.New(), Status: valueobject.ProjectStatusInProgress}
	repo.On("GetByID", ctx, projectID).Return(project, nil)

	_, err := svc.SubmitProposal(ctx, uuid.New(), models.RoleFreelancer, projectID, SubmitProposalInput{
		CoverLetter: "Готов взяться за проект",
		Amount:      3000,
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "не принимает предложения")
}

func TestProjectService_SubmitProposal_OwnProject(t *testing.T) {
	repo := new(mockProjectsRepo)
	svc := newProjectService(repo, new(mockEscrowStore))
	ctx := context.Background()
	projectID := uuid.New()
	clientID := uuid.New()

	project := &models.Project{
		ID: projectID, ClientID: clientID,
		BudgetMin: 1000, BudgetMax: 5000, Currency: "RUB",
		Status: valueobject.ProjectStatusOpen,
	}
	repo.On("GetByID", ctx, projectID).Return(project, nil)

	_, err := svc.SubmitProposal(ctx, clientID, models.RoleFreelancer, projectID, SubmitProposalInput{
		CoverLetter: "Готов взяться за проект",
		Amount:      3000,
	})
	assert.True(t, apperror.IsForbidden(err))
}

func TestProjectService_SubmitProposal_AmountOutOfBudget(t *testing.T) {
	repo := new(mockProjectsRepo)
	svc := newProjectService(repo, new(mockEscrowStore))
	ctx := context.Background()
	projectID := uuid.New()

	project := &models.Project{
		ID: projectID, ClientID: uuid.New(),
		BudgetMin: 1000, BudgetMax: 5000, Currency: "RUB",
		Status: valueobject.ProjectStatusOpen,
	}
	repo.On("GetByID", ctx, projectID).Return(project, nil)

	_, err := svc.SubmitProposal(ctx, uuid.New(), models.RoleFreelancer, projectID, SubmitProposalInput{
		CoverLetter: "Готов взяться за проект",
		Amount:      10000,
	})
	assert.True(t, apperror.IsValidation(err))
}

func TestProjectService_SubmitProposal_Duplicate(t *testing.T) {
	repo := new(mockProjectsRepo)
	svc := newProjectService(repo, new(mockEscrowStore))
	ctx := context.Background()
	projectID := uuid.New()
	freelancerID := uuid.New()

	project := &models.Project{
		ID: projectID, ClientID: uuid.New(),
		BudgetMin: 1000, BudgetMax: 5000, Currency: "RUB",
		Status: valueobject.ProjectStatusOpen,
	}
	repo.On("GetByID", ctx, projectID).Return(project, nil)
	repo.On("GetProposalByProjectAndFreelancer", ctx, projectID, freelancerID).
		Return(&models.Proposal{ID: uuid.New()}, nil)

	_, err := svc.SubmitProposal(ctx, freelancerID, models.RoleFreelancer, projectID, SubmitProposalInput{
		CoverLetter: "Готов взяться за проект",
		Amount:      3000,
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "уже откликнулись")
}

func TestProjectService_AcceptProposal_Success(t *testing.T) {
	repo := new(mockProjectsRepo)
	escrow := new(mockEscrowStore)
	svc := newProjectService(repo, escrow)
	ctx := context.Background()

	clientID := uuid.New()
	freelancerID := uuid.New()
	projectID := uuid.New()
	proposalID := uuid.New()

	openProject := &models.Project{
		ID: projectID, ClientID: clientID, Currency: "RUB",
		Status: valueobject.ProjectStatusOpen,
	}
	inProgress := &models.Project{
		ID: projectID, ClientID: clientID, FreelancerID: &freelancerID,
		Status: valueobject.ProjectStatusInProgress,
	}
	proposal := &models.Proposal{
		ID: proposalID, ProjectID: projectID, FreelancerID: freelancerID,
		Amount: 3000, Status: valueobject.ProposalStatusPending,
	}

	repo.On("GetByID", ctx, projectID).Return(openProject, nil).Once()
	repo.On("GetProposalByID", ctx, proposalID).Return(proposal, nil)
	escrow.On("CreateAndLock", ctx, repository.CreateEscrowParams{
		ProjectID:    projectID,
		ProposalID:   proposalID,
		ClientID:     clientID,
		FreelancerID: freelancerID,
		Amount:       3000,
		Currency:     "RUB",
	}).Return(&models.Escrow{ID: uuid.New(), Status: valueobject.EscrowStatusLocked}, nil)
	repo.On("AcceptProposal", ctx, projectID, proposalID, freelancerID).Return(nil)
	repo.On("GetByID", ctx, projectID).Return(inProgress, nil).Once()

	result, err := svc.AcceptProposal(ctx, clientID, projectID, proposalID)
	assert.NoError(t, err)
	assert.Equal(t, valueobject.ProjectStatusInProgress, result.Status)
	repo.AssertExpectations(t)
	escrow.AssertExpectations(t)
}

func TestProjectService_AcceptProposal_NotOwner(t *testing.T) {
	repo := new(mockProjectsRepo)
	svc := newProjectService(repo, new(mockEscrowStore))
	ctx := context.Background()
	projectID := uuid.New()

	project := &models.Project{ID: projectID, ClientID: uuid.New(), Status: valueobject.ProjectStatusOpen}
	repo.On("GetByID", ctx, projectID).Return(project, nil)

	_, err := svc.AcceptProposal(ctx, uuid.New(), projectID, uuid.New())
	assert.True(t, apperror.IsForbidden(err))
}

func TestProjectService_AcceptProposal_InsufficientFunds(t *testing.T) {
	repo := new(mockProjectsRepo)
	escrow := new(mockEscrowStore)
	svc := newProjectService(repo, escrow)
	ctx := context.Background()

	clientID := uuid.New()
	projectID := uuid.New()
	proposalID := uuid.New()

	project := &models.Project{ID: projectID, ClientID: clientID, Currency: "RUB", Status: valueobject.ProjectStatusOpen}
	proposal := &models.Proposal{
		ID: proposalID, ProjectID: projectID, FreelancerID: uuid.New(),
		Amount: 3000, Status: valueobject.ProposalStatusPending,
	}
	repo.On("GetByID", ctx, projectID).Return(project, nil)
	repo.On("GetProposalByID", ctx, proposalID).Return(proposal, nil)
	escrow.On("CreateAndLock", ctx, mock.AnythingOfType("repository.CreateEscrowParams")).
		Return(nil, repository.ErrInsufficientFunds)

	_, err := svc.AcceptProposal(ctx, clientID, projectID, proposalID)
	assert.Error(t, err)

	var appErr *apperror.AppError
	assert.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperror.ErrCodeInsufficientFunds, appErr.Code)
}

// Повтор после сбоя между созданием escrow и назначением фрилансера.
func TestProjectService_AcceptProposal_RetryAfterCrash(t *testing.T) {
	repo := new(mockProjectsRepo)
	escrow := new(mockEscrowStore)
	svc := newProjectService(repo, escrow)
	ctx := context.Background()

	clientID := uuid.New()
	freelancerID := uuid.New()
	projectID := uuid.New()
	proposalID := uuid.New()

	inProgress := &models.Project{
		ID: projectID, ClientID: clientID, FreelancerID: &freelancerID,
		Status: valueobject.ProjectStatusInProgress,
	}
	proposal := &models.Proposal{
		ID: proposalID, ProjectID: projectID, FreelancerID: freelancerID,
		Amount: 3000, Status: valueobject.ProposalStatusAccepted,
	}

	repo.On("GetByID", ctx, projectID).Return(inProgress, nil)
	repo.On("GetProposalByID", ctx, proposalID).Return(proposal, nil)

	result, err := svc.AcceptProposal(ctx, clientID, projectID, proposalID)
	assert.NoError(t, err)
	assert.Equal(t, valueobject.ProjectStatusInProgress, result.Status)
	escrow.AssertNotCalled(t, "CreateAndLock", mock.Anything, mock.Anything)
}

// Конкурентное принятие: escrow создан, но проект увели под другого фрилансера.
func TestProjectService_AcceptProposal_ConcurrentConflict(t *testing.T) {
	repo := new(mockProjectsRepo)
	escrow := new(mockEscrowStore)
	svc := newProjectService(repo, escrow)
	ctx := context.Background()

	clientID := uuid.New()
	otherFreelancer := uuid.New()
	projectID := uuid.New()
	proposalID := uuid.New()

	openProject := &models.Project{ID: projectID, ClientID: clientID, Currency: "RUB", Status: valueobject.ProjectStatusOpen}
	takenProject := &models.Project{
		ID: projectID, ClientID: clientID, FreelancerID: &otherFreelancer,
		Status: valueobject.ProjectStatusInProgress,
	}
	proposal := &models.Proposal{
		ID: proposalID, ProjectID: projectID, FreelancerID: uuid.New(),
		Amount: 3000, Status: valueobject.ProposalStatusPending,
	}

	repo.On("GetByID", ctx, projectID).Return(openProject, nil).Once()
	repo.On("GetProposalByID", ctx, proposalID).Return(proposal, nil)
	escrow.On("CreateAndLock", ctx, mock.AnythingOfType("repository.CreateEscrowParams")).
		Return(&models.Escrow{ID: uuid.New(), Status: valueobject.EscrowStatusLocked}, nil)
	repo.On("AcceptProposal", ctx, projectID, proposalID, proposal.FreelancerID).
		Return(repository.ErrProjectStatusConflict)
	repo.On("GetByID", ctx, projectID).Return(takenProject, nil).Once()

	_, err := svc.AcceptProposal(ctx, clientID, projectID, proposalID)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "статус проекта изменился")
}

func TestProjectService_AcceptProposal_RejectedProposal(t *testing.T) {
	repo := new(mockProjectsRepo)
	svc := newProjectService(repo, new(mockEscrowStore))
	ctx := context.Background()

	clientID := uuid.New()
	projectID := uuid.New()
	proposalID := uuid.New()

	project := &models.Project{ID: projectID, ClientID: clientID, Status: valueobject.ProjectStatusOpen}
	proposal := &models.Proposal{
		ID: proposalID, ProjectID: projectID, FreelancerID: uuid.New(),
		Status: valueobject.ProposalStatusRejected,
	}
	repo.On("GetByID", ctx, projectID).Return(project, nil)
	repo.On("GetProposalByID", ctx, proposalID).Return(proposal, nil)

	_, err := svc.AcceptProposal(ctx, clientID, projectID, proposalID)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "уже отклонено")
}

func TestProjectService_CancelProject_WithRefund(t *testing.T) {
	repo := new(mockProjectsRepo)
	escrow := new(mockEscrowStore)
	svc := newProjectService(repo, escrow)
	ctx := context.Background()

	clientID := uuid.New()
	projectID := uuid.New()

	active := &models.Project{ID: projectID, ClientID: clientID, Status: valueobject.ProjectStatusInProgress}
	cancelled := &models.Project{ID: projectID, ClientID: clientID, Status: valueobject.ProjectStatusCancelled}

	repo.On("GetByID", ctx, projectID).Return(active, nil).Once()
	escrow.On("RefundAndCancel", ctx, projectID).
		Return(&models.Escrow{ID: uuid.New(), Status: valueobject.EscrowStatusRefunded}, nil)
	repo.On("GetByID", ctx, projectID).Return(cancelled, nil).Once()

	result, err := svc.CancelProject(ctx, clientID, projectID)
	assert.NoError(t, err)
	assert.Equal(t, valueobject.ProjectStatusCancelled, result.Status)
	escrow.AssertExpectations(t)
}

func TestProjectService_CancelProject_Terminal(t *testing.T) {
	repo := new(mockProjectsRepo)
	escrow := new(mockEscrowStore)
	svc := newProjectService(repo, escrow)
	ctx := context.Background()

	clientID := uuid.New()
	projectID := uuid.New()

	completed := &models.Project{ID: projectID, ClientID: clientID, Status: valueobject.ProjectStatusCompleted}
	repo.On("GetByID", ctx, projectID).Return(completed, nil)

	_, err := svc.CancelProject(ctx, clientID, projectID)
	assert.True(t, apperror.IsInvalidTransition(err))
	escrow.AssertNotCalled(t, "RefundAndCancel", mock.Anything, mock.Anything)
}

func TestProjectService_ListProposals_OwnerOnly(t *testing.T) {
	repo := new(mockProjectsRepo)
	svc := newProjectService(repo, new(mockEscrowStore))
	ctx := context.Background()
	projectID := uuid.New()

	project := &models.Project{ID: projectID, ClientID: uuid.New(), Status: valueobject.ProjectStatusOpen}
	repo.On("GetByID", ctx, projectID).Return(project, nil)

	_, err := svc.ListProposals(ctx, uuid.New(), projectID)
	assert.True(t, apperror.IsForbidden(err))
}

func TestProjectService_GetProject_NotFound(t *testing.T) {
	repo := new(mockProjectsRepo)
	svc := newProjectService(repo, new(mockEscrowStore))
	ctx := context.Background()
	projectID := uuid.New()

	repo.On("GetByID", ctx, projectID).Return(nil, repository.ErrProjectNotFound)

	_, err := svc.GetProject(ctx, projectID)
	assert.True(t, apperror.IsNotFound(err))
}
