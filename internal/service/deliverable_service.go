package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/ignatzorin/escrow-backend/internal/domain/valueobject"
	"github.com/ignatzorin/escrow-backend/internal/logger"
	"github.com/ignatzorin/escrow-backend/internal/models"
	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
	"github.com/ignatzorin/escrow-backend/internal/repository"
	"github.com/ignatzorin/escrow-backend/internal/validation"
)

// DeliverablesRepository описывает взаимодействие сервиса с хранилищем результатов.
type DeliverablesRepository interface {
	Submit(ctx context.Context, deliverable *models.Deliverable, files []models.DeliverableFile) (*models.Deliverable, error)
	Review(ctx context.Context, deliverableID uuid.UUID, decision repository.ReviewDecision) (*models.Deliverable, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Deliverable, error)
	GetLatestByProjectID(ctx context.Context, projectID uuid.UUID) (*models.Deliverable, error)
	ListByProjectID(ctx context.Context, projectID uuid.UUID) ([]models.Deliverable, error)
}

// DeliverableService содержит бизнес-логику сдачи и проверки работы.
type DeliverableService struct {
	repo          DeliverablesRepository
	projects      ProjectsRepository
	notifications Notifier
}

// NewDeliverableService создаёт новый сервис результатов работы.
func NewDeliverableService(repo DeliverablesRepository, projects ProjectsRepository, notifications Notifier) *DeliverableService {
	return &DeliverableService{
		repo:          repo,
		projects:      projects,
		notifications: notifications,
	}
}

// Submit сдаёт работу по проекту. Разрешено только назначенному фрилансеру,
// пока проект в работе.
func (s *DeliverableService) Submit(ctx context.Context, freelancerID, projectID uuid.UUID, description string, files []models.DeliverableFile) (*models.Deliverable, error) {
	if err := validation.ValidateDeliverableDescription(description); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	project, err := s.getProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.FreelancerID == nil || *project.FreelancerID != freelancerID {
		return nil, apperror.ErrForbidden
	}
	if project.Status != valueobject.ProjectStatusInProgress {
		return nil, apperror.New(apperror.ErrCodeInvalidTransition,
			"сдать работу можно только по проекту в работе")
	}

	deliverable := &models.Deliverable{
		ProjectID:    projectID,
		FreelancerID: freelancerID,
		Description:  strings.TrimSpace(description),
	}

	created, err := s.repo.Submit(ctx, deliverable, files)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrActiveDeliverableExists):
			return nil, apperror.New(apperror.ErrCodeConflict, "по проекту уже есть результат на проверке")
		case errors.Is(err, repository.ErrProjectStatusConflict):
			return nil, apperror.New(apperror.ErrCodeConflict, "статус проекта изменился, повторите запрос")
		}
		return nil, err
	}

	if logger.Log != nil {
		logger.Log.WithField("project_id", projectID).WithField("deliverable_id", created.ID).
			Info("работа сдана на проверку")
	}

	if s.notifications != nil {
		_, _ = s.notifications.Notify(ctx, project.ClientID, "deliverable.submitted", created)
	}

	return created, nil
}

// Approve одобряет результат работы: проект переходит в ожидание выплаты.
func (s *DeliverableService) Approve(ctx context.Context, clientID, deliverableID uuid.UUID, feedback *string) (*models.Deliverable, error) {
	return s.review(ctx, clientID, deliverableID, repository.ReviewDecision{Approve: true, Feedback: feedback})
}

// RequestRevision запрашивает доработку: проект возвращается в работу.
// Комментарий обязателен, иначе фрилансеру нечего исправлять.
func (s *DeliverableService) RequestRevision(ctx context.Context, clientID, deliverableID uuid.UUID, feedback *string) (*models.Deliverable, error) {
	if feedback == nil || strings.TrimSpace(*feedback) == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "укажите, что нужно доработать")
	}
	return s.review(ctx, clientID, deliverableID, repository.ReviewDecision{Approve: false, Feedback: feedback})
}

func (s *DeliverableService) review(ctx context.Context, clientID, deliverableID uuid.UUID, decision repository.ReviewDecision) (*models.Deliverable, error) {
	if decision.Feedback != nil {
		if err := validation.ValidateLength("комментарий", *decision.Feedback, 0, validation.MaxReviewFeedbackLength); err != nil {
			return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
		}
	}

	deliverable, err := s.repo.GetByID(ctx, deliverableID)
	if err != nil {
		if errors.Is(err, repository.ErrDeliverableNotFound) {
			return nil, apperror.ErrDeliverableNotFound
		}
		return nil, err
	}

	project, err := s.getProject(ctx, deliverable.ProjectID)
	if err != nil {
		return nil, err
	}
	if project.ClientID != clientID {
		return nil, apperror.ErrForbidden
	}

	reviewed, err := s.repo.Review(ctx, deliverableID, decision)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrDeliverableNotPending):
			return nil, apperror.New(apperror.ErrCodeConflict, "результат уже проверен")
		case errors.Is(err, repository.ErrProjectStatusConflict):
			return nil, apperror.New(apperror.ErrCodeConflict, "статус проекта изменился, повторите запрос")
		}
		return nil, err
	}

	event := "deliverable.revision_requested"
	if decision.Approve {
		event = "deliverable.approved"
	}
	if s.notifications != nil {
		_, _ = s.notifications.Notify(ctx, deliverable.FreelancerID, event, reviewed)
	}

	return reviewed, nil
}

// GetDeliverable возвращает результат работы. Доступно участникам проекта.
func (s *DeliverableService) GetDeliverable(ctx context.Context, actorID, deliverableID uuid.UUID) (*models.Deliverable, error) {
	deliverable, err := s.repo.GetByID(ctx, deliverableID)
	if err != nil {
		if errors.Is(err, repository.ErrDeliverableNotFound) {
			return nil, apperror.ErrDeliverableNotFound
		}
		return nil, err
	}

	if err := s.ensureParticipant(ctx, actorID, deliverable.ProjectID); err != nil {
		return nil, err
	}

	return deliverable, nil
}

// ListProjectDeliverables возвращает все результаты работы по проекту.
func (s *DeliverableService) ListProjectDeliverables(ctx context.Context, actorID, projectID uuid.UUID) ([]models.Deliverable, error) {
	if err := s.ensureParticipant(ctx, actorID, projectID); err != nil {
		return nil, err
	}
	return s.repo.ListByProjectID(ctx, projectID)
}

func (s *DeliverableService) ensureParticipant(ctx context.Context, actorID, projectID uuid.UUID) error {
	project, err := s.getProject(ctx, projectID)
	if err != nil {
		return err
	}
	if project.ClientID != actorID &&
		(project.FreelancerID == nil || *project.FreelancerID != actorID) {
		return apperror.ErrForbidden
	}
	return nil
}

func (s *DeliverableService) getProject(ctx context.Context, projectID uuid.UUID) (*models.Project, error) {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, repository.ErrProjectNotFound) {
			return nil, apperror.ErrProjectNotFound
		}
		return nil, err
	}
	return project, nil
}
