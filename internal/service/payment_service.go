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
)

// ReleaseBlockReason объясняет, почему выплата по проекту невозможна.
type ReleaseBlockReason string

const (
	ReleaseBlockedNotPendingPayment      ReleaseBlockReason = "project_not_pending_payment"
	ReleaseBlockedNoEscrow               ReleaseBlockReason = "no_escrow"
	ReleaseBlockedEscrowNotLocked        ReleaseBlockReason = "escrow_not_locked"
	ReleaseBlockedDeliverableNotApproved ReleaseBlockReason = "deliverable_not_approved"
	ReleaseBlockedAlreadyReleased        ReleaseBlockReason = "already_released"
)

// ReleaseBlockedError возвращается, когда выплата запрещена текущим состоянием
// проекта, escrow или результата работы.
type ReleaseBlockedError struct {
	Reasons []ReleaseBlockReason
}

func (e *ReleaseBlockedError) Error() string {
	parts := make([]string, len(e.Reasons))
	for i, reason := range e.Reasons {
		parts[i] = string(reason)
	}
	return "выплата заблокирована: " + strings.Join(parts, ", ")
}

// Has сообщает, присутствует ли указанная причина блокировки.
func (e *ReleaseBlockedError) Has(reason ReleaseBlockReason) bool {
	for _, r := range e.Reasons {
		if r == reason {
			return true
		}
	}
	return false
}

// ReleaseCheck описывает результат проверки готовности выплаты.
type ReleaseCheck struct {
	Allowed bool                 `json:"allowed"`
	Reasons []ReleaseBlockReason `json:"reasons,omitempty"`
}

// ReleaseResult описывает итог выплаты по проекту.
type ReleaseResult struct {
	Project *models.Project `json:"project"`
	Escrow  *models.Escrow  `json:"escrow"`
	Fee     float64         `json:"fee"`
	Payout  float64         `json:"payout"`
}

// PaymentService координирует выплату: проверяет состояние проекта, escrow и
// результата работы, выплачивает средства и завершает проект. Единственная
// точка, из которой escrow переводится в released.
type PaymentService struct {
	projects      ProjectsRepository
	escrow        EscrowStore
	deliverables  DeliverablesRepository
	notifications Notifier
	feePolicy     valueobject.FeePolicy
}

// NewPaymentService создаёт новый сервис выплат.
func NewPaymentService(projects ProjectsRepository, escrow EscrowStore, deliverables DeliverablesRepository, notifications Notifier, feePolicy valueobject.FeePolicy) *PaymentService {
	return &PaymentService{
		projects:      projects,
		escrow:        escrow,
		deliverables:  deliverables,
		notifications: notifications,
		feePolicy:     feePolicy,
	}
}

// CanReleasePayment проверяет готовность выплаты без изменения состояния.
// Ответ авторитетен: выплата пройдёт тогда и только тогда, когда Allowed.
func (s *PaymentService) CanReleasePayment(ctx context.Context, clientID, projectID uuid.UUID) (*ReleaseCheck, error) {
	project, err := s.getOwnedProject(ctx, clientID, projectID)
	if err != nil {
		return nil, err
	}

	reasons := s.collectBlockReasons(ctx, project)
	return &ReleaseCheck{Allowed: len(reasons) == 0, Reasons: reasons}, nil
}

// ReleasePayment выплачивает средства фрилансеру и завершает проект.
// Повторный вызов возвращает ReleaseBlockedError с already_released:
// двойная выплата исключена терминальностью escrow.
func (s *PaymentService) ReleasePayment(ctx context.Context, clientID, projectID uuid.UUID) (*ReleaseResult, error) {
	project, err := s.getOwnedProject(ctx, clientID, projectID)
	if err != nil {
		return nil, err
	}

	if reasons := s.collectBlockReasons(ctx, project); len(reasons) > 0 {
		return nil, &ReleaseBlockedError{Reasons: reasons}
	}

	escrow, err := s.escrow.GetByProjectID(ctx, projectID)
	if err != nil {
		return nil, err
	}

	fee := s.feePolicy.Fee(escrow.Amount)

	// Шаг 1: выплата. Терминальный escrow отклонит повторный вызов.
	released, err := s.escrow.Release(ctx, escrow.ID, fee)
	if err != nil {
		if errors.Is(err, repository.ErrEscrowNotLocked) {
			// Конкурирующий вызов успел раньше. Если escrow выплачен,
			// доводим проект до completed, иначе выплата невозможна.
			current, getErr := s.escrow.GetByID(ctx, escrow.ID)
			if getErr != nil {
				return nil, getErr
			}
			if current.Status != valueobject.EscrowStatusReleased {
				return nil, &ReleaseBlockedError{Reasons: []ReleaseBlockReason{ReleaseBlockedEscrowNotLocked}}
			}
			released = current
		} else {
			return nil, err
		}
	}

	// Шаг 2: завершение проекта. При повторе после сбоя переход уже выполнен.
	err = s.projects.UpdateStatus(ctx, projectID, valueobject.ProjectStatusPendingPayment, valueobject.ProjectStatusCompleted)
	if err != nil && !s.isAlreadyCompleted(ctx, projectID, err) {
		return nil, err
	}

	if logger.Log != nil {
		logger.Log.WithField("project_id", projectID).WithField("escrow_id", released.ID).
			Info("выплата проведена, проект завершён")
	}

	if s.notifications != nil {
		_, _ = s.notifications.Notify(ctx, released.FreelancerID, "payment.released", released)
	}

	completed, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}

	return &ReleaseResult{
		Project: completed,
		Escrow:  released,
		Fee:     fee,
		Payout:  released.Amount - fee,
	}, nil
}

// GetProjectEscrow возвращает escrow проекта. Доступно участникам.
func (s *PaymentService) GetProjectEscrow(ctx context.Context, actorID, projectID uuid.UUID) (*models.Escrow, error) {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, repository.ErrProjectNotFound) {
			return nil, apperror.ErrProjectNotFound
		}
		return nil, err
	}
	if project.ClientID != actorID &&
		(project.FreelancerID == nil || *project.FreelancerID != actorID) {
		return nil, apperror.ErrForbidden
	}

	escrow, err := s.escrow.GetByProjectID(ctx, projectID)
	if err != nil {
		if errors.Is(err, repository.ErrEscrowNotFound) {
			return nil, apperror.ErrEscrowNotFound
		}
		return nil, err
	}
	return escrow, nil
}

// collectBlockReasons собирает все причины, мешающие выплате.
func (s *PaymentService) collectBlockReasons(ctx context.Context, project *models.Project) []ReleaseBlockReason {
	var reasons []ReleaseBlockReason

	switch project.Status {
	case valueobject.ProjectStatusPendingPayment:
		// готов к выплате
	case valueobject.ProjectStatusCompleted:
		return []ReleaseBlockReason{ReleaseBlockedAlreadyReleased}
	default:
		reasons = append(reasons, ReleaseBlockedNotPendingPayment)
	}

	escrow, err := s.escrow.GetByProjectID(ctx, project.ID)
	if err != nil {
		reasons = append(reasons, ReleaseBlockedNoEscrow)
	} else if escrow.Status != valueobject.EscrowStatusLocked {
		if escrow.Status == valueobject.EscrowStatusReleased {
			reasons = append(reasons, ReleaseBlockedAlreadyReleased)
		} else {
			reasons = append(reasons, ReleaseBlockedEscrowNotLocked)
		}
	}

	deliverable, err := s.deliverables.GetLatestByProjectID(ctx, project.ID)
	if err != nil || deliverable.Status != valueobject.DeliverableStatusApproved {
		reasons = append(reasons, ReleaseBlockedDeliverableNotApproved)
	}

	return reasons
}

func (s *PaymentService) getOwnedProject(ctx context.Context, clientID, projectID uuid.UUID) (*models.Project, error) {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, repository.ErrProjectNotFound) {
			return nil, apperror.ErrProjectNotFound
		}
		return nil, err
	}
	if project.ClientID != clientID {
		return nil, apperror.ErrForbidden
	}
	return project, nil
}

// isAlreadyCompleted распознаёт повтор завершения после сбоя между шагами.
func (s *PaymentService) isAlreadyCompleted(ctx context.Context, projectID uuid.UUID, cause error) bool {
	if !errors.Is(cause, repository.ErrProjectStatusConflict) {
		return false
	}
	current, err := s.projects.GetByID(ctx, projectID)
	return err == nil && current.Status == valueobject.ProjectStatusCompleted
}
