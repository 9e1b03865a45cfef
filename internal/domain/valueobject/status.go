package valueobject

import "github.com/ignatzorin/escrow-backend/internal/pkg/apperror"

type ProjectStatus string

const (
	ProjectStatusOpen           ProjectStatus = "open"
	ProjectStatusInProgress     ProjectStatus = "in_progress"
	ProjectStatusPendingReview  ProjectStatus = "pending_review"
	ProjectStatusPendingPayment ProjectStatus = "pending_payment"
	ProjectStatusCompleted      ProjectStatus = "completed"
	ProjectStatusCancelled      ProjectStatus = "cancelled"
)

func (s ProjectStatus) IsValid() bool {
	switch s {
	case ProjectStatusOpen, ProjectStatusInProgress, ProjectStatusPendingReview,
		ProjectStatusPendingPayment, ProjectStatusCompleted, ProjectStatusCancelled:
		return true
	}
	return false
}

// IsTerminal сообщает, является ли статус конечным.
func (s ProjectStatus) IsTerminal() bool {
	return s == ProjectStatusCompleted || s == ProjectStatusCancelled
}

// CanTransitionTo проверяет допустимость перехода между статусами проекта.
// Любой нетерминальный статус может перейти в cancelled.
func (s ProjectStatus) CanTransitionTo(newStatus ProjectStatus) bool {
	if newStatus == ProjectStatusCancelled {
		return !s.IsTerminal()
	}

	transitions := map[ProjectStatus][]ProjectStatus{
		ProjectStatusOpen:           {ProjectStatusInProgress},
		ProjectStatusInProgress:     {ProjectStatusPendingReview},
		ProjectStatusPendingReview:  {ProjectStatusPendingPayment, ProjectStatusInProgress},
		ProjectStatusPendingPayment: {ProjectStatusCompleted},
		ProjectStatusCompleted:      {},
		ProjectStatusCancelled:      {},
	}

	allowed, ok := transitions[s]
	if !ok {
		return false
	}

	for _, status := range allowed {
		if status == newStatus {
			return true
		}
	}
	return false
}

func NewProjectStatus(status string) (ProjectStatus, error) {
	s := ProjectStatus(status)
	if !s.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "некорректный статус проекта")
	}
	return s, nil
}

type EscrowStatus string

const (
	EscrowStatusLocked   EscrowStatus = "locked"
	EscrowStatusReleased EscrowStatus = "released"
	EscrowStatusRefunded EscrowStatus = "refunded"
)

func (s EscrowStatus) IsValid() bool {
	switch s {
	case EscrowStatusLocked, EscrowStatusReleased, EscrowStatusRefunded:
		return true
	}
	return false
}

// IsTerminal сообщает, завершён ли escrow. Терминальный escrow не меняет статус.
func (s EscrowStatus) IsTerminal() bool {
	return s == EscrowStatusReleased || s == EscrowStatusRefunded
}

func (s EscrowStatus) CanTransitionTo(newStatus EscrowStatus) bool {
	// Единственные допустимые переходы: locked -> released и locked -> refunded.
	return s == EscrowStatusLocked && newStatus.IsTerminal()
}

func NewEscrowStatus(status string) (EscrowStatus, error) {
	s := EscrowStatus(status)
	if !s.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "некорректный статус escrow")
	}
	return s, nil
}

type DeliverableStatus string

const (
	DeliverableStatusPendingReview     DeliverableStatus = "pending_review"
	DeliverableStatusApproved          DeliverableStatus = "approved"
	DeliverableStatusRevisionRequested DeliverableStatus = "revision_requested"
)

func (s DeliverableStatus) IsValid() bool {
	switch s {
	case DeliverableStatusPendingReview, DeliverableStatusApproved, DeliverableStatusRevisionRequested:
		return true
	}
	return false
}

// IsTerminal сообщает, закрыт ли результат работы для дальнейших решений.
// Новая итерация работы оформляется новым результатом, а не повторным review.
func (s DeliverableStatus) IsTerminal() bool {
	return s == DeliverableStatusApproved || s == DeliverableStatusRevisionRequested
}

func (s DeliverableStatus) CanTransitionTo(newStatus DeliverableStatus) bool {
	return s == DeliverableStatusPendingReview && newStatus.IsTerminal()
}

func NewDeliverableStatus(status string) (DeliverableStatus, error) {
	s := DeliverableStatus(status)
	if !s.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "некорректный статус результата работы")
	}
	return s, nil
}

type ProposalStatus string

const (
	ProposalStatusPending  ProposalStatus = "pending"
	ProposalStatusAccepted ProposalStatus = "accepted"
	ProposalStatusRejected ProposalStatus = "rejected"
)

func (s ProposalStatus) IsValid() bool {
	switch s {
	case ProposalStatusPending, ProposalStatusAccepted, ProposalStatusRejected:
		return true
	}
	return false
}

func NewProposalStatus(status string) (ProposalStatus, error) {
	s := ProposalStatus(status)
	if !s.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "некорректный статус предложения")
	}
	return s, nil
}
