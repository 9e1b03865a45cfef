package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/ignatzorin/escrow-backend/internal/domain/valueobject"
	"github.com/ignatzorin/escrow-backend/internal/models"
	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
	"github.com/ignatzorin/escrow-backend/internal/repository"
	"github.com/ignatzorin/escrow-backend/internal/validation"
)

// ReviewsRepository описывает взаимодействие сервиса с хранилищем отзывов.
type ReviewsRepository interface {
	Create(ctx context.Context, review *models.Review) error
	GetByProjectAndReviewer(ctx context.Context, projectID, reviewerID uuid.UUID) (*models.Review, error)
	ListByReviewedID(ctx context.Context, reviewedID uuid.UUID, limit, offset int) ([]models.Review, error)
	ListByProjectID(ctx context.Context, projectID uuid.UUID) ([]models.Review, error)
	GetAverageRating(ctx context.Context, userID uuid.UUID) (float64, int, error)
}

// ReviewService содержит бизнес-логику отзывов по завершённым проектам.
type ReviewService struct {
	repo     ReviewsRepository
	projects ProjectsRepository
}

// UserRating агрегирует рейтинг пользователя.
type UserRating struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

// NewReviewService создаёт новый сервис отзывов.
func NewReviewService(repo ReviewsRepository, projects ProjectsRepository) *ReviewService {
	return &ReviewService{repo: repo, projects: projects}
}

// CreateReview сохраняет отзыв участника о второй стороне завершённого проекта.
// Один участник оставляет не более одного отзыва на проект.
func (s *ReviewService) CreateReview(ctx context.Context, reviewerID, projectID uuid.UUID, rating int, comment *string) (*models.Review, error) {
	if rating < 1 || rating > 5 {
		return nil, apperror.New(apperror.ErrCodeValidation, "оценка должна быть от 1 до 5")
	}
	if comment != nil {
		if err := validation.ValidateLength("комментарий", *comment, 0, validation.MaxReviewFeedbackLength); err != nil {
			return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
		}
	}

	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, repository.ErrProjectNotFound) {
			return nil, apperror.ErrProjectNotFound
		}
		return nil, err
	}
	if project.Status != valueobject.ProjectStatusCompleted {
		return nil, apperror.New(apperror.ErrCodeConflict, "отзыв можно оставить только по завершённому проекту")
	}

	var reviewedID uuid.UUID
	switch {
	case project.ClientID == reviewerID:
		reviewedID = *project.FreelancerID
	case project.FreelancerID != nil && *project.FreelancerID == reviewerID:
		reviewedID = project.ClientID
	default:
		return nil, apperror.ErrForbidden
	}

	existing, err := s.repo.GetByProjectAndReviewer(ctx, projectID, reviewerID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperror.New(apperror.ErrCodeConflict, "вы уже оставили отзыв по этому проекту")
	}

	review := &models.Review{
		ProjectID:  projectID,
		ReviewerID: reviewerID,
		ReviewedID: reviewedID,
		Rating:     rating,
		Comment:    comment,
	}

	if err := s.repo.Create(ctx, review); err != nil {
		return nil, err
	}

	return review, nil
}

// ListUserReviews возвращает отзывы о пользователе.
func (s *ReviewService) ListUserReviews(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Review, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListByReviewedID(ctx, userID, limit, offset)
}

// ListProjectReviews возвращает отзывы по проекту.
func (s *ReviewService) ListProjectReviews(ctx context.Context, projectID uuid.UUID) ([]models.Review, error) {
	return s.repo.ListByProjectID(ctx, projectID)
}

// GetUserRating возвращает средний рейтинг пользователя.
func (s *ReviewService) GetUserRating(ctx context.Context, userID uuid.UUID) (*UserRating, error) {
	average, count, err := s.repo.GetAverageRating(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &UserRating{Average: average, Count: count}, nil
}
