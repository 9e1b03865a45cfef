package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/ignatzorin/escrow-backend/internal/domain/valueobject"
	"github.com/ignatzorin/escrow-backend/internal/models"
	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
)

type mockReviewsRepo struct {
	mock.Mock
}

func (m *mockReviewsRepo) Create(ctx context.Context, review *models.Review) error {
	args := m.Called(ctx, review)
	return args.Error(0)
}

func (m *mockReviewsRepo) GetByProjectAndReviewer(ctx context.Context, projectID, reviewerID uuid.UUID) (*models.Review, error) {
	args := m.Called(ctx, projectID, reviewerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Review), args.Error(1)
}

func (m *mockReviewsRepo) ListByReviewedID(ctx context.Context, reviewedID uuid.UUID, limit, offset int) ([]models.Review, error) {
	args := m.Called(ctx, reviewedID, limit, offset)
	return args.Get(0).([]models.Review), args.Error(1)
}

func (m *mockReviewsRepo) ListByProjectID(ctx context.Context, projectID uuid.UUID) ([]models.Review, error) {
	args := m.Called(ctx, projectID)
	return args.Get(0).([]models.Review), args.Error(1)
}

func (m *mockReviewsRepo) GetAverageRating(ctx context.Context, userID uuid.UUID) (float64, int, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(float64), args.Int(1), args.Error(2)
}

func completedProject(clientID, freelancerID uuid.UUID) *models.Project {
	return &models.Project{
		ID:           uuid.New(),
		ClientID:     clientID,
		FreelancerID: &freelancerID,
		Status:       valueobject.ProjectStatusCompleted,
	}
}

func TestReviewService_CreateReview_ClientReviewsFreelancer(t *testing.T) {
	repo := new(mockReviewsRepo)
	projects := new(mockProjectsRepo)
	svc := NewReviewService(repo, projects)
	ctx := context.Background()

	clientID := uuid.New()
	freelancerID := uuid.New()
	project := completedProject(clientID, freelancerID)

	projects.On("GetByID", ctx, project.ID).Return(project, nil)
	repo.On("GetByProjectAndReviewer", ctx, project.ID, clientID).Return(nil, nil)
	repo.On("Create", ctx, mock.AnythingOfType("*models.Review")).Return(nil)

	review, err := svc.CreateReview(ctx, clientID, project.ID, 5, nil)
	assert.NoError(t, err)
	assert.Equal(t, freelancerID, review.ReviewedID)
	assert.Equal(t, 5, review.Rating)
}

func TestReviewService_CreateReview_FreelancerReviewsClient(t *testing.T) {
	repo := new(mockReviewsRepo)
	projects := new(mockProjectsRepo)
	svc := NewReviewService(repo, projects)
	ctx := context.Background()

	clientID := uuid.New()
	freelancerID := uuid.New()
	project := completedProject(clientID, freelancerID)

	projects.On("GetByID", ctx, project.ID).Return(project, nil)
	repo.On("GetByProjectAndReviewer", ctx, project.ID, freelancerID).Return(nil, nil)
	repo.On("Create", ctx, mock.AnythingOfType("*models.Review")).Return(nil)

	review, err := svc.CreateReview(ctx, freelancerID, project.ID, 4, nil)
	assert.NoError(t, err)
	assert.Equal(t, clientID, review.ReviewedID)
}

func TestReviewService_CreateReview_InvalidRating(t *testing.T) {
	svc := NewReviewService(new(mockReviewsRepo), new(mockProjectsRepo))

	_, err := svc.CreateReview(context.Background(), uuid.New(), uuid.New(), 0, nil)
	assert.True(t, apperror.IsValidation(err))

	_, err = svc.CreateReview(context.Background(), uuid.New(), uuid.New(), 6, nil)
	assert.True(t, apperror.IsValidation(err))
}

func TestReviewService_CreateReview_ProjectNotCompleted(t *testing.T) {
	repo := new(mockReviewsRepo)
	projects := new(mockProjectsRepo)
	svc := NewReviewService(repo, projects)
	ctx := context.Background()

	clientID := uuid.New()
	freelancerID := uuid.New()
	project := completedProject(clientID, freelancerID)
	project.Status = valueobject.ProjectStatusInProgress

	projects.On("GetByID", ctx, project.ID).Return(project, nil)

	_, err := svc.CreateReview(ctx, clientID, project.ID, 5, nil)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "завершённому проекту")
}

func TestReviewService_CreateReview_NotParticipant(t *testing.T) {
	repo := new(mockReviewsRepo)
	projects := new(mockProjectsRepo)
	svc := NewReviewService(repo, projects)
	ctx := context.Background()

	project := completedProject(uuid.New(), uuid.New())
	projects.On("GetByID", ctx, project.ID).Return(project, nil)

	_, err := svc.CreateReview(ctx, uuid.New(), project.ID, 5, nil)
	assert.True(t, apperror.IsForbidden(err))
}

func TestReviewService_CreateReview_Duplicate(t *testing.T) {
	repo := new(mockReviewsRepo)
	projects := new(mockProjectsRepo)
	svc := NewReviewService(repo, projects)
	ctx := context.Background()

	clientID := uuid.New()
	project := completedProject(clientID, uuid.New())

	projects.On("GetByID", ctx, project.ID).Return(project, nil)
	repo.On("GetByProjectAndReviewer", ctx, project.ID, clientID).
		Return(&models.Review{ID: uuid.New()}, nil)

	_, err := svc.CreateReview(ctx, clientID, project.ID, 5, nil)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "уже оставили отзыв")
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestReviewService_GetUserRating(t *testing.T) {
	repo := new(mockReviewsRepo)
	svc := NewReviewService(repo, new(mockProjectsRepo))
	ctx := context.Background()
	userID := uuid.New()

	repo.On("GetAverageRating", ctx, userID).Return(4.5, 12, nil)

	rating, err := svc.GetUserRating(ctx, userID)
	assert.NoError(t, err)
	assert.Equal(t, 4.5, rating.Average)
	assert.Equal(t, 12, rating.Count)
}
