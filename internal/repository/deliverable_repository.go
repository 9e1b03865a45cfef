package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/escrow-backend/internal/domain/valueobject"
	"github.com/ignatzorin/escrow-backend/internal/models"
)

// Ошибки результатов работы.
var (
	ErrDeliverableNotFound     = errors.New("deliverable not found")
	ErrDeliverableNotPending   = errors.New("deliverable is not pending review")
	ErrActiveDeliverableExists = errors.New("deliverable already pending review for project")
)

// DeliverableRepository отвечает за результаты работы и их файлы.
// Сдача и ревью меняют статус проекта в той же транзакции, что и запись
// результата: промежуточные состояния снаружи не наблюдаемы.
type DeliverableRepository struct {
	db *sqlx.DB
}

func NewDeliverableRepository(db *sqlx.DB) *DeliverableRepository {
	return &DeliverableRepository{db: db}
}

// Submit сохраняет сдачу работы и переводит проект в pending_review.
// Отклоняется, если по проекту уже есть результат на проверке.
func (r *DeliverableRepository) Submit(ctx context.Context, deliverable *models.Deliverable, files []models.DeliverableFile) (*models.Deliverable, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// Блокируем проект: сериализует конкурентные сдачи по одному проекту
	project, err := projectForUpdateTx(ctx, tx, deliverable.ProjectID)
	if err != nil {
		return nil, err
	}

	var pendingCount int
	err = tx.GetContext(ctx, &pendingCount,
		`SELECT COUNT(*) FROM deliverables WHERE project_id = $1 AND status = 'pending_review'`,
		deliverable.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("deliverable repository: check pending %w", err)
	}
	if pendingCount > 0 {
		return nil, ErrActiveDeliverableExists
	}

	err = tx.GetContext(ctx, deliverable, `
		INSERT INTO deliverables (project_id, freelancer_id, description, status)
		VALUES ($1, $2, $3, 'pending_review')
		RETURNING id, project_id, freelancer_id, description, status, review_feedback, submitted_at, reviewed_at
	`, deliverable.ProjectID, deliverable.FreelancerID, deliverable.Description)
	if err != nil {
		return nil, fmt.Errorf("deliverable repository: create %w", err)
	}

	for i := range files {
		files[i].DeliverableID = deliverable.ID
		err = tx.GetContext(ctx, &files[i], `
			INSERT INTO deliverable_files (deliverable_id, name, path, size, content_type)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, deliverable_id, name, path, size, content_type, created_at
		`, files[i].DeliverableID, files[i].Name, files[i].Path, files[i].Size, files[i].ContentType)
		if err != nil {
			return nil, fmt.Errorf("deliverable repository: create file %w", err)
		}
	}
	deliverable.Files = files

	if err := transitionProjectStatusTx(ctx, tx, project.ID, project.Status, valueobject.ProjectStatusPendingReview); err != nil {
		return nil, err
	}

	return deliverable, tx.Commit()
}

// ReviewDecision описывает решение клиента по результату работы.
type ReviewDecision struct {
	Approve  bool
	Feedback *string
}

// Review фиксирует решение клиента и переводит проект в следующий статус:
// approve -> pending_payment, запрос доработки -> in_progress.
// Повторное ревью терминального результата возвращает ErrDeliverableNotPending.
func (r *DeliverableRepository) Review(ctx context.Context, deliverableID uuid.UUID, decision ReviewDecision) (*models.Deliverable, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var deliverable models.Deliverable
	err = tx.GetContext(ctx, &deliverable,
		`SELECT * FROM deliverables WHERE id = $1 FOR UPDATE`, deliverableID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeliverableNotFound
		}
		return nil, fmt.Errorf("deliverable repository: get for review %w", err)
	}
	if deliverable.Status != valueobject.DeliverableStatusPendingReview {
		return nil, ErrDeliverableNotPending
	}

	project, err := projectForUpdateTx(ctx, tx, deliverable.ProjectID)
	if err != nil {
		return nil, err
	}

	newStatus := valueobject.DeliverableStatusRevisionRequested
	nextProjectStatus := valueobject.ProjectStatusInProgress
	if decision.Approve {
		newStatus = valueobject.DeliverableStatusApproved
		nextProjectStatus = valueobject.ProjectStatusPendingPayment
	}

	now := time.Now()
	_, err = tx.ExecContext(ctx, `
		UPDATE deliverables SET status = $2, review_feedback = $3, reviewed_at = $4
		WHERE id = $1
	`, deliverableID, newStatus, decision.Feedback, now)
	if err != nil {
		return nil, fmt.Errorf("deliverable repository: review %w", err)
	}
	deliverable.Status = newStatus
	deliverable.ReviewFeedback = decision.Feedback
	deliverable.ReviewedAt = &now

	if err := transitionProjectStatusTx(ctx, tx, project.ID, project.Status, nextProjectStatus); err != nil {
		return nil, err
	}

	return &deliverable, tx.Commit()
}

// GetByID возвращает результат работы с файлами.
func (r *DeliverableRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Deliverable, error) {
	var deliverable models.Deliverable
	if err := r.db.GetContext(ctx, &deliverable, `SELECT * FROM deliverables WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeliverableNotFound
		}
		return nil, fmt.Errorf("deliverable repository: get by id %w", err)
	}

	files, err := r.listFiles(ctx, deliverable.ID)
	if err != nil {
		return nil, err
	}
	deliverable.Files = files

	return &deliverable, nil
}

// GetLatestByProjectID возвращает последний по времени сдачи результат проекта.
func (r *DeliverableRepository) GetLatestByProjectID(ctx context.Context, projectID uuid.UUID) (*models.Deliverable, error) {
	var deliverable models.Deliverable
	err := r.db.GetContext(ctx, &deliverable,
		`SELECT * FROM deliverables WHERE project_id = $1 ORDER BY submitted_at DESC LIMIT 1`, projectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeliverableNotFound
		}
		return nil, fmt.Errorf("deliverable repository: get latest %w", err)
	}

	files, err := r.listFiles(ctx, deliverable.ID)
	if err != nil {
		return nil, err
	}
	deliverable.Files = files

	return &deliverable, nil
}

// ListByProjectID возвращает все результаты работы по проекту.
func (r *DeliverableRepository) ListByProjectID(ctx context.Context, projectID uuid.UUID) ([]models.Deliverable, error) {
	var deliverables []models.Deliverable
	err := r.db.SelectContext(ctx, &deliverables,
		`SELECT * FROM deliverables WHERE project_id = $1 ORDER BY submitted_at DESC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("deliverable repository: list by project %w", err)
	}

	for i := range deliverables {
		files, err := r.listFiles(ctx, deliverables[i].ID)
		if err != nil {
			return nil, err
		}
		deliverables[i].Files = files
	}

	return deliverables, nil
}

func (r *DeliverableRepository) listFiles(ctx context.Context, deliverableID uuid.UUID) ([]models.DeliverableFile, error) {
	var files []models.DeliverableFile
	err := r.db.SelectContext(ctx, &files,
		`SELECT * FROM deliverable_files WHERE deliverable_id = $1 ORDER BY created_at`, deliverableID)
	if err != nil {
		return nil, fmt.Errorf("deliverable repository: list files %w", err)
	}
	return files, nil
}
