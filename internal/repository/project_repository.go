package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/escrow-backend/internal/domain/valueobject"
	"github.com/ignatzorin/escrow-backend/internal/models"
)

// Ошибки уровня репозитория.
var (
	ErrProjectNotFound       = errors.New("project not found")
	ErrProposalNotFound      = errors.New("proposal not found")
	ErrProjectStatusConflict = errors.New("project status changed concurrently")
)

// ProjectRepository отвечает за проекты и предложения фрилансеров.
type ProjectRepository struct {
	db *sqlx.DB
}

func NewProjectRepository(db *sqlx.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// Create сохраняет новый проект.
func (r *ProjectRepository) Create(ctx context.Context, project *models.Project) error {
	query := `
		INSERT INTO projects (id, client_id, title, description, budget_min, budget_max, currency, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`
	if err := r.db.QueryRowxContext(
		ctx, query,
		project.ID, project.ClientID, project.Title, project.Description,
		project.BudgetMin, project.BudgetMax, project.Currency, project.Status,
	).Scan(&project.CreatedAt, &project.UpdatedAt); err != nil {
		return fmt.Errorf("project repository: create %w", err)
	}
	return nil
}

// GetByID возвращает проект по идентификатору.
func (r *ProjectRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	var project models.Project
	query := `
		SELECT id, client_id, freelancer_id, title, description, budget_min, budget_max, currency, status, created_at, updated_at
		FROM projects
		WHERE id = $1
	`
	if err := r.db.GetContext(ctx, &project, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("project repository: get by id %w", err)
	}
	return &project, nil
}

// ListOpen возвращает открытые проекты с количеством предложений.
func (r *ProjectRepository) ListOpen(ctx context.Context, limit, offset int) ([]models.Project, error) {
	var projects []models.Project
	query := `
		SELECT p.id, p.client_id, p.freelancer_id, p.title, p.description, p.budget_min, p.budget_max,
		       p.currency, p.status, p.created_at, p.updated_at,
		       COUNT(pr.id) AS proposals_count
		FROM projects p
		LEFT JOIN proposals pr ON pr.project_id = p.id
		WHERE p.status = 'open'
		GROUP BY p.id
		ORDER BY p.created_at DESC
		LIMIT $1 OFFSET $2
	`
	if err := r.db.SelectContext(ctx, &projects, query, limit, offset); err != nil {
		return nil, fmt.Errorf("project repository: list open %w", err)
	}
	return projects, nil
}

// ListByParticipant возвращает проекты, где пользователь клиент или исполнитель.
func (r *ProjectRepository) ListByParticipant(ctx context.Context, userID uuid.UUID) ([]models.Project, error) {
	var projects []models.Project
	query := `
		SELECT id, client_id, freelancer_id, title, description, budget_min, budget_max, currency, status, created_at, updated_at
		FROM projects
		WHERE client_id = $1 OR freelancer_id = $1
		ORDER BY created_at DESC
	`
	if err := r.db.SelectContext(ctx, &projects, query, userID); err != nil {
		return nil, fmt.Errorf("project repository: list by participant %w", err)
	}
	return projects, nil
}

// UpdateStatus выполняет защищённый переход статуса: строка обновляется только
// если текущий статус совпадает с ожидаемым. Конкурентное изменение приводит
// к ErrProjectStatusConflict, состояние не затирается.
func (r *ProjectRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to valueobject.ProjectStatus) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE projects SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
	`, id, from, to)
	if err != nil {
		return fmt.Errorf("project repository: update status %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("project repository: update status rows %w", err)
	}
	if affected == 0 {
		return ErrProjectStatusConflict
	}
	return nil
}

// AcceptProposal назначает фрилансера, переводит проект в работу и закрывает
// остальные предложения. Выполняется одной транзакцией после успешного
// создания escrow.
func (r *ProjectRepository) AcceptProposal(ctx context.Context, projectID, proposalID, freelancerID uuid.UUID) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE projects SET freelancer_id = $2, status = 'in_progress', updated_at = NOW()
		WHERE id = $1 AND status = 'open'
	`, projectID, freelancerID)
	if err != nil {
		return fmt.Errorf("project repository: accept proposal %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrProjectStatusConflict
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE proposals SET status = 'accepted', updated_at = NOW() WHERE id = $1
	`, proposalID)
	if err != nil {
		return fmt.Errorf("project repository: mark proposal accepted %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE proposals SET status = 'rejected', updated_at = NOW()
		WHERE project_id = $1 AND id != $2 AND status = 'pending'
	`, projectID, proposalID)
	if err != nil {
		return fmt.Errorf("project repository: reject other proposals %w", err)
	}

	return tx.Commit()
}

// CreateProposal сохраняет отклик фрилансера.
func (r *ProjectRepository) CreateProposal(ctx context.Context, proposal *models.Proposal) error {
	query := `
		INSERT INTO proposals (project_id, freelancer_id, cover_letter, amount, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`
	if err := r.db.QueryRowxContext(
		ctx, query,
		proposal.ProjectID, proposal.FreelancerID, proposal.CoverLetter, proposal.Amount, proposal.Status,
	).Scan(&proposal.ID, &proposal.CreatedAt, &proposal.UpdatedAt); err != nil {
		return fmt.Errorf("project repository: create proposal %w", err)
	}
	return nil
}

// GetProposalByID возвращает предложение по идентификатору.
func (r *ProjectRepository) GetProposalByID(ctx context.Context, id uuid.UUID) (*models.Proposal, error) {
	var proposal models.Proposal
	if err := r.db.GetContext(ctx, &proposal, `SELECT * FROM proposals WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProposalNotFound
		}
		return nil, fmt.Errorf("project repository: get proposal %w", err)
	}
	return &proposal, nil
}

// GetProposalByProjectAndFreelancer возвращает отклик фрилансера на проект.
func (r *ProjectRepository) GetProposalByProjectAndFreelancer(ctx context.Context, projectID, freelancerID uuid.UUID) (*models.Proposal, error) {
	var proposal models.Proposal
	err := r.db.GetContext(ctx, &proposal,
		`SELECT * FROM proposals WHERE project_id = $1 AND freelancer_id = $2`, projectID, freelancerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProposalNotFound
		}
		return nil, fmt.Errorf("project repository: get proposal by participants %w", err)
	}
	return &proposal, nil
}

// ListProposals возвращает предложения по проекту.
func (r *ProjectRepository) ListProposals(ctx context.Context, projectID uuid.UUID) ([]models.Proposal, error) {
	var proposals []models.Proposal
	err := r.db.SelectContext(ctx, &proposals,
		`SELECT * FROM proposals WHERE project_id = $1 ORDER BY created_at DESC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("project repository: list proposals %w", err)
	}
	return proposals, nil
}

// projectForUpdateTx читает проект с блокировкой строки.
func projectForUpdateTx(ctx context.Context, tx *sqlx.Tx, projectID uuid.UUID) (*models.Project, error) {
	var project models.Project
	err := tx.GetContext(ctx, &project, `
		SELECT id, client_id, freelancer_id, title, description, budget_min, budget_max, currency, status, created_at, updated_at
		FROM projects WHERE id = $1 FOR UPDATE
	`, projectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	return &project, nil
}

// transitionProjectStatusTx выполняет защищённый переход статуса внутри
// внешней транзакции. Единственная точка записи projects.status из других
// репозиториев.
func transitionProjectStatusTx(ctx context.Context, tx *sqlx.Tx, projectID uuid.UUID, from, to valueobject.ProjectStatus) error {
	if !from.CanTransitionTo(to) {
		return ErrProjectStatusConflict
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE projects SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
	`, projectID, from, to)
	if err != nil {
		return fmt.Errorf("transition project status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrProjectStatusConflict
	}
	return nil
}
