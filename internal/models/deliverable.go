package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/escrow-backend/internal/domain/valueobject"
)

// Deliverable описывает сдачу работы фрилансером по проекту.
// У проекта одновременно не более одного результата в статусе pending_review.
type Deliverable struct {
	ID             uuid.UUID                     `db:"id" json:"id"`
	ProjectID      uuid.UUID                     `db:"project_id" json:"project_id"`
	FreelancerID   uuid.UUID                     `db:"freelancer_id" json:"freelancer_id"`
	Description    string                        `db:"description" json:"description"`
	Status         valueobject.DeliverableStatus `db:"status" json:"status"`
	ReviewFeedback *string                       `db:"review_feedback" json:"review_feedback,omitempty"`
	SubmittedAt    time.Time                     `db:"submitted_at" json:"submitted_at"`
	ReviewedAt     *time.Time                    `db:"reviewed_at" json:"reviewed_at,omitempty"`

	Files []DeliverableFile `json:"files,omitempty"`
}

// DeliverableFile описывает файл, приложенный к результату работы.
// Содержимое файла для домена непрозрачно: хранится только метаинформация.
type DeliverableFile struct {
	ID            uuid.UUID `db:"id" json:"id"`
	DeliverableID uuid.UUID `db:"deliverable_id" json:"deliverable_id"`
	Name          string    `db:"name" json:"name"`
	Path          string    `db:"path" json:"path"`
	Size          int64     `db:"size" json:"size"`
	ContentType   string    `db:"content_type" json:"content_type"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}
