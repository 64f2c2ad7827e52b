package repository

import (
	"context"

	"cfp-scheduler/core/database"
	"cfp-scheduler/core/logger"
	"cfp-scheduler/modules/mail/entity"

	"github.com/google/uuid"
)

type MailRepositoryInterface interface {
	Create(ctx context.Context, mail *entity.QueuedMail) error
	SetTaskID(ctx context.Context, id uuid.UUID, taskID string) error
}

type MailRepository struct {
	db database.Database
}

func NewMailRepository(db database.Database) *MailRepository {
	return &MailRepository{db: db}
}

func (r *MailRepository) Create(ctx context.Context, mail *entity.QueuedMail) error {
	query := `
		INSERT INTO queued_mails (id, event_id, recipient, template, context, created_at, updated_at)
		VALUES (:id, :event_id, :recipient, :template, :context, :created_at, :updated_at)
	`
	_, err := r.db.NamedExecContext(ctx, query, mail)
	if err != nil {
		logger.Error("MailRepository:Create:Error:", err)
		return err
	}
	return nil
}

func (r *MailRepository) SetTaskID(ctx context.Context, id uuid.UUID, taskID string) error {
	query := `UPDATE queued_mails SET task_id = $2, updated_at = NOW() WHERE id = $1`
	err := r.db.ExecContext(ctx, query, id, taskID)
	if err != nil {
		logger.Error("MailRepository:SetTaskID:Error:", err)
		return err
	}
	return nil
}
