package service

import (
	"context"
	"time"

	"cfp-scheduler/core/constants"
	"cfp-scheduler/core/logger"
	"cfp-scheduler/core/queue"
	"cfp-scheduler/modules/mail/entity"
	"cfp-scheduler/modules/mail/repository"

	"github.com/google/uuid"
)

type MailService struct {
	repo  repository.MailRepositoryInterface
	queue queue.Client
	now   func() time.Time
}

func NewMailService(repo repository.MailRepositoryInterface, q queue.Client) *MailService {
	return &MailService{repo: repo, queue: q, now: time.Now}
}

// Enqueue stores the mail in the outbox and hands its id to the mail queue.
// The row is kept even if the queue is unreachable so it can be re-sent later.
func (s *MailService) Enqueue(ctx context.Context, eventID int64, recipient string, template string, data map[string]any) (*entity.QueuedMail, error) {
	now := s.now()
	mail := &entity.QueuedMail{
		ID:        uuid.New(),
		EventID:   eventID,
		Recipient: recipient,
		Template:  template,
		Context:   entity.JSONB(data),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Create(ctx, mail); err != nil {
		return nil, err
	}

	taskID, err := s.queue.Enqueue(ctx, constants.TaskTypeSendMail, constants.QueueMail, entity.SendMailPayload{MailID: mail.ID})
	if err != nil {
		logger.Error("MailService:Enqueue:Queue:Error:", err, "mail_id", mail.ID.String())
		return mail, err
	}

	if err := s.repo.SetTaskID(ctx, mail.ID, taskID); err != nil {
		logger.Warn("MailService:Enqueue:SetTaskID", "error", err, "mail_id", mail.ID.String())
	} else {
		mail.TaskID = &taskID
	}

	return mail, nil
}
