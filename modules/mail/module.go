package mail

import (
	"cfp-scheduler/core/database"
	"cfp-scheduler/core/queue"
	"cfp-scheduler/modules/mail/repository"
	"cfp-scheduler/modules/mail/service"
)

// Init builds the mail service used by other modules. It exposes no routes.
func Init(db database.Database, q queue.Client) *service.MailService {
	repo := repository.NewMailRepository(db)
	return service.NewMailService(repo, q)
}
