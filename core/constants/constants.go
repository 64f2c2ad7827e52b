package constants

const (
	ContextTokenData = "token_data"
	ContextRequestID = "request_id"
)

// Database pool
const (
	DatabaseMaxOpenConns    = 25
	DatabaseMaxIdleConns    = 10
	DatabaseConnMaxLifetime = 30 // minutes
	DatabaseSSLMode         = "disable"
)

// Cache keys
const (
	CacheKeyScheduleChanges        = "schedule:%d:changes"
	CacheKeyEventUnreleasedChanges = "event:%d:hasUnreleasedChanges"
)

// Schedule references that can never be used as a version name
const (
	ScheduleRefWIP    = "wip"
	ScheduleRefLatest = "latest"
)

// Queue
const (
	TaskTypeSendMail = "mail:send"
	QueueMail        = "mail"
)

// Mail templates
const (
	MailTemplateScheduleUpdate       = "schedule.update"
	MailTemplateScheduleFirstRelease = "schedule.first_release"
)
