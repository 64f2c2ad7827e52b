package entity

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// QueuedMail is an outbox row; the mail worker renders Template with Context and sends it
type QueuedMail struct {
	ID        uuid.UUID `db:"id" json:"id"`
	EventID   int64     `db:"event_id" json:"event_id"`
	Recipient string    `db:"recipient" json:"recipient"`
	Template  string    `db:"template" json:"template"`
	Context   JSONB     `db:"context" json:"context"`
	TaskID    *string   `db:"task_id" json:"task_id,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

type JSONB map[string]interface{}

func (a JSONB) Value() (driver.Value, error) {
	return json.Marshal(a)
}

func (a *JSONB) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	return json.Unmarshal(b, &a)
}

// SendMailPayload is the queue task body
type SendMailPayload struct {
	MailID uuid.UUID `json:"mail_id"`
}
