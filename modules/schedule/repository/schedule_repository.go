package repository

import (
	"context"
	"database/sql"
	"time"

	"cfp-scheduler/core/database"
	"cfp-scheduler/core/logger"
	"cfp-scheduler/modules/schedule/entity"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// ScheduleRepository handles schedule and talk slot persistence
type ScheduleRepository struct {
	DB   database.Database
	exec database.Executor
	inTx bool
}

// NewScheduleRepository creates a new repository instance
func NewScheduleRepository(db database.Database) *ScheduleRepository {
	return &ScheduleRepository{DB: db, exec: db.SQLx()}
}

// ScheduleRepositoryInterface defines the repository contract
type ScheduleRepositoryInterface interface {
	// WithTx runs fn against a repository bound to a single transaction
	WithTx(ctx context.Context, fn func(repo ScheduleRepositoryInterface) error) error

	// Schedules
	CreateSchedule(ctx context.Context, schedule *entity.Schedule) (*entity.Schedule, error)
	GetScheduleByID(ctx context.Context, eventID int64, id int64) (*entity.Schedule, error)
	GetScheduleByVersion(ctx context.Context, eventID int64, version string) (*entity.Schedule, error)
	GetWIPSchedule(ctx context.Context, eventID int64) (*entity.Schedule, error)
	GetLatestRelease(ctx context.Context, eventID int64, publishedBefore *time.Time, excludeID int64) (*entity.Schedule, error)
	GetSchedulesByEventID(ctx context.Context, eventID int64) ([]entity.Schedule, error)
	DeleteSchedule(ctx context.Context, id int64) error

	// Talk slots
	GetSlotsByScheduleID(ctx context.Context, scheduleID int64) ([]entity.TalkSlot, error)
	GetSlotsByIDs(ctx context.Context, eventID int64, ids []int64) ([]entity.TalkSlot, error)
	GetSlotByID(ctx context.Context, scheduleID int64, id int64) (*entity.TalkSlot, error)
	CreateSlot(ctx context.Context, slot *entity.TalkSlot) (*entity.TalkSlot, error)
	CreateSlots(ctx context.Context, slots []entity.TalkSlot) error
	UpdateSlot(ctx context.Context, slot *entity.TalkSlot) error
	DeleteSlot(ctx context.Context, id int64) error
	DeleteSlotsByType(ctx context.Context, scheduleID int64, slotType entity.SlotType) error

	// Event data (read-only)
	GetEventByID(ctx context.Context, id int64) (*entity.Event, error)
	GetSubmissionsByEventID(ctx context.Context, eventID int64) ([]entity.Submission, error)
	GetRoomsByEventID(ctx context.Context, eventID int64) ([]entity.Room, error)
	GetTracksByEventID(ctx context.Context, eventID int64) ([]entity.Track, error)
	GetSpeakersByEventID(ctx context.Context, eventID int64) ([]entity.SubmissionSpeaker, error)
	GetAvailabilitiesByEventID(ctx context.Context, eventID int64) ([]entity.Availability, error)
}

func (r *ScheduleRepository) WithTx(ctx context.Context, fn func(repo ScheduleRepositoryInterface) error) error {
	if r.inTx {
		return fn(r)
	}
	return r.DB.WithTx(ctx, func(tx *sqlx.Tx) error {
		return fn(&ScheduleRepository{DB: r.DB, exec: tx, inTx: true})
	})
}

// ===================== Schedules =====================

const scheduleColumns = `id, event_id, version, published, comment, created_at, updated_at`

func (r *ScheduleRepository) CreateSchedule(ctx context.Context, schedule *entity.Schedule) (*entity.Schedule, error) {
	query := `
		INSERT INTO schedules (event_id, version, published, comment)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + scheduleColumns

	var created entity.Schedule
	err := r.exec.QueryRowxContext(ctx, query,
		schedule.EventID, schedule.Version, schedule.Published, schedule.Comment).StructScan(&created)
	if err != nil {
		if database.IsUniqueViolation(err) {
			logger.Warn("ScheduleRepository:CreateSchedule:UniqueViolation", "event_id", schedule.EventID)
		} else {
			logger.Error("ScheduleRepository:CreateSchedule", err)
		}
		return nil, err
	}

	return &created, nil
}

func (r *ScheduleRepository) getSchedule(ctx context.Context, op string, query string, args ...any) (*entity.Schedule, error) {
	var schedule entity.Schedule
	err := r.exec.GetContext(ctx, &schedule, query, args...)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		logger.Error("ScheduleRepository:"+op, err)
		return nil, err
	}
	return &schedule, nil
}

func (r *ScheduleRepository) GetScheduleByID(ctx context.Context, eventID int64, id int64) (*entity.Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE event_id = $1 AND id = $2`
	return r.getSchedule(ctx, "GetScheduleByID", query, eventID, id)
}

func (r *ScheduleRepository) GetScheduleByVersion(ctx context.Context, eventID int64, version string) (*entity.Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE event_id = $1 AND version = $2`
	return r.getSchedule(ctx, "GetScheduleByVersion", query, eventID, version)
}

func (r *ScheduleRepository) GetWIPSchedule(ctx context.Context, eventID int64) (*entity.Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE event_id = $1 AND version IS NULL`
	return r.getSchedule(ctx, "GetWIPSchedule", query, eventID)
}

// GetLatestRelease returns the most recently published release, optionally only
// those published strictly before publishedBefore, never the schedule excludeID.
func (r *ScheduleRepository) GetLatestRelease(ctx context.Context, eventID int64, publishedBefore *time.Time, excludeID int64) (*entity.Schedule, error) {
	query := `
		SELECT ` + scheduleColumns + `
		FROM schedules
		WHERE event_id = $1
		  AND version IS NOT NULL
		  AND id <> $2
		  AND ($3::timestamptz IS NULL OR published < $3)
		ORDER BY published DESC, id DESC
		LIMIT 1
	`
	return r.getSchedule(ctx, "GetLatestRelease", query, eventID, excludeID, publishedBefore)
}

func (r *ScheduleRepository) GetSchedulesByEventID(ctx context.Context, eventID int64) ([]entity.Schedule, error) {
	query := `
		SELECT ` + scheduleColumns + `
		FROM schedules
		WHERE event_id = $1
		ORDER BY published DESC NULLS FIRST, id DESC
	`

	var schedules []entity.Schedule
	err := r.exec.SelectContext(ctx, &schedules, query, eventID)
	if err != nil {
		logger.Error("ScheduleRepository:GetSchedulesByEventID", err)
		return nil, err
	}

	return schedules, nil
}

// DeleteSchedule removes the schedule; its talk slots go with it (ON DELETE CASCADE)
func (r *ScheduleRepository) DeleteSchedule(ctx context.Context, id int64) error {
	query := `DELETE FROM schedules WHERE id = $1`
	_, err := r.exec.ExecContext(ctx, query, id)
	if err != nil {
		logger.Error("ScheduleRepository:DeleteSchedule", err)
		return err
	}
	return nil
}

// ===================== Talk slots =====================

const slotColumns = `id, schedule_id, submission_id, room_id, start_at, end_at, is_visible, slot_type, description, created_at, updated_at`

func (r *ScheduleRepository) GetSlotsByScheduleID(ctx context.Context, scheduleID int64) ([]entity.TalkSlot, error) {
	query := `
		SELECT ` + slotColumns + `
		FROM talk_slots
		WHERE schedule_id = $1
		ORDER BY start_at ASC NULLS LAST, id ASC
	`

	var slots []entity.TalkSlot
	err := r.exec.SelectContext(ctx, &slots, query, scheduleID)
	if err != nil {
		logger.Error("ScheduleRepository:GetSlotsByScheduleID", err)
		return nil, err
	}

	return slots, nil
}

// GetSlotsByIDs only returns slots belonging to one of the event's schedules
func (r *ScheduleRepository) GetSlotsByIDs(ctx context.Context, eventID int64, ids []int64) ([]entity.TalkSlot, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `
		SELECT ts.id, ts.schedule_id, ts.submission_id, ts.room_id, ts.start_at, ts.end_at,
		       ts.is_visible, ts.slot_type, ts.description, ts.created_at, ts.updated_at
		FROM talk_slots ts
		JOIN schedules s ON s.id = ts.schedule_id
		WHERE s.event_id = $1 AND ts.id = ANY($2)
	`

	var slots []entity.TalkSlot
	err := r.exec.SelectContext(ctx, &slots, query, eventID, pq.Array(ids))
	if err != nil {
		logger.Error("ScheduleRepository:GetSlotsByIDs", err)
		return nil, err
	}

	return slots, nil
}

func (r *ScheduleRepository) GetSlotByID(ctx context.Context, scheduleID int64, id int64) (*entity.TalkSlot, error) {
	query := `SELECT ` + slotColumns + ` FROM talk_slots WHERE schedule_id = $1 AND id = $2`

	var slot entity.TalkSlot
	err := r.exec.GetContext(ctx, &slot, query, scheduleID, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		logger.Error("ScheduleRepository:GetSlotByID", err)
		return nil, err
	}

	return &slot, nil
}

func (r *ScheduleRepository) CreateSlot(ctx context.Context, slot *entity.TalkSlot) (*entity.TalkSlot, error) {
	query := `
		INSERT INTO talk_slots (schedule_id, submission_id, room_id, start_at, end_at, is_visible, slot_type, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + slotColumns

	var created entity.TalkSlot
	err := r.exec.QueryRowxContext(ctx, query,
		slot.ScheduleID, slot.SubmissionID, slot.RoomID, slot.Start, slot.End,
		slot.IsVisible, slot.SlotType, slot.Description).StructScan(&created)
	if err != nil {
		logger.Error("ScheduleRepository:CreateSlot", err)
		return nil, err
	}

	return &created, nil
}

func (r *ScheduleRepository) CreateSlots(ctx context.Context, slots []entity.TalkSlot) error {
	if len(slots) == 0 {
		return nil
	}

	query := `
		INSERT INTO talk_slots (schedule_id, submission_id, room_id, start_at, end_at, is_visible, slot_type, description)
		VALUES (:schedule_id, :submission_id, :room_id, :start_at, :end_at, :is_visible, :slot_type, :description)
	`

	_, err := r.exec.NamedExecContext(ctx, query, slots)
	if err != nil {
		logger.Error("ScheduleRepository:CreateSlots", err)
		return err
	}

	return nil
}

func (r *ScheduleRepository) UpdateSlot(ctx context.Context, slot *entity.TalkSlot) error {
	query := `
		UPDATE talk_slots
		SET submission_id = $2, room_id = $3, start_at = $4, end_at = $5, is_visible = $6,
		    slot_type = $7, description = $8, updated_at = NOW()
		WHERE id = $1
	`

	_, err := r.exec.ExecContext(ctx, query,
		slot.ID, slot.SubmissionID, slot.RoomID, slot.Start, slot.End,
		slot.IsVisible, slot.SlotType, slot.Description)
	if err != nil {
		logger.Error("ScheduleRepository:UpdateSlot", err)
		return err
	}

	return nil
}

func (r *ScheduleRepository) DeleteSlot(ctx context.Context, id int64) error {
	query := `DELETE FROM talk_slots WHERE id = $1`
	_, err := r.exec.ExecContext(ctx, query, id)
	if err != nil {
		logger.Error("ScheduleRepository:DeleteSlot", err)
		return err
	}
	return nil
}

func (r *ScheduleRepository) DeleteSlotsByType(ctx context.Context, scheduleID int64, slotType entity.SlotType) error {
	query := `DELETE FROM talk_slots WHERE schedule_id = $1 AND slot_type = $2`
	_, err := r.exec.ExecContext(ctx, query, scheduleID, slotType)
	if err != nil {
		logger.Error("ScheduleRepository:DeleteSlotsByType", err)
		return err
	}
	return nil
}

// ===================== Event data =====================

func (r *ScheduleRepository) GetEventByID(ctx context.Context, id int64) (*entity.Event, error) {
	query := `SELECT id, name, slug, timezone FROM events WHERE id = $1`

	var event entity.Event
	err := r.exec.GetContext(ctx, &event, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		logger.Error("ScheduleRepository:GetEventByID", err)
		return nil, err
	}

	return &event, nil
}

func (r *ScheduleRepository) GetSubmissionsByEventID(ctx context.Context, eventID int64) ([]entity.Submission, error) {
	query := `
		SELECT id, event_id, code, title, state, COALESCE(slot_count, 1) AS slot_count,
		       COALESCE(duration, 0) AS duration, track_id
		FROM submissions
		WHERE event_id = $1
		ORDER BY id
	`

	var submissions []entity.Submission
	err := r.exec.SelectContext(ctx, &submissions, query, eventID)
	if err != nil {
		logger.Error("ScheduleRepository:GetSubmissionsByEventID", err)
		return nil, err
	}

	return submissions, nil
}

func (r *ScheduleRepository) GetRoomsByEventID(ctx context.Context, eventID int64) ([]entity.Room, error) {
	query := `SELECT id, event_id, name, COALESCE(position, 0) AS position FROM rooms WHERE event_id = $1 ORDER BY position, id`

	var rooms []entity.Room
	err := r.exec.SelectContext(ctx, &rooms, query, eventID)
	if err != nil {
		logger.Error("ScheduleRepository:GetRoomsByEventID", err)
		return nil, err
	}

	return rooms, nil
}

func (r *ScheduleRepository) GetTracksByEventID(ctx context.Context, eventID int64) ([]entity.Track, error) {
	query := `SELECT id, event_id, name, COALESCE(color, '') AS color FROM tracks WHERE event_id = $1 ORDER BY id`

	var tracks []entity.Track
	err := r.exec.SelectContext(ctx, &tracks, query, eventID)
	if err != nil {
		logger.Error("ScheduleRepository:GetTracksByEventID", err)
		return nil, err
	}

	return tracks, nil
}

func (r *ScheduleRepository) GetSpeakersByEventID(ctx context.Context, eventID int64) ([]entity.SubmissionSpeaker, error) {
	query := `
		SELECT ss.submission_id, sp.id, sp.code, sp.name, COALESCE(sp.email, '') AS email
		FROM submission_speakers ss
		JOIN speakers sp ON sp.id = ss.speaker_id
		JOIN submissions su ON su.id = ss.submission_id
		WHERE su.event_id = $1
		ORDER BY ss.submission_id, sp.name
	`

	var rows []entity.SubmissionSpeaker
	err := r.exec.SelectContext(ctx, &rows, query, eventID)
	if err != nil {
		logger.Error("ScheduleRepository:GetSpeakersByEventID", err)
		return nil, err
	}

	return rows, nil
}

func (r *ScheduleRepository) GetAvailabilitiesByEventID(ctx context.Context, eventID int64) ([]entity.Availability, error) {
	query := `
		SELECT id, event_id, room_id, speaker_id, start_at, end_at
		FROM availabilities
		WHERE event_id = $1
		ORDER BY start_at
	`

	var availabilities []entity.Availability
	err := r.exec.SelectContext(ctx, &availabilities, query, eventID)
	if err != nil {
		logger.Error("ScheduleRepository:GetAvailabilitiesByEventID", err)
		return nil, err
	}

	return availabilities, nil
}
